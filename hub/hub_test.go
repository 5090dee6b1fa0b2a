// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// receiveEvent reads one event from a subscription with a timeout so
// a delivery bug fails the test instead of hanging it.
func receiveEvent(t *testing.T, subscription *Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-subscription.Events():
		if !ok {
			t.Fatal("subscription channel closed while expecting an event")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestSubscribeAndPublish(t *testing.T) {
	t.Parallel()
	h := New(Options{})
	connectionID := uuid.New()
	sessionID := uuid.New()

	h.Register(connectionID)
	subscription, existing := h.Subscribe(connectionID, sessionID)
	if existing {
		t.Fatal("first subscribe reported an existing subscription")
	}

	h.Publish(sessionID, NewOutputEvent(sessionID, StreamStdout, "hello"))

	event := receiveEvent(t, subscription)
	if event.Type != EventOutput || event.Content != "hello" || event.Stream != StreamStdout {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestPublishOrderPreserved(t *testing.T) {
	t.Parallel()
	h := New(Options{})
	connectionID := uuid.New()
	sessionID := uuid.New()

	h.Register(connectionID)
	subscription, _ := h.Subscribe(connectionID, sessionID)

	lines := []string{"one", "two", "three", "four", "five"}
	for _, line := range lines {
		h.Publish(sessionID, NewOutputEvent(sessionID, StreamStdout, line))
	}

	for _, want := range lines {
		event := receiveEvent(t, subscription)
		if event.Content != want {
			t.Fatalf("out of order: got %q, want %q", event.Content, want)
		}
	}
}

func TestFanOutDeliversOneCopyPerConnection(t *testing.T) {
	t.Parallel()
	for _, subscriberCount := range []int{1, 2, 5} {
		h := New(Options{})
		sessionID := uuid.New()

		subscriptions := make([]*Subscription, subscriberCount)
		for i := range subscriptions {
			connectionID := uuid.New()
			h.Register(connectionID)
			subscriptions[i], _ = h.Subscribe(connectionID, sessionID)
		}

		h.Publish(sessionID, NewOutputEvent(sessionID, StreamStderr, "boom"))

		for i, subscription := range subscriptions {
			event := receiveEvent(t, subscription)
			if event.Content != "boom" || event.Stream != StreamStderr {
				t.Errorf("subscriber %d of %d: unexpected event %+v", i, subscriberCount, event)
			}
			// Exactly one copy: nothing else may be buffered.
			select {
			case extra := <-subscription.Events():
				t.Errorf("subscriber %d of %d: duplicate delivery %+v", i, subscriberCount, extra)
			default:
			}
		}
	}
}

func TestPublishWithoutSubscribersSucceeds(t *testing.T) {
	t.Parallel()
	h := New(Options{})
	sessionID := uuid.New()

	h.Publish(sessionID, NewOutputEvent(sessionID, StreamStdout, "nobody watching"))

	if h.HasSubscribers(sessionID) {
		t.Error("HasSubscribers true for a session nobody subscribed to")
	}

	// The publish left a transient topic entry; orphan reclamation
	// removes it.
	h.RemoveIfOrphaned(sessionID)
	h.mu.RLock()
	_, exists := h.topics[sessionID]
	h.mu.RUnlock()
	if exists {
		t.Error("orphaned topic still registered after RemoveIfOrphaned")
	}
}

func TestUnregisterCleansUpSubscriptions(t *testing.T) {
	t.Parallel()
	h := New(Options{})
	connectionID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	h.Register(connectionID)
	firstSub, _ := h.Subscribe(connectionID, first)
	secondSub, _ := h.Subscribe(connectionID, second)

	h.Unregister(connectionID)

	if h.HasSubscribers(first) || h.HasSubscribers(second) {
		t.Error("sessions still report subscribers after unregister")
	}
	if _, ok := <-firstSub.Events(); ok {
		t.Error("first subscription channel not closed by unregister")
	}
	if _, ok := <-secondSub.Events(); ok {
		t.Error("second subscription channel not closed by unregister")
	}

	h.mu.RLock()
	topicCount := len(h.topics)
	recordCount := len(h.connections)
	h.mu.RUnlock()
	if topicCount != 0 || recordCount != 0 {
		t.Errorf("residual state after unregister: %d topics, %d records", topicCount, recordCount)
	}
}

func TestUnregisterLeavesOtherConnectionsSubscribed(t *testing.T) {
	t.Parallel()
	h := New(Options{})
	leaving := uuid.New()
	staying := uuid.New()
	sessionID := uuid.New()

	h.Register(leaving)
	h.Register(staying)
	h.Subscribe(leaving, sessionID)
	stayingSub, _ := h.Subscribe(staying, sessionID)

	h.Unregister(leaving)

	if !h.HasSubscribers(sessionID) {
		t.Fatal("remaining subscriber lost by another connection's unregister")
	}
	h.Publish(sessionID, NewOutputEvent(sessionID, StreamStdout, "still here"))
	if event := receiveEvent(t, stayingSub); event.Content != "still here" {
		t.Errorf("unexpected event after peer unregister: %+v", event)
	}
}

func TestDoubleSubscribeReturnsExistingHandle(t *testing.T) {
	t.Parallel()
	h := New(Options{})
	connectionID := uuid.New()
	sessionID := uuid.New()

	h.Register(connectionID)
	first, existing := h.Subscribe(connectionID, sessionID)
	if existing {
		t.Fatal("first subscribe reported existing")
	}
	second, existing := h.Subscribe(connectionID, sessionID)
	if !existing {
		t.Fatal("second subscribe did not report existing")
	}

	if h.SubscriberCount(sessionID) != 1 {
		t.Errorf("subscriber count after double subscribe: got %d, want 1", h.SubscriberCount(sessionID))
	}

	// One delivery path: a publish arrives exactly once, on both
	// handles' shared channel.
	h.Publish(sessionID, NewOutputEvent(sessionID, StreamStdout, "once"))
	if event := receiveEvent(t, first); event.Content != "once" {
		t.Errorf("unexpected event: %+v", event)
	}
	select {
	case extra := <-second.Events():
		t.Errorf("duplicate delivery: %+v", extra)
	default:
	}
}

func TestUnsubscribeIsNoOpForUnknownSession(t *testing.T) {
	t.Parallel()
	h := New(Options{})
	connectionID := uuid.New()
	h.Register(connectionID)

	// Never subscribed, and also a completely unknown connection:
	// both are successful no-ops.
	h.Unsubscribe(connectionID, uuid.New())
	h.Unsubscribe(uuid.New(), uuid.New())
}

func TestUnsubscribeDeliversBufferedEventsThenCloses(t *testing.T) {
	t.Parallel()
	h := New(Options{})
	connectionID := uuid.New()
	sessionID := uuid.New()

	h.Register(connectionID)
	subscription, _ := h.Subscribe(connectionID, sessionID)

	h.Publish(sessionID, NewOutputEvent(sessionID, StreamStdout, "buffered"))
	h.Unsubscribe(connectionID, sessionID)

	// The buffered event drains after the unsubscribe, then the
	// channel closes.
	if event := receiveEvent(t, subscription); event.Content != "buffered" {
		t.Errorf("buffered event lost by unsubscribe: %+v", event)
	}
	if _, ok := <-subscription.Events(); ok {
		t.Error("subscription channel not closed after unsubscribe")
	}

	// New events no longer reach the old handle, and the topic is
	// reclaimed.
	h.Publish(sessionID, NewOutputEvent(sessionID, StreamStdout, "late"))
	if h.HasSubscribers(sessionID) {
		t.Error("session still reports subscribers after unsubscribe")
	}
}

func TestSlowSubscriberLosesOldestEvents(t *testing.T) {
	t.Parallel()
	h := New(Options{Capacity: 4})
	connectionID := uuid.New()
	sessionID := uuid.New()

	h.Register(connectionID)
	subscription, _ := h.Subscribe(connectionID, sessionID)

	// Publish twice the buffer capacity without consuming. The
	// publisher must never block, and the subscriber keeps the most
	// recent events.
	for i := 0; i < 8; i++ {
		h.Publish(sessionID, NewOutputEvent(sessionID, StreamStdout, string(rune('a'+i))))
	}

	got := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		got = append(got, receiveEvent(t, subscription).Content)
	}
	want := []string{"e", "f", "g", "h"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lagging subscriber buffer: got %v, want %v", got, want)
		}
	}
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	t.Parallel()
	h := New(Options{})
	sessionID := uuid.New()

	const connections = 8
	const eventsPerPublisher = 200

	connectionIDs := make([]uuid.UUID, connections)
	done := make(chan int, connections)
	for i := 0; i < connections; i++ {
		connectionIDs[i] = uuid.New()
		h.Register(connectionIDs[i])
		subscription, _ := h.Subscribe(connectionIDs[i], sessionID)
		go func() {
			received := 0
			for range subscription.Events() {
				received++
			}
			done <- received
		}()
	}

	publisherDone := make(chan struct{}, 2)
	for p := 0; p < 2; p++ {
		go func() {
			for i := 0; i < eventsPerPublisher; i++ {
				h.Publish(sessionID, NewOutputEvent(sessionID, StreamStdout, "x"))
			}
			publisherDone <- struct{}{}
		}()
	}
	<-publisherDone
	<-publisherDone

	// Unregister closes every subscription channel, ending the
	// consumer goroutines. Delivery is lossy under pressure, so only
	// an upper bound is checked; the real assertion is that nothing
	// deadlocks or races under the race detector.
	for _, id := range connectionIDs {
		h.Unregister(id)
	}
	for i := 0; i < connections; i++ {
		select {
		case received := <-done:
			if received > 2*eventsPerPublisher {
				t.Errorf("subscriber received %d events, more than published", received)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("consumer goroutine did not finish")
		}
	}
}
