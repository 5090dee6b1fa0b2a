// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultTopicCapacity is the default per-subscriber buffer size of a
// topic. 256 events absorbs normal bursts of session output; a
// subscriber that falls further behind loses its oldest buffered
// events rather than blocking the publisher.
const DefaultTopicCapacity = 256

// topic is the fan-out state for one session id: the set of
// subscriber buffers, keyed by connection id. Keying by connection id
// is what makes a second subscribe from the same connection land on
// the existing buffer instead of creating a duplicate delivery path.
type topic struct {
	subscribers map[uuid.UUID]chan Event
}

// Subscription is the live handle a subscribe call grants to a topic.
// Events published to the session after the subscribe completes are
// delivered on Events, in publish order, until the subscription is
// removed (by unsubscribe or connection teardown), at which point the
// channel is closed after its buffered events drain.
type Subscription struct {
	events chan Event
}

// Events returns the subscription's delivery channel.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Options configures a Hub.
type Options struct {
	// Capacity is the per-subscriber buffer size of each topic.
	// Defaults to DefaultTopicCapacity if zero or negative.
	Capacity int

	// Logger receives debug-level lifecycle messages. If nil, a
	// no-op logger is used.
	Logger *slog.Logger
}

// Hub is the connection hub: it owns the topic registry and the set
// of connection records, and implements subscribe/unsubscribe,
// publish, and presence queries. All methods are safe for concurrent
// use from any number of connections and producers.
//
// Structural mutations (creating or removing topics, adding or
// removing subscriptions and connection records) serialize on a
// single write lock. Publishing and presence queries take the read
// lock, so the steady-state read-mostly workload proceeds without
// contention.
type Hub struct {
	capacity int
	logger   *slog.Logger

	mu sync.RWMutex
	// topics maps session id → fan-out state. An entry exists only
	// while at least one subscription references it, or transiently
	// after a publish to an unseen session until the next orphan
	// check for that session runs.
	topics map[uuid.UUID]*topic
	// connections maps connection id → (session id → subscriber
	// buffer). The inner map is the connection record: its key set is
	// exactly the sessions the connection currently subscribes to,
	// and the values let teardown close the buffers it owns.
	connections map[uuid.UUID]map[uuid.UUID]chan Event
}

// New creates an empty hub.
func New(options Options) *Hub {
	capacity := options.Capacity
	if capacity <= 0 {
		capacity = DefaultTopicCapacity
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		capacity:    capacity,
		logger:      logger,
		topics:      make(map[uuid.UUID]*topic),
		connections: make(map[uuid.UUID]map[uuid.UUID]chan Event),
	}
}

// Register creates an empty subscription record for a connection.
// Idempotent: registering an already-registered connection keeps its
// existing record.
func (h *Hub) Register(connectionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.connections[connectionID]; exists {
		return
	}
	h.connections[connectionID] = make(map[uuid.UUID]chan Event)
	h.logger.Debug("connection registered", "connection_id", connectionID)
}

// Unregister removes a connection's record and every subscription it
// holds. Each subscription buffer is closed (its forwarder drains any
// buffered events and exits) and each affected topic is reclaimed if
// the departing connection was its last subscriber. Other
// connections' subscriptions to the same topics are untouched.
// No-op for unknown connection ids.
func (h *Hub) Unregister(connectionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	record, exists := h.connections[connectionID]
	if !exists {
		return
	}
	delete(h.connections, connectionID)
	for sessionID, buffer := range record {
		h.detachLocked(connectionID, sessionID)
		close(buffer)
	}
	h.logger.Debug("connection unregistered",
		"connection_id", connectionID,
		"subscriptions", len(record),
	)
}

// Subscribe adds a subscription for (connection, session), creating
// the session's topic if it does not exist, and returns the handle
// that will receive events published to the session from now on.
// There is no backlog replay: events published before Subscribe
// returns are not delivered.
//
// Subscribing twice to the same session from the same connection is
// idempotent: the existing handle is returned and existing reports
// true, so the caller can skip spawning a duplicate forwarder.
// Unknown connection ids are registered implicitly.
func (h *Hub) Subscribe(connectionID, sessionID uuid.UUID) (subscription *Subscription, existing bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	record, registered := h.connections[connectionID]
	if !registered {
		record = make(map[uuid.UUID]chan Event)
		h.connections[connectionID] = record
	}

	entry := h.topics[sessionID]
	if entry == nil {
		entry = &topic{subscribers: make(map[uuid.UUID]chan Event)}
		h.topics[sessionID] = entry
	}

	if buffer, already := entry.subscribers[connectionID]; already {
		return &Subscription{events: buffer}, true
	}

	buffer := make(chan Event, h.capacity)
	entry.subscribers[connectionID] = buffer
	record[sessionID] = buffer
	h.logger.Debug("subscribed",
		"connection_id", connectionID,
		"session_id", sessionID,
		"subscribers", len(entry.subscribers),
	)
	return &Subscription{events: buffer}, false
}

// Unsubscribe removes the (connection, session) subscription. The
// subscription buffer stops receiving new events immediately and is
// closed, so events already buffered at the time of the call are
// still delivered before the forwarder observes the close — the
// acknowledged lossy-ack behavior. The topic is reclaimed if this was
// its last subscription. Unsubscribing from a session the connection
// never subscribed to is a successful no-op.
func (h *Hub) Unsubscribe(connectionID, sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	record, registered := h.connections[connectionID]
	if !registered {
		return
	}
	buffer, subscribed := record[sessionID]
	if !subscribed {
		return
	}
	delete(record, sessionID)
	h.detachLocked(connectionID, sessionID)
	close(buffer)
	h.logger.Debug("unsubscribed",
		"connection_id", connectionID,
		"session_id", sessionID,
	)
}

// Publish delivers an event to every current subscriber of the
// session's topic, creating the topic if it does not exist. Never
// blocks and never fails observably: a subscriber whose buffer is
// full loses its oldest buffered event to make room, and publishing
// to a session with no subscribers drops the event.
func (h *Hub) Publish(sessionID uuid.UUID, event Event) {
	h.mu.RLock()
	entry := h.topics[sessionID]
	if entry != nil {
		deliver(entry, event)
		h.mu.RUnlock()
		return
	}
	h.mu.RUnlock()

	// First publish to an unseen session: create the topic under the
	// write lock, re-checking for a racing creator.
	h.mu.Lock()
	entry = h.topics[sessionID]
	if entry == nil {
		entry = &topic{subscribers: make(map[uuid.UUID]chan Event)}
		h.topics[sessionID] = entry
	}
	deliver(entry, event)
	h.mu.Unlock()
}

// deliver fans an event out to every subscriber buffer of a topic
// with drop-oldest overflow. Called with at least the read lock held,
// which excludes the structural mutations that close buffers — a
// send here can never hit a closed channel.
func deliver(entry *topic, event Event) {
	for _, buffer := range entry.subscribers {
		select {
		case buffer <- event:
			continue
		default:
		}
		// Buffer full: evict the oldest event, then retry once. The
		// subscriber's forwarder may have consumed an event in
		// between, so the retry can still find the buffer full; the
		// event is dropped for that subscriber in that case, which
		// is within the lossy delivery contract.
		select {
		case <-buffer:
		default:
		}
		select {
		case buffer <- event:
		default:
		}
	}
}

// HasSubscribers reports whether at least one connection currently
// subscribes to the session. Advisory: the answer may be stale by the
// time the caller acts on it.
func (h *Hub) HasSubscribers(sessionID uuid.UUID) bool {
	return h.SubscriberCount(sessionID) > 0
}

// SubscriberCount returns the session's current subscriber count.
// Advisory, like HasSubscribers.
func (h *Hub) SubscriberCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry := h.topics[sessionID]
	if entry == nil {
		return 0
	}
	return len(entry.subscribers)
}

// RemoveIfOrphaned removes the session's topic if it currently has
// zero subscribers. Safe to call redundantly; the subscriber-count
// check and the removal happen under the same write lock, so a
// concurrent subscribe can never observe a removed-but-referenced
// topic. Teardown paths call this automatically; it is exported for
// callers that created orphan topics by publishing to unwatched
// sessions and want the registry entry reclaimed eagerly.
func (h *Hub) RemoveIfOrphaned(sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry := h.topics[sessionID]
	if entry != nil && len(entry.subscribers) == 0 {
		delete(h.topics, sessionID)
	}
}

// detachLocked removes a connection's subscriber buffer from a
// session's topic and reclaims the topic if it became orphaned.
// Caller holds the write lock and owns closing the buffer.
func (h *Hub) detachLocked(connectionID, sessionID uuid.UUID) {
	entry := h.topics[sessionID]
	if entry == nil {
		return
	}
	delete(entry.subscribers, connectionID)
	if len(entry.subscribers) == 0 {
		delete(h.topics, sessionID)
	}
}
