// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package hub implements Ralphtown's event-distribution core: the
// topic registry, the connection hub, and the per-connection
// multiplexer that together deliver live session output to every
// client watching it.
//
// The package is organized around the event data flow:
//
//   - messages.go: wire format for the client protocol (tagged JSON
//     commands and events)
//   - hub.go: topic registry and connection hub (subscriptions,
//     fan-out, orphan reclamation)
//   - mux.go: per-connection multiplexer bridging one transport to
//     the hub
//
// A Topic is the fan-out channel bound to one session id. Topics are
// created lazily on first subscribe or first publish and reclaimed
// once no connection subscribes to them. Delivery is lossy under
// backpressure: each subscriber has a bounded buffer (default 256
// events) and a publisher never blocks on a slow subscriber — when a
// subscriber's buffer is full the oldest buffered event is dropped to
// make room. Events published to the same topic reach a given
// subscriber in publish order; no ordering holds across topics.
//
// [Mux.Run] drives one physical connection: it decodes inbound
// commands, dispatches them to the [Hub], and serializes direct
// acknowledgements and forwarded topic events into a single ordered
// outbound stream. Malformed inbound frames produce an error event
// and leave the connection open; transport failures tear down only
// that connection.
//
// External producers inject events with [Hub.Publish], which is
// fire-and-forget: publishing to a session nobody watches succeeds
// and the event is dropped. [Hub.HasSubscribers] is the advisory
// presence query a producer can use to skip output nobody is
// watching.
package hub
