// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest receives session output and status records from
// watcher processes over a Unix socket and fans them out: each record
// is persisted to the store and published to the hub for live
// subscribers.
//
// The wire format is a stream of CBOR records (lib/codec). CBOR is
// self-delimiting, so a connection is simply one decoder loop: the
// watcher encodes records back to back and the server decodes them
// until EOF. A malformed record ends that connection only; other
// watcher connections are unaffected.
//
// Record kinds:
//
//   - "output": a chunk of stdout or stderr from the session process.
//     Persisted as an output row and published as an output event.
//   - "status": a session lifecycle transition. Persisted on the
//     session row and published as a status event.
//   - "watched": a query. The server replies with whether the session
//     currently has live subscribers, letting watchers throttle
//     high-volume capture when nobody is looking.
//
// Only "watched" records receive a reply; output and status records
// are fire-and-forget so the watcher never blocks on the server.
package ingest
