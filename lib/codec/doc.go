// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Ralphtown's standard CBOR encoding
// configuration.
//
// Ralphtown uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the REST API, the websocket
//     client protocol, and CLI output.
//   - CBOR for internal protocols: the producer ingest socket, where
//     session runners stream output records into the server.
//
// This package provides the shared CBOR encoding and decoding modes
// so that every Ralphtown component encodes identically without
// duplicating configuration. The encoder uses Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical data always
// produces identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the ingest socket):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// CBOR is self-delimiting, so a connection can carry a plain sequence
// of records with no framing protocol around them.
package codec
