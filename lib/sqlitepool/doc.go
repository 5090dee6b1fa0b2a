// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides Ralphtown's SQLite connection pool.
//
// It wraps zombiezen.com/go/sqlite with production defaults: WAL
// journal mode, NORMAL synchronous for process-crash durability
// without fsync-per-commit overhead, a busy timeout to ride out write
// contention, and foreign keys enforced — the repo/session/message
// schema relies on ON DELETE CASCADE.
//
// The pool is built on zombiezen's sqlitex.Pool, which manages a
// fixed-size set of connections. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. Connections are NOT safe for
// concurrent use — each goroutine must hold its own connection for
// the duration of its work.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/lib/ralphtown/ralphtown.db",
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
//
// This package is intentionally thin: it applies standard pragmas and
// exposes the underlying zombiezen types directly. Callers write SQL,
// use sqlitex.Execute for cached statements, and manage transactions
// with sqlitex.ImmediateTransaction. There is no query builder and no
// attempt to hide SQLite's connection model.
package sqlitepool
