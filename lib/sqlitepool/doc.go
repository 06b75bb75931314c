// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases for the decommission tool's
// local state.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies one set
// of pragmas to every connection:
//
//   - journal_mode=WAL: the history viewer can read while a run writes.
//   - synchronous=FULL: a recorded deletion survives power loss. Runs
//     are destructive and their record must not be lost.
//   - busy_timeout=5000: wait for the write lock instead of failing.
//   - foreign_keys=ON: result rows belong to their run row.
//   - temp_store=MEMORY.
//
// Callers Take a connection, use it on one goroutine, and Put it back:
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   path,
//	    Schema: schema,
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
package sqlitepool
