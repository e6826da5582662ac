// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db creates the database schema.

The schema is a single idempotent script (IF NOT EXISTS throughout) that
runs unmodified on both PostgreSQL and SQLite, the two supported backends.

Three tables:

  - polls: question + nullable creator
  - poll_options: (poll_id, idx) primary key; an option is addressed by
    its position, which keeps counters stable across question edits
  - votes: the ledger, with a unique index on (poll_id, voter_key) and a
    partial unique index on (poll_id, user_id) WHERE user_id IS NOT NULL

The two unique indexes are what turn concurrent duplicate votes into
storage-level conflicts instead of double counts.
*/
package db
