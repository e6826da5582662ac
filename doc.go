// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the PollRoom API server.

PollRoom is a live polling service: anyone can create a poll, vote from
any identity tier (signed-in account, anonymous guest token, or bare IP),
change or revoke their vote, and watch results update in realtime over a
websocket.

# Starting the Server

The server reads environment variables (a local .env is honored) or CLI
flags:

	DATABASE_URL=postgres://... JWT_SECRET=... go run main.go

Or with flags:

	go run main.go -p 5000 -d pollroom.db -t sqlite --jwt-secret dev

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL connection string or SQLite path
  - JWT_SECRET (--jwt-secret): secret used to verify bearer tokens

Optional settings:

  - PORT (-p): server port (default: 5000)
  - DATABASE_TYPE (-t): "sqlite" (default) or "postgres"

# Architecture

The server uses a handler-based architecture with dependency injection:

  - identity: resolves "who is voting" (bearer > guest token > IP)
  - store: vote ledger + poll aggregate counters over database/sql
  - vote: the transaction coordinator applying vote state transitions
  - realtime: websocket hub broadcasting committed updates to poll rooms
  - handlers: HTTP request handlers (polls, feed, dashboard, voting)
  - router: route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - auth: token verification and ID generation
  - db: schema creation
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
