// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and JSON helpers.

# Logging

WithLogging logs request start/completion through slog with a per-request
UUID and the elapsed time:

	mux.HandleFunc("POST /polls", middleware.WithLogging(handler.CreatePoll))

# JSON Helpers

JSONResponse, ErrorResponse, and ParseJSONBody keep handlers terse.
ErrorResponse emits the shared models.ErrorResponse shape.

# CORS

The CORS middleware reflects the request origin and handles preflight,
including the X-Voter-Token header the web client sends on every request.
*/
package middleware
