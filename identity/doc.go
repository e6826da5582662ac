// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity resolves "who is voting" for each request.

An Identity is one of three variants, strongest first:

	Authenticated(userID)  voter key "user:<id>"
	Guest(token)           voter key "guest:<token>"
	AnonymousIP(ip)        voter key "ip:<addr>"

Resolution degrades silently: an expired bearer token does not fail the
request, it just falls through to the guest token, and a malformed guest
token falls through to the IP. An anonymous browser keeps a stable guest
identity across sessions via its persisted token, a fully anonymous client
still dedupes by address, and a signed-in user's vote wins everywhere and
follows them across devices.

A signed-in request that still carries the browser's guest token keeps
that token on the identity as an alias (GuestKey), so the ledger can
reconcile entries the voter created before signing in instead of double
counting them.

The resolver is the only producer of voter keys. Every other component
treats the key as an opaque unique string.
*/
package identity
