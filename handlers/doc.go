// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the PollRoom API.

# Handler Types

Each handler is a struct with database, config, and hub dependencies:

  - PollHandler: poll lifecycle (create, read, edit, delete), feed, dashboard
  - VotingHandler: vote submission through the transaction coordinator

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(db, cfg, hub)

# Voting Flow

	POST /polls/{id}/vote  {"optionIndex": 0}

One endpoint covers all three transitions: first vote, change of option,
and revoke (re-selecting the current option). The response is the updated
poll plus the caller's currentUserVote (null after a revoke). The caller's
identity comes from the identity resolver (bearer token, guest token, or
IP), so no sign-in is required to vote.

# Status Codes

	400  malformed poll ID, body, or option index
	401  missing auth on owner/dashboard routes
	403  caller is not the poll owner
	404  poll absent
	409  vote conflict (concurrent duplicate), retry once
	500  anything else, logged

# Broadcasts

Successful votes, edits, and deletes push realtime events to the poll's
room after the database commit, never before.
*/
package handlers
