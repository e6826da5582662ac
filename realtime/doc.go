// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime fans poll updates out to connected viewers.

Clients connect over a websocket at GET /ws and join per-poll rooms:

	{"action": "join_poll", "pollId": "66f1a2..."}
	{"action": "leave_poll", "pollId": "66f1a2..."}

After a vote commits, the handler emits the updated aggregate to the
poll's room:

	{"event": "update_poll", "pollId": "...", "data": {poll}}
	{"event": "poll_deleted", "pollId": "..."}

Delivery is best-effort at-most-once. There is no acknowledgement, retry,
or replay; slow consumers are disconnected, and a client that reconnects
re-fetches full poll state over HTTP instead of relying on missed events.
Broadcast payloads are the anonymous shared aggregate; currentUserVote is
per-caller and never broadcast.

The Hub confines all membership state to its Run goroutine, so there is no
locking; handlers publish through channels and never block on a slow
socket.
*/
package realtime
