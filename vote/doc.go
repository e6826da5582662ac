// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package vote is the transaction coordinator: the state machine that turns
a vote request into a consistent ledger + counter mutation.

One request carries a target option index, and the transition depends on
the voter's existing ledger entry:

	none                    -> create entry, increment target
	entry on target option  -> revoke: decrement target, delete entry
	entry on other option   -> decrement old, increment new, move entry

All three read the poll and the entry, mutate both sides, and persist them
together. The mutation lives in one function parameterized by a
store.Querier; Cast wraps it in a transaction and, when the backend's
error signature says transactions are unsupported in its topology, reruns
the identical function directly as a best-effort fallback.

Uniqueness races (two concurrent first votes by the same voter) surface as
ErrConflict, which is retryable. Counters never go negative: decrements
are floored in the store layer.
*/
package vote
