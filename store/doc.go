// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the persistence layer: the vote ledger and the per-poll
aggregate counters, plus storage error classification.

# Unit of Work

Every operation takes a Querier as its first argument. *sql.DB and *sql.Tx
both satisfy it, which is what lets the vote coordinator run one mutation
function either inside a transaction or directly against the pool when the
backend cannot provide transactions.

# Ledger and Aggregate

The ledger (votes table) holds at most one entry per (poll, voter key) and
per (poll, user), enforced by unique indexes, so races surface as
IsUniqueViolation errors rather than duplicate rows. The aggregate
(poll_options.votes) is mutated only by IncrementOption/DecrementOption,
in-place guarded updates that keep counters non-negative and loss-free
under concurrency.

# Error Classification

	store.ErrNotFound        poll absent
	store.ErrConflict        uniqueness race, retryable
	store.IsUniqueViolation  driver-level unique failure (pq + sqlite)
	store.IsTxUnsupported    backend cannot do transactions at all
*/
package store
