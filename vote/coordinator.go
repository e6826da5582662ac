// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pollroom/pollroom/auth"
	"github.com/pollroom/pollroom/identity"
	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/store"
)

var (
	// ErrInvalidOption means the target option index is out of bounds.
	ErrInvalidOption = errors.New("option does not exist")

	// ErrConflict means a concurrent vote won a uniqueness race.
	// The client should retry once.
	ErrConflict = errors.New("vote update conflict")
)

// Result is the outcome of one vote request: the poll with fresh counters
// and the voter's resulting choice (nil after a revoke).
type Result struct {
	Poll        models.Poll
	CurrentVote *int
}

// Coordinator applies vote state transitions atomically against the
// ledger and the aggregate counters.
type Coordinator struct {
	db    *sql.DB
	begin func(ctx context.Context) (*sql.Tx, error)
	now   func() time.Time
}

func NewCoordinator(db *sql.DB) *Coordinator {
	return &Coordinator{
		db: db,
		begin: func(ctx context.Context) (*sql.Tx, error) {
			return db.BeginTx(ctx, nil)
		},
		now: time.Now,
	}
}

// Cast executes one vote request for (pollID, ident) targeting optionIndex.
//
// State transitions per (poll, voter):
//   - no existing entry: create one and increment the target option
//   - existing entry on the target option: revoke it, decrement and delete
//   - existing entry elsewhere: move it, decrement old and increment new
//
// The whole read-modify-write runs in a transaction. If the backend reports
// that transactions are unsupported in its topology, the same logic reruns
// directly against the pool as a best-effort fallback; the narrow race
// window in that mode is accepted rather than failing the request.
//
// Errors: store.ErrNotFound (poll absent), ErrInvalidOption (index out of
// bounds), ErrConflict (uniqueness race, retryable).
func (c *Coordinator) Cast(ctx context.Context, pollID string, ident identity.Identity, optionIndex int) (Result, error) {
	result, err := c.castTransactional(ctx, pollID, ident, optionIndex)
	if err == nil {
		return result, nil
	}
	if !store.IsTxUnsupported(err) {
		return Result{}, classify(err)
	}

	slog.Warn("storage backend lacks transaction support, applying vote non-transactionally",
		"poll_id", pollID)
	result, err = applyVote(ctx, c.db, pollID, ident, optionIndex, c.now())
	if err != nil {
		return Result{}, classify(err)
	}
	return result, nil
}

func (c *Coordinator) castTransactional(ctx context.Context, pollID string, ident identity.Identity, optionIndex int) (Result, error) {
	tx, err := c.begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := applyVote(ctx, tx, pollID, ident, optionIndex, c.now())
	if err != nil {
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("failed to commit vote: %w", err)
	}
	return result, nil
}

// applyVote is the single pure mutation sequence shared by the
// transactional and fallback paths. It reads the poll and the voter's
// ledger entry, applies the transition, and persists ledger and counters
// together through q.
func applyVote(ctx context.Context, q store.Querier, pollID string, ident identity.Identity, optionIndex int, now time.Time) (Result, error) {
	poll, err := store.GetPoll(ctx, q, pollID)
	if err != nil {
		return Result{}, err
	}

	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return Result{}, ErrInvalidOption
	}

	existing, err := store.FindActive(ctx, q, pollID, ident)
	if err != nil {
		return Result{}, err
	}

	var currentVote *int

	switch {
	case existing == nil:
		voteID, err := auth.GenerateID(12)
		if err != nil {
			return Result{}, err
		}
		entry := models.Vote{
			ID:          voteID,
			PollID:      pollID,
			VoterKey:    ident.VoterKey(),
			OptionIndex: optionIndex,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if userID, ok := ident.UserID(); ok {
			entry.UserID = &userID
		}
		if err := store.CreateVote(ctx, q, entry); err != nil {
			return Result{}, err
		}
		if err := store.IncrementOption(ctx, q, pollID, optionIndex); err != nil {
			return Result{}, err
		}
		currentVote = &optionIndex

	case existing.OptionIndex == optionIndex:
		// Re-selecting the current option revokes the vote.
		if err := store.DecrementOption(ctx, q, pollID, optionIndex); err != nil {
			return Result{}, err
		}
		if err := store.DeleteVote(ctx, q, existing.ID); err != nil {
			return Result{}, err
		}
		currentVote = nil

	default:
		if err := store.DecrementOption(ctx, q, pollID, existing.OptionIndex); err != nil {
			return Result{}, err
		}
		if err := store.IncrementOption(ctx, q, pollID, optionIndex); err != nil {
			return Result{}, err
		}
		var backfill *string
		if userID, ok := ident.UserID(); ok && existing.UserID == nil {
			backfill = &userID
		}
		if err := store.UpdateVoteOption(ctx, q, existing.ID, optionIndex, backfill, now); err != nil {
			return Result{}, err
		}
		currentVote = &optionIndex
	}

	// Reload so the response carries the counters this mutation produced.
	poll, err = store.GetPoll(ctx, q, pollID)
	if err != nil {
		return Result{}, err
	}

	return Result{Poll: poll, CurrentVote: currentVote}, nil
}

func classify(err error) error {
	if store.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
