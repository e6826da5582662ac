// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pollroom/pollroom/identity"
	"github.com/pollroom/pollroom/models"
)

// FindActive returns the voter's current ledger entry for a poll, or nil.
//
// The lookup matches the voter key, the guest-key alias carried alongside
// a bearer credential, OR, for authenticated voters, the user ID: a voter
// may have voted as a guest before signing in, and their identities must
// reconcile to one entry. When several match different rows the most
// recently updated one wins.
func FindActive(ctx context.Context, q Querier, pollID string, ident identity.Identity) (*models.Vote, error) {
	var userID sql.NullString
	if id, ok := ident.UserID(); ok {
		userID = sql.NullString{String: id, Valid: true}
	}
	guestKey, ok := ident.GuestKey()
	if !ok {
		guestKey = ident.VoterKey()
	}

	row := q.QueryRowContext(ctx, `
		SELECT id, poll_id, voter_key, user_id, option_index, created_at, updated_at
		FROM votes
		WHERE poll_id = $1 AND (voter_key IN ($2, $3) OR (user_id IS NOT NULL AND user_id = $4))
		ORDER BY updated_at DESC
		LIMIT 1
	`, pollID, ident.VoterKey(), guestKey, userID)

	vote, err := scanVote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active vote: %w", err)
	}
	return vote, nil
}

func scanVote(row *sql.Row) (*models.Vote, error) {
	var vote models.Vote
	var userID sql.NullString
	err := row.Scan(&vote.ID, &vote.PollID, &vote.VoterKey, &userID,
		&vote.OptionIndex, &vote.CreatedAt, &vote.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		vote.UserID = &userID.String
	}
	return &vote, nil
}

// CreateVote inserts a new ledger entry. A uniqueness violation here means
// a concurrent request created the entry first; callers surface that as a
// retryable conflict.
func CreateVote(ctx context.Context, q Querier, vote models.Vote) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO votes (id, poll_id, voter_key, user_id, option_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, vote.ID, vote.PollID, vote.VoterKey, nullable(vote.UserID),
		vote.OptionIndex, vote.CreatedAt, vote.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// UpdateVoteOption moves an existing entry to a new option. userID, when
// non-nil, backfills an entry created before the voter authenticated; a nil
// userID leaves the stored value alone.
func UpdateVoteOption(ctx context.Context, q Querier, voteID string, optionIndex int, userID *string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE votes
		SET option_index = $1, user_id = COALESCE($2, user_id), updated_at = $3
		WHERE id = $4
	`, optionIndex, nullable(userID), now, voteID)
	if err != nil {
		return fmt.Errorf("failed to update vote: %w", err)
	}
	return nil
}

// DeleteVote removes a ledger entry (revoke).
func DeleteVote(ctx context.Context, q Querier, voteID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, voteID)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

// ClearForPoll drops every ledger entry for a poll. Used when a poll's
// options are replaced and counters reset.
func ClearForPoll(ctx context.Context, q Querier, pollID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM votes WHERE poll_id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("failed to clear votes: %w", err)
	}
	return nil
}

// CountForPoll returns the number of ledger entries for a poll.
func CountForPoll(ctx context.Context, q Querier, pollID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM votes WHERE poll_id = $1
	`, pollID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

// CurrentVotes maps poll ID to the caller's chosen option index across the
// given polls, using the same voter-key-or-user-ID match as FindActive.
// Polls without a matching entry are absent from the map.
func CurrentVotes(ctx context.Context, q Querier, ident identity.Identity, pollIDs []string) (map[string]int, error) {
	if len(pollIDs) == 0 {
		return map[string]int{}, nil
	}

	var userID sql.NullString
	if id, ok := ident.UserID(); ok {
		userID = sql.NullString{String: id, Valid: true}
	}
	guestKey, ok := ident.GuestKey()
	if !ok {
		guestKey = ident.VoterKey()
	}

	query := `
		SELECT poll_id, option_index FROM votes
		WHERE (voter_key IN ($1, $2) OR (user_id IS NOT NULL AND user_id = $3))
		AND poll_id IN (`
	args := []any{ident.VoterKey(), guestKey, userID}
	for i, id := range pollIDs {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("$%d", len(args)+1)
		args = append(args, id)
	}
	query += `) ORDER BY updated_at ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query current votes: %w", err)
	}
	defer rows.Close()

	// Ascending order so the most recent entry per poll overwrites.
	result := make(map[string]int)
	for rows.Next() {
		var pollID string
		var optionIndex int
		if err := rows.Scan(&pollID, &optionIndex); err != nil {
			return nil, fmt.Errorf("failed to scan current vote: %w", err)
		}
		result[pollID] = optionIndex
	}
	return result, rows.Err()
}

// ListByUser returns a user's ledger entries across all polls, most recent
// first. Used by the profile dashboard.
func ListByUser(ctx context.Context, q Querier, userID string) ([]models.Vote, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, poll_id, voter_key, user_id, option_index, created_at, updated_at
		FROM votes WHERE user_id = $1 ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes by user: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var vote models.Vote
		var uid sql.NullString
		if err := rows.Scan(&vote.ID, &vote.PollID, &vote.VoterKey, &uid,
			&vote.OptionIndex, &vote.CreatedAt, &vote.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		if uid.Valid {
			vote.UserID = &uid.String
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}
