// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pollroom/pollroom/models"
)

// CreatePoll inserts a poll and its options with zeroed counters.
func CreatePoll(ctx context.Context, q Querier, poll models.Poll) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO polls (id, question, created_by, created_at)
		VALUES ($1, $2, $3, $4)
	`, poll.ID, poll.Question, nullable(poll.CreatedBy), poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	for i, opt := range poll.Options {
		_, err := q.ExecContext(ctx, `
			INSERT INTO poll_options (poll_id, idx, text, votes)
			VALUES ($1, $2, $3, $4)
		`, poll.ID, i, opt.Text, opt.Votes)
		if err != nil {
			return fmt.Errorf("failed to insert option %d: %w", i, err)
		}
	}

	return nil
}

// GetPoll loads a poll with its options ordered by index.
// Returns ErrNotFound when the poll does not exist.
func GetPoll(ctx context.Context, q Querier, pollID string) (models.Poll, error) {
	var poll models.Poll
	var createdBy sql.NullString

	err := q.QueryRowContext(ctx, `
		SELECT id, question, created_by, created_at FROM polls WHERE id = $1
	`, pollID).Scan(&poll.ID, &poll.Question, &createdBy, &poll.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Poll{}, ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}

	if createdBy.Valid {
		poll.CreatedBy = &createdBy.String
	}

	poll.Options, err = loadOptions(ctx, q, pollID)
	if err != nil {
		return models.Poll{}, err
	}

	return poll, nil
}

func loadOptions(ctx context.Context, q Querier, pollID string) ([]models.Option, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT text, votes FROM poll_options WHERE poll_id = $1 ORDER BY idx
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	var options []models.Option
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.Text, &opt.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// ListRecent returns up to limit polls, newest first.
func ListRecent(ctx context.Context, q Querier, limit int) ([]models.Poll, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, question, created_by, created_at
		FROM polls ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	return scanPolls(ctx, q, rows)
}

// ListByCreator returns the polls a user created, newest first.
func ListByCreator(ctx context.Context, q Querier, userID string) ([]models.Poll, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, question, created_by, created_at
		FROM polls WHERE created_by = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls by creator: %w", err)
	}
	defer rows.Close()

	return scanPolls(ctx, q, rows)
}

func scanPolls(ctx context.Context, q Querier, rows *sql.Rows) ([]models.Poll, error) {
	var polls []models.Poll
	for rows.Next() {
		var poll models.Poll
		var createdBy sql.NullString
		if err := rows.Scan(&poll.ID, &poll.Question, &createdBy, &poll.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		if createdBy.Valid {
			poll.CreatedBy = &createdBy.String
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range polls {
		options, err := loadOptions(ctx, q, polls[i].ID)
		if err != nil {
			return nil, err
		}
		polls[i].Options = options
	}

	return polls, nil
}

// UpdateQuestion rewrites the poll question, leaving options and counters
// untouched so option indexes stay stable.
func UpdateQuestion(ctx context.Context, q Querier, pollID, question string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE polls SET question = $1 WHERE id = $2
	`, question, pollID)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceOptions swaps the option list for a new one with zeroed counters.
// Callers clear the poll's ledger alongside; counters and ledger must move
// together.
func ReplaceOptions(ctx context.Context, q Querier, pollID string, texts []string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM poll_options WHERE poll_id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}

	for i, text := range texts {
		_, err := q.ExecContext(ctx, `
			INSERT INTO poll_options (poll_id, idx, text, votes)
			VALUES ($1, $2, $3, 0)
		`, pollID, i, text)
		if err != nil {
			return fmt.Errorf("failed to insert option %d: %w", i, err)
		}
	}

	return nil
}

// DeletePoll removes a poll, its options, and its ledger entries.
// Explicit deletes rather than FK cascade so behavior is identical on both
// backends regardless of pragma configuration.
func DeletePoll(ctx context.Context, q Querier, pollID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM votes WHERE poll_id = $1`, pollID); err != nil {
		return fmt.Errorf("failed to delete votes: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM poll_options WHERE poll_id = $1`, pollID); err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}

	res, err := q.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementOption bumps an option counter in place. The single UPDATE is
// atomic on both backends, so concurrent voters on the same option never
// lose increments.
func IncrementOption(ctx context.Context, q Querier, pollID string, idx int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE poll_options SET votes = votes + 1 WHERE poll_id = $1 AND idx = $2
	`, pollID, idx)
	if err != nil {
		return fmt.Errorf("failed to increment option: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementOption lowers an option counter, flooring at zero: decrementing
// a zero counter is a no-op, not an error, which tolerates replays and
// historical inconsistencies without corrupting state.
func DecrementOption(ctx context.Context, q Querier, pollID string, idx int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE poll_options SET votes = votes - 1
		WHERE poll_id = $1 AND idx = $2 AND votes > 0
	`, pollID, idx)
	if err != nil {
		return fmt.Errorf("failed to decrement option: %w", err)
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
