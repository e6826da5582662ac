// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "sqlite signature",
			err:  errors.New("constraint failed: UNIQUE constraint failed: votes.poll_id, votes.voter_key (2067)"),
			want: true,
		},
		{
			name: "postgres signature",
			err:  errors.New(`pq: duplicate key value violates unique constraint "idx_votes_poll_voter_key"`),
			want: true,
		},
		{
			name: "wrapped postgres signature",
			err:  fmt.Errorf("failed to insert vote: %w", errors.New("pq: duplicate key value violates unique constraint")),
			want: true,
		},
		{name: "unrelated error", err: errors.New("connection refused"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTxUnsupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "replica set signature",
			err:  errors.New("Transaction numbers are only allowed on a replica set member or mongos"),
			want: true,
		},
		{
			name: "capability signature",
			err:  errors.New("Transaction support is not available in this topology"),
			want: true,
		},
		{
			name: "pooler signature",
			err:  errors.New("pq: transaction blocks not allowed in statement pooling mode"),
			want: true,
		},
		{
			name: "wrapped signature",
			err:  fmt.Errorf("failed to begin transaction: %w", errors.New("transactions are not supported")),
			want: true,
		},
		{name: "ordinary tx failure", err: errors.New("pq: deadlock detected"), want: false},
		{name: "unique violation is not a capability error", err: errors.New("UNIQUE constraint failed: votes.poll_id"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTxUnsupported(tt.err); got != tt.want {
				t.Errorf("IsTxUnsupported = %v, want %v", got, tt.want)
			}
		})
	}
}
