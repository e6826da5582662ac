// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Querier is the unit-of-work handle every store operation runs against.
// Both *sql.DB and *sql.Tx satisfy it, so the same mutation logic can run
// transactionally or directly (fallback mode) without duplication.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

var (
	// ErrNotFound means the requested poll (or option row) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness constraint rejected the write, i.e. a
	// concurrent request won the race. Callers should retry once.
	ErrConflict = errors.New("conflicting concurrent write")
)

// IsUniqueViolation reports whether err is a uniqueness-constraint failure
// from either supported driver. Both are matched by message signature, the
// same way the backends themselves are told apart.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// Known signatures for backends (or pooling proxies in front of them) that
// cannot run multi-statement transactions in their current topology.
var txUnsupportedSignatures = []string{
	"transactions are not supported",
	"transaction support is not available",
	"transaction numbers are only allowed",
	"transaction blocks not allowed",
}

// IsTxUnsupported reports whether err indicates the storage backend cannot
// provide transactions at all, as opposed to a transaction that failed.
// The coordinator retries non-transactionally when this matches.
func IsTxUnsupported(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range txUnsupportedSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
