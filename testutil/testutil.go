// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pollroom/pollroom/auth"
	"github.com/pollroom/pollroom/cliparse"
	"github.com/pollroom/pollroom/db"
)

var dbCounter atomic.Int64

// SetupTestDB creates a fresh in-memory SQLite database with the full
// schema. Each call gets its own database, so tests stay independent.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:pollroom_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// One connection keeps the in-memory database alive and serializes
	// writers, which is how SQLite wants to be used anyway.
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         5000,
		DatabaseURL:  "file:unused?mode=memory",
		DatabaseType: "sqlite",
		JWTSecret:    "test-jwt-secret",
	}
}

// UserToken mints a bearer token for the given user with the test secret.
func UserToken(t *testing.T, cfg cliparse.Config, userID string) string {
	t.Helper()

	token, err := auth.SignUserToken(userID, cfg.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return token
}

// CreateTestPoll creates a poll with the given options and returns its ID.
// createdBy may be nil for an anonymous poll.
func CreateTestPoll(t *testing.T, dbConn *sql.DB, question string, options []string, createdBy *string) string {
	t.Helper()

	pollID, _ := auth.GenerateID(12)
	var creator any
	if createdBy != nil {
		creator = *createdBy
	}

	_, err := dbConn.Exec(`
		INSERT INTO polls (id, question, created_by, created_at)
		VALUES ($1, $2, $3, $4)
	`, pollID, question, creator, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	for i, text := range options {
		_, err := dbConn.Exec(`
			INSERT INTO poll_options (poll_id, idx, text, votes)
			VALUES ($1, $2, $3, 0)
		`, pollID, i, text)
		if err != nil {
			t.Fatalf("Failed to create test option: %v", err)
		}
	}

	return pollID
}

// CastTestVote writes a ledger entry and bumps the matching counter,
// bypassing the coordinator. userID may be nil.
func CastTestVote(t *testing.T, dbConn *sql.DB, pollID, voterKey string, userID *string, optionIndex int) string {
	t.Helper()

	voteID, _ := auth.GenerateID(12)
	var uid any
	if userID != nil {
		uid = *userID
	}

	now := time.Now()
	_, err := dbConn.Exec(`
		INSERT INTO votes (id, poll_id, voter_key, user_id, option_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, voteID, pollID, voterKey, uid, optionIndex, now, now)
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}

	_, err = dbConn.Exec(`
		UPDATE poll_options SET votes = votes + 1 WHERE poll_id = $1 AND idx = $2
	`, pollID, optionIndex)
	if err != nil {
		t.Fatalf("Failed to bump test counter: %v", err)
	}

	return voteID
}

// OptionVotes returns the poll's counters in option order.
func OptionVotes(t *testing.T, dbConn *sql.DB, pollID string) []int {
	t.Helper()

	rows, err := dbConn.Query(`
		SELECT votes FROM poll_options WHERE poll_id = $1 ORDER BY idx
	`, pollID)
	if err != nil {
		t.Fatalf("Failed to query counters: %v", err)
	}
	defer rows.Close()

	var votes []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("Failed to scan counter: %v", err)
		}
		votes = append(votes, v)
	}
	return votes
}

// LedgerCount returns the number of ledger entries for a poll.
func LedgerCount(t *testing.T, dbConn *sql.DB, pollID string) int {
	t.Helper()

	var count int
	err := dbConn.QueryRow(`SELECT COUNT(*) FROM votes WHERE poll_id = $1`, pollID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count ledger entries: %v", err)
	}
	return count
}

// AssertLedgerConsistent checks the core invariant: the sum of the option
// counters equals the number of ledger entries.
func AssertLedgerConsistent(t *testing.T, dbConn *sql.DB, pollID string) {
	t.Helper()

	total := 0
	for _, v := range OptionVotes(t, dbConn, pollID) {
		total += v
	}
	if count := LedgerCount(t, dbConn, pollID); total != count {
		t.Errorf("Counter sum %d != ledger entries %d", total, count)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
