// Copyright (c) 2026 the PollRoom authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pollroom/pollroom/auth"
	"github.com/pollroom/pollroom/identity"
	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/store"
	"github.com/pollroom/pollroom/testutil"
)

func TestCastCreatesVote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Red or Blue?", []string{"Red", "Blue"}, nil)
	coord := NewCoordinator(db)

	result, err := coord.Cast(ctx, pollID, identity.AnonymousIP("10.0.0.1"), 0)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	if result.CurrentVote == nil || *result.CurrentVote != 0 {
		t.Errorf("Expected current vote 0, got %v", result.CurrentVote)
	}
	if result.Poll.Options[0].Votes != 1 || result.Poll.Options[1].Votes != 0 {
		t.Errorf("Expected counters [1 0], got %+v", result.Poll.Options)
	}
	if count := testutil.LedgerCount(t, db, pollID); count != 1 {
		t.Errorf("Expected 1 ledger entry, got %d", count)
	}
	testutil.AssertLedgerConsistent(t, db, pollID)
}

func TestCastRevokesOnRepeat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B"}, nil)
	coord := NewCoordinator(db)
	voter := identity.Guest("revoking-voter-1")

	if _, err := coord.Cast(ctx, pollID, voter, 1); err != nil {
		t.Fatalf("First cast failed: %v", err)
	}
	result, err := coord.Cast(ctx, pollID, voter, 1)
	if err != nil {
		t.Fatalf("Second cast failed: %v", err)
	}
	if result.CurrentVote != nil {
		t.Errorf("Expected revoked vote (nil), got %v", *result.CurrentVote)
	}
	if result.Poll.Options[1].Votes != 0 {
		t.Errorf("Expected counter back to 0, got %d", result.Poll.Options[1].Votes)
	}
	if count := testutil.LedgerCount(t, db, pollID); count != 0 {
		t.Errorf("Expected empty ledger after revoke, got %d", count)
	}
}

func TestCastMovesVote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B"}, nil)
	coord := NewCoordinator(db)
	voter := identity.Guest("switching-voter-1")

	if _, err := coord.Cast(ctx, pollID, voter, 0); err != nil {
		t.Fatalf("First cast failed: %v", err)
	}
	result, err := coord.Cast(ctx, pollID, voter, 1)
	if err != nil {
		t.Fatalf("Switch failed: %v", err)
	}
	if result.CurrentVote == nil || *result.CurrentVote != 1 {
		t.Errorf("Expected current vote 1, got %v", result.CurrentVote)
	}
	if result.Poll.Options[0].Votes != 0 || result.Poll.Options[1].Votes != 1 {
		t.Errorf("Expected counters [0 1], got %+v", result.Poll.Options)
	}
	if count := testutil.LedgerCount(t, db, pollID); count != 1 {
		t.Errorf("Expected single ledger entry after switch, got %d", count)
	}
}

// TestCastFullCycle walks one voter through vote, switch, revoke and
// re-vote, checking counters and ledger at every step.
func TestCastFullCycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Red or Blue?", []string{"Red", "Blue"}, nil)
	coord := NewCoordinator(db)
	voter := identity.AnonymousIP("192.168.1.50")

	steps := []struct {
		name        string
		target      int
		wantCurrent *int
		wantVotes   []int
	}{
		{"vote red", 0, intPtr(0), []int{1, 0}},
		{"switch to blue", 1, intPtr(1), []int{0, 1}},
		{"revoke blue", 1, nil, []int{0, 0}},
		{"vote red again", 0, intPtr(0), []int{1, 0}},
	}

	for _, step := range steps {
		result, err := coord.Cast(ctx, pollID, voter, step.target)
		if err != nil {
			t.Fatalf("%s: Cast failed: %v", step.name, err)
		}
		if (result.CurrentVote == nil) != (step.wantCurrent == nil) {
			t.Errorf("%s: current vote nil mismatch, got %v", step.name, result.CurrentVote)
		} else if step.wantCurrent != nil && *result.CurrentVote != *step.wantCurrent {
			t.Errorf("%s: expected current %d, got %d", step.name, *step.wantCurrent, *result.CurrentVote)
		}
		for i, want := range step.wantVotes {
			if result.Poll.Options[i].Votes != want {
				t.Errorf("%s: option %d expected %d votes, got %d",
					step.name, i, want, result.Poll.Options[i].Votes)
			}
		}
		testutil.AssertLedgerConsistent(t, db, pollID)
	}
}

func TestCastInvalidOption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B"}, nil)
	coord := NewCoordinator(db)
	voter := identity.AnonymousIP("10.0.0.1")

	for _, idx := range []int{-1, 2, 99} {
		if _, err := coord.Cast(ctx, pollID, voter, idx); !errors.Is(err, ErrInvalidOption) {
			t.Errorf("Index %d: expected ErrInvalidOption, got %v", idx, err)
		}
	}

	// A rejected request must leave no trace
	if count := testutil.LedgerCount(t, db, pollID); count != 0 {
		t.Errorf("Rejected votes left %d ledger entries", count)
	}
	if votes := testutil.OptionVotes(t, db, pollID); votes[0] != 0 || votes[1] != 0 {
		t.Errorf("Rejected votes moved counters: %v", votes)
	}
}

func TestCastPollNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	coord := NewCoordinator(db)
	_, err := coord.Cast(context.Background(), "0123456789abcdef01234567",
		identity.AnonymousIP("10.0.0.1"), 0)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected store.ErrNotFound, got %v", err)
	}
}

// TestCastReconcilesGuestAndUser covers the sign-in transition: a voter
// who voted with a guest token, then authenticates and votes again on the
// same poll with the token still present, must update their single entry
// rather than gain a second one. The user ID is backfilled onto the
// guest-era entry in the process.
func TestCastReconcilesGuestAndUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B"}, nil)
	coord := NewCoordinator(db)

	guest := identity.Guest("pre-login-session")
	if _, err := coord.Cast(ctx, pollID, guest, 0); err != nil {
		t.Fatalf("Guest cast failed: %v", err)
	}

	// Same browser, now signed in: the guest token rides along
	authed := identity.Authenticated("user-42").WithGuestToken("pre-login-session")
	result, err := coord.Cast(ctx, pollID, authed, 1)
	if err != nil {
		t.Fatalf("Authenticated cast failed: %v", err)
	}
	if result.CurrentVote == nil || *result.CurrentVote != 1 {
		t.Errorf("Expected moved vote, got %v", result.CurrentVote)
	}
	if count := testutil.LedgerCount(t, db, pollID); count != 1 {
		t.Errorf("Expected one reconciled entry, got %d", count)
	}
	if votes := testutil.OptionVotes(t, db, pollID); votes[0] != 0 || votes[1] != 1 {
		t.Errorf("Expected counters [0 1], got %v", votes)
	}

	var got sql.NullString
	if err := db.QueryRow(`SELECT user_id FROM votes WHERE poll_id = $1`, pollID).Scan(&got); err != nil {
		t.Fatalf("Failed to read vote: %v", err)
	}
	if !got.Valid || got.String != "user-42" {
		t.Errorf("Expected backfilled user ID, got %v", got)
	}
}

// TestCastGuestEraRevoke is the same sign-in transition targeting the
// option already held: the guest-era vote is revoked, not doubled.
func TestCastGuestEraRevoke(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B"}, nil)
	coord := NewCoordinator(db)

	if _, err := coord.Cast(ctx, pollID, identity.Guest("pre-login-session"), 0); err != nil {
		t.Fatalf("Guest cast failed: %v", err)
	}

	authed := identity.Authenticated("user-42").WithGuestToken("pre-login-session")
	result, err := coord.Cast(ctx, pollID, authed, 0)
	if err != nil {
		t.Fatalf("Authenticated cast failed: %v", err)
	}
	if result.CurrentVote != nil {
		t.Errorf("Expected revoke, got %v", *result.CurrentVote)
	}
	if count := testutil.LedgerCount(t, db, pollID); count != 0 {
		t.Errorf("Expected empty ledger, got %d entries", count)
	}
	if votes := testutil.OptionVotes(t, db, pollID); votes[0] != 0 {
		t.Errorf("Expected counter back to 0, got %d", votes[0])
	}
}

// TestCastReconciledEntryFollowsUser checks the backfill's purpose: once
// a guest-era entry carries the user ID, a later vote from a session
// without the old token (a new device) still finds it.
func TestCastReconciledEntryFollowsUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B"}, nil)
	coord := NewCoordinator(db)

	if _, err := coord.Cast(ctx, pollID, identity.Guest("pre-login-session"), 0); err != nil {
		t.Fatalf("Guest cast failed: %v", err)
	}
	withToken := identity.Authenticated("user-8").WithGuestToken("pre-login-session")
	if _, err := coord.Cast(ctx, pollID, withToken, 1); err != nil {
		t.Fatalf("Reconciling cast failed: %v", err)
	}

	// New device: bearer only, no guest token
	result, err := coord.Cast(ctx, pollID, identity.Authenticated("user-8"), 0)
	if err != nil {
		t.Fatalf("New-device cast failed: %v", err)
	}
	if result.CurrentVote == nil || *result.CurrentVote != 0 {
		t.Errorf("Expected moved vote, got %v", result.CurrentVote)
	}
	if count := testutil.LedgerCount(t, db, pollID); count != 1 {
		t.Errorf("Expected one entry across devices, got %d", count)
	}
	testutil.AssertLedgerConsistent(t, db, pollID)
}

// TestCastFallbackWithoutTransactions exercises the non-transactional
// path taken when the backend rejects BeginTx with a capability error.
func TestCastFallbackWithoutTransactions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B"}, nil)

	coord := NewCoordinator(db)
	coord.begin = func(ctx context.Context) (*sql.Tx, error) {
		return nil, fmt.Errorf("Transaction numbers are only allowed on a replica set member or mongos")
	}

	voter := identity.Guest("fallback-voter-1")
	result, err := coord.Cast(ctx, pollID, voter, 0)
	if err != nil {
		t.Fatalf("Fallback cast failed: %v", err)
	}
	if result.CurrentVote == nil || *result.CurrentVote != 0 {
		t.Errorf("Expected current vote 0, got %v", result.CurrentVote)
	}

	// The full state machine still works off-transaction
	result, err = coord.Cast(ctx, pollID, voter, 1)
	if err != nil {
		t.Fatalf("Fallback switch failed: %v", err)
	}
	if result.Poll.Options[0].Votes != 0 || result.Poll.Options[1].Votes != 1 {
		t.Errorf("Expected counters [0 1], got %+v", result.Poll.Options)
	}
	testutil.AssertLedgerConsistent(t, db, pollID)
}

func TestCastBeginErrorIsNotSwallowed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B"}, nil)

	coord := NewCoordinator(db)
	coord.begin = func(ctx context.Context) (*sql.Tx, error) {
		return nil, errors.New("connection reset by peer")
	}

	_, err := coord.Cast(context.Background(), pollID, identity.AnonymousIP("10.0.0.1"), 0)
	if err == nil {
		t.Fatal("Expected the begin error to propagate")
	}
	if count := testutil.LedgerCount(t, db, pollID); count != 0 {
		t.Errorf("Failed cast left %d ledger entries", count)
	}
}

func TestCastDuplicateInsertMapsToConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B"}, nil)
	voter := identity.Guest("racing-voter-1")

	// A real conflict needs two requests racing through the read-then-insert
	// window. Reproduce the losing side directly: the ledger already holds
	// an entry under the unique key when the insert lands.
	testutil.CastTestVote(t, db, pollID, voter.VoterKey(), nil, 0)

	err := store.CreateVote(ctx, db, newVote(t, pollID, voter.VoterKey(), 1))
	if err == nil {
		t.Fatal("Expected duplicate insert to fail")
	}
	if got := classify(err); !errors.Is(got, ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", got)
	}
}

// TestCastConcurrentDistinctVoters runs many voters against one poll in
// parallel and checks that counters and ledger agree afterwards.
func TestCastConcurrentDistinctVoters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	pollID := testutil.CreateTestPoll(t, db, "Q", []string{"A", "B", "C"}, nil)
	coord := NewCoordinator(db)

	const voters = 24
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := identity.AnonymousIP(fmt.Sprintf("10.1.0.%d", i))
			if _, err := coord.Cast(ctx, pollID, voter, i%3); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent cast failed: %v", err)
	}

	if count := testutil.LedgerCount(t, db, pollID); count != voters {
		t.Errorf("Expected %d ledger entries, got %d", voters, count)
	}
	testutil.AssertLedgerConsistent(t, db, pollID)
}

func intPtr(v int) *int { return &v }

func newVote(t *testing.T, pollID, voterKey string, optionIndex int) models.Vote {
	t.Helper()
	id, err := auth.GenerateID(12)
	if err != nil {
		t.Fatalf("Failed to generate vote ID: %v", err)
	}
	now := time.Now()
	return models.Vote{
		ID:          id,
		PollID:      pollID,
		VoterKey:    voterKey,
		OptionIndex: optionIndex,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
