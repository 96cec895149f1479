package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/Eursukkul/ticketing-service/internal/repository"
)

// --- Mock InventoryLedger ---

type mockLedger struct {
	reserveCalls int
	reserveFn    func(ctx context.Context, eventID, buyerID, token string) models.ReservationOutcome
	releaseFn    func(ctx context.Context, token string) error
}

func (m *mockLedger) Reserve(ctx context.Context, eventID, buyerID, token string) models.ReservationOutcome {
	m.reserveCalls++
	if m.reserveFn == nil {
		return models.Denied(models.ReasonTransientConflict)
	}
	return m.reserveFn(ctx, eventID, buyerID, token)
}
func (m *mockLedger) Release(ctx context.Context, token string) error {
	return m.releaseFn(ctx, token)
}
func (m *mockLedger) Strand(ctx context.Context, token, cause string) error {
	return nil
}

// --- Scripted LedgerRepository ---

// scriptedLedgerRepo answers Reserve and Release with the queued errors in
// order, then succeeds.
type scriptedLedgerRepo struct {
	repository.LedgerRepository
	reserveErrs  []error
	releaseErrs  []error
	reserveCalls int
	releaseCalls int
}

func (s *scriptedLedgerRepo) Reserve(ctx context.Context, req models.ReserveRequest) (*models.Reservation, bool, error) {
	s.reserveCalls++
	if s.reserveCalls <= len(s.reserveErrs) {
		return nil, false, s.reserveErrs[s.reserveCalls-1]
	}
	return &models.Reservation{Token: req.Token, EventID: req.EventID, BuyerID: req.BuyerID, State: models.ReservationReserved}, false, nil
}

func (s *scriptedLedgerRepo) Release(ctx context.Context, token string) (*models.Reservation, error) {
	s.releaseCalls++
	if s.releaseCalls <= len(s.releaseErrs) {
		return nil, s.releaseErrs[s.releaseCalls-1]
	}
	return &models.Reservation{Token: token, State: models.ReservationReleased}, nil
}

var conflict = fmt.Errorf("%w: could not serialize access", models.ErrConflict)

func TestReserve_RetriesConflicts(t *testing.T) {
	repo := &scriptedLedgerRepo{reserveErrs: []error{conflict, conflict}}
	ledger := NewInventoryLedger(repo, fastRetry(), fastRetry())

	outcome := ledger.Reserve(context.Background(), "event", "alice", "token")

	require.True(t, outcome.Granted)
	assert.Equal(t, "token", outcome.Reservation.Token)
	assert.Equal(t, 3, repo.reserveCalls)
}

func TestReserve_GivesUpAsTransientConflict(t *testing.T) {
	repo := &scriptedLedgerRepo{reserveErrs: []error{conflict, conflict, conflict, conflict, conflict}}
	ledger := NewInventoryLedger(repo, fastRetry(), fastRetry())

	outcome := ledger.Reserve(context.Background(), "event", "alice", "token")

	assert.False(t, outcome.Granted)
	assert.Equal(t, models.ReasonTransientConflict, outcome.Reason)
	assert.Equal(t, 4, repo.reserveCalls) // first try plus three retries
}

func TestReserve_TerminalReasonsAreNotRetried(t *testing.T) {
	cases := []struct {
		err    error
		reason models.DenyReason
	}{
		{models.ErrSoldOut, models.ReasonSoldOut},
		{models.ErrEventNotFound, models.ReasonEventNotFound},
		{models.ErrNotPurchasable, models.ReasonNotPurchasable},
		{models.ErrTokenMismatch, models.ReasonTransientConflict},
	}
	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			repo := &scriptedLedgerRepo{reserveErrs: []error{tc.err}}
			ledger := NewInventoryLedger(repo, fastRetry(), fastRetry())

			outcome := ledger.Reserve(context.Background(), "event", "alice", "token")

			assert.False(t, outcome.Granted)
			assert.Equal(t, tc.reason, outcome.Reason)
			assert.Equal(t, 1, repo.reserveCalls)
		})
	}
}

func TestRelease_RetriesThenSucceeds(t *testing.T) {
	repo := &scriptedLedgerRepo{releaseErrs: []error{conflict, errors.New("connection reset")}}
	ledger := NewInventoryLedger(repo, fastRetry(), fastRetry())

	err := ledger.Release(context.Background(), "token")

	assert.NoError(t, err)
	assert.Equal(t, 3, repo.releaseCalls)
}

func TestRelease_IssuedIsPermanent(t *testing.T) {
	repo := &scriptedLedgerRepo{releaseErrs: []error{models.ErrReservationIssued}}
	ledger := NewInventoryLedger(repo, fastRetry(), fastRetry())

	err := ledger.Release(context.Background(), "token")

	assert.ErrorIs(t, err, models.ErrReservationIssued)
	assert.Equal(t, 1, repo.releaseCalls)
}

func TestLedger_MemoryInvariantHolds(t *testing.T) {
	store := repository.NewMemoryStore()
	eventID := seedEvent(t, store, 2)
	ledger := NewInventoryLedger(store.Ledger(), fastRetry(), fastRetry())
	ctx := context.Background()

	a := ledger.Reserve(ctx, eventID, "alice", "t-a")
	b := ledger.Reserve(ctx, eventID, "bob", "t-b")
	c := ledger.Reserve(ctx, eventID, "carol", "t-c")
	require.True(t, a.Granted)
	require.True(t, b.Granted)
	assert.Equal(t, models.ReasonSoldOut, c.Reason)
	assert.Equal(t, 2, soldOf(t, store, eventID))

	require.NoError(t, ledger.Release(ctx, "t-a"))
	require.NoError(t, ledger.Release(ctx, "t-a"))
	assert.Equal(t, 1, soldOf(t, store, eventID))

	assert.True(t, ledger.Reserve(ctx, eventID, "carol", "t-c").Granted)
	assert.Equal(t, 2, soldOf(t, store, eventID))
}
