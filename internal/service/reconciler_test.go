package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/Eursukkul/ticketing-service/internal/repository"
)

func newTestReconciler(repo repository.LedgerRepository, staleAfter time.Duration) *Reconciler {
	ledger := NewInventoryLedger(repo, fastRetry(), fastRetry())
	return NewReconciler(repo, ledger, ReconcilerConfig{Interval: time.Hour, StaleAfter: staleAfter, BatchSize: 10})
}

func TestReconciler_ReleasesStranded(t *testing.T) {
	store := repository.NewMemoryStore()
	eventID := seedEvent(t, store, 2)
	svc := newPurchaseStack(
		stuckRelease{LedgerRepository: store.Ledger()},
		&failingTickets{TicketRepository: store.Tickets(), err: errors.New("boom")},
		nil,
	)
	require.False(t, purchase(svc, "alice", eventID).Success)
	require.Equal(t, 1, soldOf(t, store, eventID))

	report, err := newTestReconciler(store.Ledger(), time.Hour).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 1, Released: 1}, report)
	assert.Equal(t, 0, soldOf(t, store, eventID))

	res, err := store.Ledger().FindByToken(context.Background(), IdempotencyToken("alice", eventID, ""))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationReleased, res.State)
}

func TestReconciler_ReleasesOnlyStaleReserved(t *testing.T) {
	store := repository.NewMemoryStore()
	eventID := seedEvent(t, store, 5)
	ctx := context.Background()
	_, _, err := store.Ledger().Reserve(ctx, models.ReserveRequest{Token: "abandoned", EventID: eventID, BuyerID: "alice", At: time.Now()})
	require.NoError(t, err)

	fresh := newTestReconciler(store.Ledger(), time.Hour)
	report, err := fresh.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
	assert.Equal(t, 1, soldOf(t, store, eventID))

	stale := newTestReconciler(store.Ledger(), time.Hour)
	stale.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	report, err = stale.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Released)
	assert.Equal(t, 0, soldOf(t, store, eventID))
}

func TestReconciler_LeavesIssuedAlone(t *testing.T) {
	store := repository.NewMemoryStore()
	eventID := seedEvent(t, store, 5)
	svc := newPurchaseStack(store.Ledger(), store.Tickets(), nil)
	require.True(t, purchase(svc, "alice", eventID).Success)

	r := newTestReconciler(store.Ledger(), time.Hour)
	r.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	report, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
	assert.Equal(t, 1, soldOf(t, store, eventID))
}

func TestReconciler_RecordsFailures(t *testing.T) {
	store := repository.NewMemoryStore()
	eventID := seedEvent(t, store, 5)
	ctx := context.Background()
	_, _, err := store.Ledger().Reserve(ctx, models.ReserveRequest{Token: "stuck", EventID: eventID, BuyerID: "alice", At: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store.Ledger().MarkStranded(ctx, "stuck", "first failure"))

	r := newTestReconciler(stuckRelease{LedgerRepository: store.Ledger()}, time.Hour)
	report, err := r.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	res, err := store.Ledger().FindByToken(ctx, "stuck")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStranded, res.State)
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, res.LastError, "lock timeout")
	assert.Equal(t, 1, soldOf(t, store, eventID))
}

func TestReconciler_RunStopsWithContext(t *testing.T) {
	store := repository.NewMemoryStore()
	r := NewReconciler(store.Ledger(), NewInventoryLedger(store.Ledger(), fastRetry(), fastRetry()), ReconcilerConfig{
		Interval:   5 * time.Millisecond,
		StaleAfter: time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.NoError(t, r.Run(ctx))
}
