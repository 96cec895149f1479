package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/rs/zerolog/log"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/Eursukkul/ticketing-service/internal/repository"
)

// InventoryLedger grants and returns units of event capacity.
type InventoryLedger interface {
	Reserve(ctx context.Context, eventID, buyerID, token string) models.ReservationOutcome
	Release(ctx context.Context, token string) error
	Strand(ctx context.Context, token, cause string) error
}

type inventoryLedger struct {
	repo         repository.LedgerRepository
	retry        RetryConfig
	compensation RetryConfig
	now          func() time.Time
}

func NewInventoryLedger(repo repository.LedgerRepository, retry, compensation RetryConfig) InventoryLedger {
	return &inventoryLedger{
		repo:         repo,
		retry:        retry,
		compensation: compensation,
		now:          time.Now,
	}
}

func (l *inventoryLedger) Reserve(ctx context.Context, eventID, buyerID, token string) models.ReservationOutcome {
	var outcome models.ReservationOutcome
	err := retry(ctx, l.retry, "reserve", func() error {
		reservation, replayed, err := l.repo.Reserve(ctx, models.ReserveRequest{
			Token:   token,
			EventID: eventID,
			BuyerID: buyerID,
			At:      l.now(),
		})
		if err != nil {
			if reason, ok := denyReason(err); ok {
				outcome = models.Denied(reason)
				return nil
			}
			return err
		}
		outcome = models.Granted(reservation, replayed)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Str("token", token).Msg("reserve gave up after retries")
		return models.Denied(models.ReasonTransientConflict)
	}
	return outcome
}

// denyReason maps terminal ledger errors to reasons. Anything else may
// succeed on retry.
func denyReason(err error) (models.DenyReason, bool) {
	switch {
	case errors.Is(err, models.ErrSoldOut):
		return models.ReasonSoldOut, true
	case errors.Is(err, models.ErrEventNotFound):
		return models.ReasonEventNotFound, true
	case errors.Is(err, models.ErrNotPurchasable):
		return models.ReasonNotPurchasable, true
	case errors.Is(err, models.ErrTokenMismatch):
		return models.ReasonTransientConflict, true
	}
	return "", false
}

func (l *inventoryLedger) Release(ctx context.Context, token string) error {
	return retry(ctx, l.compensation, "release", func() error {
		_, err := l.repo.Release(ctx, token)
		if isTerminal(err) {
			return backoff.Permanent(err)
		}
		return err
	})
}

func (l *inventoryLedger) Strand(ctx context.Context, token, cause string) error {
	return retry(ctx, l.compensation, "strand", func() error {
		err := l.repo.MarkStranded(ctx, token, cause)
		if isTerminal(err) {
			return backoff.Permanent(err)
		}
		return err
	})
}

func isTerminal(err error) bool {
	return errors.Is(err, models.ErrReservationIssued) ||
		errors.Is(err, models.ErrReservationNotFound) ||
		errors.Is(err, models.ErrLedgerInconsistent)
}
