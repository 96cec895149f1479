package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository owns every write to events.tickets_sold. Each method runs
// in its own transaction and leaves the sold count equal to the number of
// reservations that hold capacity.
type LedgerRepository interface {
	// Reserve consumes one unit for the token, or replays the reservation the
	// token already holds. The bool reports a replay.
	Reserve(ctx context.Context, req models.ReserveRequest) (*models.Reservation, bool, error)
	// Release returns the unit held by the token. Releasing twice is a no-op.
	Release(ctx context.Context, token string) (*models.Reservation, error)
	// MarkStranded flags a reservation whose release failed.
	MarkStranded(ctx context.Context, token, cause string) error
	// FindReclaimable lists stranded reservations and reserved ones untouched since before.
	FindReclaimable(ctx context.Context, before time.Time, limit int) ([]models.Reservation, error)
	FindByToken(ctx context.Context, token string) (*models.Reservation, error)
	// CancelTicket cancels an active ticket and returns its unit to the event.
	CancelTicket(ctx context.Context, ticketID, buyerID string) (*models.Ticket, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Reserve(ctx context.Context, req models.ReserveRequest) (*models.Reservation, bool, error) {
	reservation, replayed, err := r.reserve(ctx, req)
	if errors.Is(err, models.ErrDuplicate) {
		// A concurrent call with the same token inserted first and our
		// increment rolled back with the failed insert. Read its row.
		reservation, replayed, err = r.reserve(ctx, req)
	}
	return reservation, replayed, err
}

func (r *ledgerRepository) reserve(ctx context.Context, req models.ReserveRequest) (*models.Reservation, bool, error) {
	var (
		result   *models.Reservation
		replayed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockReservation(tx, req.Token)
		if err != nil && !errors.Is(err, models.ErrReservationNotFound) {
			return err
		}
		if existing != nil {
			if existing.EventID != req.EventID || existing.BuyerID != req.BuyerID {
				return models.ErrTokenMismatch
			}
			if existing.State.HoldsCapacity() {
				result, replayed = existing, true
				return nil
			}
		}

		var event models.Event
		err = tx.Select("id", "starts_at", "sales_start_at", "sales_end_at").
			Where("id = ?", req.EventID).
			Take(&event).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || isInvalidID(err) {
			return models.ErrEventNotFound
		}
		if err != nil {
			return err
		}
		if !event.Purchasable(req.At) {
			return models.ErrNotPurchasable
		}

		res := tx.Model(&models.Event{}).
			Where("id = ? AND tickets_sold < total_tickets", req.EventID).
			UpdateColumn("tickets_sold", gorm.Expr("tickets_sold + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrSoldOut
		}

		if existing != nil {
			// Released token re-armed by a new purchase attempt.
			err := tx.Model(existing).Updates(map[string]any{
				"state":      models.ReservationReserved,
				"ticket_id":  nil,
				"attempts":   0,
				"last_error": "",
			}).Error
			if err != nil {
				return err
			}
			existing.State = models.ReservationReserved
			existing.TicketID = nil
			existing.Attempts = 0
			existing.LastError = ""
			result = existing
			return nil
		}

		reservation := &models.Reservation{
			Token:   req.Token,
			EventID: req.EventID,
			BuyerID: req.BuyerID,
			State:   models.ReservationReserved,
		}
		if err := tx.Create(reservation).Error; err != nil {
			return err
		}
		result = reservation
		return nil
	})
	if err != nil {
		return nil, false, translateError(err)
	}
	return result, replayed, nil
}

func (r *ledgerRepository) Release(ctx context.Context, token string) (*models.Reservation, error) {
	var result *models.Reservation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := lockReservation(tx, token)
		if err != nil {
			return err
		}
		switch reservation.State {
		case models.ReservationReleased:
			result = reservation
			return nil
		case models.ReservationIssued:
			return models.ErrReservationIssued
		}
		if err := releaseUnit(tx, reservation.EventID); err != nil {
			return err
		}
		if err := tx.Model(reservation).Update("state", models.ReservationReleased).Error; err != nil {
			return err
		}
		reservation.State = models.ReservationReleased
		result = reservation
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

func (r *ledgerRepository) MarkStranded(ctx context.Context, token, cause string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("token = ? AND state IN ?", token, []models.ReservationState{models.ReservationReserved, models.ReservationStranded}).
		Updates(map[string]any{
			"state":      models.ReservationStranded,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrReservationNotFound
	}
	return nil
}

func (r *ledgerRepository) FindReclaimable(ctx context.Context, before time.Time, limit int) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.WithContext(ctx).
		Where("state = ? OR (state = ? AND updated_at < ?)", models.ReservationStranded, models.ReservationReserved, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&reservations).Error
	if err != nil {
		return nil, translateError(err)
	}
	return reservations, nil
}

func (r *ledgerRepository) FindByToken(ctx context.Context, token string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).Where("token = ?", token).Take(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrReservationNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &reservation, nil
}

func (r *ledgerRepository) CancelTicket(ctx context.Context, ticketID, buyerID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", ticketID).
			Take(&ticket).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || isInvalidID(err) {
			return models.ErrTicketNotFound
		}
		if err != nil {
			return err
		}
		if ticket.BuyerID != buyerID {
			return models.ErrTicketNotOwned
		}
		if ticket.Status == models.TicketCancelled {
			return models.ErrTicketCancelled
		}

		reservation, err := lockReservation(tx, ticket.ReservationToken)
		if err != nil {
			return err
		}
		if err := releaseUnit(tx, ticket.EventID); err != nil {
			return err
		}
		if err := tx.Model(reservation).Update("state", models.ReservationReleased).Error; err != nil {
			return err
		}
		if err := tx.Model(&ticket).Update("status", models.TicketCancelled).Error; err != nil {
			return err
		}
		ticket.Status = models.TicketCancelled
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &ticket, nil
}

func lockReservation(tx *gorm.DB, token string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		Take(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func releaseUnit(tx *gorm.DB, eventID string) error {
	res := tx.Model(&models.Event{}).
		Where("id = ? AND tickets_sold > 0", eventID).
		UpdateColumn("tickets_sold", gorm.Expr("tickets_sold - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("event %s: %w", eventID, models.ErrLedgerInconsistent)
	}
	return nil
}
