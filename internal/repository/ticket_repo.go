package repository

import (
	"context"
	"errors"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"gorm.io/gorm"
)

type TicketRepository interface {
	// Issue writes the ticket for a held reservation and marks it issued. The
	// bool is false when the reservation was already issued and the existing
	// ticket is returned.
	Issue(ctx context.Context, req models.IssueRequest) (*models.Ticket, bool, error)
	FindByID(ctx context.Context, id string) (*models.Ticket, error)
	FindByBuyer(ctx context.Context, buyerID string) ([]models.Ticket, error)
	FindByEventID(ctx context.Context, eventID string, status *models.TicketStatus) ([]models.Ticket, error)
	CountActiveByEvent(ctx context.Context, eventID string) (int64, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Issue(ctx context.Context, req models.IssueRequest) (*models.Ticket, bool, error) {
	var (
		ticket  models.Ticket
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := lockReservation(tx, req.Token)
		if err != nil {
			return err
		}
		if reservation.EventID != req.EventID || reservation.BuyerID != req.BuyerID {
			return models.ErrTokenMismatch
		}
		switch reservation.State {
		case models.ReservationReleased:
			return models.ErrReservationReleased
		case models.ReservationIssued:
			return tx.Where("reservation_token = ? AND status = ?", req.Token, models.TicketActive).
				Take(&ticket).Error
		}

		ticket = models.Ticket{
			ID:               req.TicketID,
			EventID:          req.EventID,
			BuyerID:          req.BuyerID,
			Status:           models.TicketActive,
			ReservationToken: req.Token,
			QRCodeIdentifier: req.QRCodeIdentifier,
		}
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		created = true
		return tx.Model(reservation).Updates(map[string]any{
			"state":      models.ReservationIssued,
			"ticket_id":  ticket.ID,
			"last_error": "",
		}).Error
	})
	if err != nil {
		return nil, false, translateError(err)
	}
	return &ticket, created, nil
}

func (r *ticketRepository) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).Preload("Event").Where("id = ?", id).Take(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || isInvalidID(err) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByBuyer(ctx context.Context, buyerID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Event").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, translateError(err)
	}
	return tickets, nil
}

func (r *ticketRepository) FindByEventID(ctx context.Context, eventID string, status *models.TicketStatus) ([]models.Ticket, error) {
	var tickets []models.Ticket
	q := r.db.WithContext(ctx).Where("event_id = ?", eventID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("created_at ASC").Find(&tickets).Error; err != nil {
		if isInvalidID(err) {
			return nil, models.ErrEventNotFound
		}
		return nil, translateError(err)
	}
	return tickets, nil
}

func (r *ticketRepository) CountActiveByEvent(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("event_id = ? AND status = ?", eventID, models.TicketActive).
		Count(&count).Error
	return count, translateError(err)
}
