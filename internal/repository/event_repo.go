package repository

import (
	"context"
	"errors"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository is the catalog side of the events table. It never writes
// tickets_sold; that column belongs to LedgerRepository.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	FindAll(ctx context.Context) ([]models.Event, error)
	FindByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error)
	UpdateCapacity(ctx context.Context, id string, total int) (*models.Event, error)
	Upsert(ctx context.Context, event *models.Event) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	event.TicketsSold = 0
	return translateError(r.db.WithContext(ctx).Create(event).Error)
}

func (r *eventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isInvalidID(err) {
			return nil, models.ErrEventNotFound
		}
		return nil, translateError(err)
	}
	return &event, nil
}

func (r *eventRepository) FindAll(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.WithContext(ctx).Order("starts_at ASC, id ASC").Find(&events).Error; err != nil {
		return nil, translateError(err)
	}
	return events, nil
}

func (r *eventRepository) FindByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("organizer_id = ?", organizerID).
		Order("starts_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, translateError(err)
	}
	return events, nil
}

// UpdateCapacity changes total_tickets in a single guarded statement so it
// cannot race a concurrent reserve below the sold count.
func (r *eventRepository) UpdateCapacity(ctx context.Context, id string, total int) (*models.Event, error) {
	if total < 0 {
		return nil, models.ErrInvalidEvent
	}
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Event{}).
		Where("id = ? AND tickets_sold <= ?", id, total).
		Update("total_tickets", total)
	if res.Error != nil {
		if isInvalidID(res.Error) {
			return nil, models.ErrEventNotFound
		}
		return nil, translateError(res.Error)
	}
	event, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return event, models.ErrCapacityBelowSold
	}
	return event, nil
}

// Upsert applies an event pushed by the catalog owner. New rows start with
// nothing sold; existing rows keep their sold count.
func (r *eventRepository) Upsert(ctx context.Context, event *models.Event) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Event
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", event.ID).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			event.TicketsSold = 0
			return tx.Create(event).Error
		}
		if err != nil {
			return err
		}
		if event.TotalTickets < existing.TicketsSold {
			return models.ErrCapacityBelowSold
		}
		return tx.Model(&existing).Updates(map[string]any{
			"name":           event.Name,
			"description":    event.Description,
			"venue":          event.Venue,
			"location":       event.Location,
			"image_url":      event.ImageURL,
			"starts_at":      event.StartsAt,
			"ticket_price":   event.TicketPrice,
			"total_tickets":  event.TotalTickets,
			"organizer_id":   event.OrganizerID,
			"sales_start_at": event.SalesStartAt,
			"sales_end_at":   event.SalesEndAt,
		}).Error
	})
	return translateError(err)
}
