package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/Eursukkul/ticketing-service/internal/repository"
)

// AvailabilityCache holds the read view of event capacity between purchases.
type AvailabilityCache interface {
	Get(ctx context.Context, eventID string) (*models.Availability, bool, error)
	Set(ctx context.Context, a models.Availability) error
	Invalidate(ctx context.Context, eventID string) error
}

type EventService interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error)
	Availability(ctx context.Context, id string) (*models.Availability, error)
	UpdateCapacity(ctx context.Context, id string, total int) (*models.Event, error)
	SyncEvent(ctx context.Context, event *models.Event) error
}

type eventService struct {
	repo  repository.EventRepository
	cache AvailabilityCache
	now   func() time.Time
}

// NewEventService builds the catalog service. cache may be nil.
func NewEventService(repo repository.EventRepository, cache AvailabilityCache) EventService {
	return &eventService{repo: repo, cache: cache, now: time.Now}
}

func (s *eventService) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *eventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.repo.FindAll(ctx)
}

func (s *eventService) ListByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	return s.repo.FindByOrganizer(ctx, organizerID)
}

// Availability serves from cache when it can. A cache outage falls back to
// the repository.
func (s *eventService) Availability(ctx context.Context, id string) (*models.Availability, error) {
	if s.cache != nil {
		a, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("event_id", id).Msg("availability cache read failed")
		} else if ok {
			return a, nil
		}
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a := event.Availability(s.now())
	if s.cache != nil {
		if err := s.cache.Set(ctx, a); err != nil {
			log.Warn().Err(err).Str("event_id", id).Msg("availability cache write failed")
		}
	}
	return &a, nil
}

func (s *eventService) UpdateCapacity(ctx context.Context, id string, total int) (*models.Event, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: total_tickets must be >= 0", models.ErrInvalidEvent)
	}
	event, err := s.repo.UpdateCapacity(ctx, id, total)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return event, nil
}

// SyncEvent applies an upsert pushed by the catalog owner. It never touches
// tickets_sold and refuses a capacity below it.
func (s *eventService) SyncEvent(ctx context.Context, event *models.Event) error {
	if _, err := uuid.Parse(event.ID); err != nil {
		return fmt.Errorf("%w: id must be a UUID", models.ErrInvalidEvent)
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, event); err != nil {
		return fmt.Errorf("sync event %s: %w", event.ID, err)
	}
	s.invalidate(ctx, event.ID)
	return nil
}

func (s *eventService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		log.Warn().Err(err).Str("event_id", id).Msg("availability cache invalidation failed")
	}
}

func validateEvent(e *models.Event) error {
	switch {
	case strings.TrimSpace(e.Name) == "":
		return fmt.Errorf("%w: name is required", models.ErrInvalidEvent)
	case e.StartsAt.IsZero():
		return fmt.Errorf("%w: starts_at is required", models.ErrInvalidEvent)
	case e.TotalTickets < 0:
		return fmt.Errorf("%w: total_tickets must be >= 0", models.ErrInvalidEvent)
	case e.TicketPrice < 0:
		return fmt.Errorf("%w: ticket_price must be >= 0", models.ErrInvalidEvent)
	case e.SalesStartAt != nil && e.SalesEndAt != nil && !e.SalesEndAt.After(*e.SalesStartAt):
		return fmt.Errorf("%w: sales_end_at must be after sales_start_at", models.ErrInvalidEvent)
	}
	return nil
}
