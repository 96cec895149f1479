package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eursukkul/ticketing-service/internal/models"
)

// --- Mock EventRepository ---

type mockEventRepo struct {
	createFn          func(ctx context.Context, event *models.Event) error
	findByIDFn        func(ctx context.Context, id string) (*models.Event, error)
	findAllFn         func(ctx context.Context) ([]models.Event, error)
	findByOrganizerFn func(ctx context.Context, organizerID string) ([]models.Event, error)
	updateCapacityFn  func(ctx context.Context, id string, total int) (*models.Event, error)
	upsertFn          func(ctx context.Context, event *models.Event) error
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	return m.createFn(ctx, event)
}
func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockEventRepo) FindAll(ctx context.Context) ([]models.Event, error) {
	return m.findAllFn(ctx)
}
func (m *mockEventRepo) FindByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	return m.findByOrganizerFn(ctx, organizerID)
}
func (m *mockEventRepo) UpdateCapacity(ctx context.Context, id string, total int) (*models.Event, error) {
	return m.updateCapacityFn(ctx, id, total)
}
func (m *mockEventRepo) Upsert(ctx context.Context, event *models.Event) error {
	return m.upsertFn(ctx, event)
}

// --- Mock AvailabilityCache ---

type mockCache struct {
	entries     map[string]models.Availability
	getErr      error
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]models.Availability{}}
}

func (m *mockCache) Get(ctx context.Context, eventID string) (*models.Availability, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	a, ok := m.entries[eventID]
	if !ok {
		return nil, false, nil
	}
	return &a, true, nil
}
func (m *mockCache) Set(ctx context.Context, a models.Availability) error {
	m.entries[a.EventID] = a
	return nil
}
func (m *mockCache) Invalidate(ctx context.Context, eventID string) error {
	delete(m.entries, eventID)
	m.invalidated = append(m.invalidated, eventID)
	return nil
}

// --- Tests ---

const sampleEventID = "0f8fad5b-d9cb-469f-a165-70867728950e"

func sampleEvent() *models.Event {
	return &models.Event{
		Name:         "Golang Workshop Bangkok",
		Venue:        "True Digital Park",
		StartsAt:     time.Now().Add(72 * time.Hour),
		TicketPrice:  2500,
		TotalTickets: 50,
		OrganizerID:  "organizer-1",
	}
}

func TestCreateEvent_Success(t *testing.T) {
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, event *models.Event) error {
			return nil
		},
	}

	svc := NewEventService(repo, nil) // nil cache = read-through disabled
	event := sampleEvent()

	err := svc.CreateEvent(context.Background(), event)

	assert.NoError(t, err)
	assert.NotEmpty(t, event.ID)
}

func TestCreateEvent_RepoError(t *testing.T) {
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, event *models.Event) error {
			return errors.New("db connection failed")
		},
	}

	svc := NewEventService(repo, nil)
	err := svc.CreateEvent(context.Background(), sampleEvent())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db connection failed")
}

func TestCreateEvent_Invalid(t *testing.T) {
	start := time.Now().Add(time.Hour)
	end := start.Add(-time.Minute)

	cases := map[string]func(e *models.Event){
		"missing name":       func(e *models.Event) { e.Name = " " },
		"missing start":      func(e *models.Event) { e.StartsAt = time.Time{} },
		"negative capacity":  func(e *models.Event) { e.TotalTickets = -1 },
		"negative price":     func(e *models.Event) { e.TicketPrice = -5 },
		"inverted sales win": func(e *models.Event) { e.SalesStartAt, e.SalesEndAt = &start, &end },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &mockEventRepo{
				createFn: func(ctx context.Context, event *models.Event) error {
					t.Fatal("repository must not be called for an invalid event")
					return nil
				},
			}
			event := sampleEvent()
			mutate(event)

			err := NewEventService(repo, nil).CreateEvent(context.Background(), event)
			assert.ErrorIs(t, err, models.ErrInvalidEvent)
		})
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Event, error) {
			return nil, models.ErrEventNotFound
		},
	}

	svc := NewEventService(repo, nil)
	event, err := svc.GetEvent(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrEventNotFound)
	assert.Nil(t, event)
}

func TestListEvents_Success(t *testing.T) {
	repo := &mockEventRepo{
		findAllFn: func(ctx context.Context) ([]models.Event, error) {
			return []models.Event{
				{ID: "a", Name: "Event A", TotalTickets: 50},
				{ID: "b", Name: "Event B", TotalTickets: 30},
			}, nil
		},
	}

	svc := NewEventService(repo, nil)
	events, err := svc.ListEvents(context.Background())

	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, "Event A", events[0].Name)
}

func TestListByOrganizer(t *testing.T) {
	repo := &mockEventRepo{
		findByOrganizerFn: func(ctx context.Context, organizerID string) ([]models.Event, error) {
			assert.Equal(t, "organizer-1", organizerID)
			return []models.Event{{ID: "a", OrganizerID: organizerID}}, nil
		},
	}

	events, err := NewEventService(repo, nil).ListByOrganizer(context.Background(), "organizer-1")

	assert.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAvailability_ReadThroughCache(t *testing.T) {
	calls := 0
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Event, error) {
			calls++
			e := sampleEvent()
			e.ID = id
			e.TicketsSold = 20
			return e, nil
		},
	}
	cache := newMockCache()
	svc := NewEventService(repo, cache)

	first, err := svc.Availability(context.Background(), sampleEventID)
	require.NoError(t, err)
	second, err := svc.Availability(context.Background(), sampleEventID)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 30, first.Remaining)
	assert.True(t, first.Purchasable)
	assert.Equal(t, first, second)
}

func TestAvailability_CacheDownFallsBack(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Event, error) {
			e := sampleEvent()
			e.ID = id
			return e, nil
		},
	}
	cache := newMockCache()
	cache.getErr = errors.New("connection refused")

	a, err := NewEventService(repo, cache).Availability(context.Background(), sampleEventID)

	require.NoError(t, err)
	assert.Equal(t, 50, a.Remaining)
}

func TestUpdateCapacity_InvalidatesCache(t *testing.T) {
	repo := &mockEventRepo{
		updateCapacityFn: func(ctx context.Context, id string, total int) (*models.Event, error) {
			e := sampleEvent()
			e.ID = id
			e.TotalTickets = total
			return e, nil
		},
	}
	cache := newMockCache()
	cache.entries[sampleEventID] = models.Availability{EventID: sampleEventID}

	event, err := NewEventService(repo, cache).UpdateCapacity(context.Background(), sampleEventID, 80)

	require.NoError(t, err)
	assert.Equal(t, 80, event.TotalTickets)
	assert.Equal(t, []string{sampleEventID}, cache.invalidated)
}

func TestUpdateCapacity_BelowSold(t *testing.T) {
	repo := &mockEventRepo{
		updateCapacityFn: func(ctx context.Context, id string, total int) (*models.Event, error) {
			return nil, models.ErrCapacityBelowSold
		},
	}

	_, err := NewEventService(repo, nil).UpdateCapacity(context.Background(), sampleEventID, 1)

	assert.ErrorIs(t, err, models.ErrCapacityBelowSold)
}

func TestUpdateCapacity_Negative(t *testing.T) {
	_, err := NewEventService(&mockEventRepo{}, nil).UpdateCapacity(context.Background(), sampleEventID, -1)

	assert.ErrorIs(t, err, models.ErrInvalidEvent)
}

func TestSyncEvent_RequiresUUID(t *testing.T) {
	event := sampleEvent()
	event.ID = "42"

	err := NewEventService(&mockEventRepo{}, nil).SyncEvent(context.Background(), event)

	assert.ErrorIs(t, err, models.ErrInvalidEvent)
}

func TestSyncEvent_Upserts(t *testing.T) {
	var synced *models.Event
	repo := &mockEventRepo{
		upsertFn: func(ctx context.Context, event *models.Event) error {
			synced = event
			return nil
		},
	}
	event := sampleEvent()
	event.ID = sampleEventID

	err := NewEventService(repo, nil).SyncEvent(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, sampleEventID, synced.ID)
}
