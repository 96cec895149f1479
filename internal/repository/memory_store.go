package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Eursukkul/ticketing-service/internal/models"
)

// MemoryStore keeps events, reservations and tickets in process. Every
// read-modify-write touching an event's capacity runs under that event's
// lock, so reserve and release are serialized per event and independent
// across events.
type MemoryStore struct {
	mu           sync.RWMutex
	events       map[string]models.Event
	reservations map[string]models.Reservation
	tickets      map[string]models.Ticket

	eventLocks sync.Map
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:       make(map[string]models.Event),
		reservations: make(map[string]models.Reservation),
		tickets:      make(map[string]models.Ticket),
		now:          time.Now,
	}
}

func (s *MemoryStore) Events() EventRepository   { return memoryEvents{s} }
func (s *MemoryStore) Ledger() LedgerRepository  { return memoryLedger{s} }
func (s *MemoryStore) Tickets() TicketRepository { return memoryTickets{s} }

func (s *MemoryStore) lockEvent(id string) func() {
	m, _ := s.eventLocks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *MemoryStore) event(id string) (models.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	return e, ok
}

func (s *MemoryStore) reservation(token string) (models.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[token]
	return r, ok
}

func (s *MemoryStore) ticket(id string) (models.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	return t, ok
}

// withEvent attaches the event to a ticket copy, mirroring the gorm Preload.
func (s *MemoryStore) withEvent(t models.Ticket) models.Ticket {
	if e, ok := s.events[t.EventID]; ok {
		t.Event = &e
	}
	return t
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

type memoryEvents struct{ s *MemoryStore }

func (m memoryEvents) Create(ctx context.Context, event *models.Event) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s := m.s
	unlock := s.lockEvent(event.ID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return models.ErrDuplicate
	}
	now := s.now()
	event.TicketsSold = 0
	event.CreatedAt, event.UpdatedAt = now, now
	s.events[event.ID] = *event
	return nil
}

func (m memoryEvents) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	e, ok := m.s.event(id)
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return &e, nil
}

func (m memoryEvents) FindAll(ctx context.Context) ([]models.Event, error) {
	return m.filter(ctx, func(models.Event) bool { return true })
}

func (m memoryEvents) FindByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	return m.filter(ctx, func(e models.Event) bool { return e.OrganizerID == organizerID })
}

func (m memoryEvents) filter(ctx context.Context, keep func(models.Event) bool) ([]models.Event, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	events := make([]models.Event, 0, len(m.s.events))
	for _, e := range m.s.events {
		if keep(e) {
			events = append(events, e)
		}
	}
	m.s.mu.RUnlock()
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	return events, nil
}

func (m memoryEvents) UpdateCapacity(ctx context.Context, id string, total int) (*models.Event, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if total < 0 {
		return nil, models.ErrInvalidEvent
	}
	s := m.s
	unlock := s.lockEvent(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	if total < e.TicketsSold {
		return &e, models.ErrCapacityBelowSold
	}
	e.TotalTickets = total
	e.UpdatedAt = s.now()
	s.events[id] = e
	return &e, nil
}

func (m memoryEvents) Upsert(ctx context.Context, event *models.Event) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s := m.s
	unlock := s.lockEvent(event.ID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	existing, ok := s.events[event.ID]
	if !ok {
		event.TicketsSold = 0
		event.CreatedAt, event.UpdatedAt = now, now
		s.events[event.ID] = *event
		return nil
	}
	if event.TotalTickets < existing.TicketsSold {
		return models.ErrCapacityBelowSold
	}
	event.TicketsSold = existing.TicketsSold
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = now
	s.events[event.ID] = *event
	return nil
}

type memoryLedger struct{ s *MemoryStore }

func (m memoryLedger) Reserve(ctx context.Context, req models.ReserveRequest) (*models.Reservation, bool, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, false, err
	}
	s := m.s
	unlock := s.lockEvent(req.EventID)
	defer unlock()

	existing, found := s.reservation(req.Token)
	if found {
		if existing.EventID != req.EventID || existing.BuyerID != req.BuyerID {
			return nil, false, models.ErrTokenMismatch
		}
		if existing.State.HoldsCapacity() {
			return &existing, true, nil
		}
	}

	e, ok := s.event(req.EventID)
	if !ok {
		return nil, false, models.ErrEventNotFound
	}
	if !e.Purchasable(req.At) {
		return nil, false, models.ErrNotPurchasable
	}
	if e.TicketsSold >= e.TotalTickets {
		return nil, false, models.ErrSoldOut
	}

	now := s.now()
	reservation := existing
	if !found {
		reservation = models.Reservation{
			Token:     req.Token,
			EventID:   req.EventID,
			BuyerID:   req.BuyerID,
			CreatedAt: now,
		}
	}
	reservation.State = models.ReservationReserved
	reservation.TicketID = nil
	reservation.Attempts = 0
	reservation.LastError = ""
	reservation.UpdatedAt = now

	s.mu.Lock()
	e = s.events[req.EventID]
	e.TicketsSold++
	s.events[req.EventID] = e
	s.reservations[req.Token] = reservation
	s.mu.Unlock()
	return &reservation, false, nil
}

func (m memoryLedger) Release(ctx context.Context, token string) (*models.Reservation, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s := m.s
	r, ok := s.reservation(token)
	if !ok {
		return nil, models.ErrReservationNotFound
	}
	unlock := s.lockEvent(r.EventID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	r = s.reservations[token]
	switch r.State {
	case models.ReservationReleased:
		return &r, nil
	case models.ReservationIssued:
		return nil, models.ErrReservationIssued
	}
	if err := s.releaseUnitLocked(r.EventID); err != nil {
		return nil, err
	}
	r.State = models.ReservationReleased
	r.UpdatedAt = s.now()
	s.reservations[token] = r
	return &r, nil
}

// releaseUnitLocked expects the event lock and s.mu to be held.
func (s *MemoryStore) releaseUnitLocked(eventID string) error {
	e, ok := s.events[eventID]
	if !ok || e.TicketsSold == 0 {
		return models.ErrLedgerInconsistent
	}
	e.TicketsSold--
	s.events[eventID] = e
	return nil
}

func (m memoryLedger) MarkStranded(ctx context.Context, token, cause string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[token]
	if !ok || (r.State != models.ReservationReserved && r.State != models.ReservationStranded) {
		return models.ErrReservationNotFound
	}
	r.State = models.ReservationStranded
	r.Attempts++
	r.LastError = cause
	r.UpdatedAt = s.now()
	s.reservations[token] = r
	return nil
}

func (m memoryLedger) FindReclaimable(ctx context.Context, before time.Time, limit int) ([]models.Reservation, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	var out []models.Reservation
	for _, r := range m.s.reservations {
		if r.State == models.ReservationStranded ||
			(r.State == models.ReservationReserved && r.UpdatedAt.Before(before)) {
			out = append(out, r)
		}
	}
	m.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memoryLedger) FindByToken(ctx context.Context, token string) (*models.Reservation, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r, ok := m.s.reservation(token)
	if !ok {
		return nil, models.ErrReservationNotFound
	}
	return &r, nil
}

func (m memoryLedger) CancelTicket(ctx context.Context, ticketID, buyerID string) (*models.Ticket, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s := m.s
	t, ok := s.ticket(ticketID)
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	unlock := s.lockEvent(t.EventID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	t = s.tickets[ticketID]
	if t.BuyerID != buyerID {
		return nil, models.ErrTicketNotOwned
	}
	if t.Status == models.TicketCancelled {
		return nil, models.ErrTicketCancelled
	}
	r, ok := s.reservations[t.ReservationToken]
	if !ok {
		return nil, models.ErrReservationNotFound
	}
	if err := s.releaseUnitLocked(t.EventID); err != nil {
		return nil, err
	}
	now := s.now()
	r.State = models.ReservationReleased
	r.UpdatedAt = now
	s.reservations[r.Token] = r
	t.Status = models.TicketCancelled
	t.UpdatedAt = now
	s.tickets[t.ID] = t
	t = s.withEvent(t)
	return &t, nil
}

type memoryTickets struct{ s *MemoryStore }

func (m memoryTickets) Issue(ctx context.Context, req models.IssueRequest) (*models.Ticket, bool, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, false, err
	}
	s := m.s
	r, ok := s.reservation(req.Token)
	if !ok {
		return nil, false, models.ErrReservationNotFound
	}
	unlock := s.lockEvent(r.EventID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	r = s.reservations[req.Token]
	if r.EventID != req.EventID || r.BuyerID != req.BuyerID {
		return nil, false, models.ErrTokenMismatch
	}
	switch r.State {
	case models.ReservationReleased:
		return nil, false, models.ErrReservationReleased
	case models.ReservationIssued:
		t, ok := s.tickets[*r.TicketID]
		if !ok {
			return nil, false, models.ErrTicketNotFound
		}
		return &t, false, nil
	}

	now := s.now()
	t := models.Ticket{
		ID:               req.TicketID,
		EventID:          req.EventID,
		BuyerID:          req.BuyerID,
		Status:           models.TicketActive,
		ReservationToken: req.Token,
		QRCodeIdentifier: req.QRCodeIdentifier,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.tickets[t.ID] = t
	id := t.ID
	r.State = models.ReservationIssued
	r.TicketID = &id
	r.LastError = ""
	r.UpdatedAt = now
	s.reservations[r.Token] = r
	return &t, true, nil
}

func (m memoryTickets) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	t, ok := m.s.tickets[id]
	if !ok {
		return nil, models.ErrTicketNotFound
	}
	t = m.s.withEvent(t)
	return &t, nil
}

func (m memoryTickets) FindByBuyer(ctx context.Context, buyerID string) ([]models.Ticket, error) {
	tickets, err := m.filter(ctx, func(t models.Ticket) bool { return t.BuyerID == buyerID })
	if err != nil {
		return nil, err
	}
	// newest first, as the gorm repository orders them
	for i, j := 0, len(tickets)-1; i < j; i, j = i+1, j-1 {
		tickets[i], tickets[j] = tickets[j], tickets[i]
	}
	return tickets, nil
}

func (m memoryTickets) FindByEventID(ctx context.Context, eventID string, status *models.TicketStatus) ([]models.Ticket, error) {
	return m.filter(ctx, func(t models.Ticket) bool {
		return t.EventID == eventID && (status == nil || t.Status == *status)
	})
}

func (m memoryTickets) CountActiveByEvent(ctx context.Context, eventID string) (int64, error) {
	status := models.TicketActive
	tickets, err := m.FindByEventID(ctx, eventID, &status)
	return int64(len(tickets)), err
}

func (m memoryTickets) filter(ctx context.Context, keep func(models.Ticket) bool) ([]models.Ticket, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []models.Ticket
	for _, t := range m.s.tickets {
		if keep(t) {
			out = append(out, m.s.withEvent(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
