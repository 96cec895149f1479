package models

import "time"

type Event struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Description  string     `json:"description"`
	Venue        string     `json:"venue"`
	Location     string     `json:"location"`
	ImageURL     string     `json:"image_url"`
	StartsAt     time.Time  `gorm:"not null" json:"starts_at"`
	TicketPrice  float64    `gorm:"not null" json:"ticket_price"`
	TotalTickets int        `gorm:"not null;check:chk_events_total_tickets,total_tickets >= 0" json:"total_tickets"`
	TicketsSold  int        `gorm:"not null;default:0;check:chk_events_tickets_sold,tickets_sold >= 0 AND tickets_sold <= total_tickets" json:"tickets_sold"`
	OrganizerID  string     `gorm:"index" json:"organizer_id"`
	SalesStartAt *time.Time `json:"sales_start_at,omitempty"`
	SalesEndAt   *time.Time `json:"sales_end_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Remaining is the capacity left at the time the row was read.
func (e *Event) Remaining() int {
	if e.TicketsSold >= e.TotalTickets {
		return 0
	}
	return e.TotalTickets - e.TicketsSold
}

// Purchasable reports whether the sales window is open at now. Tickets stop
// selling once the event has started.
func (e *Event) Purchasable(now time.Time) bool {
	if !now.Before(e.StartsAt) {
		return false
	}
	if e.SalesStartAt != nil && now.Before(*e.SalesStartAt) {
		return false
	}
	if e.SalesEndAt != nil && now.After(*e.SalesEndAt) {
		return false
	}
	return true
}

// Availability is the read view of an event's capacity, cached between purchases.
type Availability struct {
	EventID      string `json:"event_id"`
	TotalTickets int    `json:"total_tickets"`
	TicketsSold  int    `json:"tickets_sold"`
	Remaining    int    `json:"remaining"`
	Purchasable  bool   `json:"purchasable"`
}

func (e *Event) Availability(now time.Time) Availability {
	return Availability{
		EventID:      e.ID,
		TotalTickets: e.TotalTickets,
		TicketsSold:  e.TicketsSold,
		Remaining:    e.Remaining(),
		Purchasable:  e.Purchasable(now) && e.Remaining() > 0,
	}
}
