package models

import "time"

type ReservationState string

const (
	ReservationReserved ReservationState = "reserved"
	ReservationIssued   ReservationState = "issued"
	ReservationReleased ReservationState = "released"
	// ReservationStranded marks a reservation whose compensation failed; it
	// still holds a unit until the reconciler releases it.
	ReservationStranded ReservationState = "stranded"
)

// HoldsCapacity reports whether a reservation in this state accounts for one
// unit of events.tickets_sold.
func (s ReservationState) HoldsCapacity() bool {
	return s != ReservationReleased
}

// Reservation is the ledger row keyed by the idempotency token. Every unit of
// tickets_sold is backed by exactly one reservation that holds capacity.
type Reservation struct {
	Token     string           `gorm:"primaryKey;type:varchar(64)" json:"token"`
	EventID   string           `gorm:"type:uuid;not null;index" json:"event_id"`
	BuyerID   string           `gorm:"not null;index" json:"buyer_id"`
	State     ReservationState `gorm:"type:varchar(20);not null;index" json:"state"`
	TicketID  *string          `gorm:"type:uuid" json:"ticket_id,omitempty"`
	Attempts  int              `gorm:"not null;default:0" json:"attempts"`
	LastError string           `json:"last_error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type ReserveRequest struct {
	Token   string
	EventID string
	BuyerID string
	At      time.Time
}
