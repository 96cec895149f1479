package models

import "time"

type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketCancelled TicketStatus = "cancelled"
)

type Ticket struct {
	ID               string       `gorm:"type:uuid;primaryKey" json:"id"`
	EventID          string       `gorm:"type:uuid;not null;index" json:"event_id"`
	BuyerID          string       `gorm:"not null;index" json:"buyer_id"`
	Status           TicketStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	ReservationToken string       `gorm:"not null;index" json:"-"`
	SeatInfo         *string      `json:"seat_info,omitempty"`
	QRCodeIdentifier string       `gorm:"not null" json:"qr_code_identifier"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

// IssueRequest binds a granted reservation to the ticket that will be written for it.
type IssueRequest struct {
	Token            string
	EventID          string
	BuyerID          string
	TicketID         string
	QRCodeIdentifier string
	At               time.Time
}
