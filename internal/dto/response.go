package dto

import (
	"time"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/Eursukkul/ticketing-service/internal/service"
)

type EventResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	Venue            string     `json:"venue,omitempty"`
	Location         string     `json:"location,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	StartsAt         time.Time  `json:"starts_at"`
	TicketPrice      float64    `json:"ticket_price"`
	TotalTickets     int        `json:"total_tickets"`
	TicketsSold      int        `json:"tickets_sold"`
	TicketsAvailable int        `json:"tickets_available"`
	OrganizerID      string     `json:"organizer_id,omitempty"`
	SalesStartAt     *time.Time `json:"sales_start_at,omitempty"`
	SalesEndAt       *time.Time `json:"sales_end_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type TicketResponse struct {
	ID               string              `json:"id"`
	EventID          string              `json:"event_id"`
	BuyerID          string              `json:"buyer_id"`
	Status           models.TicketStatus `json:"status"`
	SeatInfo         *string             `json:"seat_info,omitempty"`
	QRCodeIdentifier string              `json:"qr_code_identifier"`
	CreatedAt        time.Time           `json:"created_at"`
	Event            *EventResponse      `json:"event,omitempty"`
}

type PurchaseResponse struct {
	Success  bool              `json:"success"`
	TicketID string            `json:"ticket_id,omitempty"`
	Ticket   *TicketResponse   `json:"ticket,omitempty"`
	Reason   models.DenyReason `json:"reason,omitempty"`
	Replayed bool              `json:"replayed,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToEventResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:               e.ID,
		Name:             e.Name,
		Description:      e.Description,
		Venue:            e.Venue,
		Location:         e.Location,
		ImageURL:         e.ImageURL,
		StartsAt:         e.StartsAt,
		TicketPrice:      e.TicketPrice,
		TotalTickets:     e.TotalTickets,
		TicketsSold:      e.TicketsSold,
		TicketsAvailable: e.Remaining(),
		OrganizerID:      e.OrganizerID,
		SalesStartAt:     e.SalesStartAt,
		SalesEndAt:       e.SalesEndAt,
		CreatedAt:        e.CreatedAt,
	}
}

func ToTicketResponse(t *models.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:               t.ID,
		EventID:          t.EventID,
		BuyerID:          t.BuyerID,
		Status:           t.Status,
		SeatInfo:         t.SeatInfo,
		QRCodeIdentifier: t.QRCodeIdentifier,
		CreatedAt:        t.CreatedAt,
	}
	if t.Event != nil {
		ev := ToEventResponse(t.Event)
		resp.Event = &ev
	}
	return resp
}

func ToTicketResponses(tickets []models.Ticket) []TicketResponse {
	resp := make([]TicketResponse, len(tickets))
	for i := range tickets {
		resp[i] = ToTicketResponse(&tickets[i])
	}
	return resp
}

func ToPurchaseResponse(r service.PurchaseResult) PurchaseResponse {
	if !r.Success {
		return PurchaseResponse{Reason: r.Reason}
	}
	ticket := ToTicketResponse(r.Ticket)
	return PurchaseResponse{
		Success:  true,
		TicketID: r.Ticket.ID,
		Ticket:   &ticket,
		Replayed: r.Replayed,
	}
}
