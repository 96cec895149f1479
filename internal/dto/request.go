package dto

import "time"

type CreateEventRequest struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Venue        string     `json:"venue"`
	Location     string     `json:"location"`
	ImageURL     string     `json:"image_url"`
	StartsAt     time.Time  `json:"starts_at"`
	TicketPrice  float64    `json:"ticket_price"`
	TotalTickets int        `json:"total_tickets"`
	SalesStartAt *time.Time `json:"sales_start_at"`
	SalesEndAt   *time.Time `json:"sales_end_at"`
}

type UpdateCapacityRequest struct {
	TotalTickets *int `json:"total_tickets"`
}
