package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/ticketing-service/internal/models"
)

// Sink matches service.NotificationSink.
type Sink interface {
	TicketPurchased(ctx context.Context, ticket models.Ticket) error
	TicketCancelled(ctx context.Context, ticket models.Ticket) error
}

const (
	RoutingTicketPurchased = "ticket.purchased"
	RoutingTicketCancelled = "ticket.cancelled"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type TicketMessage struct {
	TicketID         string    `json:"ticket_id"`
	EventID          string    `json:"event_id"`
	BuyerID          string    `json:"buyer_id"`
	Status           string    `json:"status"`
	QRCodeIdentifier string    `json:"qr_code_identifier"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func newTicketMessage(t models.Ticket) TicketMessage {
	return TicketMessage{
		TicketID:         t.ID,
		EventID:          t.EventID,
		BuyerID:          t.BuyerID,
		Status:           string(t.Status),
		QRCodeIdentifier: t.QRCodeIdentifier,
		OccurredAt:       time.Now().UTC(),
	}
}

// BrokerSink publishes ticket lifecycle messages to the tickets exchange.
type BrokerSink struct {
	publisher Publisher
}

func NewBrokerSink(publisher Publisher) *BrokerSink {
	return &BrokerSink{publisher: publisher}
}

func (b *BrokerSink) TicketPurchased(ctx context.Context, ticket models.Ticket) error {
	return b.publisher.Publish(ctx, RoutingTicketPurchased, newTicketMessage(ticket))
}

func (b *BrokerSink) TicketCancelled(ctx context.Context, ticket models.Ticket) error {
	return b.publisher.Publish(ctx, RoutingTicketCancelled, newTicketMessage(ticket))
}

type Invalidator interface {
	Invalidate(ctx context.Context, eventID string) error
}

// CacheSink drops the cached availability of the ticket's event.
type CacheSink struct {
	cache Invalidator
}

func NewCacheSink(cache Invalidator) *CacheSink {
	return &CacheSink{cache: cache}
}

func (c *CacheSink) TicketPurchased(ctx context.Context, ticket models.Ticket) error {
	return c.cache.Invalidate(ctx, ticket.EventID)
}

func (c *CacheSink) TicketCancelled(ctx context.Context, ticket models.Ticket) error {
	return c.cache.Invalidate(ctx, ticket.EventID)
}

// Multi fans out to every sink and joins their errors. One failing sink does
// not stop the others.
type Multi []Sink

func (m Multi) TicketPurchased(ctx context.Context, ticket models.Ticket) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.TicketPurchased(ctx, ticket))
	}
	return errors.Join(errs...)
}

func (m Multi) TicketCancelled(ctx context.Context, ticket models.Ticket) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.TicketCancelled(ctx, ticket))
	}
	return errors.Join(errs...)
}
