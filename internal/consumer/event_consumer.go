package consumer

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/Eursukkul/ticketing-service/internal/models"
)

type EventSyncer interface {
	SyncEvent(ctx context.Context, event *models.Event) error
}

// EventConsumer applies catalog upserts published on the events exchange.
type EventConsumer struct {
	svc EventSyncer
}

func NewEventConsumer(svc EventSyncer) *EventConsumer {
	return &EventConsumer{svc: svc}
}

// Run handles deliveries until ctx is done or the channel closes.
func (ec *EventConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				log.Warn().Msg("delivery channel closed, stopping event consumer")
				return nil
			}
			ec.handleMessage(ctx, msg)
		}
	}
}

func (ec *EventConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	logger := log.With().Str("routing_key", msg.RoutingKey).Logger()

	var event models.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		logger.Error().Err(err).Msg("failed to unmarshal event, dead-lettering")
		_ = msg.Nack(false, false)
		return
	}

	if err := ec.svc.SyncEvent(ctx, &event); err != nil {
		if errors.Is(err, models.ErrInvalidEvent) || errors.Is(err, models.ErrCapacityBelowSold) {
			logger.Error().Err(err).Str("event_id", event.ID).Msg("rejected event sync, dead-lettering")
			_ = msg.Nack(false, false)
			return
		}
		logger.Warn().Err(err).Str("event_id", event.ID).Msg("event sync failed, requeueing")
		_ = msg.Nack(false, true)
		return
	}

	logger.Info().Str("event_id", event.ID).Str("name", event.Name).Msg("synced event")
	_ = msg.Ack(false)
}
