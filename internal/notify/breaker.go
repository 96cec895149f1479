package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/Eursukkul/ticketing-service/internal/metrics"
	"github.com/Eursukkul/ticketing-service/internal/models"
)

// Breaker stops calling a sink after consecutive failures and fails fast with
// gobreaker.ErrOpenState until the open timeout passes.
type Breaker struct {
	name string
	next Sink
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(name string, next Sink, failures uint32, openTimeout time.Duration) *Breaker {
	if failures == 0 {
		failures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("sink", name).Str("from", from.String()).Str("to", to.String()).Msg("notification breaker state changed")
		},
	})
	return &Breaker{name: name, next: next, cb: cb}
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) TicketPurchased(ctx context.Context, ticket models.Ticket) error {
	return b.call(func() error { return b.next.TicketPurchased(ctx, ticket) })
}

func (b *Breaker) TicketCancelled(ctx context.Context, ticket models.Ticket) error {
	return b.call(func() error { return b.next.TicketCancelled(ctx, ticket) })
}

func (b *Breaker) call(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		metrics.NotificationFailures.WithLabelValues(b.name).Inc()
	}
	return err
}
