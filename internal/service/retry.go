package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/rs/zerolog/log"

	"github.com/Eursukkul/ticketing-service/internal/metrics"
)

type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		b.MaxInterval = c.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.MaxRetries), ctx)
}

// retry runs op under the policy, counting every retry under the op label.
func retry(ctx context.Context, c RetryConfig, op string, fn func() error) error {
	return backoff.RetryNotify(fn, c.backOff(ctx), func(err error, wait time.Duration) {
		metrics.LedgerRetries.WithLabelValues(op).Inc()
		log.Debug().Err(err).Str("op", op).Dur("wait", wait).Msg("retrying storage operation")
	})
}
