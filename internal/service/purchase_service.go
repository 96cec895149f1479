package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Eursukkul/ticketing-service/internal/metrics"
	"github.com/Eursukkul/ticketing-service/internal/models"
)

// NotificationSink is told about tickets after the fact. Failures never affect
// the purchase result.
type NotificationSink interface {
	TicketPurchased(ctx context.Context, ticket models.Ticket) error
	TicketCancelled(ctx context.Context, ticket models.Ticket) error
}

type PurchaseRequest struct {
	CallerID       string
	EventID        string
	IdempotencyKey string
}

type PurchaseResult struct {
	Success  bool
	Ticket   *models.Ticket
	Reason   models.DenyReason
	Replayed bool
}

func denied(reason models.DenyReason) PurchaseResult {
	return PurchaseResult{Reason: reason}
}

type PurchaseService interface {
	Purchase(ctx context.Context, req PurchaseRequest) PurchaseResult
	CancelTicket(ctx context.Context, ticketID, callerID string) (*models.Ticket, error)
	// Wait blocks until in-flight notifications have finished.
	Wait()
}

type PurchaseConfig struct {
	Timeout             time.Duration
	CompensationTimeout time.Duration
	NotificationTimeout time.Duration
}

type purchaseService struct {
	ledger InventoryLedger
	issuer TicketIssuer
	sink   NotificationSink
	cfg    PurchaseConfig

	inflight sync.WaitGroup
}

// NewPurchaseService wires the purchase flow. sink may be nil.
func NewPurchaseService(ledger InventoryLedger, issuer TicketIssuer, sink NotificationSink, cfg PurchaseConfig) PurchaseService {
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = 10 * time.Second
	}
	if cfg.NotificationTimeout <= 0 {
		cfg.NotificationTimeout = 3 * time.Second
	}
	return &purchaseService{
		ledger: ledger,
		issuer: issuer,
		sink:   sink,
		cfg:    cfg,
	}
}

func (s *purchaseService) Purchase(ctx context.Context, req PurchaseRequest) PurchaseResult {
	start := time.Now()
	result := s.purchase(ctx, req)

	outcome := "success"
	if !result.Success {
		outcome = string(result.Reason)
	}
	metrics.PurchaseOutcomes.WithLabelValues(outcome).Inc()
	metrics.PurchaseDuration.Observe(time.Since(start).Seconds())
	return result
}

func (s *purchaseService) purchase(ctx context.Context, req PurchaseRequest) PurchaseResult {
	if strings.TrimSpace(req.CallerID) == "" {
		return denied(models.ReasonUnauthenticated)
	}
	if _, err := uuid.Parse(req.EventID); err != nil {
		return denied(models.ReasonEventNotFound)
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	token := IdempotencyToken(req.CallerID, req.EventID, req.IdempotencyKey)
	logger := log.With().
		Str("event_id", req.EventID).
		Str("buyer_id", req.CallerID).
		Str("token", token).
		Logger()

	outcome := s.ledger.Reserve(ctx, req.EventID, req.CallerID, token)
	if !outcome.Granted {
		logger.Debug().Str("reason", string(outcome.Reason)).Msg("purchase denied")
		return denied(outcome.Reason)
	}

	ticket, created, err := s.issuer.Issue(ctx, req.EventID, req.CallerID, token)
	if err != nil {
		if errors.Is(err, models.ErrReservationReleased) {
			// The reconciler reclaimed the unit first; nothing is held for us.
			logger.Warn().Msg("reservation released before issuance")
			return denied(models.ReasonTransientConflict)
		}
		logger.Warn().Err(err).Msg("ticket issuance failed, compensating")
		ticket = s.compensate(ctx, logger, req, token, err)
		if ticket == nil {
			return denied(models.ReasonTransientConflict)
		}
		created = true
	}

	if created {
		t := *ticket
		s.notify("ticket.purchased", func(ctx context.Context) error {
			return s.sink.TicketPurchased(ctx, t)
		})
		logger.Info().Str("ticket_id", ticket.ID).Msg("ticket issued")
	}
	return PurchaseResult{Success: true, Ticket: ticket, Replayed: outcome.Replayed}
}

// compensate returns the reserved unit after a failed issuance. It runs on a
// context detached from the caller so a timed-out request still compensates.
// A non-nil ticket means the issuance had in fact committed.
func (s *purchaseService) compensate(ctx context.Context, logger zerolog.Logger, req PurchaseRequest, token string, cause error) *models.Ticket {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	err := s.ledger.Release(cctx, token)
	switch {
	case err == nil:
		metrics.Compensations.WithLabelValues("released").Inc()
		logger.Info().Msg("reservation released after failed issuance")
		return nil
	case errors.Is(err, models.ErrReservationIssued):
		ticket, _, ierr := s.issuer.Issue(cctx, req.EventID, req.CallerID, token)
		if ierr == nil {
			metrics.Compensations.WithLabelValues("recovered").Inc()
			return ticket
		}
		err = ierr
	}

	metrics.Compensations.WithLabelValues("stranded").Inc()
	logger.Error().Err(err).Msg("compensation failed, flagging reservation for reconciliation")
	if serr := s.ledger.Strand(cctx, token, cause.Error()); serr != nil {
		logger.Error().Err(serr).Msg("could not flag reservation; reconciler will reclaim it once stale")
	}
	return nil
}

func (s *purchaseService) CancelTicket(ctx context.Context, ticketID, callerID string) (*models.Ticket, error) {
	ticket, err := s.issuer.Cancel(ctx, ticketID, callerID)
	if err != nil {
		return nil, err
	}
	t := *ticket
	s.notify("ticket.cancelled", func(ctx context.Context) error {
		return s.sink.TicketCancelled(ctx, t)
	})
	return ticket, nil
}

func (s *purchaseService) notify(kind string, send func(ctx context.Context) error) {
	if s.sink == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotificationTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			log.Warn().Err(err).Str("kind", kind).Msg("notification failed")
		}
	}()
}

func (s *purchaseService) Wait() {
	s.inflight.Wait()
}
