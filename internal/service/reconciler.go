package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Eursukkul/ticketing-service/internal/metrics"
	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/Eursukkul/ticketing-service/internal/repository"
)

type ReconcilerConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

// Reconciler returns capacity held by reservations that never became tickets:
// stranded ones, and reserved ones abandoned by a crashed purchase.
type Reconciler struct {
	repo   repository.LedgerRepository
	ledger InventoryLedger
	cfg    ReconcilerConfig
	now    func() time.Time
}

type SweepReport struct {
	Scanned  int
	Released int
	Skipped  int
	Failed   int
}

func NewReconciler(repo repository.LedgerRepository, ledger InventoryLedger, cfg ReconcilerConfig) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Reconciler{repo: repo, ledger: ledger, cfg: cfg, now: time.Now}
}

// Run sweeps every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", r.cfg.Interval).Dur("stale_after", r.cfg.StaleAfter).Msg("reconciler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconciler stopped")
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("reconcile sweep failed")
			}
		}
	}
}

func (r *Reconciler) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	candidates, err := r.repo.FindReclaimable(ctx, r.now().Add(-r.cfg.StaleAfter), r.cfg.BatchSize)
	if err != nil {
		return report, err
	}
	report.Scanned = len(candidates)

	for _, res := range candidates {
		err := r.ledger.Release(ctx, res.Token)
		switch {
		case err == nil:
			report.Released++
			metrics.Reconciled.WithLabelValues("released").Inc()
		case errors.Is(err, models.ErrReservationIssued):
			// issued between the scan and the release
			report.Skipped++
			metrics.Reconciled.WithLabelValues("skipped").Inc()
		default:
			report.Failed++
			metrics.Reconciled.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("token", res.Token).Int("attempts", res.Attempts+1).Msg("reconcile release failed")
			if serr := r.repo.MarkStranded(ctx, res.Token, err.Error()); serr != nil {
				log.Error().Err(serr).Str("token", res.Token).Msg("could not record reconcile failure")
			}
		}
	}

	if report.Scanned > 0 {
		log.Info().
			Int("scanned", report.Scanned).
			Int("released", report.Released).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Msg("reconcile sweep finished")
	}
	return report, nil
}
