// Package worker drives the background cadences: hourly consistency sync,
// daily validation and repair, weekly orphan sweep.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/consistency"
	"github.com/spec-kit/sla-engine/internal/integrity"
	"github.com/spec-kit/sla-engine/internal/sla"
)

// Scheduler serializes all background work in a single goroutine, so two
// passes never contend over the same rows.
type Scheduler struct {
	synchronizer  *consistency.Synchronizer
	enforcer      *integrity.Enforcer
	manager       *integrity.Manager
	monitor       *sla.Monitor
	cfg           config.SchedulerConfig
	warningWindow time.Duration
	logger        *zap.Logger
	trigger       chan struct{}
}

// NewScheduler constructs a Scheduler. warningWindow is how far ahead of a
// due date the post-sync breach scan looks.
func NewScheduler(
	synchronizer *consistency.Synchronizer,
	enforcer *integrity.Enforcer,
	manager *integrity.Manager,
	monitor *sla.Monitor,
	cfg config.SchedulerConfig,
	warningWindow time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		synchronizer:  synchronizer,
		enforcer:      enforcer,
		manager:       manager,
		monitor:       monitor,
		cfg:           cfg,
		warningWindow: warningWindow,
		logger:        logger,
		trigger:       make(chan struct{}, 1),
	}
}

// RunNow requests an immediate sync cycle. Non-blocking; a pending request
// coalesces with a new one.
func (s *Scheduler) RunNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled, executing cycles on their cadences. An
// initial sync runs at startup so a restarted engine catches up immediately.
func (s *Scheduler) Run(ctx context.Context) {
	syncTicker := time.NewTicker(s.cfg.SyncInterval)
	validationTicker := time.NewTicker(s.cfg.ValidationInterval)
	sweepTicker := time.NewTicker(s.cfg.SweepInterval)
	defer syncTicker.Stop()
	defer validationTicker.Stop()
	defer sweepTicker.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("sync_interval", s.cfg.SyncInterval),
		zap.Duration("validation_interval", s.cfg.ValidationInterval),
		zap.Duration("sweep_interval", s.cfg.SweepInterval),
	)
	s.syncCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-s.trigger:
			s.syncCycle(ctx)
		case <-syncTicker.C:
			s.syncCycle(ctx)
		case <-validationTicker.C:
			s.validationCycle(ctx)
		case <-sweepTicker.C:
			s.sweepCycle(ctx)
		}
	}
}

func (s *Scheduler) syncCycle(ctx context.Context) {
	reports := s.synchronizer.RunAll(ctx)
	var total int64
	for _, report := range reports {
		total += report.RowsAffected
	}
	s.logger.Info("sync cycle finished", zap.Int64("rows_affected", total))

	warned, err := s.monitor.ApproachingBreach(ctx, time.Now().UTC(), s.warningWindow)
	if err != nil {
		s.logger.Error("breach warning scan failed", zap.Error(err))
		return
	}
	if len(warned) > 0 {
		s.logger.Info("breach warnings raised", zap.Int("tickets", len(warned)))
	}
}

func (s *Scheduler) validationCycle(ctx context.Context) {
	result, err := s.enforcer.Validate(ctx)
	if err != nil {
		s.logger.Error("validation cycle failed", zap.Error(err))
		return
	}
	report, err := s.enforcer.AutoRepair(ctx, result, false)
	if err != nil {
		s.logger.Error("auto repair failed", zap.Error(err))
		return
	}
	s.logger.Info("validation cycle finished",
		zap.Int("checks_run", report.ChecksRun),
		zap.Int64("auto_fixed", report.AutoFixed),
		zap.Int("manual_review", len(report.ManualReviewItems)),
	)
}

func (s *Scheduler) sweepCycle(ctx context.Context) {
	sweeps, err := s.manager.SweepOrphans(ctx)
	if err != nil {
		s.logger.Error("orphan sweep failed", zap.Error(err))
		return
	}
	var total int64
	for _, sweep := range sweeps {
		total += sweep.RowsAffected
	}
	s.logger.Info("orphan sweep finished", zap.Int64("rows_affected", total))
}
