package entitlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatforge/entitlement/pkg/logger"
)

// Sweeper runs the cleanup sweep on a fixed interval. It owns no state beyond
// the ticker; every pass goes through Service.Sweep, which is safe to run
// concurrently with request handlers and with other sweeper instances.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
}

// SweeperConfig holds scheduling configuration for the cleanup sweep.
type SweeperConfig struct {
	Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"` // Interval between cleanup passes.
}

// NewSweeper creates a sweep runner.
// Panics on a nil service to fail fast during initialization.
func NewSweeper(svc *Service, cfg SweeperConfig, log *slog.Logger) *Sweeper {
	if svc == nil {
		panic("entitlement: Service is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{svc: svc, interval: cfg.Interval, log: log}
}

// Start runs sweep passes until ctx is cancelled. The first pass runs
// immediately so a restart doesn't defer overdue cleanup by a full interval.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	started := time.Now()
	cleaned, err := s.svc.Sweep(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "cleanup sweep failed", logger.Error(err))
		return
	}
	s.log.InfoContext(ctx, "cleanup sweep completed",
		slog.Int("cleaned", cleaned),
		logger.Duration(time.Since(started)))
}
