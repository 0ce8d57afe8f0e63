// Package sweeper runs the periodic maintenance passes: expiring stale
// postings and auto-resolving disputes whose review deadline lapsed.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/quickhire-gh/quickhire/internal/quickhire"
	"github.com/quickhire-gh/quickhire/internal/store"
)

// Sweeper drives the expiry and dispute sweeps on a fixed interval.
// Sweep failures are logged and retried on the next tick; they never
// stop the loop.
type Sweeper struct {
	store    store.Store
	service  *quickhire.Service
	interval time.Duration
	batch    int
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Sweeper. batch bounds how many due disputes one tick
// resolves.
func New(st store.Store, svc *quickhire.Service, interval time.Duration, batch int, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		store:    st,
		service:  svc,
		interval: interval,
		batch:    batch,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps until ctx is cancelled. One sweep runs immediately so a
// restarted server catches up without waiting a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("sweeper started", "interval", s.interval)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single maintenance pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now().UTC()

	expired, err := s.store.ExpireStaleJobs(ctx, now)
	if err != nil {
		s.logger.Error("expiring stale jobs failed", "error", err)
	} else if expired > 0 {
		s.logger.Info("expired stale jobs", "count", expired)
	}

	resolved, err := s.service.AutoResolveDueDisputes(ctx, s.batch)
	if err != nil {
		s.logger.Error("auto-resolving disputes failed", "error", err)
	} else if resolved > 0 {
		s.logger.Info("auto-resolved disputes", "count", resolved)
	}
}
