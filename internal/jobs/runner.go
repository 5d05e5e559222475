package jobs

import (
	"context"
	"log/slog"
	"time"

	"qtumor/internal/config"
)

// Runner performs periodic maintenance on the handle store. Remote jobs
// execute on the quantum service, so the only local background work is
// retention.
type Runner struct {
	cfg    *config.Config
	store  HandleStore
	logger *slog.Logger
}

// NewRunner constructs a Runner with the given configuration and store.
func NewRunner(cfg *config.Config, st HandleStore, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  st,
		logger: logger,
	}
}

// Start launches the maintenance loop in the current goroutine and returns
// when ctx is cancelled. Callers typically run this in its own goroutine.
func (r *Runner) Start(ctx context.Context) {
	if !r.cfg.Retention.Enabled {
		return
	}

	interval := time.Duration(r.cfg.Retention.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.cleanup(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup(ctx)
		}
	}
}

func (r *Runner) cleanup(ctx context.Context) {
	stats, err := CleanupExpiredHandles(ctx, r.cfg, r.store)
	if r.logger == nil {
		return
	}
	if err != nil {
		r.logger.Error("retention_failed", "error", err)
		return
	}
	if stats.HandlesDeleted > 0 {
		r.logger.Info("retention_completed", "handles_deleted", stats.HandlesDeleted)
	}
}
