package worker

import (
	"context"
	"log/slog"
	"time"
)

// Trimmer removes queued events older than a cutoff.
type Trimmer interface {
	Trim(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention periodically trims the registry event queue so events nobody
// consumed do not accumulate forever.
type Retention struct {
	queue    Trimmer
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewRetention(queue Trimmer, maxAge, interval time.Duration, logger *slog.Logger) *Retention {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Retention{
		queue:    queue,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the trim loop until ctx is cancelled.
func (r *Retention) Start(ctx context.Context) {
	r.logger.Info("event retention started", "max_age", r.maxAge, "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("event retention stopping")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Retention) sweep(ctx context.Context) {
	removed, err := r.queue.Trim(ctx, r.now().Add(-r.maxAge))
	if err != nil {
		r.logger.Error("failed to trim event queue", "error", err)
		return
	}
	if removed > 0 {
		r.logger.Debug("trimmed event queue", "removed", removed)
	}
}
