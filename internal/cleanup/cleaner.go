package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Expirer drops idle state and reports what it removed
type Expirer interface {
	Expire(ctx context.Context) ([]string, error)
}

// Cleaner periodically expires idle client sessions
type Cleaner struct {
	target   Expirer
	interval time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(target Expirer, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		target:   target,
		interval: interval,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup cycle and returns the number of
// expired sessions
func (c *Cleaner) RunOnce(ctx context.Context) int {
	slog.Debug("running cleanup cycle")

	expired, err := c.target.Expire(ctx)
	if err != nil {
		slog.Error("cleanup cycle interrupted", "error", err, "expired", len(expired))
		return len(expired)
	}

	if len(expired) == 0 {
		slog.Debug("no idle sessions found")
		return 0
	}

	for _, id := range expired {
		slog.Debug("session expired", "client_id", id)
	}
	slog.Info("expired idle sessions", "count", len(expired))
	return len(expired)
}
