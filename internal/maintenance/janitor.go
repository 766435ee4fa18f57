// Package maintenance removes rows that no longer affect any decision:
// rate-limit windows that have closed and revoked tokens past their expiry.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/internal/logging"
)

// Purger deletes rows that expired before now.
type Purger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Task is one named purge.
type Task struct {
	Name   string
	Purger Purger
}

// Janitor runs its tasks on a fixed interval.
type Janitor struct {
	tasks    []Task
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewJanitor creates a janitor. clock may be nil.
func NewJanitor(interval time.Duration, clock clockwork.Clock, logger *slog.Logger, tasks ...Task) *Janitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{tasks: tasks, interval: interval, clock: clock, logger: logger}
}

// RunOnce runs every task once. Failures are logged and do not stop the
// remaining tasks.
func (j *Janitor) RunOnce(ctx context.Context) {
	now := j.clock.Now()
	for _, task := range j.tasks {
		n, err := task.Purger.DeleteExpired(ctx, now)
		if err != nil {
			j.logger.Warn("purge failed", "task", task.Name, logging.Err(err))
			continue
		}
		if n > 0 {
			j.logger.Debug("purged expired rows", "task", task.Name, "rows", n)
		}
	}
}

// Run purges every interval until ctx is cancelled. A non-positive interval
// disables the janitor.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			j.RunOnce(ctx)
		}
	}
}
