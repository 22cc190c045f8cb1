package digest

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler fires the digest once a day at a fixed local hour. It is
// the in-process stand-in for an external cron trigger; deployments
// that prefer cron run `yakbot digest` instead and leave this off.
type Scheduler struct {
	hour   int
	run    func(ctx context.Context)
	logger *slog.Logger
}

// NewScheduler creates a daily scheduler. run is invoked once per
// firing; it owns its own error handling.
func NewScheduler(hour int, run func(ctx context.Context), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{hour: hour, run: run, logger: logger}
}

// Start blocks until ctx is cancelled, firing the digest at each next
// occurrence of the configured hour.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		next := nextRun(time.Now(), s.hour)
		s.logger.Info("digest scheduled", "next_run", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("digest scheduler stopping")
			return
		case <-timer.C:
			s.run(ctx)
		}
	}
}

// nextRun returns the next occurrence of the given local hour strictly
// after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
