// Package scheduler runs jobs once a day at a fixed wall-clock time.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is one scheduled run. Its error is logged and the schedule continues.
type Job func(ctx context.Context) error

// NextRun returns the first hour:min strictly after now, in now's location.
func NextRun(now time.Time, hour, min int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunDaily invokes job every day at hour:min local time until ctx is cancelled.
func RunDaily(ctx context.Context, name string, hour, min int, logger *zap.Logger, job Job) {
	runDaily(ctx, name, hour, min, logger, job, time.Now)
}

func runDaily(ctx context.Context, name string, hour, min int, logger *zap.Logger, job Job, now func() time.Time) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("job", name))

	for {
		current := now()
		next := NextRun(current, hour, min)
		log.Info("job_scheduled", zap.Time("next_run", next))

		timer := time.NewTimer(next.Sub(current))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("job_schedule_stopped")
			return
		case <-timer.C:
		}

		start := time.Now()
		if err := job(ctx); err != nil {
			log.Error("job_failed", zap.Error(err), zap.Duration("took", time.Since(start)))
			continue
		}
		log.Info("job_finished", zap.Duration("took", time.Since(start)))
	}
}
