// Package cron provides cron-based scheduling of background store refreshes.
//
// A CronTrigger calls a function according to a cron schedule. A CronTriggerManager
// builds one trigger per entry of a multi-trigger spec such as
// "activities,profile:*/5 * * * *;user:0 * * * *".
//
// Example usage:
//
//	trigger, err := cron.NewCronTrigger("*/5 * * * *", refresh, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trigger.Start(ctx)  // Returns immediately, runs in background
//	<-ctx.Done()        // Wait for shutdown signal
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// RunFunc is called each time a trigger fires.
type RunFunc func(ctx context.Context) error

// CronTrigger executes a RunFunc according to a cron schedule.
type CronTrigger struct {
	spec     string
	schedule cron.Schedule
	run      RunFunc
	logger   *slog.Logger
	now      func() time.Time
}

// NewCronTrigger creates a new CronTrigger with the given cron specification.
// The spec follows standard cron format (5 fields: minute, hour, day, month, weekday).
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewCronTrigger(spec string, run RunFunc, logger *slog.Logger) (*CronTrigger, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	return &CronTrigger{
		spec:     spec,
		schedule: schedule,
		run:      run,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start launches a goroutine that triggers runs according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(ct.now())
}

func (ct *CronTrigger) loop(ctx context.Context) {
	for {
		nextRun := ct.schedule.Next(ct.now())
		waitDuration := nextRun.Sub(ct.now())

		ct.logger.Debug("waiting for next scheduled refresh",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			ct.executeRun(ctx)
		}
	}
}

func (ct *CronTrigger) executeRun(ctx context.Context) {
	ct.logger.Info("starting scheduled refresh", "schedule", ct.spec)

	if err := ct.run(ctx); err != nil {
		ct.logger.Warn("scheduled refresh completed with error", "error", err)
	} else {
		ct.logger.Info("scheduled refresh completed successfully")
	}
}
