package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Refresher reloads the named refresh targets.
type Refresher interface {
	Refresh(ctx context.Context, targets []string) error
}

// CronTriggerManager manages multiple CronTrigger instances with different targets and schedules.
type CronTriggerManager struct {
	triggers []*CronTrigger
	specs    []TriggerSpec
	logger   *slog.Logger
}

// NewCronTriggerManager creates a new CronTriggerManager from a multi-trigger specification.
// The spec format is: target1,target2:cron_expression;target3:cron_expression2
//
// Returns an error if:
//   - The spec is invalid or cannot be parsed
//   - Any target name is not in availableTargets
//   - Any cron expression is invalid
func NewCronTriggerManager(spec string, refresher Refresher, logger *slog.Logger, availableTargets map[string]bool) (*CronTriggerManager, error) {
	triggerSpecs, err := ParseTriggerSpecs(spec, availableTargets)
	if err != nil {
		return nil, err
	}

	triggers := make([]*CronTrigger, 0, len(triggerSpecs))
	for _, spec := range triggerSpecs {
		targets := spec.Targets
		run := func(ctx context.Context) error {
			return refresher.Refresh(ctx, targets)
		}

		trigger, err := NewCronTrigger(spec.CronSpec, run, logger)
		if err != nil {
			return nil, fmt.Errorf("creating trigger for '%s:%s': %w",
				strings.Join(spec.Targets, ","), spec.CronSpec, err)
		}
		triggers = append(triggers, trigger)
	}

	for i, trigger := range triggers {
		logger.Info("refresh trigger registered",
			"index", i,
			"targets", triggerSpecs[i].Targets,
			"schedule", triggerSpecs[i].CronSpec,
			"next_run", trigger.NextRun(),
		)
	}

	return &CronTriggerManager{
		triggers: triggers,
		specs:    triggerSpecs,
		logger:   logger,
	}, nil
}

// Specs returns the parsed trigger specs.
func (m *CronTriggerManager) Specs() []TriggerSpec {
	return append([]TriggerSpec(nil), m.specs...)
}

// Start launches all triggers. Each trigger runs in its own goroutine.
// Returns immediately. All goroutines exit when ctx is cancelled.
func (m *CronTriggerManager) Start(ctx context.Context) {
	for _, trigger := range m.triggers {
		trigger.Start(ctx)
	}
}

// NextRun returns the earliest scheduled run time across all triggers.
// Returns zero time if there are no triggers.
func (m *CronTriggerManager) NextRun() time.Time {
	if len(m.triggers) == 0 {
		return time.Time{}
	}

	earliest := m.triggers[0].NextRun()
	for _, trigger := range m.triggers[1:] {
		if next := trigger.NextRun(); next.Before(earliest) {
			earliest = next
		}
	}
	return earliest
}
