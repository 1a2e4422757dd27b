// Package runner executes store refreshes for the gateway.
//
// The runner handles:
//   - Preventing concurrent refreshes
//   - Tracking the current run status
//   - Maintaining a history of completed runs
//
// A refresh names the stores to reload ("activities", "profile", "user"). Runs
// started by the schedule and by the API share one runner, so at most one
// refresh is in flight.
//
// # Example
//
//	r := runner.New(logger, refreshStores)
//
//	if err := r.Run(ctx, runner.TriggerAPI, []string{"activities"}); err != nil {
//	    if errors.Is(err, runner.ErrRunInProgress) {
//	        // Handle concurrent run attempt
//	    }
//	}
//
//	history := r.History() // Most recent first
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxHistory is the number of runs kept when no limit is configured.
const DefaultMaxHistory = 100

// ErrRunInProgress is returned when attempting to start a run while one is already running.
var ErrRunInProgress = errors.New("refresh already in progress")

// RefreshFunc reloads the named stores.
type RefreshFunc func(ctx context.Context, targets []string) error

// Runner manages refresh execution.
type Runner struct {
	logger  *slog.Logger
	refresh RefreshFunc
	store   StateStore
	now     func() time.Time

	mu        sync.Mutex
	runStatus RunStatus
}

// Option configures a Runner.
type Option func(*Runner)

// WithStateStore configures the runner to use the provided store for persistence.
func WithStateStore(store StateStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// New creates a new Runner.
func New(logger *slog.Logger, refresh RefreshFunc, opts ...Option) *Runner {
	r := &Runner{
		logger:    logger,
		refresh:   refresh,
		store:     NewMemoryStore(DefaultMaxHistory),
		now:       time.Now,
		runStatus: RunStatus{State: RunStateIdle},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run refreshes targets and blocks until done. It returns ErrRunInProgress if a
// run is already in progress, otherwise the refresh error.
func (r *Runner) Run(ctx context.Context, trigger string, targets []string) error {
	if !r.tryStart(trigger, targets) {
		return ErrRunInProgress
	}

	r.logger.InfoContext(ctx, "starting refresh", "trigger", trigger, "targets", targets)
	err := r.refresh(ctx, targets)
	r.finish(err)
	return err
}

// Triggered returns a view of r whose Refresh method records runs as started by
// trigger. It satisfies the refresh schedule's Refresher interface.
func (r *Runner) Triggered(trigger string) *Triggered {
	return &Triggered{runner: r, trigger: trigger}
}

// Triggered runs refreshes on behalf of one trigger.
type Triggered struct {
	runner  *Runner
	trigger string
}

// Refresh runs a refresh of targets.
func (t *Triggered) Refresh(ctx context.Context, targets []string) error {
	return t.runner.Run(ctx, t.trigger, targets)
}

// Status returns the current run status, or the last completed one when idle.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runStatus.clone()
}

// IsRunning returns true if a refresh is in progress.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runStatus.State == RunStateRunning
}

// History returns the history of completed runs, most recent first.
func (r *Runner) History() []RunStatus {
	return r.store.Runs()
}

// tryStart attempts to transition from idle to running.
// Returns true if successful, false if already running.
func (r *Runner) tryStart(trigger string, targets []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runStatus.State == RunStateRunning {
		return false
	}

	now := r.now()
	r.runStatus = RunStatus{
		ID:        uuid.NewString(),
		State:     RunStateRunning,
		Trigger:   trigger,
		Targets:   append([]string(nil), targets...),
		StartedAt: &now,
	}
	return true
}

// finish transitions from running to idle and records the result.
func (r *Runner) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	endTime := r.now()
	r.runStatus.State = RunStateIdle
	r.runStatus.EndedAt = &endTime

	if err != nil {
		r.runStatus.Error = err.Error()
		r.logger.Error("refresh failed", "error", err, "duration", r.runStatus.Duration())
	} else {
		r.runStatus.Error = ""
		r.logger.Info("refresh completed", "duration", r.runStatus.Duration())
	}

	if err := r.store.Save(r.runStatus.clone()); err != nil {
		r.logger.Error("failed to save run to store", "error", err)
	}
}
