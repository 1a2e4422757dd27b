package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nomis52/reactivities/logging"
	"github.com/nomis52/reactivities/metrics"
	"github.com/nomis52/reactivities/notice"
)

// Runner executes the actions of one store.
type Runner struct {
	store   string
	logger  *slog.Logger
	notices *notice.Board
	metrics *metrics.ActionMetrics
	locks   *KeyedMutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger failures are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithNotices sets the board failure notices are posted to.
func WithNotices(board *notice.Board) Option {
	return func(r *Runner) {
		r.notices = board
	}
}

// WithMetrics sets the sink for action metrics.
func WithMetrics(m *metrics.ActionMetrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLocks sets the mutex used for actions that carry a key.
func WithLocks(locks *KeyedMutex) Option {
	return func(r *Runner) {
		r.locks = locks
	}
}

// NewRunner creates a Runner for the named store.
func NewRunner(store string, opts ...Option) *Runner {
	r := &Runner{
		store:   store,
		logger:  logging.Discard(),
		metrics: metrics.NopActionMetrics(),
		locks:   &KeyedMutex{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store name.
func (r *Runner) Store() string {
	return r.store
}

// Spec describes one action invocation.
type Spec struct {
	// Name is the action name within the store, e.g. "create".
	Name string
	// Key, when set, serializes this action with every other action on the same key.
	Key string
	// Notice is the message shown to the user on failure. Empty means no notice.
	Notice string
}

// Run executes call as the action described by spec and returns its Result.
//
// commit, if non-nil, is called exactly once with the Result before Run returns,
// while the key is still held. Stores apply the outcome and lower their busy flag in
// commit, so two actions on the same key reach the state in the order they reached
// the API.
func (r *Runner) Run(ctx context.Context, spec Spec, call func(ctx context.Context) error, commit func(Result)) Result {
	result := r.run(ctx, spec, call)
	if result.unlock != nil {
		defer result.unlock()
	}
	if commit != nil {
		commit(result.Result)
	}
	return result.Result
}

type runResult struct {
	Result
	unlock func()
}

func (r *Runner) run(ctx context.Context, spec Spec, call func(ctx context.Context) error) runResult {
	name := r.store + "." + spec.Name

	var unlock func()
	if spec.Key != "" {
		var err error
		unlock, err = r.locks.Lock(ctx, r.store+"/"+spec.Key)
		if err != nil {
			return runResult{Result: r.fail(ctx, name, spec, fmt.Errorf("waiting for %s: %w", spec.Key, err))}
		}
	}

	done := r.metrics.Started(r.store, spec.Name)
	err := call(ctx)
	done(err)

	if err != nil {
		return runResult{Result: r.fail(ctx, name, spec, err), unlock: unlock}
	}
	r.logger.DebugContext(ctx, "action succeeded", "action", name)
	return runResult{Result: Succeeded(name), unlock: unlock}
}

// Succeed returns a successful Result for an action that completed without
// reaching the API, e.g. a cache hit.
func (r *Runner) Succeed(name string) Result {
	return Succeeded(r.store + "." + name)
}

// Reject returns a failed Result for an action that was refused before reaching the
// API. It is logged and noticed like any other failure.
func (r *Runner) Reject(ctx context.Context, spec Spec, err error) Result {
	return r.fail(ctx, r.store+"."+spec.Name, spec, err)
}

func (r *Runner) fail(ctx context.Context, name string, spec Spec, err error) Result {
	r.logger.ErrorContext(ctx, "action failed", "action", name, "error", err)
	if r.notices != nil && spec.Notice != "" {
		r.notices.Error(name, spec.Notice)
	}
	return Failed(name, err)
}
