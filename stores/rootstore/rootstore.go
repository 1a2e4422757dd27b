// Package rootstore builds the application's stores and the dependencies they share.
//
// One Root owns one of each store. They share a notice board, an action metrics sink
// and a keyed mutex, and each gets its own logger tagged with the store name. Nothing
// here is global; callers that need two independent worlds create two roots.
package rootstore

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/logging"
	"github.com/nomis52/reactivities/metrics"
	"github.com/nomis52/reactivities/notice"
	"github.com/nomis52/reactivities/stores/activitystore"
	"github.com/nomis52/reactivities/stores/profilestore"
	"github.com/nomis52/reactivities/stores/userstore"
)

// Store names, used for runner names, logger tags and metric labels.
const (
	ActivityStore = "activity"
	ProfileStore  = "profile"
	UserStore     = "user"
)

// API is everything the stores need from the API client.
type API interface {
	activitystore.API
	profilestore.API
	userstore.API
}

// Root holds the stores.
type Root struct {
	Activities *activitystore.Store
	Profiles   *profilestore.Store
	Users      *userstore.Store
	Notices    *notice.Board

	logger   *slog.Logger
	hook     logging.LoggerHook
	disposes []func()
}

type options struct {
	noticeOpts []notice.Option
	metrics    *metrics.ActionMetrics
	hook       logging.LoggerHook
}

// Option configures New.
type Option func(*options)

// WithNoticeOptions passes options to the shared notice board.
func WithNoticeOptions(opts ...notice.Option) Option {
	return func(o *options) {
		o.noticeOpts = append(o.noticeOpts, opts...)
	}
}

// WithMetrics records every store action in m.
func WithMetrics(m *metrics.ActionMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLoggerHook sets how store loggers are derived from the base logger. The
// default only tags records with the store name.
func WithLoggerHook(hook logging.LoggerHook) Option {
	return func(o *options) {
		o.hook = hook
	}
}

// New creates the stores over api. The activity store marks activities against the
// user store's viewer, and the profile store pushes image and display name changes
// back to it.
func New(api API, logger *slog.Logger, opts ...Option) *Root {
	o := options{
		metrics: metrics.NopActionMetrics(),
		hook:    logging.TaggingHook{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	board := notice.New(logger, o.noticeOpts...)
	locks := &action.KeyedMutex{}

	storeLogger := func(store string) *slog.Logger {
		return o.hook.LoggerForStore(logger, store)
	}
	runner := func(store string) *action.Runner {
		return action.NewRunner(store,
			action.WithLogger(storeLogger(store)),
			action.WithNotices(board),
			action.WithMetrics(o.metrics),
			action.WithLocks(locks),
		)
	}

	users := userstore.New(api, runner(UserStore), storeLogger(UserStore))
	activities := activitystore.New(api, users, runner(ActivityStore), storeLogger(ActivityStore))
	profiles := profilestore.New(api, users, runner(ProfileStore), storeLogger(ProfileStore))

	r := &Root{
		Activities: activities,
		Profiles:   profiles,
		Users:      users,
		Notices:    board,
		logger:     logger,
		hook:       o.hook,
	}
	r.disposes = append(r.disposes, users.OnUserChange(func(ctx context.Context, prev, next string) {
		logger.DebugContext(ctx, "viewer changed", "from", prev, "to", next)
		activities.RefreshViewerFlags(ctx)
	}))
	return r
}

// Collector returns the log collector when the logger hook captures records.
func (r *Root) Collector() (*logging.Collector, bool) {
	c, ok := r.hook.(*logging.CapturingLoggerHook)
	if !ok {
		return nil, false
	}
	return c.Collector(), true
}

// Bootstrap loads the current user and the activity list concurrently. It returns
// the first failure; the other load still runs to completion.
func (r *Root) Bootstrap(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		if result := r.Users.LoadCurrentUser(ctx); result.Err != nil {
			return fmt.Errorf("bootstrap: %w", result.Err)
		}
		return nil
	})
	g.Go(func() error {
		if result := r.Activities.LoadActivities(ctx); result.Err != nil {
			return fmt.Errorf("bootstrap: %w", result.Err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "bootstrap complete")
	return nil
}

// BootstrapAs makes user the current user without asking the API, then loads the
// activity list. It serves deployments where the viewer is configured rather than
// identified by a token.
func (r *Root) BootstrapAs(ctx context.Context, user apiclient.User) error {
	r.Users.SetUser(ctx, user)
	if result := r.Activities.LoadActivities(ctx); result.Err != nil {
		return fmt.Errorf("bootstrap: %w", result.Err)
	}
	r.logger.InfoContext(ctx, "bootstrap complete", "viewer", user.Username)
	return nil
}

// Close removes the cross-store reactions.
func (r *Root) Close() {
	for _, dispose := range r.disposes {
		dispose()
	}
	r.disposes = nil
	r.Profiles.Close()
}
