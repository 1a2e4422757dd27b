// Package server provides the local HTTP gateway over the reactivities stores.
//
// The gateway owns one root store built from the current configuration and exposes
// the store operations as a JSON API, plus a websocket stream of state changes.
//
// # Endpoints
//
//   - GET /health - Simple health check, returns "ok"
//   - GET /api/info - Build and runtime properties, next scheduled refresh
//   - GET /api/state - Snapshot of every store
//   - GET|POST /api/activities... - Activity store operations
//   - GET|POST|PUT|DELETE /api/profile(s)... - Profile store operations
//   - GET|DELETE /api/notices - Active notices
//   - GET /api/diagnostics - Recent log records per store
//   - GET /api/stream - Websocket stream of state frames
//   - POST /api/refresh - Reloads the named stores from the API
//   - GET /api/refresh - Current or last refresh run
//   - GET /api/history - Finished refresh runs, most recent first
//   - GET /config - Returns current configuration as YAML
//   - POST /reload - Reloads configuration from disk
//   - GET /metrics - Prometheus metrics
//
// # Architecture
//
// Config-derived dependencies (the config, the API client and the root store) are
// swapped atomically on reload. Handlers fetch the root on every request, so a
// reload takes effect on the next request without interrupting one in flight. The
// metrics registry and the log collector outlive reloads.
//
// # Example
//
//	srv, err := server.New(ctx, "/etc/reactivities/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"

	"github.com/nomis52/reactivities/buildinfo"
	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/config"
	"github.com/nomis52/reactivities/logging"
	"github.com/nomis52/reactivities/metrics"
	"github.com/nomis52/reactivities/notice"
	"github.com/nomis52/reactivities/server/cron"
	"github.com/nomis52/reactivities/server/handlers"
	"github.com/nomis52/reactivities/server/runner"
	"github.com/nomis52/reactivities/server/types"
	"github.com/nomis52/reactivities/stores/rootstore"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultLogCapacity     = 200
)

// Refresh targets accepted by Refresh and the refresh schedule.
const (
	TargetActivities = "activities"
	TargetProfile    = "profile"
	TargetUser       = "user"
)

// AvailableTargets lists every refresh target.
var AvailableTargets = map[string]bool{
	TargetActivities: true,
	TargetProfile:    true,
	TargetUser:       true,
}

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config *config.Config
	client *apiclient.Client
	root   *rootstore.Root
}

// Server is the HTTP gateway.
type Server struct {
	configPath string
	lookuper   envconfig.Lookuper
	addr       string
	logger     *slog.Logger
	hook       *logging.CapturingLoggerHook
	registry   *metrics.ScrapeRegistry
	actions    *metrics.ActionMetrics
	runner     *runner.Runner
	startedAt  time.Time
	hostname   string

	reloadMu    sync.Mutex
	deps        atomic.Pointer[serverDeps]
	httpServer  *http.Server
	cronManager *cron.CronTriggerManager
}

// Option configures a Server.
type Option func(*Server) error

// WithListenAddr overrides the configured listen address.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithLookuper reads environment overrides from l instead of the process environment.
func WithLookuper(l envconfig.Lookuper) Option {
	return func(s *Server) error {
		s.lookuper = l
		return nil
	}
}

// New creates a new Server with the given config path and options. It loads the
// configuration, builds the root store and bootstraps it. A failed bootstrap is
// logged and the server still starts; the stores can be loaded later.
func New(ctx context.Context, configPath string, opts ...Option) (*Server, error) {
	s := &Server{
		configPath: configPath,
		lookuper:   envconfig.OsLookuper(),
		hook:       logging.NewCapturingLoggerHook(logging.NewCollector(defaultLogCapacity)),
		startedAt:  time.Now(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadWith(ctx, configPath, s.lookuper)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if s.logger == nil {
		l, err := logging.New(logging.Config{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			Output:    cfg.Logging.Output,
			AddSource: cfg.Logging.AddSource,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		s.logger = l.Logger
	}
	if s.addr == "" {
		s.addr = cfg.Server.ListenAddr
	}

	if s.hostname, err = os.Hostname(); err != nil {
		s.hostname = "unknown"
	}

	if s.registry, err = metrics.NewScrapeRegistry(); err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	if s.actions, err = metrics.NewActionMetrics(s.registry); err != nil {
		return nil, fmt.Errorf("creating action metrics: %w", err)
	}

	var history runner.StateStore = runner.NewMemoryStore(cfg.Server.MaxHistory)
	if cfg.Server.StateDir != "" {
		if history, err = runner.NewDiskStore(cfg.Server.StateDir, cfg.Server.MaxHistory, s.logger); err != nil {
			return nil, fmt.Errorf("creating refresh history: %w", err)
		}
	}
	s.runner = runner.New(s.logger, s.refreshStores, runner.WithStateStore(history))

	if err := s.install(ctx, &cfg); err != nil {
		return nil, err
	}

	if cfg.Refresh.Schedule != "" {
		m, err := cron.NewCronTriggerManager(cfg.Refresh.Schedule, s.runner.Triggered(runner.TriggerCron), s.logger, AvailableTargets)
		if err != nil {
			return nil, fmt.Errorf("creating refresh schedule: %w", err)
		}
		s.cronManager = m
	}

	return s, nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Reload reads the config from disk and rebuilds the API client and root store.
// The refresh schedule and the logger keep their startup settings.
func (s *Server) Reload(ctx context.Context) error {
	cfg, err := config.LoadWith(ctx, s.configPath, s.lookuper)
	if err != nil {
		return err
	}
	return s.install(ctx, &cfg)
}

// install builds dependencies from cfg, bootstraps them and swaps them in.
func (s *Server) install(ctx context.Context, cfg *config.Config) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	client, err := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithToken(cfg.API.Token),
		apiclient.WithLogger(s.logger),
	)
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}

	root := rootstore.New(client, s.logger,
		rootstore.WithNoticeOptions(notice.WithTTL(cfg.Notices.TTL)),
		rootstore.WithMetrics(s.actions),
		rootstore.WithLoggerHook(s.hook),
	)

	if err := s.bootstrap(ctx, cfg, root); err != nil {
		s.logger.Warn("bootstrap failed, stores start empty", "error", err)
	}

	old := s.deps.Swap(&serverDeps{config: cfg, client: client, root: root})
	if old != nil {
		old.root.Close()
	}

	s.logger.Info("configuration loaded",
		"config_path", s.configPath,
		"api_base_url", cfg.API.BaseURL,
	)
	return nil
}

// bootstrap loads the viewer and the activity list. A configured username is used
// as the viewer when no token is set.
func (s *Server) bootstrap(ctx context.Context, cfg *config.Config, root *rootstore.Root) error {
	if cfg.API.Token == "" && cfg.User.Username != "" {
		return root.BootstrapAs(ctx, apiclient.User{
			Username:    cfg.User.Username,
			DisplayName: cfg.User.DisplayName,
		})
	}
	return root.Bootstrap(ctx)
}

// Config returns the current configuration.
func (s *Server) Config() *config.Config {
	return s.deps.Load().config
}

// Root returns the current root store.
func (s *Server) Root() *rootstore.Root {
	return s.deps.Load().root
}

// Refresh reloads the named stores and records the run. It returns
// runner.ErrRunInProgress while another refresh, scheduled or not, is running.
func (s *Server) Refresh(ctx context.Context, targets []string) error {
	return s.runner.Run(ctx, runner.TriggerAPI, targets)
}

// RefreshStatus returns the current refresh run, or the last one when idle.
func (s *Server) RefreshStatus() runner.RunStatus {
	return s.runner.Status()
}

// RefreshHistory returns finished refresh runs, most recent first.
func (s *Server) RefreshHistory() []runner.RunStatus {
	return s.runner.History()
}

// refreshStores reloads the named stores from the API concurrently. The profile
// target reloads the loaded profile and is a no-op when none is loaded.
func (s *Server) refreshStores(ctx context.Context, targets []string) error {
	root := s.Root()

	var g errgroup.Group
	for _, target := range targets {
		g.Go(func() error {
			var err error
			switch target {
			case TargetActivities:
				err = root.Activities.LoadActivities(ctx).Err
			case TargetUser:
				err = root.Users.LoadCurrentUser(ctx).Err
			case TargetProfile:
				st := root.Profiles.Snapshot()
				if st.Profile == nil {
					return nil
				}
				err = root.Profiles.LoadProfile(ctx, st.Profile.Username).Err
			default:
				err = errors.New("unknown target")
			}
			if err != nil {
				return fmt.Errorf("refreshing %s: %w", target, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Properties returns metadata about the running server.
func (s *Server) Properties() types.ServerProperties {
	return types.ServerProperties{
		Build:      buildinfo.Get(),
		StartedAt:  s.startedAt,
		Hostname:   s.hostname,
		APIBaseURL: s.Config().API.BaseURL,
	}
}

// NextRefresh returns the next scheduled refresh, or nil if no schedule is configured.
func (s *Server) NextRefresh() *time.Time {
	if s.cronManager == nil {
		return nil
	}
	next := s.cronManager.NextRun()
	if next.IsZero() {
		return nil
	}
	return &next
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// If a refresh schedule is configured, it is started automatically.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.Config()
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	tlsEnabled := cfg.Server.TLSEnabled()
	if tlsEnabled {
		loader, err := NewCertLoader(cfg.Server.TLSCert, cfg.Server.TLSKey, s.logger)
		if err != nil {
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		s.httpServer.TLSConfig = &tls.Config{
			GetCertificate: loader.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}
	}

	if s.cronManager != nil {
		s.logger.Info("starting refresh schedule", "next_run", s.cronManager.NextRun())
		s.cronManager.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", s.addr,
			"tls", tlsEnabled,
			"config_path", s.configPath,
		)
		var err error
		if tlsEnabled {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.Root().Close()
		return err
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	activities := handlers.NewActivityHandler(s)
	profiles := handlers.NewProfileHandler(s)
	notices := handlers.NewNoticesHandler(s)

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /api/info", handlers.NewInfoHandler(s))
	mux.Handle("GET /api/state", handlers.NewStateHandler(s))

	mux.HandleFunc("GET /api/activities", activities.List)
	mux.HandleFunc("POST /api/activities", activities.Create)
	mux.HandleFunc("POST /api/activities/load", activities.Load)
	mux.HandleFunc("GET /api/activities/{id}", activities.Get)
	mux.HandleFunc("PUT /api/activities/{id}", activities.Update)
	mux.HandleFunc("DELETE /api/activities/{id}", activities.Delete)
	mux.HandleFunc("POST /api/activities/{id}/attend", activities.Attend)
	mux.HandleFunc("DELETE /api/activities/{id}/attend", activities.CancelAttendance)

	mux.HandleFunc("GET /api/profiles/{username}", profiles.Get)
	mux.HandleFunc("POST /api/profiles/{username}/follow", profiles.Follow)
	mux.HandleFunc("DELETE /api/profiles/{username}/follow", profiles.Unfollow)
	mux.HandleFunc("PUT /api/profile", profiles.Edit)
	mux.HandleFunc("PUT /api/profile/tab", profiles.SetTab)
	mux.HandleFunc("POST /api/profile/photos", profiles.UploadPhoto)
	mux.HandleFunc("POST /api/profile/photos/{id}/main", profiles.SetMainPhoto)
	mux.HandleFunc("DELETE /api/profile/photos/{id}", profiles.DeletePhoto)

	mux.HandleFunc("GET /api/notices", notices.List)
	mux.HandleFunc("DELETE /api/notices/{id}", notices.Dismiss)
	mux.Handle("GET /api/diagnostics", handlers.NewDiagnosticsHandler(s))
	mux.Handle("GET /api/stream", handlers.NewStreamHandler(s.logger, s))
	mux.Handle("POST /api/refresh", handlers.NewRefreshHandler(s.logger, s, AvailableTargets))
	history := handlers.NewHistoryHandler(s)
	mux.HandleFunc("GET /api/refresh", history.Status)
	mux.HandleFunc("GET /api/history", history.List)

	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(s.logger, s))
	mux.Handle("GET /metrics", s.registry.Handler())
}
