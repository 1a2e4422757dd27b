package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nomis52/reactivities/action"
	"github.com/nomis52/reactivities/buildinfo"
	"github.com/nomis52/reactivities/clients/apiclient"
	"github.com/nomis52/reactivities/config"
	"github.com/nomis52/reactivities/logging"
	"github.com/nomis52/reactivities/metrics"
	"github.com/nomis52/reactivities/notice"
	"github.com/nomis52/reactivities/stores/rootstore"
)

// session is the state shared by one command invocation.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	log      *logging.Logger
	root     *rootstore.Root
	registry *metrics.PushRegistry
	out      io.Writer
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "reactivities",
		Usage: "browse and manage activities and profiles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars(config.EnvPrefix + "CONFIG"),
			},
		},
		Commands: []*cli.Command{
			versionCommand(),
			validateCommand(),
			activitiesCommand(),
			activityCommand(),
			attendCommand(true),
			attendCommand(false),
			whoamiCommand(),
			profileCommand(),
			followCommand(true),
			followCommand(false),
			followingsCommand(apiclient.Followers),
			followingsCommand(apiclient.Following),
			uploadCommand(),
			setMainCommand(),
			deletePhotoCommand(),
			editProfileCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			props := buildinfo.Get()
			fmt.Fprintf(cmd.Root().Writer, "reactivities\nBuilt: %s\nCommit: %s\n", props.BuildTime, props.GitCommit)
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "validate the configuration and exit",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Root().String("config")
			if _, err := config.Load(ctx, path); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Fprintf(cmd.Root().Writer, "Configuration validation successful: %s\n", path)
			return nil
		},
	}
}

// withSession wraps a command action: it builds and bootstraps a root from the
// config, runs fn and pushes the action metrics when a push URL is configured.
func withSession(fn func(ctx context.Context, cmd *cli.Command, s *session) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		if err := bootstrap(ctx, s); err != nil {
			return err
		}
		return fn(ctx, cmd, s)
	}
}

func openSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg, err := config.Load(ctx, cmd.Root().String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s := &session{cfg: cfg, logger: l.Logger, log: l, out: cmd.Root().Writer}

	actions := metrics.NopActionMetrics()
	if cfg.Monitoring.PushURL != "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to get hostname: %w", err)
		}
		s.registry = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.PushURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
		})
		if actions, err = metrics.NewActionMetrics(s.registry); err != nil {
			return nil, fmt.Errorf("creating action metrics: %w", err)
		}
	}

	client, err := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithToken(cfg.API.Token),
		apiclient.WithLogger(s.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	s.root = rootstore.New(client, s.logger,
		rootstore.WithNoticeOptions(notice.WithTTL(cfg.Notices.TTL)),
		rootstore.WithMetrics(actions),
	)
	return s, nil
}

func bootstrap(ctx context.Context, s *session) error {
	if s.cfg.API.Token == "" && s.cfg.User.Username != "" {
		return s.root.BootstrapAs(ctx, apiclient.User{
			Username:    s.cfg.User.Username,
			DisplayName: s.cfg.User.DisplayName,
		})
	}
	return s.root.Bootstrap(ctx)
}

func (s *session) close(ctx context.Context) {
	s.root.Close()
	if s.registry != nil {
		if err := s.registry.Flush(ctx); err != nil {
			s.logger.Warn("failed to push metrics", "error", err)
		}
	}
	_ = s.log.Close()
}

// check turns a failed result into an error carrying the notice shown to the user.
func (s *session) check(result action.Result) error {
	if result.OK() {
		return nil
	}
	if active := s.root.Notices.Active(); len(active) > 0 {
		return fmt.Errorf("%s: %w", active[len(active)-1].Message, result.Err)
	}
	return result.Err
}

// errUsage is returned when a command is missing its arguments.
var errUsage = errors.New("missing arguments")

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() < n {
		return fmt.Errorf("%w: usage: %s %s", errUsage, cmd.FullName(), cmd.ArgsUsage)
	}
	return nil
}
