package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "REACTIVITIES_"

	defaultBaseURL    = "http://localhost:5000/api"
	defaultAPITimeout = 30 * time.Second
	defaultNoticeTTL  = 5 * time.Second
	defaultListenAddr = ":8080"
	defaultMaxHistory = 100

	// Default monitoring settings
	defaultMetricsPrefix = "reactivities"
	defaultJobName       = "reactivities"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"
)

// Config represents the complete application configuration
type Config struct {
	API        APIConfig        `yaml:"api" env:",prefix=API_"`
	User       UserConfig       `yaml:"user" env:",prefix=USER_"`
	Notices    NoticesConfig    `yaml:"notices"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Server     ServerConfig     `yaml:"server" env:",prefix=SERVER_"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging" env:",prefix=LOGGING_"`
}

// APIConfig holds the settings of the remote API.
type APIConfig struct {
	// BaseURL is the root of the API, e.g. "http://localhost:5000/api".
	BaseURL string        `yaml:"base_url" env:"BASE_URL, overwrite"`
	Token   string        `yaml:"token" env:"TOKEN, overwrite"`
	Timeout time.Duration `yaml:"timeout"`
}

// UserConfig names the viewer to act as when no token is configured.
type UserConfig struct {
	Username    string `yaml:"username" env:"USERNAME, overwrite"`
	DisplayName string `yaml:"display_name"`
}

// NoticesConfig controls the notice board.
type NoticesConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// RefreshConfig schedules background reloads. Schedule is a trigger spec such as
// "activities,profile:*/5 * * * *"; empty disables scheduled refreshes.
type RefreshConfig struct {
	Schedule string `yaml:"schedule"`
}

// ServerConfig holds the gateway settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR, overwrite"`
	TLSCert    string `yaml:"tls_cert"`
	TLSKey     string `yaml:"tls_key"`
	// StateDir keeps refresh history on disk. Empty keeps it in memory.
	StateDir   string `yaml:"state_dir" env:"STATE_DIR, overwrite"`
	MaxHistory int    `yaml:"max_history"`
}

// TLSEnabled reports whether a certificate is configured.
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCert != "" && s.TLSKey != ""
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	// PushURL is a remote write endpoint. Empty disables pushing.
	PushURL       string `yaml:"push_url"`
	MetricsPrefix string `yaml:"metrics_prefix"`
	JobName       string `yaml:"job_name"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level" env:"LEVEL, overwrite"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API base URL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API base URL must be http or https, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("API timeout must be positive")
	}
	if c.Notices.TTL <= 0 {
		return errors.New("notice TTL must be positive")
	}
	if c.Server.MaxHistory < 0 {
		return errors.New("max_history must not be negative")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("tls_cert and tls_key must be set together")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = defaultAPITimeout
	}
	if c.Notices.TTL == 0 {
		c.Notices.TTL = defaultNoticeTTL
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = defaultListenAddr
	}
	if c.Server.MaxHistory == 0 {
		c.Server.MaxHistory = defaultMaxHistory
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// Load reads the YAML config file at path, applies REACTIVITIES_ environment
// overrides and defaults, and validates the result. An empty path skips the file.
func Load(ctx context.Context, path string) (Config, error) {
	return LoadWith(ctx, path, envconfig.OsLookuper())
}

// LoadWith is Load with the environment read from lookuper.
func LoadWith(ctx context.Context, path string, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	}); err != nil {
		return cfg, fmt.Errorf("reading environment: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Redacted returns a copy of c that is safe to show, with the API token masked.
func (c Config) Redacted() Config {
	if c.API.Token != "" {
		c.API.Token = "REDACTED"
	}
	return c
}
