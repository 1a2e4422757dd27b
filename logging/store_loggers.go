package logging

import (
	"log/slog"
)

// LoggerHook creates store-specific loggers by wrapping a base logger.
// The root store calls it once per store it builds.
type LoggerHook interface {
	// LoggerForStore wraps the base logger to create a logger for the named store.
	LoggerForStore(base *slog.Logger, store string) *slog.Logger
}

// TaggingHook only adds the store attribute.
type TaggingHook struct{}

// LoggerForStore implements LoggerHook.
func (TaggingHook) LoggerForStore(base *slog.Logger, store string) *slog.Logger {
	return ForStore(base, store)
}

// CapturingLoggerHook creates loggers that also capture records into a Collector.
type CapturingLoggerHook struct {
	collector *Collector
}

// NewCapturingLoggerHook creates a hook that captures the logs of every store.
func NewCapturingLoggerHook(collector *Collector) *CapturingLoggerHook {
	return &CapturingLoggerHook{
		collector: collector,
	}
}

// Collector returns the collector the hook writes to.
func (p *CapturingLoggerHook) Collector() *Collector {
	return p.collector
}

// LoggerForStore creates a store logger with capturing enabled.
func (p *CapturingLoggerHook) LoggerForStore(base *slog.Logger, store string) *slog.Logger {
	handler := NewCapturingHandler(base.Handler(), p.collector, store)
	return slog.New(handler).With(StoreKey, store)
}
