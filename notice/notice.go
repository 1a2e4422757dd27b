// Package notice keeps the transient, user facing messages raised when a store
// action fails ("Problem uploading photo").
//
// A Board is created once by the root store and shared by every store. Views poll
// Active() to show the notices that have not yet expired.
//
// THREAD SAFETY:
// All methods are safe for concurrent use.
package notice

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a notice stays active.
const DefaultTTL = 5 * time.Second

// maxNotices bounds the history kept by a Board.
const maxNotices = 100

// Level is the severity of a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is one message shown to the user.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Board stores notices, newest last.
type Board struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.RWMutex
	notices []Notice
}

// Option configures a Board.
type Option func(*Board)

// WithTTL sets how long notices stay active.
func WithTTL(ttl time.Duration) Option {
	return func(b *Board) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		b.now = now
	}
}

// New creates a Board. Each posted notice is also logged at Info level.
func New(logger *slog.Logger, opts ...Option) *Board {
	b := &Board{
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Post records a notice and returns it.
func (b *Board) Post(level Level, source, message string) Notice {
	n := Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Source:    source,
		Message:   message,
		CreatedAt: b.now(),
	}

	b.logger.Info(message, "notice_level", string(level), "source", source)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
	if len(b.notices) > maxNotices {
		b.notices = append([]Notice(nil), b.notices[len(b.notices)-maxNotices:]...)
	}
	return n
}

// Error posts an error level notice.
func (b *Board) Error(source, message string) Notice {
	return b.Post(LevelError, source, message)
}

// Active returns the notices younger than the TTL.
func (b *Board) Active() []Notice {
	cutoff := b.now().Add(-b.ttl)

	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Notice, 0, len(b.notices))
	for _, n := range b.notices {
		if n.CreatedAt.After(cutoff) {
			result = append(result, n)
		}
	}
	return result
}

// All returns a copy of every retained notice.
func (b *Board) All() []Notice {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Notice, len(b.notices))
	copy(result, b.notices)
	return result
}

// Dismiss removes a notice. It reports whether the notice existed.
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, n := range b.notices {
		if n.ID == id {
			b.notices = append(b.notices[:i], b.notices[i+1:]...)
			return true
		}
	}
	return false
}
