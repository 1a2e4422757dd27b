package logging

import (
	"sort"
	"sync"
	"time"
)

// DefaultCapacity is the number of entries kept per store.
const DefaultCapacity = 200

// LogEntry represents a single log record with structured data.
type LogEntry struct {
	Time       time.Time              `json:"time"`
	Level      string                 `json:"level"` // "DEBUG", "INFO", "WARN", "ERROR"
	Message    string                 `json:"message"`
	Attributes map[string]interface{} `json:"attributes"` // Structured fields
}

// Collector keeps the most recent log entries of every store (thread-safe).
// Each store gets its own ring, so a chatty store cannot evict another's records.
type Collector struct {
	capacity int

	mu   sync.RWMutex
	logs map[string][]LogEntry // store -> entries, oldest first
}

// NewCollector creates a Collector holding up to capacity entries per store.
// A non-positive capacity selects DefaultCapacity.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Collector{
		capacity: capacity,
		logs:     make(map[string][]LogEntry),
	}
}

// Add records an entry for store, evicting the oldest entry when full.
func (c *Collector) Add(store string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs := append(c.logs[store], entry)
	if len(logs) > c.capacity {
		logs = append([]LogEntry(nil), logs[len(logs)-c.capacity:]...)
	}
	c.logs[store] = logs
}

// Logs returns a copy of the entries recorded for store, oldest first.
func (c *Collector) Logs(store string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, exists := c.logs[store]
	if !exists {
		return nil
	}
	result := make([]LogEntry, len(logs))
	copy(result, logs)
	return result
}

// Stores returns the names of every store with recorded entries, sorted.
func (c *Collector) Stores() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.logs))
	for name := range c.logs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of every store's entries.
func (c *Collector) All() map[string][]LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string][]LogEntry, len(c.logs))
	for store, logs := range c.logs {
		logsCopy := make([]LogEntry, len(logs))
		copy(logsCopy, logs)
		result[store] = logsCopy
	}
	return result
}

// Clear removes all stored entries.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logs = make(map[string][]LogEntry)
}
