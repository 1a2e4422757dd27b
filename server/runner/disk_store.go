package runner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DiskStore persists run history to disk as JSON files, one per run.
type DiskStore struct {
	dir      string
	logger   *slog.Logger
	maxCount int

	mu   sync.Mutex
	runs []RunStatus
}

// NewDiskStore creates a new disk-backed store.
// The directory is created if it doesn't exist, and existing runs are loaded.
func NewDiskStore(dir string, maxCount int, logger *slog.Logger) (*DiskStore, error) {
	if maxCount <= 0 {
		maxCount = DefaultMaxHistory
	}
	s := &DiskStore{
		dir:      dir,
		logger:   logger,
		maxCount: maxCount,
		runs:     make([]RunStatus, 0),
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	runs, err := s.load()
	if err != nil {
		logger.Warn("failed to load existing runs", "error", err)
	} else {
		s.runs = runs
	}

	return s, nil
}

// Runs returns all runs, most recent first.
func (s *DiskStore) Runs() []RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]RunStatus, len(s.runs))
	for i, run := range s.runs {
		result[i] = run.clone()
	}
	return result
}

// Save writes a run to disk and adds it to the in-memory history. Files beyond
// the limit are removed, oldest first.
func (s *DiskStore) Save(run RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.StartedAt == nil {
		return fmt.Errorf("cannot save run without start time")
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	path := filepath.Join(s.dir, fileName(run))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}

	s.runs = append([]RunStatus{run.clone()}, s.runs...)
	for len(s.runs) > s.maxCount {
		oldest := s.runs[len(s.runs)-1]
		if err := os.Remove(filepath.Join(s.dir, fileName(oldest))); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove old run file", "error", err)
		}
		s.runs = s.runs[:len(s.runs)-1]
	}

	s.logger.Debug("saved run to disk", "path", path)
	return nil
}

// Reload re-loads all runs from disk.
func (s *DiskStore) Reload() error {
	runs, err := s.load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = runs
	return nil
}

// fileName is the start time with nanoseconds, then the ID, so names sort by time
// and never collide.
func fileName(run RunStatus) string {
	name := run.StartedAt.UTC().Format("2006-01-02T15-04-05.000000000")
	if run.ID != "" {
		name += "_" + run.ID
	}
	return name + ".json"
}

func (s *DiskStore) load() ([]RunStatus, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	runs := make([]RunStatus, 0, min(len(files), s.maxCount))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read run file", "file", path, "error", err)
			continue
		}

		var run RunStatus
		if err := json.Unmarshal(data, &run); err != nil {
			s.logger.Warn("failed to parse run file", "file", path, "error", err)
			continue
		}
		if run.StartedAt == nil {
			s.logger.Warn("skipping run file without start time", "file", path)
			continue
		}
		runs = append(runs, run)
	}

	// Sort by start time descending (most recent first)
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(*runs[j].StartedAt)
	})

	if len(runs) > s.maxCount {
		runs = runs[:s.maxCount]
	}

	s.logger.Info("loaded run history from disk", "count", len(runs))
	return runs, nil
}
