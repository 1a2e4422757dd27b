package runner

import "sync"

// MemoryStore keeps run history in memory only (no persistence).
type MemoryStore struct {
	maxCount int

	mu   sync.Mutex
	runs []RunStatus
}

// NewMemoryStore creates a new in-memory store keeping at most maxCount runs.
// A maxCount of zero or less uses the default.
func NewMemoryStore(maxCount int) *MemoryStore {
	if maxCount <= 0 {
		maxCount = DefaultMaxHistory
	}
	return &MemoryStore{
		maxCount: maxCount,
		runs:     make([]RunStatus, 0),
	}
}

// Runs returns all runs, most recent first.
func (s *MemoryStore) Runs() []RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]RunStatus, len(s.runs))
	for i, run := range s.runs {
		result[i] = run.clone()
	}
	return result
}

// Save stores a run in memory.
func (s *MemoryStore) Save(run RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Prepend to keep most recent first
	s.runs = append([]RunStatus{run.clone()}, s.runs...)
	if len(s.runs) > s.maxCount {
		s.runs = s.runs[:s.maxCount]
	}
	return nil
}
