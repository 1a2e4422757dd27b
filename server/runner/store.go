package runner

// StateStore manages persistence of run history.
type StateStore interface {
	// Runs returns the stored runs, most recent first.
	Runs() []RunStatus
	// Save persists a finished run.
	Save(RunStatus) error
}
