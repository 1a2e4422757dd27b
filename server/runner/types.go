package runner

import "time"

// RunState represents the current state of a refresh run.
type RunState int

const (
	// RunStateIdle indicates no refresh is running.
	RunStateIdle RunState = iota
	// RunStateRunning indicates a refresh is in progress.
	RunStateRunning
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	switch s {
	case RunStateIdle:
		return "idle"
	case RunStateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s RunState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *RunState) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"running"`:
		*s = RunStateRunning
	default:
		*s = RunStateIdle
	}
	return nil
}

// What started a run.
const (
	TriggerAPI  = "api"
	TriggerCron = "cron"
)

// RunStatus contains information about the current or a past run.
type RunStatus struct {
	// ID identifies a run. It is assigned when the run starts.
	ID string `json:"id,omitempty"`
	// State is the current state of the run.
	State RunState `json:"state"`
	// Trigger is what started the run, TriggerAPI or TriggerCron.
	Trigger string `json:"trigger,omitempty"`
	// Targets are the stores the run refreshes.
	Targets []string `json:"targets,omitempty"`
	// StartedAt is when the run started. Nil if no run has occurred.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// EndedAt is when the run ended. Nil if run is in progress or no run has occurred.
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// Error contains the error message if the run failed. Empty on success.
	Error string `json:"error,omitempty"`
}

// Duration returns how long a finished run took, or zero.
func (s RunStatus) Duration() time.Duration {
	if s.StartedAt == nil || s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(*s.StartedAt)
}

func (s RunStatus) clone() RunStatus {
	if s.Targets != nil {
		s.Targets = append([]string(nil), s.Targets...)
	}
	return s
}
