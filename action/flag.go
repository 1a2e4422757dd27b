package action

import "encoding/json"

// Flag is a busy flag backed by an in-flight counter. It reads as on while at least
// one action of its family is pending.
//
// Flags live inside store state and are only changed within an observable Update, so
// they need no locking of their own.
type Flag struct {
	pending int
}

// Begin records that an action started.
func (f *Flag) Begin() {
	f.pending++
}

// End records that an action settled. Extra calls are ignored.
func (f *Flag) End() {
	if f.pending > 0 {
		f.pending--
	}
}

// On reports whether any action is pending.
func (f Flag) On() bool {
	return f.pending > 0
}

// Pending returns the number of pending actions.
func (f Flag) Pending() int {
	return f.pending
}

// MarshalJSON encodes the flag as a boolean.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.On())
}

// UnmarshalJSON decodes a boolean. true reads back as one pending action.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var on bool
	if err := json.Unmarshal(data, &on); err != nil {
		return err
	}
	f.pending = 0
	if on {
		f.pending = 1
	}
	return nil
}
