// Package action runs store actions and reports their outcome.
//
// Every store action follows the same shape: raise a busy flag, wait for the API,
// apply one atomic update on success, lower the flag. A Runner handles the parts
// that are common to all of them: the optional per-identifier lock, metrics, error
// logging and the user notice. Failures come back as a Result instead of being
// swallowed, so callers can react to them.
package action

import "fmt"

// Result is the outcome of one store action.
type Result struct {
	// Action names the action, e.g. "activity.create".
	Action string
	// Err is nil when the action succeeded.
	Err error
}

// OK reports whether the action succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

func (r Result) String() string {
	if r.Err == nil {
		return r.Action + ": ok"
	}
	return fmt.Sprintf("%s: %v", r.Action, r.Err)
}

// Succeeded returns a successful Result.
func Succeeded(name string) Result {
	return Result{Action: name}
}

// Failed returns a failed Result.
func Failed(name string, err error) Result {
	return Result{Action: name, Err: err}
}
