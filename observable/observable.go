// Package observable provides an explicit publish/subscribe state container.
//
// A Value holds a piece of state. Writers change it with Update, which applies a
// mutation as a single atomic batch and then notifies subscribers with a snapshot of
// the result. Readers call Snapshot. Nothing is notified implicitly.
//
//	v := observable.New(State{}, cloneState)
//	unsubscribe := v.Subscribe(func(ctx context.Context, ev observable.Event[State]) {
//		render(ev.State)
//	})
//	defer unsubscribe()
//	v.Update(ctx, func(s *State) { s.Loading = true })
package observable

import (
	"context"
	"sort"
	"sync"
)

// Event is delivered to subscribers after every committed update.
type Event[T any] struct {
	// Version increases by one on every update.
	Version uint64
	// State is a snapshot taken immediately after the update.
	State T
}

// Listener receives events. The context is the one passed to Update.
type Listener[T any] func(ctx context.Context, ev Event[T])

// Value is an observable piece of state of type T.
//
// All methods are safe for concurrent use. Listeners are called synchronously on the
// goroutine that called Update, outside of any internal lock, so they may call Update
// themselves.
type Value[T any] struct {
	clone func(T) T

	mu      sync.RWMutex
	state   T
	version uint64

	subMu     sync.Mutex
	listeners map[int]Listener[T]
	nextID    int
}

// New creates a Value holding initial. clone must return a copy of T that shares no
// mutable memory with its argument; it may be nil when T is a plain value type.
func New[T any](initial T, clone func(T) T) *Value[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Value[T]{
		clone:     clone,
		state:     initial,
		listeners: make(map[int]Listener[T]),
	}
}

// Snapshot returns a copy of the current state.
func (v *Value[T]) Snapshot() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.clone(v.state)
}

// Version returns the number of updates applied so far.
func (v *Value[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Current returns the version and a copy of the state, read together.
func (v *Value[T]) Current() Event[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Event[T]{Version: v.version, State: v.clone(v.state)}
}

// Read calls fn with the current state under the read lock. fn must not retain the
// pointer or call back into v.
func (v *Value[T]) Read(fn func(*T)) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	fn(&v.state)
}

// Update applies fn to the state as one batch and notifies subscribers.
func (v *Value[T]) Update(ctx context.Context, fn func(*T)) {
	v.mu.Lock()
	fn(&v.state)
	v.version++
	ev := Event[T]{Version: v.version, State: v.clone(v.state)}
	v.mu.Unlock()

	for _, l := range v.snapshotListeners() {
		l(ctx, ev)
	}
}

// Subscribe registers fn for future events and returns a function that removes it.
func (v *Value[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	v.subMu.Lock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	v.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.subMu.Lock()
			delete(v.listeners, id)
			v.subMu.Unlock()
		})
	}
}

// snapshotListeners returns the listeners in subscription order.
func (v *Value[T]) snapshotListeners() []Listener[T] {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	ids := make([]int, 0, len(v.listeners))
	for id := range v.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := make([]Listener[T], len(ids))
	for i, id := range ids {
		result[i] = v.listeners[id]
	}
	return result
}
