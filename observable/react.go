package observable

import (
	"context"
	"sync"
)

// Effect is run by a reaction when its selected key changes.
type Effect[T any, K comparable] func(ctx context.Context, prev, next K, state T)

// React runs effect every time selector(state) changes between two events.
//
// The key is sampled when React is called, so the first event only fires the effect if
// the key differs from the state at that moment. Events older than the newest one seen
// are dropped, which keeps a reaction from moving backwards when updates are committed
// from several goroutines. The effect runs outside the reaction's lock.
func React[T any, K comparable](v *Value[T], selector func(T) K, effect Effect[T, K]) (dispose func()) {
	r := &reaction[T, K]{selector: selector, effect: effect}

	v.mu.RLock()
	r.key = selector(v.state)
	r.version = v.version
	v.mu.RUnlock()

	return v.Subscribe(r.observe)
}

type reaction[T any, K comparable] struct {
	selector func(T) K
	effect   Effect[T, K]

	mu      sync.Mutex
	key     K
	version uint64
}

func (r *reaction[T, K]) observe(ctx context.Context, ev Event[T]) {
	next := r.selector(ev.State)

	r.mu.Lock()
	if ev.Version <= r.version {
		r.mu.Unlock()
		return
	}
	r.version = ev.Version
	prev := r.key
	if prev == next {
		r.mu.Unlock()
		return
	}
	r.key = next
	r.mu.Unlock()

	r.effect(ctx, prev, next, ev.State)
}
