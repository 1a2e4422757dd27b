package observable

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Count int
	Tags  map[string]bool
	Tab   int
}

func cloneTestState(s testState) testState {
	tags := make(map[string]bool, len(s.Tags))
	for k, v := range s.Tags {
		tags[k] = v
	}
	s.Tags = tags
	return s
}

func TestValue_SnapshotIsCopy(t *testing.T) {
	v := New(testState{Tags: map[string]bool{"a": true}}, cloneTestState)

	snap := v.Snapshot()
	snap.Tags["b"] = true
	snap.Count = 10

	again := v.Snapshot()
	assert.Equal(t, 0, again.Count)
	assert.Len(t, again.Tags, 1)
}

func TestValue_UpdateNotifiesWithBatchedState(t *testing.T) {
	ctx := context.Background()
	v := New(testState{Tags: map[string]bool{}}, cloneTestState)

	var events []Event[testState]
	unsubscribe := v.Subscribe(func(ctx context.Context, ev Event[testState]) {
		events = append(events, ev)
	})

	v.Update(ctx, func(s *testState) {
		s.Count = 1
		s.Tags["x"] = true
	})
	v.Update(ctx, func(s *testState) { s.Count = 2 })

	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Version)
	assert.Equal(t, 1, events[0].State.Count)
	assert.True(t, events[0].State.Tags["x"])
	assert.Equal(t, uint64(2), events[1].Version)
	assert.Equal(t, uint64(2), v.Version())

	unsubscribe()
	unsubscribe()
	v.Update(ctx, func(s *testState) { s.Count = 3 })
	assert.Len(t, events, 2)
}

func TestValue_SubscribersCalledInOrder(t *testing.T) {
	v := New(testState{}, nil)

	var order []string
	v.Subscribe(func(ctx context.Context, ev Event[testState]) { order = append(order, "first") })
	v.Subscribe(func(ctx context.Context, ev Event[testState]) { order = append(order, "second") })

	v.Update(context.Background(), func(s *testState) { s.Count++ })
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestValue_ReentrantUpdate(t *testing.T) {
	ctx := context.Background()
	v := New(testState{}, nil)

	v.Subscribe(func(ctx context.Context, ev Event[testState]) {
		if ev.State.Count == 1 {
			v.Update(ctx, func(s *testState) { s.Count = 2 })
		}
	})

	v.Update(ctx, func(s *testState) { s.Count = 1 })
	assert.Equal(t, 2, v.Snapshot().Count)
	assert.Equal(t, uint64(2), v.Version())
}

func TestValue_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	v := New(testState{}, nil)

	var mu sync.Mutex
	seen := 0
	v.Subscribe(func(ctx context.Context, ev Event[testState]) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Update(ctx, func(s *testState) { s.Count++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, v.Snapshot().Count)
	assert.Equal(t, 100, seen)
}

func TestReact_FiresOnKeyChange(t *testing.T) {
	ctx := context.Background()
	v := New(testState{Tab: 0}, nil)

	type change struct{ prev, next int }
	var changes []change
	dispose := React(v, func(s testState) int { return s.Tab }, func(ctx context.Context, prev, next int, s testState) {
		changes = append(changes, change{prev, next})
	})

	v.Update(ctx, func(s *testState) { s.Count++ })
	v.Update(ctx, func(s *testState) { s.Tab = 3 })
	v.Update(ctx, func(s *testState) { s.Tab = 3 })
	v.Update(ctx, func(s *testState) { s.Tab = 4 })

	assert.Equal(t, []change{{0, 3}, {3, 4}}, changes)

	dispose()
	v.Update(ctx, func(s *testState) { s.Tab = 1 })
	assert.Len(t, changes, 2)
}

func TestReact_IgnoresStaleEvents(t *testing.T) {
	var fired []int
	r := &reaction[testState, int]{
		selector: func(s testState) int { return s.Tab },
		effect: func(ctx context.Context, prev, next int, s testState) {
			fired = append(fired, next)
		},
	}

	ctx := context.Background()
	r.observe(ctx, Event[testState]{Version: 2, State: testState{Tab: 4}})
	r.observe(ctx, Event[testState]{Version: 1, State: testState{Tab: 3}})

	assert.Equal(t, []int{4}, fired)
}

func TestReact_EffectMayUpdate(t *testing.T) {
	ctx := context.Background()
	v := New(testState{}, nil)

	React(v, func(s testState) int { return s.Tab }, func(ctx context.Context, prev, next int, s testState) {
		v.Update(ctx, func(s *testState) { s.Count = next * 10 })
	})

	v.Update(ctx, func(s *testState) { s.Tab = 3 })
	snap := v.Snapshot()
	assert.Equal(t, 3, snap.Tab)
	assert.Equal(t, 30, snap.Count)
}

func TestValue_Current(t *testing.T) {
	v := New(testState{Tags: map[string]bool{}}, cloneTestState)
	v.Update(context.Background(), func(s *testState) { s.Count = 7 })

	cur := v.Current()
	assert.Equal(t, uint64(1), cur.Version)
	assert.Equal(t, 7, cur.State.Count)

	cur.State.Tags["x"] = true
	assert.Empty(t, v.Snapshot().Tags)
}
