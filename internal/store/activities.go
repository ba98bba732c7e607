package store

import (
	"fmt"
	"sync"

	"github.com/courseloop/pulse/internal/pubsub"
	"github.com/courseloop/pulse/pkg/types"
)

// DefaultActivityCap bounds the activity list.
const DefaultActivityCap = 50

// Activities is the bounded newest-first list of dashboard activity records.
type Activities struct {
	mu    sync.Mutex
	items []types.Activity
	cap   int
	seq   int64

	bus *pubsub.Bus[[]types.Activity]
}

// NewActivities returns an empty store bounded at capacity. A non-positive
// capacity selects DefaultActivityCap.
func NewActivities(capacity int) *Activities {
	if capacity <= 0 {
		capacity = DefaultActivityCap
	}
	return &Activities{
		cap: capacity,
		bus: pubsub.NewBus[[]types.Activity](nil),
	}
}

// Push prepends a record, assigning a monotonically increasing local id when
// the server omitted one. Insertion past the cap evicts the oldest record.
func (a *Activities) Push(record types.Activity) {
	a.mu.Lock()
	if record.ID == "" {
		a.seq++
		record.ID = fmt.Sprintf("local-%d", a.seq)
	}
	a.items = append([]types.Activity{record}, a.items...)
	if len(a.items) > a.cap {
		a.items = a.items[:a.cap]
	}
	snapshot := append([]types.Activity(nil), a.items...)
	a.mu.Unlock()

	a.bus.Publish(snapshot)
}

// List returns a newest-first snapshot.
func (a *Activities) List() []types.Activity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.Activity(nil), a.items...)
}

// Len returns the number of records held.
func (a *Activities) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Clear drops all records.
func (a *Activities) Clear() {
	a.mu.Lock()
	a.items = nil
	a.mu.Unlock()
	a.bus.Publish(nil)
}

// Observe registers an observer; it immediately receives the current list.
func (a *Activities) Observe(fn func([]types.Activity)) (cancel func()) {
	return a.bus.Observe(fn)
}

// Close silences observers permanently.
func (a *Activities) Close() {
	a.bus.Close()
}
