package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/courseloop/pulse/internal/pubsub"
	"github.com/courseloop/pulse/pkg/types"
)

// DefaultAlertCap bounds the security alert list.
const DefaultAlertCap = 50

// AlertsSnapshot is what security-alert observers receive.
type AlertsSnapshot struct {
	Items      []types.SecurityAlert
	Unread     int
	ByPriority map[types.Priority]int
}

// Alerts is the bounded newest-first security-alert list. Besides read-state
// bookkeeping it maintains per-priority counts.
type Alerts struct {
	mu         sync.Mutex
	items      []types.SecurityAlert
	cap        int
	unread     int
	byPriority map[types.Priority]int

	bus *pubsub.Bus[AlertsSnapshot]
}

// NewAlerts returns an empty store bounded at capacity. A non-positive
// capacity selects DefaultAlertCap.
func NewAlerts(capacity int) *Alerts {
	if capacity <= 0 {
		capacity = DefaultAlertCap
	}
	return &Alerts{
		cap:        capacity,
		byPriority: make(map[types.Priority]int),
		bus:        pubsub.NewBus(AlertsSnapshot{}),
	}
}

// Push prepends a record as unread, assigning a local id when the server
// omitted one. Eviction past the cap drops the oldest record regardless of
// its priority or read state.
func (a *Alerts) Push(record types.SecurityAlert) {
	a.mu.Lock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.Read = false
	a.items = append([]types.SecurityAlert{record}, a.items...)
	a.unread++
	a.byPriority[record.Priority]++
	if len(a.items) > a.cap {
		evicted := a.items[len(a.items)-1]
		a.items = a.items[:a.cap]
		if !evicted.Read {
			a.unread--
		}
		a.byPriority[evicted.Priority]--
	}
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	a.bus.Publish(snapshot)
}

// MarkRead sets read=true for the record with the given id. No-op if the
// record is missing or already read.
func (a *Alerts) MarkRead(id string) {
	a.mu.Lock()
	changed := false
	for i := range a.items {
		if a.items[i].ID == id {
			if !a.items[i].Read {
				a.items[i].Read = true
				a.unread--
				changed = true
			}
			break
		}
	}
	if !changed {
		a.mu.Unlock()
		return
	}
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	a.bus.Publish(snapshot)
}

// Clear removes the record with the given id. No-op if not found.
func (a *Alerts) Clear(id string) {
	a.mu.Lock()
	removed := false
	for i := range a.items {
		if a.items[i].ID == id {
			if !a.items[i].Read {
				a.unread--
			}
			a.byPriority[a.items[i].Priority]--
			a.items = append(a.items[:i], a.items[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		a.mu.Unlock()
		return
	}
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	a.bus.Publish(snapshot)
}

// ClearAll removes every record.
func (a *Alerts) ClearAll() {
	a.mu.Lock()
	a.items = nil
	a.unread = 0
	a.byPriority = make(map[types.Priority]int)
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	a.bus.Publish(snapshot)
}

// List returns a newest-first snapshot.
func (a *Alerts) List() []types.SecurityAlert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.SecurityAlert(nil), a.items...)
}

// ByPriority returns the newest-first records with the given priority.
func (a *Alerts) ByPriority(p types.Priority) []types.SecurityAlert {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []types.SecurityAlert
	for _, item := range a.items {
		if item.Priority == p {
			out = append(out, item)
		}
	}
	return out
}

// PriorityCount returns the number of records with the given priority. O(1).
func (a *Alerts) PriorityCount(p types.Priority) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.byPriority[p]
}

// UnreadCount returns the number of unread records. O(1).
func (a *Alerts) UnreadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unread
}

// Observe registers an observer; it immediately receives the current
// snapshot.
func (a *Alerts) Observe(fn func(AlertsSnapshot)) (cancel func()) {
	return a.bus.Observe(fn)
}

// Close silences observers permanently.
func (a *Alerts) Close() {
	a.bus.Close()
}

func (a *Alerts) snapshotLocked() AlertsSnapshot {
	counts := make(map[types.Priority]int, len(a.byPriority))
	for p, c := range a.byPriority {
		if c > 0 {
			counts[p] = c
		}
	}
	return AlertsSnapshot{
		Items:      append([]types.SecurityAlert(nil), a.items...),
		Unread:     a.unread,
		ByPriority: counts,
	}
}
