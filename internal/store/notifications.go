package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/courseloop/pulse/internal/pubsub"
	"github.com/courseloop/pulse/pkg/types"
)

// DefaultNotificationCap bounds the notification list.
const DefaultNotificationCap = 100

// NotificationsSnapshot is what notification observers receive.
type NotificationsSnapshot struct {
	Items  []types.Notification
	Unread int
}

// Notifications is the bounded newest-first notification list with read-state
// bookkeeping. The unread count is maintained on every mutation so reading it
// is O(1).
type Notifications struct {
	mu     sync.Mutex
	items  []types.Notification
	cap    int
	unread int

	bus *pubsub.Bus[NotificationsSnapshot]
}

// NewNotifications returns an empty store bounded at capacity. A non-positive
// capacity selects DefaultNotificationCap.
func NewNotifications(capacity int) *Notifications {
	if capacity <= 0 {
		capacity = DefaultNotificationCap
	}
	return &Notifications{
		cap: capacity,
		bus: pubsub.NewBus(NotificationsSnapshot{}),
	}
}

// Push prepends a record as unread, assigning a local id when the server
// omitted one. Eviction past the cap drops the oldest record regardless of
// its read state.
func (n *Notifications) Push(record types.Notification) {
	n.mu.Lock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.Read = false
	n.items = append([]types.Notification{record}, n.items...)
	n.unread++
	if len(n.items) > n.cap {
		evicted := n.items[len(n.items)-1]
		n.items = n.items[:n.cap]
		if !evicted.Read {
			n.unread--
		}
	}
	snapshot := n.snapshotLocked()
	n.mu.Unlock()

	n.bus.Publish(snapshot)
}

// MarkRead sets read=true for the record with the given id. No-op if the
// record is missing or already read.
func (n *Notifications) MarkRead(id string) {
	n.mu.Lock()
	changed := false
	for i := range n.items {
		if n.items[i].ID == id {
			if !n.items[i].Read {
				n.items[i].Read = true
				n.unread--
				changed = true
			}
			break
		}
	}
	if !changed {
		n.mu.Unlock()
		return
	}
	snapshot := n.snapshotLocked()
	n.mu.Unlock()

	n.bus.Publish(snapshot)
}

// Clear removes the record with the given id. No-op if not found.
func (n *Notifications) Clear(id string) {
	n.mu.Lock()
	removed := false
	for i := range n.items {
		if n.items[i].ID == id {
			if !n.items[i].Read {
				n.unread--
			}
			n.items = append(n.items[:i], n.items[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		n.mu.Unlock()
		return
	}
	snapshot := n.snapshotLocked()
	n.mu.Unlock()

	n.bus.Publish(snapshot)
}

// ClearAll removes every record.
func (n *Notifications) ClearAll() {
	n.mu.Lock()
	n.items = nil
	n.unread = 0
	snapshot := n.snapshotLocked()
	n.mu.Unlock()

	n.bus.Publish(snapshot)
}

// List returns a newest-first snapshot.
func (n *Notifications) List() []types.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.Notification(nil), n.items...)
}

// UnreadCount returns the number of unread records. O(1).
func (n *Notifications) UnreadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unread
}

// Observe registers an observer; it immediately receives the current
// snapshot.
func (n *Notifications) Observe(fn func(NotificationsSnapshot)) (cancel func()) {
	return n.bus.Observe(fn)
}

// Close silences observers permanently.
func (n *Notifications) Close() {
	n.bus.Close()
}

func (n *Notifications) snapshotLocked() NotificationsSnapshot {
	return NotificationsSnapshot{
		Items:  append([]types.Notification(nil), n.items...),
		Unread: n.unread,
	}
}
