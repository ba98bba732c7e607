// Package store holds the in-memory dashboard state: the latest metrics
// snapshot and the bounded activity, notification and security-alert lists.
//
// Mutators are invoked by the router; UI observers read snapshots through
// the per-store Observe methods. Every store is safe for concurrent use.
package store

import (
	"github.com/courseloop/pulse/internal/pubsub"
	"github.com/courseloop/pulse/pkg/types"
)

// Metrics is the one-slot store for the latest metrics snapshot. It holds
// exactly zero or one value; older snapshots are discarded.
type Metrics struct {
	bus *pubsub.Bus[*types.MetricsSnapshot]
}

// NewMetrics returns an empty Metrics store.
func NewMetrics() *Metrics {
	return &Metrics{bus: pubsub.NewBus[*types.MetricsSnapshot](nil)}
}

// Set replaces the current value.
func (m *Metrics) Set(snapshot types.MetricsSnapshot) {
	s := snapshot
	m.bus.Publish(&s)
}

// Get returns a copy of the current value, or nil when no snapshot has
// arrived yet.
func (m *Metrics) Get() *types.MetricsSnapshot {
	last := m.bus.Last()
	if last == nil {
		return nil
	}
	s := *last
	return &s
}

// Clear resets the store to empty.
func (m *Metrics) Clear() {
	m.bus.Publish(nil)
}

// Observe registers an observer; it immediately receives the current value.
func (m *Metrics) Observe(fn func(*types.MetricsSnapshot)) (cancel func()) {
	return m.bus.Observe(fn)
}

// Close silences observers permanently.
func (m *Metrics) Close() {
	m.bus.Close()
}
