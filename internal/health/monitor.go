// Package health drives the periodic ping/pong check on the dashboard
// socket and signals degradation when pongs stop arriving.
package health

import (
	"sync"
	"time"

	"github.com/courseloop/pulse/internal/clock"
	"github.com/courseloop/pulse/internal/pubsub"
	"github.com/courseloop/pulse/pkg/logger"
	"github.com/courseloop/pulse/pkg/types"
)

const (
	// DefaultInterval is the production ping period.
	DefaultInterval = 30 * time.Second
	// DefaultDeadline is how long a ping may stay unanswered before it
	// counts as missed.
	DefaultDeadline = 10 * time.Second
	// missThreshold is the number of consecutive missed pings that flips
	// the monitor to degraded.
	missThreshold = 3
)

// PingEvent is the server-bound health-check command. No body.
const PingEvent = "ping"

// Event is the monitor's observable state.
type Event struct {
	// OK is false while the connection is degraded.
	OK bool
	// RTT is the last measured round-trip, zero until the first pong.
	RTT time.Duration
}

// Emitter is the subset of the transport the monitor needs.
type Emitter interface {
	Emit(event string, data map[string]any) error
}

// Monitor pings the server on a fixed period and tracks missed pongs.
// Degradation does not tear the connection down; the transport's own close
// detection owns teardown.
type Monitor struct {
	interval time.Duration
	deadline time.Duration
	emitter  Emitter
	clk      clock.Clock

	mu          sync.Mutex
	running     bool
	stop        chan struct{}
	outstanding []time.Time
	misses      int
	degraded    bool
	lastRTT     time.Duration

	bus *pubsub.Bus[Event]
}

// NewMonitor returns a stopped Monitor. Non-positive durations select the
// defaults.
func NewMonitor(emitter Emitter, clk clock.Clock, interval, deadline time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Monitor{
		interval: interval,
		deadline: deadline,
		emitter:  emitter,
		clk:      clk,
		bus:      pubsub.NewBus(Event{OK: true}),
	}
}

// Start begins the ping loop. Idempotent.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	go m.run(stop)
}

// Stop halts the ping loop and clears pending state. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.outstanding = nil
	m.misses = 0
	m.degraded = false
	m.mu.Unlock()
}

func (m *Monitor) run(stop <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick expires overdue pings, signals degradation past the threshold, and
// sends the next ping.
func (m *Monitor) tick() {
	now := m.clk.Now()

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	kept := m.outstanding[:0]
	for _, sentAt := range m.outstanding {
		if now.Sub(sentAt) >= m.deadline {
			m.misses++
		} else {
			kept = append(kept, sentAt)
		}
	}
	m.outstanding = kept

	announce := false
	if m.misses >= missThreshold && !m.degraded {
		m.degraded = true
		announce = true
	}
	m.outstanding = append(m.outstanding, now)
	rtt := m.lastRTT
	m.mu.Unlock()

	if announce {
		logger.Warnf("health degraded: %d consecutive pings unanswered", missThreshold)
		m.bus.Publish(Event{OK: false, RTT: rtt})
	}
	_ = m.emitter.Emit(PingEvent, nil)
}

// Pong records a round-trip and clears the miss counter.
func (m *Monitor) Pong(p types.Pong) {
	now := m.clk.Now()

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	rtt := m.lastRTT
	if n := len(m.outstanding); n > 0 {
		rtt = now.Sub(m.outstanding[n-1])
	}
	m.outstanding = nil
	m.misses = 0
	wasDegraded := m.degraded
	m.degraded = false
	m.lastRTT = rtt
	m.mu.Unlock()

	if wasDegraded {
		logger.Infof("health recovered, rtt=%s", rtt)
	}
	m.bus.Publish(Event{OK: true, RTT: rtt})
}

// LastRTT returns the last measured round-trip time.
func (m *Monitor) LastRTT() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRTT
}

// Degraded reports whether the monitor currently considers the connection
// degraded.
func (m *Monitor) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// Observe registers an observer; it immediately receives the current state.
func (m *Monitor) Observe(fn func(Event)) (cancel func()) {
	return m.bus.Observe(fn)
}

// Close silences observers permanently.
func (m *Monitor) Close() {
	m.bus.Close()
}
