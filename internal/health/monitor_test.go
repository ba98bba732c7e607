package health

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courseloop/pulse/internal/clock/clocktest"
	"github.com/courseloop/pulse/pkg/types"
)

type fakeEmitter struct {
	mu    sync.Mutex
	pings int
}

func (f *fakeEmitter) Emit(event string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event == PingEvent {
		f.pings++
	}
	return nil
}

func (f *fakeEmitter) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func newTestMonitor(t *testing.T) (*Monitor, *fakeEmitter, *clocktest.FakeClock) {
	t.Helper()
	emitter := &fakeEmitter{}
	clk := clocktest.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	m := NewMonitor(emitter, clk, time.Hour, 10*time.Second)
	m.Start() // loop ticks every hour; tests drive tick() directly
	t.Cleanup(m.Stop)
	return m, emitter, clk
}

func TestMonitor_PongRecordsRTT(t *testing.T) {
	t.Parallel()

	m, emitter, clk := newTestMonitor(t)

	var events []Event
	cancel := m.Observe(func(e Event) { events = append(events, e) })
	defer cancel()
	require.Equal(t, []Event{{OK: true}}, events)

	m.tick()
	require.Equal(t, 1, emitter.pingCount())

	clk.Advance(30 * time.Millisecond)
	m.Pong(types.Pong{Timestamp: clk.Now().UnixMilli()})

	require.Equal(t, 30*time.Millisecond, m.LastRTT())
	require.False(t, m.Degraded())
	require.Equal(t, Event{OK: true, RTT: 30 * time.Millisecond}, events[len(events)-1])
}

func TestMonitor_DegradedAfterThreeMisses(t *testing.T) {
	t.Parallel()

	m, _, clk := newTestMonitor(t)

	var degraded int
	cancel := m.Observe(func(e Event) {
		if !e.OK {
			degraded++
		}
	})
	defer cancel()

	// Each tick expires the previous unanswered ping (clock moves past the
	// deadline between ticks) and sends a new one.
	for i := 0; i < 3; i++ {
		m.tick()
		clk.Advance(15 * time.Second)
		require.False(t, m.Degraded(), "not degraded before threshold")
	}
	m.tick() // third miss observed here
	require.True(t, m.Degraded())
	require.Equal(t, 1, degraded)

	// Staying degraded does not re-announce.
	clk.Advance(15 * time.Second)
	m.tick()
	require.Equal(t, 1, degraded)
}

func TestMonitor_PongClearsDegraded(t *testing.T) {
	t.Parallel()

	m, _, clk := newTestMonitor(t)

	for i := 0; i < 4; i++ {
		m.tick()
		clk.Advance(15 * time.Second)
	}
	require.True(t, m.Degraded())

	m.Pong(types.Pong{})
	require.False(t, m.Degraded())

	// The next unanswered run can degrade again.
	var degraded int
	cancel := m.Observe(func(e Event) {
		if !e.OK {
			degraded++
		}
	})
	defer cancel()
	for i := 0; i < 4; i++ {
		m.tick()
		clk.Advance(15 * time.Second)
	}
	require.Equal(t, 1, degraded)
}

func TestMonitor_StopSilences(t *testing.T) {
	t.Parallel()

	m, emitter, _ := newTestMonitor(t)

	m.tick()
	require.Equal(t, 1, emitter.pingCount())

	m.Stop()
	m.tick()
	m.Pong(types.Pong{})
	require.Equal(t, 1, emitter.pingCount())
	require.Equal(t, time.Duration(0), m.LastRTT())

	// Stop twice is safe; Start again resumes.
	m.Stop()
	m.Start()
	m.tick()
	require.Equal(t, 2, emitter.pingCount())
}

func TestMonitor_TickerLoop(t *testing.T) {
	t.Parallel()

	emitter := &fakeEmitter{}
	m := NewMonitor(emitter, nil, 10*time.Millisecond, 5*time.Millisecond)
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool {
		return emitter.pingCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}
