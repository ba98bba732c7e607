package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSocketDefaults(t *testing.T) {
	t.Parallel()
	s := New(Config{URL: "http://localhost:3005"})

	require.Equal(t, []string{"websocket", "polling"}, s.cfg.Transports)
	require.Equal(t, StateDisconnected, s.Status().State)
	require.NotNil(t, s.transportSet())
}

func TestSocketTransportSet(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		transports []string
	}{
		{name: "default order", transports: nil},
		{name: "polling only", transports: []string{"polling"}},
		{name: "explicit order", transports: []string{"polling", "websocket"}},
		{name: "unknown names fall back", transports: []string{"carrier-pigeon"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := New(Config{URL: "http://localhost:3005", Transports: tc.transports})
			require.NotNil(t, s.transportSet())
		})
	}
}

func TestSocketEmitWhileDisconnected(t *testing.T) {
	t.Parallel()
	s := New(Config{URL: "http://localhost:3005"})
	require.Error(t, s.Emit("ping", nil))
}

func TestSocketOnCancelRemovesHandler(t *testing.T) {
	t.Parallel()
	s := New(Config{URL: "http://localhost:3005"})

	cancel := s.On("dashboard:metrics", func(map[string]any) {})
	s.mu.Lock()
	require.Len(t, s.handlers["dashboard:metrics"], 1)
	s.mu.Unlock()

	cancel()
	s.mu.Lock()
	require.Empty(t, s.handlers["dashboard:metrics"])
	s.mu.Unlock()
}

func TestSocketDisconnectIdempotent(t *testing.T) {
	t.Parallel()
	s := New(Config{URL: "http://localhost:3005"})

	var statuses []State
	cancel := s.OnStatus(func(st Status) {
		statuses = append(statuses, st.State)
	})
	defer cancel()

	s.Disconnect()
	s.Disconnect()
	require.Equal(t, []State{StateDisconnected, StateDisconnected}, statuses)
	require.Equal(t, StateDisconnected, s.Status().State)
}
