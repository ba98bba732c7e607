package subs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/courseloop/pulse/internal/transport/transporttest"
	"github.com/courseloop/pulse/pkg/types"
)

func TestRegistry_SubscribeEmitsWhenConnected(t *testing.T) {
	t.Parallel()

	fake := transporttest.NewFake()
	fake.FireConnect()
	r := New(fake)

	r.Subscribe(types.ChannelMetrics, map[string]any{"interval": 5})

	calls := fake.Emitted()
	require.Len(t, calls, 1)
	require.Equal(t, "subscribe:metrics", calls[0].Event)
	require.Equal(t, 5, calls[0].Data["interval"])
}

func TestRegistry_SubscribeWhileDisconnectedDefersEmit(t *testing.T) {
	t.Parallel()

	fake := transporttest.NewFake()
	r := New(fake)

	r.Subscribe(types.ChannelActivity, nil)
	require.Empty(t, fake.Emitted())

	fake.FireConnect()
	r.Replay()
	require.Equal(t, []string{"subscribe:activity"}, fake.EmittedEvents())
}

func TestRegistry_SubscribeIdempotent(t *testing.T) {
	t.Parallel()

	fake := transporttest.NewFake()
	fake.FireConnect()
	r := New(fake)

	r.Subscribe(types.ChannelMetrics, map[string]any{"a": 1})
	r.Subscribe(types.ChannelMetrics, map[string]any{"a": 1})

	require.Len(t, fake.Emitted(), 1)
	require.Len(t, r.Intents(), 1)
}

func TestRegistry_SubscribeNewOptionsReassert(t *testing.T) {
	t.Parallel()

	fake := transporttest.NewFake()
	fake.FireConnect()
	r := New(fake)

	r.Subscribe(types.ChannelMetrics, map[string]any{"a": 1})
	r.Subscribe(types.ChannelMetrics, map[string]any{"a": 2})

	calls := fake.Emitted()
	require.Len(t, calls, 2)
	require.Equal(t, 2, calls[1].Data["a"])

	intents := r.Intents()
	require.Len(t, intents, 1)
	require.Equal(t, 2, intents[0].Options["a"])
}

func TestRegistry_UnknownChannelIgnored(t *testing.T) {
	t.Parallel()

	fake := transporttest.NewFake()
	fake.FireConnect()
	r := New(fake)

	r.Subscribe(types.Channel("bogus"), nil)
	require.Empty(t, fake.Emitted())
	require.Empty(t, r.Intents())
}

func TestRegistry_Unsubscribe(t *testing.T) {
	t.Parallel()

	fake := transporttest.NewFake()
	fake.FireConnect()
	r := New(fake)

	r.Subscribe(types.ChannelSecurity, nil)
	fake.ResetEmitted()

	r.Unsubscribe(types.ChannelSecurity)
	calls := fake.Emitted()
	require.Len(t, calls, 1)
	require.Equal(t, UnsubscribeEvent, calls[0].Event)
	require.Equal(t, "security", calls[0].Data["channel"])
	require.Empty(t, r.Intents())

	// Unsubscribing an absent channel sends nothing.
	fake.ResetEmitted()
	r.Unsubscribe(types.ChannelSecurity)
	require.Empty(t, fake.Emitted())
}

func TestRegistry_ReplayInsertionOrder(t *testing.T) {
	t.Parallel()

	fake := transporttest.NewFake()
	fake.FireConnect()
	r := New(fake)

	r.Subscribe(types.ChannelMetrics, nil)
	r.Subscribe(types.ChannelActivity, nil)
	r.Subscribe(types.ChannelNotifications, nil)
	r.Unsubscribe(types.ChannelActivity)
	r.Subscribe(types.ChannelActivity, nil)
	fake.ResetEmitted()

	r.Replay()
	require.Equal(t, []string{
		"subscribe:metrics",
		"subscribe:notifications",
		"subscribe:activity",
	}, fake.EmittedEvents())
}

func TestRegistry_Clear(t *testing.T) {
	t.Parallel()

	fake := transporttest.NewFake()
	fake.FireConnect()
	r := New(fake)

	r.Subscribe(types.ChannelMetrics, nil)
	r.Clear()
	require.Empty(t, r.Intents())

	fake.ResetEmitted()
	r.Replay()
	require.Empty(t, fake.Emitted())
}
