package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBus_SnapshotOnObserve(t *testing.T) {
	t.Parallel()

	b := NewBus(42)

	var got []int
	cancel := b.Observe(func(v int) { got = append(got, v) })
	defer cancel()

	require.Equal(t, []int{42}, got)

	b.Publish(7)
	require.Equal(t, []int{42, 7}, got)
}

func TestBus_RegistrationOrder(t *testing.T) {
	t.Parallel()

	b := NewBus(0)

	var order []string
	b.Observe(func(v int) {
		if v != 0 {
			order = append(order, "first")
		}
	})
	b.Observe(func(v int) {
		if v != 0 {
			order = append(order, "second")
		}
	})

	b.Publish(1)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestBus_Cancel(t *testing.T) {
	t.Parallel()

	b := NewBus(0)

	calls := 0
	cancel := b.Observe(func(int) { calls++ })
	require.Equal(t, 1, calls)

	cancel()
	cancel() // double cancel is safe

	b.Publish(1)
	require.Equal(t, 1, calls)
}

func TestBus_ReentrantPublishQueued(t *testing.T) {
	t.Parallel()

	b := NewBus(0)

	// The first observer republishes once from inside its callback. The
	// second observer must still see values in publish order, with the
	// nested publish delivered after the current pass completes.
	var first, second []int
	b.Observe(func(v int) {
		first = append(first, v)
		if v == 1 {
			b.Publish(2)
		}
	})
	b.Observe(func(v int) { second = append(second, v) })

	b.Publish(1)

	require.Equal(t, []int{0, 1, 2}, first)
	require.Equal(t, []int{0, 1, 2}, second)
}

func TestBus_CloseSilences(t *testing.T) {
	t.Parallel()

	b := NewBus(0)

	calls := 0
	b.Observe(func(int) { calls++ })
	require.Equal(t, 1, calls)

	b.Close()
	b.Publish(5)
	require.Equal(t, 1, calls)

	// Observing a closed bus is a no-op.
	b.Observe(func(int) { calls++ })
	require.Equal(t, 1, calls)
}

func TestBus_Last(t *testing.T) {
	t.Parallel()

	b := NewBus("a")
	require.Equal(t, "a", b.Last())
	b.Publish("b")
	require.Equal(t, "b", b.Last())
}
