package sdk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcherCallFromLoopRunsInline(t *testing.T) {
	t.Parallel()
	d := newDispatcher(4)

	// A call issued from inside a dispatched job must not wait on the loop
	// it is running on.
	v, err := d.call(func() (interface{}, error) {
		return d.call(func() (interface{}, error) {
			return "inner", nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, "inner", v)
}

func TestDispatcherOrdering(t *testing.T) {
	t.Parallel()
	d := newDispatcher(16)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, d.do(func() { got = append(got, i) }))
	}
	_, err := d.call(func() (interface{}, error) { return nil, nil })
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestGoroutineID(t *testing.T) {
	t.Parallel()
	id := goroutineID()
	require.NotZero(t, id)
	require.Equal(t, id, goroutineID())

	other := make(chan uint64, 1)
	go func() { other <- goroutineID() }()
	require.NotEqual(t, id, <-other)
}
