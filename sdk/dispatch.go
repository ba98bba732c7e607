package sdk

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
)

type dispatchResult struct {
	value interface{}
	err   error
}

// dispatcher serializes all client work onto a single goroutine.
//
// Transport callbacks arrive on socket read goroutines and the facade's
// exported methods can be invoked from anywhere; funneling every state
// transition, store mutation and observer dispatch through one queue gives
// the single-threaded cooperative model the rest of the client assumes.
//
// The loop goroutine records its own id so call can detect re-entrancy: an
// Observe callback runs on the loop, and a blocking Start or Stop issued
// from one would otherwise wait on the very goroutine it occupies. Such
// calls run inline instead; they are already serialized.
type dispatcher struct {
	q      chan func()
	loopID atomic.Uint64
}

func newDispatcher(queueSize int) *dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &dispatcher{
		q: make(chan func(), queueSize),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	d.loopID.Store(goroutineID())
	for fn := range d.q {
		if fn != nil {
			fn()
		}
	}
}

// onLoop reports whether the caller is the dispatch goroutine itself.
func (d *dispatcher) onLoop() bool {
	id := d.loopID.Load()
	return id != 0 && id == goroutineID()
}

func (d *dispatcher) do(fn func()) error {
	if d == nil {
		return fmt.Errorf("dispatcher not initialized")
	}
	if fn == nil {
		return nil
	}
	d.q <- fn
	return nil
}

func (d *dispatcher) call(fn func() (interface{}, error)) (interface{}, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher not initialized")
	}
	if fn == nil {
		return nil, nil
	}
	if d.onLoop() {
		return fn()
	}
	done := make(chan dispatchResult, 1)
	d.q <- func() {
		value, err := fn()
		done <- dispatchResult{value: value, err: err}
	}
	res := <-done
	return res.value, res.err
}

// goroutineID parses the current goroutine's id from its stack header
// ("goroutine N [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	i := bytes.IndexByte(header, ' ')
	if i <= 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(header[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
