// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"fmt"
	"sync"

	"github.com/courseloop/pulse/internal/pubsub"
	"github.com/courseloop/pulse/internal/transport"
)

// EmitCall records one server-bound message.
type EmitCall struct {
	Event string
	Data  map[string]any
}

// Fake is a scriptable Transport. Tests drive it with FireConnect,
// FireDisconnect, FireEvent and FireAuthError and assert on Emitted.
type Fake struct {
	mu       sync.Mutex
	token    string
	status   transport.Status
	handlers map[string][]handlerEntry
	nextID   int
	emitted  []EmitCall
	// ConnectErr, when set, is returned from Connect without any status
	// transition.
	ConnectErr error
	// AutoConnect makes Connect fire the connected transition immediately.
	AutoConnect bool

	statusBus *pubsub.Bus[transport.Status]
}

type handlerEntry struct {
	id int
	fn transport.Handler
}

var _ transport.Transport = (*Fake)(nil)

// NewFake returns a disconnected Fake.
func NewFake() *Fake {
	return &Fake{
		handlers:  make(map[string][]handlerEntry),
		statusBus: pubsub.NewBus(transport.Status{State: transport.StateDisconnected}),
	}
}

// Connect implements transport.Transport.
func (f *Fake) Connect(token string) error {
	f.mu.Lock()
	if f.ConnectErr != nil {
		err := f.ConnectErr
		f.mu.Unlock()
		return err
	}
	f.token = token
	auto := f.AutoConnect
	f.mu.Unlock()

	f.setStatus(transport.Status{State: transport.StateConnecting})
	if auto {
		f.FireConnect()
	}
	return nil
}

// Disconnect implements transport.Transport.
func (f *Fake) Disconnect() {
	f.setStatus(transport.Status{State: transport.StateDisconnected})
}

// Emit implements transport.Transport.
func (f *Fake) Emit(event string, data map[string]any) error {
	f.mu.Lock()
	connected := f.status.Connected()
	if connected {
		f.emitted = append(f.emitted, EmitCall{Event: event, Data: data})
	}
	f.mu.Unlock()
	if !connected {
		return fmt.Errorf("not connected")
	}
	return nil
}

// On implements transport.Transport.
func (f *Fake) On(event string, fn transport.Handler) (cancel func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.handlers[event] = append(f.handlers[event], handlerEntry{id: id, fn: fn})
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		entries := f.handlers[event]
		for i, e := range entries {
			if e.id == id {
				f.handlers[event] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
}

// OnStatus implements transport.Transport.
func (f *Fake) OnStatus(fn func(transport.Status)) (cancel func()) {
	return f.statusBus.Observe(fn)
}

// Status implements transport.Transport.
func (f *Fake) Status() transport.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// FireConnect simulates a successful handshake.
func (f *Fake) FireConnect() {
	f.setStatus(transport.Status{State: transport.StateConnected})
}

// FireDisconnect simulates an unexpected close followed by a reconnect
// attempt announcement.
func (f *Fake) FireDisconnect(reason string) {
	f.setStatus(transport.Status{
		State: transport.StateReconnecting,
		Kind:  transport.KindTransient,
		Err:   fmt.Errorf("connection closed: %s", reason),
	})
}

// FireAuthError simulates a terminal credentials rejection.
func (f *Fake) FireAuthError(msg string) {
	f.setStatus(transport.Status{
		State: transport.StateFailed,
		Kind:  transport.KindAuth,
		Err:   fmt.Errorf("auth rejected: %s", msg),
	})
}

// FireFatal simulates an exhausted reconnect budget.
func (f *Fake) FireFatal(msg string) {
	f.setStatus(transport.Status{
		State: transport.StateFailed,
		Kind:  transport.KindFatal,
		Err:   fmt.Errorf("%s", msg),
	})
}

// FireEvent delivers an inbound wire event to registered handlers.
func (f *Fake) FireEvent(event string, data map[string]any) {
	f.mu.Lock()
	entries := append([]handlerEntry(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, e := range entries {
		e.fn(data)
	}
}

// Emitted returns a copy of every recorded server-bound message.
func (f *Fake) Emitted() []EmitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EmitCall(nil), f.emitted...)
}

// EmittedEvents returns just the event names, in emit order.
func (f *Fake) EmittedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]string, len(f.emitted))
	for i, c := range f.emitted {
		events[i] = c.Event
	}
	return events
}

// ResetEmitted clears the emit log.
func (f *Fake) ResetEmitted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = nil
}

// Token returns the auth token passed to Connect.
func (f *Fake) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *Fake) setStatus(st transport.Status) {
	f.mu.Lock()
	f.status = st
	f.mu.Unlock()
	f.statusBus.Publish(st)
}
