package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/zishang520/socket.io/clients/engine/v3/transports"
	socket "github.com/zishang520/socket.io/clients/socket/v3"
	siotypes "github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/courseloop/pulse/internal/pubsub"
	"github.com/courseloop/pulse/pkg/logger"
)

// Config configures a socket.io transport.
type Config struct {
	// URL is the server base URL, e.g. "https://admin.courseloop.io".
	URL string
	// Path overrides the handshake path. Empty keeps the server default.
	Path string
	// Transports is the fallback order, e.g. {"websocket", "polling"}.
	// Empty selects websocket with polling fallback.
	Transports []string
	// Reconnect is the backoff policy applied after an unexpected close.
	Reconnect ReconnectPolicy
}

// Socket is the production Transport backed by a socket.io client.
//
// The library's own reconnection is disabled; Socket runs its own backoff
// loop so status transitions and replay ordering stay observable.
type Socket struct {
	cfg Config

	mu       sync.Mutex
	token    string
	sock     *socket.Socket
	gen      int
	closed   bool
	bridged  map[string]bool
	handlers map[string][]handlerEntry
	nextID   int
	status   Status
	bo       *backoff
	timer    *time.Timer

	statusBus *pubsub.Bus[Status]
}

type handlerEntry struct {
	id int
	fn Handler
}

var _ Transport = (*Socket)(nil)

// New creates a Socket for the given config. No connection is made until
// Connect.
func New(cfg Config) *Socket {
	if len(cfg.Transports) == 0 {
		cfg.Transports = []string{"websocket", "polling"}
	}
	return &Socket{
		cfg:       cfg,
		bridged:   make(map[string]bool),
		handlers:  make(map[string][]handlerEntry),
		bo:        newBackoff(cfg.Reconnect),
		statusBus: pubsub.NewBus(Status{State: StateDisconnected}),
	}
}

// Connect implements Transport.
func (s *Socket) Connect(token string) error {
	s.mu.Lock()
	switch s.status.State {
	case StateConnected, StateConnecting:
		s.mu.Unlock()
		return nil
	}
	s.closed = false
	s.token = token
	s.bo.reset()
	s.stopTimerLocked()
	s.mu.Unlock()

	s.setStatus(Status{State: StateConnecting})
	return s.dial()
}

// dial creates a fresh socket.io socket under a new generation. Callbacks
// from older sockets are discarded by the generation check.
func (s *Socket) dial() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	token := s.token
	s.detachLocked()
	s.mu.Unlock()

	opts := socket.DefaultOptions()
	if s.cfg.Path != "" {
		opts.SetPath(s.cfg.Path)
	}
	opts.SetTransports(s.transportSet())
	opts.SetReconnection(false)
	opts.SetAuth(map[string]interface{}{
		"token": token,
	})

	sock, err := socket.Connect(s.cfg.URL, opts)
	if err != nil {
		logger.Warnf("socket dial failed: %v", err)
		s.scheduleReconnect(gen, err)
		return fmt.Errorf("failed to connect: %w", err)
	}

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		sock.Disconnect()
		return nil
	}
	s.sock = sock
	s.bridged = make(map[string]bool)
	s.mu.Unlock()

	sock.On(siotypes.EventName("connect"), func(args ...any) {
		s.onConnect(gen)
	})
	sock.On(siotypes.EventName("disconnect"), func(args ...any) {
		s.onDisconnect(gen, args)
	})
	sock.On(siotypes.EventName("connect_error"), func(args ...any) {
		s.onConnectError(gen, args)
	})

	s.mu.Lock()
	for event := range s.handlers {
		s.bridgeLocked(event)
	}
	s.mu.Unlock()

	return nil
}

func (s *Socket) transportSet() *siotypes.Set[transports.TransportCtor] {
	ctors := make([]transports.TransportCtor, 0, len(s.cfg.Transports))
	for _, name := range s.cfg.Transports {
		switch name {
		case "websocket":
			ctors = append(ctors, socket.WebSocket)
		case "polling":
			ctors = append(ctors, socket.Polling)
		default:
			logger.Warnf("unknown transport %q ignored", name)
		}
	}
	if len(ctors) == 0 {
		ctors = []transports.TransportCtor{socket.WebSocket, socket.Polling}
	}
	return siotypes.NewSet(ctors...)
}

func (s *Socket) onConnect(gen int) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.bo.reset()
	s.mu.Unlock()

	logger.Debugf("socket connected")
	s.setStatus(Status{State: StateConnected})
}

func (s *Socket) onDisconnect(gen int, args []any) {
	reason := ""
	if len(args) > 0 {
		if r, ok := args[0].(string); ok {
			reason = r
		}
	}
	logger.Debugf("socket disconnected: %s", reason)
	s.scheduleReconnect(gen, fmt.Errorf("connection closed: %s", reason))
}

func (s *Socket) onConnectError(gen int, args []any) {
	kind, err := ClassifyConnectError(args)
	if kind == KindAuth {
		// Authentication rejections are terminal; retrying cannot help.
		s.fail(gen, KindAuth, err)
		return
	}
	logger.Debugf("socket connect error: %v", err)
	s.scheduleReconnect(gen, err)
}

// scheduleReconnect arms the backoff timer after an unexpected close or a
// transient connect error. Exhausting the attempt budget fails the transport.
func (s *Socket) scheduleReconnect(gen int, cause error) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.timer != nil {
		s.mu.Unlock()
		return
	}
	// Invalidate callbacks from the socket that just died.
	s.gen++
	s.detachLocked()

	if s.bo.exhausted() {
		s.mu.Unlock()
		s.setStatus(Status{State: StateFailed, Kind: KindFatal, Err: cause})
		return
	}

	delay := s.bo.next()
	attempt := s.bo.attempt
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.timer = nil
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		_ = s.dial()
	})
	s.mu.Unlock()

	logger.Infof("socket reconnecting in %s (attempt %d)", delay, attempt)
	s.setStatus(Status{State: StateReconnecting, Kind: KindTransient, Err: cause, Attempt: attempt})
}

// fail tears the connection down and reports a terminal failure.
func (s *Socket) fail(gen int, kind ErrorKind, err error) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.stopTimerLocked()
	sock := s.sock
	s.sock = nil
	s.mu.Unlock()

	if sock != nil {
		sock.Disconnect()
	}
	logger.Errorf("socket failed: %v", err)
	s.setStatus(Status{State: StateFailed, Kind: kind, Err: err})
}

// Disconnect implements Transport.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	alreadyDown := s.closed && s.status.State == StateDisconnected
	s.closed = true
	s.gen++
	s.stopTimerLocked()
	sock := s.sock
	s.sock = nil
	s.mu.Unlock()

	if sock != nil {
		sock.Disconnect()
	}
	if !alreadyDown {
		s.setStatus(Status{State: StateDisconnected})
	}
}

// Emit implements Transport. Messages sent while not connected are dropped.
func (s *Socket) Emit(event string, data map[string]any) error {
	s.mu.Lock()
	sock := s.sock
	connected := s.status.State == StateConnected
	s.mu.Unlock()

	if sock == nil || !connected {
		logger.Debugf("emit %q dropped: not connected", event)
		return fmt.Errorf("not connected")
	}
	logger.Tracef("emit %q", event)
	sock.Emit(event, data)
	return nil
}

// On implements Transport.
func (s *Socket) On(event string, fn Handler) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[event] = append(s.handlers[event], handlerEntry{id: id, fn: fn})
	s.bridgeLocked(event)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		entries := s.handlers[event]
		for i, e := range entries {
			if e.id == id {
				s.handlers[event] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
}

// bridgeLocked wires a wire event from the current socket into dispatch.
// Caller holds s.mu.
func (s *Socket) bridgeLocked(event string) {
	if s.sock == nil || s.bridged[event] {
		return
	}
	s.bridged[event] = true
	gen := s.gen
	sock := s.sock
	sock.On(siotypes.EventName(event), func(args ...any) {
		s.dispatch(gen, event, args)
	})
}

func (s *Socket) dispatch(gen int, event string, args []any) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	entries := append([]handlerEntry(nil), s.handlers[event]...)
	s.mu.Unlock()

	var data map[string]any
	if len(args) > 0 {
		if m, ok := args[0].(map[string]any); ok {
			data = m
		}
	}
	logger.Tracef("event %q", event)
	for _, e := range entries {
		e.fn(data)
	}
}

// OnStatus implements Transport.
func (s *Socket) OnStatus(fn func(Status)) (cancel func()) {
	return s.statusBus.Observe(fn)
}

// Status implements Transport.
func (s *Socket) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Socket) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	s.statusBus.Publish(st)
}

// detachLocked abandons the current socket, if any. Caller holds s.mu.
func (s *Socket) detachLocked() {
	if s.sock != nil {
		go s.sock.Disconnect()
		s.sock = nil
	}
	s.bridged = make(map[string]bool)
}

func (s *Socket) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
