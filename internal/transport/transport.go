// Package transport owns the single logical socket to the dashboard server.
//
// It abstracts the underlying socket.io connection behind a uniform
// event-sink/event-source API so the router, the subscription registry and
// tests never touch the wire library directly.
package transport

import (
	"fmt"
	"strings"
)

// Handler receives the decoded payload of an inbound event.
type Handler func(data map[string]any)

// State is the connection state of a transport.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

// String returns a stable name for the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// ErrorKind classifies a connection failure.
type ErrorKind int

const (
	// KindNone means no error.
	KindNone ErrorKind = iota
	// KindTransient is a network blip or idle timeout; retried by the
	// reconnect loop.
	KindTransient
	// KindAuth is a handshake rejection for credentials. Terminal.
	KindAuth
	// KindFatal means the reconnect budget is exhausted. Terminal.
	KindFatal
)

// Status is the synchronous view of a transport's connection state.
type Status struct {
	State State
	Kind  ErrorKind
	// Err is the last connection error, if any.
	Err error
	// Attempt is the reconnect attempt counter while State is
	// StateReconnecting.
	Attempt int
}

// Connected reports whether the transport currently has a live session.
func (s Status) Connected() bool { return s.State == StateConnected }

// Transport is the single-socket abstraction the rest of the client builds on.
//
// Implementations own exactly one underlying connection at a time.
type Transport interface {
	// Connect initiates the handshake with the given auth token. A second
	// call while connected or connecting is a no-op; a call while
	// disconnected replaces the previous connection attempt.
	Connect(token string) error
	// Disconnect closes the connection, cancels pending reconnects and
	// leaves the status disconnected. Idempotent.
	Disconnect()
	// Emit sends a server-bound message. If not connected the message is
	// dropped; the returned error only reports that fact.
	Emit(event string, data map[string]any) error
	// On registers a handler for an inbound event. Multiple handlers per
	// event are supported; the returned func unregisters the handler.
	On(event string, fn Handler) (cancel func())
	// OnStatus registers a status observer. The observer is immediately
	// invoked with the current status.
	OnStatus(fn func(Status)) (cancel func())
	// Status returns the current connection status.
	Status() Status
}

// authErrorMarkers are substrings of connect_error payloads that indicate a
// credentials rejection rather than a transient failure.
var authErrorMarkers = []string{
	"401",
	"unauthorized",
	"authentication",
	"invalid token",
	"jwt",
}

// ClassifyConnectError inspects a connect_error payload and decides whether
// the failure is an auth rejection or a transient fault.
func ClassifyConnectError(args []any) (ErrorKind, error) {
	msg := connectErrorMessage(args)
	if msg == "" {
		return KindTransient, fmt.Errorf("connect error")
	}
	lower := strings.ToLower(msg)
	for _, marker := range authErrorMarkers {
		if strings.Contains(lower, marker) {
			return KindAuth, fmt.Errorf("auth rejected: %s", msg)
		}
	}
	return KindTransient, fmt.Errorf("connect error: %s", msg)
}

func connectErrorMessage(args []any) string {
	if len(args) == 0 {
		return ""
	}
	switch v := args[0].(type) {
	case string:
		return v
	case error:
		return v.Error()
	case map[string]any:
		if m, ok := v["message"].(string); ok {
			return m
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
