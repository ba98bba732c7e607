package sdk

// State is the lifecycle state of a Client.
type State int

const (
	// StateIdle means the client has no session; stores are empty.
	StateIdle State = iota
	// StateStarting covers the handshake and any reconnect attempt.
	StateStarting
	// StateLive means the session is connected and events flow.
	StateLive
	// StateStopping is the transient drain during Stop.
	StateStopping
	// StateFailed is terminal for the current token: auth rejection or an
	// exhausted reconnect budget. Start with a fresh token to leave it.
	StateFailed
)

// String returns a stable name for the state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateLive:
		return "live"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// active reports whether inbound events should be applied in this state.
func (s State) active() bool {
	return s == StateStarting || s == StateLive
}
