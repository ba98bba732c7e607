// Package subs remembers which channels the application asked for and
// asserts those intents against the server.
//
// The registry is the single source of truth for subscription state; the
// transport holds none. Intents survive reconnects and are replayed, in
// insertion order, whenever the connection comes back.
package subs

import (
	"reflect"
	"sync"

	"github.com/courseloop/pulse/internal/transport"
	"github.com/courseloop/pulse/pkg/logger"
	"github.com/courseloop/pulse/pkg/types"
)

// UnsubscribeEvent is the server-bound command that cancels a channel.
const UnsubscribeEvent = "unsubscribe"

// Emitter is the subset of the transport the registry needs.
type Emitter interface {
	Emit(event string, data map[string]any) error
	Status() transport.Status
}

// Intent is a remembered declaration of interest in a channel.
type Intent struct {
	Channel types.Channel
	// Options is a server-defined configuration record, passed through
	// opaquely.
	Options map[string]any
}

// Registry tracks subscription intents with per-channel options.
type Registry struct {
	mu      sync.Mutex
	order   []types.Channel
	options map[types.Channel]map[string]any
	emitter Emitter
}

// New returns an empty Registry bound to emitter.
func New(emitter Emitter) *Registry {
	return &Registry{
		options: make(map[types.Channel]map[string]any),
		emitter: emitter,
	}
}

// Subscribe records the intent and, if connected, sends the subscribe
// command. Re-subscribing a channel with identical options is a no-op; new
// options replace the old ones (keeping the channel's replay position) and
// are re-asserted against the server.
func (r *Registry) Subscribe(channel types.Channel, options map[string]any) {
	if !channel.Valid() {
		logger.Warnf("subscribe ignored: unknown channel %q", channel)
		return
	}

	r.mu.Lock()
	existing, present := r.options[channel]
	if present && reflect.DeepEqual(existing, options) {
		r.mu.Unlock()
		return
	}
	if !present {
		r.order = append(r.order, channel)
	}
	r.options[channel] = options
	connected := r.emitter.Status().Connected()
	r.mu.Unlock()

	if connected {
		_ = r.emitter.Emit(channel.SubscribeEvent(), options)
	}
}

// Unsubscribe removes the intent and, if connected, tells the server.
func (r *Registry) Unsubscribe(channel types.Channel) {
	r.mu.Lock()
	if _, present := r.options[channel]; !present {
		r.mu.Unlock()
		return
	}
	delete(r.options, channel)
	for i, c := range r.order {
		if c == channel {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	connected := r.emitter.Status().Connected()
	r.mu.Unlock()

	if connected {
		_ = r.emitter.Emit(UnsubscribeEvent, map[string]any{
			"channel": string(channel),
		})
	}
}

// Replay re-asserts every intent in insertion order. Called on every
// transition to connected.
func (r *Registry) Replay() {
	r.mu.Lock()
	intents := r.intentsLocked()
	r.mu.Unlock()

	for _, intent := range intents {
		_ = r.emitter.Emit(intent.Channel.SubscribeEvent(), intent.Options)
	}
}

// Intents returns a copy of the current intents in insertion order.
func (r *Registry) Intents() []Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.intentsLocked()
}

// Clear drops every intent without notifying the server. Used on stop.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.options = make(map[types.Channel]map[string]any)
}

func (r *Registry) intentsLocked() []Intent {
	intents := make([]Intent, 0, len(r.order))
	for _, channel := range r.order {
		intents = append(intents, Intent{Channel: channel, Options: r.options[channel]})
	}
	return intents
}
