package sdk

import (
	"time"

	"github.com/courseloop/pulse/internal/clock"
	"github.com/courseloop/pulse/internal/health"
	"github.com/courseloop/pulse/internal/transport"
)

// Bounds is the per-store record cap configuration. Zero fields keep the
// store defaults.
type Bounds struct {
	Activities     int
	Notifications  int
	SecurityAlerts int
}

type options struct {
	endpoint       string
	path           string
	transports     []string
	reconnect      transport.ReconnectPolicy
	healthInterval time.Duration
	healthDeadline time.Duration
	bounds         Bounds
	dedupeWindow   int
	clk            clock.Clock
	newTransport   func(transport.Config) transport.Transport
}

func defaultOptions() options {
	return options{
		transports:     []string{"websocket", "polling"},
		reconnect:      transport.DefaultReconnectPolicy(),
		healthInterval: health.DefaultInterval,
		healthDeadline: health.DefaultDeadline,
		clk:            clock.RealClock{},
		newTransport: func(cfg transport.Config) transport.Transport {
			return transport.New(cfg)
		},
	}
}

// Option configures a Client.
type Option func(*options)

// WithEndpoint sets the server base URL.
func WithEndpoint(url string) Option {
	return func(o *options) { o.endpoint = url }
}

// WithPath overrides the handshake path.
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

// WithTransports sets the transport fallback order, e.g.
// ("websocket", "polling").
func WithTransports(transports ...string) Option {
	return func(o *options) { o.transports = transports }
}

// WithReconnectPolicy replaces the reconnect backoff policy.
func WithReconnectPolicy(p transport.ReconnectPolicy) Option {
	return func(o *options) { o.reconnect = p }
}

// WithHealthInterval sets the ping period.
func WithHealthInterval(d time.Duration) Option {
	return func(o *options) { o.healthInterval = d }
}

// WithHealthDeadline sets how long a ping may stay unanswered.
func WithHealthDeadline(d time.Duration) Option {
	return func(o *options) { o.healthDeadline = d }
}

// WithBounds sets the per-store record caps.
func WithBounds(b Bounds) Option {
	return func(o *options) { o.bounds = b }
}

// WithDedupeWindow enables dropping retried notification deliveries: the
// last window server-assigned ids are remembered and duplicates are
// discarded. Disabled by default; duplicate ids are separate records.
func WithDedupeWindow(window int) Option {
	return func(o *options) { o.dedupeWindow = window }
}

// WithClock replaces the wall clock. Tests use a fake.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clk = c }
}

// WithTransportFactory replaces the transport constructor. Tests install an
// in-memory fake.
func WithTransportFactory(f func(transport.Config) transport.Transport) Option {
	return func(o *options) { o.newTransport = f }
}
