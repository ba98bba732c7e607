// Package sdk is the embedding surface for the Courseloop realtime admin
// fabric: one Client per user session, started with an auth token, feeding
// dashboard metrics, activity, notifications and security alerts into
// observable in-memory state.
package sdk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/courseloop/pulse/internal/health"
	"github.com/courseloop/pulse/internal/pubsub"
	"github.com/courseloop/pulse/internal/router"
	"github.com/courseloop/pulse/internal/store"
	"github.com/courseloop/pulse/internal/subs"
	"github.com/courseloop/pulse/internal/transport"
	"github.com/courseloop/pulse/pkg/logger"
	"github.com/courseloop/pulse/pkg/types"
)

// ErrTokenExpired is returned by Start when the supplied JWT is already past
// its expiry.
var ErrTokenExpired = errors.New("auth token expired")

// Snapshot is the aggregate view delivered to Observe callbacks on any store
// or status change.
type Snapshot struct {
	State  State
	Status transport.Status

	Metrics              *types.MetricsSnapshot
	Activities           []types.Activity
	Notifications        []types.Notification
	UnreadNotifications  int
	SecurityAlerts       []types.SecurityAlert
	UnreadSecurityAlerts int

	Healthy bool
	LastRTT time.Duration
}

// Client composes the transport, router, subscription registry, stores and
// health monitor behind a single handle whose lifecycle is tied to a user
// session: the token arrives on Start and everything is cleared on Stop.
//
// All methods are safe to call from any goroutine.
type Client struct {
	opts     options
	dispatch *dispatcher

	mu            sync.Mutex
	state         State
	token         string
	gen           int
	status        transport.Status
	tr            transport.Transport
	rt            *router.Router
	registry      *subs.Registry
	metrics       *store.Metrics
	activities    *store.Activities
	notifications *store.Notifications
	alerts        *store.Alerts
	monitor       *health.Monitor
	dedupe        *store.Deduper
	cancels       []func()
	bus           *pubsub.Bus[Snapshot]
}

// NewClient creates an idle Client. Multiple clients are independent and
// share no state.
func NewClient(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Client{
		opts:     o,
		dispatch: newDispatcher(256),
		state:    StateIdle,
	}
	c.bus = pubsub.NewBus(c.snapshot())
	return c
}

// Start wires the client and begins the handshake with token. Idempotent
// for the same token; a different token restarts the session. From
// StateFailed, Start with a fresh token begins a new session.
func (c *Client) Start(token string) error {
	_, err := c.dispatch.call(func() (interface{}, error) {
		return nil, c.start(token)
	})
	return err
}

func (c *Client) start(token string) error {
	c.mu.Lock()
	if c.state.active() && c.token == token {
		c.mu.Unlock()
		return nil
	}
	restart := c.tr != nil
	c.mu.Unlock()

	if restart {
		c.stop()
	}

	if tokenExpired(token, c.opts.clk.Now()) {
		logger.Warnf("start rejected: token already expired")
		c.mu.Lock()
		c.state = StateFailed
		c.status = transport.Status{
			State: transport.StateFailed,
			Kind:  transport.KindAuth,
			Err:   ErrTokenExpired,
		}
		c.mu.Unlock()
		c.publishSnapshot()
		return ErrTokenExpired
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.token = token
	c.state = StateStarting
	c.status = transport.Status{State: transport.StateConnecting}

	c.metrics = store.NewMetrics()
	c.activities = store.NewActivities(c.opts.bounds.Activities)
	c.notifications = store.NewNotifications(c.opts.bounds.Notifications)
	c.alerts = store.NewAlerts(c.opts.bounds.SecurityAlerts)
	c.dedupe = nil
	if c.opts.dedupeWindow > 0 {
		dedupe, err := store.NewDeduper(c.opts.dedupeWindow)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("dedupe window: %w", err)
		}
		c.dedupe = dedupe
	}

	tr := c.opts.newTransport(transport.Config{
		URL:        c.opts.endpoint,
		Path:       c.opts.path,
		Transports: c.opts.transports,
		Reconnect:  c.opts.reconnect,
	})
	c.tr = tr
	c.registry = subs.New(tr)
	c.rt = router.New(clientSink{c: c, gen: gen}, c.opts.clk)
	c.rt.Bind(tr)
	c.monitor = health.NewMonitor(tr, c.opts.clk, c.opts.healthInterval, c.opts.healthDeadline)

	c.cancels = append(c.cancels,
		tr.OnStatus(func(st transport.Status) {
			_ = c.dispatch.do(func() { c.applyStatus(gen, st) })
		}),
		c.monitor.Observe(func(health.Event) {
			_ = c.dispatch.do(func() { c.applyHealth(gen) })
		}),
	)
	c.mu.Unlock()

	c.publishSnapshot()

	if err := tr.Connect(token); err != nil {
		// Transient dial errors are retried by the transport's own
		// backoff loop; nothing more to do here.
		logger.Debugf("initial connect: %v", err)
	}
	return nil
}

// Stop terminates the health monitor, closes the transport, clears all
// stores and subscription intents, and notifies observers of the terminal
// state once. After Stop returns no observer is invoked again.
func (c *Client) Stop() {
	_, _ = c.dispatch.call(func() (interface{}, error) {
		c.stop()
		return nil, nil
	})
}

func (c *Client) stop() {
	c.mu.Lock()
	if c.tr == nil && c.state == StateIdle {
		c.mu.Unlock()
		logger.Debugf("stop: already idle")
		return
	}
	c.state = StateStopping
	c.gen++
	cancels := c.cancels
	c.cancels = nil
	tr := c.tr
	rt := c.rt
	registry := c.registry
	monitor := c.monitor
	c.tr = nil
	c.rt = nil
	c.registry = nil
	c.monitor = nil
	c.dedupe = nil
	c.token = ""
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if rt != nil {
		rt.Unbind()
	}
	if monitor != nil {
		monitor.Stop()
		monitor.Close()
	}
	if tr != nil {
		tr.Disconnect()
	}
	if registry != nil {
		registry.Clear()
	}

	c.mu.Lock()
	metrics, activities, notifications, alerts := c.metrics, c.activities, c.notifications, c.alerts
	c.mu.Unlock()
	if metrics != nil {
		metrics.Clear()
		metrics.Close()
	}
	if activities != nil {
		activities.Clear()
		activities.Close()
	}
	if notifications != nil {
		notifications.ClearAll()
		notifications.Close()
	}
	if alerts != nil {
		alerts.ClearAll()
		alerts.Close()
	}

	c.mu.Lock()
	c.state = StateIdle
	c.status = transport.Status{State: transport.StateDisconnected}
	c.mu.Unlock()

	// Terminal snapshot, then silence: observers from this session never
	// fire again. A fresh bus serves any future session.
	c.publishSnapshot()
	c.mu.Lock()
	c.bus.Close()
	c.bus = pubsub.NewBus(c.snapshotLocked())
	c.mu.Unlock()
}

// Subscribe records interest in a channel and asserts it against the server
// when connected. Options are server-defined and passed through opaquely.
func (c *Client) Subscribe(channel types.Channel, options map[string]any) {
	_ = c.dispatch.do(func() {
		c.mu.Lock()
		registry := c.registry
		active := c.state.active()
		c.mu.Unlock()
		if registry == nil || !active {
			logger.Warnf("subscribe %q ignored: client not started", channel)
			return
		}
		registry.Subscribe(channel, options)
	})
}

// Unsubscribe removes a channel intent and informs the server when
// connected.
func (c *Client) Unsubscribe(channel types.Channel) {
	_ = c.dispatch.do(func() {
		c.mu.Lock()
		registry := c.registry
		active := c.state.active()
		c.mu.Unlock()
		if registry == nil || !active {
			logger.Warnf("unsubscribe %q ignored: client not started", channel)
			return
		}
		registry.Unsubscribe(channel)
	})
}

// applyStatus runs on the dispatcher goroutine for every transport status
// transition of the current session.
func (c *Client) applyStatus(gen int, st transport.Status) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.status = st
	registry := c.registry
	monitor := c.monitor

	switch st.State {
	case transport.StateConnected:
		c.state = StateLive
	case transport.StateConnecting, transport.StateReconnecting:
		c.state = StateStarting
	case transport.StateFailed:
		c.state = StateFailed
	}
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateLive:
		// Replay before any inbound event of the new session is applied:
		// the connected status transition is queued ahead of data frames.
		if registry != nil {
			registry.Replay()
		}
		if monitor != nil {
			monitor.Start()
		}
	default:
		if monitor != nil {
			monitor.Stop()
		}
	}

	c.publishSnapshot()
}

func (c *Client) applyHealth(gen int) {
	c.mu.Lock()
	stale := gen != c.gen
	c.mu.Unlock()
	if stale {
		return
	}
	c.publishSnapshot()
}

func (c *Client) applyMetrics(gen int, m types.MetricsSnapshot) {
	c.mu.Lock()
	if gen != c.gen || !c.state.active() {
		c.mu.Unlock()
		return
	}
	metrics := c.metrics
	c.mu.Unlock()

	metrics.Set(m)
	c.publishSnapshot()
}

func (c *Client) applyActivity(gen int, a types.Activity) {
	c.mu.Lock()
	if gen != c.gen || !c.state.active() {
		c.mu.Unlock()
		return
	}
	activities := c.activities
	c.mu.Unlock()

	activities.Push(a)
	c.publishSnapshot()
}

func (c *Client) applyNotification(gen int, n types.Notification) {
	c.mu.Lock()
	if gen != c.gen || !c.state.active() {
		c.mu.Unlock()
		return
	}
	notifications := c.notifications
	dedupe := c.dedupe
	c.mu.Unlock()

	if dedupe.Seen(n.ID) {
		logger.Debugf("duplicate notification %q dropped", n.ID)
		return
	}
	notifications.Push(n)
	c.publishSnapshot()
}

func (c *Client) applySecurityAlert(gen int, a types.SecurityAlert) {
	c.mu.Lock()
	if gen != c.gen || !c.state.active() {
		c.mu.Unlock()
		return
	}
	alerts := c.alerts
	c.mu.Unlock()

	alerts.Push(a)
	c.publishSnapshot()
}

func (c *Client) applyPong(gen int, p types.Pong) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	monitor := c.monitor
	c.mu.Unlock()

	if monitor != nil {
		monitor.Pong(p)
	}
}

// clientSink bridges router output onto the dispatcher, pinned to the
// session generation that created it so late frames from a dead session are
// discarded.
type clientSink struct {
	c   *Client
	gen int
}

func (s clientSink) HandleMetrics(m types.MetricsSnapshot) {
	_ = s.c.dispatch.do(func() { s.c.applyMetrics(s.gen, m) })
}

func (s clientSink) HandleActivity(a types.Activity) {
	_ = s.c.dispatch.do(func() { s.c.applyActivity(s.gen, a) })
}

func (s clientSink) HandleNotification(n types.Notification) {
	_ = s.c.dispatch.do(func() { s.c.applyNotification(s.gen, n) })
}

func (s clientSink) HandleSecurityAlert(a types.SecurityAlert) {
	_ = s.c.dispatch.do(func() { s.c.applySecurityAlert(s.gen, a) })
}

func (s clientSink) HandlePong(p types.Pong) {
	_ = s.c.dispatch.do(func() { s.c.applyPong(s.gen, p) })
}

func (c *Client) publishSnapshot() {
	c.mu.Lock()
	snapshot := c.snapshotLocked()
	bus := c.bus
	c.mu.Unlock()
	bus.Publish(snapshot)
}

func (c *Client) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Client) snapshotLocked() Snapshot {
	s := Snapshot{
		State:   c.state,
		Status:  c.status,
		Healthy: true,
	}
	if c.metrics != nil {
		s.Metrics = c.metrics.Get()
	}
	if c.activities != nil {
		s.Activities = c.activities.List()
	}
	if c.notifications != nil {
		s.Notifications = c.notifications.List()
		s.UnreadNotifications = c.notifications.UnreadCount()
	}
	if c.alerts != nil {
		s.SecurityAlerts = c.alerts.List()
		s.UnreadSecurityAlerts = c.alerts.UnreadCount()
	}
	if c.monitor != nil {
		s.Healthy = !c.monitor.Degraded()
		s.LastRTT = c.monitor.LastRTT()
	}
	return s
}
