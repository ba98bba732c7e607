package sdk

import (
	"time"

	"github.com/courseloop/pulse/internal/transport"
	"github.com/courseloop/pulse/pkg/logger"
	"github.com/courseloop/pulse/pkg/types"
)

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectionStatus returns the last transport status transition.
func (c *Client) ConnectionStatus() transport.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsConnected reports whether the session is live.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateLive && c.status.Connected()
}

// Metrics returns the latest dashboard metrics, or nil before the first
// frame of the session.
func (c *Client) Metrics() *types.MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.metrics == nil {
		return nil
	}
	return c.metrics.Get()
}

// Activities returns the activity feed, newest first.
func (c *Client) Activities() []types.Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activities == nil {
		return nil
	}
	return c.activities.List()
}

// Notifications returns the notification list, newest first.
func (c *Client) Notifications() []types.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notifications == nil {
		return nil
	}
	return c.notifications.List()
}

// UnreadNotifications returns the number of unread notifications.
func (c *Client) UnreadNotifications() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notifications == nil {
		return 0
	}
	return c.notifications.UnreadCount()
}

// SecurityAlerts returns the alert list, newest first.
func (c *Client) SecurityAlerts() []types.SecurityAlert {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alerts == nil {
		return nil
	}
	return c.alerts.List()
}

// SecurityAlertsByPriority returns the alerts of a single priority, newest
// first.
func (c *Client) SecurityAlertsByPriority(p types.Priority) []types.SecurityAlert {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alerts == nil {
		return nil
	}
	return c.alerts.ByPriority(p)
}

// SecurityAlertCount returns the number of stored alerts with priority p.
func (c *Client) SecurityAlertCount(p types.Priority) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alerts == nil {
		return 0
	}
	return c.alerts.PriorityCount(p)
}

// UnreadSecurityAlerts returns the number of unread alerts.
func (c *Client) UnreadSecurityAlerts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alerts == nil {
		return 0
	}
	return c.alerts.UnreadCount()
}

// Healthy reports whether the link is answering pings. Always true while no
// session is running.
func (c *Client) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.monitor == nil {
		return true
	}
	return !c.monitor.Degraded()
}

// LastRTT returns the most recent ping round trip, zero before the first
// pong of the session.
func (c *Client) LastRTT() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.monitor == nil {
		return 0
	}
	return c.monitor.LastRTT()
}

// MarkNotificationAsRead marks one notification read. Unknown ids and
// already-read records are no-ops.
func (c *Client) MarkNotificationAsRead(id string) {
	_ = c.dispatch.do(func() {
		c.mu.Lock()
		notifications := c.notifications
		c.mu.Unlock()
		if notifications == nil {
			logger.Warnf("mark notification read ignored: client not started")
			return
		}
		notifications.MarkRead(id)
		c.publishSnapshot()
	})
}

// ClearNotification removes one notification by id.
func (c *Client) ClearNotification(id string) {
	_ = c.dispatch.do(func() {
		c.mu.Lock()
		notifications := c.notifications
		c.mu.Unlock()
		if notifications == nil {
			logger.Warnf("clear notification ignored: client not started")
			return
		}
		notifications.Clear(id)
		c.publishSnapshot()
	})
}

// ClearAllNotifications empties the notification store.
func (c *Client) ClearAllNotifications() {
	_ = c.dispatch.do(func() {
		c.mu.Lock()
		notifications := c.notifications
		c.mu.Unlock()
		if notifications == nil {
			return
		}
		notifications.ClearAll()
		c.publishSnapshot()
	})
}

// MarkSecurityAlertAsRead marks one alert read.
func (c *Client) MarkSecurityAlertAsRead(id string) {
	_ = c.dispatch.do(func() {
		c.mu.Lock()
		alerts := c.alerts
		c.mu.Unlock()
		if alerts == nil {
			logger.Warnf("mark alert read ignored: client not started")
			return
		}
		alerts.MarkRead(id)
		c.publishSnapshot()
	})
}

// ClearSecurityAlert removes one alert by id.
func (c *Client) ClearSecurityAlert(id string) {
	_ = c.dispatch.do(func() {
		c.mu.Lock()
		alerts := c.alerts
		c.mu.Unlock()
		if alerts == nil {
			logger.Warnf("clear alert ignored: client not started")
			return
		}
		alerts.Clear(id)
		c.publishSnapshot()
	})
}

// ClearAllSecurityAlerts empties the alert store.
func (c *Client) ClearAllSecurityAlerts() {
	_ = c.dispatch.do(func() {
		c.mu.Lock()
		alerts := c.alerts
		c.mu.Unlock()
		if alerts == nil {
			return
		}
		alerts.ClearAll()
		c.publishSnapshot()
	})
}

// Observe registers fn for aggregate snapshots. The current snapshot is
// delivered immediately, then one per change until cancel is called or the
// session stops.
func (c *Client) Observe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	bus := c.bus
	c.mu.Unlock()
	return bus.Observe(fn)
}

// WaitForConnect blocks until the session is live or the timeout elapses.
func (c *Client) WaitForConnect(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if c.IsConnected() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
}
