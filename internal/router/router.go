// Package router translates wire event names into internal channel traffic.
//
// It listens to the fixed inbound vocabulary of the dashboard server, shape-
// checks each frame and forwards typed records to a Sink. Malformed frames
// are logged and dropped; the client never crashes on bad input.
package router

import (
	"github.com/courseloop/pulse/internal/clock"
	"github.com/courseloop/pulse/internal/transport"
	"github.com/courseloop/pulse/pkg/logger"
	"github.com/courseloop/pulse/pkg/types"
)

// Wire event names (server → client).
const (
	EventMetrics      = "dashboard:metrics"
	EventActivity     = "dashboard:activity"
	EventNotification = "notification:new"
	EventSecurity     = "security:alert"
	EventPong         = "pong"
)

// untitledFill replaces an absent title so the UI always has something to
// render.
const untitledFill = "(untitled)"

// Sink receives the typed payloads the router produces.
type Sink interface {
	HandleMetrics(types.MetricsSnapshot)
	HandleActivity(types.Activity)
	HandleNotification(types.Notification)
	HandleSecurityAlert(types.SecurityAlert)
	HandlePong(types.Pong)
}

// Router decodes inbound frames and dispatches them to a Sink.
type Router struct {
	sink    Sink
	clk     clock.Clock
	cancels []func()
}

// New returns a Router feeding sink. Records without a server timestamp are
// stamped from clk at receipt.
func New(sink Sink, clk clock.Clock) *Router {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Router{sink: sink, clk: clk}
}

// Bind registers the router's handlers on t. Call Unbind to release them.
func (r *Router) Bind(t transport.Transport) {
	r.cancels = append(r.cancels,
		t.On(EventMetrics, r.handleMetrics),
		t.On(EventActivity, r.handleActivity),
		t.On(EventNotification, r.handleNotification),
		t.On(EventSecurity, r.handleSecurityAlert),
		t.On(EventPong, r.handlePong),
	)
}

// Unbind releases every handler registered by Bind.
func (r *Router) Unbind() {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
}

func (r *Router) handleMetrics(payload map[string]any) {
	data, ok := frameData(EventMetrics, payload)
	if !ok {
		return
	}
	snapshot := types.MetricsSnapshot{}
	fields := []struct {
		key string
		i   *int64
		f   *float64
	}{
		{key: "totalUsers", i: &snapshot.TotalUsers},
		{key: "activeCourses", i: &snapshot.ActiveCourses},
		{key: "totalEnrollments", i: &snapshot.TotalEnrollments},
		{key: "totalRevenue", f: &snapshot.TotalRevenue},
		{key: "userGrowth", f: &snapshot.UserGrowth},
		{key: "courseGrowth", f: &snapshot.CourseGrowth},
		{key: "enrollmentGrowth", f: &snapshot.EnrollmentGrowth},
		{key: "revenueGrowth", f: &snapshot.RevenueGrowth},
	}
	for _, field := range fields {
		raw, present := data[field.key]
		if !present {
			// Missing keys default to 0.
			continue
		}
		value, numeric := asFloat(raw)
		if !numeric {
			logger.Warnf("dropping %s frame: %s is not numeric (%T)", EventMetrics, field.key, raw)
			return
		}
		if field.i != nil {
			*field.i = int64(value)
		} else {
			*field.f = value
		}
	}
	r.sink.HandleMetrics(snapshot)
}

func (r *Router) handleActivity(payload map[string]any) {
	data, ok := frameData(EventActivity, payload)
	if !ok {
		return
	}
	record := types.Activity{
		ID:          getString(data, "id"),
		Type:        types.ParseActivityType(getString(data, "type")),
		Title:       stringOr(data, "title", untitledFill),
		Description: stringOr(data, "description", ""),
		Timestamp:   r.timestampOrNow(data),
	}
	r.sink.HandleActivity(record)
}

func (r *Router) handleNotification(payload map[string]any) {
	data, ok := frameData(EventNotification, payload)
	if !ok {
		return
	}
	record := types.Notification{
		ID:        getString(data, "id"),
		Type:      types.ParseNotificationType(getString(data, "type")),
		Title:     stringOr(data, "title", untitledFill),
		Message:   stringOr(data, "message", ""),
		Timestamp: r.timestampOrNow(data),
	}
	r.sink.HandleNotification(record)
}

func (r *Router) handleSecurityAlert(payload map[string]any) {
	data, ok := frameData(EventSecurity, payload)
	if !ok {
		return
	}
	record := types.SecurityAlert{
		ID:          getString(data, "id"),
		Priority:    types.ParsePriority(getString(data, "priority")),
		Category:    getString(data, "category"),
		Title:       stringOr(data, "title", untitledFill),
		Description: stringOr(data, "description", ""),
		Timestamp:   r.timestampOrNow(data),
	}
	if details, ok := data["details"].(map[string]any); ok {
		record.Details = details
	}
	r.sink.HandleSecurityAlert(record)
}

func (r *Router) handlePong(payload map[string]any) {
	pong := types.Pong{}
	if payload != nil {
		if ts, ok := asFloat(payload["timestamp"]); ok {
			pong.Timestamp = int64(ts)
		}
	}
	r.sink.HandlePong(pong)
}

// frameData extracts the .data object of a frame, logging and rejecting
// frames that do not carry one.
func frameData(event string, payload map[string]any) (map[string]any, bool) {
	if payload == nil {
		logger.Warnf("dropping %s frame: empty payload", event)
		return nil, false
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		logger.Warnf("dropping %s frame: missing data object", event)
		return nil, false
	}
	return data, true
}

// timestampOrNow returns the server timestamp or a wall-clock capture at
// receipt when the server omitted it.
func (r *Router) timestampOrNow(data map[string]any) string {
	if ts := getString(data, "timestamp"); ts != "" {
		return ts
	}
	return types.NowISO(r.clk.Now())
}

func getString(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// stringOr distinguishes an absent key from a present-but-empty string: an
// absent title is filled, an empty one is kept as-is.
func stringOr(data map[string]any, key, fill string) string {
	raw, present := data[key]
	if !present {
		return fill
	}
	s, _ := raw.(string)
	return s
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}
