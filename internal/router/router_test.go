package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courseloop/pulse/internal/clock/clocktest"
	"github.com/courseloop/pulse/internal/transport/transporttest"
	"github.com/courseloop/pulse/pkg/types"
)

// recordingSink captures everything the router forwards.
type recordingSink struct {
	metrics       []types.MetricsSnapshot
	activities    []types.Activity
	notifications []types.Notification
	alerts        []types.SecurityAlert
	pongs         []types.Pong
}

func (s *recordingSink) HandleMetrics(m types.MetricsSnapshot)      { s.metrics = append(s.metrics, m) }
func (s *recordingSink) HandleActivity(a types.Activity)            { s.activities = append(s.activities, a) }
func (s *recordingSink) HandleNotification(n types.Notification)    { s.notifications = append(s.notifications, n) }
func (s *recordingSink) HandleSecurityAlert(a types.SecurityAlert)  { s.alerts = append(s.alerts, a) }
func (s *recordingSink) HandlePong(p types.Pong)                    { s.pongs = append(s.pongs, p) }

func newBoundRouter(t *testing.T) (*transporttest.Fake, *recordingSink, *clocktest.FakeClock) {
	t.Helper()
	fake := transporttest.NewFake()
	sink := &recordingSink{}
	clk := clocktest.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	r := New(sink, clk)
	r.Bind(fake)
	t.Cleanup(r.Unbind)
	return fake, sink, clk
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	fake, sink, _ := newBoundRouter(t)

	fake.FireEvent(EventMetrics, map[string]any{
		"data": map[string]any{
			"totalUsers":       float64(10),
			"activeCourses":    float64(2),
			"totalEnrollments": float64(5),
			"totalRevenue":     100.0,
			"userGrowth":       1.2,
			"unknownKey":       "ignored",
		},
	})

	require.Len(t, sink.metrics, 1)
	m := sink.metrics[0]
	require.Equal(t, int64(10), m.TotalUsers)
	require.Equal(t, int64(2), m.ActiveCourses)
	require.Equal(t, int64(5), m.TotalEnrollments)
	require.Equal(t, 100.0, m.TotalRevenue)
	require.Equal(t, 1.2, m.UserGrowth)
	// Missing keys default to zero.
	require.Equal(t, float64(0), m.RevenueGrowth)
}

func TestRouter_MetricsMalformed(t *testing.T) {
	t.Parallel()

	fake, sink, _ := newBoundRouter(t)

	fake.FireEvent(EventMetrics, nil)
	fake.FireEvent(EventMetrics, map[string]any{"data": "not-a-map"})
	fake.FireEvent(EventMetrics, map[string]any{
		"data": map[string]any{"totalUsers": "not-a-number"},
	})

	require.Empty(t, sink.metrics)
}

func TestRouter_Activity(t *testing.T) {
	t.Parallel()

	fake, sink, _ := newBoundRouter(t)

	fake.FireEvent(EventActivity, map[string]any{
		"data": map[string]any{
			"id":          "act-1",
			"type":        "enrollment",
			"title":       "New enrollment",
			"description": "Student enrolled in Go 101",
			"timestamp":   "2025-06-01T10:00:00Z",
		},
	})

	require.Len(t, sink.activities, 1)
	a := sink.activities[0]
	require.Equal(t, "act-1", a.ID)
	require.Equal(t, types.ActivityEnrollment, a.Type)
	require.Equal(t, "New enrollment", a.Title)
	require.Equal(t, "2025-06-01T10:00:00Z", a.Timestamp)
}

func TestRouter_ActivityFillRules(t *testing.T) {
	t.Parallel()

	fake, sink, clk := newBoundRouter(t)

	// Missing title and description: filled. Unknown type: "other".
	// Missing timestamp: wall clock at receipt.
	fake.FireEvent(EventActivity, map[string]any{
		"data": map[string]any{"type": "mystery"},
	})

	require.Len(t, sink.activities, 1)
	a := sink.activities[0]
	require.Equal(t, "(untitled)", a.Title)
	require.Equal(t, "", a.Description)
	require.Equal(t, types.ActivityOther, a.Type)
	require.Equal(t, types.NowISO(clk.Now()), a.Timestamp)
}

func TestRouter_ActivityEmptyStringsKept(t *testing.T) {
	t.Parallel()

	fake, sink, _ := newBoundRouter(t)

	// Present-but-empty title and description are accepted as-is.
	fake.FireEvent(EventActivity, map[string]any{
		"data": map[string]any{"title": "", "description": ""},
	})

	require.Len(t, sink.activities, 1)
	require.Equal(t, "", sink.activities[0].Title)
	require.Equal(t, "", sink.activities[0].Description)
}

func TestRouter_Notification(t *testing.T) {
	t.Parallel()

	fake, sink, _ := newBoundRouter(t)

	fake.FireEvent(EventNotification, map[string]any{
		"data": map[string]any{
			"id":      "n1",
			"type":    "warning",
			"title":   "Disk almost full",
			"message": "95% used",
		},
	})

	require.Len(t, sink.notifications, 1)
	n := sink.notifications[0]
	require.Equal(t, "n1", n.ID)
	require.Equal(t, types.NotificationWarning, n.Type)
	require.Equal(t, "Disk almost full", n.Title)
	require.Equal(t, "95% used", n.Message)
}

func TestRouter_SecurityAlert(t *testing.T) {
	t.Parallel()

	fake, sink, _ := newBoundRouter(t)

	fake.FireEvent(EventSecurity, map[string]any{
		"data": map[string]any{
			"id":          "s1",
			"priority":    "critical",
			"category":    "brute-force",
			"title":       "Repeated login failures",
			"description": "20 failures in 60s",
			"details":     map[string]any{"ip": "203.0.113.9"},
		},
	})

	require.Len(t, sink.alerts, 1)
	a := sink.alerts[0]
	require.Equal(t, types.PriorityCritical, a.Priority)
	require.Equal(t, "brute-force", a.Category)
	require.Equal(t, "203.0.113.9", a.Details["ip"])
}

func TestRouter_Pong(t *testing.T) {
	t.Parallel()

	fake, sink, _ := newBoundRouter(t)

	fake.FireEvent(EventPong, map[string]any{"timestamp": float64(1748779200000)})
	fake.FireEvent(EventPong, nil)

	require.Len(t, sink.pongs, 2)
	require.Equal(t, int64(1748779200000), sink.pongs[0].Timestamp)
	require.Equal(t, int64(0), sink.pongs[1].Timestamp)
}

func TestRouter_Unbind(t *testing.T) {
	t.Parallel()

	fake := transporttest.NewFake()
	sink := &recordingSink{}
	r := New(sink, nil)
	r.Bind(fake)
	r.Unbind()

	fake.FireEvent(EventMetrics, map[string]any{"data": map[string]any{}})
	require.Empty(t, sink.metrics)
}
