package types

import "time"

// Channel identifies one of the fixed logical streams the dashboard server
// publishes.
type Channel string

const (
	ChannelMetrics       Channel = "metrics"
	ChannelActivity      Channel = "activity"
	ChannelNotifications Channel = "notifications"
	ChannelSecurity      Channel = "security"
)

// Channels lists every channel in a stable order.
func Channels() []Channel {
	return []Channel{ChannelMetrics, ChannelActivity, ChannelNotifications, ChannelSecurity}
}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelMetrics, ChannelActivity, ChannelNotifications, ChannelSecurity:
		return true
	}
	return false
}

// SubscribeEvent is the server-bound command name that subscribes c.
func (c Channel) SubscribeEvent() string {
	return "subscribe:" + string(c)
}

// MetricsSnapshot is the latest dashboard metrics value. Older snapshots are
// discarded; the server is authoritative.
type MetricsSnapshot struct {
	TotalUsers       int64   `json:"totalUsers"`
	ActiveCourses    int64   `json:"activeCourses"`
	TotalEnrollments int64   `json:"totalEnrollments"`
	TotalRevenue     float64 `json:"totalRevenue"`
	UserGrowth       float64 `json:"userGrowth"`
	CourseGrowth     float64 `json:"courseGrowth"`
	EnrollmentGrowth float64 `json:"enrollmentGrowth"`
	RevenueGrowth    float64 `json:"revenueGrowth"`
}

// ActivityType classifies an activity record.
type ActivityType string

const (
	ActivityUserRegistration ActivityType = "user_registration"
	ActivityCourseCreation   ActivityType = "course_creation"
	ActivityEnrollment       ActivityType = "enrollment"
	ActivityOther            ActivityType = "other"
)

// ParseActivityType maps a wire value to an ActivityType, defaulting to
// ActivityOther for anything unrecognized.
func ParseActivityType(raw string) ActivityType {
	switch ActivityType(raw) {
	case ActivityUserRegistration, ActivityCourseCreation, ActivityEnrollment:
		return ActivityType(raw)
	}
	return ActivityOther
}

// Activity is a single dashboard activity record. Immutable after creation.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Timestamp   string       `json:"timestamp"`
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// ParseNotificationType maps a wire value to a NotificationType, defaulting
// to NotificationInfo for anything unrecognized.
func ParseNotificationType(raw string) NotificationType {
	switch NotificationType(raw) {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return NotificationType(raw)
	}
	return NotificationInfo
}

// Notification is a single admin notification with read-state bookkeeping.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp string           `json:"timestamp"`
	Read      bool             `json:"read"`
}

// Priority orders security alerts. Higher values are more urgent.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the wire name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParsePriority maps a wire value to a Priority, defaulting to PriorityLow
// for anything unrecognized.
func ParsePriority(raw string) Priority {
	switch raw {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Priorities lists every priority from most to least urgent.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// SecurityAlert is a single security alert record.
type SecurityAlert struct {
	ID          string         `json:"id"`
	Priority    Priority       `json:"priority"`
	Category    string         `json:"category"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
	Timestamp   string         `json:"timestamp"`
	Read        bool           `json:"read"`
}

// Pong is a health-check response echoed by the server.
type Pong struct {
	// Timestamp is the client-sent wall clock echoed back, in Unix millis.
	Timestamp int64 `json:"timestamp"`
}

// NowISO formats t the way the server stamps records.
func NowISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
