// pulsewatch tails a Courseloop admin dashboard in the terminal: it connects
// with the configured token, subscribes to every channel and prints metrics,
// activity, notifications and security alerts as they arrive.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/courseloop/pulse/internal/config"
	"github.com/courseloop/pulse/pkg/logger"
	"github.com/courseloop/pulse/pkg/types"
	"github.com/courseloop/pulse/sdk"
)

const version = "pulsewatch v1.0.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	fs := flag.NewFlagSet("pulsewatch", flag.ContinueOnError)
	serverURL := fs.String("server", "", "server base URL (overrides config)")
	token := fs.String("token", "", "auth token (overrides config)")
	timeout := fs.Duration("connect-timeout", 15*time.Second, "how long to wait for the first connection")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	args := fs.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Println(version)
			return nil
		case "help", "--help", "-h":
			printUsage()
			return nil
		case "watch":
			args = args[1:]
		default:
			printUsage()
			return fmt.Errorf("unknown command %q", args[0])
		}
	}
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		if *serverURL == "" {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = &config.Config{ServerURL: *serverURL, LogLevel: "info"}
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *token != "" {
		cfg.Token = *token
		cfg.TokenFile = ""
	}

	raw := cfg.LogLevel
	if cfg.Debug {
		raw = "trace"
	}
	level, err := logger.ParseLevel(raw)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	authToken, err := cfg.ResolveToken()
	if err != nil {
		return err
	}

	opts := []sdk.Option{
		sdk.WithEndpoint(cfg.ServerURL),
	}
	if cfg.Path != "" {
		opts = append(opts, sdk.WithPath(cfg.Path))
	}
	if len(cfg.Transports) > 0 {
		opts = append(opts, sdk.WithTransports(cfg.Transports...))
	}
	if cfg.HealthInterval > 0 {
		opts = append(opts, sdk.WithHealthInterval(cfg.HealthInterval))
	}
	if cfg.HealthDeadline > 0 {
		opts = append(opts, sdk.WithHealthDeadline(cfg.HealthDeadline))
	}
	opts = append(opts, sdk.WithBounds(sdk.Bounds{
		Activities:     cfg.MaxActivities,
		Notifications:  cfg.MaxNotifications,
		SecurityAlerts: cfg.MaxSecurityAlerts,
	}))

	client := sdk.NewClient(opts...)
	defer client.Stop()

	printer := newPrinter()
	cancel := client.Observe(printer.handle)
	defer cancel()

	if err := client.Start(authToken); err != nil {
		return err
	}
	for _, channel := range types.Channels() {
		client.Subscribe(channel, nil)
	}

	if !client.WaitForConnect(*timeout) {
		fmt.Fprintln(os.Stderr, "still connecting, watching in the background...")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
	fmt.Println("shutting down")
	return nil
}

func printUsage() {
	fmt.Println(`Usage: pulsewatch [flags] [command]

Commands:
  watch     stream dashboard events (default)
  version   print the version
  help      show this help

Flags:
  -server URL            server base URL (overrides config)
  -token TOKEN           auth token (overrides config)
  -connect-timeout DUR   how long to wait for the first connection

Configuration is read from $COURSELOOP_CONFIG or ~/.courseloop/pulse.yaml,
with COURSELOOP_* environment variables taking precedence.`)
}

// printer renders snapshot deltas. It remembers how much of each feed it has
// already shown; feeds are newest-first so new records sit at the front.
type printer struct {
	state         sdk.State
	metrics       *types.MetricsSnapshot
	activities    int
	notifications int
	alerts        int

	stateColor map[sdk.State]*color.Color
	alertColor map[types.Priority]*color.Color
	noteColor  map[types.NotificationType]*color.Color
}

func newPrinter() *printer {
	return &printer{
		state: sdk.StateIdle,
		stateColor: map[sdk.State]*color.Color{
			sdk.StateLive:     color.New(color.FgGreen, color.Bold),
			sdk.StateStarting: color.New(color.FgYellow),
			sdk.StateFailed:   color.New(color.FgRed, color.Bold),
		},
		alertColor: map[types.Priority]*color.Color{
			types.PriorityCritical: color.New(color.FgRed, color.Bold),
			types.PriorityHigh:     color.New(color.FgRed),
			types.PriorityMedium:   color.New(color.FgYellow),
			types.PriorityLow:      color.New(color.FgCyan),
		},
		noteColor: map[types.NotificationType]*color.Color{
			types.NotificationError:   color.New(color.FgRed),
			types.NotificationWarning: color.New(color.FgYellow),
			types.NotificationSuccess: color.New(color.FgGreen),
			types.NotificationInfo:    color.New(color.FgWhite),
		},
	}
}

func (p *printer) handle(s sdk.Snapshot) {
	if s.State != p.state {
		p.state = s.State
		c := p.stateColor[s.State]
		if c == nil {
			c = color.New(color.FgWhite)
		}
		c.Printf("state: %s", s.State)
		if s.Status.Err != nil {
			fmt.Printf("  (%v)", s.Status.Err)
		}
		fmt.Println()
	}

	if s.Metrics != nil && (p.metrics == nil || *s.Metrics != *p.metrics) {
		m := *s.Metrics
		p.metrics = &m
		fmt.Printf("metrics: users=%d courses=%d enrollments=%d revenue=%.2f (growth %+.1f%%)\n",
			m.TotalUsers, m.ActiveCourses, m.TotalEnrollments, m.TotalRevenue, m.RevenueGrowth)
	}

	for i := newCount(len(s.Activities), &p.activities) - 1; i >= 0; i-- {
		a := s.Activities[i]
		fmt.Printf("activity [%s] %s: %s\n", a.Type, a.Title, a.Description)
	}

	for i := newCount(len(s.Notifications), &p.notifications) - 1; i >= 0; i-- {
		n := s.Notifications[i]
		c := p.noteColor[n.Type]
		if c == nil {
			c = color.New(color.FgWhite)
		}
		c.Printf("notification [%s] %s", n.Type, n.Title)
		fmt.Printf(": %s (unread %d)\n", n.Message, s.UnreadNotifications)
	}

	for i := newCount(len(s.SecurityAlerts), &p.alerts) - 1; i >= 0; i-- {
		a := s.SecurityAlerts[i]
		c := p.alertColor[a.Priority]
		if c == nil {
			c = color.New(color.FgWhite)
		}
		c.Printf("ALERT [%s/%s] %s", a.Priority, a.Category, a.Title)
		fmt.Printf(": %s\n", a.Description)
	}
}

// newCount returns how many records at the front of a newest-first feed have
// not been shown yet and advances the shown bookmark.
func newCount(current int, shown *int) int {
	fresh := current - *shown
	if fresh < 0 {
		fresh = 0
	}
	*shown = current
	return fresh
}
