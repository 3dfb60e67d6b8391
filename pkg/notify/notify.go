// Package notify delivers caregiver alerts when the emergency detector
// permits one.
package notify

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/emergency"
)

// Alert is one caregiver notification.
type Alert struct {
	UserID   string
	UserName string
	Message  string
	Result   emergency.Result
	At       time.Time
}

// Notifier delivers alerts to a human. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to a logger. It is the fallback when no chat
// channel is configured, so a misconfigured deployment still leaves a trace.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(os.Stderr, "alert: ", log.LstdFlags)
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	n.logger.Printf("EMERGENCY user=%s severity=%s concerns=%s worsening=%v",
		alert.UserID, alert.Result.Severity, strings.Join(alert.Result.Concerns, ","), alert.Result.IsWorsening)
	return nil
}

// FormatAlert renders the caregiver-facing message body.
func FormatAlert(alert Alert) string {
	name := alert.UserName
	if name == "" {
		name = "User " + alert.UserID
	}
	var b strings.Builder
	b.WriteString("🚨 Emergency alert\n\n")
	fmt.Fprintf(&b, "Who: %s\n", name)
	fmt.Fprintf(&b, "Severity: %s\n", alert.Result.Severity)
	if len(alert.Result.Concerns) > 0 {
		fmt.Fprintf(&b, "Concerns: %s\n", strings.Join(alert.Result.Concerns, ", "))
	}
	if alert.Result.IsWorsening {
		b.WriteString("Condition reported as worsening.\n")
	}
	if alert.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %q\n", alert.Message)
	}
	if !alert.At.IsZero() {
		fmt.Fprintf(&b, "Time: %s\n", alert.At.Format("Jan 2 15:04 MST"))
	}
	return b.String()
}
