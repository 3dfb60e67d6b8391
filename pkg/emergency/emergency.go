// Package emergency scans inbound messages for urgent health phrases and
// debounces the resulting alerts per user. The detector is advisory: callers
// must never rely on it as the sole safety mechanism.
package emergency

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Severity labels for a scan result.
const (
	SeverityVeryUrgent = "very_urgent"
	SeverityManageable = "manageable"
)

// DefaultDebounceWindow is the cooldown between alerts for one user.
const DefaultDebounceWindow = 5 * time.Minute

// DefaultKeywords is the stock emergency vocabulary. Phrases are matched with
// word boundaries so "pressured" never triggers "pressure".
func DefaultKeywords() []string {
	return []string{
		"chest pain", "breathing trouble", "shortness of breath",
		"can't breathe", "cannot breathe", "difficulty breathing",
		"severe headache", "fainting", "unconscious", "heart attack",
		"stroke", "bleeding a lot", "suicidal", "pressure",
	}
}

// DefaultWorseningPhrases escalate past the debounce window.
func DefaultWorseningPhrases() []string {
	return []string{"worsening", "getting worse"}
}

// Result is one scan decision. IsEmergency and ShouldAlert differ when the
// debounce window suppresses a repeat alert.
type Result struct {
	IsEmergency bool     `json:"is_emergency"`
	Severity    string   `json:"severity"`
	Concerns    []string `json:"concerns"`
	ShouldAlert bool     `json:"should_alert"`
	IsWorsening bool     `json:"is_worsening"`
}

// Detector owns its debounce map exclusively; it is safe for concurrent use.
// The map lives in process memory only, so multi-process deployments debounce
// independently per process.
type Detector struct {
	keywords  []*regexp.Regexp
	concerns  []string
	worsening []string
	window    time.Duration
	now       func() time.Time

	mu         sync.Mutex
	lastAlerts map[string]time.Time
}

// NewDetector compiles the vocabulary into word-boundary patterns. An empty
// keyword list or an unescapable phrase is a configuration error.
func NewDetector(keywords, worseningPhrases []string, window time.Duration) (*Detector, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("emergency: keyword list is empty")
	}
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	patterns := make([]*regexp.Regexp, len(keywords))
	concerns := make([]string, len(keywords))
	for i, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return nil, fmt.Errorf("emergency: keyword %d is blank", i)
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("emergency: compile keyword %q: %w", kw, err)
		}
		patterns[i] = re
		concerns[i] = kw
	}
	lowered := make([]string, len(worseningPhrases))
	for i, w := range worseningPhrases {
		lowered[i] = strings.ToLower(w)
	}
	return &Detector{
		keywords:   patterns,
		concerns:   concerns,
		worsening:  lowered,
		window:     window,
		now:        time.Now,
		lastAlerts: make(map[string]time.Time),
	}, nil
}

// NewDefaultDetector uses the stock vocabulary and window.
func NewDefaultDetector() *Detector {
	d, err := NewDetector(DefaultKeywords(), DefaultWorseningPhrases(), DefaultDebounceWindow)
	if err != nil {
		panic(err) // stock vocabulary always compiles
	}
	return d
}

// WithClock injects a time source, for tests.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	if now != nil {
		d.now = now
	}
	return d
}

// Detect scans one message. With an empty userID no debounce state exists, so
// ShouldAlert stays false and the caller decides on IsEmergency alone.
func (d *Detector) Detect(text, userID string) Result {
	lowered := strings.ToLower(text)

	var matched []string
	for i, re := range d.keywords {
		if re.MatchString(lowered) {
			matched = append(matched, d.concerns[i])
		}
	}

	result := Result{
		IsEmergency: len(matched) > 0,
		Severity:    SeverityManageable,
		Concerns:    matched,
	}
	if result.IsEmergency {
		result.Severity = SeverityVeryUrgent
	}
	for _, w := range d.worsening {
		if strings.Contains(lowered, w) {
			result.IsWorsening = true
			break
		}
	}

	if result.IsEmergency && userID != "" {
		result.ShouldAlert = d.permitAlert(userID, result.IsWorsening)
	}
	return result
}

// permitAlert allows an alert when the message is worsening, no prior alert
// exists, or the debounce window has elapsed. A permitted alert records the
// new last-alert time under the same lock, so concurrent calls cannot both
// slip through the window.
func (d *Detector) permitAlert(userID string, isWorsening bool) bool {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	last, seen := d.lastAlerts[userID]
	if isWorsening || !seen || now.Sub(last) > d.window {
		d.lastAlerts[userID] = now
		return true
	}
	return false
}

// MarkAlertSent records an externally delivered alert for debounce tracking.
func (d *Detector) MarkAlertSent(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastAlerts[userID] = d.now()
}
