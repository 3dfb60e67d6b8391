// Package structured formats factual records (medications, profile,
// day-scoped activity logs, upcoming events) into readable strings.
package structured

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/storage"
	"github.com/carebridge-ai/carebridge/pkg/timeutil"
)

// Keyword vocabularies for the best-effort activity scan. The scan is a
// heuristic over free conversation text, not an authoritative log; false
// positives and negatives are expected.
var (
	MealKeywords     = []string{"breakfast", "lunch", "dinner"}
	ActivityKeywords = []string{"walk", "exercise", "activity"}
)

// TakenMedication is one "taken" log entry resolved to its medication.
type TakenMedication struct {
	Name   string
	Dosage string
	Time   string // local wall-clock, e.g. "08:05 AM"
}

// DayLogs is the heuristic activity record for one local calendar day.
type DayLogs struct {
	Date              string // "2006-01-02"
	Meals             []string
	MedicationsTaken  []TakenMedication
	Activities        []string // the user messages that mentioned activity words
	ConversationCount int
}

// Provider reads from the relational store; it never mutates.
type Provider struct {
	store storage.Store
	clock *timeutil.Clock
}

func NewProvider(store storage.Store, clock *timeutil.Clock) *Provider {
	return &Provider{store: store, clock: clock}
}

// MedicationSchedule renders the user's active medications. Blank fields are
// omitted line by line.
func (p *Provider) MedicationSchedule(ctx context.Context, userID string) (string, error) {
	meds, err := p.store.UserMedications(ctx, userID, true)
	if err != nil {
		return "", fmt.Errorf("structured: medications: %w", err)
	}
	if len(meds) == 0 {
		return "You don't have any medications scheduled.", nil
	}
	var b strings.Builder
	b.WriteString("Your medication schedule:\n\n")
	for _, med := range meds {
		b.WriteString("• " + med.Name)
		if med.Dosage != "" {
			b.WriteString(" - " + med.Dosage)
		}
		b.WriteString("\n")
		if med.Frequency != "" {
			b.WriteString("  Frequency: " + med.Frequency + "\n")
		}
		if len(med.ScheduleTimes) > 0 {
			b.WriteString("  Times: " + strings.Join(med.ScheduleTimes, ", ") + "\n")
		}
		if med.Instructions != "" {
			b.WriteString("  Instructions: " + med.Instructions + "\n")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// FormattedProfile renders the profile block used in assembled context,
// including a short active-medication summary.
func (p *Provider) FormattedProfile(ctx context.Context, userID string) (string, error) {
	profile, err := p.store.Profile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("structured: profile: %w", err)
	}
	var b strings.Builder
	b.WriteString("User Profile:\n")
	if profile.Name != "" {
		b.WriteString("Name: " + profile.Name + "\n")
	}
	if len(profile.Preferences) > 0 {
		keys := make([]string, 0, len(profile.Preferences))
		for k := range profile.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Preferences:\n")
		for _, k := range keys {
			b.WriteString("  " + k + ": " + profile.Preferences[k] + "\n")
		}
	}
	meds, err := p.store.UserMedications(ctx, userID, true)
	if err != nil {
		return "", fmt.Errorf("structured: medications: %w", err)
	}
	if len(meds) > 0 {
		b.WriteString(fmt.Sprintf("\nActive Medications (%d):\n", len(meds)))
		for _, med := range meds {
			b.WriteString("  • " + med.Name)
			if med.Dosage != "" {
				b.WriteString(" - " + med.Dosage)
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// DailyLogs scans one local day's conversations for meal and activity
// mentions and resolves that day's "taken" medication logs.
func (p *Provider) DailyLogs(ctx context.Context, userID string, date time.Time) (DayLogs, error) {
	dayStart, dayEnd := p.clock.DayBounds(date)
	logs := DayLogs{Date: p.clock.DayKey(date)}

	convs, err := p.store.ConversationsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return DayLogs{}, fmt.Errorf("structured: conversations: %w", err)
	}
	logs.ConversationCount = len(convs)
	for _, conv := range convs {
		text := strings.ToLower(conv.Message + " " + conv.Response)
		for _, meal := range MealKeywords {
			if strings.Contains(text, meal) {
				logs.Meals = append(logs.Meals, meal)
			}
		}
		for _, word := range ActivityKeywords {
			if strings.Contains(text, word) {
				logs.Activities = append(logs.Activities, conv.Message)
				break
			}
		}
	}

	medLogs, err := p.store.MedicationLogsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return DayLogs{}, fmt.Errorf("structured: medication logs: %w", err)
	}
	meds, err := p.store.UserMedications(ctx, userID, false)
	if err != nil {
		return DayLogs{}, fmt.Errorf("structured: medications: %w", err)
	}
	byID := make(map[string]storage.Medication, len(meds))
	for _, med := range meds {
		byID[med.ID] = med
	}
	for _, entry := range medLogs {
		if entry.Status != "taken" {
			continue
		}
		med, ok := byID[entry.MedicationID]
		if !ok {
			continue
		}
		logs.MedicationsTaken = append(logs.MedicationsTaken, TakenMedication{
			Name:   med.Name,
			Dosage: med.Dosage,
			Time:   entry.TakenAt.In(p.clock.Location()).Format("03:04 PM"),
		})
	}
	return logs, nil
}

// MealTime returns the configured time for a meal ("breakfast", "lunch",
// "dinner") or "" if the profile has none.
func (p *Provider) MealTime(ctx context.Context, userID, meal string) (string, error) {
	profile, err := p.store.Profile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("structured: profile: %w", err)
	}
	return profile.MealTimes[strings.ToLower(meal)], nil
}

// UpcomingEventsBlock renders the next 30 days of events, at most five.
func (p *Provider) UpcomingEventsBlock(ctx context.Context, userID string) (string, error) {
	events, err := p.store.UpcomingEvents(ctx, userID, p.clock.NowUTC(), 30*24*time.Hour)
	if err != nil {
		return "", fmt.Errorf("structured: events: %w", err)
	}
	if len(events) == 0 {
		return "You don't have any upcoming events scheduled.", nil
	}
	if len(events) > 5 {
		events = events[:5]
	}
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = fmt.Sprintf("• %s on %s", ev.Title, ev.Date.In(p.clock.Location()).Format("January 2, 2006"))
	}
	return "Upcoming events:\n" + strings.Join(lines, "\n"), nil
}

// RecallSpecific answers a routed factual query by type keyword.
func (p *Provider) RecallSpecific(ctx context.Context, userID, queryType string, date time.Time) (string, error) {
	queryType = strings.ToLower(queryType)
	switch {
	case strings.Contains(queryType, "medication") || strings.Contains(queryType, "schedule"):
		return p.MedicationSchedule(ctx, userID)
	case containsAny(queryType, append(MealKeywords, "meal")):
		logs, err := p.DailyLogs(ctx, userID, date)
		if err != nil {
			return "", err
		}
		if len(logs.Meals) > 0 {
			return "Today you mentioned having: " + strings.Join(uniqueStrings(logs.Meals), ", "), nil
		}
		return "I don't have any record of meals today. What did you eat?", nil
	case strings.Contains(queryType, "event") || strings.Contains(queryType, "appointment"):
		return p.UpcomingEventsBlock(ctx, userID)
	default:
		return p.FormattedProfile(ctx, userID)
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
