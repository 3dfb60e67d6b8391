package storage

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Memstore implements Store in process memory. It backs tests and
// single-user deployments that do not want a database file.
type Memstore struct {
	mu            sync.RWMutex
	nextID        int64
	conversations map[string][]Conversation
	medications   map[string][]Medication
	medLogs       map[string][]MedicationLog
	profiles      map[string]Profile
	events        map[string][]PersonalEvent
	summaries     map[string][]DailySummary
}

func NewMemstore() *Memstore {
	return &Memstore{
		conversations: make(map[string][]Conversation),
		medications:   make(map[string][]Medication),
		medLogs:       make(map[string][]MedicationLog),
		profiles:      make(map[string]Profile),
		events:        make(map[string][]PersonalEvent),
		summaries:     make(map[string][]DailySummary),
	}
}

func (m *Memstore) AddConversation(_ context.Context, conv Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv.ID == "" {
		m.nextID++
		conv.ID = strconv.FormatInt(m.nextID, 10)
	}
	m.conversations[conv.UserID] = append(m.conversations[conv.UserID], conv)
	return nil
}

func (m *Memstore) RecentConversations(_ context.Context, userID string, limit int) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	convs := append([]Conversation(nil), m.conversations[userID]...)
	sort.SliceStable(convs, func(i, j int) bool { return convs[i].Timestamp.After(convs[j].Timestamp) })
	if limit > 0 && len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (m *Memstore) ConversationsBetween(_ context.Context, userID string, start, end time.Time) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Conversation
	for _, conv := range m.conversations[userID] {
		if !conv.Timestamp.Before(start) && conv.Timestamp.Before(end) {
			out = append(out, conv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// SetMedications replaces the medication list for a user.
func (m *Memstore) SetMedications(userID string, meds []Medication) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.medications[userID] = append([]Medication(nil), meds...)
}

func (m *Memstore) UserMedications(_ context.Context, userID string, activeOnly bool) ([]Medication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Medication
	for _, med := range m.medications[userID] {
		if activeOnly && !med.Active {
			continue
		}
		out = append(out, med)
	}
	return out, nil
}

// AddMedicationLog records a medication event.
func (m *Memstore) AddMedicationLog(log MedicationLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.medLogs[log.UserID] = append(m.medLogs[log.UserID], log)
}

func (m *Memstore) MedicationLogsBetween(_ context.Context, userID string, start, end time.Time) ([]MedicationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []MedicationLog
	for _, log := range m.medLogs[userID] {
		if !log.TakenAt.Before(start) && log.TakenAt.Before(end) {
			out = append(out, log)
		}
	}
	return out, nil
}

// SetProfile replaces a user's profile.
func (m *Memstore) SetProfile(profile Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.UserID] = profile
}

func (m *Memstore) Profile(_ context.Context, userID string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profile, nil
}

// AddEvent records an upcoming personal event.
func (m *Memstore) AddEvent(event PersonalEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.UserID] = append(m.events[event.UserID], event)
}

func (m *Memstore) UpcomingEvents(_ context.Context, userID string, from time.Time, within time.Duration) ([]PersonalEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := from.Add(within)
	var out []PersonalEvent
	for _, event := range m.events[userID] {
		if !event.Date.Before(from) && event.Date.Before(cutoff) {
			out = append(out, event)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memstore) UpsertDailySummary(_ context.Context, summary DailySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.summaries[summary.UserID]
	for i, existing := range list {
		if existing.Date.Equal(summary.Date) {
			list[i] = summary
			return nil
		}
	}
	m.summaries[summary.UserID] = append(list, summary)
	return nil
}

func (m *Memstore) DailySummaryOn(_ context.Context, userID string, dayStart, dayEnd time.Time) (DailySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, summary := range m.summaries[userID] {
		if !summary.Date.Before(dayStart) && summary.Date.Before(dayEnd) {
			return summary, nil
		}
	}
	return DailySummary{}, ErrNotFound
}

func (m *Memstore) RecentDailySummaries(_ context.Context, userID string, cutoff time.Time) ([]DailySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []DailySummary
	for _, summary := range m.summaries[userID] {
		if !summary.Date.Before(cutoff) {
			out = append(out, summary)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// SummaryCount reports stored summaries for a user, for stats and tests.
func (m *Memstore) SummaryCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.summaries[userID])
}

// UserIDs lists users with at least one conversation, sorted.
func (m *Memstore) UserIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.conversations))
	for id := range m.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
