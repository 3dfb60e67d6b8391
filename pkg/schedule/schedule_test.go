package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/memory/episodic"
	"github.com/carebridge-ai/carebridge/pkg/timeutil"
)

type simpleJob struct {
	name     string
	schedule string
	mu       sync.Mutex
	calls    int
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	return nil
}

func TestRegisterJobDuplicateName(t *testing.T) {
	s := NewScheduler(slog.Default())
	if err := s.RegisterJob(&simpleJob{name: "a", schedule: "* * * * *"}); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := s.RegisterJob(&simpleJob{name: "a", schedule: "* * * * *"}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(slog.Default())
	if err := s.RegisterJob(&simpleJob{name: "bad", schedule: "not a cron expr"}); err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatalf("Start should reject invalid schedule")
	}
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(slog.Default())
	if err := s.RegisterJob(&simpleJob{name: "ok", schedule: "* * * * *"}); err != nil {
		t.Fatalf("RegisterJob: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

type recordingRunner struct {
	mu    sync.Mutex
	dates map[string]time.Time
	errs  map[string]error
}

func (r *recordingRunner) RunDailySummary(_ context.Context, userID string, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dates == nil {
		r.dates = make(map[string]time.Time)
	}
	r.dates[userID] = date
	return r.errs[userID]
}

func TestDailySummaryJobCoversAllUsers(t *testing.T) {
	now := time.Date(2025, 6, 2, 0, 10, 0, 0, time.UTC)
	clock := timeutil.NewFixedClock(now, "UTC")
	runner := &recordingRunner{
		errs: map[string]error{"u2": episodic.ErrNoConversations},
	}
	job := &DailySummaryJob{
		Users: UserListerFunc(func(context.Context) ([]string, error) {
			return []string{"u1", "u2", "u3"}, nil
		}),
		Manager: runner,
		Clock:   clock,
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.dates) != 3 {
		t.Fatalf("expected all users covered, got %v", runner.dates)
	}
	for user, date := range runner.dates {
		if clock.DayKey(date) != "2025-06-01" {
			t.Fatalf("user %s summarized wrong day %v", user, date)
		}
	}
	if job.Schedule() != "10 0 * * *" {
		t.Fatalf("unexpected default schedule %q", job.Schedule())
	}
}

func TestDailySummaryJobPropagatesListError(t *testing.T) {
	job := &DailySummaryJob{
		Users: UserListerFunc(func(context.Context) ([]string, error) {
			return nil, errors.New("store down")
		}),
		Manager: &recordingRunner{},
		Clock:   timeutil.NewFixedClock(time.Now(), "UTC"),
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected list error to propagate")
	}
}
