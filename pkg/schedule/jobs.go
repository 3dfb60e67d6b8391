package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/carebridge-ai/carebridge/pkg/memory/episodic"
	"github.com/carebridge-ai/carebridge/pkg/memory/longterm"
	"github.com/carebridge-ai/carebridge/pkg/timeutil"
)

// UserLister enumerates the user ids maintenance jobs should cover.
type UserLister interface {
	UserIDs(ctx context.Context) ([]string, error)
}

// UserListerFunc adapts a function to UserLister.
type UserListerFunc func(ctx context.Context) ([]string, error)

func (f UserListerFunc) UserIDs(ctx context.Context) ([]string, error) { return f(ctx) }

// DailySummaryJob generates yesterday's episodic summary for every user
// shortly after local midnight. Days without conversations are skipped
// silently.
type DailySummaryJob struct {
	Users        UserLister
	Manager      SummaryRunner
	Clock        *timeutil.Clock
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "10 0 * * *"
}

// SummaryRunner matches memory.Manager's summary entry point without
// importing the package, avoiding an import cycle if the manager ever
// schedules jobs itself.
type SummaryRunner interface {
	RunDailySummary(ctx context.Context, userID string, date time.Time) error
}

// SummaryRunnerFunc adapts a function to SummaryRunner.
type SummaryRunnerFunc func(ctx context.Context, userID string, date time.Time) error

func (f SummaryRunnerFunc) RunDailySummary(ctx context.Context, userID string, date time.Time) error {
	return f(ctx, userID, date)
}

var _ Job = (*DailySummaryJob)(nil)

func (j *DailySummaryJob) Name() string { return "daily_summary" }

func (j *DailySummaryJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "10 0 * * *"
}

func (j *DailySummaryJob) Run(ctx context.Context) error {
	users, err := j.Users.UserIDs(ctx)
	if err != nil {
		return err
	}
	yesterday := j.Clock.DaysAgo(1)
	for _, userID := range users {
		if err := j.Manager.RunDailySummary(ctx, userID, yesterday); err != nil {
			if errors.Is(err, episodic.ErrNoConversations) {
				continue
			}
			j.logger().Warn("schedule: daily summary failed", "user", userID, "error", err)
		}
	}
	return nil
}

func (j *DailySummaryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// HygieneJob runs long-term dedup and eviction for every user, independent of
// the per-turn trigger, so idle users get cleaned too.
type HygieneJob struct {
	Users        UserLister
	Store        *longterm.Store
	Logger       *slog.Logger
	MaxItems     int    // 0 = store default
	ScheduleExpr string // empty = default "30 3 * * *"
}

var _ Job = (*HygieneJob)(nil)

func (j *HygieneJob) Name() string { return "longterm_hygiene" }

func (j *HygieneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "30 3 * * *"
}

func (j *HygieneJob) Run(ctx context.Context) error {
	users, err := j.Users.UserIDs(ctx)
	if err != nil {
		return err
	}
	for _, userID := range users {
		if _, err := j.Store.DeduplicateByHash(ctx, userID); err != nil {
			j.logger().Warn("schedule: dedup failed", "user", userID, "error", err)
			continue
		}
		if _, err := j.Store.CleanupOldConversations(ctx, userID, j.MaxItems); err != nil {
			j.logger().Warn("schedule: cleanup failed", "user", userID, "error", err)
		}
	}
	return nil
}

func (j *HygieneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
