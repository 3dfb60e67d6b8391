// Command carebridge wires the memory subsystem and emergency detector into a
// small CLI: assemble context, record exchanges, recall, summarize, scan for
// emergencies and run the maintenance scheduler.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/carebridge-ai/carebridge/pkg/config"
	"github.com/carebridge-ai/carebridge/pkg/emergency"
	"github.com/carebridge-ai/carebridge/pkg/memory"
	"github.com/carebridge-ai/carebridge/pkg/memory/embed"
	"github.com/carebridge-ai/carebridge/pkg/memory/episodic"
	"github.com/carebridge-ai/carebridge/pkg/memory/longterm"
	"github.com/carebridge-ai/carebridge/pkg/memory/shortterm"
	"github.com/carebridge-ai/carebridge/pkg/memory/store"
	"github.com/carebridge-ai/carebridge/pkg/memory/structured"
	"github.com/carebridge-ai/carebridge/pkg/notify"
	"github.com/carebridge-ai/carebridge/pkg/schedule"
	"github.com/carebridge-ai/carebridge/pkg/storage"
	"github.com/carebridge-ai/carebridge/pkg/storage/sqlite"
	"github.com/carebridge-ai/carebridge/pkg/timeutil"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	store    storage.Store
	users    schedule.UserLister
	clock    *timeutil.Clock
	index    store.VectorIndex
	manager  *memory.Manager
	episodic *episodic.Generator
	longTerm *longterm.Store
	detector *emergency.Detector
	notifier notify.Notifier
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	a.clock, err = timeutil.NewClock(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	switch cfg.Storage.Driver {
	case "", "sqlite":
		db, err := sqlite.Open(cfg.StoragePath())
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.store = db
		a.users = db
		a.closers = append(a.closers, db.Close)
	case "memory":
		mem := storage.NewMemstore()
		a.store = mem
		a.users = mem
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	a.index, err = openIndex(ctx, cfg, a)
	if err != nil {
		return nil, err
	}

	opts := longterm.DefaultOptions()
	if cfg.Memory.HalfLifeDays > 0 {
		opts.HalfLifeDays = cfg.Memory.HalfLifeDays
	}
	if cfg.Memory.MaxConversations > 0 {
		opts.MaxConversations = cfg.Memory.MaxConversations
	}
	a.longTerm = longterm.NewStore(a.index, opts).WithEmbedder(embed.AutoEmbedder())

	window := cfg.Memory.ShortTermWindow
	if window <= 0 {
		window = shortterm.DefaultWindow
	}
	a.episodic = episodic.NewGenerator(a.store, a.store, a.clock)
	if cfg.Summary.UseLLM {
		a.episodic.WithSummarizer(episodic.NewAnthropicSummarizer(cfg.Summary.Model))
	}

	a.manager = memory.NewManager(
		a.longTerm,
		shortterm.NewProvider(a.store, window),
		a.episodic,
		structured.NewProvider(a.store, a.clock),
		a.store,
		a.clock,
	)

	keywords := cfg.Emergency.Keywords
	if len(keywords) == 0 {
		keywords = emergency.DefaultKeywords()
	}
	worsening := cfg.Emergency.WorseningPhrases
	if len(worsening) == 0 {
		worsening = emergency.DefaultWorseningPhrases()
	}
	a.detector, err = emergency.NewDetector(keywords, worsening,
		time.Duration(cfg.Emergency.DebounceMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}

	if cfg.Telegram.Token != "" {
		a.notifier, err = notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
	} else {
		a.notifier = notify.NewLogNotifier(nil)
	}
	return a, nil
}

// recordExchange persists the conversation row and feeds the memory manager
// under a single conversation id, generating one when the caller has none.
// Both writes must share the id so the long-term document id stays unique
// per exchange.
func recordExchange(ctx context.Context, a *app, sourceID, userID, message, response string) (string, error) {
	if sourceID == "" {
		sourceID = uuid.NewString()
	}
	now := a.clock.NowUTC()
	if err := a.store.AddConversation(ctx, storage.Conversation{
		ID:        sourceID,
		UserID:    userID,
		Message:   message,
		Response:  response,
		Timestamp: now,
	}); err != nil {
		return "", err
	}
	return sourceID, a.manager.RecordExchange(ctx, userID, sourceID, message, response, now)
}

func openIndex(ctx context.Context, cfg *config.Config, a *app) (store.VectorIndex, error) {
	switch cfg.Vector.Backend {
	case "", "memory":
		return store.NewInMemoryIndex(), nil
	case "postgres":
		pi, err := store.NewPostgresIndex(ctx, cfg.Vector.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres index: %w", err)
		}
		if err := pi.CreateSchema(ctx, cfg.Vector.Dim); err != nil {
			return nil, fmt.Errorf("create postgres schema: %w", err)
		}
		a.closers = append(a.closers, pi.Close)
		return pi, nil
	case "qdrant":
		qi, err := store.NewQdrantIndex(cfg.Vector.QdrantURL, cfg.Vector.Collection)
		if err != nil {
			return nil, fmt.Errorf("open qdrant index: %w", err)
		}
		if err := qi.CreateSchema(ctx, cfg.Vector.Dim, store.DistanceCosine); err != nil {
			return nil, fmt.Errorf("create qdrant collection: %w", err)
		}
		return qi, nil
	case "mongo":
		mi, err := store.NewMongoIndex(ctx, cfg.Vector.MongoURI, cfg.Vector.MongoDB, cfg.Vector.Collection)
		if err != nil {
			return nil, fmt.Errorf("open mongo index: %w", err)
		}
		if err := mi.CreateSchema(ctx); err != nil {
			return nil, fmt.Errorf("create mongo indexes: %w", err)
		}
		a.closers = append(a.closers, mi.Close)
		return mi, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "carebridge",
		Short:         "CareBridge memory subsystem and emergency detector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "carebridge.json", "path to config file")

	withApp := func(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(ctx, a, cmd, args)
		}
	}

	var userID string

	contextCmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Assemble prompt context for a user query",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			out, err := a.manager.AssembleContext(ctx, userID, args[0])
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}),
	}
	contextCmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = contextCmd.MarkFlagRequired("user")

	recallCmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Answer a recall query from memory",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			out, err := a.manager.RecallInformation(ctx, userID, args[0])
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}),
	}
	recallCmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = recallCmd.MarkFlagRequired("user")

	var sourceID, userMessage, assistantResponse string
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Record a conversation exchange",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := recordExchange(ctx, a, sourceID, userID, userMessage, assistantResponse)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		}),
	}
	recordCmd.Flags().StringVar(&userID, "user", "", "user id")
	recordCmd.Flags().StringVar(&sourceID, "id", "", "conversation id (generated when empty)")
	recordCmd.Flags().StringVar(&userMessage, "message", "", "user message")
	recordCmd.Flags().StringVar(&assistantResponse, "response", "", "assistant response")
	_ = recordCmd.MarkFlagRequired("user")
	_ = recordCmd.MarkFlagRequired("message")

	var dateStr string
	summarizeCmd := &cobra.Command{
		Use:   "summarize",
		Short: "Generate the daily summary for a user",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			date := a.clock.Now()
			if dateStr != "" {
				parsed, err := time.ParseInLocation("2006-01-02", dateStr, a.clock.Location())
				if err != nil {
					return fmt.Errorf("parse --date: %w", err)
				}
				date = parsed
			}
			summary, err := a.manager.GenerateDailySummary(ctx, userID, date)
			if err != nil {
				return err
			}
			fmt.Printf("Summary for %s (%d conversations):\n%s\n",
				a.clock.DayKey(summary.Date), summary.TotalConversations, summary.SummaryText)
			return nil
		}),
	}
	summarizeCmd.Flags().StringVar(&userID, "user", "", "user id")
	summarizeCmd.Flags().StringVar(&dateStr, "date", "", "day to summarize (YYYY-MM-DD, default today)")
	_ = summarizeCmd.MarkFlagRequired("user")

	checkCmd := &cobra.Command{
		Use:   "check <message>",
		Short: "Scan a message for emergencies and notify on alert",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			result := a.detector.Detect(args[0], userID)
			out, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(out))
			if result.ShouldAlert {
				return a.notifier.Notify(ctx, notify.Alert{
					UserID:  userID,
					Message: args[0],
					Result:  result,
					At:      a.clock.Now(),
				})
			}
			return nil
		}),
	}
	checkCmd.Flags().StringVar(&userID, "user", "", "user id (empty disables alerting)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics for a user",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			stats, err := a.manager.MemoryStats(ctx, userID)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(out))
			return nil
		}),
	}
	statsCmd.Flags().StringVar(&userID, "user", "", "user id")
	_ = statsCmd.MarkFlagRequired("user")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the maintenance scheduler (daily summaries + hygiene)",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			sched := schedule.NewScheduler(logger)
			if err := sched.RegisterJob(&schedule.DailySummaryJob{
				Users: a.users,
				Manager: schedule.SummaryRunnerFunc(func(ctx context.Context, userID string, date time.Time) error {
					_, err := a.manager.GenerateDailySummary(ctx, userID, date)
					return err
				}),
				Clock:        a.clock,
				Logger:       logger,
				ScheduleExpr: a.cfg.Summary.ScheduleExpr,
			}); err != nil {
				return err
			}
			if err := sched.RegisterJob(&schedule.HygieneJob{
				Users:    a.users,
				Store:    a.longTerm,
				Logger:   logger,
				MaxItems: a.cfg.Memory.MaxConversations,
			}); err != nil {
				return err
			}
			if err := sched.Start(); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			return sched.Stop(ctx)
		}),
	}

	root.AddCommand(contextCmd, recallCmd, recordCmd, summarizeCmd, checkCmd, statsCmd, runCmd)
	return root
}
