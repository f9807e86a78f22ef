package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pricecast/internal/collector"
	"pricecast/internal/forecast"
	"pricecast/internal/logger"
	"pricecast/internal/model"
	"pricecast/internal/notifier"
	"pricecast/internal/oracle"
	"pricecast/internal/recorder"
)

// ErrNoEngine is returned when a forecast is requested before the first
// successful refresh.
var ErrNoEngine = errors.New("scheduler: no forecast engine loaded")

// Sender delivers a formatted report. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler keeps the forecast engine fresh and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Oracle    oracle.Oracle
	Options   forecast.Options
	Store     *forecast.Store
	Notifier  Sender // nil disables notifications
	Recorder  recorder.Recorder
	Ctx       context.Context

	refreshMu sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, orc oracle.Oracle, opts forecast.Options,
	store *forecast.Store, sender Sender, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Oracle:    orc,
		Options:   opts,
		Store:     store,
		Notifier:  sender,
		Recorder:  rec,
		Ctx:       ctx,
	}
}

// Register adds the history refresh job.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.WithComponent("scheduler").Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.WithComponent("scheduler").Info("scheduler stopped")
}

// Reload fetches the history, builds a new engine from it and installs it.
func (s *Scheduler) Reload(ctx context.Context) (*forecast.Engine, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	hist, err := s.Collector.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	eng, err := forecast.NewEngine(hist, s.Oracle, s.Options)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	s.Store.Swap(eng)

	minDate, maxDate := eng.Bounds()
	logger.WithComponent("scheduler").WithFields(map[string]interface{}{
		"last_known": eng.LastKnown().Date.Format(model.DateLayout),
		"min_end":    minDate.Format(model.DateLayout),
		"max_end":    maxDate.Format(model.DateLayout),
	}).Info("forecast engine reloaded")
	return eng, nil
}

// RefreshNow reloads the engine, forecasts through the horizon and sends
// the report. Used at startup and by the cron job.
func (s *Scheduler) RefreshNow(ctx context.Context) error {
	eng, err := s.Reload(ctx)
	if err != nil {
		return err
	}
	f, err := s.run(ctx, eng, eng.HorizonBound(), recorder.TriggerScheduled)
	if err != nil {
		s.trySend(ctx, notifier.FormatError(err))
		return err
	}
	s.trySend(ctx, notifier.FormatForecast(eng.Series().Symbol(), f))
	return nil
}

func (s *Scheduler) refreshTask() {
	logger.WithComponent("scheduler").Info("running scheduled refresh")
	if err := s.RefreshNow(s.Ctx); err != nil {
		logger.WithComponent("scheduler").Errorf("scheduled refresh: %v", err)
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}

	eng := s.Store.Load()
	switch fields[0] {
	case "/forecast":
		if len(fields) != 2 {
			return "Usage: /forecast YYYY-MM-DD"
		}
		end, err := model.ParseDate(fields[1])
		if err != nil {
			return fmt.Sprintf("❌ Invalid date %q, expected YYYY-MM-DD.", html.EscapeString(fields[1]))
		}
		if eng == nil {
			return notifier.FormatError(ErrNoEngine)
		}
		f, err := s.run(s.Ctx, eng, end, recorder.TriggerCommand)
		if err != nil {
			return notifier.FormatError(err)
		}
		return notifier.FormatForecast(eng.Series().Symbol(), f)
	case "/bounds":
		if eng == nil {
			return notifier.FormatError(ErrNoEngine)
		}
		return notifier.FormatBounds(eng.Bounds())
	default:
		return notifier.FormatHelp()
	}
}

// run forecasts through end and records the outcome.
func (s *Scheduler) run(ctx context.Context, eng *forecast.Engine, end time.Time, trigger recorder.Trigger) (*model.Forecast, error) {
	start := time.Now()
	f, err := eng.Forecast(ctx, end)
	if rerr := s.Recorder.RecordRun(&recorder.Run{
		Trigger:  trigger,
		Symbol:   eng.Series().Symbol(),
		EndDate:  model.Date(end),
		Forecast: f,
		Err:      err,
		Duration: time.Since(start),
	}); rerr != nil {
		logger.WithComponent("scheduler").Errorf("record run: %v", rerr)
	}
	return f, err
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		logger.WithComponent("scheduler").Errorf("send notification: %v", err)
	}
}
