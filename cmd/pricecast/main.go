package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pricecast/internal/collector"
	"pricecast/internal/config"
	"pricecast/internal/forecast"
	"pricecast/internal/logger"
	"pricecast/internal/model"
	"pricecast/internal/notifier"
	"pricecast/internal/oracle"
	"pricecast/internal/recorder"
	"pricecast/internal/scheduler"
	"pricecast/internal/server"
)

func main() {
	// Secrets such as TELEGRAM_BOT_TOKEN may live in .env; real env vars win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	cfgPath := flag.String("config", defaultCfg, "path to the YAML config file")
	endDate := flag.String("end", "", "forecast through this date (YYYY-MM-DD), print the result and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log)
	log := logger.WithComponent("main")

	fetcher, err := newFetcher(cfg)
	if err != nil {
		log.Fatalf("init fetcher: %v", err)
	}
	col := collector.NewCollector(fetcher, cfg.DataSource.Symbol, cfg.DataSource.LookbackDays)

	orc, err := newOracle(cfg)
	if err != nil {
		log.Fatalf("init model: %v", err)
	}
	opts := forecast.Options{
		WindowSize:      cfg.Forecast.WindowSize,
		MaxForecastDays: cfg.Forecast.MaxForecastDays,
	}

	rec := newRecorder(cfg)
	defer rec.Close()

	if *endDate != "" {
		if err := runOnce(col, orc, opts, rec, *endDate, os.Stdout); err != nil {
			log.Errorf("forecast: %v", err)
			rec.Close()
			os.Exit(1)
		}
		return
	}

	log.WithField("source", fetcher.Name()).Info("pricecast starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &forecast.Store{}

	var (
		tn     *notifier.TelegramNotifier
		sender scheduler.Sender
	)
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, col, orc, opts, store, sender, rec)
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.Fatalf("register cron tasks: %v", err)
	}

	// The service still starts when the first load fails; the next cron
	// refresh retries and the API answers 503 until then.
	if err := sched.RefreshNow(ctx); err != nil {
		log.Errorf("initial refresh: %v", err)
	}

	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	gin.SetMode(cfg.Server.Mode)
	srv := server.New(store, rec)
	srv.Start(cfg.Server.Addr)
	defer srv.Stop()

	log.Info("pricecast is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping")
	cancel()
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.DataSource.Type {
	case "csv":
		f := collector.NewCSVFetcher(cfg.DataSource.CSVPath)
		f.DateColumn = cfg.DataSource.DateColumn
		f.ValueColumn = cfg.DataSource.ValueColumn
		return f, nil
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Proxy), nil
	case "mock":
		return &collector.MockFetcher{Price: 75}, nil
	}
	return nil, fmt.Errorf("unknown data source %q", cfg.DataSource.Type)
}

func newOracle(cfg *config.Config) (oracle.Oracle, error) {
	switch cfg.Model.Type {
	case "lstm":
		m, err := oracle.LoadLSTM(cfg.Model.Path)
		if err != nil {
			return nil, err
		}
		if m.WindowSize() != cfg.Forecast.WindowSize {
			return nil, fmt.Errorf("model %s expects a window of %d, forecast.window_size is %d",
				m.Name(), m.WindowSize(), cfg.Forecast.WindowSize)
		}
		return m, nil
	case "remote":
		return oracle.NewRemote(oracle.RemoteConfig{
			URL:         cfg.Model.URL,
			Model:       cfg.Model.Name,
			WindowSize:  cfg.Forecast.WindowSize,
			Timeout:     cfg.Model.Timeout,
			Proxy:       cfg.Proxy,
			OpenTimeout: cfg.Model.BreakerOpenTimeout,
			ReadyToTrip: cfg.Model.BreakerReadyToTrip,
		})
	}
	return nil, fmt.Errorf("unknown model type %q", cfg.Model.Type)
}

func newRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		logger.WithComponent("main").Warnf("init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

// runOnce loads the history, forecasts through end and prints a plain table.
func runOnce(col *collector.Collector, orc oracle.Oracle, opts forecast.Options, rec recorder.Recorder, end string, w io.Writer) error {
	endDate, err := model.ParseDate(end)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", end, err)
	}

	ctx := context.Background()
	hist, err := col.Load(ctx)
	if err != nil {
		return err
	}
	eng, err := forecast.NewEngine(hist, orc, opts)
	if err != nil {
		return err
	}

	start := time.Now()
	f, err := eng.Forecast(ctx, endDate)
	if rerr := rec.RecordRun(&recorder.Run{
		Trigger:  recorder.TriggerCLI,
		Symbol:   hist.Symbol(),
		EndDate:  endDate,
		Forecast: f,
		Err:      err,
		Duration: time.Since(start),
	}); rerr != nil {
		logger.WithComponent("main").Errorf("record run: %v", rerr)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-10s  %10s\n", "Date", hist.Symbol())
	fmt.Fprintf(w, "%-10s  %10.2f  (last known)\n", f.LastKnown.Date.Format(model.DateLayout), f.LastKnown.Value)
	for _, p := range f.Points {
		fmt.Fprintf(w, "%-10s  %10.2f\n", p.Date.Format(model.DateLayout), p.Value)
	}
	return nil
}
