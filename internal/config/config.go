package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"pricecast/internal/logger"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Type         string `yaml:"type"` // csv, yahoo, mock
		CSVPath      string `yaml:"csv_path"`
		DateColumn   string `yaml:"date_column"`
		ValueColumn  string `yaml:"value_column"`
		Symbol       string `yaml:"symbol"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"data_source"`
	Model struct {
		Type               string        `yaml:"type"` // lstm, remote
		Path               string        `yaml:"path"`
		URL                string        `yaml:"url"`
		Name               string        `yaml:"name"`
		Timeout            time.Duration `yaml:"timeout"`
		BreakerReadyToTrip uint32        `yaml:"breaker_ready_to_trip"`
		BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`
	} `yaml:"model"`
	Forecast struct {
		WindowSize      int `yaml:"window_size"`
		MaxForecastDays int `yaml:"max_forecast_days"`
	} `yaml:"forecast"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log   logger.Config `yaml:"log"`
	Proxy string        `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("CSV_PATH"); v != "" {
		cfg.DataSource.CSVPath = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.DataSource.Type = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("MODEL_URL"); v != "" {
		cfg.Model.URL = v
	}
	if v := os.Getenv("WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.WindowSize = n
		}
	}
	if v := os.Getenv("MAX_FORECAST_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.MaxForecastDays = n
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.DataSource.Type == "" {
		cfg.DataSource.Type = "csv"
	}
	if cfg.DataSource.CSVPath == "" {
		cfg.DataSource.CSVPath = "data/brent.csv"
	}
	if cfg.DataSource.DateColumn == "" {
		cfg.DataSource.DateColumn = "Date"
	}
	if cfg.DataSource.ValueColumn == "" {
		cfg.DataSource.ValueColumn = "Close"
	}
	if cfg.DataSource.Symbol == "" {
		cfg.DataSource.Symbol = "BRENT"
	}
	if cfg.DataSource.LookbackDays == 0 {
		cfg.DataSource.LookbackDays = 730
	}
	if cfg.Model.Type == "" {
		cfg.Model.Type = "lstm"
	}
	if cfg.Model.Path == "" {
		cfg.Model.Path = "models/lstm_model.json"
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = "lstm_model"
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = 10 * time.Second
	}
	if cfg.Forecast.WindowSize == 0 {
		cfg.Forecast.WindowSize = 60
	}
	if cfg.Forecast.MaxForecastDays == 0 {
		cfg.Forecast.MaxForecastDays = 15
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 30 22 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/pricecast.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.DataSource.Type {
	case "csv":
		if c.DataSource.CSVPath == "" {
			return fmt.Errorf("data_source.csv_path is required for csv source")
		}
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.type %q is not supported", c.DataSource.Type)
	}
	switch c.Model.Type {
	case "lstm":
		if c.Model.Path == "" {
			return fmt.Errorf("model.path is required for lstm model")
		}
	case "remote":
		if c.Model.URL == "" {
			return fmt.Errorf("model.url is required for remote model")
		}
	default:
		return fmt.Errorf("model.type %q is not supported", c.Model.Type)
	}
	if c.Forecast.WindowSize <= 0 {
		return fmt.Errorf("forecast.window_size must be positive")
	}
	if c.Forecast.MaxForecastDays <= 0 {
		return fmt.Errorf("forecast.max_forecast_days must be positive")
	}
	if c.DataSource.LookbackDays > 0 && c.DataSource.LookbackDays < c.Forecast.WindowSize {
		return fmt.Errorf("data_source.lookback_days must be at least forecast.window_size")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
