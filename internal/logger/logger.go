// Package logger wraps a process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var current atomic.Pointer[logrus.Logger]

// Config selects the level and output format.
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Init replaces the global logger.
func Init(cfg Config) {
	current.Store(newLogger(cfg, os.Stdout))
}

func newLogger(cfg Config, out io.Writer) *logrus.Logger {
	l := logrus.New()
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FullTimestamp:   true,
		})
	}
	l.SetOutput(out)
	return l
}

// Get returns the global logger, initializing it from LOG_LEVEL / LOG_FORMAT
// on first use.
func Get() *logrus.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	// Concurrent first calls race to install; the loser adopts the winner.
	current.CompareAndSwap(nil, newLogger(Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")}, os.Stdout))
	return current.Load()
}

// WithComponent returns an entry tagged with the component name.
func WithComponent(component string) *logrus.Entry {
	return Get().WithField("component", component)
}
