package recorder

import (
	"time"

	"pricecast/internal/model"
)

// Trigger identifies what started a forecast run.
type Trigger string

const (
	TriggerAPI       Trigger = "API"
	TriggerScheduled Trigger = "SCHEDULED"
	TriggerCommand   Trigger = "COMMAND"
	TriggerCLI       Trigger = "CLI"
)

// Run is one forecast invocation, successful or not.
type Run struct {
	ID         string
	Trigger    Trigger
	Symbol     string
	EndDate    time.Time
	Forecast   *model.Forecast // nil when the run failed
	Err        error
	Duration   time.Duration
	RecordedAt time.Time
}

// RunSummary is a recorded run as read back from storage.
type RunSummary struct {
	ID         string    `json:"id"`
	Trigger    Trigger   `json:"trigger"`
	Symbol     string    `json:"symbol"`
	CreatedAt  time.Time `json:"created_at"`
	LastKnown  time.Time `json:"last_known"`
	EndDate    time.Time `json:"end_date"`
	WindowSize int       `json:"window_size"`
	Points     int       `json:"points"`
	FinalValue float64   `json:"final_value"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Recorder persists forecast runs for later analysis.
type Recorder interface {
	RecordRun(run *Run) error
	RecentRuns(limit int) ([]RunSummary, error)
	Points(runID string) ([]model.ForecastPoint, error)
	Close() error
}
