package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecast/internal/forecast"
	"pricecast/internal/model"
	"pricecast/internal/oracle"
	"pricecast/internal/recorder"
	"pricecast/internal/series"
)

type memRecorder struct {
	mu      sync.Mutex
	runs    []recorder.Run
	listErr error
}

func (m *memRecorder) RecordRun(run *recorder.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = fmt.Sprintf("run-%d", len(m.runs)+1)
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRecorder) Points(runID string) ([]model.ForecastPoint, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == runID && r.Forecast != nil {
			return r.Forecast.Points, nil
		}
	}
	return nil, nil
}

func (m *memRecorder) RecentRuns(limit int) ([]recorder.RunSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recorder.RunSummary
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recorder.RunSummary{Trigger: m.runs[i].Trigger, EndDate: m.runs[i].EndDate})
	}
	return out, nil
}

func (m *memRecorder) Close() error { return nil }

func day(s string) time.Time {
	t, _ := model.ParseDate(s)
	return t
}

// testEngine builds 40 weekday closes ending Fri 2024-11-29 at 100.
func testEngine(t *testing.T, orc oracle.Oracle) *forecast.Engine {
	t.Helper()
	var obs []model.Observation
	for d := day("2024-11-29"); len(obs) < 40; d = d.AddDate(0, 0, -1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		obs = append([]model.Observation{{Date: d, Value: 100 - float64(len(obs))}}, obs...)
	}
	s, err := series.New("BRENT", obs)
	require.NoError(t, err)
	eng, err := forecast.NewEngine(s, orc, forecast.Options{WindowSize: 20, MaxForecastDays: 15})
	require.NoError(t, err)
	return eng
}

var persistence = oracle.Func(func(w []float64) (float64, error) { return w[len(w)-1], nil })

func setup(t *testing.T, orc oracle.Oracle) (*Server, *memRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := &forecast.Store{}
	if orc != nil {
		store.Swap(testEngine(t, orc))
	}
	rec := &memRecorder{}
	return New(store, rec), rec
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestGetForecast(t *testing.T) {
	s, rec := setup(t, persistence)

	w := get(s, "/api/v1/forecast?end=2024-12-03")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ForecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "BRENT", resp.Symbol)
	assert.Equal(t, Point{Date: "2024-11-29", Value: 100}, resp.LastKnown)
	assert.Equal(t, "2024-12-03", resp.EndDate)
	assert.Equal(t, "2024-12-14", resp.HorizonEnd)
	assert.Equal(t, 20, resp.WindowSize)
	require.Len(t, resp.Points, 2)
	assert.Equal(t, "2024-12-02", resp.Points[0].Date)
	assert.Equal(t, "2024-12-03", resp.Points[1].Date)
	assert.InDelta(t, 100, resp.Points[1].Value, 1e-9)
	require.Len(t, resp.History, 20)
	assert.Equal(t, "2024-11-29", resp.History[19].Date)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, recorder.TriggerAPI, rec.runs[0].Trigger)
	assert.NoError(t, rec.runs[0].Err)
}

func TestGetForecast_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantCode int
		wantErr  string
		recorded bool
	}{
		{"missing end", "/api/v1/forecast", http.StatusBadRequest, "bad_request", false},
		{"bad date", "/api/v1/forecast?end=12/03/2024", http.StatusBadRequest, "bad_request", false},
		{"last known date", "/api/v1/forecast?end=2024-11-29", http.StatusUnprocessableEntity, "no_forecast_needed", true},
		{"before last", "/api/v1/forecast?end=2024-11-01", http.StatusUnprocessableEntity, "invalid_range", true},
		{"beyond horizon", "/api/v1/forecast?end=2024-12-15", http.StatusUnprocessableEntity, "out_of_horizon", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := setup(t, persistence)
			w := get(s, tt.target)
			assert.Equal(t, tt.wantCode, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantErr, body.Error)
			if tt.recorded {
				require.Len(t, rec.runs, 1)
				assert.Error(t, rec.runs[0].Err)
			} else {
				assert.Empty(t, rec.runs)
			}
		})
	}
}

func TestGetForecast_InferenceError(t *testing.T) {
	boom := oracle.Func(func([]float64) (float64, error) { return 0, errors.New("model offline") })
	s, rec := setup(t, boom)

	w := get(s, "/api/v1/forecast?end=2024-12-03")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "inference_error")
	require.Len(t, rec.runs, 1)
	assert.Nil(t, rec.runs[0].Forecast)
}

func TestGetForecast_WeekendOnlyRange(t *testing.T) {
	s, _ := setup(t, persistence)
	w := get(s, "/api/v1/forecast?end=2024-12-01")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ForecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Points)
	assert.Empty(t, resp.Points)
}

func TestNotReady(t *testing.T) {
	s, _ := setup(t, nil)
	for _, target := range []string{"/health", "/api/v1/bounds", "/api/v1/forecast?end=2024-12-03"} {
		assert.Equal(t, http.StatusServiceUnavailable, get(s, target).Code, target)
	}
}

func TestGetBounds(t *testing.T) {
	s, _ := setup(t, persistence)
	w := get(s, "/api/v1/bounds")
	require.Equal(t, http.StatusOK, w.Code)

	var resp BoundsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2024-11-30", resp.MinDate)
	assert.Equal(t, "2024-12-14", resp.MaxDate)
	assert.Equal(t, "2024-11-29", resp.LastKnown.Date)
}

func TestHealth(t *testing.T) {
	s, _ := setup(t, persistence)
	w := get(s, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"last_known":"2024-11-29"`)
}

func TestGetRuns(t *testing.T) {
	s, _ := setup(t, persistence)
	get(s, "/api/v1/forecast?end=2024-12-02")
	get(s, "/api/v1/forecast?end=2024-12-03")

	w := get(s, "/api/v1/runs?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Runs []recorder.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, day("2024-12-03"), body.Runs[0].EndDate)

	assert.Equal(t, http.StatusBadRequest, get(s, "/api/v1/runs?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/api/v1/runs?limit=0").Code)
}

func TestGetRunPoints(t *testing.T) {
	s, rec := setup(t, persistence)
	get(s, "/api/v1/forecast?end=2024-12-03")
	get(s, "/api/v1/forecast?end=2024-12-20")
	require.Len(t, rec.runs, 2)

	w := get(s, "/api/v1/runs/"+rec.runs[0].ID+"/points")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		RunID  string  `json:"run_id"`
		Points []Point `json:"points"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, rec.runs[0].ID, body.RunID)
	require.Len(t, body.Points, 2)
	assert.Equal(t, "2024-12-02", body.Points[0].Date)
	assert.Equal(t, "2024-12-03", body.Points[1].Date)

	assert.Equal(t, http.StatusNotFound, get(s, "/api/v1/runs/"+rec.runs[1].ID+"/points").Code, "failed run")
	assert.Equal(t, http.StatusNotFound, get(s, "/api/v1/runs/unknown/points").Code)

	rec.listErr = errors.New("disk gone")
	assert.Equal(t, http.StatusInternalServerError, get(s, "/api/v1/runs/run-1/points").Code)
}

func TestGetForecast_CallerDeadline(t *testing.T) {
	expired := oracle.Func(func([]float64) (float64, error) { return 0, context.DeadlineExceeded })
	s, rec := setup(t, expired)

	w := get(s, "/api/v1/forecast?end=2024-12-03")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"canceled"`)
	require.Len(t, rec.runs, 1)
	var ie *oracle.InferenceError
	assert.False(t, errors.As(rec.runs[0].Err, &ie))
}

func TestGetRuns_Empty(t *testing.T) {
	s, _ := setup(t, persistence)
	w := get(s, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())
}

func TestGetRuns_StorageError(t *testing.T) {
	s, rec := setup(t, persistence)
	rec.listErr = errors.New("disk gone")
	assert.Equal(t, http.StatusInternalServerError, get(s, "/api/v1/runs").Code)
}
