package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"pricecast/internal/logger"
)

// RemoteConfig configures a model served over a TensorFlow Serving style
// REST endpoint.
type RemoteConfig struct {
	URL         string
	Model       string
	WindowSize  int
	Timeout     time.Duration
	Proxy       string
	MaxRequests uint32 // half-open probes
	Interval    time.Duration
	OpenTimeout time.Duration
	ReadyToTrip uint32 // consecutive failures
}

// Remote posts each window as a (1, window, 1) instance and reads back a
// (1, 1) prediction. Calls go through a circuit breaker so a dead model
// server fails fast instead of stalling every request.
type Remote struct {
	endpoint   string
	windowSize int
	client     *http.Client
	cb         *gobreaker.CircuitBreaker
}

type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

// NewRemote builds a client for cfg.URL/v1/models/cfg.Model:predict.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote model: url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("remote model: model name is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.ReadyToTrip == 0 {
		cfg.ReadyToTrip = 5
	}

	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	log := logger.WithComponent("oracle")
	settings := gobreaker.Settings{
		Name:        "model:" + cfg.Model,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ReadyToTrip
		},
		// Only model failures count; a caller giving up says nothing about
		// the model server.
		IsSuccessful: func(err error) bool {
			var ie *InferenceError
			return err == nil || !errors.As(err, &ie)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithField("breaker", name).Warnf("circuit breaker %s -> %s", from, to)
		},
	}

	return &Remote{
		endpoint:   strings.TrimRight(cfg.URL, "/") + "/v1/models/" + url.PathEscape(cfg.Model) + ":predict",
		windowSize: cfg.WindowSize,
		client:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cb:         gobreaker.NewCircuitBreaker(settings),
	}, nil
}

func (r *Remote) Predict(ctx context.Context, window []float64) (float64, error) {
	if err := checkShape("remote", window, r.windowSize); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := r.cb.Execute(func() (interface{}, error) {
		return r.call(ctx, window)
	})
	if err != nil {
		var ie *InferenceError
		if errors.As(err, &ie) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, &InferenceError{Op: "remote", Err: err}
	}
	return out.(float64), nil
}

// State reports the circuit breaker state.
func (r *Remote) State() gobreaker.State { return r.cb.State() }

func (r *Remote) call(ctx context.Context, window []float64) (float64, error) {
	instance := make([][]float64, len(window))
	for i, v := range window {
		instance[i] = []float64{v}
	}
	body, err := json.Marshal(predictRequest{Instances: [][][]float64{instance}})
	if err != nil {
		return 0, inferenceErr("remote", "marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, inferenceErr("remote", "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, &InferenceError{Op: "remote", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, inferenceErr("remote", "read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, inferenceErr("remote", "status %d, body: %s", resp.StatusCode, string(raw))
	}

	var pr predictResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return 0, inferenceErr("remote", "decode response: %v", err)
	}
	if pr.Error != "" {
		return 0, inferenceErr("remote", "model error: %s", pr.Error)
	}
	if len(pr.Predictions) != 1 || len(pr.Predictions[0]) != 1 {
		return 0, inferenceErr("remote", "unexpected output shape, want (1, 1)")
	}
	y := pr.Predictions[0][0]
	if err := checkOutput("remote", y); err != nil {
		return 0, err
	}
	return y, nil
}
