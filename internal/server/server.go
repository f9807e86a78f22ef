// Package server exposes forecasts over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pricecast/internal/forecast"
	"pricecast/internal/logger"
	"pricecast/internal/model"
	"pricecast/internal/oracle"
	"pricecast/internal/recorder"
)

// Server serves forecasts from the engine currently held in the store.
type Server struct {
	store  *forecast.Store
	rec    recorder.Recorder
	router *gin.Engine
	server *http.Server
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Point is a dated value with the date rendered as YYYY-MM-DD.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ForecastResponse is the reply to GET /api/v1/forecast.
type ForecastResponse struct {
	Symbol     string  `json:"symbol"`
	LastKnown  Point   `json:"last_known"`
	EndDate    string  `json:"end_date"`
	HorizonEnd string  `json:"horizon_end"`
	WindowSize int     `json:"window_size"`
	Points     []Point `json:"points"`
	History    []Point `json:"history"`
}

// BoundsResponse is the reply to GET /api/v1/bounds.
type BoundsResponse struct {
	MinDate   string `json:"min_date"`
	MaxDate   string `json:"max_date"`
	LastKnown Point  `json:"last_known"`
}

// New builds the router. rec may be a NoopRecorder but not nil.
func New(store *forecast.Store, rec recorder.Recorder) *Server {
	s := &Server{store: store, rec: rec}

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())

	router.GET("/health", s.healthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/forecast", s.getForecast)
		v1.GET("/bounds", s.getBounds)
		v1.GET("/runs", s.getRuns)
		v1.GET("/runs/:id/points", s.getRunPoints)
	}

	s.router = router
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr in the background.
func (s *Server) Start(addr string) {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := logger.WithComponent("server")
	log.WithField("addr", addr).Info("starting HTTP server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server failed")
		}
	}()
}

// Stop shuts the server down, waiting up to ten seconds for open requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.WithComponent("server").WithError(err).Error("failed to gracefully shutdown server")
	}
}

func requestLogger() gin.HandlerFunc {
	log := logger.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request served")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	eng := s.store.Load()
	if eng == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"symbol":     eng.Series().Symbol(),
		"last_known": eng.LastKnown().Date.Format(model.DateLayout),
	})
}

func (s *Server) getForecast(c *gin.Context) {
	raw := c.Query("end")
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "query parameter end is required"})
		return
	}
	end, err := model.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "end must be a YYYY-MM-DD date"})
		return
	}

	eng := s.store.Load()
	if eng == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "not_ready", Message: "forecast model is not loaded yet"})
		return
	}

	start := time.Now()
	f, err := eng.Forecast(c.Request.Context(), end)
	if rerr := s.rec.RecordRun(&recorder.Run{
		Trigger:  recorder.TriggerAPI,
		Symbol:   eng.Series().Symbol(),
		EndDate:  end,
		Forecast: f,
		Err:      err,
		Duration: time.Since(start),
	}); rerr != nil {
		logger.WithComponent("server").WithError(rerr).Error("record run")
	}
	if err != nil {
		status, body := errorStatus(err)
		if status >= http.StatusInternalServerError {
			logger.WithComponent("server").WithError(err).WithField("end", raw).Error("forecast failed")
		}
		c.JSON(status, body)
		return
	}

	resp := ForecastResponse{
		Symbol:     eng.Series().Symbol(),
		LastKnown:  toPoint(f.LastKnown.Date, f.LastKnown.Value),
		EndDate:    f.EndDate.Format(model.DateLayout),
		HorizonEnd: f.HorizonEnd.Format(model.DateLayout),
		WindowSize: f.WindowSize,
		Points:     make([]Point, 0, len(f.Points)),
	}
	for _, p := range f.Points {
		resp.Points = append(resp.Points, toPoint(p.Date, p.Value))
	}
	hist := eng.Series().Tail(eng.WindowSize())
	resp.History = make([]Point, 0, len(hist))
	for _, o := range hist {
		resp.History = append(resp.History, toPoint(o.Date, o.Value))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getBounds(c *gin.Context) {
	eng := s.store.Load()
	if eng == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "not_ready", Message: "forecast model is not loaded yet"})
		return
	}
	minDate, maxDate := eng.Bounds()
	last := eng.LastKnown()
	c.JSON(http.StatusOK, BoundsResponse{
		MinDate:   minDate.Format(model.DateLayout),
		MaxDate:   maxDate.Format(model.DateLayout),
		LastKnown: toPoint(last.Date, last.Value),
	})
}

func (s *Server) getRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	runs, err := s.rec.RecentRuns(limit)
	if err != nil {
		logger.WithComponent("server").WithError(err).Error("list runs")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []recorder.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) getRunPoints(c *gin.Context) {
	id := c.Param("id")
	points, err := s.rec.Points(id)
	if err != nil {
		logger.WithComponent("server").WithError(err).WithField("run_id", id).Error("list run points")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "failed to list run points"})
		return
	}
	// Unknown runs and failed runs both have no stored points.
	if len(points) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no points recorded for run " + id})
		return
	}
	out := make([]Point, 0, len(points))
	for _, p := range points {
		out = append(out, toPoint(p.Date, p.Value))
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "points": out})
}

// errorStatus maps forecast failures onto HTTP replies.
func errorStatus(err error) (int, ErrorResponse) {
	var ie *oracle.InferenceError
	switch {
	case errors.Is(err, forecast.ErrNoForecastNeeded):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "no_forecast_needed", Message: err.Error()}
	case errors.Is(err, forecast.ErrInvalidRange):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid_range", Message: err.Error()}
	case errors.Is(err, forecast.ErrOutOfHorizon):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "out_of_horizon", Message: err.Error()}
	case errors.As(err, &ie):
		return http.StatusBadGateway, ErrorResponse{Error: "inference_error", Message: "model inference failed"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "canceled", Message: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "forecast failed"}
	}
}

func toPoint(d time.Time, v float64) Point {
	return Point{Date: d.Format(model.DateLayout), Value: v}
}
