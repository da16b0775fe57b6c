package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jgoulah/devusage/internal/analytics"
	"github.com/jgoulah/devusage/pkg/models"
)

const (
	paramDate      = "date"
	paramDeviceID  = "device_id"
	paramStartDate = "start_date"
	paramEndDate   = "end_date"
)

// Queries is what the handlers need from the analytics layer.
type Queries interface {
	TopDevices(ctx context.Context, date string) ([]models.DeviceAverage, error)
	HourlyAverages(ctx context.Context, deviceID, start, end string) ([]models.HourlyAverage, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the read-only query endpoints.
type Server struct {
	log     *slog.Logger
	queries Queries
	health  Pinger
	metrics *metrics
	router  chi.Router
}

// Options tunes the router.
type Options struct {
	RequestTimeout time.Duration
}

// NewServer builds the chi router for the query service.
func NewServer(log *slog.Logger, queries Queries, health Pinger, opts Options) *Server {
	s := &Server{
		log:     log,
		queries: queries,
		health:  health,
		metrics: newMetrics(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.instrument)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/top-5", s.handleTopDevices)
	r.Get("/hourly-average", s.handleHourlyAverage)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler())

	s.router = r
	return s
}

// ServeHTTP allows Server to satisfy http.Handler directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleTopDevices(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get(paramDate)
	if date == "" {
		s.writeError(w, http.StatusBadRequest, "Missing 'date' parameter")
		return
	}

	result, err := s.queries.TopDevices(r.Context(), date)
	if err != nil {
		s.respondQueryError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHourlyAverage(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	deviceID := params.Get(paramDeviceID)
	start := params.Get(paramStartDate)
	end := params.Get(paramEndDate)

	if deviceID == "" || start == "" || end == "" {
		s.writeError(w, http.StatusBadRequest, "Missing one or more parameters: device_id, start_date, end_date")
		return
	}

	result, err := s.queries.HourlyAverages(r.Context(), deviceID, start, end)
	if err != nil {
		s.respondQueryError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.log.Warn("health check failed", slog.String("error", err.Error()))
			s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidDate), errors.Is(err, analytics.ErrInvalidRange):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("query failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response", slog.String("error", err.Error()))
	}
}

// accessLog writes one line per request with status and duration.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.String("duration", time.Since(start).String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
