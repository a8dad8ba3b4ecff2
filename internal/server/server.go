// Package server exposes the signal and the momentum window over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"GEMSentinel/internal/calculator"
	"GEMSentinel/internal/scheduler"
	"GEMSentinel/internal/strategy"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// SignalRunner evaluates the signal for a reference date. *scheduler.Scheduler satisfies it.
type SignalRunner interface {
	RunSignal(ctx context.Context, asOf time.Time) (*scheduler.Run, error)
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Server is the read-only HTTP API.
type Server struct {
	router     *mux.Router
	server     *http.Server
	runner     SignalRunner
	gatherer   prometheus.Gatherer
	runTimeout time.Duration
	now        func() time.Time
}

// New creates a Server listening on addr. Signal requests run with a timeout of runTimeout.
func New(addr string, runner SignalRunner, gatherer prometheus.Gatherer, runTimeout time.Duration) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		runner:     runner,
		gatherer:   gatherer,
		runTimeout: runTimeout,
		now:        time.Now,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: runTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/window", s.handleWindow).Methods(http.MethodGet)
	api.HandleFunc("/signal", s.handleSignal).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	asOf, ok := s.referenceDate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newWindowResponse(asOf, calculator.ComputeWindow(asOf)))
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	asOf, ok := s.referenceDate(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	run, err := s.runner.RunSignal(ctx, asOf)
	if run == nil {
		if err == nil {
			err = errors.New("run produced no result")
		}
		writeError(w, http.StatusInternalServerError, strategy.ReasonCode(err), err.Error())
		return
	}

	resp := NewSignalResponse(run, err)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, strategy.ErrNoDataAvailable):
		writeJSON(w, http.StatusServiceUnavailable, resp)
	case errors.Is(err, strategy.ErrNoSafeHavenAvailable):
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	default:
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// referenceDate reads ?date=YYYY-MM-DD, defaulting to today.
func (s *Server) referenceDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return s.now(), true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		requestID, _ := r.Context().Value(requestIDKey).(string)
		log.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}
