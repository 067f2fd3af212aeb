// Package control exposes a running scheduler over HTTP: health, live
// stats, a Prometheus scrape endpoint, and a cooperative stop request.
package control

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Niraka/nebula/internal/logging"
	"github.com/Niraka/nebula/internal/observability"
	"github.com/Niraka/nebula/schedule"
)

// Server is a small HTTP control plane wrapping a *schedule.Engine.
//
// Engine.Stop is only safe to call from the goroutine running Start, so
// the HTTP handler cannot call it directly. handleStop instead flips an
// atomic flag; the Server's Watcher item, registered with the same engine,
// notices the flag and calls Stop from the loop's own goroutine.
type Server struct {
	router        chi.Router
	log           logging.Logger
	engine        *schedule.Engine
	collector     *observability.SchedulerCollector
	startTime     time.Time
	stopRequested atomic.Bool
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger attaches a structured logger. Defaults to logging.Noop().
func WithLogger(log logging.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCollector wires a Prometheus collector's registry into GET /metrics.
// Without one, /metrics reports 404.
func WithCollector(collector *observability.SchedulerCollector) Option {
	return func(s *Server) { s.collector = collector }
}

// New builds a Server wrapping engine, with routes registered and ready to
// serve.
func New(engine *schedule.Engine, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       logging.Noop(),
		engine:    engine,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler returns the http.Handler serving this control plane.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestIDMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/stop", s.handleStop)

	if s.collector != nil {
		if gatherer := s.collector.Gatherer(); gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		}
	}
}

// requestIDMiddleware ensures every request carries a request_id, echoes it
// back as X-Request-ID, and stashes a logger annotated with that ID on the
// request context for handlers to pull via logging.LoggerFromContext.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, log := logging.WithRequestLogger(r.Context(), s.log)
		w.Header().Set("X-Request-ID", logging.RequestIDFromContext(ctx))
		ctx = logging.ContextWithLogger(ctx, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

type statsResponse struct {
	ActiveConfig  schedule.Config        `json:"activeConfig"`
	ExecutionData schedule.ExecutionData `json:"executionData"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		ActiveConfig:  s.engine.ActiveConfig(),
		ExecutionData: s.engine.ExecutionData(),
	})
}

// handleStop records a stop request. See Watcher for how it is applied.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	log := s.log
	if ctxLog := logging.LoggerFromContext(r.Context()); ctxLog != nil {
		log = ctxLog
	}
	log.Info(r.Context(), "stop requested via control plane")
	s.RequestStop()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stop requested"})
}

// RequestStop flags the engine to stop on the next frame the Watcher item
// is updated. Safe to call from any goroutine, including outside of an HTTP
// handler (e.g. from a process's own shutdown sequence).
func (s *Server) RequestStop() {
	s.stopRequested.Store(true)
}

// Watcher returns a schedule.Item that, once registered with the same
// engine this Server wraps, calls Engine.Stop from the engine's own
// goroutine the first frame after a stop is requested over HTTP. Unlike an
// item's own RequestStop, this bypasses RefuseStopRequests entirely: an
// operator-issued stop is authoritative.
func (s *Server) Watcher() schedule.Item {
	return &stopWatcher{server: s}
}

type stopWatcher struct {
	schedule.BaseItem
	server *Server
}

func (w *stopWatcher) OnUpdate(schedule.TimeInfo) {
	if w.server.stopRequested.Load() {
		w.server.engine.Stop()
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
