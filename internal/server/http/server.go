// Package httpserver exposes the time entry API over HTTP.
package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/timekeeper/internal/auth"
	"github.com/and161185/timekeeper/internal/service"
)

// Server wires the entry service into HTTP handlers.
type Server struct {
	entries  service.EntryService
	verifier *auth.Verifier
	log      *zap.Logger
	metrics  *Metrics
	gatherer prometheus.Gatherer
	cors     CORS
}

// New constructs the HTTP server. Instruments are registered on reg and served from /metrics.
func New(entries service.EntryService, verifier *auth.Verifier, log *zap.Logger, reg *prometheus.Registry, cors CORS) *Server {
	return &Server{
		entries:  entries,
		verifier: verifier,
		log:      log.Named("http"),
		metrics:  NewMetrics(reg),
		gatherer: reg,
		cors:     cors,
	}
}

// Handler returns the routed handler with recovery and CORS applied.
// Routed panics are recovered inside observe so they are logged and counted as 500s;
// the outer recovery covers the router and CORS layers.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.observe, s.recoverPanics)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/time-entries").Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("", s.create).Methods(http.MethodPost)
	api.HandleFunc("", s.list).Methods(http.MethodGet)
	api.HandleFunc("/active", s.active).Methods(http.MethodGet)
	api.HandleFunc("/task/{task_id}", s.listByTask).Methods(http.MethodGet)
	api.HandleFunc("/{id}/stop", s.stop).Methods(http.MethodPut)
	api.HandleFunc("/{id}", s.update).Methods(http.MethodPatch)
	api.HandleFunc("/{id}", s.delete).Methods(http.MethodDelete)

	return s.recoverPanics(s.cors.wrap(r))
}
