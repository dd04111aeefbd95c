// Package api serves the read endpoints, health and metrics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/health"
	"github.com/vietddude/gravity-indexer/internal/indexing/indexer"
	"github.com/vietddude/gravity-indexer/internal/query"
)

// Queries is the read side the server exposes.
type Queries interface {
	ListByType(ctx context.Context, typ domain.MessageType) ([]query.BlockTransactions, error)
	FeeTotals(ctx context.Context) (query.TimeFrameData, error)
}

// HealthChecker reports indexer health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) health.ChainHealth
}

// StatusSource reports indexer progress.
type StatusSource interface {
	GetStatus() indexer.Status
}

// Server provides the HTTP endpoints.
type Server struct {
	queries Queries
	health  HealthChecker
	status  StatusSource
	server  *http.Server
	log     *slog.Logger
}

// NewServer creates a new API server. status may be nil.
func NewServer(port int, queries Queries, checker HealthChecker, status StatusSource) *Server {
	mux := http.NewServeMux()
	s := &Server{
		queries: queries,
		health:  checker,
		status:  status,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: slog.Default().With("component", "api"),
	}

	mux.HandleFunc("GET /transactions/send_to_eth", s.listHandler(domain.MessageTypeSendToEth))
	mux.HandleFunc("GET /transactions/ibc_transfer", s.listHandler(domain.MessageTypeIBCTransfer))
	mux.HandleFunc("GET /transactions/ibc_recv", s.listHandler(domain.MessageTypeIBCRecv))
	mux.HandleFunc("GET /transactions/send_to_eth/time", s.handleFeeTotals)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info("API server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) listHandler(typ domain.MessageType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blocks, err := s.queries.ListByType(r.Context(), typ)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, blocks)
	}
}

func (s *Server) handleFeeTotals(w http.ResponseWriter, r *http.Request) {
	data, err := s.queries.FeeTotals(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.CheckHealth(r.Context())

	code := http.StatusOK
	if report.Status == health.StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": string(report.Status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.CheckHealth(r.Context()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.status.GetStatus())
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("Query failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
