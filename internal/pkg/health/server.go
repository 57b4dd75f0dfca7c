package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/metrics"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/storage"
)

// SourceStatuser exposes the per-source operational summary. Implemented by
// the rotation manager.
type SourceStatuser interface {
	Statuses(ctx context.Context) []models.SourceSummary
}

// Server is the operational HTTP surface consumed by the monitoring
// dashboard: liveness, metric rates, source statuses and the audit trail.
type Server struct {
	collector *metrics.Collector
	sources   SourceStatuser
	runs      storage.RunStore
	alerts    storage.AlertStore
	startedAt time.Time
}

func NewServer(collector *metrics.Collector, sources SourceStatuser, runs storage.RunStore, alerts storage.AlertStore) *Server {
	return &Server{
		collector: collector,
		sources:   sources,
		runs:      runs,
		alerts:    alerts,
		startedAt: time.Now(),
	}
}

// Run starts the server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string, readHeaderTimeout time.Duration) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/sources", s.handleSources)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/alerts", s.handleAlerts)
	mux.HandleFunc("/alerts/ack", s.handleAckAlert)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("health server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()
}

// AddrFor formats a listen address for a port.
func AddrFor(port int) string {
	return fmt.Sprintf(":%d", port)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	window := metrics.DefaultWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			http.Error(w, "invalid window: "+err.Error(), http.StatusBadRequest)
			return
		}
		window = parsed
	}
	writeJSON(w, s.collector.GetSnapshot(window))
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"sources": s.sources.Statuses(r.Context())})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)
	runs, err := s.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)
	alerts, err := s.alerts.RecentAlerts(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"alerts": alerts, "count": len(alerts)})
}

func (s *Server) handleAckAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid alert id", http.StatusBadRequest)
		return
	}
	by := r.URL.Query().Get("by")
	if by == "" {
		by = "dashboard"
	}
	if err := s.alerts.AcknowledgeAlert(r.Context(), id, by); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"acknowledged": id})
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode health response", "error", err)
	}
}
