// Package httpapi is the admin/status HTTP surface: trigger a generation
// run, inspect scheduler/provider/backup status, and serve /metrics and
// /healthz. The aggregator-facing REST API and the settings UI are
// external collaborators this package never implements — it only gives an
// operator (or the container's own health probe) a way to see what the
// background process is doing.
package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/titooo7/teamarr-sub000/internal/backup"
	"github.com/titooo7/teamarr-sub000/internal/generation"
	"github.com/titooo7/teamarr-sub000/internal/platform/metrics"
	"github.com/titooo7/teamarr-sub000/internal/provider"
)

// ProviderStats is the narrow surface a sports-data provider exposes for
// the /providers status endpoint — satisfied directly by
// *provider.TSDBClient without an adapter.
type ProviderStats interface {
	Name() string
	Stats() provider.RateLimitStats
}

// progressSnapshot is the most recent ProgressFunc callback the running
// generation (if any) reported, polled by GET /status.
type progressSnapshot struct {
	Phase   string `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Item    string `json:"item,omitempty"`
}

// Server is the admin HTTP surface. Driver and TargetDate are required;
// Backups and Providers are optional and simply omitted from their
// respective status responses when nil/empty.
type Server struct {
	Driver     *generation.Driver
	TargetDate func() time.Time
	Backups    *backup.Service
	Providers  []ProviderStats
	StartedAt  time.Time

	mu         sync.Mutex
	running    bool
	progress   progressSnapshot
	lastResult *generation.GenerationResult
	lastErr    string
}

// NewServer constructs a Server. targetDate supplies the date a
// POST /generate trigger runs against — normally "today in the
// configured timezone", injected so tests can pin it.
func NewServer(driver *generation.Driver, targetDate func() time.Time, backups *backup.Service, providers ...ProviderStats) *Server {
	return &Server{
		Driver:     driver,
		TargetDate: targetDate,
		Backups:    backups,
		Providers:  providers,
		StartedAt:  time.Now(),
	}
}

// Routes builds the chi router: middleware stack first (request logging,
// panic recovery, a 30s per-request timeout — the same trio the reference
// channel-playlist service registers), then the routes themselves.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/status", s.handleStatus)
	r.Post("/generate", s.handleTriggerGenerate)
	r.Get("/backups", s.handleBackups)
	r.Get("/providers", s.handleProviders)

	return r
}

// recordProgress is passed to generation.Driver.Run as its ProgressFunc —
// it is how GET /status knows what an in-flight run is doing.
func (s *Server) recordProgress(phase string, percent int, message string, current, total int, item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = progressSnapshot{Phase: phase, Percent: percent, Message: message, Current: current, Total: total, Item: item}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTriggerGenerate starts a generation run in the background and
// returns immediately — GET /status polls progress and the final result.
// A run already in progress is rejected with 409 rather than queued or
// run concurrently, the same one-run-at-a-time guarantee
// scheduler.Scheduler's own running flag enforces for its cron-fired runs.
func (s *Server) handleTriggerGenerate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "generation_in_progress", "a generation run is already in progress")
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		result, err := s.Driver.Run(context.Background(), s.TargetDate(), s.recordProgress)

		s.mu.Lock()
		s.running = false
		s.lastResult = &result
		if err != nil {
			s.lastErr = err.Error()
		} else {
			s.lastErr = ""
		}
		s.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleStatus reports whether a run is in progress, its most recent
// progress callback, and a summary of the last completed run.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := map[string]interface{}{
		"running":    s.running,
		"progress":   s.progress,
		"started_at": s.StartedAt.UTC().Format(time.RFC3339),
	}
	if s.lastResult != nil {
		resp["last_run"] = map[string]interface{}{
			"run_id":           s.lastResult.RunID,
			"generation":       s.lastResult.Generation,
			"started_at":       s.lastResult.StartedAt.UTC().Format(time.RFC3339),
			"completed_at":     s.lastResult.CompletedAt.UTC().Format(time.RFC3339),
			"groups_processed": s.lastResult.GroupsProcessed,
			"groups_failed":    s.lastResult.GroupsFailed,
			"matched":          s.lastResult.Matched,
			"failed":           s.lastResult.Failed,
			"filtered":         s.lastResult.Filtered,
			"cache_purged":     s.lastResult.CachePurged,
			"history_purged":   s.lastResult.HistoryPurged,
			"errors":           s.lastResult.Errors,
		}
		if s.lastErr != "" {
			resp["last_run_error"] = s.lastErr
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBackups lists known backup snapshots. Omitted from the response
// (empty array) when no backup.Service is configured.
func (s *Server) handleBackups(w http.ResponseWriter, r *http.Request) {
	if s.Backups == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"backups": []backup.Info{}})
		return
	}
	backups, err := s.Backups.ListBackups()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_backups_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"backups": backups})
}

// handleProviders reports each registered sports-data provider's rate
// limit stats for the current process lifetime.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	type providerStatus struct {
		Name            string  `json:"name"`
		TotalRequests   int64   `json:"total_requests"`
		PreemptiveWaits int64   `json:"preemptive_waits"`
		ReactiveWaits   int64   `json:"reactive_waits"`
		TotalWaitSeconds float64 `json:"total_wait_seconds"`
		RateLimited     bool    `json:"rate_limited"`
	}

	out := make([]providerStatus, 0, len(s.Providers))
	for _, p := range s.Providers {
		stats := p.Stats()
		out = append(out, providerStatus{
			Name:            p.Name(),
			TotalRequests:   stats.TotalRequests,
			PreemptiveWaits: stats.PreemptiveWaits,
			ReactiveWaits:   stats.ReactiveWaits,
			TotalWaitSeconds: stats.TotalWaitSeconds,
			RateLimited:     stats.IsRateLimited(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"providers": out})
}
