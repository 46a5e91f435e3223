// Package adminapi is the Admin API (SPEC_FULL.md §6): a narrow,
// token-protected net/http surface distinct from "the web dashboard"
// (out of scope per spec.md §1), exposing scheduler status/reschedule and
// a live queue-status stream for operators and for the dashboard to
// consume.
//
// Grounded on the teacher's monitoring/health.go (checker pattern for
// /healthz and /readyz) and its own router/ conventions for a plain
// net/http.ServeMux with small per-route handlers.
package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbrown1837/webmonitor/internal/logging"
	"github.com/mbrown1837/webmonitor/internal/queueprocessor"
	"github.com/mbrown1837/webmonitor/internal/scheduler"
)

// Server hosts the Admin API's HTTP routes.
type Server struct {
	mux       *http.ServeMux
	core      *scheduler.Core
	broadcast *queueprocessor.Broadcaster
	auth      *tokenAuth
	log       *logging.Logger
}

// New builds a Server. jwtSecret configures the bearer-token check
// (SPEC_FULL.md §6: "a static service credential").
func New(core *scheduler.Core, broadcast *queueprocessor.Broadcaster, jwtSecret string, log *logging.Logger) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		core:      core,
		broadcast: broadcast,
		auth:      newTokenAuth(jwtSecret),
		log:       log,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/readyz", s.handleReadyz)
	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.Handle("/api/scheduler/status", s.auth.require(http.HandlerFunc(s.handleSchedulerStatus)))
	s.mux.Handle("/api/scheduler/reschedule", s.auth.require(http.HandlerFunc(s.handleReschedule)))
	s.mux.Handle("/api/queue/stream", s.auth.require(http.HandlerFunc(s.handleQueueStream)))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReadyz reports ready only once the scheduler has completed at
// least one job-set build, mirroring the teacher's health checker
// distinguishing liveness from readiness.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := s.core.Status()
	if status.LastScheduleAt.IsZero() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	status := s.core.Status()
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.core.ForceReschedule(); err != nil {
		s.log.Error("admin api: force_reschedule failed", map[string]interface{}{"error": err})
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rescheduled"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ListenAndServe runs the Admin API with sensible timeouts, matching the
// teacher's own http.Server construction in cmd/server.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}
