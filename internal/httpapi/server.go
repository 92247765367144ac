package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/schwarzekatzer/netwatchdog/internal/monitor"
)

// Server is the observer surface: a read-only window on the monitor plus the
// explicit start/stop/reset/test controls. It never mutates monitor state
// directly; control requests go through the monitor's command hand-off.
type Server struct {
	Logger  *zap.Logger
	Monitor *monitor.Monitor
}

func NewServer(l *zap.Logger, m *monitor.Monitor) *Server {
	return &Server{Logger: l, Monitor: m}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/history", s.handleHistory)
	r.Post("/api/test", s.handleTestNow)
	r.Post("/api/start", s.handleStart)
	r.Post("/api/stop", s.handleStop)
	r.Post("/api/reset", s.handleReset)

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Monitor.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			http.Error(w, "bad n", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	writeJSON(w, s.Monitor.History.Recent(n))
}

func (s *Server) handleTestNow(w http.ResponseWriter, r *http.Request) {
	rep, matched := s.Monitor.TestNow(r.Context())
	s.Logger.Info("api_manual_test", zap.Bool("overall_ok", rep.OK))

	diagnosis := ""
	if !rep.OK {
		diagnosis = rep.Explain()
	}
	writeJSON(w, map[string]any{
		"report":           rep,
		"remote_processes": matched,
		"diagnosis":        diagnosis,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.Monitor.Start()
	s.Logger.Info("api_monitor_start")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.Monitor.Stop()
	s.Logger.Info("api_monitor_stop")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Monitor.ResetBudget()
	s.Logger.Info("api_budget_reset")
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
