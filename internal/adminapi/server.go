// Package adminapi implements the local-only HTTP control surface described
// in spec.md §7: start/stop the tunnel client, inspect its status, and
// manage the routing table without editing the config file by hand.
package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/agent"
	"github.com/me-sharif-hasan/tunneller/internal/config"
)

// Server is the admin HTTP surface. It holds no state of its own beyond a
// reference to the Agent; every handler reads or mutates through it.
type Server struct {
	Agent  *agent.Agent
	Log    *zap.Logger
	router chi.Router
}

// New builds the admin API's router, grouping routes the way spec.md §7
// lists them.
func New(a *agent.Agent, log *zap.Logger) *Server {
	s := &Server{Agent: a, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/status", s.handleStatus)

	r.Route("/client", func(r chi.Router) {
		r.Post("/start", s.handleClientStart)
		r.Post("/stop", s.handleClientStop)
	})

	r.Route("/routes", func(r chi.Router) {
		r.Get("/", s.handleListRoutes)
		r.Post("/", s.handleAddRoute)
		r.Put("/{index}", s.handleReplaceRoute)
		r.Delete("/{index}", s.handleDeleteRoute)
	})

	r.Route("/config", func(r chi.Router) {
		r.Put("/domain", s.handleSetDomain)
		r.Put("/signal", s.handleSetSignal)
		r.Put("/mode", s.handleSetMode)
	})

	s.router = r
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("admin request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusResponse mirrors spec.md §7's GET /status shape.
type statusResponse struct {
	State   string           `json:"state"`
	Running bool             `json:"running"`
	Domain  string           `json:"domain"`
	Mode    config.Mode      `json:"mode"`
	Stats   []statsSnapshot  `json:"stats,omitempty"`
	Config  config.Document  `json:"config"`
}

type statsSnapshot struct {
	Pattern           string `json:"pattern"`
	Total             int64  `json:"total"`
	Active            int64  `json:"active"`
	RequestsPerMinute int    `json:"requestsPerMinute"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		State:   s.Agent.State().String(),
		Running: s.Agent.Running(),
		Domain:  s.Agent.Config.Domain(),
		Mode:    s.Agent.Config.Mode(),
		Config:  s.Agent.Config.Snapshot(),
	}
	if s.Agent.Config.MonitoringEnabled() {
		for _, snap := range s.Agent.Stats.All() {
			resp.Stats = append(resp.Stats, statsSnapshot{
				Pattern:           snap.Pattern,
				Total:             snap.Total,
				Active:            snap.Active,
				RequestsPerMinute: snap.RequestsPerMinute,
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClientStart(w http.ResponseWriter, r *http.Request) {
	if err := s.Agent.Start(context.WithoutCancel(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": s.Agent.State().String()})
}

func (s *Server) handleClientStop(w http.ResponseWriter, r *http.Request) {
	s.Agent.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"state": s.Agent.State().String()})
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Agent.Config.Snapshot().Routes)
}

func (s *Server) handleAddRoute(w http.ResponseWriter, r *http.Request) {
	var spec config.RuleSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Agent.Config.AddRule(spec); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, spec)
}

func (s *Server) handleReplaceRoute(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var spec config.RuleSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Agent.Config.ReplaceRule(idx, spec); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (s *Server) handleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Agent.Config.RemoveRule(idx); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type domainRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) handleSetDomain(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Agent.Config.SetDomain(req.Domain); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type signalRequest struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (s *Server) handleSetSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Agent.Config.SetSignal(req.Host, req.Port); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type modeRequest struct {
	Mode config.Mode `json:"mode"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Agent.Config.SetMode(req.Mode); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
