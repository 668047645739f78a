// Package api provides the HTTP API server for the metrics engine:
// recompute, rollup, and scenario evaluation endpoints over the
// canonical document store.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"building-energy/internal/aggregate"
	"building-energy/internal/model"
	"building-energy/internal/pipeline"
	"building-energy/internal/store"
	"building-energy/pkg/platform"
)

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	store      store.Store
	engine     *aggregate.Engine
	propagator *pipeline.Propagator
	config     *Config
	log        zerolog.Logger
}

// Config holds server configuration
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxRequestSize: 10 * 1024 * 1024, // 10MB
	}
}

// NewServer creates a new API server
func NewServer(st store.Store, engine *aggregate.Engine, propagator *pipeline.Propagator, config *Config, log zerolog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		store:      st,
		engine:     engine,
		propagator: propagator,
		config:     config,
		log:        log,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Health stays open; everything mutating sits behind the API key
	// when one is configured.
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/measures/run", platform.APIKeyMiddleware(s.handleRunMeasure))
	mux.HandleFunc("/api/v1/measures/recompute", platform.APIKeyMiddleware(s.handleRecomputeMeasure))
	mux.HandleFunc("/api/v1/containers/total", platform.APIKeyMiddleware(s.handleContainerTotal))
	mux.HandleFunc("/api/v1/proposals/total", platform.APIKeyMiddleware(s.handleProposalTotal))
	mux.HandleFunc("/api/v1/scenarios/evaluate", platform.APIKeyMiddleware(s.handleScenarioEvaluate))

	handler := s.loggingMiddleware(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Info().Int("port", s.config.Port).Msg("API server starting")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts server with graceful shutdown handling
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.log.Info().Msg("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// RunRequest (re-)runs a measure's analysis against one building.
type RunRequest struct {
	MeasureID  string `json:"measure_id"`
	BuildingID string `json:"building_id"`
}

func (s *Server) handleRunMeasure(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.MeasureID == "" || req.BuildingID == "" {
		s.jsonError(w, http.StatusBadRequest, "measure_id and building_id are required")
		return
	}

	if err := s.propagator.RunMeasure(r.Context(), req.MeasureID, req.BuildingID); err != nil {
		s.log.Error().Err(err).Str("measure", req.MeasureID).Msg("measure run failed")
		s.jsonError(w, http.StatusInternalServerError, "measure run failed")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"measure_id":  req.MeasureID,
		"building_id": req.BuildingID,
		"status":      "complete",
	})
}

// RecomputeRequest triggers the recompute pipeline for one measure.
type RecomputeRequest struct {
	MeasureID   string   `json:"measure_id"`
	BuildingIDs []string `json:"building_ids,omitempty"`
}

func (s *Server) handleRecomputeMeasure(w http.ResponseWriter, r *http.Request) {
	var req RecomputeRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.MeasureID == "" {
		s.jsonError(w, http.StatusBadRequest, "measure_id is required")
		return
	}

	// The pipeline is best-effort: step failures are logged and the
	// caller gets a generic failure indicator, never the cause.
	if err := s.propagator.RecomputeMeasure(r.Context(), req.MeasureID, req.BuildingIDs); err != nil {
		s.log.Error().Err(err).Str("measure", req.MeasureID).Msg("recompute pipeline reported failures")
		s.jsonResponse(w, http.StatusOK, map[string]interface{}{
			"measure_id": req.MeasureID,
			"complete":   false,
		})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"measure_id": req.MeasureID,
		"complete":   true,
	})
}

// TotalRequest asks for a container rollup.
type TotalRequest struct {
	ContainerID string `json:"container_id"`
	BuildingID  string `json:"building_id"`
	Context     string `json:"context"`
}

func (s *Server) handleContainerTotal(w http.ResponseWriter, r *http.Request) {
	var req TotalRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	c, err := s.store.Container(r.Context(), req.ContainerID)
	if err != nil {
		s.jsonError(w, http.StatusNotFound, "container not found")
		return
	}
	b, err := s.store.Building(r.Context(), req.BuildingID)
	if err != nil {
		// Missing building degrades the rollup, it does not fail it.
		b = nil
	}

	vc := model.ParseValuationContext(req.Context)
	total := s.engine.ContainerTotal(r.Context(), c, b, req.BuildingID, vc)
	if err := s.store.SaveContainer(r.Context(), c); err != nil {
		s.log.Error().Err(err).Str("container", c.ID).Msg("failed to persist container total")
	}
	s.jsonResponse(w, http.StatusOK, total)
}

// ProposalTotalRequest asks for a proposal rollup.
type ProposalTotalRequest struct {
	ProposalID string `json:"proposal_id"`
}

func (s *Server) handleProposalTotal(w http.ResponseWriter, r *http.Request) {
	var req ProposalTotalRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	p, err := s.store.Proposal(r.Context(), req.ProposalID)
	if err != nil {
		s.jsonError(w, http.StatusNotFound, "proposal not found")
		return
	}
	b, err := s.store.Building(r.Context(), p.BuildingID)
	if err != nil {
		b = nil
	}

	total := s.engine.ProposalTotal(r.Context(), p, b)
	if err := s.store.SaveProposal(r.Context(), p); err != nil {
		s.log.Error().Err(err).Str("proposal", p.ID).Msg("failed to persist proposal total")
	}
	s.jsonResponse(w, http.StatusOK, total)
}

// ScenarioRequest asks for a scenario evaluation.
type ScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

func (s *Server) handleScenarioEvaluate(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if !s.decodePost(w, r, &req) {
		return
	}

	sc, err := s.store.Scenario(r.Context(), req.ScenarioID)
	if err != nil {
		s.jsonError(w, http.StatusNotFound, "scenario not found")
		return
	}

	buildings := make([]*model.Building, 0, len(sc.BuildingIDs))
	for _, id := range sc.BuildingIDs {
		if b, err := s.store.Building(r.Context(), id); err == nil {
			buildings = append(buildings, b)
		}
	}

	metric := s.engine.ScenarioMetric(r.Context(), sc, buildings)
	if err := s.store.SaveScenario(r.Context(), sc); err != nil {
		s.log.Error().Err(err).Str("scenario", sc.ID).Msg("failed to persist scenario metric")
	}
	s.jsonResponse(w, http.StatusOK, metric)
}

func (s *Server) decodePost(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return false
	}
	return true
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, msg string) {
	s.jsonResponse(w, status, map[string]string{"error": msg})
}
