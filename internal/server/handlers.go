package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/riskpulse/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": s.cfg.Version,
		"service": "riskpulse",
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	}
	if memUsed, ok := s.system.MemoryUsedPercent(); ok {
		response["memory_used_percent"] = memUsed
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleListJobs handles GET /api/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": s.cfg.Jobs.Jobs()})
}

// handleTriggerJob handles POST /api/jobs/{name}
// The job runs in the background; the response only acknowledges the request.
func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.cfg.Jobs.Trigger(name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			http.Error(w, "Unknown job", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Str("job", name).Msg("Failed to trigger job")
		http.Error(w, "Failed to trigger job", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": name + " triggered",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data, s.log)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
