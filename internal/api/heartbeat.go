package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sainohq/beacon/internal/controller"
	"github.com/sainohq/beacon/internal/heartbeat"
)

const maxBodySize = 1 << 20 // 1 MB

// startRequest is the JSON body for POST /v1/heartbeat/start.
type startRequest struct {
	Identifier string `json:"identifier"`
}

// startResponse is returned when a run is accepted.
type startResponse struct {
	RunID      string `json:"run_id"`
	Identifier string `json:"identifier"`
}

func (s *Server) handleStartHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.controller.Start(req.Identifier); err != nil {
		switch {
		case errors.Is(err, heartbeat.ErrBlankIdentifier):
			s.writeError(w, http.StatusBadRequest, "identifier is required")
		case errors.Is(err, controller.ErrAlreadyRunning):
			s.writeError(w, http.StatusConflict, "a heartbeat run is already active")
		default:
			s.logger.Error("start heartbeat", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to start heartbeat")
		}
		return
	}

	snap := s.controller.Snapshot()
	s.writeJSON(w, http.StatusAccepted, startResponse{
		RunID:      snap.RunID,
		Identifier: snap.Identifier,
	})
}

func (s *Server) handleStopHeartbeat(w http.ResponseWriter, r *http.Request) {
	// Idempotent: stopping an idle controller is a no-op.
	s.controller.Stop()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (s *Server) handleGetHeartbeat(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
