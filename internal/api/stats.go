package api

import (
	"net/http"
	"time"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Running      bool    `json:"running"`
	RunsStarted  int     `json:"runs_started"`
	StatusEvents int     `json:"status_events"`
	UptimeS      float64 `json:"uptime_s"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := s.controller.Snapshot()

	var uptime float64
	if snap.Running && !snap.StartedAt.IsZero() {
		uptime = time.Since(snap.StartedAt).Seconds()
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Running:      snap.Running,
		RunsStarted:  snap.RunsStarted,
		StatusEvents: snap.StatusEvents,
		UptimeS:      uptime,
	})
}
