// beacon-target is a local heartbeat receiver for development and E2E runs.
// It accepts the same POST the daemon sends, validates the x-secret header,
// and logs each heartbeat it receives.
// Usage: go run ./cmd/beacon-target
package main

import (
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"
)

type pingRequest struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

type pingResponse struct {
	OK         bool   `json:"ok"`
	Identifier string `json:"identifier,omitempty"`
	ReceivedAt string `json:"received_at"`
}

func main() {
	addr := ":9090"
	if v := os.Getenv("BEACON_TARGET_ADDR"); v != "" {
		addr = v
	}
	secret := "4321"
	if v := os.Getenv("BEACON_TARGET_SECRET"); v != "" {
		secret = v
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ping", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-secret") != secret {
			logger.Warn("rejected heartbeat", "reason", "bad secret", "remote", r.RemoteAddr)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
			return
		}

		var req pingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "identifier is required"})
			return
		}

		logger.Info("heartbeat received", "identifier", req.Identifier, "name", req.Name)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pingResponse{
			OK:         true,
			Identifier: req.Identifier,
			ReceivedAt: time.Now().UTC().Format(time.RFC3339),
		})
	})

	logger.Info("beacon-target: listening", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
