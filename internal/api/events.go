package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sainohq/beacon/internal/heartbeat"
)

// handleStreamEvents streams engine events to the client as SSE. The stream
// stays open across runs until the client disconnects; each event is typed
// "status", "countdown", or "finished".
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	ch, unsub := s.broker.Subscribe()
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, eventName(ev.Kind), eventData(ev)); err != nil {
				return // Write failed (e.g. client gone).
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

// eventName maps an event kind to its SSE event type.
func eventName(k heartbeat.EventKind) string {
	switch k {
	case heartbeat.EventStatus:
		return "status"
	case heartbeat.EventCountdown:
		return "countdown"
	case heartbeat.EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// eventData renders an event's payload for the SSE data field.
func eventData(ev heartbeat.Event) string {
	switch ev.Kind {
	case heartbeat.EventStatus:
		return ev.Text
	case heartbeat.EventCountdown:
		return strconv.Itoa(ev.Remaining)
	default:
		return ""
	}
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
// Multi-line data is split so each segment gets its own "data:" prefix, per
// the SSE spec.
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	for seg := range strings.SplitSeq(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", seg); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}
