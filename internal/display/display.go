// Package display renders engine events for a terminal: a MM:SS countdown
// that overwrites itself in place and a status line per delivery update.
package display

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Terminal is a controller.Observer writing to a terminal-like writer.
// Safe for concurrent use, although the controller forwards events from a
// single goroutine.
type Terminal struct {
	mu   sync.Mutex
	w    io.Writer
	full int // seconds shown when no run is active
}

// NewTerminal creates a terminal display. interval is the full countdown
// shown before a run starts and after one finishes.
func NewTerminal(w io.Writer, interval time.Duration) *Terminal {
	t := &Terminal{w: w, full: int(interval / time.Second)}
	t.mu.Lock()
	fmt.Fprintf(t.w, "%s  ready\n", Clock(t.full))
	t.mu.Unlock()
	return t
}

// OnStatus prints a delivery status line.
func (t *Terminal) OnStatus(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "\n%s\n", text)
}

// OnCountdown rewrites the countdown in place.
func (t *Terminal) OnCountdown(remaining int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "\r%s", Clock(remaining))
}

// OnFinished resets the display to the idle state.
func (t *Terminal) OnFinished() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "\n%s  stopped\n", Clock(t.full))
}

// Clock formats seconds as MM:SS.
func Clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
