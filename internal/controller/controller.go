// Package controller mediates between the control surface and the heartbeat
// engine. It enforces the single-instance invariant (at most one running
// engine), forwards engine events to the observer, the event broker, and the
// log, and provides a bounded join for shutdown.
package controller

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sainohq/beacon/internal/heartbeat"
	"github.com/sainohq/beacon/internal/transport"
)

// ErrAlreadyRunning is returned by Start while an engine is live.
var ErrAlreadyRunning = errors.New("a heartbeat run is already active")

// DefaultJoinTimeout is how long shutdown waits for the engine goroutine to
// report finished before proceeding anyway.
const DefaultJoinTimeout = 3 * time.Second

// Observer receives the engine's events, forwarded in emission order from a
// single goroutine. Implementations must return promptly.
type Observer interface {
	OnStatus(text string)
	OnCountdown(remaining int)
	OnFinished()
}

// Snapshot is a point-in-time view of the controller for the status and
// stats surfaces.
type Snapshot struct {
	Running       bool      `json:"running"`
	Identifier    string    `json:"identifier,omitempty"`
	RunID         string    `json:"run_id,omitempty"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	LastStatus    string    `json:"last_status,omitempty"`
	LastCountdown int       `json:"last_countdown"`
	RunsStarted   int       `json:"runs_started"`
	StatusEvents  int       `json:"status_events"`
}

// Controller owns the reference to the (at most one) live engine.
type Controller struct {
	cfg      heartbeat.Config
	client   transport.Client
	broker   *heartbeat.Broker
	observer Observer // may be nil
	logger   *slog.Logger

	mu            sync.Mutex
	engine        *heartbeat.Engine
	identifier    string
	startedAt     time.Time
	lastStatus    string
	lastCountdown int
	runsStarted   int
	statusEvents  int
}

// New creates a controller. observer may be nil; broker must not be.
func New(cfg heartbeat.Config, client transport.Client, broker *heartbeat.Broker, observer Observer, logger *slog.Logger) *Controller {
	cfg = normalize(cfg)
	return &Controller{
		cfg:           cfg,
		client:        client,
		broker:        broker,
		observer:      observer,
		logger:        logger,
		lastCountdown: intervalTicks(cfg),
	}
}

// normalize fills config defaults once so snapshot math matches the engine.
func normalize(cfg heartbeat.Config) heartbeat.Config {
	def := heartbeat.DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	return cfg
}

// intervalTicks is the countdown value displayed when no run is active.
func intervalTicks(cfg heartbeat.Config) int {
	return int(cfg.Interval / cfg.Tick)
}

// Start launches a new engine for identifier. It returns
// heartbeat.ErrBlankIdentifier for a blank identifier and ErrAlreadyRunning
// while a run is active. Leading and trailing whitespace is stripped.
func (c *Controller) Start(identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return heartbeat.ErrBlankIdentifier
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != nil {
		return ErrAlreadyRunning
	}

	eng := heartbeat.New(c.cfg, c.client, c.logger)
	if err := eng.Start(identifier); err != nil {
		return err
	}

	c.engine = eng
	c.identifier = identifier
	c.startedAt = time.Now().UTC()
	c.lastStatus = ""
	c.runsStarted++

	c.logger.Info("run started", "run_id", eng.RunID(), "identifier", identifier)

	go c.forward(eng)
	return nil
}

// Stop requests cancellation of the live engine, if any. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	eng := c.engine
	c.mu.Unlock()

	if eng == nil {
		return
	}
	c.logger.Info("stop requested", "run_id", eng.RunID())
	eng.RequestStop()
}

// IsRunning reports whether an engine is live.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine != nil
}

// Wait blocks until the live engine goroutine terminates or timeout elapses.
// Returns true when no engine is live or it terminated in time. A false
// return is best-effort information, not a fatal condition.
func (c *Controller) Wait(timeout time.Duration) bool {
	c.mu.Lock()
	eng := c.engine
	c.mu.Unlock()

	if eng == nil {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-eng.Done():
		return true
	case <-timer.C:
		return false
	}
}

// Snapshot returns the current controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Running:       c.engine != nil,
		Identifier:    c.identifier,
		StartedAt:     c.startedAt,
		LastStatus:    c.lastStatus,
		LastCountdown: c.lastCountdown,
		RunsStarted:   c.runsStarted,
		StatusEvents:  c.statusEvents,
	}
	if c.engine != nil {
		s.RunID = c.engine.RunID()
	}
	return s
}

// forward drains eng's events until the stream closes, fanning each event
// out to the broker, the snapshot state, and the observer. On EventFinished
// the engine slot is released before the observer is notified, so the next
// Start succeeds from inside OnFinished.
func (c *Controller) forward(eng *heartbeat.Engine) {
	for ev := range eng.Events() {
		switch ev.Kind {
		case heartbeat.EventStatus:
			c.mu.Lock()
			c.lastStatus = ev.Text
			c.statusEvents++
			c.mu.Unlock()
			c.broker.Publish(ev)
			if c.observer != nil {
				c.observer.OnStatus(ev.Text)
			}

		case heartbeat.EventCountdown:
			c.mu.Lock()
			c.lastCountdown = ev.Remaining
			c.mu.Unlock()
			c.broker.Publish(ev)
			if c.observer != nil {
				c.observer.OnCountdown(ev.Remaining)
			}

		case heartbeat.EventFinished:
			c.release(eng)
			c.broker.Publish(ev)
			if c.observer != nil {
				c.observer.OnFinished()
			}
		}
	}
}

// release frees the engine slot and resets the displayed countdown to the
// full interval.
func (c *Controller) release(eng *heartbeat.Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != eng {
		return
	}
	c.logger.Info("run finished", "run_id", eng.RunID(), "identifier", c.identifier)
	c.engine = nil
	c.identifier = ""
	c.startedAt = time.Time{}
	c.lastCountdown = intervalTicks(c.cfg)
}
