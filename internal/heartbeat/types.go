package heartbeat

import (
	"errors"
	"time"

	"github.com/sainohq/beacon/internal/transport"
)

// ErrBlankIdentifier is returned by Start when the identifier is empty.
var ErrBlankIdentifier = errors.New("identifier is blank")

// EventKind discriminates the events an engine emits.
type EventKind int

const (
	// EventStatus carries a human-readable delivery status line.
	EventStatus EventKind = iota
	// EventCountdown carries the number of ticks remaining until the next
	// delivery phase.
	EventCountdown
	// EventFinished is emitted exactly once, after the engine has observed a
	// stop request and is about to terminate.
	EventFinished
)

// Event is one message from the engine to its consumer. Events are emitted in
// order on a single channel; consumers must drain promptly.
type Event struct {
	Kind      EventKind
	Text      string // EventStatus
	Remaining int    // EventCountdown
}

// Config is the immutable timing configuration for one engine. Durations
// shrink in tests; the zero value of any field falls back to the default.
type Config struct {
	// Interval is the wait between delivery phases.
	Interval time.Duration
	// MaxAttempts bounds delivery attempts per cycle.
	MaxAttempts int
	// InitialBackoff is the delay after the first failed attempt; it doubles
	// per failure up to MaxBackoff.
	InitialBackoff time.Duration
	// MaxBackoff caps the backoff delay.
	MaxBackoff time.Duration
	// Tick is the wait granularity. Stop requests are honored within one
	// tick, and one countdown event is emitted per tick of interval.
	Tick time.Duration
}

// DefaultConfig returns the production timing configuration.
func DefaultConfig() Config {
	return Config{
		Interval:       300 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Tick:           time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.Tick <= 0 {
		c.Tick = def.Tick
	}
	return c
}

// CycleResult summarizes the delivery phase of one cycle.
type CycleResult struct {
	// Delivered is true when the remote answered, 2xx or not. Only
	// transport-level failures on every attempt leave it false.
	Delivered bool
	// Attempts is how many attempts were made.
	Attempts int
	// Last is the outcome of the final attempt.
	Last transport.Outcome
}
