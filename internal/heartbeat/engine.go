package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sainohq/beacon/internal/transport"
)

// errPreviewLimit bounds transport error text in status lines.
const errPreviewLimit = 200

// Engine owns the send/retry/countdown state machine for one run. Create one
// with New, start it with Start, and signal it with RequestStop. Events are
// delivered on the Events channel, which is closed after the final
// EventFinished.
type Engine struct {
	cfg        Config
	client     transport.Client
	logger     *slog.Logger
	runID      string
	identifier string

	events chan Event

	started  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// eventBufferSize is the engine's outbound event buffer. The consumer drains
// continuously; the buffer only absorbs short scheduling hiccups.
const eventBufferSize = 64

// New creates an engine. cfg zero fields fall back to defaults.
func New(cfg Config, client transport.Client, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg.withDefaults(),
		client: client,
		logger: logger,
		runID:  NewRunID(),
		events: make(chan Event, eventBufferSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// RunID returns the ULID naming this run.
func (e *Engine) RunID() string {
	return e.runID
}

// Events returns the engine's event stream. It is closed after EventFinished.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Done returns a channel closed when the engine goroutine has terminated.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Start begins the loop on a new goroutine. It returns ErrBlankIdentifier
// for an empty identifier and is a no-op error on a second call.
func (e *Engine) Start(identifier string) error {
	if identifier == "" {
		return ErrBlankIdentifier
	}
	if !e.started.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already started")
	}

	e.identifier = identifier
	go e.run()
	return nil
}

// RequestStop signals cancellation. Non-blocking, idempotent, safe from any
// goroutine. The engine exits at its next checkpoint, within one tick.
func (e *Engine) RequestStop() {
	e.stopOnce.Do(func() {
		e.stopped.Store(true)
		close(e.stopCh)
	})
}

// stopping reports whether a stop has been requested.
func (e *Engine) stopping() bool {
	return e.stopped.Load()
}

// run is the engine goroutine: repeat {deliver, countdown} until stopped,
// then emit EventFinished exactly once and close the event stream.
func (e *Engine) run() {
	defer close(e.done)

	e.logger.Info("worker started",
		"run_id", e.runID,
		"identifier", e.identifier,
	)

	for !e.stopping() {
		res := e.deliver()
		e.logger.Debug("delivery phase complete",
			"run_id", e.runID,
			"delivered", res.Delivered,
			"attempts", res.Attempts,
		)
		if e.stopping() {
			break
		}
		e.countdown()
	}

	e.logger.Info("worker stopping", "run_id", e.runID)
	e.emit(Event{Kind: EventFinished})
	close(e.events)
}

// deliver runs one delivery phase: up to MaxAttempts transport calls with
// exponential backoff between transport-level failures. A response from the
// remote, 2xx or not, ends the phase; only transport errors are retried.
func (e *Engine) deliver() CycleResult {
	bo := newBackoff(e.cfg.InitialBackoff, e.cfg.MaxBackoff)

	var last transport.Outcome
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if e.stopping() {
			return CycleResult{Attempts: attempt - 1, Last: last}
		}

		e.logger.Debug("sending heartbeat",
			"run_id", e.runID,
			"identifier", e.identifier,
			"attempt", attempt,
		)

		// The in-flight request is never cancelled; only the waits around it
		// observe a stop request. Timeout is enforced by the transport.
		start := time.Now()
		out := e.client.Attempt(context.Background(), e.identifier)
		attemptDuration.Observe(time.Since(start).Seconds())
		last = out

		switch out.Kind {
		case transport.KindSuccess:
			attemptsTotal.WithLabelValues(outcomeSuccess).Inc()
			cyclesTotal.WithLabelValues(resultDelivered).Inc()
			e.logger.Info("heartbeat delivered",
				"run_id", e.runID,
				"status", out.StatusCode,
				"attempt", attempt,
			)
			e.emit(Event{
				Kind: EventStatus,
				Text: fmt.Sprintf("send succeeded (%d): %s", out.StatusCode, out.BodyPreview),
			})
			return CycleResult{Delivered: true, Attempts: attempt, Last: out}

		case transport.KindRejected:
			attemptsTotal.WithLabelValues(outcomeRejected).Inc()
			cyclesTotal.WithLabelValues(resultDelivered).Inc()
			e.logger.Warn("heartbeat rejected",
				"run_id", e.runID,
				"status", out.StatusCode,
				"attempt", attempt,
			)
			e.emit(Event{
				Kind: EventStatus,
				Text: fmt.Sprintf("response %d: %s", out.StatusCode, out.BodyPreview),
			})
			return CycleResult{Delivered: true, Attempts: attempt, Last: out}

		case transport.KindError:
			attemptsTotal.WithLabelValues(outcomeError).Inc()
			e.logger.Error("heartbeat attempt failed",
				"run_id", e.runID,
				"attempt", attempt,
				"error", out.Message,
			)
			e.emit(Event{
				Kind: EventStatus,
				Text: fmt.Sprintf("send failed (attempt %d): %s", attempt, errPreview(out.Message)),
			})
			if e.stopping() {
				return CycleResult{Attempts: attempt, Last: out}
			}
			// Backoff follows every failed attempt, including the last, so
			// the total-failure report lands only after the full schedule.
			if !e.wait(bo.NextBackOff()) {
				return CycleResult{Attempts: attempt, Last: out}
			}
		}
	}

	cyclesTotal.WithLabelValues(resultFailed).Inc()
	e.logger.Warn("all retries failed",
		"run_id", e.runID,
		"identifier", e.identifier,
	)
	e.emit(Event{Kind: EventStatus, Text: "send failed after all retries"})
	return CycleResult{Delivered: false, Attempts: e.cfg.MaxAttempts, Last: last}
}

// countdown waits out the interval one tick at a time, emitting the number
// of ticks remaining before each wait. Returns early on stop.
func (e *Engine) countdown() {
	for remaining := int(e.cfg.Interval / e.cfg.Tick); remaining > 0; remaining-- {
		if e.stopping() {
			return
		}
		e.emit(Event{Kind: EventCountdown, Remaining: remaining})
		if !e.wait(e.cfg.Tick) {
			return
		}
	}
}

// wait blocks for d, waking at tick granularity so a stop request is
// observed within one tick. Returns false when stopped.
func (e *Engine) wait(d time.Duration) bool {
	for d > 0 {
		step := min(e.cfg.Tick, d)
		timer := time.NewTimer(step)
		select {
		case <-e.stopCh:
			timer.Stop()
			return false
		case <-timer.C:
		}
		d -= step
	}
	return !e.stopping()
}

// emit sends ev to the consumer.
func (e *Engine) emit(ev Event) {
	e.events <- ev
}

// errPreview truncates transport error text for status display.
func errPreview(s string) string {
	runes := []rune(s)
	if len(runes) <= errPreviewLimit {
		return s
	}
	return string(runes[:errPreviewLimit])
}
