package controller_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sainohq/beacon/internal/controller"
	"github.com/sainohq/beacon/internal/heartbeat"
	"github.com/sainohq/beacon/internal/transport"
)

// okClient always reports a 200.
type okClient struct{}

func (okClient) Attempt(_ context.Context, _ string) transport.Outcome {
	return transport.Outcome{Kind: transport.KindSuccess, StatusCode: 200, BodyPreview: `{"ok":true}`}
}

// recordingObserver captures forwarded events and signals OnFinished.
type recordingObserver struct {
	mu         sync.Mutex
	statuses   []string
	countdowns []int
	finished   chan struct{}
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{finished: make(chan struct{}, 1)}
}

func (o *recordingObserver) OnStatus(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, text)
}

func (o *recordingObserver) OnCountdown(remaining int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.countdowns = append(o.countdowns, remaining)
}

func (o *recordingObserver) OnFinished() {
	select {
	case o.finished <- struct{}{}:
	default:
	}
}

func (o *recordingObserver) statusCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.statuses)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func fastConfig() heartbeat.Config {
	return heartbeat.Config{
		Interval:       5 * time.Millisecond,
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Millisecond,
		MaxBackoff:     8 * time.Millisecond,
		Tick:           time.Millisecond,
	}
}

func newTestController(t *testing.T, obs controller.Observer) *controller.Controller {
	t.Helper()
	ctrl := controller.New(fastConfig(), okClient{}, heartbeat.NewBroker(), obs, testLogger())
	t.Cleanup(func() {
		ctrl.Stop()
		ctrl.Wait(time.Second)
	})
	return ctrl
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStartBlankIdentifier(t *testing.T) {
	ctrl := newTestController(t, nil)

	for _, id := range []string{"", "   ", "\t\n"} {
		if err := ctrl.Start(id); !errors.Is(err, heartbeat.ErrBlankIdentifier) {
			t.Errorf("Start(%q) = %v, want ErrBlankIdentifier", id, err)
		}
	}
	if ctrl.IsRunning() {
		t.Error("IsRunning() = true after rejected starts")
	}
}

func TestSingleInstance(t *testing.T) {
	ctrl := newTestController(t, nil)

	if err := ctrl.Start("worker-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !ctrl.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	if err := ctrl.Start("worker-2"); !errors.Is(err, controller.ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}

	snap := ctrl.Snapshot()
	if snap.Identifier != "worker-1" {
		t.Errorf("Identifier = %q, want worker-1 (second start must not replace the run)", snap.Identifier)
	}
	if snap.RunsStarted != 1 {
		t.Errorf("RunsStarted = %d, want 1", snap.RunsStarted)
	}
}

func TestStopReleasesSlot(t *testing.T) {
	obs := newRecordingObserver()
	ctrl := newTestController(t, obs)

	if err := ctrl.Start("worker-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctrl.Stop()

	select {
	case <-obs.finished:
	case <-time.After(time.Second):
		t.Fatal("OnFinished not called after Stop")
	}

	waitFor(t, time.Second, func() bool { return !ctrl.IsRunning() }, "still running after finish")

	// The slot is free again.
	if err := ctrl.Start("worker-1"); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.RunsStarted != 2 {
		t.Errorf("RunsStarted = %d, want 2", snap.RunsStarted)
	}
}

func TestStopIdleIsNoOp(t *testing.T) {
	ctrl := newTestController(t, nil)
	ctrl.Stop() // must not panic
	if !ctrl.Wait(10 * time.Millisecond) {
		t.Error("Wait on idle controller = false, want true")
	}
}

func TestObserverReceivesEvents(t *testing.T) {
	obs := newRecordingObserver()
	ctrl := newTestController(t, obs)

	if err := ctrl.Start("worker-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, time.Second, func() bool { return obs.statusCount() >= 1 }, "no status forwarded")

	obs.mu.Lock()
	first := obs.statuses[0]
	obs.mu.Unlock()
	if first == "" {
		t.Error("forwarded status is empty")
	}

	waitFor(t, time.Second, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return len(obs.countdowns) >= 2
	}, "no countdown forwarded")

	obs.mu.Lock()
	a, b := obs.countdowns[0], obs.countdowns[1]
	obs.mu.Unlock()
	if b != a-1 {
		t.Errorf("countdowns %d, %d are not consecutive", a, b)
	}
}

func TestSnapshotTracksRun(t *testing.T) {
	ctrl := newTestController(t, nil)

	snap := ctrl.Snapshot()
	if snap.Running {
		t.Error("Running = true before Start")
	}
	if snap.LastCountdown != 5 {
		t.Errorf("idle LastCountdown = %d, want full interval in ticks (5)", snap.LastCountdown)
	}

	if err := ctrl.Start("worker-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap = ctrl.Snapshot()
	if !snap.Running || snap.Identifier != "worker-1" || snap.RunID == "" {
		t.Errorf("running snapshot = %+v, want running with identifier and run id", snap)
	}

	waitFor(t, time.Second, func() bool { return ctrl.Snapshot().StatusEvents >= 1 }, "no status counted")

	ctrl.Stop()
	waitFor(t, time.Second, func() bool { return !ctrl.IsRunning() }, "still running after stop")

	snap = ctrl.Snapshot()
	if snap.Identifier != "" || snap.RunID != "" {
		t.Errorf("idle snapshot = %+v, want cleared identifier and run id", snap)
	}
	if snap.LastCountdown != 5 {
		t.Errorf("post-run LastCountdown = %d, want reset to 5", snap.LastCountdown)
	}
}

func TestWaitBoundedJoin(t *testing.T) {
	ctrl := newTestController(t, nil)

	if err := ctrl.Start("worker-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Without a stop request the engine keeps running past the timeout.
	if ctrl.Wait(20 * time.Millisecond) {
		t.Error("Wait = true while engine still running")
	}

	ctrl.Stop()
	if !ctrl.Wait(time.Second) {
		t.Error("Wait = false after stop, want engine to finish in time")
	}
}
