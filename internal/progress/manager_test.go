package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
	"github.com/marcelontime/browser-automation-sub001/internal/resolver"
)

type fakeWorker struct {
	mu      sync.Mutex
	calls   int
	fail    bool
	failKind errkind.Kind
	delay   time.Duration
}

func (w *fakeWorker) Execute(ctx context.Context, action automation.Action, deadline time.Duration) (automation.Result, error) {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return automation.Result{}, errkind.New(errkind.Cancelled, "cancelled")
		}
	}
	if w.fail {
		return automation.Result{}, errkind.New(w.failKind, "forced failure")
	}
	return automation.Result{Success: true}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Emit(executionID, eventType string, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, eventType)
}

func (s *recordingSink) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

func passthroughResolve(a automation.Action, values map[string]string) (automation.Action, error) {
	return a, nil
}

func waitForEvent(t *testing.T, sink *recordingSink, eventType string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, e := range sink.list() {
			if e == eventType {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for event %q, got %v", eventType, sink.list())
}

func twoStepScript() *automation.Script {
	return &automation.Script{
		ID: "s1",
		Steps: []automation.Action{
			{Kind: automation.ActionNavigate, URL: "https://example.com"},
			{Kind: automation.ActionClick},
		},
	}
}

func TestManager_CompletesAllSteps(t *testing.T) {
	worker := &fakeWorker{}
	sink := &recordingSink{}
	mgr := New(worker, passthroughResolve, sink, 5, 10)

	id, err := mgr.Start(context.Background(), twoStepScript(), nil, time.Second)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForEvent(t, sink, "execution_completed", time.Second)

	snap, ok := mgr.Status(id)
	if !ok {
		t.Fatalf("expected execution to be retrievable after completion")
	}
	if snap.Status != StatusCompleted || snap.Progress != 100 {
		t.Errorf("unexpected final snapshot: %+v", snap)
	}
}

func TestManager_MaxConcurrentEnforced(t *testing.T) {
	worker := &fakeWorker{delay: 200 * time.Millisecond}
	sink := &recordingSink{}
	mgr := New(worker, passthroughResolve, sink, 1, 10)

	_, err := mgr.Start(context.Background(), twoStepScript(), nil, time.Second)
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	_, err = mgr.Start(context.Background(), twoStepScript(), nil, time.Second)
	if errkind.KindOf(err) != errkind.Busy {
		t.Fatalf("expected Busy on second concurrent start, got %v", err)
	}
}

func TestManager_FailurePropagates(t *testing.T) {
	worker := &fakeWorker{fail: true, failKind: errkind.TargetNotFound}
	sink := &recordingSink{}
	mgr := New(worker, passthroughResolve, sink, 5, 10)

	id, _ := mgr.Start(context.Background(), twoStepScript(), nil, time.Second)
	waitForEvent(t, sink, "execution_failed", time.Second)

	snap, _ := mgr.Status(id)
	if snap.Status != StatusFailed {
		t.Errorf("expected FAILED, got %v", snap.Status)
	}
	if snap.Error == nil || snap.Error.Kind != errkind.TargetNotFound {
		t.Errorf("expected TargetNotFound error recorded, got %+v", snap.Error)
	}
}

func TestManager_StopTransitionsAndCancels(t *testing.T) {
	worker := &fakeWorker{delay: 500 * time.Millisecond}
	sink := &recordingSink{}
	mgr := New(worker, passthroughResolve, sink, 5, 10)

	id, _ := mgr.Start(context.Background(), twoStepScript(), nil, 5*time.Second)
	time.Sleep(20 * time.Millisecond)
	if !mgr.Stop(id) {
		t.Fatalf("expected Stop to succeed while running")
	}
	waitForEvent(t, sink, "execution_stopped", time.Second)

	snap, _ := mgr.Status(id)
	if snap.Status != StatusStopped {
		t.Errorf("expected STOPPED, got %v", snap.Status)
	}
}

func TestManager_PauseResume(t *testing.T) {
	worker := &fakeWorker{delay: 50 * time.Millisecond}
	sink := &recordingSink{}
	mgr := New(worker, passthroughResolve, sink, 5, 10)

	id, _ := mgr.Start(context.Background(), twoStepScript(), nil, time.Second)
	if !mgr.Pause(id) {
		t.Fatalf("expected Pause to succeed while running")
	}
	waitForEvent(t, sink, "execution_paused", time.Second)
	if !mgr.Resume(id) {
		t.Fatalf("expected Resume to succeed while paused")
	}
	waitForEvent(t, sink, "execution_completed", time.Second)

	events := sink.list()
	sawPause, sawResume := false, false
	for _, e := range events {
		if e == "execution_paused" {
			sawPause = true
		}
		if e == "execution_resumed" {
			sawResume = true
		}
	}
	if !sawPause || !sawResume {
		t.Fatalf("expected execution_paused and execution_resumed events, got %v", events)
	}
}

func scriptWithVariable() *automation.Script {
	return &automation.Script{
		ID: "s-var",
		Steps: []automation.Action{
			{Kind: automation.ActionNavigate, URL: "https://example.com"},
			{Kind: automation.ActionFill, Value: "${username}", BoundVariable: "username"},
		},
		Schema: automation.Schema{{Name: "username", Kind: automation.VarText}},
	}
}

func TestManager_StartFailsBeforeAnyStepOnMissingVariable(t *testing.T) {
	worker := &fakeWorker{}
	sink := &recordingSink{}
	mgr := New(worker, resolver.Resolve, sink, 5, 10)

	_, err := mgr.Start(context.Background(), scriptWithVariable(), nil, time.Second)
	if errkind.KindOf(err) != errkind.MissingVariable {
		t.Fatalf("expected MissingVariable, got %v", err)
	}
	if worker.calls != 0 {
		t.Fatalf("expected zero steps to run, worker.calls = %d", worker.calls)
	}
}

func TestManager_StartUsesSchemaDefaultWhenValueOmitted(t *testing.T) {
	script := scriptWithVariable()
	script.Schema[0].Default = "jane"
	worker := &fakeWorker{}
	sink := &recordingSink{}
	mgr := New(worker, resolver.Resolve, sink, 5, 10)

	id, err := mgr.Start(context.Background(), script, nil, time.Second)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForEvent(t, sink, "execution_completed", time.Second)
	snap, _ := mgr.Status(id)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %v", snap.Status)
	}
}

func TestManager_StopMidActionEmitsStoppedNotFailed(t *testing.T) {
	worker := &fakeWorker{delay: 500 * time.Millisecond}
	sink := &recordingSink{}
	mgr := New(worker, passthroughResolve, sink, 5, 10)

	id, _ := mgr.Start(context.Background(), twoStepScript(), nil, 5*time.Second)
	time.Sleep(20 * time.Millisecond)
	mgr.Stop(id)
	waitForEvent(t, sink, "execution_stopped", time.Second)

	for _, e := range sink.list() {
		if e == "execution_failed" {
			t.Fatalf("expected no execution_failed event after a deliberate stop, got %v", sink.list())
		}
	}
	snap, _ := mgr.Status(id)
	if snap.Status != StatusStopped {
		t.Errorf("expected STOPPED, got %v", snap.Status)
	}
}

func TestManager_StopWhilePausedAlwaysEmitsOneTerminalEvent(t *testing.T) {
	for i := 0; i < 20; i++ {
		worker := &fakeWorker{}
		sink := &recordingSink{}
		mgr := New(worker, passthroughResolve, sink, 5, 10)

		id, _ := mgr.Start(context.Background(), twoStepScript(), nil, time.Second)
		mgr.Pause(id)
		time.Sleep(5 * time.Millisecond)
		mgr.Stop(id)
		waitForEvent(t, sink, "execution_stopped", time.Second)

		terminal := 0
		for _, e := range sink.list() {
			switch e {
			case "execution_stopped", "execution_completed", "execution_failed":
				terminal++
			}
		}
		if terminal != 1 {
			t.Fatalf("run %d: expected exactly 1 terminal event, got %d (%v)", i, terminal, sink.list())
		}
	}
}

func TestManager_HistoryEvictionBoundedFIFO(t *testing.T) {
	worker := &fakeWorker{}
	sink := &recordingSink{}
	mgr := New(worker, passthroughResolve, sink, 5, 2)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := mgr.Start(context.Background(), twoStepScript(), nil, time.Second)
		if err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		ids = append(ids, id)
		waitForEvent(t, sink, "execution_completed", time.Second)
		sink.events = nil
	}

	if _, ok := mgr.Status(ids[0]); ok {
		t.Errorf("expected oldest execution evicted from bounded history")
	}
	if _, ok := mgr.Status(ids[2]); !ok {
		t.Errorf("expected most recent execution retained in history")
	}
}
