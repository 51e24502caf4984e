// Package browserworker implements C1: a strictly serial, single-page
// browser driver. Structurally grounded on anxuanzi-bua-go's Browser (one
// page per owner, mutex-guarded) and internal/agent.Loop's per-key
// serialization idiom (here generalized from "one mutex per key" to "one
// mailbox, no re-entrancy, at most one in-flight action").
package browserworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
	"github.com/marcelontime/browser-automation-sub001/internal/telemetry"
)

const (
	defaultDeadline = 30 * time.Second
	retryBase       = 250 * time.Millisecond
	retryFactor     = 2
	maxRetries      = 2 // up to 2 *additional* attempts, per spec §4.1
)

// Worker owns one browser page and serializes every action against it.
type Worker struct {
	driver    Driver
	sessionID string

	mu      sync.Mutex
	busy    bool
	opened  bool
	closed  bool
	current context.CancelFunc // cancels the in-flight action's deadline, for stop/cancel
}

// New wraps a Driver (normally a *RodDriver) in a Worker.
func New(driver Driver) *Worker {
	return &Worker{driver: driver}
}

// SetSessionID tags the Worker with its owning session id, carried as a span
// attribute on every Execute call (spec §4.12). Set once, right after
// construction, by the session Manager.
func (w *Worker) SetSessionID(id string) { w.sessionID = id }

// Open acquires the browser/page. Idempotent.
func (w *Worker) Open(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.opened {
		return nil
	}
	if err := w.driver.Open(ctx); err != nil {
		return errkind.Newf(errkind.ResourceInit, "open browser: %v", err)
	}
	w.opened = true
	return nil
}

// Close is idempotent teardown guaranteeing driver release on every path.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.driver.Close()
}

// Busy reports whether an action is currently in flight.
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Execute performs exactly one Action with a per-action deadline. No
// re-entrancy: a concurrent Execute call while one is in flight is rejected
// with Busy — this is what makes the Worker a serialization boundary (spec
// §4.1, property 1).
func (w *Worker) Execute(ctx context.Context, action automation.Action, deadline time.Duration) (automation.Result, error) {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return automation.Result{}, errkind.New(errkind.Busy, "worker has an action in flight")
	}
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	actionCtx, cancel := context.WithTimeout(ctx, deadline)
	w.busy = true
	w.current = cancel
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.busy = false
		w.current = nil
		w.mu.Unlock()
		cancel()
	}()

	spanCtx, span := telemetry.StartAction(actionCtx, w.sessionID, string(action.Kind))
	result, err := w.executeWithRetry(spanCtx, action)
	telemetry.End(span, err, errkind.KindOf(err) == errkind.Cancelled)
	return result, err
}

// Cancel aborts the in-flight action's deadline immediately, used by
// stop_execution (spec §5: "stop ... cancels the current action's
// deadline").
func (w *Worker) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		w.current()
	}
}

func (w *Worker) executeWithRetry(ctx context.Context, action automation.Action) (automation.Result, error) {
	start := time.Now()
	var lastErr error
	var attemptLog []string

	attempts := 1 + maxRetries
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := retryBase * time.Duration(pow(retryFactor, attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return failResult(start, automation.FailureKind(errkind.Cancelled), attemptLog), errkind.New(errkind.Cancelled, "deadline or stop during backoff")
			}
		}

		res, err := w.dispatch(ctx, action)
		if err == nil {
			res.Duration = time.Since(start)
			res.AttemptLog = attemptLog
			return res, nil
		}
		lastErr = err
		kind := errkind.KindOf(err)
		attemptLog = append(attemptLog, fmt.Sprintf("attempt %d: %v", attempt+1, err))
		if !errkind.Retryable(kind) {
			break
		}
		if kind == errkind.TargetNotFound && attempt == attempts-1 {
			// Exhausted retries; try any remaining fallback targets once each
			// before giving up, per spec §4.5.
			if res, ok := w.tryFallbacks(ctx, action, attemptLog); ok {
				res.Duration = time.Since(start)
				return res, nil
			}
		}
	}

	kind := errkind.KindOf(lastErr)
	if kind == "" {
		kind = errkind.Driver
	}
	return failResult(start, automation.FailureKind(kind), attemptLog), lastErr
}

// tryFallbacks attempts each remaining fallback target once, used when the
// primary resolution path exhausts its retries with a retryable kind (spec
// §4.5: "tries each fallback once before failing the step").
func (w *Worker) tryFallbacks(ctx context.Context, action automation.Action, log []string) (automation.Result, bool) {
	if len(action.Targets) == 0 {
		return automation.Result{}, false
	}
	for _, t := range action.Targets {
		for _, c := range t.Fallbacks {
			single := automation.Target{Primary: c}
			alt := action
			alt.Targets = []automation.Target{single}
			res, err := w.dispatch(ctx, alt)
			if err == nil {
				res.AttemptLog = append(log, "fallback "+string(c.Kind)+": matched")
				return res, true
			}
		}
	}
	return automation.Result{}, false
}

func failResult(start time.Time, kind automation.FailureKind, log []string) automation.Result {
	return automation.Result{
		Success:     false,
		Duration:    time.Since(start),
		FailureKind: kind,
		AttemptLog:  log,
	}
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

// Snapshot produces the current visual frame plus URL and title.
func (w *Worker) Snapshot(ctx context.Context) ([]byte, string, string, error) {
	data, err := w.driver.Screenshot(ctx)
	if err != nil {
		return nil, "", "", errkind.Newf(errkind.Driver, "screenshot: %v", err)
	}
	return data, w.driver.CurrentURL(), w.driver.Title(), nil
}

// Elements exposes the current interactive-element snapshot for the
// Interpreter's tier-2 page-grounded heuristic.
func (w *Worker) Elements(ctx context.Context) ([]Element, error) {
	return w.driver.Snapshot(ctx)
}
