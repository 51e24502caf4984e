// Package progress implements C5: the Execution Progress Manager. It drives
// a Script's steps through a Worker, emits progress events, and honors
// pause/resume/stop control signals.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

// Status is one of the Execution state machine's states (spec §4.5).
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusStopped   Status = "STOPPED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

func (s Status) terminal() bool {
	return s == StatusStopped || s == StatusCompleted || s == StatusFailed
}

// Execution is one run of a Script.
type Execution struct {
	ID          string
	ScriptID    string
	TotalSteps  int
	StartedAt   time.Time
	FinishedAt  time.Time

	mu          sync.Mutex
	status      Status
	currentStep int
	lastErr     *errkind.Error

	pauseCh  chan struct{}
	resumeCh chan struct{}
	stopCh   chan struct{}
	cancel   context.CancelFunc
}

func newExecution(id, scriptID string, totalSteps int, cancel context.CancelFunc) *Execution {
	return &Execution{
		ID:         id,
		ScriptID:   scriptID,
		TotalSteps: totalSteps,
		StartedAt:  time.Now(),
		status:     StatusRunning,
		pauseCh:    make(chan struct{}, 1),
		resumeCh:   make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		cancel:     cancel,
	}
}

// Snapshot is an immutable point-in-time view of an Execution, safe to hand
// to callers without exposing internal synchronization.
type Snapshot struct {
	ID          string        `json:"id"`
	ScriptID    string        `json:"script_id"`
	Status      Status        `json:"status"`
	CurrentStep int           `json:"current_step"`
	TotalSteps  int           `json:"total_steps"`
	Progress    int           `json:"progress"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at,omitempty"`
	Error       *errkind.Error `json:"error,omitempty"`
}

func (e *Execution) snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		ID:          e.ID,
		ScriptID:    e.ScriptID,
		Status:      e.status,
		CurrentStep: e.currentStep,
		TotalSteps:  e.TotalSteps,
		Progress:    progressPercent(e.currentStep, e.TotalSteps),
		StartedAt:   e.StartedAt,
		FinishedAt:  e.FinishedAt,
		Error:       e.lastErr,
	}
}

func progressPercent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return (current*100 + total/2) / total // round-to-nearest, per spec's round(current/total*100)
}

// pause requests a pause; only effective when running. The driver loop
// observes this between steps, never mid-action (spec §4.5).
func (e *Execution) pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusRunning {
		return false
	}
	select {
	case e.pauseCh <- struct{}{}:
	default:
	}
	return true
}

func (e *Execution) resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusPaused {
		return false
	}
	select {
	case e.resumeCh <- struct{}{}:
	default:
	}
	return true
}

// stop transitions to STOPPED from RUNNING or PAUSED and cancels the
// in-flight action's deadline.
func (e *Execution) stop() bool {
	e.mu.Lock()
	if e.status != StatusRunning && e.status != StatusPaused {
		e.mu.Unlock()
		return false
	}
	e.status = StatusStopped
	e.FinishedAt = time.Now()
	e.mu.Unlock()

	close(e.stopCh)
	if e.cancel != nil {
		e.cancel()
	}
	return true
}

func (e *Execution) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	if s.terminal() {
		e.FinishedAt = time.Now()
	}
	e.mu.Unlock()
}

func (e *Execution) getStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Execution) bumpStep(n int) {
	e.mu.Lock()
	e.currentStep = n
	e.mu.Unlock()
}

func (e *Execution) setError(err *errkind.Error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

// stepper is the minimal contract the Progress Manager needs of a Worker:
// execute one resolved Action against the live page.
type stepper interface {
	Execute(ctx context.Context, action automation.Action, deadline time.Duration) (automation.Result, error)
}
