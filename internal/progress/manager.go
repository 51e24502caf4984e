package progress

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
	"github.com/marcelontime/browser-automation-sub001/internal/telemetry"
)

// Sink receives every progress event this Manager emits. Grounded on
// internal/tools/delegate_events.go's emitEvent→msgBus.Broadcast idiom,
// narrowed to this package's event vocabulary.
type Sink interface {
	Emit(executionID string, eventType string, snapshot Snapshot)
}

// VariableResolver substitutes an Execution's variable bindings into one
// Action before it reaches the Worker. Satisfied by resolver.Resolve.
type VariableResolver func(action automation.Action, values map[string]string) (automation.Action, error)

const defaultHistoryCapacity = 50

// Manager drives Executions for one session: at most maxConcurrent may be
// RUNNING at once; terminal Executions move into a bounded FIFO history.
type Manager struct {
	worker   stepper
	resolve  VariableResolver
	sink     Sink
	maxConcurrent int
	historyCap    int

	mu      sync.Mutex
	active  map[string]*Execution
	history []*Execution // FIFO, oldest first
}

// New builds a Manager. maxConcurrent <= 0 defaults to 5 (spec §4.5);
// historyCap <= 0 defaults to 50.
func New(worker stepper, resolve VariableResolver, sink Sink, maxConcurrent, historyCap int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	if historyCap <= 0 {
		historyCap = defaultHistoryCapacity
	}
	return &Manager{
		worker:        worker,
		resolve:       resolve,
		sink:          sink,
		maxConcurrent: maxConcurrent,
		historyCap:    historyCap,
		active:        make(map[string]*Execution),
	}
}

// Start begins driving script through the Worker with the given variable
// bindings and per-step deadline, returning the new Execution's id.
// Rejects with errkind.Busy when max_concurrent_executions would be
// exceeded, and with errkind.MissingVariable — before any step runs — when
// a step references a variable that's neither supplied nor defaulted by the
// schema (spec §7, §4.5 property 2).
func (m *Manager) Start(ctx context.Context, script *automation.Script, values map[string]string, stepDeadline time.Duration) (string, error) {
	merged := mergeDefaults(values, script.Schema)
	if err := m.preflight(script.Steps, merged); err != nil {
		return "", err
	}

	m.mu.Lock()
	if len(m.active) >= m.maxConcurrent {
		m.mu.Unlock()
		return "", errkind.Newf(errkind.Busy, "max_concurrent_executions (%d) reached", m.maxConcurrent)
	}
	execCtx, cancel := context.WithCancel(ctx)
	exec := newExecution(uuid.NewString(), script.ID, script.StepCount(), cancel)
	m.active[exec.ID] = exec
	m.mu.Unlock()

	m.emit(exec, "execution_started")
	go m.drive(execCtx, exec, script, merged, stepDeadline)
	return exec.ID, nil
}

// mergeDefaults fills any name absent from values with the schema's
// declared default, leaving caller-supplied values untouched.
func mergeDefaults(values map[string]string, schema automation.Schema) map[string]string {
	merged := make(map[string]string, len(values)+len(schema))
	for k, v := range values {
		merged[k] = v
	}
	for _, v := range schema {
		if _, ok := merged[v.Name]; !ok && v.Default != "" {
			merged[v.Name] = v.Default
		}
	}
	return merged
}

// preflight resolves every step against values up front, so a missing
// variable anywhere in the script is reported before any step runs rather
// than after steps 1..n-1 already executed. Returns a single
// MissingVariable error naming every unresolved variable across the whole
// script.
func (m *Manager) preflight(steps []automation.Action, values map[string]string) error {
	seen := make(map[string]bool)
	var missing []string
	for _, step := range steps {
		if _, err := m.resolve(step, values); err != nil {
			e, ok := errkind.As(err)
			if !ok || e.Kind != errkind.MissingVariable {
				return err
			}
			names, _ := e.Context["missing"].([]string)
			for _, n := range names {
				if !seen[n] {
					seen[n] = true
					missing = append(missing, n)
				}
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errkind.New(errkind.MissingVariable, "missing variables: "+strings.Join(missing, ", ")).
		WithContext("missing", missing)
}

// Pause/Resume/Stop return false if the Execution is unknown or not in a
// state the transition applies to (spec §4.5 transition table).
func (m *Manager) Pause(id string) bool  { return m.withExec(id, (*Execution).pause) }
func (m *Manager) Resume(id string) bool { return m.withExec(id, (*Execution).resume) }
func (m *Manager) Stop(id string) bool   { return m.withExec(id, (*Execution).stop) }

func (m *Manager) withExec(id string, f func(*Execution) bool) bool {
	m.mu.Lock()
	exec, ok := m.active[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return f(exec)
}

// StopAll stops every currently active Execution, used when a session is
// torn down (spec §4.6: "cancels any active Execution as STOPPED").
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Stop(id)
	}
}

// FlushHistory discards all retired Executions, used on session teardown
// (spec §4.6: "... and flushes history").
func (m *Manager) FlushHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

// Status returns a Snapshot of an active or historical Execution.
func (m *Manager) Status(id string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exec, ok := m.active[id]; ok {
		return exec.snapshot(), true
	}
	for _, exec := range m.history {
		if exec.ID == id {
			return exec.snapshot(), true
		}
	}
	return Snapshot{}, false
}

// drive runs one Execution to completion, honoring pause/resume/stop
// signals between steps and never mid-action.
func (m *Manager) drive(ctx context.Context, exec *Execution, script *automation.Script, values map[string]string, stepDeadline time.Duration) {
	defer m.retire(exec)

	ctx, span := telemetry.StartExecution(ctx, exec.ID, script.ID)
	var runErr error
	defer func() {
		telemetry.End(span, runErr, exec.getStatus() == StatusStopped)
	}()

	for i, step := range script.Steps {
		select {
		case <-exec.pauseCh:
			exec.mu.Lock()
			if exec.status != StatusRunning {
				// stop() ran after this pause was requested; status is already
				// STOPPED, so this is the Execution's terminal event.
				exec.mu.Unlock()
				m.emit(exec, "execution_stopped")
				return
			}
			exec.status = StatusPaused
			exec.mu.Unlock()
			m.emit(exec, "execution_paused")
			select {
			case <-exec.resumeCh:
				exec.setStatus(StatusRunning)
				m.emit(exec, "execution_resumed")
			case <-exec.stopCh:
				m.emit(exec, "execution_stopped")
				return
			case <-ctx.Done():
				// stop() cancels ctx and closes stopCh together, so both cases
				// above can be ready at once; whichever the select picks, status
				// is already STOPPED by then, so emit the terminal event here
				// too instead of relying on the stopCh branch to win the race.
				if exec.getStatus() == StatusStopped {
					m.emit(exec, "execution_stopped")
				}
				return
			}
		case <-exec.stopCh:
			m.emit(exec, "execution_stopped")
			return
		default:
		}

		resolved, err := m.resolve(step, values)
		if err != nil {
			runErr = err
			m.fail(exec, err)
			return
		}

		result, err := m.worker.Execute(ctx, resolved, stepDeadline)
		if err != nil || !result.Success {
			if exec.getStatus() == StatusStopped {
				// stop() interrupted this action's deadline; that's a deliberate
				// STOPPED transition, not a FAILED one (spec §4.5, S3).
				runErr = err
				m.emit(exec, "execution_stopped")
				return
			}
			if err == nil {
				err = fmt.Errorf("step %d: action did not succeed", i+1)
			}
			runErr = err
			m.fail(exec, err)
			return
		}

		exec.bumpStep(i + 1)
		m.emit(exec, "execution_progress")
	}

	if exec.getStatus() == StatusRunning {
		exec.setStatus(StatusCompleted)
		m.emit(exec, "execution_completed")
	}
}

func (m *Manager) fail(exec *Execution, err error) {
	kind, ok := errkind.As(err)
	if !ok {
		kind = errkind.Newf(errkind.Driver, "%v", err)
	}
	exec.setError(kind)
	exec.setStatus(StatusFailed)
	m.emit(exec, "execution_failed")
}

func (m *Manager) emit(exec *Execution, eventType string) {
	if m.sink != nil {
		m.sink.Emit(exec.ID, eventType, exec.snapshot())
	}
}

// retire moves a terminal Execution from active into the bounded FIFO
// history, evicting the oldest entry once historyCap is exceeded.
func (m *Manager) retire(exec *Execution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, exec.ID)
	m.history = append(m.history, exec)
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
}
