// Package session implements C6: lifecycle of sessions and ownership of the
// per-session singletons (Worker, Recorder, Streamer, Progress Manager).
// Structurally grounded on internal/sessions.Manager's mutex-guarded map
// idiom, generalized from a conversation-history store to an automation
// session registry.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/marcelontime/browser-automation-sub001/internal/browserworker"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
	"github.com/marcelontime/browser-automation-sub001/internal/progress"
	"github.com/marcelontime/browser-automation-sub001/internal/recorder"
)

// Client is anything attached to a session that outbound events fan out to.
// Satisfied by the Client Gateway's connection wrapper (gateway.Client, C7).
// BufferDepth feeds the Screenshot Streamer's quality-adjustment rule
// (spec §4.9: "decreases by 10 when a client's outbound buffer exceeds 50%
// depth").
type Client interface {
	Send(eventType string, payload any)
	BufferDepth() float64
}

// FrameStreamer is the minimal contract a session needs of the Screenshot
// Streamer (C9): attach/detach viewers and control its run loop. Satisfied
// by internal/streamer.Stream.
type FrameStreamer interface {
	Run(ctx context.Context)
	Stop()
	Attach(c Client)
	Detach(c Client)
	NotifyAction()
}

// StreamerFactory builds a new FrameStreamer bound to one Worker.
type StreamerFactory func(worker *browserworker.Worker) FrameStreamer

// Session owns exactly one Worker, Recorder, Streamer, and map of active
// Executions (via its Progress Manager). Invariant: all Worker operations
// for a session are serialized by the Worker itself (spec §3).
type Session struct {
	ID         string
	Worker     *browserworker.Worker
	Recorder   *recorder.Recorder
	Progress   *progress.Manager
	Streamer   FrameStreamer
	CreatedAt  time.Time

	mu          sync.Mutex
	clients     map[Client]bool
	manualMode  bool
	lastDetach  time.Time
	hasDetached bool

	cancel context.CancelFunc
}

func (s *Session) attachClient(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = true
	s.hasDetached = false
	if s.Streamer != nil {
		s.Streamer.Attach(c)
	}
}

// detachClient removes c and reports whether the session now has zero
// clients (the caller uses this to start the idle-teardown timer).
func (s *Session) detachClient(c Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
	if s.Streamer != nil {
		s.Streamer.Detach(c)
	}
	if len(s.clients) == 0 {
		s.lastDetach = time.Now()
		s.hasDetached = true
		return true
	}
	return false
}

func (s *Session) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// broadcast fans an event out to every attached client (spec §4.7: "all
// outbound events are fan-out to every client attached to the originating
// session").
func (s *Session) broadcast(eventType string, payload any) {
	s.mu.Lock()
	targets := make([]Client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()
	for _, c := range targets {
		c.Send(eventType, payload)
	}
}

// SetManualMode toggles the session's manual/autonomous control flag
// (spec §4.7 routing rule: toggle_manual_mode → C6).
func (s *Session) SetManualMode(on bool) {
	s.mu.Lock()
	s.manualMode = on
	s.mu.Unlock()
}

// ManualMode reports the session's current manual-mode flag.
func (s *Session) ManualMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manualMode
}

// Sink adapts a Session into progress.Sink, broadcasting every progress
// event to every attached client. A completed step also opens the
// Streamer's burst window (spec §4.9: "bursts ... after any Worker action
// completes or navigation"), since execution_progress is emitted exactly
// once per successful step.
func (s *Session) Emit(executionID, eventType string, snapshot progress.Snapshot) {
	if eventType == "execution_progress" && s.Streamer != nil {
		s.Streamer.NotifyAction()
	}
	s.broadcast(eventType, snapshot)
}

var _ progress.Sink = (*Session)(nil)

func (m *Manager) newSession(id string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	driver := m.driverFactory()
	worker := browserworker.New(driver)
	worker.SetSessionID(id)

	s := &Session{
		ID:        id,
		Worker:    worker,
		Recorder:  recorder.New(),
		CreatedAt: time.Now(),
		clients:   make(map[Client]bool),
		cancel:    cancel,
	}
	s.Progress = progress.New(worker, m.resolve, s, m.maxConcurrent, m.historyCap)
	if m.streamerFactory != nil {
		s.Streamer = m.streamerFactory(worker)
		go s.Streamer.Run(ctx)
	}
	return s
}

// teardown closes the Worker, stops active Executions, and flushes history
// (spec §4.6).
func (s *Session) teardown() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.Streamer != nil {
		s.Streamer.Stop()
	}
	if s.Progress != nil {
		s.Progress.StopAll()
		s.Progress.FlushHistory()
	}
	if s.Worker != nil {
		_ = s.Worker.Close()
	}
}

// errSessionUnknown builds the typed error for references to a torn-down or
// never-created session (spec §8 property 9).
func errSessionUnknown(id string) error {
	return errkind.Newf(errkind.SessionUnknown, "unknown session %q", id)
}
