package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcelontime/browser-automation-sub001/internal/browserworker"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
	"github.com/marcelontime/browser-automation-sub001/internal/progress"
)

const (
	defaultIdleTimeout    = 5 * time.Minute
	defaultMaxConcurrent  = 5
	defaultHistoryCap     = 50
)

// DriverFactory builds a fresh, unopened browserworker.Driver for a new
// session's Worker.
type DriverFactory func() browserworker.Driver

// Manager is the session registry: lifecycle of sessions and ownership of
// their per-session singletons (spec §4.6).
type Manager struct {
	driverFactory   DriverFactory
	streamerFactory StreamerFactory
	resolve         progress.VariableResolver
	idleTimeout     time.Duration
	maxConcurrent   int
	historyCap      int

	mu       sync.Mutex
	sessions map[string]*Session
	timers   map[string]*time.Timer
}

// Option configures a Manager at construction time.
type Option func(*Manager)

func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

func WithMaxConcurrentExecutions(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxConcurrent = n
		}
	}
}

func WithHistoryCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.historyCap = n
		}
	}
}

func WithStreamerFactory(f StreamerFactory) Option {
	return func(m *Manager) { m.streamerFactory = f }
}

// New builds a Manager. resolve is the C8 variable substitution function
// wired into every session's Progress Manager; driverFactory builds a fresh
// browser driver per session.
func New(driverFactory DriverFactory, resolve progress.VariableResolver, opts ...Option) *Manager {
	m := &Manager{
		driverFactory: driverFactory,
		resolve:       resolve,
		idleTimeout:   defaultIdleTimeout,
		maxConcurrent: defaultMaxConcurrent,
		historyCap:    defaultHistoryCap,
		sessions:      make(map[string]*Session),
		timers:        make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach binds client to the session named id, creating it if it does not
// exist yet (spec §4.6: "created on first authenticated client attach"). An
// empty id mints a new opaque session id. Re-attaching to a session with a
// pending idle-teardown timer cancels that timer.
func (m *Manager) Attach(id string, client Client) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	s, ok := m.sessions[id]
	if !ok {
		s = m.newSession(id)
		m.sessions[id] = s
	}
	if t, pending := m.timers[id]; pending {
		t.Stop()
		delete(m.timers, id)
	}
	// attachClient only takes s.mu (never calls back into the Manager), so
	// it's safe to run while holding m.mu. Doing so here, rather than after
	// releasing the lock, is what closes the race against a concurrent
	// reap(id): reap's "zero clients" check and this attach can no longer
	// interleave, so a session being re-attached can never be torn down out
	// from under the client that just attached to it.
	s.attachClient(client)
	return s
}

// Detach removes client from its session. If the session now has zero
// attached clients, an idle-teardown timer is armed for idleTimeout.
func (m *Manager) Detach(id string, client Client) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	if s.detachClient(client) {
		m.armTeardown(id)
	}
}

func (m *Manager) armTeardown(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, pending := m.timers[id]; pending {
		return
	}
	m.timers[id] = time.AfterFunc(m.idleTimeout, func() { m.reap(id) })
}

// reap tears down a session once idleTimeout has elapsed with zero clients.
// The client-count check and the map deletion happen under a single m.mu
// critical section (matching Attach, which holds m.mu across its own
// attachClient call) so a concurrent re-attach can't land between "we saw
// zero clients" and "we deleted the session."
func (m *Manager) reap(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.timers, id)
	if s.clientCount() > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.teardown()
}

// Lookup returns the session by id, or SessionUnknown if it has been torn
// down or never existed (spec §8 property 9).
func (m *Manager) Lookup(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errSessionUnknown(id)
	}
	return s, nil
}

// Dispatch routes a message assigned to C6 by the Client Gateway's routing
// table (spec §4.7: "toggle_manual_mode → C6"). Any other message type is
// UnknownMessage — the Gateway is expected to have routed it elsewhere.
func (m *Manager) Dispatch(ctx context.Context, id string, msgType string, payload any) error {
	s, err := m.Lookup(id)
	if err != nil {
		return err
	}
	switch msgType {
	case "toggle_manual_mode":
		on, _ := payload.(bool)
		s.SetManualMode(on)
		return nil
	default:
		return errkind.Newf(errkind.UnknownMessage, "session manager does not handle message type %q", msgType)
	}
}

// Shutdown tears down every active session, used on process shutdown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = make(map[string]*time.Timer)
	m.mu.Unlock()

	for _, id := range ids {
		m.mu.Lock()
		s, ok := m.sessions[id]
		delete(m.sessions, id)
		m.mu.Unlock()
		if ok {
			s.teardown()
		}
	}
}
