// Package gateway implements C7: the Client Gateway. It accepts
// bidirectional WebSocket connections, authenticates them with a bearer
// token, binds each to a session, and routes inbound messages to the
// component the spec's routing table assigns them to (spec §4.7).
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marcelontime/browser-automation-sub001/internal/config"
	"github.com/marcelontime/browser-automation-sub001/internal/interpreter"
	"github.com/marcelontime/browser-automation-sub001/internal/scriptstore"
	"github.com/marcelontime/browser-automation-sub001/internal/session"
	"github.com/marcelontime/browser-automation-sub001/pkg/protocol"
)

// Server wires the Client Gateway's transport (WebSocket upgrade, origin
// check, rate limiting, method routing) to the orchestrator's components.
// Structurally grounded on the teacher's internal/gateway.Server (upgrader +
// rateLimiter + router + mu-guarded clients map), narrowed from its
// agents/channels/managed-mode surface to this spec's C1-C9 wiring.
type Server struct {
	cfg         *config.Config
	sessions    *session.Manager
	interpreter *interpreter.Interpreter
	scripts     scriptstore.Store

	upgrader    websocket.Upgrader
	rateLimiter *RateLimiter
	router      *MethodRouter

	httpServer *http.Server
	mux        *http.ServeMux
}

// Deps bundles the already-constructed component instances a Server wires
// its routes against.
type Deps struct {
	Sessions    *session.Manager
	Interpreter *interpreter.Interpreter
	Scripts     scriptstore.Store
}

// NewServer builds a Server for cfg and deps.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:         cfg,
		sessions:    deps.Sessions,
		interpreter: deps.Interpreter,
		scripts:     deps.Scripts,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.rateLimiter = NewRateLimiter(cfg.Gateway.RateLimitRPM)
	s.router = NewMethodRouter(s)
	return s
}

// checkOrigin validates the WebSocket handshake's Origin header against the
// configured allowlist. No configured origins means allow all (dev mode); a
// non-browser client (CLI/SDK) sends no Origin header and is always allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Gateway.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("gateway.origin_rejected", "origin", origin)
	return false
}

// authenticate validates the bearer token carried in the handshake (query
// parameter or header), per spec §6: "Invalid or missing tokens cause the
// connection to be closed with a reason code." An empty configured token
// disables authentication (local/dev use).
func (s *Server) authenticate(r *http.Request) bool {
	want := s.cfg.Gateway.Token
	if want == "" {
		return true
	}
	got := r.URL.Query().Get("token")
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return got == want
}

// BuildMux creates and caches the HTTP mux with the WebSocket and health
// routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.mux = mux
	return mux
}

// Start begins listening and blocks until ctx is cancelled or the server
// fails to serve.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()
	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	slog.Info("gateway.starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

// handleWebSocket upgrades the HTTP request, authenticates it, attaches the
// new Client to its session (creating the session on first attach, per spec
// §4.6), and drives the connection until it closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authenticate(r) {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("gateway.upgrade_failed", "error", err)
		return
	}

	client := NewClient(conn, s)
	sessionID := r.URL.Query().Get("session_id")
	sess := s.sessions.Attach(sessionID, client)
	client.session = sess.ID

	slog.Info("gateway.client_connected", "client", client.ID(), "session", sess.ID)
	defer func() {
		s.sessions.Detach(client.session, client)
		client.Close()
		slog.Info("gateway.client_disconnected", "client", client.ID(), "session", client.session)
	}()

	client.Run(r.Context())
}

// handleHealth reports liveness and the wire protocol version.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","protocol":%d}`, protocol.ProtocolVersion)
}

// Router returns the method router, for tests that want to register
// additional handlers directly.
func (s *Server) Router() *MethodRouter { return s.router }

// StartTestServer starts s on a random loopback port for integration tests.
// Grounded on the teacher's internal/gateway.StartTestServer.
func StartTestServer(s *Server, ctx context.Context) (addr string, start func()) {
	mux := s.BuildMux()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("listen: " + err.Error())
	}
	s.httpServer = &http.Server{Handler: mux}
	addr = ln.Addr().String()

	start = func() {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.httpServer.Shutdown(shutdownCtx)
		}()
		s.httpServer.Serve(ln)
	}
	return addr, start
}
