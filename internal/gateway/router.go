package gateway

import (
	"context"

	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
	"github.com/marcelontime/browser-automation-sub001/pkg/protocol"
)

// Handler processes one inbound message for the client that sent it.
type Handler func(ctx context.Context, c *Client, env protocol.InboundEnvelope) error

// MethodRouter dispatches inbound message types to their handler, matching
// spec §4.7's routing table. Not present in any retrieved example; authored
// from server.go's call-site evidence (s.router = NewMethodRouter(s),
// s.Router().Register(...)) in the same flat string-keyed-map idiom as
// pkg/protocol's constant tables.
type MethodRouter struct {
	handlers map[string]Handler
}

// NewMethodRouter builds a router with spec §4.7's full routing table
// registered against s's component wiring.
func NewMethodRouter(s *Server) *MethodRouter {
	r := &MethodRouter{handlers: make(map[string]Handler)}
	s.registerRoutes(r)
	return r
}

// Register adds or replaces the handler for msgType.
func (r *MethodRouter) Register(msgType string, h Handler) {
	r.handlers[msgType] = h
}

// Dispatch routes env to its handler, or fails with UnknownMessage.
func (r *MethodRouter) Dispatch(ctx context.Context, c *Client, env protocol.InboundEnvelope) error {
	h, ok := r.handlers[env.Type]
	if !ok {
		return errkind.Newf(errkind.UnknownMessage, "no handler registered for message type %q", env.Type)
	}
	return h(ctx, c, env)
}
