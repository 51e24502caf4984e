package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/marcelontime/browser-automation-sub001/pkg/protocol"
)

// criticalQueueSoftCap is used only to normalize BufferDepth for the
// Screenshot Streamer's quality-adjustment rule (spec §4.9); it does not
// bound the queue itself — critical events are never dropped (spec §4.7).
const criticalQueueSoftCap = 20

// Client wraps one authenticated WebSocket connection. Outbound events split
// into two lanes: critical events (progress/terminal/error) queue FIFO and
// are never dropped; real_time_screenshot frames coalesce to the single
// newest frame, matching spec §4.7's backpressure rule. Not present in any
// retrieved example (the teacher's internal/gateway never shipped this
// file); authored from server.go's call-site evidence (NewClient(conn, s),
// client.Run(ctx), client.SendEvent/Send, client.Close) in the same
// small-mutex-guarded-struct idiom as the rest of this package.
type Client struct {
	id      string
	conn    *websocket.Conn
	server  *Server
	session string // bound session id, set on the first message that carries one

	wake chan struct{}

	mu           sync.Mutex
	criticalQ    []protocol.OutboundEvent
	pendingFrame *protocol.OutboundEvent
	closed       bool
}

// NewClient wraps conn for server s.
func NewClient(conn *websocket.Conn, s *Server) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
		wake:   make(chan struct{}, 1),
	}
}

// ID returns the connection's opaque identifier.
func (c *Client) ID() string { return c.id }

// Send implements session.Client: queue one outbound event, coalescing
// real_time_screenshot to the newest frame and never dropping anything else.
func (c *Client) Send(eventType string, payload any) {
	c.SendEvent(*protocol.NewEvent(eventType, payload))
}

// SendEvent is the lower-level form used by the server's bus fan-out path.
func (c *Client) SendEvent(event protocol.OutboundEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if event.Type == protocol.EventRealTimeScreenshot {
		c.pendingFrame = &event
	} else {
		c.criticalQ = append(c.criticalQ, event)
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// BufferDepth implements session.Client for the Screenshot Streamer's
// quality-adjustment rule: the fraction of the critical queue's soft
// capacity currently in use (the coalesced frame slot never contributes,
// since it never grows beyond one entry).
func (c *Client) BufferDepth() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := float64(len(c.criticalQ)) / float64(criticalQueueSoftCap)
	if d > 1 {
		d = 1
	}
	return d
}

// Run drives the connection: a write loop draining queued events, and a
// blocking read loop decoding inbound envelopes into the method router.
// Returns when the connection closes or ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	go c.writeLoop(ctx)
	c.readLoop(ctx)
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			for {
				event, ok := c.nextEvent()
				if !ok {
					break
				}
				data, err := json.Marshal(&event)
				if err != nil {
					continue
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}
	}
}

func (c *Client) nextEvent() (protocol.OutboundEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.criticalQ) > 0 {
		e := c.criticalQ[0]
		c.criticalQ = c.criticalQ[1:]
		return e, true
	}
	if c.pendingFrame != nil {
		e := *c.pendingFrame
		c.pendingFrame = nil
		return e, true
	}
	return protocol.OutboundEvent{}, false
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.server.rateLimiter.Enabled() && !c.server.rateLimiter.Allow(c.id) {
			c.Send(protocol.EventError, map[string]string{"error": "rate_limited"})
			continue
		}
		var envelope protocol.InboundEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			c.Send(protocol.EventError, map[string]string{"error": "invalid message"})
			continue
		}
		start := time.Now()
		if err := c.server.router.Dispatch(ctx, c, envelope); err != nil {
			c.Send(protocol.EventError, map[string]string{"error": err.Error(), "type": envelope.Type})
		}
		slog.Debug("gateway.dispatch", "client", c.id, "type", envelope.Type, "duration", time.Since(start))
	}
}

// Close idempotently tears the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.server.rateLimiter.Forget(c.id)
	return c.conn.Close()
}
