package gateway

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/browserworker"
	"github.com/marcelontime/browser-automation-sub001/internal/config"
	"github.com/marcelontime/browser-automation-sub001/internal/interpreter"
	"github.com/marcelontime/browser-automation-sub001/internal/scriptstore"
	"github.com/marcelontime/browser-automation-sub001/internal/session"
)

// fakeDriver satisfies browserworker.Driver without a real browser, mirroring
// internal/session's test fake.
type fakeDriver struct{}

func (d *fakeDriver) Open(ctx context.Context) error    { return nil }
func (d *fakeDriver) Navigate(ctx context.Context, url string) error { return nil }
func (d *fakeDriver) Snapshot(ctx context.Context) ([]browserworker.Element, error) {
	return []browserworker.Element{{
		Selector: "#q", TagName: "input", IsInteractive: true, IsVisible: true,
		AriaLabel: "search", BoundingBox: browserworker.BoundingBox{Width: 100, Height: 20},
	}}, nil
}
func (d *fakeDriver) Click(ctx context.Context, e browserworker.Element) error                      { return nil }
func (d *fakeDriver) Fill(ctx context.Context, e browserworker.Element, value string) error          { return nil }
func (d *fakeDriver) Select(ctx context.Context, e browserworker.Element, option string) error       { return nil }
func (d *fakeDriver) Extract(ctx context.Context, e browserworker.Element) (string, error)           { return "", nil }
func (d *fakeDriver) Scroll(ctx context.Context, direction string, e *browserworker.Element) error    { return nil }
func (d *fakeDriver) WaitFor(ctx context.Context, predicate string) error                             { return nil }
func (d *fakeDriver) CurrentURL() string                                                              { return "https://example.com" }
func (d *fakeDriver) Title() string                                                                   { return "title" }
func (d *fakeDriver) Screenshot(ctx context.Context) ([]byte, error)                                  { return []byte{0xFF, 0xD8}, nil }
func (d *fakeDriver) Close() error                                                                    { return nil }

func passthroughResolve(a automation.Action, values map[string]string) (automation.Action, error) {
	return a, nil
}

func TestServer_DirectActionRoutesToWorkerAndReturnsStatus(t *testing.T) {
	store, err := scriptstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	sessions := session.New(func() browserworker.Driver { return &fakeDriver{} }, passthroughResolve)
	cfg := config.Default()
	cfg.Gateway.RateLimitRPM = 0
	s := NewServer(cfg, Deps{Sessions: sessions, Interpreter: interpreter.New(nil), Scripts: store})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, start := StartTestServer(s, ctx)
	go start()
	time.Sleep(50 * time.Millisecond)

	wsURL := "ws://" + addr + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "click", "target": "#q"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"type":"status"`) {
		t.Errorf("expected a status event, got %s", data)
	}
}

func TestServer_RejectsBadToken(t *testing.T) {
	store, err := scriptstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	sessions := session.New(func() browserworker.Driver { return &fakeDriver{} }, passthroughResolve)
	cfg := config.Default()
	cfg.Gateway.Token = "expected-token"
	s := NewServer(cfg, Deps{Sessions: sessions, Interpreter: interpreter.New(nil), Scripts: store})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, start := StartTestServer(s, ctx)
	go start()
	time.Sleep(50 * time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err == nil {
		t.Fatal("expected dial to fail without a token")
	}
	if resp != nil && resp.StatusCode != 401 {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}

	q := url.Values{"token": {"expected-token"}}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws?"+q.Encode(), nil)
	if err != nil {
		t.Fatalf("expected dial with correct token to succeed: %v", err)
	}
	conn.Close()
}
