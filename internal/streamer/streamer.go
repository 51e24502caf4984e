// Package streamer implements C9: an adaptive-rate JPEG screenshot producer.
// Base rate 2 Hz when idle, bursting to 10 Hz for 2s after each NotifyAction
// call. Within a session that call comes from Session.Emit once per completed
// Execution step; chat and direct actions sent through the gateway do not
// open a burst. JPEG quality adjusts toward a target outbound buffer depth.
// Suspended whenever no client is attached. Grounded on anxuanzi-bua-go's
// screenshot package (referenced by browser.Config.ScreenshotConfig but not
// retrieved in full) for the adaptive-rate/quality idea, reusing
// disintegration/imaging for JPEG re-encoding at a given quality.
package streamer

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/jpeg"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/marcelontime/browser-automation-sub001/internal/session"
)

const (
	idleRate     = 500 * time.Millisecond // 2 Hz
	burstRate    = 100 * time.Millisecond // 10 Hz
	burstWindow  = 2 * time.Second

	initialQuality = 80
	minQuality     = 10
	maxQuality     = 100
	qualityStep    = 10

	highWaterMark = 0.5
	lowWaterMark  = 0.25
)

// Source captures the live page. Satisfied by *browserworker.Worker.
type Source interface {
	Snapshot(ctx context.Context) (data []byte, url, title string, err error)
}

// Client is session.Client: anything a Stream can emit frames to and query
// outbound buffer depth on. Reusing the session package's type (rather than
// a locally duplicated one) is what lets *Stream satisfy
// session.FrameStreamer's Attach/Detach signatures directly.
type Client = session.Client

// Frame is the payload of a screenshot/real_time_screenshot event.
type Frame struct {
	FrameID int64  `json:"frame_id"`
	Data    string `json:"data"` // base64 JPEG
	URL     string `json:"url"`
}

// Stream drives one session's adaptive screenshot loop.
type Stream struct {
	source Source

	mu          sync.Mutex
	clients     map[Client]bool
	quality     int
	frameID     int64
	burstUntil  time.Time
	stopped     bool
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// New builds a Stream bound to source. Call Run in its own goroutine.
func New(source Source) *Stream {
	return &Stream{
		source:  source,
		clients: make(map[Client]bool),
		quality: initialQuality,
		stopCh:  make(chan struct{}),
	}
}

// Attach adds a viewer; the producer resumes on the next tick if it was
// suspended.
func (s *Stream) Attach(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = true
}

// Detach removes a viewer; the producer suspends once no clients remain.
func (s *Stream) Detach(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

// NotifyAction marks activity, opening the burst window (spec §4.9: "bursts
// to 10Hz for 2 seconds after any Worker action completes or navigation").
func (s *Stream) NotifyAction() {
	s.mu.Lock()
	s.burstUntil = time.Now().Add(burstWindow)
	s.mu.Unlock()
}

func (s *Stream) hasClients() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients) > 0
}

func (s *Stream) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Now().Before(s.burstUntil) {
		return burstRate
	}
	return idleRate
}

// Run drives the capture loop until ctx is cancelled or Stop is called.
// Suspended (no capture attempted) whenever no client is attached.
func (s *Stream) Run(ctx context.Context) {
	timer := time.NewTimer(s.currentInterval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-timer.C:
			if s.hasClients() {
				s.captureAndEmit(ctx, "real_time_screenshot")
			}
			timer.Reset(s.currentInterval())
		}
	}
}

// Stop halts the capture loop. Idempotent.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// CaptureNow performs one capture and emits it as eventType (used for
// screenshot_request, which wants an immediate frame rather than waiting on
// the next scheduled tick).
func (s *Stream) CaptureNow(ctx context.Context, eventType string) {
	s.captureAndEmit(ctx, eventType)
}

func (s *Stream) captureAndEmit(ctx context.Context, eventType string) {
	raw, url, _, err := s.source.Snapshot(ctx)
	if err != nil {
		return
	}

	s.mu.Lock()
	quality := s.adjustQuality()
	s.frameID++
	frameID := s.frameID
	targets := make([]Client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	encoded, err := reencode(raw, quality)
	if err != nil {
		encoded = raw
	}

	frame := Frame{
		FrameID: frameID,
		Data:    encodeBase64(encoded),
		URL:     url,
	}
	for _, c := range targets {
		c.Send(eventType, frame)
	}
}

// adjustQuality nudges quality down when any attached client's buffer is
// over highWaterMark, or up toward the 80 target when every client is under
// lowWaterMark (spec §4.9). Must be called with mu held.
func (s *Stream) adjustQuality() int {
	worstDepth := 0.0
	for c := range s.clients {
		if d := c.BufferDepth(); d > worstDepth {
			worstDepth = d
		}
	}
	switch {
	case worstDepth > highWaterMark:
		s.quality -= qualityStep
	case worstDepth < lowWaterMark && s.quality < initialQuality:
		s.quality += qualityStep
	}
	if s.quality < minQuality {
		s.quality = minQuality
	}
	if s.quality > maxQuality {
		s.quality = maxQuality
	}
	if s.quality > initialQuality {
		s.quality = initialQuality
	}
	return s.quality
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func reencode(raw []byte, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
