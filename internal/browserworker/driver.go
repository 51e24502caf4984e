package browserworker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Driver abstracts the underlying browser-automation library (spec §1: "the
// specific browser-driver library" is an external collaborator). The
// concrete implementation is go-rod, grounded on anxuanzi-bua-go's Browser
// wrapper; Driver exists as a seam so the Worker's serialization/retry logic
// can be tested against a fake without a real browser.
type Driver interface {
	Open(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) ([]Element, error)
	Click(ctx context.Context, e Element) error
	Fill(ctx context.Context, e Element, value string) error
	Select(ctx context.Context, e Element, option string) error
	Extract(ctx context.Context, e Element) (string, error)
	Scroll(ctx context.Context, direction string, e *Element) error
	WaitFor(ctx context.Context, predicate string) error
	CurrentURL() string
	Title() string
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// RodDriver drives one go-rod page. One RodDriver belongs to exactly one
// Worker/session, matching anxuanzi-bua-go's Browser{pages map[string]*rod.Page}
// narrowed to a single page since a Worker owns exactly one browser page.
type RodDriver struct {
	headless bool
	width    int
	height   int

	browser *rod.Browser
	page    *rod.Page
	url     *launcher.Launcher
}

// NewRodDriver constructs a driver that has not yet launched a browser.
func NewRodDriver(headless bool, width, height int) *RodDriver {
	return &RodDriver{headless: headless, width: width, height: height}
}

func (d *RodDriver) Open(ctx context.Context) error {
	if d.browser != nil {
		return nil // idempotent, per spec §4.1
	}
	l := launcher.New().Headless(d.headless)
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	d.url = l
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	if d.width > 0 && d.height > 0 {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width: d.width, Height: d.height, DeviceScaleFactor: 1,
		})
	}
	d.browser = browser
	d.page = page
	return nil
}

func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	return d.page.Context(ctx).Navigate(url)
}

func (d *RodDriver) CurrentURL() string {
	if d.page == nil {
		return ""
	}
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (d *RodDriver) Title() string {
	if d.page == nil {
		return ""
	}
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

func (d *RodDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.page.Context(ctx).Screenshot(false, nil)
}

func (d *RodDriver) Close() error {
	if d.browser == nil {
		return nil // idempotent
	}
	err := d.browser.Close()
	if d.url != nil {
		d.url.Cleanup()
	}
	d.browser = nil
	d.page = nil
	return err
}

func (d *RodDriver) WaitFor(ctx context.Context, predicate string) error {
	return d.page.Context(ctx).WaitStable(300 * time.Millisecond)
}
