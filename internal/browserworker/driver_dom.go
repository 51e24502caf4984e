package browserworker

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

// snapshotIndexAttr tags every candidate element with a stable index so a
// later Click/Fill/Select/Extract call can re-locate the exact node the
// snapshot scored, without re-running the whole interactive-element query.
const snapshotIndexAttr = "data-bas-index"

// interactiveSelector matches the same node set anxuanzi-bua-go's browser
// package collects for recording/interpretation: inputs, buttons, links,
// role=button, and editable elements.
const interactiveSelector = `input, button, a, select, textarea, [role="button"], [contenteditable="true"]`

const snapshotScript = `() => {
	const nodes = Array.from(document.querySelectorAll(%s));
	return nodes.map((el, i) => {
		el.setAttribute(%q, String(i));
		const r = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const visible = r.width > 0 && r.height > 0 && style.visibility !== 'hidden' && style.opacity !== '0' && style.display !== 'none';
		return {
			index: i,
			tag: el.tagName.toLowerCase(),
			role: el.getAttribute('role') || '',
			name: el.getAttribute('name') || '',
			text: (el.innerText || el.value || '').trim().slice(0, 200),
			type: el.getAttribute('type') || '',
			placeholder: el.getAttribute('placeholder') || '',
			ariaLabel: el.getAttribute('aria-label') || '',
			value: el.value || '',
			id: el.id || '',
			class: el.className || '',
			title: el.getAttribute('title') || '',
			href: el.getAttribute('href') || '',
			visible: visible,
			x: r.x, y: r.y, width: r.width, height: r.height,
		};
	});
}`

type snapshotNode struct {
	Index       int     `json:"index"`
	Tag         string  `json:"tag"`
	Role        string  `json:"role"`
	Name        string  `json:"name"`
	Text        string  `json:"text"`
	Type        string  `json:"type"`
	Placeholder string  `json:"placeholder"`
	AriaLabel   string  `json:"ariaLabel"`
	Value       string  `json:"value"`
	ID          string  `json:"id"`
	Class       string  `json:"class"`
	Title       string  `json:"title"`
	Href        string  `json:"href"`
	Visible     bool    `json:"visible"`
	X, Y        float64
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

func (d *RodDriver) Snapshot(ctx context.Context) ([]Element, error) {
	page := d.page.Context(ctx)
	res, err := page.Eval(fmt.Sprintf(snapshotScript, quoteJS(interactiveSelector), snapshotIndexAttr))
	if err != nil {
		return nil, fmt.Errorf("snapshot eval: %w", err)
	}
	var nodes []snapshotNode
	if err := res.Value.Unmarshal(&nodes); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	elems := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, Element{
			Selector:      fmt.Sprintf(`[%s="%d"]`, snapshotIndexAttr, n.Index),
			TagName:       n.Tag,
			Role:          n.Role,
			Name:          n.Name,
			Text:          n.Text,
			Type:          n.Type,
			Placeholder:   n.Placeholder,
			AriaLabel:     n.AriaLabel,
			Value:         n.Value,
			ID:            n.ID,
			Class:         n.Class,
			Title:         n.Title,
			Href:          n.Href,
			IsInteractive: true,
			IsVisible:     n.Visible,
			BoundingBox:   BoundingBox{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height},
			DocumentOrder: n.Index,
		})
	}
	return elems, nil
}

func (d *RodDriver) locate(ctx context.Context, e Element) (*rod.Element, error) {
	return d.page.Context(ctx).Element(e.Selector)
}

func (d *RodDriver) Click(ctx context.Context, e Element) error {
	el, err := d.locate(ctx, e)
	if err != nil {
		return err
	}
	return el.Context(ctx).Click("left", 1)
}

func (d *RodDriver) Fill(ctx context.Context, e Element, value string) error {
	el, err := d.locate(ctx, e)
	if err != nil {
		return err
	}
	if err := el.Context(ctx).SelectAllText(); err != nil {
		return err
	}
	return el.Context(ctx).Input(value)
}

func (d *RodDriver) Select(ctx context.Context, e Element, option string) error {
	el, err := d.locate(ctx, e)
	if err != nil {
		return err
	}
	return el.Context(ctx).Select([]string{option}, true, rod.SelectorTypeText)
}

func (d *RodDriver) Extract(ctx context.Context, e Element) (string, error) {
	el, err := d.locate(ctx, e)
	if err != nil {
		return "", err
	}
	text, err := el.Context(ctx).Text()
	if err != nil {
		return "", err
	}
	return text, nil
}

func (d *RodDriver) Scroll(ctx context.Context, direction string, e *Element) error {
	page := d.page.Context(ctx)
	if e != nil {
		el, err := d.locate(ctx, *e)
		if err != nil {
			return err
		}
		return el.Context(ctx).ScrollIntoView()
	}
	dy := 0.0
	switch direction {
	case "down":
		dy = 600
	case "up":
		dy = -600
	}
	return page.Mouse.Scroll(0, dy, 1)
}

func quoteJS(s string) string {
	return fmt.Sprintf("%q", s)
}
