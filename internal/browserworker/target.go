package browserworker

import (
	"sort"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
)

// Element is a snapshot of one DOM node considered during target
// resolution, shaped after anxuanzi-bua-go's dom.Element (bounding box +
// visibility + the attribute set used for matching).
type Element struct {
	Selector      string
	TagName       string
	Role          string
	Name          string
	Text          string
	Type          string
	Placeholder   string
	AriaLabel     string
	Value         string
	ID            string
	Class         string
	Title         string
	Href          string
	IsInteractive bool
	IsVisible     bool
	BoundingBox   BoundingBox
	DocumentOrder int
}

// BoundingBox mirrors the visible area of an Element.
type BoundingBox struct {
	X, Y, Width, Height float64
}

func (b BoundingBox) Area() float64 { return b.Width * b.Height }

// elementLabel picks the best available human label for e, preferring
// aria-label, then placeholder, then name, then text.
func elementLabel(e Element) string {
	switch {
	case e.AriaLabel != "":
		return e.AriaLabel
	case e.Placeholder != "":
		return e.Placeholder
	case e.Name != "":
		return e.Name
	default:
		return e.Text
	}
}

// Visible reports whether an element satisfies the visibility contract used
// throughout target resolution: nonzero bounding box, not hidden, not
// fully transparent.
func (e Element) Visible() bool {
	return e.IsVisible && e.BoundingBox.Area() > 0
}

// candidateOrder is the deterministic fallback precedence from spec §4.1.
var candidateOrder = []automation.CandidateKind{
	automation.CandidateRoleName,
	automation.CandidateAriaLabel,
	automation.CandidatePlaceholder,
	automation.CandidateText,
	automation.CandidateSelector,
	automation.CandidateIndex,
}

// orderedCandidates returns t's primary + fallbacks sorted into the
// deterministic candidateOrder precedence, primary always first if present.
func orderedCandidates(t automation.Target) []automation.Candidate {
	all := append([]automation.Candidate{t.Primary}, t.Fallbacks...)
	rank := func(k automation.CandidateKind) int {
		for i, c := range candidateOrder {
			if c == k {
				return i
			}
		}
		return len(candidateOrder)
	}
	sort.SliceStable(all, func(i, j int) bool { return rank(all[i].Kind) < rank(all[j].Kind) })
	return all
}

// matchCandidate finds elements in elems matching one candidate description,
// applying the spec's visibility + tie-break rule: (area descending,
// document order ascending).
func matchCandidate(elems []Element, c automation.Candidate) (Element, bool) {
	var matches []Element
	for _, e := range elems {
		if !e.Visible() {
			continue
		}
		if candidateMatches(e, c) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return Element{}, false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].BoundingBox.Area() != matches[j].BoundingBox.Area() {
			return matches[i].BoundingBox.Area() > matches[j].BoundingBox.Area()
		}
		return matches[i].DocumentOrder < matches[j].DocumentOrder
	})
	return matches[0], true
}

func candidateMatches(e Element, c automation.Candidate) bool {
	switch c.Kind {
	case automation.CandidateSelector:
		return e.Selector == c.Selector
	case automation.CandidateRoleName:
		return e.Role == c.Role && e.Name == c.Name
	case automation.CandidateAriaLabel:
		return e.AriaLabel == c.Label
	case automation.CandidatePlaceholder:
		return e.Placeholder == c.Label
	case automation.CandidateText:
		return e.Text == c.Text
	case automation.CandidateIndex:
		return e.DocumentOrder == c.Index
	}
	return false
}

// resolveTarget tries candidates in deterministic order, returning the first
// match and an attempt log describing every candidate tried (for diagnostics
// on TargetNotFound).
func resolveTarget(elems []Element, t automation.Target) (Element, automation.Candidate, []string, bool) {
	var log []string
	for _, c := range orderedCandidates(t) {
		if el, ok := matchCandidate(elems, c); ok {
			log = append(log, string(c.Kind)+": matched")
			return el, c, log, true
		}
		log = append(log, string(c.Kind)+": no match")
	}
	return Element{}, automation.Candidate{}, log, false
}
