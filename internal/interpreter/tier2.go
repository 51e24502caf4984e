package interpreter

import (
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/browserworker"
)

const (
	acceptThreshold = 0.2
	marginThreshold = 0.1
)

var typeKeywords = map[string][]string{
	"search": {"input", "textarea"},
	"field":  {"input", "textarea"},
	"button": {"button"},
	"link":   {"a"},
}

// scored pairs one Element with its similarity score against an instruction.
type scored struct {
	el    browserworker.Element
	score float64
}

// scoreElement implements the similarity function from spec §4.2: +1 exact
// word hit, +0.5 partial substring hit, +0.3 tag/keyword category bonus,
// normalized by instruction token count.
func scoreElement(tokens []string, e browserworker.Element) float64 {
	if !e.Visible() {
		return 0
	}
	fields := []string{e.Text, e.Placeholder, e.Name, e.AriaLabel, e.ID, e.Class, e.Title, e.Value}
	var total float64
	for _, tok := range tokens {
		hit := 0.0
		for _, f := range fields {
			lf := strings.ToLower(f)
			if lf == "" {
				continue
			}
			if lf == tok {
				hit = 1
				break
			}
			if strings.Contains(lf, tok) && hit < 0.5 {
				hit = 0.5
			}
		}
		if tags, ok := typeKeywords[tok]; ok {
			for _, t := range tags {
				if t == e.TagName {
					hit += 0.3
					break
				}
			}
		}
		total += hit
	}
	if len(tokens) == 0 {
		return 0
	}
	return total / float64(len(tokens))
}

// tokenize splits a normalized instruction into match tokens. Plain
// space-delimited words pass through as-is; fields containing double-width
// runes (CJK, many emoji) are split rune-by-rune, since recorded
// instructions in those scripts routinely carry no word boundaries at all
// ("点击搜索按钮" has zero spaces) and strings.Fields alone would hand
// scoreElement one unmatchable blob instead of candidate tokens.
func tokenize(instruction string) []string {
	norm := normalizeInstruction(instruction)
	fields := strings.Fields(norm)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if isWide(f) {
			tokens = append(tokens, splitRunes(f)...)
		} else {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isWide(s string) bool {
	for _, r := range s {
		if runewidth.RuneWidth(r) > 1 {
			return true
		}
	}
	return false
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// matchTier2 scores every visible interactive element and accepts the top
// candidate if it clears acceptThreshold with at least marginThreshold over
// the runner-up. Returns the ranked list for diagnostics regardless of
// outcome.
func matchTier2(instruction string, elems []browserworker.Element) (automation.Action, []scored, bool) {
	tokens := tokenize(instruction)
	ranked := make([]scored, 0, len(elems))
	for _, e := range elems {
		if !e.IsInteractive {
			continue
		}
		s := scoreElement(tokens, e)
		if s > 0 {
			ranked = append(ranked, scored{el: e, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) == 0 || ranked[0].score < acceptThreshold {
		return automation.Action{}, ranked, false
	}
	if len(ranked) > 1 && ranked[0].score-ranked[1].score < marginThreshold {
		return automation.Action{}, ranked, false
	}

	top := ranked[0].el
	kind := automation.ActionClick
	value := ""
	isFillable := top.TagName == "input" || top.TagName == "textarea" || top.TagName == "select"
	if isFillable {
		if v, ok := quotedLiteral(instruction); ok {
			kind = automation.ActionFill
			value = v
		}
		// No quoted literal: fall through as a click (focus) rather than a
		// Fill with an empty Value, which would clear the element instead of
		// leaving it untouched.
	}
	return automation.Action{
		Kind:                   kind,
		Value:                  value,
		OriginatingInstruction: instruction,
		Description:            "tier2 heuristic match",
		Targets: []automation.Target{{
			Primary: automation.Candidate{Kind: automation.CandidateSelector, Selector: top.Selector},
		}},
	}, ranked, true
}
