package interpreter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
)

// rule is one direct pattern-match intent, same terse table idiom as
// pkg/protocol's constant tables: a compiled matcher plus a builder that
// turns its captures into an Action.
type rule struct {
	name    string
	pattern *regexp.Regexp
	build   func(m []string) automation.Action
}

var tier1Rules = []rule{
	{
		name:    "navigate",
		pattern: regexp.MustCompile(`^(?:go to|navigate to|open|visit)\s+(\S+)$`),
		build: func(m []string) automation.Action {
			return automation.Action{Kind: automation.ActionNavigate, URL: normalizeURL(m[1])}
		},
	},
	{
		name:    "click",
		pattern: regexp.MustCompile(`^click\s+(?:on\s+)?(.+)$`),
		build: func(m []string) automation.Action {
			return automation.Action{Kind: automation.ActionClick, Targets: textTargets(m[1])}
		},
	},
	{
		name:    "fill",
		pattern: regexp.MustCompile(`^(?:type|enter|fill)\s+"(.+)"\s+(?:in|into)\s+(.+)$`),
		build: func(m []string) automation.Action {
			return automation.Action{Kind: automation.ActionFill, Value: m[1], Targets: textTargets(m[2])}
		},
	},
	{
		name:    "search",
		pattern: regexp.MustCompile(`^search for\s+(.+)$`),
		build: func(m []string) automation.Action {
			return automation.Action{
				Kind:  automation.ActionFill,
				Value: m[1],
				Targets: []automation.Target{{
					Primary: automation.Candidate{Kind: automation.CandidateRoleName, Name: "search"},
					Fallbacks: []automation.Candidate{
						{Kind: automation.CandidateAriaLabel, Label: "search"},
						{Kind: automation.CandidatePlaceholder, Label: "search"},
					},
				}},
			}
		},
	},
	{
		name:    "wait",
		pattern: regexp.MustCompile(`^wait\s+(\d+)\s*(?:seconds?)?$`),
		build: func(m []string) automation.Action {
			n, _ := strconv.Atoi(m[1])
			return automation.Action{Kind: automation.ActionWait, Wait: automation.WaitSpec{Duration: time.Duration(n) * time.Second}}
		},
	},
	{
		name:    "scroll",
		pattern: regexp.MustCompile(`^scroll\s+(up|down|to\s+.+)$`),
		build: func(m []string) automation.Action {
			dir := m[1]
			if strings.HasPrefix(dir, "to ") {
				return automation.Action{Kind: automation.ActionScroll, Targets: textTargets(strings.TrimPrefix(dir, "to "))}
			}
			return automation.Action{Kind: automation.ActionScroll, Direction: dir}
		},
	},
}

// textTargets builds a Target whose candidates are the deterministic
// fallback order derived from a plain text phrase: role+name is not
// derivable from text alone, so it starts at aria-label/placeholder/text.
func textTargets(phrase string) []automation.Target {
	phrase = strings.TrimSpace(strings.Trim(phrase, `"`))
	return []automation.Target{{
		Primary: automation.Candidate{Kind: automation.CandidateText, Text: phrase},
		Fallbacks: []automation.Candidate{
			{Kind: automation.CandidateAriaLabel, Label: phrase},
			{Kind: automation.CandidatePlaceholder, Label: phrase},
		},
	}}
}

func normalizeURL(raw string) string {
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}

// matchTier1 normalizes the instruction (lowercased, whitespace-collapsed,
// quote-preserving) and tries each rule in table order.
func matchTier1(instruction string) (automation.Action, bool) {
	norm := normalizeInstruction(instruction)
	for _, r := range tier1Rules {
		if m := r.pattern.FindStringSubmatch(norm); m != nil {
			a := r.build(m)
			a.OriginatingInstruction = instruction
			a.Description = r.name
			return a, true
		}
	}
	return automation.Action{}, false
}

var spaceRe = regexp.MustCompile(`\s+`)
var quotedSpanRe = regexp.MustCompile(`"[^"]*"`)

// normalizeInstruction lowercases and collapses whitespace outside quoted
// spans, leaving quoted literals (fill/select values) byte-for-byte as
// written so a rule like "type "P@ssw0rd" into ..." preserves the literal's
// original case when captured.
func normalizeInstruction(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	last := 0
	for _, loc := range quotedSpanRe.FindAllStringIndex(s, -1) {
		b.WriteString(lowerCollapse(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(lowerCollapse(s[last:]))
	return b.String()
}

func lowerCollapse(s string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(s), " ")
}

// quotedLiteral returns the first quoted span in instruction, original case
// preserved, for callers that need a fill value without committing to a
// tier1 rule's full pattern (used by tier2's heuristic match).
func quotedLiteral(instruction string) (string, bool) {
	loc := quotedSpanRe.FindStringIndex(instruction)
	if loc == nil {
		return "", false
	}
	return strings.Trim(instruction[loc[0]:loc[1]], `"`), true
}
