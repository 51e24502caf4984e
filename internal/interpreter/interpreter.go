// Package interpreter implements C2: the tiered instruction→Action
// resolver (direct pattern match, page-grounded heuristic, LLM strategy
// plan).
package interpreter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/browserworker"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

const topNDiagnostic = 3

// Interpreter runs the three-tier pipeline. Planner may be nil, in which
// case tier 3 always falls back to tier 2's best-effort candidate.
type Interpreter struct {
	planner Planner

	mu    sync.Mutex
	cache map[string]cacheEntry // keyed by instruction + snapshot hash, tier 3 only
}

type cacheEntry struct {
	result PlanResult
	err    error
}

// New builds an Interpreter. planner may be nil.
func New(planner Planner) *Interpreter {
	return &Interpreter{planner: planner, cache: make(map[string]cacheEntry)}
}

// Resolve runs the tiered pipeline for one instruction against the current
// page snapshot, returning the first non-empty result. Tiers 1 and 2 are
// pure functions of (instruction, elems) and are never cached; tier 3's
// result is cached per (instruction, content-hash of snapshot) for the
// interpreter's lifetime (spec §4.2 determinism clause).
func (in *Interpreter) Resolve(ctx context.Context, instruction string, elems []browserworker.Element) ([]automation.Action, string, error) {
	if a, ok := matchTier1(instruction); ok {
		return []automation.Action{a}, "", nil
	}

	action, ranked, ok := matchTier2(instruction, elems)
	if ok {
		return []automation.Action{action}, "", nil
	}

	tied := len(ranked) > 1 && ranked[0].score >= acceptThreshold && ranked[0].score-ranked[1].score < marginThreshold
	if tied {
		return nil, "", errAmbiguous(instruction, ranked)
	}

	key := instruction + "|" + snapshotHash(elems)
	in.mu.Lock()
	if entry, found := in.cache[key]; found {
		in.mu.Unlock()
		if entry.err != nil {
			return nil, "", entry.err
		}
		return entry.result.Actions, entry.result.Warning, nil
	}
	in.mu.Unlock()

	result, err := planTier3(ctx, in.planner, instruction, elems, ranked)

	in.mu.Lock()
	in.cache[key] = cacheEntry{result: result, err: err}
	in.mu.Unlock()

	if err != nil {
		return nil, "", err
	}
	return result.Actions, result.Warning, nil
}

func snapshotHash(elems []browserworker.Element) string {
	h := sha256.New()
	for _, e := range elems {
		fmt.Fprintf(h, "%s|%s|%s|%s|%v|%d,%d,%.0f,%.0f;", e.Selector, e.TagName, e.Text, e.Value, e.Visible(), int(e.BoundingBox.X), int(e.BoundingBox.Y), e.BoundingBox.Width, e.BoundingBox.Height)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func errUnrecognized(instruction string, ranked []scored) error {
	return errkind.Newf(errkind.Unrecognized, "no tier produced an action for %q", instruction).
		WithContext("candidates", topCandidates(ranked))
}

func errAmbiguous(instruction string, ranked []scored) error {
	return errkind.New(errkind.Ambiguous, "tier 2 scoring tied within margin").
		WithContext("candidates", topCandidates(ranked))
}

func topCandidates(ranked []scored) []map[string]any {
	n := topNDiagnostic
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"selector": ranked[i].el.Selector,
			"text":     ranked[i].el.Text,
			"score":    ranked[i].score,
		})
	}
	return out
}
