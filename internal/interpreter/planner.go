package interpreter

import (
	"context"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/browserworker"
)

// Planner is the abstract tier-3 collaborator (spec §6 "external planner").
// It is shaped after internal/providers.Provider's Chat contract but
// narrowed to this package's domain: instruction + page snapshot in,
// ordered Actions out. An adapter wraps a providers.Provider to satisfy
// this interface; Planner itself has no dependency on the LLM transport.
type Planner interface {
	Plan(ctx context.Context, instruction string, elems []browserworker.Element) ([]automation.Action, error)
}

// PlanResult is what tier 3 returns: either a confident plan, or (when the
// planner is unavailable) a single best-effort fallback Action carrying a
// warning, per spec §4.2.
type PlanResult struct {
	Actions []automation.Action
	Warning string
}

func planTier3(ctx context.Context, planner Planner, instruction string, elems []browserworker.Element, tier2Ranked []scored) (PlanResult, error) {
	if planner != nil {
		actions, err := planner.Plan(ctx, instruction, elems)
		if err == nil && len(actions) > 0 {
			for i := range actions {
				actions[i].OriginatingInstruction = instruction
			}
			return PlanResult{Actions: actions}, nil
		}
	}
	if len(tier2Ranked) == 0 {
		return PlanResult{}, errUnrecognized(instruction, nil)
	}
	top := tier2Ranked[0].el
	kind := automation.ActionClick
	if top.TagName == "input" || top.TagName == "textarea" || top.TagName == "select" {
		kind = automation.ActionFill
	}
	fallback := automation.Action{
		Kind:                kind,
		OriginatingInstruction: instruction,
		Description:         "tier3 best-effort fallback (planner unavailable)",
		Targets: []automation.Target{{
			Primary: automation.Candidate{Kind: automation.CandidateSelector, Selector: top.Selector},
		}},
	}
	return PlanResult{Actions: []automation.Action{fallback}, Warning: "planner unavailable, used best-effort tier 2 candidate below threshold"}, nil
}
