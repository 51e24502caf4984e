package interpreter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/browserworker"
	"github.com/marcelontime/browser-automation-sub001/internal/providers"
)

// ProviderPlanner adapts a providers.Provider (the teacher's LLM
// abstraction) into a Planner: it asks the model for a JSON array of
// Actions given the instruction and a condensed page snapshot.
type ProviderPlanner struct {
	provider providers.Provider
	model    string
}

// NewProviderPlanner wraps an existing Provider. model may be "" to use the
// provider's default.
func NewProviderPlanner(p providers.Provider, model string) *ProviderPlanner {
	return &ProviderPlanner{provider: p, model: model}
}

const plannerSystemPrompt = `You translate a user instruction into a JSON array of browser actions given ` +
	`a list of interactive page elements. Respond with ONLY a JSON array, each element shaped as ` +
	`{"kind":"navigate|click|fill|select|wait|scroll|extract","value":"...","option":"...","url":"...","selector":"..."}. ` +
	`Use "selector" to reference an element from the supplied list. Produce the smallest sequence that accomplishes the instruction.`

func (p *ProviderPlanner) Plan(ctx context.Context, instruction string, elems []browserworker.Element) ([]automation.Action, error) {
	snapshot := condensedSnapshot(elems)
	req := providers.ChatRequest{
		Model: p.model,
		Messages: []providers.Message{
			{Role: "system", Content: plannerSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Instruction: %s\nElements: %s", instruction, snapshot)},
		},
	}
	resp, err := p.provider.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("planner chat: %w", err)
	}
	var planned []plannedAction
	if err := json.Unmarshal([]byte(resp.Content), &planned); err != nil {
		return nil, fmt.Errorf("planner response decode: %w", err)
	}
	actions := make([]automation.Action, 0, len(planned))
	for _, pa := range planned {
		actions = append(actions, pa.toAction())
	}
	return actions, nil
}

// plannedAction is the wire shape a planner response decodes into, kept
// separate from automation.Action so the planner's JSON contract can evolve
// without touching the canonical model.
type plannedAction struct {
	Kind     string `json:"kind"`
	Value    string `json:"value,omitempty"`
	Option   string `json:"option,omitempty"`
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	Direction string `json:"direction,omitempty"`
}

func (pa plannedAction) toAction() automation.Action {
	a := automation.Action{
		Kind:      automation.ActionKind(pa.Kind),
		Value:     pa.Value,
		Option:    pa.Option,
		URL:       normalizeURLIfNavigate(pa.Kind, pa.URL),
		Direction: pa.Direction,
	}
	if pa.Selector != "" {
		a.Targets = []automation.Target{{Primary: automation.Candidate{Kind: automation.CandidateSelector, Selector: pa.Selector}}}
	}
	return a
}

func normalizeURLIfNavigate(kind, url string) string {
	if kind != string(automation.ActionNavigate) || url == "" {
		return url
	}
	return normalizeURL(url)
}

// condensedSnapshot renders the subset of element fields useful for
// planning, bounded to keep prompt size reasonable.
func condensedSnapshot(elems []browserworker.Element) string {
	type lite struct {
		Selector string `json:"selector"`
		Tag      string `json:"tag"`
		Text     string `json:"text"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}
	out := make([]lite, 0, len(elems))
	for _, e := range elems {
		if !e.Visible() {
			continue
		}
		out = append(out, lite{Selector: e.Selector, Tag: e.TagName, Text: e.Text, Name: e.Name, Role: e.Role})
	}
	b, _ := json.Marshal(out)
	return string(b)
}
