// Package recorder implements C3: it observes successful Worker actions,
// accumulates them into a Script, and on stop infers a Variable Schema from
// the recorded literals.
package recorder

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcelontime/browser-automation-sub001/internal/automation"
)

// Recorder is owned by one Session for the duration of one recording.
// Structurally grounded on internal/sessions.Manager: a mutex-guarded
// accumulator, here a single ordered slice instead of a map since a
// Recorder owns exactly one in-progress Script.
type Recorder struct {
	mu      sync.Mutex
	active  bool
	steps   []automation.Action
	sawNav  bool
	scriptName string
}

// New constructs an idle Recorder.
func New() *Recorder { return &Recorder{} }

// Start begins a new recording, discarding any previous in-progress steps.
func (r *Recorder) Start(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
	r.steps = nil
	r.sawNav = false
	r.scriptName = name
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Observe appends a normalized copy of a. Only called for actions whose
// Result.Success is true (capture rule, spec §4.3); no-op when not
// recording. currentURL is used to synthesize a first navigate step if a
// had no prior navigate action.
func (r *Recorder) Observe(a automation.Action, currentURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	if !r.sawNav && a.Kind != automation.ActionNavigate {
		r.steps = append(r.steps, automation.Action{
			Kind:      automation.ActionNavigate,
			URL:       currentURL,
			Timestamp: time.Now(),
			Description: "synthetic initial navigate",
		})
		r.sawNav = true
	}
	if a.Kind == automation.ActionNavigate {
		r.sawNav = true
	}
	r.steps = append(r.steps, a.Clone())
}

// Stop ends the recording, infers variables over the recorded literals, and
// returns the finished Script. A subsequent Start is required before the
// next Observe has any effect.
func (r *Recorder) Stop() automation.Script {
	r.mu.Lock()
	steps := r.steps
	name := r.scriptName
	r.active = false
	r.steps = nil
	r.mu.Unlock()

	steps, schema := inferVariables(steps)

	initialURL := ""
	if len(steps) > 0 && steps[0].Kind == automation.ActionNavigate {
		initialURL = steps[0].URL
	}

	return automation.Script{
		ID:         uuid.NewString(),
		Name:       name,
		Created:    time.Now(),
		Origin:     automation.OriginRecorded,
		InitialURL: initialURL,
		Steps:      steps,
		Schema:     schema,
	}
}

// inferVariables implements spec §4.3's variable inference pass: classify
// every literal by the ordered detector table, name it by snake-casing the
// field label, de-duplicate equal values to the same variable, and replace
// the literal in the Action with a ${name} reference.
func inferVariables(steps []automation.Action) ([]automation.Action, automation.Schema) {
	var schema automation.Schema
	valueToName := make(map[string]string)
	taken := make(map[string]bool)

	out := make([]automation.Action, len(steps))
	for i, a := range steps {
		out[i] = a
		literal, hasLiteral := literalValue(a)
		if !hasLiteral || literal == "" {
			continue
		}

		if name, ok := valueToName[literal]; ok {
			bindLiteral(&out[i], name)
			continue
		}

		kind, secretName := classify(literal, a.Result.FieldType(), a.OriginatingInstruction)
		label := secretName
		if label == "" {
			label = a.Result.Label()
		}
		name := uniqueName(snakeCase(label), taken)
		taken[name] = true
		valueToName[literal] = name

		v := automation.Variable{
			Name:      name,
			Kind:      kind,
			Required:  true,
			Sensitive: kind == automation.VarPassword || kind == automation.VarSecret,
			Value:     literal,
		}
		if v.Sensitive {
			v.Value = ""
		}
		schema = append(schema, v)
		bindLiteral(&out[i], name)
	}
	return out, schema
}

// literalValue returns the literal value an Action carries, if any, and
// whether the Action kind has a literal to classify at all.
func literalValue(a automation.Action) (string, bool) {
	switch a.Kind {
	case automation.ActionFill:
		return a.Value, true
	case automation.ActionSelect:
		return a.Option, true
	default:
		return "", false
	}
}

// bindLiteral replaces the recorded literal with a ${name} token (so
// resolver.Resolve substitutes it back in at replay) and records the
// binding in BoundVariable for Script.Validate's undeclared-reference check.
func bindLiteral(a *automation.Action, name string) {
	a.BoundVariable = name
	token := "${" + name + "}"
	switch a.Kind {
	case automation.ActionFill:
		a.Value = token
	case automation.ActionSelect:
		a.Option = token
	}
}
