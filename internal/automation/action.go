// Package automation holds the canonical data model shared by every
// component that touches a recorded Action or Script: the Recorder, the
// Script Store, the Progress Manager, and the Interpreter.
package automation

import "time"

// ActionKind enumerates the exhaustive tagged Action variants (spec §3).
type ActionKind string

const (
	ActionNavigate ActionKind = "navigate"
	ActionFill     ActionKind = "fill"
	ActionClick    ActionKind = "click"
	ActionSelect   ActionKind = "select"
	ActionWait     ActionKind = "wait"
	ActionScroll   ActionKind = "scroll"
	ActionExtract  ActionKind = "extract"
	ActionAssert   ActionKind = "assert"
)

// CandidateKind enumerates the structured target candidate types.
type CandidateKind string

const (
	CandidateSelector    CandidateKind = "selector"
	CandidateRoleName    CandidateKind = "role_name"
	CandidateText        CandidateKind = "text"
	CandidateAriaLabel   CandidateKind = "aria_label"
	CandidatePlaceholder CandidateKind = "placeholder"
	CandidateIndex       CandidateKind = "index"
)

// Candidate is one structured description of a DOM element.
type Candidate struct {
	Kind     CandidateKind `json:"kind"`
	Selector string        `json:"selector,omitempty"`
	Role     string        `json:"role,omitempty"`
	Name     string        `json:"name,omitempty"`
	Text     string        `json:"text,omitempty"`
	Label    string        `json:"label,omitempty"`
	Index    int           `json:"index,omitempty"`
}

// Target is the primary candidate plus ordered fallbacks, in the
// deterministic order derived at record time:
// role+name, aria-label, placeholder, text, selector, index.
type Target struct {
	Primary   Candidate   `json:"primary"`
	Fallbacks []Candidate `json:"fallbacks,omitempty"`
}

// FailureKind mirrors errkind.Kind for the subset of kinds a Result may carry
// (kept as a distinct string type here so the automation package has no
// import-cycle dependency on errkind's retry policy).
type FailureKind string

// Result records the outcome of executing one Action.
type Result struct {
	Success        bool          `json:"success"`
	ObservedURL    string        `json:"observed_url,omitempty"`
	FinalTargetUsed *Candidate   `json:"final_target_used,omitempty"`
	Duration       time.Duration `json:"duration"`
	FailureKind    FailureKind   `json:"failure_kind,omitempty"`
	AttemptLog     []string      `json:"attempt_log,omitempty"`

	// TargetFieldType is the resolved element's HTML type attribute (e.g.
	// "password"), carried through so the Recorder's variable inference can
	// apply the field-attribute detector without re-querying the page.
	TargetFieldType string `json:"target_field_type,omitempty"`
	// TargetLabel is the best available human label for the resolved
	// element (aria-label, placeholder, name, or text, in that order),
	// used to derive the inferred variable's name.
	TargetLabel string `json:"target_label,omitempty"`
}

// FieldType returns the resolved element's HTML type attribute, or "" if r
// is nil or the field wasn't recorded.
func (r *Result) FieldType() string {
	if r == nil {
		return ""
	}
	return r.TargetFieldType
}

// Label returns the resolved element's best-available human label, or "" if
// r is nil.
func (r *Result) Label() string {
	if r == nil {
		return ""
	}
	return r.TargetLabel
}

// WaitSpec carries the wait Action's duration-or-predicate parameter.
type WaitSpec struct {
	Duration  time.Duration `json:"duration,omitempty"`
	Predicate string        `json:"predicate,omitempty"`
}

// Action is the canonical executable unit (spec §3).
type Action struct {
	Kind ActionKind `json:"kind"`

	Description         string `json:"description"`
	OriginatingInstruction string `json:"originating_instruction,omitempty"`

	Targets []Target `json:"targets,omitempty"`

	// Parameters, populated according to Kind.
	URL         string   `json:"url,omitempty"`
	Value       string   `json:"value,omitempty"`
	Option      string   `json:"option,omitempty"`
	Wait        WaitSpec `json:"wait,omitempty"`
	Direction   string   `json:"direction,omitempty"`
	Predicate   string   `json:"predicate,omitempty"`

	// BoundVariable is the ${name} reference this Action's literal value was
	// replaced by, if any (set during C3 variable inference).
	BoundVariable string `json:"bound_variable,omitempty"`

	Result    *Result   `json:"result,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Screenshot carries a base64 JPEG captured right after Result is known,
	// only populated when the owning Execution requested per-step frames.
	Screenshot string `json:"screenshot,omitempty"`
}

// Clone returns a deep-enough copy safe to mutate independently (targets and
// result are copied by value since they contain no further pointers other
// than FinalTargetUsed, which is copied too).
func (a Action) Clone() Action {
	cp := a
	if len(a.Targets) > 0 {
		cp.Targets = make([]Target, len(a.Targets))
		for i, t := range a.Targets {
			nt := t
			if len(t.Fallbacks) > 0 {
				nt.Fallbacks = append([]Candidate(nil), t.Fallbacks...)
			}
			cp.Targets[i] = nt
		}
	}
	if a.Result != nil {
		r := *a.Result
		if a.Result.FinalTargetUsed != nil {
			c := *a.Result.FinalTargetUsed
			r.FinalTargetUsed = &c
		}
		if len(a.Result.AttemptLog) > 0 {
			r.AttemptLog = append([]string(nil), a.Result.AttemptLog...)
		}
		cp.Result = &r
	}
	return cp
}
