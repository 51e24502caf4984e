package automation

import (
	"regexp"
	"time"

	"github.com/adhocore/gronx"

	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

// tokenRe matches the same three token spellings resolver.Resolve
// substitutes (${NAME}, {{NAME}}, {NAME}), duplicated here rather than
// imported to avoid an automation<->resolver import cycle.
var tokenRe = regexp.MustCompile(`\$\{([A-Za-z][A-Za-z0-9_-]*)\}|\{\{([A-Za-z][A-Za-z0-9_-]*)\}\}|\{([A-Za-z][A-Za-z0-9_-]*)\}`)

// referencedVariables returns every variable name tokenized in s.
func referencedVariables(s string) []string {
	if s == "" {
		return nil
	}
	var names []string
	for _, m := range tokenRe.FindAllStringSubmatch(s, -1) {
		for _, g := range m[1:] {
			if g != "" {
				names = append(names, g)
				break
			}
		}
	}
	return names
}

// Origin records how a Script came to exist.
type Origin string

const (
	OriginRecorded Origin = "recorded"
	OriginImported Origin = "imported"
	OriginAuthored Origin = "authored"
)

// Script is an ordered non-empty sequence of Actions plus a Variable Schema
// (spec §3). Step indices are 1-based and contiguous by construction (Steps
// is a plain slice; index+1 is the step number).
type Script struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Created    time.Time `json:"created"`
	LastRun    time.Time `json:"last_run,omitempty"`
	Origin     Origin    `json:"origin"`
	InitialURL string    `json:"initial_url"`

	Steps    []Action `json:"steps"`
	Schema   Schema   `json:"schema"`

	// Recovered-feature additions (SPEC_FULL §3).
	Tags     []string `json:"tags,omitempty"`
	Schedule string   `json:"schedule,omitempty"`

	Checksum string `json:"checksum,omitempty"`
}

// StepCount returns the number of steps, matching the persisted step_count attribute.
func (s *Script) StepCount() int { return len(s.Steps) }

// Validate enforces the Script invariants: non-empty, every variable
// referenced by an action is declared, and the schema has no duplicates.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return errkind.New(errkind.SchemaMismatch, "script must have at least one step")
	}
	if err := s.Schema.Validate(); err != nil {
		return err
	}
	if s.Schedule != "" && !gronx.IsValid(s.Schedule) {
		return errkind.Newf(errkind.SchemaMismatch, "invalid cron schedule %q", s.Schedule)
	}
	for i, a := range s.Steps {
		if a.BoundVariable != "" {
			if _, ok := s.Schema.ByName(a.BoundVariable); !ok {
				return errkind.Newf(errkind.SchemaMismatch, "step %d references undeclared variable %q", i+1, a.BoundVariable)
			}
		}
		for _, field := range []string{a.URL, a.Value, a.Option} {
			for _, name := range referencedVariables(field) {
				if _, ok := s.Schema.ByName(name); !ok {
					return errkind.Newf(errkind.SchemaMismatch, "step %d references undeclared variable %q", i+1, name)
				}
			}
		}
	}
	return nil
}

// Summary is a lightweight Script descriptor for listing.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Created   time.Time `json:"created"`
	LastRun   time.Time `json:"last_run,omitempty"`
	StepCount int       `json:"step_count"`
	Origin    Origin    `json:"origin"`
	Tags      []string  `json:"tags,omitempty"`
}

func (s *Script) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Name:      s.Name,
		Created:   s.Created,
		LastRun:   s.LastRun,
		StepCount: s.StepCount(),
		Origin:    s.Origin,
		Tags:      s.Tags,
	}
}
