package automation

import (
	"regexp"

	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

// VariableKind enumerates the variable kinds a detector can classify a
// literal value as (spec §4.3).
type VariableKind string

const (
	VarText     VariableKind = "text"
	VarEmail    VariableKind = "email"
	VarPhone    VariableKind = "phone"
	VarDate     VariableKind = "date"
	VarURL      VariableKind = "url"
	VarNumber   VariableKind = "number"
	VarPassword VariableKind = "password"
	VarSecret   VariableKind = "secret"
	VarFile     VariableKind = "file"
)

var nameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ReservedNames may never be used as a variable name.
var ReservedNames = map[string]bool{
	"id": true, "name": true, "type": true, "value": true,
	"system": true, "admin": true,
}

// Variable is one entry of a Script's Variable Schema.
type Variable struct {
	Name      string       `json:"name"`
	Kind      VariableKind `json:"kind"`
	Pattern   string       `json:"pattern,omitempty"`
	Required  bool         `json:"required"`
	Sensitive bool         `json:"sensitive"`
	Default   string       `json:"default,omitempty"`

	// Value is only ever populated transiently in memory while recording;
	// persisted Scripts never carry a value for a sensitive variable, and
	// export packages never carry a value at all (spec invariant).
	Value string `json:"value,omitempty"`
}

// Validate checks name legality and the reserved-name rule.
func (v Variable) Validate() error {
	if !nameRe.MatchString(v.Name) {
		return errkind.Newf(errkind.InvalidName, "variable name %q does not match ^[A-Za-z][A-Za-z0-9_-]*$", v.Name)
	}
	if ReservedNames[v.Name] {
		return errkind.Newf(errkind.ReservedName, "variable name %q is reserved", v.Name)
	}
	if v.Pattern != "" {
		if _, err := regexp.Compile(v.Pattern); err != nil {
			return errkind.Newf(errkind.InvalidName, "variable %q has uncompilable pattern: %v", v.Name, err)
		}
	}
	return nil
}

// Schema is the ordered Variable Schema of a Script. Invariant: no duplicate
// names (enforced by Validate).
type Schema []Variable

// Validate checks the no-duplicate-names invariant and validates every entry.
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, v := range s {
		if seen[v.Name] {
			return errkind.Newf(errkind.SchemaMismatch, "duplicate variable name %q", v.Name)
		}
		seen[v.Name] = true
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ByName finds a variable by name.
func (s Schema) ByName(name string) (Variable, bool) {
	for _, v := range s {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// RedactSensitive returns a copy of the schema with every sensitive
// variable's Value erased — used both by the Script Store on persist and by
// export packages, which additionally erase *all* values.
func (s Schema) RedactSensitive() Schema {
	out := make(Schema, len(s))
	for i, v := range s {
		if v.Sensitive {
			v.Value = ""
		}
		out[i] = v
	}
	return out
}

// RedactAll returns a copy with every variable's Value erased, used for
// export packages which never carry stored values (spec §4.4 invariant).
func (s Schema) RedactAll() Schema {
	out := make(Schema, len(s))
	for i, v := range s {
		v.Value = ""
		out[i] = v
	}
	return out
}
