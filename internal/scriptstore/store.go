// Package scriptstore implements C4: Script persistence and CRUD, plus the
// portable export/import package format.
package scriptstore

import (
	"github.com/marcelontime/browser-automation-sub001/internal/automation"
)

// ConflictPolicy controls how Import resolves a name collision with an
// already-persisted Script (spec §4.3/§4.4).
type ConflictPolicy string

const (
	ConflictRename    ConflictPolicy = "rename"
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// ImportOptions controls one Import call.
type ImportOptions struct {
	Conflict     ConflictPolicy
	Mapping      map[string]string // old variable name -> new variable name
	ValidateOnly bool
}

// ImportPreview is returned when ValidateOnly is set, or alongside a
// successful apply, describing what would happen / happened.
type ImportPreview struct {
	ScriptName   string   `json:"script_name"`
	NameConflict bool     `json:"name_conflict"`
	ResolvedName string   `json:"resolved_name"`
	Problems     []string `json:"problems,omitempty"`
}

// Store is the Script Store's CRUD + export/import contract.
type Store interface {
	Save(script *automation.Script) (string, error)
	Load(id string) (*automation.Script, error)
	List() ([]automation.Summary, error)
	Delete(id string) error
	Export(id string) (*Package, error)
	Import(pkg *Package, opts ImportOptions) (*ImportPreview, error)
}
