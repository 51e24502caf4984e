package scriptstore

import (
	"strconv"
	"strings"
	"testing"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

func sampleScript(name string) *automation.Script {
	return &automation.Script{
		Name:       name,
		InitialURL: "https://example.com",
		Steps: []automation.Action{
			{Kind: automation.ActionNavigate, URL: "https://example.com"},
		},
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	script := sampleScript("login flow")
	id, err := fs.Save(script)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := fs.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "login flow" {
		t.Errorf("loaded name = %q", loaded.Name)
	}
	if loaded.Checksum == "" {
		t.Errorf("expected checksum to be populated")
	}
}

func TestFileStore_ListReflectsIndex(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	fs.Save(sampleScript("a"))
	fs.Save(sampleScript("b"))

	summaries, err := fs.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
}

func TestFileStore_DeleteRemovesFromIndex(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	id, _ := fs.Save(sampleScript("a"))
	fs.Save(sampleScript("b"))

	if err := fs.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	summaries, _ := fs.List()
	if len(summaries) != 1 {
		t.Fatalf("expected 1 remaining summary, got %d", len(summaries))
	}
}

func TestFileStore_SensitiveValuesErasedOnSave(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	script := sampleScript("creds")
	script.Schema = automation.Schema{{Name: "pw", Kind: automation.VarPassword, Sensitive: true, Value: "hunter2"}}
	id, _ := fs.Save(script)

	loaded, _ := fs.Load(id)
	if loaded.Schema[0].Value != "" {
		t.Errorf("expected sensitive value erased, got %q", loaded.Schema[0].Value)
	}
}

func TestFileStore_ExportRedactsAllValues(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	script := sampleScript("creds")
	script.Schema = automation.Schema{{Name: "user", Kind: automation.VarText, Value: "jane"}}
	id, _ := fs.Save(script)

	pkg, err := fs.Export(id)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if pkg.Schema[0].Value != "" {
		t.Errorf("expected all values redacted in export, got %q", pkg.Schema[0].Value)
	}
}

func TestFileStore_ExportImportRoundTrip(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	script := sampleScript("round trip")
	fs.Save(script)
	pkg, err := fs.Export(script.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	data, err := pkg.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := UnmarshalPackage(data)
	if err != nil {
		t.Fatalf("UnmarshalPackage: %v", err)
	}

	preview, err := fs.Import(decoded, ImportOptions{Conflict: ConflictRename})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !preview.NameConflict {
		t.Errorf("expected a name conflict since the script already exists")
	}
	if preview.ResolvedName == pkg.Name {
		t.Errorf("expected renamed copy, got same name %q", preview.ResolvedName)
	}
}

func TestFileStore_ImportSkipOnConflict(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	script := sampleScript("dup")
	fs.Save(script)
	pkg := buildPackage(script)

	preview, err := fs.Import(pkg, ImportOptions{Conflict: ConflictSkip})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(preview.Problems) == 0 {
		t.Errorf("expected skip to be reported in problems")
	}
	summaries, _ := fs.List()
	if len(summaries) != 1 {
		t.Fatalf("expected skip to not persist a new script, got %d", len(summaries))
	}
}

func TestFileStore_ImportRenameIncludesTimestamp(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	script := sampleScript("dup")
	fs.Save(script)
	pkg := buildPackage(script)

	preview, err := fs.Import(pkg, ImportOptions{Conflict: ConflictRename})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	parts := strings.Split(preview.ResolvedName, "_")
	if len(parts) < 4 || parts[1] != "imported" {
		t.Fatalf("expected <name>_imported_<ts>_<rand>, got %q", preview.ResolvedName)
	}
	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		t.Errorf("expected a numeric timestamp component, got %q", parts[2])
	}
}

func TestFileStore_ImportRejectsMissingDependency(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	pkg := buildPackage(sampleScript("needs a base"))
	pkg.Dependencies = []string{"base_flow"}

	if _, err := fs.Import(pkg, ImportOptions{Conflict: ConflictRename}); errkind.KindOf(err) != errkind.SchemaMismatch {
		t.Fatalf("expected SchemaMismatch for missing dependency, got %v", err)
	}
}

func TestFileStore_ImportValidateOnlyDoesNotPersist(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	script := sampleScript("preview me")
	pkg := buildPackage(script)

	_, err := fs.Import(pkg, ImportOptions{ValidateOnly: true})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	summaries, _ := fs.List()
	if len(summaries) != 0 {
		t.Fatalf("expected validate_only to persist nothing, got %d", len(summaries))
	}
}
