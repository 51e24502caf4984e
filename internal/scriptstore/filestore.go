package scriptstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

// FileStore persists one JSON file per Script plus an index.json summary
// file, using the same atomic temp-file-then-rename write Manager.Save uses
// for session files.
type FileStore struct {
	mu   sync.RWMutex
	root string
}

// NewFileStore opens (creating if needed) a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create script store root: %w", err)
	}
	return &FileStore{root: dir}, nil
}

func (f *FileStore) scriptPath(id string) string {
	return filepath.Join(f.root, id+".json")
}

func (f *FileStore) indexPath() string {
	return filepath.Join(f.root, "index.json")
}

// Save computes the Script's checksum, redacts sensitive variable values,
// and atomically writes both the script file and the refreshed index.
func (f *FileStore) Save(script *automation.Script) (string, error) {
	if err := script.Validate(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if script.ID == "" {
		script.ID = uuid.NewString()
	}
	persisted := *script
	persisted.Schema = script.Schema.RedactSensitive()
	persisted.Checksum = checksumScript(&persisted)

	if err := f.atomicWriteJSON(f.scriptPath(script.ID), &persisted); err != nil {
		return "", err
	}
	script.Checksum = persisted.Checksum

	if err := f.rebuildIndex(); err != nil {
		return "", err
	}
	return script.ID, nil
}

func (f *FileStore) Load(id string) (*automation.Script, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var s automation.Script
	if err := readJSON(f.scriptPath(id), &s); err != nil {
		return nil, errkind.Newf(errkind.SchemaMismatch, "load script %s: %v", id, err)
	}
	return &s, nil
}

func (f *FileStore) List() ([]automation.Summary, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var index []automation.Summary
	if err := readJSON(f.indexPath(), &index); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.SliceStable(index, func(i, j int) bool { return index[i].Created.After(index[j].Created) })
	return index, nil
}

func (f *FileStore) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.scriptPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return f.rebuildIndex()
}

func (f *FileStore) Export(id string) (*Package, error) {
	s, err := f.Load(id)
	if err != nil {
		return nil, err
	}
	return buildPackage(s), nil
}

// Import validates the package then applies the conflict policy against the
// current name set. ValidateOnly never writes.
func (f *FileStore) Import(pkg *Package, opts ImportOptions) (*ImportPreview, error) {
	if pkg.FormatVersion != packageFormatVersion {
		return nil, errkind.Newf(errkind.SchemaMismatch, "unsupported package version %d", pkg.FormatVersion)
	}
	if err := pkg.Schema.Validate(); err != nil {
		return nil, err
	}
	if err := pkg.ValidateCompatibility(); err != nil {
		return nil, err
	}

	existing, err := f.List()
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(existing))
	for _, s := range existing {
		names[s.Name] = true
	}
	if err := pkg.ValidateDependencies(names); err != nil {
		return nil, err
	}

	preview := &ImportPreview{ScriptName: pkg.Name, ResolvedName: pkg.Name}
	preview.NameConflict = names[pkg.Name]

	if preview.NameConflict {
		switch opts.Conflict {
		case ConflictSkip:
			preview.Problems = append(preview.Problems, "name conflict: skipped")
			return preview, nil
		case ConflictRename:
			preview.ResolvedName = renamedCopy(pkg.Name)
		case ConflictOverwrite:
			// resolved name stays pkg.Name; existing script of that name is replaced below.
		default:
			return nil, errkind.Newf(errkind.SchemaMismatch, "unknown conflict policy %q", opts.Conflict)
		}
	}

	for _, v := range pkg.Schema {
		if mapped, ok := opts.Mapping[v.Name]; ok {
			v.Name = mapped
		}
		if err := v.Validate(); err != nil {
			preview.Problems = append(preview.Problems, err.Error())
		}
	}
	if len(preview.Problems) > 0 {
		return preview, nil
	}
	if opts.ValidateOnly {
		return preview, nil
	}

	script := &automation.Script{
		Name:       preview.ResolvedName,
		Origin:     automation.OriginImported,
		InitialURL: pkg.Metadata.InitialURL,
		Steps:      pkg.Steps,
		Schema:     remapSchema(pkg.Schema, opts.Mapping),
		Tags:       pkg.Metadata.Tags,
	}

	if preview.NameConflict && opts.Conflict == ConflictOverwrite {
		for _, s := range existing {
			if s.Name == pkg.Name {
				script.ID = s.ID
			}
		}
	}

	if _, err := f.Save(script); err != nil {
		return nil, err
	}
	preview.ResolvedName = script.Name
	return preview, nil
}

func remapSchema(schema automation.Schema, mapping map[string]string) automation.Schema {
	out := make(automation.Schema, len(schema))
	for i, v := range schema {
		if mapped, ok := mapping[v.Name]; ok {
			v.Name = mapped
		}
		out[i] = v
	}
	return out
}

func renamedCopy(name string) string {
	return fmt.Sprintf("%s_imported_%d_%s", name, time.Now().UnixNano(), uuid.NewString()[:8])
}

func checksumScript(s *automation.Script) string {
	cp := *s
	cp.Checksum = ""
	data, _ := json.Marshal(cp)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// rebuildIndex scans every persisted script file and regenerates index.json.
// Called under f.mu already held by the caller.
func (f *FileStore) rebuildIndex() error {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return err
	}
	var summaries []automation.Summary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || e.Name() == "index.json" {
			continue
		}
		var s automation.Script
		if err := readJSON(filepath.Join(f.root, e.Name()), &s); err != nil {
			continue // skip unreadable/partial files rather than fail the whole rebuild
		}
		summaries = append(summaries, s.Summary())
	}
	return f.atomicWriteJSON(f.indexPath(), summaries)
}

// atomicWriteJSON writes data via temp-file-then-rename, mirroring
// sessions.Manager.Save's durability guarantee.
func (f *FileStore) atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.root, "script-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	cleanup = false
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
