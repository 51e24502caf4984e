package scriptstore

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

// packageFormatVersion is bumped whenever the Package wire shape changes
// incompatibly; Import rejects any other version.
const packageFormatVersion = 1

// packageSchemaVersion is the semver stamped into every exported Package's
// version field (spec §6: "name, version (semver), author?, description?,
// ..."). It tracks the Script/Action wire shape, independent of
// packageFormatVersion which governs the envelope itself.
const packageSchemaVersion = "1.0.0"

// supportedFeatures is the set of optional Script capabilities this build
// understands; Import rejects a package whose compatibility.features lists
// anything outside this set.
var supportedFeatures = map[string]bool{
	"variables":  true,
	"scheduling": true,
	"tags":       true,
}

// Package is the portable export format (spec §4.4, §6): name, version,
// schema, actions, metadata, dependencies. It never carries stored variable
// values (RedactAll is applied unconditionally at Export time).
type Package struct {
	FormatVersion int               `json:"format_version"`
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	Author        string            `json:"author,omitempty"`
	Description   string            `json:"description,omitempty"`
	Dependencies  []string          `json:"dependencies,omitempty"`
	Schema        automation.Schema `json:"schema"`
	Steps         []automation.Action `json:"steps"`
	Metadata      Metadata          `json:"metadata"`
	Checksum      string            `json:"checksum"`
}

// Metadata is descriptive, non-functional info about the exported script.
type Metadata struct {
	Origin        automation.Origin `json:"origin"`
	StepCount     int               `json:"step_count"`
	InitialURL    string            `json:"initial_url,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Compatibility Compatibility     `json:"compatibility"`
}

// Compatibility lists the optional features a Package's Script exercises,
// so an older build can refuse to import a Script it can't fully honor.
type Compatibility struct {
	Features []string `json:"features,omitempty"`
}

// buildPackage converts a Script into its portable, redacted Package form
// and stamps a content checksum over the redacted payload.
func buildPackage(s *automation.Script) *Package {
	pkg := &Package{
		FormatVersion: packageFormatVersion,
		Name:          s.Name,
		Version:       packageSchemaVersion,
		Schema:        s.Schema.RedactAll(),
		Steps:         s.Steps,
		Metadata: Metadata{
			Origin:        s.Origin,
			StepCount:     s.StepCount(),
			InitialURL:    s.InitialURL,
			Tags:          s.Tags,
			CreatedAt:     s.Created,
			Compatibility: Compatibility{Features: scriptFeatures(s)},
		},
	}
	pkg.Checksum = pkg.computeChecksum()
	return pkg
}

// scriptFeatures reports which optional capabilities s exercises, for the
// package's compatibility.features list.
func scriptFeatures(s *automation.Script) []string {
	var features []string
	if len(s.Schema) > 0 {
		features = append(features, "variables")
	}
	if s.Schedule != "" {
		features = append(features, "scheduling")
	}
	if len(s.Tags) > 0 {
		features = append(features, "tags")
	}
	return features
}

// ValidateCompatibility rejects a package requiring a feature this build
// doesn't understand.
func (p *Package) ValidateCompatibility() error {
	for _, f := range p.Metadata.Compatibility.Features {
		if !supportedFeatures[f] {
			return errkind.Newf(errkind.SchemaMismatch, "unsupported feature %q", f)
		}
	}
	return nil
}

// ValidateDependencies rejects a package whose required dependencies aren't
// all present in knownNames (the importing store's current script names).
func (p *Package) ValidateDependencies(knownNames map[string]bool) error {
	for _, dep := range p.Dependencies {
		if !knownNames[dep] {
			return errkind.Newf(errkind.SchemaMismatch, "missing dependency %q", dep)
		}
	}
	return nil
}

// computeChecksum hashes the package contents excluding the checksum field
// itself.
func (p *Package) computeChecksum() string {
	cp := *p
	cp.Checksum = ""
	data, _ := json.Marshal(cp)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Marshal gzip-compresses the JSON-encoded package into a portable byte
// blob. The export_script/import_script handlers do not use this form: they
// send and receive the package as a plain JSON object.
func (p *Package) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gw).Encode(p); err != nil {
		return nil, fmt.Errorf("encode package: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("compress package: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalPackage decompresses and decodes a package, verifying its
// checksum.
func UnmarshalPackage(data []byte) (*Package, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress package: %w", err)
	}
	defer gr.Close()

	var pkg Package
	if err := json.NewDecoder(gr).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("decode package: %w", err)
	}
	want := pkg.Checksum
	if pkg.computeChecksum() != want {
		return nil, errkind.New(errkind.SchemaMismatch, "package checksum mismatch")
	}
	if pkg.FormatVersion != packageFormatVersion {
		return nil, errkind.Newf(errkind.SchemaMismatch, "unsupported package format version %d", pkg.FormatVersion)
	}
	return &pkg, nil
}
