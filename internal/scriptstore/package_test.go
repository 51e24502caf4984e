package scriptstore

import (
	"testing"

	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

func TestBuildPackage_StampsVersionAndCompatibility(t *testing.T) {
	s := sampleScript("with schedule")
	s.Schedule = "0 0 * * *"
	pkg := buildPackage(s)

	if pkg.Version == "" {
		t.Error("expected a non-empty version")
	}
	if pkg.Metadata.CreatedAt.IsZero() {
		t.Error("expected metadata.created_at to be stamped")
	}
	found := false
	for _, f := range pkg.Metadata.Compatibility.Features {
		if f == "scheduling" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected scheduling feature listed, got %v", pkg.Metadata.Compatibility.Features)
	}
}

func TestPackage_ValidateCompatibilityRejectsUnknownFeature(t *testing.T) {
	pkg := &Package{Metadata: Metadata{Compatibility: Compatibility{Features: []string{"time-travel"}}}}
	if err := pkg.ValidateCompatibility(); errkind.KindOf(err) != errkind.SchemaMismatch {
		t.Fatalf("expected SchemaMismatch, got %v", err)
	}
}

func TestPackage_ValidateDependenciesRejectsMissing(t *testing.T) {
	pkg := &Package{Dependencies: []string{"base_flow"}}
	if err := pkg.ValidateDependencies(map[string]bool{}); errkind.KindOf(err) != errkind.SchemaMismatch {
		t.Fatalf("expected SchemaMismatch, got %v", err)
	}
	if err := pkg.ValidateDependencies(map[string]bool{"base_flow": true}); err != nil {
		t.Fatalf("expected satisfied dependency to pass, got %v", err)
	}
}
