package automation

import (
	"testing"

	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

func TestScript_ValidateRejectsEmptySteps(t *testing.T) {
	s := &Script{}
	if err := s.Validate(); errkind.KindOf(err) != errkind.SchemaMismatch {
		t.Fatalf("expected SchemaMismatch, got %v", err)
	}
}

func TestScript_ValidateRejectsUndeclaredVariable(t *testing.T) {
	s := &Script{
		Steps: []Action{{Kind: ActionFill, BoundVariable: "username"}},
	}
	if err := s.Validate(); errkind.KindOf(err) != errkind.SchemaMismatch {
		t.Fatalf("expected SchemaMismatch, got %v", err)
	}
}

func TestScript_ValidateRejectsUndeclaredTokenInValue(t *testing.T) {
	s := &Script{
		Steps: []Action{{Kind: ActionFill, Value: "${username}"}},
	}
	if err := s.Validate(); errkind.KindOf(err) != errkind.SchemaMismatch {
		t.Fatalf("expected SchemaMismatch for a raw ${} token with no BoundVariable, got %v", err)
	}
}

func TestScript_ValidateAcceptsDeclaredTokenInValue(t *testing.T) {
	s := &Script{
		Steps:  []Action{{Kind: ActionFill, Value: "${username}"}},
		Schema: Schema{{Name: "username", Kind: VarText}},
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestScript_ValidateAcceptsDeclaredVariable(t *testing.T) {
	s := &Script{
		Steps:  []Action{{Kind: ActionFill, BoundVariable: "username"}},
		Schema: Schema{{Name: "username", Kind: VarText}},
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestScript_ValidateRejectsInvalidSchedule(t *testing.T) {
	s := &Script{
		Steps:    []Action{{Kind: ActionNavigate}},
		Schedule: "not a cron expression",
	}
	if err := s.Validate(); errkind.KindOf(err) != errkind.SchemaMismatch {
		t.Fatalf("expected SchemaMismatch for bad schedule, got %v", err)
	}
}

func TestScript_ValidateAcceptsValidSchedule(t *testing.T) {
	s := &Script{
		Steps:    []Action{{Kind: ActionNavigate}},
		Schedule: "0 0 * * *",
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestScript_ValidateAcceptsEmptySchedule(t *testing.T) {
	s := &Script{Steps: []Action{{Kind: ActionNavigate}}}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestScript_Summary(t *testing.T) {
	s := &Script{
		ID:     "abc",
		Name:   "login flow",
		Origin: OriginRecorded,
		Tags:   []string{"auth"},
		Steps:  []Action{{Kind: ActionNavigate}, {Kind: ActionClick}},
	}
	sum := s.Summary()
	if sum.StepCount != 2 {
		t.Fatalf("step count = %d, want 2", sum.StepCount)
	}
	if sum.ID != s.ID || sum.Name != s.Name || sum.Origin != s.Origin {
		t.Fatalf("summary fields do not mirror the script: %+v", sum)
	}
}

func TestSchema_ValidateRejectsDuplicateNames(t *testing.T) {
	s := Schema{{Name: "user", Kind: VarText}, {Name: "user", Kind: VarText}}
	if err := s.Validate(); errkind.KindOf(err) != errkind.SchemaMismatch {
		t.Fatalf("expected SchemaMismatch, got %v", err)
	}
}

func TestSchema_ByName(t *testing.T) {
	s := Schema{{Name: "user", Kind: VarText}, {Name: "pass", Kind: VarPassword}}
	if v, ok := s.ByName("pass"); !ok || v.Kind != VarPassword {
		t.Fatalf("ByName(pass) = %+v, %v", v, ok)
	}
	if _, ok := s.ByName("missing"); ok {
		t.Fatal("expected not found")
	}
}

func TestSchema_RedactSensitiveOnlyErasesSensitiveValues(t *testing.T) {
	s := Schema{
		{Name: "user", Kind: VarText, Value: "jane"},
		{Name: "pass", Kind: VarPassword, Sensitive: true, Value: "hunter2"},
	}
	redacted := s.RedactSensitive()
	if redacted[0].Value != "jane" {
		t.Fatalf("non-sensitive value was erased: %+v", redacted[0])
	}
	if redacted[1].Value != "" {
		t.Fatalf("sensitive value was not erased: %+v", redacted[1])
	}
	// original must be untouched
	if s[1].Value != "hunter2" {
		t.Fatalf("RedactSensitive mutated the original schema")
	}
}

func TestSchema_RedactAllErasesEveryValue(t *testing.T) {
	s := Schema{{Name: "user", Kind: VarText, Value: "jane"}}
	redacted := s.RedactAll()
	if redacted[0].Value != "" {
		t.Fatalf("expected value erased, got %q", redacted[0].Value)
	}
}

func TestVariable_ValidateRejectsReservedName(t *testing.T) {
	v := Variable{Name: "admin", Kind: VarText}
	if err := v.Validate(); errkind.KindOf(err) != errkind.ReservedName {
		t.Fatalf("expected ReservedName, got %v", err)
	}
}

func TestVariable_ValidateRejectsBadName(t *testing.T) {
	v := Variable{Name: "1bad", Kind: VarText}
	if err := v.Validate(); errkind.KindOf(err) != errkind.InvalidName {
		t.Fatalf("expected InvalidName, got %v", err)
	}
}

func TestVariable_ValidateRejectsUncompilablePattern(t *testing.T) {
	v := Variable{Name: "code", Kind: VarText, Pattern: "(unclosed"}
	if err := v.Validate(); errkind.KindOf(err) != errkind.InvalidName {
		t.Fatalf("expected InvalidName, got %v", err)
	}
}
