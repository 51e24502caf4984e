package recorder

import (
	"testing"
	"time"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
)

func fillAction(value, label, fieldType, instruction string) automation.Action {
	return automation.Action{
		Kind:                   automation.ActionFill,
		Value:                  value,
		OriginatingInstruction: instruction,
		Timestamp:              time.Now(),
		Result: &automation.Result{
			Success:         true,
			TargetFieldType: fieldType,
			TargetLabel:     label,
		},
	}
}

func TestRecorder_SyntheticInitialNavigate(t *testing.T) {
	r := New()
	r.Start("script")
	r.Observe(fillAction("jane@example.com", "email", "", ""), "https://example.com")
	script := r.Stop()

	if len(script.Steps) != 2 {
		t.Fatalf("expected synthetic navigate + fill, got %d steps", len(script.Steps))
	}
	if script.Steps[0].Kind != automation.ActionNavigate || script.Steps[0].URL != "https://example.com" {
		t.Fatalf("expected synthetic navigate first, got %+v", script.Steps[0])
	}
	if script.InitialURL != "https://example.com" {
		t.Errorf("initial_url = %q", script.InitialURL)
	}
}

func TestRecorder_NoSyntheticNavigateWhenSeen(t *testing.T) {
	r := New()
	r.Start("script")
	r.Observe(automation.Action{Kind: automation.ActionNavigate, URL: "https://example.com", Result: &automation.Result{Success: true}}, "https://example.com")
	r.Observe(fillAction("jane@example.com", "email", "", ""), "https://example.com")
	script := r.Stop()

	if len(script.Steps) != 2 {
		t.Fatalf("expected exactly 2 steps, got %d", len(script.Steps))
	}
}

func TestRecorder_InfersEmailAndBindsVariable(t *testing.T) {
	r := New()
	r.Start("script")
	r.Observe(automation.Action{Kind: automation.ActionNavigate, URL: "https://example.com", Result: &automation.Result{Success: true}}, "https://example.com")
	r.Observe(fillAction("jane@example.com", "email", "", ""), "https://example.com")
	script := r.Stop()

	if len(script.Schema) != 1 {
		t.Fatalf("expected 1 inferred variable, got %d", len(script.Schema))
	}
	v := script.Schema[0]
	if v.Kind != automation.VarEmail {
		t.Errorf("kind = %v, want email", v.Kind)
	}
	if v.Name != "email" {
		t.Errorf("name = %q, want email", v.Name)
	}
	fill := script.Steps[1]
	if fill.BoundVariable != "email" || fill.Value != "${email}" {
		t.Errorf("expected literal replaced by a ${email} token, got %+v", fill)
	}
}

func TestRecorder_PasswordSensitiveErased(t *testing.T) {
	r := New()
	r.Start("script")
	r.Observe(automation.Action{Kind: automation.ActionNavigate, URL: "https://example.com", Result: &automation.Result{Success: true}}, "https://example.com")
	r.Observe(fillAction("hunter2", "password", "password", ""), "https://example.com")
	script := r.Stop()

	v := script.Schema[0]
	if v.Kind != automation.VarPassword {
		t.Fatalf("expected password kind, got %v", v.Kind)
	}
	if !v.Sensitive || v.Value != "" {
		t.Errorf("expected sensitive erased value, got %+v", v)
	}
}

func TestRecorder_DedupesEqualValues(t *testing.T) {
	r := New()
	r.Start("script")
	r.Observe(automation.Action{Kind: automation.ActionNavigate, URL: "https://example.com", Result: &automation.Result{Success: true}}, "https://example.com")
	r.Observe(fillAction("jane@example.com", "email", "", ""), "https://example.com")
	r.Observe(fillAction("jane@example.com", "confirm_email", "", ""), "https://example.com")
	script := r.Stop()

	if len(script.Schema) != 1 {
		t.Fatalf("expected values to dedupe to one variable, got %d", len(script.Schema))
	}
	if script.Steps[1].BoundVariable != script.Steps[2].BoundVariable {
		t.Errorf("expected both fills bound to same variable")
	}
}

func TestRecorder_SecretMarker(t *testing.T) {
	r := New()
	r.Start("script")
	r.Observe(automation.Action{Kind: automation.ActionNavigate, URL: "https://example.com", Result: &automation.Result{Success: true}}, "https://example.com")
	r.Observe(fillAction("tok_abc123", "", "", `fill "secret:api_token"`), "https://example.com")
	script := r.Stop()

	v := script.Schema[0]
	if v.Kind != automation.VarSecret {
		t.Fatalf("expected secret kind, got %v", v.Kind)
	}
	if v.Name != "api_token" {
		t.Errorf("expected name from secret marker, got %q", v.Name)
	}
}
