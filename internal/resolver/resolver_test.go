package resolver

import (
	"testing"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

func TestResolve_AllTokenSpellings(t *testing.T) {
	values := map[string]string{"user": "jane doe"}
	tests := []string{"${user}", "{{user}}", "{user}"}
	for _, tok := range tests {
		a := automation.Action{Kind: automation.ActionFill, Value: tok}
		out, err := Resolve(a, values)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tok, err)
		}
		if out.Value != "jane doe" {
			t.Errorf("Resolve(%q) = %q, want %q", tok, out.Value, "jane doe")
		}
	}
}

func TestResolve_URLEncodesOnlyInURLField(t *testing.T) {
	values := map[string]string{"q": "hello world"}
	a := automation.Action{Kind: automation.ActionNavigate, URL: "https://example.com/search?q=${q}", Value: "${q}"}
	out, err := Resolve(a, values)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.URL != "https://example.com/search?q=hello+world" {
		t.Errorf("url = %q", out.URL)
	}
	if out.Value != "hello world" {
		t.Errorf("value = %q, want raw (not encoded)", out.Value)
	}
}

func TestResolve_MissingVariable(t *testing.T) {
	a := automation.Action{Kind: automation.ActionFill, Value: "${missing_one} and ${missing_two}"}
	_, err := Resolve(a, map[string]string{})
	if errkind.KindOf(err) != errkind.MissingVariable {
		t.Fatalf("expected MissingVariable, got %v", err)
	}
}

func TestResolve_NoTokensPassesThrough(t *testing.T) {
	a := automation.Action{Kind: automation.ActionFill, Value: "literal value"}
	out, err := Resolve(a, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Value != "literal value" {
		t.Errorf("value = %q", out.Value)
	}
}
