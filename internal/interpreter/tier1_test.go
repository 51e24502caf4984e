package interpreter

import (
	"testing"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
)

func TestMatchTier1(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		wantOK      bool
		wantKind    automation.ActionKind
		wantURL     string
		wantValue   string
	}{
		{name: "navigate bare domain", instruction: "go to example.com", wantOK: true, wantKind: automation.ActionNavigate, wantURL: "https://example.com"},
		{name: "navigate with scheme", instruction: "open https://example.com", wantOK: true, wantKind: automation.ActionNavigate, wantURL: "https://example.com"},
		{name: "click", instruction: "click the submit button", wantOK: true, wantKind: automation.ActionClick},
		{name: "fill", instruction: `type "jane@example.com" into email field`, wantOK: true, wantKind: automation.ActionFill, wantValue: "jane@example.com"},
		{name: "fill preserves quoted case", instruction: `type "P@ssw0rd" into the Password field`, wantOK: true, wantKind: automation.ActionFill, wantValue: "P@ssw0rd"},
		{name: "search", instruction: "search for running shoes", wantOK: true, wantKind: automation.ActionFill, wantValue: "running shoes"},
		{name: "wait", instruction: "wait 5 seconds", wantOK: true, wantKind: automation.ActionWait},
		{name: "scroll down", instruction: "scroll down", wantOK: true, wantKind: automation.ActionScroll},
		{name: "unmatched free text", instruction: "please do the thing", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := matchTier1(tt.instruction)
			if ok != tt.wantOK {
				t.Fatalf("matchTier1(%q) ok = %v, want %v", tt.instruction, ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if a.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", a.Kind, tt.wantKind)
			}
			if tt.wantURL != "" && a.URL != tt.wantURL {
				t.Errorf("url = %q, want %q", a.URL, tt.wantURL)
			}
			if tt.wantValue != "" && a.Value != tt.wantValue {
				t.Errorf("value = %q, want %q", a.Value, tt.wantValue)
			}
		})
	}
}

func TestNormalizeInstruction(t *testing.T) {
	got := normalizeInstruction("  Click   the   Button  ")
	want := "click the button"
	if got != want {
		t.Errorf("normalizeInstruction = %q, want %q", got, want)
	}
}

func TestNormalizeInstruction_PreservesQuotedCase(t *testing.T) {
	got := normalizeInstruction(`Type "P@ssw0rd" Into Field`)
	want := `type "P@ssw0rd" into field`
	if got != want {
		t.Errorf("normalizeInstruction = %q, want %q", got, want)
	}
}
