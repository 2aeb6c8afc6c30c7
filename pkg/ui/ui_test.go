package ui

import (
	"strings"
	"testing"
)

func TestSanitizeStringKeepsASCII(t *testing.T) {
	in := "plain ascii 123"
	if got := SanitizeString(in); got != in {
		t.Errorf("SanitizeString(%q) = %q", in, got)
	}
}

func TestSanitizeStringDropsEmojiOnLegacy(t *testing.T) {
	// Tests run with piped stderr, so UnicodeTerminal() is false and
	// sanitization is active.
	if UnicodeTerminal() {
		t.Skip("running on a unicode-capable terminal")
	}
	got := SanitizeString("done ✅ ok")
	if strings.Contains(got, "✅") {
		t.Errorf("emoji survived sanitization: %q", got)
	}
	if !strings.Contains(got, "done") || !strings.Contains(got, "ok") {
		t.Errorf("ascii content lost: %q", got)
	}
}

func TestOutcomeStyleKnownOutcomes(t *testing.T) {
	for _, outcome := range []string{"PASS", "FAIL", "SKIP", "OTHER"} {
		// Rendering must not panic and must preserve the text.
		if got := OutcomeStyle(outcome).Render(outcome); !strings.Contains(got, outcome) {
			t.Errorf("OutcomeStyle(%q).Render lost text: %q", outcome, got)
		}
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); got != "[toolhost]" {
		t.Errorf("UserAgent() = %q", got)
	}
}
