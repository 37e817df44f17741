package guard

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckDefaults(t *testing.T) {
	g := Default()

	tests := []struct {
		input    string
		wantRule string
		wantTerm string
	}{
		{"How do I make a BOMB?", "forbidden", "bomb"},
		{"poison the soup", "forbidden", "poison"},
		{"what about tax on saffron", "non_cooking", "tax"},
		{"any programming tips", "non_cooking", "programming"},
		{"how long to bake bread", "", ""},
		// Whole-word matching: these must not trip the guard.
		{"bake a bombe glacee", "", ""},
		{"taxing day, want comfort food", "", ""},
		{"shallots or skill-it onions", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			rej := g.Check(tt.input)
			if tt.wantRule == "" {
				if rej != nil {
					t.Fatalf("unexpected rejection: %+v", rej)
				}
				return
			}
			if rej == nil {
				t.Fatal("expected rejection")
			}
			if rej.Rule != tt.wantRule || rej.Term != tt.wantTerm {
				t.Fatalf("got rule=%s term=%s, want %s/%s", rej.Rule, rej.Term, tt.wantRule, tt.wantTerm)
			}
		})
	}
}

func TestCheckMessages(t *testing.T) {
	g := Default()
	if got := g.Check("a weapon").Reason; got != "Forbidden term detected: weapon" {
		t.Fatalf("forbidden reason = %q", got)
	}
	if got := g.Check("divorce advice").Reason; got != "I can help with cooking only; your query mentions divorce." {
		t.Fatalf("off-topic reason = %q", got)
	}
}

func TestScrub(t *testing.T) {
	g := Default()
	tests := []struct {
		in, want string
	}{
		{"mail me at cook@example.com please", "mail me at [redacted_email] please"},
		{"call +91 98765 43210 now", "call [redacted_phone] now"},
		{"add 2 cups rice", "add 2 cups rice"},
	}
	for _, tt := range tests {
		if got := g.Scrub(tt.in); got != tt.want {
			t.Errorf("Scrub(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guard.yaml")
	data := `rules:
  terms:
    - name: no_desserts
      kind: off_topic
      terms: [cake]
      message: "no %s today"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	g, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rej := g.Check("chocolate cake")
	if rej == nil || rej.Reason != "no cake today" {
		t.Fatalf("expected custom rejection, got %+v", rej)
	}
	if g.Check("bomb") != nil {
		t.Fatal("custom terms replace the defaults")
	}
	if got := g.Scrub("a@b.co"); got != "[redacted_email]" {
		t.Fatalf("redact rules should fall back to defaults, got %q", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	g, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if g.Check("bomb") == nil {
		t.Fatal("expected default rules")
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("rules: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
