package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredWithoutColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	orig := Version
	defer func() { Version = orig }()

	tests := []struct{ in, want string }{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"nightly", "nightly"},
	}
	for _, tt := range tests {
		Version = tt.in
		if got := Colored(); got != tt.want {
			t.Errorf("Colored() with %q = %q", tt.in, got)
		}
	}
}

func TestFingerprint(t *testing.T) {
	origV, origC := Version, GitCommit
	defer func() { Version, GitCommit = origV, origC }()

	Version, GitCommit = "1.2.3", ""
	if got := Fingerprint(); got != "1.2.3" {
		t.Fatalf("Fingerprint() = %q", got)
	}
	GitCommit = "abc123"
	if got := Fingerprint(); got != "1.2.3+abc123" {
		t.Fatalf("Fingerprint() = %q", got)
	}
}
