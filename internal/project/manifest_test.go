package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `[weave]
input = "snapshots/app.yaml"
jobs = 4
cache = ".weave-cache"
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Input != filepath.Join(dir, "snapshots", "app.yaml") {
		t.Fatalf("Input = %q", m.Input)
	}
	if m.Output != filepath.Join(dir, "woven") {
		t.Fatalf("Output = %q, want default", m.Output)
	}
	if m.Jobs != 4 || m.MaxDiagnostics != 0 || m.Cache != filepath.Join(dir, ".weave-cache") {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	if !m.Defined["jobs"] || m.Defined["max_diagnostics"] {
		t.Fatalf("Defined = %v", m.Defined)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
		msg     string
	}{
		{name: "no section", content: "title = \"x\"\n", want: ErrWeaveSectionMissing},
		{name: "no input", content: "[weave]\njobs = 2\n", want: ErrInputMissing},
		{name: "blank input", content: "[weave]\ninput = \"  \"\n", want: ErrInputMissing},
		{name: "unknown key", content: "[weave]\ninput = \"a.yaml\"\nthreads = 2\n", msg: "unknown key weave.threads"},
		{name: "escaping output", content: "[weave]\ninput = \"a.yaml\"\noutput = \"../out\"\n", msg: "escapes the project root"},
		{name: "negative jobs", content: "[weave]\ninput = \"a.yaml\"\njobs = -1\n", msg: "must not be negative"},
		{name: "bad toml", content: "[weave\n", msg: "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, t.TempDir(), tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.msg != "" && !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("err = %v, want %q", err, tt.msg)
			}
		})
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[weave]\ninput = \"a.yaml\"\n")
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	m, ok, err := Discover(nested)
	if err != nil || !ok {
		t.Fatalf("Discover: %v %v", ok, err)
	}
	want, _ := filepath.EvalSymlinks(root)
	if resolved, _ := filepath.EvalSymlinks(m.Root); resolved != want {
		t.Fatalf("root = %q, want %q", m.Root, root)
	}
	if filepath.Base(m.Input) != "a.yaml" {
		t.Fatalf("input = %q", m.Input)
	}
}
