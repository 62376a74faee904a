// Package project locates and reads the weave.toml manifest.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrWeaveSectionMissing indicates that [weave] is missing.
	ErrWeaveSectionMissing = errors.New("missing [weave]")
	// ErrInputMissing indicates that [weave].input is missing or empty.
	ErrInputMissing = errors.New("missing [weave].input")
)

// Manifest is the resolved [weave] section. Paths are absolute.
type Manifest struct {
	Path   string
	Root   string
	Input  string
	Output string
	// Jobs and MaxDiagnostics are zero when the manifest leaves them out.
	Jobs           int
	MaxDiagnostics int
	Cache          string
	// Defined lists the keys present in the file, e.g. "jobs".
	Defined map[string]bool
}

type manifestFile struct {
	Weave struct {
		Input          string `toml:"input"`
		Output         string `toml:"output"`
		Jobs           int    `toml:"jobs"`
		MaxDiagnostics int    `toml:"max_diagnostics"`
		Cache          string `toml:"cache"`
	} `toml:"weave"`
}

var manifestKeys = []string{"input", "output", "jobs", "max_diagnostics", "cache"}

// LoadManifest parses weave.toml at path.
func LoadManifest(path string) (Manifest, error) {
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("weave") {
		return Manifest{}, fmt.Errorf("%s: %w", path, ErrWeaveSectionMissing)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Manifest{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	w := cfg.Weave
	input := strings.TrimSpace(w.Input)
	if !meta.IsDefined("weave", "input") || input == "" {
		return Manifest{}, fmt.Errorf("%s: %w", path, ErrInputMissing)
	}
	if w.Jobs < 0 {
		return Manifest{}, fmt.Errorf("%s: [weave].jobs must not be negative", path)
	}
	if w.MaxDiagnostics < 0 {
		return Manifest{}, fmt.Errorf("%s: [weave].max_diagnostics must not be negative", path)
	}

	root := filepath.Dir(path)
	m := Manifest{
		Path:           path,
		Root:           root,
		Jobs:           w.Jobs,
		MaxDiagnostics: w.MaxDiagnostics,
		Defined:        make(map[string]bool),
	}
	for _, key := range manifestKeys {
		if meta.IsDefined("weave", key) {
			m.Defined[key] = true
		}
	}
	if m.Input, err = ResolvePath(root, input); err != nil {
		return Manifest{}, fmt.Errorf("%s: [weave].input: %w", path, err)
	}
	output := strings.TrimSpace(w.Output)
	if output == "" {
		output = "woven"
	}
	if m.Output, err = ResolvePath(root, output); err != nil {
		return Manifest{}, fmt.Errorf("%s: [weave].output: %w", path, err)
	}
	if cache := strings.TrimSpace(w.Cache); cache != "" {
		if m.Cache, err = ResolvePath(root, cache); err != nil {
			return Manifest{}, fmt.Errorf("%s: [weave].cache: %w", path, err)
		}
	}
	return m, nil
}

// ResolvePath joins a manifest-relative path to root. Absolute paths and
// paths escaping root are rejected.
func ResolvePath(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%q must be relative", rel)
	}
	full := filepath.Join(root, filepath.Clean(filepath.FromSlash(rel)))
	if !pathWithin(root, full) {
		return "", fmt.Errorf("%q escapes the project root", rel)
	}
	return full, nil
}

func pathWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
