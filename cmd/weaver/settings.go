package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"weaver/internal/cache"
	"weaver/internal/project"
)

// settings is the effective configuration of one command. Values come from,
// lowest first: defaults, weave.toml, WEAVER_* variables, flags.
type settings struct {
	Input          string `mapstructure:"input"`
	Output         string `mapstructure:"output"`
	Jobs           int    `mapstructure:"jobs"`
	MaxDiagnostics int    `mapstructure:"max_diagnostics"`
	Cache          string `mapstructure:"cache"`
	Format         string `mapstructure:"format"`
	UI             string `mapstructure:"ui"`
	Timings        bool   `mapstructure:"timings"`
	Verbose        bool   `mapstructure:"verbose"`
	LogFormat      string `mapstructure:"log_format"`

	// Manifest is the weave.toml in effect, if any.
	Manifest string `mapstructure:"-"`
}

const noInputMessage = "no snapshot given and no weave.toml found\nplease specify the snapshot explicitly, e.g.:\n  weaver weave path/to/snapshot.yaml"

// flagKeys maps flag names to setting keys.
var flagKeys = map[string]string{
	"output":          "output",
	"jobs":            "jobs",
	"max-diagnostics": "max_diagnostics",
	"cache":           "cache",
	"format":          "format",
	"ui":              "ui",
	"timings":         "timings",
	"verbose":         "verbose",
	"log-format":      "log_format",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("input", "")
	v.SetDefault("output", "woven")
	v.SetDefault("jobs", 1)
	v.SetDefault("max_diagnostics", 100)
	v.SetDefault("cache", "")
	v.SetDefault("format", "pretty")
	v.SetDefault("ui", "auto")
	v.SetDefault("timings", false)
	v.SetDefault("verbose", false)
	v.SetDefault("log_format", "json")
	v.SetEnvPrefix("WEAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadSettings resolves the settings for cmd. args may name the snapshot;
// otherwise the manifest found from startDir supplies it.
func loadSettings(cmd *cobra.Command, args []string, startDir string) (settings, error) {
	v := newViper()

	m, found, err := project.Discover(startDir)
	if err != nil {
		return settings{}, err
	}
	if found {
		if err := v.MergeConfigMap(manifestValues(m)); err != nil {
			return settings{}, fmt.Errorf("%s: %w", m.Path, err)
		}
	}

	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return settings{}, err
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	if found {
		s.Manifest = m.Path
	}
	if len(args) > 0 {
		s.Input = args[0]
	}
	if strings.TrimSpace(s.Input) == "" {
		return settings{}, fmt.Errorf("%s", noInputMessage)
	}
	return s, s.validate()
}

func manifestValues(m project.Manifest) map[string]any {
	out := map[string]any{"input": m.Input}
	if m.Defined["output"] {
		out["output"] = m.Output
	}
	if m.Defined["jobs"] {
		out["jobs"] = m.Jobs
	}
	if m.Defined["max_diagnostics"] {
		out["max_diagnostics"] = m.MaxDiagnostics
	}
	if m.Defined["cache"] {
		out["cache"] = m.Cache
	}
	return out
}

func (s settings) validate() error {
	if s.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", s.Jobs)
	}
	if s.MaxDiagnostics < 0 {
		return fmt.Errorf("max-diagnostics must not be negative, got %d", s.MaxDiagnostics)
	}
	switch s.Format {
	case "pretty", "short", "json":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, short or json)", s.Format)
	}
	switch s.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q (must be json or console)", s.LogFormat)
	}
	_, err := readUIMode(s.UI)
	return err
}

// openCache opens the configured cache. It returns nil when caching is off;
// "auto" selects the user cache directory.
func (s settings) openCache() (*cache.DiskCache, error) {
	switch s.Cache {
	case "", "off":
		return nil, nil
	case "auto":
		return cache.OpenDefault("weaver")
	default:
		return cache.Open(s.Cache)
	}
}

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch mode := uiMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI resolves auto against stdout, where the progress view draws.
func shouldUseTUI(mode uiMode) bool {
	if mode == uiModeAuto {
		return isTerminal(os.Stdout)
	}
	return mode == uiModeOn
}
