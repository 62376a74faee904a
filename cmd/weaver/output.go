package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"weaver/internal/diagfmt"
	"weaver/internal/emit"
	"weaver/internal/project"
	"weaver/internal/weave"
)

func printDiagnostics(w io.Writer, out *runOutcome, s settings) error {
	switch s.Format {
	case "json":
		return diagfmt.JSON(w, out.bag, out.fs, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
			Max:              s.MaxDiagnostics,
		})
	case "short":
		return diagfmt.Short(w, out.bag, out.fs, true)
	default:
		if out.bag.Len() == 0 {
			return nil
		}
		diagfmt.Pretty(w, out.bag, out.fs, diagfmt.PrettyOpts{
			Color:     !color.NoColor,
			Context:   1,
			ShowNotes: true,
			Max:       s.MaxDiagnostics,
		})
		_, err := fmt.Fprintln(w)
		return err
	}
}

// writeUnits writes every unit below dir and returns how many were written.
func writeUnits(dir string, units []emit.SourceUnit) (int, error) {
	for i, u := range units {
		path, err := project.ResolvePath(dir, u.Path)
		if err != nil {
			return i, fmt.Errorf("unit %s: %w", u.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return i, err
		}
		if err := os.WriteFile(path, []byte(u.Text), 0o644); err != nil {
			return i, err
		}
	}
	return len(units), nil
}

// writeSummary lists the chains and changed constructors of each unit.
func writeSummary(w io.Writer, res *weave.Result) {
	for _, u := range res.Units {
		fmt.Fprintf(w, "%s\n", u.Unit)
		for _, k := range u.Introduced {
			fmt.Fprintf(w, "  introduced %s\n", k)
		}
		for _, c := range u.Chains {
			names := make([]string, 0, len(c.Impls))
			for _, impl := range c.Impls {
				if impl.Inlined() {
					names = append(names, "<inlined>")
					continue
				}
				names = append(names, impl.Name)
			}
			fmt.Fprintf(w, "  chain %s: %s\n", c.Target, strings.Join(names, " <- "))
		}
		for _, c := range u.Overloads.Changed() {
			added := make([]string, 0, len(c.Added))
			for _, a := range c.Added {
				added = append(added, a.Param.Type+" "+a.Param.Name)
			}
			line := fmt.Sprintf("  ctor %s +(%s)", c.Of, strings.Join(added, ", "))
			if c.Deambiguating {
				line += fmt.Sprintf(" deambiguating, forwards to %s", c.ForwardsTo)
			}
			fmt.Fprintln(w, line)
		}
		for _, k := range u.Failed {
			fmt.Fprintf(w, "  failed %s\n", k)
		}
	}
	fmt.Fprintf(w, "%d units, %d failed targets\n", len(res.Units), len(res.Failed))
}
