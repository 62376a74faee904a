package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"weaver/internal/diag"
	"weaver/internal/source"
)

// Pretty renders diagnostics for humans. It walks bag.Items() in order, so
// callers usually Sort the bag first. Each entry looks like
//
//	snap.yaml:12:9: ERROR CFG1002: two advices share layer (0,0,1)
//	  target: M:Shop.C.Save()
//	  aspect: Logging
//	   12 |       - {kind: override, target: "M:Shop.C.Save()"}
//	      |         ^~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
//
// followed by notes when ShowNotes is set.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	for i := range items {
		d := &items[i]
		if i > 0 {
			fmt.Fprintln(w)
		}
		loc := location(fs, d.Primary, opts.PathMode)
		sev := p.severity(d.Severity)
		if loc != "" {
			fmt.Fprintf(w, "%s: ", p.bold(loc))
		}
		fmt.Fprintf(w, "%s %s: %s\n", sev, p.bold(d.Code.ID()), d.Message)
		if d.Target != "" {
			fmt.Fprintf(w, "  %s %s\n", p.faint("target:"), d.Target)
		}
		if d.Aspect != "" {
			fmt.Fprintf(w, "  %s %s\n", p.faint("aspect:"), d.Aspect)
		}
		writeContext(w, fs, d.Primary, opts.Context, p)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nloc := location(fs, n.Span, opts.PathMode)
			if nloc != "" {
				fmt.Fprintf(w, "  %s %s: %s\n", p.note("note:"), nloc, n.Msg)
			} else {
				fmt.Fprintf(w, "  %s %s\n", p.note("note:"), n.Msg)
			}
		}
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode) string {
	if fs == nil {
		return ""
	}
	f := fs.Get(sp.File)
	if f == nil {
		return ""
	}
	start, _ := fs.Resolve(sp)
	path := formatPath(mode, f.FormatPath, fs.BaseDir())
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
}

func writeContext(w io.Writer, fs *source.FileSet, sp source.Span, context int8, p palette) {
	if fs == nil || context < 0 {
		return
	}
	f := fs.Get(sp.File)
	if f == nil {
		return
	}
	start, end := fs.Resolve(sp)
	from := start.Line
	if uint32(context) < from {
		from -= uint32(context)
	} else {
		from = 1
	}
	to := start.Line + uint32(context)
	gutter := len(fmt.Sprint(to))
	for ln := from; ln <= to; ln++ {
		text := f.GetLine(ln)
		if text == "" && ln != start.Line {
			continue
		}
		fmt.Fprintf(w, " %*d %s %s\n", gutter, ln, p.faint("|"), text)
		if ln != start.Line {
			continue
		}
		width := 1
		if end.Line == start.Line && end.Col > start.Col {
			width = int(end.Col - start.Col)
		} else if rest := len(text) - int(start.Col) + 1; rest > 1 {
			width = rest
		}
		marker := "^" + strings.Repeat("~", width-1)
		pad := strings.Repeat(" ", int(start.Col)-1)
		fmt.Fprintf(w, " %*s %s %s%s\n", gutter, "", p.faint("|"), pad, p.caret(marker))
	}
}

type palette struct {
	enabled bool
}

func newPalette(enabled bool) palette {
	return palette{enabled: enabled}
}

func (p palette) paint(attrs []color.Attribute, s string) string {
	if !p.enabled {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (p palette) severity(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return p.paint([]color.Attribute{color.FgRed, color.Bold}, sev.String())
	case diag.SevWarning:
		return p.paint([]color.Attribute{color.FgYellow, color.Bold}, sev.String())
	default:
		return p.paint([]color.Attribute{color.FgCyan}, sev.String())
	}
}

func (p palette) bold(s string) string  { return p.paint([]color.Attribute{color.Bold}, s) }
func (p palette) faint(s string) string { return p.paint([]color.Attribute{color.Faint}, s) }
func (p palette) note(s string) string  { return p.paint([]color.Attribute{color.FgBlue}, s) }
func (p palette) caret(s string) string { return p.paint([]color.Attribute{color.FgGreen}, s) }
