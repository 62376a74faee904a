// Package emit serializes a woven declaration model back into source text:
// one unit per input file plus one generated unit per introduced top-level
// type. It makes no semantic decisions; whatever the model holds is written.
package emit

import (
	"fmt"
	"strings"

	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/source"
)

// SourceUnit is the text of one output file.
type SourceUnit struct {
	Path      string
	Text      string
	Generated bool
}

type partKey struct {
	typ  decl.ID
	part int
}

type emitter struct {
	model    *decl.Model
	opt      Options
	reporter diag.Reporter
	rendered map[partKey]bool
}

// Emit renders every file of m. Parts that no file holds are reported as
// EMT5001; a second unit with an already used path is reported as EMT5002
// and skipped.
func Emit(m *decl.Model, opts Options, r diag.Reporter) []SourceUnit {
	if r == nil {
		r = diag.NopReporter{}
	}
	e := &emitter{
		model:    m,
		opt:      opts.withDefaults(),
		reporter: r,
		rendered: make(map[partKey]bool),
	}
	files := m.Files()
	units := make([]SourceUnit, 0, len(files))
	paths := make(map[string]string, len(files))
	for i := range files {
		f := &files[i]
		if prev, dup := paths[f.Path]; dup {
			diag.ReportError(r, diag.EmtUnitClash, source.Span{},
				fmt.Sprintf("unit %s is produced twice (%s)", f.Path, prev)).Emit()
			continue
		}
		paths[f.Path] = e.describe(f)
		units = append(units, e.unit(f))
	}
	e.checkCoverage()
	return units
}

func (e *emitter) describe(f *decl.File) string {
	if f.Generated && len(f.Parts) > 0 {
		return "generated for " + e.model.QualifiedName(f.Parts[0].Type)
	}
	return "input file"
}

func (e *emitter) unit(f *decl.File) SourceUnit {
	w := newWriter(e.opt)
	if f.Generated {
		w.Lines(e.opt.Header)
		w.BlankLine()
	}
	for _, u := range f.Usings {
		w.Line("using " + u + ";")
	}

	ns, open := "", false
	for _, pr := range f.Parts {
		d := e.model.Get(pr.Type)
		if d == nil {
			continue
		}
		if d.Namespace != ns || !open {
			if open {
				w.Close()
				open = false
			}
			ns = d.Namespace
			if ns != "" {
				w.BlankLine()
				w.Line("namespace " + ns)
				w.Open()
				open = true
			}
		}
		w.BlankLine()
		e.typePart(w, pr.Type, pr.Part)
	}
	if open {
		w.Close()
	}
	w.Newline()
	return SourceUnit{Path: f.Path, Text: w.String(), Generated: f.Generated}
}

func (e *emitter) typePart(w *writer, id decl.ID, part int) {
	d := e.model.Get(id)
	e.rendered[partKey{id, part}] = true

	mods := d.Mods
	if len(d.Parts) > 1 {
		mods |= decl.ModPartial
	}
	header := words(d.Access.String(), mods.Words(), d.TypeKind.String(), d.Name)
	if part == 0 {
		e.annotations(w, d)
		if len(d.Bases) > 0 {
			header += " : " + strings.Join(d.Bases, ", ")
		}
	}
	w.Line(header)
	w.Open()
	for _, mid := range e.model.Members(id) {
		m := e.model.Get(mid)
		if m.Kind == decl.KindType {
			for k, p := range m.Parts {
				if p.Host == part {
					w.BlankLine()
					e.typePart(w, mid, k)
				}
			}
			continue
		}
		if m.Part != part {
			continue
		}
		w.BlankLine()
		e.member(w, m)
	}
	w.Close()
}

func (e *emitter) annotations(w *writer, d *decl.Declaration) {
	if d.Doc != "" {
		w.Lines(d.Doc)
	}
	for _, a := range d.Attrs {
		if a.Args == "" {
			w.Line("[" + a.Name + "]")
		} else {
			w.Line("[" + a.Name + "(" + a.Args + ")]")
		}
	}
}

func (e *emitter) member(w *writer, d *decl.Declaration) {
	e.annotations(w, d)
	switch d.Kind {
	case decl.KindField:
		w.Line(words(d.Access.String(), d.Mods.Words(), d.Type, d.Name) + initValue(d.Value) + ";")
	case decl.KindMethod:
		sig := words(d.Access.String(), d.Mods.Words(), d.Type, d.Name) + "(" + params(d.Params) + ")"
		body(w, sig, d.Body)
	case decl.KindConstructor:
		access := d.Access.String()
		if d.IsStatic() {
			access = ""
		}
		sig := words(access, d.Mods.Words(), d.Name) + "(" + params(d.Params) + ")"
		if d.Init != nil {
			sig += " : " + initializer(d.Init)
		}
		body(w, sig, d.Body)
	case decl.KindProperty:
		sig := words(d.Access.String(), d.Mods.Words(), d.Type, d.Name)
		accessors(w, sig, d, [2]string{"get", "set"}, [2]*decl.Accessor{d.Get, d.Set})
	case decl.KindEvent:
		sig := words(d.Access.String(), d.Mods.Words(), "event", d.Type, d.Name)
		if !d.HasBody() {
			w.Line(sig + initValue(d.Value) + ";")
			return
		}
		accessors(w, sig, d, [2]string{"add", "remove"}, [2]*decl.Accessor{d.Add, d.Remove})
	}
}

func body(w *writer, sig string, text *string) {
	if text == nil {
		w.Line(sig + ";")
		return
	}
	w.Line(sig)
	w.Open()
	if *text != "" {
		w.Lines(*text)
	}
	w.Close()
}

// accessors writes a property or event. Without any accessor body the
// compact "{ get; set; }" form is used.
func accessors(w *writer, sig string, d *decl.Declaration, names [2]string, acc [2]*decl.Accessor) {
	if !d.HasBody() {
		var b strings.Builder
		b.WriteString(sig)
		b.WriteString(" {")
		for i, a := range acc {
			if a != nil {
				b.WriteString(" " + names[i] + ";")
			}
		}
		b.WriteString(" }")
		if d.Value != nil {
			b.WriteString(" = " + *d.Value + ";")
		}
		w.Line(b.String())
		return
	}
	w.Line(sig)
	w.Open()
	for i, a := range acc {
		if a == nil {
			continue
		}
		body(w, names[i], a.Body)
	}
	w.Close()
}

func (e *emitter) checkCoverage() {
	for _, id := range e.model.AllTypes() {
		d := e.model.Get(id)
		for k := range d.Parts {
			if !e.rendered[partKey{id, k}] {
				diag.ReportWarning(e.reporter, diag.EmtMissingPart, d.Parts[k].Span,
					fmt.Sprintf("part %d of %s is not held by any unit", k, e.model.QualifiedName(id))).
					WithTarget(string(d.Key)).Emit()
			}
		}
		for _, mid := range e.model.Members(id) {
			m := e.model.Get(mid)
			if m.Kind != decl.KindType && (m.Part < 0 || m.Part >= len(d.Parts)) {
				diag.ReportWarning(e.reporter, diag.EmtMissingPart, m.Span,
					fmt.Sprintf("%s refers to missing part %d", m.Key, m.Part)).
					WithTarget(string(m.Key)).Emit()
			}
		}
	}
}

func words(parts ...any) string {
	var out []string
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			if v != "" {
				out = append(out, v)
			}
		case []string:
			out = append(out, v...)
		}
	}
	return strings.Join(out, " ")
}

func initValue(v *string) string {
	if v == nil {
		return ""
	}
	return " = " + *v
}

func params(ps []decl.Param) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func initializer(in *decl.Initializer) string {
	kw := "this"
	if in.Kind == decl.InitBase {
		kw = "base"
	}
	args := make([]string, len(in.Args))
	for i, a := range in.Args {
		var b strings.Builder
		if a.Name != "" {
			b.WriteString(a.Name + ": ")
		}
		if a.Mode != decl.ModeValue {
			b.WriteString(a.Mode.String() + " ")
		}
		b.WriteString(a.Expr)
		args[i] = b.String()
	}
	return kw + "(" + strings.Join(args, ", ") + ")"
}
