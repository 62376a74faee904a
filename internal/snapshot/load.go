// Package snapshot reads the declaration model and the aspect advice of one
// weaving run from a YAML document (JSON is accepted as well). Structural
// problems are returned as errors carrying the document position; ordering
// problems between aspects are reported as diagnostics.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/order"
	"weaver/internal/source"
)

var ErrInvalid = errors.New("invalid snapshot")

// Snapshot is a decoded document.
type Snapshot struct {
	Model   *decl.Model
	Advice  *advice.Set
	Ranking order.Ranking
	// File is the document itself; every span of the model points into it.
	File source.FileID
}

// Load reads path into fs and decodes it.
func Load(fs *source.FileSet, path string, r diag.Reporter) (*Snapshot, error) {
	id, err := fs.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return Decode(fs.Get(id), r)
}

// Parse decodes an in-memory document registered in fs under name.
func Parse(fs *source.FileSet, name string, content []byte, r diag.Reporter) (*Snapshot, error) {
	id := fs.AddVirtual(name, content)
	return Decode(fs.Get(id), r)
}

// Decode decodes a document already registered in a FileSet.
func Decode(f *source.File, r diag.Reporter) (*Snapshot, error) {
	if r == nil {
		r = diag.NopReporter{}
	}
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(f.Content))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w: %w", f.Path, ErrInvalid, err)
	}

	l := &loader{file: f, b: decl.NewBuilder()}
	for _, fd := range doc.Files {
		if err := l.addFile(fd); err != nil {
			return nil, err
		}
	}
	list, ranking, err := l.advices(doc.Aspects, r)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Model:   l.b.Build(),
		Advice:  advice.NewSet(list),
		Ranking: ranking,
		File:    f.ID,
	}, nil
}

type loader struct {
	file *source.File
	b    *decl.Builder
}

func (l *loader) span(p pos) source.Span {
	line, err := safecast.Conv[uint32](p.Line)
	if err != nil || line == 0 {
		return source.Span{File: l.file.ID}
	}
	col, err := safecast.Conv[uint32](p.Col)
	if err != nil {
		col = 1
	}
	return l.file.SpanAt(source.LineCol{Line: line, Col: col})
}

func (l *loader) errorf(p pos, format string, args ...any) error {
	return fmt.Errorf("%s:%d:%d: %s: %w", l.file.Path, p.Line, p.Col, fmt.Sprintf(format, args...), ErrInvalid)
}

func (l *loader) addFile(fd fileDoc) error {
	if fd.Path == "" {
		return l.errorf(fd.pos, "file without path")
	}
	ref := l.b.AddFile(fd.Path, fd.Usings)
	for _, td := range fd.Types {
		if err := l.addType(ref, decl.NoID, 0, td); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) addType(file decl.FileRef, parent decl.ID, host int, td typeDoc) error {
	d, err := l.typeDecl(td, parent.IsValid())
	if err != nil {
		return err
	}
	id, part, err := l.b.AddType(file, parent, host, d)
	if err != nil {
		return fmt.Errorf("%s:%d:%d: %w", l.file.Path, td.pos.Line, td.pos.Col, err)
	}
	if td.Part != nil && *td.Part != part {
		return l.errorf(td.pos, "type %s declares part %d but is part %d", td.Name, *td.Part, part)
	}
	for _, md := range td.Members {
		m, err := l.memberDecl(md, false)
		if err != nil {
			return err
		}
		if _, err := l.b.AddMember(id, part, m); err != nil {
			return fmt.Errorf("%s:%d:%d: %w", l.file.Path, md.pos.Line, md.pos.Col, err)
		}
	}
	for _, nested := range td.Types {
		if err := l.addType(file, id, part, nested); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) typeDecl(td typeDoc, nested bool) (decl.Declaration, error) {
	if td.Name == "" {
		return decl.Declaration{}, l.errorf(td.pos, "type without name")
	}
	kind, ok := decl.ParseTypeKind(td.Kind)
	if !ok {
		return decl.Declaration{}, l.errorf(td.pos, "unknown type kind %q", td.Kind)
	}
	def := decl.Internal
	if nested {
		def = decl.Private
	}
	access, err := l.access(td.pos, td.Access, def)
	if err != nil {
		return decl.Declaration{}, err
	}
	mods, err := l.modifiers(td.pos, td.Modifiers)
	if err != nil {
		return decl.Declaration{}, err
	}
	return decl.Declaration{
		Kind:      decl.KindType,
		Name:      td.Name,
		Namespace: td.Namespace,
		TypeKind:  kind,
		Access:    access,
		Mods:      mods,
		Bases:     bases(td.Bases),
		Doc:       td.Doc,
		Attrs:     attrs(td.Attrs),
		Span:      l.span(td.pos),
	}, nil
}

// memberDecl converts a member; allowType admits "kind: type" for type
// introductions.
func (l *loader) memberDecl(md memberDoc, allowType bool) (decl.Declaration, error) {
	kind, ok := decl.ParseKind(md.Kind)
	if !ok || kind == decl.KindNamespace || (kind == decl.KindType && !allowType) {
		return decl.Declaration{}, l.errorf(md.pos, "unknown member kind %q", md.Kind)
	}
	if md.Name == "" && kind != decl.KindConstructor {
		return decl.Declaration{}, l.errorf(md.pos, "%s without name", kind)
	}
	access, err := l.access(md.pos, md.Access, decl.Private)
	if err != nil {
		return decl.Declaration{}, err
	}
	mods, err := l.modifiers(md.pos, md.Modifiers)
	if err != nil {
		return decl.Declaration{}, err
	}
	d := decl.Declaration{
		Kind:   kind,
		Name:   md.Name,
		Access: access,
		Mods:   mods,
		Type:   md.Type,
		Body:   md.Body,
		Auto:   md.Auto,
		Value:  md.Value,
		Attrs:  attrs(md.Attrs),
		Doc:    md.Doc,
		Span:   l.span(md.pos),
	}
	for _, pd := range md.Params {
		p, err := l.param(md.pos, pd)
		if err != nil {
			return decl.Declaration{}, err
		}
		d.Params = append(d.Params, p)
	}
	if err := l.accessors(&d, md); err != nil {
		return decl.Declaration{}, err
	}
	if md.Init != nil {
		if kind != decl.KindConstructor {
			return decl.Declaration{}, l.errorf(md.pos, "initializer on %s %s", kind, md.Name)
		}
		if d.Init, err = l.initializer(md.pos, *md.Init); err != nil {
			return decl.Declaration{}, err
		}
	}
	if md.Origin != nil {
		if d.Origin, err = l.origin(md.pos, *md.Origin); err != nil {
			return decl.Declaration{}, err
		}
	}
	if kind == decl.KindType {
		tk, ok := decl.ParseTypeKind(md.TypeKind)
		if !ok {
			return decl.Declaration{}, l.errorf(md.pos, "unknown type kind %q", md.TypeKind)
		}
		d.TypeKind = tk
		d.Namespace = md.Namespace
		d.Bases = bases(md.Bases)
		for _, sub := range md.Members {
			m, err := l.memberDecl(sub, true)
			if err != nil {
				return decl.Declaration{}, err
			}
			d.Members = append(d.Members, m)
		}
	}
	return d, nil
}

func (l *loader) accessors(d *decl.Declaration, md memberDoc) error {
	listed := map[string]bool{}
	for _, name := range md.Accessors {
		switch name {
		case "get", "set", "add", "remove":
			listed[name] = true
		default:
			return l.errorf(md.pos, "unknown accessor %q", name)
		}
	}
	mk := func(name string, body *string) *decl.Accessor {
		if body == nil && !listed[name] {
			return nil
		}
		return &decl.Accessor{Body: body}
	}
	switch d.Kind {
	case decl.KindProperty:
		if md.Add != nil || md.Remove != nil || listed["add"] || listed["remove"] {
			return l.errorf(md.pos, "property %s with event accessors", md.Name)
		}
		d.Get, d.Set = mk("get", md.Get), mk("set", md.Set)
		if d.Get == nil && d.Set == nil {
			if !md.Auto {
				return l.errorf(md.pos, "property %s without accessors", md.Name)
			}
			d.Get, d.Set = &decl.Accessor{}, &decl.Accessor{}
		}
	case decl.KindEvent:
		if md.Get != nil || md.Set != nil || listed["get"] || listed["set"] {
			return l.errorf(md.pos, "event %s with property accessors", md.Name)
		}
		d.Add, d.Remove = mk("add", md.Add), mk("remove", md.Remove)
	default:
		if md.Get != nil || md.Set != nil || md.Add != nil || md.Remove != nil || len(listed) > 0 {
			return l.errorf(md.pos, "%s %s cannot have accessors", d.Kind, md.Name)
		}
	}
	return nil
}

func (l *loader) param(p pos, pd paramDoc) (decl.Param, error) {
	if pd.Name == "" || pd.Type == "" {
		return decl.Param{}, l.errorf(p, "parameter needs a name and a type")
	}
	mode, ok := decl.ParseParamMode(pd.Mode)
	if !ok {
		return decl.Param{}, l.errorf(p, "unknown parameter mode %q", pd.Mode)
	}
	return decl.Param{Name: pd.Name, Type: pd.Type, Mode: mode, Default: pd.Default}, nil
}

func (l *loader) initializer(p pos, in initDoc) (*decl.Initializer, error) {
	out := &decl.Initializer{Target: decl.Key(in.Target)}
	switch in.Kind {
	case "", "this":
		out.Kind = decl.InitThis
	case "base":
		out.Kind = decl.InitBase
	default:
		return nil, l.errorf(p, "unknown initializer %q", in.Kind)
	}
	for _, a := range in.Args {
		mode, ok := decl.ParseParamMode(a.Mode)
		if !ok || mode == decl.ModeParams {
			return nil, l.errorf(p, "unknown argument mode %q", a.Mode)
		}
		out.Args = append(out.Args, decl.Arg{Name: a.Name, Mode: mode, Expr: a.Expr})
	}
	return out, nil
}

func (l *loader) origin(p pos, od originDoc) (decl.Origin, error) {
	kind, ok := decl.ParseOriginKind(od.Kind)
	if !ok {
		return decl.Origin{}, l.errorf(p, "unknown origin %q", od.Kind)
	}
	if len(od.Layer) > 3 {
		return decl.Origin{}, l.errorf(p, "layer has %d components, want at most 3", len(od.Layer))
	}
	var layer order.Layer
	for i, v := range od.Layer {
		switch i {
		case 0:
			layer.Aspect = v
		case 1:
			layer.Instance = v
		case 2:
			layer.Advice = v
		}
	}
	return decl.Origin{
		Kind:       kind,
		Aspect:     od.Aspect,
		Layer:      layer,
		Of:         decl.Key(od.Of),
		ForwardsTo: decl.Key(od.ForwardsTo),
	}, nil
}

func (l *loader) access(p pos, s string, def decl.Access) (decl.Access, error) {
	if s == "" {
		return def, nil
	}
	a, ok := decl.ParseAccess(s)
	if !ok {
		return def, l.errorf(p, "unknown access %q", s)
	}
	return a, nil
}

func (l *loader) modifiers(p pos, words []string) (decl.Modifiers, error) {
	var mods decl.Modifiers
	for _, w := range words {
		m, ok := decl.ParseModifier(w)
		if !ok {
			return 0, l.errorf(p, "unknown modifier %q", w)
		}
		mods |= m
	}
	return mods, nil
}

func bases(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	for i, b := range list {
		out[i] = strings.TrimPrefix(b, "T:")
	}
	return out
}

func attrs(list []attrDoc) []decl.Attribute {
	if len(list) == 0 {
		return nil
	}
	out := make([]decl.Attribute, len(list))
	for i, a := range list {
		out[i] = decl.Attribute{Name: a.Name, Args: a.Args}
	}
	return out
}
