package decl

import (
	"fmt"
)

// Builder assembles a Model from an already parsed program.
type Builder struct {
	m     *Model
	built bool
}

func NewBuilder() *Builder {
	return &Builder{m: newModel()}
}

func (b *Builder) AddFile(path string, usings []string) FileRef {
	return b.m.addFile(File{Path: path, Usings: usings})
}

// AddType adds a type declared in file. Top-level types have parent NoID;
// nested types name the enclosing type and the enclosing part (host).
// Declaring a partial type again adds a part to the existing type and
// returns its index.
func (b *Builder) AddType(file FileRef, parent ID, host int, d Declaration) (ID, int, error) {
	d.Kind = KindType
	d.Parent = parent
	if parent.IsValid() {
		d.Part = host
	}
	key := b.m.KeyFor(parent, &d)
	part := Part{File: file, Span: d.Span, Host: host}

	if existing, ok := b.m.byKey[key]; ok {
		prev := &b.m.decls[existing]
		if !prev.Mods.Has(ModPartial) || !d.Mods.Has(ModPartial) {
			return NoID, 0, fmt.Errorf("%w: %s", ErrDuplicateKey, key)
		}
		prev.Parts = append(prev.Parts, part)
		prev.Attrs = append(prev.Attrs, d.Attrs...)
		if prev.Doc == "" {
			prev.Doc = d.Doc
		}
		idx := len(prev.Parts) - 1
		if !parent.IsValid() {
			b.linkPart(file, existing, idx)
		}
		return existing, idx, nil
	}

	d.Key = key
	d.Parts = []Part{part}
	d.Members = nil
	id := b.m.alloc(d)
	b.m.byKey[key] = id
	if parent.IsValid() {
		b.m.members[parent] = append(b.m.members[parent], id)
	} else {
		b.m.types = append(b.m.types, id)
		b.linkPart(file, id, 0)
	}
	return id, 0, nil
}

func (b *Builder) linkPart(file FileRef, typ ID, part int) {
	if f := b.m.File(file); f != nil {
		f.Parts = append(f.Parts, PartRef{Type: typ, Part: part})
	}
}

// AddMember adds a non-type member to typ inside the given part.
func (b *Builder) AddMember(typ ID, part int, d Declaration) (ID, error) {
	owner := b.m.Get(typ)
	if owner == nil || owner.Kind != KindType {
		return NoID, fmt.Errorf("%w: %d", ErrNotType, typ)
	}
	if d.Kind == KindType {
		return NoID, fmt.Errorf("use AddType for nested type %s", d.Name)
	}
	if d.Kind == KindConstructor {
		d.Name = owner.Name
	}
	d.Parent = typ
	d.Part = part
	d.Key = b.m.KeyFor(typ, &d)
	if _, dup := b.m.byKey[d.Key]; dup {
		return NoID, fmt.Errorf("%w: %s", ErrDuplicateKey, d.Key)
	}
	id := b.m.alloc(d)
	b.m.byKey[d.Key] = id
	b.m.members[typ] = append(b.m.members[typ], id)
	return id, nil
}

// Build freezes the model. The Builder must not be used afterwards.
func (b *Builder) Build() *Model {
	if b.built {
		panic("decl: Builder.Build called twice")
	}
	b.built = true
	return b.m
}
