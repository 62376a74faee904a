package decl

import (
	"errors"
	"fmt"
	"slices"

	"fortio.org/safecast"
)

var (
	ErrDuplicateKey = errors.New("duplicate declaration key")
	ErrNotType      = errors.New("declaration is not a type")
)

// PartRef names one partial declaration of a top-level type inside a file.
type PartRef struct {
	Type ID
	Part int
}

// File is one physical input file or generated unit.
type File struct {
	Ref       FileRef
	Path      string
	Usings    []string
	Parts     []PartRef
	Generated bool
}

// Model is the frozen declaration graph of one snapshot. Index 0 of the
// arena is reserved. Models are never mutated after Build; Commit returns a
// new Model.
type Model struct {
	decls   []Declaration
	members map[ID][]ID
	byKey   map[Key]ID
	files   []File // index 0 reserved
	types   []ID   // top-level types in first-seen order
}

func newModel() *Model {
	return &Model{
		decls:   make([]Declaration, 1, 64),
		members: make(map[ID][]ID),
		byKey:   make(map[Key]ID),
		files:   make([]File, 1, 8),
	}
}

// Get returns the declaration or nil. The pointer is read-only.
func (m *Model) Get(id ID) *Declaration {
	if !id.IsValid() || int(id) >= len(m.decls) {
		return nil
	}
	return &m.decls[id]
}

// Len reports the arena size excluding the sentinel.
func (m *Model) Len() int { return len(m.decls) - 1 }

func (m *Model) Lookup(key Key) (ID, bool) {
	id, ok := m.byKey[key]
	return id, ok
}

// Members returns the members of a type in declaration order.
func (m *Model) Members(typ ID) []ID {
	return m.members[typ]
}

// Types returns the top-level types in declaration order.
func (m *Model) Types() []ID {
	return m.types
}

// AllTypes returns every type, outer types before their nested types.
func (m *Model) AllTypes() []ID {
	var out []ID
	var walk func(id ID)
	walk = func(id ID) {
		out = append(out, id)
		for _, mid := range m.members[id] {
			if m.decls[mid].Kind == KindType {
				walk(mid)
			}
		}
	}
	for _, id := range m.types {
		walk(id)
	}
	return out
}

func (m *Model) Files() []File {
	return m.files[1:]
}

func (m *Model) File(ref FileRef) *File {
	if !ref.IsValid() || int(ref) >= len(m.files) {
		return nil
	}
	return &m.files[ref]
}

// QualifiedName returns Ns.Outer.Name for a type.
func (m *Model) QualifiedName(id ID) string {
	d := m.Get(id)
	if d == nil {
		return ""
	}
	if d.Parent.IsValid() {
		return joinName(m.QualifiedName(d.Parent), d.Name)
	}
	return joinName(d.Namespace, d.Name)
}

// DeclaringType returns the type containing id, or id itself for a
// top-level type.
func (m *Model) DeclaringType(id ID) ID {
	d := m.Get(id)
	if d == nil {
		return NoID
	}
	if d.Kind == KindType && !d.Parent.IsValid() {
		return id
	}
	return d.Parent
}

// BaseTypes resolves the Bases of a type against the model. A base name is
// tried as written, relative to the type's namespace and relative to the
// enclosing type. Bases outside the snapshot are skipped.
func (m *Model) BaseTypes(typ ID) []ID {
	d := m.Get(typ)
	if d == nil {
		return nil
	}
	var out []ID
	for _, b := range d.Bases {
		candidates := []string{b}
		if d.Parent.IsValid() {
			candidates = append(candidates, joinName(m.QualifiedName(d.Parent), b))
		}
		ns := m.namespaceOf(typ)
		if ns != "" {
			candidates = append(candidates, joinName(ns, b))
		}
		for _, c := range candidates {
			if id, ok := m.byKey[TypeKey(c)]; ok && id != typ {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

func (m *Model) namespaceOf(typ ID) string {
	for {
		d := m.Get(typ)
		if d == nil {
			return ""
		}
		if !d.Parent.IsValid() {
			return d.Namespace
		}
		typ = d.Parent
	}
}

// BaseMembers returns the members of all base types of typ, nearest base
// first.
func (m *Model) BaseMembers(typ ID) []ID {
	var out []ID
	seen := map[ID]bool{typ: true}
	queue := m.BaseTypes(typ)
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, m.members[b]...)
		queue = append(queue, m.BaseTypes(b)...)
	}
	return out
}

// TypesInNamespace returns the top-level types declared in ns.
func (m *Model) TypesInNamespace(ns string) []ID {
	var out []ID
	for _, id := range m.types {
		if m.decls[id].Namespace == ns {
			out = append(out, id)
		}
	}
	return out
}

// Namespaces returns every namespace that declares a top-level type.
func (m *Model) Namespaces() []string {
	var out []string
	for _, id := range m.types {
		ns := m.decls[id].Namespace
		if !slices.Contains(out, ns) {
			out = append(out, ns)
		}
	}
	return out
}

// KeyFor computes the key d would have as a member of parent (or as a
// top-level type when parent is NoID).
func (m *Model) KeyFor(parent ID, d *Declaration) Key {
	if !parent.IsValid() {
		return TypeKey(joinName(d.Namespace, d.Name))
	}
	return MemberKey(m.QualifiedName(parent), d)
}

func (m *Model) alloc(d Declaration) ID {
	n, err := safecast.Conv[uint32](len(m.decls))
	if err != nil {
		panic(fmt.Errorf("declaration arena overflow: %w", err))
	}
	id := ID(n)
	d.ID = id
	m.decls = append(m.decls, d)
	return id
}

func (m *Model) addFile(f File) FileRef {
	n, err := safecast.Conv[uint32](len(m.files))
	if err != nil {
		panic(fmt.Errorf("file table overflow: %w", err))
	}
	f.Ref = FileRef(n)
	m.files = append(m.files, f)
	return f.Ref
}
