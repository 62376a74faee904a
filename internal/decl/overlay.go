package decl

// Ref addresses a member inside an Overlay. Existing members keep their
// position; appended members get the next Ref.
type Ref int

type entry struct {
	decl    Declaration
	removed bool
}

type change struct {
	ref   Ref // selfRef for the type declaration itself
	prev  entry
	added bool
}

const selfRef Ref = -1

// Overlay is the private working copy of one declaring type (or of one
// namespace, for top-level type introductions). Resolvers edit the overlay;
// Model.Commit publishes it. Every edit is journaled so a failed target can
// be rolled back without touching the rest of the type.
type Overlay struct {
	model   *Model
	typ     ID
	ns      string
	self    Declaration
	entries []entry
	journal []change
}

// NewOverlay copies the members of typ.
func NewOverlay(m *Model, typ ID) *Overlay {
	o := &Overlay{model: m, typ: typ, ns: m.namespaceOf(typ)}
	if d := m.Get(typ); d != nil {
		o.self = *d
	}
	for _, id := range m.members[typ] {
		o.entries = append(o.entries, entry{decl: m.decls[id]})
	}
	return o
}

// NewNamespaceOverlay collects top-level types introduced into ns.
func NewNamespaceOverlay(m *Model, ns string) *Overlay {
	return &Overlay{model: m, ns: ns}
}

func (o *Overlay) Model() *Model { return o.model }

// Type returns the declaring type, or NoID for a namespace overlay.
func (o *Overlay) Type() ID { return o.typ }

func (o *Overlay) Namespace() string { return o.ns }

// Self returns the current value of the type declaration.
func (o *Overlay) Self() Declaration { return o.self }

// SetSelf replaces the type declaration (attributes, modifiers).
func (o *Overlay) SetSelf(d Declaration) {
	o.journal = append(o.journal, change{ref: selfRef, prev: entry{decl: o.self}})
	d.ID = o.self.ID
	d.Key = o.self.Key
	d.Members = nil
	o.self = d
}

// QualifiedName is the qualified name of the declaring type.
func (o *Overlay) QualifiedName() string {
	if !o.typ.IsValid() {
		return o.ns
	}
	return o.model.QualifiedName(o.typ)
}

// Len includes removed slots; use Refs to iterate live members.
func (o *Overlay) Len() int { return len(o.entries) }

func (o *Overlay) At(r Ref) Declaration { return o.entries[r].decl }

// Refs returns live members in declaration order, appended members last.
func (o *Overlay) Refs() []Ref {
	out := make([]Ref, 0, len(o.entries))
	for i := range o.entries {
		if !o.entries[i].removed {
			out = append(out, Ref(i))
		}
	}
	return out
}

func (o *Overlay) Find(key Key) (Ref, bool) {
	for i := range o.entries {
		if !o.entries[i].removed && o.entries[i].decl.Key == key {
			return Ref(i), true
		}
	}
	return 0, false
}

// FindID returns the overlay slot of a model declaration.
func (o *Overlay) FindID(id ID) (Ref, bool) {
	if !id.IsValid() {
		return 0, false
	}
	for i := range o.entries {
		if !o.entries[i].removed && o.entries[i].decl.ID == id {
			return Ref(i), true
		}
	}
	return 0, false
}

func (o *Overlay) FindName(name string) []Ref {
	var out []Ref
	for i := range o.entries {
		if !o.entries[i].removed && o.entries[i].decl.Name == name {
			out = append(out, Ref(i))
		}
	}
	return out
}

func (o *Overlay) normalize(d *Declaration) {
	d.Parent = o.typ
	if d.Kind == KindConstructor {
		d.Name = o.self.Name
	}
	if o.typ.IsValid() {
		d.Key = MemberKey(o.QualifiedName(), d)
	} else {
		d.Namespace = o.ns
		d.Key = TypeKey(joinName(o.ns, d.Name))
	}
}

// Replace stores a new value for member r; its key is recomputed.
func (o *Overlay) Replace(r Ref, d Declaration) {
	prev := o.entries[r]
	o.journal = append(o.journal, change{ref: r, prev: prev})
	d.ID = prev.decl.ID
	o.normalize(&d)
	o.entries[r] = entry{decl: d}
}

// Append adds a new member after all existing ones.
func (o *Overlay) Append(d Declaration) Ref {
	d.ID = NoID
	o.normalize(&d)
	r := Ref(len(o.entries))
	o.entries = append(o.entries, entry{decl: d})
	o.journal = append(o.journal, change{ref: r, added: true})
	return r
}

func (o *Overlay) Remove(r Ref) {
	prev := o.entries[r]
	o.journal = append(o.journal, change{ref: r, prev: prev})
	o.entries[r].removed = true
}

// Checkpoint marks the current state for Rollback.
func (o *Overlay) Checkpoint() int { return len(o.journal) }

// Rollback undoes every edit made after cp.
func (o *Overlay) Rollback(cp int) {
	for len(o.journal) > cp {
		c := o.journal[len(o.journal)-1]
		o.journal = o.journal[:len(o.journal)-1]
		switch {
		case c.ref == selfRef:
			o.self = c.prev.decl
		case c.added:
			o.entries = o.entries[:c.ref]
		default:
			o.entries[c.ref] = c.prev
		}
	}
}

// Changed reports whether the overlay differs from the model.
func (o *Overlay) Changed() bool { return len(o.journal) > 0 }

// NameInUse checks the type's members (overlay included), its nested types,
// the type name itself and the members of every base type in the model.
// For a namespace overlay it checks the top-level types of the namespace.
func (o *Overlay) NameInUse(name string) bool {
	if !o.typ.IsValid() {
		for _, id := range o.model.TypesInNamespace(o.ns) {
			if o.model.decls[id].Name == name {
				return true
			}
		}
		return len(o.FindName(name)) > 0
	}
	if o.self.Name == name {
		return true
	}
	if len(o.FindName(name)) > 0 {
		return true
	}
	for _, id := range o.model.BaseMembers(o.typ) {
		if o.model.decls[id].Name == name {
			return true
		}
	}
	return false
}

// Inherited returns the nearest base member that conflicts with d.
func (o *Overlay) Inherited(d *Declaration) (*Declaration, bool) {
	if !o.typ.IsValid() || d.Kind == KindConstructor {
		return nil, false
	}
	for _, id := range o.model.BaseMembers(o.typ) {
		b := &o.model.decls[id]
		if b.Kind != KindConstructor && Conflicts(b, d) {
			return b, true
		}
	}
	return nil, false
}

// Constructors returns the live constructors in declaration order.
func (o *Overlay) Constructors() []Ref {
	var out []Ref
	for _, r := range o.Refs() {
		if o.entries[r].decl.Kind == KindConstructor {
			out = append(out, r)
		}
	}
	return out
}
