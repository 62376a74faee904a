package decl

import (
	"maps"
	"slices"
)

// Commit returns a new Model with the overlays applied in the given order.
// The receiver is left untouched. Overlays without changes are skipped.
func (m *Model) Commit(overlays ...*Overlay) *Model {
	nm := &Model{
		decls:   slices.Clone(m.decls),
		members: maps.Clone(m.members),
		byKey:   maps.Clone(m.byKey),
		files:   slices.Clone(m.files),
		types:   slices.Clone(m.types),
	}
	for _, o := range overlays {
		if o == nil || !o.Changed() {
			continue
		}
		if o.typ.IsValid() {
			nm.commitType(o)
		} else {
			nm.commitNamespace(o)
		}
	}
	return nm
}

func (m *Model) commitType(o *Overlay) {
	m.decls[o.typ] = o.self

	for _, e := range o.entries {
		if !e.decl.ID.IsValid() {
			continue
		}
		old := m.decls[e.decl.ID]
		if (e.removed || old.Key != e.decl.Key) && m.byKey[old.Key] == e.decl.ID {
			delete(m.byKey, old.Key)
		}
	}

	list := make([]ID, 0, len(o.entries))
	for _, e := range o.entries {
		if e.removed {
			continue
		}
		if e.decl.ID.IsValid() {
			// nested types are published by their own overlay
			if e.decl.Kind != KindType {
				m.decls[e.decl.ID] = e.decl
			}
			m.byKey[e.decl.Key] = e.decl.ID
			list = append(list, e.decl.ID)
			continue
		}
		list = append(list, m.commitNew(o.typ, e.decl))
	}
	m.members[o.typ] = list
}

func (m *Model) commitNew(parent ID, d Declaration) ID {
	payload := d.Members
	d.Members = nil
	d.Parent = parent
	if d.Kind == KindType && len(d.Parts) == 0 {
		host := m.Get(parent)
		file := FileRef(0)
		if host != nil && d.Part < len(host.Parts) {
			file = host.Parts[d.Part].File
		}
		d.Parts = []Part{{File: file, Span: d.Span, Host: d.Part}}
	}
	d.Key = m.KeyFor(parent, &d)
	id := m.alloc(d)
	m.byKey[d.Key] = id
	if d.Kind == KindType {
		m.commitPayload(id, payload)
	}
	return id
}

func (m *Model) commitPayload(typ ID, payload []Declaration) {
	owner := m.decls[typ]
	list := make([]ID, 0, len(payload))
	for _, mem := range payload {
		mem.Part = 0
		if mem.Kind == KindConstructor {
			mem.Name = owner.Name
		}
		list = append(list, m.commitNew(typ, mem))
	}
	m.members[typ] = list
}

// commitNamespace places each introduced top-level type into its own
// generated unit named <namespace path>/<Name>.g.cs.
func (m *Model) commitNamespace(o *Overlay) {
	for _, e := range o.entries {
		if e.removed {
			continue
		}
		d := e.decl
		payload := d.Members
		d.Members = nil
		d.Parent = NoID
		d.Namespace = o.ns
		path := d.Name + ".g.cs"
		if o.ns != "" {
			path = NamespacePath(o.ns) + "/" + path
		}
		ref := m.addFile(File{Path: path, Generated: true})
		d.Parts = []Part{{File: ref, Span: d.Span}}
		d.Key = m.KeyFor(NoID, &d)
		id := m.alloc(d)
		m.byKey[d.Key] = id
		m.types = append(m.types, id)
		m.files[ref].Parts = []PartRef{{Type: id, Part: 0}}
		m.commitPayload(id, payload)
	}
}
