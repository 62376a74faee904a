package advice

import (
	"cmp"
	"slices"

	"weaver/internal/decl"
)

// Set holds every advice of a snapshot, grouped by target and sorted by
// layer. Advices that share a layer keep a deterministic order by aspect
// name and then by input position.
type Set struct {
	byTarget map[decl.Key][]Advice
	targets  []decl.Key
	n        int
}

func NewSet(advices []Advice) *Set {
	s := &Set{byTarget: make(map[decl.Key][]Advice)}
	for _, a := range advices {
		if _, ok := s.byTarget[a.Target]; !ok {
			s.targets = append(s.targets, a.Target)
		}
		s.byTarget[a.Target] = append(s.byTarget[a.Target], a)
		s.n++
	}
	for _, list := range s.byTarget {
		slices.SortStableFunc(list, compareAdvice)
	}
	slices.Sort(s.targets)
	return s
}

func compareAdvice(a, b Advice) int {
	if c := a.Layer.Compare(b.Layer); c != 0 {
		return c
	}
	return cmp.Compare(a.Aspect, b.Aspect)
}

func (s *Set) Len() int { return s.n }

// Targets returns every target key in sorted order.
func (s *Set) Targets() []decl.Key { return s.targets }

// For returns the advices on key in layer order.
func (s *Set) For(key decl.Key) []Advice { return s.byTarget[key] }

// OfKind filters For(key) by kind.
func (s *Set) OfKind(key decl.Key, k Kind) []Advice {
	var out []Advice
	for _, a := range s.byTarget[key] {
		if a.Kind == k {
			out = append(out, a)
		}
	}
	return out
}

// All returns every advice ordered by target, then layer.
func (s *Set) All() []Advice {
	out := make([]Advice, 0, s.n)
	for _, k := range s.targets {
		out = append(out, s.byTarget[k]...)
	}
	return out
}

// Duplicates returns groups of advices of kind k on one target that share
// a layer. Only groups with two or more members are returned.
func Duplicates(list []Advice, k Kind) [][]Advice {
	var out [][]Advice
	for i := 0; i < len(list); {
		if list[i].Kind != k {
			i++
			continue
		}
		group := []Advice{list[i]}
		j := i + 1
		for ; j < len(list) && list[j].Layer == list[i].Layer; j++ {
			if list[j].Kind == k {
				group = append(group, list[j])
			}
		}
		if len(group) > 1 {
			out = append(out, group)
		}
		i = j
	}
	return out
}

// Grouping is the Set split by declaring type.
type Grouping struct {
	// Types maps each declaring type to the targets inside it.
	Types map[decl.ID][]decl.Key
	// Namespaces maps a namespace to the N: targets naming it.
	Namespaces map[string][]decl.Key
	// Unresolved lists targets whose declaring type is not in the model.
	Unresolved []decl.Key
}

// ByType resolves every target against m. A type key groups under the
// type itself; a member key under its declaring type. A member key missing
// from m still groups under its owner when the owner exists, since an
// earlier introduction may create it.
func (s *Set) ByType(m *decl.Model) Grouping {
	g := Grouping{
		Types:      make(map[decl.ID][]decl.Key),
		Namespaces: make(map[string][]decl.Key),
	}
	known := make(map[string]bool)
	for _, ns := range m.Namespaces() {
		known[ns] = true
	}
	for _, key := range s.targets {
		if ns, ok := key.Namespace(); ok {
			if known[ns] || allIntroduce(s.byTarget[key]) {
				g.Namespaces[ns] = append(g.Namespaces[ns], key)
				continue
			}
			g.Unresolved = append(g.Unresolved, key)
			continue
		}
		id, ok := m.Lookup(key)
		if !ok {
			owner, hasOwner := key.Owner()
			if typ, found := m.Lookup(owner); hasOwner && found && key.Prefix() != 'T' {
				g.Types[typ] = append(g.Types[typ], key)
				continue
			}
			g.Unresolved = append(g.Unresolved, key)
			continue
		}
		d := m.Get(id)
		typ := d.Parent
		if d.Kind == decl.KindType {
			typ = id
		}
		g.Types[typ] = append(g.Types[typ], key)
	}
	return g
}

func allIntroduce(list []Advice) bool {
	for _, a := range list {
		if a.Kind != KindIntroduce {
			return false
		}
	}
	return len(list) > 0
}
