package order

import (
	"fmt"
	"slices"

	"weaver/internal/diag"
	"weaver/internal/source"
)

// AspectID indexes Index.IDToName.
type AspectID uint32

// Dependency is one "runs after" edge as written in the snapshot.
type Dependency struct {
	Name string
	Span source.Span
}

// AspectMeta describes one aspect and its declared precedence.
type AspectMeta struct {
	Name  string
	Span  source.Span
	After []Dependency
}

type Index struct {
	NameToID map[string]AspectID
	IDToName []string
}

// BuildIndex numbers aspects in declaration order. Duplicates keep the first id.
func BuildIndex(metas []AspectMeta) Index {
	idx := Index{NameToID: make(map[string]AspectID, len(metas))}
	for _, m := range metas {
		if m.Name == "" {
			continue
		}
		if _, ok := idx.NameToID[m.Name]; ok {
			continue
		}
		idx.NameToID[m.Name] = AspectID(len(idx.IDToName))
		idx.IDToName = append(idx.IDToName, m.Name)
	}
	return idx
}

type Graph struct {
	Edges   [][]AspectID // Edges[before] = aspects that run after it
	Indeg   []int
	Present []bool
}

// BuildGraph turns "after" lists into edges. Unknown names and self
// references are reported as CFG1003 and ignored.
func BuildGraph(idx Index, metas []AspectMeta, r diag.Reporter) Graph {
	n := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]AspectID, n),
		Indeg:   make([]int, n),
		Present: make([]bool, n),
	}
	for _, m := range metas {
		to, ok := idx.NameToID[m.Name]
		if !ok || g.Present[to] {
			continue
		}
		g.Present[to] = true
		seen := make(map[AspectID]struct{}, len(m.After))
		for _, dep := range m.After {
			from, ok := idx.NameToID[dep.Name]
			if !ok {
				diag.ReportError(r, diag.CfgUnknownAspect, dep.Span,
					fmt.Sprintf("aspect %q is ordered after unknown aspect %q", m.Name, dep.Name)).
					WithAspect(m.Name).
					Emit()
				continue
			}
			if from == to {
				diag.ReportError(r, diag.CfgUnknownAspect, dep.Span,
					fmt.Sprintf("aspect %q is ordered after itself", m.Name)).
					WithAspect(m.Name).
					Emit()
				continue
			}
			if _, dup := seen[from]; dup {
				continue
			}
			seen[from] = struct{}{}
			g.Edges[from] = append(g.Edges[from], to)
			g.Indeg[to]++
		}
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}
	return g
}
