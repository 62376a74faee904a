package order

import (
	"fmt"
	"strings"

	"weaver/internal/diag"
)

// Ranking maps aspect names to their wave index. Aspects caught in a cycle
// are absent from Rank and listed in Dropped.
type Ranking struct {
	Rank    map[string]int
	Dropped map[string]bool
	Waves   [][]string
}

// Rank orders aspects by their "after" declarations. Each Kahn wave gets one
// rank, so aspects with no declared order between them share it. Cycles are
// reported once per participating aspect.
func Rank(metas []AspectMeta, r diag.Reporter) Ranking {
	idx := BuildIndex(metas)
	g := BuildGraph(idx, metas, r)
	topo := ToposortKahn(g)

	out := Ranking{
		Rank:    make(map[string]int, len(idx.IDToName)),
		Dropped: make(map[string]bool),
	}
	for wave, batch := range topo.Batches {
		names := make([]string, len(batch))
		for i, id := range batch {
			name := idx.IDToName[id]
			names[i] = name
			out.Rank[name] = wave
		}
		out.Waves = append(out.Waves, names)
	}
	if topo.Cyclic {
		reportCycles(idx, metas, topo, r)
		for _, id := range topo.Cycles {
			out.Dropped[idx.IDToName[id]] = true
		}
	}
	return out
}

func reportCycles(idx Index, metas []AspectMeta, topo *Topo, r diag.Reporter) {
	names := make([]string, len(topo.Cycles))
	for i, id := range topo.Cycles {
		names[i] = idx.IDToName[id]
	}
	cycle := strings.Join(names, ", ")
	spans := make(map[string]AspectMeta, len(metas))
	for _, m := range metas {
		if _, ok := spans[m.Name]; !ok {
			spans[m.Name] = m
		}
	}
	for _, name := range names {
		diag.ReportError(r, diag.CfgAspectCycle, spans[name].Span,
			fmt.Sprintf("aspect %q is part of a precedence cycle (%s); its advices are ignored", name, cycle)).
			WithAspect(name).
			Emit()
	}
}
