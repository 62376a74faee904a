package order

import (
	"slices"
	"testing"

	"weaver/internal/diag"
)

func after(names ...string) []Dependency {
	out := make([]Dependency, len(names))
	for i, n := range names {
		out[i] = Dependency{Name: n}
	}
	return out
}

func TestLayerCompare(t *testing.T) {
	tests := []struct {
		a, b Layer
		want int
	}{
		{Layer{0, 0, 0}, Layer{0, 0, 1}, -1},
		{Layer{1, 0, 0}, Layer{0, 5, 5}, 1},
		{Layer{2, 1, 3}, Layer{2, 1, 3}, 0},
		{Source, Layer{0, 0, 0}, -1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Fatalf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
	if Source.String() != "(source)" || (Layer{1, 2, 3}).String() != "(1,2,3)" {
		t.Fatalf("unexpected String output")
	}
}

func TestRankWaves(t *testing.T) {
	metas := []AspectMeta{
		{Name: "Logging", After: after("Caching")},
		{Name: "Caching"},
		{Name: "Audit"},
		{Name: "Retry", After: after("Logging", "Audit")},
	}
	bag := diag.NewBag(10)
	rk := Rank(metas, diag.BagReporter{Bag: bag})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := map[string]int{"Caching": 0, "Audit": 0, "Logging": 1, "Retry": 2}
	for name, rank := range want {
		if rk.Rank[name] != rank {
			t.Fatalf("rank[%s] = %d, want %d", name, rk.Rank[name], rank)
		}
	}
	if !slices.Equal(rk.Waves[0], []string{"Caching", "Audit"}) {
		t.Fatalf("wave 0 = %v", rk.Waves[0])
	}
}

func TestRankCycleAndUnknown(t *testing.T) {
	metas := []AspectMeta{
		{Name: "A", After: after("B")},
		{Name: "B", After: after("A")},
		{Name: "C", After: after("Missing", "C")},
	}
	bag := diag.NewBag(10)
	rk := Rank(metas, diag.BagReporter{Bag: bag})
	if !rk.Dropped["A"] || !rk.Dropped["B"] || rk.Dropped["C"] {
		t.Fatalf("dropped = %v", rk.Dropped)
	}
	if _, ok := rk.Rank["A"]; ok {
		t.Fatalf("cyclic aspect must have no rank")
	}
	if rk.Rank["C"] != 0 {
		t.Fatalf("rank[C] = %d", rk.Rank["C"])
	}
	if bag.Count(diag.CfgAspectCycle) != 2 || bag.Count(diag.CfgUnknownAspect) != 2 {
		t.Fatalf("diagnostics: %v", bag.Items())
	}
}
