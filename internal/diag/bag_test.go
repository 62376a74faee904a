package diag

import (
	"testing"

	"weaver/internal/source"
)

func TestBagLimitAndMerge(t *testing.T) {
	b := NewBag(2)
	if !b.Add(Diagnostic{Severity: SevInfo}) || !b.Add(Diagnostic{Severity: SevWarning}) {
		t.Fatalf("first two adds must succeed")
	}
	if b.Add(Diagnostic{Severity: SevError}) {
		t.Fatalf("add past limit must fail")
	}
	if b.HasErrors() || !b.HasWarnings() {
		t.Fatalf("unexpected severities")
	}

	other := NewBag(10)
	other.Add(Diagnostic{Severity: SevError, Code: CtrAmbiguity})
	big := NewBag(10)
	big.Merge(b)
	big.Merge(other)
	if big.Len() != 3 || !big.HasErrors() || big.Count(CtrAmbiguity) != 1 {
		t.Fatalf("merge produced %d items", big.Len())
	}
}

func TestBagSortDedup(t *testing.T) {
	b := NewBag(0)
	sp := source.Span{File: 1, Start: 5, End: 6}
	b.Add(Diagnostic{Severity: SevWarning, Code: IntNothingToRemove, Primary: sp, Target: "T:A"})
	b.Add(Diagnostic{Severity: SevError, Code: CfgUnknownTarget, Primary: source.Span{File: 1, Start: 1, End: 2}})
	b.Add(Diagnostic{Severity: SevWarning, Code: IntNothingToRemove, Primary: sp, Target: "T:A"})
	b.Add(Diagnostic{Severity: SevError, Code: IntConflict, Primary: sp, Target: "T:A"})
	b.Dedup()
	b.Sort()
	items := b.Items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[0].Code != CfgUnknownTarget || items[1].Code != IntConflict || items[2].Code != IntNothingToRemove {
		t.Fatalf("unexpected order: %v %v %v", items[0].Code.ID(), items[1].Code.ID(), items[2].Code.ID())
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	b := ReportError(r, TplUnknownMember, source.NoSpan, "unknown member x").
		WithTarget("M:A.B()").
		WithAspect("Audit")
	b.Emit()
	b.Emit()
	ReportError(r, TplUnknownMember, source.NoSpan, "unknown member x").WithTarget("M:A.B()").WithAspect("Audit").Emit()
	if bag.Len() != 1 {
		t.Fatalf("bag len = %d, want 1", bag.Len())
	}
	d := bag.Items()[0]
	if d.Target != "M:A.B()" || d.Aspect != "Audit" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	var nilBuilder *ReportBuilder
	nilBuilder.WithNote(source.NoSpan, "x").Emit()
	NopReporter{}.Report(d)
}

func TestSeverityNames(t *testing.T) {
	tests := []struct {
		sev          Severity
		label, upper string
	}{
		{SevInfo, "info", "INFO"},
		{SevWarning, "warning", "WARNING"},
		{SevError, "error", "ERROR"},
		{Severity(9), "unknown", "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.sev.Label(); got != tt.label {
			t.Errorf("Label(%d) = %q, want %q", tt.sev, got, tt.label)
		}
		if got := tt.sev.String(); got != tt.upper {
			t.Errorf("String(%d) = %q, want %q", tt.sev, got, tt.upper)
		}
	}
}
