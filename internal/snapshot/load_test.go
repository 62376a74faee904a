package snapshot

import (
	"errors"
	"strings"
	"testing"

	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/order"
	"weaver/internal/source"
)

const customerDoc = `files:
  - path: src/Customer.cs
    usings: [System]
    types:
      - name: Customer
        namespace: Shop
        access: public
        modifiers: [partial]
        bases: [T:Shop.EntityBase]
        part: 0
        doc: "/// <summary>A customer.</summary>"
        members:
          - {kind: property, name: Name, type: string, access: public, auto: true}
          - kind: constructor
            access: public
            params: [{name: p, type: int}, {name: opt, type: int, default: "42"}]
            body: "this.P = p;"
          - {kind: method, name: Save, type: void, access: public, body: ""}
          - kind: property
            name: Total
            type: int
            get: "return 1;"
        types:
          - name: Line
            members:
              - {kind: field, name: qty, type: int}
  - path: src/Customer.More.cs
    types:
      - name: Customer
        namespace: Shop
        modifiers: [partial]
        part: 1
        members:
          - kind: constructor
            params: [{name: p, type: int, mode: ref}]
            init: {kind: this, args: [{expr: p}, {name: opt, expr: "7"}], target: "M:Shop.Customer.#ctor(int,int)"}
            body: ""
          - kind: constructor
            params: [{name: s, type: string}]
            origin: {kind: deambiguating, aspect: Caching, layer: [0, 0, 1], forwards_to: "M:Shop.Customer.#ctor(int,int)"}
            body: ""
aspects:
  - name: Logging
    after: [Caching]
    instances:
      - advices:
          - {kind: override, target: "M:Shop.Customer.Save()", body: "Console.WriteLine(\"x\");\nmeta.Proceed();"}
  - name: Caching
    instances:
      - advices:
          - kind: introduce
            target: T:Shop.Customer
            member: {kind: field, name: cache, type: object}
          - kind: add-parameter
            target: "M:Shop.Customer.#ctor(int,int)"
            param: {name: log, type: ILogger}
            pull: parameter
`

func parse(t *testing.T, doc string) (*Snapshot, *source.FileSet, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	bag := diag.NewBag(0)
	snap, err := Parse(fs, "doc.yaml", []byte(doc), diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return snap, fs, bag
}

func lookup(t *testing.T, m *decl.Model, key decl.Key) *decl.Declaration {
	t.Helper()
	id, ok := m.Lookup(key)
	if !ok {
		t.Fatalf("missing %s", key)
	}
	return m.Get(id)
}

func lineOf(doc, needle string) uint32 {
	i := strings.Index(doc, needle)
	return uint32(strings.Count(doc[:i], "\n") + 1)
}

func TestParseModel(t *testing.T) {
	snap, _, bag := parse(t, customerDoc)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	m := snap.Model

	cust := lookup(t, m, "T:Shop.Customer")
	if cust.Access != decl.Public || len(cust.Parts) != 2 || cust.Bases[0] != "Shop.EntityBase" {
		t.Fatalf("unexpected customer: access=%s parts=%d bases=%v", cust.Access, len(cust.Parts), cust.Bases)
	}
	if line := lookup(t, m, "T:Shop.Customer.Line"); line.Access != decl.Private {
		t.Fatalf("nested type access = %s, want private", line.Access)
	}
	lookup(t, m, "F:Shop.Customer.Line.qty")

	name := lookup(t, m, "P:Shop.Customer.Name")
	if name.Get == nil || name.Set == nil || name.Get.Body != nil {
		t.Fatalf("auto property accessors: %+v %+v", name.Get, name.Set)
	}
	total := lookup(t, m, "P:Shop.Customer.Total")
	if total.Set != nil || total.Get == nil || *total.Get.Body != "return 1;" {
		t.Fatalf("Total accessors: %+v %+v", total.Get, total.Set)
	}

	ctor := lookup(t, m, "M:Shop.Customer.#ctor(int,int)")
	if !ctor.Params[1].Optional() || *ctor.Params[1].Default != "42" {
		t.Fatalf("optional parameter lost: %+v", ctor.Params[1])
	}
	chained := lookup(t, m, "M:Shop.Customer.#ctor(ref int)")
	if chained.Part != 1 || chained.Init == nil || chained.Init.Target != "M:Shop.Customer.#ctor(int,int)" || chained.Init.Args[1].Name != "opt" {
		t.Fatalf("initializer lost: part=%d init=%+v", chained.Part, chained.Init)
	}
	deamb := lookup(t, m, "M:Shop.Customer.#ctor(string)")
	if deamb.Origin.Kind != decl.OriginDeambiguating || deamb.Origin.Layer != (order.Layer{Advice: 1}) {
		t.Fatalf("origin lost: %+v", deamb.Origin)
	}
	if save := lookup(t, m, "M:Shop.Customer.Save()"); save.Body == nil || *save.Body != "" {
		t.Fatalf("empty body must be kept: %v", save.Body)
	}
}

func TestParseAdviceLayers(t *testing.T) {
	snap, fs, _ := parse(t, customerDoc)
	if snap.Ranking.Rank["Caching"] != 0 || snap.Ranking.Rank["Logging"] != 1 {
		t.Fatalf("ranking = %v", snap.Ranking.Rank)
	}
	if snap.Advice.Len() != 3 {
		t.Fatalf("advice count = %d", snap.Advice.Len())
	}

	save := snap.Advice.For("M:Shop.Customer.Save()")
	if len(save) != 1 || save[0].Kind != advice.KindOverride || save[0].Layer != (order.Layer{Aspect: 1}) {
		t.Fatalf("override = %+v", save)
	}
	if body := *save[0].Override.Templates.Body; body != "Console.WriteLine(\"x\");\nmeta.Proceed();" {
		t.Fatalf("body = %q", body)
	}
	start, _ := fs.Resolve(save[0].Span)
	if want := lineOf(customerDoc, "{kind: override"); start.Line != want {
		t.Fatalf("override at line %d, want %d", start.Line, want)
	}

	add := snap.Advice.For("M:Shop.Customer.#ctor(int,int)")
	if len(add) != 1 || add[0].Layer != (order.Layer{Advice: 1}) || add[0].AddParameter.Pull != advice.PullParameter {
		t.Fatalf("add-parameter = %+v", add)
	}
	intro := snap.Advice.For("T:Shop.Customer")
	if len(intro) != 1 || intro[0].Introduce.Member.Kind != decl.KindField || intro[0].Introduce.Policy != advice.PolicyFail {
		t.Fatalf("introduce = %+v", intro)
	}
}

func TestParseOrderingProblems(t *testing.T) {
	doc := `aspects:
  - name: A
    after: [B]
    instances: [{advices: [{kind: remove-annotation, target: "T:X", name: Obsolete}]}]
  - name: B
    after: [A, Missing]
    instances: [{advices: [{kind: remove-annotation, target: "T:X", name: Obsolete}]}]
  - name: C
    instances: [{advices: [{kind: remove-annotation, target: "T:X", name: Obsolete}]}]
`
	snap, fs, bag := parse(t, doc)
	if bag.Count(diag.CfgAspectCycle) != 2 || bag.Count(diag.CfgUnknownAspect) != 1 {
		t.Fatalf("diagnostics: %v", bag.Items())
	}
	for _, d := range bag.Items() {
		if d.Code == diag.CfgUnknownAspect {
			start, _ := fs.Resolve(d.Primary)
			if start.Line != 6 {
				t.Fatalf("unknown aspect reported at line %d", start.Line)
			}
		}
	}
	if list := snap.Advice.All(); len(list) != 1 || list[0].Aspect != "C" {
		t.Fatalf("advices of cyclic aspects must be dropped: %v", list)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
		line string
	}{
		{"unknown root key", "file: []\n", ErrInvalid, ""},
		{"file without path", "files:\n  - usings: [System]\n", ErrInvalid, "doc.yaml:2:"},
		{"unknown member kind", "files:\n  - path: a.cs\n    types:\n      - name: A\n        members:\n          - {kind: indexer, name: X}\n", ErrInvalid, "doc.yaml:6:"},
		{"unknown access", "files:\n  - path: a.cs\n    types:\n      - {name: A, access: friend}\n", ErrInvalid, "doc.yaml:4:"},
		{"property without accessors", "files:\n  - path: a.cs\n    types:\n      - name: A\n        members:\n          - {kind: property, name: P, type: int}\n", ErrInvalid, "doc.yaml:6:"},
		{"duplicate member", "files:\n  - path: a.cs\n    types:\n      - name: A\n        members:\n          - {kind: field, name: x, type: int}\n          - {kind: field, name: x, type: int}\n", decl.ErrDuplicateKey, "doc.yaml:7:"},
		{"wrong part", "files:\n  - path: a.cs\n    types:\n      - {name: A, part: 1}\n", ErrInvalid, "doc.yaml:4:"},
		{"override without templates", "aspects:\n  - name: A\n    instances: [{advices: [{kind: override, target: \"M:A.B()\"}]}]\n", ErrInvalid, "doc.yaml:3:"},
		{"bad target", "aspects:\n  - name: A\n    instances: [{advices: [{kind: override, target: \"A.B\", body: x}]}]\n", ErrInvalid, "doc.yaml:3:"},
		{"duplicate aspect", "aspects:\n  - name: A\n  - name: A\n", ErrInvalid, "doc.yaml:3:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(source.NewFileSet(), "doc.yaml", []byte(tt.doc), nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.line != "" && !strings.Contains(err.Error(), tt.line) {
				t.Fatalf("err = %v, want position %s", err, tt.line)
			}
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	snap, _, _ := parse(t, "")
	if snap.Model.Len() != 0 || snap.Advice.Len() != 0 {
		t.Fatalf("empty document produced %d declarations, %d advices", snap.Model.Len(), snap.Advice.Len())
	}
}
