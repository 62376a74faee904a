package decl

import (
	"testing"

	"weaver/internal/order"
)

func TestOverlayRollback(t *testing.T) {
	m, cust := shopModel(t)
	o := NewOverlay(m, cust)
	before := len(o.Refs())

	cp := o.Checkpoint()
	r, ok := o.Find("F:Shop.Customer.count")
	if !ok {
		t.Fatalf("count not found")
	}
	d := o.At(r).Clone()
	d.Name = "renamed"
	o.Replace(r, d)
	o.Append(Declaration{Kind: KindField, Name: "_x", Type: "int"})
	o.Remove(Ref(0))
	self := o.Self()
	self.Attrs = append(self.Attrs, Attribute{Name: "Serializable"})
	o.SetSelf(self)

	if !o.Changed() || o.At(r).Key != "F:Shop.Customer.renamed" {
		t.Fatalf("replace must recompute key, got %s", o.At(r).Key)
	}
	o.Rollback(cp)
	if o.Changed() || len(o.Refs()) != before || o.At(r).Name != "count" || len(o.Self().Attrs) != 0 {
		t.Fatalf("rollback incomplete")
	}
}

func TestCommitPublishesOverlay(t *testing.T) {
	m, cust := shopModel(t)
	o := NewOverlay(m, cust)

	r, _ := o.Find("M:Shop.Customer.#ctor(ref int)")
	ctor := o.At(r).Clone()
	ctor.Params = append(ctor.Params, Param{Name: "log", Type: "ILogger", Default: Str("default")})
	o.Replace(r, ctor)
	o.Append(Declaration{
		Kind:   KindMethod,
		Name:   "Save_Source",
		Type:   "void",
		Origin: Origin{Kind: OriginSynthetic, Layer: order.Layer{}},
		Part:   1,
	})
	o.Append(Declaration{
		Kind:    KindType,
		Name:    "Memento",
		Members: []Declaration{{Kind: KindField, Name: "state", Type: "string"}},
	})

	ns := NewNamespaceOverlay(m, "Shop.Audit")
	ns.Append(Declaration{Kind: KindType, Name: "AuditLog", Access: Public, Members: []Declaration{
		{Kind: KindConstructor, Access: Public, Body: Str("")},
	}})

	nm := m.Commit(o, ns)

	if _, ok := m.Lookup("M:Shop.Customer.Save_Source()"); ok {
		t.Fatalf("original model must not change")
	}
	if _, ok := nm.Lookup("M:Shop.Customer.#ctor(ref int)"); ok {
		t.Fatalf("old constructor key must be gone")
	}
	id, ok := nm.Lookup("M:Shop.Customer.#ctor(ref int,ILogger)")
	if !ok || len(nm.Get(id).Params) != 2 {
		t.Fatalf("new constructor key missing")
	}
	if _, ok := nm.Lookup("M:Shop.Customer.Save_Source()"); !ok {
		t.Fatalf("synthetic member missing")
	}
	if _, ok := nm.Lookup("F:Shop.Customer.Memento.state"); !ok {
		t.Fatalf("introduced nested type members missing")
	}
	if _, ok := nm.Lookup("M:Shop.Audit.AuditLog.#ctor()"); !ok {
		t.Fatalf("introduced top-level type missing")
	}
	last := nm.Files()[len(nm.Files())-1]
	if !last.Generated || last.Path != "Shop/Audit/AuditLog.g.cs" {
		t.Fatalf("generated unit = %+v", last)
	}
	if got := len(nm.Members(cust)); got != len(m.Members(cust))+2 {
		t.Fatalf("members = %d", got)
	}
}
