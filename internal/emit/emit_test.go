package emit

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/link"
	"weaver/internal/names"
	"weaver/internal/order"
)

func mustType(t *testing.T, b *decl.Builder, f decl.FileRef, parent decl.ID, d decl.Declaration) (decl.ID, int) {
	t.Helper()
	id, part, err := b.AddType(f, parent, 0, d)
	if err != nil {
		t.Fatalf("AddType %s: %v", d.Name, err)
	}
	return id, part
}

func mustMember(t *testing.T, b *decl.Builder, typ decl.ID, part int, d decl.Declaration) {
	t.Helper()
	if _, err := b.AddMember(typ, part, d); err != nil {
		t.Fatalf("AddMember %s: %v", d.Name, err)
	}
}

func emitAll(t *testing.T, m *decl.Model, opts Options) ([]SourceUnit, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(0)
	return Emit(m, opts, diag.BagReporter{Bag: bag}), bag
}

func TestEmitFileLayout(t *testing.T) {
	b := decl.NewBuilder()
	f := b.AddFile("src/Account.cs", []string{"System"})
	acc, part := mustType(t, b, f, decl.NoID, decl.Declaration{
		Name: "Account", Namespace: "Bank", Access: decl.Public,
		Doc:   "/// <summary>Account.</summary>",
		Attrs: []decl.Attribute{{Name: "Serializable"}},
	})
	mustMember(t, b, acc, part, decl.Declaration{Kind: decl.KindField, Name: "balance", Type: "int", Access: decl.Private})
	mustMember(t, b, acc, part, decl.Declaration{
		Kind: decl.KindMethod, Name: "Deposit", Type: "void", Access: decl.Public,
		Params: []decl.Param{{Name: "amount", Type: "int"}},
		Body:   decl.Str("balance += amount;"),
		Doc:    "/// Adds money.",
		Attrs:  []decl.Attribute{{Name: "Obsolete", Args: `"use Credit"`}},
	})
	mustMember(t, b, acc, part, decl.Declaration{Kind: decl.KindProperty, Name: "Owner", Type: "string", Access: decl.Public, Auto: true, Get: &decl.Accessor{}, Set: &decl.Accessor{}, Value: decl.Str(`""`)})
	mustMember(t, b, acc, part, decl.Declaration{Kind: decl.KindProperty, Name: "Total", Type: "int", Access: decl.Public, Get: &decl.Accessor{Body: decl.Str("return balance;")}})
	mustMember(t, b, acc, part, decl.Declaration{Kind: decl.KindEvent, Name: "Changed", Type: "EventHandler", Access: decl.Public, Auto: true})
	mustMember(t, b, acc, part, decl.Declaration{
		Kind: decl.KindConstructor, Access: decl.Public,
		Params: []decl.Param{{Name: "start", Type: "int"}, {Name: "tag", Type: "string", Mode: decl.ModeIn, Default: decl.Str("null")}},
		Init:   &decl.Initializer{Kind: decl.InitBase, Args: []decl.Arg{{Expr: "start"}, {Name: "name", Expr: `"x"`}}},
		Body:   decl.Str(""),
	})
	mustMember(t, b, acc, part, decl.Declaration{Kind: decl.KindConstructor, Mods: decl.ModStatic, Body: decl.Str("Init();\n\nReady();")})
	entry, _ := mustType(t, b, f, acc, decl.Declaration{Name: "Entry", Access: decl.Public})
	mustMember(t, b, entry, 0, decl.Declaration{Kind: decl.KindField, Name: "Value", Type: "int", Access: decl.Public})

	units, bag := emitAll(t, b.Build(), Options{})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := []SourceUnit{{Path: "src/Account.cs", Text: `using System;

namespace Bank
{
    /// <summary>Account.</summary>
    [Serializable]
    public class Account
    {
        private int balance;

        /// Adds money.
        [Obsolete("use Credit")]
        public void Deposit(int amount)
        {
            balance += amount;
        }

        public string Owner { get; set; } = "";

        public int Total
        {
            get
            {
                return balance;
            }
        }

        public event EventHandler Changed;

        public Account(int start, in string tag = null) : base(start, name: "x")
        {
        }

        static Account()
        {
            Init();

            Ready();
        }

        public class Entry
        {
            public int Value;
        }
    }
}
`}}
	if diff := cmp.Diff(want, units); diff != "" {
		t.Fatalf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitPartialTypes(t *testing.T) {
	b := decl.NewBuilder()
	f1 := b.AddFile("Customer.cs", nil)
	f2 := b.AddFile("Customer.Orders.cs", nil)
	cust, p0 := mustType(t, b, f1, decl.NoID, decl.Declaration{Name: "Customer", Namespace: "Shop", Access: decl.Public, Mods: decl.ModPartial, Bases: []string{"EntityBase", "IDisposable"}})
	_, p1 := mustType(t, b, f2, decl.NoID, decl.Declaration{Name: "Customer", Namespace: "Shop", Mods: decl.ModPartial})
	mustMember(t, b, cust, p0, decl.Declaration{Kind: decl.KindField, Name: "name", Type: "string", Access: decl.Private})
	mustMember(t, b, cust, p1, decl.Declaration{Kind: decl.KindMethod, Name: "Dispose", Type: "void", Access: decl.Public, Body: decl.Str("")})

	units, _ := emitAll(t, b.Build(), Options{UseTabs: true})
	want := []SourceUnit{
		{Path: "Customer.cs", Text: "namespace Shop\n{\n\tpublic partial class Customer : EntityBase, IDisposable\n\t{\n\t\tprivate string name;\n\t}\n}\n"},
		{Path: "Customer.Orders.cs", Text: "namespace Shop\n{\n\tpublic partial class Customer\n\t{\n\t\tpublic void Dispose()\n\t\t{\n\t\t}\n\t}\n}\n"},
	}
	if diff := cmp.Diff(want, units); diff != "" {
		t.Fatalf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitKeepsDocumentationOnWrappedMember(t *testing.T) {
	b := decl.NewBuilder()
	f := b.AddFile("Account.cs", nil)
	acc, part := mustType(t, b, f, decl.NoID, decl.Declaration{Name: "Account", Access: decl.Public})
	mustMember(t, b, acc, part, decl.Declaration{
		Kind: decl.KindMethod, Name: "Deposit", Type: "void", Access: decl.Public,
		Params: []decl.Param{{Name: "amount", Type: "int"}},
		Body:   decl.Str("balance += amount;"),
		Doc:    "/// Adds money.",
		Attrs:  []decl.Attribute{{Name: "Obsolete"}},
	})
	m := b.Build()

	view := decl.NewOverlay(m, acc)
	target, ok := view.Find("M:Account.Deposit(int)")
	if !ok {
		t.Fatal("Deposit not found")
	}
	ov := advice.NewOverride(advice.Header{Aspect: "Audit", Layer: order.Layer{}},
		advice.Override{Templates: advice.Templates{Body: decl.Str(`Log("A"); meta.Proceed();`)}})
	if _, err := link.Link(view, target, []advice.Advice{ov}, names.NewAllocator(view.NameInUse), diag.NopReporter{}); err != nil {
		t.Fatalf("Link: %v", err)
	}

	units, _ := emitAll(t, m.Commit(view), Options{})
	want := `public class Account
{
    /// Adds money.
    [Obsolete]
    public void Deposit(int amount)
    {
        Log("A"); this.Deposit_Source(amount);
    }

    private void Deposit_Source(int amount)
    {
        balance += amount;
    }
}
`
	if diff := cmp.Diff(want, units[0].Text); diff != "" {
		t.Fatalf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitGeneratedUnit(t *testing.T) {
	b := decl.NewBuilder()
	f := b.AddFile("Shop/Customer.cs", nil)
	mustType(t, b, f, decl.NoID, decl.Declaration{Name: "Customer", Namespace: "Shop", Access: decl.Public})
	m := b.Build()

	ns := decl.NewNamespaceOverlay(m, "Shop.Generated")
	ns.Append(decl.Declaration{
		Kind: decl.KindType, Name: "Registry", Access: decl.Public, Mods: decl.ModStatic,
		Members: []decl.Declaration{{Kind: decl.KindField, Name: "Count", Type: "int", Access: decl.Public, Mods: decl.ModStatic}},
	})
	units, bag := emitAll(t, m.Commit(ns), Options{Header: "// generated"})
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if len(units) != 2 {
		t.Fatalf("got %d units", len(units))
	}
	want := SourceUnit{
		Path:      "Shop/Generated/Registry.g.cs",
		Generated: true,
		Text:      "// generated\n\nnamespace Shop.Generated\n{\n    public static class Registry\n    {\n        public static int Count;\n    }\n}\n",
	}
	if diff := cmp.Diff(want, units[1]); diff != "" {
		t.Fatalf("generated unit mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitReportsClashesAndMissingParts(t *testing.T) {
	b := decl.NewBuilder()
	f1 := b.AddFile("A.cs", nil)
	f2 := b.AddFile("A.cs", nil)
	mustType(t, b, f1, decl.NoID, decl.Declaration{Name: "A"})
	mustType(t, b, f2, decl.NoID, decl.Declaration{Name: "B"})
	mustType(t, b, decl.FileRef(0), decl.NoID, decl.Declaration{Name: "Orphan"})

	units, bag := emitAll(t, b.Build(), Options{})
	if len(units) != 1 || units[0].Text != "private class A\n{\n}\n" {
		t.Fatalf("units = %+v", units)
	}
	if bag.Count(diag.EmtUnitClash) != 1 {
		t.Fatalf("EMT5002 count = %d", bag.Count(diag.EmtUnitClash))
	}
	// B lost its only unit, Orphan never had one
	if bag.Count(diag.EmtMissingPart) != 2 {
		t.Fatalf("EMT5001 count = %d", bag.Count(diag.EmtMissingPart))
	}
}
