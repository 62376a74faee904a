package weave

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/emit"
	"weaver/internal/order"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// bank builds n account types Bank.Account0..n-1, each in its own file:
//
//	class AccountK {
//	    int balance;
//	    public void Deposit(int amount) { balance += amount; }
//	    public AccountK(int start) { balance = start; }
//	}
//
// plus a Bank.Ledger with Post(string).
func bank(t *testing.T, n int) *decl.Model {
	t.Helper()
	b := decl.NewBuilder()
	for k := range n {
		name := fmt.Sprintf("Account%d", k)
		f := b.AddFile("Bank/"+name+".cs", []string{"System"})
		typ, part, err := b.AddType(f, decl.NoID, 0, decl.Declaration{Name: name, Namespace: "Bank", Access: decl.Public})
		require.NoError(t, err)
		for _, d := range []decl.Declaration{
			{Kind: decl.KindField, Name: "balance", Type: "int", Access: decl.Private},
			{Kind: decl.KindMethod, Name: "Deposit", Type: "void", Access: decl.Public, Params: []decl.Param{{Name: "amount", Type: "int"}}, Body: decl.Str("balance += amount;")},
			{Kind: decl.KindConstructor, Access: decl.Public, Params: []decl.Param{{Name: "start", Type: "int"}}, Body: decl.Str("balance = start;")},
		} {
			_, err := b.AddMember(typ, part, d)
			require.NoError(t, err)
		}
	}
	f := b.AddFile("Bank/Ledger.cs", nil)
	typ, part, err := b.AddType(f, decl.NoID, 0, decl.Declaration{Name: "Ledger", Namespace: "Bank", Access: decl.Public})
	require.NoError(t, err)
	_, err = b.AddMember(typ, part, decl.Declaration{Kind: decl.KindMethod, Name: "Post", Type: "void", Access: decl.Public, Params: []decl.Param{{Name: "entry", Type: "string"}}, Body: decl.Str("")})
	require.NoError(t, err)
	return b.Build()
}

func header(aspect string, rank int, target decl.Key) advice.Header {
	return advice.Header{Aspect: aspect, Layer: order.Layer{Aspect: rank}, Target: target}
}

func accountAdvice(k int) []advice.Advice {
	typ := decl.Key(fmt.Sprintf("T:Bank.Account%d", k))
	deposit := decl.Key(fmt.Sprintf("M:Bank.Account%d.Deposit(int)", k))
	ctorKey := decl.Key(fmt.Sprintf("M:Bank.Account%d.#ctor(int)", k))
	return []advice.Advice{
		advice.NewOverride(header("Audit", 0, deposit), advice.Override{Templates: advice.Templates{Body: decl.Str(`Log("deposit"); meta.Proceed();`)}}),
		advice.NewOverride(header("Trace", 1, deposit), advice.Override{Templates: advice.Templates{Body: decl.Str(`Trace(); meta.Proceed();`)}}),
		advice.NewIntroduce(header("Audit", 0, typ), advice.Introduce{Member: decl.Declaration{
			Kind: decl.KindMethod, Name: "Log", Type: "void", Access: decl.Private,
			Params: []decl.Param{{Name: "msg", Type: "string"}},
			Body:   decl.Str("Console.WriteLine(msg);"),
		}}),
		advice.NewAddParameter(header("Audit", 0, ctorKey), advice.AddParameter{Param: decl.Param{Name: "logger", Type: "ILogger"}}),
	}
}

func sampleSet(n int) *advice.Set {
	var list []advice.Advice
	for k := range n {
		list = append(list, accountAdvice(k)...)
	}
	list = append(list,
		advice.NewOverride(header("Trace", 1, "M:Bank.Ledger.Post(string)"), advice.Override{Templates: advice.Templates{Body: decl.Str(`meta.Member("missing"); meta.Proceed();`)}}),
		advice.NewOverride(header("Trace", 1, "M:Bank.Nowhere.Post()"), advice.Override{Templates: advice.Templates{Body: decl.Str(`meta.Proceed();`)}}),
	)
	return advice.NewSet(list)
}

func member(t *testing.T, m *decl.Model, key decl.Key) *decl.Declaration {
	t.Helper()
	id, ok := m.Lookup(key)
	require.True(t, ok, "missing %s", key)
	return m.Get(id)
}

func TestRunWeavesEveryUnit(t *testing.T) {
	m := bank(t, 1)
	res, err := Run(context.Background(), m, sampleSet(1), Options{})
	require.NoError(t, err)
	require.True(t, res.Changed())

	out := res.Model
	assert.Equal(t, `Trace(); this.Deposit_Source1(amount);`, *member(t, out, "M:Bank.Account0.Deposit(int)").Body)
	assert.Equal(t, `Log("deposit"); this.Deposit_Source(amount);`, *member(t, out, "M:Bank.Account0.Deposit_Source1(int)").Body)
	assert.Equal(t, "balance += amount;", *member(t, out, "M:Bank.Account0.Deposit_Source(int)").Body)
	assert.Equal(t, decl.OriginIntroduced, member(t, out, "M:Bank.Account0.Log(string)").Origin.Kind)

	ctor := member(t, out, "M:Bank.Account0.#ctor(int,ILogger)")
	require.Len(t, ctor.Params, 2)
	assert.Equal(t, "default", *ctor.Params[1].Default)

	// the ledger failed on its own; nothing of it changed
	assert.Equal(t, "", *member(t, out, "M:Bank.Ledger.Post(string)").Body)
	_, ok := out.Lookup("M:Bank.Ledger.Post_Source(string)")
	assert.False(t, ok)

	assert.Equal(t, []decl.Key{"M:Bank.Ledger.Post(string)", "M:Bank.Nowhere.Post()"}, res.Failed)
	assert.Equal(t, 1, res.Diagnostics.Count(diag.TplUnknownMember))
	assert.Equal(t, 1, res.Diagnostics.Count(diag.CfgUnknownTarget))

	// the input model is untouched
	_, ok = m.Lookup("M:Bank.Account0.Log(string)")
	assert.False(t, ok)

	require.Len(t, res.Units, 2)
	assert.Equal(t, "Bank.Account0", res.Units[0].Unit)
	assert.Len(t, res.Units[0].Chains, 1)
	assert.Len(t, res.Units[0].Overloads.Changed(), 1)
	assert.NotEmpty(t, res.Timings.Phases)
}

func TestRunIsDeterministicAcrossJobs(t *testing.T) {
	m := bank(t, 8)
	set := sampleSet(8)

	serial, err := Run(context.Background(), m, set, Options{Jobs: 1})
	require.NoError(t, err)
	parallel, err := Run(context.Background(), m, set, Options{Jobs: 4})
	require.NoError(t, err)

	want := emit.Emit(serial.Model, emit.Options{}, nil)
	got := emit.Emit(parallel.Model, emit.Options{}, nil)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Jobs=4 output differs from Jobs=1 (-want +got):\n%s", diff)
	}
	assert.Equal(t, serial.Failed, parallel.Failed)
	assert.Equal(t, serial.Diagnostics.Items(), parallel.Diagnostics.Items())
}

func TestRunCancelledCommitsNothing(t *testing.T) {
	m := bank(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, m, sampleSet(4), Options{Jobs: 2})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Units)
	assert.False(t, res.Changed())
	for k := range 4 {
		_, ok := res.Model.Lookup(decl.Key(fmt.Sprintf("M:Bank.Account%d.Deposit_Source(int)", k)))
		assert.False(t, ok)
	}
}

func TestRunCancelledMidwayDropsUnfinishedUnits(t *testing.T) {
	m := bank(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// cancel as soon as the first unit is done; with one job the rest
	// never start
	sink := FuncSink(func(evt Event) {
		if evt.Status == StatusDone {
			cancel()
		}
	})
	res, err := Run(ctx, m, sampleSet(4), Options{Jobs: 1, Sink: sink})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Units, 1)
	_, ok := res.Model.Lookup("M:Bank.Account0.Deposit_Source(int)")
	assert.True(t, ok)
	_, ok = res.Model.Lookup("M:Bank.Account1.Deposit_Source(int)")
	assert.False(t, ok)
}

func TestRunReportsProgressAndLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var (
		mu     sync.Mutex
		events = map[string][]Status{}
	)
	sink := FuncSink(func(evt Event) {
		mu.Lock()
		defer mu.Unlock()
		events[evt.Unit] = append(events[evt.Unit], evt.Status)
	})

	_, err := Run(context.Background(), bank(t, 2), sampleSet(2), Options{Jobs: 2, Sink: sink, Logger: zap.New(core)})
	require.NoError(t, err)

	for _, unit := range []string{"Bank.Account0", "Bank.Account1", "Bank.Ledger"} {
		got := events[unit]
		require.NotEmpty(t, got, unit)
		assert.Equal(t, StatusQueued, got[0], unit)
		assert.Equal(t, StatusDone, got[len(got)-1], unit)
	}
	assert.Equal(t, 3, logs.FilterMessage("unit woven").Len())
	assert.Equal(t, 1, logs.FilterMessage("weave finished").Len())
}

func TestRunIntroducesTypesIntoNamespaces(t *testing.T) {
	m := bank(t, 1)
	set := advice.NewSet([]advice.Advice{
		advice.NewIntroduce(header("Audit", 0, "N:Bank.Audit"), advice.Introduce{Member: decl.Declaration{
			Kind: decl.KindType, Name: "Journal", Access: decl.Public, Mods: decl.ModStatic,
		}}),
		advice.NewOverride(header("Audit", 0, "N:Bank"), advice.Override{Templates: advice.Templates{Body: decl.Str("meta.Proceed();")}}),
	})
	res, err := Run(context.Background(), m, set, Options{})
	require.NoError(t, err)

	member(t, res.Model, "T:Bank.Audit.Journal")
	assert.Equal(t, 1, res.Diagnostics.Count(diag.CfgUnsupportedTarget))
	assert.Equal(t, []decl.Key{"N:Bank"}, res.Failed)

	units := emit.Emit(res.Model, emit.Options{}, nil)
	require.Len(t, units, 3)
	assert.Equal(t, "Bank/Audit/Journal.g.cs", units[2].Path)
	assert.True(t, units[2].Generated)
}

func TestUnitsFollowsRunOrder(t *testing.T) {
	m := bank(t, 2)
	set := sampleSet(2)
	assert.Equal(t, []string{"Bank.Account0", "Bank.Account1", "Bank.Ledger"}, Units(m, set))

	res, err := Run(context.Background(), m, set, Options{Jobs: 2})
	require.NoError(t, err)
	var got []string
	for _, u := range res.Units {
		got = append(got, u.Unit)
	}
	assert.Equal(t, Units(m, set), got)
}

// Two advices at one layer on Deposit fail that target alone; Withdraw and
// the constructor of the same type are still woven.
func TestRunContainsSameLayerConflict(t *testing.T) {
	b := decl.NewBuilder()
	f := b.AddFile("Bank/Account.cs", nil)
	typ, part, err := b.AddType(f, decl.NoID, 0, decl.Declaration{Name: "Account", Namespace: "Bank", Access: decl.Public})
	require.NoError(t, err)
	for _, d := range []decl.Declaration{
		{Kind: decl.KindField, Name: "balance", Type: "int", Access: decl.Private},
		{Kind: decl.KindMethod, Name: "Deposit", Type: "void", Access: decl.Public, Params: []decl.Param{{Name: "amount", Type: "int"}}, Body: decl.Str("balance += amount;")},
		{Kind: decl.KindMethod, Name: "Withdraw", Type: "void", Access: decl.Public, Params: []decl.Param{{Name: "amount", Type: "int"}}, Body: decl.Str("balance -= amount;")},
		{Kind: decl.KindConstructor, Access: decl.Public, Params: []decl.Param{{Name: "start", Type: "int"}}, Body: decl.Str("balance = start;")},
	} {
		_, err := b.AddMember(typ, part, d)
		require.NoError(t, err)
	}
	m := b.Build()

	proceed := advice.Templates{Body: decl.Str("meta.Proceed();")}
	set := advice.NewSet([]advice.Advice{
		advice.NewOverride(header("Audit", 0, "M:Bank.Account.Deposit(int)"), advice.Override{Templates: proceed}),
		advice.NewOverride(header("Trace", 0, "M:Bank.Account.Deposit(int)"), advice.Override{Templates: proceed}),
		advice.NewOverride(header("Audit", 0, "M:Bank.Account.Withdraw(int)"), advice.Override{Templates: proceed}),
		advice.NewAddParameter(header("Audit", 0, "M:Bank.Account.#ctor(int)"), advice.AddParameter{Param: decl.Param{Name: "logger", Type: "ILogger"}}),
	})
	res, err := Run(context.Background(), m, set, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Diagnostics.Count(diag.CfgDuplicateLayer))
	assert.Equal(t, []decl.Key{"M:Bank.Account.Deposit(int)"}, res.Failed)

	out := res.Model
	assert.Equal(t, "balance += amount;", *member(t, out, "M:Bank.Account.Deposit(int)").Body)
	_, ok := out.Lookup("M:Bank.Account.Deposit_Source(int)")
	assert.False(t, ok)

	assert.Equal(t, "this.Withdraw_Source(amount);", *member(t, out, "M:Bank.Account.Withdraw(int)").Body)
	assert.Equal(t, "balance -= amount;", *member(t, out, "M:Bank.Account.Withdraw_Source(int)").Body)

	ctor := member(t, out, "M:Bank.Account.#ctor(int,ILogger)")
	assert.Equal(t, "balance = start;", *ctor.Body)

	require.Len(t, res.Units, 1)
	assert.Len(t, res.Units[0].Chains, 1)
	assert.Len(t, res.Units[0].Overloads.Changed(), 1)
}
