package ctor

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/names"
)

// ErrDropped reports that at least one request was not applied.
var ErrDropped = errors.New("add-parameter advice dropped")

type preCtor struct {
	ref  decl.Ref
	decl decl.Declaration
	// identity is the constructor a call binding to this one really
	// reaches: itself, or the target of a deambiguating constructor.
	identity decl.Key
}

// entry is one request applied to one constructor. Pulled copies keep the
// index of the request they come from.
type entry struct {
	adv advice.Advice
	src int
	via int // constructor the copy chains into, or -1
}

type visit struct{ ctor, src int }

type resolver struct {
	view    *decl.Overlay
	pre     []preCtor
	byKey   map[decl.Key]int
	active  []advice.Advice
	dropped []bool
	lists   [][]entry
	added   [][]Added
	failed  []decl.Key // requests rejected by the last attempt
	widths  map[int][]int
	drops   []decl.Key // requests dropped for ambiguity
}

// Resolve applies the add-parameter requests of one type. Requests that
// cannot be applied are reported and dropped; the remaining ones are
// applied so that every call shape that bound to one constructor before
// still binds to it, or to a deambiguating constructor forwarding to it.
// The returned error wraps ErrDropped when any request was dropped; the
// overload set is valid either way.
func Resolve(view *decl.Overlay, requests []advice.Advice, r diag.Reporter) (OverloadSet, error) {
	rs := &resolver{view: view, byKey: make(map[decl.Key]int), widths: make(map[int][]int)}
	for _, ref := range view.Constructors() {
		d := view.At(ref)
		rs.byKey[d.Key] = len(rs.pre)
		rs.pre = append(rs.pre, preCtor{ref: ref, decl: d, identity: d.Key})
	}
	for i := range rs.pre {
		o := rs.pre[i].decl.Origin
		if o.Kind != decl.OriginDeambiguating {
			continue
		}
		if j, ok := rs.byKey[o.ForwardsTo]; ok {
			rs.pre[i].identity = rs.pre[j].decl.Key
		}
	}

	for _, a := range requests {
		switch a.Kind {
		case advice.KindAddParameter:
		default:
			panic(fmt.Sprintf("ctor: unexpected %s advice", a.Kind))
		}
		if _, ok := rs.byKey[a.Target]; !ok {
			diag.ReportError(r, diag.CfgUnsupportedTarget, a.Span,
				fmt.Sprintf("cannot add parameter %s: %s is not a constructor", a.AddParameter.Param.Name, a.Target)).
				WithTarget(string(a.Target)).
				WithAspect(a.Aspect).
				Emit()
			rs.drops = append(rs.drops, a.Target)
			continue
		}
		rs.active = append(rs.active, a)
	}
	rs.dropped = make([]bool, len(rs.active))
	if len(rs.active) == 0 {
		return rs.finish()
	}

	cp := view.Checkpoint()
	for {
		local := diag.NewBag(0)
		v := rs.attempt(diag.BagReporter{Bag: local})
		if v == nil {
			for _, d := range local.Items() {
				r.Report(d)
			}
			return rs.finish()
		}
		view.Rollback(cp)
		if rs.widen(v) {
			continue
		}
		victim := rs.victim(v)
		if victim < 0 {
			rs.added, rs.failed = nil, nil
			return rs.finish()
		}
		rs.dropped[victim] = true
		a := rs.active[victim]
		rs.drops = append(rs.drops, a.Target)
		diag.ReportError(r, diag.CtrAmbiguity, a.Span,
			fmt.Sprintf("adding parameter %s would break the call %s; the advice is dropped", a.AddParameter.Param.Name, v.shape)).
			WithTarget(string(a.Target)).
			WithAspect(a.Aspect).
			Emit()
	}
}

// attempt applies every request not dropped yet and verifies the result.
func (rs *resolver) attempt(r diag.Reporter) *violation {
	rs.expand()
	finals := rs.apply(r)
	oldKeys := make(map[decl.Key]decl.Key)
	for c := range rs.pre {
		if len(rs.added[c]) > 0 {
			oldKeys[rs.pre[c].decl.Key] = rs.key(c)
		}
	}
	rs.retarget(oldKeys)
	rs.patchPulled(finals)
	rs.deambiguate()
	return verify(rs.preMembers(), rs.postMembers())
}

func (rs *resolver) key(c int) decl.Key { return rs.view.At(rs.pre[c].ref).Key }

// expand distributes the requests over the constructors and copies pull
// requests to every constructor chaining into their target.
func (rs *resolver) expand() {
	rs.lists = make([][]entry, len(rs.pre))
	type item struct {
		at int
		e  entry
	}
	var queue []item
	seen := make(map[visit]bool)
	for i, a := range rs.active {
		if rs.dropped[i] {
			continue
		}
		t := rs.byKey[a.Target]
		e := entry{adv: a, src: i, via: -1}
		rs.lists[t] = append(rs.lists[t], e)
		seen[visit{t, i}] = true
		if a.AddParameter.Pull == advice.PullParameter && unsupported(&rs.pre[t].decl, a.AddParameter.Param) == "" {
			queue = append(queue, item{at: t, e: e})
		}
	}
	callers := rs.callers()
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		for _, c := range callers[q.at] {
			if seen[visit{c, q.e.src}] {
				continue
			}
			seen[visit{c, q.e.src}] = true
			cp := q.e.adv
			cp.Target = rs.pre[c].decl.Key
			e := entry{adv: cp, src: q.e.src, via: q.at}
			rs.lists[c] = append(rs.lists[c], e)
			if unsupported(&rs.pre[c].decl, cp.AddParameter.Param) == "" {
				queue = append(queue, item{at: c, e: e})
			}
		}
	}
	for _, list := range rs.lists {
		slices.SortStableFunc(list, func(a, b entry) int {
			if c := a.adv.Layer.Compare(b.adv.Layer); c != 0 {
				return c
			}
			return cmp.Compare(a.src, b.src)
		})
	}
}

// callers maps each constructor to the constructors whose ": this(...)"
// initializer calls it.
func (rs *resolver) callers() map[int][]int {
	out := make(map[int][]int)
	for c, p := range rs.pre {
		if p.decl.Init == nil || p.decl.Init.Kind != decl.InitThis {
			continue
		}
		if t := rs.initTarget(c); t >= 0 {
			out[t] = append(out[t], c)
		}
	}
	return out
}

// initTarget finds the constructor called by the initializer of c: the
// recorded target when there is one, otherwise the unique best candidate
// for the argument names and modes.
func (rs *resolver) initTarget(c int) int {
	init := rs.pre[c].decl.Init
	if init.Target != "" {
		if t, ok := rs.byKey[init.Target]; ok {
			return t
		}
	}
	s := make(Shape, len(init.Args))
	for i, a := range init.Args {
		s[i] = ArgShape{Name: a.Name, Mode: a.Mode}
	}
	var idx []int
	var cands [][]decl.Param
	for i, p := range rs.pre {
		if i != c && !p.decl.IsStatic() {
			idx = append(idx, i)
			cands = append(cands, p.decl.Params)
		}
	}
	if hits := resolve(cands, s); len(hits) == 1 {
		return idx[hits[0]]
	}
	return -1
}

// unsupported explains why p cannot be added to d, or returns "".
func unsupported(d *decl.Declaration, p decl.Param) string {
	switch {
	case d.IsStatic():
		return "a static constructor takes no parameters"
	case p.Name == "" || p.Type == "":
		return "the parameter needs a name and a type"
	case p.Mode != decl.ModeValue:
		return fmt.Sprintf("a %s parameter cannot be optional", p.Mode)
	}
	return ""
}

// apply appends the parameters and returns the final name of every applied
// request per constructor.
func (rs *resolver) apply(r diag.Reporter) map[visit]string {
	finals := make(map[visit]string)
	rs.added = make([][]Added, len(rs.pre))
	rs.failed = nil
	for c, list := range rs.lists {
		if len(list) == 0 {
			continue
		}
		d := rs.pre[c].decl.Clone()
		for _, e := range list {
			p := e.adv.AddParameter.Param
			target := string(rs.pre[c].decl.Key)
			if reason := unsupported(&d, p); reason != "" {
				if e.via >= 0 {
					diag.ReportWarning(r, diag.CtrPullUnavailable, e.adv.Span,
						fmt.Sprintf("parameter %s is not pulled through %s: %s", p.Name, target, reason)).
						WithTarget(target).
						WithAspect(e.adv.Aspect).
						Emit()
				} else {
					diag.ReportError(r, diag.CtrUnsupportedParameter, e.adv.Span,
						fmt.Sprintf("cannot add parameter %s: %s", p.Name, reason)).
						WithTarget(target).
						WithAspect(e.adv.Aspect).
						Emit()
					rs.failed = append(rs.failed, e.adv.Target)
				}
				continue
			}
			name, err := names.Suffix(p.Name, func(n string) bool { return paramIndex(d.Params, n) >= 0 })
			if err != nil {
				diag.ReportError(r, diag.CfgNameExhausted, e.adv.Span,
					fmt.Sprintf("cannot add parameter %s: %v", p.Name, err)).
					WithTarget(target).
					WithAspect(e.adv.Aspect).
					Emit()
				if e.via < 0 {
					rs.failed = append(rs.failed, e.adv.Target)
				}
				continue
			}
			if name != p.Name && e.via < 0 {
				diag.ReportInfo(r, diag.CtrParameterRenamed, e.adv.Span,
					fmt.Sprintf("parameter %s is added as %s", p.Name, name)).
					WithTarget(target).
					WithAspect(e.adv.Aspect).
					Emit()
			}
			def := "default"
			if p.Default != nil {
				def = *p.Default
			}
			np := decl.Param{Name: name, Type: p.Type, Default: decl.Str(def)}
			d.Params = slices.Insert(d.Params, fixedLen(d.Params), np)
			rs.added[c] = append(rs.added[c], Added{
				Param:     np,
				Requested: p.Name,
				Aspect:    e.adv.Aspect,
				Layer:     e.adv.Layer,
				Pulled:    e.via >= 0,
			})
			finals[visit{c, e.src}] = name
		}
		if len(rs.added[c]) > 0 {
			rs.view.Replace(rs.pre[c].ref, d)
		}
	}
	return finals
}

// retarget follows key changes in initializers and forwarding records.
func (rs *resolver) retarget(oldKeys map[decl.Key]decl.Key) {
	if len(oldKeys) == 0 {
		return
	}
	for _, ref := range rs.view.Constructors() {
		d := rs.view.At(ref)
		nk, retargetInit := decl.Key(""), false
		if d.Init != nil {
			nk, retargetInit = oldKeys[d.Init.Target]
		}
		fk, retargetOrigin := oldKeys[d.Origin.ForwardsTo]
		if !retargetInit && !retargetOrigin {
			continue
		}
		d = d.Clone()
		if retargetInit {
			d.Init.Target = nk
		}
		if retargetOrigin {
			d.Origin.ForwardsTo = fk
		}
		rs.view.Replace(ref, d)
	}
}

// patchPulled makes every caller that received a pulled parameter pass it
// on by name.
func (rs *resolver) patchPulled(finals map[visit]string) {
	for c, list := range rs.lists {
		for _, e := range list {
			if e.via < 0 {
				continue
			}
			own, ok1 := finals[visit{c, e.src}]
			callee, ok2 := finals[visit{e.via, e.src}]
			if !ok1 || !ok2 {
				continue
			}
			d := rs.view.At(rs.pre[c].ref).Clone()
			if d.Init == nil {
				continue
			}
			arg := decl.Arg{Name: callee, Expr: own}
			if i := slices.IndexFunc(d.Init.Args, func(a decl.Arg) bool { return a.Name == callee }); i >= 0 {
				d.Init.Args[i] = arg
			} else {
				d.Init.Args = append(d.Init.Args, arg)
			}
			d.Init.Target = rs.key(e.via)
			rs.view.Replace(rs.pre[c].ref, d)
		}
	}
}

// deambiguate adds the deambiguating constructors of every changed
// constructor: first the wider ones recorded by widen, then the one taking
// the original mandatory prefix when the constructor had optional
// parameters or a sibling accepting that prefix.
func (rs *resolver) deambiguate() {
	for c := range rs.pre {
		if len(rs.added[c]) == 0 {
			continue
		}
		for _, k := range rs.widths[c] {
			rs.forward(c, k)
		}
	}
	for c := range rs.pre {
		if len(rs.added[c]) == 0 {
			continue
		}
		orig := rs.pre[c].decl.Params
		m := decl.MandatoryPrefix(orig)
		if m == len(orig) && !rs.siblingAccepts(c, positional(orig)) {
			continue
		}
		rs.forward(c, m)
	}
}

// forward adds a constructor taking the first k original parameters of c,
// plus its params parameter, that chains into c with defaults for the rest.
// An existing constructor with the same signature suppresses it; when that
// constructor is a deambiguating one for the same target its forwarding
// arguments are refreshed.
func (rs *resolver) forward(c, k int) {
	orig := rs.pre[c].decl
	fixed := fixedLen(orig.Params)
	target := rs.key(c)
	args := make([]decl.Arg, 0, len(orig.Params)+len(rs.added[c]))
	for _, p := range orig.Params[:k] {
		args = append(args, decl.Arg{Mode: argMode(p.Mode), Expr: p.Name})
	}
	for _, p := range orig.Params[k:fixed] {
		args = append(args, decl.Arg{Expr: *p.Default})
	}
	for _, a := range rs.added[c] {
		args = append(args, decl.Arg{Expr: *a.Param.Default})
	}
	params := decl.CloneParams(orig.Params[:k])
	for i := range params {
		params[i].Default = nil
	}
	if fixed < len(orig.Params) {
		rest := orig.Params[fixed]
		args = append(args, decl.Arg{Expr: rest.Name})
		params = append(params, rest)
	}
	init := &decl.Initializer{Kind: decl.InitThis, Args: args, Target: target}

	if ref, ok := rs.findSignature(params); ok {
		e := rs.view.At(ref)
		if e.Origin.Kind != decl.OriginDeambiguating || !rs.sameTarget(ref, e, c) {
			return
		}
		e = e.Clone()
		e.Init = init
		e.Origin.ForwardsTo = target
		rs.view.Replace(ref, e)
		return
	}
	rs.view.Append(decl.Declaration{
		Kind:   decl.KindConstructor,
		Access: orig.Access,
		Params: params,
		Body:   decl.Str(""),
		Init:   init,
		Part:   orig.Part,
		Span:   orig.Span,
		Origin: decl.Origin{
			Kind:       decl.OriginDeambiguating,
			Aspect:     rs.added[c][0].Aspect,
			Layer:      rs.added[c][0].Layer,
			ForwardsTo: target,
		},
	})
}

// widen records a wider deambiguating constructor for the changed
// constructor the broken call of v should reach. It reports false when
// every width that could accept the call has been tried.
func (rs *resolver) widen(v *violation) bool {
	for c, p := range rs.pre {
		if p.decl.Key != v.want || len(rs.added[c]) == 0 {
			continue
		}
		m := decl.MandatoryPrefix(p.decl.Params)
		for k := max(len(v.shape), m+1); k <= fixedLen(p.decl.Params); k++ {
			if !slices.Contains(rs.widths[c], k) {
				rs.widths[c] = append(rs.widths[c], k)
				return true
			}
		}
	}
	return false
}

func (rs *resolver) sameTarget(ref decl.Ref, e decl.Declaration, c int) bool {
	if j, ok := rs.preIndex(ref); ok && rs.pre[j].identity == rs.pre[c].identity {
		return true
	}
	return e.Origin.ForwardsTo == rs.pre[c].decl.Key || e.Origin.ForwardsTo == rs.key(c)
}

// siblingAccepts reports whether a constructor other than c accepts s.
func (rs *resolver) siblingAccepts(c int, s Shape) bool {
	self := rs.pre[c].ref
	for _, ref := range rs.view.Constructors() {
		d := rs.view.At(ref)
		if ref == self || d.IsStatic() {
			continue
		}
		if _, ok := applicable(d.Params, s, false); ok {
			return true
		}
		if _, ok := applicable(d.Params, s, true); ok {
			return true
		}
	}
	return false
}

func (rs *resolver) findSignature(params []decl.Param) (decl.Ref, bool) {
	for _, ref := range rs.view.Constructors() {
		d := rs.view.At(ref)
		if !d.IsStatic() && decl.SameSignature(d.Params, params) {
			return ref, true
		}
	}
	return 0, false
}

func (rs *resolver) preIndex(ref decl.Ref) (int, bool) {
	for i, p := range rs.pre {
		if p.ref == ref {
			return i, true
		}
	}
	return 0, false
}

func (rs *resolver) preMembers() []member {
	var out []member
	for _, p := range rs.pre {
		if !p.decl.IsStatic() {
			out = append(out, member{params: p.decl.Params, identity: p.identity})
		}
	}
	return out
}

func (rs *resolver) postMembers() []member {
	var out []member
	for _, ref := range rs.view.Constructors() {
		d := rs.view.At(ref)
		if d.IsStatic() {
			continue
		}
		out = append(out, member{params: d.Params, identity: rs.identityOf(ref, &d)})
	}
	return out
}

// identityOf maps a constructor of the overlay back to the original
// constructor its calls reach.
func (rs *resolver) identityOf(ref decl.Ref, d *decl.Declaration) decl.Key {
	if i, ok := rs.preIndex(ref); ok {
		if d.Origin.Kind != decl.OriginDeambiguating {
			return rs.pre[i].identity
		}
	}
	if d.Origin.Kind == decl.OriginDeambiguating {
		for i := range rs.pre {
			if rs.key(i) == d.Origin.ForwardsTo {
				return rs.pre[i].identity
			}
		}
	}
	return d.Key
}

// victim picks the request to drop for v: the highest layered request
// applied to a constructor involved in the broken call, or the highest
// layered request left when none is.
func (rs *resolver) victim(v *violation) int {
	involved := make(map[int]bool)
	for c, p := range rs.pre {
		if slices.Contains(v.involved, p.identity) {
			involved[c] = true
		}
	}
	best := -1
	consider := func(i int) {
		if rs.dropped[i] {
			return
		}
		if best < 0 || rs.active[i].Layer.Compare(rs.active[best].Layer) >= 0 {
			best = i
		}
	}
	for c, list := range rs.lists {
		if !involved[c] {
			continue
		}
		for _, e := range list {
			consider(e.src)
		}
	}
	if best >= 0 {
		return best
	}
	for i := range rs.active {
		consider(i)
	}
	return best
}

func (rs *resolver) finish() (OverloadSet, error) {
	set := rs.result()
	set.Failed = append(slices.Clone(rs.drops), rs.failed...)
	slices.Sort(set.Failed)
	set.Failed = slices.Compact(set.Failed)
	if len(set.Failed) > 0 {
		return set, fmt.Errorf("%w on %d constructor(s)", ErrDropped, len(set.Failed))
	}
	return set, nil
}

func (rs *resolver) result() OverloadSet {
	set := OverloadSet{Type: decl.TypeKey(rs.view.QualifiedName())}
	for _, ref := range rs.view.Constructors() {
		d := rs.view.At(ref)
		c := Ctor{Decl: d, Ref: ref, Of: d.Key}
		if i, ok := rs.preIndex(ref); ok {
			c.Of = rs.pre[i].decl.Key
			if rs.added != nil {
				c.Added = rs.added[i]
			}
		}
		if d.Origin.Kind == decl.OriginDeambiguating {
			c.Deambiguating = true
			c.ForwardsTo = d.Origin.ForwardsTo
			if _, ok := rs.preIndex(ref); !ok {
				c.Of = rs.identityOf(ref, &d)
			}
		}
		set.Ctors = append(set.Ctors, c)
	}
	return set
}
