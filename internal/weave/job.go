package weave

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"weaver/internal/advice"
	"weaver/internal/ctor"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/introduce"
	"weaver/internal/link"
	"weaver/internal/names"
)

type weaver struct {
	model *decl.Model
	set   *advice.Set
	sink  ProgressSink
}

type targetGroup struct {
	key     decl.Key
	ref     decl.Ref
	advices []advice.Advice
}

// run weaves one unit on a private overlay. Diagnostics go to the unit's
// own bag so that the caller can merge them in declaration order. A
// cancelled context abandons the overlay.
func (w *weaver) run(ctx context.Context, j job) (outcome, error) {
	start := time.Now()
	bag := diag.NewBag(0)
	r := diag.BagReporter{Bag: bag}
	out := outcome{bag: bag, res: TypeResult{Unit: j.name}}
	list := collect(w.set, j.keys)

	var view *decl.Overlay
	if j.typ.IsValid() {
		view = decl.NewOverlay(w.model, j.typ)
	} else {
		view = decl.NewNamespaceOverlay(w.model, j.ns)
	}
	out.view = view

	w.stage(j, StageIntroduce, StatusWorking, nil, 0)
	intro := introduce.Apply(view, list, r)
	out.res.Introduced = intro.Introduced
	out.res.Failed = append(out.res.Failed, intro.Failed...)

	if !j.typ.IsValid() {
		for _, a := range list {
			if a.Kind == advice.KindOverride || a.Kind == advice.KindAddParameter {
				diag.ReportError(r, diag.CfgUnsupportedTarget, a.Span,
					fmt.Sprintf("%s advice cannot target namespace %s", a.Kind, j.ns)).
					WithTarget(string(a.Target)).
					WithAspect(a.Aspect).
					Emit()
				out.res.Failed = append(out.res.Failed, a.Target)
			}
		}
		return w.finish(j, out, start), nil
	}

	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	w.stage(j, StageLink, StatusWorking, nil, 0)
	chains, failed, err := w.link(ctx, view, overridesOf(list, intro.Overrides), r)
	if err != nil {
		return outcome{}, err
	}
	out.res.Chains = chains
	out.res.Failed = append(out.res.Failed, failed...)

	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	w.stage(j, StageResolve, StatusWorking, nil, 0)
	var requests []advice.Advice
	for _, a := range list {
		if a.Kind != advice.KindAddParameter {
			continue
		}
		if _, ok := view.Find(a.Target); !ok {
			unknownTarget(r, []advice.Advice{a})
			out.res.Failed = append(out.res.Failed, a.Target)
			continue
		}
		requests = append(requests, a)
	}
	if len(requests) > 0 {
		set, err := ctor.Resolve(view, requests, r)
		if err != nil && !errors.Is(err, ctor.ErrDropped) {
			return outcome{}, err
		}
		out.res.Overloads = set
		out.res.Failed = append(out.res.Failed, set.Failed...)
	}
	return w.finish(j, out, start), nil
}

func (w *weaver) finish(j job, out outcome, start time.Time) outcome {
	slices.Sort(out.res.Failed)
	out.res.Failed = slices.Compact(out.res.Failed)
	out.res.Elapsed = time.Since(start)
	out.done = true
	w.stage(j, StageCommit, StatusDone, nil, out.res.Elapsed)
	return out
}

// link prepares every override target of the unit before rendering any of
// them, so a template at any layer sees the final member set.
func (w *weaver) link(ctx context.Context, view *decl.Overlay, groups []targetGroup, r diag.Reporter) ([]link.Chain, []decl.Key, error) {
	alloc := names.NewAllocator(view.NameInUse)
	var (
		failed []decl.Key
		plans  []*link.Plan
		keys   []decl.Key
	)
	for i := range groups {
		if groups[i].key == view.Self().Key {
			for _, a := range groups[i].advices {
				diag.ReportError(r, diag.CfgUnsupportedTarget, a.Span,
					fmt.Sprintf("type %s cannot be overridden", a.Target)).
					WithTarget(string(a.Target)).
					WithAspect(a.Aspect).
					Emit()
			}
			failed = append(failed, groups[i].key)
			groups[i].ref = -1
			continue
		}
		ref, ok := view.Find(groups[i].key)
		if !ok {
			unknownTarget(r, groups[i].advices)
			failed = append(failed, groups[i].key)
			groups[i].ref = -1
			continue
		}
		groups[i].ref = ref
	}
	slices.SortStableFunc(groups, func(a, b targetGroup) int { return int(a.ref) - int(b.ref) })

	for _, g := range groups {
		if g.ref < 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		p, err := link.Prepare(view, g.ref, g.advices, alloc, r)
		if err != nil {
			failed = append(failed, g.key)
			continue
		}
		if p != nil {
			plans = append(plans, p)
			keys = append(keys, g.key)
		}
	}

	var chains []link.Chain
	for i, p := range plans {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		chain, err := p.Synthesize(view, r)
		if err != nil {
			failed = append(failed, keys[i])
			continue
		}
		chains = append(chains, chain)
	}
	return chains, failed, nil
}

// overridesOf groups override advice by target, keeping layer order.
// Overrides derived from introductions join the group of their target.
func overridesOf(list, derived []advice.Advice) []targetGroup {
	var groups []targetGroup
	index := make(map[decl.Key]int)
	add := func(a advice.Advice) {
		i, ok := index[a.Target]
		if !ok {
			i = len(groups)
			index[a.Target] = i
			groups = append(groups, targetGroup{key: a.Target})
		}
		groups[i].advices = append(groups[i].advices, a)
	}
	for _, a := range list {
		if a.Kind == advice.KindOverride {
			add(a)
		}
	}
	for _, a := range derived {
		add(a)
	}
	for i := range groups {
		slices.SortStableFunc(groups[i].advices, func(a, b advice.Advice) int { return a.Layer.Compare(b.Layer) })
	}
	return groups
}

func (w *weaver) stage(j job, stage Stage, status Status, err error, elapsed time.Duration) {
	notify(w.sink, Event{Unit: j.name, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
