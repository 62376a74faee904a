// Package weave runs the whole transformation over one snapshot: each
// declaring type gets its own overlay and name allocator, advice is applied
// in layer order (introductions, then override chains, then constructor
// parameters) and the overlays are committed into a new model in
// declaration order.
package weave

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"weaver/internal/advice"
	"weaver/internal/ctor"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/link"
	"weaver/internal/observ"
)

// Options configures a run. The zero value weaves single-threaded without
// logging or progress events.
type Options struct {
	// Jobs bounds how many declaring types are woven at once.
	Jobs           int
	MaxDiagnostics int
	Logger         *zap.Logger
	Sink           ProgressSink
}

// TypeResult describes what happened to one declaring type or namespace.
type TypeResult struct {
	Unit       string
	Introduced []decl.Key
	Chains     []link.Chain
	Overloads  ctor.OverloadSet
	Failed     []decl.Key
	Elapsed    time.Duration
}

// Result is the outcome of Run. Model is the woven model; on cancellation
// it holds only the types that finished before the context ended.
type Result struct {
	Model       *decl.Model
	Units       []TypeResult
	Failed      []decl.Key
	Diagnostics *diag.Bag
	Timings     observ.Report
}

// Changed reports whether any unit was modified.
func (r Result) Changed() bool {
	for _, u := range r.Units {
		if len(u.Introduced) > 0 || len(u.Chains) > 0 || len(u.Overloads.Changed()) > 0 {
			return true
		}
	}
	return false
}

// job is one declaring type, or one namespace receiving new types.
type job struct {
	typ  decl.ID
	ns   string
	name string
	keys []decl.Key
}

type outcome struct {
	view *decl.Overlay
	bag  *diag.Bag
	res  TypeResult
	done bool
}

// Run weaves set into m. Failures of single advices are reported in
// Result.Diagnostics and Result.Failed; the returned error is reserved for
// cancellation.
func Run(ctx context.Context, m *decl.Model, set *advice.Set, opts Options) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = 1
	}
	timer := observ.NewTimer()
	res := Result{Model: m, Diagnostics: diag.NewBag(opts.MaxDiagnostics)}
	global := diag.BagReporter{Bag: res.Diagnostics}

	phase := timer.Begin("group")
	grouping := set.ByType(m)
	for _, key := range grouping.Unresolved {
		unknownTarget(global, set.For(key))
		res.Failed = append(res.Failed, key)
	}
	work := plan(m, set, grouping)
	timer.End(phase, fmt.Sprintf("%d units", len(work)))

	for _, j := range work {
		notify(opts.Sink, Event{Unit: j.name, Stage: StageIntroduce, Status: StatusQueued})
	}

	phase = timer.Begin("weave")
	outcomes := make([]outcome, len(work))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(work))))
	for i, j := range work {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w := &weaver{model: m, set: set, sink: opts.Sink}
			out, err := w.run(gctx, j)
			if err != nil {
				notify(opts.Sink, Event{Unit: j.name, Stage: StageCommit, Status: StatusError, Err: err})
				return err
			}
			outcomes[i] = out
			logger.Debug("unit woven",
				zap.String("unit", j.name),
				zap.Int("introduced", len(out.res.Introduced)),
				zap.Int("chains", len(out.res.Chains)),
				zap.Int("failed", len(out.res.Failed)),
				zap.Duration("elapsed", out.res.Elapsed))
			return nil
		})
	}
	runErr := g.Wait()
	timer.End(phase, fmt.Sprintf("jobs=%d", jobs))

	phase = timer.Begin("commit")
	overlays := make([]*decl.Overlay, 0, len(outcomes))
	for _, out := range outcomes {
		if !out.done {
			continue
		}
		overlays = append(overlays, out.view)
		res.Diagnostics.Merge(out.bag)
		res.Units = append(res.Units, out.res)
		res.Failed = append(res.Failed, out.res.Failed...)
	}
	res.Model = m.Commit(overlays...)
	slices.Sort(res.Failed)
	res.Failed = slices.Compact(res.Failed)
	timer.End(phase, fmt.Sprintf("%d overlays", len(overlays)))
	res.Timings = timer.Report()

	if runErr != nil {
		logger.Warn("weave interrupted", zap.Error(runErr), zap.Int("committed", len(overlays)))
		return res, fmt.Errorf("weave interrupted: %w", runErr)
	}
	logger.Info("weave finished",
		zap.Int("units", len(res.Units)),
		zap.Int("failed", len(res.Failed)),
		zap.Int("diagnostics", res.Diagnostics.Len()),
		zap.Int("jobs", jobs),
		zap.Float64("total_ms", res.Timings.TotalMS))
	return res, nil
}

// Units lists the names of the units Run would weave, in the order it
// reports them.
func Units(m *decl.Model, set *advice.Set) []string {
	work := plan(m, set, set.ByType(m))
	names := make([]string, len(work))
	for i, j := range work {
		names[i] = j.name
	}
	return names
}

// plan orders the work: declaring types in declaration order, outer types
// first, then namespaces by name.
func plan(m *decl.Model, set *advice.Set, g advice.Grouping) []job {
	var work []job
	for _, id := range m.AllTypes() {
		keys, ok := g.Types[id]
		if !ok {
			continue
		}
		work = append(work, job{typ: id, name: m.QualifiedName(id), keys: keys})
	}
	namespaces := make([]string, 0, len(g.Namespaces))
	for ns := range g.Namespaces {
		namespaces = append(namespaces, ns)
	}
	slices.Sort(namespaces)
	for _, ns := range namespaces {
		name := ns
		if name == "" {
			name = "<global>"
		}
		work = append(work, job{ns: ns, name: name, keys: g.Namespaces[ns]})
	}
	return work
}

// collect merges the advice on keys into one layer-ordered list.
func collect(set *advice.Set, keys []decl.Key) []advice.Advice {
	var list []advice.Advice
	for _, k := range keys {
		list = append(list, set.For(k)...)
	}
	slices.SortStableFunc(list, func(a, b advice.Advice) int {
		if c := a.Layer.Compare(b.Layer); c != 0 {
			return c
		}
		return cmp.Compare(a.Aspect, b.Aspect)
	})
	return list
}

func notify(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}

func unknownTarget(r diag.Reporter, list []advice.Advice) {
	for _, a := range list {
		diag.ReportError(r, diag.CfgUnknownTarget, a.Span,
			fmt.Sprintf("%s advice targets unknown declaration %s", a.Kind, a.Target)).
			WithTarget(string(a.Target)).
			WithAspect(a.Aspect).
			Emit()
	}
}
