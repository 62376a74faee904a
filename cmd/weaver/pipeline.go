package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"weaver/internal/cache"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/emit"
	"weaver/internal/observ"
	"weaver/internal/snapshot"
	"weaver/internal/source"
	"weaver/internal/version"
	"weaver/internal/weave"
)

// runOutcome is what one pipeline run produced. result is nil when the
// units came from the cache.
type runOutcome struct {
	fs     *source.FileSet
	file   source.FileID
	bag    *diag.Bag
	units  []emit.SourceUnit
	failed []string
	result *weave.Result
	cached bool
	timer  *observ.Timer
}

type pipeline struct {
	settings settings
	logger   *zap.Logger
	cache    *cache.DiskCache
	useUI    bool
}

func (p *pipeline) run(ctx context.Context) (*runOutcome, error) {
	out := &runOutcome{fs: source.NewFileSet(), timer: observ.NewTimer()}
	logger := p.logger.With(zap.String("snapshot", p.settings.Input))

	phase := out.timer.Begin("load")
	id, err := out.fs.Load(p.settings.Input)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	out.file = id
	file := out.fs.Get(id)
	out.timer.End(phase, fmt.Sprintf("%d bytes", len(file.Content)))

	var key cache.Digest
	if p.cache != nil {
		key = cache.Key(version.Fingerprint(), file.Content, p.cacheOptions()...)
		var payload cache.Payload
		hit, err := p.cache.Get(key, &payload)
		switch {
		case err != nil:
			logger.Warn("cache read failed", zap.String("key", key.String()), zap.Error(err))
		case hit:
			out.restore(&payload, p.settings.MaxDiagnostics)
			logger.Info("cache hit", zap.String("key", key.String()), zap.Int("units", len(out.units)))
			return out, nil
		}
	}

	out.bag = diag.NewBag(p.settings.MaxDiagnostics)
	phase = out.timer.Begin("decode")
	snap, err := snapshot.Decode(file, diag.BagReporter{Bag: out.bag})
	if err != nil {
		return nil, err
	}
	out.timer.End(phase, fmt.Sprintf("%d advices", snap.Advice.Len()))

	phase = out.timer.Begin("weave")
	res, err := p.weave(ctx, snap)
	out.timer.End(phase, fmt.Sprintf("jobs=%d", max(1, p.settings.Jobs)))
	if err != nil {
		return nil, err
	}
	out.result = &res
	out.bag.Merge(res.Diagnostics)
	out.failed = keyStrings(res.Failed)

	phase = out.timer.Begin("emit")
	out.units = emit.Emit(res.Model, emit.Options{}, diag.BagReporter{Bag: out.bag})
	out.timer.End(phase, fmt.Sprintf("%d units", len(out.units)))
	out.bag.Sort()

	if p.cache != nil {
		payload := out.payload()
		if err := p.cache.Put(key, &payload); err != nil {
			logger.Warn("cache write failed", zap.String("key", key.String()), zap.Error(err))
		}
	}
	return out, nil
}

func (p *pipeline) weave(ctx context.Context, snap *snapshot.Snapshot) (weave.Result, error) {
	opts := weave.Options{
		Jobs:           p.settings.Jobs,
		MaxDiagnostics: p.settings.MaxDiagnostics,
		Logger:         p.logger,
	}
	if !p.useUI {
		return weave.Run(ctx, snap.Model, snap.Advice, opts)
	}
	return runWeaveWithUI(ctx, "weaving "+filepath.Base(p.settings.Input), snap, opts)
}

// cacheOptions lists the settings that change the cached payload. Jobs is
// left out: the output does not depend on it.
func (p *pipeline) cacheOptions() []string {
	return []string{"max_diagnostics=" + strconv.Itoa(p.settings.MaxDiagnostics)}
}

func keyStrings(keys []decl.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
