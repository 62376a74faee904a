package main

import (
	"weaver/internal/cache"
	"weaver/internal/diag"
	"weaver/internal/emit"
	"weaver/internal/source"
)

func (o *runOutcome) payload() cache.Payload {
	p := cache.Payload{
		Units:  make([]cache.Unit, len(o.units)),
		Failed: o.failed,
	}
	for i, u := range o.units {
		p.Units[i] = cache.Unit{Path: u.Path, Text: u.Text, Generated: u.Generated}
	}
	for _, d := range o.bag.Items() {
		p.Diagnostics = append(p.Diagnostics, cache.Diagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Target:   d.Target,
			Aspect:   d.Aspect,
			Located:  d.Primary.File == o.file,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		})
	}
	return p
}

// restore fills o from a cached payload. Spans are re-anchored on the
// snapshot just loaded, which has the same content.
func (o *runOutcome) restore(p *cache.Payload, maxDiagnostics int) {
	o.cached = true
	o.failed = p.Failed
	o.units = make([]emit.SourceUnit, len(p.Units))
	for i, u := range p.Units {
		o.units[i] = emit.SourceUnit{Path: u.Path, Text: u.Text, Generated: u.Generated}
	}
	o.bag = diag.NewBag(maxDiagnostics)
	for _, d := range p.Diagnostics {
		sev := diag.Severity(d.Severity)
		if !sev.Valid() {
			sev = diag.SevError
		}
		span := source.NoSpan
		if d.Located {
			span = source.Span{File: o.file, Start: d.Start, End: d.End}
		}
		o.bag.Add(diag.Diagnostic{
			Severity: sev,
			Code:     diag.Code(d.Code),
			Message:  d.Message,
			Primary:  span,
			Target:   d.Target,
			Aspect:   d.Aspect,
		})
	}
}
