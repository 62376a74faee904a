package link

import (
	"fmt"

	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/names"
)

// Synthesize renders the body of every layer against the overlay as left
// by all Prepare calls of the type. When any layer fails, the member and
// its structural introductions are restored and ErrTemplate is returned;
// the diagnostics name the target and the aspect of each failing layer.
func (p *Plan) Synthesize(view *decl.Overlay, r diag.Reporter) (Chain, error) {
	public := p.public
	failed := false
	for i := 1; i < len(p.impls); i++ {
		ov := p.overrides[i-1]
		impl := p.impls[i]
		inner := p.innerOf(i - 1)

		d := view.At(impl.Ref).Clone()
		for _, acc := range p.accessors {
			src := templateFor(ov.Override.Templates, acc)
			text := passThrough(acc, &public)
			if src != nil {
				text = *src
			}
			body, err := Render(text, NewResolver(view, ov.Layer, &public, acc, inner))
			if err != nil {
				failed = true
				diag.ReportError(r, TemplateCode(err), ov.Span,
					fmt.Sprintf("%s of %s: %v", acc, public.Name, err)).
					WithTarget(string(public.Key)).
					WithAspect(ov.Aspect).
					Emit()
				continue
			}
			acc.set(&d, body)
		}
		if !failed {
			view.Replace(impl.Ref, d)
		}
	}
	if failed {
		p.abandon(view)
		return Chain{}, ErrTemplate
	}
	return Chain{Target: view.At(p.ref).Key, Impls: p.impls, Backing: p.backing}, nil
}

func (p *Plan) innerOf(i int) Inner {
	if i > 0 {
		return MemberInner(p.impls[i].Name)
	}
	switch {
	case p.backing != "":
		return FieldInner(p.backing)
	case p.bodyless:
		return NoInner
	default:
		return MemberInner(p.impls[0].Name)
	}
}

// abandon puts the member back as it was in the snapshot. Names handed out
// by the allocator stay reserved so later names do not shift.
func (p *Plan) abandon(view *decl.Overlay) {
	view.Replace(p.ref, p.original)
	for _, ref := range p.added {
		view.Remove(ref)
	}
}

// Link is Prepare followed by Synthesize for a single member.
func Link(view *decl.Overlay, target decl.Ref, overrides []advice.Advice, alloc *names.Allocator, r diag.Reporter) (Chain, error) {
	p, err := Prepare(view, target, overrides, alloc, r)
	if err != nil || p == nil {
		return Chain{}, err
	}
	return p.Synthesize(view, r)
}
