package link

import (
	"errors"
	"fmt"
	"strings"

	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/names"
	"weaver/internal/order"
	"weaver/internal/template"
)

// Plan is the structural half of linking one member: the backing field and
// the synthetic members exist in the overlay, their bodies do not yet.
type Plan struct {
	ref       decl.Ref
	original  decl.Declaration
	public    decl.Declaration
	overrides []advice.Advice
	impls     []Impl
	accessors []Accessor
	backing   string
	added     []decl.Ref
	bodyless  bool
}

// Target returns the overlay slot of the advised member.
func (p *Plan) Target() decl.Ref { return p.ref }

// Prepare validates the overrides of one member and registers every
// structural introduction in view: the promoted backing field (at most one,
// whatever the number of overrides) and one private synthetic member per
// superseded implementation, named through alloc in ascending layer order.
// overrides must be sorted by layer. A nil Plan with a nil error means
// there is nothing to link.
func Prepare(view *decl.Overlay, target decl.Ref, overrides []advice.Advice, alloc *names.Allocator, r diag.Reporter) (*Plan, error) {
	if len(overrides) == 0 {
		return nil, nil
	}
	orig := view.At(target)
	first := overrides[0]

	switch orig.Kind {
	case decl.KindMethod, decl.KindProperty, decl.KindEvent, decl.KindField:
	default:
		diag.ReportError(r, diag.CfgUnsupportedTarget, first.Span,
			fmt.Sprintf("%s %s cannot be overridden", orig.Kind, orig.Name)).
			WithTarget(string(orig.Key)).
			WithAspect(first.Aspect).
			Emit()
		return nil, ErrUnsupportedTarget
	}

	if dups := advice.Duplicates(overrides, advice.KindOverride); len(dups) > 0 {
		for _, group := range dups {
			aspects := make([]string, len(group))
			for i, a := range group {
				aspects[i] = a.Aspect
			}
			b := diag.ReportError(r, diag.CfgDuplicateLayer, group[0].Span,
				fmt.Sprintf("overrides from %s share layer %s; declare an order between the aspects", strings.Join(aspects, ", "), group[0].Layer)).
				WithTarget(string(orig.Key)).
				WithAspect(group[0].Aspect)
			for _, a := range group[1:] {
				b.WithNote(a.Span, fmt.Sprintf("override from %s", a.Aspect))
			}
			b.Emit()
		}
		return nil, ErrDuplicateLayer
	}

	for _, ov := range overrides {
		if err := checkFit(&orig, ov.Override.Templates); err != nil {
			diag.ReportError(r, diag.CfgKindMismatch, ov.Span, err.Error()).
				WithTarget(string(orig.Key)).
				WithAspect(ov.Aspect).
				Emit()
			return nil, fmt.Errorf("%w: %w", ErrKindMismatch, err)
		}
	}

	cp := view.Checkpoint()
	p := &Plan{ref: target, original: orig, overrides: overrides}
	if err := p.build(view, alloc); err != nil {
		view.Rollback(cp)
		diag.ReportError(r, diag.CfgNameExhausted, first.Span, err.Error()).
			WithTarget(string(orig.Key)).
			WithAspect(first.Aspect).
			Emit()
		return nil, err
	}
	return p, nil
}

func (p *Plan) build(view *decl.Overlay, alloc *names.Allocator) error {
	orig := p.original
	public := orig.Clone()
	promote := orig.Kind == decl.KindField || (orig.Auto && (orig.Kind == decl.KindProperty || orig.Kind == decl.KindEvent))
	p.accessors = accessorsOf(&orig)

	if promote {
		name, err := alloc.Allocate(names.BackingFieldName(orig.Name))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNameExhausted, err)
		}
		p.backing = name
		p.added = append(p.added, view.Append(decl.Declaration{
			Kind:   decl.KindField,
			Name:   name,
			Type:   orig.Type,
			Access: decl.Private,
			Mods:   orig.Mods & (decl.ModStatic | decl.ModReadOnly),
			Value:  orig.Value,
			Part:   orig.Part,
			Span:   orig.Span,
			Origin: decl.Origin{
				Kind:   decl.OriginBackingField,
				Aspect: p.overrides[0].Aspect,
				Layer:  p.overrides[0].Layer,
				Of:     orig.Key,
			},
		}))
		switch orig.Kind {
		case decl.KindField:
			public.Kind = decl.KindProperty
			public.Get = &decl.Accessor{}
			if !orig.Mods.Has(decl.ModReadOnly) {
				public.Set = &decl.Accessor{}
			}
		case decl.KindEvent:
			public.Add = &decl.Accessor{}
			public.Remove = &decl.Accessor{}
		}
		public.Auto = false
		public.Value = nil
		public.Mods &^= decl.ModReadOnly
	}
	if public.Mods.Has(decl.ModAbstract) {
		public.Mods = public.Mods&^decl.ModAbstract | decl.ModVirtual
	}
	public.Mods &^= decl.ModExtern
	p.public = public

	k := len(p.overrides)
	p.impls = make([]Impl, k+1)
	switch {
	case promote:
		p.impls[0] = Impl{Layer: order.Source, Ref: -1}
	case !orig.HasBody():
		p.bodyless = true
		p.impls[0] = Impl{Layer: order.Source, Ref: -1}
	default:
		name, err := alloc.Allocate(names.SourceName(orig.Name))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNameExhausted, err)
		}
		impl0 := synthetic(&orig, name, decl.Origin{Kind: decl.OriginSynthetic, Layer: order.Source, Of: orig.Key})
		ref := view.Append(impl0)
		p.added = append(p.added, ref)
		p.impls[0] = Impl{Name: name, Layer: order.Source, Ref: ref}
	}

	for i := 1; i < k; i++ {
		ov := p.overrides[i-1]
		name, err := alloc.Allocate(names.SourceName(orig.Name))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNameExhausted, err)
		}
		s := synthetic(&public, name, decl.Origin{Kind: decl.OriginSynthetic, Aspect: ov.Aspect, Layer: ov.Layer, Of: orig.Key})
		clearBodies(&s)
		ref := view.Append(s)
		p.added = append(p.added, ref)
		p.impls[i] = Impl{Name: name, Layer: ov.Layer, Aspect: ov.Aspect, Ref: ref}
	}

	last := p.overrides[k-1]
	view.Replace(p.ref, public)
	p.public = view.At(p.ref)
	p.impls[k] = Impl{Name: orig.Name, Layer: last.Layer, Aspect: last.Aspect, Ref: p.ref}
	return nil
}

// synthetic derives a private source member from d. Documentation and
// attributes stay on the public member.
func synthetic(d *decl.Declaration, name string, origin decl.Origin) decl.Declaration {
	s := d.Clone()
	s.Name = name
	s.Access = decl.Private
	s.Mods = d.Mods & decl.ModStatic
	s.Attrs = nil
	s.Doc = ""
	s.Auto = false
	s.Value = nil
	s.Origin = origin
	return s
}

func clearBodies(d *decl.Declaration) {
	if d.Kind == decl.KindMethod {
		d.Body = decl.Str("")
	}
	for _, acc := range []**decl.Accessor{&d.Get, &d.Set, &d.Add, &d.Remove} {
		if *acc != nil {
			*acc = &decl.Accessor{Body: decl.Str("")}
		}
	}
}

func templateFor(t advice.Templates, acc Accessor) *string {
	switch acc {
	case AccBody:
		return t.Body
	case AccGet:
		return t.Get
	case AccSet:
		return t.Set
	case AccAdd:
		return t.Add
	case AccRemove:
		return t.Remove
	}
	return nil
}

// checkFit rejects templates for bodies the target does not have.
func checkFit(d *decl.Declaration, t advice.Templates) error {
	have := map[Accessor]bool{}
	for _, acc := range accessorsOf(d) {
		have[acc] = true
	}
	for _, acc := range []Accessor{AccBody, AccGet, AccSet, AccAdd, AccRemove} {
		if templateFor(t, acc) != nil && !have[acc] {
			return fmt.Errorf("%s template given for %s %s, which has no %s", acc, d.Kind, d.Name, acc)
		}
	}
	return nil
}

// TemplateCode maps a template failure to its diagnostic code.
func TemplateCode(err error) diag.Code {
	switch {
	case errors.Is(err, template.ErrNoInnerImpl):
		return diag.TplNoInnerImpl
	case errors.Is(err, template.ErrUnknownMember):
		return diag.TplUnknownMember
	default:
		return diag.TplBadPlaceholder
	}
}
