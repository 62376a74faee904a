// Package introduce applies the structural advice of one declaring type:
// member and type introductions and annotation edits. It runs before the
// linker so that every introduction is visible to later layers.
package introduce

import (
	"errors"
	"fmt"

	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
	"weaver/internal/link"
	"weaver/internal/template"
)

var (
	ErrConflict      = errors.New("member conflicts with an existing declaration")
	ErrNotVirtual    = errors.New("inherited member cannot be overridden")
	ErrNameInUse     = errors.New("name already in use")
	ErrUnknownTarget = errors.New("unknown target")
)

// Result is what Apply leaves for the later phases.
type Result struct {
	// Overrides holds override advice derived from introductions whose
	// policy is "override" and that met a member of the same type.
	Overrides []advice.Advice
	// Introduced lists the keys added to the overlay, in layer order.
	Introduced []decl.Key
	// Failed lists the targets of advice that was not applied.
	Failed []decl.Key
}

// Apply processes, in layer order, every introduce, add-annotation and
// remove-annotation advice in list against view. Other kinds are left to
// the linker and the constructor resolver. Each failing advice is reported
// and skipped; it leaves no trace in the overlay.
func Apply(view *decl.Overlay, list []advice.Advice, r diag.Reporter) Result {
	var res Result
	for _, a := range list {
		var err error
		switch a.Kind {
		case advice.KindIntroduce:
			err = introduce(view, a, r, &res)
		case advice.KindAddAnnotation:
			err = addAnnotation(view, a, r)
		case advice.KindRemoveAnnotation:
			err = removeAnnotation(view, a, r)
		case advice.KindOverride, advice.KindAddParameter:
			continue
		default:
			panic(fmt.Sprintf("introduce: unknown advice kind %d", a.Kind))
		}
		if err != nil {
			res.Failed = append(res.Failed, a.Target)
		}
	}
	return res
}

func report(r diag.Reporter, sev diag.Severity, code diag.Code, a advice.Advice, msg string) {
	diag.NewReportBuilder(r, sev, code, a.Span, msg).
		WithTarget(string(a.Target)).
		WithAspect(a.Aspect).
		Emit()
}

func introduce(view *decl.Overlay, a advice.Advice, r diag.Reporter, res *Result) error {
	m := a.Introduce.Member.Clone()
	m.Origin = decl.Origin{Kind: decl.OriginIntroduced, Aspect: a.Aspect, Layer: a.Layer}
	m.Part = 0

	if !view.Type().IsValid() {
		if m.Kind != decl.KindType {
			report(r, diag.SevError, diag.CfgUnsupportedTarget, a,
				fmt.Sprintf("only types can be introduced into namespace %s, not %s %s", view.Namespace(), m.Kind, m.Name))
			return ErrUnknownTarget
		}
		return introduceType(view, a, m, r, res)
	}
	if m.Kind == decl.KindType {
		return introduceType(view, a, m, r, res)
	}
	if m.Kind == decl.KindConstructor {
		m.Name = view.Self().Name
	} else if m.Name == view.Self().Name {
		report(r, diag.SevError, diag.IntNameInUse, a,
			fmt.Sprintf("member %s cannot have the name of its enclosing type", m.Name))
		return ErrNameInUse
	}

	if local, ok := localConflict(view, &m); ok {
		existing := view.At(local)
		switch a.Introduce.Policy {
		case advice.PolicyOverride:
			res.Overrides = append(res.Overrides, advice.NewOverride(
				advice.Header{Aspect: a.Aspect, Layer: a.Layer, Target: existing.Key, Span: a.Span},
				advice.Override{Templates: templatesOf(&m)}))
			return nil
		default:
			report(r, diag.SevError, diag.IntConflict, a,
				fmt.Sprintf("introduced %s %s conflicts with %s", m.Kind, m.Name, existing.Key))
			return ErrConflict
		}
	}

	inner := link.NoInner
	if base, ok := view.Inherited(&m); ok {
		switch a.Introduce.Policy {
		case advice.PolicyFail:
			report(r, diag.SevError, diag.IntConflict, a,
				fmt.Sprintf("introduced %s %s conflicts with inherited %s", m.Kind, m.Name, base.Key))
			return ErrConflict
		case advice.PolicyOverride:
			if !base.Mods.Polymorphic() {
				report(r, diag.SevError, diag.IntInheritedNotVirtual, a,
					fmt.Sprintf("inherited %s is not virtual and cannot be overridden", base.Key))
				return ErrNotVirtual
			}
			m.Mods = m.Mods&^(decl.ModVirtual|decl.ModNew|decl.ModAbstract) | decl.ModOverride
			m.Access = base.Access
			inner = link.BaseInner(base.Name)
		case advice.PolicyNew:
			m.Mods |= decl.ModNew
			report(r, diag.SevInfo, diag.IntNewModifier, a,
				fmt.Sprintf("introduced %s hides inherited %s", m.Name, base.Key))
		default:
			panic(fmt.Sprintf("introduce: unknown policy %d", a.Introduce.Policy))
		}
	}

	if err := link.RenderBodies(view, a.Layer, &m, inner); err != nil {
		report(r, diag.SevError, link.TemplateCode(err), a, fmt.Sprintf("introduced %s %s: %v", m.Kind, m.Name, err))
		return err
	}
	ref := view.Append(m)
	res.Introduced = append(res.Introduced, view.At(ref).Key)
	return nil
}

// localConflict finds a member of the overlay that conflicts with m.
func localConflict(view *decl.Overlay, m *decl.Declaration) (decl.Ref, bool) {
	for _, ref := range view.Refs() {
		d := view.At(ref)
		if decl.Conflicts(&d, m) {
			return ref, true
		}
	}
	return 0, false
}

// templatesOf turns the bodies of an introduced member into override
// templates for the member it meets.
func templatesOf(m *decl.Declaration) advice.Templates {
	t := advice.Templates{Body: m.Body}
	body := func(a *decl.Accessor) *string {
		if a == nil {
			return nil
		}
		return a.Body
	}
	t.Get, t.Set, t.Add, t.Remove = body(m.Get), body(m.Set), body(m.Add), body(m.Remove)
	return t
}

func introduceType(view *decl.Overlay, a advice.Advice, m decl.Declaration, r diag.Reporter, res *Result) error {
	if view.NameInUse(m.Name) {
		report(r, diag.SevError, diag.IntNameInUse, a, fmt.Sprintf("type name %s is already in use", m.Name))
		return ErrNameInUse
	}
	for i := range m.Members {
		mem := &m.Members[i]
		mem.Origin = m.Origin
		if mem.Kind == decl.KindConstructor {
			mem.Name = m.Name
		}
		if err := renderDetached(&m, mem); err != nil {
			report(r, diag.SevError, link.TemplateCode(err), a, fmt.Sprintf("member %s of introduced type %s: %v", mem.Name, m.Name, err))
			return err
		}
	}
	ref := view.Append(m)
	res.Introduced = append(res.Introduced, view.At(ref).Key)
	return nil
}

// typeResolver renders placeholders in members of a type that exists
// only as an introduction payload.
type typeResolver struct {
	typ    *decl.Declaration
	member *decl.Declaration
}

func (t typeResolver) Proceed() (string, error) {
	return "", fmt.Errorf("%w: %s is introduced", template.ErrNoInnerImpl, t.member.Name)
}

func (t typeResolver) Member(name string) (string, error) {
	for i := range t.typ.Members {
		d := &t.typ.Members[i]
		if d.Name != name || d.Kind == decl.KindConstructor {
			continue
		}
		if d.IsStatic() {
			return t.typ.Name + "." + name, nil
		}
		return "this." + name, nil
	}
	return "", fmt.Errorf("%w %q in introduced type %s", template.ErrUnknownMember, name, t.typ.Name)
}

func (t typeResolver) TargetName() string { return t.member.Name }

func renderDetached(typ, d *decl.Declaration) error {
	res := typeResolver{typ: typ, member: d}
	render := func(src *string) (*string, error) {
		if src == nil {
			return nil, nil
		}
		tpl, err := template.Parse(*src)
		if err != nil {
			return nil, err
		}
		out, err := tpl.Render(res)
		if err != nil {
			return nil, err
		}
		return decl.Str(out), nil
	}
	var err error
	if d.Body, err = render(d.Body); err != nil {
		return err
	}
	for _, acc := range []**decl.Accessor{&d.Get, &d.Set, &d.Add, &d.Remove} {
		if *acc == nil {
			continue
		}
		body, err := render((*acc).Body)
		if err != nil {
			return err
		}
		*acc = &decl.Accessor{Body: body}
	}
	return nil
}
