package link

import (
	"fmt"
	"strings"

	"weaver/internal/decl"
	"weaver/internal/order"
	"weaver/internal/template"
)

// Accessor selects which body of a member a template renders.
type Accessor uint8

const (
	AccBody Accessor = iota
	AccGet
	AccSet
	AccAdd
	AccRemove
)

var accessorNames = [...]string{"body", "get", "set", "add", "remove"}

func (a Accessor) String() string { return accessorNames[a] }

func (a Accessor) of(d *decl.Declaration) *decl.Accessor {
	switch a {
	case AccGet:
		return d.Get
	case AccSet:
		return d.Set
	case AccAdd:
		return d.Add
	case AccRemove:
		return d.Remove
	}
	return nil
}

func (a Accessor) set(d *decl.Declaration, body string) {
	switch a {
	case AccBody:
		d.Body = decl.Str(body)
	case AccGet:
		d.Get = &decl.Accessor{Body: decl.Str(body)}
	case AccSet:
		d.Set = &decl.Accessor{Body: decl.Str(body)}
	case AccAdd:
		d.Add = &decl.Accessor{Body: decl.Str(body)}
	case AccRemove:
		d.Remove = &decl.Accessor{Body: decl.Str(body)}
	}
}

// accessorsOf lists the bodies a member kind has.
func accessorsOf(d *decl.Declaration) []Accessor {
	switch d.Kind {
	case decl.KindMethod:
		return []Accessor{AccBody}
	case decl.KindProperty, decl.KindField:
		if d.Kind == decl.KindField {
			if d.Mods.Has(decl.ModReadOnly) {
				return []Accessor{AccGet}
			}
			return []Accessor{AccGet, AccSet}
		}
		var out []Accessor
		if d.Get != nil {
			out = append(out, AccGet)
		}
		if d.Set != nil {
			out = append(out, AccSet)
		}
		return out
	case decl.KindEvent:
		return []Accessor{AccAdd, AccRemove}
	}
	return nil
}

type innerKind uint8

const (
	innerNone innerKind = iota
	innerMember
	innerField
	innerBase
)

// Inner is what meta.Proceed() calls into.
type Inner struct {
	kind innerKind
	name string
}

// NoInner is used when there is nothing to proceed to.
var NoInner = Inner{}

// MemberInner proceeds into a sibling member (a synthetic source member).
func MemberInner(name string) Inner { return Inner{kind: innerMember, name: name} }

// FieldInner proceeds into a promoted backing field.
func FieldInner(name string) Inner { return Inner{kind: innerField, name: name} }

// BaseInner proceeds into the inherited implementation.
func BaseInner(name string) Inner { return Inner{kind: innerBase, name: name} }

// expr renders the proceed expression for accessor acc of member d.
func (in Inner) expr(acc Accessor, d *decl.Declaration, typeName string) (string, error) {
	if in.kind == innerNone {
		return "", template.ErrNoInnerImpl
	}
	recv := "this"
	switch {
	case in.kind == innerBase:
		recv = "base"
	case d.IsStatic():
		recv = typeName
	}
	target := recv + "." + in.name
	switch acc {
	case AccBody:
		if in.kind == innerField {
			return "", fmt.Errorf("%w: method cannot proceed into a field", template.ErrNoInnerImpl)
		}
		return target + "(" + forwardArgs(d.Params) + ")", nil
	case AccGet:
		return target, nil
	case AccSet:
		return target + " = value", nil
	case AccAdd:
		return target + " += value", nil
	case AccRemove:
		return target + " -= value", nil
	}
	return "", template.ErrNoInnerImpl
}

// forwardArgs passes every parameter on, repeating ref/out/in.
func forwardArgs(params []decl.Param) string {
	args := make([]string, len(params))
	for i, p := range params {
		switch p.Mode {
		case decl.ModeRef, decl.ModeOut, decl.ModeIn:
			args[i] = p.Mode.String() + " " + p.Name
		default:
			args[i] = p.Name
		}
	}
	return strings.Join(args, ", ")
}

// Resolver renders template placeholders for one layer of one member.
type Resolver struct {
	view     *decl.Overlay
	layer    order.Layer
	member   *decl.Declaration
	acc      Accessor
	inner    Inner
	typeName string
}

// NewResolver binds placeholders to the overlay as seen from layer.
func NewResolver(view *decl.Overlay, layer order.Layer, member *decl.Declaration, acc Accessor, inner Inner) *Resolver {
	return &Resolver{
		view:     view,
		layer:    layer,
		member:   member,
		acc:      acc,
		inner:    inner,
		typeName: view.Self().Name,
	}
}

func (r *Resolver) Proceed() (string, error) {
	return r.inner.expr(r.acc, r.member, r.typeName)
}

// Member resolves a name among the members visible at the resolver's layer.
// Synthetic source members are never visible.
func (r *Resolver) Member(name string) (string, error) {
	for _, ref := range r.view.FindName(name) {
		d := r.view.At(ref)
		if d.Kind == decl.KindConstructor || !d.Origin.VisibleAt(r.layer) {
			continue
		}
		return r.qualify(&d), nil
	}
	m := r.view.Model()
	if typ := r.view.Type(); typ.IsValid() {
		for _, id := range m.BaseMembers(typ) {
			d := m.Get(id)
			if d.Name == name && d.Kind != decl.KindConstructor && d.Access != decl.Private {
				return r.qualify(d), nil
			}
		}
	}
	return "", fmt.Errorf("%w %q at layer %s", template.ErrUnknownMember, name, r.layer)
}

func (r *Resolver) qualify(d *decl.Declaration) string {
	if d.IsStatic() || d.Kind == decl.KindType {
		return r.typeName + "." + d.Name
	}
	return "this." + d.Name
}

func (r *Resolver) TargetName() string { return r.member.Name }

// passThrough is the body of a layer that supplies no template for acc.
func passThrough(acc Accessor, d *decl.Declaration) string {
	switch acc {
	case AccGet:
		return "return meta.Proceed();"
	case AccBody:
		if d.Type != "" && d.Type != "void" {
			return "return meta.Proceed();"
		}
	}
	return "meta.Proceed();"
}

// Render parses src and renders it for one accessor.
func Render(src string, r *Resolver) (string, error) {
	tpl, err := template.Parse(src)
	if err != nil {
		return "", err
	}
	return tpl.Render(r)
}

// RenderBodies renders every body of d in place as seen from layer, with
// meta.Proceed() bound to inner.
func RenderBodies(view *decl.Overlay, layer order.Layer, d *decl.Declaration, inner Inner) error {
	for _, acc := range []Accessor{AccBody, AccGet, AccSet, AccAdd, AccRemove} {
		src := d.Body
		if acc != AccBody {
			src = nil
			if a := acc.of(d); a != nil {
				src = a.Body
			}
		}
		if src == nil {
			continue
		}
		out, err := Render(*src, NewResolver(view, layer, d, acc, inner))
		if err != nil {
			return fmt.Errorf("%s of %s: %w", acc, d.Name, err)
		}
		acc.set(d, out)
	}
	return nil
}
