package introduce

import (
	"fmt"
	"slices"

	"weaver/internal/advice"
	"weaver/internal/decl"
	"weaver/internal/diag"
)

// edit applies fn to the declaration named by the advice target: the
// overlay's type itself or one of its members.
func edit(view *decl.Overlay, a advice.Advice, r diag.Reporter, fn func(d *decl.Declaration) error) error {
	if view.Type().IsValid() && view.Self().Key == a.Target {
		d := view.Self().Clone()
		if err := fn(&d); err != nil {
			return err
		}
		view.SetSelf(d)
		return nil
	}
	ref, ok := view.Find(a.Target)
	if !ok {
		report(r, diag.SevError, diag.CfgUnknownTarget, a, fmt.Sprintf("%s advice targets unknown declaration %s", a.Kind, a.Target))
		return ErrUnknownTarget
	}
	d := view.At(ref).Clone()
	if err := fn(&d); err != nil {
		return err
	}
	view.Replace(ref, d)
	return nil
}

func addAnnotation(view *decl.Overlay, a advice.Advice, r diag.Reporter) error {
	attr := a.AddAnnotation.Attribute
	return edit(view, a, r, func(d *decl.Declaration) error {
		i := d.FindAttr(attr.Name)
		if i < 0 {
			d.Attrs = append(d.Attrs, attr)
			return nil
		}
		switch a.AddAnnotation.Policy {
		case advice.PolicyFail:
			report(r, diag.SevError, diag.IntAnnotationConflict, a,
				fmt.Sprintf("%s already carries [%s]", a.Target, d.Attrs[i].Name))
			return ErrConflict
		case advice.PolicyOverride:
			d.Attrs[i] = attr
		case advice.PolicyNew:
			d.Attrs = append(d.Attrs, attr)
		default:
			panic(fmt.Sprintf("introduce: unknown policy %d", a.AddAnnotation.Policy))
		}
		return nil
	})
}

func removeAnnotation(view *decl.Overlay, a advice.Advice, r diag.Reporter) error {
	name := decl.AttrName(a.RemoveAnnotation.Name)
	return edit(view, a, r, func(d *decl.Declaration) error {
		before := len(d.Attrs)
		d.Attrs = slices.DeleteFunc(d.Attrs, func(at decl.Attribute) bool {
			return decl.AttrName(at.Name) == name
		})
		if len(d.Attrs) == before {
			report(r, diag.SevWarning, diag.IntNothingToRemove, a,
				fmt.Sprintf("%s carries no [%s] to remove", a.Target, name))
		}
		return nil
	})
}
