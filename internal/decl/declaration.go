package decl

import (
	"slices"

	"weaver/internal/order"
	"weaver/internal/source"
)

// Accessor is one get/set/add/remove accessor. A nil Body means the accessor
// is declared without a body (auto-implemented or abstract).
type Accessor struct {
	Body *string
}

type InitKind uint8

const (
	InitThis InitKind = iota
	InitBase
)

// Arg is one argument of a constructor initializer. Name is set for named
// arguments; Mode repeats ref/out/in at the call site.
type Arg struct {
	Name string
	Mode ParamMode
	Expr string
}

// Initializer is ": this(...)" or ": base(...)" on a constructor. Target is
// the constructor called, when the producer of the model knows it.
type Initializer struct {
	Kind   InitKind
	Args   []Arg
	Target Key
}

// Attribute is an annotation such as [Obsolete("x")]. Args holds the raw
// argument text without parentheses.
type Attribute struct {
	Name string
	Args string
}

type OriginKind uint8

const (
	OriginSource OriginKind = iota
	OriginIntroduced
	OriginSynthetic
	OriginBackingField
	OriginDeambiguating
)

var originNames = [...]string{"source", "introduced", "synthetic", "backing-field", "deambiguating"}

func (k OriginKind) String() string {
	if int(k) < len(originNames) {
		return originNames[k]
	}
	return "unknown"
}

func ParseOriginKind(s string) (OriginKind, bool) {
	if s == "" {
		return OriginSource, true
	}
	for k, name := range originNames {
		if name == s {
			return OriginKind(k), true
		}
	}
	return OriginSource, false
}

// Origin records where a declaration value comes from.
type Origin struct {
	Kind   OriginKind
	Aspect string
	Layer  order.Layer
	// Of is the public member a synthetic member or backing field serves.
	Of Key
	// ForwardsTo is the original constructor a deambiguating constructor
	// forwards to.
	ForwardsTo Key
}

// VisibleAt reports whether a template running at layer l may refer to a
// declaration with this origin.
func (o Origin) VisibleAt(l order.Layer) bool {
	switch o.Kind {
	case OriginSource, OriginDeambiguating:
		return true
	case OriginSynthetic:
		return false
	default:
		return o.Layer.Compare(l) <= 0
	}
}

// Part is one partial declaration of a type. For nested types Host is the
// part of the enclosing type that contains it.
type Part struct {
	File FileRef
	Span source.Span
	Host int
}

// Declaration is an immutable snapshot of one program element. Values are
// copied into an Overlay before they change; slices are shared, so use
// Clone before editing them.
type Declaration struct {
	ID     ID
	Key    Key
	Kind   Kind
	Name   string
	Parent ID
	Access Access
	Mods   Modifiers
	// Type is the return type of a method, or the type of a property,
	// field or event.
	Type   string
	Params []Param
	Body   *string

	Get    *Accessor
	Set    *Accessor
	Add    *Accessor
	Remove *Accessor
	// Auto marks auto-implemented properties and field-like events.
	Auto bool

	Init  *Initializer
	Value *string // field or auto-property initializer
	Attrs []Attribute
	Doc   string
	// Part indexes the enclosing type's Parts.
	Part   int
	Origin Origin
	Span   source.Span

	Namespace string
	TypeKind  TypeKind
	Bases     []string
	Parts     []Part
	// Members carries the members of an introduced type until it is
	// committed into a Model.
	Members []Declaration
}

// Clone returns a copy whose slices and pointers can be edited freely.
func (d Declaration) Clone() Declaration {
	out := d
	out.Params = CloneParams(d.Params)
	out.Body = cloneStr(d.Body)
	out.Get = cloneAccessor(d.Get)
	out.Set = cloneAccessor(d.Set)
	out.Add = cloneAccessor(d.Add)
	out.Remove = cloneAccessor(d.Remove)
	if d.Init != nil {
		out.Init = &Initializer{Kind: d.Init.Kind, Args: slices.Clone(d.Init.Args), Target: d.Init.Target}
	}
	out.Value = cloneStr(d.Value)
	out.Attrs = slices.Clone(d.Attrs)
	out.Bases = slices.Clone(d.Bases)
	out.Parts = slices.Clone(d.Parts)
	if d.Members != nil {
		out.Members = make([]Declaration, len(d.Members))
		for i := range d.Members {
			out.Members[i] = d.Members[i].Clone()
		}
	}
	return out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	return Str(*s)
}

func cloneAccessor(a *Accessor) *Accessor {
	if a == nil {
		return nil
	}
	return &Accessor{Body: cloneStr(a.Body)}
}

func (d *Declaration) IsStatic() bool { return d.Mods.Has(ModStatic) }

// HasBody reports whether the declaration carries implementation text:
// a method or constructor body, or at least one accessor body.
func (d *Declaration) HasBody() bool {
	switch d.Kind {
	case KindMethod, KindConstructor:
		return d.Body != nil
	case KindProperty, KindEvent:
		for _, a := range d.Accessors() {
			if a != nil && a.Body != nil {
				return true
			}
		}
	}
	return false
}

// Accessors returns get, set, add and remove in that order.
func (d *Declaration) Accessors() [4]*Accessor {
	return [4]*Accessor{d.Get, d.Set, d.Add, d.Remove}
}

// FindAttr returns the index of the first attribute named name, or -1.
// "Obsolete" and "ObsoleteAttribute" name the same attribute.
func (d *Declaration) FindAttr(name string) int {
	want := AttrName(name)
	return slices.IndexFunc(d.Attrs, func(a Attribute) bool { return AttrName(a.Name) == want })
}

// AttrName strips a trailing "Attribute" suffix.
func AttrName(name string) string {
	if len(name) > len("Attribute") && name[len(name)-len("Attribute"):] == "Attribute" {
		return name[:len(name)-len("Attribute")]
	}
	return name
}

// Conflicts reports whether two members of one type would clash: same name
// and either a non-callable kind on one side or identical parameter types.
func Conflicts(a, b *Declaration) bool {
	if a.Kind == KindConstructor || b.Kind == KindConstructor {
		return a.Kind == b.Kind && a.IsStatic() == b.IsStatic() && SameSignature(a.Params, b.Params)
	}
	if a.Name != b.Name {
		return false
	}
	if !a.Kind.Callable() || !b.Kind.Callable() {
		return true
	}
	return SameSignature(a.Params, b.Params)
}
