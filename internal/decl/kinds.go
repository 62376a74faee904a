package decl

import (
	"fmt"
	"strings"
)

type Kind uint8

const (
	KindInvalid Kind = iota
	KindNamespace
	KindType
	KindMethod
	KindConstructor
	KindProperty
	KindField
	KindEvent
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindNamespace:   "namespace",
	KindType:        "type",
	KindMethod:      "method",
	KindConstructor: "constructor",
	KindProperty:    "property",
	KindField:       "field",
	KindEvent:       "event",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind accepts the lower-case names used by snapshot documents.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if k != int(KindInvalid) && name == s {
			return Kind(k), true
		}
	}
	return KindInvalid, false
}

// Callable reports whether declarations of this kind carry a parameter list.
func (k Kind) Callable() bool {
	return k == KindMethod || k == KindConstructor
}

func (k Kind) keyPrefix() string {
	switch k {
	case KindNamespace:
		return "N:"
	case KindType:
		return "T:"
	case KindMethod, KindConstructor:
		return "M:"
	case KindProperty:
		return "P:"
	case KindField:
		return "F:"
	case KindEvent:
		return "E:"
	}
	return "?:"
}

type TypeKind uint8

const (
	TypeClass TypeKind = iota
	TypeStruct
	TypeInterface
	TypeRecord
)

var typeKindNames = [...]string{"class", "struct", "interface", "record"}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "class"
}

func ParseTypeKind(s string) (TypeKind, bool) {
	if s == "" {
		return TypeClass, true
	}
	for k, name := range typeKindNames {
		if name == s {
			return TypeKind(k), true
		}
	}
	return TypeClass, false
}

// Access is ordered from most to least restrictive.
type Access uint8

const (
	Private Access = iota
	PrivateProtected
	Internal
	Protected
	ProtectedInternal
	Public
)

var accessNames = [...]string{
	Private:           "private",
	PrivateProtected:  "private protected",
	Internal:          "internal",
	Protected:         "protected",
	ProtectedInternal: "protected internal",
	Public:            "public",
}

func (a Access) String() string {
	if int(a) < len(accessNames) {
		return accessNames[a]
	}
	return "private"
}

// Restrict returns the more restrictive of a and other.
func (a Access) Restrict(other Access) Access {
	return min(a, other)
}

func ParseAccess(s string) (Access, bool) {
	s = strings.Join(strings.Fields(s), " ")
	switch s {
	case "protected private":
		return PrivateProtected, true
	case "internal protected":
		return ProtectedInternal, true
	}
	for a, name := range accessNames {
		if name == s {
			return Access(a), true
		}
	}
	return Private, false
}

type Modifiers uint16

const (
	ModStatic Modifiers = 1 << iota
	ModVirtual
	ModOverride
	ModAbstract
	ModSealed
	ModReadOnly
	ModExtern
	ModNew
	ModPartial
)

// modifierOrder is the canonical rendering order.
var modifierOrder = []struct {
	mod  Modifiers
	name string
}{
	{ModNew, "new"},
	{ModStatic, "static"},
	{ModAbstract, "abstract"},
	{ModVirtual, "virtual"},
	{ModOverride, "override"},
	{ModSealed, "sealed"},
	{ModReadOnly, "readonly"},
	{ModExtern, "extern"},
	{ModPartial, "partial"},
}

func (m Modifiers) Has(mod Modifiers) bool { return m&mod != 0 }

// Words returns the modifiers in canonical order.
func (m Modifiers) Words() []string {
	var out []string
	for _, e := range modifierOrder {
		if m.Has(e.mod) {
			out = append(out, e.name)
		}
	}
	return out
}

func (m Modifiers) String() string { return strings.Join(m.Words(), " ") }

func ParseModifier(s string) (Modifiers, bool) {
	for _, e := range modifierOrder {
		if e.name == s {
			return e.mod, true
		}
	}
	return 0, false
}

// Polymorphic reports whether a member with these modifiers may be overridden.
func (m Modifiers) Polymorphic() bool {
	return m&(ModVirtual|ModAbstract|ModOverride) != 0 && !m.Has(ModSealed)
}
