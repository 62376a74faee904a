package decl

import "strings"

const (
	ctorName       = "#ctor"
	staticCtorName = "#cctor"
)

func joinName(outer, name string) string {
	if outer == "" {
		return name
	}
	return outer + "." + name
}

// TypeKey builds the key of a type from its qualified name.
func TypeKey(qualified string) Key {
	return Key("T:" + qualified)
}

// NamespaceKey builds N:ns.
func NamespaceKey(ns string) Key {
	return Key("N:" + ns)
}

// MemberKey builds the key of member d declared in the type whose qualified
// name is owner.
func MemberKey(owner string, d *Declaration) Key {
	if d.Kind == KindType {
		return TypeKey(joinName(owner, d.Name))
	}
	name := d.Name
	if d.Kind == KindConstructor {
		name = ctorName
		if d.IsStatic() {
			name = staticCtorName
		}
	}
	var b strings.Builder
	b.WriteString(d.Kind.keyPrefix())
	b.WriteString(joinName(owner, name))
	if d.Kind.Callable() {
		b.WriteByte('(')
		b.WriteString(signatureList(d.Params))
		b.WriteByte(')')
	}
	return Key(b.String())
}

// NamespacePath converts "Shop.Orders" into "Shop/Orders".
func NamespacePath(ns string) string {
	return strings.ReplaceAll(ns, ".", "/")
}
