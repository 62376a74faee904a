package link

import (
	"errors"

	"weaver/internal/decl"
	"weaver/internal/order"
)

var (
	ErrUnsupportedTarget = errors.New("target kind cannot be overridden")
	ErrDuplicateLayer    = errors.New("advices share a layer")
	ErrKindMismatch      = errors.New("template does not fit the target")
	ErrTemplate          = errors.New("template failed")
	ErrNameExhausted     = errors.New("synthetic name exhausted")
)

// Impl is one implementation in an override chain.
type Impl struct {
	// Name is the member holding this implementation. It is empty for a
	// promoted trivial accessor, which is inlined as a backing-field access.
	Name   string
	Layer  order.Layer
	Aspect string
	Ref    decl.Ref
}

// Inlined reports whether the implementation has no member of its own.
func (i Impl) Inlined() bool { return i.Name == "" }

// Chain is the result of linking one member. Impls[0] is the original body,
// Impls[len-1] is the public entry point.
type Chain struct {
	Target  decl.Key
	Impls   []Impl
	Backing string // promoted backing field, if any
}

// Public returns the entry point.
func (c Chain) Public() Impl { return c.Impls[len(c.Impls)-1] }

// Synthetic returns the private members created for superseded layers.
func (c Chain) Synthetic() []Impl {
	var out []Impl
	for _, impl := range c.Impls[:len(c.Impls)-1] {
		if !impl.Inlined() {
			out = append(out, impl)
		}
	}
	return out
}
