// Package ctor appends parameters to constructors and keeps every call that
// bound before the change binding to the same constructor afterwards,
// synthesizing deambiguating constructors where needed.
package ctor

import (
	"weaver/internal/decl"
	"weaver/internal/order"
)

// Added is one parameter appended to a constructor.
type Added struct {
	Param decl.Param
	// Requested is the name the advice asked for; Param.Name differs from it
	// after collision suffixing.
	Requested string
	Aspect    string
	Layer     order.Layer
	// Pulled marks a parameter copied from the constructor this one chains
	// into, so that callers can supply it.
	Pulled bool
}

// Ctor is one constructor after resolution.
type Ctor struct {
	Decl decl.Declaration
	Ref  decl.Ref
	// Of is the key the constructor had before resolution. For a
	// deambiguating constructor created by this run it is the key of the
	// original constructor it stands in for.
	Of            decl.Key
	Added         []Added
	Deambiguating bool
	ForwardsTo    decl.Key
}

// OverloadSet is every constructor of one type, in declaration order.
type OverloadSet struct {
	Type  decl.Key
	Ctors []Ctor
	// Failed lists the constructors that had a request dropped.
	Failed []decl.Key
}

// Deambiguating returns the deambiguating constructors of the set.
func (s OverloadSet) Deambiguating() []Ctor {
	var out []Ctor
	for _, c := range s.Ctors {
		if c.Deambiguating {
			out = append(out, c)
		}
	}
	return out
}

// Changed returns the constructors that received parameters.
func (s OverloadSet) Changed() []Ctor {
	var out []Ctor
	for _, c := range s.Ctors {
		if len(c.Added) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the constructor whose key before resolution was key.
func (s OverloadSet) Find(key decl.Key) (Ctor, bool) {
	for _, c := range s.Ctors {
		if c.Of == key && !c.Deambiguating {
			return c, true
		}
	}
	return Ctor{}, false
}
