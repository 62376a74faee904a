package order

import (
	"cmp"
	"fmt"
)

// Layer is the aspect layer index of one advice: the precedence wave of its
// aspect, the instance order inside the aspect and the advice order inside
// the instance. Layers compare lexicographically; ascending means applied
// first, i.e. innermost.
type Layer struct {
	Aspect   int
	Instance int
	Advice   int
}

// Source is the layer of declarations that come from the input snapshot.
// It sorts before every advice layer.
var Source = Layer{Aspect: -1}

func (l Layer) Compare(other Layer) int {
	if c := cmp.Compare(l.Aspect, other.Aspect); c != 0 {
		return c
	}
	if c := cmp.Compare(l.Instance, other.Instance); c != 0 {
		return c
	}
	return cmp.Compare(l.Advice, other.Advice)
}

func (l Layer) String() string {
	if l == Source {
		return "(source)"
	}
	return fmt.Sprintf("(%d,%d,%d)", l.Aspect, l.Instance, l.Advice)
}
