package ctor

import (
	"strings"

	"weaver/internal/decl"
)

// ArgShape is one argument of a call site: positional when Name is empty.
// An empty Type matches any parameter type.
type ArgShape struct {
	Name string
	Type string
	Mode decl.ParamMode
}

// Shape is the argument list of one constructor call.
type Shape []ArgShape

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, a := range s {
		var b strings.Builder
		if a.Name != "" {
			b.WriteString(a.Name)
			b.WriteString(": ")
		}
		if a.Mode != decl.ModeValue {
			b.WriteString(a.Mode.String())
			b.WriteByte(' ')
		}
		b.WriteString(a.Type)
		parts[i] = b.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

type match struct {
	expanded bool
	omitted  bool
}

// rank orders applicable candidates: normal form before expanded form, then
// candidates using every optional parameter before those that omit one.
func (m match) rank() int {
	r := 0
	if m.expanded {
		r += 2
	}
	if m.omitted {
		r++
	}
	return r
}

// fixedLen counts the parameters before a trailing params parameter.
func fixedLen(params []decl.Param) int {
	if n := len(params); n > 0 && params[n-1].Mode == decl.ModeParams {
		return n - 1
	}
	return len(params)
}

func elementType(t string) string { return strings.TrimSuffix(t, "[]") }

func argFits(a ArgShape, typ string, mode decl.ParamMode) bool {
	if a.Type != "" && a.Type != typ {
		return false
	}
	switch mode {
	case decl.ModeParams:
		return a.Mode == decl.ModeValue
	case decl.ModeIn:
		return a.Mode == decl.ModeIn || a.Mode == decl.ModeValue
	}
	return a.Mode == mode
}

// applicable checks a call shape against a parameter list in normal or
// expanded (params) form.
func applicable(params []decl.Param, s Shape, expanded bool) (match, bool) {
	n := len(params)
	fixed := n
	if expanded {
		if n == 0 || params[n-1].Mode != decl.ModeParams {
			return match{}, false
		}
		fixed = n - 1
	}
	filled := make([]bool, n)
	i := 0
	for ; i < len(s) && s[i].Name == ""; i++ {
		a := s[i]
		switch {
		case i < fixed:
			if !argFits(a, params[i].Type, params[i].Mode) {
				return match{}, false
			}
			filled[i] = true
		case expanded:
			if a.Mode != decl.ModeValue || (a.Type != "" && a.Type != elementType(params[n-1].Type)) {
				return match{}, false
			}
		default:
			return match{}, false
		}
	}
	for ; i < len(s); i++ {
		a := s[i]
		if a.Name == "" {
			return match{}, false
		}
		j := paramIndex(params, a.Name)
		if j < 0 || filled[j] || (expanded && j == n-1) {
			return match{}, false
		}
		if !argFits(a, params[j].Type, params[j].Mode) {
			return match{}, false
		}
		filled[j] = true
	}
	m := match{expanded: expanded}
	for j := 0; j < n; j++ {
		if filled[j] || (expanded && j == n-1) {
			continue
		}
		if !params[j].Optional() {
			return match{}, false
		}
		m.omitted = true
	}
	return m, true
}

func paramIndex(params []decl.Param, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// resolve returns the best candidates for s: one index when the call binds,
// several when it is ambiguous, none when nothing applies. Argument types
// are compared by identity, so betterness reduces to the form and the
// omitted-optional tie-breakers.
func resolve(cands [][]decl.Param, s Shape) []int {
	best := -1
	var out []int
	for i, params := range cands {
		m, ok := applicable(params, s, false)
		if !ok {
			m, ok = applicable(params, s, true)
		}
		if !ok {
			continue
		}
		switch r := m.rank(); {
		case best < 0 || r < best:
			best = r
			out = append(out[:0], i)
		case r == best:
			out = append(out, i)
		}
	}
	return out
}

// shapesOf enumerates the call shapes a parameter list accepts: every
// positional prefix from the mandatory prefix up, named use of each
// optional parameter, a fully named mandatory prefix and, for a params
// parameter, the normal form and the expanded form with one and two
// elements.
func shapesOf(params []decl.Param) []Shape {
	n := len(params)
	fixed := fixedLen(params)
	hasParams := fixed < n
	m := decl.MandatoryPrefix(params)
	pos := func(k int) Shape {
		s := make(Shape, k, k+2)
		for i := 0; i < k; i++ {
			s[i] = ArgShape{Type: params[i].Type, Mode: argMode(params[i].Mode)}
		}
		return s
	}

	var out []Shape
	for k := m; k <= fixed; k++ {
		out = append(out, pos(k))
	}
	for j := m; j < fixed; j++ {
		out = append(out, append(pos(m), ArgShape{Name: params[j].Name, Type: params[j].Type, Mode: argMode(params[j].Mode)}))
	}
	if m > 0 {
		named := make(Shape, m)
		for i := 0; i < m; i++ {
			named[i] = ArgShape{Name: params[i].Name, Type: params[i].Type, Mode: argMode(params[i].Mode)}
		}
		out = append(out, named)
	}
	if hasParams {
		el := ArgShape{Type: elementType(params[n-1].Type)}
		out = append(out,
			append(pos(fixed), ArgShape{Type: params[n-1].Type}),
			append(pos(fixed), el),
			append(pos(fixed), el, el))
	}
	return out
}

// argMode is the mode written at the call site for a parameter mode.
func argMode(m decl.ParamMode) decl.ParamMode {
	if m == decl.ModeParams {
		return decl.ModeValue
	}
	return m
}

// member is one constructor as the oracle sees it. identity is the key of
// the pre-transformation constructor a call must reach.
type member struct {
	params   []decl.Param
	identity decl.Key
}

type violation struct {
	shape    Shape
	want     decl.Key
	involved []decl.Key
}

func paramsOf(set []member) [][]decl.Param {
	out := make([][]decl.Param, len(set))
	for i, m := range set {
		out[i] = m.params
	}
	return out
}

// verify checks that every call shape binding to exactly one constructor of
// pre binds to exactly one constructor of post with the same identity.
func verify(pre, post []member) *violation {
	for i := range post {
		for j := i + 1; j < len(post); j++ {
			if decl.SameSignature(post[i].params, post[j].params) {
				return &violation{
					shape:    positional(post[i].params),
					want:     post[i].identity,
					involved: []decl.Key{post[i].identity, post[j].identity},
				}
			}
		}
	}
	preParams, postParams := paramsOf(pre), paramsOf(post)
	seen := make(map[string]bool)
	for _, p := range pre {
		for _, s := range shapesOf(p.params) {
			k := s.String()
			if seen[k] {
				continue
			}
			seen[k] = true
			hits := resolve(preParams, s)
			if len(hits) != 1 {
				continue
			}
			want := pre[hits[0]].identity
			got := resolve(postParams, s)
			if len(got) == 1 && post[got[0]].identity == want {
				continue
			}
			v := &violation{shape: s, want: want, involved: []decl.Key{want}}
			for _, g := range got {
				v.involved = append(v.involved, post[g].identity)
			}
			return v
		}
	}
	return nil
}

func positional(params []decl.Param) Shape {
	s := make(Shape, len(params))
	for i, p := range params {
		s[i] = ArgShape{Type: p.Type, Mode: argMode(p.Mode)}
	}
	return s
}
