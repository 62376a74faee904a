package decl

import (
	"slices"
	"strings"
)

type ParamMode uint8

const (
	ModeValue ParamMode = iota
	ModeRef
	ModeOut
	ModeIn
	ModeParams
)

var modeNames = [...]string{"", "ref", "out", "in", "params"}

func (m ParamMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return ""
}

func ParseParamMode(s string) (ParamMode, bool) {
	for m, name := range modeNames {
		if name == s {
			return ParamMode(m), true
		}
	}
	return ModeValue, false
}

// Param is one parameter of a method or constructor. A parameter with a
// Default is optional.
type Param struct {
	Name    string
	Type    string
	Mode    ParamMode
	Default *string
}

func (p Param) Optional() bool { return p.Default != nil }

// Signature returns the key form: "ref int", "string".
func (p Param) Signature() string {
	if p.Mode == ModeValue {
		return p.Type
	}
	return p.Mode.String() + " " + p.Type
}

// String renders the parameter as it is declared.
func (p Param) String() string {
	var b strings.Builder
	if p.Mode != ModeValue {
		b.WriteString(p.Mode.String())
		b.WriteByte(' ')
	}
	b.WriteString(p.Type)
	b.WriteByte(' ')
	b.WriteString(p.Name)
	if p.Default != nil {
		b.WriteString(" = ")
		b.WriteString(*p.Default)
	}
	return b.String()
}

// Str returns a pointer to s, for Default and Body fields.
func Str(s string) *string { return &s }

// MandatoryPrefix returns the number of parameters before the first optional
// or params parameter.
func MandatoryPrefix(params []Param) int {
	for i, p := range params {
		if p.Optional() || p.Mode == ModeParams {
			return i
		}
	}
	return len(params)
}

// SameSignature reports whether two parameter lists have the same types and
// modes in the same order. Names and defaults do not matter.
func SameSignature(a, b []Param) bool {
	return slices.EqualFunc(a, b, func(x, y Param) bool {
		return x.Type == y.Type && x.Mode == y.Mode
	})
}

func signatureList(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Signature()
	}
	return strings.Join(parts, ",")
}

// CloneParams copies a parameter list including default pointers.
func CloneParams(params []Param) []Param {
	if params == nil {
		return nil
	}
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = p
		if p.Default != nil {
			out[i].Default = Str(*p.Default)
		}
	}
	return out
}
