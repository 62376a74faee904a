package advice

import (
	"fmt"

	"weaver/internal/decl"
	"weaver/internal/order"
	"weaver/internal/source"
)

// Kind is the closed set of advice variants. Every resolver switches over
// all of them; a new kind needs a case everywhere.
type Kind uint8

const (
	KindIntroduce Kind = iota
	KindOverride
	KindAddParameter
	KindAddAnnotation
	KindRemoveAnnotation
)

var kindNames = [...]string{"introduce", "override", "add-parameter", "add-annotation", "remove-annotation"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Policy says what happens when an introduction meets an existing member
// or annotation.
type Policy uint8

const (
	PolicyFail Policy = iota
	PolicyOverride
	PolicyNew
)

var policyNames = [...]string{"fail", "override", "new"}

func (p Policy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return "fail"
}

func ParsePolicy(s string) (Policy, bool) {
	if s == "" {
		return PolicyFail, true
	}
	for p, name := range policyNames {
		if name == s {
			return Policy(p), true
		}
	}
	return PolicyFail, false
}

// Pull says how callers that chain into an extended constructor obtain the
// new argument.
type Pull uint8

const (
	// PullDefault leaves callers alone; they get the default value.
	PullDefault Pull = iota
	// PullParameter adds the same parameter to every constructor that
	// chains into the target through ": this(...)" and passes it along.
	PullParameter
)

func ParsePull(s string) (Pull, bool) {
	switch s {
	case "", "default":
		return PullDefault, true
	case "parameter":
		return PullParameter, true
	}
	return PullDefault, false
}

func (p Pull) String() string {
	if p == PullParameter {
		return "parameter"
	}
	return "default"
}

// Templates holds raw body templates. A nil accessor template means that
// layer passes the accessor straight through to the inner implementation.
type Templates struct {
	Body   *string
	Get    *string
	Set    *string
	Add    *string
	Remove *string
}

func (t Templates) Empty() bool {
	return t.Body == nil && t.Get == nil && t.Set == nil && t.Add == nil && t.Remove == nil
}

type Introduce struct {
	Member decl.Declaration
	Policy Policy
}

type Override struct {
	Templates Templates
}

type AddParameter struct {
	Param decl.Param
	Pull  Pull
}

type AddAnnotation struct {
	Attribute decl.Attribute
	Policy    Policy
}

type RemoveAnnotation struct {
	Name string
}

// Advice is one aspect's request against one target. Exactly one payload
// pointer, the one matching Kind, is set.
type Advice struct {
	Kind   Kind
	Aspect string
	Layer  order.Layer
	Target decl.Key
	Span   source.Span

	Introduce        *Introduce
	Override         *Override
	AddParameter     *AddParameter
	AddAnnotation    *AddAnnotation
	RemoveAnnotation *RemoveAnnotation
}

// Header is the part every variant shares.
type Header struct {
	Aspect string
	Layer  order.Layer
	Target decl.Key
	Span   source.Span
}

func (h Header) advice(k Kind) Advice {
	return Advice{Kind: k, Aspect: h.Aspect, Layer: h.Layer, Target: h.Target, Span: h.Span}
}

func NewIntroduce(h Header, p Introduce) Advice {
	a := h.advice(KindIntroduce)
	a.Introduce = &p
	return a
}

func NewOverride(h Header, p Override) Advice {
	a := h.advice(KindOverride)
	a.Override = &p
	return a
}

func NewAddParameter(h Header, p AddParameter) Advice {
	a := h.advice(KindAddParameter)
	a.AddParameter = &p
	return a
}

func NewAddAnnotation(h Header, p AddAnnotation) Advice {
	a := h.advice(KindAddAnnotation)
	a.AddAnnotation = &p
	return a
}

func NewRemoveAnnotation(h Header, p RemoveAnnotation) Advice {
	a := h.advice(KindRemoveAnnotation)
	a.RemoveAnnotation = &p
	return a
}

func (a Advice) Header() Header {
	return Header{Aspect: a.Aspect, Layer: a.Layer, Target: a.Target, Span: a.Span}
}

// Validate checks that the payload matches Kind.
func (a Advice) Validate() error {
	var ok bool
	switch a.Kind {
	case KindIntroduce:
		ok = a.Introduce != nil
	case KindOverride:
		ok = a.Override != nil
	case KindAddParameter:
		ok = a.AddParameter != nil
	case KindAddAnnotation:
		ok = a.AddAnnotation != nil
	case KindRemoveAnnotation:
		ok = a.RemoveAnnotation != nil
	default:
		panic(fmt.Sprintf("advice: unknown kind %d", a.Kind))
	}
	if !ok {
		return fmt.Errorf("%s advice from %q on %s has no payload", a.Kind, a.Aspect, a.Target)
	}
	return nil
}

func (a Advice) String() string {
	return fmt.Sprintf("%s %s by %s at %s", a.Kind, a.Target, a.Aspect, a.Layer)
}
