// Package template parses advice bodies and renders their meta placeholders.
//
// Three placeholders are recognised:
//
//	meta.Proceed()        the next-inner implementation of the member
//	meta.Member("name")   another member of the declaring type
//	meta.Target.Name      the public name of the advised member
//
// Anything else spelled meta.X is rejected. Rendering is delegated to a
// Resolver so that the linker and the introducer decide what each
// placeholder means at a given layer.
package template

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoInnerImpl    = errors.New("proceed has no inner implementation")
	ErrUnknownMember  = errors.New("unknown member")
	ErrBadPlaceholder = errors.New("malformed meta placeholder")
)

type SegmentKind uint8

const (
	SegText SegmentKind = iota
	SegProceed
	SegMember
	SegTargetName
)

type Segment struct {
	Kind SegmentKind
	Text string // SegText: literal text; SegMember: member name
}

// Template is a parsed body. The zero value renders to "".
type Template struct {
	Segments []Segment
}

// Resolver supplies the text of each placeholder.
type Resolver interface {
	Proceed() (string, error)
	Member(name string) (string, error)
	TargetName() string
}

const metaPrefix = "meta."

// Parse splits src into literal text and placeholders.
func Parse(src string) (Template, error) {
	var t Template
	rest := src
	offset := 0
	for {
		i := indexMeta(rest)
		if i < 0 {
			t.appendText(rest)
			return t, nil
		}
		t.appendText(rest[:i])
		after := rest[i+len(metaPrefix):]
		seg, n, err := parsePlaceholder(after)
		if err != nil {
			return Template{}, fmt.Errorf("offset %d: %w", offset+i, err)
		}
		t.Segments = append(t.Segments, seg)
		consumed := i + len(metaPrefix) + n
		rest = rest[consumed:]
		offset += consumed
	}
}

// indexMeta finds "meta." not preceded by an identifier character.
func indexMeta(s string) int {
	from := 0
	for {
		i := strings.Index(s[from:], metaPrefix)
		if i < 0 {
			return -1
		}
		i += from
		if i == 0 || !isIdent(s[i-1]) {
			return i
		}
		from = i + len(metaPrefix)
	}
}

func isIdent(c byte) bool {
	return c == '_' || c == '.' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func parsePlaceholder(s string) (Segment, int, error) {
	switch {
	case strings.HasPrefix(s, "Proceed()"):
		return Segment{Kind: SegProceed}, len("Proceed()"), nil
	case strings.HasPrefix(s, "Target.Name") && (len(s) == len("Target.Name") || !isIdent(s[len("Target.Name")]) || s[len("Target.Name")] == '.'):
		return Segment{Kind: SegTargetName}, len("Target.Name"), nil
	case strings.HasPrefix(s, `Member("`):
		body := s[len(`Member("`):]
		end := strings.Index(body, `")`)
		if end <= 0 {
			return Segment{}, 0, fmt.Errorf("%w: unterminated meta.Member", ErrBadPlaceholder)
		}
		name := body[:end]
		if strings.ContainsAny(name, " \t\n\"") {
			return Segment{}, 0, fmt.Errorf("%w: bad member name %q", ErrBadPlaceholder, name)
		}
		return Segment{Kind: SegMember, Text: name}, len(`Member("`) + end + len(`")`), nil
	}
	word := s
	if i := strings.IndexFunc(s, func(r rune) bool { return r > 127 || !isIdent(byte(r)) || r == '.' }); i >= 0 {
		word = s[:i]
	}
	return Segment{}, 0, fmt.Errorf("%w: meta.%s", ErrBadPlaceholder, word)
}

func (t *Template) appendText(s string) {
	if s == "" {
		return
	}
	if n := len(t.Segments); n > 0 && t.Segments[n-1].Kind == SegText {
		t.Segments[n-1].Text += s
		return
	}
	t.Segments = append(t.Segments, Segment{Kind: SegText, Text: s})
}

// UsesProceed reports whether the template calls into the inner layer.
func (t Template) UsesProceed() bool {
	for _, s := range t.Segments {
		if s.Kind == SegProceed {
			return true
		}
	}
	return false
}

// Members lists the member names referenced through meta.Member.
func (t Template) Members() []string {
	var out []string
	for _, s := range t.Segments {
		if s.Kind == SegMember {
			out = append(out, s.Text)
		}
	}
	return out
}

// Render substitutes every placeholder. The first resolver error stops
// rendering and is returned wrapped with the placeholder it came from.
func (t Template) Render(r Resolver) (string, error) {
	var b strings.Builder
	for _, s := range t.Segments {
		switch s.Kind {
		case SegText:
			b.WriteString(s.Text)
		case SegProceed:
			text, err := r.Proceed()
			if err != nil {
				return "", fmt.Errorf("meta.Proceed(): %w", err)
			}
			b.WriteString(text)
		case SegMember:
			text, err := r.Member(s.Text)
			if err != nil {
				return "", fmt.Errorf("meta.Member(%q): %w", s.Text, err)
			}
			b.WriteString(text)
		case SegTargetName:
			b.WriteString(r.TargetName())
		default:
			panic(fmt.Sprintf("template: unknown segment kind %d", s.Kind))
		}
	}
	return b.String(), nil
}

// String reassembles the source text.
func (t Template) String() string {
	var b strings.Builder
	for _, s := range t.Segments {
		switch s.Kind {
		case SegText:
			b.WriteString(s.Text)
		case SegProceed:
			b.WriteString("meta.Proceed()")
		case SegMember:
			fmt.Fprintf(&b, "meta.Member(%q)", s.Text)
		case SegTargetName:
			b.WriteString("meta.Target.Name")
		}
	}
	return b.String()
}
