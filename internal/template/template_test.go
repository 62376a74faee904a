package template

import (
	"errors"
	"fmt"
	"testing"
)

type fakeResolver struct {
	proceed string
	members map[string]string
}

func (f fakeResolver) Proceed() (string, error) {
	if f.proceed == "" {
		return "", ErrNoInnerImpl
	}
	return f.proceed, nil
}

func (f fakeResolver) Member(name string) (string, error) {
	if v, ok := f.members[name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownMember, name)
}

func (f fakeResolver) TargetName() string { return "Save" }

func TestParseAndRender(t *testing.T) {
	src := "Console.WriteLine(\"enter meta.Target.Name\");\n" +
		"meta.Member(\"log\").Write(meta.Target.Name);\n" +
		"return meta.Proceed();"
	tpl, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !tpl.UsesProceed() {
		t.Fatalf("expected proceed")
	}
	if got := tpl.Members(); len(got) != 1 || got[0] != "log" {
		t.Fatalf("Members = %v", got)
	}
	if tpl.String() != src {
		t.Fatalf("String round trip:\n%s", tpl.String())
	}

	out, err := tpl.Render(fakeResolver{proceed: "this.Save_Source(a)", members: map[string]string{"log": "this.log"}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "Console.WriteLine(\"enter Save\");\n" +
		"this.log.Write(Save);\n" +
		"return this.Save_Source(a);"
	if out != want {
		t.Fatalf("Render:\n%s\nwant:\n%s", out, want)
	}
}

func TestRenderErrors(t *testing.T) {
	tpl, err := Parse("meta.Proceed();")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := tpl.Render(fakeResolver{}); !errors.Is(err, ErrNoInnerImpl) {
		t.Fatalf("want ErrNoInnerImpl, got %v", err)
	}

	tpl, _ = Parse(`meta.Member("missing")`)
	if _, err := tpl.Render(fakeResolver{proceed: "x"}); !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("want ErrUnknownMember, got %v", err)
	}
}

func TestParseRejectsUnknownPlaceholders(t *testing.T) {
	tests := []string{
		"meta.Proceed;",
		"meta.Target.Names",
		`meta.Member("unterminated`,
		`meta.Member("")`,
		"x = meta.This;",
	}
	for _, src := range tests {
		if _, err := Parse(src); !errors.Is(err, ErrBadPlaceholder) {
			t.Fatalf("Parse(%q) = %v, want ErrBadPlaceholder", src, err)
		}
	}
}

func TestParseIgnoresQualifiedMeta(t *testing.T) {
	tpl, err := Parse("this.meta.Value = othermeta.X;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tpl.Segments) != 1 || tpl.Segments[0].Kind != SegText {
		t.Fatalf("expected plain text, got %+v", tpl.Segments)
	}
	var zero Template
	if out, _ := zero.Render(fakeResolver{}); out != "" {
		t.Fatalf("zero template rendered %q", out)
	}
}
