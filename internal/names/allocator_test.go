package names

import (
	"errors"
	"testing"
)

func TestAllocatorSuffixes(t *testing.T) {
	used := map[string]bool{"Save_Source": true}
	a := NewAllocator(func(n string) bool { return used[n] })

	want := []string{"Save_Source1", "Save_Source2", "Save_Source3"}
	for _, w := range want {
		got, err := a.Allocate(SourceName("Save"))
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if got != w {
			t.Fatalf("Allocate = %q, want %q", got, w)
		}
	}
	if len(a.Allocated()) != 3 {
		t.Fatalf("Allocated = %v", a.Allocated())
	}
}

func TestSuffixExhausted(t *testing.T) {
	_, err := Suffix("x", func(string) bool { return true })
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("want ErrExhausted, got %v", err)
	}
	got, err := Suffix("data", func(n string) bool { return n == "data" })
	if err != nil || got != "data1" {
		t.Fatalf("Suffix = %q, %v", got, err)
	}
}

func TestBackingFieldName(t *testing.T) {
	tests := map[string]string{
		"Name":  "_name",
		"count": "_count",
		"ID":    "_iD",
		"":      "_",
	}
	for in, want := range tests {
		if got := BackingFieldName(in); got != want {
			t.Fatalf("BackingFieldName(%q) = %q, want %q", in, got, want)
		}
	}
}
