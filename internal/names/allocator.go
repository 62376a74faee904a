// Package names allocates collision-free identifiers for one declaring type.
package names

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// MaxAttempts bounds numeric suffixing before allocation gives up.
const MaxAttempts = 32

var ErrExhausted = errors.New("no free name")

// InUse reports whether a name is taken by the program itself.
type InUse func(name string) bool

// Allocator hands out names for one declaring type. It is not safe for
// concurrent use; each type gets its own allocator, which keeps the names
// independent of the order in which types are processed.
type Allocator struct {
	inUse InUse
	taken map[string]struct{}
	order []string
}

func NewAllocator(inUse InUse) *Allocator {
	if inUse == nil {
		inUse = func(string) bool { return false }
	}
	return &Allocator{inUse: inUse, taken: make(map[string]struct{})}
}

// Allocate returns base, or base1, base2, ... whichever is free first.
func (a *Allocator) Allocate(base string) (string, error) {
	name, err := Suffix(base, func(n string) bool {
		_, taken := a.taken[n]
		return taken || a.inUse(n)
	})
	if err != nil {
		return "", err
	}
	a.taken[name] = struct{}{}
	a.order = append(a.order, name)
	return name, nil
}

// Allocated lists the names handed out so far, in order.
func (a *Allocator) Allocated() []string { return a.order }

// Suffix returns the first of base, base1, base2, ... for which inUse is
// false, trying at most MaxAttempts candidates.
func Suffix(base string, inUse InUse) (string, error) {
	for i := range MaxAttempts {
		candidate := base
		if i > 0 {
			candidate = base + strconv.Itoa(i)
		}
		if !inUse(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %q after %d attempts", ErrExhausted, base, MaxAttempts)
}

// SourceName is the base name of the synthetic members holding superseded
// implementations of member.
func SourceName(member string) string {
	return member + "_Source"
}

// BackingFieldName is "_" followed by member with a lower-case first letter.
func BackingFieldName(member string) string {
	r, size := utf8.DecodeRuneInString(member)
	if r == utf8.RuneError {
		return "_" + member
	}
	return "_" + string(unicode.ToLower(r)) + member[size:]
}
