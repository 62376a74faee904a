package decl

import "strings"

// ID addresses a declaration inside a Model arena. 0 means "none".
type ID uint32

const NoID ID = 0

func (id ID) IsValid() bool { return id != NoID }

// FileRef addresses a File of a Model. 0 means "none".
type FileRef uint32

func (r FileRef) IsValid() bool { return r != 0 }

// Key is the stable documentation-ID style identity of a declaration:
// T:Ns.Outer.Inner, M:Ns.C.Save(int,ref string), M:Ns.C.#ctor(int),
// P:Ns.C.Name, F:Ns.C.count, E:Ns.C.Changed, N:Ns.
type Key string

func (k Key) String() string { return string(k) }

// Prefix returns the kind letter of the key ('T', 'M', ...), or 0.
func (k Key) Prefix() byte {
	if len(k) < 2 || k[1] != ':' {
		return 0
	}
	return k[0]
}

// Namespace returns the namespace named by an N: key.
func (k Key) Namespace() (string, bool) {
	return strings.CutPrefix(string(k), "N:")
}

// Owner returns the key of the type that declares the element named by k.
// It works on the key text alone, so it also answers for members that are
// not in any model yet.
func (k Key) Owner() (Key, bool) {
	switch k.Prefix() {
	case 'T', 'M', 'P', 'F', 'E':
	default:
		return "", false
	}
	name := string(k[2:])
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return "", false
	}
	return TypeKey(name[:i]), true
}
