package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps the path as it was loaded.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Context   int8 // lines of snapshot context around the primary span
	PathMode  PathMode
	ShowNotes bool
	Max       int // 0 means everything
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool
	PathMode         PathMode
	Max              int // truncates output, not the Bag
	IncludeNotes     bool
}

func formatPath(mode PathMode, path func(mode, base string) string, base string) string {
	switch mode {
	case PathModeAbsolute:
		return path("absolute", "")
	case PathModeRelative:
		return path("relative", base)
	case PathModeBasename:
		return path("basename", "")
	default:
		return path("", "")
	}
}
