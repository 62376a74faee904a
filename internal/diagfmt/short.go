package diagfmt

import (
	"io"

	"weaver/internal/diag"
	"weaver/internal/source"
)

// Short writes one line per diagnostic in the stable golden format.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, includeNotes bool) error {
	out := diag.FormatGoldenDiagnostics(bag.Items(), fs, includeNotes)
	if out == "" {
		return nil
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}
