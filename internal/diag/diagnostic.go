package diag

import (
	"weaver/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one structured finding. Target is the key of the declaration
// the failing advice was attached to; Aspect is the aspect that produced it.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Target   string
	Aspect   string
	Notes    []Note
}
