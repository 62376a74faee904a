package diag

import "strings"

// Severity orders diagnostics; SevError marks a target the run could not
// transform.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{
	SevInfo:    "info",
	SevWarning: "warning",
	SevError:   "error",
}

// Valid reports whether s is one of the declared severities.
func (s Severity) Valid() bool { return int(s) < len(severityNames) }

// Label is the lower-case name used by the golden format.
func (s Severity) Label() string {
	if !s.Valid() {
		return "unknown"
	}
	return severityNames[s]
}

func (s Severity) String() string {
	if !s.Valid() {
		return "UNKNOWN"
	}
	return strings.ToUpper(severityNames[s])
}
