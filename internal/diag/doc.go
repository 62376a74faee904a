// Package diag defines the diagnostic model shared by every weaving phase.
//
// # Purpose
//
//   - Capture findings of the ordering, introduction, linking, constructor
//     and emission phases as deterministic records.
//   - Let producers emit diagnostics through a Reporter without knowing
//     where they are stored or how they are rendered.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: numeric identifier with a stable string form (CFG1002, TPL2001).
//   - Message: short and actionable.
//   - Primary: the span of the offending advice inside the snapshot document,
//     or the zero span when the finding has no textual origin.
//   - Target: key of the declaration the advice was attached to.
//   - Aspect: name of the aspect that produced the advice.
//   - Notes: optional secondary spans.
//
// Code ranges: CFG1xxx configuration, TPL2xxx templates, CTR3xxx constructor
// parameters, INT4xxx introductions and annotations, EMT5xxx emission.
//
// # Reporting
//
// Producers usually go through ReportBuilder:
//
//	diag.ReportError(r, diag.CfgDuplicateLayer, adv.Span, msg).
//		WithTarget(string(target)).
//		WithAspect(adv.Aspect).
//		Emit()
//
// Emit forwards exactly once. BagReporter stores into a Bag, DedupReporter
// filters repeats, NopReporter discards. A Bag is owned by one goroutine;
// the parallel pipeline gives each declaring type its own Bag and merges
// them in declaration order, so output never depends on scheduling.
//
// Rendering lives in internal/diagfmt.
package diag
