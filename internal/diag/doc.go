// Package diag defines the finding model shared by the scanner, the
// validators, the aggregator and the rewriter.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – four levels (Info, Warning, Error, Critical) in severity.go.
//   - Code – compact numeric identifier (see codes.go) with a stable string
//     form. The code range also fixes the Category and, for character
//     safety, the sub-domain, so profiles can filter without extra fields.
//   - Message – short, actionable text.
//   - Primary span – byte range inside the analysed file.
//   - Suggestion – optional free-form hint ("did you mean ...").
//   - Fix – optional structured rewrite (one or more text edits).
//
// A Diagnostic is built through New / Report* helpers and must not be
// modified after it has been handed to a Reporter. Code that needs another
// severity (profile overrides) uses WithSeverity, which returns a copy.
//
// # Fix suggestions
//
// Fix is data only. Each FixEdit replaces Span with NewText; OldText, when
// set, is the guard the rewriter checks before applying the edit.
//
// # Emitting diagnostics
//
// Validators use a Reporter to decouple emission from storage:
//
//	diag.ReportError(r, diag.ExprUnknownFilter, sp, msg).
//		WithSuggestion("did you mean 'upcase'?").
//		Emit()
//
// BagReporter collects into a Bag, which provides deterministic sorting and
// de-duplication.
package diag
