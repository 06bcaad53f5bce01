package diag

import "liquidlint/internal/source"

func New(sev Severity, code Code, primary source.Span, msg string) *Diagnostic {
	return &Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

// WithNote appends a note. Only valid while the diagnostic is being built.
func (d *Diagnostic) WithNote(sp source.Span, msg string) *Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d *Diagnostic) WithSuggestion(s string) *Diagnostic {
	d.Suggestion = s
	return d
}

func (d *Diagnostic) WithFix(title string, edits ...FixEdit) *Diagnostic {
	if len(edits) == 0 {
		return d
	}
	d.Fix = &Fix{Title: title, Edits: edits}
	return d
}

// WithSeverity returns a copy with another severity; the receiver is untouched.
func (d *Diagnostic) WithSeverity(sev Severity) *Diagnostic {
	cp := *d
	cp.Severity = sev
	return &cp
}

// Replace builds a single-edit replacement guarded by the current text.
func Replace(sp source.Span, oldText, newText string) FixEdit {
	return FixEdit{Span: sp, OldText: oldText, NewText: newText}
}

// Insert builds a zero-width insertion at off.
func Insert(file source.FileID, off uint32, text string) FixEdit {
	return FixEdit{Span: source.Span{File: file, Start: off, End: off}, NewText: text}
}

// Delete removes the span, guarded by its current text.
func Delete(sp source.Span, oldText string) FixEdit {
	return FixEdit{Span: sp, OldText: oldText}
}
