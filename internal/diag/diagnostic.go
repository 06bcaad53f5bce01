package diag

import (
	"liquidlint/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// FixEdit replaces Span with NewText. A non-empty OldText guards the edit.
type FixEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// Fix is a suggested rewrite made of one or more edits in the same file.
type Fix struct {
	Title string
	Edits []FixEdit
}

// Span covers every edit of the fix.
func (f *Fix) Span() source.Span {
	if f == nil || len(f.Edits) == 0 {
		return source.Span{}
	}
	sp := f.Edits[0].Span
	for _, e := range f.Edits[1:] {
		sp = sp.Cover(e.Span)
	}
	return sp
}

type Diagnostic struct {
	Severity   Severity
	Code       Code
	Message    string
	Primary    source.Span
	Notes      []Note
	Suggestion string
	Fix        *Fix
}

func (d *Diagnostic) Category() Category { return d.Code.Category() }

func (d *Diagnostic) Domain() Domain { return d.Code.Domain() }

// Fixable reports whether the diagnostic carries at least one edit.
func (d *Diagnostic) Fixable() bool {
	return d.Fix != nil && len(d.Fix.Edits) > 0
}
