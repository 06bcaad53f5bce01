// Package fix applies the edits carried by findings to a file's content.
package fix

import (
	"bytes"
	"sort"

	"liquidlint/internal/diag"
	"liquidlint/internal/source"
)

// Причины пропуска; сравниваются в тестах и печатаются CLI.
const (
	ReasonConflict = "skipped: conflicting fix"
	ReasonStale    = "skipped: text no longer matches"
	ReasonRange    = "skipped: edit out of range"
	ReasonFile     = "skipped: edit targets another file"
	// ReasonFences is set by the engine when a rewrite would move fenced regions.
	ReasonFences = "skipped: rewrite changes fenced regions"
)

// Applied records a fix whose edits are in Result.Content.
type Applied struct {
	Code  diag.Code
	Title string
	Span  source.Span
	Edits int
}

// Skipped records a fix that was not applied.
type Skipped struct {
	Code   diag.Code
	Title  string
	Span   source.Span
	Reason string
}

// Result is the outcome of one rewrite pass.
type Result struct {
	Content   []byte
	Applied   []Applied
	Skipped   []Skipped
	Remaining []*diag.Diagnostic // findings that are still in Content
}

// Changed reports whether any edit was applied.
func (r *Result) Changed() bool {
	return len(r.Applied) > 0
}

// Rewrite selects the fixes of findings in order and applies them to a copy
// of content. A fix overlapping an earlier selected one, or whose guarded
// text differs from content, is skipped whole.
func Rewrite(content []byte, findings []*diag.Diagnostic) Result {
	res := Result{Content: content}
	var selected []diag.FixEdit
	for _, d := range findings {
		if d == nil {
			continue
		}
		if !d.Fixable() {
			res.Remaining = append(res.Remaining, d)
			continue
		}
		if reason := check(content, d, selected); reason != "" {
			res.Skipped = append(res.Skipped, Skipped{
				Code:   d.Code,
				Title:  d.Fix.Title,
				Span:   d.Primary,
				Reason: reason,
			})
			res.Remaining = append(res.Remaining, d)
			continue
		}
		selected = append(selected, d.Fix.Edits...)
		res.Applied = append(res.Applied, Applied{
			Code:  d.Code,
			Title: d.Fix.Title,
			Span:  d.Primary,
			Edits: len(d.Fix.Edits),
		})
	}
	if len(selected) == 0 {
		return res
	}
	res.Content = apply(content, selected)
	return res
}

func check(content []byte, d *diag.Diagnostic, selected []diag.FixEdit) string {
	size := source.Off(len(content))
	edits := d.Fix.Edits
	for i, e := range edits {
		if e.Span.File != d.Primary.File {
			return ReasonFile
		}
		if e.Span.Start > e.Span.End || e.Span.End > size {
			return ReasonRange
		}
		if e.OldText != "" && !bytes.Equal(content[e.Span.Start:e.Span.End], []byte(e.OldText)) {
			return ReasonStale
		}
		// правки одного fix тоже не должны пересекаться
		for _, other := range edits[:i] {
			if e.Span.Overlaps(other.Span) {
				return ReasonConflict
			}
		}
		for _, prev := range selected {
			if e.Span.Overlaps(prev.Span) {
				return ReasonConflict
			}
		}
	}
	return ""
}

// apply splices non-overlapping edits, highest offset first, so earlier
// offsets stay valid.
func apply(content []byte, edits []diag.FixEdit) []byte {
	sorted := append([]diag.FixEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start != sorted[j].Span.Start {
			return sorted[i].Span.Start > sorted[j].Span.Start
		}
		return sorted[i].Span.End > sorted[j].Span.End
	})
	out := append([]byte(nil), content...)
	for _, e := range sorted {
		suffix := append([]byte(nil), out[e.Span.End:]...)
		out = append(append(out[:e.Span.Start], e.NewText...), suffix...)
	}
	return out
}
