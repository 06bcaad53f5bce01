package testkit

import (
	"fmt"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

// CheckUnitInvariants runs the structural invariants of a scanned unit:
// 1) top-level tokens are non-empty, ordered and do not overlap
// 2) top-level tokens and fence bodies tile the file after the BOM
// 3) inline tokens sit inside the markup of the preceding {% liquid %} tag
// 4) every region points at its FenceStart and, when terminated, its FenceEnd
func CheckUnitInvariants(u *lexer.Unit) error {
	if u == nil || u.File == nil {
		return fmt.Errorf("nil unit or file")
	}
	f := u.File
	size := f.Len()

	bodies := make(map[int]source.Span, len(u.Regions))
	for i, r := range u.Regions {
		if r.Opener < 0 || r.Opener >= len(u.Tokens) || u.Tokens[r.Opener].Kind != token.FenceStart {
			return fmt.Errorf("region %d: opener %d is not a FenceStart", i, r.Opener)
		}
		if r.Terminated != (r.Closer >= 0) {
			return fmt.Errorf("region %d: terminated=%v with closer %d", i, r.Terminated, r.Closer)
		}
		if r.Closer >= 0 && (r.Closer >= len(u.Tokens) || u.Tokens[r.Closer].Kind != token.FenceEnd) {
			return fmt.Errorf("region %d: closer %d is not a FenceEnd", i, r.Closer)
		}
		if !within(r.Span, r.Body) {
			return fmt.Errorf("region %d: body %v outside span %v", i, r.Body, r.Span)
		}
		bodies[r.Opener] = r.Body
	}

	pos := u.Start
	var liquid *token.Token
	for i := range u.Tokens {
		tok := &u.Tokens[i]
		if tok.Span.File != f.ID {
			return fmt.Errorf("token %d: span in file %d, want %d", i, tok.Span.File, f.ID)
		}
		if tok.Span.End <= tok.Span.Start || tok.Span.End > size {
			return fmt.Errorf("token %d: bad span %v (file len %d)", i, tok.Span, size)
		}
		if tok.Text != f.Text(tok.Span) {
			return fmt.Errorf("token %d: text %q does not match source", i, tok.Text)
		}
		if tok.Kind != token.Literal && !within(tok.Span, tok.MarkupSpan) {
			return fmt.Errorf("token %d: markup %v outside span %v", i, tok.MarkupSpan, tok.Span)
		}

		if tok.Inline {
			if liquid == nil || !within(liquid.MarkupSpan, tok.Span) {
				return fmt.Errorf("inline token %d at %v outside a liquid block", i, tok.Span)
			}
			continue
		}
		if tok.Span.Start != pos {
			return fmt.Errorf("token %d starts at %d, want %d", i, tok.Span.Start, pos)
		}
		pos = tok.Span.End
		liquid = nil
		if tok.Kind == token.TagOpen && tok.Name == "liquid" {
			liquid = tok
		}
		if body, ok := bodies[i]; ok {
			if body.Start != pos {
				return fmt.Errorf("fence body of token %d starts at %d, want %d", i, body.Start, pos)
			}
			pos = body.End
		}
	}
	if pos != size {
		return fmt.Errorf("tokens cover [%d, %d), file len %d", u.Start, pos, size)
	}
	return nil
}

// CheckFindingSpans verifies that every span of the findings resolves inside
// its file and that fix edits carry the text they replace.
func CheckFindingSpans(fs *source.FileSet, findings []*diag.Diagnostic) error {
	for i, d := range findings {
		if d == nil {
			return fmt.Errorf("finding %d is nil", i)
		}
		if err := checkSpan(fs, d.Primary); err != nil {
			return fmt.Errorf("%s primary: %w", d.Code.ID(), err)
		}
		for _, n := range d.Notes {
			if err := checkSpan(fs, n.Span); err != nil {
				return fmt.Errorf("%s note: %w", d.Code.ID(), err)
			}
		}
		if !d.Fixable() {
			continue
		}
		for _, e := range d.Fix.Edits {
			if err := checkSpan(fs, e.Span); err != nil {
				return fmt.Errorf("%s fix edit: %w", d.Code.ID(), err)
			}
			if e.OldText != "" && fs.Get(e.Span.File).Text(e.Span) != e.OldText {
				return fmt.Errorf("%s fix edit %v: old text %q does not match source", d.Code.ID(), e.Span, e.OldText)
			}
		}
	}
	return nil
}

func checkSpan(fs *source.FileSet, sp source.Span) error {
	if int(sp.File) >= fs.Len() {
		return fmt.Errorf("span %v: unknown file", sp)
	}
	f := fs.Get(sp.File)
	if f == nil {
		return fmt.Errorf("span %v: unknown file", sp)
	}
	if sp.End < sp.Start || sp.End > f.Len() {
		return fmt.Errorf("span %v out of range (file len %d)", sp, f.Len())
	}
	return nil
}

func within(outer, inner source.Span) bool {
	return inner.File == outer.File && inner.Start >= outer.Start && inner.End <= outer.End
}
