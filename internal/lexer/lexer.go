// Package lexer splits a template file into literal text, tags, outputs and
// fenced sub-language regions in a single left-to-right pass.
package lexer

import (
	"bytes"
	"fmt"

	"liquidlint/internal/diag"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

type Options struct {
	Reporter diag.Reporter // может быть nil, тогда находки отбрасываются
}

type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	unit   *Unit
}

func New(file *source.File, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
	}
}

// Scan tokenizes file. Findings go to opts.Reporter; an *EncodingError is
// returned when the bytes cannot be analyzed at all.
func Scan(file *source.File, opts Options) (*Unit, error) {
	return New(file, opts).Run()
}

// Run performs the scan. A Lexer is single use.
func (lx *Lexer) Run() (*Unit, error) {
	if lx.unit != nil {
		return lx.unit, nil
	}
	if err := checkEncoding(lx.file); err != nil {
		return nil, err
	}
	lx.unit = &Unit{File: lx.file, Encoding: EncodingUTF8}

	if source.HasBOM(lx.file.Content) {
		lx.unit.Encoding = EncodingUTF8BOM
		lx.unit.Start = source.BOMLen
		lx.cursor.Off = source.BOMLen
		sp := lx.file.Span(0, source.BOMLen)
		diag.ReportWarning(lx.opts.Reporter, diag.CharBOM, sp, "file starts with a UTF-8 byte order mark").
			WithSuggestion("save the file as UTF-8 without BOM").
			WithFix("remove byte order mark", diag.Delete(sp, "\uFEFF")).
			Emit()
	}

	for !lx.cursor.EOF() {
		lx.step()
	}
	return lx.unit, nil
}

func (lx *Lexer) step() {
	start := lx.cursor.Off
	at, ok := lx.nextDelim(start)
	if !ok {
		lx.literal(start, lx.cursor.Limit)
		lx.cursor.Off = lx.cursor.Limit
		return
	}
	lx.literal(start, at)
	lx.cursor.Off = at
	if lx.cursor.PeekAt(at+1) == '{' {
		lx.scanOutput()
	} else {
		lx.scanTag()
	}
}

// nextDelim finds the next "{{" or "{%" at or after from.
func (lx *Lexer) nextDelim(from uint32) (uint32, bool) {
	content := lx.file.Content[:lx.cursor.Limit]
	for from+1 < lx.cursor.Limit {
		i := bytes.IndexByte(content[from:], '{')
		if i < 0 {
			return 0, false
		}
		at := from + source.Off(i)
		if next := lx.cursor.PeekAt(at + 1); next == '{' || next == '%' {
			return at, true
		}
		from = at + 1
	}
	return 0, false
}

// closerFor looks for closer after from. When another delimiter opens
// first the construct is unterminated and resume points at that delimiter.
func (lx *Lexer) closerFor(from uint32, closer string) (closeAt uint32, resume uint32, ok bool) {
	idx := lx.cursor.Index(from, closer)
	next, hasNext := lx.nextDelim(from)
	if idx < 0 {
		if hasNext {
			return 0, next, false
		}
		return 0, lx.cursor.Limit, false
	}
	if hasNext && next < source.Off(idx) {
		return 0, next, false
	}
	return source.Off(idx), 0, true
}

func (lx *Lexer) literal(start, end uint32) {
	if start >= end {
		return
	}
	sp := source.Span{File: lx.file.ID, Start: start, End: end}
	lx.push(token.Token{Kind: token.Literal, Span: sp, Text: lx.file.Text(sp)})
}

func (lx *Lexer) push(tok token.Token) int {
	lx.unit.Tokens = append(lx.unit.Tokens, tok)
	return len(lx.unit.Tokens) - 1
}

func (lx *Lexer) span(start, end uint32) source.Span {
	return source.Span{File: lx.file.ID, Start: start, End: end}
}

// inner strips whitespace-control dashes from the delimited body.
func (lx *Lexer) inner(start, end uint32) (s, e uint32, trimLeft, trimRight bool) {
	content := lx.file.Content
	s, e = start, end
	if s < e && content[s] == '-' {
		s++
		trimLeft = true
	}
	if e > s && content[e-1] == '-' {
		e--
		trimRight = true
	}
	return s, e, trimLeft, trimRight
}

func (lx *Lexer) scanOutput() {
	at := lx.cursor.Off
	closeAt, resume, ok := lx.closerFor(at+2, "}}")
	if !ok {
		diag.ReportCritical(lx.opts.Reporter, diag.LexUnterminatedOutput, lx.span(at, at+2),
			"unterminated output: '{{' has no matching '}}'").Emit()
		lx.literal(at, resume)
		lx.cursor.Off = resume
		return
	}
	end := closeAt + 2
	s, e, tl, tr := lx.inner(at+2, closeAt)
	ms, me := trimRange(lx.file.Content, s, e)
	sp := lx.span(at, end)
	mark := lx.span(ms, me)
	lx.push(token.Token{
		Kind:       token.Output,
		Span:       sp,
		Text:       lx.file.Text(sp),
		Markup:     lx.file.Text(mark),
		MarkupSpan: mark,
		TrimLeft:   tl,
		TrimRight:  tr,
	})
	lx.cursor.Off = end
}

func (lx *Lexer) scanTag() {
	at := lx.cursor.Off
	closeAt, resume, ok := lx.closerFor(at+2, "%}")
	if !ok {
		diag.ReportCritical(lx.opts.Reporter, diag.LexUnterminatedTag, lx.span(at, at+2),
			"unterminated tag: '{%' has no matching '%}'").Emit()
		lx.literal(at, resume)
		lx.cursor.Off = resume
		return
	}
	end := closeAt + 2
	tok := lx.tagToken(at, end, closeAt)
	lx.cursor.Off = end

	switch {
	case tok.Name == "":
		tok.Kind = token.Invalid
		lx.push(tok)
		diag.ReportError(lx.opts.Reporter, diag.LexEmptyTag, tok.Span, "tag has no name").Emit()
	case tok.Name == "liquid":
		tok.Kind = token.TagOpen
		lx.push(tok)
		lx.expandLiquid(tok.MarkupSpan.Start, tok.MarkupSpan.End)
	default:
		if kind, fenced := token.FenceKind(tok.Name); fenced {
			lx.scanFence(tok, kind)
			return
		}
		tok.Kind = token.TagOpen
		if len(tok.Name) > 3 && tok.Name[:3] == "end" {
			tok.Kind = token.TagClose
		}
		lx.push(tok)
	}
}

// tagToken parses the "{% name markup %}" header; Kind is left to the caller.
func (lx *Lexer) tagToken(at, end, closeAt uint32) token.Token {
	content := lx.file.Content
	s, e, tl, tr := lx.inner(at+2, closeAt)
	s, e = trimRange(content, s, e)
	nameEnd := readName(content, s, e)
	ms, me := trimRange(content, nameEnd, e)
	sp := lx.span(at, end)
	mark := lx.span(ms, me)
	return token.Token{
		Span:       sp,
		Text:       lx.file.Text(sp),
		Name:       string(content[s:nameEnd]),
		Markup:     lx.file.Text(mark),
		MarkupSpan: mark,
		TrimLeft:   tl,
		TrimRight:  tr,
	}
}

// scanFence copies the body of a fenced region verbatim up to its closer.
func (lx *Lexer) scanFence(open token.Token, kind token.RegionKind) {
	open.Kind = token.FenceStart
	opener := lx.push(open)
	bodyStart := open.Span.End

	closeStart, closeEnd, found := lx.findFenceEnd(bodyStart, open.Name)
	if !found {
		limit := lx.cursor.Limit
		diag.ReportCritical(lx.opts.Reporter, diag.LexUnterminatedFence, open.Span,
			fmt.Sprintf("unterminated fenced region: '{%% %s %%}' has no matching '{%% end%s %%}'", open.Name, open.Name)).
			Emit()
		lx.unit.Regions = append(lx.unit.Regions, token.Region{
			Kind:   kind,
			Tag:    open.Name,
			Span:   lx.span(open.Span.Start, limit),
			Body:   lx.span(bodyStart, limit),
			Opener: opener,
			Closer: -1,
		})
		lx.cursor.Off = limit
		return
	}

	closeTok := lx.tagToken(closeStart, closeEnd, closeEnd-2)
	closeTok.Kind = token.FenceEnd
	closer := lx.push(closeTok)
	lx.unit.Regions = append(lx.unit.Regions, token.Region{
		Kind:       kind,
		Tag:        open.Name,
		Span:       lx.span(open.Span.Start, closeEnd),
		Body:       lx.span(bodyStart, closeStart),
		Opener:     opener,
		Closer:     closer,
		Terminated: true,
	})
	lx.cursor.Off = closeEnd
}

// findFenceEnd finds "{% end<name> %}". Comments nest, other fences do not.
func (lx *Lexer) findFenceEnd(from uint32, name string) (start, end uint32, ok bool) {
	content := lx.file.Content
	limit := lx.cursor.Limit
	want := "end" + name
	depth := 0
	for pos := from; ; {
		idx := lx.cursor.Index(pos, "{%")
		if idx < 0 {
			return 0, 0, false
		}
		at := source.Off(idx)
		p := at + 2
		if p < limit && content[p] == '-' {
			p++
		}
		for p < limit && isSpace(content[p]) {
			p++
		}
		nameEnd := readName(content, p, limit)
		got := string(content[p:nameEnd])
		pos = at + 2
		switch {
		case name == "comment" && got == name:
			depth++
		case got == want:
			closeAt := lx.cursor.Index(nameEnd, "%}")
			if closeAt < 0 {
				return 0, 0, false
			}
			if depth > 0 {
				depth--
				continue
			}
			return at, source.Off(closeAt) + 2, true
		}
	}
}

// expandLiquid emits one inline tag per statement line of a {% liquid %} block.
func (lx *Lexer) expandLiquid(start, end uint32) {
	content := lx.file.Content
	inComment := false
	for lineStart := start; lineStart < end; {
		lineEnd := end
		if nl := bytes.IndexByte(content[lineStart:end], '\n'); nl >= 0 {
			lineEnd = lineStart + source.Off(nl)
		}
		s, e := trimRange(content, lineStart, lineEnd)
		lineStart = lineEnd + 1
		if s >= e {
			continue
		}

		nameEnd := readName(content, s, e)
		name := string(content[s:nameEnd])
		switch {
		case inComment:
			if name == "endcomment" {
				inComment = false
			}
			continue
		case name == "comment":
			inComment = true
			continue
		case name == "#":
			continue
		}

		ms, me := trimRange(content, nameEnd, e)
		sp := lx.span(s, e)
		mark := lx.span(ms, me)
		tok := token.Token{
			Kind:       token.TagOpen,
			Span:       sp,
			Text:       lx.file.Text(sp),
			Name:       name,
			Markup:     lx.file.Text(mark),
			MarkupSpan: mark,
			Inline:     true,
		}
		if name == "" {
			tok.Kind = token.Invalid
			lx.push(tok)
			diag.ReportError(lx.opts.Reporter, diag.LexEmptyTag, sp, "statement has no tag name").Emit()
			continue
		}
		if len(name) > 3 && name[:3] == "end" {
			tok.Kind = token.TagClose
		}
		lx.push(tok)
	}
}
