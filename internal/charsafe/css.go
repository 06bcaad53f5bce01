package charsafe

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"liquidlint/internal/diag"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

// cssSource is a stretch of CSS at file offset base.
type cssSource struct {
	base   int
	text   []byte
	inline bool
}

// cssSources lists every place CSS can live: stylesheet fences,
// {% style %} bodies, <style> elements and style attributes.
func (v *validator) cssSources() []cssSource {
	var out []cssSource
	for _, reg := range v.u.RegionsOf(token.RegionStyle) {
		out = append(out, cssSource{base: int(reg.Body.Start), text: v.content[reg.Body.Start:reg.Body.End]})
	}

	open := -1
	for _, tok := range v.u.Tokens {
		switch {
		case tok.Kind == token.TagOpen && tok.Name == "style" && !tok.Inline:
			open = int(tok.Span.End)
		case tok.Kind == token.TagClose && tok.Name == "endstyle" && open >= 0:
			out = append(out, cssSource{base: open, text: v.masked[open:tok.Span.Start]})
			open = -1
		}
	}

	for _, blk := range v.htmlCSS {
		out = append(out, cssSource{base: blk.start, text: v.masked[blk.start:blk.end], inline: blk.inline})
	}
	return out
}

func (v *validator) styles() {
	for _, src := range v.sheets {
		v.css(src.base, src.text, src.inline)
	}
}

// cssContext reports whether sp lies in CSS and, if so, whether it sits in
// the value of a content: declaration.
func (v *validator) cssContext(sp source.Span) (inCSS, content bool) {
	for _, src := range v.sheets {
		at := int(sp.Start) - src.base
		if at < 0 || int(sp.End) > src.base+len(src.text) {
			continue
		}
		seg := bytes.LastIndexAny(src.text[:at], ";{}") + 1
		decl := src.text[seg:at]
		colon := bytes.IndexByte(decl, ':')
		if colon < 0 {
			return true, false
		}
		return true, string(asciiLower(bytes.TrimSpace(decl[:colon]))) == "content"
	}
	return false, false
}

// css walks a stylesheet (or a declaration list when inline) that starts
// at file offset base.
func (v *validator) css(base int, text []byte, inline bool) {
	buf := stripComments(text)
	seg := 0
	for i := 0; i < len(buf); i++ {
		switch buf[i] {
		case '"', '\'':
			i = skipString(buf, i)
		case '{':
			if !inline {
				v.selector(base, buf, seg, i)
			}
			seg = i + 1
		case ';', '}':
			v.declaration(base, buf, seg, i)
			seg = i + 1
		}
	}
	if seg < len(buf) {
		v.declaration(base, buf, seg, len(buf))
	}
}

// stripComments blanks /* */ comments, keeping offsets.
func stripComments(text []byte) []byte {
	buf := make([]byte, len(text))
	copy(buf, text)
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == '"' || buf[i] == '\'' {
			i = skipString(buf, i)
			continue
		}
		if buf[i] != '/' || buf[i+1] != '*' {
			continue
		}
		end := bytes.Index(buf[i+2:], []byte("*/"))
		stop := len(buf)
		if end >= 0 {
			stop = i + 2 + end + 2
		}
		for j := i; j < stop; j++ {
			buf[j] = ' '
		}
		i = stop - 1
	}
	return buf
}

// skipString returns the index of the quote closing the string at i.
func skipString(buf []byte, i int) int {
	q := buf[i]
	for j := i + 1; j < len(buf); j++ {
		switch buf[j] {
		case '\\':
			j++
		case q, '\n':
			return j
		}
	}
	return len(buf) - 1
}

func (v *validator) selector(base int, buf []byte, s, e int) {
	pre := bytes.TrimSpace(buf[s:e])
	if len(pre) == 0 || pre[0] == '@' {
		return
	}
	for i := s; i < e; i++ {
		c := buf[i]
		if c == '"' || c == '\'' {
			i = skipString(buf, i)
			continue
		}
		if c < utf8.RuneSelf {
			continue
		}
		ch, size := utf8.DecodeRune(buf[i:])
		at := base + i
		diag.ReportError(v.r, diag.CharCSSSelector, v.span(at, at+size),
			fmt.Sprintf("selector '%s' contains %s", bytes.TrimSpace(buf[s:e]), describe(ch))).
			WithSuggestion("use ASCII class names or escape the character").
			Emit()
		return
	}
}

func (v *validator) declaration(base int, buf []byte, s, e int) {
	colon := bytes.IndexByte(buf[s:e], ':')
	if colon < 0 {
		return
	}
	colon += s
	nameStart := s
	for nameStart < colon && isCSSSpace(buf[nameStart]) {
		nameStart++
	}
	name := bytes.TrimSpace(buf[nameStart:colon])

	if bytes.HasPrefix(name, []byte("--")) {
		for i := nameStart; i < colon; i++ {
			if buf[i] < utf8.RuneSelf {
				continue
			}
			ch, size := utf8.DecodeRune(buf[i:])
			at := base + i
			diag.ReportError(v.r, diag.CharCSSCustomProperty, v.span(at, at+size),
				fmt.Sprintf("custom property '%s' contains %s", name, describe(ch))).
				WithSuggestion("use ASCII letters, digits and hyphens in custom property names").
				Emit()
			break
		}
	}

	if string(asciiLower(name)) == "content" {
		v.contentValue(base, buf, colon+1, e)
		return
	}
	v.calc(base, buf, colon+1, e)
}

// contentValue flags raw non-ASCII in a content: value.
func (v *validator) contentValue(base int, buf []byte, s, e int) {
	for i := s; i < e; {
		if buf[i] < utf8.RuneSelf {
			i++
			continue
		}
		ch, size := utf8.DecodeRune(buf[i:])
		at := base + i
		sp := v.span(at, at+size)
		esc := cssEscape(ch, buf, i+size, e)
		diag.ReportError(v.r, diag.CharCSSContent, sp,
			fmt.Sprintf("raw %s in CSS content value", describe(ch))).
			WithFix(fmt.Sprintf("escape as '%s'", esc), diag.Replace(sp, string(buf[i:i+size]), esc)).
			Emit()
		i += size
	}
}

// cssEscape renders ch as a CSS hex escape; a space terminates it when the
// following byte would otherwise be read as part of the escape.
func cssEscape(ch rune, buf []byte, next, end int) string {
	esc := fmt.Sprintf("\\%04X", ch)
	if next < end && (isHex(buf[next]) || isCSSSpace(buf[next])) {
		esc += " "
	}
	return esc
}

func (v *validator) calc(base int, buf []byte, s, e int) {
	val := asciiLower(buf[s:e])
	for from := 0; from < len(val); {
		idx := bytes.Index(val[from:], []byte("calc("))
		if idx < 0 {
			return
		}
		open := from + idx + len("calc(")
		depth, end := 1, len(val)
		for j := open; j < len(val); j++ {
			switch val[j] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				end = j
				break
			}
		}
		for j := open; j < end; {
			c := buf[s+j]
			if c < utf8.RuneSelf {
				j++
				continue
			}
			ch, size := utf8.DecodeRune(buf[s+j:])
			if op, ok := v.reg.CalcGlyph(ch); ok {
				at := base + s + j
				sp := v.span(at, at+size)
				diag.ReportCritical(v.r, diag.CharCalcGlyph, sp,
					fmt.Sprintf("%s inside calc() is not an operator", describe(ch))).
					WithFix(fmt.Sprintf("replace with '%s'", op), diag.Replace(sp, string(buf[s+j:s+j+size]), op)).
					Emit()
			}
			j += size
		}
		from = end + 1
	}
}

// asciiLower lowercases A-Z only, so offsets stay aligned with the input.
func asciiLower(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

func isCSSSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
