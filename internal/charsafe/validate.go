// Package charsafe finds characters that render or parse differently from
// how they look: template code in isolated fences, Unicode operators in
// CSS, HTML entities in outputs, typographic punctuation and invisible or
// control characters.
package charsafe

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/runenames"
	"golang.org/x/text/width"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/markup"
	"liquidlint/internal/registry"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

// Options selects sub-domains. A nil Disabled map checks everything.
type Options struct {
	Disabled map[diag.Domain]bool
}

type validator struct {
	u       *lexer.Unit
	reg     *registry.Registry
	opts    Options
	r       diag.Reporter
	content []byte
	masked  []byte        // шаблонный код и тела фенсов заменены пробелами
	urls    []source.Span // значения href/src и т.п.
	htmlCSS []cssBlock
	sheets  []cssSource
}

// Validate reports character-safety findings of u to r.
func Validate(u *lexer.Unit, reg *registry.Registry, opts Options, r diag.Reporter) {
	v := &validator{
		u:       u,
		reg:     reg,
		opts:    opts,
		r:       r,
		content: u.File.Content,
	}
	v.masked = markup.Mask(u)
	v.scanHTML()
	v.sheets = v.cssSources()

	if v.enabled(diag.DomContext) {
		v.context()
	}
	if v.enabled(diag.DomCSS) {
		v.styles()
	}
	if v.enabled(diag.DomEntities) {
		v.entities()
	}
	if v.enabled(diag.DomPlatform) {
		v.platform()
	}
}

func (v *validator) enabled(d diag.Domain) bool {
	return !v.opts.Disabled[d]
}

func (v *validator) span(start, end int) source.Span {
	return v.u.File.Span(start, end)
}

// describe names a rune for messages, e.g. "U+2212 MINUS SIGN".
func describe(r rune) string {
	name := runenames.Name(r)
	if name == "" {
		return fmt.Sprintf("U+%04X", r)
	}
	return fmt.Sprintf("U+%04X %s", r, name)
}

// context flags Liquid delimiters inside fences that are served verbatim.
func (v *validator) context() {
	for _, reg := range v.u.Regions {
		if !reg.Isolated() {
			continue
		}
		body := v.content[reg.Body.Start:reg.Body.End]
		for i := 0; i+1 < len(body); i++ {
			if body[i] != '{' || (body[i+1] != '{' && body[i+1] != '%') {
				continue
			}
			at := int(reg.Body.Start) + i
			delim := string(body[i : i+2])
			diag.ReportCritical(v.r, diag.CharLiquidInFence, v.span(at, at+2),
				fmt.Sprintf("'%s' inside {%% %s %%} is not rendered", delim, reg.Tag)).
				WithNote(reg.Span, "the fence is served as a static asset").
				WithSuggestion("pass dynamic values through a {% style %} block, CSS variables or data attributes").
				Emit()
			i++
		}
	}
}

// zone is a run of bytes read either as code or as text.
type zone struct {
	sp   source.Span
	code bool
}

func (v *validator) zones() []zone {
	var out []zone
	for _, tok := range v.u.Tokens {
		switch tok.Kind {
		case token.Literal:
			out = append(out, zone{sp: tok.Span})
		case token.TagOpen:
			// тело {% liquid %} покрыто строчными токенами
			if tok.Name == "liquid" && !tok.Inline {
				continue
			}
			out = append(out, zone{sp: tok.MarkupSpan, code: true})
		case token.TagClose, token.Output, token.Invalid, token.FenceStart, token.FenceEnd:
			out = append(out, zone{sp: tok.MarkupSpan, code: true})
		}
	}
	for _, reg := range v.u.Regions {
		// CSS проверяется отдельно, см. styles
		out = append(out, zone{sp: reg.Body, code: reg.Kind == token.RegionJavascript})
	}
	return out
}

func (v *validator) platform() {
	for _, z := range v.zones() {
		v.zone(z)
	}
	v.rawBytes()
	v.identifiers()
}

func (v *validator) zone(z zone) {
	var quote byte
	for off := int(z.sp.Start); off < int(z.sp.End); {
		b := v.content[off]
		if b < utf8.RuneSelf {
			if z.code && (b == '\'' || b == '"') {
				switch quote {
				case 0:
					quote = b
				case b:
					quote = 0
				}
			}
			off++
			continue
		}
		ch, size := utf8.DecodeRune(v.content[off:])
		if off >= int(v.u.Start) {
			v.rune(ch, off, size, z.code, quote != 0)
		}
		off += size
	}
}

func (v *validator) rune(ch rune, off, size int, code, quoted bool) {
	sp := v.span(off, off+size)
	text := string(v.content[off : off+size])

	if v.reg.ZeroWidth(ch) {
		if code {
			diag.ReportError(v.r, diag.CharZeroWidthCode, sp,
				fmt.Sprintf("invisible %s in template code", describe(ch))).
				WithFix("delete the invisible character", diag.Delete(sp, text)).
				Emit()
			return
		}
		diag.ReportInfo(v.r, diag.CharZeroWidthText, sp,
			fmt.Sprintf("invisible %s in text", describe(ch))).Emit()
		return
	}

	if ascii, ok := v.reg.SmartPunct(ch); ok {
		if code && !quoted {
			diag.ReportError(v.r, diag.CharSmartPunctCode, sp,
				fmt.Sprintf("%s where template code expects '%s'", describe(ch), ascii)).
				WithFix(fmt.Sprintf("replace with '%s'", ascii), diag.Replace(sp, text, ascii)).
				Emit()
			return
		}
		diag.ReportInfo(v.r, diag.CharSmartPunctText, sp,
			fmt.Sprintf("typographic %s in text", describe(ch))).
			WithSuggestion(fmt.Sprintf("use '%s' if this text is parsed by code", ascii)).
			Emit()
		return
	}

	if code && !quoted {
		if ascii, ok := fullwidth(ch); ok {
			diag.ReportError(v.r, diag.CharSmartPunctCode, sp,
				fmt.Sprintf("fullwidth %s where template code expects '%s'", describe(ch), ascii)).
				WithFix(fmt.Sprintf("replace with '%s'", ascii), diag.Replace(sp, text, ascii)).
				Emit()
		}
	}
}

// fullwidth folds fullwidth ASCII punctuation to its ASCII form.
func fullwidth(ch rune) (string, bool) {
	if width.LookupRune(ch).Kind() != width.EastAsianFullwidth {
		return "", false
	}
	folded := width.Fold.String(string(ch))
	r, size := utf8.DecodeRuneInString(folded)
	if size != len(folded) || r >= utf8.RuneSelf || !(unicode.IsPunct(r) || unicode.IsSymbol(r)) {
		return "", false
	}
	return folded, true
}

// rawBytes reports U+FFFD and C0 control characters anywhere in the file.
func (v *validator) rawBytes() {
	for off := int(v.u.Start); off < len(v.content); {
		b := v.content[off]
		if b < utf8.RuneSelf {
			if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
				sp := v.span(off, off+1)
				diag.ReportError(v.r, diag.CharControl, sp,
					fmt.Sprintf("control character %s", describe(rune(b)))).
					WithFix("delete the control character", diag.Delete(sp, string(b))).
					Emit()
			}
			off++
			continue
		}
		ch, size := utf8.DecodeRune(v.content[off:])
		if ch == utf8.RuneError && size == 3 {
			diag.ReportCritical(v.r, diag.CharReplacement, v.span(off, off+size),
				"U+FFFD REPLACEMENT CHARACTER: the text was corrupted by an earlier encoding conversion").
				WithSuggestion("restore the original character from the source text").
				Emit()
		}
		off += size
	}
}

var namingTags = map[string]bool{
	"assign":    true,
	"capture":   true,
	"increment": true,
	"decrement": true,
	"for":       true,
	"tablerow":  true,
}

// identifiers flags variable names that are not plain ASCII.
func (v *validator) identifiers() {
	for _, tok := range v.u.Tokens {
		if tok.Kind != token.TagOpen || !namingTags[tok.Name] {
			continue
		}
		m := tok.Markup
		end := 0
		for end < len(m) && m[end] != ' ' && m[end] != '\t' && m[end] != '=' {
			end++
		}
		name := m[:end]
		for i, ch := range name {
			if ch < utf8.RuneSelf {
				continue
			}
			start := int(tok.MarkupSpan.Start)
			diag.ReportError(v.r, diag.CharNonASCIIIdentifier, v.span(start, start+end),
				fmt.Sprintf("variable '%s' contains %s at byte %d", name, describe(ch), i)).
				WithSuggestion("use ASCII letters, digits and underscores in variable names").
				Emit()
			break
		}
	}
}
