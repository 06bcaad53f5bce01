// Package themestore enforces the Theme Store submission rules: assets may
// only load from approved hosts and shipped JavaScript must not log to the
// console, open alert dialogs or call document.write.
package themestore

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/markup"
	"liquidlint/internal/registry"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

var (
	importRe  = regexp.MustCompile(`(?i)@import\s+(?:url\(\s*)?["']?((?:https?:)?//[^"')\s;]+)`)
	consoleRe = regexp.MustCompile(`\bconsole\s*\.\s*([A-Za-z_$][\w$]*)\s*\(`)
	alertRe   = regexp.MustCompile(`(?:^|[^\w$.]|\bwindow\s*\.\s*)alert\s*\(`)
	writeRe   = regexp.MustCompile(`\bdocument\s*\.\s*write(?:ln)?\s*\(`)
)

// scriptTypes are the <script type> values whose body is JavaScript.
var scriptTypes = map[string]bool{
	"":                       true,
	"text/javascript":        true,
	"application/javascript": true,
	"module":                 true,
}

type validator struct {
	u      *lexer.Unit
	reg    *registry.Registry
	r      diag.Reporter
	masked []byte
}

// Validate reports Theme Store violations of u to r.
func Validate(u *lexer.Unit, reg *registry.Registry, r diag.Reporter) {
	v := &validator{u: u, reg: reg, r: r, masked: markup.Mask(u)}
	doc := markup.Scan(v.masked)

	for _, t := range doc.Tags {
		switch t.Name {
		case "script":
			v.script(t)
		case "link":
			v.link(t)
		}
		for _, a := range t.Attrs {
			if strings.HasPrefix(a.Name, "on") && a.HasValue() {
				v.js(a.Start, v.masked[a.Start:a.End])
			}
		}
	}
	for _, b := range doc.Bodies {
		switch b.Element {
		case "script":
			if typ, ok := b.Open.Attr("type"); ok && typ.HasValue() &&
				!scriptTypes[strings.ToLower(strings.TrimSpace(string(v.masked[typ.Start:typ.End])))] {
				continue
			}
			v.js(b.Start, v.masked[b.Start:b.End])
		case "style":
			v.css(b.Start, v.masked[b.Start:b.End])
		}
	}

	for _, reg := range u.Regions {
		body := u.File.Content[reg.Body.Start:reg.Body.End]
		switch reg.Kind {
		case token.RegionJavascript:
			v.js(int(reg.Body.Start), body)
		case token.RegionStyle:
			v.css(int(reg.Body.Start), body)
		}
	}
	v.styleTags()
}

func (v *validator) span(start, end int) source.Span {
	return v.u.File.Span(start, end)
}

// url returns the static text of an attribute value; Liquid inside it is blank.
func (v *validator) url(a markup.Attr) string {
	return strings.TrimSpace(string(v.masked[a.Start:a.End]))
}

func external(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "//")
}

func (v *validator) script(t markup.Tag) {
	src, ok := t.Attr("src")
	if !ok || !src.HasValue() {
		return
	}
	url := v.url(src)
	if !external(url) || v.reg.ScriptHostAllowed(url) {
		return
	}
	diag.ReportCritical(v.r, diag.StoreExternalScript, v.span(src.Start, src.End),
		fmt.Sprintf("External scripts not allowed: '%s'", url)).
		WithSuggestion("Host scripts locally or use Shopify CDN").
		Emit()
}

// link checks stylesheets only; preconnect and icon links load no CSS.
func (v *validator) link(t markup.Tag) {
	rel, ok := t.Attr("rel")
	if !ok || !rel.HasValue() || !strings.Contains(strings.ToLower(v.url(rel)), "stylesheet") {
		return
	}
	href, ok := t.Attr("href")
	if !ok || !href.HasValue() {
		return
	}
	url := v.url(href)
	if !external(url) || v.reg.StylesheetHostAllowed(url) {
		return
	}
	diag.ReportCritical(v.r, diag.StoreExternalStylesheet, v.span(href.Start, href.End),
		fmt.Sprintf("External stylesheets not allowed: '%s'", url)).
		WithSuggestion("Host CSS locally or use approved CDNs").
		Emit()
}

// styleTags checks {% style %} bodies, which hold CSS around Liquid.
func (v *validator) styleTags() {
	open := -1
	for _, tok := range v.u.Tokens {
		switch {
		case tok.Kind == token.TagOpen && tok.Name == "style" && !tok.Inline:
			open = int(tok.Span.End)
		case tok.Kind == token.TagClose && tok.Name == "endstyle" && open >= 0:
			body := v.masked[open:tok.Span.Start]
			v.css(open, body)
			open = -1
		}
	}
}

func (v *validator) css(base int, text []byte) {
	buf := stripComments(text, false)
	for _, m := range importRe.FindAllSubmatchIndex(buf, -1) {
		url := string(buf[m[2]:m[3]])
		if v.reg.ImportHostAllowed(url) {
			continue
		}
		diag.ReportError(v.r, diag.StoreExternalImport, v.span(base+m[2], base+m[3]),
			fmt.Sprintf("External CSS imports not allowed: '%s'", url)).
			WithSuggestion("Include CSS directly in files").
			Emit()
	}
}

func (v *validator) js(base int, text []byte) {
	buf := stripComments(text, true)
	for _, m := range consoleRe.FindAllSubmatchIndex(buf, -1) {
		method := string(buf[m[2]:m[3]])
		if !v.reg.ConsoleMethod(method) {
			continue
		}
		diag.ReportError(v.r, diag.StoreConsoleCall, v.span(base+m[0], base+m[3]),
			fmt.Sprintf("Console statements must be removed: console.%s", method)).
			WithSuggestion("Remove all console statements for production").
			Emit()
	}
	for _, m := range alertRe.FindAllIndex(buf, -1) {
		start := m[0] + bytes.Index(buf[m[0]:m[1]], []byte("alert"))
		diag.ReportCritical(v.r, diag.StoreAlertCall, v.span(base+start, base+start+len("alert")),
			"Alert dialogs not allowed").
			WithSuggestion("Use proper UI notifications instead").
			Emit()
	}
	for _, m := range writeRe.FindAllIndex(buf, -1) {
		diag.ReportCritical(v.r, diag.StoreDocumentWrite, v.span(base+m[0], base+m[1]-1),
			"document.write breaks modern browsers").
			WithSuggestion("Use proper DOM manipulation").
			Emit()
	}
}

// stripComments blanks comments, keeping offsets. With js set it also
// blanks // line comments and the contents of string literals, so a
// quoted "alert(" is not a call.
func stripComments(text []byte, js bool) []byte {
	buf := make([]byte, len(text))
	copy(buf, text)
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		switch {
		case c == '"' || c == '\'' || (js && c == '`'):
			end := closeQuote(buf, i)
			if js {
				blank(buf[i+1 : end])
			}
			i = end
		case c == '/' && i+1 < len(buf) && buf[i+1] == '*':
			end := len(buf)
			if k := bytes.Index(buf[i+2:], []byte("*/")); k >= 0 {
				end = i + 2 + k + 2
			}
			blank(buf[i:end])
			i = end - 1
		case js && c == '/' && i+1 < len(buf) && buf[i+1] == '/':
			end := len(buf)
			if k := bytes.IndexByte(buf[i:], '\n'); k >= 0 {
				end = i + k
			}
			blank(buf[i:end])
			i = end - 1
		}
	}
	return buf
}

// closeQuote returns the index of the quote closing the literal at i, or
// the end of the line for an unterminated one.
func closeQuote(buf []byte, i int) int {
	q := buf[i]
	for j := i + 1; j < len(buf); j++ {
		switch buf[j] {
		case '\\':
			j++
		case q:
			return j
		case '\n':
			if q != '`' {
				return j
			}
		}
	}
	return len(buf)
}

func blank(b []byte) {
	for i := range b {
		if b[i] != '\n' {
			b[i] = ' '
		}
	}
}
