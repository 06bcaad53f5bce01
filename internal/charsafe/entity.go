package charsafe

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"liquidlint/internal/diag"
	"liquidlint/internal/liquid"
	"liquidlint/internal/schema"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

var entityRe = regexp.MustCompile(`&(?:#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[A-Za-z][A-Za-z0-9]{1,31});`)

func (v *validator) entities() {
	for _, tok := range v.u.Tokens {
		if tok.Kind == token.Output || (tok.Kind == token.TagOpen && tok.Name == "echo") {
			v.outputEntities(tok)
		}
		if tok.Kind == token.Output {
			v.unescaped(tok)
		}
	}
	for _, reg := range v.u.RegionsOf(token.RegionSchema) {
		if !reg.Terminated {
			continue
		}
		root, err := schema.Parse(v.content[reg.Body.Start:reg.Body.End], reg.Body)
		if err != nil {
			continue
		}
		v.jsonEntities(root)
	}
}

func (v *validator) outputEntities(tok token.Token) {
	base := int(tok.MarkupSpan.Start)
	for _, m := range entityRe.FindAllStringIndex(tok.Markup, -1) {
		ent := tok.Markup[m[0]:m[1]]
		decoded := html.UnescapeString(ent)
		if decoded == ent {
			continue
		}
		sp := v.span(base+m[0], base+m[1])
		b := diag.ReportCritical(v.r, diag.CharEntityInOutput, sp,
			fmt.Sprintf("HTML entity '%s' inside output is printed literally", ent))
		if decoded == "'" || decoded == `"` {
			b.WithSuggestion(fmt.Sprintf("use the character %s with the other quote style", decoded))
		} else {
			b.WithFix(fmt.Sprintf("replace with '%s'", decoded), diag.Replace(sp, ent, decoded))
		}
		b.Emit()
	}
}

func (v *validator) jsonEntities(n *schema.Node) {
	switch n.Kind {
	case schema.String:
		raw := v.u.Text(n.Span)
		for _, m := range entityRe.FindAllStringIndex(raw, -1) {
			ent := raw[m[0]:m[1]]
			if html.UnescapeString(ent) == ent {
				continue
			}
			at := int(n.Span.Start)
			diag.ReportCritical(v.r, diag.CharEntityInJSON, v.span(at+m[0], at+m[1]),
				fmt.Sprintf("HTML entity '%s' in a schema string is shown literally in the editor", ent)).
				WithSuggestion(fmt.Sprintf("write the character '%s' directly", html.UnescapeString(ent))).
				Emit()
		}
	case schema.Object:
		for _, f := range n.Fields {
			v.jsonEntities(f.Value)
		}
	case schema.Array:
		for _, item := range n.Items {
			v.jsonEntities(item)
		}
	}
}

// unescaped flags output of merchant- or customer-controlled values that
// passes through no escaping filter. Values printed into CSS are left
// alone, except inside a content: declaration where they become page text.
func (v *validator) unescaped(tok token.Token) {
	c := liquid.ParseChain(tok.Markup, tok.MarkupSpan)
	if len(c.Problems) > 0 || c.Trailing != "" || c.Base.Kind != liquid.ValPath {
		return
	}
	path := c.Base.Path
	if !v.reg.UserControlled(path) || v.reg.SafeProperty(c.Base.Last()) {
		return
	}
	for _, f := range c.Filters {
		if v.reg.EscapingFilter(f.Name) {
			return
		}
	}
	if v.inURL(tok.Span) {
		return
	}
	if css, content := v.cssContext(tok.Span); css && !content {
		return
	}
	diag.ReportError(v.r, diag.CharUnescapedOutput, tok.MarkupSpan,
		fmt.Sprintf("'%s' is user-controlled and printed without escaping", strings.TrimSpace(path))).
		WithSuggestion("add '| escape'").
		WithFix("append '| escape'", diag.Insert(tok.MarkupSpan.File, tok.MarkupSpan.End, " | escape")).
		Emit()
}

func (v *validator) inURL(sp source.Span) bool {
	for _, u := range v.urls {
		if sp.Within(u) {
			return true
		}
	}
	return false
}
