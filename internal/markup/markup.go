// Package markup locates HTML constructs in a template: start tags with
// the byte offsets of their attribute values and the raw-text bodies of
// <style> and <script> elements.
package markup

import (
	"bytes"

	"golang.org/x/net/html"

	"liquidlint/internal/lexer"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

// Mask returns a copy of the content in which tag and output tokens and
// every fence body are blanked, so HTML scanning only sees markup.
// Offsets stay aligned with the file.
func Mask(u *lexer.Unit) []byte {
	out := make([]byte, len(u.File.Content))
	copy(out, u.File.Content)
	blank := func(sp source.Span) {
		for i := sp.Start; i < sp.End && int(i) < len(out); i++ {
			out[i] = ' '
		}
	}
	for _, tok := range u.Tokens {
		if tok.Kind != token.Literal && !tok.Inline {
			blank(tok.Span)
		}
	}
	for _, reg := range u.Regions {
		blank(reg.Body)
	}
	return out
}

// Attr is one attribute of a start tag. Start and End bound the value in
// the file and are -1 when the attribute has no value.
type Attr struct {
	Name       string
	Start, End int
}

// HasValue reports whether the attribute was written with '='.
func (a Attr) HasValue() bool { return a.Start >= 0 }

// Tag is a start or self-closing tag.
type Tag struct {
	Name  string
	Start int
	Attrs []Attr
}

// Attr returns the attribute called name.
func (t Tag) Attr(name string) (Attr, bool) {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// Body is the raw text of a <style> or <script> element.
type Body struct {
	Element    string
	Start, End int
	Open       Tag
}

// Document is what Scan found.
type Document struct {
	Tags   []Tag
	Bodies []Body
}

// Scan tokenizes masked content. Offsets are recovered from the length of
// each raw token, so they match the file byte for byte.
func Scan(masked []byte) Document {
	var doc Document
	z := html.NewTokenizer(bytes.NewReader(masked))
	off := 0
	var open Tag
	inRaw := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return doc
		}
		n := len(z.Raw())
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			t := Tag{Name: string(name), Start: off, Attrs: Attrs(masked[off:off+n], off)}
			doc.Tags = append(doc.Tags, t)
			open = t
			inRaw = tt == html.StartTagToken && (t.Name == "style" || t.Name == "script")
		case html.TextToken:
			if inRaw {
				doc.Bodies = append(doc.Bodies, Body{Element: open.Name, Start: off, End: off + n, Open: open})
			}
			inRaw = false
		default:
			inRaw = false
		}
		off += n
	}
}

// Attrs lists the attributes of a raw start tag that begins at file
// offset base. html.Tokenizer decodes attribute values and drops their
// positions, so the tag is re-read here byte by byte.
func Attrs(raw []byte, base int) []Attr {
	var out []Attr
	i := 1
	for i < len(raw) && !isSpace(raw[i]) && raw[i] != '>' && raw[i] != '/' {
		i++
	}
	for i < len(raw) {
		for i < len(raw) && (isSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= len(raw) || raw[i] == '>' {
			break
		}
		ns := i
		for i < len(raw) && !isSpace(raw[i]) && raw[i] != '=' && raw[i] != '>' && raw[i] != '/' {
			i++
		}
		a := Attr{Name: string(bytes.ToLower(raw[ns:i])), Start: -1, End: -1}
		j := i
		for j < len(raw) && isSpace(raw[j]) {
			j++
		}
		if j >= len(raw) || raw[j] != '=' {
			out = append(out, a)
			continue
		}
		j++
		for j < len(raw) && isSpace(raw[j]) {
			j++
		}
		vs, ve := j, j
		if j < len(raw) && (raw[j] == '"' || raw[j] == '\'') {
			q := raw[j]
			vs = j + 1
			ve = len(raw)
			if k := bytes.IndexByte(raw[vs:], q); k >= 0 {
				ve = vs + k
			}
			i = ve + 1
		} else {
			for ve < len(raw) && !isSpace(raw[ve]) && raw[ve] != '>' {
				ve++
			}
			i = ve
		}
		a.Start, a.End = base+vs, base+ve
		out = append(out, a)
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
