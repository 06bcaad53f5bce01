package charsafe

import "liquidlint/internal/markup"

// cssBlock is CSS found in markup: a <style> body or a style attribute.
type cssBlock struct {
	start, end int
	inline     bool
}

// scanHTML collects CSS locations and the spans of URL-valued attributes.
func (v *validator) scanHTML() {
	doc := markup.Scan(v.masked)
	for _, t := range doc.Tags {
		for _, a := range t.Attrs {
			if !a.HasValue() {
				continue
			}
			switch {
			case a.Name == "style":
				v.htmlCSS = append(v.htmlCSS, cssBlock{start: a.Start, end: a.End, inline: true})
			case v.reg.URLAttribute(a.Name):
				v.urls = append(v.urls, v.span(a.Start, a.End))
			}
		}
	}
	for _, b := range doc.Bodies {
		if b.Element == "style" {
			v.htmlCSS = append(v.htmlCSS, cssBlock{start: b.Start, end: b.End})
		}
	}
}
