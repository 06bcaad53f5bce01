package token

import (
	"strings"

	"liquidlint/internal/source"
)

// Token represents a single template token with its location.
type Token struct {
	Kind       Kind
	Span       source.Span
	Text       string
	Name       string      // имя тега; пусто для Literal и Output
	Markup     string      // аргументы тега или выражение вывода, без пробелов по краям
	MarkupSpan source.Span // положение Markup в файле
	Inline     bool        // строка внутри {% liquid %}
	TrimLeft   bool        // {%- / {{-
	TrimRight  bool        // -%} / -}}
}

// IsTag reports whether the token is a tag of any kind.
func (t Token) IsTag() bool { return t.Kind.IsTag() }

// IsCloser reports whether the token closes a block.
func (t Token) IsCloser() bool {
	return t.Kind == TagClose || t.Kind == FenceEnd
}

// Opener returns the name of the block an end-tag closes ("endif" -> "if").
func (t Token) Opener() string {
	return strings.TrimPrefix(t.Name, "end")
}

// Region is a fenced sub-language block owned by one source unit.
type Region struct {
	Kind       RegionKind
	Tag        string      // тег, открывший регион
	Span       source.Span // от начала открывающего тега до конца закрывающего
	Body       source.Span // содержимое между тегами
	Opener     int         // индекс FenceStart в потоке токенов
	Closer     int         // индекс FenceEnd или -1
	Terminated bool
}

// Isolated reports whether template constructs inside the region are
// emitted verbatim instead of being evaluated.
func (r Region) Isolated() bool {
	return r.Kind == RegionStyle || r.Kind == RegionJavascript
}
