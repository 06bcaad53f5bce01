package liquid

import (
	"strings"

	"liquidlint/internal/source"
)

type ValueKind uint8

const (
	ValInvalid ValueKind = iota
	ValPath
	ValString
	ValNumber
	ValLiteral // true, false, nil, null, empty, blank
	ValRange
)

func (k ValueKind) String() string {
	switch k {
	case ValPath:
		return "variable"
	case ValString:
		return "string"
	case ValNumber:
		return "number"
	case ValLiteral:
		return "literal"
	case ValRange:
		return "range"
	default:
		return "invalid"
	}
}

// Value is one operand: a variable path, a literal or a (a..b) range.
type Value struct {
	Kind ValueKind
	Text string // как в исходнике
	Path string // нормализованный путь: collections['all'] -> collections.all
	Span source.Span
	Refs []Value // переменные внутри [] и границ диапазона
}

// Root returns the first segment of a variable path.
func (v Value) Root() string {
	if v.Kind != ValPath {
		return ""
	}
	if i := strings.IndexAny(v.Path, ".["); i >= 0 {
		return v.Path[:i]
	}
	return v.Path
}

// Last returns the final dotted segment of a variable path.
func (v Value) Last() string {
	if v.Kind != ValPath {
		return ""
	}
	if i := strings.LastIndexByte(v.Path, '.'); i >= 0 {
		return v.Path[i+1:]
	}
	return v.Path
}

// Kwarg is a key: value filter argument.
type Kwarg struct {
	Key     string
	KeySpan source.Span
	Value   Value
}

// Filter is one "| name: args" step of a chain.
type Filter struct {
	Name     string
	NameSpan source.Span
	Span     source.Span // от '|' до конца аргументов
	Args     []Value
	Kwargs   []Kwarg
}

// Kwarg returns the keyword argument named key.
func (f Filter) Kwarg(key string) (Kwarg, bool) {
	for _, kw := range f.Kwargs {
		if kw.Key == key {
			return kw, true
		}
	}
	return Kwarg{}, false
}

// Problem is a syntax defect found while parsing.
type Problem struct {
	Span source.Span
	Msg  string
}

// Chain is "base | filter: args | ...".
type Chain struct {
	Base     Value
	Filters  []Filter
	Span     source.Span
	Problems []Problem
	Trailing     string // первый токен, который не удалось разобрать
	TrailingSpan source.Span
}

// Refs returns every variable path the chain reads, base first.
func (c *Chain) Refs() []Value {
	var out []Value
	add := func(v Value) {
		if v.Kind == ValPath {
			out = append(out, v)
		}
		out = append(out, v.Refs...)
	}
	add(c.Base)
	for _, f := range c.Filters {
		for _, a := range f.Args {
			add(a)
		}
		for _, kw := range f.Kwargs {
			add(kw.Value)
		}
	}
	return out
}

// HasFilter reports whether any step of the chain applies name.
func (c *Chain) HasFilter(name string) bool {
	for _, f := range c.Filters {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ParseChain parses markup located at span in its file.
func ParseChain(markup string, span source.Span) *Chain {
	p := newParser(markup, span)
	c := p.chain()
	p.trailing(c)
	return c
}

type parser struct {
	src      string
	toks     []Tok
	pos      int
	at       source.Span
	problems []Problem
}

func newParser(markup string, span source.Span) *parser {
	return &parser{src: markup, toks: Lex(markup), at: span}
}

func (p *parser) peek() (Tok, bool) {
	if p.pos >= len(p.toks) {
		return Tok{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) peekAt(n int) (Tok, bool) {
	if p.pos+n >= len(p.toks) {
		return Tok{}, false
	}
	return p.toks[p.pos+n], true
}

func (p *parser) is(kind TokKind) bool {
	t, ok := p.peek()
	return ok && t.Kind == kind
}

func (p *parser) span(off, end int) source.Span { return p.at.Sub(off, end) }

func (p *parser) problem(off, end int, msg string) {
	p.problems = append(p.problems, Problem{Span: p.span(off, end), Msg: msg})
}

func (p *parser) chain() *Chain {
	c := &Chain{}
	start := 0
	if t, ok := p.peek(); ok {
		start = t.Off
	}
	end := start
	if v, ok := p.value(); ok {
		c.Base = v
		end = p.rel(v.Span.End)
	}
	for p.is(TPipe) {
		pipe := p.toks[p.pos]
		p.pos++
		name, ok := p.peek()
		if !ok || name.Kind != TIdent {
			p.problem(pipe.Off, pipe.End, "empty filter name")
			end = pipe.End
			continue
		}
		p.pos++
		f := Filter{Name: name.Text, NameSpan: p.span(name.Off, name.End)}
		fend := name.End
		if p.is(TColon) {
			colon := p.toks[p.pos]
			p.pos++
			fend = colon.End
			fend = p.args(&f, fend)
		}
		f.Span = p.span(pipe.Off, fend)
		c.Filters = append(c.Filters, f)
		end = fend
	}
	c.Span = p.span(start, end)
	c.Problems = p.problems
	return c
}

// args parses "a, b, key: value" after a filter colon.
func (p *parser) args(f *Filter, end int) int {
	for {
		if key, ok := p.peek(); ok && key.Kind == TIdent {
			if colon, ok := p.peekAt(1); ok && colon.Kind == TColon {
				p.pos += 2
				v, ok := p.value()
				if !ok {
					p.problem(key.Off, colon.End, "missing value for '"+key.Text+"'")
					return colon.End
				}
				f.Kwargs = append(f.Kwargs, Kwarg{Key: key.Text, KeySpan: p.span(key.Off, key.End), Value: v})
				end = p.rel(v.Span.End)
				if !p.is(TComma) {
					return end
				}
				p.pos++
				continue
			}
		}
		v, ok := p.value()
		if !ok {
			p.problem(end-1, end, "missing filter argument")
			return end
		}
		f.Args = append(f.Args, v)
		end = p.rel(v.Span.End)
		if !p.is(TComma) {
			return end
		}
		p.pos++
	}
}

func (p *parser) trailing(c *Chain) {
	if t, ok := p.peek(); ok {
		c.Trailing = t.Text
		c.TrailingSpan = p.span(t.Off, t.End)
	}
}

func (p *parser) rel(abs uint32) int { return int(abs - p.at.Start) }

var literalWords = map[string]bool{
	"true": true, "false": true, "nil": true, "null": true, "empty": true, "blank": true,
}

// value parses a single operand.
func (p *parser) value() (Value, bool) {
	t, ok := p.peek()
	if !ok {
		return Value{}, false
	}
	switch t.Kind {
	case TString:
		p.pos++
		if t.Open {
			p.problem(t.Off, t.End, "unterminated string")
		}
		return Value{Kind: ValString, Text: t.Text, Path: unquote(t.Text), Span: p.span(t.Off, t.End)}, true
	case TNumber:
		p.pos++
		return Value{Kind: ValNumber, Text: t.Text, Path: t.Text, Span: p.span(t.Off, t.End)}, true
	case TLParen:
		return p.rangeValue()
	case TIdent:
		if literalWords[t.Text] {
			p.pos++
			return Value{Kind: ValLiteral, Text: t.Text, Path: t.Text, Span: p.span(t.Off, t.End)}, true
		}
		return p.path(), true
	case TLBracket:
		return p.path(), true
	}
	return Value{}, false
}

func (p *parser) rangeValue() (Value, bool) {
	open := p.toks[p.pos]
	p.pos++
	v := Value{Kind: ValRange}
	lo, ok := p.value()
	if !ok || !p.is(TRange) {
		p.problem(open.Off, open.End, "malformed range")
		return Value{}, false
	}
	p.pos++
	hi, ok := p.value()
	if !ok || !p.is(TRParen) {
		p.problem(open.Off, open.End, "malformed range")
		return Value{}, false
	}
	closeTok := p.toks[p.pos]
	p.pos++
	for _, b := range []Value{lo, hi} {
		if b.Kind == ValPath {
			v.Refs = append(v.Refs, b)
		}
		v.Refs = append(v.Refs, b.Refs...)
	}
	v.Span = p.span(open.Off, closeTok.End)
	v.Text = p.src[open.Off:closeTok.End]
	v.Path = v.Text
	return v, true
}

// path parses ident(.ident | [key])*; segments must be adjacent.
func (p *parser) path() Value {
	first := p.toks[p.pos]
	start, end := first.Off, first.Off
	var b strings.Builder
	v := Value{Kind: ValPath}
	if first.Kind == TIdent {
		b.WriteString(first.Text)
		end = first.End
		p.pos++
	}
	for {
		t, ok := p.peek()
		if !ok || t.Off != end {
			break
		}
		if t.Kind == TDot {
			seg, ok := p.peekAt(1)
			if !ok || seg.Off != t.End || (seg.Kind != TIdent && seg.Kind != TNumber) {
				p.problem(t.Off, t.End, "dangling '.' in variable path")
				p.pos++
				end = t.End
				break
			}
			b.WriteString(".")
			b.WriteString(seg.Text)
			end = seg.End
			p.pos += 2
			continue
		}
		if t.Kind != TLBracket {
			break
		}
		p.pos++
		key, ok := p.peek()
		if !ok {
			p.problem(t.Off, t.End, "unclosed '['")
			end = t.End
			break
		}
		switch key.Kind {
		case TString:
			p.pos++
			k := unquote(key.Text)
			if isPlainKey(k) {
				b.WriteString("." + k)
			} else {
				b.WriteString("[" + key.Text + "]")
			}
		case TNumber:
			p.pos++
			b.WriteString("[" + key.Text + "]")
		default:
			inner, ok := p.value()
			if !ok {
				p.problem(t.Off, t.End, "empty '[]' index")
				break
			}
			if inner.Kind == ValPath {
				v.Refs = append(v.Refs, inner)
			}
			v.Refs = append(v.Refs, inner.Refs...)
			b.WriteString("[" + inner.Text + "]")
		}
		rb, ok := p.peek()
		if !ok || rb.Kind != TRBracket {
			p.problem(t.Off, t.End, "unclosed '['")
			end = t.End
			break
		}
		p.pos++
		end = rb.End
	}
	v.Path = b.String()
	v.Span = p.span(start, end)
	v.Text = p.src[start:end]
	return v
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	if len(s) >= 1 && (s[0] == '"' || s[0] == '\'') {
		return s[1:]
	}
	return s
}

func isPlainKey(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}
