package liquid

import (
	"liquidlint/internal/source"
)

// Assign is "name = chain".
type Assign struct {
	Name     string
	NameSpan source.Span
	Value    *Chain
	Problems []Problem
}

// ParseAssign parses the markup of an assign tag.
func ParseAssign(markup string, span source.Span) Assign {
	p := newParser(markup, span)
	var a Assign
	name, ok := p.peek()
	if !ok || name.Kind != TIdent {
		a.Problems = append(a.Problems, Problem{Span: span, Msg: "assign needs a variable name"})
		return a
	}
	p.pos++
	a.Name = name.Text
	a.NameSpan = p.span(name.Off, name.End)
	if !p.is(TAssign) {
		a.Problems = append(a.Problems, Problem{Span: a.NameSpan, Msg: "assign needs '=' after the variable name"})
		return a
	}
	eq := p.toks[p.pos]
	p.pos++
	a.Value = p.chain()
	if a.Value.Base.Kind == ValInvalid && len(a.Value.Filters) == 0 {
		p.problem(eq.Off, eq.End, "assign has no value")
		a.Value.Problems = p.problems
	}
	p.trailing(a.Value)
	return a
}

// ParseName reads the leading variable name of capture, increment and
// decrement markup. Quoted names are accepted.
func ParseName(markup string, span source.Span) (string, source.Span, bool) {
	toks := Lex(markup)
	if len(toks) == 0 {
		return "", source.Span{}, false
	}
	t := toks[0]
	switch t.Kind {
	case TIdent:
		return t.Text, span.Sub(t.Off, t.End), true
	case TString:
		return unquote(t.Text), span.Sub(t.Off, t.End), !t.Open
	}
	return "", source.Span{}, false
}

// Loop is the header of a for or tablerow tag.
type Loop struct {
	Var        string
	VarSpan    source.Span
	Collection Value
	Params     []Kwarg // limit, offset, cols
	Reversed   bool
	End        source.Span // пустой спан в конце разметки, точка вставки параметров
	Problems   []Problem
}

// Param returns the loop parameter named key.
func (l Loop) Param(key string) (Kwarg, bool) {
	for _, kw := range l.Params {
		if kw.Key == key {
			return kw, true
		}
	}
	return Kwarg{}, false
}

// Refs returns variable paths read by the loop header.
func (l Loop) Refs() []Value {
	var out []Value
	add := func(v Value) {
		if v.Kind == ValPath {
			out = append(out, v)
		}
		out = append(out, v.Refs...)
	}
	add(l.Collection)
	for _, kw := range l.Params {
		add(kw.Value)
	}
	return out
}

// ParseLoop parses "item in collection [reversed] [limit: n] [offset: n]".
func ParseLoop(markup string, span source.Span) Loop {
	p := newParser(markup, span)
	l := Loop{End: source.Span{File: span.File, Start: span.End, End: span.End}}
	name, ok := p.peek()
	if !ok || name.Kind != TIdent {
		l.Problems = append(l.Problems, Problem{Span: span, Msg: "loop needs a variable name"})
		return l
	}
	p.pos++
	l.Var = name.Text
	l.VarSpan = p.span(name.Off, name.End)
	in, ok := p.peek()
	if !ok || in.Kind != TIdent || in.Text != "in" {
		l.Problems = append(l.Problems, Problem{Span: l.VarSpan, Msg: "loop needs 'in' after the variable name"})
		return l
	}
	p.pos++
	v, ok := p.value()
	if !ok {
		l.Problems = append(l.Problems, Problem{Span: p.span(in.Off, in.End), Msg: "loop needs a collection"})
		return l
	}
	l.Collection = v

	for {
		t, ok := p.peek()
		if !ok {
			break
		}
		switch {
		case t.Kind == TIdent && t.Text == "reversed":
			p.pos++
			l.Reversed = true
			continue
		case t.Kind == TComma:
			p.pos++
			continue
		case t.Kind == TIdent:
			colon, ok := p.peekAt(1)
			if ok && colon.Kind == TColon {
				p.pos += 2
				val, ok := p.value()
				if !ok {
					p.problem(t.Off, colon.End, "missing value for '"+t.Text+"'")
					continue
				}
				l.Params = append(l.Params, Kwarg{Key: t.Text, KeySpan: p.span(t.Off, t.End), Value: val})
				continue
			}
		}
		p.problem(t.Off, t.End, "unexpected '"+t.Text+"' in loop header")
		p.pos++
	}
	l.Problems = append(l.Problems, p.problems...)
	return l
}

// Paginate is "collection by n".
type Paginate struct {
	Collection Value
	PageSize   Value
}

// ParsePaginate parses the markup of a paginate tag.
func ParsePaginate(markup string, span source.Span) (Paginate, bool) {
	p := newParser(markup, span)
	var pg Paginate
	v, ok := p.value()
	if !ok {
		return pg, false
	}
	pg.Collection = v
	if by, ok := p.peek(); ok && by.Kind == TIdent && by.Text == "by" {
		p.pos++
		pg.PageSize, _ = p.value()
	}
	return pg, true
}
