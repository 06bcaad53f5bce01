package liquid

import (
	"liquidlint/internal/source"
)

type OpKind uint8

const (
	OpAndAnd OpKind = iota + 1 // &&
	OpOrOr                     // ||
	OpAssign                   // = вместо ==
	OpBang                     // !x
	OpTernary                  // a ? b : c
)

func (k OpKind) String() string {
	switch k {
	case OpAndAnd:
		return "&&"
	case OpOrOr:
		return "||"
	case OpAssign:
		return "="
	case OpBang:
		return "!"
	case OpTernary:
		return "?:"
	default:
		return "?"
	}
}

// Replacement is the Liquid spelling of a C-style operator. An empty
// result means the operator has no mechanical rewrite.
func (k OpKind) Replacement() string {
	switch k {
	case OpAndAnd:
		return "and"
	case OpOrOr:
		return "or"
	case OpAssign:
		return "=="
	default:
		return ""
	}
}

// CStyleOp is an operator borrowed from C-like languages.
type CStyleOp struct {
	Kind OpKind
	Span source.Span
	Text string
}

// Condition is the parsed markup of if, unless, elsif, case and when.
type Condition struct {
	Operands []Value
	Ops      []CStyleOp
	Problems []Problem
}

// Refs returns every variable path the condition reads.
func (c Condition) Refs() []Value {
	var out []Value
	for _, v := range c.Operands {
		if v.Kind == ValPath {
			out = append(out, v)
		}
		out = append(out, v.Refs...)
	}
	return out
}

// ParseCondition collects operands and C-style operators. Liquid keywords
// (and, or, contains) and comparison operators are skipped.
func ParseCondition(markup string, span source.Span) Condition {
	p := newParser(markup, span)
	var c Condition
	for {
		t, ok := p.peek()
		if !ok {
			break
		}
		switch t.Kind {
		case TIdent:
			if t.Text == "and" || t.Text == "or" || t.Text == "contains" {
				p.pos++
				continue
			}
			v, _ := p.value()
			c.Operands = append(c.Operands, v)
			continue
		case TString, TNumber, TLParen, TLBracket:
			v, ok := p.value()
			if ok {
				c.Operands = append(c.Operands, v)
				continue
			}
			p.pos++
			continue
		case TPipe:
			if next, ok := p.peekAt(1); ok && next.Kind == TPipe && next.Off == t.End {
				c.Ops = append(c.Ops, CStyleOp{Kind: OpOrOr, Span: p.span(t.Off, next.End), Text: "||"})
				p.pos += 2
				continue
			}
			p.problem(t.Off, t.End, "filters are not allowed in conditions")
		case TAmpAmp:
			c.Ops = append(c.Ops, CStyleOp{Kind: OpAndAnd, Span: p.span(t.Off, t.End), Text: t.Text})
		case TAssign:
			c.Ops = append(c.Ops, CStyleOp{Kind: OpAssign, Span: p.span(t.Off, t.End), Text: t.Text})
		case TBang:
			c.Ops = append(c.Ops, CStyleOp{Kind: OpBang, Span: p.span(t.Off, t.End), Text: t.Text})
		case TQuestion:
			c.Ops = append(c.Ops, CStyleOp{Kind: OpTernary, Span: p.span(t.Off, t.End), Text: t.Text})
		}
		p.pos++
	}
	c.Problems = p.problems
	return c
}
