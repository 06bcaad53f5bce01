package liquid

import (
	"liquidlint/internal/token"
)

// Expr is the parsed expression carried by one token. At most one of
// Assign, Cond, Loop and Paginate is set; Chain is set for outputs, echo
// and assign.
type Expr struct {
	Chain    *Chain
	Assign   *Assign
	Cond     *Condition
	Loop     *Loop
	Paginate *Paginate
}

// ParseToken parses the expression of an output or an expression-bearing
// tag. ok is false for tokens that carry no expression.
func ParseToken(tok token.Token) (e Expr, ok bool) {
	switch tok.Kind {
	case token.Output:
		return Expr{Chain: ParseChain(tok.Markup, tok.MarkupSpan)}, true
	case token.TagOpen:
	default:
		return Expr{}, false
	}
	switch tok.Name {
	case "echo":
		return Expr{Chain: ParseChain(tok.Markup, tok.MarkupSpan)}, true
	case "assign":
		a := ParseAssign(tok.Markup, tok.MarkupSpan)
		return Expr{Assign: &a, Chain: a.Value}, true
	case "if", "unless", "elsif", "case", "when":
		c := ParseCondition(tok.Markup, tok.MarkupSpan)
		return Expr{Cond: &c}, true
	case "for", "tablerow":
		l := ParseLoop(tok.Markup, tok.MarkupSpan)
		return Expr{Loop: &l}, true
	case "paginate":
		pg, ok := ParsePaginate(tok.Markup, tok.MarkupSpan)
		if !ok {
			return Expr{}, false
		}
		return Expr{Paginate: &pg}, true
	}
	return Expr{}, false
}

// Refs returns every variable path read by the expression.
func (e Expr) Refs() []Value {
	switch {
	case e.Chain != nil:
		return e.Chain.Refs()
	case e.Cond != nil:
		return e.Cond.Refs()
	case e.Loop != nil:
		return e.Loop.Refs()
	case e.Paginate != nil:
		var out []Value
		for _, v := range []Value{e.Paginate.Collection, e.Paginate.PageSize} {
			if v.Kind == ValPath {
				out = append(out, v)
			}
			out = append(out, v.Refs...)
		}
		return out
	}
	return nil
}
