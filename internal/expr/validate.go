// Package expr checks object references, filters and condition operators
// inside outputs and tag markup against the registry.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/liquid"
	"liquidlint/internal/registry"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

type validator struct {
	reg  *registry.Registry
	r    diag.Reporter
	defs map[string]source.Span // первое определение переменной в файле
	seen map[string]bool        // корни, о которых уже сообщили
}

// Validate reports expression defects of u to r.
func Validate(u *lexer.Unit, reg *registry.Registry, r diag.Reporter) {
	v := &validator{
		reg:  reg,
		r:    r,
		defs: Definitions(u),
		seen: make(map[string]bool),
	}
	for _, tok := range u.Tokens {
		e, ok := liquid.ParseToken(tok)
		if !ok {
			continue
		}
		v.expr(e)
	}
}

// Definitions returns the first place each variable of u is defined.
func Definitions(u *lexer.Unit) map[string]source.Span {
	defs := make(map[string]source.Span)
	define := func(name string, sp source.Span) {
		if name == "" {
			return
		}
		if _, ok := defs[name]; !ok {
			defs[name] = sp
		}
	}
	for _, tok := range u.Tokens {
		if tok.Kind != token.TagOpen {
			continue
		}
		switch tok.Name {
		case "assign":
			a := liquid.ParseAssign(tok.Markup, tok.MarkupSpan)
			define(a.Name, a.NameSpan)
		case "capture", "increment", "decrement":
			if name, sp, ok := liquid.ParseName(tok.Markup, tok.MarkupSpan); ok {
				define(name, sp)
			}
		case "for", "tablerow":
			l := liquid.ParseLoop(tok.Markup, tok.MarkupSpan)
			define(l.Var, l.VarSpan)
		case "paginate":
			define("paginate", tok.Span)
		case "form":
			define("form", tok.Span)
		}
	}
	return defs
}

func (v *validator) expr(e liquid.Expr) {
	if e.Assign != nil {
		for _, p := range e.Assign.Problems {
			v.malformed(p)
		}
	}
	if e.Chain != nil {
		v.chain(e.Chain)
	}
	if e.Cond != nil {
		v.condition(e.Cond)
	}
	if e.Loop != nil {
		for _, p := range e.Loop.Problems {
			v.malformed(p)
		}
	}
	for _, ref := range e.Refs() {
		v.ref(ref)
	}
}

func (v *validator) malformed(p liquid.Problem) {
	diag.ReportError(v.r, diag.ExprMalformed, p.Span, "malformed expression: "+p.Msg).Emit()
}

func (v *validator) chain(c *liquid.Chain) {
	for _, p := range c.Problems {
		if p.Msg == "empty filter name" {
			diag.ReportError(v.r, diag.ExprMalformed, p.Span, "malformed filter chain: empty filter name").
				WithSuggestion("remove the extra '|'").
				Emit()
			continue
		}
		v.malformed(p)
	}
	if c.Trailing != "" && isASCII(c.Trailing) {
		diag.ReportError(v.r, diag.ExprMalformed, c.TrailingSpan,
			fmt.Sprintf("malformed expression: unexpected '%s'", c.Trailing)).Emit()
	}
	for _, f := range c.Filters {
		v.filter(f)
	}
}

func (v *validator) filter(f liquid.Filter) {
	spec, known := v.reg.Filter(f.Name)
	if !known {
		if text, ok := v.reg.Hallucinated(f.Name); ok {
			diag.ReportCritical(v.r, diag.ExprHallucinatedFilter, f.NameSpan,
				fmt.Sprintf("HALLUCINATED FILTER: '%s' %s", f.Name, text)).
				WithSuggestion(text).
				Emit()
			return
		}
		b := diag.ReportError(v.r, diag.ExprUnknownFilter, f.NameSpan, fmt.Sprintf("unknown filter '%s'", f.Name))
		if s, ok := v.reg.SuggestFilter(f.Name); ok {
			b.WithSuggestion(fmt.Sprintf("did you mean '%s'?", s))
		}
		b.Emit()
		return
	}

	if text, ok := v.reg.Deprecated(f.Name); ok {
		b := diag.ReportWarning(v.r, diag.ExprDeprecatedFilter, f.NameSpan,
			fmt.Sprintf("filter '%s' is deprecated: %s", f.Name, text)).
			WithSuggestion(text)
		if to, edits, ok := v.rename(f); ok {
			b.WithFix(fmt.Sprintf("replace with '%s'", to), edits...)
		}
		b.Emit()
	}

	n := len(f.Args)
	if n < spec.Min || (spec.Max >= 0 && n > spec.Max) {
		diag.ReportError(v.r, diag.ExprFilterArity, f.Span,
			fmt.Sprintf("filter '%s' expects %s, got %d", f.Name, arityText(spec), n)).Emit()
	}
	if len(f.Kwargs) > 0 && !spec.Keywords {
		diag.ReportError(v.r, diag.ExprFilterArity, f.Kwargs[0].KeySpan,
			fmt.Sprintf("filter '%s' does not take keyword arguments", f.Name)).Emit()
	}
	for i, a := range f.Args {
		want := spec.ArgAt(i)
		if bad := mismatched(want, a); bad {
			diag.ReportError(v.r, diag.ExprFilterArgType, a.Span,
				fmt.Sprintf("argument %d of '%s' must be a %s, got %s", i+1, f.Name, want, a.Kind)).Emit()
		}
	}
}

// rename builds the edits that swap a deprecated filter for its drop-in
// replacement. A single 'WxH' size argument becomes width:/height: when the
// replacement takes keywords; any other positional argument blocks the fix.
func (v *validator) rename(f liquid.Filter) (string, []diag.FixEdit, bool) {
	to, ok := v.reg.Rename(f.Name)
	if !ok {
		return "", nil, false
	}
	edits := []diag.FixEdit{diag.Replace(f.NameSpan, f.Name, to)}
	switch len(f.Args) {
	case 0:
		return to, edits, true
	case 1:
		spec, known := v.reg.Filter(to)
		a := f.Args[0]
		if !known || !spec.Keywords || a.Kind != liquid.ValString {
			return "", nil, false
		}
		kw, ok := sizeKwargs(a.Path)
		if !ok {
			return "", nil, false
		}
		return to, append(edits, diag.Replace(a.Span, a.Text, kw)), true
	}
	return "", nil, false
}

// sizeKwargs turns '300x', 'x200' or '300x200' into keyword arguments.
func sizeKwargs(size string) (string, bool) {
	w, h, ok := strings.Cut(size, "x")
	if !ok || (w == "" && h == "") {
		return "", false
	}
	var parts []string
	for _, p := range []struct{ key, val string }{{"width", w}, {"height", h}} {
		if p.val == "" {
			continue
		}
		if n, err := strconv.Atoi(p.val); err != nil || n <= 0 {
			return "", false
		}
		parts = append(parts, p.key+": "+p.val)
	}
	return strings.Join(parts, ", "), true
}

func mismatched(want registry.ArgType, a liquid.Value) bool {
	switch want {
	case registry.ArgNumber:
		if a.Kind == liquid.ValString {
			_, err := strconv.ParseFloat(a.Path, 64)
			return err != nil
		}
		return a.Kind == liquid.ValRange
	case registry.ArgString:
		return a.Kind == liquid.ValRange
	}
	return false
}

func arityText(spec registry.FilterSpec) string {
	switch {
	case spec.Max < 0:
		return fmt.Sprintf("at least %d argument(s)", spec.Min)
	case spec.Min == spec.Max:
		return fmt.Sprintf("%d argument(s)", spec.Min)
	default:
		return fmt.Sprintf("%d to %d arguments", spec.Min, spec.Max)
	}
}

func (v *validator) condition(c *liquid.Condition) {
	for _, p := range c.Problems {
		v.malformed(p)
	}
	for _, op := range c.Ops {
		msg := fmt.Sprintf("C-style operator '%s' in condition", op.Text)
		switch op.Kind {
		case liquid.OpAndAnd, liquid.OpOrOr, liquid.OpAssign:
			repl := op.Kind.Replacement()
			diag.ReportError(v.r, diag.ExprCStyleOperator, op.Span, msg).
				WithSuggestion(fmt.Sprintf("use '%s'", repl)).
				WithFix(fmt.Sprintf("replace '%s' with '%s'", op.Text, repl), diag.Replace(op.Span, op.Text, repl)).
				Emit()
		case liquid.OpBang:
			diag.ReportError(v.r, diag.ExprCStyleOperator, op.Span, msg).
				WithSuggestion("use 'x == false' or {% unless %}").
				Emit()
		case liquid.OpTernary:
			diag.ReportError(v.r, diag.ExprCStyleOperator, op.Span, "ternary operator in condition").
				WithSuggestion("use {% if %}...{% else %}...{% endif %}").
				Emit()
		}
	}
}

func (v *validator) ref(ref liquid.Value) {
	root := ref.Root()
	if root == "" || v.reg.IsObject(root) {
		return
	}
	if def, ok := v.defs[root]; ok {
		if def.Start <= ref.Span.Start {
			return
		}
		key := "before:" + root
		if v.seen[key] {
			return
		}
		v.seen[key] = true
		diag.ReportError(v.r, diag.ExprUsedBeforeAssign, ref.Span,
			fmt.Sprintf("'%s' is used before it is assigned", root)).
			WithNote(def, "assigned here").
			Emit()
		return
	}
	if v.seen[root] {
		return
	}
	v.seen[root] = true
	if v.reg.IsSuspicious(root) {
		diag.ReportInfo(v.r, diag.ExprSuspiciousObject, ref.Span,
			fmt.Sprintf("'%s' is not a global object", root)).
			WithSuggestion("check the object name; it may be a parameter passed by the caller").
			Emit()
		return
	}
	diag.ReportWarning(v.r, diag.ExprUnknownObject, ref.Span, fmt.Sprintf("unknown object '%s'", root)).
		WithSuggestion("assign it first or pass it as a render parameter").
		Emit()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
