// Package perf applies render-cost heuristics: unbounded catalog loops,
// catalog-wide counts, long filter and append chains, oversized {% liquid %}
// blocks, deep nesting and oversized image requests.
package perf

import (
	"fmt"
	"strconv"
	"strings"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/liquid"
	"liquidlint/internal/registry"
	"liquidlint/internal/source"
	"liquidlint/internal/tags"
	"liquidlint/internal/token"
)

const (
	DefaultFilterChain        = 10
	DefaultConditionalNesting = 5
	DefaultLoopNesting        = 4
	DefaultImageWidth         = 3000
	DefaultConcatChain        = 8
	DefaultLiquidBlockLines   = 50
)

// Options holds the thresholds; zero values fall back to the defaults.
type Options struct {
	FilterChain        int
	ConditionalNesting int
	LoopNesting        int
	ImageWidth         int
	ConcatChain        int
	LiquidBlockLines   int
}

func (o Options) withDefaults() Options {
	if o.FilterChain <= 0 {
		o.FilterChain = DefaultFilterChain
	}
	if o.ConditionalNesting <= 0 {
		o.ConditionalNesting = DefaultConditionalNesting
	}
	if o.LoopNesting <= 0 {
		o.LoopNesting = DefaultLoopNesting
	}
	if o.ImageWidth <= 0 {
		o.ImageWidth = DefaultImageWidth
	}
	if o.ConcatChain <= 0 {
		o.ConcatChain = DefaultConcatChain
	}
	if o.LiquidBlockLines <= 0 {
		o.LiquidBlockLines = DefaultLiquidBlockLines
	}
	return o
}

type validator struct {
	u    *lexer.Unit
	st   *tags.Structure
	reg  *registry.Registry
	opts Options
	r    diag.Reporter
}

// Validate runs the heuristics over u using the nesting data in st.
func Validate(u *lexer.Unit, st *tags.Structure, reg *registry.Registry, opts Options, r diag.Reporter) {
	v := &validator{u: u, st: st, reg: reg, opts: opts.withDefaults(), r: r}
	for i, tok := range u.Tokens {
		if tok.Kind == token.TagOpen && tok.Name == "liquid" && !tok.Inline {
			v.liquidBlock(tok)
		}
		e, ok := liquid.ParseToken(tok)
		if !ok {
			continue
		}
		if e.Loop != nil {
			v.loop(i, tok, e.Loop)
		}
		if e.Chain != nil {
			v.chain(e.Chain)
		}
		if e.Assign != nil {
			v.concat(tok, e.Assign)
		}
		v.counts(e)
	}
	v.nesting()
}

// paginated reports whether token i sits inside a paginate block.
func (v *validator) paginated(i int) bool {
	for _, b := range v.st.Blocks {
		if b.Name == "paginate" && b.Open < i && (b.Close < 0 || i < b.Close) {
			return true
		}
	}
	return false
}

func (v *validator) loop(i int, tok token.Token, l *liquid.Loop) {
	coll := l.Collection
	if coll.Kind != liquid.ValPath || !v.reg.CatalogCollection(coll.Path) {
		return
	}
	if _, ok := l.Param("limit"); ok || v.paginated(i) {
		return
	}
	limit := v.reg.DefaultLimit()
	ins := fmt.Sprintf(" limit: %d", limit)
	diag.ReportCritical(v.r, diag.PerfUnboundedLoop, coll.Span,
		fmt.Sprintf("{%% %s %%} over '%s' has no limit and iterates the whole catalog", tok.Name, coll.Path)).
		WithSuggestion(fmt.Sprintf("add 'limit: %d' or wrap the loop in {%% paginate %%}", limit)).
		WithFix(fmt.Sprintf("add 'limit: %d'", limit), diag.Insert(l.End.File, l.End.Start, ins)).
		Emit()
}

func (v *validator) counts(e liquid.Expr) {
	for _, ref := range e.Refs() {
		if v.reg.CatalogCount(ref.Path) {
			v.count(ref.Span, ref.Path)
		}
	}
	c := e.Chain
	if c == nil || c.Base.Kind != liquid.ValPath || len(c.Filters) == 0 {
		return
	}
	if c.Filters[0].Name == "size" && v.reg.CatalogCollection(c.Base.Path) {
		v.count(c.Base.Span.Cover(c.Filters[0].Span), c.Base.Path+" | size")
	}
}

func (v *validator) count(sp source.Span, what string) {
	diag.ReportCritical(v.r, diag.PerfCatalogCount, sp,
		fmt.Sprintf("'%s' counts the whole catalog on every render", what)).
		WithSuggestion("use a collection-scoped count such as collection.products_count").
		Emit()
}

func (v *validator) chain(c *liquid.Chain) {
	if n := len(c.Filters); n >= v.opts.FilterChain {
		diag.ReportError(v.r, diag.PerfFilterChain, c.Span,
			fmt.Sprintf("filter chain of %d filters (limit %d)", n, v.opts.FilterChain)).
			WithSuggestion("split the chain with {% assign %} or precompute the value").
			Emit()
	}
	for _, f := range c.Filters {
		if v.reg.WidthFilter(f.Name) {
			v.width(f)
		}
	}
}

// concat flags strings assembled from many appends in one assign.
func (v *validator) concat(tok token.Token, a *liquid.Assign) {
	if a.Value == nil || v.reg.ConcatExempt(tok.Markup) {
		return
	}
	n := 0
	for _, f := range a.Value.Filters {
		if f.Name == "append" {
			n++
		}
	}
	if n < v.opts.ConcatChain {
		return
	}
	diag.ReportError(v.r, diag.PerfConcatChain, a.Value.Span,
		fmt.Sprintf("'%s' is built from %d appends (limit %d)", a.Name, n, v.opts.ConcatChain)).
		WithSuggestion("Use {% capture %} tag instead").
		Emit()
}

// liquidBlock flags {% liquid %} blocks past the line limit.
func (v *validator) liquidBlock(tok token.Token) {
	body := strings.TrimSpace(tok.Markup)
	if body == "" {
		return
	}
	lines := strings.Count(body, "\n") + 1
	if lines < v.opts.LiquidBlockLines {
		return
	}
	diag.ReportError(v.r, diag.PerfLiquidBlockLength, tok.Span,
		fmt.Sprintf("{%% liquid %%} block of %d lines (limit %d)", lines, v.opts.LiquidBlockLines)).
		WithSuggestion("Break into smaller logical chunks").
		Emit()
}

func (v *validator) width(f liquid.Filter) {
	if kw, ok := f.Kwarg("width"); ok && kw.Value.Kind == liquid.ValNumber {
		if w, err := strconv.ParseFloat(kw.Value.Text, 64); err == nil && w > float64(v.opts.ImageWidth) {
			v.oversized(f, kw.Value.Span, int(w))
		}
	}
	// img_url: '4000x' / '4000x4000'
	if len(f.Args) > 0 && f.Args[0].Kind == liquid.ValString {
		size := f.Args[0].Path
		digits := size
		if i := strings.IndexByte(size, 'x'); i >= 0 {
			digits = size[:i]
		}
		if w, err := strconv.Atoi(digits); err == nil && w > v.opts.ImageWidth {
			v.oversized(f, f.Args[0].Span, w)
		}
	}
}

func (v *validator) oversized(f liquid.Filter, sp source.Span, w int) {
	diag.ReportWarning(v.r, diag.PerfImageWidth, sp,
		fmt.Sprintf("'%s' requests a %dpx wide image (limit %d)", f.Name, w, v.opts.ImageWidth)).
		WithSuggestion("request the largest width the layout displays and use srcset for larger screens").
		Emit()
}

// nesting reports conditionals and loops nested past their thresholds,
// once per descent.
func (v *validator) nesting() {
	condUntil, loopUntil := -1, -1
	for _, b := range v.st.Blocks {
		end := b.Close
		if end < 0 {
			end = len(v.u.Tokens)
		}
		open := v.u.Tokens[b.Open]
		if tags.IsConditional(b.Name) && b.CondDepth >= v.opts.ConditionalNesting && b.Open > condUntil {
			condUntil = end
			diag.ReportError(v.r, diag.PerfConditionalNesting, open.Span,
				fmt.Sprintf("conditionals nested %d deep (limit %d)", b.CondDepth, v.opts.ConditionalNesting)).
				WithSuggestion("flatten the logic with early {% assign %} flags or {% case %}").
				Emit()
		}
		if tags.IsLoop(b.Name) && b.LoopDepth >= v.opts.LoopNesting && b.Open > loopUntil {
			loopUntil = end
			diag.ReportError(v.r, diag.PerfLoopNesting, open.Span,
				fmt.Sprintf("loops nested %d deep (limit %d)", b.LoopDepth, v.opts.LoopNesting)).
				WithSuggestion("move inner loops into snippets with bounded input or precompute the data").
				Emit()
		}
	}
}
