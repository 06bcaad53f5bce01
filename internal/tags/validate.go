// Package tags checks that block tags are balanced and correctly nested and
// records per-token nesting data for later heuristics.
package tags

import (
	"fmt"
	"slices"
	"strings"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

// DefaultMaxNesting is the block depth above which nesting is reported.
const DefaultMaxNesting = 8

type Options struct {
	MaxNesting int // 0: DefaultMaxNesting
}

// frame is one open block on the stack.
type frame struct {
	name     string
	openSpan source.Span
	closer   string
	block    int // индекс в Structure.Blocks
}

// Block is one paired tag occurrence.
type Block struct {
	Name      string
	Open      int // индекс открывающего токена
	Close     int // индекс закрывающего токена или -1
	Depth     int // глубина, включая сам блок
	CondDepth int // число вложенных условий, включая сам блок
	LoopDepth int // число вложенных циклов, включая сам блок
}

// Structure is the nesting data derived from one unit.
type Structure struct {
	Depth     []int // для каждого токена: число открытых блоков
	CondDepth []int
	LoopDepth []int
	Blocks    []Block
	Schema    int // индекс FenceStart схемы или -1
}

// Loops returns the blocks that iterate.
func (s *Structure) Loops() []Block {
	var out []Block
	for _, b := range s.Blocks {
		if IsLoop(b.Name) {
			out = append(out, b)
		}
	}
	return out
}

// BlockAt returns the block opened by token index i.
func (s *Structure) BlockAt(i int) (Block, bool) {
	for _, b := range s.Blocks {
		if b.Open == i {
			return b, true
		}
	}
	return Block{}, false
}

type validator struct {
	unit     *lexer.Unit
	opts     Options
	r        diag.Reporter
	stack    []frame
	st       *Structure
	cond     int
	loops    int
	deep     bool // уже сообщили о глубине на текущем спуске
	schemas  int
	schemaAt int // индекс закрывающего токена схемы
}

// Validate walks the tag tokens of u. It never aborts: every defect is
// reported and the stack is empty when it returns.
func Validate(u *lexer.Unit, opts Options, r diag.Reporter) *Structure {
	if opts.MaxNesting <= 0 {
		opts.MaxNesting = DefaultMaxNesting
	}
	n := len(u.Tokens)
	v := &validator{
		unit: u,
		opts: opts,
		r:    r,
		st: &Structure{
			Depth:     make([]int, n),
			CondDepth: make([]int, n),
			LoopDepth: make([]int, n),
			Schema:    -1,
		},
		schemaAt: -1,
	}
	for i := range u.Tokens {
		v.token(i)
	}
	v.finish()
	return v.st
}

func (v *validator) token(i int) {
	tok := v.unit.Tokens[i]
	v.checkAfterSchema(i, tok)

	switch tok.Kind {
	case token.TagOpen, token.FenceStart:
		v.open(i, tok)
	case token.TagClose:
		v.close(i, tok)
	case token.FenceEnd:
		v.close(i, tok)
		if tok.Name == "endschema" {
			v.schemaAt = i
		}
	default:
		v.record(i)
	}
}

func (v *validator) record(i int) {
	v.st.Depth[i] = len(v.stack)
	v.st.CondDepth[i] = v.cond
	v.st.LoopDepth[i] = v.loops
}

func (v *validator) open(i int, tok token.Token) {
	kind, known := tagTable[tok.Name]
	if tok.Kind == token.FenceStart {
		kind, known = kindPaired, true
		if tok.Name == "schema" {
			v.schemas++
			if v.schemas > 1 {
				diag.ReportCritical(v.r, diag.TagDuplicateSchema, tok.Span, "more than one schema block in file").
					WithNote(v.unit.Tokens[v.st.Schema].Span, "first schema block is here").
					Emit()
			} else {
				v.st.Schema = i
			}
		}
		if !v.fenceTerminated(i) {
			// лексер уже сообщил о незакрытом регионе
			v.record(i)
			return
		}
	}

	switch {
	case !known:
		v.record(i)
		diag.ReportWarning(v.r, diag.TagUnknown, tok.Span, fmt.Sprintf("unknown tag '%s'", tok.Name)).Emit()
	case kind == kindBranch:
		v.record(i)
		v.branch(tok)
	case kind == kindSingle:
		v.record(i)
	default:
		v.push(i, tok)
	}
}

func (v *validator) fenceTerminated(i int) bool {
	for _, r := range v.unit.Regions {
		if r.Opener == i {
			return r.Terminated
		}
	}
	return false
}

func (v *validator) push(i int, tok token.Token) {
	if IsConditional(tok.Name) {
		v.cond++
	}
	if IsLoop(tok.Name) {
		v.loops++
	}
	v.stack = append(v.stack, frame{
		name:     tok.Name,
		openSpan: tok.Span,
		closer:   "end" + tok.Name,
		block:    len(v.st.Blocks),
	})
	v.st.Blocks = append(v.st.Blocks, Block{
		Name:      tok.Name,
		Open:      i,
		Close:     -1,
		Depth:     len(v.stack),
		CondDepth: v.cond,
		LoopDepth: v.loops,
	})
	v.record(i)

	if len(v.stack) > v.opts.MaxNesting && !v.deep {
		v.deep = true
		diag.ReportError(v.r, diag.TagNestingTooDeep, tok.Span,
			fmt.Sprintf("block nesting depth %d exceeds %d", len(v.stack), v.opts.MaxNesting)).
			WithSuggestion("move inner markup into a snippet").
			Emit()
	}
}

func (v *validator) pop(closeIdx int) frame {
	f := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	if IsConditional(f.name) {
		v.cond--
	}
	if IsLoop(f.name) {
		v.loops--
	}
	v.st.Blocks[f.block].Close = closeIdx
	if len(v.stack) <= v.opts.MaxNesting {
		v.deep = false
	}
	return f
}

func (v *validator) close(i int, tok token.Token) {
	name := tok.Opener()
	if len(v.stack) == 0 {
		v.record(i)
		diag.ReportCritical(v.r, diag.TagUnexpectedClose, tok.Span,
			fmt.Sprintf("unexpected closing tag '%s': no open block", tok.Name)).Emit()
		return
	}
	top := v.stack[len(v.stack)-1]
	if top.name == name {
		v.record(i)
		v.pop(i)
		return
	}

	match := slices.IndexFunc(v.stack, func(f frame) bool { return f.name == name })
	b := diag.ReportCritical(v.r, diag.TagMismatchedClose, tok.Span,
		fmt.Sprintf("mismatched closing tag '%s': expected '%s'", tok.Name, top.closer)).
		WithNote(top.openSpan, fmt.Sprintf("'%s' opened here", top.name))
	if match < 0 {
		b.WithSuggestion(fmt.Sprintf("remove '%s' or open a matching '%s' block", tok.Name, name)).Emit()
		v.record(i)
		return
	}
	b.Emit()
	for len(v.stack)-1 > match {
		f := v.pop(-1)
		v.unclosed(f)
	}
	v.record(i)
	v.pop(i)
}

func (v *validator) unclosed(f frame) {
	diag.ReportCritical(v.r, diag.TagUnclosed, f.openSpan,
		fmt.Sprintf("unclosed tag '%s': missing '{%% %s %%}'", f.name, f.closer)).
		WithSuggestion(fmt.Sprintf("add '{%% %s %%}'", f.closer)).
		Emit()
}

func (v *validator) branch(tok token.Token) {
	owners := branchOwners[tok.Name]
	if len(v.stack) > 0 && slices.Contains(owners, v.stack[len(v.stack)-1].name) {
		return
	}
	diag.ReportError(v.r, diag.TagMisplacedBranch, tok.Span,
		fmt.Sprintf("'%s' outside of %s", tok.Name, strings.Join(owners, "/"))).Emit()
}

// checkAfterSchema reports the first non-blank construct after the schema.
func (v *validator) checkAfterSchema(i int, tok token.Token) {
	if v.schemaAt < 0 || i <= v.schemaAt {
		return
	}
	if tok.Kind == token.Literal && strings.TrimSpace(tok.Text) == "" {
		return
	}
	if tok.Name == "schema" || tok.Name == "endschema" {
		return
	}
	diag.ReportError(v.r, diag.TagSchemaNotLast, tok.Span, "content after the schema block").
		WithNote(v.unit.Tokens[v.schemaAt].Span, "schema ends here").
		WithSuggestion("move the schema block to the end of the file").
		Emit()
	v.schemaAt = -1
}

func (v *validator) finish() {
	for len(v.stack) > 0 {
		f := v.pop(-1)
		v.unclosed(f)
	}
}
