package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"liquidlint/internal/charsafe"
	"liquidlint/internal/diag"
	"liquidlint/internal/expr"
	"liquidlint/internal/lexer"
	"liquidlint/internal/observ"
	"liquidlint/internal/perf"
	"liquidlint/internal/profile"
	"liquidlint/internal/schema"
	"liquidlint/internal/source"
	"liquidlint/internal/tags"
	"liquidlint/internal/themestore"
	"liquidlint/internal/token"
	"liquidlint/internal/trace"
)

// Analyze checks every input. Files are independent: a panic or an
// encoding problem in one file shows up in that file's report only. The
// only error is ctx's, and then no reports are returned.
func (e *Engine) Analyze(ctx context.Context, inputs []Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeRun, "analyze", trace.ParentFrom(ctx)).
		WithExtra("files", strconv.Itoa(len(inputs))).
		WithExtra("profile", e.prof.Name)
	ctx = trace.WithParent(ctx, span)

	fs := source.NewFileSet()
	files := make([]*source.File, len(inputs))
	for i, in := range inputs {
		files[i] = fs.Get(fs.Add(in.Path, in.Content, 0))
	}
	for _, f := range files {
		e.emit(Event{File: f.Path, Stage: StageScan, Status: StatusQueued})
	}

	reports := make([]Report, len(files))
	err := e.each(ctx, len(files), func(ctx context.Context, i int) error {
		rep, err := e.analyzeFile(ctx, fs, files[i])
		if err != nil {
			return err
		}
		// индекс уникален для горутины, мьютекс не нужен
		reports[i] = rep
		return nil
	})
	if err != nil {
		span.End(err.Error())
		return nil, err
	}

	res := &Result{Reports: reports, Pass: true}
	failed := 0
	for _, r := range reports {
		if r.ShouldFail {
			res.Pass = false
			failed++
		}
	}
	span.WithExtra("failed", strconv.Itoa(failed)).End("")
	return res, nil
}

// each runs fn for 0..n-1 on a bounded pool.
func (e *Engine) each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(e.opts.Jobs, n)))
	for i := range n {
		g.Go(func() error {
			// проверка отмены перед стартом файла
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// задачи, не успевшие стартовать, ошибку не вернули
	return ctx.Err()
}

// analyzeFile produces the report of one file, from cache when possible.
func (e *Engine) analyzeFile(ctx context.Context, fs *source.FileSet, f *source.File) (Report, error) {
	start := time.Now()
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeFile, f.Path, trace.ParentFrom(ctx))
	ctx = trace.WithParent(ctx, span)

	rep := Report{Path: f.Path, Profile: e.prof.Name, File: f, Files: fs}
	key := e.cacheKey(f)
	if entry, ok := e.opts.Cache.get(key); ok {
		rep.Cached = true
		rep.Encoding = entry.Encoding
		rep.fences = entry.Fences
		rep.All = entry.restore(f.ID)
	} else {
		timer := observ.NewTimer()
		out, err := e.pipeline(ctx, f, timer)
		if err != nil {
			span.End(err.Error())
			return rep, err
		}
		rep.Timings = timer.Report()
		if out.encErr != nil {
			rep.EncodingError = out.encErr
			rep.ShouldFail = true
			trace.Error(tr, trace.ScopeFile, f.Path, out.encErr, span.ID())
			e.emit(Event{File: f.Path, Stage: StageScan, Status: StatusError, Err: out.encErr, Elapsed: time.Since(start)})
			span.End("encoding error")
			return rep, nil
		}
		if out.unit != nil {
			rep.Encoding = out.unit.Encoding
			rep.fences = fenceKinds(out.unit)
		}
		rep.All = out.findings
		if !out.panicked {
			e.opts.Cache.put(key, newCacheEntry(rep))
		}
	}
	e.aggregate(&rep)
	e.emit(Event{File: f.Path, Stage: StageValidate, Status: StatusDone, Elapsed: time.Since(start)})
	span.WithExtra("findings", strconv.Itoa(len(rep.Findings))).
		WithExtra("cached", strconv.FormatBool(rep.Cached)).
		End("")
	return rep, nil
}

func (e *Engine) aggregate(rep *Report) {
	diag.SortDiagnostics(rep.All)
	rep.Findings, rep.ShouldFail = profile.Aggregate(rep.All, e.prof)
}

type pipelineOutput struct {
	unit     *lexer.Unit
	findings []*diag.Diagnostic
	encErr   error
	panicked bool
}

// pipeline: scan, then tags/expr/schema/charsafe/themestore in parallel, then perf.
func (e *Engine) pipeline(ctx context.Context, f *source.File, timer *observ.Timer) (pipelineOutput, error) {
	var out pipelineOutput
	fail := func(stage string, err error) {
		out.panicked = true
		out.findings = append(out.findings, internalFinding(f, stage, err))
	}

	lexBag := diag.NewBag(e.opts.MaxFindings)
	e.emit(Event{File: f.Path, Stage: StageScan, Status: StatusWorking})
	var scanErr error
	if err := e.guard(ctx, "scan", timer, func() {
		out.unit, scanErr = lexer.Scan(f, lexer.Options{Reporter: diag.BagReporter{Bag: lexBag}})
	}); err != nil {
		fail("scan", err)
		return out, nil
	}
	var encErr *lexer.EncodingError
	if errors.As(scanErr, &encErr) {
		out.encErr = encErr
		return out, nil
	}
	if scanErr != nil {
		fail("scan", scanErr)
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	u := out.unit
	tagsBag := diag.NewBag(e.opts.MaxFindings)
	exprBag := diag.NewBag(e.opts.MaxFindings)
	schemaBag := diag.NewBag(e.opts.MaxFindings)
	charBag := diag.NewBag(e.opts.MaxFindings)
	perfBag := diag.NewBag(e.opts.MaxFindings)
	storeBag := diag.NewBag(e.opts.MaxFindings)

	var st *tags.Structure
	e.emit(Event{File: f.Path, Stage: StageValidate, Status: StatusWorking})
	g := new(errgroup.Group)
	// структура нужна perf, поэтому tags работает всегда
	g.Go(func() error {
		var r diag.Reporter = diag.BagReporter{Bag: tagsBag}
		if !e.prof.Enabled(diag.CatStructure) {
			r = diag.NopReporter{}
		}
		return e.guard(ctx, "tags", timer, func() { st = tags.Validate(u, e.tagsOpts, r) })
	})
	if e.prof.Enabled(diag.CatExpression) {
		g.Go(func() error {
			return e.guard(ctx, "expr", timer, func() { expr.Validate(u, e.reg, diag.BagReporter{Bag: exprBag}) })
		})
	}
	if e.prof.Enabled(diag.CatSchema) {
		g.Go(func() error {
			return e.guard(ctx, "schema", timer, func() { schema.Validate(u, e.reg, e.schemaOpts, diag.BagReporter{Bag: schemaBag}) })
		})
	}
	if e.prof.Enabled(diag.CatCharacterSafety) {
		g.Go(func() error {
			return e.guard(ctx, "charsafe", timer, func() { charsafe.Validate(u, e.reg, e.charOpts, diag.BagReporter{Bag: charBag}) })
		})
	}
	if e.prof.Enabled(diag.CatThemeStore) {
		g.Go(func() error {
			return e.guard(ctx, "themestore", timer, func() { themestore.Validate(u, e.reg, diag.BagReporter{Bag: storeBag}) })
		})
	}
	if err := g.Wait(); err != nil {
		var pe *panicError
		if !errors.As(err, &pe) {
			return out, err
		}
		fail(pe.stage, pe)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	if st != nil && e.prof.Enabled(diag.CatPerformance) {
		e.emit(Event{File: f.Path, Stage: StagePerf, Status: StatusWorking})
		if err := e.guard(ctx, "perf", timer, func() { perf.Validate(u, st, e.reg, e.perfOpts, diag.BagReporter{Bag: perfBag}) }); err != nil {
			fail("perf", err)
		}
	}

	// порядок слияния фиксирован, чтобы отчёт не зависел от планировщика
	for _, b := range []*diag.Bag{lexBag, tagsBag, exprBag, schemaBag, charBag, storeBag, perfBag} {
		out.findings = append(out.findings, b.Items()...)
	}
	return out, nil
}

// panicError carries a recovered validator panic.
type panicError struct {
	stage string
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", p.stage, p.value)
}

// guard runs one stage under a trace span and a timer, turning a panic into
// a *panicError.
func (e *Engine) guard(ctx context.Context, stage string, timer *observ.Timer, fn func()) (err error) {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeValidator, stage, trace.ParentFrom(ctx))
	idx := timer.Begin(stage)
	defer func() {
		timer.End(idx, "")
		if r := recover(); r != nil {
			pe := &panicError{stage: stage, value: r, stack: debug.Stack()}
			trace.Error(tr, trace.ScopeValidator, stage, pe, span.ID())
			span.End("panic")
			err = pe
			return
		}
		span.End("")
	}()
	fn()
	return nil
}

func internalFinding(f *source.File, stage string, err error) *diag.Diagnostic {
	return diag.New(diag.SevCritical, diag.EngInternal, f.Span(0, 0),
		fmt.Sprintf("internal analyzer failure in %s: %v", stage, err)).
		WithSuggestion("report this file; other checks for it may be incomplete")
}

func fenceKinds(u *lexer.Unit) []token.RegionKind {
	kinds := make([]token.RegionKind, len(u.Regions))
	for i, r := range u.Regions {
		kinds[i] = r.Kind
	}
	return kinds
}
