package engine

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"

	"liquidlint/internal/diag"
	"liquidlint/internal/fix"
	"liquidlint/internal/source"
	"liquidlint/internal/trace"
)

// AnalyzeAndFix analyzes every input and rewrites it with the fixes of the
// reported findings, re-running the full pipeline after each pass until no
// fix applies or the pass limit is hit. The returned contents are final:
// a second call on them applies nothing.
func (e *Engine) AnalyzeAndFix(ctx context.Context, inputs []Input) ([]FixResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeRun, "fix", trace.ParentFrom(ctx)).
		WithExtra("files", strconv.Itoa(len(inputs)))
	ctx = trace.WithParent(ctx, span)

	fs := source.NewFileSet()
	for _, in := range inputs {
		e.emit(Event{File: in.Path, Stage: StageScan, Status: StatusQueued})
	}
	results := make([]FixResult, len(inputs))
	err := e.each(ctx, len(inputs), func(ctx context.Context, i int) error {
		res, err := e.fixFile(ctx, fs, inputs[i])
		if err != nil {
			return err
		}
		results[i] = res
		return nil
	})
	if err != nil {
		span.End(err.Error())
		return nil, err
	}
	changed := 0
	for _, r := range results {
		if r.Changed {
			changed++
		}
	}
	span.WithExtra("changed", strconv.Itoa(changed)).End("")
	return results, nil
}

func (e *Engine) fixFile(ctx context.Context, fs *source.FileSet, in Input) (FixResult, error) {
	content := in.Content
	rep, err := e.analyzeFile(ctx, fs, fs.Get(fs.Add(in.Path, content, 0)))
	if err != nil {
		return FixResult{}, err
	}
	var res FixResult
	for pass := 1; pass <= e.opts.FixPasses && rep.EncodingError == nil; pass++ {
		rw := fix.Rewrite(content, rep.Findings)
		res.Skipped = rw.Skipped
		if !rw.Changed() {
			break
		}
		e.emit(Event{File: in.Path, Stage: StageFix, Status: StatusWorking})
		trace.Point(trace.FromContext(ctx), trace.ScopeFile, in.Path,
			fmt.Sprintf("pass %d: %d applied, %d skipped", pass, len(rw.Applied), len(rw.Skipped)), trace.ParentFrom(ctx))

		next, err := e.analyzeFile(ctx, fs, fs.Get(fs.Add(in.Path, rw.Content, 0)))
		if err != nil {
			return FixResult{}, err
		}
		if next.EncodingError != nil || !slices.Equal(rep.fences, next.fences) {
			// переписывание сдвинуло fenced-регионы: откатываем весь проход
			for _, a := range rw.Applied {
				res.Skipped = append(res.Skipped, fix.Skipped{Code: a.Code, Title: a.Title, Span: a.Span, Reason: fix.ReasonFences})
			}
			break
		}
		res.Applied = append(res.Applied, rw.Applied...)
		content = rw.Content
		stuck := reappeared(rep, next, rw.Applied)
		rep = next
		if len(stuck) > 0 {
			rep.All = append(rep.All, stuck...)
			e.aggregate(&rep)
			break
		}
	}
	res.Report = rep
	res.Content = content
	res.Changed = !bytes.Equal(content, in.Content)
	e.emit(Event{File: in.Path, Stage: StageFix, Status: StatusDone})
	return res, nil
}

type fixKey struct {
	code diag.Code
	text string
}

// reappeared reports applied fixes whose finding (same code over the same
// text) is still present after the rewrite more often than expected.
func reappeared(before, after Report, applied []fix.Applied) []*diag.Diagnostic {
	fixed := make(map[fixKey]int)
	for _, a := range applied {
		fixed[fixKey{a.Code, before.File.Text(a.Span)}]++
	}
	count := func(rep Report) map[fixKey][]*diag.Diagnostic {
		out := make(map[fixKey][]*diag.Diagnostic)
		for _, d := range rep.Findings {
			if !d.Fixable() {
				continue
			}
			k := fixKey{d.Code, rep.File.Text(d.Primary)}
			if _, ok := fixed[k]; ok {
				out[k] = append(out[k], d)
			}
		}
		return out
	}
	prev, next := count(before), count(after)

	var stuck []*diag.Diagnostic
	reported := make(map[fixKey]bool)
	for _, a := range applied {
		k := fixKey{a.Code, before.File.Text(a.Span)}
		if reported[k] {
			continue
		}
		expected := len(prev[k]) - fixed[k]
		if len(next[k]) <= expected {
			continue
		}
		d := next[k][0]
		stuck = append(stuck, diag.New(diag.SevCritical, diag.EngFixNotIdempotent, d.Primary,
			fmt.Sprintf("auto-fix not idempotent: %q did not clear %s", a.Title, a.Code.ID())).
			WithNote(d.Primary, "the finding is still reported after rewriting"))
		reported[k] = true
	}
	return stuck
}
