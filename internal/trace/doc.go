// Package trace records a structured log of an analysis run.
//
// Events are spans (begin/end pairs) and points, each tagged with a scope:
//
//   - ScopeRun: one engine call (Analyze, AnalyzeAndFix, a fix pass)
//   - ScopeFile: one template file
//   - ScopeValidator: one validator over one file
//
// The level selects how deep the log goes: phase keeps run events, detail
// adds files, debug adds validators. Errors are recorded at every level
// above off.
//
//	tr, _ := trace.New(trace.Config{Level: trace.LevelDetail, Mode: trace.ModeStream})
//	ctx = trace.WithTracer(ctx, tr)
//
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeFile, path, trace.ParentFrom(ctx))
//	defer span.End("")
package trace
