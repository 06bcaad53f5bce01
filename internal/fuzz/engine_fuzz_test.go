package fuzztests

import (
	"bytes"
	"context"
	"testing"
	"unicode/utf8"

	"liquidlint/internal/diag"
	"liquidlint/internal/engine"
	"liquidlint/internal/profile"
	"liquidlint/internal/testkit"
)

func newEngine(f *testing.F) *engine.Engine {
	f.Helper()
	p, err := profile.New(profile.Comprehensive)
	if err != nil {
		f.Fatalf("profile: %v", err)
	}
	e, err := engine.New(p, engine.Options{Jobs: 1})
	if err != nil {
		f.Fatalf("engine: %v", err)
	}
	return e
}

func noInternal(t *testing.T, ds []*diag.Diagnostic) {
	t.Helper()
	for _, d := range ds {
		if d.Code == diag.EngInternal {
			t.Fatalf("validator crashed: %s", d.Message)
		}
	}
}

func FuzzAnalyze(f *testing.F) {
	addCorpusSeeds(f)
	eng := newEngine(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		res, err := eng.Analyze(context.Background(), []engine.Input{{Path: "sections/fuzz.liquid", Content: input}})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		rep := res.Reports[0]
		if rep.EncodingError != nil {
			return
		}
		noInternal(t, rep.All)
		if err := testkit.CheckFindingSpans(rep.Files, rep.All); err != nil {
			t.Fatalf("findings: %v", err)
		}
	})
}

func FuzzFix(f *testing.F) {
	addCorpusSeeds(f)
	eng := newEngine(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		results, err := eng.AnalyzeAndFix(context.Background(), []engine.Input{{Path: "snippets/fuzz.liquid", Content: input}})
		if err != nil {
			t.Fatalf("AnalyzeAndFix: %v", err)
		}
		fr := results[0]
		if fr.Report.EncodingError != nil {
			return
		}
		if !fr.Changed && !bytes.Equal(fr.Content, input) {
			t.Fatal("unchanged result differs from input")
		}
		// правки не должны ломать кодировку
		if !utf8.Valid(fr.Content) {
			t.Fatalf("fixed content is not valid UTF-8: %q", fr.Content)
		}
		noInternal(t, fr.Report.All)
	})
}
