package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"liquidlint/internal/diag"
	"liquidlint/internal/fix"
	"liquidlint/internal/lexer"
	"liquidlint/internal/profile"
	"liquidlint/internal/source"
)

func newEngine(t *testing.T, name string, opts Options, popts ...profile.Option) *Engine {
	t.Helper()
	p, err := profile.New(name, popts...)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	e, err := New(p, opts)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func codes(ds []*diag.Diagnostic) string {
	ids := make([]string, 0, len(ds))
	for _, d := range ds {
		ids = append(ids, d.Code.ID())
	}
	return strings.Join(ids, ",")
}

func TestNewRequiresProfile(t *testing.T) {
	if _, err := New(nil, Options{}); !errors.Is(err, ErrNoProfile) {
		t.Errorf("err = %v", err)
	}
}

func TestAnalyzeKeepsInputOrder(t *testing.T) {
	e := newEngine(t, profile.Development, Options{Jobs: 2})
	inputs := []Input{
		{Path: "sections/clean.liquid", Content: []byte("<p>{{ product.id }}</p>")},
		{Path: "sections/broken.liquid", Content: []byte("{% schema %}{\"name\": {% endschema %}")},
		{Path: "snippets/other.liquid", Content: []byte("{{ product.price }}")},
	}
	res, err := e.Analyze(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Reports) != 3 {
		t.Fatalf("reports = %d", len(res.Reports))
	}
	for i, r := range res.Reports {
		if r.Path != inputs[i].Path {
			t.Errorf("report %d path = %q", i, r.Path)
		}
	}
	if len(res.Reports[0].Findings) != 0 || res.Reports[0].ShouldFail {
		t.Errorf("clean file: %s", codes(res.Reports[0].Findings))
	}
	broken := res.Reports[1]
	if !broken.ShouldFail || codes(broken.Findings) != "SCH4001" {
		t.Errorf("broken file: fail=%v findings=%s", broken.ShouldFail, codes(broken.Findings))
	}
	if res.Pass {
		t.Error("run passed with a critical finding")
	}
	if broken.Timings.TotalMS < 0 || len(broken.Timings.Phases) == 0 {
		t.Errorf("timings = %+v", broken.Timings)
	}
}

func TestEncodingErrorIsFileScoped(t *testing.T) {
	e := newEngine(t, profile.Comprehensive, Options{})
	res, err := e.Analyze(context.Background(), []Input{
		{Path: "a.liquid", Content: []byte("{{ a }}\x00")},
		{Path: "b.liquid", Content: []byte("{{ product.id }}")},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var encErr *lexer.EncodingError
	if !errors.As(res.Reports[0].EncodingError, &encErr) || encErr.Offset != 7 {
		t.Fatalf("encoding error = %v", res.Reports[0].EncodingError)
	}
	if !res.Reports[0].ShouldFail || res.Pass {
		t.Error("encoding error did not fail the run")
	}
	if res.Reports[1].EncodingError != nil || res.Reports[1].Encoding != lexer.EncodingUTF8 {
		t.Errorf("sibling report = %+v", res.Reports[1])
	}
}

func TestDisabledCategoryIsSkipped(t *testing.T) {
	input := []Input{{Path: "a.liquid", Content: []byte("{% for p in collections.all.products %}{{ p.id }}{% endfor %}")}}
	on := newEngine(t, profile.Development, Options{})
	res, err := on.Analyze(context.Background(), input)
	if err != nil || codes(res.Reports[0].Findings) != "PRF6001" {
		t.Fatalf("enabled: %v %s", err, codes(res.Reports[0].Findings))
	}
	off := newEngine(t, profile.Development, Options{}, profile.WithCategory(diag.CatPerformance, false))
	res, err = off.Analyze(context.Background(), input)
	if err != nil || len(res.Reports[0].All) != 0 || !res.Pass {
		t.Errorf("disabled: %v %s", err, codes(res.Reports[0].All))
	}
}

func TestThemeStoreCategory(t *testing.T) {
	input := []Input{{Path: "layout/theme.liquid", Content: []byte(`<script src="https://unpkg.com/a.js"></script>`)}}
	on := newEngine(t, profile.Development, Options{})
	res, err := on.Analyze(context.Background(), input)
	if err != nil || codes(res.Reports[0].Findings) != "STO8001" || res.Pass {
		t.Fatalf("enabled: %v %s", err, codes(res.Reports[0].Findings))
	}
	off := newEngine(t, profile.Development, Options{}, profile.WithCategory(diag.CatThemeStore, false))
	res, err = off.Analyze(context.Background(), input)
	if err != nil || len(res.Reports[0].All) != 0 || !res.Pass {
		t.Errorf("disabled: %v %s", err, codes(res.Reports[0].All))
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	e := newEngine(t, profile.Development, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inputs := []Input{{Path: "a.liquid", Content: []byte("{{ a }}")}}
	if res, err := e.Analyze(ctx, inputs); !errors.Is(err, context.Canceled) || res != nil {
		t.Errorf("Analyze = %v, %v", res, err)
	}
	if res, err := e.AnalyzeAndFix(ctx, inputs); !errors.Is(err, context.Canceled) || res != nil {
		t.Errorf("AnalyzeAndFix = %v, %v", res, err)
	}
}

func TestFixRemovesBOMAndIsIdempotent(t *testing.T) {
	e := newEngine(t, profile.Development, Options{})
	in := []Input{{Path: "a.liquid", Content: []byte("\uFEFF{{ product.id }}")}}
	out, err := e.AnalyzeAndFix(context.Background(), in)
	if err != nil {
		t.Fatalf("AnalyzeAndFix: %v", err)
	}
	r := out[0]
	if string(r.Content) != "{{ product.id }}" || !r.Changed || len(r.Applied) != 1 {
		t.Fatalf("content = %q applied = %+v", r.Content, r.Applied)
	}
	if r.Report.Encoding != lexer.EncodingUTF8 || len(r.Report.Findings) != 0 {
		t.Errorf("final report: %s %s", r.Report.Encoding, codes(r.Report.Findings))
	}
	again, err := e.AnalyzeAndFix(context.Background(), []Input{{Path: "a.liquid", Content: r.Content}})
	if err != nil {
		t.Fatal(err)
	}
	if len(again[0].Applied) != 0 || again[0].Changed {
		t.Errorf("second call applied %+v", again[0].Applied)
	}
}

func TestFixConvergesOverPasses(t *testing.T) {
	e := newEngine(t, profile.Development, Options{})
	src := "{% for p in collections.all.products %}{{ product.title }}{% endfor %}"
	out, err := e.AnalyzeAndFix(context.Background(), []Input{{Path: "a.liquid", Content: []byte(src)}})
	if err != nil {
		t.Fatal(err)
	}
	want := "{% for p in collections.all.products limit: 50 %}{{ product.title | escape }}{% endfor %}"
	if got := string(out[0].Content); got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if len(out[0].Report.Findings) != 0 || out[0].Report.ShouldFail {
		t.Errorf("remaining = %s", codes(out[0].Report.Findings))
	}
	if src != "{% for p in collections.all.products %}{{ product.title }}{% endfor %}" {
		t.Error("input mutated")
	}
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memStore) Load(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key]
	return b, ok, nil
}

func (s *memStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

func TestCacheRoundTrip(t *testing.T) {
	store := &memStore{data: make(map[string][]byte)}
	input := []Input{{Path: "a.liquid", Content: []byte("{% for p in collections.all.products %}{% endfor %}")}}

	first := newEngine(t, profile.Development, Options{Cache: NewCache(store)})
	res, err := first.Analyze(context.Background(), input)
	if err != nil || res.Reports[0].Cached {
		t.Fatalf("first run: %v cached=%v", err, res.Reports[0].Cached)
	}
	if len(store.data) != 1 {
		t.Fatalf("store has %d entries", len(store.data))
	}

	// новый кэш в памяти, та же "диск"-копия
	second := newEngine(t, profile.Development, Options{Cache: NewCache(store)})
	again, err := second.Analyze(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	rep := again.Reports[0]
	if !rep.Cached || codes(rep.Findings) != codes(res.Reports[0].Findings) {
		t.Errorf("cached=%v findings=%s", rep.Cached, codes(rep.Findings))
	}
	if rep.Findings[0].Primary.File != rep.File.ID || rep.Findings[0].Fix.Edits[0].Span.File != rep.File.ID {
		t.Error("cached spans not rebound to the new file")
	}
	if hits, misses := second.opts.Cache.Stats(); hits != 1 || misses != 0 {
		t.Errorf("stats = %d/%d", hits, misses)
	}

	other := newEngine(t, profile.Comprehensive, Options{Cache: NewCache(store)})
	if res, _ := other.Analyze(context.Background(), input); res.Reports[0].Cached {
		t.Error("profile change reused the cache entry")
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	e := newEngine(t, profile.Development, Options{})
	err := e.guard(context.Background(), "schema", nil, func() { panic("boom") })
	var pe *panicError
	if !errors.As(err, &pe) || pe.stage != "schema" || len(pe.stack) == 0 {
		t.Fatalf("err = %v", err)
	}
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("a.liquid", []byte("x")))
	d := internalFinding(f, pe.stage, pe)
	if d.Code != diag.EngInternal || d.Severity != diag.SevCritical || !strings.Contains(d.Message, "boom") {
		t.Errorf("finding = %+v", d)
	}
}

func TestReappearedFix(t *testing.T) {
	fs := source.NewFileSet()
	before := Report{File: fs.Get(fs.AddVirtual("a.liquid", []byte("a\u2019b\u2019")))}
	after := Report{File: fs.Get(fs.AddVirtual("a.liquid", []byte("a\u2019b'")))}
	mk := func(f *source.File, start uint32) *diag.Diagnostic {
		sp := source.Span{File: f.ID, Start: start, End: start + 3}
		return diag.New(diag.SevError, diag.CharSmartPunctCode, sp, "quote").
			WithFix("replace", diag.Replace(sp, "\u2019", "'"))
	}
	before.Findings = []*diag.Diagnostic{mk(before.File, 1), mk(before.File, 5)}
	after.Findings = []*diag.Diagnostic{mk(after.File, 1)}

	one := []fix.Applied{{Code: diag.CharSmartPunctCode, Title: "replace", Span: before.Findings[1].Primary}}
	if stuck := reappeared(before, after, one); len(stuck) != 0 {
		t.Errorf("one of two fixed, one left: %s", codes(stuck))
	}
	both := []fix.Applied{
		{Code: diag.CharSmartPunctCode, Title: "replace", Span: before.Findings[0].Primary},
		{Code: diag.CharSmartPunctCode, Title: "replace", Span: before.Findings[1].Primary},
	}
	stuck := reappeared(before, after, both)
	if len(stuck) != 1 || stuck[0].Code != diag.EngFixNotIdempotent || stuck[0].Severity != diag.SevCritical {
		t.Errorf("stuck = %s", codes(stuck))
	}
}
