package perf

import (
	"strings"
	"testing"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/registry"
	"liquidlint/internal/source"
	"liquidlint/internal/tags"
)

func check(t *testing.T, input string, opts Options) []*diag.Diagnostic {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("sections/test.liquid", []byte(input)))
	u, err := lexer.Scan(file, lexer.Options{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	st := tags.Validate(u, tags.Options{}, diag.NopReporter{})
	bag := diag.NewBag(0)
	Validate(u, st, registry.Default(), opts, diag.BagReporter{Bag: bag})
	return bag.Items()
}

func ids(ds []*diag.Diagnostic) []string {
	var out []string
	for _, d := range ds {
		out = append(out, d.Code.ID())
	}
	return out
}

func TestUnboundedCatalogLoop(t *testing.T) {
	input := "{% for product in collections.all.products %}{{ product.title }}{% endfor %}"
	ds := check(t, input, Options{})
	if len(ds) != 1 || ds[0].Code != diag.PerfUnboundedLoop || ds[0].Severity != diag.SevCritical {
		t.Fatalf("findings = %v", ids(ds))
	}
	e := ds[0].Fix.Edits[0]
	if e.NewText != " limit: 50" || !e.Span.Empty() {
		t.Fatalf("edit = %+v", e)
	}
	fixed := input[:e.Span.Start] + e.NewText + input[e.Span.Start:]
	if !strings.HasPrefix(fixed, "{% for product in collections.all.products limit: 50 %}") {
		t.Errorf("fixed = %q", fixed)
	}
	if ds := check(t, fixed, Options{}); len(ds) != 0 {
		t.Errorf("limit did not clear the finding: %v", ids(ds))
	}
}

func TestBoundedLoops(t *testing.T) {
	for _, in := range []string{
		"{% for p in collection.products %}{% endfor %}",
		"{% for p in collections['all'].products limit: 8 %}{% endfor %}",
		"{% paginate collections.all.products by 24 %}{% for p in collections.all.products %}{% endfor %}{% endpaginate %}",
	} {
		if ds := check(t, in, Options{}); len(ds) != 0 {
			t.Errorf("%s: findings = %v", in, ids(ds))
		}
	}
}

func TestCatalogCounts(t *testing.T) {
	for _, in := range []string{
		"{{ collections.all.products.size }}",
		"{{ collections.all.products_count }}",
		"{{ collections.all.products | size }}",
	} {
		ds := check(t, in, Options{})
		if len(ds) != 1 || ds[0].Code != diag.PerfCatalogCount || ds[0].Severity != diag.SevCritical {
			t.Errorf("%s: findings = %v", in, ids(ds))
		}
	}
}

func TestFilterChainLength(t *testing.T) {
	long := "{{ x" + strings.Repeat(" | strip", 10) + " }}"
	ds := check(t, long, Options{})
	if len(ds) != 1 || ds[0].Code != diag.PerfFilterChain || ds[0].Severity != diag.SevError {
		t.Fatalf("findings = %v", ids(ds))
	}
	short := "{{ x" + strings.Repeat(" | strip", 9) + " }}"
	if ds := check(t, short, Options{}); len(ds) != 0 {
		t.Errorf("nine filters: %v", ids(ds))
	}
	if ds := check(t, short, Options{FilterChain: 3}); len(ds) != 1 {
		t.Errorf("custom threshold: %v", ids(ds))
	}
}

func TestAppendChain(t *testing.T) {
	chain := func(name string, n int) string {
		return "{% assign " + name + " = 'a'" + strings.Repeat(" | append: b", n) + " %}"
	}
	ds := check(t, chain("label", 8), Options{})
	if len(ds) != 1 || ds[0].Code != diag.PerfConcatChain || ds[0].Severity != diag.SevError {
		t.Fatalf("findings = %v", ids(ds))
	}
	if ds[0].Suggestion != "Use {% capture %} tag instead" {
		t.Errorf("suggestion = %q", ds[0].Suggestion)
	}
	if ds := check(t, chain("label", 7), Options{}); len(ds) != 0 {
		t.Errorf("seven appends: %v", ids(ds))
	}
	for _, name := range []string{"card_style", "hero_gradient", "img_srcset"} {
		if ds := check(t, chain(name, 9), Options{}); len(ds) != 0 {
			t.Errorf("%s: %v", name, ids(ds))
		}
	}
	inline := "{% liquid\n  " + strings.TrimSuffix(strings.TrimPrefix(chain("label", 8), "{% "), " %}") + "\n%}"
	if ds := check(t, inline, Options{}); len(ds) != 1 || ds[0].Code != diag.PerfConcatChain {
		t.Errorf("assign inside {%% liquid %%}: %v", ids(ds))
	}
	if ds := check(t, chain("label", 4), Options{ConcatChain: 4}); len(ds) != 1 {
		t.Errorf("custom threshold: %v", ids(ds))
	}
}

func TestLiquidBlockLength(t *testing.T) {
	block := func(lines int) string {
		return "{% liquid\n" + strings.Repeat("  assign a = 1\n", lines) + "%}"
	}
	ds := check(t, block(50), Options{})
	if len(ds) != 1 || ds[0].Code != diag.PerfLiquidBlockLength || ds[0].Severity != diag.SevError {
		t.Fatalf("findings = %v", ids(ds))
	}
	if !strings.Contains(ds[0].Message, "50 lines") {
		t.Errorf("message = %q", ds[0].Message)
	}
	if ds := check(t, block(49), Options{}); len(ds) != 0 {
		t.Errorf("49 lines: %v", ids(ds))
	}
	if ds := check(t, block(10), Options{LiquidBlockLines: 10}); len(ds) != 1 {
		t.Errorf("custom threshold: %v", ids(ds))
	}
}

func TestNestingThresholds(t *testing.T) {
	conds := strings.Repeat("{% if a %}", 5) + strings.Repeat("{% endif %}", 5)
	ds := check(t, conds, Options{})
	if len(ds) != 1 || ds[0].Code != diag.PerfConditionalNesting {
		t.Fatalf("conditional findings = %v", ids(ds))
	}
	if ds := check(t, strings.Repeat("{% if a %}", 4)+strings.Repeat("{% endif %}", 4), Options{}); len(ds) != 0 {
		t.Errorf("depth 4 findings = %v", ids(ds))
	}

	loops := strings.Repeat("{% for a in b %}", 4) + strings.Repeat("{% endfor %}", 4)
	ds = check(t, loops+loops, Options{})
	if len(ds) != 2 || ds[0].Code != diag.PerfLoopNesting || ds[1].Code != diag.PerfLoopNesting {
		t.Fatalf("loop findings = %v", ids(ds))
	}
}

func TestImageWidth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"{{ product.featured_image | image_url: width: 4000 | image_tag }}", 1},
		{"{{ product.featured_image | image_url: width: 1200 | image_tag }}", 0},
		{"{{ product.featured_image | img_url: '4096x' }}", 1},
		{"{{ product.featured_image | img_url: 'master' }}", 0},
	}
	for _, tt := range tests {
		ds := check(t, tt.in, Options{})
		if len(ds) != tt.want {
			t.Errorf("%s: findings = %v, want %d", tt.in, ids(ds), tt.want)
			continue
		}
		if tt.want == 1 && (ds[0].Code != diag.PerfImageWidth || ds[0].Severity != diag.SevWarning) {
			t.Errorf("%s: finding = %s %s", tt.in, ds[0].Code.ID(), ds[0].Severity)
		}
	}
}
