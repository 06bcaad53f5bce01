package charsafe

import (
	"strings"
	"testing"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/registry"
	"liquidlint/internal/source"
)

func check(t *testing.T, input string, opts Options) []*diag.Diagnostic {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("sections/test.liquid", []byte(input)))
	u, err := lexer.Scan(file, lexer.Options{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	bag := diag.NewBag(0)
	Validate(u, registry.Default(), opts, diag.BagReporter{Bag: bag})
	return bag.Items()
}

func withCode(ds []*diag.Diagnostic, code diag.Code) []*diag.Diagnostic {
	var out []*diag.Diagnostic
	for _, d := range ds {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func ids(ds []*diag.Diagnostic) []string {
	var out []string
	for _, d := range ds {
		out = append(out, d.Code.ID())
	}
	return out
}

func TestLiquidInsideIsolatedFence(t *testing.T) {
	ds := check(t, "{% stylesheet %}.a { color: {{ settings.c }}; }{% endstylesheet %}", Options{})
	got := withCode(ds, diag.CharLiquidInFence)
	if len(got) != 1 || got[0].Severity != diag.SevCritical {
		t.Fatalf("findings = %v", ids(ds))
	}
	if ds := check(t, "{% style %}.a { color: {{ settings.c }}; }{% endstyle %}", Options{}); len(withCode(ds, diag.CharLiquidInFence)) != 0 {
		t.Error("{% style %} is rendered and may contain template code")
	}
}

func TestCalcGlyph(t *testing.T) {
	input := "<div style=\"width: calc(100% − 2rem)\"></div>"
	ds := withCode(check(t, input, Options{}), diag.CharCalcGlyph)
	if len(ds) != 1 || ds[0].Severity != diag.SevCritical {
		t.Fatalf("findings = %v", ids(ds))
	}
	e := ds[0].Fix.Edits[0]
	if e.NewText != "-" || e.OldText != "−" {
		t.Errorf("edit = %+v", e)
	}
	if !strings.Contains(ds[0].Message, "MINUS SIGN") {
		t.Errorf("message = %q", ds[0].Message)
	}
	if got := input[e.Span.Start:e.Span.End]; got != "−" {
		t.Errorf("span covers %q", got)
	}
}

func TestCSSContentEscape(t *testing.T) {
	input := "<style>.a::before { content: \"—\"; }</style>"
	ds := withCode(check(t, input, Options{}), diag.CharCSSContent)
	if len(ds) != 1 {
		t.Fatalf("findings = %v", ids(ds))
	}
	if e := ds[0].Fix.Edits[0]; e.NewText != `\2014` {
		t.Errorf("escape = %q", e.NewText)
	}
	// после escape следует hex-символ, нужен пробел-терминатор
	ds = withCode(check(t, "{% style %}.b::after { content: \"éa\"; }{% endstyle %}", Options{}), diag.CharCSSContent)
	if len(ds) != 1 || ds[0].Fix.Edits[0].NewText != `\00E9 ` {
		t.Fatalf("findings = %v", ids(ds))
	}
}

func TestCSSSelectorsAndCustomProperties(t *testing.T) {
	input := "{% stylesheet %}.café { --téa: 1px; } [data-x=\"é\"] { color: red; }{% endstylesheet %}"
	ds := check(t, input, Options{})
	if n := len(withCode(ds, diag.CharCSSSelector)); n != 1 {
		t.Errorf("selector findings = %d, want 1", n)
	}
	if n := len(withCode(ds, diag.CharCSSCustomProperty)); n != 1 {
		t.Errorf("custom property findings = %d, want 1", n)
	}
}

func TestEntityInOutput(t *testing.T) {
	ds := withCode(check(t, "{{ product.title | append: '&mdash;' | escape }}", Options{}), diag.CharEntityInOutput)
	if len(ds) != 1 || ds[0].Severity != diag.SevCritical {
		t.Fatalf("findings = %v", ids(ds))
	}
	if e := ds[0].Fix.Edits[0]; e.OldText != "&mdash;" || e.NewText != "—" {
		t.Errorf("edit = %+v", e)
	}
}

func TestEntityInSchemaJSON(t *testing.T) {
	input := `{% schema %}{"name": "Caf&eacute;", "settings": []}{% endschema %}`
	ds := withCode(check(t, input, Options{}), diag.CharEntityInJSON)
	if len(ds) != 1 || ds[0].Severity != diag.SevCritical {
		t.Fatalf("findings = %v", ids(ds))
	}
}

func TestUnescapedUserOutput(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"{{ settings.heading }}", 1},
		{"{{ settings.heading | escape }}", 0},
		{"{{ product.price }}", 0},
		{"<a href=\"{{ settings.link }}\">x</a>", 0},
		{"<img alt=\"{{ product.title }}\">", 1},
		{"{{ cart.note }}", 0},
		{"<h2>{{ section.settings.heading }}</h2>", 1},
		{"{% style %}.a{color: {{ settings.accent_color }};}{% endstyle %}", 0},
		{"<style>.a{background: {{ section.settings.bg }}}</style>", 0},
		{"<div style=\"color: {{ settings.accent_color }}\"></div>", 0},
		{"{% style %}.a::before{content: \"{{ section.settings.badge }}\"}{% endstyle %}", 1},
		{"<style>.a{color: red; content: '{{ settings.label }}'}</style>", 1},
	}
	for _, tt := range tests {
		ds := withCode(check(t, tt.in, Options{}), diag.CharUnescapedOutput)
		if len(ds) != tt.want {
			t.Errorf("%s: findings = %d, want %d", tt.in, len(ds), tt.want)
		}
	}
	ds := withCode(check(t, "{{ settings.heading -}}", Options{}), diag.CharUnescapedOutput)
	e := ds[0].Fix.Edits[0]
	if e.NewText != " | escape" || e.Span.Start != uint32(len("{{ settings.heading")) {
		t.Errorf("edit = %+v", e)
	}
}

func TestSmartPunctuation(t *testing.T) {
	ds := check(t, "{% if product.type == ‘shirt’ %}It’s here{% endif %}", Options{})
	code := withCode(ds, diag.CharSmartPunctCode)
	if len(code) != 2 {
		t.Fatalf("code findings = %v", ids(ds))
	}
	if e := code[0].Fix.Edits[0]; e.NewText != "'" {
		t.Errorf("edit = %+v", e)
	}
	text := withCode(ds, diag.CharSmartPunctText)
	if len(text) != 1 || text[0].Severity != diag.SevInfo {
		t.Errorf("text findings = %v", ids(text))
	}
	// внутри строкового литерала это текст, а не код
	ds = check(t, "{{ 'It’s' | escape }}", Options{})
	if len(withCode(ds, diag.CharSmartPunctCode)) != 0 || len(withCode(ds, diag.CharSmartPunctText)) != 1 {
		t.Errorf("quoted findings = %v", ids(ds))
	}
}

func TestFullwidthPunctuationInCode(t *testing.T) {
	ds := withCode(check(t, "{{ product.title ｜ upcase }}", Options{}), diag.CharSmartPunctCode)
	if len(ds) != 1 || ds[0].Fix.Edits[0].NewText != "|" {
		t.Fatalf("findings = %v", ids(ds))
	}
}

func TestZeroWidth(t *testing.T) {
	ds := check(t, "{{ product\u200B.title | escape }} hello\u200Bworld", Options{})
	code := withCode(ds, diag.CharZeroWidthCode)
	if len(code) != 1 || code[0].Severity != diag.SevError || code[0].Fix.Edits[0].NewText != "" {
		t.Fatalf("code findings = %v", ids(ds))
	}
	if text := withCode(ds, diag.CharZeroWidthText); len(text) != 1 || text[0].Severity != diag.SevInfo {
		t.Errorf("text findings = %v", ids(ds))
	}
}

func TestReplacementAndControlCharacters(t *testing.T) {
	ds := check(t, "caf\uFFFD \x1b[0m", Options{})
	if got := withCode(ds, diag.CharReplacement); len(got) != 1 || got[0].Severity != diag.SevCritical {
		t.Errorf("replacement findings = %v", ids(ds))
	}
	if got := withCode(ds, diag.CharControl); len(got) != 1 || got[0].Severity != diag.SevError {
		t.Errorf("control findings = %v", ids(ds))
	}
}

func TestBOMIsLeftToTheScanner(t *testing.T) {
	ds := check(t, "\uFEFFhello", Options{})
	if len(ds) != 0 {
		t.Errorf("findings = %v", ids(ds))
	}
}

func TestNonASCIIIdentifier(t *testing.T) {
	ds := withCode(check(t, "{% assign prénom = 'x' %}", Options{}), diag.CharNonASCIIIdentifier)
	if len(ds) != 1 {
		t.Fatalf("findings = %v", ids(ds))
	}
}

func TestDisabledDomains(t *testing.T) {
	input := "{% stylesheet %}{{ x }}{% endstylesheet %}{{ settings.heading }}"
	ds := check(t, input, Options{Disabled: map[diag.Domain]bool{diag.DomContext: true, diag.DomEntities: true}})
	if len(ds) != 0 {
		t.Errorf("findings = %v", ids(ds))
	}
}
