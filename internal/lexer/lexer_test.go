package lexer_test

import (
	"errors"
	"testing"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

// scan прогоняет лексер по строке и собирает находки в Bag
func scan(t *testing.T, input string) (*lexer.Unit, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("sections/test.liquid", []byte(input)))
	bag := diag.NewBag(0)
	unit, err := lexer.Scan(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		t.Fatalf("Scan(%q) failed: %v", input, err)
	}
	return unit, bag
}

func kinds(u *lexer.Unit) []token.Kind {
	out := make([]token.Kind, 0, len(u.Tokens))
	for _, tok := range u.Tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func expectKinds(t *testing.T, u *lexer.Unit, want ...token.Kind) {
	t.Helper()
	got := kinds(u)
	if len(got) != len(want) {
		t.Fatalf("token kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token kinds = %v, want %v", got, want)
		}
	}
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestBasicTokens(t *testing.T) {
	u, bag := scan(t, "a{{ product.title }}b{% if x %}c{% endif %}")
	expectKinds(t, u, token.Literal, token.Output, token.Literal, token.TagOpen, token.Literal, token.TagClose)
	if bag.Len() != 0 {
		t.Fatalf("unexpected findings: %v", codes(bag))
	}
	out := u.Tokens[1]
	if out.Markup != "product.title" {
		t.Errorf("output markup = %q", out.Markup)
	}
	if got := u.Text(out.MarkupSpan); got != "product.title" {
		t.Errorf("markup span text = %q", got)
	}
	tag := u.Tokens[3]
	if tag.Name != "if" || tag.Markup != "x" {
		t.Errorf("tag = %q %q", tag.Name, tag.Markup)
	}
	if closer := u.Tokens[5]; closer.Opener() != "if" {
		t.Errorf("closer opener = %q", closer.Opener())
	}
}

func TestWhitespaceControl(t *testing.T) {
	u, _ := scan(t, "{%- assign a = 1 -%}{{- a -}}")
	expectKinds(t, u, token.TagOpen, token.Output)
	tag := u.Tokens[0]
	if !tag.TrimLeft || !tag.TrimRight || tag.Name != "assign" || tag.Markup != "a = 1" {
		t.Errorf("tag = %+v", tag)
	}
	out := u.Tokens[1]
	if !out.TrimLeft || !out.TrimRight || out.Markup != "a" {
		t.Errorf("output = %+v", out)
	}
}

func TestFenceBodyIsNotTokenized(t *testing.T) {
	input := `{% schema %}{"name": "{{ x }}", "a": "{% if %}"}{% endschema %}`
	u, bag := scan(t, input)
	expectKinds(t, u, token.FenceStart, token.FenceEnd)
	if bag.Len() != 0 {
		t.Fatalf("unexpected findings: %v", codes(bag))
	}
	if len(u.Regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(u.Regions))
	}
	r := u.Regions[0]
	if r.Kind != token.RegionSchema || !r.Terminated || r.Closer != 1 {
		t.Errorf("region = %+v", r)
	}
	if got := u.Text(r.Body); got != `{"name": "{{ x }}", "a": "{% if %}"}` {
		t.Errorf("body = %q", got)
	}
	if r.Span.Start != 0 || int(r.Span.End) != len(input) {
		t.Errorf("region span = %v", r.Span)
	}
}

func TestUnterminatedFence(t *testing.T) {
	u, bag := scan(t, "x{% javascript %}var a = 1;")
	expectKinds(t, u, token.Literal, token.FenceStart)
	if bag.Len() != 1 {
		t.Fatalf("findings = %v, want exactly one", codes(bag))
	}
	d := bag.Items()[0]
	if d.Code != diag.LexUnterminatedFence || d.Severity != diag.SevCritical {
		t.Errorf("finding = %s %s", d.Code.ID(), d.Severity)
	}
	r := u.Regions[0]
	if r.Terminated || r.Closer != -1 || !r.Isolated() {
		t.Errorf("region = %+v", r)
	}
	if got := u.Text(r.Body); got != "var a = 1;" {
		t.Errorf("body = %q", got)
	}
}

func TestNestedComments(t *testing.T) {
	u, bag := scan(t, "{% comment %}{% comment %}x{% endcomment %}{% endcomment %}after")
	expectKinds(t, u, token.FenceStart, token.FenceEnd, token.Literal)
	if bag.Len() != 0 {
		t.Fatalf("unexpected findings: %v", codes(bag))
	}
	if u.Tokens[2].Text != "after" {
		t.Errorf("tail = %q", u.Tokens[2].Text)
	}
}

func TestLiquidTagExpansion(t *testing.T) {
	input := "{% liquid\n  assign x = 1\n  # note\n  if x\n    echo x\n  endif\n%}"
	u, bag := scan(t, input)
	expectKinds(t, u, token.TagOpen, token.TagOpen, token.TagOpen, token.TagOpen, token.TagClose)
	if bag.Len() != 0 {
		t.Fatalf("unexpected findings: %v", codes(bag))
	}
	names := []string{"liquid", "assign", "if", "echo", "endif"}
	for i, name := range names {
		if u.Tokens[i].Name != name {
			t.Errorf("token %d name = %q, want %q", i, u.Tokens[i].Name, name)
		}
		if i > 0 && !u.Tokens[i].Inline {
			t.Errorf("token %d must be inline", i)
		}
	}
	if got := u.Text(u.Tokens[1].MarkupSpan); got != "x = 1" {
		t.Errorf("inline markup = %q", got)
	}
}

func TestUnterminatedOutputRecovers(t *testing.T) {
	u, bag := scan(t, "a {{ x b {% if y %}")
	expectKinds(t, u, token.Literal, token.Literal, token.TagOpen)
	if got := codes(bag); len(got) != 1 || got[0] != diag.LexUnterminatedOutput {
		t.Fatalf("findings = %v", got)
	}
	if u.Tokens[1].Text != "{{ x b " {
		t.Errorf("literal = %q", u.Tokens[1].Text)
	}
}

func TestUnterminatedTagAtEOF(t *testing.T) {
	u, bag := scan(t, "text {% if x")
	expectKinds(t, u, token.Literal, token.Literal)
	if got := codes(bag); len(got) != 1 || got[0] != diag.LexUnterminatedTag {
		t.Fatalf("findings = %v", got)
	}
}

func TestEmptyTag(t *testing.T) {
	u, bag := scan(t, "{% %}")
	expectKinds(t, u, token.Invalid)
	if got := codes(bag); len(got) != 1 || got[0] != diag.LexEmptyTag {
		t.Fatalf("findings = %v", got)
	}
}

func TestBOMIsExcludedAndFixable(t *testing.T) {
	u, bag := scan(t, "\uFEFFhello")
	if u.Encoding != lexer.EncodingUTF8BOM || u.Start != source.BOMLen {
		t.Errorf("encoding = %s start = %d", u.Encoding, u.Start)
	}
	expectKinds(t, u, token.Literal)
	if u.Tokens[0].Span.Start != source.BOMLen || u.Tokens[0].Text != "hello" {
		t.Errorf("token = %+v", u.Tokens[0])
	}
	if bag.Len() != 1 {
		t.Fatalf("findings = %v", codes(bag))
	}
	d := bag.Items()[0]
	if d.Code != diag.CharBOM || d.Severity != diag.SevWarning || !d.Fixable() {
		t.Fatalf("finding = %+v", d)
	}
	edit := d.Fix.Edits[0]
	if edit.Span.Start != 0 || edit.Span.End != 3 || edit.NewText != "" {
		t.Errorf("edit = %+v", edit)
	}
}

func TestEncodingErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset uint32
	}{
		{"nul", "a\x00b", 1},
		{"invalid utf8", "ab\xffc", 2},
		{"truncated sequence", "ok\xe2\x80", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := source.NewFileSet()
			file := fs.Get(fs.AddVirtual("snippets/bad.liquid", []byte(tt.input)))
			_, err := lexer.Scan(file, lexer.Options{})
			var encErr *lexer.EncodingError
			if !errors.As(err, &encErr) {
				t.Fatalf("expected EncodingError, got %v", err)
			}
			if encErr.Offset != tt.offset || encErr.Path != "snippets/bad.liquid" {
				t.Errorf("error = %+v", encErr)
			}
		})
	}
}

func TestRegionAt(t *testing.T) {
	u, _ := scan(t, "a{% style %}b{% endstyle %}{% stylesheet %}.x{}{% endstylesheet %}")
	if len(u.Regions) != 1 {
		t.Fatalf("regions = %d; style is a plain paired tag", len(u.Regions))
	}
	r := u.Regions[0]
	if _, ok := u.RegionAt(r.Body.Start); !ok {
		t.Error("RegionAt must find the stylesheet body")
	}
	if _, ok := u.RegionAt(0); ok {
		t.Error("offset 0 is outside every region")
	}
	if got := len(u.RegionsOf(token.RegionStyle)); got != 1 {
		t.Errorf("RegionsOf(style) = %d", got)
	}
}
