package themestore

import (
	"testing"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/registry"
	"liquidlint/internal/source"
)

func check(t *testing.T, input string) []*diag.Diagnostic {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("sections/test.liquid", []byte(input)))
	u, err := lexer.Scan(file, lexer.Options{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	bag := diag.NewBag(0)
	Validate(u, registry.Default(), diag.BagReporter{Bag: bag})
	return bag.Items()
}

func ids(ds []*diag.Diagnostic) []string {
	var out []string
	for _, d := range ds {
		out = append(out, d.Code.ID())
	}
	return out
}

func TestExternalAssets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []diag.Code
	}{
		{"foreign script", `<script src="https://unpkg.com/swiper.js"></script>`, []diag.Code{diag.StoreExternalScript}},
		{"protocol relative", `<script defer src='//code.example.com/a.js'></script>`, []diag.Code{diag.StoreExternalScript}},
		{"shopify cdn", `<script src="https://cdn.shopify.com/s/files/x.js"></script>`, nil},
		{"jquery", `<script src="https://ajax.googleapis.com/ajax/libs/jquery/3.7.1/jquery.min.js"></script>`, nil},
		{"asset url", `<script src="{{ 'theme.js' | asset_url }}" defer></script>`, nil},
		{"foreign stylesheet", `<link rel="stylesheet" href="https://cdnjs.cloudflare.com/a.css">`, []diag.Code{diag.StoreExternalStylesheet}},
		{"google fonts", `<link href="https://fonts.googleapis.com/css2?family=Inter" rel="stylesheet">`, nil},
		{"preconnect", `<link rel="preconnect" href="https://fonts.gstatic.com">`, nil},
		{"commented out", `{% comment %}<script src="https://unpkg.com/a.js"></script>{% endcomment %}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := check(t, tt.in)
			if len(ds) != len(tt.want) {
				t.Fatalf("findings = %v, want %d", ids(ds), len(tt.want))
			}
			for i, d := range ds {
				if d.Code != tt.want[i] || d.Severity != diag.SevCritical {
					t.Errorf("finding %d = %s %s", i, d.Code.ID(), d.Severity)
				}
			}
		})
	}
}

func TestExternalImport(t *testing.T) {
	input := "{% stylesheet %}\n@import url('https://example.com/reset.css');\n" +
		"@import \"https://fonts.googleapis.com/css2?family=Inter\";\n" +
		"/* @import 'https://example.com/old.css'; */\n{% endstylesheet %}" +
		"<style>@import 'http://example.com/b.css';</style>" +
		"{% style %}@import \"//example.com/{{ settings.sheet }}.css\";{% endstyle %}"
	ds := check(t, input)
	diag.SortDiagnostics(ds)
	if len(ds) != 3 {
		t.Fatalf("findings = %v", ids(ds))
	}
	for _, d := range ds {
		if d.Code != diag.StoreExternalImport || d.Severity != diag.SevError {
			t.Errorf("finding = %s %s", d.Code.ID(), d.Severity)
		}
	}
	if got := input[ds[0].Primary.Start:ds[0].Primary.End]; got != "https://example.com/reset.css" {
		t.Errorf("primary = %q", got)
	}
}

func TestForbiddenCalls(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []diag.Code
	}{
		{"console in javascript fence", "{% javascript %}\nconsole.log('ready');\nconsole.table(rows);\n{% endjavascript %}", []diag.Code{diag.StoreConsoleCall}},
		{"console in script", "<script>if (x) { console . warn(x) }</script>", []diag.Code{diag.StoreConsoleCall}},
		{"alert", "<script>window.alert('hi'); alert (2); modal.alert(3)</script>", []diag.Code{diag.StoreAlertCall, diag.StoreAlertCall}},
		{"document.write", "<script>document.write('<p>')</script>", []diag.Code{diag.StoreDocumentWrite}},
		{"inline handler", `<button onclick="alert('Added')">Add</button>`, []diag.Code{diag.StoreAlertCall}},
		{"inside strings", `<script>const s = "alert(1)"; const t = 'console.log(2)';</script>`, nil},
		{"inside comments", "<script>// console.log(1)\n/* alert(2) */</script>", nil},
		{"json script", `<script type="application/ld+json">{"a": "console.log(1)"}</script>`, nil},
		{"liquid comment", "{% comment %}<script>alert(1)</script>{% endcomment %}", nil},
		{"plain text", "<p>Never alert customers</p>", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := check(t, tt.in)
			if len(ds) != len(tt.want) {
				t.Fatalf("findings = %v, want %d", ids(ds), len(tt.want))
			}
			for i, d := range ds {
				if d.Code != tt.want[i] {
					t.Errorf("finding %d = %s, want %s", i, d.Code.ID(), tt.want[i].ID())
				}
			}
		})
	}
}

func TestSeverities(t *testing.T) {
	ds := check(t, "<script>console.debug(1); alert(1); document.write(1)</script>")
	want := map[diag.Code]diag.Severity{
		diag.StoreConsoleCall:   diag.SevError,
		diag.StoreAlertCall:     diag.SevCritical,
		diag.StoreDocumentWrite: diag.SevCritical,
	}
	if len(ds) != len(want) {
		t.Fatalf("findings = %v", ids(ds))
	}
	for _, d := range ds {
		if want[d.Code] != d.Severity {
			t.Errorf("%s severity = %s", d.Code.ID(), d.Severity)
		}
	}
	if ds[0].Suggestion != "Remove all console statements for production" {
		t.Errorf("suggestion = %q", ds[0].Suggestion)
	}
}
