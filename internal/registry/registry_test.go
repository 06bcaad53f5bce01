package registry

import (
	"strings"
	"testing"
)

func TestDefaultLoads(t *testing.T) {
	r := Default()
	if r.Version() == "" {
		t.Error("expected a registry version")
	}
	if r != Default() {
		t.Error("Default must return the shared instance")
	}
	for _, name := range []string{"upcase", "image_url", "money", "t", "color_brightness"} {
		if _, ok := r.Filter(name); !ok {
			t.Errorf("filter %q missing", name)
		}
	}
	for _, name := range []string{"product", "collections", "section", "forloop"} {
		if !r.IsObject(name) {
			t.Errorf("object %q missing", name)
		}
	}
}

func TestHallucinatedTextIsVerbatim(t *testing.T) {
	r := Default()
	text, ok := r.Hallucinated("color_extract")
	if !ok {
		t.Fatal("color_extract must be a hallucinated filter")
	}
	if text != "DOES NOT EXIST - Use color_brightness, color_lighten, etc." {
		t.Errorf("unexpected text %q", text)
	}
	if text, _ := r.Hallucinated("render"); text != "DOES NOT EXIST - Use {% render %} tag" {
		t.Errorf("render text = %q", text)
	}
	// Выдуманные фильтры не должны оказаться среди настоящих
	for _, name := range []string{"color_extract", "rgb", "render", "include", "get"} {
		if _, ok := r.Filter(name); ok {
			t.Errorf("%q is both hallucinated and valid", name)
		}
	}
}

func TestFilterSpecs(t *testing.T) {
	r := Default()
	replace, _ := r.Filter("replace")
	if replace.Min != 2 || replace.Max != 2 || replace.ArgAt(0) != ArgString {
		t.Errorf("replace spec = %+v", replace)
	}
	plus, _ := r.Filter("plus")
	if plus.ArgAt(0) != ArgNumber || plus.ArgAt(3) != ArgAny {
		t.Errorf("plus spec = %+v", plus)
	}
	imageURL, _ := r.Filter("image_url")
	if !imageURL.Keywords || imageURL.Max != 0 {
		t.Errorf("image_url spec = %+v", imageURL)
	}
}

func TestSuggestFilter(t *testing.T) {
	r := Default()
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"upcse", "upcase", true},
		{"downcsae", "downcase", true},
		{"image_ulr", "image_url", true},
		{"money_with", "money_with_currency", true},
		{"zzzzzzzzzzzz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := r.SuggestFilter(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("SuggestFilter(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCharacterTables(t *testing.T) {
	r := Default()
	if op, ok := r.CalcGlyph('×'); !ok || op != "*" {
		t.Errorf("CalcGlyph(×) = (%q, %v)", op, ok)
	}
	if q, ok := r.SmartPunct('“'); !ok || q != `"` {
		t.Errorf("SmartPunct(“) = (%q, %v)", q, ok)
	}
	if !r.ZeroWidth('\u200B') || r.ZeroWidth('a') {
		t.Error("ZeroWidth mismatch")
	}
	if !r.UserControlled("block.settings.title") || r.UserControlled("blocks.size") {
		t.Error("UserControlled mismatch")
	}
	if !r.UserControlled("product.title") || r.UserControlled("productive") {
		t.Error("UserControlled must match whole path segments")
	}
	if !r.UserControlled("section.settings.heading") || r.UserControlled("section.id") {
		t.Error("section settings must be user-controlled, section.id must not")
	}
}

func TestThemeStoreHosts(t *testing.T) {
	r := Default()
	tests := []struct {
		name string
		fn   func(string) bool
		url  string
		want bool
	}{
		{"shopify cdn", r.ScriptHostAllowed, "https://cdn.shopify.com/s/files/app.js", true},
		{"jquery", r.ScriptHostAllowed, "//ajax.googleapis.com/ajax/libs/jquery/3.7.1/jquery.min.js", true},
		{"other googleapis", r.ScriptHostAllowed, "https://ajax.googleapis.com/ajax/libs/angularjs/1.8.2/angular.js", false},
		{"lookalike host", r.ScriptHostAllowed, "https://cdn.shopify.com.example.net/x.js", false},
		{"foreign script", r.ScriptHostAllowed, "http://unpkg.com/x.js", false},
		{"google fonts", r.StylesheetHostAllowed, "https://fonts.googleapis.com/css2?family=Inter", true},
		{"foreign css", r.StylesheetHostAllowed, "https://cdnjs.cloudflare.com/a.css", false},
		{"import fonts", r.ImportHostAllowed, "HTTPS://FONTS.GOOGLEAPIS.COM/css", true},
		{"import cdn", r.ImportHostAllowed, "https://cdn.shopify.com/a.css", false},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.url); got != tt.want {
			t.Errorf("%s: %s allowed = %v, want %v", tt.name, tt.url, got, tt.want)
		}
	}
	if !r.ConsoleMethod("debug") || r.ConsoleMethod("table") {
		t.Error("ConsoleMethod mismatch")
	}
}

func TestConcatExempt(t *testing.T) {
	r := Default()
	if !r.ConcatExempt("card_style = 'a' | append: b") || !r.ConcatExempt("img_SRCSET = x") {
		t.Error("style and srcset assigns must be exempt")
	}
	if r.ConcatExempt("label = 'a' | append: b") {
		t.Error("plain assign must not be exempt")
	}
}

func TestSchemaTables(t *testing.T) {
	r := Default()
	if !r.SettingType("range") || r.SettingType("file") {
		t.Error("setting type whitelist mismatch")
	}
	if to, ok := r.TypeRemap("file"); !ok || to != "video" {
		t.Errorf("TypeRemap(file) = (%q, %v)", to, ok)
	}
	if !r.AppBlockKey("enabled_on") {
		t.Error("enabled_on must be an app-block key")
	}
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"no filters", "version: x\n", "no filters"},
		{"bad arg type", "filters:\n  f: {args: [color]}\n", "unknown argument type"},
		{"max below min", "filters:\n  f: {min: 2, max: 1}\n", "max 1 < min 2"},
		{"multi rune glyph", "filters:\n  f: {}\ncharacters:\n  calc_glyphs:\n    \"ab\": \"-\"\n", "single character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
