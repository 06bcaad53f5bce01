package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"liquidlint/internal/diag"
	"liquidlint/internal/source"
)

func finding(code diag.Code, sev diag.Severity) *diag.Diagnostic {
	return diag.New(sev, code, source.Span{Start: 1, End: 2}, code.Title())
}

func TestProductionFailsOnError(t *testing.T) {
	p, err := New(Production)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kept, fail := Aggregate([]*diag.Diagnostic{finding(diag.SchemaMissingLabel, diag.SevWarning)}, p)
	if len(kept) != 1 || fail {
		t.Errorf("warning: kept=%d fail=%v", len(kept), fail)
	}
	_, fail = Aggregate([]*diag.Diagnostic{
		finding(diag.SchemaMissingLabel, diag.SevWarning),
		finding(diag.SchemaMissingName, diag.SevError),
	}, p)
	if !fail {
		t.Error("error finding did not fail production")
	}
}

func TestDevelopmentFailsOnlyOnCritical(t *testing.T) {
	p, err := New("Development")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name != Development {
		t.Errorf("name = %q", p.Name)
	}
	kept, fail := Aggregate([]*diag.Diagnostic{
		finding(diag.CharSmartPunctText, diag.SevInfo),
		finding(diag.SchemaMissingName, diag.SevError),
	}, p)
	if len(kept) != 1 || fail {
		t.Errorf("kept=%d fail=%v", len(kept), fail)
	}
	_, fail = Aggregate([]*diag.Diagnostic{finding(diag.SchemaInvalidJSON, diag.SevCritical)}, p)
	if !fail {
		t.Error("critical finding did not fail development")
	}
}

func TestComprehensiveReportsInfo(t *testing.T) {
	p, err := New(Comprehensive)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kept, fail := Aggregate([]*diag.Diagnostic{finding(diag.CharSmartPunctText, diag.SevInfo)}, p)
	if len(kept) != 1 || fail {
		t.Errorf("kept=%d fail=%v", len(kept), fail)
	}
}

func TestConstructionErrors(t *testing.T) {
	tests := []struct {
		name string
		prof string
		opts []Option
		want error
	}{
		{"unknown profile", "staging", nil, ErrUnknownProfile},
		{"negative threshold", Development, []Option{WithThreshold("filter_chain", -1)}, ErrNegativeThreshold},
		{"unknown threshold", Development, []Option{WithThreshold("depth", 3)}, ErrUnknownCategory},
		{"schema off in production", Production, []Option{WithCategory(diag.CatSchema, false)}, ErrRequiredDomain},
		{"css off in production", Production, []Option{WithDomain(diag.DomCSS, false)}, ErrRequiredDomain},
		{"engine toggle", Development, []Option{WithCategory(diag.CatEngine, false)}, ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.prof, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := New(Development, WithCategory(diag.CatSchema, false)); err != nil {
		t.Errorf("schema off in development: %v", err)
	}
}

func TestSeverityOverride(t *testing.T) {
	p, err := New(Production, WithSeverity(diag.SchemaMissingLabel, diag.SevError))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	orig := finding(diag.SchemaMissingLabel, diag.SevWarning)
	kept, fail := Aggregate([]*diag.Diagnostic{orig}, p)
	if len(kept) != 1 || kept[0].Severity != diag.SevError || !fail {
		t.Fatalf("kept=%v fail=%v", kept, fail)
	}
	if orig.Severity != diag.SevWarning {
		t.Error("override mutated the input finding")
	}
	if _, err := New(Production, WithSeverity(diag.UnknownCode, diag.SevError)); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("unknown code override: %v", err)
	}
}

func TestCategoryAndDomainFiltering(t *testing.T) {
	p, err := New(Development,
		WithCategory(diag.CatPerformance, false),
		WithDomain(diag.DomPlatform, false),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kept, _ := Aggregate([]*diag.Diagnostic{
		finding(diag.PerfUnboundedLoop, diag.SevCritical),
		finding(diag.CharZeroWidthCode, diag.SevError),
		finding(diag.CharCalcGlyph, diag.SevCritical),
		finding(diag.EngInternal, diag.SevInfo),
	}, p)
	if len(kept) != 2 || kept[0].Code != diag.CharCalcGlyph || kept[1].Code != diag.EngInternal {
		t.Errorf("kept = %v", kept)
	}
	if !p.DisabledDomains()[diag.DomPlatform] || len(p.DisabledDomains()) != 1 {
		t.Errorf("disabled = %v", p.DisabledDomains())
	}
}

func TestFingerprint(t *testing.T) {
	a, _ := New(Development)
	b, _ := New(Development)
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical profiles differ")
	}
	c, _ := New(Development, WithThreshold("image_width", 2000))
	d, _ := New(Development, WithSeverity(diag.PerfImageWidth, diag.SevError))
	if a.Fingerprint() == c.Fingerprint() || a.Fingerprint() == d.Fingerprint() || c.Fingerprint() == d.Fingerprint() {
		t.Error("fingerprint ignores settings")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
profile = "production"
min_report = "info"

[categories]
performance = false
theme_store = false

[character_safety]
platform = true

[thresholds]
image_width = 2400
range_steps = 50
concat_chain = 12

[severity]
SCH4011 = "error"
`)
	p, err := LoadConfig(path, "")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if p.Name != Production || p.MinReport != diag.SevInfo || p.MinFail != diag.SevError {
		t.Errorf("profile = %+v", p)
	}
	if p.Enabled(diag.CatPerformance) || p.Enabled(diag.CatThemeStore) || !p.Enabled(diag.CatSchema) {
		t.Error("category toggles not applied")
	}
	if p.Thresholds.ImageWidth != 2400 || p.Thresholds.RangeSteps != 50 || p.Thresholds.LoopNesting != 4 ||
		p.Thresholds.ConcatChain != 12 || p.Thresholds.LiquidBlockLines != 50 {
		t.Errorf("thresholds = %+v", p.Thresholds)
	}
	if p.SeverityOf(diag.SchemaMissingLabel, diag.SevWarning) != diag.SevError {
		t.Error("severity override not applied")
	}

	p, err = LoadConfig(path, Comprehensive)
	if err != nil || p.Name != Comprehensive {
		t.Errorf("override: %v %v", p, err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"negative", "[thresholds]\nloop_nesting = -2\n", ErrNegativeThreshold},
		{"unknown key", "colour = true\n", ErrUnknownCategory},
		{"unknown category", "[categories]\nstyle = false\n", ErrUnknownCategory},
		{"unknown profile", "profile = \"fast\"\n", ErrUnknownProfile},
		{"required", "profile = \"production\"\n[categories]\nschema = false\n", ErrRequiredDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body), "")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := LoadConfig(writeConfig(t, "profile = [\n"), ""); err == nil {
		t.Error("malformed TOML accepted")
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "sections", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := FindConfig(nested); err != nil || ok {
		t.Fatalf("found config before writing one: %v %v", ok, err)
	}
	want := filepath.Join(root, ConfigName)
	if err := os.WriteFile(want, []byte("profile = \"development\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, ok, err := FindConfig(nested)
	if err != nil || !ok || got != want {
		t.Errorf("FindConfig = %q %v %v", got, ok, err)
	}
}
