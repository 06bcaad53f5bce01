package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"liquidlint/internal/diag"
	"liquidlint/internal/source"
)

func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	d := zeroWidthDiag(fs, "sections/t.liquid")

	var buf bytes.Buffer
	err := JSON(&buf, []*diag.Diagnostic{d}, fs, JSONOpts{
		IncludePositions: true,
		IncludeFixes:     true,
		IncludePreviews:  true,
	})
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput: %s", err, buf.String())
	}
	if output.Count != 1 || len(output.Diagnostics) != 1 {
		t.Fatalf("count = %d", output.Count)
	}
	got := output.Diagnostics[0]
	if got.Severity != "ERROR" || got.Code != "CHR5404" || got.Category != "character-safety" || got.Domain != "platform" {
		t.Errorf("header = %+v", got)
	}
	loc := got.Location
	if loc.File != "sections/t.liquid" || loc.StartByte != 4 || loc.EndByte != 7 || loc.StartLine != 2 || loc.StartCol != 3 {
		t.Errorf("location = %+v", loc)
	}
	if got.Fix == nil || len(got.Fix.Edits) != 1 || got.Fix.Edits[0].OldText != "\u200B" {
		t.Fatalf("fix = %+v", got.Fix)
	}
	if len(got.Fix.AfterLines) != 1 || got.Fix.AfterLines[0] != "\txy" {
		t.Errorf("after = %q", got.Fix.AfterLines)
	}
}

func TestJSONMaxAndOptionalParts(t *testing.T) {
	fs := source.NewFileSet()
	diags := []*diag.Diagnostic{zeroWidthDiag(fs, "a.liquid"), zeroWidthDiag(fs, "b.liquid")}

	out := BuildDiagnosticsOutput(diags, fs, JSONOpts{Max: 1})
	if out.Count != 1 || out.Diagnostics[0].Location.File != "a.liquid" {
		t.Fatalf("out = %+v", out)
	}
	d := out.Diagnostics[0]
	if d.Fix != nil || d.Location.StartLine != 0 {
		t.Errorf("fix and positions must be opt-in: %+v", d)
	}
}

func TestWriteRunCounts(t *testing.T) {
	fs := source.NewFileSet()
	diags := []*diag.Diagnostic{zeroWidthDiag(fs, "a.liquid")}
	run := RunJSON{Files: []FileJSON{
		{Path: "a.liquid", Profile: "development", Diagnostics: BuildDiagnosticsOutput(diags, fs, JSONOpts{}).Diagnostics},
		{Path: "b.liquid", Profile: "development", Diagnostics: []DiagnosticJSON{}},
	}}
	var buf bytes.Buffer
	if err := WriteRun(&buf, run); err != nil {
		t.Fatal(err)
	}
	var back RunJSON
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Count != 1 || len(back.Files) != 2 {
		t.Errorf("run = %+v", back)
	}
}

func TestShort(t *testing.T) {
	fs := source.NewFileSet()
	var buf bytes.Buffer
	if err := Short(&buf, []*diag.Diagnostic{zeroWidthDiag(fs, "a.liquid")}, fs); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "error CHR5404 a.liquid:2:3 zero width space\n" {
		t.Errorf("short = %q", got)
	}
	buf.Reset()
	if err := Short(&buf, nil, fs); err != nil || buf.Len() != 0 {
		t.Errorf("empty short = %q, %v", buf.String(), err)
	}
}
