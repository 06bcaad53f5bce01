package diagfmt

import (
	"encoding/json"
	"io"
	"strings"

	"liquidlint/internal/diag"
	"liquidlint/internal/source"
)

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// FixEditJSON представляет одно редактирование для JSON
type FixEditJSON struct {
	Location LocationJSON `json:"location"`
	NewText  string       `json:"new_text"`
	OldText  string       `json:"old_text,omitempty"`
}

// FixJSON представляет предложение по исправлению для JSON
type FixJSON struct {
	Title       string        `json:"title"`
	Edits       []FixEditJSON `json:"edits"`
	BeforeLines []string      `json:"before_lines,omitempty"`
	AfterLines  []string      `json:"after_lines,omitempty"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity   string       `json:"severity"`
	Code       string       `json:"code"`
	Category   string       `json:"category"`
	Domain     string       `json:"domain,omitempty"`
	Message    string       `json:"message"`
	Location   LocationJSON `json:"location"`
	Notes      []NoteJSON   `json:"notes,omitempty"`
	Suggestion string       `json:"suggestion,omitempty"`
	Fix        *FixJSON     `json:"fix,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

// FileJSON is the per-file entry of a run report.
type FileJSON struct {
	Path          string           `json:"path"`
	Profile       string           `json:"profile"`
	Encoding      string           `json:"encoding,omitempty"`
	EncodingError string           `json:"encoding_error,omitempty"`
	ShouldFail    bool             `json:"should_fail"`
	Cached        bool             `json:"cached,omitempty"`
	Diagnostics   []DiagnosticJSON `json:"diagnostics"`
	Applied       []string         `json:"applied,omitempty"`
	Skipped       []string         `json:"skipped,omitempty"`
}

// RunJSON is the root of a multi-file report.
type RunJSON struct {
	Pass  bool       `json:"pass"`
	Files []FileJSON `json:"files"`
	Count int        `json:"count"`
}

// makeLocation создаёт LocationJSON из Span
func makeLocation(span source.Span, fs *source.FileSet, opts JSONOpts) LocationJSON {
	f := fs.Get(span.File)
	loc := LocationJSON{
		File:      formatPath(f, opts.PathMode, opts.BaseDir),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if opts.IncludePositions {
		startPos, endPos := fs.Resolve(span)
		loc.StartLine = startPos.Line
		loc.StartCol = startPos.Col
		loc.EndLine = endPos.Line
		loc.EndCol = endPos.Col
	}
	return loc
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(diags []*diag.Diagnostic, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	maxItems := len(diags)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	out := make([]DiagnosticJSON, 0, maxItems)
	for _, d := range diags[:maxItems] {
		dj := DiagnosticJSON{
			Severity:   d.Severity.String(),
			Code:       d.Code.ID(),
			Category:   d.Category().String(),
			Message:    d.Message,
			Location:   makeLocation(d.Primary, fs, opts),
			Suggestion: d.Suggestion,
		}
		if dom := d.Domain(); dom != diag.DomNone {
			dj.Domain = dom.String()
		}

		if opts.IncludeNotes && len(d.Notes) > 0 {
			dj.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				dj.Notes[j] = NoteJSON{
					Message:  note.Msg,
					Location: makeLocation(note.Span, fs, opts),
				}
			}
		}

		if opts.IncludeFixes && d.Fixable() {
			fj := &FixJSON{
				Title: d.Fix.Title,
				Edits: make([]FixEditJSON, len(d.Fix.Edits)),
			}
			for k, edit := range d.Fix.Edits {
				fj.Edits[k] = FixEditJSON{
					Location: makeLocation(edit.Span, fs, opts),
					NewText:  edit.NewText,
					OldText:  edit.OldText,
				}
			}
			if opts.IncludePreviews {
				if pv, err := buildFixPreview(fs, d.Fix); err == nil {
					fj.BeforeLines = pv.before
					fj.AfterLines = pv.after
				}
			}
			dj.Fix = fj
		}

		out = append(out, dj)
	}

	return DiagnosticsOutput{Diagnostics: out, Count: len(out)}
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, diags []*diag.Diagnostic, fs *source.FileSet, opts JSONOpts) error {
	return encode(w, BuildDiagnosticsOutput(diags, fs, opts))
}

// WriteRun serializes a run report.
func WriteRun(w io.Writer, run RunJSON) error {
	run.Count = 0
	for _, f := range run.Files {
		run.Count += len(f.Diagnostics)
	}
	return encode(w, run)
}

func encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Short writes one line per diagnostic in the golden-test format.
func Short(w io.Writer, diags []*diag.Diagnostic, fs *source.FileSet) error {
	text := diag.FormatShortDiagnostics(diags, fs)
	if text == "" {
		return nil
	}
	_, err := io.WriteString(w, strings.TrimRight(text, "\n")+"\n")
	return err
}
