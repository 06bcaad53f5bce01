package diag

import (
	"fmt"
	"sort"
	"strings"

	"liquidlint/internal/source"
)

type shortDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatShortDiagnostics renders diagnostics into a stable, single-line-per-entry
// representation used by golden tests and the CLI short output:
//
//	critical EXP3004 snippets/card.liquid:3:14 HALLUCINATED FILTER: ...
func FormatShortDiagnostics(diags []*Diagnostic, fs *source.FileSet) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}

	rendered := make([]shortDiagnostic, 0, len(diags))
	for _, d := range diags {
		file := fs.Get(d.Primary.File)
		start := file.Position(d.Primary.Start)
		rendered = append(rendered, shortDiagnostic{
			Severity: strings.ToLower(d.Severity.String()),
			Code:     d.Code.ID(),
			Path:     file.Path,
			Line:     start.Line,
			Column:   start.Col,
			Message:  sanitizeMessage(d.Message),
		})
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Column, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
