package diagfmt

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"liquidlint/internal/diag"
	"liquidlint/internal/source"
)

type palette struct {
	info, warning, err, critical *color.Color

	code, path, gutter, caret *color.Color
	note, help, fix           *color.Color
	removed, added            *color.Color
}

func newPalette(enabled bool) *palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		// глобальный color.NoColor смотрит на stdout, а писать можем куда угодно
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return &palette{
		info:     mk(color.FgCyan, color.Bold),
		warning:  mk(color.FgYellow, color.Bold),
		err:      mk(color.FgRed, color.Bold),
		critical: mk(color.FgMagenta, color.Bold),
		code:     mk(color.Bold),
		path:     mk(color.FgWhite, color.Bold),
		gutter:   mk(color.FgBlue),
		caret:    mk(color.FgRed, color.Bold),
		note:     mk(color.FgCyan),
		help:     mk(color.FgGreen),
		fix:      mk(color.FgGreen, color.Bold),
		removed:  mk(color.FgRed),
		added:    mk(color.FgGreen),
	}
}

func (p *palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevCritical:
		return p.critical
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warning
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Порядок не меняется (ожидается diag.SortDiagnostics заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем notes, help и fix.
// Невидимые символы в строке показываются как <U+XXXX>.
func Pretty(w io.Writer, diags []*diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	var b strings.Builder
	for i, d := range diags {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeDiagnostic(&b, d, fs, opts, p)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeDiagnostic(b *strings.Builder, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p *palette) {
	f := fs.Get(d.Primary.File)
	pos := f.Position(d.Primary.Start)
	fmt.Fprintf(b, "%s: %s %s: %s\n",
		p.path.Sprintf("%s:%d:%d", formatPath(f, opts.PathMode, opts.BaseDir), pos.Line, pos.Col),
		p.severity(d.Severity).Sprint(d.Severity),
		p.code.Sprint(d.Code.ID()),
		d.Message)
	writeSnippet(b, f, d.Primary, opts, p)

	if opts.ShowNotes {
		for _, n := range d.Notes {
			nf := fs.Get(n.Span.File)
			np := nf.Position(n.Span.Start)
			fmt.Fprintf(b, "  %s %s:%d:%d: %s\n", p.note.Sprint("= note:"),
				formatPath(nf, opts.PathMode, opts.BaseDir), np.Line, np.Col, n.Msg)
		}
	}
	if d.Suggestion != "" {
		fmt.Fprintf(b, "  %s %s\n", p.help.Sprint("= help:"), d.Suggestion)
	}
	if opts.ShowFixes && d.Fixable() {
		fmt.Fprintf(b, "  %s %s\n", p.fix.Sprint("= fix:"), d.Fix.Title)
		if opts.ShowPreview {
			if pv, err := buildFixPreview(fs, d.Fix); err == nil {
				for _, l := range pv.before {
					fmt.Fprintf(b, "    %s\n", p.removed.Sprint("- "+visibleLine(l)))
				}
				for _, l := range pv.after {
					fmt.Fprintf(b, "    %s\n", p.added.Sprint("+ "+visibleLine(l)))
				}
			}
		}
	}
}

func writeSnippet(b *strings.Builder, f *source.File, sp source.Span, opts PrettyOpts, p *palette) {
	start, end := f.Position(sp.Start), f.Position(sp.End)
	gutterW := len(fmt.Sprint(start.Line))

	first := max(1, int(start.Line)-int(opts.Context))
	for ln := first; ln < int(start.Line); ln++ {
		text, _, _ := renderLine(f.GetLine(source.Off(ln)), 0, 0)
		fmt.Fprintf(b, "%s %s\n", p.gutter.Sprintf("%*d |", gutterW, ln), clip(text, opts.Width))
	}

	line := f.GetLine(start.Line)
	lineStart := lineStartOffset(f, start.Line)
	colStart := min(int(sp.Start-lineStart), len(line))
	colEnd := len(line)
	if end.Line == start.Line {
		colEnd = min(int(sp.End-lineStart), len(line))
	}
	text, pad, width := renderLine(line, colStart, colEnd)
	if opts.Width == 0 || pad+width <= int(opts.Width) {
		text = clip(text, opts.Width)
	}
	fmt.Fprintf(b, "%s %s\n", p.gutter.Sprintf("%*d |", gutterW, start.Line), text)
	fmt.Fprintf(b, "%s %s%s\n", p.gutter.Sprintf("%*s |", gutterW, ""),
		strings.Repeat(" ", pad), p.caret.Sprint("^"+strings.Repeat("~", width-1)))
}

// renderLine returns the printable form of line and the display column and
// width of the byte range [start, end).
func renderLine(line string, start, end int) (text string, pad, width int) {
	var b strings.Builder
	for i, r := range line {
		piece := visibleRune(r)
		w := runewidth.StringWidth(piece)
		switch {
		case i < start:
			pad += w
		case i < end:
			width += w
		}
		b.WriteString(piece)
	}
	return b.String(), pad, max(width, 1)
}

func visibleLine(line string) string {
	text, _, _ := renderLine(line, 0, 0)
	return text
}

func visibleRune(r rune) string {
	switch {
	case r == '\t':
		return "    "
	case r == ' ' || unicode.IsPrint(r):
		return string(r)
	default:
		return fmt.Sprintf("<U+%04X>", r)
	}
}

func clip(text string, width uint8) string {
	if width == 0 || runewidth.StringWidth(text) <= int(width) {
		return text
	}
	return runewidth.Truncate(text, int(width), "…")
}
