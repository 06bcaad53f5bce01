package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"liquidlint/internal/diag"
	"liquidlint/internal/diagfmt"
	"liquidlint/internal/lexer"
	"liquidlint/internal/source"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.liquid",
	Short: "Print the token stream and fenced regions of a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type tokenJSON struct {
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	Markup string `json:"markup,omitempty"`
	Start  uint32 `json:"start"`
	End    uint32 `json:"end"`
	Line   uint32 `json:"line"`
	Col    uint32 `json:"col"`
	Inline bool   `json:"inline,omitempty"`
}

type regionJSON struct {
	Kind       string `json:"kind"`
	Tag        string `json:"tag"`
	Start      uint32 `json:"start"`
	End        uint32 `json:"end"`
	Terminated bool   `json:"terminated"`
}

type tokensOutput struct {
	Path     string       `json:"path"`
	Encoding string       `json:"encoding"`
	Tokens   []tokenJSON  `json:"tokens"`
	Regions  []regionJSON `json:"regions"`
}

func runTokenize(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}

	inputs, err := readInputs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	fs := source.NewFileSet()
	file := fs.Get(fs.Add(inputs[0].Path, inputs[0].Content, 0))
	bag := diag.NewBag(maxDiagnostics)
	unit, err := lexer.Scan(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}

	// Выводим диагностику сканера в stderr, если есть
	if bag.Len() > 0 {
		useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stderr))
		bag.Sort()
		if err := diagfmt.Pretty(cmd.ErrOrStderr(), bag.Items(), fs, diagfmt.PrettyOpts{Color: useColor, Context: 1}); err != nil {
			return err
		}
	}

	if format == "json" {
		return writeTokensJSON(cmd.OutOrStdout(), unit)
	}
	return writeTokensPretty(cmd.OutOrStdout(), unit)
}

func writeTokensPretty(w io.Writer, u *lexer.Unit) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("POS", "KIND", "TEXT")
	for _, tok := range u.Tokens {
		pos := u.File.Position(tok.Span.Start)
		text := tok.Markup
		if tok.Name != "" {
			text = tok.Name + " " + text
		}
		t.Row(fmt.Sprintf("%d:%d", pos.Line, pos.Col), tok.Kind.String(), strconv.Quote(runewidth.Truncate(text, 60, "...")))
	}
	for _, r := range u.Regions {
		pos := u.File.Position(r.Span.Start)
		t.Row(fmt.Sprintf("%d:%d", pos.Line, pos.Col), "region", fmt.Sprintf("%s (%s) terminated=%v", r.Kind, r.Tag, r.Terminated))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func writeTokensJSON(w io.Writer, u *lexer.Unit) error {
	out := tokensOutput{
		Path:     u.Path(),
		Encoding: u.Encoding,
		Tokens:   make([]tokenJSON, 0, len(u.Tokens)),
		Regions:  make([]regionJSON, 0, len(u.Regions)),
	}
	for _, tok := range u.Tokens {
		pos := u.File.Position(tok.Span.Start)
		out.Tokens = append(out.Tokens, tokenJSON{
			Kind:   tok.Kind.String(),
			Name:   tok.Name,
			Markup: tok.Markup,
			Start:  tok.Span.Start,
			End:    tok.Span.End,
			Line:   pos.Line,
			Col:    pos.Col,
			Inline: tok.Inline,
		})
	}
	for _, r := range u.Regions {
		out.Regions = append(out.Regions, regionJSON{
			Kind:       r.Kind.String(),
			Tag:        r.Tag,
			Start:      r.Span.Start,
			End:        r.Span.End,
			Terminated: r.Terminated,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
