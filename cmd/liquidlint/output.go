package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"liquidlint/internal/diag"
	"liquidlint/internal/diagfmt"
	"liquidlint/internal/engine"
)

type outputFormat string

const (
	formatPretty outputFormat = "pretty"
	formatJSON   outputFormat = "json"
	formatShort  outputFormat = "short"
)

func readFormat(value string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case formatPretty, formatJSON, formatShort:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s (expected pretty|json|short)", value)
	}
}

// renderOpts are the per-command output switches.
type renderOpts struct {
	format    outputFormat
	color     bool
	notes     bool
	fixes     bool
	preview   bool
	fullPath  bool
	timings   bool
	fixResult map[string]engine.FixResult // только для fix
}

func (o renderOpts) pathMode() diagfmt.PathMode {
	if o.fullPath {
		return diagfmt.PathModeAbsolute
	}
	return diagfmt.PathModeAuto
}

func renderReports(w io.Writer, reports []engine.Report, pass bool, o renderOpts) error {
	switch o.format {
	case formatJSON:
		return diagfmt.WriteRun(w, buildRunJSON(reports, pass, o))
	case formatShort:
		for _, r := range reports {
			if r.EncodingError != nil {
				if _, err := fmt.Fprintf(w, "critical ENCODING %s:1:1 %v\n", r.Path, r.EncodingError); err != nil {
					return err
				}
				continue
			}
			if err := diagfmt.Short(w, r.Findings, r.Files); err != nil {
				return err
			}
		}
		return nil
	default:
		return renderPretty(w, reports, pass, o)
	}
}

func renderPretty(w io.Writer, reports []engine.Report, pass bool, o renderOpts) error {
	popts := diagfmt.PrettyOpts{
		Color:       o.color,
		Context:     1,
		PathMode:    o.pathMode(),
		ShowNotes:   o.notes,
		ShowFixes:   o.fixes,
		ShowPreview: o.preview,
	}
	bad := color.New(color.FgRed, color.Bold)
	good := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.Faint)
	for _, c := range []*color.Color{bad, good, dim} {
		if o.color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var counts [diag.SevCritical + 1]int
	total := 0
	for _, r := range reports {
		if r.EncodingError != nil {
			if _, err := fmt.Fprintf(w, "%s: %s %v\n\n", r.Path, bad.Sprint("CRITICAL"), r.EncodingError); err != nil {
				return err
			}
			counts[diag.SevCritical]++
			total++
			continue
		}
		if len(r.Findings) > 0 {
			if err := diagfmt.Pretty(w, r.Findings, r.Files, popts); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		for _, d := range r.Findings {
			counts[d.Severity]++
			total++
		}
		if fr, ok := o.fixResult[r.Path]; ok {
			if err := renderFixSummary(w, r.Path, fr, dim); err != nil {
				return err
			}
		}
		if o.timings && len(r.Timings.Phases) > 0 {
			if _, err := fmt.Fprintf(w, "%s %s", dim.Sprint(r.Path), r.Timings.Summary()); err != nil {
				return err
			}
		}
	}

	verdict := good.Sprint("PASS")
	if !pass {
		verdict = bad.Sprint("FAIL")
	}
	profileName := ""
	if len(reports) > 0 {
		profileName = reports[0].Profile
	}
	_, err := fmt.Fprintf(w, "%s: %d file(s), %d finding(s) (%d critical, %d error, %d warning, %d info), profile %s\n",
		verdict, len(reports), total,
		counts[diag.SevCritical], counts[diag.SevError], counts[diag.SevWarning], counts[diag.SevInfo],
		profileName)
	return err
}

func renderFixSummary(w io.Writer, path string, fr engine.FixResult, dim *color.Color) error {
	for _, a := range fr.Applied {
		if _, err := fmt.Fprintf(w, "%s fixed %s: %s\n", path, a.Code.ID(), a.Title); err != nil {
			return err
		}
	}
	for _, s := range fr.Skipped {
		if _, err := fmt.Fprintf(w, "%s %s\n", path, dim.Sprintf("%s %s: %s", s.Reason, s.Code.ID(), s.Title)); err != nil {
			return err
		}
	}
	return nil
}

func buildRunJSON(reports []engine.Report, pass bool, o renderOpts) diagfmt.RunJSON {
	jopts := diagfmt.JSONOpts{
		IncludePositions: true,
		PathMode:         o.pathMode(),
		IncludeNotes:     o.notes,
		IncludeFixes:     o.fixes,
		IncludePreviews:  o.preview,
	}
	run := diagfmt.RunJSON{Pass: pass, Files: make([]diagfmt.FileJSON, 0, len(reports))}
	for _, r := range reports {
		fj := diagfmt.FileJSON{
			Path:        r.Path,
			Profile:     r.Profile,
			Encoding:    r.Encoding,
			ShouldFail:  r.ShouldFail,
			Cached:      r.Cached,
			Diagnostics: diagfmt.BuildDiagnosticsOutput(r.Findings, r.Files, jopts).Diagnostics,
		}
		if r.EncodingError != nil {
			fj.EncodingError = r.EncodingError.Error()
		}
		if fr, ok := o.fixResult[r.Path]; ok {
			for _, a := range fr.Applied {
				fj.Applied = append(fj.Applied, a.Code.ID()+": "+a.Title)
			}
			for _, s := range fr.Skipped {
				fj.Skipped = append(fj.Skipped, s.Code.ID()+": "+s.Reason)
			}
		}
		run.Files = append(run.Files, fj)
	}
	return run
}
