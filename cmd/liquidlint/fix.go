package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"liquidlint/internal/engine"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] <file.liquid|directory|->...",
	Short: "Apply available fixes to Liquid templates",
	Long:  "Run the validators, apply every non-conflicting fix, re-validate until nothing changes, and write the results back. A single - reads stdin and writes the fixed template to stdout.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().String("format", "pretty", "report format (pretty|json|short)")
	fixCmd.Flags().Bool("with-notes", false, "include finding notes in output")
	fixCmd.Flags().Bool("suggest", false, "include fixes of remaining findings in output")
	fixCmd.Flags().Bool("preview", false, "show a before/after preview of each remaining fix (implies --suggest)")
	fixCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	fixCmd.Flags().Bool("dry-run", false, "report what would change without writing files")
	fixCmd.Flags().Int("passes", engine.DefaultFixPasses, "maximum rewrite passes per file")
}

func runFix(cmd *cobra.Command, args []string) error {
	s, err := readSettings(cmd)
	if err != nil {
		return err
	}
	ro, err := readRenderFlags(cmd, s)
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	passes, err := cmd.Flags().GetInt("passes")
	if err != nil {
		return fmt.Errorf("failed to get passes flag: %w", err)
	}
	if passes < 1 {
		return fmt.Errorf("--passes must be at least 1")
	}
	prof, err := s.resolveProfile()
	if err != nil {
		return err
	}
	paths, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found", templateExt)
	}
	toStdout := len(paths) == 1 && paths[0] == "-"
	inputs, err := readInputs(paths, cmd.InOrStdin())
	if err != nil {
		return err
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	work := func(sink engine.ProgressSink) ([]engine.FixResult, error) {
		eng, err := s.newEngine(prof, sink, withFixPasses(passes))
		if err != nil {
			return nil, err
		}
		return eng.AnalyzeAndFix(cmd.Context(), inputs)
	}
	var results []engine.FixResult
	if shouldUseTUI(s.ui, len(inputs)) && !toStdout {
		results, err = runWithUI("fixing", inputPaths(inputs), engine.StageFix, work)
	} else {
		results, err = work(nil)
	}
	if err != nil {
		return err
	}

	if toStdout {
		if _, err := cmd.OutOrStdout().Write(results[0].Content); err != nil {
			return err
		}
	} else if !dryRun {
		if err := writeFixed(results); err != nil {
			return err
		}
	}

	// отчёт уходит в stderr, если stdout занят шаблоном
	out := cmd.OutOrStdout()
	if toStdout {
		out = cmd.ErrOrStderr()
	}
	return reportFixes(out, results, ro)
}

func reportFixes(w io.Writer, results []engine.FixResult, ro renderOpts) error {
	reports := make([]engine.Report, len(results))
	ro.fixResult = make(map[string]engine.FixResult, len(results))
	pass := true
	for i, r := range results {
		reports[i] = r.Report
		ro.fixResult[r.Report.Path] = r
		if r.Report.ShouldFail {
			pass = false
		}
	}
	if err := renderReports(w, reports, pass, ro); err != nil {
		return err
	}
	if !pass {
		return errFailed
	}
	return nil
}

// writeFixed replaces every changed file atomically.
func writeFixed(results []engine.FixResult) error {
	for _, r := range results {
		if !r.Changed {
			continue
		}
		if err := atomic.WriteFile(r.Report.Path, bytes.NewReader(r.Content)); err != nil {
			return fmt.Errorf("failed to write %s: %w", r.Report.Path, err)
		}
	}
	return nil
}
