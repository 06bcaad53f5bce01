package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"liquidlint/internal/engine"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file.liquid|directory|->...",
	Short: "Validate Liquid templates",
	Long:  `Run every enabled validator over the given templates (or all *.liquid files within directories) and report findings according to the profile`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|short)")
	checkCmd.Flags().Bool("with-notes", false, "include finding notes in output")
	checkCmd.Flags().Bool("suggest", false, "include available fixes in output")
	checkCmd.Flags().Bool("preview", false, "show a before/after preview of each fix (implies --suggest)")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

// readRenderFlags reads the output flags shared by check and fix.
func readRenderFlags(cmd *cobra.Command, s runSettings) (renderOpts, error) {
	o := renderOpts{color: s.color, timings: s.timings}
	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return o, fmt.Errorf("failed to get format flag: %w", err)
	}
	if o.format, err = readFormat(formatStr); err != nil {
		return o, err
	}
	if o.notes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return o, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if o.fixes, err = cmd.Flags().GetBool("suggest"); err != nil {
		return o, fmt.Errorf("failed to get suggest flag: %w", err)
	}
	if o.preview, err = cmd.Flags().GetBool("preview"); err != nil {
		return o, fmt.Errorf("failed to get preview flag: %w", err)
	}
	if o.preview {
		o.fixes = true
	}
	if o.fullPath, err = cmd.Flags().GetBool("fullpath"); err != nil {
		return o, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if o.format != formatPretty {
		o.color = false
	}
	return o, nil
}

// runCheck analyzes the templates, prints the reports and returns errFailed
// when the profile fails the run.
func runCheck(cmd *cobra.Command, args []string) error {
	s, err := readSettings(cmd)
	if err != nil {
		return err
	}
	ro, err := readRenderFlags(cmd, s)
	if err != nil {
		return err
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

	analyze := func(sink engine.ProgressSink) (*engine.Result, error) {
		eng, err := s.newEngine(prof, sink)
		if err != nil {
			return nil, err
		}
		return eng.Analyze(cmd.Context(), inputs)
	}
	var res *engine.Result
	if shouldUseTUI(s.ui, len(inputs)) {
		res, err = runWithUI("checking", inputPaths(inputs), engine.StageValidate, analyze)
	} else {
		res, err = analyze(nil)
	}
	if err != nil {
		return err
	}

	if err := renderReports(cmd.OutOrStdout(), res.Reports, res.Pass, ro); err != nil {
		return err
	}
	if !res.Pass {
		return errFailed
	}
	return nil
}

func inputPaths(inputs []engine.Input) []string {
	out := make([]string, len(inputs))
	for i, in := range inputs {
		out[i] = in.Path
	}
	return out
}
