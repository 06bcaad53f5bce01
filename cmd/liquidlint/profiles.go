package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"liquidlint/internal/diag"
	"liquidlint/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List reporting profiles, or show the effective one with --effective",
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

func init() {
	profilesCmd.Flags().Bool("effective", false, "show the profile resolved from flags, environment and liquidlint.toml")
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	effective, err := cmd.Flags().GetBool("effective")
	if err != nil {
		return fmt.Errorf("failed to get effective flag: %w", err)
	}
	out := cmd.OutOrStdout()
	if effective {
		s, err := readSettings(cmd)
		if err != nil {
			return err
		}
		p, err := s.resolveProfile()
		if err != nil {
			return err
		}
		return describeProfile(out, p)
	}
	for _, name := range profile.Names() {
		p, err := profile.New(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%-14s report >= %-8s fail >= %s\n", p.Name, p.MinReport, p.MinFail); err != nil {
			return err
		}
	}
	return nil
}

func describeProfile(w io.Writer, p *profile.Profile) error {
	var b strings.Builder
	fmt.Fprintf(&b, "profile:    %s\n", p.Name)
	fmt.Fprintf(&b, "min_report: %s\n", p.MinReport)
	fmt.Fprintf(&b, "min_fail:   %s\n", p.MinFail)
	b.WriteString("categories:\n")
	for _, c := range diag.Categories() {
		fmt.Fprintf(&b, "  %-17s %v\n", c, p.Enabled(c))
	}
	b.WriteString("character_safety:\n")
	for _, d := range diag.Domains() {
		fmt.Fprintf(&b, "  %-17s %v\n", d, p.DomainEnabled(d))
	}
	t := p.Thresholds
	b.WriteString("thresholds:\n")
	for _, kv := range []struct {
		key string
		val int
	}{
		{"max_nesting", t.MaxNesting},
		{"filter_chain", t.FilterChain},
		{"conditional_nesting", t.ConditionalNesting},
		{"loop_nesting", t.LoopNesting},
		{"image_width", t.ImageWidth},
		{"max_blocks", t.MaxBlocks},
		{"range_steps", t.RangeSteps},
		{"concat_chain", t.ConcatChain},
		{"liquid_block_lines", t.LiquidBlockLines},
	} {
		fmt.Fprintf(&b, "  %-19s %d\n", kv.key, kv.val)
	}
	fmt.Fprintf(&b, "fingerprint: %s\n", p.Fingerprint())
	_, err := io.WriteString(w, b.String())
	return err
}
