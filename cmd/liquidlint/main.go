package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"liquidlint/internal/version"
)

// errFailed is returned when the profile fails the run; findings are
// already printed, so main only sets the exit code.
var errFailed = errors.New("run failed")

const (
	exitFailed = 1
	exitUsage  = 2
)

var rootCmd = &cobra.Command{
	Use:           "liquidlint",
	Short:         "Static validator and auto-fixer for Liquid templates",
	Long:          `liquidlint checks Liquid theme templates for structural, expression, schema, character-safety, performance and Theme Store problems, and rewrites the ones it can fix.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("profile", "", "reporting profile (development|comprehensive|production); env LIQUIDLINT_PROFILE")
	rootCmd.PersistentFlags().String("config", "", "path to liquidlint.toml (default: search upwards); env LIQUIDLINT_CONFIG")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("jobs", 0, "max parallel workers (0=auto)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of findings per validator and file")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0=off)")
	rootCmd.PersistentFlags().Bool("cache", false, "reuse findings from the on-disk cache")
	rootCmd.PersistentFlags().String("cache-dir", "", "cache directory (default: user cache dir)")
	rootCmd.PersistentFlags().String("ui", "auto", "progress UI (auto|on|off)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write heap profile to file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write Go runtime trace to file")
}

// main loads .env defaults and executes the root command. Exit status is 1
// when the profile fails the run and 2 for usage or I/O errors.
func main() {
	// .env не обязателен
	_ = godotenv.Load() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, errFailed):
		os.Exit(exitFailed)
	default:
		fmt.Fprintf(os.Stderr, "liquidlint: %v\n", err)
		os.Exit(exitUsage)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
