package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"liquidlint/internal/cache"
	"liquidlint/internal/engine"
	"liquidlint/internal/profile"
)

const (
	envProfile = "LIQUIDLINT_PROFILE"
	envConfig  = "LIQUIDLINT_CONFIG"
)

// runSettings collects the persistent flags shared by check and fix.
type runSettings struct {
	profileName string
	configPath  string
	color       bool
	jobs        int
	timings     bool
	maxDiag     int
	useCache    bool
	cacheDir    string
	ui          uiMode
}

func readSettings(cmd *cobra.Command) (runSettings, error) {
	var s runSettings
	flags := cmd.Root().PersistentFlags()
	var err error

	if s.profileName, err = flags.GetString("profile"); err != nil {
		return s, fmt.Errorf("failed to get profile flag: %w", err)
	}
	if s.profileName == "" {
		s.profileName = os.Getenv(envProfile)
	}
	if s.configPath, err = flags.GetString("config"); err != nil {
		return s, fmt.Errorf("failed to get config flag: %w", err)
	}
	if s.configPath == "" {
		s.configPath = os.Getenv(envConfig)
	}
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return s, fmt.Errorf("failed to get color flag: %w", err)
	}
	if s.color, err = readColor(colorFlag); err != nil {
		return s, err
	}
	if s.jobs, err = flags.GetInt("jobs"); err != nil {
		return s, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if s.jobs < 0 {
		return s, fmt.Errorf("--jobs must not be negative")
	}
	if s.timings, err = flags.GetBool("timings"); err != nil {
		return s, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if s.maxDiag, err = flags.GetInt("max-diagnostics"); err != nil {
		return s, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if s.useCache, err = flags.GetBool("cache"); err != nil {
		return s, fmt.Errorf("failed to get cache flag: %w", err)
	}
	if s.cacheDir, err = flags.GetString("cache-dir"); err != nil {
		return s, fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return s, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if s.ui, err = readUIMode(uiFlag); err != nil {
		return s, err
	}
	return s, nil
}

func readColor(value string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

// resolveProfile: explicit config, then liquidlint.toml found upwards from
// the working directory, then the bare preset.
func (s runSettings) resolveProfile() (*profile.Profile, error) {
	path := s.configPath
	if path == "" {
		found, ok, err := profile.FindConfig(".")
		if err != nil {
			return nil, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		return profile.LoadConfig(path, s.profileName)
	}
	name := s.profileName
	if name == "" {
		name = profile.Development
	}
	return profile.New(name)
}

func withFixPasses(n int) func(*engine.Options) {
	return func(o *engine.Options) { o.FixPasses = n }
}

func (s runSettings) newEngine(p *profile.Profile, progress engine.ProgressSink, mods ...func(*engine.Options)) (*engine.Engine, error) {
	var err error
	opts := engine.Options{
		Jobs:        s.jobs,
		Progress:    progress,
		MaxFindings: s.maxDiag,
	}
	for _, mod := range mods {
		mod(&opts)
	}
	if s.useCache {
		dir := s.cacheDir
		if dir == "" {
			if dir, err = cache.Dir("liquidlint"); err != nil {
				return nil, err
			}
		}
		store, err := cache.Open(dir)
		if err != nil {
			return nil, err
		}
		opts.Cache = engine.NewCache(store)
	}
	return engine.New(p, opts)
}
