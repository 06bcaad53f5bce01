package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"liquidlint/internal/diag"
)

// ConfigName is the file FindConfig looks for.
const ConfigName = "liquidlint.toml"

// fileConfig mirrors liquidlint.toml.
type fileConfig struct {
	Profile         string            `toml:"profile"`
	MinReport       string            `toml:"min_report"`
	MinFail         string            `toml:"min_fail"`
	Categories      map[string]bool   `toml:"categories"`
	CharacterSafety map[string]bool   `toml:"character_safety"`
	Thresholds      map[string]int    `toml:"thresholds"`
	Severity        map[string]string `toml:"severity"`
}

// LoadConfig builds a profile from a TOML file. A non-empty name overrides
// the file's profile key; with neither, the development preset is used.
func LoadConfig(path, name string) (*Profile, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q: %w", path, undecoded[0].String(), ErrUnknownCategory)
	}
	if name == "" {
		name = cfg.Profile
	}
	if name == "" {
		name = Development
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p, err := New(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func (cfg *fileConfig) options() ([]Option, error) {
	var opts []Option
	if cfg.MinReport != "" {
		sev, err := diag.ParseSeverity(cfg.MinReport)
		if err != nil {
			return nil, fmt.Errorf("min_report: %w", err)
		}
		opts = append(opts, WithMinReport(sev))
	}
	if cfg.MinFail != "" {
		sev, err := diag.ParseSeverity(cfg.MinFail)
		if err != nil {
			return nil, fmt.Errorf("min_fail: %w", err)
		}
		opts = append(opts, WithMinFail(sev))
	}
	// ключи сортируются, чтобы первая ошибка была детерминированной
	for _, key := range sortedKeys(cfg.Categories) {
		c, err := diag.ParseCategory(key)
		if err != nil {
			return nil, fmt.Errorf("[categories] %s: %w", key, ErrUnknownCategory)
		}
		opts = append(opts, WithCategory(c, cfg.Categories[key]))
	}
	for _, key := range sortedKeys(cfg.CharacterSafety) {
		d, err := diag.ParseDomain(key)
		if err != nil {
			return nil, fmt.Errorf("[character_safety] %s: %w", key, ErrUnknownCategory)
		}
		opts = append(opts, WithDomain(d, cfg.CharacterSafety[key]))
	}
	for _, key := range sortedKeys(cfg.Thresholds) {
		opts = append(opts, WithThreshold(key, cfg.Thresholds[key]))
	}
	for _, key := range sortedKeys(cfg.Severity) {
		code, err := diag.ParseCode(strings.ToUpper(key))
		if err != nil {
			return nil, fmt.Errorf("[severity]: %w", err)
		}
		sev, err := diag.ParseSeverity(cfg.Severity[key])
		if err != nil {
			return nil, fmt.Errorf("[severity] %s: %w", key, err)
		}
		opts = append(opts, WithSeverity(code, sev))
	}
	return opts, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FindConfig walks up from startDir to locate liquidlint.toml.
func FindConfig(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}
