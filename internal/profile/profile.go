// Package profile selects which findings are reported and which fail a
// run, and loads that selection from options or a TOML file.
package profile

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"liquidlint/internal/diag"
)

const (
	Development   = "development"
	Comprehensive = "comprehensive"
	Production    = "production"
)

var (
	// ErrUnknownProfile indicates a profile name outside the presets.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrNegativeThreshold indicates a threshold below zero.
	ErrNegativeThreshold = errors.New("threshold must not be negative")
	// ErrRequiredDomain indicates an attempt to disable a domain the profile requires.
	ErrRequiredDomain = errors.New("domain is required by this profile")
	// ErrUnknownCategory indicates a category, sub-domain or threshold key that does not exist.
	ErrUnknownCategory = errors.New("unknown category")
)

// Thresholds are the numeric limits validators compare against.
type Thresholds struct {
	MaxNesting         int
	FilterChain        int
	ConditionalNesting int
	LoopNesting        int
	ImageWidth         int
	MaxBlocks          int
	RangeSteps         int
	ConcatChain        int
	LiquidBlockLines   int
}

// DefaultThresholds returns the limits used when nothing overrides them.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxNesting:         8,
		FilterChain:        10,
		ConditionalNesting: 5,
		LoopNesting:        4,
		ImageWidth:         3000,
		MaxBlocks:          50,
		RangeSteps:         101,
		ConcatChain:        8,
		LiquidBlockLines:   50,
	}
}

// thresholdFields maps configuration keys onto Thresholds fields.
var thresholdFields = map[string]func(*Thresholds) *int{
	"max_nesting":         func(t *Thresholds) *int { return &t.MaxNesting },
	"filter_chain":        func(t *Thresholds) *int { return &t.FilterChain },
	"conditional_nesting": func(t *Thresholds) *int { return &t.ConditionalNesting },
	"loop_nesting":        func(t *Thresholds) *int { return &t.LoopNesting },
	"image_width":         func(t *Thresholds) *int { return &t.ImageWidth },
	"max_blocks":          func(t *Thresholds) *int { return &t.MaxBlocks },
	"range_steps":         func(t *Thresholds) *int { return &t.RangeSteps },
	"concat_chain":        func(t *Thresholds) *int { return &t.ConcatChain },
	"liquid_block_lines":  func(t *Thresholds) *int { return &t.LiquidBlockLines },
}

// ThresholdKeys lists the configuration keys accepted by WithThreshold.
func ThresholdKeys() []string {
	return slices.Sorted(maps.Keys(thresholdFields))
}

// Profile is an immutable reporting policy.
type Profile struct {
	Name       string
	MinReport  diag.Severity
	MinFail    diag.Severity
	Thresholds Thresholds

	categories map[diag.Category]bool
	domains    map[diag.Domain]bool
	severity   map[diag.Code]diag.Severity
}

type preset struct {
	minReport, minFail diag.Severity
	required           []diag.Category
}

var presets = map[string]preset{
	Development:   {minReport: diag.SevWarning, minFail: diag.SevCritical},
	Comprehensive: {minReport: diag.SevInfo, minFail: diag.SevError},
	Production: {
		minReport: diag.SevWarning,
		minFail:   diag.SevError,
		required:  []diag.Category{diag.CatSchema, diag.CatCharacterSafety},
	},
}

// Names lists the preset names.
func Names() []string {
	return slices.Sorted(maps.Keys(presets))
}

// New builds a profile from a preset and options. Construction fails for
// unknown presets, negative thresholds and disabled required domains.
func New(name string, opts ...Option) (*Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	ps, ok := presets[key]
	if !ok {
		return nil, fmt.Errorf("%q (expected %s): %w", name, strings.Join(Names(), "|"), ErrUnknownProfile)
	}
	p := &Profile{
		Name:       key,
		MinReport:  ps.minReport,
		MinFail:    ps.minFail,
		Thresholds: DefaultThresholds(),
		categories: make(map[diag.Category]bool),
		domains:    make(map[diag.Domain]bool),
		severity:   make(map[diag.Code]diag.Severity),
	}
	for _, c := range diag.Categories() {
		p.categories[c] = true
	}
	p.categories[diag.CatEngine] = true
	for _, d := range diag.Domains() {
		p.domains[d] = true
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("profile %s: %w", key, err)
		}
	}
	if err := p.validate(ps); err != nil {
		return nil, fmt.Errorf("profile %s: %w", key, err)
	}
	return p, nil
}

func (p *Profile) validate(ps preset) error {
	for _, key := range ThresholdKeys() {
		if v := *thresholdFields[key](&p.Thresholds); v < 0 {
			return fmt.Errorf("%s = %d: %w", key, v, ErrNegativeThreshold)
		}
	}
	for _, c := range ps.required {
		if !p.categories[c] {
			return fmt.Errorf("%s: %w", c, ErrRequiredDomain)
		}
	}
	if slices.Contains(ps.required, diag.CatCharacterSafety) {
		for _, d := range diag.Domains() {
			if !p.domains[d] {
				return fmt.Errorf("character-safety.%s: %w", d, ErrRequiredDomain)
			}
		}
	}
	return nil
}

// Enabled reports whether findings of category c are produced.
func (p *Profile) Enabled(c diag.Category) bool {
	return c == diag.CatEngine || p.categories[c]
}

// DomainEnabled reports whether a character-safety sub-domain is checked.
func (p *Profile) DomainEnabled(d diag.Domain) bool {
	return d == diag.DomNone || p.domains[d]
}

// DisabledDomains returns the character-safety sub-domains switched off.
func (p *Profile) DisabledDomains() map[diag.Domain]bool {
	out := make(map[diag.Domain]bool)
	for _, d := range diag.Domains() {
		if !p.domains[d] {
			out[d] = true
		}
	}
	return out
}

// SeverityOf returns the effective severity for code, given its default.
func (p *Profile) SeverityOf(code diag.Code, def diag.Severity) diag.Severity {
	if s, ok := p.severity[code]; ok {
		return s
	}
	return def
}

// Fingerprint is a stable digest of every setting that affects findings.
func (p *Profile) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%d|%+v", p.Name, p.MinReport, p.MinFail, p.Thresholds)
	for _, c := range diag.Categories() {
		fmt.Fprintf(&b, "|%s=%t", c, p.categories[c])
	}
	for _, d := range diag.Domains() {
		fmt.Fprintf(&b, "|%s=%t", d, p.domains[d])
	}
	codes := slices.Sorted(maps.Keys(p.severity))
	for _, c := range codes {
		fmt.Fprintf(&b, "|%s=%s", c.ID(), p.severity[c])
	}
	return digest(b.String())
}
