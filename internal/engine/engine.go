// Package engine runs the validators over a set of template files and,
// on request, rewrites them with the fixes the findings carry.
//
// The engine does no file I/O: callers pass contents in and persist the
// rewritten contents themselves.
package engine

import (
	"errors"
	"runtime"

	"liquidlint/internal/charsafe"
	"liquidlint/internal/diag"
	"liquidlint/internal/fix"
	"liquidlint/internal/observ"
	"liquidlint/internal/perf"
	"liquidlint/internal/profile"
	"liquidlint/internal/registry"
	"liquidlint/internal/schema"
	"liquidlint/internal/source"
	"liquidlint/internal/tags"
	"liquidlint/internal/token"
)

// DefaultFixPasses bounds AnalyzeAndFix rewrite passes per file.
const DefaultFixPasses = 5

// ErrNoProfile is returned by New without a profile.
var ErrNoProfile = errors.New("engine: profile is required")

// Input is one file to analyze.
type Input struct {
	Path    string
	Content []byte
}

// Report is the outcome for one file.
type Report struct {
	Path       string
	Encoding   string
	Findings   []*diag.Diagnostic // kept by the profile, ordered by position
	All        []*diag.Diagnostic // before profile filtering
	Profile    string
	ShouldFail bool
	// EncodingError is a *lexer.EncodingError when the file could not be scanned.
	EncodingError error
	Timings       observ.Report
	Cached        bool
	File          *source.File
	Files         *source.FileSet // resolves Findings spans

	fences []token.RegionKind
}

// Result is the outcome of Analyze.
type Result struct {
	Reports []Report
	Pass    bool // no report has ShouldFail
}

// FixResult is the outcome of AnalyzeAndFix for one file.
type FixResult struct {
	Report  Report // findings of the final content
	Content []byte
	Applied []fix.Applied
	Skipped []fix.Skipped
	Changed bool
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Jobs        int                // worker limit, GOMAXPROCS by default
	Registry    *registry.Registry // registry.Default() by default
	Cache       *Cache
	Progress    ProgressSink
	FixPasses   int
	MaxFindings int // per file, 0 means no limit
}

// Engine is safe for concurrent use; it holds only read-only state.
type Engine struct {
	prof *profile.Profile
	reg  *registry.Registry
	opts Options

	tagsOpts   tags.Options
	schemaOpts schema.Options
	perfOpts   perf.Options
	charOpts   charsafe.Options
}

// New validates the configuration. A nil profile is an error.
func New(p *profile.Profile, opts Options) (*Engine, error) {
	if p == nil {
		return nil, ErrNoProfile
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	if opts.FixPasses <= 0 {
		opts.FixPasses = DefaultFixPasses
	}
	reg := opts.Registry
	if reg == nil {
		reg = registry.Default()
	}
	t := p.Thresholds
	return &Engine{
		prof:       p,
		reg:        reg,
		opts:       opts,
		tagsOpts:   tags.Options{MaxNesting: t.MaxNesting},
		schemaOpts: schema.Options{RangeSteps: t.RangeSteps, MaxBlocks: t.MaxBlocks},
		perfOpts: perf.Options{
			FilterChain:        t.FilterChain,
			ConditionalNesting: t.ConditionalNesting,
			LoopNesting:        t.LoopNesting,
			ImageWidth:         t.ImageWidth,
			ConcatChain:        t.ConcatChain,
			LiquidBlockLines:   t.LiquidBlockLines,
		},
		charOpts: charsafe.Options{Disabled: p.DisabledDomains()},
	}, nil
}

// Profile returns the profile the engine reports with.
func (e *Engine) Profile() *profile.Profile { return e.prof }

// Registry returns the lookup tables in use.
func (e *Engine) Registry() *registry.Registry { return e.reg }
