// Package registry holds the immutable lookup tables shared by all
// validators: known objects and filters, deprecated and hallucinated
// filter names, performance patterns and character rules.
//
// A Registry is built once (Default loads the embedded table) and shared by
// pointer. All tables are unexported and only reachable through read-only
// accessors, so concurrent use needs no locking.
package registry

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed data/registry.yaml
var embedded []byte

// ArgType is the expected type of a positional filter argument.
type ArgType uint8

const (
	ArgAny ArgType = iota
	ArgString
	ArgNumber
)

func (a ArgType) String() string {
	switch a {
	case ArgString:
		return "string"
	case ArgNumber:
		return "number"
	default:
		return "any"
	}
}

// FilterSpec describes the arguments a filter accepts.
type FilterSpec struct {
	Name     string
	Min      int // минимум позиционных аргументов
	Max      int // максимум; -1: без ограничения
	Args     []ArgType
	Keywords bool // допускаются аргументы вида key: value
}

// ArgAt returns the declared type of the i-th positional argument.
func (f FilterSpec) ArgAt(i int) ArgType {
	if i < len(f.Args) {
		return f.Args[i]
	}
	return ArgAny
}

// Registry is a read-only set of lookup tables.
type Registry struct {
	version string

	objects      set
	suspicious   set
	filters      map[string]FilterSpec
	filterNames  []string
	deprecated   map[string]string
	renames      map[string]string
	hallucinated map[string]string

	catalogCollections set
	catalogCounts      set
	widthFilters       set
	defaultLimit       int
	concatExempt       []string

	scriptHosts     []string
	stylesheetHosts []string
	importHosts     []string
	consoleMethods  set

	calcGlyphs      map[rune]string
	smartPunct      map[rune]string
	zeroWidth       map[rune]struct{}
	userControlled  []string
	escapingFilters set
	safeProperties  set
	urlAttributes   set

	settingTypes set
	typeRemaps   map[string]string
	appBlockKeys set
}

type set map[string]struct{}

func newSet(items []string) set {
	s := make(set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s set) has(k string) bool {
	_, ok := s[k]
	return ok
}

type filterYAML struct {
	Min  int      `yaml:"min"`
	Max  int      `yaml:"max"`
	Args []string `yaml:"args"`
	KW   bool     `yaml:"kw"`
}

type fileYAML struct {
	Version           string                 `yaml:"version"`
	Objects           []string               `yaml:"objects"`
	SuspiciousObjects []string               `yaml:"suspicious_objects"`
	Filters           map[string]*filterYAML `yaml:"filters"`
	Deprecated        map[string]string      `yaml:"deprecated"`
	FilterRenames     map[string]string      `yaml:"filter_renames"`
	Hallucinated      map[string]string      `yaml:"hallucinated"`
	Performance       struct {
		CatalogCollections []string `yaml:"catalog_collections"`
		CatalogCounts      []string `yaml:"catalog_counts"`
		WidthFilters       []string `yaml:"width_filters"`
		DefaultLimit       int      `yaml:"default_limit"`
		ConcatExempt       []string `yaml:"concat_exempt"`
	} `yaml:"performance"`
	ThemeStore struct {
		ScriptHosts     []string `yaml:"script_hosts"`
		StylesheetHosts []string `yaml:"stylesheet_hosts"`
		ImportHosts     []string `yaml:"import_hosts"`
		ConsoleMethods  []string `yaml:"console_methods"`
	} `yaml:"theme_store"`
	Characters struct {
		CalcGlyphs       map[string]string `yaml:"calc_glyphs"`
		SmartPunctuation map[string]string `yaml:"smart_punctuation"`
		ZeroWidth        []string          `yaml:"zero_width"`
		UserControlled   []string          `yaml:"user_controlled"`
		EscapingFilters  []string          `yaml:"escaping_filters"`
		SafeProperties   []string          `yaml:"safe_properties"`
		URLAttributes    []string          `yaml:"url_attributes"`
	} `yaml:"characters"`
	Schema struct {
		SettingTypes []string          `yaml:"setting_types"`
		TypeRemaps   map[string]string `yaml:"type_remaps"`
		AppBlockKeys []string          `yaml:"app_block_keys"`
	} `yaml:"schema"`
}

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	return Load(embedded)
})

// Default returns the process-wide registry built from the embedded table.
func Default() *Registry {
	r, err := loadDefault()
	if err != nil {
		panic(fmt.Errorf("embedded registry: %w", err))
	}
	return r
}

// Load parses a registry document.
func Load(data []byte) (*Registry, error) {
	var doc fileYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if len(doc.Filters) == 0 {
		return nil, fmt.Errorf("registry has no filters")
	}

	r := &Registry{
		version:            doc.Version,
		objects:            newSet(doc.Objects),
		suspicious:         newSet(doc.SuspiciousObjects),
		filters:            make(map[string]FilterSpec, len(doc.Filters)),
		deprecated:         doc.Deprecated,
		renames:            doc.FilterRenames,
		hallucinated:       doc.Hallucinated,
		catalogCollections: newSet(doc.Performance.CatalogCollections),
		catalogCounts:      newSet(doc.Performance.CatalogCounts),
		widthFilters:       newSet(doc.Performance.WidthFilters),
		defaultLimit:       doc.Performance.DefaultLimit,
		concatExempt:       doc.Performance.ConcatExempt,
		scriptHosts:        doc.ThemeStore.ScriptHosts,
		stylesheetHosts:    doc.ThemeStore.StylesheetHosts,
		importHosts:        doc.ThemeStore.ImportHosts,
		consoleMethods:     newSet(doc.ThemeStore.ConsoleMethods),
		userControlled:     doc.Characters.UserControlled,
		escapingFilters:    newSet(doc.Characters.EscapingFilters),
		safeProperties:     newSet(doc.Characters.SafeProperties),
		urlAttributes:      newSet(doc.Characters.URLAttributes),
		settingTypes:       newSet(doc.Schema.SettingTypes),
		typeRemaps:         doc.Schema.TypeRemaps,
		appBlockKeys:       newSet(doc.Schema.AppBlockKeys),
	}
	if r.defaultLimit <= 0 {
		r.defaultLimit = 50
	}

	for name, f := range doc.Filters {
		spec := FilterSpec{Name: name}
		if f != nil {
			spec.Min, spec.Max, spec.Keywords = f.Min, f.Max, f.KW
			for _, a := range f.Args {
				t, err := parseArgType(a)
				if err != nil {
					return nil, fmt.Errorf("filter %s: %w", name, err)
				}
				spec.Args = append(spec.Args, t)
			}
		}
		if spec.Max >= 0 && spec.Max < spec.Min {
			return nil, fmt.Errorf("filter %s: max %d < min %d", name, spec.Max, spec.Min)
		}
		r.filters[name] = spec
		r.filterNames = append(r.filterNames, name)
	}
	sort.Strings(r.filterNames)

	var err error
	if r.calcGlyphs, err = runeMap(doc.Characters.CalcGlyphs); err != nil {
		return nil, fmt.Errorf("calc_glyphs: %w", err)
	}
	if r.smartPunct, err = runeMap(doc.Characters.SmartPunctuation); err != nil {
		return nil, fmt.Errorf("smart_punctuation: %w", err)
	}
	r.zeroWidth = make(map[rune]struct{}, len(doc.Characters.ZeroWidth))
	for _, s := range doc.Characters.ZeroWidth {
		ch, err := singleRune(s)
		if err != nil {
			return nil, fmt.Errorf("zero_width: %w", err)
		}
		r.zeroWidth[ch] = struct{}{}
	}
	return r, nil
}

func parseArgType(s string) (ArgType, error) {
	switch s {
	case "any", "":
		return ArgAny, nil
	case "string":
		return ArgString, nil
	case "number":
		return ArgNumber, nil
	default:
		return ArgAny, fmt.Errorf("unknown argument type %q", s)
	}
}

func singleRune(s string) (rune, error) {
	ch, size := utf8.DecodeRuneInString(s)
	if ch == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("%q is not a single character", s)
	}
	return ch, nil
}

func runeMap(m map[string]string) (map[rune]string, error) {
	out := make(map[rune]string, len(m))
	for k, v := range m {
		ch, err := singleRune(k)
		if err != nil {
			return nil, err
		}
		out[ch] = v
	}
	return out, nil
}

// Version identifies the table revision; it is part of cache keys.
func (r *Registry) Version() string { return r.version }

func (r *Registry) IsObject(name string) bool { return r.objects.has(name) }

func (r *Registry) IsSuspicious(name string) bool { return r.suspicious.has(name) }

// Filter returns the definition of a known filter.
func (r *Registry) Filter(name string) (FilterSpec, bool) {
	spec, ok := r.filters[name]
	return spec, ok
}

// FilterNames returns all known filter names in sorted order.
func (r *Registry) FilterNames() []string { return slices.Clone(r.filterNames) }

// Hallucinated returns the canned explanation for an invented filter.
func (r *Registry) Hallucinated(name string) (string, bool) {
	text, ok := r.hallucinated[name]
	return text, ok
}

// Deprecated returns the replacement advice for a deprecated filter.
func (r *Registry) Deprecated(name string) (string, bool) {
	text, ok := r.deprecated[name]
	return text, ok
}

// Rename returns the drop-in replacement of a deprecated filter.
func (r *Registry) Rename(name string) (string, bool) {
	to, ok := r.renames[name]
	return to, ok
}

// CatalogCollection reports whether iterating path walks the whole catalog.
func (r *Registry) CatalogCollection(path string) bool { return r.catalogCollections.has(path) }

// CatalogCount reports whether path counts the whole catalog.
func (r *Registry) CatalogCount(path string) bool { return r.catalogCounts.has(path) }

func (r *Registry) WidthFilter(name string) bool { return r.widthFilters.has(name) }

// DefaultLimit is the limit inserted by the unbounded-loop fix.
func (r *Registry) DefaultLimit() int { return r.defaultLimit }

// ConcatExempt reports whether an assign builds a value, such as a style
// or srcset, for which a long append chain is expected.
func (r *Registry) ConcatExempt(markup string) bool {
	lower := strings.ToLower(markup)
	for _, w := range r.concatExempt {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// ScriptHostAllowed reports whether an absolute script URL points at a host
// the Theme Store accepts.
func (r *Registry) ScriptHostAllowed(url string) bool { return hostAllowed(r.scriptHosts, url) }

// StylesheetHostAllowed is ScriptHostAllowed for <link> stylesheets.
func (r *Registry) StylesheetHostAllowed(url string) bool { return hostAllowed(r.stylesheetHosts, url) }

// ImportHostAllowed is ScriptHostAllowed for CSS @import.
func (r *Registry) ImportHostAllowed(url string) bool { return hostAllowed(r.importHosts, url) }

// ConsoleMethod reports whether console.<name> must not ship.
func (r *Registry) ConsoleMethod(name string) bool { return r.consoleMethods.has(name) }

// hostAllowed matches url, without its scheme, against host[/path]
// prefixes. The prefix must end at a URL boundary.
func hostAllowed(hosts []string, url string) bool {
	rest := strings.ToLower(url)
	for _, scheme := range []string{"https://", "http://", "//"} {
		if strings.HasPrefix(rest, scheme) {
			rest = rest[len(scheme):]
			break
		}
	}
	for _, h := range hosts {
		if !strings.HasPrefix(rest, h) {
			continue
		}
		if len(rest) == len(h) || strings.ContainsRune("/?#:", rune(rest[len(h)])) {
			return true
		}
	}
	return false
}

// CalcGlyph returns the ASCII operator for a Unicode math glyph.
func (r *Registry) CalcGlyph(ch rune) (string, bool) {
	s, ok := r.calcGlyphs[ch]
	return s, ok
}

// SmartPunct returns the ASCII replacement for typographic punctuation.
func (r *Registry) SmartPunct(ch rune) (string, bool) {
	s, ok := r.smartPunct[ch]
	return s, ok
}

func (r *Registry) ZeroWidth(ch rune) bool {
	_, ok := r.zeroWidth[ch]
	return ok
}

// UserControlled reports whether the dotted path starts with a
// merchant- or customer-controlled root.
func (r *Registry) UserControlled(path string) bool {
	for _, root := range r.userControlled {
		if path == root || strings.HasPrefix(path, root+".") {
			return true
		}
	}
	return false
}

func (r *Registry) EscapingFilter(name string) bool { return r.escapingFilters.has(name) }

func (r *Registry) SafeProperty(name string) bool { return r.safeProperties.has(name) }

func (r *Registry) URLAttribute(name string) bool { return r.urlAttributes.has(strings.ToLower(name)) }

func (r *Registry) SettingType(name string) bool { return r.settingTypes.has(name) }

// TypeRemap returns the setting type a common typo most likely meant.
func (r *Registry) TypeRemap(name string) (string, bool) {
	t, ok := r.typeRemaps[strings.ToLower(name)]
	return t, ok
}

func (r *Registry) AppBlockKey(key string) bool { return r.appBlockKeys.has(key) }
