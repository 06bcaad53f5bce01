package schema

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"liquidlint/internal/diag"
	"liquidlint/internal/lexer"
	"liquidlint/internal/liquid"
	"liquidlint/internal/registry"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

const (
	DefaultRangeSteps = 101
	DefaultMaxBlocks  = 50
)

// Options carries the thresholds the schema rules compare against.
// Zero values fall back to the defaults.
type Options struct {
	RangeSteps int
	MaxBlocks  int
}

func (o Options) withDefaults() Options {
	if o.RangeSteps <= 0 {
		o.RangeSteps = DefaultRangeSteps
	}
	if o.MaxBlocks <= 0 {
		o.MaxBlocks = DefaultMaxBlocks
	}
	return o
}

var minStep = big.NewRat(1, 10)

type validator struct {
	u    *lexer.Unit
	reg  *registry.Registry
	opts Options
	r    diag.Reporter
}

// Validate checks every schema region of u and cross-checks the section
// and block settings the template reads against the first schema.
func Validate(u *lexer.Unit, reg *registry.Registry, opts Options, r diag.Reporter) {
	v := &validator{u: u, reg: reg, opts: opts.withDefaults(), r: r}
	first := true
	for _, region := range u.RegionsOf(token.RegionSchema) {
		if !region.Terminated {
			continue
		}
		root, err := Parse(u.File.Content[region.Body.Start:region.Body.End], region.Body)
		if err != nil {
			v.invalidJSON(region, err)
			first = false
			continue
		}
		decl := v.root(root)
		if first && decl != nil {
			v.crossCheck(decl)
		}
		first = false
	}
}

func (v *validator) invalidJSON(region token.Region, err error) {
	sp := region.Body
	msg := err.Error()
	var se *SyntaxError
	if errors.As(err, &se) {
		msg = se.Msg
		start := se.Offset
		if start >= region.Body.End && region.Body.End > region.Body.Start {
			start = region.Body.End - 1
		}
		if start < region.Body.Start {
			start = region.Body.Start
		}
		end := start + 1
		if end > region.Body.End {
			end = region.Body.End
		}
		sp = source.Span{File: region.Body.File, Start: start, End: end}
	}
	diag.ReportCritical(v.r, diag.SchemaInvalidJSON, sp, "invalid schema JSON: "+msg).
		WithNote(region.Span, "in this schema block").
		Emit()
}

// declared holds the setting ids of a schema, per scope.
type declared struct {
	section map[string]*Node
	blocks  map[string]map[string]*Node // по типу блока
	open    bool                         // есть @app / @theme блоки
}

func head(n *Node) source.Span {
	return source.Span{File: n.Span.File, Start: n.Span.Start, End: n.Span.Start + 1}
}

func (v *validator) root(root *Node) *declared {
	if root.Kind != Object {
		diag.ReportError(v.r, diag.SchemaRootNotObject, head(root),
			fmt.Sprintf("schema must be a JSON object, got %s", root.Kind)).Emit()
		return nil
	}
	if name, ok := root.Text("name"); !ok || strings.TrimSpace(name) == "" {
		diag.ReportError(v.r, diag.SchemaMissingName, head(root), "schema has no 'name'").Emit()
	}
	if !v.underBlocks() {
		for _, f := range root.Fields {
			if v.reg.AppBlockKey(f.Key) {
				diag.ReportError(v.r, diag.SchemaAppBlockKey, f.KeySpan,
					fmt.Sprintf("'%s' is only valid in app block schemas", f.Key)).
					WithSuggestion(fmt.Sprintf("remove '%s' from the section schema", f.Key)).
					Emit()
			}
		}
	}
	if mb := root.Get("max_blocks"); mb != nil {
		v.limit(mb, "max_blocks")
	}

	d := &declared{blocks: make(map[string]map[string]*Node)}
	d.section = v.settings(root.Get("settings"))
	if blocks := root.Get("blocks"); blocks != nil && blocks.Kind == Array {
		for _, b := range blocks.Items {
			v.block(b, d)
		}
	}
	if presets := root.Get("presets"); presets != nil && presets.Kind == Array {
		for _, p := range presets.Items {
			v.preset(p, d)
		}
	}
	return d
}

func (v *validator) underBlocks() bool {
	p := "/" + strings.ReplaceAll(v.u.Path(), "\\", "/")
	return strings.Contains(p, "/blocks/")
}

func (v *validator) limit(n *Node, key string) {
	if n.Kind != Number {
		return
	}
	val, err := strconv.ParseFloat(n.Num.String(), 64)
	if err != nil || val <= float64(v.opts.MaxBlocks) {
		return
	}
	diag.ReportWarning(v.r, diag.SchemaBlockLimit, n.Span,
		fmt.Sprintf("'%s' of %s exceeds %d", key, n.Num, v.opts.MaxBlocks)).
		WithSuggestion(fmt.Sprintf("keep '%s' at or below %d", key, v.opts.MaxBlocks)).
		Emit()
}

func (v *validator) block(b *Node, d *declared) {
	if b.Kind != Object {
		diag.ReportError(v.r, diag.SchemaMissingField, head(b), "block must be an object").Emit()
		return
	}
	typ, ok := b.Text("type")
	if !ok {
		diag.ReportError(v.r, diag.SchemaMissingField, head(b), "block is missing 'type'").Emit()
	}
	if strings.HasPrefix(typ, "@") {
		d.open = true
	}
	if lim := b.Get("limit"); lim != nil {
		v.limit(lim, "limit")
	}
	ids := v.settings(b.Get("settings"))
	if !ok {
		return
	}
	if prev, dup := d.blocks[typ]; dup {
		for id, n := range ids {
			prev[id] = n
		}
		return
	}
	d.blocks[typ] = ids
}

// settings validates one settings array and returns its ids.
func (v *validator) settings(arr *Node) map[string]*Node {
	ids := make(map[string]*Node)
	if arr == nil {
		return ids
	}
	if arr.Kind != Array {
		diag.ReportError(v.r, diag.SchemaMissingField, head(arr),
			fmt.Sprintf("'settings' must be an array, got %s", arr.Kind)).Emit()
		return ids
	}
	for _, s := range arr.Items {
		v.setting(s, ids)
	}
	return ids
}

func (v *validator) setting(s *Node, ids map[string]*Node) {
	if s.Kind != Object {
		diag.ReportError(v.r, diag.SchemaMissingField, head(s), "setting must be an object").Emit()
		return
	}
	typ, ok := s.Text("type")
	if !ok {
		diag.ReportError(v.r, diag.SchemaMissingField, head(s), "setting is missing 'type'").Emit()
		return
	}
	if typ == "header" || typ == "paragraph" {
		if !s.Has("content") {
			diag.ReportError(v.r, diag.SchemaMissingField, head(s),
				fmt.Sprintf("'%s' setting is missing 'content'", typ)).Emit()
		}
		return
	}
	if !v.reg.SettingType(typ) {
		tn := s.Get("type")
		b := diag.ReportError(v.r, diag.SchemaUnknownType, tn.Span, fmt.Sprintf("unknown setting type '%s'", typ))
		if to, ok := v.reg.TypeRemap(typ); ok {
			b.WithSuggestion(fmt.Sprintf("did you mean '%s'?", to)).
				WithFix(fmt.Sprintf("use type '%s'", to), diag.Replace(tn.Span, v.u.Text(tn.Span), strconv.Quote(to)))
		}
		b.Emit()
	}

	id, ok := s.Text("id")
	if !ok || id == "" {
		diag.ReportError(v.r, diag.SchemaMissingField, head(s),
			fmt.Sprintf("'%s' setting is missing 'id'", typ)).Emit()
	} else if prev, dup := ids[id]; dup {
		diag.ReportCritical(v.r, diag.SchemaDuplicateID, s.Get("id").Span,
			fmt.Sprintf("duplicate setting id '%s'", id)).
			WithNote(prev.Get("id").Span, "first declared here").
			Emit()
	} else {
		ids[id] = s
	}
	if !s.Has("label") {
		name := id
		if name == "" {
			name = typ
		}
		diag.ReportWarning(v.r, diag.SchemaMissingLabel, head(s),
			fmt.Sprintf("setting '%s' has no label", name)).Emit()
	}

	switch typ {
	case "range":
		v.rangeSetting(s, id)
	case "select", "radio":
		v.options(s, id, typ)
	}
}

func ratOf(n *Node) (*big.Rat, bool) {
	if n == nil || n.Kind != Number {
		return nil, false
	}
	return new(big.Rat).SetString(n.Num.String())
}

// decimals counts the fractional digits of a number literal.
func decimals(num string) int {
	if strings.ContainsAny(num, "eE") {
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0
		}
		num = strconv.FormatFloat(f, 'f', -1, 64)
	}
	dot := strings.IndexByte(num, '.')
	if dot < 0 {
		return 0
	}
	return len(num) - dot - 1
}

func (v *validator) rangeSetting(s *Node, id string) {
	for _, key := range []string{"min", "max", "step", "default"} {
		n := s.Get(key)
		if n == nil || n.Kind != Number {
			continue
		}
		if d := decimals(n.Num.String()); d > 1 {
			diag.ReportCritical(v.r, diag.SchemaDecimalPrecision, n.Span,
				fmt.Sprintf("range '%s': '%s' %s has %d decimal places, at most one is allowed", id, key, n.Num, d)).Emit()
		}
	}

	minN, maxN := s.Get("min"), s.Get("max")
	lo, okLo := ratOf(minN)
	hi, okHi := ratOf(maxN)
	if !okLo || !okHi {
		diag.ReportError(v.r, diag.SchemaRangeBounds, head(s),
			fmt.Sprintf("range '%s' needs numeric 'min' and 'max'", id)).Emit()
		return
	}
	if hi.Cmp(lo) <= 0 {
		diag.ReportError(v.r, diag.SchemaRangeBounds, maxN.Span,
			fmt.Sprintf("range '%s': 'max' %s must be greater than 'min' %s", id, maxN.Num, minN.Num)).Emit()
		return
	}

	step := big.NewRat(1, 1)
	stepSpan := head(s)
	if sn := s.Get("step"); sn != nil {
		r, ok := ratOf(sn)
		if !ok {
			diag.ReportError(v.r, diag.SchemaRangeBounds, sn.Span,
				fmt.Sprintf("range '%s': 'step' must be a number", id)).Emit()
			return
		}
		step, stepSpan = r, sn.Span
	}
	if step.Cmp(minStep) < 0 {
		diag.ReportCritical(v.r, diag.SchemaRangeStepTooSmall, stepSpan,
			fmt.Sprintf("range '%s': step %s is below 0.1", id, step.FloatString(2))).Emit()
	}
	if step.Sign() > 0 {
		steps := new(big.Rat).Sub(hi, lo)
		steps.Quo(steps, step)
		limit := big.NewRat(int64(v.opts.RangeSteps), 1)
		switch {
		case steps.Cmp(limit) > 0:
			diag.ReportCritical(v.r, diag.SchemaRangeStepCount, stepSpan,
				fmt.Sprintf("range '%s': (max - min) / step = %s exceeds %d", id, steps.FloatString(2), v.opts.RangeSteps)).
				WithSuggestion(fmt.Sprintf("increase 'step' or narrow the range to at most %d steps", v.opts.RangeSteps)).
				Emit()
		case !steps.IsInt():
			diag.ReportCritical(v.r, diag.SchemaRangeStepCount, stepSpan,
				fmt.Sprintf("range '%s': (max - min) / step = %s is not a whole number", id, steps.FloatString(2))).Emit()
		}
	}

	if dn := s.Get("default"); dn != nil {
		def, ok := ratOf(dn)
		if !ok || def.Cmp(lo) < 0 || def.Cmp(hi) > 0 {
			diag.ReportError(v.r, diag.SchemaRangeBounds, dn.Span,
				fmt.Sprintf("range '%s': default %s is outside [%s, %s]", id, v.u.Text(dn.Span), minN.Num, maxN.Num)).Emit()
		}
	}
}

func (v *validator) options(s *Node, id, typ string) {
	opts := s.Get("options")
	if opts == nil || opts.Kind != Array || len(opts.Items) == 0 {
		sp := head(s)
		if opts != nil {
			sp = opts.Span
		}
		diag.ReportError(v.r, diag.SchemaSelectOptions, sp,
			fmt.Sprintf("%s '%s' needs a non-empty 'options' array", typ, id)).Emit()
		return
	}
	values := make(map[string]bool, len(opts.Items))
	for _, o := range opts.Items {
		val, ok := o.Text("value")
		if !ok {
			diag.ReportError(v.r, diag.SchemaSelectOptions, head(o),
				fmt.Sprintf("%s '%s': option is missing 'value'", typ, id)).Emit()
			continue
		}
		values[val] = true
	}
	dn := s.Get("default")
	if dn == nil {
		return
	}
	if def, ok := s.Text("default"); !ok || !values[def] {
		diag.ReportError(v.r, diag.SchemaSelectOptions, dn.Span,
			fmt.Sprintf("%s '%s': default %s is not one of the option values", typ, id, v.u.Text(dn.Span))).Emit()
	}
}

func (v *validator) preset(p *Node, d *declared) {
	if p.Kind != Object {
		return
	}
	if st := p.Get("settings"); st != nil && st.Kind == Object {
		v.presetKeys(st, d.section, "section")
	}
	blocks := p.Get("blocks")
	if blocks == nil {
		return
	}
	var items []*Node
	switch blocks.Kind {
	case Array:
		items = blocks.Items
	case Object:
		for _, f := range blocks.Fields {
			items = append(items, f.Value)
		}
	}
	for _, b := range items {
		typ, ok := b.Text("type")
		if !ok || strings.HasPrefix(typ, "@") {
			continue
		}
		ids, known := d.blocks[typ]
		st := b.Get("settings")
		if !known || st == nil || st.Kind != Object {
			continue
		}
		v.presetKeys(st, ids, "block '"+typ+"'")
	}
}

func (v *validator) presetKeys(st *Node, ids map[string]*Node, scope string) {
	for _, f := range st.Fields {
		if _, ok := ids[f.Key]; ok {
			continue
		}
		diag.ReportWarning(v.r, diag.SchemaPresetUnknownSetting, f.KeySpan,
			fmt.Sprintf("preset sets '%s', which the %s settings do not declare", f.Key, scope)).Emit()
	}
}

// crossCheck reports section.settings.X and block.settings.X reads that
// the schema does not declare.
func (v *validator) crossCheck(d *declared) {
	theme := v.underBlocks()
	seen := make(map[string]bool)
	for _, tok := range v.u.Tokens {
		e, ok := liquid.ParseToken(tok)
		if !ok {
			continue
		}
		for _, ref := range e.Refs() {
			scope, key, ok := settingRef(ref.Path)
			if !ok || seen[scope+"."+key] {
				continue
			}
			var declaredHere bool
			switch {
			case scope == "section" || theme:
				_, declaredHere = d.section[key]
			case d.open:
				declaredHere = true
			default:
				for _, ids := range d.blocks {
					if _, ok := ids[key]; ok {
						declaredHere = true
						break
					}
				}
			}
			if declaredHere {
				continue
			}
			seen[scope+"."+key] = true
			diag.ReportError(v.r, diag.SchemaUndefinedSetting, ref.Span,
				fmt.Sprintf("'%s.settings.%s' is not declared in the schema", scope, key)).
				WithSuggestion(fmt.Sprintf("add a setting with id '%s' to the %s settings", key, scope)).
				Emit()
		}
	}
}

// settingRef splits "section.settings.key.rest" into its scope and key.
func settingRef(path string) (scope, key string, ok bool) {
	for _, s := range []string{"section", "block"} {
		prefix := s + ".settings."
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := path[len(prefix):]
		if i := strings.IndexAny(rest, ".["); i >= 0 {
			rest = rest[:i]
		}
		if rest == "" {
			return "", "", false
		}
		return s, rest, true
	}
	return "", "", false
}
