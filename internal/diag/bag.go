package diag

import (
	"sort"
)

// Bag collects diagnostics. A zero or negative max means no limit.
type Bag struct {
	items []*Diagnostic
	max   int
}

func NewBag(limit int) *Bag {
	return &Bag{
		items: make([]*Diagnostic, 0, max(0, min(limit, 64))),
		max:   limit,
	}
}

// Add добавляет диагностику, учитывая лимит.
// Возвращает false, если диагностика не добавлена (достигнут лимит).
func (b *Bag) Add(d *Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// AddAll appends every diagnostic the limit allows.
func (b *Bag) AddAll(ds []*Diagnostic) {
	for _, d := range ds {
		if !b.Add(d) {
			return
		}
	}
}

// HasAtLeast reports whether some diagnostic has severity >= sev.
func (b *Bag) HasAtLeast(sev Severity) bool {
	for _, d := range b.items {
		if d.Severity >= sev {
			return true
		}
	}
	return false
}

// длина
func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice диагностик.
// ВАЖНО: не модифицируйте возвращаемый срез! (он указывает на внутренний массив Bag)
func (b *Bag) Items() []*Diagnostic {
	return b.items
}

// Merge объединяет диагностики из другого Bag, игнорируя лимит.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if b.max > 0 && len(b.items)+len(other.items) > b.max {
		b.max = len(b.items) + len(other.items)
	}
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics in place; see SortDiagnostics.
func (b *Bag) Sort() {
	SortDiagnostics(b.items)
}

// SortDiagnostics сортирует по: file, start, end, severity (desc), code (asc)
// для стабильного и детерминированного порядка вывода.
func SortDiagnostics(items []*Diagnostic) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i], items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		// по severity по убыванию: Critical > Error > Warning > Info
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

type dedupKey struct {
	code  Code
	start uint32
	end   uint32
	msg   string
}

// Dedup drops diagnostics repeating code, span and message.
func (b *Bag) Dedup() {
	seen := make(map[dedupKey]struct{}, len(b.items))
	kept := b.items[:0]
	for _, d := range b.items {
		key := dedupKey{code: d.Code, start: d.Primary.Start, end: d.Primary.End, msg: d.Message}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, d)
	}
	b.items = kept
}
