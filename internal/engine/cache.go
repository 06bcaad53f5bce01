package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"liquidlint/internal/diag"
	"liquidlint/internal/source"
	"liquidlint/internal/token"
)

// Текущая версия формата записи; меняется вместе с cacheEntry.
const cacheSchemaVersion uint16 = 1

// Store persists encoded cache entries. Implementations must be safe for
// concurrent use; errors are treated as misses.
type Store interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, data []byte) error
}

// Cache keeps pre-filter findings keyed by path, content hash, profile
// fingerprint and registry version. A nil *Cache caches nothing.
type Cache struct {
	mu    sync.RWMutex
	mem   map[string][]byte
	store Store

	hits, misses int
}

// NewCache returns an in-memory cache backed by store, which may be nil.
func NewCache(store Store) *Cache {
	return &Cache{mem: make(map[string][]byte), store: store}
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

type cacheEntry struct {
	Schema   uint16
	Encoding string
	Fences   []token.RegionKind
	Findings []*diag.Diagnostic
}

func newCacheEntry(rep Report) *cacheEntry {
	return &cacheEntry{
		Schema:   cacheSchemaVersion,
		Encoding: rep.Encoding,
		Fences:   rep.fences,
		Findings: rep.All,
	}
}

// restore rebinds decoded spans to the file id of this run.
func (c *cacheEntry) restore(id source.FileID) []*diag.Diagnostic {
	for _, d := range c.Findings {
		d.Primary.File = id
		for i := range d.Notes {
			d.Notes[i].Span.File = id
		}
		if d.Fix != nil {
			for i := range d.Fix.Edits {
				d.Fix.Edits[i].Span.File = id
			}
		}
	}
	return c.Findings
}

func (e *Engine) cacheKey(f *source.File) string {
	if e.opts.Cache == nil {
		return ""
	}
	h := sha256.New()
	h.Write(f.Hash[:])
	// путь влияет на правила схемы (blocks/)
	h.Write([]byte(f.Path))
	h.Write([]byte(e.prof.Fingerprint()))
	h.Write([]byte(e.reg.Version()))
	// лимит обрезает набор находок
	h.Write([]byte(strconv.Itoa(e.opts.MaxFindings)))
	return hex.EncodeToString(h.Sum(nil))
}

// get decodes a fresh copy on every hit, so reports never share findings.
func (c *Cache) get(key string) (*cacheEntry, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	c.mu.RLock()
	data, ok := c.mem[key]
	c.mu.RUnlock()
	if !ok && c.store != nil {
		if stored, found, err := c.store.Load(key); err == nil && found {
			data, ok = stored, true
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.misses++
		return nil, false
	}
	var entry cacheEntry
	if err := msgpack.Unmarshal(data, &entry); err != nil || entry.Schema != cacheSchemaVersion {
		delete(c.mem, key)
		c.misses++
		return nil, false
	}
	c.mem[key] = data
	c.hits++
	return &entry, true
}

func (c *Cache) put(key string, entry *cacheEntry) {
	if c == nil || key == "" {
		return
	}
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.mem[key] = data
	c.mu.Unlock()
	if c.store != nil {
		// ошибка записи на диск = промах в следующий раз
		_ = c.store.Save(key, data) //nolint:errcheck
	}
}
