// Package cache stores encoded engine cache entries on disk.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

// Ключи приходят из engine как hex sha256.
var keyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// DiskStore keeps one file per key under dir/findings.
// Thread-safe for concurrent access.
type DiskStore struct {
	mu  sync.RWMutex
	dir string
}

// Dir returns the default cache directory for app: $XDG_CACHE_HOME/app or
// the user cache dir.
func Dir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		var err error
		base, err = os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate user cache dir: %w", err)
		}
	}
	return filepath.Join(base, app), nil
}

// Open creates dir if needed and returns a store rooted there.
func Open(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (c *DiskStore) pathFor(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	// два символа подкаталога, чтобы не копить десятки тысяч файлов в одном
	return filepath.Join(c.dir, "findings", key[:2], key+".mp"), nil
}

// Save writes data for key atomically.
func (c *DiskStore) Save(key string, data []byte) error {
	if c == nil {
		return nil
	}
	p, err := c.pathFor(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(p, bytes.NewReader(data))
}

// Load reads the data stored for key.
func (c *DiskStore) Load(key string) ([]byte, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	p, err := c.pathFor(key)
	if err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// DropAll invalidates the cache.
func (c *DiskStore) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// переименовываем и удаляем, чтобы параллельный Load не увидел полкаталога
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
