package cache

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

var testKey = strings.Repeat("ab", 32)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "liquidlint"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := store.Load(testKey); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	if err := store.Save(testKey, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, ok, err := store.Load(testKey)
	if err != nil || !ok || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Fatalf("Load = %v %v %v", data, ok, err)
	}
	// перезапись
	if err := store.Save(testKey, []byte{4}); err != nil {
		t.Fatal(err)
	}
	if data, _, _ := store.Load(testKey); !bytes.Equal(data, []byte{4}) {
		t.Errorf("after overwrite = %v", data)
	}
}

func TestDiskStoreRejectsBadKeys(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../etc/passwd", strings.Repeat("AB", 32)} {
		if err := store.Save(key, []byte("x")); err == nil {
			t.Errorf("Save(%q) accepted", key)
		}
		if _, _, err := store.Load(key); err == nil {
			t.Errorf("Load(%q) accepted", key)
		}
	}
}

func TestDropAll(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "c"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testKey, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := store.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, err := store.Load(testKey); ok || err != nil {
		t.Errorf("after drop: ok=%v err=%v", ok, err)
	}
	if err := store.Save(testKey, []byte("y")); err != nil {
		t.Errorf("store unusable after drop: %v", err)
	}
}

func TestNilStore(t *testing.T) {
	var store *DiskStore
	if err := store.Save(testKey, nil); err != nil {
		t.Error(err)
	}
	if _, ok, err := store.Load(testKey); ok || err != nil {
		t.Error("nil store returned data")
	}
}

func TestDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := Dir("liquidlint")
	if err != nil || dir != filepath.Join("/tmp/xdg", "liquidlint") {
		t.Errorf("Dir = %q, %v", dir, err)
	}
}
