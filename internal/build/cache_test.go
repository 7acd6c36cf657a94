package build

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/internal/logging"
	"github.com/goplus/llar-pango/pkgs/mod/module"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(Options{WorkspaceDir: t.TempDir(), Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestSaveAndLoadCache(t *testing.T) {
	b := newTestBuilder(t)

	info := &formula.CppInfo{}
	info.Component("core").Libs = []string{"core"}
	now := time.Now().Truncate(time.Second)

	cache := &buildCache{}
	cache.set("1.0", "abc", &buildEntry{Dir: "/tmp/output", Metadata: "[settings]\n", CppInfo: info, BuildTime: now})
	if err := b.saveCache("pango", cache); err != nil {
		t.Fatalf("saveCache failed: %v", err)
	}

	loaded, err := b.loadCache("pango")
	if err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	entry, ok := loaded.get("1.0", "abc")
	if !ok {
		t.Fatal("entry not found")
	}
	if entry.Dir != "/tmp/output" {
		t.Errorf("Dir mismatch: got %q", entry.Dir)
	}
	if !entry.BuildTime.Truncate(time.Second).Equal(now) {
		t.Errorf("BuildTime mismatch: got %v, want %v", entry.BuildTime, now)
	}
	if entry.CppInfo == nil || len(entry.CppInfo.Names()) != 1 || entry.CppInfo.Names()[0] != "core" {
		t.Errorf("CppInfo not restored: %+v", entry.CppInfo)
	}
	if _, ok := loaded.get("1.0", "other"); ok {
		t.Error("unexpected entry for other id")
	}
}

func TestLoadCache_NotExist(t *testing.T) {
	b := newTestBuilder(t)
	cache, err := b.loadCache("pango")
	if err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	if len(cache.Cache) != 0 {
		t.Fatalf("expected empty cache, got %v", cache.Cache)
	}
}

func TestLoadCache_InvalidJSON(t *testing.T) {
	b := newTestBuilder(t)
	dir, _ := b.cacheDir("pango")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheFile), []byte("invalid json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := b.loadCache("pango"); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestLockFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "x.lock")
	unlock, err := lockFile(path)
	if err != nil {
		t.Fatal(err)
	}
	unlock()
	unlock, err = lockFile(path)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	unlock()
}

func TestStore(t *testing.T) {
	b := newTestBuilder(t)
	for _, id := range []string{"a", "b"} {
		res := &Result{Ref: module.Version{Path: "pango", Version: "1.50.10"}, PackageID: id, Dir: "/pkg/" + id}
		if err := b.store(res); err != nil {
			t.Fatalf("store %s: %v", id, err)
		}
	}
	cache, err := b.loadCache("pango")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b"} {
		if e, ok := cache.get("1.50.10", id); !ok || e.Dir != "/pkg/"+id {
			t.Errorf("entry %s = %+v, %v", id, e, ok)
		}
	}

	dir, _ := b.cacheDir("pango")
	matches, _ := filepath.Glob(filepath.Join(dir, cacheFile+".*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestStore_UnreadableCache(t *testing.T) {
	b := newTestBuilder(t)
	dir, _ := b.cacheDir("pango")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheFile), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := &Result{Ref: module.Version{Path: "pango", Version: "1.50.10"}, PackageID: "a", Dir: "/pkg/a"}
	if err := b.store(res); err != nil {
		t.Fatal(err)
	}
	cache, err := b.loadCache("pango")
	if err != nil {
		t.Fatalf("cache still unreadable: %v", err)
	}
	if _, ok := cache.get("1.50.10", "a"); !ok {
		t.Error("entry not stored")
	}
}
