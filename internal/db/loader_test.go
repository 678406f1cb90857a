package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLoader_OpensEachPathOnce(t *testing.T) {
	var calls atomic.Int32
	l := newLoader(func(string) error {
		calls.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Load("drivers/vendor.so"); err != nil {
				t.Errorf("Load: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := l.Load("./drivers/../drivers/vendor.so"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("open called %d times, want 1", got)
	}
}

func TestLoader_RetriesAfterFailure(t *testing.T) {
	var calls atomic.Int32
	var installed atomic.Bool
	boom := errors.New("plugin not found")
	l := newLoader(func(string) error {
		calls.Add(1)
		if !installed.Load() {
			return boom
		}
		return nil
	})

	for i := 0; i < 2; i++ {
		if err := l.Load("/opt/driver.so"); !errors.Is(err, boom) {
			t.Fatalf("Load = %v, want %v", err, boom)
		}
	}
	if loaded := l.Loaded(); len(loaded) != 0 {
		t.Errorf("Loaded() = %v, want none", loaded)
	}

	installed.Store(true)
	for i := 0; i < 3; i++ {
		if err := l.Load("/opt/driver.so"); err != nil {
			t.Fatalf("Load after install: %v", err)
		}
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("open called %d times, want 3 (two failures, one success)", got)
	}
	if loaded := l.Loaded(); len(loaded) != 1 {
		t.Errorf("Loaded() = %v, want one path", loaded)
	}
}

func TestLoader_DistinctPaths(t *testing.T) {
	var opened []string
	var mu sync.Mutex
	l := newLoader(func(path string) error {
		mu.Lock()
		defer mu.Unlock()
		opened = append(opened, path)
		return nil
	})

	_ = l.Load("/opt/a.so")
	_ = l.Load("/opt/b.so")
	_ = l.Load("/opt/a.so")

	if len(opened) != 2 {
		t.Errorf("opened %v, want two paths", opened)
	}
	loaded := l.Loaded()
	if len(loaded) != 2 || loaded[0] != "/opt/a.so" || loaded[1] != "/opt/b.so" {
		t.Errorf("Loaded() = %v", loaded)
	}
}

func TestOpenPlugin_Errors(t *testing.T) {
	dir := t.TempDir()

	if err := openPlugin(filepath.Join(dir, "missing.so")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want not-exist", err)
	}

	if err := openPlugin(dir); err == nil || !strings.Contains(err.Error(), "directory") {
		t.Errorf("directory: got %v", err)
	}

	junk := filepath.Join(dir, "junk.so")
	if err := os.WriteFile(junk, []byte("not a shared object"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := openPlugin(junk); err == nil {
		t.Error("expected an error for a file that is not a plugin")
	}
}
