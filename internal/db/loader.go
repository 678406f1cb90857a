package db

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"sync"
	"sync/atomic"
)

// Loader opens driver libraries. A library is a Go plugin whose init
// functions register a database/sql driver. Each distinct path is opened
// successfully at most once. Failures are not remembered, so a library
// installed after a failed load is picked up by the next call.
type Loader struct {
	open func(path string) error

	mu      sync.Mutex
	entries map[string]*loadEntry
}

type loadEntry struct {
	mu     sync.Mutex
	loaded atomic.Bool
}

// NewLoader creates a loader backed by the plugin package.
func NewLoader() *Loader {
	return newLoader(openPlugin)
}

func newLoader(open func(path string) error) *Loader {
	return &Loader{
		open:    open,
		entries: make(map[string]*loadEntry),
	}
}

// processLoader is shared by factories created with NewFactory, since a
// plugin stays loaded for the life of the process.
var processLoader = NewLoader()

// Load opens the library at path unless it was opened successfully before.
// Concurrent calls for the same path are serialized.
func (l *Loader) Load(path string) error {
	key := canonicalPath(path)

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &loadEntry{}
		l.entries[key] = entry
	}
	l.mu.Unlock()

	if entry.loaded.Load() {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.loaded.Load() {
		return nil
	}
	if err := l.open(key); err != nil {
		return err
	}
	entry.loaded.Store(true)
	return nil
}

// Loaded lists the paths opened successfully.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var paths []string
	for path, entry := range l.entries {
		if entry.loaded.Load() {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func openPlugin(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if _, err := plugin.Open(path); err != nil {
		return err
	}
	return nil
}
