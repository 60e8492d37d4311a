package config

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Store persists which scripts load automatically and which one the user
// selected. Implementations are safe for concurrent use.
type Store interface {
	// Autoload reports whether name should be loaded when discovered.
	Autoload(name string) bool
	// SetAutoload records the autoload flag for name.
	SetAutoload(name string, on bool) error
	// Selected returns the selected script filename, or "".
	Selected() string
	// SetSelected records the selected script filename.
	SetSelected(name string) error
	// AutoloadMap returns a copy of every script with autoload enabled.
	AutoloadMap() map[string]bool
}

// persistedState is the on-disk layout of the state file.
type persistedState struct {
	SelectedScript string          `toml:"selected_script"`
	Autoload       map[string]bool `toml:"autoload"`
}

// MemoryStore is a Store that keeps state in memory only.
type MemoryStore struct {
	mu       sync.RWMutex
	autoload map[string]bool
	selected string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{autoload: make(map[string]bool)}
}

// Autoload implements Store.
func (m *MemoryStore) Autoload(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.autoload[name]
}

// SetAutoload implements Store.
func (m *MemoryStore) SetAutoload(name string, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	setFlag(m.autoload, name, on)
	return nil
}

// Selected implements Store.
func (m *MemoryStore) Selected() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

// SetSelected implements Store.
func (m *MemoryStore) SetSelected(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = name
	return nil
}

// AutoloadMap implements Store.
func (m *MemoryStore) AutoloadMap() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyFlags(m.autoload)
}

// FileStore is a Store backed by a TOML file. Every change rewrites the
// file through a temporary file and rename.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	state persistedState
}

// OpenFileStore reads the state file at path. A missing file yields an
// empty store; the file is created on the first change.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:  path,
		state: persistedState{Autoload: make(map[string]bool)},
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fs, nil
	case err != nil:
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}

	if err := toml.Unmarshal(data, &fs.state); err != nil {
		return nil, &PersistenceError{Op: "decode", Path: path, Err: err}
	}
	if fs.state.Autoload == nil {
		fs.state.Autoload = make(map[string]bool)
	}
	for name, on := range fs.state.Autoload {
		if !on {
			delete(fs.state.Autoload, name)
		}
	}
	return fs, nil
}

// Path returns the state file path.
func (f *FileStore) Path() string {
	return f.path
}

// Autoload implements Store.
func (f *FileStore) Autoload(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Autoload[name]
}

// SetAutoload implements Store.
func (f *FileStore) SetAutoload(name string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Autoload[name] == on {
		return nil
	}
	setFlag(f.state.Autoload, name, on)
	return f.saveLocked()
}

// Selected implements Store.
func (f *FileStore) Selected() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.SelectedScript
}

// SetSelected implements Store.
func (f *FileStore) SetSelected(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.SelectedScript == name {
		return nil
	}
	f.state.SelectedScript = name
	return f.saveLocked()
}

// AutoloadMap implements Store.
func (f *FileStore) AutoloadMap() map[string]bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyFlags(f.state.Autoload)
}

// saveLocked writes the state file. Callers hold f.mu.
func (f *FileStore) saveLocked() error {
	data, err := toml.Marshal(f.state)
	if err != nil {
		return &PersistenceError{Op: "encode", Path: f.path, Err: err}
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "write", Path: f.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return &PersistenceError{Op: "write", Path: f.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "write", Path: f.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "write", Path: f.path, Err: err}
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "rename", Path: f.path, Err: err}
	}
	return nil
}

func setFlag(m map[string]bool, name string, on bool) {
	if on {
		m[name] = true
	} else {
		delete(m, name)
	}
}

func copyFlags(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AutoloadNames returns the sorted names with autoload enabled.
func AutoloadNames(s Store) []string {
	m := s.AutoloadMap()
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
