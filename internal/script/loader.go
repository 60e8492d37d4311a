package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/tickscript/internal/watcher"
)

// Loader discovers script files in one flat directory.
type Loader struct {
	dir string
	ext string
}

// NewLoader creates a loader for dir, selecting files ending in ext.
func NewLoader(dir, ext string) *Loader {
	if ext == "" {
		ext = ".lua"
	}
	return &Loader{dir: dir, ext: ext}
}

// Dir returns the script directory.
func (l *Loader) Dir() string { return l.dir }

// Extension returns the script file extension.
func (l *Loader) Extension() string { return l.ext }

// Discover returns the sorted filenames of the regular script files in the
// directory. Subdirectories are not searched.
func (l *Loader) Discover() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, &FileIOError{Op: "list", Path: l.dir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if watcher.MatchesExtension(entry.Name(), l.ext) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the full path of filename.
func (l *Loader) Path(filename string) string {
	return filepath.Join(l.dir, filename)
}

// ValidateFilename rejects names that would escape the directory or that
// the loader would never discover.
func (l *Loader) ValidateFilename(filename string) error {
	switch {
	case filename == "",
		filename != filepath.Base(filename),
		strings.ContainsAny(filename, `/\`),
		!watcher.MatchesExtension(filename, l.ext):
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return nil
}
