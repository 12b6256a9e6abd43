// Package filestore reads pipeline inputs from local directories: uploaded
// documents and transcript drops.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// List returns the names of regular files under the root whose extension is
// in exts (compared case-insensitively, with or without the leading dot).
// Subdirectories are not walked.
func (s *Store) List(exts ...string) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}

	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if len(want) == 0 || want[ext] {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Read returns the contents of a named file under the root. Path escapes
// are rejected.
func (s *Store) Read(name string) ([]byte, error) {
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("read %s: name must not contain path separators", name)
	}
	data, err := os.ReadFile(filepath.Join(s.root, name)) // #nosec G304 -- name is validated above
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
