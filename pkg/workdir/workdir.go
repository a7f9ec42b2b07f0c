// Package workdir provides a temporary working directory that is removed
// exactly once when the caller is done with it.
package workdir

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Dir is a temporary directory owned by a single run.
type Dir struct {
	path string
	once sync.Once
	err  error
}

// New creates a fresh directory under the system temp dir (or base, when
// non-empty). The name starts with "prmerge-" followed by prefix.
func New(base, prefix string) (*Dir, error) {
	pattern := "prmerge-*"
	if p := sanitize(prefix); p != "" {
		pattern = "prmerge-" + p + "-*"
	}

	path, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory's absolute location.
func (d *Dir) Path() string {
	return d.path
}

// Close removes the directory and everything in it. Later calls return the
// result of the first.
func (d *Dir) Close() error {
	d.once.Do(func() {
		if err := os.RemoveAll(d.path); err != nil {
			d.err = fmt.Errorf("failed to remove temp directory %s: %w", d.path, err)
		}
	})
	return d.err
}

// sanitize keeps prefix usable as part of a file name.
func sanitize(prefix string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '-'
	}, prefix)
}
