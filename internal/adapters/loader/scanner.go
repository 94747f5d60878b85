// Package loader provides library directory scanning.
// The watcher only sees live events; the startup scan catches documents
// dropped into the library while the engine was not running.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// File is a candidate document found in the library directory.
type File struct {
	Path string
	Name string
}

// LibraryScanner finds document files in the library directory.
type LibraryScanner struct {
	extensions []string
}

// NewLibraryScanner creates a scanner limited to the given document
// extensions (lowercase, with leading dot).
func NewLibraryScanner(extensions []string) *LibraryScanner {
	return &LibraryScanner{extensions: extensions}
}

// Scan walks the library directory and returns the document files in it,
// non-recursively. A missing directory yields an empty result, not an
// error: a fresh install has no library yet.
func (s *LibraryScanner) Scan(ctx context.Context, dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []File
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !s.isDocument(entry.Name()) {
			continue
		}
		files = append(files, File{
			Path: filepath.Join(dir, entry.Name()),
			Name: entry.Name(),
		})
	}
	return files, nil
}

func (s *LibraryScanner) isDocument(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range s.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
