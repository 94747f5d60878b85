// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
package usecases

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hmaged/lectern/internal/domain/entities"
	"github.com/hmaged/lectern/internal/domain/ports"
)

// PageSeparator joins page texts into the full text. The two-newline join is
// load-bearing: chapter detection and search assume paragraph granularity is
// preserved across page boundaries.
const PageSeparator = "\n\n"

// Extraction is the machine-extracted text view of a document.
type Extraction struct {
	PageTexts []string
	FullText  string
}

// Extractor turns raw document bytes into ordered per-page text plus a
// concatenated full text, dispatching to a DocumentSource by file extension.
type Extractor struct {
	sources map[string]ports.DocumentSource
}

// NewExtractor creates an Extractor with no registered sources.
func NewExtractor() *Extractor {
	return &Extractor{sources: make(map[string]ports.DocumentSource)}
}

// Register adds a document source for each of its supported extensions.
func (e *Extractor) Register(source ports.DocumentSource) {
	for _, ext := range source.SupportedExtensions() {
		e.sources[strings.ToLower(ext)] = source
	}
}

// SupportedExtensions returns all registered extensions.
func (e *Extractor) SupportedExtensions() []string {
	exts := make([]string, 0, len(e.sources))
	for ext := range e.sources {
		exts = append(exts, ext)
	}
	return exts
}

// Supports reports whether a file name has a registered source.
func (e *Extractor) Supports(name string) bool {
	_, ok := e.sources[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extract produces the per-page texts and full text of a document.
// Pages are read strictly in order. A failure on any page aborts the whole
// extraction: partial documents would carry a misleading page count that
// search and chapter navigation cannot reconcile.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (*Extraction, error) {
	ext := strings.ToLower(filepath.Ext(name))
	source, ok := e.sources[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnsupportedFormat, ext)
	}

	handle, err := source.Load(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: loading %s: %v", entities.ErrExtraction, name, err)
	}
	defer handle.Close()

	count := handle.PageCount()
	pageTexts := make([]string, 0, count)
	for page := 1; page <= count; page++ {
		text, err := handle.PageText(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d of %s: %v", entities.ErrExtraction, page, name, err)
		}
		pageTexts = append(pageTexts, text)
	}

	return &Extraction{
		PageTexts: pageTexts,
		FullText:  strings.Join(pageTexts, PageSeparator),
	}, nil
}
