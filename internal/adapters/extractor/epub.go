package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/simp-lee/epub"

	"github.com/hmaged/lectern/internal/domain/ports"
)

// EpubSource implements ports.DocumentSource for EPUB documents. Each linear
// content chapter maps to one "page"; license boilerplate is excluded.
type EpubSource struct{}

// NewEpubSource creates an EPUB document source.
func NewEpubSource() *EpubSource {
	return &EpubSource{}
}

// Load opens EPUB bytes for chapter-addressable text extraction.
func (s *EpubSource) Load(ctx context.Context, name string, data []byte) (ports.DocumentHandle, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	book, err := epub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening epub: %w", err)
	}
	return &epubHandle{book: book, chapters: book.ContentChapters()}, nil
}

// SupportedExtensions returns file extensions this source handles.
func (s *EpubSource) SupportedExtensions() []string {
	return []string{".epub"}
}

type epubHandle struct {
	book     *epub.Book
	chapters []epub.Chapter
}

func (h *epubHandle) PageCount() int {
	return len(h.chapters)
}

// PageText extracts the plain text of one chapter, prefixed with its TOC
// title when known so heading lines survive into the extracted text.
func (h *epubHandle) PageText(ctx context.Context, page int) (string, error) {
	if page < 1 || page > len(h.chapters) {
		return "", fmt.Errorf("chapter %d out of range", page)
	}
	chapter := h.chapters[page-1]
	text, err := chapter.TextContent()
	if err != nil {
		return "", fmt.Errorf("extracting chapter %d: %w", page, err)
	}
	text = strings.TrimSpace(text)
	if chapter.Title != "" && !strings.HasPrefix(text, chapter.Title) {
		text = chapter.Title + "\n" + text
	}
	return text, nil
}

func (h *epubHandle) Close() error {
	return h.book.Close()
}
