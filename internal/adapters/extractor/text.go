package extractor

import (
	"context"
	"strings"

	"github.com/hmaged/lectern/internal/domain/ports"
)

// defaultPageRunes is the target page size for plain text pagination.
const defaultPageRunes = 2000

// TextSource implements ports.DocumentSource for plain text and markdown.
// Text has no native pages, so paragraphs (blank-line separated blocks) are
// packed into pages of roughly defaultPageRunes runes. A paragraph is never
// split across pages: the page-separator join of the extracted pages must
// preserve paragraph granularity for chapter detection.
type TextSource struct {
	pageRunes int
}

// NewTextSource creates a text document source with the default page size.
func NewTextSource() *TextSource {
	return &TextSource{pageRunes: defaultPageRunes}
}

// Load paginates the text eagerly; the handle serves from memory.
func (s *TextSource) Load(ctx context.Context, name string, data []byte) (ports.DocumentHandle, error) {
	return &textHandle{pages: paginate(string(data), s.pageRunes)}, nil
}

// SupportedExtensions returns file extensions this source handles.
func (s *TextSource) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

type textHandle struct {
	pages []string
}

func (h *textHandle) PageCount() int {
	return len(h.pages)
}

func (h *textHandle) PageText(ctx context.Context, page int) (string, error) {
	return h.pages[page-1], nil
}

func (h *textHandle) Close() error {
	return nil
}

// paginate packs paragraph blocks into pages of up to pageRunes runes.
// An oversized single paragraph becomes its own page rather than being
// split.
func paginate(text string, pageRunes int) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var blocks []string
	for _, block := range strings.Split(normalized, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	if len(blocks) == 0 {
		return []string{""}
	}

	var pages []string
	var current strings.Builder
	currentRunes := 0
	for _, block := range blocks {
		blockRunes := len([]rune(block))
		if currentRunes > 0 && currentRunes+blockRunes > pageRunes {
			pages = append(pages, current.String())
			current.Reset()
			currentRunes = 0
		}
		if currentRunes > 0 {
			current.WriteString("\n\n")
			currentRunes += 2
		}
		current.WriteString(block)
		currentRunes += blockRunes
	}
	if current.Len() > 0 {
		pages = append(pages, current.String())
	}
	return pages
}
