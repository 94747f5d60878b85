// Package extractor provides document source adapters.
// Clean Architecture: Adapters implementing ports.DocumentSource.
// PDF extraction uses ledongthuc/pdf - pure Go, no CGO or sidecar process.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hmaged/lectern/internal/domain/ports"
)

// PDFSource implements ports.DocumentSource for PDF documents.
type PDFSource struct{}

// NewPDFSource creates a PDF document source.
func NewPDFSource() *PDFSource {
	return &PDFSource{}
}

// Load opens PDF bytes for page-addressable text extraction.
func (s *PDFSource) Load(ctx context.Context, name string, data []byte) (ports.DocumentHandle, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	return &pdfHandle{reader: reader}, nil
}

// SupportedExtensions returns file extensions this source handles.
func (s *PDFSource) SupportedExtensions() []string {
	return []string{".pdf"}
}

type pdfHandle struct {
	reader *pdf.Reader
}

func (h *pdfHandle) PageCount() int {
	return h.reader.NumPage()
}

// PageText extracts the plain text of one page. A page without a text layer
// (scanned images) yields an empty string; an unreadable page is an error.
func (h *pdfHandle) PageText(ctx context.Context, page int) (string, error) {
	p := h.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting page %d: %w", page, err)
	}
	return strings.TrimSpace(text), nil
}

func (h *pdfHandle) Close() error {
	return nil
}
