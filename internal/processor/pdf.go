package processor

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"studyrag/internal/models"
)

// PDFProcessor extracts per-page text from uploaded PDF bytes.
type PDFProcessor struct{}

// NewPDFProcessor creates a new PDF processor.
func NewPDFProcessor() *PDFProcessor {
	return &PDFProcessor{}
}

// ExtractPages returns one Page per document page, in order, with
// 1-based indices matching the page's position in the file. A page
// whose extraction fails or yields nothing comes back with empty text;
// the caller decides how to handle it.
func (p *PDFProcessor) ExtractPages(data []byte) (pages []models.Page, err error) {
	// The parser panics on some malformed files; uploads are untrusted.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages = make([]models.Page, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		var text string
		if !page.V.IsNull() {
			if t, err := page.GetPlainText(nil); err == nil {
				text = t
			}
		}
		pages = append(pages, models.Page{Index: i, Text: text})
	}
	return pages, nil
}
