package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
)

// PDF extracts page-tagged text from PDF documents.
type PDF struct{}

// NewPDF returns a PDF extractor.
func NewPDF() *PDF { return &PDF{} }

// Extract reads the whole PDF and pulls text page by page. A page that
// yields no text is skipped; a structurally broken document fails the
// whole extraction.
func (p *PDF) Extract(ctx context.Context, r io.Reader) ([]domain.Page, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read input: %v", domain.ErrExtractionFailed, err)
	}

	reader, err := model.NewPdfReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: parse pdf: %v", domain.ErrExtractionFailed, err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("%w: page count: %v", domain.ErrExtractionFailed, err)
	}

	var pages []domain.Page
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := reader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", domain.ErrExtractionFailed, i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", domain.ErrExtractionFailed, i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", domain.ErrExtractionFailed, i, err)
		}
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return pages, nil
}
