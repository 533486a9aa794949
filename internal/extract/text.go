package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
)

// Text treats the input as plain UTF-8 text, yielding a single page.
type Text struct{}

// NewText returns a plain text extractor.
func NewText() *Text { return &Text{} }

func (t *Text) Extract(_ context.Context, r io.Reader) ([]domain.Page, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read input: %v", domain.ErrExtractionFailed, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return []domain.Page{{Number: 1, Text: string(raw)}}, nil
}

// ForFile picks an extractor by file extension. Unknown extensions are
// treated as plain text.
func ForFile(name string) domain.Extractor {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return NewPDF()
	default:
		return NewText()
	}
}
