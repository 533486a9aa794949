package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextExtractSinglePage(t *testing.T) {
	pages, err := NewText().Extract(context.Background(), strings.NewReader("hello world"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "hello world", pages[0].Text)
}

func TestTextExtractEmptyInput(t *testing.T) {
	pages, err := NewText().Extract(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestForFile(t *testing.T) {
	assert.IsType(t, &PDF{}, ForFile("report.pdf"))
	assert.IsType(t, &PDF{}, ForFile("REPORT.PDF"))
	assert.IsType(t, &Text{}, ForFile("notes.txt"))
	assert.IsType(t, &Text{}, ForFile("readme.md"))
	assert.IsType(t, &Text{}, ForFile("no-extension"))
}
