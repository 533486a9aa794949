package retrieval

import (
	"fmt"
	"strings"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
)

// BuildPrompt assembles the completion prompt from the ranked passages.
// Each passage is tagged with its source document so the model can cite
// it.
func BuildPrompt(question string, results []domain.QueryResult) string {
	var b strings.Builder
	b.WriteString("Context passages:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] (source: %s)\n%s\n\n", i+1, r.DocumentID, r.Text)
	}
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}

// renderExtractive formats the passages as a direct answer for use when
// no completion backend is configured.
func renderExtractive(results []domain.QueryResult) string {
	var b strings.Builder
	b.WriteString("Most relevant passages:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (score %.3f)\n%s\n\n", i+1, r.DocumentID, r.Score, strings.TrimSpace(r.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}
