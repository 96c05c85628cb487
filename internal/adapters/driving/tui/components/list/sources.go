// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/ragkit/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// Sources renders the chunks an answer was grounded on.
type Sources struct {
	styles *styles.Styles
	width  int
}

// NewSources creates a source list renderer.
func NewSources(s *styles.Styles) *Sources {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Sources{styles: s, width: 80}
}

// SetWidth sets the available width.
func (l *Sources) SetWidth(width int) {
	l.width = width
}

// Render formats chunks best first, one line per chunk.
func (l *Sources) Render(chunks []domain.ScoredChunk) string {
	if len(chunks) == 0 {
		return l.styles.Source.Render("(no sources)")
	}

	lines := make([]string, 0, len(chunks))
	for i := range chunks {
		lines = append(lines, l.styles.Source.Render(l.line(i, &chunks[i])))
	}
	return strings.Join(lines, "\n")
}

func (l *Sources) line(i int, sc *domain.ScoredChunk) string {
	origin := sc.Chunk.Metadata.Source
	if origin == "" {
		origin = sc.Chunk.DocumentID
	}

	head := fmt.Sprintf("[%d] %s (%.2f) ", i+1, origin, sc.Score)

	preview := strings.Join(strings.Fields(sc.Chunk.Text), " ")
	maxPreview := l.width - len(head) - 4
	if maxPreview < 20 {
		maxPreview = 20
	}
	if len(preview) > maxPreview {
		preview = preview[:maxPreview-3] + "..."
	}

	return head + preview
}
