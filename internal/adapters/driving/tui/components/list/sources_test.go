package list

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

func scored(docID, source, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			ID:         docID + "#0",
			DocumentID: docID,
			Text:       text,
			Metadata:   domain.Metadata{Source: source},
		},
		Score: score,
	}
}

func TestSources_Render(t *testing.T) {
	l := NewSources(nil)

	out := l.Render([]domain.ScoredChunk{
		scored("acme", "notes/acme.txt", "The CEO of Acme is Alice Smith.", 0.91),
		scored("beta", "", "Beta Corp hired Bob.", 0.42),
	})

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[1] notes/acme.txt (0.91)")
	assert.Contains(t, lines[0], "Alice Smith")
	assert.Contains(t, lines[1], "[2] beta (0.42)", "falls back to document id")
}

func TestSources_RenderEmpty(t *testing.T) {
	l := NewSources(nil)

	assert.Contains(t, l.Render(nil), "no sources")
}

func TestSources_TruncatesPreview(t *testing.T) {
	l := NewSources(nil)
	l.SetWidth(60)

	out := l.Render([]domain.ScoredChunk{
		scored("long", "long.txt", strings.Repeat("word ", 100), 0.5),
	})

	assert.Contains(t, out, "...")
	assert.Less(t, len(out), 100)
}

func TestSources_CollapsesWhitespace(t *testing.T) {
	l := NewSources(nil)

	out := l.Render([]domain.ScoredChunk{
		scored("a", "a.txt", "line one\n\nline   two", 1),
	})

	assert.Contains(t, out, "line one line two")
}
