// Package chunker splits documents into overlapping chunks along natural
// text boundaries.
//
// Text is split on the first separator from a priority list that occurs in
// it ("\n\n", "\n", ". ", ...). Pieces still longer than the limit are split
// again with the next separator, and the last resort slices runes. Adjacent
// pieces are then merged greedily up to the limit. Separators stay attached
// to the piece they end, so with no overlap the chunks concatenate back to
// the original text.
package chunker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 0

// DefaultSeparators lists split points from coarsest to finest. The empty
// separator means slicing between runes.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("0b6e5c1e-3c2a-5c8e-9d7a-8f3e4c2b1a60")

// Processor splits document text into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithSeparators replaces the separator priority list.
// An empty separator is always appended so splitting terminates.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		p.separators = append([]string(nil), seps...)
		if len(seps) == 0 || seps[len(seps)-1] != "" {
			p.separators = append(p.separators, "")
		}
	}
}

// New creates a chunker. A non-positive size, a negative overlap or an
// overlap not smaller than the size is a *domain.ConfigurationError.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	cfg := domain.ChunkSettings{Size: p.chunkSize, Overlap: p.overlap}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Split is a convenience for New(WithChunkSize(maxSize), WithOverlap(overlap)).Process.
func Split(doc domain.Document, maxSize, overlap int) ([]domain.Chunk, error) {
	p, err := New(WithChunkSize(maxSize), WithOverlap(overlap))
	if err != nil {
		return nil, err
	}
	return p.Process(context.Background(), &doc, nil)
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the maximum chunk length in characters.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap in characters.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document text into chunks.
// Input chunks are ignored; this processor creates new chunks from the document.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Text == "" {
		return nil, nil
	}

	text := doc.Text
	spans := p.merge(text, p.split(text, span{0, len(text)}, p.separators), p.chunkSize-p.overlap)

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		start := s.start
		if i > 0 && p.overlap > 0 {
			start = backRunes(text, s.start, p.overlap)
		}

		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Text:       text[start:s.end],
			Start:      start,
			End:        s.end,
			Position:   i,
			Metadata: doc.Metadata.
				With(domain.MetaDocumentID, doc.ID).
				With(domain.MetaChunkIndex, strconv.Itoa(i)),
		})
	}

	return chunks, nil
}

// ChunkID derives a stable identifier from the document ID and position,
// so re-chunking an unchanged document yields the same IDs.
func ChunkID(documentID string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", documentID, position))).String()
}

// span is a half-open byte range of the document text.
type span struct {
	start, end int
}

// split breaks s into pieces no longer than the merge limit, trying
// separators in order.
func (p *Processor) split(text string, s span, seps []string) []span {
	limit := p.chunkSize - p.overlap
	if utf8.RuneCountInString(text[s.start:s.end]) <= limit {
		return []span{s}
	}

	for i, sep := range seps {
		if sep == "" {
			return sliceRunes(text, s, limit)
		}
		if !strings.Contains(text[s.start:s.end], sep) {
			continue
		}

		var out []span
		pos := s.start
		for _, piece := range strings.SplitAfter(text[s.start:s.end], sep) {
			if piece == "" {
				continue
			}
			ps := span{pos, pos + len(piece)}
			pos = ps.end
			if utf8.RuneCountInString(piece) <= limit {
				out = append(out, ps)
				continue
			}
			out = append(out, p.split(text, ps, seps[i+1:])...)
		}
		return out
	}

	return sliceRunes(text, s, limit)
}

// merge joins adjacent pieces while the result stays within limit runes.
func (p *Processor) merge(text string, pieces []span, limit int) []span {
	var out []span
	cur := span{-1, -1}
	curLen := 0

	for _, ps := range pieces {
		n := utf8.RuneCountInString(text[ps.start:ps.end])
		if cur.start >= 0 && curLen+n <= limit {
			cur.end = ps.end
			curLen += n
			continue
		}
		if cur.start >= 0 {
			out = append(out, cur)
		}
		cur = ps
		curLen = n
	}
	if cur.start >= 0 {
		out = append(out, cur)
	}

	return out
}

// sliceRunes cuts s into consecutive runs of at most limit runes.
func sliceRunes(text string, s span, limit int) []span {
	var out []span
	start, count := s.start, 0
	for i := range text[s.start:s.end] {
		if count == limit {
			out = append(out, span{start, s.start + i})
			start, count = s.start+i, 0
		}
		count++
	}
	return append(out, span{start, s.end})
}

// backRunes returns the byte offset n runes before pos, stopping at 0.
func backRunes(text string, pos, n int) int {
	for ; n > 0 && pos > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	return pos
}
