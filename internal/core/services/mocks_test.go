package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// mockEmbedder maps text to a vector by counting keywords, so texts sharing
// words land close together.
type mockEmbedder struct {
	mu       sync.Mutex
	keywords []string
	calls    int
	queries  []string
	err      error
	failOn   string

	// gate, when set, blocks Embed until it is closed or ctx is done.
	gate chan struct{}
}

func newMockEmbedder(keywords ...string) *mockEmbedder {
	return &mockEmbedder{keywords: keywords}
}

func (m *mockEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(m.keywords)+1)
	for i, kw := range m.keywords {
		v[i] = float32(strings.Count(lower, strings.ToLower(kw)))
	}
	// Bias term keeps every vector non-zero.
	v[len(m.keywords)] = 0.01
	return v
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.queries = append(m.queries, text)
	err, gate := m.err, m.gate
	m.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if m.failOn != "" && strings.Contains(t, m.failOn) {
			return nil, domain.NewServiceError(domain.StageEmbed, domain.ServiceUnavailable, errors.New("refused"))
		}
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return len(m.keywords) + 1 }
func (m *mockEmbedder) ModelName() string          { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) lastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queries) == 0 {
		return ""
	}
	return m.queries[len(m.queries)-1]
}

// mockLLM returns canned replies and records what it was sent.
type mockLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	chats    [][]domain.Message
	prompts  []string
	generate string

	// gate, when set, blocks Chat until it is closed or ctx is done.
	gate chan struct{}
}

// wait blocks until gate is closed or ctx is done. A nil gate never blocks.
func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.generate, ctx.Err()
}

func (m *mockLLM) Chat(ctx context.Context, messages []domain.Message, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.chats = append(m.chats, messages)
	reply, err, gate := m.reply, m.err, m.gate
	m.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return "", err
	}
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return reply, nil
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

func (m *mockLLM) lastChat() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.chats) == 0 {
		return nil
	}
	return m.chats[len(m.chats)-1]
}

// mockPromptStore serves prompts from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockIndexStore keeps a single in-memory index.
type mockIndexStore struct {
	mu      sync.Mutex
	index   *memory.VectorIndex
	removed int
}

func (m *mockIndexStore) Exists(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index != nil, nil
}

func (m *mockIndexStore) Open(_ context.Context, dim int, metric domain.Metric) (driven.VectorIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == nil {
		idx, err := memory.NewVectorIndex(dim, metric)
		if err != nil {
			return nil, err
		}
		m.index = idx
	}
	return m.index, nil
}

func (m *mockIndexStore) Remove(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = nil
	m.removed++
	return nil
}

func (m *mockIndexStore) Location() string { return "memory" }

// mockSource returns fixed documents.
type mockSource struct {
	docs     []domain.Document
	failures []domain.ChunkFailure
	err      error
	loads    int
}

func (m *mockSource) Load(context.Context) ([]domain.Document, []domain.ChunkFailure, error) {
	m.loads++
	return m.docs, m.failures, m.err
}

// mockWatcher replays changes then closes.
type mockWatcher struct {
	changes []domain.DocumentChange
}

func (m *mockWatcher) Watch(ctx context.Context) (<-chan domain.DocumentChange, error) {
	ch := make(chan domain.DocumentChange)
	go func() {
		defer close(ch)
		for _, c := range m.changes {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// mockPipeline splits documents on blank lines.
type mockPipeline struct {
	err error
}

func (m *mockPipeline) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	var chunks []domain.Chunk
	offset := 0
	for i, part := range strings.Split(doc.Text, "\n\n") {
		chunks = append(chunks, domain.Chunk{
			ID:         doc.ID + "#" + string(rune('0'+i)),
			DocumentID: doc.ID,
			Text:       part,
			Start:      offset,
			End:        offset + len(part),
			Position:   i,
			Metadata:   doc.Metadata,
		})
		offset += len(part) + 2
	}
	return chunks, nil
}

func testDoc(id, category, text string) domain.Document {
	return domain.Document{
		ID:       id,
		Text:     text,
		Metadata: domain.Metadata{Source: id + ".txt", Category: category},
	}
}
