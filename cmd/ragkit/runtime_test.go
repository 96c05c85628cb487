package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// keywordEmbedder counts keywords so texts sharing words score close.
type keywordEmbedder struct {
	keywords []string
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(e.keywords)+1)
	for i, kw := range e.keywords {
		v[i] = float32(strings.Count(lower, kw))
	}
	v[len(e.keywords)] = 0.01
	return v
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int            { return len(e.keywords) + 1 }
func (e *keywordEmbedder) ModelName() string          { return "keywords" }
func (e *keywordEmbedder) Ping(context.Context) error { return nil }
func (e *keywordEmbedder) Close() error               { return nil }

type cannedLLM struct {
	reply  string
	closed bool
}

func (l *cannedLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	return l.reply, nil
}

func (l *cannedLLM) Chat(context.Context, []domain.Message, driven.ChatOptions) (string, error) {
	return l.reply, nil
}

func (l *cannedLLM) ModelName() string          { return "canned" }
func (l *cannedLLM) Ping(context.Context) error { return nil }
func (l *cannedLLM) Close() error               { l.closed = true; return nil }

func writeNotes(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, text := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
}

func newTestRuntime(t *testing.T, home string, values map[string]any, llm driven.LLMService) (*runtime, *int) {
	t.Helper()
	inits := 0
	rt := newRuntime(home, memory.NewConfigStoreFrom(values), nil)
	rt.initAI = func(context.Context, *domain.AppSettings) (*ai.InitResult, error) {
		inits++
		res := &ai.InitResult{EmbeddingService: &keywordEmbedder{keywords: []string{"acme", "beta", "ceo"}}}
		if llm != nil {
			res.LLMService = llm
		} else {
			res.Warnings = []string{"no LLM provider configured"}
		}
		return res, nil
	}
	return rt, &inits
}

func TestRuntime_EngineBuildsIndexOnce(t *testing.T) {
	home := t.TempDir()
	notes := filepath.Join(home, "notes")
	writeNotes(t, notes, map[string]string{
		"acme.txt": "The CEO of Acme is Alice Smith.",
		"beta.txt": "Beta Corp is led by Bob Jones.",
	})
	values := map[string]any{"source.paths": []string{notes}}

	rt, inits := newTestRuntime(t, home, values, nil)
	ctx := context.Background()

	engine, err := rt.Engine(ctx)
	require.NoError(t, err)
	require.NotNil(t, engine.Report)
	assert.False(t, engine.Report.Skipped)
	assert.Equal(t, 2, engine.Report.Documents)
	assert.Equal(t, filepath.Join(home, "index"), engine.Report.Location)
	assert.Nil(t, engine.Ask, "no LLM means no generation")
	assert.Nil(t, engine.Sessions)

	again, err := rt.Engine(ctx)
	require.NoError(t, err)
	assert.Same(t, engine, again)
	assert.Equal(t, 1, *inits)

	results, err := engine.Retriever.Retrieve(ctx, "Who is the CEO of Acme?", domain.WithK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Chunk.Text, "Alice Smith")
	require.NoError(t, rt.Close())

	reopened, _ := newTestRuntime(t, home, values, nil)
	defer reopened.Close()
	engine, err = reopened.Engine(ctx)
	require.NoError(t, err)
	assert.True(t, engine.Report.Skipped, "existing index is reused")
}

func TestRuntime_EngineWithLLM(t *testing.T) {
	home := t.TempDir()
	notes := filepath.Join(home, "notes")
	writeNotes(t, notes, map[string]string{"acme.txt": "The CEO of Acme is Alice Smith."})
	llm := &cannedLLM{reply: "Alice Smith."}
	values := map[string]any{
		"source.paths":              []string{notes},
		"conversation.strategy":     string(domain.StrategyReformulation),
		"conversation.max_sessions": 2,
	}

	rt, _ := newTestRuntime(t, home, values, llm)
	ctx := context.Background()

	engine, err := rt.Engine(ctx)
	require.NoError(t, err)
	require.NotNil(t, engine.Ask)
	require.NotNil(t, engine.Sessions)
	require.NotNil(t, engine.NewConversation)

	answer, err := engine.Ask.Ask(ctx, "Who is the CEO of Acme?")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith.", answer.Text)
	require.NotEmpty(t, answer.Sources)

	conv := engine.NewConversation()
	_, err = conv.Ask(ctx, "Who runs Acme?")
	require.NoError(t, err)
	assert.Len(t, conv.History(), 2)

	handle := engine.Sessions.Open()
	_, err = engine.Sessions.Get(handle)
	require.NoError(t, err)

	require.NoError(t, rt.Close())
	assert.True(t, llm.closed)
}

func TestRuntime_IndexerUsesGivenPaths(t *testing.T) {
	home := t.TempDir()
	configured := filepath.Join(home, "configured")
	other := filepath.Join(home, "other")
	writeNotes(t, configured, map[string]string{"a.txt": "Acme notes."})
	writeNotes(t, other, map[string]string{"b.txt": "Beta notes.", "c.md": "More beta notes."})

	rt, _ := newTestRuntime(t, home, map[string]any{"source.paths": []string{configured}}, nil)
	defer rt.Close()
	ctx := context.Background()

	indexer, source, err := rt.Indexer(ctx, []string{other})
	require.NoError(t, err)

	idx, report, err := indexer.BuildIfAbsent(ctx, source)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, report.Inserted, idx.Count())
}

func TestRuntime_EngineWithoutSourcesPersistsNothing(t *testing.T) {
	home := t.TempDir()
	ctx := context.Background()

	rt, _ := newTestRuntime(t, home, nil, nil)
	engine, err := rt.Engine(ctx)
	require.NoError(t, err)
	assert.True(t, engine.Empty)

	results, err := engine.Retriever.Retrieve(ctx, "Who is the CEO of Acme?")
	require.NoError(t, err)
	assert.Empty(t, results)
	require.NoError(t, rt.Close())

	store, err := sqlite.NewIndexStore(filepath.Join(home, "index"))
	require.NoError(t, err)
	exists, err := store.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists, "querying before indexing must not leave an empty index behind")

	notes := filepath.Join(home, "notes")
	writeNotes(t, notes, map[string]string{"acme.txt": "The CEO of Acme is Alice Smith."})
	rt, _ = newTestRuntime(t, home, map[string]any{"source.paths": []string{notes}}, nil)
	defer rt.Close()

	indexer, source, err := rt.Indexer(ctx, nil)
	require.NoError(t, err)
	idx, report, err := indexer.BuildIfAbsent(ctx, source)
	require.NoError(t, err)
	defer idx.Close()
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, report.Documents)
	assert.Positive(t, idx.Count())
}

func TestRuntime_InitError(t *testing.T) {
	rt := newRuntime(t.TempDir(), memory.NewConfigStore(), nil)
	rt.initAI = func(context.Context, *domain.AppSettings) (*ai.InitResult, error) {
		return nil, domain.ErrEmbeddingUnavailable
	}

	_, err := rt.Engine(context.Background())
	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))

	_, _, err = rt.Indexer(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	assert.NoError(t, rt.Close())
}
