package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

func newTestPipeline(t *testing.T, emb *mockEmbedder, llm *mockLLM) *Pipeline {
	t.Helper()
	retriever := NewRetriever(builtIndex(t, emb), emb, domain.RetrievalSettings{K: 2})
	return NewPipeline(retriever, NewAssembler(nil), NewChatGenerator(llm, time.Second, driven.ChatOptions{}))
}

func TestPipeline_Ask(t *testing.T) {
	emb := newMockEmbedder("acme", "beta", "ceo", "budget")
	llm := &mockLLM{reply: "  Bob is the CEO of Beta Corp.\n"}
	p := newTestPipeline(t, emb, llm)

	answer, err := p.Ask(context.Background(), "Who is the CEO of Beta Corp?")

	require.NoError(t, err)
	assert.Equal(t, "Bob is the CEO of Beta Corp.", answer.Text)
	assert.Equal(t, "Who is the CEO of Beta Corp?", answer.Query)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "The CEO of Beta Corp is Bob.", answer.Sources[0].Chunk.Text)

	msgs := llm.lastChat()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "The CEO of Beta Corp is Bob.")
	assert.Contains(t, msgs[1].Content, "Question: Who is the CEO of Beta Corp?")
}

func TestPipeline_RunRetrievesWithQuery(t *testing.T) {
	emb := newMockEmbedder("acme", "beta", "ceo", "budget")
	llm := &mockLLM{reply: "ok"}
	p := newTestPipeline(t, emb, llm)
	history := []domain.Turn{{Role: domain.RoleUser, Content: "earlier"}, {Role: domain.RoleAssistant, Content: "reply"}}

	answer, err := p.Run(context.Background(), "And Beta?", "CEO of Beta Corp", history)

	require.NoError(t, err)
	assert.Equal(t, "CEO of Beta Corp", emb.lastQuery())
	assert.Equal(t, "CEO of Beta Corp", answer.Query)
	msgs := llm.lastChat()
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[3].Content, "Question: And Beta?")
}

func TestPipeline_EmptyQuestion(t *testing.T) {
	p := newTestPipeline(t, newMockEmbedder("acme"), &mockLLM{})

	_, err := p.Ask(context.Background(), " ")

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipeline_NoGenerator(t *testing.T) {
	emb := newMockEmbedder("acme")
	p := NewPipeline(NewRetriever(builtIndex(t, emb), emb, domain.RetrievalSettings{}), NewAssembler(nil), nil)

	_, err := p.Ask(context.Background(), "acme")

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestPipeline_GenerationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"service error", domain.NewServiceError(domain.StageGenerate, domain.ServiceUnavailable, errors.New("503")), domain.ErrServiceUnavailable},
		{"plain error", errors.New("boom"), domain.ErrServiceUnavailable},
		{"deadline", context.DeadlineExceeded, domain.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, newMockEmbedder("acme"), &mockLLM{err: tt.err})

			_, err := p.Ask(context.Background(), "acme")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var svcErr *domain.ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, domain.StageGenerate, svcErr.Stage)
		})
	}
}

func TestPipeline_GenerateTimeoutFires(t *testing.T) {
	emb := newMockEmbedder("acme")
	llm := &mockLLM{reply: "never", gate: make(chan struct{})}
	retriever := NewRetriever(builtIndex(t, emb), emb, domain.RetrievalSettings{K: 2})
	p := NewPipeline(retriever, NewAssembler(nil), NewChatGenerator(llm, 20*time.Millisecond, driven.ChatOptions{}))

	start := time.Now()
	_, err := p.Ask(context.Background(), "acme")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, domain.StageGenerate, svcErr.Stage)
}

func TestPipeline_RetrievalErrorSkipsGeneration(t *testing.T) {
	emb := newMockEmbedder("acme")
	llm := &mockLLM{reply: "never"}
	p := newTestPipeline(t, emb, llm)
	emb.err = domain.NewServiceError(domain.StageEmbed, domain.ServiceUnavailable, errors.New("down"))

	_, err := p.Ask(context.Background(), "acme")

	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Nil(t, llm.lastChat())
}
