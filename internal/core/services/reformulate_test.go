package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

func turns(contents ...string) []domain.Turn {
	out := make([]domain.Turn, len(contents))
	for i, c := range contents {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		out[i] = domain.Turn{Role: role, Content: c, Seq: i}
	}
	return out
}

func TestHeuristicReformulator(t *testing.T) {
	history := turns("Who is the CEO of Acme?", "Alice.", "When did she start?", "In 2019.")

	tests := []struct {
		name    string
		turns   int
		history []domain.Turn
		want    string
	}{
		{"no history", 0, nil, "And of Beta Corp?"},
		{"last user turn", 0, history, "When did she start? And of Beta Corp?"},
		{"two user turns", 2, history, "Who is the CEO of Acme? When did she start? And of Beta Corp?"},
		{"more than available", 5, history[:2], "Who is the CEO of Acme? And of Beta Corp?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HeuristicReformulator{Turns: tt.turns}.Reformulate(context.Background(), "And of Beta Corp?", tt.history)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMReformulator_BlankFallsBack(t *testing.T) {
	llm := &mockLLM{generate: "  \n"}
	r := NewLLMReformulator(llm, nil, 0)

	got, err := r.Reformulate(context.Background(), "And of Beta Corp?", turns("Who is the CEO of Acme?", "Alice."))

	require.NoError(t, err)
	assert.Equal(t, "And of Beta Corp?", got)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Follow-up question: And of Beta Corp?")
}

func TestLLMReformulator_TrimsQuotes(t *testing.T) {
	llm := &mockLLM{generate: `"CEO of Beta Corp"`}
	r := NewLLMReformulator(llm, &mockPromptStore{}, 0)

	got, err := r.Reformulate(context.Background(), "And of Beta Corp?", turns("Who is the CEO of Acme?", "Alice."))

	require.NoError(t, err)
	assert.Equal(t, "CEO of Beta Corp", got)
}

func TestTranscript(t *testing.T) {
	assert.Equal(t, "User: hi\nAssistant: hello", Transcript(turns("hi", "hello")))
	assert.Equal(t, "", Transcript(nil))
}
