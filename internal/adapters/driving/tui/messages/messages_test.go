package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

func TestAnswerReceived(t *testing.T) {
	t.Run("with answer", func(t *testing.T) {
		answer := &domain.Answer{
			Text:    "Alice Smith.",
			Query:   "Who is the CEO of Acme?",
			Sources: []domain.ScoredChunk{{Score: 0.9}},
		}
		msg := AnswerReceived{Question: "Who is the CEO of Acme?", Answer: answer}

		assert.Equal(t, "Alice Smith.", msg.Answer.Text)
		assert.Len(t, msg.Answer.Sources, 1)
		assert.NoError(t, msg.Err)
	})

	t.Run("with error", func(t *testing.T) {
		msg := AnswerReceived{Question: "q", Err: domain.ErrLLMUnavailable}

		assert.Nil(t, msg.Answer)
		assert.ErrorIs(t, msg.Err, domain.ErrLLMUnavailable)
	})
}

func TestErrorOccurred(t *testing.T) {
	err := errors.New("boom")
	msg := ErrorOccurred{Err: err}

	assert.Equal(t, err, msg.Err)
}
