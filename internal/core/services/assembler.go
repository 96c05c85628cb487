package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// DefaultSeparator sits between chunk texts in the prompt context.
const DefaultSeparator = "\n\n---\n\n"

// fallbackSystemPrompt is used when no prompt store is configured.
const fallbackSystemPrompt = `You are an assistant that helps find any kind of internal company information.
Answer only from the documents provided.
If the information is not in the documents, say so clearly.`

// Assembler builds generation prompts from retrieved chunks.
type Assembler struct {
	prompts   driven.PromptStore
	separator string
}

// NewAssembler creates an assembler. prompts may be nil.
func NewAssembler(prompts driven.PromptStore) *Assembler {
	return &Assembler{prompts: prompts, separator: DefaultSeparator}
}

// WithSeparator returns a copy joining chunks with sep.
func (a *Assembler) WithSeparator(sep string) *Assembler {
	out := *a
	out.separator = sep
	return &out
}

// Assemble combines the system instruction, the chunks in ranking order,
// history oldest first, and the question.
func (a *Assembler) Assemble(question string, chunks []domain.ScoredChunk, history []domain.Turn) domain.PromptRequest {
	joined := FormatContext(chunks, a.separator)
	return domain.PromptRequest{
		System:      a.systemPrompt(),
		Context:     joined,
		History:     history,
		Question:    question,
		UserMessage: fmt.Sprintf("Relevant documents:\n\n%s\n\nQuestion: %s", joined, question),
	}
}

func (a *Assembler) systemPrompt() string {
	if a.prompts == nil {
		return fallbackSystemPrompt
	}
	prompt, err := a.prompts.Load(driven.PromptSystem)
	if err != nil || strings.TrimSpace(prompt) == "" {
		logger.Warn("system prompt unavailable, using built-in: %v", err)
		return fallbackSystemPrompt
	}
	return strings.TrimSpace(prompt)
}
