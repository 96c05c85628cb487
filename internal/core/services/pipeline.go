package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// Ensure Pipeline implements the interface.
var _ driving.AskService = (*Pipeline)(nil)

// Generator produces an answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, req domain.PromptRequest) (string, error)
}

// ChatGenerator generates through an LLM chat endpoint.
type ChatGenerator struct {
	llm     driven.LLMService
	timeout time.Duration
	opts    driven.ChatOptions
}

// NewChatGenerator creates a generator bounded by timeout. Zero disables
// the timeout.
func NewChatGenerator(llm driven.LLMService, timeout time.Duration, opts driven.ChatOptions) *ChatGenerator {
	return &ChatGenerator{llm: llm, timeout: timeout, opts: opts}
}

// Generate sends req as chat messages and returns the reply.
func (g *ChatGenerator) Generate(ctx context.Context, req domain.PromptRequest) (string, error) {
	genCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.llm.Chat(genCtx, req.Messages(), g.opts)
	if err == nil {
		return text, nil
	}

	var svcErr *domain.ServiceError
	switch {
	case errors.As(err, &svcErr):
		return "", err
	case ctx.Err() != nil:
		return "", ctx.Err()
	default:
		return "", domain.NewServiceError(domain.StageGenerate, domain.ServiceUnavailable, err)
	}
}

// Pipeline runs retrieve, assemble and generate in sequence.
type Pipeline struct {
	Retriever driving.Retriever
	Assembler *Assembler
	Generator Generator
}

// NewPipeline wires the three stages.
func NewPipeline(retriever driving.Retriever, assembler *Assembler, generator Generator) *Pipeline {
	return &Pipeline{Retriever: retriever, Assembler: assembler, Generator: generator}
}

// Ask answers a standalone question.
func (p *Pipeline) Ask(ctx context.Context, question string, opts ...domain.RetrieveOption) (*domain.Answer, error) {
	return p.Run(ctx, question, question, nil, opts...)
}

// Run retrieves with query and answers question with history in the prompt.
func (p *Pipeline) Run(
	ctx context.Context,
	question, query string,
	history []domain.Turn,
	opts ...domain.RetrieveOption,
) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &domain.ValidationError{Op: "ask", Err: fmt.Errorf("%w: empty question", domain.ErrInvalidInput)}
	}
	if p.Generator == nil {
		return nil, domain.ErrLLMUnavailable
	}

	chunks, err := p.Retriever.Retrieve(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	req := p.Assembler.Assemble(question, chunks, history)
	text, err := p.Generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	return &domain.Answer{Text: strings.TrimSpace(text), Query: query, Sources: chunks}, nil
}
