package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Reformulator rewrites a follow-up question into a standalone query.
type Reformulator interface {
	Reformulate(ctx context.Context, question string, history []domain.Turn) (string, error)
}

// HeuristicReformulator prefixes the question with the most recent user turns.
type HeuristicReformulator struct {
	// Turns is how many previous user questions are kept. Zero means one.
	Turns int
}

// Reformulate joins the previous user questions with question.
func (h HeuristicReformulator) Reformulate(_ context.Context, question string, history []domain.Turn) (string, error) {
	n := max(h.Turns, 1)

	var prev []string
	for i := len(history) - 1; i >= 0 && len(prev) < n; i-- {
		if history[i].Role == domain.RoleUser {
			prev = append(prev, strings.TrimSpace(history[i].Content))
		}
	}
	if len(prev) == 0 {
		return question, nil
	}

	parts := make([]string, 0, len(prev)+1)
	for i := len(prev) - 1; i >= 0; i-- {
		parts = append(parts, prev[i])
	}
	return strings.Join(append(parts, strings.TrimSpace(question)), " "), nil
}

// fallbackReformulatePrompt is used when the prompt store has no template.
const fallbackReformulatePrompt = `Rewrite the follow-up question as a standalone search query.
Return ONLY the query.

Conversation:
%s

Follow-up question: %s
Standalone query:`

// LLMReformulator asks a generation model for the standalone query.
type LLMReformulator struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	timeout time.Duration
	log     logger.Scoped
}

// NewLLMReformulator creates a model-backed reformulator. prompts may be nil.
func NewLLMReformulator(llm driven.LLMService, prompts driven.PromptStore, timeout time.Duration) *LLMReformulator {
	return &LLMReformulator{llm: llm, prompts: prompts, timeout: timeout, log: logger.For("reformulate")}
}

// Reformulate returns the model's rewrite, or question when the model
// answers blank.
func (r *LLMReformulator) Reformulate(ctx context.Context, question string, history []domain.Turn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	tmpl := fallbackReformulatePrompt
	if r.prompts != nil {
		if p, err := r.prompts.Load(driven.PromptReformulate); err == nil && strings.TrimSpace(p) != "" {
			tmpl = p
		}
	}
	prompt := fmt.Sprintf(tmpl, Transcript(history), question)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := r.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: 0, Stop: []string{"\n"}})
	if err != nil {
		return "", fmt.Errorf("%s: %w", domain.StageReformulate, err)
	}

	query := strings.Trim(strings.TrimSpace(out), `"`)
	if query == "" {
		r.log.Debug("blank rewrite, using question as is")
		return question, nil
	}
	r.log.Debug("%q -> %q", question, query)
	return query, nil
}

// Transcript renders turns as "User: ..." and "Assistant: ..." lines.
func Transcript(history []domain.Turn) string {
	var b strings.Builder
	for i, t := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch t.Role {
		case domain.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(t.Content)
	}
	return b.String()
}
