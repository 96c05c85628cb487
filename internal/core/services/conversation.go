package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure Conversation implements the interface.
var _ driving.ConversationService = (*Conversation)(nil)

// Conversation answers questions while keeping a history.
//
// The first question is retrieved verbatim. Follow-ups are retrieved with the
// literal question (context injection) or a standalone rewrite
// (reformulation); both strategies put the windowed history in the prompt.
// A question and its answer are recorded together, and only when generation
// succeeds. An answer still in flight when Clear is called is not recorded.
type Conversation struct {
	mu           sync.Mutex
	pipeline     *Pipeline
	reformulator Reformulator
	settings     domain.ConversationSettings
	history      []domain.Turn
	epoch        uint64
	now          func() time.Time
	log          logger.Scoped
}

// NewConversation creates a conversation. reformulator is only consulted
// under StrategyReformulation and defaults to HeuristicReformulator.
func NewConversation(pipeline *Pipeline, reformulator Reformulator, settings domain.ConversationSettings) *Conversation {
	if !settings.Strategy.IsValid() {
		settings.Strategy = domain.StrategyContextInjection
	}
	if reformulator == nil {
		reformulator = HeuristicReformulator{}
	}
	// The latest pair is always kept.
	if settings.MaxTurns > 0 {
		settings.MaxTurns += settings.MaxTurns % 2
	}
	return &Conversation{
		pipeline:     pipeline,
		reformulator: reformulator,
		settings:     settings,
		now:          time.Now,
		log:          logger.For("conversation"),
	}
}

// Strategy returns the retrieval strategy for follow-up questions.
func (c *Conversation) Strategy() domain.ConversationStrategy {
	return c.settings.Strategy
}

// Ask answers question in the context of the history so far.
func (c *Conversation) Ask(ctx context.Context, question string, opts ...domain.RetrieveOption) (*domain.Answer, error) {
	c.mu.Lock()
	history := slices.Clone(c.history)
	epoch := c.epoch
	c.mu.Unlock()

	query := question
	if len(history) > 0 && c.settings.Strategy == domain.StrategyReformulation {
		rewritten, err := c.reformulator.Reformulate(ctx, question, history)
		if err != nil {
			return nil, fmt.Errorf("reformulate: %w", err)
		}
		query = rewritten
	}

	answer, err := c.pipeline.Run(ctx, question, query, c.window(history), opts...)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.record(epoch, question, answer.Text)
	return answer, nil
}

// window returns the most recent HistoryWindow turns.
func (c *Conversation) window(history []domain.Turn) []domain.Turn {
	n := c.settings.HistoryWindow
	if n <= 0 || n >= len(history) {
		return history
	}
	return history[len(history)-n:]
}

// record appends the question and answer as one unit, unless the history
// was cleared after the question was asked.
func (c *Conversation) record(epoch uint64, question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		c.log.Debug("history cleared during ask, answer not recorded")
		return
	}

	now := c.now()
	c.history = append(c.history,
		domain.Turn{Role: domain.RoleUser, Content: question, CreatedAt: now},
		domain.Turn{Role: domain.RoleAssistant, Content: answer, CreatedAt: now},
	)

	if limit := c.settings.MaxTurns; limit > 0 && len(c.history) > limit {
		// Drop whole pairs so the history still starts with a user turn.
		drop := len(c.history) - limit
		drop += drop % 2
		c.history = slices.Clone(c.history[drop:])
		c.log.Debug("trimmed %d turns", drop)
	}
	for i := range c.history {
		c.history[i].Seq = i
	}
}

// History returns a copy of the recorded turns, oldest first.
func (c *Conversation) History() []domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// Clear empties the history. Answers to questions asked before the call are
// not recorded.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.epoch++
}

// State reports whether any turn has been recorded.
func (c *Conversation) State() domain.ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return domain.StateFresh
	}
	return domain.StateActive
}
