package driven

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// LLMService generates text. Failures are returned as *domain.ServiceError
// with Stage generate.
type LLMService interface {
	// Generate completes a single prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat answers the final message given the preceding ones.
	Chat(ctx context.Context, messages []domain.Message, opts ChatOptions) (string, error)

	// ModelName returns the model identifier.
	ModelName() string

	// Ping checks the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures a single-prompt completion.
type GenerateOptions struct {
	// MaxTokens limits the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64

	// Stop sequences end generation early.
	Stop []string
}

// ChatOptions configures a chat completion.
type ChatOptions struct {
	// MaxTokens limits the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64
}
