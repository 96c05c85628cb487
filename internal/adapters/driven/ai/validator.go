package ai

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by building the client and
// pinging it. Unconfigured providers pass: there is nothing to reach.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator that waits pingTimeout per check.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// WithTimeout returns a copy of v that waits d per check.
func (v *ConfigValidator) WithTimeout(d time.Duration) *ConfigValidator {
	return &ConfigValidator{timeout: d}
}

// ValidateEmbedding builds the embedding client for config and pings it.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(config)
	if err != nil {
		return domain.NewConfigurationError("embedding.provider", "%v", err)
	}
	if svc == nil {
		return nil
	}
	return v.ping(svc, domain.StageEmbed)
}

// ValidateLLM builds the generation client for config and pings it.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	svc, err := CreateLLMService(config)
	if err != nil {
		return domain.NewConfigurationError("llm.provider", "%v", err)
	}
	if svc == nil {
		return nil
	}
	return v.ping(svc, domain.StageGenerate)
}

type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

func (v *ConfigValidator) ping(svc pinger, stage domain.Stage) error {
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		var svcErr *domain.ServiceError
		if errors.As(err, &svcErr) {
			return err
		}
		return domain.NewServiceError(stage, domain.ServiceUnavailable, err)
	}
	return nil
}
