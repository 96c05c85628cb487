// Package gateway wraps an EmbeddingService with client-side rate limiting
// and bounded retries of transient failures.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure Gateway implements the interface.
var _ driven.EmbeddingService = (*Gateway)(nil)

// DefaultBackoff is the first retry delay; later delays double.
const DefaultBackoff = 250 * time.Millisecond

// Config configures a Gateway.
type Config struct {
	// RequestsPerSecond caps call rate. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the limiter bucket size (default 1).
	Burst int

	// MaxRetries bounds retries of retryable errors. Zero disables retrying.
	MaxRetries int

	// Backoff is the base exponential backoff (default 250ms).
	Backoff time.Duration
}

// Gateway is a decorating EmbeddingService.
type Gateway struct {
	inner      driven.EmbeddingService
	limiter    *rate.Limiter
	maxRetries uint64
	backoff    time.Duration
	log        logger.Scoped
}

// New wraps inner. With a zero Config the gateway is a pass-through.
func New(inner driven.EmbeddingService, cfg Config) *Gateway {
	g := &Gateway{
		inner:   inner,
		backoff: cfg.Backoff,
		log:     logger.For("embedding"),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.MaxRetries > 0 {
		g.maxRetries = uint64(cfg.MaxRetries)
	}
	if g.backoff <= 0 {
		g.backoff = DefaultBackoff
	}
	return g
}

// Embed embeds a single text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch embeds texts in one upstream call.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

func (g *Gateway) call(ctx context.Context, fn func(context.Context) error) error {
	attempt := 0
	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewExponential(g.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return domain.NewServiceError(domain.StageEmbed, domain.ServiceTimeout, err)
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var svcErr *domain.ServiceError
		if g.maxRetries > 0 && errors.As(err, &svcErr) && svcErr.Retryable() {
			g.log.Warn("attempt %d failed, retrying: %v", attempt, err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// Dimensions returns the wrapped service's vector size.
func (g *Gateway) Dimensions() int { return g.inner.Dimensions() }

// ModelName returns the wrapped service's model.
func (g *Gateway) ModelName() string { return g.inner.ModelName() }

// Ping checks the wrapped service without limiting or retrying.
func (g *Gateway) Ping(ctx context.Context) error { return g.inner.Ping(ctx) }

// Close closes the wrapped service.
func (g *Gateway) Close() error { return g.inner.Close() }
