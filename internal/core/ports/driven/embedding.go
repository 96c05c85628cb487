package driven

import "context"

// EmbeddingService turns text into fixed-dimension vectors.
// Failures are returned as *domain.ServiceError with Stage embed.
type EmbeddingService interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the size of produced vectors.
	Dimensions() int

	// ModelName returns the embedding model identifier.
	ModelName() string

	// Ping checks the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
