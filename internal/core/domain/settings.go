package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64

	// MaxRetries bounds retries of unavailable errors. Zero disables retrying.
	MaxRetries int

	// CacheSize is the number of query embeddings memoised. Zero disables caching.
	CacheSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkSettings controls document splitting.
type ChunkSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters repeated between consecutive chunks.
	Overlap int

	// Processors is the ordered post-processor pipeline.
	Processors []string
}

// Validate rejects sizes the chunker cannot honour.
func (c ChunkSettings) Validate() error {
	if c.Size <= 0 {
		return NewConfigurationError("chunk.size", "must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return NewConfigurationError("chunk.overlap", "must not be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.Size {
		return NewConfigurationError("chunk.overlap", "%d must be smaller than chunk size %d", c.Overlap, c.Size)
	}
	return nil
}

// IndexSettings controls the vector index.
type IndexSettings struct {
	// Location is the directory holding the persisted index.
	Location string

	// Metric is the similarity metric.
	Metric Metric

	// Dimensions is the embedding size. Zero means ask the embedding service.
	Dimensions int

	// Workers bounds parallel document processing during builds.
	Workers int
}

// RetrievalSettings controls query-time behaviour.
type RetrievalSettings struct {
	// K is the default number of chunks retrieved.
	K int

	// MinScore drops hits below it when non-zero.
	MinScore float64

	// EmbedTimeout bounds each query embedding call.
	EmbedTimeout time.Duration
}

// ConversationSettings controls multi-turn behaviour.
type ConversationSettings struct {
	// Strategy selects how follow-up questions are retrieved.
	Strategy ConversationStrategy

	// Reformulator selects the rewrite implementation for StrategyReformulation.
	Reformulator ReformulatorKind

	// HistoryWindow is the number of most recent turns placed in the prompt.
	// Zero includes the whole history.
	HistoryWindow int

	// MaxTurns caps the stored history. Zero keeps everything.
	MaxTurns int

	// GenerateTimeout bounds each generation call.
	GenerateTimeout time.Duration

	// MaxSessions caps concurrently held sessions.
	MaxSessions int
}

// SourceSettings controls where documents are loaded from.
type SourceSettings struct {
	// Paths are files or directories to ingest.
	Paths []string

	// Category is assigned to every loaded document.
	Category string

	// Extensions are the file suffixes accepted when walking directories.
	Extensions []string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunk        ChunkSettings
	Index        IndexSettings
	Retrieval    RetrievalSettings
	Conversation ConversationSettings
	Source       SourceSettings
	Embedding    EmbeddingSettings
	LLM          LLMSettings
}

// DefaultAppSettings returns settings with sensible defaults:
// 1000 character chunks with no overlap and three results per query.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunk: ChunkSettings{
			Size:       1000,
			Overlap:    0,
			Processors: []string{"chunker", "tagger"},
		},
		Index: IndexSettings{
			Metric:  MetricCosine,
			Workers: 4,
		},
		Retrieval: RetrievalSettings{
			K:            3,
			EmbedTimeout: 30 * time.Second,
		},
		Conversation: ConversationSettings{
			Strategy:        StrategyContextInjection,
			Reformulator:    ReformulatorHeuristic,
			GenerateTimeout: 120 * time.Second,
			MaxSessions:     64,
		},
		Source: SourceSettings{
			Category:   "meeting",
			Extensions: []string{".txt", ".md", ".markdown", ".html", ".htm", ".docx"},
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
