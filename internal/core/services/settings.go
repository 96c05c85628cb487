package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize       = "chunk.size"
	keyChunkOverlap    = "chunk.overlap"
	keyChunkProcessors = "chunk.processors"

	keyIndexLocation   = "index.location"
	keyIndexMetric     = "index.metric"
	keyIndexDimensions = "index.dimensions"
	keyIndexWorkers    = "index.workers"

	keyRetrievalK            = "retrieval.k"
	keyRetrievalMinScore     = "retrieval.min_score"
	keyRetrievalEmbedTimeout = "retrieval.embed_timeout"

	keyConvStrategy        = "conversation.strategy"
	keyConvReformulator    = "conversation.reformulator"
	keyConvHistoryWindow   = "conversation.history_window"
	keyConvMaxTurns        = "conversation.max_turns"
	keyConvGenerateTimeout = "conversation.generate_timeout"
	keyConvMaxSessions     = "conversation.max_sessions"

	keySourcePaths      = "source.paths"
	keySourceCategory   = "source.category"
	keySourceExtensions = "source.extensions"

	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedRateLimit  = "embedding.rate_limit"
	keyEmbedMaxRetries = "embedding.max_retries"
	keyEmbedCacheSize  = "embedding.cache_size"

	keyLLMProvider = "llm.provider"
	keyLLMModel    = "llm.model"
	keyLLMBaseURL  = "llm.base_url"
	keyLLMAPIKey   = "llm.api_key"
)

// apiKeyEnv names the environment variable consulted when a cloud
// provider's key is not in the config file.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// LoadSettings reads settings from store, applying defaults for missing keys.
func LoadSettings(store driven.ConfigStore) (*domain.AppSettings, error) {
	return NewSettingsService(store, nil).Get()
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	embedTimeout, err := s.getDuration(keyRetrievalEmbedTimeout, d.Retrieval.EmbedTimeout)
	if err != nil {
		return nil, err
	}
	generateTimeout, err := s.getDuration(keyConvGenerateTimeout, d.Conversation.GenerateTimeout)
	if err != nil {
		return nil, err
	}

	settings := &domain.AppSettings{
		Chunk: domain.ChunkSettings{
			Size:       s.getInt(keyChunkSize, d.Chunk.Size),
			Overlap:    s.getInt(keyChunkOverlap, d.Chunk.Overlap),
			Processors: s.getStrings(keyChunkProcessors, d.Chunk.Processors),
		},
		Index: domain.IndexSettings{
			Location:   s.configStore.GetString(keyIndexLocation),
			Metric:     domain.Metric(s.getString(keyIndexMetric, string(d.Index.Metric))),
			Dimensions: s.getInt(keyIndexDimensions, d.Index.Dimensions),
			Workers:    s.getInt(keyIndexWorkers, d.Index.Workers),
		},
		Retrieval: domain.RetrievalSettings{
			K:            s.getInt(keyRetrievalK, d.Retrieval.K),
			MinScore:     s.getFloat(keyRetrievalMinScore, d.Retrieval.MinScore),
			EmbedTimeout: embedTimeout,
		},
		Conversation: domain.ConversationSettings{
			Strategy:        domain.ConversationStrategy(s.getString(keyConvStrategy, string(d.Conversation.Strategy))),
			Reformulator:    domain.ReformulatorKind(s.getString(keyConvReformulator, string(d.Conversation.Reformulator))),
			HistoryWindow:   s.getInt(keyConvHistoryWindow, d.Conversation.HistoryWindow),
			MaxTurns:        s.getInt(keyConvMaxTurns, d.Conversation.MaxTurns),
			GenerateTimeout: generateTimeout,
			MaxSessions:     s.getInt(keyConvMaxSessions, d.Conversation.MaxSessions),
		},
		Source: domain.SourceSettings{
			Paths:      s.getStrings(keySourcePaths, d.Source.Paths),
			Category:   s.getString(keySourceCategory, d.Source.Category),
			Extensions: s.getStrings(keySourceExtensions, d.Source.Extensions),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			RateLimit:  s.getFloat(keyEmbedRateLimit, d.Embedding.RateLimit),
			MaxRetries: s.getInt(keyEmbedMaxRetries, d.Embedding.MaxRetries),
			CacheSize:  s.getInt(keyEmbedCacheSize, d.Embedding.CacheSize),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
	}

	if settings.Embedding.Provider.IsLocal() && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = d.Embedding.BaseURL
	}
	if settings.LLM.Provider.IsLocal() && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = d.LLM.BaseURL
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyChunkSize, settings.Chunk.Size},
		{keyChunkOverlap, settings.Chunk.Overlap},
		{keyChunkProcessors, settings.Chunk.Processors},
		{keyIndexLocation, settings.Index.Location},
		{keyIndexMetric, settings.Index.Metric.String()},
		{keyIndexDimensions, settings.Index.Dimensions},
		{keyIndexWorkers, settings.Index.Workers},
		{keyRetrievalK, settings.Retrieval.K},
		{keyRetrievalMinScore, settings.Retrieval.MinScore},
		{keyRetrievalEmbedTimeout, settings.Retrieval.EmbedTimeout.String()},
		{keyConvStrategy, settings.Conversation.Strategy.String()},
		{keyConvReformulator, string(settings.Conversation.Reformulator)},
		{keyConvHistoryWindow, settings.Conversation.HistoryWindow},
		{keyConvMaxTurns, settings.Conversation.MaxTurns},
		{keyConvGenerateTimeout, settings.Conversation.GenerateTimeout.String()},
		{keyConvMaxSessions, settings.Conversation.MaxSessions},
		{keySourcePaths, settings.Source.Paths},
		{keySourceCategory, settings.Source.Category},
		{keySourceExtensions, settings.Source.Extensions},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRateLimit, settings.Embedding.RateLimit},
		{keyEmbedMaxRetries, settings.Embedding.MaxRetries},
		{keyEmbedCacheSize, settings.Embedding.CacheSize},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when given, so keys supplied through the
	// environment never end up on disk.
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.envKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = domain.DefaultAppSettings().Embedding.BaseURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	// A new model invalidates a pinned dimension.
	settings.Index.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = domain.DefaultAppSettings().LLM.BaseURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the current settings. Problems are reported as
// *domain.ConfigurationError naming the offending key.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks settings without touching any store.
func ValidateSettings(settings *domain.AppSettings) error {
	if err := settings.Chunk.Validate(); err != nil {
		return err
	}
	if !settings.Index.Metric.IsValid() {
		return domain.NewConfigurationError(keyIndexMetric, "unknown metric %q", settings.Index.Metric)
	}
	if settings.Index.Dimensions < 0 {
		return domain.NewConfigurationError(keyIndexDimensions, "must not be negative, got %d", settings.Index.Dimensions)
	}
	if settings.Index.Workers <= 0 {
		return domain.NewConfigurationError(keyIndexWorkers, "must be positive, got %d", settings.Index.Workers)
	}
	if settings.Retrieval.K <= 0 {
		return domain.NewConfigurationError(keyRetrievalK, "must be positive, got %d", settings.Retrieval.K)
	}
	if !settings.Conversation.Strategy.IsValid() {
		return domain.NewConfigurationError(keyConvStrategy, "unknown strategy %q", settings.Conversation.Strategy)
	}
	if !settings.Conversation.Reformulator.IsValid() {
		return domain.NewConfigurationError(keyConvReformulator, "unknown reformulator %q", settings.Conversation.Reformulator)
	}
	if settings.Conversation.HistoryWindow < 0 {
		return domain.NewConfigurationError(keyConvHistoryWindow, "must not be negative, got %d", settings.Conversation.HistoryWindow)
	}
	if settings.Conversation.MaxTurns < 0 {
		return domain.NewConfigurationError(keyConvMaxTurns, "must not be negative, got %d", settings.Conversation.MaxTurns)
	}
	if settings.Conversation.MaxTurns == 1 {
		return domain.NewConfigurationError(keyConvMaxTurns, "must be 0 or at least 2 to hold a question and its answer")
	}
	if settings.Conversation.MaxSessions <= 0 {
		return domain.NewConfigurationError(keyConvMaxSessions, "must be positive, got %d", settings.Conversation.MaxSessions)
	}
	if !settings.Embedding.IsConfigured() {
		return domain.NewConfigurationError(keyEmbedProvider, "embedding provider %q is not configured", settings.Embedding.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults. A key that is present
// wins even when its value is zero.

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	name, ok := apiKeyEnv[provider]
	if !ok || s.getenv == nil {
		return ""
	}
	return s.getenv(name)
}

func (s *SettingsService) has(key string) bool {
	_, ok := s.configStore.Get(key)
	return ok
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if !s.has(key) {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if !s.has(key) {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	if val := s.configStore.GetStringSlice(key); len(val) > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, domain.NewConfigurationError(key, "invalid duration %q", val)
	}
	return d, nil
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
