package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/postprocessors/chunker"
	"github.com/custodia-labs/ragkit/internal/postprocessors/tagger"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("tagger", buildTagger)
}

// NewDefaultPipeline builds the pipeline named in settings, feeding chunk
// sizes to the chunker and override to the tagger.
func NewDefaultPipeline(settings domain.ChunkSettings, override domain.Metadata) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	names := settings.Processors
	if len(names) == 0 {
		names = []string{"chunker", "tagger"}
	}

	tags := map[string]any{}
	if override.Source != "" {
		tags[domain.MetaSource] = override.Source
	}
	if override.Category != "" {
		tags[domain.MetaCategory] = override.Category
	}
	for k, v := range override.Extra {
		tags[k] = v
	}

	return r.BuildPipeline(names, map[string]map[string]any{
		"chunker": {"chunk_size": settings.Size, "overlap": settings.Overlap},
		"tagger":  tags,
	})
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Maximum characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 0)
//   - separators ([]string): Split points, coarsest first
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if _, ok := cfg["chunk_size"]; ok {
			opts = append(opts, chunker.WithChunkSize(getIntFromConfig(cfg, "chunk_size")))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
		if seps := getStringsFromConfig(cfg, "separators"); len(seps) > 0 {
			opts = append(opts, chunker.WithSeparators(seps...))
		}
	}

	p, err := chunker.New(opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// buildTagger creates a metadata tagger. "source" and "category" set the
// required keys; any other string value becomes an extension key.
func buildTagger(cfg map[string]any) (driven.PostProcessor, error) {
	var override domain.Metadata
	for k, raw := range cfg {
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("tagger: value for %q must be a string", k)
		}
		override = override.With(k, v)
	}
	return tagger.New(override), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func getStringsFromConfig(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
