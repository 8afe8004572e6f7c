package postprocessors

import (
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/postprocessors/chunker"
	"github.com/custodia-labs/replyguard/internal/postprocessors/owner"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("owner", buildOwner)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Words per chunk (default: 300)
//   - overlap (int): Overlapping words between chunks (default: 50)
//
// Invalid combinations are accepted here and rejected when a build runs, so
// commands that only read a published index still start.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if _, ok := cfg["chunk_size"]; ok {
			opts = append(opts, chunker.WithChunkSize(getIntFromConfig(cfg, "chunk_size")))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// buildOwner creates an owner processor from generic config.
// Supported config keys:
//   - markers ([]string): Filename prefixes carrying an owner id
func buildOwner(cfg map[string]any) (driven.PostProcessor, error) {
	return owner.New(getStringsFromConfig(cfg, "markers")...), nil
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

// getStringsFromConfig extracts a string slice, accepting []string or []any.
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
