package domain

import (
	"fmt"
	"path/filepath"
)

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings or replies.
type AIProvider string

// Available providers.
const (
	// AIProviderHashing is the built-in deterministic feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOffline is the built-in deterministic reply generator.
	AIProviderOffline AIProvider = "offline"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHashing, AIProviderOffline, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs without network access.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderHashing || p == AIProviderOffline
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Hashing (built-in, deterministic)"
	case AIProviderOffline:
		return "Offline (built-in demo replies)"
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

// IndexSettings controls how the corpus is turned into an index.
type IndexSettings struct {
	// CorpusDir is the default directory of .txt and .pdf files.
	CorpusDir string

	// Dir is where index generations are published.
	Dir string

	// ChunkSize is the window length in words.
	ChunkSize int

	// Overlap is the number of words shared by consecutive windows.
	Overlap int

	// OwnerMarkers are filename prefixes that carry an owner id,
	// e.g. "owner" for owner_42_notes.txt.
	OwnerMarkers []string

	// KeepGenerations is how many published generations are retained.
	KeepGenerations int

	// Processors is the ordered post-processor pipeline.
	Processors []string
}

// Validate checks the chunking parameters.
func (s IndexSettings) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, s.ChunkSize)
	}
	if s.Overlap < 0 || s.Overlap >= s.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunking, s.Overlap, s.ChunkSize)
	}
	return nil
}

// RetrievalSettings controls query behaviour.
type RetrievalSettings struct {
	// K is the default number of results.
	K int

	// OverFetch multiplies K when asking the vector index for candidates,
	// leaving room for filtered-out hits.
	OverFetch int
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

	// Dimensions is the vector length. Zero uses the model's known size.
	Dimensions int

	// CachePath is a bbolt file for cached vectors. Empty disables caching.
	CachePath string

	// RequestsPerSecond paces remote calls. Zero disables pacing.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderOffline || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds reply generator configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// MaxTokens caps the reply length.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxAttempts bounds generation retries.
	MaxAttempts int

	// RequestsPerSecond paces remote calls. Zero disables pacing.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHashing {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// DirectorySettings points at the flat customer and store files.
type DirectorySettings struct {
	CustomersPath string
	StoresPath    string
}

// LedgerSettings controls the build history database.
type LedgerSettings struct {
	Enabled bool
	Path    string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Index     IndexSettings
	Retrieval RetrievalSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Directory DirectorySettings
	Ledger    LedgerSettings
}

// Default chunking and retrieval parameters.
const (
	DefaultChunkSize       = 300
	DefaultOverlap         = 50
	DefaultK               = 3
	DefaultOverFetch       = 5
	DefaultKeepGenerations = 2
	DefaultMaxTokens       = 256
	DefaultTemperature     = 0.2
	DefaultMaxAttempts     = 3
	DefaultHashDimensions  = 384
)

// DefaultAppSettings returns settings that work offline out of the box.
// Paths are relative and resolved against the config directory by the caller.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Index: IndexSettings{
			CorpusDir:       "docs",
			Dir:             "index",
			ChunkSize:       DefaultChunkSize,
			Overlap:         DefaultOverlap,
			OwnerMarkers:    []string{"owner", "cust"},
			KeepGenerations: DefaultKeepGenerations,
			Processors:      []string{"chunker", "owner"},
		},
		Retrieval: RetrievalSettings{
			K:         DefaultK,
			OverFetch: DefaultOverFetch,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Model:      DefaultEmbeddingModels()[AIProviderHashing],
			Dimensions: DefaultHashDimensions,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOffline,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			MaxAttempts: DefaultMaxAttempts,
		},
		Directory: DirectorySettings{
			CustomersPath: "customers.json",
			StoresPath:    "stores.json",
		},
		Ledger: LedgerSettings{
			Enabled: true,
			Path:    "ledger.db",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHashing,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support reply generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOffline,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing: "hashing-v1",
		AIProviderOllama:  "all-minilm",
		AIProviderOpenAI:  "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOffline:   "offline-demo",
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hashing-v1":             DefaultHashDimensions,
		"all-minilm":             384,
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// ResolvePaths makes every relative path absolute against base. Empty paths stay empty.
func (s *AppSettings) ResolvePaths(base string) {
	for _, p := range []*string{
		&s.Index.CorpusDir,
		&s.Index.Dir,
		&s.Embedding.CachePath,
		&s.Directory.CustomersPath,
		&s.Directory.StoresPath,
		&s.Ledger.Path,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}
