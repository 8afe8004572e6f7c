package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCorpusDir       = "corpus.dir"
	keyIndexDir        = "index.dir"
	keyChunkSize       = "index.chunk_size"
	keyOverlap         = "index.overlap"
	keyOwnerMarkers    = "index.owner_markers"
	keyKeepGenerations = "index.keep_generations"
	keyProcessors      = "index.processors"
	keyRetrievalK      = "retrieval.k"
	keyOverFetch       = "retrieval.overfetch"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyEmbedCachePath  = "embedding.cache_path"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyLLMTemperature  = "llm.temperature"
	keyLLMMaxAttempts  = "llm.max_attempts"
	keyLLMRPS          = "llm.requests_per_second"
	keyDirCustomers    = "directory.customers"
	keyDirStores       = "directory.stores"
	keyLedgerEnabled   = "ledger.enabled"
	keyLedgerPath      = "ledger.path"
)

// Environment variables that supply API keys.
const (
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

const (
	defaultOllamaURL    = "http://localhost:11434"
	maxLLMTemperature   = 2.0
	listSeparator       = ","
	secretPlaceholder   = "********"
	secretKeySuffix     = ".api_key"
	providerKeySuffix   = ".provider"
	unknownKeyHint      = "run 'replyguard config show' for the list of keys"
	invalidValueMessage = "invalid value for %s: %q is not %s"
)

// valueKind is the type a config key holds.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindList
)

func (k valueKind) String() string {
	switch k {
	case kindInt:
		return "an integer"
	case kindFloat:
		return "a number"
	case kindBool:
		return "true or false"
	case kindList:
		return "a comma-separated list"
	default:
		return "a string"
	}
}

var keyKinds = map[string]valueKind{
	keyCorpusDir:       kindString,
	keyIndexDir:        kindString,
	keyChunkSize:       kindInt,
	keyOverlap:         kindInt,
	keyOwnerMarkers:    kindList,
	keyKeepGenerations: kindInt,
	keyProcessors:      kindList,
	keyRetrievalK:      kindInt,
	keyOverFetch:       kindInt,
	keyEmbedProvider:   kindString,
	keyEmbedModel:      kindString,
	keyEmbedBaseURL:    kindString,
	keyEmbedAPIKey:     kindString,
	keyEmbedDimensions: kindInt,
	keyEmbedCachePath:  kindString,
	keyEmbedRPS:        kindFloat,
	keyLLMProvider:     kindString,
	keyLLMModel:        kindString,
	keyLLMBaseURL:      kindString,
	keyLLMAPIKey:       kindString,
	keyLLMMaxTokens:    kindInt,
	keyLLMTemperature:  kindFloat,
	keyLLMMaxAttempts:  kindInt,
	keyLLMRPS:          kindFloat,
	keyDirCustomers:    kindString,
	keyDirStores:       kindString,
	keyLedgerEnabled:   kindBool,
	keyLedgerPath:      kindString,
}

// SettingKeys returns every recognised config key, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecretKey reports whether key holds a credential that must not be printed.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, secretKeySuffix)
}

// MaskSecret renders a credential for display.
func MaskSecret(value string) string {
	if value == "" {
		return ""
	}
	return secretPlaceholder
}

// SettingsService maps flat config keys onto domain.AppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
	configDir   string
	getenv      func(string) string
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithEnv overrides os.Getenv for API key lookups.
func WithEnv(getenv func(string) string) SettingsOption {
	return func(s *SettingsService) {
		s.getenv = getenv
	}
}

// NewSettingsService creates a new settings service.
// configDir is where relative paths in settings are resolved.
func NewSettingsService(configStore driven.ConfigStore, configDir string, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		configDir:   configDir,
		getenv:      os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfigDir returns the directory relative paths are resolved against.
func (s *SettingsService) ConfigDir() string {
	return s.configDir
}

// Get retrieves current application settings. API keys in the environment
// take precedence over stored ones.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := s.read(s.configStore.Get)
	return &settings, nil
}

// read builds settings from any key lookup, applying defaults for absent keys.
func (s *SettingsService) read(lookup func(string) (any, bool)) domain.AppSettings {
	r := reader{lookup: lookup}
	d := domain.DefaultAppSettings()

	settings := domain.AppSettings{
		Index: domain.IndexSettings{
			CorpusDir:       r.str(keyCorpusDir, d.Index.CorpusDir),
			Dir:             r.str(keyIndexDir, d.Index.Dir),
			ChunkSize:       r.int(keyChunkSize, d.Index.ChunkSize),
			Overlap:         r.int(keyOverlap, d.Index.Overlap),
			OwnerMarkers:    r.list(keyOwnerMarkers, d.Index.OwnerMarkers),
			KeepGenerations: r.int(keyKeepGenerations, d.Index.KeepGenerations),
			Processors:      r.list(keyProcessors, d.Index.Processors),
		},
		Retrieval: domain.RetrievalSettings{
			K:         r.int(keyRetrievalK, d.Retrieval.K),
			OverFetch: r.int(keyOverFetch, d.Retrieval.OverFetch),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          domain.AIProvider(r.str(keyEmbedProvider, d.Embedding.Provider.String())),
			Model:             r.str(keyEmbedModel, ""),
			BaseURL:           r.str(keyEmbedBaseURL, ""),
			APIKey:            r.str(keyEmbedAPIKey, ""),
			Dimensions:        r.int(keyEmbedDimensions, 0),
			CachePath:         r.str(keyEmbedCachePath, d.Embedding.CachePath),
			RequestsPerSecond: r.float(keyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:          domain.AIProvider(r.str(keyLLMProvider, "")),
			Model:             r.str(keyLLMModel, ""),
			BaseURL:           r.str(keyLLMBaseURL, ""),
			APIKey:            r.str(keyLLMAPIKey, ""),
			MaxTokens:         r.int(keyLLMMaxTokens, d.LLM.MaxTokens),
			Temperature:       r.float(keyLLMTemperature, d.LLM.Temperature),
			MaxAttempts:       r.int(keyLLMMaxAttempts, d.LLM.MaxAttempts),
			RequestsPerSecond: r.float(keyLLMRPS, d.LLM.RequestsPerSecond),
		},
		Directory: domain.DirectorySettings{
			CustomersPath: r.str(keyDirCustomers, d.Directory.CustomersPath),
			StoresPath:    r.str(keyDirStores, d.Directory.StoresPath),
		},
		Ledger: domain.LedgerSettings{
			Enabled: r.bool(keyLedgerEnabled, d.Ledger.Enabled),
			Path:    r.str(keyLedgerPath, d.Ledger.Path),
		},
	}

	s.applyEnv(&settings)

	if settings.LLM.Provider == "" {
		settings.LLM.Provider = d.LLM.Provider
	}
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Embedding.Dimensions == 0 && settings.Embedding.Provider == domain.AIProviderHashing {
		settings.Embedding.Dimensions = domain.DefaultHashDimensions
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
	return settings
}

// applyEnv lets OPENAI_API_KEY and ANTHROPIC_API_KEY override stored keys.
// With no LLM provider configured, an OpenAI key selects OpenAI.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	openaiKey := s.getenv(envOpenAIAPIKey)
	anthropicKey := s.getenv(envAnthropicAPIKey)

	if settings.LLM.Provider == "" && openaiKey != "" {
		settings.LLM.Provider = domain.AIProviderOpenAI
	}
	if settings.Embedding.Provider == domain.AIProviderOpenAI && openaiKey != "" {
		settings.Embedding.APIKey = openaiKey
	}
	switch settings.LLM.Provider {
	case domain.AIProviderOpenAI:
		if openaiKey != "" {
			settings.LLM.APIKey = openaiKey
		}
	case domain.AIProviderAnthropic:
		if anthropicKey != "" {
			settings.LLM.APIKey = anthropicKey
		}
	}
}

// envKey returns the environment API key that applies to provider.
func (s *SettingsService) envKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(envOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(envAnthropicAPIKey)
	default:
		return ""
	}
}

// Save persists application settings. API keys that came from the
// environment are not written to the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: nil settings", domain.ErrInvalidInput)
	}

	values := map[string]any{
		keyCorpusDir:       settings.Index.CorpusDir,
		keyIndexDir:        settings.Index.Dir,
		keyChunkSize:       settings.Index.ChunkSize,
		keyOverlap:         settings.Index.Overlap,
		keyOwnerMarkers:    settings.Index.OwnerMarkers,
		keyKeepGenerations: settings.Index.KeepGenerations,
		keyProcessors:      settings.Index.Processors,
		keyRetrievalK:      settings.Retrieval.K,
		keyOverFetch:       settings.Retrieval.OverFetch,
		keyEmbedProvider:   settings.Embedding.Provider.String(),
		keyEmbedModel:      settings.Embedding.Model,
		keyEmbedBaseURL:    settings.Embedding.BaseURL,
		keyEmbedDimensions: settings.Embedding.Dimensions,
		keyEmbedCachePath:  settings.Embedding.CachePath,
		keyEmbedRPS:        settings.Embedding.RequestsPerSecond,
		keyLLMProvider:     settings.LLM.Provider.String(),
		keyLLMModel:        settings.LLM.Model,
		keyLLMBaseURL:      settings.LLM.BaseURL,
		keyLLMMaxTokens:    settings.LLM.MaxTokens,
		keyLLMTemperature:  settings.LLM.Temperature,
		keyLLMMaxAttempts:  settings.LLM.MaxAttempts,
		keyLLMRPS:          settings.LLM.RequestsPerSecond,
		keyDirCustomers:    settings.Directory.CustomersPath,
		keyDirStores:       settings.Directory.StoresPath,
		keyLedgerEnabled:   settings.Ledger.Enabled,
		keyLedgerPath:      settings.Ledger.Path,
	}
	if k := settings.Embedding.APIKey; k != "" && k != s.envKey(settings.Embedding.Provider) {
		values[keyEmbedAPIKey] = k
	}
	if k := settings.LLM.APIKey; k != "" && k != s.envKey(settings.LLM.Provider) {
		values[keyLLMAPIKey] = k
	}

	for _, key := range SettingKeys() {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := s.configStore.Set(key, v); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Set parses raw according to the key's type, checks that the resulting
// settings are valid, and persists it.
func (s *SettingsService) Set(key, raw string) error {
	kind, ok := keyKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q, %s", domain.ErrInvalidInput, key, unknownKeyHint)
	}

	value, err := parseValue(key, kind, raw)
	if err != nil {
		return err
	}

	if strings.HasSuffix(key, providerKeySuffix) {
		if p := domain.AIProvider(value.(string)); !p.IsValid() {
			return fmt.Errorf("%w: %s: unknown provider %q", domain.ErrUnsupportedType, key, p)
		}
	}

	candidate := s.read(func(k string) (any, bool) {
		if k == key {
			return value, true
		}
		return s.configStore.Get(k)
	})
	if err := validateSettings(&candidate); err != nil {
		return err
	}

	return s.configStore.Set(key, value)
}

func parseValue(key string, kind valueKind, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: "+invalidValueMessage, domain.ErrInvalidInput, key, raw, kind)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: "+invalidValueMessage, domain.ErrInvalidInput, key, raw, kind)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: "+invalidValueMessage, domain.ErrInvalidInput, key, raw, kind)
		}
		return b, nil
	case kindList:
		items := []string{}
		for _, part := range strings.Split(strings.Trim(s, "[]"), listSeparator) {
			if p := strings.Trim(strings.TrimSpace(part), `"'`); p != "" {
				items = append(items, p)
			}
		}
		return items, nil
	default:
		return s, nil
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrUnsupportedType, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
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
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	settings.Embedding.BaseURL = ""
	if provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() || provider == domain.AIProviderHashing {
		return fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
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

	settings.LLM.BaseURL = ""
	if provider == domain.AIProviderOllama {
		settings.LLM.BaseURL = defaultOllamaURL
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks if current settings are usable. An unconfigured LLM is
// not an error; replies fall back to the offline generator.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return validateSettings(settings)
}

func validateSettings(settings *domain.AppSettings) error {
	if err := settings.Index.Validate(); err != nil {
		return err
	}
	if settings.Index.KeepGenerations < 1 {
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keyKeepGenerations)
	}
	if settings.Retrieval.K <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyRetrievalK)
	}
	if settings.Retrieval.OverFetch <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyOverFetch)
	}
	if !settings.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Embedding.Provider)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if settings.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, keyEmbedDimensions)
	}
	if !settings.LLM.Provider.IsValid() || settings.LLM.Provider == domain.AIProviderHashing {
		return fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.LLM.Provider)
	}
	if settings.LLM.Temperature < 0 || settings.LLM.Temperature > maxLLMTemperature {
		return fmt.Errorf("%w: %s must be between 0 and %g", domain.ErrInvalidInput, keyLLMTemperature, maxLLMTemperature)
	}
	if settings.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyLLMMaxAttempts)
	}
	if settings.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyLLMMaxTokens)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// reader converts raw config values, falling back to defaults for absent keys.
type reader struct {
	lookup func(string) (any, bool)
}

func (r reader) str(key, def string) string {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func (r reader) int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

func (r reader) float(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

func (r reader) bool(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return def
}

func (r reader) list(key string, def []string) []string {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		parsed, _ := parseValue(key, kindList, l)
		return parsed.([]string)
	}
	return def
}
