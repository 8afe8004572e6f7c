package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "********",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "********",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfigCmd_SettingsOnly(t *testing.T) {
	assert.Equal(t, "true", configCmd.Annotations[annotationSettingsOnly])
	for _, c := range configCmd.Commands() {
		assert.Equal(t, "true", c.Annotations[annotationSettingsOnly], c.Name())
	}
}

func TestConfigShowCmd(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.Settings.Settings.LLM.Provider = domain.AIProviderOpenAI
	svc.Settings.Settings.LLM.APIKey = "sk-1234567890abcdef"

	out, _, err := execute("config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Config directory: /tmp/replyguard")
	assert.Contains(t, out, "Chunking: 300 words, 50 overlap")
	assert.Contains(t, out, "Owner markers: owner, cust")
	assert.Contains(t, out, "Provider: Hashing (built-in, deterministic)")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestConfigShowCmd_InvalidSettings(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.Settings.ValidateErr = domain.ErrInvalidChunking

	out, _, err := execute("config")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: invalid chunking parameters")
}

func TestConfigKeysCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute("config", "keys")

	require.NoError(t, err)
	assert.Contains(t, out, "index.chunk_size\n")
	assert.Contains(t, out, "llm.api_key\n")
}

func TestConfigSetCmd(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		shown string
	}{
		{name: "plain value", key: "retrieval.k", value: "5", shown: "Set retrieval.k = 5"},
		{name: "secret value", key: "llm.api_key", value: "sk-secret", shown: "Set llm.api_key = ********"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, cleanup := setupTestServices()
			defer cleanup()

			out, _, err := execute("config", "set", tt.key, tt.value)

			require.NoError(t, err)
			assert.Equal(t, tt.value, svc.Settings.Values[tt.key])
			assert.Contains(t, out, tt.shown)
			if tt.key == "llm.api_key" {
				assert.NotContains(t, out, tt.value)
			}
		})
	}
}

func TestConfigSetCmd_Error(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.Settings.SetErr = domain.ErrInvalidInput

	_, _, err := execute("config", "set", "retrieval.k", "x")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigSetCmd_RequiresTwoArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("config", "set", "retrieval.k")

	assert.Error(t, err)
}

func TestConfigLLMCmd_Wizard(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(strings.NewReader("3\n\nsk-abcdefghijkl\n"))
	defer rootCmd.SetIn(nil)

	out, _, err := execute("config", "llm")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, svc.Settings.Settings.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", svc.Settings.Settings.LLM.Model)
	assert.Equal(t, "sk-abcdefghijkl", svc.Settings.Settings.LLM.APIKey)
	assert.Contains(t, out, "LLM provider configured: OpenAI (cloud) (gpt-4o-mini)")
}

func TestConfigEmbeddingCmd_WizardDefaults(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(strings.NewReader("2\nnomic-embed-text\n"))
	defer rootCmd.SetIn(nil)

	_, _, err := execute("config", "embedding")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, svc.Settings.Settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", svc.Settings.Settings.Embedding.Model)
	assert.Empty(t, svc.Settings.Settings.Embedding.APIKey)
}
