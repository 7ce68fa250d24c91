package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
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
			expected: "****",
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

func TestSettingsCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, c := range settingsCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"show", "wizard", "embedding", "llm"}, names)
}

func TestSettingsShowCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Provider: Ollama (local)")
	assert.Contains(t, out, "Provider: OpenAI (cloud)")
	assert.Contains(t, out, "API Key: sk-t...7890")
	assert.NotContains(t, out, "sk-test-1234567890")
	assert.Contains(t, out, "[Chunker]")
	assert.Contains(t, out, "Size: 1000")
	assert.Contains(t, out, "Overlap: 200")
	assert.Contains(t, out, "[Retrieval]")
	assert.Contains(t, out, "Top K: 6")
	assert.Contains(t, out, "[Cache]")
	assert.Contains(t, out, "Entity TTL: 30m0s")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShowCmd_UnconfiguredProviders(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	settingsService = &mockSettingsService{settings: domain.DefaultAppSettings()}

	out, err := execute(t, "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Status: not configured")
	assert.Contains(t, out, "propdocs settings wizard")
}

func TestSettingsShowCmd_InvalidSettings(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	settings := domain.DefaultAppSettings()
	settings.Chunker.Overlap = settings.Chunker.Size
	settingsService = &mockSettingsService{settings: settings}

	out, err := execute(t, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning:")
	assert.Contains(t, out, "chunker.overlap")
}

// answer runs args with stdin fed from lines.
func answer(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	rootCmd.SetIn(strings.NewReader(input))
	defer rootCmd.SetIn(nil)
	return execute(t, args...)
}

func TestSettingsWizard(t *testing.T) {
	settings := &mockSettingsService{settings: domain.DefaultAppSettings()}
	SetServices(Services{Settings: settings})
	defer SetServices(Services{})

	// Ollama with the default embedding model, then OpenAI with a custom model.
	out, err := answer(t, "1\n\n2\ngpt-4o\nsk-test-abcdefgh\n", "settings", "wizard")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.settings.Embedding.Model)
	assert.Equal(t, domain.AIProviderOpenAI, settings.settings.LLM.Provider)
	assert.Equal(t, "gpt-4o", settings.settings.LLM.Model)
	assert.Equal(t, "sk-test-abcdefgh", settings.settings.LLM.APIKey)
	assert.Contains(t, out, "Step 1: embedding provider")
	assert.Contains(t, out, "Step 2: LLM provider")
	assert.Contains(t, out, "All settings are valid and saved.")
}

func TestSettingsLLM_RequiresAPIKey(t *testing.T) {
	settings := &mockSettingsService{settings: domain.DefaultAppSettings()}
	SetServices(Services{Settings: settings})
	defer SetServices(Services{})

	_, err := answer(t, "3\n\n\n", "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required for Anthropic (cloud)")
}

func TestSettingsLLM_ValidationFails(t *testing.T) {
	settings := &mockSettingsService{
		settings:    domain.DefaultAppSettings(),
		validateErr: errors.New("connection refused"),
	}
	SetServices(Services{Settings: settings})
	defer SetServices(Services{})

	out, err := answer(t, "1\n\n", "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM configuration validation failed")
	assert.Contains(t, out, "FAILED: connection refused")
	assert.Equal(t, "llama3.2", settings.settings.LLM.Model)
}

func TestSettingsEmbedding_OutOfRangeChoiceUsesDefault(t *testing.T) {
	settings := &mockSettingsService{settings: domain.DefaultAppSettings()}
	SetServices(Services{Settings: settings})
	defer SetServices(Services{})

	out, err := answer(t, "9\nmxbai-embed-large\n", "settings", "embedding")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.settings.Embedding.Provider)
	assert.Equal(t, "mxbai-embed-large", settings.settings.Embedding.Model)
	assert.Contains(t, out, "embedding provider configured: Ollama (local) (mxbai-embed-large)")
}
