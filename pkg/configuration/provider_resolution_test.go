package configuration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alantheprice/dialoguegen/pkg/llm"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ProviderEnvVar, "")
	t.Setenv(ModelEnvVar, "")
}

func TestResolveProviderModel_ExplicitProviderAndModel(t *testing.T) {
	clearProviderEnv(t)
	clientType, model, err := ResolveProviderModel(NewConfig(), "openrouter", "anthropic/claude-3.5-haiku")
	require.NoError(t, err)
	assert.Equal(t, llm.OpenRouterClientType, clientType)
	assert.Equal(t, "anthropic/claude-3.5-haiku", model)
}

func TestResolveProviderModel_ModelSpecifierUsesProviderPrefix(t *testing.T) {
	clearProviderEnv(t)
	clientType, model, err := ResolveProviderModel(NewConfig(), "", "openrouter:openai/o3-mini")
	require.NoError(t, err)
	assert.Equal(t, llm.OpenRouterClientType, clientType)
	assert.Equal(t, "openai/o3-mini", model)
}

func TestResolveProviderModel_ModelWithColonNotProviderKeepsModel(t *testing.T) {
	clearProviderEnv(t)
	cfg := NewConfig()
	cfg.Provider = "ollama"

	clientType, model, err := ResolveProviderModel(cfg, "", "qwen3:30b")
	require.NoError(t, err)
	assert.Equal(t, llm.OllamaClientType, clientType)
	assert.Equal(t, "qwen3:30b", model)
}

func TestResolveProviderModel_EnvBeatsConfig(t *testing.T) {
	t.Setenv(ProviderEnvVar, "ollama")
	t.Setenv(ModelEnvVar, "")

	clientType, model, err := ResolveProviderModel(NewConfig(), "", "")
	require.NoError(t, err)
	assert.Equal(t, llm.OllamaClientType, clientType)
	assert.Equal(t, "qwen3:8b", model)
}

func TestResolveProviderModel_EnvModelSpecifier(t *testing.T) {
	t.Setenv(ProviderEnvVar, "")
	t.Setenv(ModelEnvVar, "openrouter:google/gemini-2.0-flash")

	clientType, model, err := ResolveProviderModel(NewConfig(), "", "")
	require.NoError(t, err)
	assert.Equal(t, llm.OpenRouterClientType, clientType)
	assert.Equal(t, "google/gemini-2.0-flash", model)
}

func TestResolveProviderModel_FallsBackToConfig(t *testing.T) {
	clearProviderEnv(t)
	cfg := NewConfig()
	cfg.SetModelForProvider("openai", "gpt-4o-mini")

	clientType, model, err := ResolveProviderModel(cfg, "", "")
	require.NoError(t, err)
	assert.Equal(t, llm.OpenAIClientType, clientType)
	assert.Equal(t, "gpt-4o-mini", model)

	clientType, model, err = ResolveProviderModel(nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, llm.OpenAIClientType, clientType)
	assert.Equal(t, "o3-mini", model)
}

func TestResolveProviderModel_UnknownProvider(t *testing.T) {
	clearProviderEnv(t)
	_, _, err := ResolveProviderModel(NewConfig(), "bedrock", "")
	assert.EqualError(t, err, "unsupported provider: bedrock")
}

func TestMapProviderStringToClientType(t *testing.T) {
	ct, err := MapProviderStringToClientType("  OpenRouter ")
	require.NoError(t, err)
	assert.Equal(t, llm.OpenRouterClientType, ct)

	_, err = MapProviderStringToClientType("")
	assert.Error(t, err)
}
