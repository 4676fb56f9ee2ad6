package configuration

import (
	"fmt"
	"os"
	"strings"

	"github.com/alantheprice/dialoguegen/pkg/llm"
)

const (
	ProviderEnvVar = "DIALOGUEGEN_PROVIDER"
	ModelEnvVar    = "DIALOGUEGEN_MODEL"
)

// MapProviderStringToClientType converts a provider string to a ClientType
func MapProviderStringToClientType(raw string) (llm.ClientType, error) {
	name := strings.TrimSpace(strings.ToLower(raw))
	for _, ct := range llm.SupportedProviders() {
		if name == string(ct) {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unsupported provider: %s", raw)
}

// ResolveProviderModel resolves provider and model using one precedence path:
// 1) Explicit provider flag
// 2) Explicit model in provider:model format
// 3) DIALOGUEGEN_PROVIDER env
// 4) DIALOGUEGEN_MODEL env (provider:model format recognized)
// 5) Config provider
//
// Model precedence:
// 1) Explicit model
// 2) DIALOGUEGEN_MODEL env
// 3) Config provider model default
func ResolveProviderModel(cfg *Config, explicitProvider, explicitModel string) (llm.ClientType, string, error) {
	providerName := strings.TrimSpace(explicitProvider)
	modelCandidate := strings.TrimSpace(explicitModel)

	if providerName == "" && modelCandidate != "" {
		if parsedProvider, parsedModel, ok := parseProviderModelSpecifier(modelCandidate); ok {
			providerName = parsedProvider
			modelCandidate = parsedModel
		}
	}

	if providerName == "" {
		providerName = strings.TrimSpace(os.Getenv(ProviderEnvVar))
	}
	if modelCandidate == "" {
		modelCandidate = strings.TrimSpace(os.Getenv(ModelEnvVar))
		if providerName == "" && modelCandidate != "" {
			if parsedProvider, parsedModel, ok := parseProviderModelSpecifier(modelCandidate); ok {
				providerName = parsedProvider
				modelCandidate = parsedModel
			}
		}
	}

	if providerName == "" && cfg != nil {
		providerName = strings.TrimSpace(cfg.Provider)
	}
	if providerName == "" {
		providerName = string(llm.OpenAIClientType)
	}

	clientType, err := MapProviderStringToClientType(providerName)
	if err != nil {
		return "", "", err
	}

	if modelCandidate == "" {
		if cfg == nil {
			cfg = NewConfig()
		}
		modelCandidate = strings.TrimSpace(cfg.GetModelForProvider(string(clientType)))
	}

	return clientType, modelCandidate, nil
}

// parseProviderModelSpecifier splits "openrouter:openai/o3-mini". Model names
// that contain a colon, like "qwen3:8b", are left alone.
func parseProviderModelSpecifier(raw string) (string, string, bool) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	prefix := strings.TrimSpace(parts[0])
	model := strings.TrimSpace(parts[1])
	if prefix == "" || model == "" {
		return "", "", false
	}
	if _, err := MapProviderStringToClientType(prefix); err != nil {
		return "", "", false
	}
	return prefix, model, true
}
