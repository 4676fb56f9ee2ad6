package configuration

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// APIKeys maps provider name to API key
type APIKeys map[string]string

var providerEnvKeys = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// GetAPIKeysPath returns the full path to the API keys file
func GetAPIKeysPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, APIKeysFileName), nil
}

// LoadAPIKeys loads API keys from the file
func LoadAPIKeys() (APIKeys, error) {
	apiKeysPath, err := GetAPIKeysPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(apiKeysPath)
	if err != nil {
		if os.IsNotExist(err) {
			return APIKeys{}, nil
		}
		return nil, fmt.Errorf("failed to read API keys file: %w", err)
	}

	keys := APIKeys{}
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse API keys file: %w", err)
	}
	return keys, nil
}

// SaveAPIKeys saves API keys to file
func SaveAPIKeys(keys APIKeys) error {
	apiKeysPath, err := GetAPIKeysPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal API keys: %w", err)
	}

	return os.WriteFile(apiKeysPath, data, 0600)
}

// PopulateFromEnvironment fills keys from environment variables.
// Environment values win over stored ones.
func (keys APIKeys) PopulateFromEnvironment() bool {
	updated := false
	for provider, envVar := range providerEnvKeys {
		if envKey := strings.TrimSpace(os.Getenv(envVar)); envKey != "" && keys[provider] != envKey {
			keys[provider] = envKey
			updated = true
		}
	}
	return updated
}

// GetAPIKey returns the API key for a provider
func (keys APIKeys) GetAPIKey(provider string) string {
	return keys[provider]
}

// SetAPIKey sets the API key for a provider
func (keys APIKeys) SetAPIKey(provider, key string) {
	keys[provider] = key
}

// HasAPIKey checks if a provider has an API key set
func (keys APIKeys) HasAPIKey(provider string) bool {
	return keys.GetAPIKey(provider) != ""
}

// EnvVarForProvider names the environment variable holding provider's key
func EnvVarForProvider(provider string) string {
	return providerEnvKeys[provider]
}

// ResolveAPIKey finds the key for provider: environment, then the keys file,
// then an interactive prompt when stdin is a terminal and prompting is allowed.
// A prompted key is saved for next time.
func ResolveAPIKey(provider string, allowPrompt bool) (string, error) {
	if !RequiresAPIKey(provider) {
		return "", nil
	}

	keys, err := LoadAPIKeys()
	if err != nil {
		return "", err
	}
	keys.PopulateFromEnvironment()
	if key := keys.GetAPIKey(provider); key != "" {
		return key, nil
	}

	if !allowPrompt || !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no API key for %s: set %s", getProviderDisplayName(provider), EnvVarForProvider(provider))
	}

	key, err := PromptForAPIKey(provider)
	if err != nil {
		return "", err
	}
	keys.SetAPIKey(provider, key)
	if err := SaveAPIKeys(keys); err != nil {
		return "", fmt.Errorf("failed to save API key: %w", err)
	}
	return key, nil
}

// PromptForAPIKey prompts the user for an API key
func PromptForAPIKey(provider string) (string, error) {
	providerName := getProviderDisplayName(provider)
	fmt.Printf("🔑 API key required for %s\n", providerName)
	fmt.Printf("Please enter your %s API key: ", providerName)

	// Read API key securely (hidden input)
	byteKey, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Println()
		return readKeyFrom(os.Stdin)
	}
	fmt.Println()

	apiKey := strings.TrimSpace(string(byteKey))
	if apiKey == "" {
		return "", fmt.Errorf("no API key provided")
	}
	return apiKey, nil
}

// readKeyFrom is the plain-input fallback when the terminal cannot hide input
func readKeyFrom(r io.Reader) (string, error) {
	key, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("no API key provided")
	}
	return key, nil
}

// getProviderDisplayName returns a user-friendly name for the provider
func getProviderDisplayName(provider string) string {
	switch provider {
	case "openai":
		return "OpenAI"
	case "openrouter":
		return "OpenRouter"
	case "ollama":
		return "Ollama"
	default:
		return provider
	}
}

// RequiresAPIKey checks if a provider requires an API key
func RequiresAPIKey(provider string) bool {
	switch provider {
	case "ollama":
		return false
	default:
		return true
	}
}
