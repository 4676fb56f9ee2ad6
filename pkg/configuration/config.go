package configuration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alantheprice/dialoguegen/pkg/dialogue"
	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/alantheprice/dialoguegen/pkg/style"
	"github.com/alantheprice/dialoguegen/pkg/utils"
)

const (
	ConfigVersion   = "1.0"
	ConfigDirName   = ".dialoguegen"
	ConfigFileName  = "config.json"
	APIKeysFileName = "api_keys.json"
)

// Config represents the unified application configuration
type Config struct {
	Version string `json:"version" yaml:"version"`

	// Provider and Model Configuration
	Provider       string            `json:"provider" yaml:"provider"`
	ProviderModels map[string]string `json:"provider_models" yaml:"provider_models"`
	BaseURLs       map[string]string `json:"base_urls,omitempty" yaml:"base_urls,omitempty"`

	// API timeout in seconds
	TimeoutSec int `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`

	Retry      *RetryConfig      `json:"retry,omitempty" yaml:"retry,omitempty"`
	Generation *GenerationConfig `json:"generation,omitempty" yaml:"generation,omitempty"`
	Style      *StyleConfig      `json:"style,omitempty" yaml:"style,omitempty"`

	// SkipPrompt - for non-interactive mode
	SkipPrompt bool `json:"skip_prompt,omitempty" yaml:"skip_prompt,omitempty"`
}

// RetryConfig bounds gateway retries on rate limiting
type RetryConfig struct {
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
	MaxWaitSec  int `json:"max_wait_sec" yaml:"max_wait_sec"`
}

// GenerationConfig holds defaults for dialogue requests
type GenerationConfig struct {
	Mode                 string `json:"mode" yaml:"mode"`
	NumTurns             int    `json:"num_turns" yaml:"num_turns"`
	Difficulty           string `json:"difficulty" yaml:"difficulty"`
	Language             string `json:"language" yaml:"language"`
	MaxAttempts          int    `json:"max_attempts" yaml:"max_attempts"`
	ProgressiveThreshold int    `json:"progressive_threshold" yaml:"progressive_threshold"`
	BatchSize            int    `json:"batch_size" yaml:"batch_size"`
}

// StyleConfig holds defaults for the style transform
type StyleConfig struct {
	EmotionMode string `json:"emotion_mode" yaml:"emotion_mode"`
	// Language forces the output language; empty means detect from the dialogue
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// NewConfig creates a new configuration with sensible defaults
func NewConfig() *Config {
	return &Config{
		Version:  ConfigVersion,
		Provider: string(llm.OpenAIClientType),
		ProviderModels: map[string]string{
			string(llm.OpenAIClientType):     "o3-mini",
			string(llm.OpenRouterClientType): "openai/o3-mini",
			string(llm.OllamaClientType):     "qwen3:8b",
		},
		BaseURLs:   map[string]string{},
		TimeoutSec: int(llm.DefaultTimeout / time.Second),
		Retry: &RetryConfig{
			MaxAttempts: 3,
			MaxWaitSec:  60,
		},
		Generation: &GenerationConfig{
			Mode:                 string(dialogue.ModeAIFirst),
			NumTurns:             6,
			Difficulty:           "B1",
			Language:             "English",
			MaxAttempts:          dialogue.DefaultMaxAttempts,
			ProgressiveThreshold: dialogue.DefaultProgressiveThreshold,
			BatchSize:            dialogue.DefaultBatchSize,
		},
		Style: &StyleConfig{
			EmotionMode: string(style.EmotionAuto),
		},
	}
}

// GetConfigDir returns the configuration directory path, creating it if needed
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ConfigDirName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// DefaultPath returns the full path to the default config file
func DefaultPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the configuration from path, or the default path when empty.
// A missing file yields the defaults. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// Save writes the configuration to path, or the default path when empty
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyDefaults fills anything a partial config file left out
func (c *Config) applyDefaults() {
	defaults := NewConfig()
	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	if c.ProviderModels == nil {
		c.ProviderModels = map[string]string{}
	}
	for provider, model := range defaults.ProviderModels {
		if c.ProviderModels[provider] == "" {
			c.ProviderModels[provider] = model
		}
	}
	if c.BaseURLs == nil {
		c.BaseURLs = map[string]string{}
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = defaults.TimeoutSec
	}
	if c.Retry == nil {
		c.Retry = defaults.Retry
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if c.Retry.MaxWaitSec <= 0 {
		c.Retry.MaxWaitSec = defaults.Retry.MaxWaitSec
	}

	if c.Generation == nil {
		c.Generation = defaults.Generation
	}
	g, dg := c.Generation, defaults.Generation
	if g.Mode == "" {
		g.Mode = dg.Mode
	}
	if g.NumTurns <= 0 {
		g.NumTurns = dg.NumTurns
	}
	if g.Difficulty == "" {
		g.Difficulty = dg.Difficulty
	}
	if g.Language == "" {
		g.Language = dg.Language
	}
	if g.MaxAttempts <= 0 {
		g.MaxAttempts = dg.MaxAttempts
	}
	if g.ProgressiveThreshold <= 0 {
		g.ProgressiveThreshold = dg.ProgressiveThreshold
	}
	if g.BatchSize <= 0 {
		g.BatchSize = dg.BatchSize
	}

	if c.Style == nil {
		c.Style = defaults.Style
	}
	if c.Style.EmotionMode == "" {
		c.Style.EmotionMode = defaults.Style.EmotionMode
	}
}

// Validate checks the values a user is likely to get wrong
func (c *Config) Validate() error {
	if _, err := MapProviderStringToClientType(c.Provider); err != nil {
		return err
	}
	if c.Generation != nil {
		if _, err := dialogue.ParseMode(c.Generation.Mode); err != nil {
			return err
		}
	}
	if c.Style != nil {
		if _, err := style.ParseEmotionMode(c.Style.EmotionMode); err != nil {
			return err
		}
	}
	return nil
}

// GetModelForProvider returns the model configured for provider
func (c *Config) GetModelForProvider(provider string) string {
	if model, ok := c.ProviderModels[provider]; ok && model != "" {
		return model
	}
	return NewConfig().ProviderModels[provider]
}

// SetModelForProvider sets the model for a specific provider
func (c *Config) SetModelForProvider(provider, model string) {
	if c.ProviderModels == nil {
		c.ProviderModels = make(map[string]string)
	}
	c.ProviderModels[provider] = model
}

// InvokerConfig assembles the llm.Config for a resolved provider and model.
// apiKey may be empty for providers that do not need one.
func (c *Config) InvokerConfig(clientType llm.ClientType, model, apiKey string, logger *utils.Logger) llm.Config {
	cfg := llm.Config{
		Type:    clientType,
		Model:   model,
		APIKey:  apiKey,
		BaseURL: c.BaseURLs[string(clientType)],
		Timeout: time.Duration(c.TimeoutSec) * time.Second,
		Logger:  logger,
	}
	if c.Retry != nil {
		cfg.MaxAttempts = c.Retry.MaxAttempts
		cfg.MaxWait = time.Duration(c.Retry.MaxWaitSec) * time.Second
	}
	return cfg
}

// GeneratorOptions builds dialogue.Options from the generation defaults
func (c *Config) GeneratorOptions(logger *utils.Logger, publisher events.Publisher) dialogue.Options {
	opts := dialogue.Options{Logger: logger, Events: publisher}
	if c.Generation != nil {
		opts.MaxAttempts = c.Generation.MaxAttempts
		opts.ProgressiveThreshold = c.Generation.ProgressiveThreshold
		opts.BatchSize = c.Generation.BatchSize
	}
	return opts
}
