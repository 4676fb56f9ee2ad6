package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alantheprice/dialoguegen/pkg/configuration"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Long: `Creates $HOME/.dialoguegen/config.json, or the file named by --config.

--provider and --model (or a provider:model specifier) choose the default
backend stored in the file. A .yaml or .yml path writes YAML.`,
	Example: `  dialoguegen init
  dialoguegen init --model openrouter:openai/o3-mini
  dialoguegen init --config ./dialoguegen.yaml --provider ollama --model llama3.1:8b`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd)
	},
}

func runInit(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	logger := getLogger(skipPrompt)

	path := configPath
	if path == "" {
		var err error
		if path, err = configuration.DefaultPath(); err != nil {
			return err
		}
	}
	if !confirmOverwrite(logger, path) {
		fmt.Fprintf(out, "Kept existing %s\n", path)
		return nil
	}

	cfg := configuration.NewConfig()
	clientType, model, err := configuration.ResolveProviderModel(cfg, providerFlag, modelFlag)
	if err != nil {
		return err
	}
	cfg.Provider = string(clientType)
	cfg.SetModelForProvider(cfg.Provider, model)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	logger.Logf("Wrote configuration to %s", path)
	fmt.Fprintf(out, "Wrote configuration to %s (provider %s, model %s)\n", path, cfg.Provider, model)
	return nil
}
