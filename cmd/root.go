package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath   string
	providerFlag string
	modelFlag    string
	skipPrompt   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dialoguegen",
	Short: "Generate, validate and restyle language-practice dialogues",
	Long: `Dialoguegen asks a language model for a two-speaker practice dialogue,
checks that it has the requested number of turns and the right first speaker,
repairs or regenerates it when it does not, and can rewrite the result to
match the personalities of the learner and the AI partner.

Available commands:
  generate - Generate a structured dialogue
  style    - Restyle a dialogue with character traits
  validate - Check a dialogue's turn count and first speaker
  serve    - Run the local web API
  agents   - List the available agents
  init     - Write a configuration file`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file, .json or .yaml (default is $HOME/.dialoguegen/config.json)")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "model provider: openai, openrouter or ollama")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "model name, or provider:model")
	rootCmd.PersistentFlags().BoolVar(&skipPrompt, "skip-prompt", false, "never prompt for API keys or confirmations")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(styleCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(initCmd)
}
