package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alantheprice/dialoguegen/pkg/dialogue"
)

var validateOpts struct {
	in     string
	mode   string
	turns  int
	asJSON bool
	strict bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a dialogue's turn count and first speaker",
	Long: `Count the turns of a dialogue and check who speaks first. The input may be
plain "A: ..." / "B: ..." lines or a dialogue saved by "generate --out".
No model is called.`,
	Example: `  dialoguegen validate --in cafe.json --turns 6
  cat dialogue.txt | dialoguegen validate --mode user-first --turns 4 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(false)
		if err != nil {
			return err
		}
		if validateOpts.mode == "" {
			validateOpts.mode = app.config.Generation.Mode
		}
		if validateOpts.turns == 0 {
			validateOpts.turns = app.config.Generation.NumTurns
		}
		return runValidate(cmd)
	},
}

func init() {
	f := validateCmd.Flags()
	f.StringVarP(&validateOpts.in, "in", "i", "-", "dialogue file (- for stdin)")
	f.StringVar(&validateOpts.mode, "mode", "", "expected first speaker: AI_FIRST or USER_FIRST")
	f.IntVarP(&validateOpts.turns, "turns", "n", 0, "expected number of turns")
	f.BoolVar(&validateOpts.asJSON, "json", false, "print the result as JSON")
	f.BoolVar(&validateOpts.strict, "strict", false, "exit with an error when the dialogue is not valid")
}

// dialogueText accepts a saved dialogue or plain speaker lines
func dialogueText(path string, data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") || strings.HasSuffix(strings.ToLower(path), ".yaml") || strings.HasSuffix(strings.ToLower(path), ".yml") {
		if d, err := loadDialogue(path, data); err == nil && d.RawText != "" {
			return d.RawText
		}
	}
	return trimmed
}

func runValidate(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	mode, err := dialogue.ParseMode(validateOpts.mode)
	if err != nil {
		return err
	}
	if validateOpts.turns < 1 {
		return &dialogue.InputError{Field: "turns", Message: fmt.Sprintf("must be at least 1, got %d", validateOpts.turns)}
	}
	data, err := readInput(validateOpts.in, cmd.InOrStdin())
	if err != nil {
		return err
	}

	result := dialogue.Validate(dialogueText(validateOpts.in, data), mode, validateOpts.turns)
	if validateOpts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		heading(out, "validation")
		fmt.Fprintf(out, "Valid: %t\n", result.IsValid)
		fmt.Fprintf(out, "Turns: %d (expected %d)\n", result.ActualTurns, result.ExpectedTurns)
		fmt.Fprintf(out, "First speaker correct: %t\n", result.FirstSpeakerCorrect)
		fmt.Fprintf(out, "Repairable: %t\n", result.CanFix)
	}

	if validateOpts.strict && !result.IsValid {
		return fmt.Errorf("dialogue is not valid: %d of %d turns, first speaker correct: %t",
			result.ActualTurns, result.ExpectedTurns, result.FirstSpeakerCorrect)
	}
	return nil
}
