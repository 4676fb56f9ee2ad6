package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/alantheprice/dialoguegen/pkg/agents"
	"github.com/alantheprice/dialoguegen/pkg/configuration"
	"github.com/alantheprice/dialoguegen/pkg/dialogue"
	"github.com/alantheprice/dialoguegen/pkg/style"
)

var styleOpts struct {
	in            string
	out           string
	language      string
	emotionMode   string
	userSummary   string
	userCharacter string
	userAddress   string
	userCustom    string
	aiSummary     string
	aiCharacter   string
	aiCatchphrase string
	aiTone        string
	aiEmotions    string
	showDiff      bool
	noColor       bool
}

var styleCmd = &cobra.Command{
	Use:   "style",
	Short: "Restyle a generated dialogue with character traits",
	Long: `Rewrite a dialogue so the learner (A) and the AI partner (B) speak with the
given personalities. The AI lines gain expression and action annotations.

The input is a dialogue saved by "generate --out" (JSON or YAML). If the model
call fails the original text is printed unchanged.`,
	Example: `  dialoguegen style --in cafe.json --ai-character "cheerful barista" --ai-catchphrase "my god" --diff
  dialoguegen style --in cafe.yaml --user-traits "shy student" --ai-traits "lively, talkative" --emotion-mode custom --ai-emotions "smiles, nods"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(true)
		if err != nil {
			return err
		}
		return runStyle(cmd, app)
	},
}

func init() {
	f := styleCmd.Flags()
	f.StringVarP(&styleOpts.in, "in", "i", "-", "dialogue file to restyle (- for stdin)")
	f.StringVarP(&styleOpts.out, "out", "o", "", "save the styled dialogue (.txt, .md, .json or .yaml)")
	f.StringVarP(&styleOpts.language, "language", "l", "", "output language (English or Chinese); detected when empty")
	f.StringVar(&styleOpts.emotionMode, "emotion-mode", "", "expression annotations: "+strings.Join(configuration.EmotionModes, " or "))
	f.StringVar(&styleOpts.userSummary, "user-traits", "", "free-text description of the learner")
	f.StringVar(&styleOpts.userCharacter, "user-character", "", "learner personality")
	f.StringVar(&styleOpts.userAddress, "user-address", "", "how the AI addresses the learner")
	f.StringVar(&styleOpts.userCustom, "user-custom", "", "extra learner traits")
	f.StringVar(&styleOpts.aiSummary, "ai-traits", "", "free-text description of the AI partner")
	f.StringVar(&styleOpts.aiCharacter, "ai-character", "", "AI partner personality")
	f.StringVar(&styleOpts.aiCatchphrase, "ai-catchphrase", "", "phrases the AI partner likes to use")
	f.StringVar(&styleOpts.aiTone, "ai-tone", "", "AI partner tone of voice")
	f.StringVar(&styleOpts.aiEmotions, "ai-emotions", "", "expressions and actions to draw from in custom mode")
	f.BoolVar(&styleOpts.showDiff, "diff", false, "show a line diff against the original")
	f.BoolVar(&styleOpts.noColor, "no-color", false, "disable colored diff output")
}

// loadDialogue decodes a saved dialogue; metadata, if present, is ignored
func loadDialogue(path string, data []byte) (*dialogue.StructuredDialogue, error) {
	var saved savedDialogue
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &saved)
	default:
		err = json.Unmarshal(data, &saved)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse dialogue: %w", err)
	}
	d := saved.StructuredDialogue
	return &d, nil
}

func buildTraits(cfg *configuration.Config) (style.TraitSpec, error) {
	modeName := styleOpts.emotionMode
	if modeName == "" && cfg.Style != nil {
		modeName = cfg.Style.EmotionMode
	}
	mode, err := style.ParseEmotionMode(modeName)
	if err != nil {
		return style.TraitSpec{}, err
	}
	return style.TraitSpec{
		User: style.UserTraits{
			Character: styleOpts.userCharacter,
			Address:   styleOpts.userAddress,
			Custom:    styleOpts.userCustom,
			Summary:   styleOpts.userSummary,
		},
		AI: style.AITraits{
			Character:   styleOpts.aiCharacter,
			Catchphrase: styleOpts.aiCatchphrase,
			Tone:        styleOpts.aiTone,
			Emotions:    styleOpts.aiEmotions,
			EmotionMode: mode,
			Summary:     styleOpts.aiSummary,
		},
	}, nil
}

func runStyle(cmd *cobra.Command, app *appContext) error {
	out := cmd.OutOrStdout()
	data, err := readInput(styleOpts.in, cmd.InOrStdin())
	if err != nil {
		return err
	}
	d, err := loadDialogue(styleOpts.in, data)
	if err != nil {
		return err
	}
	traits, err := buildTraits(app.config)
	if err != nil {
		return err
	}
	lang := styleOpts.language
	if lang == "" && app.config.Style != nil {
		lang = app.config.Style.Language
	}

	agent := agents.NewStyleAdaptationAgent(app.invoker, agents.Deps{Logger: app.logger})
	result, err := agent.Adapt(cmd.Context(), d, traits, lang)
	if err != nil {
		return err
	}

	heading(out, "styled dialogue")
	fmt.Fprintln(out, result.Text)
	if result.FellBack {
		fmt.Fprintln(out, "(styling failed; original dialogue shown)")
	}

	if styleOpts.showDiff {
		heading(out, "changes")
		color := !styleOpts.noColor && isTerminal(out)
		fmt.Fprint(out, style.Diff(d.RawText, result.Text, color))
		added, removed := style.DiffStats(d.RawText, result.Text)
		fmt.Fprintf(out, "%d lines added, %d lines removed\n", added, removed)
	}

	if styleOpts.out == "" {
		return nil
	}
	if !confirmOverwrite(app.logger, styleOpts.out) {
		fmt.Fprintf(out, "Kept existing %s\n", styleOpts.out)
		return nil
	}
	if err := saveStyled(styleOpts.out, result); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved to %s\n", styleOpts.out)
	return nil
}

func saveStyled(path string, result *style.Result) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		if err := os.WriteFile(path, []byte(result.Text+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}
	return writeOutput(path, result)
}

func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
