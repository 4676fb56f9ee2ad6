package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alantheprice/dialoguegen/pkg/agents"
	"github.com/alantheprice/dialoguegen/pkg/configuration"
	"github.com/alantheprice/dialoguegen/pkg/dialogue"
	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/utils"
)

var generateOpts struct {
	context    string
	goal       string
	mode       string
	turns      int
	difficulty string
	language   string
	vocabulary string
	sentence   string
	out        string
	showEvents bool
	runLog     bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a structured practice dialogue",
	Long: `Generate a two-speaker dialogue between a learner (A) and an AI partner (B).

The result always has a dialogue: when the model keeps missing the requested
turn count the best attempt, a repaired attempt or a placeholder is returned.
Long dialogues are built in batches.`,
	Example: `  dialoguegen generate --context "At a coffee shop" --goal "Order a latte" --turns 6
  dialoguegen generate -c "Job interview" --mode user-first --difficulty C1 --out interview.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(true)
		if err != nil {
			return err
		}
		return runGenerate(cmd, app)
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&generateOpts.context, "context", "c", "", "scene the dialogue takes place in")
	f.StringVarP(&generateOpts.goal, "goal", "g", "", "what the conversation should achieve")
	f.StringVar(&generateOpts.mode, "mode", "", "who speaks first: "+strings.Join(configuration.DialogueModes, " or "))
	f.IntVarP(&generateOpts.turns, "turns", "n", 0, "number of turns (one turn is one line from each speaker)")
	f.StringVarP(&generateOpts.difficulty, "difficulty", "d", "", "CEFR level: "+strings.Join(configuration.DifficultyLevels, ", "))
	f.StringVarP(&generateOpts.language, "language", "l", "", "dialogue language, e.g. "+strings.Join(configuration.Languages[:3], ", "))
	f.StringVar(&generateOpts.vocabulary, "vocabulary", "", "words the dialogue should use")
	f.StringVar(&generateOpts.sentence, "sentence", "", "sentence patterns the dialogue should use")
	f.StringVarP(&generateOpts.out, "out", "o", "", "save the result (.json, .yaml or .md)")
	f.BoolVar(&generateOpts.showEvents, "events", false, "print pipeline progress events")
	f.BoolVar(&generateOpts.runLog, "run-log", false, "record pipeline events as JSON lines under "+utils.RunLogDir)
}

// buildGenerationRequest merges flags with the configured defaults
func buildGenerationRequest(cfg *configuration.Config) (dialogue.GenerationRequest, error) {
	defaults := cfg.Generation
	modeName := generateOpts.mode
	if modeName == "" {
		modeName = defaults.Mode
	}
	mode, err := dialogue.ParseMode(modeName)
	if err != nil {
		return dialogue.GenerationRequest{}, err
	}

	turns := generateOpts.turns
	if turns == 0 {
		turns = defaults.NumTurns
	}

	level := generateOpts.difficulty
	if level == "" {
		level = defaults.Difficulty
	}
	difficulty, err := configuration.NormalizeDifficulty(level)
	if err != nil {
		return dialogue.GenerationRequest{}, err
	}

	lang := generateOpts.language
	if lang == "" {
		lang = defaults.Language
	}

	return dialogue.GenerationRequest{
		Context:          strings.TrimSpace(generateOpts.context),
		Mode:             mode,
		Goal:             strings.TrimSpace(generateOpts.goal),
		Language:         configuration.NormalizeGenerationLanguage(lang),
		Difficulty:       difficulty,
		NumTurns:         turns,
		CustomVocabulary: generateOpts.vocabulary,
		CustomSentence:   generateOpts.sentence,
	}, nil
}

func runGenerate(cmd *cobra.Command, app *appContext) error {
	out := cmd.OutOrStdout()
	req, err := buildGenerationRequest(app.config)
	if err != nil {
		return err
	}

	bus := events.NewEventBus()
	stopEvents := func() {}
	if generateOpts.showEvents {
		stopEvents = printEvents(out, bus)
	}
	stopRunLog := func() {}
	if generateOpts.runLog {
		runLog, err := utils.NewRunLogger(utils.RunLogDir)
		if err != nil {
			return err
		}
		stopRunLog = recordEvents(runLog, bus)
		defer fmt.Fprintf(out, "Run log: %s\n", runLog.Path())
	}

	agent := agents.NewInitialDialogueAgent(app.invoker, agents.Deps{
		Logger:     app.logger,
		Generation: app.config.GeneratorOptions(app.logger, bus),
	})
	result, err := agent.Generate(cmd.Context(), req)
	stopEvents()
	stopRunLog()
	if err != nil {
		return err
	}

	heading(out, "dialogue")
	fmt.Fprintln(out, result.Dialogue.RawText)
	heading(out, "result")
	fmt.Fprintf(out, "Outcome: %s\n", result.Outcome)
	fmt.Fprintf(out, "Turns: %d of %d requested (first speaker correct: %t)\n",
		result.Validation.ActualTurns, result.Validation.ExpectedTurns, result.Validation.FirstSpeakerCorrect)
	if result.Attempts > 0 {
		fmt.Fprintf(out, "Attempts: %d\n", result.Attempts)
	}

	if generateOpts.out == "" {
		return nil
	}
	if !confirmOverwrite(app.logger, generateOpts.out) {
		fmt.Fprintf(out, "Kept existing %s\n", generateOpts.out)
		return nil
	}
	saved := newSavedDialogue(req, result, app.invoker.Provider(), app.invoker.Model(), time.Now())
	if err := saveDialogue(generateOpts.out, saved); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved to %s\n", generateOpts.out)
	return nil
}

func saveDialogue(path string, saved savedDialogue) error {
	if strings.EqualFold(filepath.Ext(path), ".md") {
		if err := os.WriteFile(path, []byte(saved.markdown()), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}
	return writeOutput(path, saved)
}

// printEvents echoes bus events to w until the returned stop func is called
func printEvents(w io.Writer, bus *events.EventBus) func() {
	const name = "cli"
	ch := bus.Subscribe(name)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			fmt.Fprintf(w, "[%s] %s %v\n", ev.Timestamp.Format("15:04:05"), ev.Type, ev.Data)
		}
	}()
	return func() {
		bus.Unsubscribe(name)
		<-done
	}
}

// recordEvents writes bus events to the run log until the returned stop
// func is called; stopping also closes the log.
func recordEvents(runLog *utils.RunLogger, bus *events.EventBus) func() {
	const name = "runlog"
	ch := bus.Subscribe(name)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			runLog.LogEvent(ev.Type, map[string]any{"event_id": ev.ID, "data": ev.Data})
		}
	}()
	return func() {
		bus.Unsubscribe(name)
		<-done
		_ = runLog.Close()
	}
}
