package style

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alantheprice/dialoguegen/pkg/dialogue"
	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/alantheprice/dialoguegen/pkg/utils"
)

// minStyledLength is the length below which a styled reply is logged as suspicious
const minStyledLength = 10

// Options configures an Adapter
type Options struct {
	Logger *utils.Logger
	Events events.Publisher
}

// Result is a styled dialogue
type Result struct {
	Text     string `json:"text" yaml:"text"`
	Language string `json:"language" yaml:"language"`
	// FellBack is set when the original text was returned unstyled
	FellBack bool `json:"fell_back" yaml:"fell_back"`
}

// Adapter restyles dialogues with one model call per dialogue
type Adapter struct {
	invoker llm.Invoker
	opts    Options
}

// NewAdapter creates an adapter calling invoker
func NewAdapter(invoker llm.Invoker, opts Options) *Adapter {
	return &Adapter{invoker: invoker, opts: opts}
}

// Adapt returns the styled dialogue text. Input problems are reported as
// *dialogue.InputError before any model call; every later failure returns
// the original text with a nil error.
func (a *Adapter) Adapt(ctx context.Context, d *dialogue.StructuredDialogue, traits TraitSpec, lang string) (string, error) {
	res, err := a.Run(ctx, d, traits, lang)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Run is Adapt with the chosen language and fallback flag attached
func (a *Adapter) Run(ctx context.Context, d *dialogue.StructuredDialogue, traits TraitSpec, lang string) (*Result, error) {
	if err := checkInput(d, traits); err != nil {
		return nil, err
	}
	resolved, err := resolveLanguage(lang, d.RawText)
	if err != nil {
		return nil, err
	}

	a.opts.Logger.LogProcessStep(fmt.Sprintf("Styling dialogue in %s with %s/%s", resolved, a.invoker.Provider(), a.invoker.Model()))
	text, fellBack := a.style(ctx, d, traits, resolved)
	a.publish(events.EventTypeStyleCompleted, events.StyleCompletedEvent(resolved, utf8.RuneCountInString(text), fellBack))
	return &Result{Text: text, Language: resolved, FellBack: fellBack}, nil
}

func (a *Adapter) style(ctx context.Context, d *dialogue.StructuredDialogue, traits TraitSpec, lang string) (string, bool) {
	prompt, err := BuildPrompt(d, traits, lang)
	if err != nil {
		a.opts.Logger.LogError(fmt.Errorf("style adaptation failed: %w", err))
		return d.RawText, true
	}

	reply, err := a.invoker.Invoke(ctx, prompt)
	if err != nil {
		a.opts.Logger.LogError(fmt.Errorf("style adaptation failed: %w", err))
		a.publish(events.EventTypeError, events.ErrorEvent("style adaptation failed", err))
		return d.RawText, true
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		a.opts.Logger.Warnf("Style adaptation returned no text; keeping the original dialogue")
		return d.RawText, true
	}
	if utf8.RuneCountInString(reply) < minStyledLength {
		a.opts.Logger.Warnf("Suspiciously short styled response: %q", reply)
	}
	return reply, false
}

func checkInput(d *dialogue.StructuredDialogue, traits TraitSpec) error {
	switch {
	case d == nil:
		return &dialogue.InputError{Field: "dialogue", Message: "no dialogue given"}
	case strings.TrimSpace(d.RawText) == "":
		return &dialogue.InputError{Field: "original_text", Message: "dialogue text is required"}
	case d.KeyPoints == nil:
		return &dialogue.InputError{Field: "key_points", Message: "key points are required"}
	case d.Intentions == nil:
		return &dialogue.InputError{Field: "intentions", Message: "intentions are required"}
	case traits.Empty():
		return &dialogue.InputError{Field: "traits", Message: "user or AI traits are required"}
	}
	return nil
}

func (a *Adapter) publish(eventType string, data any) {
	if a.opts.Events != nil {
		a.opts.Events.Publish(eventType, data)
	}
}
