// Package dialogue generates two-speaker practice dialogues through a
// language model, validates their turn structure and repairs, extends or
// regenerates them until they conform.
package dialogue

import (
	"fmt"
	"strings"
)

// Speaker is the tag at the start of a dialogue line
type Speaker string

const (
	// SpeakerUser is the learner
	SpeakerUser Speaker = "A"
	// SpeakerAssistant is the AI partner
	SpeakerAssistant Speaker = "B"
)

// Mode fixes which speaker opens the exchange
type Mode string

const (
	ModeAIFirst   Mode = "AI_FIRST"
	ModeUserFirst Mode = "USER_FIRST"
)

// ParseMode accepts the canonical names plus a few loose spellings used on
// the command line ("ai", "user", "ai-first").
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "AI_FIRST", "AI", "ASSISTANT", "B":
		return ModeAIFirst, nil
	case "USER_FIRST", "USER", "A":
		return ModeUserFirst, nil
	}
	return "", &InputError{Field: "mode", Message: fmt.Sprintf("unknown dialogue mode %q", s)}
}

// FirstSpeaker is the speaker expected on the first line
func (m Mode) FirstSpeaker() Speaker {
	if m == ModeAIFirst {
		return SpeakerAssistant
	}
	return SpeakerUser
}

// SecondSpeaker answers the first speaker within a turn
func (m Mode) SecondSpeaker() Speaker {
	if m == ModeAIFirst {
		return SpeakerUser
	}
	return SpeakerAssistant
}

func (m Mode) valid() bool {
	return m == ModeAIFirst || m == ModeUserFirst
}

// StructuredDialogue is a dialogue plus the anchors extracted with it
type StructuredDialogue struct {
	RawText       string   `json:"original_text" yaml:"original_text"`
	KeyPoints     []string `json:"key_points" yaml:"key_points"`
	Intentions    []string `json:"intentions" yaml:"intentions"`
	KeyVocabulary []string `json:"key_vocabulary" yaml:"key_vocabulary"`
	KeySentences  []string `json:"key_sentences" yaml:"key_sentences"`
}

// Clone returns a deep copy
func (d *StructuredDialogue) Clone() *StructuredDialogue {
	if d == nil {
		return nil
	}
	out := &StructuredDialogue{
		RawText:       d.RawText,
		KeyPoints:     append([]string(nil), d.KeyPoints...),
		Intentions:    append([]string(nil), d.Intentions...),
		KeyVocabulary: append([]string(nil), d.KeyVocabulary...),
		KeySentences:  append([]string(nil), d.KeySentences...),
	}
	out.applyDefaults()
	return out
}

// applyDefaults replaces nil lists with empty ones so every field is present
// when the dialogue is serialised
func (d *StructuredDialogue) applyDefaults() {
	if d.KeyPoints == nil {
		d.KeyPoints = []string{}
	}
	if d.Intentions == nil {
		d.Intentions = []string{}
	}
	if d.KeyVocabulary == nil {
		d.KeyVocabulary = []string{}
	}
	if d.KeySentences == nil {
		d.KeySentences = []string{}
	}
}

// ValidationResult describes how well a raw text matches the requested shape.
// It is recomputed on every call and never stored.
type ValidationResult struct {
	IsValid             bool      `json:"is_valid"`
	ActualTurns         int       `json:"actual_turns"`
	ExpectedTurns       int       `json:"expected_turns"`
	FirstSpeakerCorrect bool      `json:"first_speaker_correct"`
	SpeakerSequence     []Speaker `json:"speaker_sequence"`
	CanFix              bool      `json:"can_fix"`
}

// GenerationRequest is the immutable input of one pipeline run
type GenerationRequest struct {
	Context          string `json:"context"`
	Mode             Mode   `json:"mode"`
	Goal             string `json:"goal"`
	Language         string `json:"language"`
	Difficulty       string `json:"difficulty"`
	NumTurns         int    `json:"num_turns"`
	CustomVocabulary string `json:"custom_vocabulary,omitempty"`
	CustomSentence   string `json:"custom_sentence,omitempty"`
}

// Validate checks the fields the pipeline depends on
func (r GenerationRequest) Validate() error {
	if r.NumTurns < 1 {
		return &InputError{Field: "num_turns", Message: fmt.Sprintf("must be at least 1, got %d", r.NumTurns)}
	}
	if !r.Mode.valid() {
		return &InputError{Field: "mode", Message: fmt.Sprintf("unknown dialogue mode %q", r.Mode)}
	}
	return nil
}

// InputError reports a caller mistake; it is the only error the generator
// and the style adapter surface
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}
