// Package style rewrites a validated dialogue in the voice of a persona
// while keeping its key points, vocabulary and sentence patterns.
package style

import (
	"fmt"
	"strings"

	"github.com/alantheprice/dialoguegen/pkg/dialogue"
)

// EmotionMode selects how action and expression annotations are produced
// for the AI's lines
type EmotionMode string

const (
	// EmotionAuto lets the model invent annotations per line
	EmotionAuto EmotionMode = "auto"
	// EmotionCustom draws annotations from AITraits.Emotions
	EmotionCustom EmotionMode = "custom"
)

// ParseEmotionMode accepts "auto" or "custom"; empty means auto
func ParseEmotionMode(s string) (EmotionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "automatic":
		return EmotionAuto, nil
	case "custom":
		return EmotionCustom, nil
	}
	return "", &dialogue.InputError{Field: "emotion_mode", Message: fmt.Sprintf("unknown emotion mode %q", s)}
}

// UserTraits describes the learner's persona. Summary is a single free-text
// description used when none of the structured fields are set.
type UserTraits struct {
	Character string `json:"character,omitempty" yaml:"character,omitempty"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	Custom    string `json:"custom,omitempty" yaml:"custom,omitempty"`
	Summary   string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// AITraits describes the AI partner's persona
type AITraits struct {
	Character   string      `json:"character,omitempty" yaml:"character,omitempty"`
	Catchphrase string      `json:"catchphrase,omitempty" yaml:"catchphrase,omitempty"`
	Tone        string      `json:"tone,omitempty" yaml:"tone,omitempty"`
	Emotions    string      `json:"emotions,omitempty" yaml:"emotions,omitempty"`
	EmotionMode EmotionMode `json:"emotion_mode,omitempty" yaml:"emotion_mode,omitempty"`
	Summary     string      `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// TraitSpec is consumed once per style transform
type TraitSpec struct {
	User UserTraits `json:"user" yaml:"user"`
	AI   AITraits   `json:"ai" yaml:"ai"`
}

func (u UserTraits) structured() bool {
	return u.Character != "" || u.Address != "" || u.Custom != ""
}

// Merged flattens the structured fields into one line, or returns Summary
func (u UserTraits) Merged() string {
	if !u.structured() {
		return strings.TrimSpace(u.Summary)
	}
	return joinFields([][2]string{
		{"personality", u.Character},
		{"address", u.Address},
		{"custom", u.Custom},
	})
}

func (a AITraits) mode() EmotionMode {
	if a.EmotionMode == "" {
		return EmotionAuto
	}
	return a.EmotionMode
}

func (a AITraits) customEmotions() bool {
	return a.mode() == EmotionCustom && strings.TrimSpace(a.Emotions) != ""
}

func (a AITraits) structured() bool {
	return a.Character != "" || a.Catchphrase != "" || a.Tone != "" || a.customEmotions()
}

// Merged flattens the structured fields into one line, or returns Summary
func (a AITraits) Merged() string {
	if !a.structured() {
		return strings.TrimSpace(a.Summary)
	}
	fields := [][2]string{
		{"personality", a.Character},
		{"catchphrase", a.Catchphrase},
		{"tone", a.Tone},
	}
	switch {
	case a.customEmotions():
		fields = append(fields, [2]string{"expressions/actions", a.Emotions})
	case a.mode() == EmotionAuto:
		fields = append(fields, [2]string{"expressions/actions", "generated automatically"})
	}
	return joinFields(fields)
}

// Empty reports whether neither persona carries any description
func (t TraitSpec) Empty() bool {
	return t.User.Merged() == "" && t.AI.Merged() == ""
}

func joinFields(fields [][2]string) string {
	var parts []string
	for _, f := range fields {
		if v := strings.TrimSpace(f[1]); v != "" {
			parts = append(parts, f[0]+": "+v)
		}
	}
	return strings.Join(parts, "; ")
}
