package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/alantheprice/dialoguegen/pkg/dialogue"
)

// savedDialogue is the file format written by generate --out and read back
// by style --in. The dialogue fields sit at the top level.
type savedDialogue struct {
	dialogue.StructuredDialogue `yaml:",inline"`
	Metadata                    savedMetadata `json:"metadata" yaml:"metadata"`
}

type savedMetadata struct {
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
	Context    string `json:"context" yaml:"context"`
	Goal       string `json:"goal" yaml:"goal"`
	Mode       string `json:"mode" yaml:"mode"`
	NumTurns   int    `json:"num_turns" yaml:"num_turns"`
	Difficulty string `json:"difficulty" yaml:"difficulty"`
	Language   string `json:"language" yaml:"language"`
	Outcome    string `json:"outcome" yaml:"outcome"`
	Attempts   int    `json:"attempts" yaml:"attempts"`
	Provider   string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
}

const timestampLayout = "20060102_150405"

func newSavedDialogue(req dialogue.GenerationRequest, res *dialogue.Result, provider, model string, now time.Time) savedDialogue {
	return savedDialogue{
		StructuredDialogue: *res.Dialogue,
		Metadata: savedMetadata{
			Timestamp:  now.Format(timestampLayout),
			Context:    req.Context,
			Goal:       req.Goal,
			Mode:       string(req.Mode),
			NumTurns:   req.NumTurns,
			Difficulty: req.Difficulty,
			Language:   req.Language,
			Outcome:    string(res.Outcome),
			Attempts:   res.Attempts,
			Provider:   provider,
			Model:      model,
		},
	}
}

// markdown renders a saved dialogue for reading
func (s savedDialogue) markdown() string {
	var sb strings.Builder
	title := s.Metadata.Context
	if len([]rune(title)) > 30 {
		title = string([]rune(title)[:30]) + "..."
	}
	fmt.Fprintf(&sb, "# Dialogue: %s\n\n", title)
	fmt.Fprintf(&sb, "**Generated**: %s\n\n", s.Metadata.Timestamp)
	fmt.Fprintf(&sb, "**Context**: %s\n\n", s.Metadata.Context)
	fmt.Fprintf(&sb, "**Goal**: %s\n\n", s.Metadata.Goal)

	sb.WriteString("## Dialogue\n\n```\n")
	sb.WriteString(s.RawText)
	sb.WriteString("\n```\n\n")

	section := func(name string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "## %s\n\n", name)
		for _, item := range items {
			fmt.Fprintf(&sb, "- %s\n", item)
		}
		sb.WriteString("\n")
	}
	section("Key Points", s.KeyPoints)
	section("Key Vocabulary", s.KeyVocabulary)
	section("Key Sentences", s.KeySentences)
	section("Intentions", s.Intentions)
	return strings.TrimRight(sb.String(), "\n") + "\n"
}
