package configuration

import (
	"fmt"
	"strings"
)

// Languages a dialogue can be generated in
var Languages = []string{"English", "Chinese", "Japanese", "Korean", "French", "German", "Spanish"}

// DifficultyLevels are the CEFR levels understood by the prompts
var DifficultyLevels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

// DialogueModes and EmotionModes list the accepted spellings shown in help text
var (
	DialogueModes = []string{"AI_FIRST", "USER_FIRST"}
	EmotionModes  = []string{"auto", "custom"}
)

// NormalizeDifficulty upper-cases a CEFR level and rejects unknown ones
func NormalizeDifficulty(level string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(level))
	for _, known := range DifficultyLevels {
		if normalized == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q (expected one of %s)", level, strings.Join(DifficultyLevels, ", "))
}

// NormalizeGenerationLanguage matches a language name case-insensitively.
// Names outside the catalogue are passed through unchanged so prompts can
// still ask for them.
func NormalizeGenerationLanguage(name string) string {
	trimmed := strings.TrimSpace(name)
	for _, known := range Languages {
		if strings.EqualFold(trimmed, known) {
			return known
		}
	}
	return trimmed
}
