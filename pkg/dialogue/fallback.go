package dialogue

import (
	"fmt"
	"strings"
)

// PlaceholderMarker is the key point carried by a placeholder dialogue
const PlaceholderMarker = "Dialogue generation failed; placeholder dialogue used"

// Placeholder builds numTurns templated turns in the order mode fixes. It is
// returned when every generation attempt fails.
func Placeholder(mode Mode, numTurns int) *StructuredDialogue {
	first, second := mode.FirstSpeaker(), mode.SecondSpeaker()
	var sb strings.Builder
	for i := 1; i <= numTurns; i++ {
		fmt.Fprintf(&sb, "%s: [turn %d line]\n", first, i)
		fmt.Fprintf(&sb, "%s: [turn %d response]\n\n", second, i)
	}
	return &StructuredDialogue{
		RawText:       sb.String(),
		KeyPoints:     []string{PlaceholderMarker},
		Intentions:    []string{"Provide the basic frame of the requested turns"},
		KeyVocabulary: []string{},
		KeySentences:  []string{},
	}
}
