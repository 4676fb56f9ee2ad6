package dialogue

import (
	"strings"
)

// speakerOf reports the tag a trimmed line starts with. A tag counts when it
// is followed by ':' or a space.
func speakerOf(line string) (Speaker, bool) {
	for _, s := range []Speaker{SpeakerUser, SpeakerAssistant} {
		tag := string(s)
		if strings.HasPrefix(line, tag+":") || strings.HasPrefix(line, tag+" ") {
			return s, true
		}
	}
	return "", false
}

// SpeakerLines returns the trimmed lines of rawText that start with a speaker
// tag, in order. Narration and blank lines are dropped.
func SpeakerLines(rawText string) []string {
	var kept []string
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if _, ok := speakerOf(line); ok {
			kept = append(kept, line)
		}
	}
	return kept
}

// CountTurns counts adjacent (first, second) pairs in seq for mode. Elements
// that do not open a matching pair are skipped one at a time, so a stray
// repeated line never shifts the pairs after it.
func CountTurns(seq []Speaker, mode Mode) int {
	first, second := mode.FirstSpeaker(), mode.SecondSpeaker()
	turns := 0
	for i := 0; i < len(seq)-1; {
		if seq[i] == first && seq[i+1] == second {
			turns++
			i += 2
			continue
		}
		i++
	}
	return turns
}

// Validate checks rawText against mode and requiredTurns
func Validate(rawText string, mode Mode, requiredTurns int) ValidationResult {
	lines := SpeakerLines(rawText)
	seq := make([]Speaker, 0, len(lines))
	for _, line := range lines {
		s, _ := speakerOf(line)
		seq = append(seq, s)
	}

	firstCorrect := len(seq) > 0 && seq[0] == mode.FirstSpeaker()
	turns := CountTurns(seq, mode)

	return ValidationResult{
		IsValid:             turns == requiredTurns && firstCorrect,
		ActualTurns:         turns,
		ExpectedTurns:       requiredTurns,
		FirstSpeakerCorrect: firstCorrect,
		SpeakerSequence:     seq,
		CanFix:              firstCorrect && absDiff(turns, requiredTurns) <= 2,
	}
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
