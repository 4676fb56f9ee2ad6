package llm

import (
	"strings"
	"unicode"
)

// EstimateTokens gives a rough prompt size for logging. Han characters
// count about one token each; other text follows the usual ~0.75 tokens
// per word plus a character term.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	words := strings.Fields(text)
	han, other, special := 0, 0, 0
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case r == '\n' || r == '\r' || r == '\t':
			special++
		default:
			other++
		}
	}

	wordTokens := float64(len(words)) * 0.75
	charTokens := float64(other) * 0.25
	total := int(wordTokens + charTokens + float64(han) + float64(special)*0.5)
	if total < 1 {
		total = 1
	}
	return total
}
