package style

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	redColor   = "\x1b[31m"
	greenColor = "\x1b[32m"
	resetColor = "\x1b[0m"
)

// Diff renders a line diff between the original and styled dialogue.
// Removed lines are prefixed "- ", added lines "+ ", unchanged lines two
// spaces. color wraps changes in ANSI colors.
func Diff(original, styled string, color bool) string {
	diffs := lineDiffs(original, styled)

	var sb strings.Builder
	for _, d := range diffs {
		prefix, start, end := "  ", "", ""
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
			if color {
				start, end = greenColor, resetColor
			}
		case diffmatchpatch.DiffDelete:
			prefix = "- "
			if color {
				start, end = redColor, resetColor
			}
		}
		for _, line := range splitLines(d.Text) {
			sb.WriteString(start + prefix + line + end + "\n")
		}
	}
	return sb.String()
}

// DiffStats counts added and removed lines
func DiffStats(original, styled string) (additions, deletions int) {
	for _, d := range lineDiffs(original, styled) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += len(splitLines(d.Text))
		case diffmatchpatch.DiffDelete:
			deletions += len(splitLines(d.Text))
		}
	}
	return additions, deletions
}

func lineDiffs(original, styled string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(ensureNewline(original), ensureNewline(styled))
	diffs := dmp.DiffMain(a, b, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

func ensureNewline(s string) string {
	if s != "" && !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
