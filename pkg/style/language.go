package style

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"github.com/alantheprice/dialoguegen/pkg/dialogue"
)

// Output languages with a prompt template
const (
	English = "English"
	Chinese = "Chinese"
)

var (
	englishBase, _ = language.English.Base()
	chineseBase, _ = language.Chinese.Base()
)

// DetectLanguage returns Chinese when text contains Han characters and
// English otherwise
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return Chinese
		}
	}
	return English
}

// NormalizeLanguage maps a language name or BCP 47 tag ("en-GB", "zh-Hans",
// "中文") to English or Chinese. Empty input returns "".
func NormalizeLanguage(s string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return "", nil
	case "english", "英文", "英语":
		return English, nil
	case "chinese", "mandarin", "中文", "汉语", "普通话":
		return Chinese, nil
	}

	tag, err := language.Parse(name)
	if err == nil {
		base, _ := tag.Base()
		switch base {
		case englishBase:
			return English, nil
		case chineseBase:
			return Chinese, nil
		}
	}
	return "", &dialogue.InputError{Field: "language", Message: fmt.Sprintf("unsupported output language %q", s)}
}

// resolveLanguage applies an explicit choice or falls back to detection
func resolveLanguage(explicit, rawText string) (string, error) {
	lang, err := NormalizeLanguage(explicit)
	if err != nil {
		return "", err
	}
	if lang == "" {
		return DetectLanguage(rawText), nil
	}
	return lang, nil
}
