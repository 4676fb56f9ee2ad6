package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParseFailure marks a model response that does not hold a usable
// structured dialogue
var ErrParseFailure = errors.New("malformed dialogue response")

// ParseResponse decodes the JSON object spanning the first '{' to the last
// '}' of text. Prose or code fences around the object are ignored.
func ParseResponse(text string) (*StructuredDialogue, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrParseFailure)
	}

	var d StructuredDialogue
	if err := json.Unmarshal([]byte(text[start:end+1]), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if strings.TrimSpace(d.RawText) == "" {
		return nil, fmt.Errorf("%w: original_text is missing", ErrParseFailure)
	}
	d.applyDefaults()
	return &d, nil
}

// unstructured wraps raw model output that could not be parsed
func unstructured(text string) *StructuredDialogue {
	d := &StructuredDialogue{RawText: text}
	d.applyDefaults()
	return d
}
