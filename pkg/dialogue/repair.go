package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/alantheprice/dialoguegen/pkg/utils"
)

// ErrUnrepairable means the dialogue has to be regenerated
var ErrUnrepairable = errors.New("dialogue cannot be repaired")

// Repairer patches dialogues whose turn count is slightly off. Inputs are
// never modified; every result is a fresh copy.
type Repairer struct {
	invoker llm.Invoker
	logger  *utils.Logger
}

// NewRepairer creates a repairer; logger may be nil
func NewRepairer(invoker llm.Invoker, logger *utils.Logger) *Repairer {
	return &Repairer{invoker: invoker, logger: logger}
}

// Repair extends a short dialogue or trims a long one. A wrong first speaker
// is not fixed here: the caller regenerates instead.
func (r *Repairer) Repair(ctx context.Context, d *StructuredDialogue, v ValidationResult, mode Mode, required int, dialogueContext, goal string) (*StructuredDialogue, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: no dialogue", ErrUnrepairable)
	}
	if !v.FirstSpeakerCorrect {
		return nil, fmt.Errorf("%w: wrong first speaker", ErrUnrepairable)
	}

	switch {
	case v.ActualTurns < required:
		extended, changed, err := r.Extend(ctx, d, mode, required-v.ActualTurns, dialogueContext, goal)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, fmt.Errorf("%w: model returned no continuation", ErrUnrepairable)
		}
		return extended, nil
	case v.ActualTurns > required:
		r.logger.Logf("Trimming dialogue from %d to %d turns", v.ActualTurns, required)
		return Trim(d, required), nil
	default:
		return nil, fmt.Errorf("%w: turn count already matches", ErrUnrepairable)
	}
}

// Extend asks the model for additional turns and appends the reply verbatim.
// The appended text is not validated here. An empty reply leaves the
// dialogue unchanged and reports changed=false.
func (r *Repairer) Extend(ctx context.Context, d *StructuredDialogue, mode Mode, additional int, dialogueContext, goal string) (*StructuredDialogue, bool, error) {
	out := d.Clone()
	if additional <= 0 {
		return out, false, nil
	}

	prompt, err := BuildExtendPrompt(d, mode, additional, dialogueContext, goal)
	if err != nil {
		return nil, false, err
	}
	r.logger.Logf("Extending dialogue by %d turns", additional)
	reply, err := r.invoker.Invoke(ctx, prompt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to extend dialogue: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		r.logger.Warnf("Extension returned no text; dialogue left unchanged")
		return out, false, nil
	}

	out.RawText = appendSegment(out.RawText, reply)
	return out, true, nil
}

// Trim keeps the first required turns' worth of speaker lines (2*required)
// and drops narration and everything after them
func Trim(d *StructuredDialogue, required int) *StructuredDialogue {
	out := d.Clone()
	lines := SpeakerLines(d.RawText)
	if keep := 2 * required; keep < len(lines) {
		if keep < 0 {
			keep = 0
		}
		lines = lines[:keep]
	}
	out.RawText = strings.Join(lines, "\n")
	return out
}

// appendSegment appends segment on a new line
func appendSegment(text, segment string) string {
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + segment
}
