package dialogue

import (
	"context"
	"strings"

	"github.com/alantheprice/dialoguegen/pkg/events"
)

// generateProgressive builds a long dialogue in batches. The first batch
// goes through the normal prompt and validation; when it is unusable the
// whole request falls back to generateBounded. Later batches see only the
// last few lines of the dialogue. Whatever has accumulated is returned, so
// this path never yields a placeholder.
func (g *Generator) generateProgressive(ctx context.Context, req GenerationRequest) *Result {
	batchSize := g.opts.BatchSize

	firstReq := req
	firstReq.NumTurns = min(batchSize, req.NumTurns)
	d, _, err := g.generateOnce(ctx, firstReq)
	if err != nil {
		g.opts.Logger.Warnf("Progressive generation: first batch failed (%v); falling back to full generation", err)
		return g.generateBounded(ctx, req)
	}
	v := Validate(d.RawText, req.Mode, firstReq.NumTurns)
	if !v.IsValid && absDiff(v.ActualTurns, firstReq.NumTurns) > 1 {
		g.opts.Logger.Warnf("Progressive generation: first batch has %d/%d turns (first speaker correct=%t); falling back to full generation",
			v.ActualTurns, firstReq.NumTurns, v.FirstSpeakerCorrect)
		return g.generateBounded(ctx, req)
	}

	acc := d.Clone()
	generated := v.ActualTurns
	batch := 1
	g.publish(events.EventTypeBatch, events.BatchEvent(batch, firstReq.NumTurns, v.ActualTurns, generated))

	for remaining := req.NumTurns - generated; remaining > 0; remaining = req.NumTurns - generated {
		size := min(batchSize, remaining)
		prompt, err := BuildContinuationPrompt(tailLines(acc.RawText, continuationContextLines), req.Mode, size, req.Context, req.Goal)
		if err != nil {
			g.opts.Logger.LogError(err)
			break
		}

		reply, err := g.invoker.Invoke(ctx, prompt)
		if err != nil {
			g.opts.Logger.Warnf("Progressive generation stopped at %d/%d turns: %v", generated, req.NumTurns, err)
			break
		}
		if strings.TrimSpace(reply) == "" {
			g.opts.Logger.Warnf("Progressive generation stopped at %d/%d turns: empty continuation", generated, req.NumTurns)
			break
		}

		acc.RawText = appendSegment(acc.RawText, reply)
		produced := Validate(reply, req.Mode, size).ActualTurns
		generated += produced
		batch++
		g.opts.Logger.Logf("Batch %d: requested %d turns, got %d (%d/%d)", batch, size, produced, generated, req.NumTurns)
		g.publish(events.EventTypeBatch, events.BatchEvent(batch, size, produced, generated))

		if 2*produced < size {
			g.opts.Logger.Warnf("Progressive generation stalled: batch %d produced %d of %d turns", batch, produced, size)
			break
		}
	}

	final := Validate(acc.RawText, req.Mode, req.NumTurns)
	if !final.IsValid {
		if absDiff(final.ActualTurns, req.NumTurns) <= 1 {
			g.opts.Logger.Warnf("Progressive generation accepted near match: required %d turns, got %d", req.NumTurns, final.ActualTurns)
		} else {
			g.opts.Logger.Warnf("Progressive generation returned %d of %d turns", final.ActualTurns, req.NumTurns)
		}
	}
	return &Result{Dialogue: acc, Outcome: OutcomeProgressive, Attempts: batch}
}

// tailLines returns the last n non-blank lines of text
func tailLines(text string, n int) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
