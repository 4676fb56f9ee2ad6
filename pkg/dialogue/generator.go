package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/alantheprice/dialoguegen/pkg/utils"
)

// Outcome records which path produced a dialogue
type Outcome string

const (
	OutcomeValid        Outcome = "valid"
	OutcomeRepaired     Outcome = "repaired"
	OutcomeDegraded     Outcome = "degraded"
	OutcomeUnstructured Outcome = "unstructured"
	OutcomePlaceholder  Outcome = "placeholder"
	OutcomeProgressive  Outcome = "progressive"
)

const (
	DefaultMaxAttempts          = 3
	DefaultProgressiveThreshold = 5
	DefaultBatchSize            = 3
	continuationContextLines    = 4
)

// Options tunes a Generator. Zero values select the defaults.
type Options struct {
	Logger *utils.Logger
	Events events.Publisher
	// MaxAttempts bounds regeneration in the non-progressive path
	MaxAttempts int
	// ProgressiveThreshold is the largest turn count generated in one call
	ProgressiveThreshold int
	// BatchSize is the number of turns requested per progressive batch
	BatchSize int
}

// Result is a generated dialogue plus how it was obtained
type Result struct {
	Dialogue *StructuredDialogue `json:"dialogue"`
	Outcome  Outcome             `json:"outcome"`
	// Attempts counts model calls in the bounded path and batches in the
	// progressive path
	Attempts   int              `json:"attempts"`
	Validation ValidationResult `json:"validation"`
}

// Generator runs the generate, validate and repair pipeline
type Generator struct {
	invoker  llm.Invoker
	repairer *Repairer
	opts     Options
}

// NewGenerator creates a generator calling invoker
func NewGenerator(invoker llm.Invoker, opts Options) *Generator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.ProgressiveThreshold <= 0 {
		opts.ProgressiveThreshold = DefaultProgressiveThreshold
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Generator{
		invoker:  invoker,
		repairer: NewRepairer(invoker, opts.Logger),
		opts:     opts,
	}
}

// Generate returns a dialogue for req. The only error is an *InputError for
// an invalid request; model failures degrade to near matches, unstructured
// text or a placeholder.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (*StructuredDialogue, error) {
	res, err := g.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Dialogue, nil
}

// Run is Generate with the outcome and final validation attached
func (g *Generator) Run(ctx context.Context, req GenerationRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	g.opts.Logger.LogProcessStep(fmt.Sprintf("Generating %d-turn %s dialogue with %s/%s",
		req.NumTurns, req.Mode, g.invoker.Provider(), g.invoker.Model()))
	g.publish(events.EventTypeGenerationStarted,
		events.GenerationStartedEvent(req.NumTurns, string(req.Mode), g.invoker.Provider(), g.invoker.Model()))

	var res *Result
	if req.NumTurns > g.opts.ProgressiveThreshold {
		res = g.generateProgressive(ctx, req)
	} else {
		res = g.generateBounded(ctx, req)
	}
	res.Dialogue.applyDefaults()
	res.Validation = Validate(res.Dialogue.RawText, req.Mode, req.NumTurns)

	g.opts.Logger.Logf("Generation finished: outcome=%s turns=%d/%d", res.Outcome, res.Validation.ActualTurns, req.NumTurns)
	g.publish(events.EventTypeGenerationCompleted,
		events.GenerationCompletedEvent(res.Validation.ActualTurns, req.NumTurns, string(res.Outcome), time.Since(start)))
	return res, nil
}

// generateBounded makes up to MaxAttempts full generation calls
func (g *Generator) generateBounded(ctx context.Context, req GenerationRequest) *Result {
	maxAttempts := g.opts.MaxAttempts
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		last := attempt == maxAttempts

		d, reply, err := g.generateOnce(ctx, req)
		if err != nil {
			if errors.Is(err, ErrParseFailure) {
				g.opts.Logger.Warnf("Attempt %d/%d: %v", attempt, maxAttempts, err)
				if last && strings.TrimSpace(reply) != "" {
					g.attemptEvent(attempt, "unstructured", 0)
					return &Result{Dialogue: unstructured(reply), Outcome: OutcomeUnstructured, Attempts: attempt}
				}
				g.attemptEvent(attempt, "parse_failed", 0)
				continue
			}

			if llm.IsRateLimited(err) {
				g.opts.Logger.Warnf("Attempt %d/%d: %s is still rate limiting after its retries", attempt, maxAttempts, g.invoker.Provider())
			}
			g.opts.Logger.LogError(fmt.Errorf("attempt %d/%d (%s): %w", attempt, maxAttempts, llm.KindOf(err), err))
			g.attemptEvent(attempt, "invoke_error", 0)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		v := Validate(d.RawText, req.Mode, req.NumTurns)
		switch {
		case v.IsValid:
			g.attemptEvent(attempt, "valid", v.ActualTurns)
			return &Result{Dialogue: d, Outcome: OutcomeValid, Attempts: attempt}

		case v.CanFix && !last:
			fixed, err := g.repairer.Repair(ctx, d, v, req.Mode, req.NumTurns, req.Context, req.Goal)
			if err == nil {
				repaired := Validate(fixed.RawText, req.Mode, req.NumTurns).ActualTurns
				if repaired != req.NumTurns {
					g.opts.Logger.Warnf("Attempt %d/%d: repaired dialogue has %d turns, %d requested", attempt, maxAttempts, repaired, req.NumTurns)
				}
				g.publish(events.EventTypeRepair, events.RepairEvent(repairStrategy(v, req.NumTurns), v.ActualTurns, repaired))
				g.attemptEvent(attempt, "repaired", repaired)
				return &Result{Dialogue: fixed, Outcome: OutcomeRepaired, Attempts: attempt}
			}
			g.opts.Logger.Warnf("Attempt %d/%d: repair failed: %v", attempt, maxAttempts, err)
			g.attemptEvent(attempt, "repair_failed", v.ActualTurns)

		case last && absDiff(v.ActualTurns, req.NumTurns) <= 1:
			g.opts.Logger.Warnf("Accepting near match: required %d turns, got %d", req.NumTurns, v.ActualTurns)
			g.attemptEvent(attempt, "degraded", v.ActualTurns)
			return &Result{Dialogue: d, Outcome: OutcomeDegraded, Attempts: attempt}

		default:
			g.opts.Logger.Warnf("Attempt %d/%d: invalid dialogue (turns %d/%d, first speaker correct=%t)",
				attempt, maxAttempts, v.ActualTurns, req.NumTurns, v.FirstSpeakerCorrect)
			g.attemptEvent(attempt, "invalid", v.ActualTurns)
		}
	}

	g.opts.Logger.Warnf("All %d attempts failed; returning placeholder dialogue", maxAttempts)
	return &Result{Dialogue: Placeholder(req.Mode, req.NumTurns), Outcome: OutcomePlaceholder, Attempts: maxAttempts}
}

// generateOnce renders the prompt, calls the model and parses the reply. The
// raw reply is returned alongside a parse failure.
func (g *Generator) generateOnce(ctx context.Context, req GenerationRequest) (*StructuredDialogue, string, error) {
	prompt, err := BuildGenerationPrompt(req)
	if err != nil {
		return nil, "", err
	}
	g.opts.Logger.Logf("Requesting %d-turn dialogue (~%d prompt tokens)", req.NumTurns, llm.EstimateTokens(prompt))
	reply, err := g.invoker.Invoke(ctx, prompt)
	if err != nil {
		return nil, "", err
	}
	d, err := ParseResponse(reply)
	if err != nil {
		return nil, reply, err
	}
	return d, reply, nil
}

func repairStrategy(v ValidationResult, required int) string {
	if v.ActualTurns < required {
		return "extend"
	}
	return "trim"
}

func (g *Generator) attemptEvent(attempt int, outcome string, turns int) {
	g.publish(events.EventTypeAttempt, events.AttemptEvent(attempt, g.opts.MaxAttempts, outcome, turns))
}

func (g *Generator) publish(eventType string, data any) {
	if g.opts.Events != nil {
		g.opts.Events.Publish(eventType, data)
	}
}
