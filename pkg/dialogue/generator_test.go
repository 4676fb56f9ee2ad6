package dialogue

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/alantheprice/dialoguegen/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertComplete(t *testing.T, d *StructuredDialogue) {
	t.Helper()
	require.NotNil(t, d)
	assert.NotEmpty(t, d.RawText)
	assert.NotNil(t, d.KeyPoints)
	assert.NotNil(t, d.Intentions)
	assert.NotNil(t, d.KeyVocabulary)
	assert.NotNil(t, d.KeySentences)
}

func TestGenerate_RejectsInvalidRequest(t *testing.T) {
	inv := script()
	g := NewGenerator(inv, Options{})

	for _, req := range []GenerationRequest{
		baseRequest(ModeAIFirst, 0),
		baseRequest("SOMEONE_FIRST", 3),
	} {
		d, err := g.Generate(context.Background(), req)
		assert.Nil(t, d)
		var inputErr *InputError
		assert.ErrorAs(t, err, &inputErr)
	}
	assert.Zero(t, inv.calls())
}

func TestGenerate_ValidFirstAttempt(t *testing.T) {
	inv := script(text(jsonReply(turnLines(ModeAIFirst, 1, 4))))
	g := NewGenerator(inv, Options{})

	res, err := g.Run(context.Background(), baseRequest(ModeAIFirst, 4))
	require.NoError(t, err)
	assert.Equal(t, OutcomeValid, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.True(t, res.Validation.IsValid)
	assertComplete(t, res.Dialogue)
	assert.Empty(t, res.Dialogue.KeyVocabulary)

	prompt := inv.prompts[0]
	assert.Contains(t, prompt, "Dialogue context: At a coffee shop")
	assert.Contains(t, prompt, "Dialogue mode: AI_FIRST")
	assert.Contains(t, prompt, "Difficulty: B1")
	assert.Contains(t, prompt, "Make sure the AI assistant starts the dialogue")
	assert.Contains(t, prompt, "Turn 4:\nB: [AI line]\nA: [user line]")
	assert.NotContains(t, prompt, "Turn 5:")
}

func TestGenerate_PromptCarriesCustomContent(t *testing.T) {
	inv := script(text(jsonReply(turnLines(ModeUserFirst, 1, 2))))
	g := NewGenerator(inv, Options{})
	req := baseRequest(ModeUserFirst, 2)
	req.CustomVocabulary = "espresso, oat milk"
	req.CustomSentence = "Could I have ...?"

	_, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, inv.prompts[0], "Naturally include these words in the dialogue: espresso, oat milk")
	assert.Contains(t, inv.prompts[0], "Naturally use these sentence patterns in the dialogue: Could I have ...?")
	assert.Contains(t, inv.prompts[0], "Turn 1:\nA: [user line]\nB: [AI line]")
}

func TestGenerate_RepairsShortDialogue(t *testing.T) {
	inv := script(
		text(jsonReply(turnLines(ModeAIFirst, 1, 3))),
		text(turnLines(ModeAIFirst, 4, 1)),
	)
	bus := events.NewEventBus()
	ch := bus.Subscribe("test")
	g := NewGenerator(inv, Options{Events: bus})

	res, err := g.Run(context.Background(), baseRequest(ModeAIFirst, 4))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRepaired, res.Outcome)
	assert.Equal(t, 2, inv.calls())
	assert.Equal(t, 4, res.Validation.ActualTurns)
	assertComplete(t, res.Dialogue)

	var types []string
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}
	assert.Contains(t, types, events.EventTypeRepair)
	assert.Equal(t, events.EventTypeGenerationStarted, types[0])
	assert.Equal(t, events.EventTypeGenerationCompleted, types[len(types)-1])
}

func TestGenerate_TrimsLongDialogue(t *testing.T) {
	inv := script(text(jsonReply(turnLines(ModeUserFirst, 1, 5))))
	g := NewGenerator(inv, Options{})

	res, err := g.Run(context.Background(), baseRequest(ModeUserFirst, 3))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRepaired, res.Outcome)
	assert.True(t, res.Validation.IsValid)
	assert.Equal(t, 1, inv.calls())
}

func TestGenerate_RegeneratesAfterFailedRepair(t *testing.T) {
	inv := script(
		text(jsonReply(turnLines(ModeAIFirst, 1, 2))),
		text(""), // empty extension
		text(jsonReply(turnLines(ModeAIFirst, 1, 3))),
	)
	g := NewGenerator(inv, Options{})

	res, err := g.Run(context.Background(), baseRequest(ModeAIFirst, 3))
	require.NoError(t, err)
	assert.Equal(t, OutcomeValid, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 3, inv.calls())
}

func TestGenerate_DegradedAcceptanceOnLastAttempt(t *testing.T) {
	wrongFirst := jsonReply(turnLines(ModeUserFirst, 1, 5))
	inv := script(
		text(wrongFirst),
		text(wrongFirst),
		text(jsonReply(turnLines(ModeAIFirst, 1, 4))),
	)
	var logBuf bytes.Buffer
	g := NewGenerator(inv, Options{Logger: utils.NewLogger(&logBuf)})

	res, err := g.Run(context.Background(), baseRequest(ModeAIFirst, 5))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDegraded, res.Outcome)
	assert.Equal(t, 4, res.Validation.ActualTurns)
	assert.Equal(t, 3, inv.calls())
	assert.Contains(t, logBuf.String(), "Accepting near match")
}

func TestGenerate_LogsInvokeErrorKind(t *testing.T) {
	inv := script(
		failure(llm.KindRateLimit),
		text(jsonReply(turnLines(ModeAIFirst, 1, 2))),
	)
	var logBuf bytes.Buffer
	g := NewGenerator(inv, Options{Logger: utils.NewLogger(&logBuf)})

	res, err := g.Run(context.Background(), baseRequest(ModeAIFirst, 2))
	require.NoError(t, err)
	assert.Equal(t, OutcomeValid, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, logBuf.String(), "fake is still rate limiting after its retries")
	assert.Contains(t, logBuf.String(), "attempt 1/3 (rate_limit)")
}

func TestGenerate_WarnsWhenTrimLeavesFewerTurns(t *testing.T) {
	// A B A A B A B counts 3 user-first turns; its first 4 lines hold only 1
	raw := "A: Hi.\nB: Hello.\nA: One.\nA: Two.\nB: Sure.\nA: Three.\nB: Bye."
	inv := script(text(jsonReply(raw)))
	var logBuf bytes.Buffer
	g := NewGenerator(inv, Options{Logger: utils.NewLogger(&logBuf)})

	res, err := g.Run(context.Background(), baseRequest(ModeUserFirst, 2))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRepaired, res.Outcome)
	assert.Equal(t, "A: Hi.\nB: Hello.\nA: One.\nA: Two.", res.Dialogue.RawText)
	assert.Equal(t, 1, inv.calls())
	assert.Contains(t, logBuf.String(), "repaired dialogue has 1 turns, 2 requested")
}

func TestGenerate_UnstructuredFallback(t *testing.T) {
	raw := "B: Welcome in!\nA: Thanks."
	inv := script(text("sorry"), text("still no json"), text(raw))
	g := NewGenerator(inv, Options{})

	res, err := g.Run(context.Background(), baseRequest(ModeAIFirst, 1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnstructured, res.Outcome)
	assert.Equal(t, raw, res.Dialogue.RawText)
	assert.Empty(t, res.Dialogue.KeyPoints)
	assert.NotNil(t, res.Dialogue.KeyPoints)
}

func TestGenerate_PlaceholderAfterExhaustion(t *testing.T) {
	inv := script(failure(llm.KindRateLimit), failure(llm.KindTimeout), failure(llm.KindAPIError))
	g := NewGenerator(inv, Options{})

	res, err := g.Run(context.Background(), baseRequest(ModeUserFirst, 4))
	require.NoError(t, err)
	assert.Equal(t, OutcomePlaceholder, res.Outcome)
	assert.Equal(t, 3, inv.calls())
	assert.True(t, res.Validation.IsValid, "placeholder has the requested shape")
	assert.Equal(t, []string{PlaceholderMarker}, res.Dialogue.KeyPoints)
	assertComplete(t, res.Dialogue)
}

func TestGenerate_CancelledContextStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := script(scriptedReply{err: &llm.CallError{Kind: llm.KindUnknown, Err: context.Canceled}})
	g := NewGenerator(inv, Options{})

	res, err := g.Run(ctx, baseRequest(ModeAIFirst, 2))
	require.NoError(t, err)
	assert.Equal(t, OutcomePlaceholder, res.Outcome)
	assert.Equal(t, 1, inv.calls())
}

func TestGenerate_NeverFailsForValidRequests(t *testing.T) {
	scripts := map[string]func() *scriptedInvoker{
		"all failures": func() *scriptedInvoker { return script() },
		"garbage":      func() *scriptedInvoker { return script(text("{"), text("}{"), text("")) },
		"wrong speaker": func() *scriptedInvoker {
			r := text(jsonReply(turnLines(ModeUserFirst, 1, 1)))
			return script(r, r, r)
		},
		"way off": func() *scriptedInvoker {
			r := text(jsonReply(turnLines(ModeAIFirst, 1, 9)))
			return script(r, r, r)
		},
	}
	for name, mk := range scripts {
		for _, turns := range []int{1, 3, 5, 8} {
			t.Run(fmt.Sprintf("%s/%d", name, turns), func(t *testing.T) {
				g := NewGenerator(mk(), Options{})
				d, err := g.Generate(context.Background(), baseRequest(ModeAIFirst, turns))
				require.NoError(t, err)
				assertComplete(t, d)
			})
		}
	}
}

func TestGenerationEventsCarryDuration(t *testing.T) {
	bus := events.NewEventBus()
	ch := bus.Subscribe("test")
	g := NewGenerator(script(text(jsonReply(turnLines(ModeAIFirst, 1, 1)))), Options{Events: bus.WithRequest("req-1")})

	_, err := g.Generate(context.Background(), baseRequest(ModeAIFirst, 1))
	require.NoError(t, err)

	var completed *events.PipelineEvent
	timeout := time.After(time.Second)
	for completed == nil {
		select {
		case e := <-ch:
			assert.Equal(t, "req-1", e.RequestID)
			if e.Type == events.EventTypeGenerationCompleted {
				completed = &e
			}
		case <-timeout:
			t.Fatal("no completion event")
		}
	}
	data := completed.Data.(map[string]interface{})
	assert.Equal(t, "valid", data["outcome"])
	assert.Equal(t, 1, data["actual_turns"])
}
