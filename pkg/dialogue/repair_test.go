package dialogue

import (
	"context"
	"fmt"
	"testing"

	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialogueWith(mode Mode, turns int) *StructuredDialogue {
	return &StructuredDialogue{
		RawText:    turnLines(mode, 1, turns),
		KeyPoints:  []string{"greeting", "ordering"},
		Intentions: []string{"practice ordering food"},
	}
}

func TestTrim_RevalidatesToRequestedTurns(t *testing.T) {
	for _, mode := range []Mode{ModeAIFirst, ModeUserFirst} {
		for n := 2; n <= 10; n++ {
			for k := 1; k < n; k++ {
				t.Run(fmt.Sprintf("%s/%d->%d", mode, n, k), func(t *testing.T) {
					trimmed := Trim(dialogueWith(mode, n), k)
					v := Validate(trimmed.RawText, mode, k)
					assert.Equal(t, k, v.ActualTurns)
					assert.True(t, v.IsValid)
				})
			}
		}
	}
}

func TestTrim_DropsNarrationAndKeepsInput(t *testing.T) {
	d := &StructuredDialogue{RawText: "(a sunny morning)\nA: hi\nB: hello\nA: coffee?\nB: sure\n(end)", KeyPoints: []string{"k"}}
	trimmed := Trim(d, 1)

	assert.Equal(t, "A: hi\nB: hello", trimmed.RawText)
	assert.Equal(t, []string{"k"}, trimmed.KeyPoints)
	assert.Contains(t, d.RawText, "(a sunny morning)")
}

func TestExtend_AddsTurns(t *testing.T) {
	inv := script(text(turnLines(ModeAIFirst, 3, 2)))
	r := NewRepairer(inv, nil)
	d := dialogueWith(ModeAIFirst, 2)
	before := d.RawText

	out, changed, err := r.Extend(context.Background(), d, ModeAIFirst, 2, "At a coffee shop", "Order a drink")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 4, Validate(out.RawText, ModeAIFirst, 4).ActualTurns)
	assert.Equal(t, before, d.RawText, "input must not be modified")

	require.Equal(t, 1, inv.calls())
	prompt := inv.prompts[0]
	assert.Contains(t, prompt, "exactly 2 additional turns")
	assert.Contains(t, prompt, "greeting, ordering")
	assert.Contains(t, prompt, "practice ordering food")
	assert.Contains(t, prompt, before)
}

func TestExtend_IsMonotonic(t *testing.T) {
	for produced := 0; produced <= 3; produced++ {
		inv := script(text(turnLines(ModeUserFirst, 3, produced)))
		r := NewRepairer(inv, nil)
		out, _, err := r.Extend(context.Background(), dialogueWith(ModeUserFirst, 2), ModeUserFirst, 3, "", "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, Validate(out.RawText, ModeUserFirst, 5).ActualTurns, 2)
	}
}

func TestExtend_InsertsMissingNewline(t *testing.T) {
	inv := script(text("A: second\nB: answer"))
	r := NewRepairer(inv, nil)
	d := &StructuredDialogue{RawText: "A: first\nB: reply"}

	out, changed, err := r.Extend(context.Background(), d, ModeUserFirst, 1, "", "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "A: first\nB: reply\nA: second\nB: answer", out.RawText)
}

func TestExtend_EmptyReplyIsNoOp(t *testing.T) {
	for _, reply := range []string{"", "  \n "} {
		inv := script(text(reply))
		r := NewRepairer(inv, nil)
		d := dialogueWith(ModeAIFirst, 2)

		out, changed, err := r.Extend(context.Background(), d, ModeAIFirst, 2, "", "")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, d.RawText, out.RawText)
	}
}

func TestRepair_EmptyExtensionIsUnrepairable(t *testing.T) {
	r := NewRepairer(script(text("")), nil)
	d := dialogueWith(ModeAIFirst, 2)
	v := Validate(d.RawText, ModeAIFirst, 4)

	out, err := r.Repair(context.Background(), d, v, ModeAIFirst, 4, "", "")
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrUnrepairable)
}

func TestRepair_Trims(t *testing.T) {
	inv := script()
	r := NewRepairer(inv, nil)
	d := dialogueWith(ModeUserFirst, 6)
	v := Validate(d.RawText, ModeUserFirst, 4)

	out, err := r.Repair(context.Background(), d, v, ModeUserFirst, 4, "", "")
	require.NoError(t, err)
	assert.True(t, Validate(out.RawText, ModeUserFirst, 4).IsValid)
	assert.Zero(t, inv.calls())
}

func TestRepair_WrongFirstSpeakerIsNotFixed(t *testing.T) {
	inv := script(text(turnLines(ModeUserFirst, 1, 2)))
	r := NewRepairer(inv, nil)
	d := dialogueWith(ModeUserFirst, 2)
	v := Validate(d.RawText, ModeAIFirst, 4)
	require.False(t, v.FirstSpeakerCorrect)

	out, err := r.Repair(context.Background(), d, v, ModeAIFirst, 4, "", "")
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrUnrepairable)
	assert.Zero(t, inv.calls(), "no model call for an unfixable dialogue")
}

func TestRepair_PropagatesInvokerFailure(t *testing.T) {
	r := NewRepairer(script(failure(llm.KindTimeout)), nil)
	d := dialogueWith(ModeAIFirst, 2)
	v := Validate(d.RawText, ModeAIFirst, 3)

	_, err := r.Repair(context.Background(), d, v, ModeAIFirst, 3, "", "")
	require.Error(t, err)
	assert.Equal(t, llm.KindTimeout, llm.KindOf(err))
	assert.NotErrorIs(t, err, ErrUnrepairable)
}

func TestRepair_NothingToDo(t *testing.T) {
	r := NewRepairer(script(), nil)
	d := dialogueWith(ModeAIFirst, 3)
	_, err := r.Repair(context.Background(), d, Validate(d.RawText, ModeAIFirst, 3), ModeAIFirst, 3, "", "")
	assert.ErrorIs(t, err, ErrUnrepairable)

	_, err = r.Repair(context.Background(), nil, ValidationResult{}, ModeAIFirst, 3, "", "")
	assert.ErrorIs(t, err, ErrUnrepairable)
}
