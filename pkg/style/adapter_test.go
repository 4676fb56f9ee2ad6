package style

import (
	"bytes"
	"context"
	"testing"

	"github.com/alantheprice/dialoguegen/pkg/dialogue"
	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/alantheprice/dialoguegen/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeInvoker) Invoke(ctx context.Context, prompt string, tools ...llm.Tool) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeInvoker) Provider() string { return "fake" }

func (f *fakeInvoker) Model() string { return "fake-model" }

func sampleDialogue() *dialogue.StructuredDialogue {
	return &dialogue.StructuredDialogue{
		RawText:       "B: Welcome! What can I get you?\nA: A latte, please.",
		KeyPoints:     []string{"greeting", "order"},
		Intentions:    []string{"order a drink"},
		KeyVocabulary: []string{"latte"},
		KeySentences:  []string{"What can I get you?"},
	}
}

func cheerfulBarista() TraitSpec {
	return TraitSpec{
		User: UserTraits{Character: "shy", Address: "Sam"},
		AI:   AITraits{Character: "cheerful barista", Catchphrase: "Bean there!", Tone: "warm"},
	}
}

func TestAdapt_InputErrorsBeforeAnyCall(t *testing.T) {
	tests := map[string]struct {
		d      *dialogue.StructuredDialogue
		traits TraitSpec
		field  string
	}{
		"nil dialogue":       {nil, cheerfulBarista(), "dialogue"},
		"empty dialogue":     {&dialogue.StructuredDialogue{}, TraitSpec{}, "original_text"},
		"missing key points": {&dialogue.StructuredDialogue{RawText: "A: hi", Intentions: []string{}}, cheerfulBarista(), "key_points"},
		"missing intentions": {&dialogue.StructuredDialogue{RawText: "A: hi", KeyPoints: []string{}}, cheerfulBarista(), "intentions"},
		"no traits":          {sampleDialogue(), TraitSpec{}, "traits"},
		"auto mode only":     {sampleDialogue(), TraitSpec{AI: AITraits{EmotionMode: EmotionAuto}}, "traits"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			inv := &fakeInvoker{reply: "should not be used"}
			a := NewAdapter(inv, Options{})

			out, err := a.Adapt(context.Background(), tt.d, tt.traits, "")
			assert.Empty(t, out)
			var inputErr *dialogue.InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
			assert.Empty(t, inv.prompts)
		})
	}
}

func TestAdapt_UnsupportedLanguageIsInputError(t *testing.T) {
	inv := &fakeInvoker{reply: "styled"}
	_, err := NewAdapter(inv, Options{}).Adapt(context.Background(), sampleDialogue(), cheerfulBarista(), "Klingon")
	var inputErr *dialogue.InputError
	assert.ErrorAs(t, err, &inputErr)
	assert.Empty(t, inv.prompts)
}

func TestAdapt_ReturnsStyledText(t *testing.T) {
	styled := "B: (beaming) Bean there! What can I get you, Sam?\nA: A latte, please."
	inv := &fakeInvoker{reply: "\n" + styled + "\n"}
	bus := events.NewEventBus()
	ch := bus.Subscribe("test")

	res, err := NewAdapter(inv, Options{Events: bus}).Run(context.Background(), sampleDialogue(), cheerfulBarista(), "")
	require.NoError(t, err)
	assert.Equal(t, styled, res.Text)
	assert.Equal(t, English, res.Language)
	assert.False(t, res.FellBack)

	require.Len(t, inv.prompts, 1)
	prompt := inv.prompts[0]
	assert.Contains(t, prompt, "Keep the output in English")
	assert.Contains(t, prompt, "Key vocabulary (must be preserved):\n- latte")
	assert.Contains(t, prompt, "- What can I get you?")
	assert.Contains(t, prompt, "How others address the user: Sam")
	assert.Contains(t, prompt, "Catchphrase: Bean there!")
	assert.Contains(t, prompt, "automatically generate and include appropriate emotional expressions")

	e := <-ch
	assert.Equal(t, events.EventTypeStyleCompleted, e.Type)
}

func TestAdapt_ChineseDetection(t *testing.T) {
	d := sampleDialogue()
	d.RawText = "B: 欢迎光临！\nA: 我要一杯拿铁。"
	inv := &fakeInvoker{reply: "B: （微笑）欢迎光临！\nA: 我要一杯拿铁。"}

	res, err := NewAdapter(inv, Options{}).Run(context.Background(), d, cheerfulBarista(), "")
	require.NoError(t, err)
	assert.Equal(t, Chinese, res.Language)
	assert.Contains(t, inv.prompts[0], "请保持输出语言与原始对话相同（中文）")
	assert.Contains(t, inv.prompts[0], "口头禅: Bean there!")
}

func TestAdapt_ExplicitLanguageOverridesDetection(t *testing.T) {
	d := sampleDialogue()
	d.RawText = "B: 欢迎光临！\nA: 我要一杯拿铁。"
	inv := &fakeInvoker{reply: "B: Welcome, welcome!\nA: One latte."}

	res, err := NewAdapter(inv, Options{}).Run(context.Background(), d, cheerfulBarista(), "en-US")
	require.NoError(t, err)
	assert.Equal(t, English, res.Language)
}

func TestAdapt_CustomEmotions(t *testing.T) {
	traits := TraitSpec{AI: AITraits{EmotionMode: EmotionCustom, Emotions: "winks, laughs"}}
	inv := &fakeInvoker{reply: "B: (winks) Welcome!\nA: Hi."}

	_, err := NewAdapter(inv, Options{}).Adapt(context.Background(), sampleDialogue(), traits, "English")
	require.NoError(t, err)
	assert.Contains(t, inv.prompts[0], "from this list: winks, laughs")
	assert.Contains(t, inv.prompts[0], "Actions/expressions: winks, laughs")
}

func TestAdapt_LegacySummaryTraits(t *testing.T) {
	traits := TraitSpec{User: UserTraits{Summary: "a nervous tourist"}, AI: AITraits{EmotionMode: EmotionCustom}}
	inv := &fakeInvoker{reply: "B: Relax, you're doing great!\nA: Thanks."}

	_, err := NewAdapter(inv, Options{}).Adapt(context.Background(), sampleDialogue(), traits, "")
	require.NoError(t, err)
	assert.Contains(t, inv.prompts[0], "User character traits: a nervous tourist")
	assert.Contains(t, inv.prompts[0], "when needed")
}

func TestAdapt_FallsBackToOriginal(t *testing.T) {
	tests := map[string]*fakeInvoker{
		"invoker failure": {err: &llm.CallError{Kind: llm.KindRateLimit, Err: llm.ErrExhaustedRetries}},
		"empty reply":     {reply: "   "},
	}
	for name, inv := range tests {
		t.Run(name, func(t *testing.T) {
			var logBuf bytes.Buffer
			res, err := NewAdapter(inv, Options{Logger: utils.NewLogger(&logBuf)}).Run(context.Background(), sampleDialogue(), cheerfulBarista(), "")
			require.NoError(t, err)
			assert.True(t, res.FellBack)
			assert.Equal(t, sampleDialogue().RawText, res.Text)
			assert.NotEmpty(t, logBuf.String())
		})
	}
}

func TestAdapt_ShortReplyIsKeptButLogged(t *testing.T) {
	var logBuf bytes.Buffer
	inv := &fakeInvoker{reply: "B: Hi!"}

	out, err := NewAdapter(inv, Options{Logger: utils.NewLogger(&logBuf)}).Adapt(context.Background(), sampleDialogue(), cheerfulBarista(), "")
	require.NoError(t, err)
	assert.Equal(t, "B: Hi!", out)
	assert.Contains(t, logBuf.String(), "Suspiciously short")
}
