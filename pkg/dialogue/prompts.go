package dialogue

import (
	"fmt"
	"strings"
	"text/template"
)

var promptFuncs = template.FuncMap{"join": strings.Join}

var generationTemplate = template.Must(template.New("generation").Funcs(promptFuncs).Parse(`As a professional dialogue generation AI, create a dialogue that meets the following requirements.

Dialogue context: {{.Context}}
Dialogue mode: {{.Mode}}
Dialogue goal: {{.Goal}}
Language: {{.Language}}
Difficulty: {{.Difficulty}}
Number of turns: {{.NumTurns}}
{{- if .CustomVocabulary}}
Naturally include these words in the dialogue: {{.CustomVocabulary}}
{{- end}}
{{- if .CustomSentence}}
Naturally use these sentence patterns in the dialogue: {{.CustomSentence}}
{{- end}}

{{.FirstSpeakerInstruction}}

Use A for the user and B for the AI assistant.
If the mode is AI_FIRST, B (the AI assistant) must speak first.
If the mode is USER_FIRST, A (the user) must speak first.

Generate exactly {{.NumTurns}} turns. One turn is one line from the user and one line from the AI.
The dialogue must follow this structure:

{{range .Turns}}Turn {{.}}:
{{$.First}}: [{{$.FirstRole}} line]
{{$.Second}}: [{{$.SecondRole}} line]

{{end}}Notes:
1. The dialogue must contain exactly {{.NumTurns}} turns
2. Every turn contains one line from the user (A) and one line from the AI (B)
3. The first speaker follows the {{.Mode}} setting

Write a natural, fluent dialogue and return it as JSON with:
1. the original dialogue text
2. the key plot points
3. key vocabulary (important words such as terms or specific expressions)
4. key sentence patterns (important grammatical structures or phrasings)
5. the intentions and goals implied in the dialogue

Example format:
{
    "original_text": "dialogue text",
    "key_points": ["point 1", "point 2"],
    "key_vocabulary": ["word 1", "word 2"],
    "key_sentences": ["pattern 1", "pattern 2"],
    "intentions": ["intention 1", "intention 2"]
}
`))

var extendTemplate = template.Must(template.New("extend").Funcs(promptFuncs).Parse(`Continue the existing dialogue with exactly {{.Turns}} additional turns.

Dialogue context: {{.Context}}
Dialogue goal: {{.Goal}}

Existing dialogue:
{{.Text}}

Key points:
{{join .KeyPoints ", "}}

Intentions:
{{join .Intentions ", "}}

Generate {{.Turns}} more turns that keep the style and goal of the existing dialogue.
Use A for the user and B for the AI assistant. One turn is one line from each of them, starting with {{.First}}.

Return only the new lines. Do not repeat the existing dialogue.
`))

var continuationTemplate = template.Must(template.New("continuation").Parse(`Continue the following dialogue with {{.Turns}} additional turns.

Dialogue context: {{.Context}}
Dialogue goal: {{.Goal}}

The earlier part of the dialogue has been written. These are the most recent lines:
{{.Text}}

Generate {{.Turns}} more turns that stay consistent and coherent with the earlier dialogue.
Use A for the user and B for the AI assistant. One turn is one line from each of them, starting with {{.First}}.
{{- if .Dangling}}
The last line above is from {{.First}} and has no reply yet. Begin with {{.Second}}'s reply to it, then continue with full turns.
{{- end}}

Return only the newly generated lines. Do not repeat the earlier dialogue.
`))

type generationData struct {
	GenerationRequest
	FirstSpeakerInstruction string
	Turns                   []int
	First, Second           Speaker
	FirstRole, SecondRole   string
}

func roleName(s Speaker) string {
	if s == SpeakerAssistant {
		return "AI"
	}
	return "user"
}

// BuildGenerationPrompt renders the prompt asking for a complete dialogue of
// req.NumTurns turns, with a per-turn template in the order req.Mode fixes
func BuildGenerationPrompt(req GenerationRequest) (string, error) {
	data := generationData{
		GenerationRequest: req,
		First:             req.Mode.FirstSpeaker(),
		Second:            req.Mode.SecondSpeaker(),
	}
	data.FirstRole, data.SecondRole = roleName(data.First), roleName(data.Second)
	if req.Mode == ModeAIFirst {
		data.FirstSpeakerInstruction = "Make sure the AI assistant starts the dialogue, not the user."
	} else {
		data.FirstSpeakerInstruction = "Make sure the user starts the dialogue, not the AI assistant."
	}
	for i := 1; i <= req.NumTurns; i++ {
		data.Turns = append(data.Turns, i)
	}
	return render(generationTemplate, data)
}

type continuationData struct {
	Turns      int
	Context    string
	Goal       string
	Text       string
	KeyPoints  []string
	Intentions []string
	First      Speaker
	Second     Speaker
	// Dangling is set when the text ends on an unanswered opener line
	Dangling bool
}

// BuildExtendPrompt asks for turns more turns after the whole of d
func BuildExtendPrompt(d *StructuredDialogue, mode Mode, turns int, context, goal string) (string, error) {
	return render(extendTemplate, continuationData{
		Turns:      turns,
		Context:    context,
		Goal:       goal,
		Text:       d.RawText,
		KeyPoints:  d.KeyPoints,
		Intentions: d.Intentions,
		First:      mode.FirstSpeaker(),
	})
}

// BuildContinuationPrompt asks for turns more turns given only the tail of
// the dialogue. When the tail ends on the first speaker, the model is told
// to answer that line before starting new turns.
func BuildContinuationPrompt(tail string, mode Mode, turns int, context, goal string) (string, error) {
	return render(continuationTemplate, continuationData{
		Turns:    turns,
		Context:  context,
		Goal:     goal,
		Text:     tail,
		First:    mode.FirstSpeaker(),
		Second:   mode.SecondSpeaker(),
		Dangling: lastSpeaker(tail) == mode.FirstSpeaker(),
	})
}

// lastSpeaker returns the speaker of the final tagged line, or "" when none
func lastSpeaker(text string) Speaker {
	lines := SpeakerLines(text)
	if len(lines) == 0 {
		return ""
	}
	s, _ := speakerOf(lines[len(lines)-1])
	return s
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
