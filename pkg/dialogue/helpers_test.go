package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alantheprice/dialoguegen/pkg/llm"
)

type scriptedReply struct {
	text string
	err  error
}

// scriptedInvoker answers calls from a fixed script and records prompts
type scriptedInvoker struct {
	replies []scriptedReply
	prompts []string
}

func script(replies ...scriptedReply) *scriptedInvoker {
	return &scriptedInvoker{replies: replies}
}

func text(s string) scriptedReply { return scriptedReply{text: s} }

func failure(kind llm.ErrorKind) scriptedReply {
	return scriptedReply{err: &llm.CallError{Kind: kind, Provider: "fake", Message: "scripted failure"}}
}

func (s *scriptedInvoker) Invoke(ctx context.Context, prompt string, tools ...llm.Tool) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.prompts) > len(s.replies) {
		return "", &llm.CallError{Kind: llm.KindUnknown, Provider: "fake", Message: "script exhausted"}
	}
	r := s.replies[len(s.prompts)-1]
	return r.text, r.err
}

func (s *scriptedInvoker) Provider() string { return "fake" }

func (s *scriptedInvoker) Model() string { return "fake-model" }

func (s *scriptedInvoker) calls() int { return len(s.prompts) }

// turnLines writes n well-formed turns numbered from `from`
func turnLines(mode Mode, from, n int) string {
	var sb strings.Builder
	first, second := mode.FirstSpeaker(), mode.SecondSpeaker()
	for i := from; i < from+n; i++ {
		fmt.Fprintf(&sb, "%s: %s line %d.\n", first, roleName(first), i)
		fmt.Fprintf(&sb, "%s: %s line %d.\n", second, roleName(second), i)
	}
	return sb.String()
}

// jsonReply wraps raw in a model-style structured answer
func jsonReply(raw string) string {
	body, _ := json.MarshalIndent(map[string]interface{}{
		"original_text": raw,
		"key_points":    []string{"greeting", "ordering"},
		"intentions":    []string{"practice ordering food"},
	}, "", "  ")
	return "Here is the dialogue:\n```json\n" + string(body) + "\n```"
}

func baseRequest(mode Mode, turns int) GenerationRequest {
	return GenerationRequest{
		Context:    "At a coffee shop",
		Mode:       mode,
		Goal:       "Order a drink",
		Language:   "English",
		Difficulty: "B1",
		NumTurns:   turns,
	}
}
