package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/alantheprice/dialoguegen/pkg/agents"
	"github.com/alantheprice/dialoguegen/pkg/configuration"
	"github.com/alantheprice/dialoguegen/pkg/dialogue"
	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/style"
)

const maxBodyBytes = 1 << 20

// handleIndex serves the single-page client
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(data)
}

type generateRequest struct {
	Context          string `json:"context"`
	Mode             string `json:"mode"`
	Goal             string `json:"goal"`
	Language         string `json:"language"`
	Difficulty       string `json:"difficulty"`
	NumTurns         int    `json:"num_turns"`
	CustomVocabulary string `json:"custom_vocabulary"`
	CustomSentence   string `json:"custom_sentence"`
}

type generateResponse struct {
	RequestID  string                       `json:"request_id"`
	Dialogue   *dialogue.StructuredDialogue `json:"dialogue"`
	Outcome    dialogue.Outcome             `json:"outcome"`
	Attempts   int                          `json:"attempts"`
	Validation dialogue.ValidationResult    `json:"validation"`
}

type styleRequest struct {
	Dialogue *dialogue.StructuredDialogue `json:"dialogue"`
	Traits   style.TraitSpec              `json:"traits"`
	Language string                       `json:"language"`
}

type styleResponse struct {
	RequestID string `json:"request_id"`
	*style.Result
}

type validateRequest struct {
	Text     string `json:"text"`
	Mode     string `json:"mode"`
	NumTurns int    `json:"num_turns"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// toGenerationRequest fills blanks from the configured generation defaults
func (s *Server) toGenerationRequest(in generateRequest) (dialogue.GenerationRequest, error) {
	defaults := s.config.Generation
	if defaults == nil {
		defaults = configuration.NewConfig().Generation
	}
	if in.Mode == "" {
		in.Mode = defaults.Mode
	}
	if in.NumTurns == 0 {
		in.NumTurns = defaults.NumTurns
	}
	if in.Language == "" {
		in.Language = defaults.Language
	}
	if in.Difficulty == "" {
		in.Difficulty = defaults.Difficulty
	}

	mode, err := dialogue.ParseMode(in.Mode)
	if err != nil {
		return dialogue.GenerationRequest{}, err
	}
	difficulty, err := configuration.NormalizeDifficulty(in.Difficulty)
	if err != nil {
		return dialogue.GenerationRequest{}, &dialogue.InputError{Field: "difficulty", Message: err.Error()}
	}
	return dialogue.GenerationRequest{
		Context:          strings.TrimSpace(in.Context),
		Mode:             mode,
		Goal:             strings.TrimSpace(in.Goal),
		Language:         configuration.NormalizeGenerationLanguage(in.Language),
		Difficulty:       difficulty,
		NumTurns:         in.NumTurns,
		CustomVocabulary: in.CustomVocabulary,
		CustomSentence:   in.CustomSentence,
	}, nil
}

func (s *Server) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	var in generateRequest
	if !s.decodePost(w, r, &in) {
		return
	}
	req, err := s.toGenerationRequest(in)
	if err != nil {
		s.writeError(w, err)
		return
	}

	requestID, publisher := s.beginRequest()
	agent, err := s.registry.Create(agents.InitialDialogueType, s.invoker, agents.Deps{
		Logger:     s.logger,
		Events:     publisher,
		Generation: s.config.GeneratorOptions(s.logger, publisher),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	generator, ok := agent.(*agents.InitialDialogueAgent)
	if !ok {
		s.writeError(w, fmt.Errorf("agent %s cannot generate dialogues", agents.InitialDialogueType))
		return
	}

	result, err := generator.Generate(r.Context(), req)
	if err != nil {
		publisher.Publish(events.EventTypeError, events.ErrorEvent("generation failed", err))
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		RequestID:  requestID,
		Dialogue:   result.Dialogue,
		Outcome:    result.Outcome,
		Attempts:   result.Attempts,
		Validation: result.Validation,
	})
}

func (s *Server) handleAPIStyle(w http.ResponseWriter, r *http.Request) {
	var in styleRequest
	if !s.decodePost(w, r, &in) {
		return
	}
	if in.Traits.AI.EmotionMode != "" {
		mode, err := style.ParseEmotionMode(string(in.Traits.AI.EmotionMode))
		if err != nil {
			s.writeError(w, err)
			return
		}
		in.Traits.AI.EmotionMode = mode
	} else if s.config.Style != nil {
		in.Traits.AI.EmotionMode = style.EmotionMode(s.config.Style.EmotionMode)
	}
	if in.Language == "" && s.config.Style != nil {
		in.Language = s.config.Style.Language
	}

	requestID, publisher := s.beginRequest()
	agent, err := s.registry.Create(agents.StyleAdaptationType, s.invoker, agents.Deps{Logger: s.logger, Events: publisher})
	if err != nil {
		s.writeError(w, err)
		return
	}
	styler, ok := agent.(*agents.StyleAdaptationAgent)
	if !ok {
		s.writeError(w, fmt.Errorf("agent %s cannot restyle dialogues", agents.StyleAdaptationType))
		return
	}

	result, err := styler.Adapt(r.Context(), in.Dialogue, in.Traits, in.Language)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, styleResponse{RequestID: requestID, Result: result})
}

func (s *Server) handleAPIValidate(w http.ResponseWriter, r *http.Request) {
	var in validateRequest
	if !s.decodePost(w, r, &in) {
		return
	}
	if in.Mode == "" && s.config.Generation != nil {
		in.Mode = s.config.Generation.Mode
	}
	mode, err := dialogue.ParseMode(in.Mode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if in.NumTurns < 1 {
		s.writeError(w, &dialogue.InputError{Field: "num_turns", Message: fmt.Sprintf("must be at least 1, got %d", in.NumTurns)})
		return
	}
	writeJSON(w, http.StatusOK, dialogue.Validate(in.Text, mode, in.NumTurns))
}

func (s *Server) handleAPIAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	infos := make([]agents.Info, 0)
	for _, agentType := range s.registry.List() {
		info := agents.Info{Type: agentType, Description: s.registry.Description(agentType)}
		if s.invoker != nil {
			info.Provider = s.invoker.Provider()
			info.Model = s.invoker.Model()
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, infos)
}

// decodePost enforces POST and decodes a JSON body, answering the request
// itself on failure
func (s *Server) decodePost(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if s.invoker == nil && r.URL.Path != "/api/validate" {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no model provider configured"})
		return false
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid JSON: %v", err)})
		return false
	}
	return true
}

// beginRequest counts the request and returns its ID and event publisher
func (s *Server) beginRequest() (string, events.Publisher) {
	s.mutex.Lock()
	s.requestCount++
	s.mutex.Unlock()

	requestID := uuid.NewString()
	return requestID, s.eventBus.WithRequest(requestID)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var inputErr *dialogue.InputError
	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: inputErr.Field})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusRequestTimeout, errorResponse{Error: err.Error()})
	default:
		s.logger.LogError(err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
