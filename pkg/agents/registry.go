// Package agents names the pipeline stages so callers can pick one by type
// and report which model serves it.
package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alantheprice/dialoguegen/pkg/dialogue"
	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/alantheprice/dialoguegen/pkg/style"
	"github.com/alantheprice/dialoguegen/pkg/utils"
)

const (
	InitialDialogueType = "initial_dialogue"
	StyleAdaptationType = "style_adaptation"

	initialDialogueDescription = "Generates a structured dialogue with the requested turns and first speaker"
	styleAdaptationDescription = "Rewrites a dialogue to match user and AI character traits"
)

// Info describes a created agent
type Info struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Model       string `json:"model"`
	Provider    string `json:"provider"`
}

// Agent is a pipeline stage bound to one invoker
type Agent interface {
	Info() Info
}

// Deps are shared by every agent the registry creates
type Deps struct {
	Logger     *utils.Logger
	Events     events.Publisher
	Generation dialogue.Options
}

// Factory builds an agent around invoker
type Factory func(invoker llm.Invoker, deps Deps) Agent

type entry struct {
	description string
	factory     Factory
}

// Registry manages agent registration and creation
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// DefaultRegistry returns a registry holding the dialogue and style agents
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(InitialDialogueType, initialDialogueDescription,
		func(invoker llm.Invoker, deps Deps) Agent { return NewInitialDialogueAgent(invoker, deps) })
	_ = r.Register(StyleAdaptationType, styleAdaptationDescription,
		func(invoker llm.Invoker, deps Deps) Agent { return NewStyleAdaptationAgent(invoker, deps) })
	return r
}

// Register adds a factory under agentType
func (r *Registry) Register(agentType, description string, factory Factory) error {
	if agentType == "" {
		return fmt.Errorf("agent type must be non-empty")
	}
	if factory == nil {
		return fmt.Errorf("agent '%s' needs a factory", agentType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[agentType]; exists {
		return fmt.Errorf("agent '%s' is already registered", agentType)
	}
	r.entries[agentType] = entry{description: description, factory: factory}
	return nil
}

// Create builds the agent registered under agentType
func (r *Registry) Create(agentType string, invoker llm.Invoker, deps Deps) (Agent, error) {
	r.mu.RLock()
	e, exists := r.entries[agentType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("agent '%s' is not registered", agentType)
	}
	if invoker == nil {
		return nil, fmt.Errorf("agent '%s' needs an invoker", agentType)
	}
	return e.factory(invoker, deps), nil
}

// List returns the registered agent types in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Description returns the registered description for agentType
func (r *Registry) Description(agentType string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[agentType].description
}

func infoFor(agentType, description string, invoker llm.Invoker) Info {
	return Info{
		Type:        agentType,
		Description: description,
		Model:       invoker.Model(),
		Provider:    invoker.Provider(),
	}
}

// InitialDialogueAgent wraps the dialogue generator
type InitialDialogueAgent struct {
	generator *dialogue.Generator
	info      Info
}

// NewInitialDialogueAgent creates the generation agent
func NewInitialDialogueAgent(invoker llm.Invoker, deps Deps) *InitialDialogueAgent {
	opts := deps.Generation
	if opts.Logger == nil {
		opts.Logger = deps.Logger
	}
	if opts.Events == nil {
		opts.Events = deps.Events
	}
	return &InitialDialogueAgent{
		generator: dialogue.NewGenerator(invoker, opts),
		info:      infoFor(InitialDialogueType, initialDialogueDescription, invoker),
	}
}

func (a *InitialDialogueAgent) Info() Info { return a.info }

// Generate runs the full generation pipeline
func (a *InitialDialogueAgent) Generate(ctx context.Context, req dialogue.GenerationRequest) (*dialogue.Result, error) {
	return a.generator.Run(ctx, req)
}

// StyleAdaptationAgent wraps the style adapter
type StyleAdaptationAgent struct {
	adapter *style.Adapter
	info    Info
}

// NewStyleAdaptationAgent creates the style agent
func NewStyleAdaptationAgent(invoker llm.Invoker, deps Deps) *StyleAdaptationAgent {
	return &StyleAdaptationAgent{
		adapter: style.NewAdapter(invoker, style.Options{Logger: deps.Logger, Events: deps.Events}),
		info:    infoFor(StyleAdaptationType, styleAdaptationDescription, invoker),
	}
}

func (a *StyleAdaptationAgent) Info() Info { return a.info }

// Adapt restyles d; lang may be empty to detect it from the dialogue
func (a *StyleAdaptationAgent) Adapt(ctx context.Context, d *dialogue.StructuredDialogue, traits style.TraitSpec, lang string) (*style.Result, error) {
	return a.adapter.Run(ctx, d, traits, lang)
}
