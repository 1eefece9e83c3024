// Package models defines the core data structures for TourFlow.
//
// It includes types for guided-tour flows, the flow catalog, and the API
// response envelope, which are shared across modules.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validation constants for catalog input validation
const (
	// MaxFlowIDLength defines the maximum allowed length for flow identifiers
	MaxFlowIDLength = 128
	// MaxStepsPerFlow defines the maximum number of steps allowed in one flow
	MaxStepsPerFlow = 100
)

// Error variables for better error handling and testability
var (
	ErrEmptyFlowID     = errors.New("flow id cannot be empty")
	ErrFlowIDTooLong   = errors.New("flow id exceeds maximum length")
	ErrNoSteps         = errors.New("flow must have at least one step")
	ErrTooManySteps    = errors.New("flow exceeds maximum step count")
	ErrEmptyStepID     = errors.New("step id cannot be empty")
	ErrDuplicateStepID = errors.New("duplicate step id within flow")
	ErrEmptyScenarioID = errors.New("scenario id cannot be empty")
)

// FlowStep represents one instructional step within a guided-tour flow.
// Content and Target are opaque to the engine; they are passed through to the
// UI layer that renders the tour overlay.
type FlowStep struct {
	ID      string          `json:"id" yaml:"id"`
	Content json.RawMessage `json:"content,omitempty" yaml:"-"`
	Target  string          `json:"target,omitempty" yaml:"target,omitempty"`

	// ContentText carries step content when the catalog is authored in YAML,
	// where embedding raw JSON is not a natural fit.
	ContentText string `json:"content_text,omitempty" yaml:"content,omitempty"`
}

// Flow is a named, ordered guided-tour definition.
type Flow struct {
	ID    string     `json:"id" yaml:"id"`
	Title string     `json:"title,omitempty" yaml:"title,omitempty"`
	Steps []FlowStep `json:"steps" yaml:"steps"`
}

// Validate performs validation on a Flow structure.
func (f *Flow) Validate() error {
	if f.ID == "" {
		return ErrEmptyFlowID
	}
	if len(f.ID) > MaxFlowIDLength {
		return fmt.Errorf("%w: %q", ErrFlowIDTooLong, f.ID)
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("%w: flow %q", ErrNoSteps, f.ID)
	}
	if len(f.Steps) > MaxStepsPerFlow {
		return fmt.Errorf("%w: flow %q has %d steps", ErrTooManySteps, f.ID, len(f.Steps))
	}
	seen := make(map[string]bool, len(f.Steps))
	for i, step := range f.Steps {
		if step.ID == "" {
			return fmt.Errorf("%w: flow %q step %d", ErrEmptyStepID, f.ID, i)
		}
		if seen[step.ID] {
			return fmt.Errorf("%w: flow %q step %q", ErrDuplicateStepID, f.ID, step.ID)
		}
		seen[step.ID] = true
	}
	return nil
}

// Catalog describes the guided-tour flows available to the engine: at most one
// global intro flow plus zero or more scenario flows keyed by scenario id.
// Catalogs are read-only for the lifetime of an engine instance.
//
// Flow identifiers across the catalog must be unique. This is a configuration
// contract, not a runtime-checked invariant: with duplicate ids it is
// undefined which flow FindFlow resolves to.
type Catalog struct {
	GlobalIntro *Flow           `json:"global_intro,omitempty" yaml:"global_intro,omitempty"`
	Scenarios   map[string]Flow `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
}

// FindFlow looks up a flow by its flow id. The global intro is checked before
// scenario flows.
func (c *Catalog) FindFlow(flowID string) (Flow, bool) {
	if flowID == "" {
		return Flow{}, false
	}
	if c.GlobalIntro != nil && c.GlobalIntro.ID == flowID {
		return *c.GlobalIntro, true
	}
	for _, f := range c.Scenarios {
		if f.ID == flowID {
			return f, true
		}
	}
	return Flow{}, false
}

// GlobalIntroID returns the id of the global intro flow, or "" if the catalog
// has none.
func (c *Catalog) GlobalIntroID() string {
	if c.GlobalIntro == nil {
		return ""
	}
	return c.GlobalIntro.ID
}

// Validate performs validation on every flow in the catalog.
func (c *Catalog) Validate() error {
	if c.GlobalIntro != nil {
		if err := c.GlobalIntro.Validate(); err != nil {
			return fmt.Errorf("global intro: %w", err)
		}
	}
	for scenarioID, f := range c.Scenarios {
		if scenarioID == "" {
			return ErrEmptyScenarioID
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("scenario %q: %w", scenarioID, err)
		}
	}
	return nil
}

// StringSet is a set of identifiers with order-independent JSON encoding.
type StringSet map[string]bool

// NewStringSet creates a StringSet from the given members.
func NewStringSet(members ...string) StringSet {
	s := make(StringSet, len(members))
	for _, m := range members {
		s[m] = true
	}
	return s
}

// Has reports whether id is a member of the set.
func (s StringSet) Has(id string) bool {
	return s[id]
}

// Add inserts id into the set.
func (s StringSet) Add(id string) {
	s[id] = true
}

// Clone returns a deep copy of the set. Cloning a nil set yields an empty set.
func (s StringSet) Clone() StringSet {
	out := make(StringSet, len(s))
	for k, v := range s {
		if v {
			out[k] = true
		}
	}
	return out
}

// Equal reports whether two sets have the same members.
func (s StringSet) Equal(other StringSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other[k] {
			return false
		}
	}
	return true
}

// API Response types for consistent JSON responses

// APIStatus represents the status field of an API response.
type APIStatus string

const (
	// APIStatusOK indicates a successful API call.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates a failed API call.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
