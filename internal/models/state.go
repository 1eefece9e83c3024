// Package models defines state structures for TourFlow guided tours.
package models

import (
	"encoding/json"
	"time"
)

// TourState represents the persisted guided-tour state for one learner.
// It is the only mutable entity owned by the engine; every field other than
// Enabled starts empty.
type TourState struct {
	Enabled             bool                       `json:"enabled"`
	CompletedFlows      StringSet                  `json:"completed_flows,omitempty"`
	DismissedFlows      StringSet                  `json:"dismissed_flows,omitempty"`
	ActiveFlowID        string                     `json:"active_flow_id,omitempty"`
	ActiveStepIndex     int                        `json:"active_step_index,omitempty"`
	ScenarioPreferences map[string]json.RawMessage `json:"scenario_preferences,omitempty"` // reserved, opaque to the engine
	CompletedActions    StringSet                  `json:"completed_actions,omitempty"`    // reserved, opaque to the engine
	UpdatedAt           time.Time                  `json:"updated_at,omitzero"`
}

// DefaultTourState returns the documented default state: tours enabled, all
// collections empty, no active flow.
func DefaultTourState() TourState {
	return TourState{
		Enabled:             true,
		CompletedFlows:      NewStringSet(),
		DismissedFlows:      NewStringSet(),
		ScenarioPreferences: make(map[string]json.RawMessage),
		CompletedActions:    NewStringSet(),
	}
}

// Clone returns a deep copy of the state.
func (s TourState) Clone() TourState {
	out := s
	out.CompletedFlows = s.CompletedFlows.Clone()
	out.DismissedFlows = s.DismissedFlows.Clone()
	out.CompletedActions = s.CompletedActions.Clone()
	out.ScenarioPreferences = make(map[string]json.RawMessage, len(s.ScenarioPreferences))
	for k, v := range s.ScenarioPreferences {
		out.ScenarioPreferences[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Equivalent reports whether two states are equal ignoring set ordering and
// the UpdatedAt timestamp. Used by tests and persistence round-trip checks.
func (s TourState) Equivalent(other TourState) bool {
	if s.Enabled != other.Enabled ||
		s.ActiveFlowID != other.ActiveFlowID ||
		s.ActiveStepIndex != other.ActiveStepIndex {
		return false
	}
	if !s.CompletedFlows.Equal(other.CompletedFlows) ||
		!s.DismissedFlows.Equal(other.DismissedFlows) ||
		!s.CompletedActions.Equal(other.CompletedActions) {
		return false
	}
	if len(s.ScenarioPreferences) != len(other.ScenarioPreferences) {
		return false
	}
	for k, v := range s.ScenarioPreferences {
		ov, ok := other.ScenarioPreferences[k]
		if !ok || string(v) != string(ov) {
			return false
		}
	}
	return true
}
