// Package engine implements the guided-tour flow engine.
//
// An Engine owns the tour state for a single learner: which flow is active,
// which step within it, and the history of completed and dismissed flows. All
// mutations are user-initiated, apply to the in-memory state synchronously,
// and are followed by a best-effort write of the full serialized state to the
// backing key-value store. Persistence failures are logged and swallowed; the
// in-memory state stays authoritative for the session.
package engine

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/satground/tourflow/internal/models"
	"github.com/satground/tourflow/internal/store"
)

// Engine drives guided-tour state transitions for one learner. It is not
// safe for concurrent use; Manager serializes access in the HTTP layer.
type Engine struct {
	catalog   models.Catalog
	kv        store.KVStore
	key       string
	autoStart bool
	state     models.TourState
}

// New creates an engine over the given catalog and store, hydrating state
// from the blob stored under key. An absent key or a blob that fails to parse
// yields the default state. When autoStartGlobalIntro is true, the global
// intro auto-start gate is evaluated at construction and again after every
// mutation.
func New(catalog models.Catalog, kv store.KVStore, key string, autoStartGlobalIntro bool) *Engine {
	e := &Engine{
		catalog:   catalog,
		kv:        kv,
		key:       key,
		autoStart: autoStartGlobalIntro,
		state:     loadState(kv, key),
	}
	if e.autoStart {
		e.evaluateAutoStart()
	}
	return e
}

// loadState hydrates tour state from the store, falling back to the default
// state when the key is absent, the read fails, or the blob doesn't parse.
func loadState(kv store.KVStore, key string) models.TourState {
	blob, err := kv.Get(key)
	if err != nil {
		slog.Warn("Engine load failed, using default state", "error", err, "key", key)
		return models.DefaultTourState()
	}
	if blob == nil {
		slog.Debug("Engine no persisted state, using default", "key", key)
		return models.DefaultTourState()
	}
	var state models.TourState
	if err := json.Unmarshal(blob, &state); err != nil {
		slog.Warn("Engine persisted state malformed, using default", "error", err, "key", key)
		return models.DefaultTourState()
	}
	// Persisted blobs may omit empty collections; normalize so mutations can
	// assume non-nil sets.
	if state.CompletedFlows == nil {
		state.CompletedFlows = models.NewStringSet()
	}
	if state.DismissedFlows == nil {
		state.DismissedFlows = models.NewStringSet()
	}
	if state.CompletedActions == nil {
		state.CompletedActions = models.NewStringSet()
	}
	if state.ScenarioPreferences == nil {
		state.ScenarioPreferences = make(map[string]json.RawMessage)
	}
	slog.Debug("Engine hydrated persisted state", "key", key, "active_flow", state.ActiveFlowID, "enabled", state.Enabled)
	return state
}

// State returns a copy of the current tour state.
func (e *Engine) State() models.TourState {
	return e.state.Clone()
}

// Catalog returns the flow catalog the engine was constructed with.
func (e *Engine) Catalog() models.Catalog {
	return e.catalog
}

// ActiveFlow returns the currently running flow, if any. A flow id that is
// set but absent from the catalog is reported as no active flow.
func (e *Engine) ActiveFlow() (models.Flow, bool) {
	if e.state.ActiveFlowID == "" {
		return models.Flow{}, false
	}
	return e.catalog.FindFlow(e.state.ActiveFlowID)
}

// ActiveStep returns the current step of the active flow, if any.
func (e *Engine) ActiveStep() (models.FlowStep, bool) {
	flow, ok := e.ActiveFlow()
	if !ok {
		return models.FlowStep{}, false
	}
	if e.state.ActiveStepIndex < 0 || e.state.ActiveStepIndex >= len(flow.Steps) {
		return models.FlowStep{}, false
	}
	return flow.Steps[e.state.ActiveStepIndex], true
}

// IsActive reports whether a guided tour should currently be visible.
func (e *Engine) IsActive() bool {
	if !e.state.Enabled {
		return false
	}
	_, ok := e.ActiveStep()
	return ok
}

// AutoStartEligible reports whether the global intro auto-start gate passes:
// a global intro exists, tours are enabled, no flow is active, and the intro
// has been neither completed nor dismissed.
func (e *Engine) AutoStartEligible() bool {
	introID := e.catalog.GlobalIntroID()
	if introID == "" {
		return false
	}
	if !e.state.Enabled {
		return false
	}
	if e.state.ActiveFlowID != "" {
		return false
	}
	if e.state.CompletedFlows.Has(introID) {
		return false
	}
	if e.state.DismissedFlows.Has(introID) {
		return false
	}
	return true
}

// SetEnabled sets the global tour kill switch. Disabling clears any active
// flow; enabling leaves a previously persisted active flow untouched so it
// resumes where it left off.
func (e *Engine) SetEnabled(enabled bool) {
	next := e.state.Clone()
	next.Enabled = enabled
	if !enabled {
		next.ActiveFlowID = ""
		next.ActiveStepIndex = 0
	}
	e.commit(next)
	slog.Debug("Engine SetEnabled", "key", e.key, "enabled", enabled)
}

// StartFlow activates the flow with the given id at step 0, pre-empting any
// flow already active. Starting a dismissed flow is a no-op; completion
// history does not block a restart.
func (e *Engine) StartFlow(flowID string) {
	if e.state.DismissedFlows.Has(flowID) {
		slog.Debug("Engine StartFlow blocked by dismissal", "key", e.key, "flow_id", flowID)
		return
	}
	next := e.state.Clone()
	next.ActiveFlowID = flowID
	next.ActiveStepIndex = 0
	e.commit(next)
	slog.Debug("Engine StartFlow", "key", e.key, "flow_id", flowID)
}

// NextStep advances the active flow by one step. Advancing past the last step
// completes the flow: the active flow is cleared and its id is recorded in
// the completed set. No-op when no flow is active or the active flow id is
// not in the catalog.
func (e *Engine) NextStep() {
	flow, ok := e.ActiveFlow()
	if !ok {
		slog.Debug("Engine NextStep with no active flow", "key", e.key)
		return
	}
	next := e.state.Clone()
	if next.ActiveStepIndex+1 < len(flow.Steps) {
		next.ActiveStepIndex++
		e.commit(next)
		slog.Debug("Engine NextStep advanced", "key", e.key, "flow_id", flow.ID, "step_index", next.ActiveStepIndex)
		return
	}
	next.ActiveFlowID = ""
	next.ActiveStepIndex = 0
	next.CompletedFlows.Add(flow.ID)
	e.commit(next)
	slog.Info("Engine flow completed", "key", e.key, "flow_id", flow.ID)
}

// PrevStep moves the active flow back one step. No-op when no flow is active
// or the flow is already at its first step.
func (e *Engine) PrevStep() {
	flow, ok := e.ActiveFlow()
	if !ok || e.state.ActiveStepIndex == 0 {
		return
	}
	next := e.state.Clone()
	next.ActiveStepIndex--
	e.commit(next)
	slog.Debug("Engine PrevStep", "key", e.key, "flow_id", flow.ID, "step_index", next.ActiveStepIndex)
}

// DismissFlow closes the active flow without completing it. With
// dontShowAgain the flow id is recorded in the dismissed set, which
// permanently blocks StartFlow and the auto-start gate for that flow. No-op
// when no flow is active.
func (e *Engine) DismissFlow(dontShowAgain bool) {
	if e.state.ActiveFlowID == "" {
		return
	}
	flowID := e.state.ActiveFlowID
	next := e.state.Clone()
	next.ActiveFlowID = ""
	next.ActiveStepIndex = 0
	if dontShowAgain {
		next.DismissedFlows.Add(flowID)
	}
	e.commit(next)
	slog.Info("Engine flow dismissed", "key", e.key, "flow_id", flowID, "dont_show_again", dontShowAgain)
}

// ResetProgress replaces the entire state with the documented default.
func (e *Engine) ResetProgress() {
	e.commit(models.DefaultTourState())
	slog.Info("Engine progress reset", "key", e.key)
}

// commit replaces the in-memory state, persists it, and re-evaluates the
// auto-start gate when the engine was created with auto-start on. The
// in-memory replacement happens before the store write, so callers observe
// the new state regardless of persistence outcome.
func (e *Engine) commit(next models.TourState) {
	next.UpdatedAt = time.Now()
	e.state = next
	e.save()
	if e.autoStart {
		e.evaluateAutoStart()
	}
}

// save writes the full serialized state to the store, best-effort.
func (e *Engine) save() {
	blob, err := json.Marshal(e.state)
	if err != nil {
		slog.Error("Engine failed to serialize state", "error", err, "key", e.key)
		return
	}
	if err := e.kv.Set(e.key, blob); err != nil {
		slog.Warn("Engine failed to persist state", "error", err, "key", e.key)
	}
}

// evaluateAutoStart starts the global intro when the gate passes. The gate's
// inputs make repeated evaluation idempotent: while the intro is active,
// completed, or dismissed the gate fails and nothing restarts.
func (e *Engine) evaluateAutoStart() {
	if !e.AutoStartEligible() {
		return
	}
	introID := e.catalog.GlobalIntroID()
	next := e.state.Clone()
	next.ActiveFlowID = introID
	next.ActiveStepIndex = 0
	next.UpdatedAt = time.Now()
	e.state = next
	e.save()
	slog.Info("Engine auto-started global intro", "key", e.key, "flow_id", introID)
}
