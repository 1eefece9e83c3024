// Package api provides HTTP handlers for TourFlow endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/satground/tourflow/internal/engine"
	"github.com/satground/tourflow/internal/models"
	"github.com/satground/tourflow/internal/util"
)

// TourStateView is the state snapshot returned by the tutorial endpoints: the
// raw persisted state plus the derived queries a UI overlay needs.
type TourStateView struct {
	LearnerID  string           `json:"learner_id"`
	State      models.TourState `json:"state"`
	IsActive   bool             `json:"is_active"`
	ActiveFlow *models.Flow     `json:"active_flow,omitempty"`
	ActiveStep *models.FlowStep `json:"active_step,omitempty"`
}

// tutorialRequest is the request body shared by the tutorial mutation endpoints.
type tutorialRequest struct {
	LearnerID     string `json:"learner_id"`
	FlowID        string `json:"flow_id,omitempty"`
	Enabled       *bool  `json:"enabled,omitempty"`
	DontShowAgain bool   `json:"dont_show_again,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"service": "tourflow"}))
}

func (s *Server) catalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.catalogHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.mgr.Catalog()))
}

// createLearnerHandler allocates a learner id (POST /learners).
func (s *Server) createLearnerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.createLearnerHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	learnerID := util.GenerateLearnerID()
	slog.Info("Server.createLearnerHandler: learner created", "learner_id", learnerID)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]string{"learner_id": learnerID}))
}

// stateHandler returns the current tour state (GET /tutorial/state?learner_id=).
func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.stateHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	learnerID := r.URL.Query().Get("learner_id")
	if learnerID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("learner_id is required"))
		return
	}
	var view TourStateView
	s.mgr.With(learnerID, func(e *engine.Engine) {
		view = snapshotView(learnerID, e)
	})
	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

func (s *Server) enableHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTutorialRequest(w, r, "enableHandler")
	if !ok {
		return
	}
	if req.Enabled == nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("enabled is required"))
		return
	}
	s.mutate(w, req.LearnerID, func(e *engine.Engine) {
		e.SetEnabled(*req.Enabled)
	})
}

func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTutorialRequest(w, r, "startHandler")
	if !ok {
		return
	}
	if req.FlowID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("flow_id is required"))
		return
	}
	s.mutate(w, req.LearnerID, func(e *engine.Engine) {
		e.StartFlow(req.FlowID)
	})
}

func (s *Server) nextHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTutorialRequest(w, r, "nextHandler")
	if !ok {
		return
	}
	s.mutate(w, req.LearnerID, func(e *engine.Engine) {
		e.NextStep()
	})
}

func (s *Server) prevHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTutorialRequest(w, r, "prevHandler")
	if !ok {
		return
	}
	s.mutate(w, req.LearnerID, func(e *engine.Engine) {
		e.PrevStep()
	})
}

func (s *Server) dismissHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTutorialRequest(w, r, "dismissHandler")
	if !ok {
		return
	}
	s.mutate(w, req.LearnerID, func(e *engine.Engine) {
		e.DismissFlow(req.DontShowAgain)
	})
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTutorialRequest(w, r, "resetHandler")
	if !ok {
		return
	}
	s.mutate(w, req.LearnerID, func(e *engine.Engine) {
		e.ResetProgress()
	})
}

// decodeTutorialRequest enforces POST, parses the shared request body, and
// validates the learner id.
func (s *Server) decodeTutorialRequest(w http.ResponseWriter, r *http.Request, handler string) (tutorialRequest, bool) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server tutorial request", "handler", handler, "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server tutorial request: method not allowed", "handler", handler, "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return tutorialRequest{}, false
	}
	var req tutorialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server tutorial request: failed to decode JSON", "handler", handler, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return tutorialRequest{}, false
	}
	if req.LearnerID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("learner_id is required"))
		return tutorialRequest{}, false
	}
	return req, true
}

// mutate applies fn to the learner's engine and responds with the
// post-mutation state. Engine no-ops are still 200s: an operation invoked in
// a state where it has no defined effect is not an error.
func (s *Server) mutate(w http.ResponseWriter, learnerID string, fn func(*engine.Engine)) {
	var view TourStateView
	s.mgr.With(learnerID, func(e *engine.Engine) {
		fn(e)
		view = snapshotView(learnerID, e)
	})
	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

// snapshotView captures the engine's state and derived queries. Must run
// while the manager lock is held.
func snapshotView(learnerID string, e *engine.Engine) TourStateView {
	view := TourStateView{
		LearnerID: learnerID,
		State:     e.State(),
		IsActive:  e.IsActive(),
	}
	if flow, ok := e.ActiveFlow(); ok {
		view.ActiveFlow = &flow
	}
	if step, ok := e.ActiveStep(); ok {
		view.ActiveStep = &step
	}
	return view
}
