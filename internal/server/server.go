// Package server exposes the conversational form API over HTTP. It is a thin
// host around the core orchestrator: it loads snapshots from the store, runs
// one turn, persists the increment, and routes side effects.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	convoflow "github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/internal/platform/logger"
	"github.com/convoflow/convoflow/internal/store"
	"github.com/convoflow/convoflow/internal/webhook"
	"github.com/convoflow/convoflow/types"
)

// Server wires the store, the orchestrator, and the webhook notifier.
type Server struct {
	store    store.Store
	orch     *convoflow.Orchestrator
	notifier *webhook.Notifier
	log      zerolog.Logger
}

func New(st store.Store, orch *convoflow.Orchestrator, notifier *webhook.Notifier) *Server {
	return &Server{
		store:    st,
		orch:     orch,
		notifier: notifier,
		log:      logger.New("server"),
	}
}

// Router builds the HTTP router with all API routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/health", s.handleHealth).Methods("GET")

	router.HandleFunc("/api/forms", s.handleCreateForm).Methods("POST")
	router.HandleFunc("/api/forms", s.handleListForms).Methods("GET")
	router.HandleFunc("/api/forms/{formId}", s.handleGetForm).Methods("GET")

	router.HandleFunc("/api/forms/{formId}/sessions", s.handleCreateSession).Methods("POST")
	router.HandleFunc("/api/sessions/{sessionId}", s.handleGetSession).Methods("GET")
	router.HandleFunc("/api/sessions/{sessionId}", s.handleAbandonSession).Methods("DELETE")
	router.HandleFunc("/api/sessions/{sessionId}/messages", s.handleMessage).Methods("POST")

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	var form types.FormDefinition
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeBadRequest(w, "Invalid JSON")
		return
	}
	if form.Name == "" {
		writeBadRequest(w, "Form name is required")
		return
	}
	names := make(map[string]struct{}, len(form.Fields))
	for i := range form.Fields {
		field := &form.Fields[i]
		if field.Name == "" {
			writeBadRequest(w, "Every field needs a name")
			return
		}
		if _, dup := names[field.Name]; dup {
			writeBadRequest(w, "Duplicate field name: "+field.Name)
			return
		}
		names[field.Name] = struct{}{}
	}
	if err := s.store.CreateForm(r.Context(), &form); err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, &form)
}

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.store.ListForms(r.Context())
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": forms, "count": len(forms)})
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.store.GetForm(r.Context(), mux.Vars(r)["formId"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "Form not found")
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.CreateSession(r.Context(), mux.Vars(r)["formId"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "Form not found")
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "Session not found")
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	err := s.store.SetSessionStatus(r.Context(), mux.Vars(r)["sessionId"], types.SessionAbandoned)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "Session not found")
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// turnResponse is the body returned for one conversational turn.
type turnResponse struct {
	Message         string         `json:"message"`
	ExtractedFields map[string]any `json:"extractedFields"`
	IsComplete      bool           `json:"isComplete"`
	NextField       string         `json:"nextField,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON")
		return
	}
	if req.Message == "" {
		writeBadRequest(w, "Message is required")
		return
	}

	session, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w, "Session not found")
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	if session.Status != types.SessionActive {
		writeError(w, http.StatusConflict, "Session is "+string(session.Status))
		return
	}
	form, err := s.store.GetForm(r.Context(), session.FormID)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}

	result, err := s.orch.HandleTurn(r.Context(), form, session, req.Message)
	if err != nil {
		if ce, ok := convoflow.AsClientError(err); ok {
			s.log.Warn().
				Str("session_id", sessionID).
				Str("code", string(ce.Code)).
				Str("field", ce.Field).
				Msg("turn rejected")
			writeJSON(w, http.StatusUnprocessableEntity, ce)
			return
		}
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("model call failed")
		writeError(w, http.StatusBadGateway, "Language model call failed")
		return
	}

	next, err := convoflow.AdvanceSession(session, form, req.Message, result, time.Now().UTC())
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	if err := s.persistIncrement(r.Context(), session, next, form, result); err != nil {
		writeInternalError(w, err.Error())
		return
	}

	if next.Status == types.SessionCompleted {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := s.notifier.NotifyCompletion(ctx, form, next); err != nil {
				s.log.Error().Err(err).Str("session_id", sessionID).Msg("webhook delivery failed")
			}
		}()
	}

	extracted := make(map[string]any, len(result.ExtractedFields))
	for name, value := range result.ExtractedFields {
		extracted[name] = value.Native()
	}
	writeJSON(w, http.StatusOK, turnResponse{
		Message:         result.Message,
		ExtractedFields: extracted,
		IsComplete:      result.IsComplete,
		NextField:       result.NextField,
	})
}

// persistIncrement writes the delta between the prior snapshot and the next
// one: the two new turns, the accepted values, and any status transition.
func (s *Server) persistIncrement(ctx context.Context, prior, next *types.Session, form *types.FormDefinition, result *convoflow.TurnResult) error {
	for _, turn := range next.Turns[len(prior.Turns):] {
		if err := s.store.AppendTurn(ctx, next.ID, turn); err != nil {
			return err
		}
	}
	byID := next.CollectedByFieldID()
	for name := range result.ExtractedFields {
		field, ok := form.FieldByName(name)
		if !ok {
			continue
		}
		cf, ok := byID[field.ID]
		if !ok {
			// optional field accepted as absent; nothing to record
			continue
		}
		if err := s.store.UpsertCollectedField(ctx, next.ID, cf); err != nil {
			return err
		}
	}
	if next.Status != prior.Status {
		if err := s.store.SetSessionStatus(ctx, next.ID, next.Status); err != nil {
			return err
		}
	}
	return nil
}
