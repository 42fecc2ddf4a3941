package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/apperr"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	routineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid routine ID"})
		return
	}

	a, err := s.sessions.Start(r.Context(), UserIDFromContext(r.Context()), routineID)
	if err != nil {
		writeError(w, err)
		return
	}

	view := a.View()
	writeJSON(w, http.StatusCreated, map[string]any{
		"session":  view,
		"redirect": "/session/" + view.Session.ID.String(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := s.db.ListSessions(r.Context(), UserIDFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}

	a, err := s.sessions.Get(sessionID, userID)
	if err == nil {
		writeJSON(w, http.StatusOK, a.View())
		return
	}

	// Not live: fall back to the stored record (completed/cancelled
	// sessions remain queryable).
	record, serr := s.db.GetSession(r.Context(), sessionID)
	if serr != nil {
		writeError(w, serr)
		return
	}
	if record.UserID != userID {
		writeError(w, errUnauthorized())
		return
	}
	rows, serr := s.db.SessionSets(r.Context(), sessionID)
	if serr != nil {
		writeError(w, serr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": record,
		"sets":    rows,
	})
}

func (s *Server) handleSessionSetOp(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	var req struct {
		setOpRequest
		ExerciseID uuid.UUID `json:"exerciseId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var err error
	switch req.Op {
	case "addWorking":
		err = s.sessions.AddWorkingSet(sessionID, userID, req.ExerciseID)
	case "addWarmup":
		err = s.sessions.AddWarmupSet(sessionID, userID, req.ExerciseID)
	case "update":
		err = s.sessions.UpdateSet(sessionID, userID, req.ExerciseID, req.SetID, req.Field, req.Value)
	case "delete":
		err = s.sessions.DeleteSet(sessionID, userID, req.ExerciseID, req.SetID)
	case "notes":
		err = s.sessions.SetNotes(sessionID, userID, req.ExerciseID, req.Notes)
	default:
		err = apperr.Validation("op", "unknown operation %q", req.Op)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := s.sessions.Get(sessionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.View())
}

func (s *Server) handleSessionCompleteSet(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	var req struct {
		ExerciseID uuid.UUID `json:"exerciseId"`
		SetID      int       `json:"setId"`
		Checked    bool      `json:"checked"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.sessions.CompleteSet(sessionID, userID, req.ExerciseID, req.SetID, req.Checked); err != nil {
		writeError(w, err)
		return
	}

	a, err := s.sessions.Get(sessionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.View())
}

func (s *Server) handleSessionSetRest(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	var req struct {
		ExerciseID  uuid.UUID `json:"exerciseId"`
		RestSeconds int       `json:"restSeconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.sessions.SetRest(r.Context(), sessionID, userID, req.ExerciseID, req.RestSeconds); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	var req struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	record, err := s.sessions.Finish(r.Context(), sessionID, userID, req.Confirmed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":  record,
		"redirect": "/dashboard",
	})
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}

	if err := s.sessions.Cancel(r.Context(), sessionID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"redirect": "/dashboard"})
}

// handleTimerStream streams rest-timer events for a live session as
// server-sent events until the client disconnects or the session ends.
func (s *Server) handleTimerStream(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}

	a, err := s.sessions.Get(sessionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	events, unsubscribe := a.Timer().Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Initial state so a reconnecting client resynchronizes immediately.
	writeSSE(w, map[string]any{"type": "state", "state": a.Timer().State()})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// sessionParams parses the session ID and resolves the requesting user.
func (s *Server) sessionParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, int, bool) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return uuid.Nil, 0, false
	}
	return sessionID, UserIDFromContext(r.Context()), true
}
