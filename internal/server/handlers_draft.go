package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/apperr"
	"github.com/jjcxdev/yokd/internal/draft"
)

func (s *Server) userDraft(r *http.Request) *draft.Store {
	return s.drafts.Get(UserIDFromContext(r.Context()))
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.userDraft(r).State())
}

// handleDraftAddExercises merges the exercise-picker selection into the
// draft. Unknown IDs are dropped by the catalog lookup; duplicates are
// deduplicated by the store.
func (s *Server) handleDraftAddExercises(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIDs []uuid.UUID `json:"exerciseIds"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	selection, err := s.db.GetExercisesByIDs(r.Context(), req.ExerciseIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	st := s.userDraft(r)
	st.AddExercises(selection)
	writeJSON(w, http.StatusOK, st.State())
}

func (s *Server) handleDraftRemoveExercise(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := uuid.Parse(chi.URLParam(r, "exerciseID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exercise ID"})
		return
	}

	st := s.userDraft(r)
	if !st.RemoveExercise(exerciseID) {
		writeError(w, apperr.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (s *Server) handleDraftPatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string    `json:"name"`
		FolderID *uuid.UUID `json:"folderId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	st := s.userDraft(r)
	if req.Name != nil {
		st.Rename(*req.Name)
	}
	if req.FolderID != nil {
		st.SetFolder(req.FolderID)
	}
	writeJSON(w, http.StatusOK, st.State())
}

// setOpRequest is the shared body for set-collection operations, both in
// the builder and during a session.
type setOpRequest struct {
	Op    string `json:"op"` // addWorking | addWarmup | update | delete | notes
	SetID int    `json:"setId,omitempty"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
	Notes string `json:"notes,omitempty"`
}

func (s *Server) handleDraftSetOp(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := uuid.Parse(chi.URLParam(r, "exerciseID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exercise ID"})
		return
	}
	var req setOpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	st := s.userDraft(r)
	switch req.Op {
	case "addWorking":
		err = st.AddWorkingSet(exerciseID)
	case "addWarmup":
		err = st.AddWarmupSet(exerciseID)
	case "update":
		err = st.UpdateSet(exerciseID, req.SetID, req.Field, req.Value)
	case "delete":
		err = st.DeleteSet(exerciseID, req.SetID)
	case "notes":
		err = st.SetNotes(exerciseID, req.Notes)
	default:
		err = apperr.Validation("op", "unknown operation %q", req.Op)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (s *Server) handleDraftSave(w http.ResponseWriter, r *http.Request) {
	routineID, err := s.userDraft(r).Save(r.Context(), s.db)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"routineId": routineID,
		"redirect":  "/dashboard",
	})
}

func (s *Server) handleDraftCancel(w http.ResponseWriter, r *http.Request) {
	s.userDraft(r).Cancel()
	writeJSON(w, http.StatusOK, map[string]any{"redirect": "/dashboard"})
}
