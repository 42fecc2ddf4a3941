package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jjcxdev/yokd/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// recentWindow bounds the recent_sessions resource.
const recentWindow = 14 * 24 * time.Hour

func withinWindow(s models.WorkoutSession, now time.Time) bool {
	return now.Sub(s.StartedAt) <= recentWindow
}

func (h *handlers) recentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	sessions, err := h.ds.ListSessions(ctx, uid, 50)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	type sessionWithSets struct {
		Session models.WorkoutSession  `json:"session"`
		Sets    []models.SessionSetRow `json:"sets"`
	}

	var recent []sessionWithSets
	for _, s := range sessions {
		if !withinWindow(s, now) {
			continue
		}
		sets, err := h.ds.SessionSets(ctx, s.ID)
		if err != nil {
			h.log.Warn("recent_sessions: sets query failed", "session", s.ID, "error", err)
			continue
		}
		recent = append(recent, sessionWithSets{Session: s, Sets: sets})
	}

	data, err := json.Marshal(recent)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) routineCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	routines, err := h.ds.ListRoutines(ctx, uid)
	if err != nil {
		return nil, err
	}

	type routineWithExercises struct {
		Routine   models.Routine           `json:"routine"`
		Exercises []models.RoutineExercise `json:"exercises"`
	}

	catalog := make([]routineWithExercises, 0, len(routines))
	for _, rt := range routines {
		exercises, err := h.ds.RoutineExercises(ctx, rt.ID)
		if err != nil {
			h.log.Warn("routines: exercise query failed", "routine", rt.ID, "error", err)
			continue
		}
		catalog = append(catalog, routineWithExercises{Routine: rt, Exercises: exercises})
	}

	data, err := json.Marshal(catalog)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
