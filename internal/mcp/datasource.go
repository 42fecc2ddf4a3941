package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/models"
	"github.com/jjcxdev/yokd/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListRoutines(ctx context.Context, userID int) ([]models.Routine, error)
	GetRoutine(ctx context.Context, routineID uuid.UUID) (*models.Routine, error)
	RoutineExercises(ctx context.Context, routineID uuid.UUID) ([]models.RoutineExercise, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	ListSessions(ctx context.Context, userID int, limit int) ([]models.WorkoutSession, error)
	SessionSets(ctx context.Context, sessionID uuid.UUID) ([]models.SessionSetRow, error)
	ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, userID int, limit int) ([]models.SessionSetRow, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
