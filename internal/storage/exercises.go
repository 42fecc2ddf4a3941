package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/models"
)

// ListExercises retrieves the exercise catalog for the picker, sorted by
// muscle group then name.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, muscle_group, equipment FROM exercises
		 ORDER BY muscle_group ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.MuscleGroup, &e.Equipment); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetExercisesByIDs resolves a picker selection against the catalog,
// preserving the selection order and dropping unknown IDs.
func (db *DB) GetExercisesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Exercise, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, muscle_group, equipment FROM exercises WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying exercises by id: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]models.Exercise, len(ids))
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.MuscleGroup, &e.Equipment); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]models.Exercise, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			result = append(result, e)
		}
	}
	return result, nil
}

// ExerciseHistory returns every completed performed set of one catalog
// exercise for the user, newest session first. Feeds the progress views
// and the MCP surface.
func (db *DB) ExerciseHistory(ctx context.Context, exerciseID uuid.UUID, userID int, limit int) ([]models.SessionSetRow, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT ss.session_id, ss.routine_exercise_id, ss.set_number, ss.is_warmup,
		 ss.weight, ss.reps, ss.completed, ss.recorded_at
		 FROM session_sets ss
		 JOIN routine_exercises re ON re.id = ss.routine_exercise_id
		 JOIN workout_sessions ws ON ws.id = ss.session_id
		 WHERE re.exercise_id = $1 AND ws.user_id = $2 AND ws.status = $3 AND ss.completed
		 ORDER BY ss.recorded_at DESC, ss.set_number ASC
		 LIMIT $4`,
		exerciseID, userID, models.SessionCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSetRow
	for rows.Next() {
		var r models.SessionSetRow
		if err := rows.Scan(&r.SessionID, &r.RoutineExerciseID, &r.SetNumber,
			&r.IsWarmup, &r.Weight, &r.Reps, &r.Completed, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning exercise history: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
