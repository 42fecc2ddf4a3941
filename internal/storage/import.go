package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jjcxdev/yokd/internal/models"
)

// GetOrCreateExercise resolves a catalog exercise by name, creating it if
// the export mentions one the catalog lacks. Equipment is filled in when
// the existing row has none.
func (db *DB) GetOrCreateExercise(ctx context.Context, name, equipment string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO exercises (id, name, equipment)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
			SET equipment = COALESCE(NULLIF(exercises.equipment, ''), EXCLUDED.equipment)
		RETURNING id
	`, uuid.New(), name, equipment).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting exercise: %w", err)
	}
	return id, nil
}

// GetOrCreateRoutine resolves a routine by name for the user.
func (db *DB) GetOrCreateRoutine(ctx context.Context, userID int, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT id FROM routines WHERE user_id = $1 AND name = $2 LIMIT 1`,
		userID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("looking up routine: %w", err)
	}

	id = uuid.New()
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO routines (id, user_id, name) VALUES ($1,$2,$3)`,
		id, userID, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting routine: %w", err)
	}
	return id, nil
}

// GetOrCreateRoutineExercise resolves the routine's slot for a catalog
// exercise. New slots get their set counts and target reps from the first
// imported session; weights stay zero-filled until a live session saves.
func (db *DB) GetOrCreateRoutineExercise(ctx context.Context, routineID, exerciseID uuid.UUID, position, warmupSets, workingSets, targetReps int) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT id FROM routine_exercises WHERE routine_id = $1 AND exercise_id = $2 LIMIT 1`,
		routineID, exerciseID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("looking up routine exercise: %w", err)
	}

	ww, err := json.Marshal(make([]float64, warmupSets))
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding warmup weights: %w", err)
	}
	gw, err := json.Marshal(make([]float64, workingSets))
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding working weights: %w", err)
	}

	var reps *int
	if targetReps > 0 {
		reps = &targetReps
	}

	id = uuid.New()
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO routine_exercises (id, routine_id, exercise_id, position,
		 warmup_sets, working_sets, working_reps, rest_seconds,
		 warmup_weights, working_weights)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		id, routineID, exerciseID, position,
		warmupSets, workingSets, reps, defaultRestSeconds, ww, gw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting routine exercise: %w", err)
	}
	return id, nil
}

// HasSessionAt reports whether the user already has a session of the
// routine starting at exactly this time. Imports use it to stay idempotent.
func (db *DB) HasSessionAt(ctx context.Context, userID int, routineID uuid.UUID, startedAt time.Time) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM workout_sessions
		 WHERE user_id = $1 AND routine_id = $2 AND started_at = $3)`,
		userID, routineID, startedAt).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking session existence: %w", err)
	}
	return exists, nil
}

// InsertImportedSession inserts an already-completed session record.
func (db *DB) InsertImportedSession(ctx context.Context, userID int, routineID uuid.UUID, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, routine_id, status, started_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$5)`,
		id, userID, routineID, models.SessionCompleted, startedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting imported session: %w", err)
	}
	return id, nil
}
