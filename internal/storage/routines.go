package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jjcxdev/yokd/internal/apperr"
	"github.com/jjcxdev/yokd/internal/draft"
	"github.com/jjcxdev/yokd/internal/models"
	"github.com/jjcxdev/yokd/internal/sets"
)

// CreateRoutine persists a saved draft: the routine row plus one
// routine_exercises row per exercise, all in one transaction. The set
// collections are condensed to the durable shape (set counts, rep targets,
// weight arrays matching the counts).
func (db *DB) CreateRoutine(ctx context.Context, userID int, name string, folderID *uuid.UUID, exercises []draft.ExerciseInput) (uuid.UUID, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning routine tx: %w", err)
	}
	defer tx.Rollback(ctx)

	routineID := uuid.New()
	_, err = tx.Exec(ctx,
		`INSERT INTO routines (id, user_id, folder_id, name) VALUES ($1,$2,$3,$4)`,
		routineID, userID, folderID, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting routine: %w", err)
	}

	for i, ex := range exercises {
		warmups, workings, warmupReps, workingReps, warmupWeights, workingWeights := sets.Summarize(ex.Sets)

		ww, err := json.Marshal(warmupWeights)
		if err != nil {
			return uuid.Nil, fmt.Errorf("encoding warmup weights: %w", err)
		}
		gw, err := json.Marshal(workingWeights)
		if err != nil {
			return uuid.Nil, fmt.Errorf("encoding working weights: %w", err)
		}

		var notes *string
		if ex.Notes != "" {
			notes = &ex.Notes
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO routine_exercises (id, routine_id, exercise_id, position,
			 warmup_sets, warmup_reps, working_sets, working_reps, rest_seconds,
			 warmup_weights, working_weights, notes)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			uuid.New(), routineID, ex.ExerciseID, i,
			warmups, warmupReps, workings, workingReps, defaultRestSeconds,
			ww, gw, notes)
		if err != nil {
			return uuid.Nil, fmt.Errorf("inserting routine exercise: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing routine: %w", err)
	}
	return routineID, nil
}

// defaultRestSeconds applies until the user configures a per-exercise rest.
const defaultRestSeconds = 90

// GetRoutine retrieves a routine by ID regardless of owner; callers check
// ownership against the requesting user.
func (db *DB) GetRoutine(ctx context.Context, routineID uuid.UUID) (*models.Routine, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, folder_id, name, created_at, updated_at
		 FROM routines WHERE id = $1`, routineID)

	var r models.Routine
	err := row.Scan(&r.ID, &r.UserID, &r.FolderID, &r.Name, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying routine: %w", err)
	}
	return &r, nil
}

// ListRoutines retrieves a user's routines, newest first.
func (db *DB) ListRoutines(ctx context.Context, userID int) ([]models.Routine, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, folder_id, name, created_at, updated_at
		 FROM routines WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	var result []models.Routine
	for rows.Next() {
		var r models.Routine
		if err := rows.Scan(&r.ID, &r.UserID, &r.FolderID, &r.Name, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// DeleteRoutine removes a routine the user owns.
func (db *DB) DeleteRoutine(ctx context.Context, routineID uuid.UUID, userID int) error {
	r, err := db.GetRoutine(ctx, routineID)
	if err != nil {
		return err
	}
	if r.UserID != userID {
		return apperr.ErrUnauthorized
	}

	_, err = db.Pool.Exec(ctx, `DELETE FROM routines WHERE id = $1`, routineID)
	if err != nil {
		return fmt.Errorf("deleting routine: %w", err)
	}
	return nil
}

// RoutineExercises retrieves a routine's exercise configurations in saved
// position order.
func (db *DB) RoutineExercises(ctx context.Context, routineID uuid.UUID) ([]models.RoutineExercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, routine_id, exercise_id, position, warmup_sets, warmup_reps,
		 working_sets, working_reps, rest_seconds, warmup_weights, working_weights, notes
		 FROM routine_exercises WHERE routine_id = $1 ORDER BY position ASC`, routineID)
	if err != nil {
		return nil, fmt.Errorf("querying routine exercises: %w", err)
	}
	defer rows.Close()

	var result []models.RoutineExercise
	for rows.Next() {
		var re models.RoutineExercise
		var ww, gw []byte
		if err := rows.Scan(&re.ID, &re.RoutineID, &re.ExerciseID, &re.Position,
			&re.WarmupSets, &re.WarmupReps, &re.WorkingSets, &re.WorkingReps,
			&re.RestSeconds, &ww, &gw, &re.Notes); err != nil {
			return nil, fmt.Errorf("scanning routine exercise: %w", err)
		}
		if err := json.Unmarshal(ww, &re.WarmupWeights); err != nil {
			return nil, fmt.Errorf("decoding warmup weights: %w", err)
		}
		if err := json.Unmarshal(gw, &re.WorkingWeights); err != nil {
			return nil, fmt.Errorf("decoding working weights: %w", err)
		}
		result = append(result, re)
	}
	return result, rows.Err()
}

// UpdateExerciseNotes replaces the notes of one routine exercise.
func (db *DB) UpdateExerciseNotes(ctx context.Context, routineExerciseID uuid.UUID, notes string) error {
	var val *string
	if notes != "" {
		val = &notes
	}
	_, err := db.Pool.Exec(ctx,
		`UPDATE routine_exercises SET notes = $2 WHERE id = $1`, routineExerciseID, val)
	if err != nil {
		return fmt.Errorf("updating exercise notes: %w", err)
	}
	return nil
}

// UpdateExerciseRest sets the configured rest interval for one exercise.
func (db *DB) UpdateExerciseRest(ctx context.Context, routineExerciseID uuid.UUID, restSeconds int) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE routine_exercises SET rest_seconds = $2 WHERE id = $1`, routineExerciseID, restSeconds)
	if err != nil {
		return fmt.Errorf("updating exercise rest: %w", err)
	}
	return nil
}
