package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jjcxdev/yokd/internal/apperr"
	"github.com/jjcxdev/yokd/internal/models"
)

// InsertSession creates an active session row for the routine.
func (db *DB) InsertSession(ctx context.Context, userID int, routineID uuid.UUID) (*models.WorkoutSession, error) {
	s := &models.WorkoutSession{
		ID:        uuid.New(),
		UserID:    userID,
		RoutineID: routineID,
		Status:    models.SessionActive,
		StartedAt: time.Now().UTC(),
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, routine_id, status, started_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.UserID, s.RoutineID, s.Status, s.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return s, nil
}

// GetSession retrieves a session by ID regardless of owner; callers check
// ownership against the requesting user.
func (db *DB) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.WorkoutSession, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, routine_id, status, started_at, completed_at
		 FROM workout_sessions WHERE id = $1`, sessionID)

	var s models.WorkoutSession
	err := row.Scan(&s.ID, &s.UserID, &s.RoutineID, &s.Status, &s.StartedAt, &s.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &s, nil
}

// FinishSession marks an active session completed. The guard on status
// makes terminal states sticky: completed_at is written exactly once.
func (db *DB) FinishSession(ctx context.Context, sessionID uuid.UUID, completedAt time.Time) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_sessions SET status = $2, completed_at = $3
		 WHERE id = $1 AND status = $4`,
		sessionID, models.SessionCompleted, completedAt, models.SessionActive)
	if err != nil {
		return fmt.Errorf("completing session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Validation("session", "not active")
	}
	return nil
}

// CancelSession marks an active session cancelled (the user-abort path).
func (db *DB) CancelSession(ctx context.Context, sessionID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_sessions SET status = $2, completed_at = $3
		 WHERE id = $1 AND status = $4`,
		sessionID, models.SessionCancelled, time.Now().UTC(), models.SessionActive)
	if err != nil {
		return fmt.Errorf("cancelling session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Validation("session", "not active")
	}
	return nil
}

// ReplaceSessionSets overwrites the recorded sets of one exercise within a
// session. Delete-and-insert in a transaction gives last-write-wins
// semantics, which is what the autosave path needs.
func (db *DB) ReplaceSessionSets(ctx context.Context, sessionID, routineExerciseID uuid.UUID, rows []models.SessionSetRow) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning session sets tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM session_sets WHERE session_id = $1 AND routine_exercise_id = $2`,
		sessionID, routineExerciseID)
	if err != nil {
		return fmt.Errorf("clearing session sets: %w", err)
	}

	if len(rows) > 0 {
		query := `INSERT INTO session_sets (session_id, routine_exercise_id, set_number,
			is_warmup, weight, reps, completed, recorded_at) VALUES `
		args := make([]any, 0, len(rows)*8)
		valueStrings := make([]string, 0, len(rows))

		now := time.Now().UTC()
		for i, r := range rows {
			base := i * 8
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
			))
			args = append(args, sessionID, routineExerciseID, r.SetNumber,
				r.IsWarmup, r.Weight, r.Reps, r.Completed, now)
		}

		query += strings.Join(valueStrings, ",")
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting session sets: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// LatestPerformance returns the recorded sets of the most recent completed
// session of the routine, grouped by routine exercise. An empty map means
// the routine has never been completed.
func (db *DB) LatestPerformance(ctx context.Context, routineID uuid.UUID, userID int) (map[uuid.UUID][]models.SessionSetRow, error) {
	var lastSession uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT id FROM workout_sessions
		 WHERE routine_id = $1 AND user_id = $2 AND status = $3
		 ORDER BY completed_at DESC LIMIT 1`,
		routineID, userID, models.SessionCompleted).Scan(&lastSession)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[uuid.UUID][]models.SessionSetRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest session: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT session_id, routine_exercise_id, set_number, is_warmup, weight, reps, completed, recorded_at
		 FROM session_sets WHERE session_id = $1
		 ORDER BY routine_exercise_id, is_warmup DESC, set_number ASC`, lastSession)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]models.SessionSetRow)
	for rows.Next() {
		var r models.SessionSetRow
		if err := rows.Scan(&r.SessionID, &r.RoutineExerciseID, &r.SetNumber,
			&r.IsWarmup, &r.Weight, &r.Reps, &r.Completed, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning session set: %w", err)
		}
		result[r.RoutineExerciseID] = append(result[r.RoutineExerciseID], r)
	}
	return result, rows.Err()
}

// SessionSets returns all recorded sets for one session, in display order.
func (db *DB) SessionSets(ctx context.Context, sessionID uuid.UUID) ([]models.SessionSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_id, routine_exercise_id, set_number, is_warmup, weight, reps, completed, recorded_at
		 FROM session_sets WHERE session_id = $1
		 ORDER BY routine_exercise_id, is_warmup DESC, set_number ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSetRow
	for rows.Next() {
		var r models.SessionSetRow
		if err := rows.Scan(&r.SessionID, &r.RoutineExerciseID, &r.SetNumber,
			&r.IsWarmup, &r.Weight, &r.Reps, &r.Completed, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning session set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListSessions retrieves a user's sessions, newest first, optionally
// limited.
func (db *DB) ListSessions(ctx context.Context, userID int, limit int) ([]models.WorkoutSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, routine_id, status, started_at, completed_at
		 FROM workout_sessions WHERE user_id = $1
		 ORDER BY started_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSession
	for rows.Next() {
		var s models.WorkoutSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.RoutineID, &s.Status, &s.StartedAt, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
