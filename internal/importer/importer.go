package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/models"
)

// Store is the narrow slice of the data layer the importer needs.
// *storage.DB satisfies it.
type Store interface {
	GetOrCreateExercise(ctx context.Context, name, equipment string) (uuid.UUID, error)
	GetOrCreateRoutine(ctx context.Context, userID int, name string) (uuid.UUID, error)
	GetOrCreateRoutineExercise(ctx context.Context, routineID, exerciseID uuid.UUID, position, warmupSets, workingSets, targetReps int) (uuid.UUID, error)
	HasSessionAt(ctx context.Context, userID int, routineID uuid.UUID, startedAt time.Time) (bool, error)
	InsertImportedSession(ctx context.Context, userID int, routineID uuid.UUID, startedAt time.Time) (uuid.UUID, error)
	ReplaceSessionSets(ctx context.Context, sessionID, routineExerciseID uuid.UUID, rows []models.SessionSetRow) error
}

// Stats tracks import progress.
type Stats struct {
	SessionsImported int
	SessionsSkipped  int
	SetsImported     int
}

// Importer replays parsed sessions into the database as completed
// workout sessions.
type Importer struct {
	store  Store
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer.
func New(store Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{store: store, log: log, dryRun: dryRun}
}

// Run parses the export and inserts its sessions for the given user.
// Sessions that already exist (same routine and start time) are skipped,
// so re-running on the same export is safe.
func (imp *Importer) Run(ctx context.Context, userID int, r io.Reader) (*Stats, error) {
	sessions, err := Parse(r)
	if err != nil {
		return &imp.stats, fmt.Errorf("parsing export: %w", err)
	}

	for _, s := range sessions {
		if err := imp.importSession(ctx, userID, s); err != nil {
			return &imp.stats, fmt.Errorf("importing session %q (%s): %w", s.Name, s.Date.Format("2006-01-02"), err)
		}
	}

	return &imp.stats, nil
}

func (imp *Importer) importSession(ctx context.Context, userID int, s Session) error {
	if imp.dryRun {
		imp.stats.SessionsImported++
		for _, ex := range s.Exercises {
			imp.stats.SetsImported += len(ex.Warmups) + len(ex.Working)
		}
		return nil
	}

	routineID, err := imp.store.GetOrCreateRoutine(ctx, userID, s.Name)
	if err != nil {
		return fmt.Errorf("resolving routine: %w", err)
	}

	exists, err := imp.store.HasSessionAt(ctx, userID, routineID, s.Date)
	if err != nil {
		return fmt.Errorf("checking for duplicate: %w", err)
	}
	if exists {
		imp.log.Info("skipping already imported session", "routine", s.Name, "date", s.Date)
		imp.stats.SessionsSkipped++
		return nil
	}

	sessionID, err := imp.store.InsertImportedSession(ctx, userID, routineID, s.Date)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	for i, ex := range s.Exercises {
		exerciseID, err := imp.store.GetOrCreateExercise(ctx, ex.Name, ex.Equipment)
		if err != nil {
			return fmt.Errorf("resolving exercise %q: %w", ex.Name, err)
		}

		reID, err := imp.store.GetOrCreateRoutineExercise(ctx, routineID, exerciseID,
			i, len(ex.Warmups), len(ex.Working), ex.TargetReps)
		if err != nil {
			return fmt.Errorf("resolving routine exercise %q: %w", ex.Name, err)
		}

		rows := make([]models.SessionSetRow, 0, len(ex.Warmups)+len(ex.Working))
		n := 0
		for _, set := range ex.Warmups {
			n++
			rows = append(rows, models.SessionSetRow{
				SessionID:         sessionID,
				RoutineExerciseID: reID,
				SetNumber:         n,
				IsWarmup:          true,
				Weight:            set.Weight,
				Reps:              set.Reps,
				Completed:         true,
				RecordedAt:        s.Date,
			})
		}
		for _, set := range ex.Working {
			n++
			rows = append(rows, models.SessionSetRow{
				SessionID:         sessionID,
				RoutineExerciseID: reID,
				SetNumber:         n,
				Weight:            set.Weight,
				Reps:              set.Reps,
				Completed:         true,
				RecordedAt:        s.Date,
			})
		}

		if err := imp.store.ReplaceSessionSets(ctx, sessionID, reID, rows); err != nil {
			return fmt.Errorf("inserting sets for %q: %w", ex.Name, err)
		}
		imp.stats.SetsImported += len(rows)
	}

	imp.stats.SessionsImported++
	return nil
}
