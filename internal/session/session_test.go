package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/apperr"
	"github.com/jjcxdev/yokd/internal/models"
	"github.com/jjcxdev/yokd/internal/sets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu        sync.Mutex
	routines  map[uuid.UUID]*models.Routine
	exercises map[uuid.UUID][]models.RoutineExercise
	catalog   map[uuid.UUID]models.Exercise
	prior     map[uuid.UUID][]models.SessionSetRow
	sessions  map[uuid.UUID]*models.WorkoutSession
	sets      map[uuid.UUID][]models.SessionSetRow // keyed by routine exercise
	notes     map[uuid.UUID]string
	failWrite bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		routines:  make(map[uuid.UUID]*models.Routine),
		exercises: make(map[uuid.UUID][]models.RoutineExercise),
		catalog:   make(map[uuid.UUID]models.Exercise),
		prior:     make(map[uuid.UUID][]models.SessionSetRow),
		sessions:  make(map[uuid.UUID]*models.WorkoutSession),
		sets:      make(map[uuid.UUID][]models.SessionSetRow),
		notes:     make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) GetRoutine(_ context.Context, id uuid.UUID) (*models.Routine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.routines[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) RoutineExercises(_ context.Context, id uuid.UUID) ([]models.RoutineExercise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exercises[id], nil
}

func (f *fakeStore) GetExercisesByIDs(_ context.Context, ids []uuid.UUID) ([]models.Exercise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Exercise
	for _, id := range ids {
		if e, ok := f.catalog[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestPerformance(_ context.Context, _ uuid.UUID, _ int) (map[uuid.UUID][]models.SessionSetRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prior, nil
}

func (f *fakeStore) InsertSession(_ context.Context, userID int, routineID uuid.UUID) (*models.WorkoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.WorkoutSession{
		ID: uuid.New(), UserID: userID, RoutineID: routineID,
		Status: models.SessionActive, StartedAt: time.Now().UTC(),
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) GetSession(_ context.Context, id uuid.UUID) (*models.WorkoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) FinishSession(_ context.Context, id uuid.UUID, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errors.New("db down")
	}
	s, ok := f.sessions[id]
	if !ok || s.Status != models.SessionActive {
		return apperr.Validation("session", "not active")
	}
	s.Status = models.SessionCompleted
	s.CompletedAt = &completedAt
	return nil
}

func (f *fakeStore) CancelSession(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != models.SessionActive {
		return apperr.Validation("session", "not active")
	}
	s.Status = models.SessionCancelled
	return nil
}

func (f *fakeStore) ReplaceSessionSets(_ context.Context, _ uuid.UUID, reID uuid.UUID, rows []models.SessionSetRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errors.New("db down")
	}
	f.sets[reID] = rows
	return nil
}

func (f *fakeStore) UpdateExerciseNotes(_ context.Context, reID uuid.UUID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[reID] = notes
	return nil
}

func (f *fakeStore) UpdateExerciseRest(_ context.Context, _ uuid.UUID, _ int) error {
	return nil
}

func (f *fakeStore) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// seedRoutine installs a one-exercise routine for user 1 and returns the
// routine and routine-exercise IDs.
func (f *fakeStore) seedRoutine(t *testing.T) (uuid.UUID, uuid.UUID) {
	t.Helper()
	routineID := uuid.New()
	exID := uuid.New()
	reID := uuid.New()
	reps := 8

	f.routines[routineID] = &models.Routine{ID: routineID, UserID: 1, Name: "Push Day"}
	f.catalog[exID] = models.Exercise{ID: exID, Name: "Bench Press", MuscleGroup: "chest"}
	f.exercises[routineID] = []models.RoutineExercise{{
		ID: reID, RoutineID: routineID, ExerciseID: exID,
		WorkingSets: 3, WorkingReps: &reps, RestSeconds: 90,
		WorkingWeights: []float64{100, 100, 100},
	}}
	return routineID, reID
}

func testController(store Store) *Controller {
	// Long quiet period and tick: tests drive persistence via flush, and
	// the timer never ticks on its own.
	return NewController(store, nil, Options{
		QuietPeriod: time.Hour,
		TimerTick:   time.Hour,
	}, testLogger())
}

func TestStartBuildsCollectionsFromConfig(t *testing.T) {
	store := newFakeStore()
	routineID, _ := store.seedRoutine(t)
	c := testController(store)

	a, err := c.Start(context.Background(), 1, routineID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	v := a.View()
	if v.Session.Status != models.SessionActive {
		t.Errorf("status = %q, want active", v.Session.Status)
	}
	if len(v.Exercises) != 1 {
		t.Fatalf("exercises = %d, want 1", len(v.Exercises))
	}
	got := v.Exercises[0].Sets
	if len(got) != 3 {
		t.Fatalf("sets = %d, want 3 from configuration", len(got))
	}
	if got[0].Weight != "100" || got[0].Reps != "8" {
		t.Errorf("first set = %+v, want weight 100 reps 8", got[0])
	}
}

func TestStartPriorPerformanceWins(t *testing.T) {
	store := newFakeStore()
	routineID, reID := store.seedRoutine(t)
	store.prior[reID] = []models.SessionSetRow{
		{Weight: "102.5", Reps: "7", IsWarmup: false},
	}
	c := testController(store)

	a, err := c.Start(context.Background(), 1, routineID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := a.View().Exercises[0].Sets
	if len(got) != 1 {
		t.Fatalf("sets = %d, want 1 from prior session", len(got))
	}
	if got[0].Weight != "102.5" || got[0].Reps != "7" {
		t.Errorf("set = %+v, want prior performance data", got[0])
	}
}

func TestStartRejectsForeignRoutine(t *testing.T) {
	store := newFakeStore()
	routineID, _ := store.seedRoutine(t)
	c := testController(store)

	_, err := c.Start(context.Background(), 2, routineID)
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("Start error = %v, want ErrUnauthorized", err)
	}
	if store.sessionCount() != 0 {
		t.Error("session record created despite unauthorized start")
	}
}

func TestStartUnknownRoutine(t *testing.T) {
	c := testController(newFakeStore())
	_, err := c.Start(context.Background(), 1, uuid.New())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Start error = %v, want ErrNotFound", err)
	}
}

func TestCompleteSetTriggersRestTimer(t *testing.T) {
	store := newFakeStore()
	routineID, reID := store.seedRoutine(t)
	c := testController(store)
	a, _ := c.Start(context.Background(), 1, routineID)
	sessionID := a.Session().ID

	if err := c.CompleteSet(sessionID, 1, reID, 1, true); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	st := a.Timer().State()
	if !st.IsResting || st.Remaining != 90 {
		t.Errorf("timer = %+v, want resting with remaining 90", st)
	}

	// Unchecking never triggers (and must not restart the countdown).
	if err := c.CompleteSet(sessionID, 1, reID, 1, false); err != nil {
		t.Fatalf("CompleteSet uncheck: %v", err)
	}
	a.Timer().Stop()
	if err := c.CompleteSet(sessionID, 1, reID, 2, false); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if st := a.Timer().State(); st.IsResting {
		t.Error("uncheck restarted the rest timer")
	}
}

func TestFinishRequiresConfirmation(t *testing.T) {
	store := newFakeStore()
	routineID, _ := store.seedRoutine(t)
	c := testController(store)
	a, _ := c.Start(context.Background(), 1, routineID)
	sessionID := a.Session().ID

	_, err := c.Finish(context.Background(), sessionID, 1, false)
	if !apperr.IsValidation(err) {
		t.Fatalf("Finish error = %v, want validation error", err)
	}

	got, _ := store.GetSession(context.Background(), sessionID)
	if got.Status != models.SessionActive {
		t.Errorf("status = %q, want still active without confirmation", got.Status)
	}
}

func TestFinishCompletesOnce(t *testing.T) {
	store := newFakeStore()
	routineID, reID := store.seedRoutine(t)
	c := testController(store)
	a, _ := c.Start(context.Background(), 1, routineID)
	sessionID := a.Session().ID

	if err := c.UpdateSet(sessionID, 1, reID, 1, sets.FieldWeight, "105"); err != nil {
		t.Fatalf("UpdateSet: %v", err)
	}

	record, err := c.Finish(context.Background(), sessionID, 1, true)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if record.Status != models.SessionCompleted || record.CompletedAt == nil {
		t.Fatalf("record = %+v, want completed with timestamp", record)
	}

	// The pre-finish flush persisted the un-debounced edit.
	store.mu.Lock()
	saved := store.sets[reID]
	store.mu.Unlock()
	if len(saved) != 3 || saved[0].Weight != "105" {
		t.Errorf("flushed sets = %+v, want weight 105 on first set", saved)
	}

	// The session left the registry; finishing again is NotFound.
	if _, err := c.Finish(context.Background(), sessionID, 1, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Finish error = %v, want ErrNotFound", err)
	}

	got, _ := store.GetSession(context.Background(), sessionID)
	if got.CompletedAt == nil || !got.CompletedAt.Equal(*record.CompletedAt) {
		t.Error("completedAt changed after first completion")
	}
}

func TestFinishPersistenceFailureStaysActive(t *testing.T) {
	store := newFakeStore()
	routineID, _ := store.seedRoutine(t)
	c := testController(store)
	a, _ := c.Start(context.Background(), 1, routineID)
	sessionID := a.Session().ID

	store.mu.Lock()
	store.failWrite = true
	store.mu.Unlock()

	_, err := c.Finish(context.Background(), sessionID, 1, true)
	if !apperr.IsPersistence(err) {
		t.Fatalf("Finish error = %v, want persistence error", err)
	}

	// Still active and still retryable.
	store.mu.Lock()
	store.failWrite = false
	store.mu.Unlock()

	if _, err := c.Finish(context.Background(), sessionID, 1, true); err != nil {
		t.Errorf("retry after transient failure: %v", err)
	}
}

func TestFinishForeignSession(t *testing.T) {
	store := newFakeStore()
	routineID, _ := store.seedRoutine(t)
	c := testController(store)
	a, _ := c.Start(context.Background(), 1, routineID)

	_, err := c.Finish(context.Background(), a.Session().ID, 2, true)
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("Finish error = %v, want ErrUnauthorized", err)
	}
}

func TestCancelIsTerminal(t *testing.T) {
	store := newFakeStore()
	routineID, _ := store.seedRoutine(t)
	c := testController(store)
	a, _ := c.Start(context.Background(), 1, routineID)
	sessionID := a.Session().ID

	if err := c.Cancel(context.Background(), sessionID, 1); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, _ := store.GetSession(context.Background(), sessionID)
	if got.Status != models.SessionCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
	if _, err := c.Finish(context.Background(), sessionID, 1, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Finish after cancel error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSoleWorkingSetKept(t *testing.T) {
	store := newFakeStore()
	routineID, reID := store.seedRoutine(t)
	// Single working set configuration.
	store.exercises[routineID][0].WorkingSets = 1
	store.exercises[routineID][0].WorkingWeights = []float64{100}
	c := testController(store)
	a, _ := c.Start(context.Background(), 1, routineID)
	sessionID := a.Session().ID

	if err := c.DeleteSet(sessionID, 1, reID, 1); err != nil {
		t.Fatalf("DeleteSet: %v", err)
	}
	if got := len(a.View().Exercises[0].Sets); got != 1 {
		t.Errorf("sets = %d, want the last working set kept", got)
	}
}
