// Package session owns the lifecycle of workout sessions: starting one
// from a routine, tracking live set edits and completions, driving the
// shared rest timer, and the confirmation-gated finish.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/apperr"
	"github.com/jjcxdev/yokd/internal/autosave"
	"github.com/jjcxdev/yokd/internal/models"
	"github.com/jjcxdev/yokd/internal/resttimer"
	"github.com/jjcxdev/yokd/internal/sets"
)

// Store is the persistence contract the controller depends on. Satisfied
// by *storage.DB.
type Store interface {
	GetRoutine(ctx context.Context, routineID uuid.UUID) (*models.Routine, error)
	RoutineExercises(ctx context.Context, routineID uuid.UUID) ([]models.RoutineExercise, error)
	GetExercisesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Exercise, error)
	LatestPerformance(ctx context.Context, routineID uuid.UUID, userID int) (map[uuid.UUID][]models.SessionSetRow, error)
	InsertSession(ctx context.Context, userID int, routineID uuid.UUID) (*models.WorkoutSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.WorkoutSession, error)
	FinishSession(ctx context.Context, sessionID uuid.UUID, completedAt time.Time) error
	CancelSession(ctx context.Context, sessionID uuid.UUID) error
	ReplaceSessionSets(ctx context.Context, sessionID, routineExerciseID uuid.UUID, rows []models.SessionSetRow) error
	UpdateExerciseNotes(ctx context.Context, routineExerciseID uuid.UUID, notes string) error
	UpdateExerciseRest(ctx context.Context, routineExerciseID uuid.UUID, restSeconds int) error
}

// Exercise is the live state of one exercise within an active session.
type Exercise struct {
	Config    models.RoutineExercise
	Exercise  models.Exercise
	Notes     string
	Sets      *sets.Collection
	completed map[int]bool // set display number -> checked
}

// Active is one running workout session: the set collections under edit,
// the shared rest timer, and the autosave controller feeding session_sets.
type Active struct {
	mu        sync.Mutex
	session   models.WorkoutSession
	exercises []*Exercise
	byID      map[uuid.UUID]*Exercise
	timer     *resttimer.Engine
	saver     *autosave.Controller
}

// Session returns a copy of the session record.
func (a *Active) Session() models.WorkoutSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Timer exposes the session's rest timer engine (for the event stream).
func (a *Active) Timer() *resttimer.Engine { return a.timer }

// Options tune the controller; zero values give production behavior.
type Options struct {
	QuietPeriod time.Duration // autosave debounce window
	TimerTick   time.Duration // rest timer tick cadence
}

// Controller creates and tracks active sessions. One rest timer and one
// autosave controller per active session; everything is torn down when the
// session reaches a terminal state.
type Controller struct {
	store   Store
	effects resttimer.Effects
	log     *slog.Logger
	opts    Options

	mu     sync.Mutex
	active map[uuid.UUID]*Active
}

// NewController creates a controller over the given store. effects may be
// nil; timer completions then only reach event-stream subscribers.
func NewController(store Store, effects resttimer.Effects, opts Options, log *slog.Logger) *Controller {
	return &Controller{
		store:   store,
		effects: effects,
		log:     log,
		opts:    opts,
		active:  make(map[uuid.UUID]*Active),
	}
}

// Start validates ownership, creates the session record, reconciles each
// exercise's initial set collection against the previous performance of
// the same routine, and registers the live session.
func (c *Controller) Start(ctx context.Context, userID int, routineID uuid.UUID) (*Active, error) {
	routine, err := c.store.GetRoutine(ctx, routineID)
	if err != nil {
		return nil, err
	}
	if routine.UserID != userID {
		return nil, apperr.ErrUnauthorized
	}

	cfgs, err := c.store.RoutineExercises(ctx, routineID)
	if err != nil {
		return nil, apperr.Persistence("load routine exercises", err)
	}

	ids := make([]uuid.UUID, len(cfgs))
	for i, cfg := range cfgs {
		ids[i] = cfg.ExerciseID
	}
	catalog, err := c.store.GetExercisesByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Persistence("load exercise catalog", err)
	}
	catalogByID := make(map[uuid.UUID]models.Exercise, len(catalog))
	for _, e := range catalog {
		catalogByID[e.ID] = e
	}

	prior, err := c.store.LatestPerformance(ctx, routineID, userID)
	if err != nil {
		return nil, apperr.Persistence("load previous performance", err)
	}

	record, err := c.store.InsertSession(ctx, userID, routineID)
	if err != nil {
		return nil, apperr.Persistence("create session", err)
	}

	a := &Active{
		session: *record,
		byID:    make(map[uuid.UUID]*Exercise, len(cfgs)),
		timer:   resttimer.New(c.effects, c.opts.TimerTick, c.log),
		saver:   autosave.New(c.forwarderFor(record.ID), c.opts.QuietPeriod, c.log),
	}

	for _, cfg := range cfgs {
		cfg := cfg
		ex := &Exercise{
			Config:    cfg,
			Exercise:  catalogByID[cfg.ExerciseID],
			Notes:     notesOf(cfg),
			Sets:      sets.Reconcile(prior[cfg.ID], &cfg),
			completed: make(map[int]bool),
		}
		a.exercises = append(a.exercises, ex)
		a.byID[cfg.ID] = ex
		// The freshly initialized card reflects persisted state; it must
		// not trigger an autosave forward.
		a.saver.Prime(cfg.ID, payloadOf(ex))
	}

	c.mu.Lock()
	c.active[record.ID] = a
	c.mu.Unlock()

	c.log.Info("session started", "session", record.ID, "routine", routineID, "user", userID)
	return a, nil
}

// Get returns the live session, checking ownership.
func (c *Controller) Get(sessionID uuid.UUID, userID int) (*Active, error) {
	c.mu.Lock()
	a, ok := c.active[sessionID]
	c.mu.Unlock()
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if a.Session().UserID != userID {
		return nil, apperr.ErrUnauthorized
	}
	return a, nil
}

// UpdateSet edits one field of one live set and schedules an autosave.
func (c *Controller) UpdateSet(sessionID uuid.UUID, userID int, exerciseID uuid.UUID, setID int, field, value string) error {
	return c.withExercise(sessionID, userID, exerciseID, func(a *Active, ex *Exercise) error {
		if err := ex.Sets.UpdateSet(setID, field, value); err != nil {
			return err
		}
		a.saver.Observe(exerciseID, payloadOf(ex))
		return nil
	})
}

// AddWorkingSet appends a working set to the exercise.
func (c *Controller) AddWorkingSet(sessionID uuid.UUID, userID int, exerciseID uuid.UUID) error {
	return c.withExercise(sessionID, userID, exerciseID, func(a *Active, ex *Exercise) error {
		ex.Sets.AddWorkingSet()
		ex.renumberCompleted()
		a.saver.Observe(exerciseID, payloadOf(ex))
		return nil
	})
}

// AddWarmupSet appends a warmup set to the exercise.
func (c *Controller) AddWarmupSet(sessionID uuid.UUID, userID int, exerciseID uuid.UUID) error {
	return c.withExercise(sessionID, userID, exerciseID, func(a *Active, ex *Exercise) error {
		ex.Sets.AddWarmupSet()
		ex.renumberCompleted()
		a.saver.Observe(exerciseID, payloadOf(ex))
		return nil
	})
}

// DeleteSet removes a set (keeping at least one) and schedules an autosave.
func (c *Controller) DeleteSet(sessionID uuid.UUID, userID int, exerciseID uuid.UUID, setID int) error {
	return c.withExercise(sessionID, userID, exerciseID, func(a *Active, ex *Exercise) error {
		if ex.Sets.DeleteSet(setID) {
			delete(ex.completed, setID)
			ex.renumberCompleted()
			a.saver.Observe(exerciseID, payloadOf(ex))
		}
		return nil
	})
}

// SetNotes replaces the exercise notes and schedules an autosave.
func (c *Controller) SetNotes(sessionID uuid.UUID, userID int, exerciseID uuid.UUID, notes string) error {
	return c.withExercise(sessionID, userID, exerciseID, func(a *Active, ex *Exercise) error {
		ex.Notes = notes
		a.saver.Observe(exerciseID, payloadOf(ex))
		return nil
	})
}

// CompleteSet records a set's completion checkbox. Checking (never
// unchecking) triggers the session's shared rest timer with the exercise's
// configured rest, replacing any countdown already running.
func (c *Controller) CompleteSet(sessionID uuid.UUID, userID int, exerciseID uuid.UUID, setID int, checked bool) error {
	return c.withExercise(sessionID, userID, exerciseID, func(a *Active, ex *Exercise) error {
		found := false
		for _, s := range ex.Sets.Sets() {
			if s.ID == setID {
				found = true
				break
			}
		}
		if !found {
			return apperr.Validation("set", "no set with number %d", setID)
		}

		was := ex.completed[setID]
		ex.completed[setID] = checked
		if checked && !was {
			a.timer.Trigger(ex.Config.RestSeconds)
		}
		a.saver.Observe(exerciseID, payloadOf(ex))
		return nil
	})
}

// SetRest reconfigures one exercise's rest interval, both on the live
// timer and durably.
func (c *Controller) SetRest(ctx context.Context, sessionID uuid.UUID, userID int, exerciseID uuid.UUID, restSeconds int) error {
	if restSeconds <= 0 {
		return apperr.Validation("restSeconds", "must be positive, got %d", restSeconds)
	}
	err := c.withExercise(sessionID, userID, exerciseID, func(a *Active, ex *Exercise) error {
		ex.Config.RestSeconds = restSeconds
		a.timer.SetRest(restSeconds)
		return nil
	})
	if err != nil {
		return err
	}
	if err := c.store.UpdateExerciseRest(ctx, exerciseID, restSeconds); err != nil {
		return apperr.Persistence("update rest", err)
	}
	return nil
}

// Finish completes the session. Finishing is a destructive action: without
// confirmed the call is rejected and the session stays active. Outstanding
// set state is flushed synchronously before the status flips; any
// persistence failure leaves the session active and retryable.
func (c *Controller) Finish(ctx context.Context, sessionID uuid.UUID, userID int, confirmed bool) (*models.WorkoutSession, error) {
	a, err := c.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, apperr.Validation("confirmed", "finishing a session requires confirmation")
	}

	if err := c.flush(ctx, a); err != nil {
		return nil, err
	}

	completedAt := time.Now().UTC()
	if err := c.store.FinishSession(ctx, sessionID, completedAt); err != nil {
		if apperr.IsValidation(err) {
			return nil, err
		}
		return nil, apperr.Persistence("complete session", err)
	}

	a.mu.Lock()
	a.session.Status = models.SessionCompleted
	a.session.CompletedAt = &completedAt
	record := a.session
	a.mu.Unlock()

	c.teardown(sessionID, a)
	c.log.Info("session completed", "session", sessionID, "user", userID)
	return &record, nil
}

// Cancel aborts the session (terminal, user-abort path).
func (c *Controller) Cancel(ctx context.Context, sessionID uuid.UUID, userID int) error {
	a, err := c.Get(sessionID, userID)
	if err != nil {
		return err
	}

	if err := c.store.CancelSession(ctx, sessionID); err != nil {
		if apperr.IsValidation(err) {
			return err
		}
		return apperr.Persistence("cancel session", err)
	}

	a.mu.Lock()
	a.session.Status = models.SessionCancelled
	a.mu.Unlock()

	c.teardown(sessionID, a)
	c.log.Info("session cancelled", "session", sessionID, "user", userID)
	return nil
}

// teardown stops the timer and autosave and deregisters the session. No
// background work continues afterwards.
func (c *Controller) teardown(sessionID uuid.UUID, a *Active) {
	a.timer.Stop()
	a.saver.Close()
	c.mu.Lock()
	delete(c.active, sessionID)
	c.mu.Unlock()
}

// flush writes every exercise's current set state synchronously, bypassing
// the debounce. Used before finishing so the last edits are never lost to
// a cancelled timer.
func (c *Controller) flush(ctx context.Context, a *Active) error {
	a.mu.Lock()
	type item struct {
		id uuid.UUID
		p  autosave.Payload
	}
	items := make([]item, 0, len(a.exercises))
	for _, ex := range a.exercises {
		items = append(items, item{id: ex.Config.ID, p: payloadOf(ex)})
	}
	sessionID := a.session.ID
	a.mu.Unlock()

	fw := c.forwarderFor(sessionID)
	for _, it := range items {
		if err := fw.Forward(ctx, it.id, it.p); err != nil {
			return apperr.Persistence("flush session sets", err)
		}
	}
	return nil
}

func (c *Controller) withExercise(sessionID uuid.UUID, userID int, exerciseID uuid.UUID, fn func(*Active, *Exercise) error) error {
	a, err := c.Get(sessionID, userID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	ex, ok := a.byID[exerciseID]
	if !ok {
		return apperr.Validation("exercise", "not part of this session: %s", exerciseID)
	}
	return fn(a, ex)
}

// forwarderFor adapts the store to the autosave contract for one session.
func (c *Controller) forwarderFor(sessionID uuid.UUID) autosave.Forwarder {
	return autosave.ForwarderFunc(func(ctx context.Context, exerciseID uuid.UUID, p autosave.Payload) error {
		rows := make([]models.SessionSetRow, len(p.Sets))
		for i, s := range p.Sets {
			rows[i] = models.SessionSetRow{
				SessionID:         sessionID,
				RoutineExerciseID: exerciseID,
				SetNumber:         i + 1,
				IsWarmup:          s.IsWarmup,
				Weight:            s.Weight,
				Reps:              s.Reps,
				Completed:         s.Completed,
			}
		}
		if err := c.store.ReplaceSessionSets(ctx, sessionID, exerciseID, rows); err != nil {
			return err
		}
		return c.store.UpdateExerciseNotes(ctx, exerciseID, p.Notes)
	})
}

// payloadOf snapshots an exercise's notes, sets, and completion flags.
// Callers hold the Active mutex.
func payloadOf(ex *Exercise) autosave.Payload {
	list := ex.Sets.Sets()
	snaps := make([]sets.Snapshot, len(list))
	for i, s := range list {
		snaps[i] = sets.Snapshot{
			Weight:    s.Weight,
			Reps:      s.Reps,
			IsWarmup:  s.IsWarmup,
			Completed: ex.completed[s.ID],
		}
	}
	return autosave.Payload{Notes: ex.Notes, Sets: snaps}
}

// renumberCompleted drops completion flags whose display numbers no longer
// exist after a structural mutation re-sequenced the collection.
func (ex *Exercise) renumberCompleted() {
	remapped := make(map[int]bool, len(ex.completed))
	for _, s := range ex.Sets.Sets() {
		if ex.completed[s.ID] {
			remapped[s.ID] = true
		}
	}
	ex.completed = remapped
}

func notesOf(cfg models.RoutineExercise) string {
	if cfg.Notes == nil {
		return ""
	}
	return *cfg.Notes
}
