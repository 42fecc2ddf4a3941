// Package draft owns the routine under construction: the ordered exercise
// list, each exercise's live set collection and notes, and the durable
// cache that lets a draft survive a restart or a trip to the exercise
// picker. Nothing here touches the routine store until an explicit save.
package draft

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/apperr"
	"github.com/jjcxdev/yokd/internal/models"
	"github.com/jjcxdev/yokd/internal/sets"
)

// ExerciseInput is one exercise of the batch handed to the routine store
// on save.
type ExerciseInput struct {
	ExerciseID uuid.UUID
	Notes      string
	Sets       []sets.Set
}

// RoutineCreator is the external persistence contract consumed by Save.
// The collaborator does not guarantee idempotency; callers gate duplicate
// submission.
type RoutineCreator interface {
	CreateRoutine(ctx context.Context, userID int, name string, folderID *uuid.UUID, exercises []ExerciseInput) (uuid.UUID, error)
}

// Exercise is one entry of the draft list. Key is a stable local identity
// used only for list ordering across edits, never stored.
type Exercise struct {
	Key      uuid.UUID
	Exercise models.Exercise
	Notes    string
	Sets     *sets.Collection
}

// State is a read-only snapshot of the draft for handlers.
type State struct {
	Name      string          `json:"name"`
	FolderID  *uuid.UUID      `json:"folderId,omitempty"`
	Exercises []ExerciseState `json:"exercises"`
}

// ExerciseState is the view of one draft exercise.
type ExerciseState struct {
	Key      uuid.UUID       `json:"key"`
	Exercise models.Exercise `json:"exercise"`
	Notes    string          `json:"notes"`
	Sets     []sets.Set      `json:"sets"`
}

// Store holds one user's in-progress routine. All methods are safe for
// concurrent use; mutation is serialized under one mutex so every cache
// write carries the complete draft.
type Store struct {
	userID int
	cache  *Cache
	log    *slog.Logger

	mu        sync.Mutex
	name      string
	folderID  *uuid.UUID
	exercises []*Exercise
}

// NewStore creates the store for a user, rehydrating from the cache if a
// draft was left behind. The cache is read exactly once, here; a read or
// parse failure means "no draft present".
func NewStore(userID int, cache *Cache, log *slog.Logger) *Store {
	s := &Store{userID: userID, cache: cache, log: log}

	payload, ok, err := cache.Load(userID)
	if err != nil {
		log.Warn("draft cache read failed", "user", userID, "error", err)
		return s
	}
	if !ok {
		return s
	}

	var blob draftBlob
	if err := json.Unmarshal(payload, &blob); err != nil {
		log.Warn("draft cache parse failed, discarding", "user", userID, "error", err)
		return s
	}

	s.name = blob.Name
	s.folderID = blob.FolderID
	for _, eb := range blob.Exercises {
		s.exercises = append(s.exercises, &Exercise{
			Key:      eb.Key,
			Exercise: eb.Exercise,
			Notes:    eb.Notes,
			Sets:     sets.New(eb.Sets),
		})
	}
	return s
}

// AddExercises merges the picker selection into the draft: set union by
// exercise identity, first occurrence wins. New entries start with the
// fallback set collection and a fresh local key.
func (s *Store) AddExercises(selection []models.Exercise) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[uuid.UUID]bool, len(s.exercises))
	for _, e := range s.exercises {
		present[e.Exercise.ID] = true
	}

	added := false
	for _, ex := range selection {
		if present[ex.ID] {
			continue
		}
		present[ex.ID] = true
		s.exercises = append(s.exercises, &Exercise{
			Key:      uuid.New(),
			Exercise: ex,
			Sets:     sets.Reconcile(nil, nil),
		})
		added = true
	}
	if added {
		s.writeCacheLocked()
	}
}

// RemoveExercise drops the exercise and its set data from the draft.
func (s *Store) RemoveExercise(exerciseID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.exercises {
		if e.Exercise.ID == exerciseID {
			s.exercises = append(s.exercises[:i], s.exercises[i+1:]...)
			s.writeCacheLocked()
			return true
		}
	}
	return false
}

// Rename sets the routine name. A pure field update: no persistence.
func (s *Store) Rename(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// SetFolder sets the target folder. A pure field update: no persistence.
func (s *Store) SetFolder(folderID *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folderID = folderID
}

// SetNotes replaces the notes of one draft exercise.
func (s *Store) SetNotes(exerciseID uuid.UUID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.findLocked(exerciseID)
	if e == nil {
		return apperr.Validation("exercise", "not in draft: %s", exerciseID)
	}
	e.Notes = notes
	s.writeCacheLocked()
	return nil
}

// AddWorkingSet appends a working set to the exercise's collection.
func (s *Store) AddWorkingSet(exerciseID uuid.UUID) error {
	return s.withCollection(exerciseID, func(c *sets.Collection) error {
		c.AddWorkingSet()
		return nil
	})
}

// AddWarmupSet appends a warmup set to the exercise's collection.
func (s *Store) AddWarmupSet(exerciseID uuid.UUID) error {
	return s.withCollection(exerciseID, func(c *sets.Collection) error {
		c.AddWarmupSet()
		return nil
	})
}

// UpdateSet updates one field of one set.
func (s *Store) UpdateSet(exerciseID uuid.UUID, setID int, field, value string) error {
	return s.withCollection(exerciseID, func(c *sets.Collection) error {
		return c.UpdateSet(setID, field, value)
	})
}

// DeleteSet removes one set, keeping at least one in the collection.
func (s *Store) DeleteSet(exerciseID uuid.UUID, setID int) error {
	return s.withCollection(exerciseID, func(c *sets.Collection) error {
		c.DeleteSet(setID)
		return nil
	})
}

// State returns a snapshot of the draft.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{Name: s.name, FolderID: s.folderID, Exercises: []ExerciseState{}}
	for _, e := range s.exercises {
		st.Exercises = append(st.Exercises, ExerciseState{
			Key:      e.Key,
			Exercise: e.Exercise,
			Notes:    e.Notes,
			Sets:     e.Sets.Sets(),
		})
	}
	return st
}

// Save validates the draft and forwards the batch to the routine store.
// On success the cache is cleared and the draft reset; on failure the
// draft is preserved unchanged so the user can retry.
func (s *Store) Save(ctx context.Context, creator RoutineCreator) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.name == "" {
		return uuid.Nil, apperr.Validation("name", "routine name is required")
	}
	if len(s.exercises) == 0 {
		return uuid.Nil, apperr.Validation("exercises", "at least one exercise is required")
	}

	inputs := make([]ExerciseInput, len(s.exercises))
	for i, e := range s.exercises {
		inputs[i] = ExerciseInput{
			ExerciseID: e.Exercise.ID,
			Notes:      e.Notes,
			Sets:       e.Sets.Sets(),
		}
	}

	routineID, err := creator.CreateRoutine(ctx, s.userID, s.name, s.folderID, inputs)
	if err != nil {
		return uuid.Nil, apperr.Persistence("create routine", err)
	}

	s.resetLocked()
	return routineID, nil
}

// Cancel discards the draft and clears the cache unconditionally.
func (s *Store) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Store) withCollection(exerciseID uuid.UUID, fn func(*sets.Collection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.findLocked(exerciseID)
	if e == nil {
		return apperr.Validation("exercise", "not in draft: %s", exerciseID)
	}
	if err := fn(e.Sets); err != nil {
		return err
	}
	s.writeCacheLocked()
	return nil
}

func (s *Store) findLocked(exerciseID uuid.UUID) *Exercise {
	for _, e := range s.exercises {
		if e.Exercise.ID == exerciseID {
			return e
		}
	}
	return nil
}

func (s *Store) resetLocked() {
	s.name = ""
	s.folderID = nil
	s.exercises = nil
	if err := s.cache.Clear(s.userID); err != nil {
		s.log.Warn("draft cache clear failed", "user", s.userID, "error", err)
	}
}

type draftBlob struct {
	Name      string         `json:"name"`
	FolderID  *uuid.UUID     `json:"folderId,omitempty"`
	Exercises []exerciseBlob `json:"exercises"`
}

type exerciseBlob struct {
	Key      uuid.UUID       `json:"key"`
	Exercise models.Exercise `json:"exercise"`
	Notes    string          `json:"notes"`
	Sets     []sets.Set      `json:"sets"`
}

// writeCacheLocked overwrites the user's cache slot with the complete
// current draft. Never a partial patch.
func (s *Store) writeCacheLocked() {
	blob := draftBlob{Name: s.name, FolderID: s.folderID}
	for _, e := range s.exercises {
		blob.Exercises = append(blob.Exercises, exerciseBlob{
			Key:      e.Key,
			Exercise: e.Exercise,
			Notes:    e.Notes,
			Sets:     e.Sets.Sets(),
		})
	}

	payload, err := json.Marshal(blob)
	if err != nil {
		s.log.Warn("draft serialize failed", "user", s.userID, "error", err)
		return
	}
	if err := s.cache.Store(s.userID, payload); err != nil {
		s.log.Warn("draft cache write failed", "user", s.userID, "error", err)
	}
}

// Manager hands out one draft store per user, rehydrating lazily.
type Manager struct {
	cache *Cache
	log   *slog.Logger

	mu     sync.Mutex
	stores map[int]*Store
}

// NewManager creates a manager over the given cache.
func NewManager(cache *Cache, log *slog.Logger) *Manager {
	return &Manager{cache: cache, log: log, stores: make(map[int]*Store)}
}

// Get returns the user's draft store, creating (and rehydrating) it on
// first use.
func (m *Manager) Get(userID int) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stores[userID]
	if !ok {
		st = NewStore(userID, m.cache, m.log)
		m.stores[userID] = st
	}
	return st
}
