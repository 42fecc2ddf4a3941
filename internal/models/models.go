// Package models holds the shared row and wire types for routines,
// sessions, and the exercise catalog.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a workout session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further transition may leave this status.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// User is a row in the users table. Identity comes from the transport
// layer (tsnet login or the local dev fallback).
type User struct {
	ID          int       `json:"id"`
	Login       string    `json:"login"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Folder groups routines on the dashboard.
type Folder struct {
	ID     uuid.UUID `json:"id"`
	UserID int       `json:"userId"`
	Name   string    `json:"name"`
}

// Exercise is a catalog entry shown in the exercise picker.
type Exercise struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscleGroup"`
	Equipment   string    `json:"equipment"`
}

// Routine is a named, ordered collection of exercises owned by a user.
type Routine struct {
	ID        uuid.UUID  `json:"id"`
	UserID    int        `json:"userId"`
	FolderID  *uuid.UUID `json:"folderId,omitempty"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// RoutineExercise is the durable per-exercise configuration within a
// routine. Weight slices always match their set counts at save time,
// zero-filled when the user left them unset.
type RoutineExercise struct {
	ID             uuid.UUID `json:"id"`
	RoutineID      uuid.UUID `json:"routineId"`
	ExerciseID     uuid.UUID `json:"exerciseId"`
	Position       int       `json:"position"`
	WarmupSets     int       `json:"warmupSets"`
	WarmupReps     *int      `json:"warmupReps"`
	WorkingSets    int       `json:"workingSets"`
	WorkingReps    *int      `json:"workingReps"`
	RestSeconds    int       `json:"restSeconds"`
	WarmupWeights  []float64 `json:"warmupWeights"`
	WorkingWeights []float64 `json:"workingWeights"`
	Notes          *string   `json:"notes,omitempty"`
}

// WorkoutSession is one timed execution of a routine. Created only by the
// session controller's start operation; completed_at is set exactly once.
type WorkoutSession struct {
	ID          uuid.UUID     `json:"id"`
	UserID      int           `json:"userId"`
	RoutineID   uuid.UUID     `json:"routineId"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// SessionSetRow is a performed set recorded during a session. Rows for the
// latest completed session of a routine seed the next session's sets.
type SessionSetRow struct {
	SessionID         uuid.UUID `json:"sessionId"`
	RoutineExerciseID uuid.UUID `json:"routineExerciseId"`
	SetNumber         int       `json:"setNumber"`
	IsWarmup          bool      `json:"isWarmup"`
	Weight            string    `json:"weight"`
	Reps              string    `json:"reps"`
	Completed         bool      `json:"completed"`
	RecordedAt        time.Time `json:"recordedAt"`
}
