package session

import (
	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/models"
	"github.com/jjcxdev/yokd/internal/resttimer"
	"github.com/jjcxdev/yokd/internal/sets"
)

// SetView is one live set plus its completion checkbox.
type SetView struct {
	sets.Set
	Completed bool `json:"completed"`
}

// ExerciseView is the wire shape of one exercise in an active session.
type ExerciseView struct {
	RoutineExerciseID uuid.UUID       `json:"routineExerciseId"`
	Exercise          models.Exercise `json:"exercise"`
	RestSeconds       int             `json:"restSeconds"`
	Notes             string          `json:"notes"`
	Sets              []SetView       `json:"sets"`
	SaveError         string          `json:"saveError,omitempty"`
}

// View is the full wire shape of an active session.
type View struct {
	Session   models.WorkoutSession `json:"session"`
	Exercises []ExerciseView        `json:"exercises"`
	Timer     resttimer.State       `json:"timer"`
}

// View snapshots the session for the API. SaveError surfaces the last
// failed autosave per exercise as a dismissible, retryable notice.
func (a *Active) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := View{Session: a.session, Exercises: []ExerciseView{}, Timer: a.timer.State()}
	for _, ex := range a.exercises {
		ev := ExerciseView{
			RoutineExerciseID: ex.Config.ID,
			Exercise:          ex.Exercise,
			RestSeconds:       ex.Config.RestSeconds,
			Notes:             ex.Notes,
			Sets:              []SetView{},
		}
		for _, s := range ex.Sets.Sets() {
			ev.Sets = append(ev.Sets, SetView{Set: s, Completed: ex.completed[s.ID]})
		}
		if err := a.saver.LastError(ex.Config.ID); err != nil {
			ev.SaveError = err.Error()
		}
		v.Exercises = append(v.Exercises, ev)
	}
	return v
}
