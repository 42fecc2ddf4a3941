// Package sets models the live, editable collection of warmup and working
// sets for one exercise. A Collection is the in-memory projection of a
// saved RoutineExercise configuration (or of the previous session's
// performance) while the user edits it.
package sets

import (
	"regexp"
	"strconv"

	"github.com/jjcxdev/yokd/internal/apperr"
	"github.com/jjcxdev/yokd/internal/models"
)

// Field names accepted by UpdateSet.
const (
	FieldWeight = "weight"
	FieldReps   = "reps"
)

// decimalPattern matches unsigned decimal input. Empty means "unset".
var decimalPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// Set is one warmup or working set. ID is the display number within the
// collection, not a durable key; it is reassigned after every structural
// mutation so numbering stays contiguous.
type Set struct {
	ID       int    `json:"id"`
	Weight   string `json:"weight"`
	Reps     string `json:"reps"`
	IsWarmup bool   `json:"isWarmup"`
}

// Snapshot is a Set stripped of its local identity, used for structural
// equality when deciding whether anything actually changed. Completed is
// only meaningful during a session; builder snapshots leave it false.
type Snapshot struct {
	Weight    string `json:"weight"`
	Reps      string `json:"reps"`
	IsWarmup  bool   `json:"isWarmup"`
	Completed bool   `json:"completed"`
}

// Collection is an ordered list of sets, warmups numbered before working
// sets. The zero value is empty; most callers construct one via Reconcile.
type Collection struct {
	sets []Set
}

// New returns a collection seeded with the given sets, renumbered.
func New(initial []Set) *Collection {
	c := &Collection{sets: append([]Set(nil), initial...)}
	c.renumber()
	return c
}

// Sets returns the sets in display order. The slice is a copy.
func (c *Collection) Sets() []Set {
	return append([]Set(nil), c.sets...)
}

// Len returns the number of sets.
func (c *Collection) Len() int { return len(c.sets) }

// AddWorkingSet appends an empty working set and returns it.
func (c *Collection) AddWorkingSet() Set {
	c.sets = append(c.sets, Set{})
	c.renumber()
	return c.sets[len(c.sets)-1]
}

// AddWarmupSet appends an empty warmup set and returns it. Warmups are
// always ordered (and numbered) before working sets.
func (c *Collection) AddWarmupSet() Set {
	idx := c.warmupCount()
	c.sets = append(c.sets, Set{})
	copy(c.sets[idx+1:], c.sets[idx:])
	c.sets[idx] = Set{IsWarmup: true}
	c.renumber()
	return c.sets[idx]
}

// UpdateSet sets the weight or reps of the set with the given display
// number. Values must match the unsigned decimal pattern; empty clears the
// field. Invalid input is rejected and nothing is stored.
func (c *Collection) UpdateSet(id int, field, value string) error {
	if !decimalPattern.MatchString(value) {
		return apperr.Validation(field, "must be an unsigned decimal, got %q", value)
	}
	for i := range c.sets {
		if c.sets[i].ID != id {
			continue
		}
		switch field {
		case FieldWeight:
			c.sets[i].Weight = value
		case FieldReps:
			c.sets[i].Reps = value
		default:
			return apperr.Validation("field", "unknown field %q", field)
		}
		return nil
	}
	return apperr.Validation("set", "no set with number %d", id)
}

// DeleteSet removes the set with the given display number and renumbers
// the remainder. Deleting the last remaining set is a no-op; it reports
// whether a set was removed.
func (c *Collection) DeleteSet(id int) bool {
	if len(c.sets) <= 1 {
		return false
	}
	for i := range c.sets {
		if c.sets[i].ID == id {
			c.sets = append(c.sets[:i], c.sets[i+1:]...)
			c.renumber()
			return true
		}
	}
	return false
}

// Snapshot returns the sets stripped of display numbers, for structural
// comparison against the last persisted state.
func (c *Collection) Snapshot() []Snapshot {
	out := make([]Snapshot, len(c.sets))
	for i, s := range c.sets {
		out[i] = Snapshot{Weight: s.Weight, Reps: s.Reps, IsWarmup: s.IsWarmup}
	}
	return out
}

// Summary condenses the collection back into the durable configuration
// shape: set counts, per-set weight arrays (unset weights become zero),
// and a representative rep target taken from the first set that has one.
func (c *Collection) Summary() (warmupSets, workingSets int, warmupReps, workingReps *int, warmupWeights, workingWeights []float64) {
	return Summarize(c.sets)
}

// Summarize condenses an ordered set list the same way Summary does.
func Summarize(list []Set) (warmupSets, workingSets int, warmupReps, workingReps *int, warmupWeights, workingWeights []float64) {
	warmupWeights = []float64{}
	workingWeights = []float64{}
	for _, s := range list {
		w, _ := strconv.ParseFloat(s.Weight, 64)
		if s.IsWarmup {
			warmupSets++
			warmupWeights = append(warmupWeights, w)
			if warmupReps == nil {
				if r, err := strconv.Atoi(s.Reps); err == nil {
					reps := r
					warmupReps = &reps
				}
			}
		} else {
			workingSets++
			workingWeights = append(workingWeights, w)
			if workingReps == nil {
				if r, err := strconv.Atoi(s.Reps); err == nil {
					reps := r
					workingReps = &reps
				}
			}
		}
	}
	return
}

func (c *Collection) warmupCount() int {
	n := 0
	for _, s := range c.sets {
		if s.IsWarmup {
			n++
		}
	}
	return n
}

// renumber restores the warmups-before-working order and assigns display
// numbers 1..N.
func (c *Collection) renumber() {
	ordered := make([]Set, 0, len(c.sets))
	for _, s := range c.sets {
		if s.IsWarmup {
			ordered = append(ordered, s)
		}
	}
	for _, s := range c.sets {
		if !s.IsWarmup {
			ordered = append(ordered, s)
		}
	}
	for i := range ordered {
		ordered[i].ID = i + 1
	}
	c.sets = ordered
}

// Reconcile builds the initial collection for an exercise card. Non-empty
// prior-session data wins; otherwise the saved configuration is expanded
// into empty-progress sets; with neither, a single blank working set.
func Reconcile(prior []models.SessionSetRow, cfg *models.RoutineExercise) *Collection {
	if len(prior) > 0 {
		initial := make([]Set, len(prior))
		for i, p := range prior {
			initial[i] = Set{Weight: p.Weight, Reps: p.Reps, IsWarmup: p.IsWarmup}
		}
		return New(initial)
	}

	if cfg != nil && cfg.WarmupSets+cfg.WorkingSets > 0 {
		var initial []Set
		for i := 0; i < cfg.WarmupSets; i++ {
			initial = append(initial, Set{
				Weight:   weightAt(cfg.WarmupWeights, i),
				Reps:     repsString(cfg.WarmupReps),
				IsWarmup: true,
			})
		}
		for i := 0; i < cfg.WorkingSets; i++ {
			initial = append(initial, Set{
				Weight: weightAt(cfg.WorkingWeights, i),
				Reps:   repsString(cfg.WorkingReps),
			})
		}
		return New(initial)
	}

	return New([]Set{{}})
}

func weightAt(weights []float64, i int) string {
	if i >= len(weights) {
		return "0"
	}
	return strconv.FormatFloat(weights[i], 'f', -1, 64)
}

func repsString(reps *int) string {
	if reps == nil {
		return ""
	}
	return strconv.Itoa(*reps)
}
