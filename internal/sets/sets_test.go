package sets

import (
	"testing"

	"github.com/jjcxdev/yokd/internal/models"
)

// checkNumbering verifies display numbers are 1..N contiguous with all
// warmups numbered before working sets.
func checkNumbering(t *testing.T, c *Collection) {
	t.Helper()
	seenWorking := false
	for i, s := range c.Sets() {
		if s.ID != i+1 {
			t.Errorf("set %d has number %d, want %d", i, s.ID, i+1)
		}
		if s.IsWarmup && seenWorking {
			t.Errorf("warmup set %d numbered after a working set", s.ID)
		}
		if !s.IsWarmup {
			seenWorking = true
		}
	}
}

func TestAddDeleteNumbering(t *testing.T) {
	c := New([]Set{{}})
	c.AddWorkingSet()
	c.AddWarmupSet()
	c.AddWorkingSet()
	c.AddWarmupSet()
	checkNumbering(t, c)

	if got := c.Len(); got != 5 {
		t.Fatalf("len = %d, want 5", got)
	}
	// Warmups occupy numbers 1 and 2.
	for _, s := range c.Sets()[:2] {
		if !s.IsWarmup {
			t.Errorf("set %d is not a warmup", s.ID)
		}
	}

	if !c.DeleteSet(1) {
		t.Fatal("DeleteSet(1) = false, want true")
	}
	checkNumbering(t, c)
	if got := c.Len(); got != 4 {
		t.Fatalf("len after delete = %d, want 4", got)
	}
}

func TestDeleteLastSetIsNoop(t *testing.T) {
	c := New([]Set{{}})
	if c.DeleteSet(1) {
		t.Error("deleting the sole remaining set should be a no-op")
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestUpdateSetValidation(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		wantErr bool
	}{
		{"valid weight", FieldWeight, "102.5", false},
		{"valid reps", FieldReps, "8", false},
		{"empty clears", FieldWeight, "", false},
		{"negative rejected", FieldWeight, "-5", true},
		{"letters rejected", FieldReps, "8a", true},
		{"double dot rejected", FieldWeight, "1.2.3", true},
		{"unknown field", "tempo", "3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New([]Set{{}})
			err := c.UpdateSet(1, tt.field, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateSet(%q, %q) error = %v, wantErr %v", tt.field, tt.value, err, tt.wantErr)
			}
			if err != nil {
				// Rejected input must not be stored.
				s := c.Sets()[0]
				if s.Weight != "" || s.Reps != "" {
					t.Errorf("rejected value was stored: %+v", s)
				}
			}
		})
	}
}

func TestUpdateSetUnknownID(t *testing.T) {
	c := New([]Set{{}})
	if err := c.UpdateSet(7, FieldWeight, "60"); err == nil {
		t.Error("expected error for unknown set number")
	}
}

func TestReconcilePriorDataWins(t *testing.T) {
	prior := []models.SessionSetRow{
		{Weight: "100", Reps: "8", IsWarmup: false},
	}
	cfg := &models.RoutineExercise{WorkingSets: 3, WorkingWeights: []float64{60, 60, 60}}

	c := Reconcile(prior, cfg)
	got := c.Sets()
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Weight != "100" || got[0].Reps != "8" || got[0].IsWarmup {
		t.Errorf("set = %+v, want weight 100 reps 8 working", got[0])
	}
}

func TestReconcileFromConfiguration(t *testing.T) {
	reps := 10
	cfg := &models.RoutineExercise{
		WorkingSets:    3,
		WorkingReps:    &reps,
		WorkingWeights: []float64{0, 0, 0},
	}

	c := Reconcile(nil, cfg)
	got := c.Sets()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, s := range got {
		if s.IsWarmup {
			t.Errorf("set %d: unexpected warmup", s.ID)
		}
		if s.Reps != "10" {
			t.Errorf("set %d: reps = %q, want %q", s.ID, s.Reps, "10")
		}
		if s.Weight != "0" {
			t.Errorf("set %d: weight = %q, want %q", s.ID, s.Weight, "0")
		}
	}
	checkNumbering(t, c)
}

func TestReconcileWarmupsBeforeWorking(t *testing.T) {
	warmupReps, workingReps := 5, 8
	cfg := &models.RoutineExercise{
		WarmupSets:     2,
		WarmupReps:     &warmupReps,
		WarmupWeights:  []float64{20, 40},
		WorkingSets:    2,
		WorkingReps:    &workingReps,
		WorkingWeights: []float64{60, 60},
	}

	c := Reconcile(nil, cfg)
	got := c.Sets()
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if !got[0].IsWarmup || !got[1].IsWarmup || got[2].IsWarmup || got[3].IsWarmup {
		t.Errorf("warmup ordering wrong: %+v", got)
	}
	if got[1].Weight != "40" {
		t.Errorf("second warmup weight = %q, want %q", got[1].Weight, "40")
	}
	checkNumbering(t, c)
}

func TestReconcileFallback(t *testing.T) {
	c := Reconcile(nil, nil)
	got := c.Sets()
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].IsWarmup || got[0].Weight != "" || got[0].Reps != "" {
		t.Errorf("fallback set = %+v, want one empty working set", got[0])
	}
}

func TestSummary(t *testing.T) {
	c := New([]Set{
		{Weight: "20", Reps: "5", IsWarmup: true},
		{Weight: "60", Reps: "8"},
		{Weight: "", Reps: "8"},
	})

	warmups, workings, warmupReps, workingReps, warmupWeights, workingWeights := c.Summary()
	if warmups != 1 || workings != 2 {
		t.Errorf("counts = %d/%d, want 1/2", warmups, workings)
	}
	if warmupReps == nil || *warmupReps != 5 {
		t.Errorf("warmupReps = %v, want 5", warmupReps)
	}
	if workingReps == nil || *workingReps != 8 {
		t.Errorf("workingReps = %v, want 8", workingReps)
	}
	if len(warmupWeights) != 1 || warmupWeights[0] != 20 {
		t.Errorf("warmupWeights = %v, want [20]", warmupWeights)
	}
	// Unset weight is recorded as zero so the array length matches the count.
	if len(workingWeights) != 2 || workingWeights[0] != 60 || workingWeights[1] != 0 {
		t.Errorf("workingWeights = %v, want [60 0]", workingWeights)
	}
}
