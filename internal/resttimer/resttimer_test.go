package resttimer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testTick = 10 * time.Millisecond

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingEffects counts dispatches and can simulate platform failures.
type countingEffects struct {
	chimes  atomic.Int64
	notifys atomic.Int64
	fail    bool
}

func (c *countingEffects) Chime(context.Context) error {
	c.chimes.Add(1)
	if c.fail {
		return errors.New("autoplay blocked")
	}
	return nil
}

func (c *countingEffects) Vibrate(context.Context) error {
	if c.fail {
		return errors.New("no vibration support")
	}
	return nil
}

func (c *countingEffects) Notify(context.Context, string) error {
	c.notifys.Add(1)
	if c.fail {
		return errors.New("permission denied")
	}
	return nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestCountdownCompletes(t *testing.T) {
	fx := &countingEffects{}
	e := New(fx, testTick, testLogger())
	defer e.Stop()

	e.Trigger(3)
	st := e.State()
	if !st.IsResting || st.Remaining != 3 {
		t.Fatalf("state after trigger = %+v, want resting with remaining 3", st)
	}

	waitFor(t, time.Second, func() bool { return !e.State().IsResting })

	st = e.State()
	// Back to idle with remaining reset to the configured rest.
	if st.Remaining != 3 {
		t.Errorf("remaining after completion = %d, want 3", st.Remaining)
	}
	waitFor(t, time.Second, func() bool { return fx.chimes.Load() == 1 })
	if fx.notifys.Load() != 1 {
		t.Errorf("notifys = %d, want 1", fx.notifys.Load())
	}
}

func TestRetriggerReplacesCountdown(t *testing.T) {
	e := New(&countingEffects{}, time.Hour, testLogger())
	defer e.Stop()

	e.Trigger(90)
	e.Trigger(30)

	st := e.State()
	if st.Remaining != 30 || st.RestSeconds != 30 {
		t.Errorf("state after retrigger = %+v, want remaining 30", st)
	}
}

func TestSetRestSnapsAtInitialValue(t *testing.T) {
	// No ticks can elapse: the countdown is still at its initial value, so
	// the change snaps immediately.
	e := New(&countingEffects{}, time.Hour, testLogger())
	defer e.Stop()

	e.Trigger(100)
	e.SetRest(40)
	if st := e.State(); st.Remaining != 40 {
		t.Fatalf("remaining = %d, want immediate snap to 40", st.Remaining)
	}
}

func TestSetRestMidCountdownDefersToNextCycle(t *testing.T) {
	e := New(&countingEffects{}, testTick, testLogger())
	defer e.Stop()

	e.Trigger(30)
	waitFor(t, time.Second, func() bool { return e.State().Remaining < 30 })

	// The running countdown keeps its remaining time; only the configured
	// rest changes.
	e.SetRest(90)
	st := e.State()
	if st.Remaining >= 30 {
		t.Errorf("remaining = %d, want current countdown untouched", st.Remaining)
	}
	if st.RestSeconds != 90 {
		t.Errorf("rest = %d, want 90", st.RestSeconds)
	}

	// The new rest takes effect once this cycle ends.
	waitFor(t, time.Second, func() bool { return !e.State().IsResting })
	if got := e.State().Remaining; got != 90 {
		t.Errorf("remaining after completion = %d, want 90", got)
	}
}

func TestSetRestWhileIdle(t *testing.T) {
	e := New(&countingEffects{}, testTick, testLogger())
	defer e.Stop()

	e.SetRest(120)
	st := e.State()
	if st.IsResting || st.Remaining != 120 {
		t.Errorf("state = %+v, want idle with remaining 120", st)
	}
}

func TestEffectFailureDoesNotBlockStateMachine(t *testing.T) {
	fx := &countingEffects{fail: true}
	e := New(fx, testTick, testLogger())
	defer e.Stop()

	e.Trigger(1)
	waitFor(t, time.Second, func() bool { return !e.State().IsResting })

	// Failed effects leave the engine usable.
	e.Trigger(2)
	if st := e.State(); !st.IsResting || st.Remaining != 2 {
		t.Errorf("state after re-trigger = %+v, want resting with remaining 2", st)
	}
}

func TestSubscribeReceivesLifecycleEvents(t *testing.T) {
	e := New(&countingEffects{}, testTick, testLogger())
	defer e.Stop()

	ch, unsub := e.Subscribe()
	defer unsub()

	e.Trigger(2)

	var got []EventType
	deadline := time.After(time.Second)
	for len(got) < 3 {
		select {
		case ev := <-ch:
			got = append(got, ev.Type)
		case <-deadline:
			t.Fatalf("timed out, events so far: %v", got)
		}
	}

	if got[0] != EventTriggered {
		t.Errorf("first event = %q, want %q", got[0], EventTriggered)
	}
	if got[len(got)-1] == EventTriggered {
		t.Errorf("expected tick/completed events after trigger, got %v", got)
	}
}

func TestStopHaltsEverything(t *testing.T) {
	e := New(&countingEffects{}, testTick, testLogger())
	ch, _ := e.Subscribe()

	e.Trigger(1000)
	e.Stop()

	// Subscriber channel closes and no further ticks arrive.
	waitFor(t, time.Second, func() bool {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	})

	if st := e.State(); st.IsResting {
		t.Error("engine still resting after Stop")
	}
}

func TestSubscribeAfterStop(t *testing.T) {
	e := New(&countingEffects{}, testTick, testLogger())
	e.Stop()

	ch, unsub := e.Subscribe()
	defer unsub()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received an event from a stopped engine")
		}
	case <-time.After(time.Second):
		t.Fatal("channel from stopped engine never closed")
	}
}

func TestWebhookEffectsNotify(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fx := NewWebhookEffects(srv.URL, testLogger())
	if err := fx.Notify(context.Background(), "Rest complete"); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("webhook hits = %d, want 1", hits.Load())
	}

	// A failing webhook surfaces as an error for the engine to log.
	srv.Close()
	if err := fx.Notify(context.Background(), "Rest complete"); err == nil {
		t.Error("expected error after server closed")
	}
}
