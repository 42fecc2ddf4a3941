// Package resttimer runs the per-session rest countdown: a small state
// machine triggered when a set is marked complete, ticking once a second
// and dispatching best-effort side effects when it reaches zero.
package resttimer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventType identifies a timer event sent to subscribers.
type EventType string

const (
	EventTriggered EventType = "triggered"
	EventTick      EventType = "tick"
	EventCompleted EventType = "completed"
)

// Event is a snapshot of the timer sent to subscribers on every change.
type Event struct {
	Type        EventType `json:"type"`
	RestSeconds int       `json:"restSeconds"`
	Remaining   int       `json:"remaining"`
	At          time.Time `json:"at"`
}

// State is the externally visible timer state.
type State struct {
	RestSeconds int  `json:"restSeconds"`
	Remaining   int  `json:"remaining"`
	IsResting   bool `json:"isResting"`
}

// Effects receives the completion side effects. Implementations are
// best-effort: a returned error is logged, never propagated, and must not
// block for long.
type Effects interface {
	Chime(ctx context.Context) error
	Vibrate(ctx context.Context) error
	Notify(ctx context.Context, message string) error
}

// effectsTimeout bounds the whole completion side-effect dispatch.
const effectsTimeout = 5 * time.Second

// Engine is the countdown state machine for one active session. Only one
// rest period runs at a time: a new trigger replaces the current one.
type Engine struct {
	effects Effects
	log     *slog.Logger
	tick    time.Duration

	mu        sync.Mutex
	stopped   bool
	resting   bool
	rest      int // currently configured rest, applied on the next cycle
	initial   int // rest captured when the countdown started
	remaining int
	cancel    chan struct{}
	subs      map[chan Event]struct{}
}

// New creates an idle engine. A non-positive tick defaults to one second.
func New(effects Effects, tick time.Duration, log *slog.Logger) *Engine {
	if tick <= 0 {
		tick = time.Second
	}
	return &Engine{
		effects: effects,
		log:     log,
		tick:    tick,
		subs:    make(map[chan Event]struct{}),
	}
}

// Trigger starts a rest countdown of restSeconds, cancelling any countdown
// already running (including one started by a different exercise).
func (e *Engine) Trigger(restSeconds int) {
	if restSeconds <= 0 {
		return
	}
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if e.cancel != nil {
		close(e.cancel)
	}
	e.rest = restSeconds
	e.initial = restSeconds
	e.remaining = restSeconds
	e.resting = true
	cancel := make(chan struct{})
	e.cancel = cancel
	e.broadcastLocked(EventTriggered)
	e.mu.Unlock()

	go e.run(cancel)
}

// SetRest updates the configured rest time. While resting, the change
// applies on the next cycle, except when the countdown is still at its
// initial full value, in which case the remaining time snaps immediately.
func (e *Engine) SetRest(restSeconds int) {
	if restSeconds <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rest = restSeconds
	if !e.resting {
		e.remaining = restSeconds
		return
	}
	if e.remaining == e.initial {
		e.initial = restSeconds
		e.remaining = restSeconds
		e.broadcastLocked(EventTick)
	}
}

// State returns the current timer state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{RestSeconds: e.rest, Remaining: e.remaining, IsResting: e.resting}
}

// Subscribe registers an event channel. The returned func unsubscribes;
// events are dropped rather than block a slow subscriber. Subscribing to
// a stopped engine returns an already closed channel.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	return ch, func() {
		e.mu.Lock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
}

// Stop halts any running countdown and closes all subscriber channels. No
// tick or effect fires after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	e.resting = false
	if e.cancel != nil {
		close(e.cancel)
		e.cancel = nil
	}
	for ch := range e.subs {
		delete(e.subs, ch)
		close(ch)
	}
}

func (e *Engine) run(cancel chan struct{}) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			if done := e.step(cancel); done {
				return
			}
		}
	}
}

// step decrements the countdown. It returns true when the countdown ended
// (completed or superseded).
func (e *Engine) step(cancel chan struct{}) bool {
	e.mu.Lock()
	if e.stopped || e.cancel != cancel {
		e.mu.Unlock()
		return true
	}
	e.remaining--
	if e.remaining > 0 {
		e.broadcastLocked(EventTick)
		e.mu.Unlock()
		return false
	}

	// Reached zero: back to idle, remaining reset to the current rest
	// value (not the one captured at trigger time).
	e.resting = false
	e.remaining = e.rest
	e.cancel = nil
	e.broadcastLocked(EventCompleted)
	e.mu.Unlock()

	go e.dispatchEffects()
	return true
}

// dispatchEffects fires the completion side effects. Every failure is
// logged and swallowed; platform capabilities degrade silently.
func (e *Engine) dispatchEffects() {
	if e.effects == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), effectsTimeout)
	defer cancel()

	if err := e.effects.Chime(ctx); err != nil {
		e.log.Warn("rest timer chime failed", "error", err)
	}
	if err := e.effects.Vibrate(ctx); err != nil {
		e.log.Warn("rest timer vibration failed", "error", err)
	}
	if err := e.effects.Notify(ctx, "Rest complete"); err != nil {
		e.log.Warn("rest timer notification failed", "error", err)
	}
}

func (e *Engine) broadcastLocked(t EventType) {
	ev := Event{Type: t, RestSeconds: e.rest, Remaining: e.remaining, At: time.Now()}
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
