// Package autosave coalesces per-exercise edits and forwards only the
// latest state to the persistence layer after a quiet period.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jjcxdev/yokd/internal/sets"
)

// DefaultQuietPeriod is the debounce window applied to each exercise.
const DefaultQuietPeriod = 500 * time.Millisecond

// forwardTimeout bounds a single persistence call.
const forwardTimeout = 10 * time.Second

// Payload is the normalized per-exercise state handed to the forwarder.
type Payload struct {
	Notes string
	Sets  []sets.Snapshot
}

// Forwarder persists the latest payload for an exercise. Persistence is
// idempotent last-write-wins per exercise.
type Forwarder interface {
	Forward(ctx context.Context, exerciseID uuid.UUID, p Payload) error
}

// ForwarderFunc adapts a function to the Forwarder interface.
type ForwarderFunc func(ctx context.Context, exerciseID uuid.UUID, p Payload) error

func (f ForwarderFunc) Forward(ctx context.Context, exerciseID uuid.UUID, p Payload) error {
	return f(ctx, exerciseID, p)
}

type pending struct {
	timer   *time.Timer
	payload Payload
	seq     uint64
}

// Controller debounces change events per exercise. At most one coalesced
// forward per quiet period reaches the forwarder, always carrying the most
// recent state.
type Controller struct {
	fw    Forwarder
	quiet time.Duration
	log   *slog.Logger

	mu        sync.Mutex
	closed    bool
	seq       uint64
	pending   map[uuid.UUID]*pending
	persisted map[uuid.UUID]Payload
	forwarded map[uuid.UUID]uint64
	lastErr   map[uuid.UUID]error
}

// New creates a controller forwarding through fw after quiet of inactivity.
// A non-positive quiet falls back to DefaultQuietPeriod.
func New(fw Forwarder, quiet time.Duration, log *slog.Logger) *Controller {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Controller{
		fw:        fw,
		quiet:     quiet,
		log:       log,
		pending:   make(map[uuid.UUID]*pending),
		persisted: make(map[uuid.UUID]Payload),
		forwarded: make(map[uuid.UUID]uint64),
		lastErr:   make(map[uuid.UUID]error),
	}
}

// Prime records p as the last known persisted state for the exercise
// without scheduling a forward. Called when a card is first initialized so
// that rendering already-persisted state never triggers a write.
func (c *Controller) Prime(exerciseID uuid.UUID, p Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persisted[exerciseID] = p
}

// Observe registers a change event. The exercise's debounce window restarts
// with the new payload; a payload structurally equal to the last persisted
// state cancels any pending forward instead.
func (c *Controller) Observe(exerciseID uuid.UUID, p Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if last, ok := c.persisted[exerciseID]; ok && payloadEqual(last, p) {
		if pd, ok := c.pending[exerciseID]; ok {
			pd.timer.Stop()
			delete(c.pending, exerciseID)
		}
		return
	}

	c.seq++
	seq := c.seq
	if pd, ok := c.pending[exerciseID]; ok {
		// The old timer's callback captured the old seq, so a Reset would
		// fire a callback that no longer matches. Arm a fresh one instead.
		pd.timer.Stop()
		pd.payload = p
		pd.seq = seq
		pd.timer = time.AfterFunc(c.quiet, func() { c.fire(exerciseID, seq) })
		return
	}

	pd := &pending{payload: p, seq: seq}
	pd.timer = time.AfterFunc(c.quiet, func() { c.fire(exerciseID, seq) })
	c.pending[exerciseID] = pd
}

// LastError returns the most recent forward failure for the exercise, or
// nil. It is cleared by the next successful forward.
func (c *Controller) LastError(exerciseID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr[exerciseID]
}

// Close cancels every pending debounce timer without forwarding. No timer
// callback runs after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, pd := range c.pending {
		pd.timer.Stop()
		delete(c.pending, id)
	}
}

func (c *Controller) fire(exerciseID uuid.UUID, seq uint64) {
	c.mu.Lock()
	pd, ok := c.pending[exerciseID]
	if !ok || pd.seq != seq || c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.pending, exerciseID)
	payload := pd.payload
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
	defer cancel()
	err := c.fw.Forward(ctx, exerciseID, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Warn("autosave forward failed", "exercise", exerciseID, "error", err)
		c.lastErr[exerciseID] = err
		return
	}
	// An older completion must not overwrite the effect of a newer one.
	if seq >= c.forwarded[exerciseID] {
		c.forwarded[exerciseID] = seq
		c.persisted[exerciseID] = payload
		delete(c.lastErr, exerciseID)
	}
}

func payloadEqual(a, b Payload) bool {
	if a.Notes != b.Notes || len(a.Sets) != len(b.Sets) {
		return false
	}
	for i := range a.Sets {
		if a.Sets[i] != b.Sets[i] {
			return false
		}
	}
	return true
}
