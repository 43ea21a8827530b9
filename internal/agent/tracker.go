// Package agent tracks the generation worker's progress and starts new
// generation runs.
package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell/blogmind/pkg/logging"
)

// State is the generation worker's coarse state
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Valid reports whether s is a known state
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateRunning, StateCompleted, StateError:
		return true
	}
	return false
}

// Status is the last reported progress of the generation worker
type Status struct {
	State      State      `json:"status"`
	Node       string     `json:"node"`
	Topic      string     `json:"topic"`
	LastUpdate *time.Time `json:"lastUpdate"`
}

// merge applies an update to prev. An empty state or topic keeps the
// previous value, the node is always replaced and idle clears the topic.
func merge(prev, update Status, now time.Time) Status {
	next := Status{
		State: prev.State,
		Node:  update.Node,
		Topic: prev.Topic,
	}
	if update.State != "" {
		next.State = update.State
	}
	if update.Topic != "" {
		next.Topic = update.Topic
	}
	if update.State == StateIdle {
		next.Topic = ""
	}
	next.LastUpdate = &now
	return next
}

type update struct {
	status  Status
	applied chan struct{}
}

// ErrClosed is returned by Update after Close
var ErrClosed = errors.New("agent status tracker closed")

// Tracker owns the status record. Updates are applied in arrival order by a
// single goroutine and readers see whole snapshots.
type Tracker struct {
	updates  chan update
	snapshot atomic.Pointer[Status]
	now      func() time.Time
	logger   *zap.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewTracker creates a tracker and starts its owner goroutine
func NewTracker() *Tracker {
	t := &Tracker{
		updates: make(chan update),
		now:     time.Now,
		logger:  logging.WithComponent("agent-tracker"),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	t.snapshot.Store(&Status{State: StateIdle})
	go t.run()
	return t
}

func (t *Tracker) run() {
	defer close(t.done)
	for {
		select {
		case u := <-t.updates:
			t.apply(u.status)
			close(u.applied)
		case <-t.stop:
			return
		}
	}
}

func (t *Tracker) apply(status Status) {
	next := merge(*t.snapshot.Load(), status, t.now().UTC())
	t.snapshot.Store(&next)
	t.logger.Debug("Agent status updated",
		zap.String("status", string(next.State)),
		zap.String("node", next.Node),
		zap.String("topic", next.Topic))
}

// Update applies a status report and returns once readers can observe it
func (t *Tracker) Update(ctx context.Context, status Status) error {
	u := update{status: status, applied: make(chan struct{})}

	select {
	case t.updates <- u:
	case <-t.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-u.applied
	return nil
}

// Snapshot returns the latest status. LastUpdate is nil until the first
// update has been applied.
func (t *Tracker) Snapshot() Status {
	return *t.snapshot.Load()
}

// Close stops the owner goroutine
func (t *Tracker) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}
