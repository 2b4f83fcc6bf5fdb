// Package optimistic applies a mutation to a local view before the backend
// confirms it, and reverts the view if the backend rejects it.
//
// Each Perform call records a mutation intent tagged with a per-entity
// sequence number. Only the newest intent for an entity may roll the view
// back; older completions are stale and resolve without touching the view,
// so overlapping mutations on one entity never clobber each other.
package optimistic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kilupskalvis/talentflow/internal/session"
)

// View is the visible snapshot the controller mutates.
type View[E any] interface {
	// Lookup returns the entity with the given id from the current snapshot.
	Lookup(id string) (E, bool)
	// Update atomically replaces the snapshot with fn(snapshot).
	Update(fn func([]E) []E)
}

// Notifier receives success messages.
type Notifier interface {
	Add(message string)
}

// ApplyFunc returns a new snapshot in which entity id carries value.
// It must not modify its input.
type ApplyFunc[E any, V comparable] func(snapshot []E, id string, value V) []E

// ConfirmFunc issues the mutating backend request for an intent.
type ConfirmFunc[V comparable] func(ctx context.Context, in Intent[V]) error

// Intent is a mutation awaiting confirmation.
type Intent[V comparable] struct {
	EntityID string
	Previous V
	Proposed V
	Seq      uint64
}

// Outcome is how a Perform call resolved.
type Outcome int

const (
	// OutcomeSkipped means nothing happened: the entity was missing or
	// already held the proposed value.
	OutcomeSkipped Outcome = iota
	// OutcomeConfirmed means the backend accepted the change.
	OutcomeConfirmed
	// OutcomeRolledBack means the backend rejected the change and the view
	// was reverted.
	OutcomeRolledBack
	// OutcomeSuperseded means the backend rejected the change but a newer
	// intent for the same entity owned the view, so it was left alone.
	OutcomeSuperseded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRolledBack:
		return "rolled back"
	case OutcomeSuperseded:
		return "superseded"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result describes a resolved mutation.
type Result[V comparable] struct {
	Outcome  Outcome
	Previous V
	Proposed V
	Err      error // backend error for rolled back and superseded intents
}

// Pending is a mutation whose confirmation may still be in flight.
type Pending[V comparable] struct {
	done   chan struct{}
	result Result[V]
}

func resolved[V comparable](r Result[V]) *Pending[V] {
	p := &Pending[V]{done: make(chan struct{}), result: r}
	close(p.done)
	return p
}

// Done is closed once the mutation has resolved.
func (p *Pending[V]) Done() <-chan struct{} { return p.done }

// Wait blocks until the mutation resolves and returns its result.
func (p *Pending[V]) Wait() Result[V] {
	<-p.done
	return p.result
}

// Config wires a controller.
type Config[E any, V comparable] struct {
	View     View[E]
	Value    func(E) V      // reads the mutable value from an entity
	Label    func(E) string // names the entity in notifications
	Format   func(V) string // renders values in notifications; defaults to fmt.Sprint
	Notifier Notifier
	Session  session.Source
	Logger   *slog.Logger
}

// entityState tracks the intents in flight for one entity.
type entityState[V comparable] struct {
	latest       uint64 // seq of the newest intent
	confirmed    V      // last value the backend accepted
	confirmedSeq uint64
	inFlight     int
	rolledBack   bool // newest intent failed and reverted the view
}

// Controller runs optimistic mutations against one view.
type Controller[E any, V comparable] struct {
	cfg Config[E, V]

	mu     sync.Mutex
	states map[string]*entityState[V]
	wg     sync.WaitGroup
}

// New creates a controller.
func New[E any, V comparable](cfg Config[E, V]) *Controller[E, V] {
	if cfg.Format == nil {
		cfg.Format = func(v V) string { return fmt.Sprint(v) }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller[E, V]{cfg: cfg, states: make(map[string]*entityState[V])}
}

// Perform proposes value for entity id. The view is updated before Perform
// returns; confirm runs in its own goroutine. The returned Pending resolves
// once confirm has returned and any rollback has been applied.
func (c *Controller[E, V]) Perform(ctx context.Context, id string, proposed V, apply ApplyFunc[E, V], confirm ConfirmFunc[V]) *Pending[V] {
	c.mu.Lock()
	entity, ok := c.cfg.View.Lookup(id)
	if !ok {
		c.mu.Unlock()
		c.cfg.Logger.Debug("optimistic: entity not in view", "id", id)
		return resolved(Result[V]{Outcome: OutcomeSkipped, Proposed: proposed})
	}
	previous := c.cfg.Value(entity)
	if previous == proposed {
		c.mu.Unlock()
		return resolved(Result[V]{Outcome: OutcomeSkipped, Previous: previous, Proposed: proposed})
	}

	st := c.states[id]
	if st == nil {
		st = &entityState[V]{confirmed: previous}
		c.states[id] = st
	}
	st.latest++
	st.inFlight++
	st.rolledBack = false
	in := Intent[V]{EntityID: id, Previous: previous, Proposed: proposed, Seq: st.latest}
	label := c.cfg.Label(entity)

	c.cfg.View.Update(func(s []E) []E { return apply(s, id, proposed) })
	c.mu.Unlock()

	c.cfg.Logger.Debug("optimistic: applied",
		"id", id,
		"seq", in.Seq,
		"previous", c.cfg.Format(previous),
		"proposed", c.cfg.Format(proposed),
	)

	p := &Pending[V]{done: make(chan struct{})}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(p.done)
		err := confirm(ctx, in)
		p.result = c.complete(in, label, apply, err)
	}()
	return p
}

// complete resolves an intent once its confirmation has returned.
func (c *Controller[E, V]) complete(in Intent[V], label string, apply ApplyFunc[E, V], err error) Result[V] {
	c.mu.Lock()
	st := c.states[in.EntityID]
	st.inFlight--
	latest := in.Seq == st.latest

	res := Result[V]{Previous: in.Previous, Proposed: in.Proposed, Err: err}
	switch {
	case err == nil:
		res.Outcome = OutcomeConfirmed
		if in.Seq > st.confirmedSeq {
			st.confirmed = in.Proposed
			st.confirmedSeq = in.Seq
		}
		// The newest intent already failed and reverted to an older value;
		// show what the backend now holds.
		if !latest && st.rolledBack && in.Seq == st.confirmedSeq {
			c.cfg.View.Update(func(s []E) []E { return apply(s, in.EntityID, in.Proposed) })
		}
	case latest:
		res.Outcome = OutcomeRolledBack
		st.rolledBack = true
		rollback := st.confirmed
		c.cfg.View.Update(func(s []E) []E { return apply(s, in.EntityID, rollback) })
	default:
		res.Outcome = OutcomeSuperseded
	}
	if st.inFlight == 0 {
		delete(c.states, in.EntityID)
	}
	c.mu.Unlock()

	switch res.Outcome {
	case OutcomeConfirmed:
		if c.cfg.Notifier != nil {
			c.cfg.Notifier.Add(fmt.Sprintf("%s moved %s from %s to %s",
				c.actor(), label, c.cfg.Format(in.Previous), c.cfg.Format(in.Proposed)))
		}
		c.cfg.Logger.Debug("optimistic: confirmed", "id", in.EntityID, "seq", in.Seq)
	case OutcomeRolledBack:
		c.cfg.Logger.Warn("optimistic: rolled back", "id", in.EntityID, "seq", in.Seq, "error", err)
	case OutcomeSuperseded:
		c.cfg.Logger.Debug("optimistic: stale failure ignored", "id", in.EntityID, "seq", in.Seq, "error", err)
	}
	return res
}

func (c *Controller[E, V]) actor() string {
	if c.cfg.Session == nil {
		return "Someone"
	}
	return c.cfg.Session.Current().Name
}

// Wait blocks until every in-flight confirmation has resolved.
func (c *Controller[E, V]) Wait() {
	c.wg.Wait()
}
