// Package view holds the client-side state of the job list and the candidate
// board, and turns user gestures into optimistic mutations.
package view

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/optimistic"
	"github.com/kilupskalvis/talentflow/internal/session"
)

// ErrReadOnly is returned when a read-only account attempts a gesture.
var ErrReadOnly = errors.New("read-only account cannot make changes")

// ErrNotOrderSorted is returned when a job is dropped into a list whose
// display position does not follow job order.
var ErrNotOrderSorted = errors.New("jobs can only be reordered in a list sorted by order")

// Deps are the collaborators shared by the views.
type Deps struct {
	Client   api.Client
	Session  *session.Session
	Notifier optimistic.Notifier
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) canEdit() bool {
	return d.Session != nil && d.Session.Current().CanEdit()
}

// Collection is an ordered snapshot of entities. Safe for concurrent use.
type Collection[E any] struct {
	mu    sync.RWMutex
	items []E
	id    func(E) string
}

// NewCollection returns a collection keyed by id.
func NewCollection[E any](id func(E) string, items []E) *Collection[E] {
	c := &Collection[E]{id: id}
	c.Replace(items)
	return c
}

// Lookup finds an entity by id.
func (c *Collection[E]) Lookup(id string) (E, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if c.id(it) == id {
			return it, true
		}
	}
	var zero E
	return zero, false
}

// Items returns a copy of the snapshot.
func (c *Collection[E]) Items() []E {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]E, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of entities.
func (c *Collection[E]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Update replaces the snapshot with fn(snapshot) under the write lock.
func (c *Collection[E]) Update(fn func([]E) []E) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = fn(c.items)
}

// Replace swaps in a fresh snapshot.
func (c *Collection[E]) Replace(items []E) {
	cp := make([]E, len(items))
	copy(cp, items)
	c.mu.Lock()
	c.items = cp
	c.mu.Unlock()
}

// Set replaces the entity with the same id, if present.
func (c *Collection[E]) Set(item E) bool {
	id := c.id(item)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if c.id(it) == id {
			out := make([]E, len(c.items))
			copy(out, c.items)
			out[i] = item
			c.items = out
			return true
		}
	}
	return false
}

var _ optimistic.View[int] = (*Collection[int])(nil)
