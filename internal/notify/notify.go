// Package notify keeps the in-session notification log.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification is one log entry.
type Notification struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Read    bool      `json:"read"`
}

// Log is a newest-first list of notifications. Safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Add records an unread notification at the head of the log.
func (l *Log) Add(message string) {
	n := Notification{
		ID:      uuid.NewString(),
		Message: message,
		Time:    l.now(),
	}
	l.mu.Lock()
	l.items = append([]Notification{n}, l.items...)
	l.mu.Unlock()
}

// List returns a copy of all notifications, newest first.
func (l *Log) List() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notification, len(l.items))
	copy(out, l.items)
	return out
}

// Unread counts unread notifications.
func (l *Log) Unread() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, it := range l.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// MarkAllRead flags every notification as read.
func (l *Log) MarkAllRead() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		l.items[i].Read = true
	}
}

// Remove deletes the notification with the given id. It reports whether
// one was found.
func (l *Log) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, it := range l.items {
		if it.ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}
