package models

import "time"

// EventType classifies a timeline event.
type EventType string

const (
	EventStageChange EventType = "stage_change"
	EventNoteAdded   EventType = "note_added"
	EventApplied     EventType = "applied"
)

// DefaultAuthor is recorded when a mutation does not name its actor.
const DefaultAuthor = "HR Team"

// TimelineEvent is an append-only audit record for a candidate. Events are
// never updated or deleted.
type TimelineEvent struct {
	ID            string    `json:"id"`
	CandidateID   string    `json:"candidateId"`
	Type          EventType `json:"type"`
	PreviousStage Stage     `json:"previousStage,omitempty"`
	NewStage      Stage     `json:"newStage,omitempty"`
	Note          string    `json:"note,omitempty"`
	Author        string    `json:"author"`
	CreatedAt     time.Time `json:"createdAt"`
}
