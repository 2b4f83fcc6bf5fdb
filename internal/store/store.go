// Package store provides the TalentFlow record store: independent keyed
// collections for jobs, candidates, assessments, assessment responses and
// candidate timeline events, with secondary indexes for the backend's
// filter and sort needs. Candidates may reference job IDs that do not exist.
package store

import (
	"context"
	"errors"

	"github.com/kilupskalvis/talentflow/internal/models"
)

// Sentinel errors for expected conditions.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidQuery = errors.New("invalid query")
)

// Store defines the contract for record persistence.
type Store interface {
	// Jobs
	PutJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	UpdateJob(ctx context.Context, id string, fn func(*models.Job) error) (*models.Job, error)
	MoveJob(ctx context.Context, id string, toOrder int) (*models.Job, error)
	ListJobs(ctx context.Context, q JobQuery) (*Page[*models.Job], error)
	NextJobOrder(ctx context.Context) (int, error)

	// Candidates. UpdateCandidate runs fn against the stored candidate; a
	// non-nil event returned by fn is appended to the timeline in the same
	// transaction.
	PutCandidate(ctx context.Context, c *models.Candidate) error
	PutCandidates(ctx context.Context, cs []*models.Candidate) error
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, fn func(*models.Candidate) (*models.TimelineEvent, error)) (*models.Candidate, error)
	ListCandidates(ctx context.Context, q CandidateQuery) (*Page[*models.Candidate], error)

	// Timeline (append-only)
	AppendTimelineEvent(ctx context.Context, ev *models.TimelineEvent) error
	ListTimeline(ctx context.Context, candidateID string) ([]*models.TimelineEvent, error)

	// Assessments
	PutAssessment(ctx context.Context, a *models.Assessment) error
	GetAssessment(ctx context.Context, id string) (*models.Assessment, error)
	ListAssessments(ctx context.Context, jobID string) ([]*models.Assessment, error)
	DeleteAssessment(ctx context.Context, id string) error

	// Assessment responses
	PutResponse(ctx context.Context, r *models.AssessmentResponse) error
	ListResponses(ctx context.Context, assessmentID string) ([]*models.AssessmentResponse, error)

	// Reset removes every record from every collection.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendBbolt  = "bbolt"
	BackendSQLite = "sqlite"
)

// Open opens the store implementation selected by backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendBbolt:
		return NewBboltStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	}
	return nil, errors.New("unknown store backend: " + backend)
}
