package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/kilupskalvis/talentflow/internal/models"
)

// RetryConfig configures retry behavior for transient errors.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		JitterFraction: 0.25,
	}
}

// RetryClient wraps a Client and retries reads on transient errors.
// Mutations are passed through untouched: a failed mutation is reported to
// the caller, who rolls back.
type RetryClient struct {
	inner  Client
	config *RetryConfig
}

// NewRetryClient creates a RetryClient that wraps the given Client.
func NewRetryClient(inner Client, cfg *RetryConfig) *RetryClient {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	return &RetryClient{inner: inner, config: cfg}
}

// IsStatus reports whether err is an *APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// isTransient returns true for errors that are worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status >= 500 || ae.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true // network errors are transient
}

// backoff computes the delay for the given attempt with jitter.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	base := float64(rc.config.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(rc.config.MaxBackoff) {
		base = float64(rc.config.MaxBackoff)
	}
	jitter := base * rc.config.JitterFraction * (rand.Float64()*2 - 1)
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry executes fn with retry logic. Only retries transient errors.
func (rc *RetryClient) retry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= rc.config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt < rc.config.MaxRetries {
			if err := sleep(ctx, rc.backoff(attempt)); err != nil {
				return fmt.Errorf("%s: %w (retry cancelled)", operation, lastErr)
			}
		}
	}
	return fmt.Errorf("%s: %w (after %d retries)", operation, lastErr, rc.config.MaxRetries)
}

// --- Reads ---

func (rc *RetryClient) ListJobs(ctx context.Context, params *ListJobsParams) (page *JobsPage, err error) {
	err = rc.retry(ctx, "list jobs", func() error {
		page, err = rc.inner.ListJobs(ctx, params)
		return err
	})
	return
}

func (rc *RetryClient) GetJob(ctx context.Context, id string) (job *models.Job, err error) {
	err = rc.retry(ctx, "get job", func() error {
		job, err = rc.inner.GetJob(ctx, id)
		return err
	})
	return
}

func (rc *RetryClient) ListCandidates(ctx context.Context, params *ListCandidatesParams) (page *CandidatesPage, err error) {
	err = rc.retry(ctx, "list candidates", func() error {
		page, err = rc.inner.ListCandidates(ctx, params)
		return err
	})
	return
}

func (rc *RetryClient) GetCandidate(ctx context.Context, id string) (c *models.Candidate, err error) {
	err = rc.retry(ctx, "get candidate", func() error {
		c, err = rc.inner.GetCandidate(ctx, id)
		return err
	})
	return
}

func (rc *RetryClient) GetTimeline(ctx context.Context, candidateID string) (events []*models.TimelineEvent, err error) {
	err = rc.retry(ctx, "get timeline", func() error {
		events, err = rc.inner.GetTimeline(ctx, candidateID)
		return err
	})
	return
}

func (rc *RetryClient) DownloadAttachment(ctx context.Context, hash string) (reader io.ReadCloser, contentType string, err error) {
	err = rc.retry(ctx, "download attachment", func() error {
		if reader != nil {
			reader.Close()
			reader = nil
		}
		reader, contentType, err = rc.inner.DownloadAttachment(ctx, hash)
		return err
	})
	return
}

func (rc *RetryClient) ListAssessments(ctx context.Context, jobID string) (out []*models.Assessment, err error) {
	err = rc.retry(ctx, "list assessments", func() error {
		out, err = rc.inner.ListAssessments(ctx, jobID)
		return err
	})
	return
}

func (rc *RetryClient) GetAssessment(ctx context.Context, id string) (a *models.Assessment, err error) {
	err = rc.retry(ctx, "get assessment", func() error {
		a, err = rc.inner.GetAssessment(ctx, id)
		return err
	})
	return
}

// --- Mutations (never retried) ---

func (rc *RetryClient) CreateJob(ctx context.Context, req *CreateJobRequest) (*models.Job, error) {
	return rc.inner.CreateJob(ctx, req)
}

func (rc *RetryClient) UpdateJob(ctx context.Context, id string, req *UpdateJobRequest) (*models.Job, error) {
	return rc.inner.UpdateJob(ctx, id, req)
}

func (rc *RetryClient) ReorderJob(ctx context.Context, id string, req *ReorderJobRequest) error {
	return rc.inner.ReorderJob(ctx, id, req)
}

func (rc *RetryClient) UpdateCandidate(ctx context.Context, id string, req *UpdateCandidateRequest) (*models.Candidate, error) {
	return rc.inner.UpdateCandidate(ctx, id, req)
}

func (rc *RetryClient) AddNote(ctx context.Context, candidateID string, req *AddNoteRequest) (*models.Candidate, error) {
	return rc.inner.AddNote(ctx, candidateID, req)
}

func (rc *RetryClient) UploadResume(ctx context.Context, candidateID string, r io.Reader, contentType string) (*models.Candidate, error) {
	return rc.inner.UploadResume(ctx, candidateID, r, contentType)
}

func (rc *RetryClient) CreateAssessment(ctx context.Context, a *models.Assessment) (*models.Assessment, error) {
	return rc.inner.CreateAssessment(ctx, a)
}

func (rc *RetryClient) UpdateAssessment(ctx context.Context, id string, a *models.Assessment) (*models.Assessment, error) {
	return rc.inner.UpdateAssessment(ctx, id, a)
}

func (rc *RetryClient) DeleteAssessment(ctx context.Context, id string) error {
	return rc.inner.DeleteAssessment(ctx, id)
}

func (rc *RetryClient) SubmitResponse(ctx context.Context, assessmentID string, req *SubmitResponseRequest) (*models.AssessmentResponse, error) {
	return rc.inner.SubmitResponse(ctx, assessmentID, req)
}
