// Package api defines the TalentFlow wire protocol and the clients that speak
// it, either over the network or directly against an in-process backend.
package api

import (
	"net/url"
	"strconv"

	"github.com/kilupskalvis/talentflow/internal/models"
)

// Envelope wraps every single-entity and list response body.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// Pagination describes one page of a paginated listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is a paginated listing response.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// JobsPage is the response of GET /api/jobs.
type JobsPage = Page[*models.Job]

// CandidatesPage is the response of GET /api/candidates.
type CandidatesPage = Page[*models.Candidate]

// SuccessResponse acknowledges a mutation that returns no entity.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the structured error format returned by the backend.
// Fields carries per-question messages for rejected assessment responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Error codes used in ErrorResponse.
const (
	CodeNotFound        = "not_found"
	CodeBadRequest      = "bad_request"
	CodeInjectedFailure = "injected_failure"
	CodeInvalidResponse = "invalid_response"
	CodeTooLarge        = "too_large"
	CodeInternal        = "internal_error"
	CodeRateLimited     = "rate_limited"
)

// ListJobsParams filters GET /api/jobs. Zero values are omitted.
type ListJobsParams struct {
	Search   string
	Status   models.JobStatus
	Type     models.JobType
	Location string
	Tags     []string
	Page     int
	PageSize int
	Sort     string
}

// Values encodes the params as a query string; tags repeat the "tag" key.
func (p *ListJobsParams) Values() url.Values {
	v := url.Values{}
	if p == nil {
		return v
	}
	setNonEmpty(v, "search", p.Search)
	setNonEmpty(v, "status", string(p.Status))
	setNonEmpty(v, "type", string(p.Type))
	setNonEmpty(v, "location", p.Location)
	for _, t := range p.Tags {
		v.Add("tag", t)
	}
	setPositive(v, "page", p.Page)
	setPositive(v, "pageSize", p.PageSize)
	setNonEmpty(v, "sort", p.Sort)
	return v
}

// ListCandidatesParams filters GET /api/candidates.
type ListCandidatesParams struct {
	Search   string
	Stage    models.Stage
	JobID    string
	Page     int
	PageSize int
}

// Values encodes the params as a query string.
func (p *ListCandidatesParams) Values() url.Values {
	v := url.Values{}
	if p == nil {
		return v
	}
	setNonEmpty(v, "search", p.Search)
	setNonEmpty(v, "stage", string(p.Stage))
	setNonEmpty(v, "jobId", p.JobID)
	setPositive(v, "page", p.Page)
	setPositive(v, "pageSize", p.PageSize)
	return v
}

func setNonEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setPositive(v url.Values, key string, n int) {
	if n > 0 {
		v.Set(key, strconv.Itoa(n))
	}
}

// CreateJobRequest is the body of POST /api/jobs. Order 0, or an order past
// the end, appends the job after every existing one; otherwise the job is
// inserted at Order and the jobs from there on shift down by one.
type CreateJobRequest struct {
	Title        string           `json:"title"`
	Status       models.JobStatus `json:"status,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	Order        int              `json:"order,omitempty"`
	Description  string           `json:"description,omitempty"`
	Requirements []string         `json:"requirements,omitempty"`
	Location     string           `json:"location,omitempty"`
	Type         models.JobType   `json:"type,omitempty"`
}

// UpdateJobRequest is the body of PATCH /api/jobs/{id}. Nil fields are left
// unchanged. Order changes go through the reorder endpoint.
type UpdateJobRequest struct {
	Title        *string           `json:"title,omitempty"`
	Status       *models.JobStatus `json:"status,omitempty"`
	Tags         *[]string         `json:"tags,omitempty"`
	Description  *string           `json:"description,omitempty"`
	Requirements *[]string         `json:"requirements,omitempty"`
	Location     *string           `json:"location,omitempty"`
	Type         *models.JobType   `json:"type,omitempty"`
}

// ReorderJobRequest is the body of PATCH /api/jobs/{id}/reorder. Orders are
// 1-based positions in the full job list.
type ReorderJobRequest struct {
	FromOrder int `json:"fromOrder"`
	ToOrder   int `json:"toOrder"`
}

// UpdateCandidateRequest is the body of PATCH /api/candidates/{id}. Author
// names the actor recorded on a resulting stage_change event.
type UpdateCandidateRequest struct {
	Name   *string       `json:"name,omitempty"`
	Email  *string       `json:"email,omitempty"`
	Stage  *models.Stage `json:"stage,omitempty"`
	JobID  *string       `json:"jobId,omitempty"`
	Phone  *string       `json:"phone,omitempty"`
	Author string        `json:"author,omitempty"`
}

// AddNoteRequest is the body of POST /api/candidates/{id}/notes.
type AddNoteRequest struct {
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
}

// SubmitResponseRequest is the body of POST /api/assessments/{id}/responses.
type SubmitResponseRequest struct {
	CandidateID string                   `json:"candidateId"`
	Responses   map[string]models.Answer `json:"responses"`
}
