package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/kilupskalvis/talentflow/internal/models"
)

// Client defines the contract for talking to a TalentFlow backend.
type Client interface {
	ListJobs(ctx context.Context, params *ListJobsParams) (*JobsPage, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	CreateJob(ctx context.Context, req *CreateJobRequest) (*models.Job, error)
	UpdateJob(ctx context.Context, id string, req *UpdateJobRequest) (*models.Job, error)
	ReorderJob(ctx context.Context, id string, req *ReorderJobRequest) error

	ListCandidates(ctx context.Context, params *ListCandidatesParams) (*CandidatesPage, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, req *UpdateCandidateRequest) (*models.Candidate, error)
	GetTimeline(ctx context.Context, candidateID string) ([]*models.TimelineEvent, error)
	AddNote(ctx context.Context, candidateID string, req *AddNoteRequest) (*models.Candidate, error)
	UploadResume(ctx context.Context, candidateID string, r io.Reader, contentType string) (*models.Candidate, error)
	DownloadAttachment(ctx context.Context, hash string) (io.ReadCloser, string, error)

	ListAssessments(ctx context.Context, jobID string) ([]*models.Assessment, error)
	GetAssessment(ctx context.Context, id string) (*models.Assessment, error)
	CreateAssessment(ctx context.Context, a *models.Assessment) (*models.Assessment, error)
	UpdateAssessment(ctx context.Context, id string, a *models.Assessment) (*models.Assessment, error)
	DeleteAssessment(ctx context.Context, id string) error
	SubmitResponse(ctx context.Context, assessmentID string, req *SubmitResponseRequest) (*models.AssessmentResponse, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the backend at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// inProcessBaseURL is the synthetic origin used for in-process requests.
const inProcessBaseURL = "http://talentflow.local"

// NewInProcess creates a client whose requests are served by h directly,
// without a network listener.
func NewInProcess(h http.Handler) *HTTPClient {
	return &HTTPClient{
		baseURL:    inProcessBaseURL,
		httpClient: &http.Client{Transport: handlerTransport{h}},
	}
}

// handlerTransport is an http.RoundTripper that serves each request with a
// handler.
type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	if r.Body == nil {
		r.Body = http.NoBody
	}
	r.RemoteAddr = "127.0.0.1:0"
	r.RequestURI = r.URL.RequestURI()

	rec := httptest.NewRecorder()
	t.h.ServeHTTP(rec, r)
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func (c *HTTPClient) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, url string, reqBody, respBody any) error {
	var body io.Reader
	headers := map[string]string{"Accept": "application/json"}

	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		headers["Content-Type"] = "application/json"
	}

	resp, err := c.do(ctx, method, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// --- Jobs ---

// ListJobs returns a filtered page of jobs.
func (c *HTTPClient) ListJobs(ctx context.Context, params *ListJobsParams) (*JobsPage, error) {
	var resp JobsPage
	if err := c.doJSON(ctx, http.MethodGet, c.url("/api/jobs", params.Values()), nil, &resp); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return &resp, nil
}

// GetJob returns a single job.
func (c *HTTPClient) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var resp Envelope[*models.Job]
	if err := c.doJSON(ctx, http.MethodGet, c.url("/api/jobs/"+url.PathEscape(id), nil), nil, &resp); err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return resp.Data, nil
}

// CreateJob creates a job.
func (c *HTTPClient) CreateJob(ctx context.Context, req *CreateJobRequest) (*models.Job, error) {
	var resp Envelope[*models.Job]
	if err := c.doJSON(ctx, http.MethodPost, c.url("/api/jobs", nil), req, &resp); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return resp.Data, nil
}

// UpdateJob patches a job.
func (c *HTTPClient) UpdateJob(ctx context.Context, id string, req *UpdateJobRequest) (*models.Job, error) {
	var resp Envelope[*models.Job]
	if err := c.doJSON(ctx, http.MethodPatch, c.url("/api/jobs/"+url.PathEscape(id), nil), req, &resp); err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	return resp.Data, nil
}

// ReorderJob moves a job to a new position.
func (c *HTTPClient) ReorderJob(ctx context.Context, id string, req *ReorderJobRequest) error {
	var resp SuccessResponse
	if err := c.doJSON(ctx, http.MethodPatch, c.url("/api/jobs/"+url.PathEscape(id)+"/reorder", nil), req, &resp); err != nil {
		return fmt.Errorf("reorder job %s: %w", id, err)
	}
	return nil
}

// --- Candidates ---

// ListCandidates returns a filtered page of candidates, newest first.
func (c *HTTPClient) ListCandidates(ctx context.Context, params *ListCandidatesParams) (*CandidatesPage, error) {
	var resp CandidatesPage
	if err := c.doJSON(ctx, http.MethodGet, c.url("/api/candidates", params.Values()), nil, &resp); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return &resp, nil
}

// GetCandidate returns a single candidate.
func (c *HTTPClient) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var resp Envelope[*models.Candidate]
	if err := c.doJSON(ctx, http.MethodGet, c.url("/api/candidates/"+url.PathEscape(id), nil), nil, &resp); err != nil {
		return nil, fmt.Errorf("get candidate %s: %w", id, err)
	}
	return resp.Data, nil
}

// UpdateCandidate patches a candidate. A stage change appends a timeline
// event on the backend.
func (c *HTTPClient) UpdateCandidate(ctx context.Context, id string, req *UpdateCandidateRequest) (*models.Candidate, error) {
	var resp Envelope[*models.Candidate]
	if err := c.doJSON(ctx, http.MethodPatch, c.url("/api/candidates/"+url.PathEscape(id), nil), req, &resp); err != nil {
		return nil, fmt.Errorf("update candidate %s: %w", id, err)
	}
	return resp.Data, nil
}

// GetTimeline returns a candidate's events, newest first.
func (c *HTTPClient) GetTimeline(ctx context.Context, candidateID string) ([]*models.TimelineEvent, error) {
	var resp Envelope[[]*models.TimelineEvent]
	if err := c.doJSON(ctx, http.MethodGet, c.url("/api/candidates/"+url.PathEscape(candidateID)+"/timeline", nil), nil, &resp); err != nil {
		return nil, fmt.Errorf("get timeline %s: %w", candidateID, err)
	}
	return resp.Data, nil
}

// AddNote attaches a note to a candidate.
func (c *HTTPClient) AddNote(ctx context.Context, candidateID string, req *AddNoteRequest) (*models.Candidate, error) {
	var resp Envelope[*models.Candidate]
	if err := c.doJSON(ctx, http.MethodPost, c.url("/api/candidates/"+url.PathEscape(candidateID)+"/notes", nil), req, &resp); err != nil {
		return nil, fmt.Errorf("add note to %s: %w", candidateID, err)
	}
	return resp.Data, nil
}

// UploadResume streams a resume file and attaches it to the candidate.
func (c *HTTPClient) UploadResume(ctx context.Context, candidateID string, r io.Reader, contentType string) (*models.Candidate, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := c.do(ctx, http.MethodPut, c.url("/api/candidates/"+url.PathEscape(candidateID)+"/resume", nil), r,
		map[string]string{"Content-Type": contentType})
	if err != nil {
		return nil, fmt.Errorf("upload resume for %s: %w", candidateID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	var out Envelope[*models.Candidate]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Data, nil
}

// DownloadAttachment streams an attachment. The caller closes the reader.
func (c *HTTPClient) DownloadAttachment(ctx context.Context, hash string) (io.ReadCloser, string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.url("/api/attachments/"+url.PathEscape(hash), nil), nil, nil)
	if err != nil {
		return nil, "", fmt.Errorf("download attachment %s: %w", hash, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, "", decodeError(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// --- Assessments ---

// ListAssessments returns every assessment, or those of one job.
func (c *HTTPClient) ListAssessments(ctx context.Context, jobID string) ([]*models.Assessment, error) {
	q := url.Values{}
	setNonEmpty(q, "jobId", jobID)
	var resp Envelope[[]*models.Assessment]
	if err := c.doJSON(ctx, http.MethodGet, c.url("/api/assessments", q), nil, &resp); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return resp.Data, nil
}

// GetAssessment returns a single assessment.
func (c *HTTPClient) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	var resp Envelope[*models.Assessment]
	if err := c.doJSON(ctx, http.MethodGet, c.url("/api/assessments/"+url.PathEscape(id), nil), nil, &resp); err != nil {
		return nil, fmt.Errorf("get assessment %s: %w", id, err)
	}
	return resp.Data, nil
}

// CreateAssessment stores a new assessment. The backend assigns its ID.
func (c *HTTPClient) CreateAssessment(ctx context.Context, a *models.Assessment) (*models.Assessment, error) {
	var resp Envelope[*models.Assessment]
	if err := c.doJSON(ctx, http.MethodPost, c.url("/api/assessments", nil), a, &resp); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	return resp.Data, nil
}

// UpdateAssessment replaces an assessment.
func (c *HTTPClient) UpdateAssessment(ctx context.Context, id string, a *models.Assessment) (*models.Assessment, error) {
	var resp Envelope[*models.Assessment]
	if err := c.doJSON(ctx, http.MethodPut, c.url("/api/assessments/"+url.PathEscape(id), nil), a, &resp); err != nil {
		return nil, fmt.Errorf("update assessment %s: %w", id, err)
	}
	return resp.Data, nil
}

// DeleteAssessment removes an assessment.
func (c *HTTPClient) DeleteAssessment(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.url("/api/assessments/"+url.PathEscape(id), nil), nil, nil); err != nil {
		return fmt.Errorf("delete assessment %s: %w", id, err)
	}
	return nil
}

// SubmitResponse submits a candidate's answers. Invalid answers come back
// as an *APIError with status 422 and per-question Fields.
func (c *HTTPClient) SubmitResponse(ctx context.Context, assessmentID string, req *SubmitResponseRequest) (*models.AssessmentResponse, error) {
	var resp Envelope[*models.AssessmentResponse]
	if err := c.doJSON(ctx, http.MethodPost, c.url("/api/assessments/"+url.PathEscape(assessmentID)+"/responses", nil), req, &resp); err != nil {
		return nil, fmt.Errorf("submit response to %s: %w", assessmentID, err)
	}
	return resp.Data, nil
}

// APIError represents a structured error from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s: %s", e.Status, e.Code, e.Message)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    "unknown",
			Message: fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	return &APIError{
		Status:  resp.StatusCode,
		Code:    errResp.Error,
		Message: errResp.Message,
		Fields:  errResp.Fields,
	}
}
