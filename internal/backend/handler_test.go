package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/attachments"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// testConfig returns a config without latency or random failures.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.MinLatency = 0
	cfg.MaxLatency = 0
	cfg.Faults = NeverFail
	return cfg
}

// newTestServer starts the backend over a fresh bbolt store.
func newTestServer(t *testing.T, cfg *Config) (*httptest.Server, store.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	st, err := store.NewBboltStore(filepath.Join(tmpDir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	files, err := attachments.NewFSStore(filepath.Join(tmpDir, "attachments"))
	require.NoError(t, err)

	if cfg == nil {
		cfg = testConfig()
	}
	handler, cleanup := Handler(st, files, cfg, discardLogger)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		cleanup()
	})
	return srv, st
}

func seedJobs(t *testing.T, st store.Store, n int) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		require.NoError(t, st.PutJob(context.Background(), &models.Job{
			ID:        fmt.Sprintf("J%d", i),
			Title:     fmt.Sprintf("Job %d", i),
			Slug:      fmt.Sprintf("job-%d", i),
			Status:    models.JobActive,
			Tags:      []string{},
			Order:     i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func seedCandidate(t *testing.T, st store.Store, id, name string, stage models.Stage) {
	t.Helper()
	require.NoError(t, st.PutCandidate(context.Background(), &models.Candidate{
		ID:        id,
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Stage:     stage,
		JobID:     "J1",
		CreatedAt: time.Now().UTC(),
	}))
}

func doRequest(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeErrorBody(t *testing.T, resp *http.Response) api.ErrorResponse {
	t.Helper()
	var e api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func jobOrders(t *testing.T, st store.Store) map[string]int {
	t.Helper()
	page, err := st.ListJobs(context.Background(), store.JobQuery{PageSize: 100})
	require.NoError(t, err)
	out := make(map[string]int, len(page.Items))
	for _, j := range page.Items {
		out[j.ID] = j.Order
	}
	return out
}

// ==================== Health / middleware ====================

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp := doRequest(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/jobs", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestLatency_Applied(t *testing.T) {
	cfg := testConfig()
	cfg.MinLatency = 40 * time.Millisecond
	cfg.MaxLatency = 60 * time.Millisecond
	srv, _ := newTestServer(t, cfg)

	start := time.Now()
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/jobs", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLatency_CancelledRequestNotServed(t *testing.T) {
	cfg := testConfig()
	cfg.MinLatency = 200 * time.Millisecond
	cfg.MaxLatency = 200 * time.Millisecond
	srv, st := newTestServer(t, cfg)
	seedJobs(t, st, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := api.NewHTTPClient(srv.URL).ReorderJob(ctx, "J3", &api.ReorderJobRequest{FromOrder: 3, ToOrder: 1})
	require.Error(t, err)

	// Well past the latency, so a request still being served would have committed.
	time.Sleep(3 * cfg.MaxLatency)
	assert.Equal(t, map[string]int{"J1": 1, "J2": 2, "J3": 3}, jobOrders(t, st))
}

func TestLatencyMiddleware_SkipsCancelledRequest(t *testing.T) {
	served := false
	h := latencyMiddleware(time.Millisecond, time.Millisecond, 1<<10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"title":"Cook"}`)).WithContext(ctx)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, served)
}

func TestLatencyMiddleware_PassesBodyThrough(t *testing.T) {
	body := strings.Repeat("x", 64)
	var got string
	h := latencyMiddleware(time.Millisecond, time.Millisecond, 16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got = string(b)
	}))

	req := httptest.NewRequest(http.MethodPut, "/api/candidates/C1/resume", strings.NewReader(body))
	h.ServeHTTP(httptest.NewRecorder(), req)

	// Bytes past the buffered prefix still reach the handler.
	assert.Equal(t, body, got)
}

// syncBuffer is a bytes.Buffer safe for the server and test goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRequestLog_CarriesRequestID(t *testing.T) {
	st, err := store.NewBboltStore(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	files, err := attachments.NewFSStore(filepath.Join(t.TempDir(), "attachments"))
	require.NoError(t, err)

	var logs syncBuffer
	handler, cleanup := Handler(st, files, testConfig(), slog.New(slog.NewJSONHandler(&logs, nil)))
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		cleanup()
	})

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/jobs", nil)
	reqID := resp.Header.Get("X-Request-ID")
	require.NotEmpty(t, reqID)

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), `"request_id":"`+reqID+`"`)
	}, time.Second, 10*time.Millisecond)
	assert.NotContains(t, logs.String(), `"request_id":""`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerMinute = 2
	srv, _ := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doRequest(t, http.MethodGet, srv.URL+"/api/jobs", nil).StatusCode)
	}
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/jobs", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, api.CodeRateLimited, decodeErrorBody(t, resp).Error)
}

// ==================== Fault injection ====================

func TestFaults_RatesPerRoute(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]float64{}
	var current string

	cfg := testConfig()
	cfg.Faults = FaultFunc(func(rate float64) bool {
		mu.Lock()
		defer mu.Unlock()
		seen[current] = rate
		return false
	})
	srv, st := newTestServer(t, cfg)
	seedJobs(t, st, 3)
	seedCandidate(t, st, "C1", "Jane Doe", models.StageApplied)

	call := func(name, method, path string, body any) {
		mu.Lock()
		current = name
		mu.Unlock()
		doRequest(t, method, srv.URL+path, body)
	}
	call("list", http.MethodGet, "/api/jobs", nil)
	call("timeline", http.MethodGet, "/api/candidates/C1/timeline", nil)
	call("reorder", http.MethodPatch, "/api/jobs/J3/reorder", api.ReorderJobRequest{FromOrder: 3, ToOrder: 1})
	call("patch", http.MethodPatch, "/api/candidates/C1", map[string]string{"stage": "screen"})
	call("create", http.MethodPost, "/api/jobs", map[string]string{"title": "New"})

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, seen, "list")
	assert.NotContains(t, seen, "timeline")
	assert.Equal(t, DefaultReorderFailureRate, seen["reorder"])
	assert.Equal(t, DefaultFailureRate, seen["patch"])
	assert.Equal(t, DefaultFailureRate, seen["create"])
}

func TestFaults_InjectedFailureChangesNothing(t *testing.T) {
	cfg := testConfig()
	cfg.Faults = AlwaysFail
	srv, st := newTestServer(t, cfg)
	seedJobs(t, st, 5)
	seedCandidate(t, st, "C1", "Jane Doe", models.StageApplied)

	resp := doRequest(t, http.MethodPatch, srv.URL+"/api/jobs/J3/reorder", api.ReorderJobRequest{FromOrder: 3, ToOrder: 1})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, api.CodeInjectedFailure, decodeErrorBody(t, resp).Error)
	assert.Equal(t, map[string]int{"J1": 1, "J2": 2, "J3": 3, "J4": 4, "J5": 5}, jobOrders(t, st))

	resp = doRequest(t, http.MethodPatch, srv.URL+"/api/candidates/C1", map[string]string{"stage": "tech"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	c, err := st.GetCandidate(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, models.StageApplied, c.Stage)
	events, err := st.ListTimeline(context.Background(), "C1")
	require.NoError(t, err)
	assert.Empty(t, events)

	// Reads are never failed.
	assert.Equal(t, http.StatusOK, doRequest(t, http.MethodGet, srv.URL+"/api/candidates/C1", nil).StatusCode)
}

func TestRandomFaults_Rate(t *testing.T) {
	f := RandomFaults(42)
	failures := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if f.Fail(0.10) {
			failures++
		}
	}
	assert.InDelta(t, 0.10, float64(failures)/n, 0.01)
	assert.False(t, f.Fail(0))
}

// ==================== Jobs ====================

func TestListJobs_FiltersAndPagination(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedJobs(t, st, 12)
	ctx := context.Background()
	_, err := st.UpdateJob(ctx, "J4", func(j *models.Job) error {
		j.Tags = []string{"Go", "Remote"}
		j.Location = "London"
		return nil
	})
	require.NoError(t, err)
	_, err = st.UpdateJob(ctx, "J7", func(j *models.Job) error {
		j.Tags = []string{"Go"}
		j.Status = models.JobArchived
		return nil
	})
	require.NoError(t, err)

	c := api.NewHTTPClient(srv.URL)

	page, err := c.ListJobs(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, api.Pagination{Page: 1, PageSize: 10, Total: 12, TotalPages: 2}, page.Pagination)

	page, err = c.ListJobs(ctx, &api.ListJobsParams{Tags: []string{"Go", "Remote"}})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "J4", page.Data[0].ID)

	page, err = c.ListJobs(ctx, &api.ListJobsParams{Search: "remote"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	page, err = c.ListJobs(ctx, &api.ListJobsParams{Status: models.JobArchived})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "J7", page.Data[0].ID)

	page, err = c.ListJobs(ctx, &api.ListJobsParams{Location: "London"})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)

	page, err = c.ListJobs(ctx, &api.ListJobsParams{PageSize: 5, Page: 3})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	page, err = c.ListJobs(ctx, &api.ListJobsParams{Sort: "createdAt", PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, "J1", page.Data[0].ID)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/jobs?sort=salary", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doRequest(t, http.MethodGet, srv.URL+"/api/jobs?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateJob(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedJobs(t, st, 2)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	job, err := c.CreateJob(ctx, &api.CreateJobRequest{Title: "Staff Platform Engineer", Tags: []string{"go"}, Type: models.JobFullTime})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "staff-platform-engineer", job.Slug)
	assert.Equal(t, models.JobActive, job.Status)
	assert.Equal(t, 3, job.Order)

	_, err = c.CreateJob(ctx, &api.CreateJobRequest{Title: "  "})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))

	_, err = c.CreateJob(ctx, &api.CreateJobRequest{Title: "X", Type: "freelance"})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/jobs", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateJob_ExplicitOrderKeepsOrdersDense(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedJobs(t, st, 3)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	job, err := c.CreateJob(ctx, &api.CreateJobRequest{Title: "Inserted", Order: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, job.Order)
	assert.Equal(t, map[string]int{"J1": 1, job.ID: 2, "J2": 3, "J3": 4}, jobOrders(t, st))

	// An order past the end appends.
	last, err := c.CreateJob(ctx, &api.CreateJobRequest{Title: "Appended", Order: 40})
	require.NoError(t, err)
	assert.Equal(t, 5, last.Order)
	assert.Equal(t, map[string]int{"J1": 1, job.ID: 2, "J2": 3, "J3": 4, last.ID: 5}, jobOrders(t, st))
}

func TestUpdateJob_ArchiveAndNotFound(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedJobs(t, st, 1)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	archived := models.JobArchived
	title := "Renamed Role"
	job, err := c.UpdateJob(ctx, "J1", &api.UpdateJobRequest{Status: &archived, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, models.JobArchived, job.Status)
	assert.Equal(t, "renamed-role", job.Slug)
	assert.Equal(t, 1, job.Order)

	_, err = c.UpdateJob(ctx, "missing", &api.UpdateJobRequest{Status: &archived})
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	bogus := models.JobStatus("paused")
	_, err = c.UpdateJob(ctx, "J1", &api.UpdateJobRequest{Status: &bogus})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))
}

func TestReorderJob_DenseRenumbering(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedJobs(t, st, 5)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.ReorderJob(ctx, "J3", &api.ReorderJobRequest{FromOrder: 3, ToOrder: 1}))
	assert.Equal(t, map[string]int{"J3": 1, "J1": 2, "J2": 3, "J4": 4, "J5": 5}, jobOrders(t, st))

	require.NoError(t, c.ReorderJob(ctx, "J3", &api.ReorderJobRequest{FromOrder: 1, ToOrder: 5}))
	assert.Equal(t, map[string]int{"J1": 1, "J2": 2, "J4": 3, "J5": 4, "J3": 5}, jobOrders(t, st))

	err := c.ReorderJob(ctx, "missing", &api.ReorderJobRequest{FromOrder: 1, ToOrder: 2})
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	err = c.ReorderJob(ctx, "J1", &api.ReorderJobRequest{FromOrder: 1, ToOrder: 0})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))
}

// ==================== Candidates & timeline ====================

func TestUpdateCandidate_StageChangeAppendsOneEvent(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedCandidate(t, st, "C1", "Jane Doe", models.StageApplied)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	tech := models.StageTech
	cand, err := c.UpdateCandidate(ctx, "C1", &api.UpdateCandidateRequest{Stage: &tech, Author: "Kraya"})
	require.NoError(t, err)
	assert.Equal(t, models.StageTech, cand.Stage)

	events, err := c.GetTimeline(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventStageChange, events[0].Type)
	assert.Equal(t, models.StageApplied, events[0].PreviousStage)
	assert.Equal(t, models.StageTech, events[0].NewStage)
	assert.Equal(t, "Kraya", events[0].Author)
}

func TestUpdateCandidate_NoEventWithoutStageChange(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedCandidate(t, st, "C1", "Jane Doe", models.StageScreen)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	same := models.StageScreen
	_, err := c.UpdateCandidate(ctx, "C1", &api.UpdateCandidateRequest{Stage: &same})
	require.NoError(t, err)

	phone := "+1-555-0100"
	cand, err := c.UpdateCandidate(ctx, "C1", &api.UpdateCandidateRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, cand.Phone)

	events, err := c.GetTimeline(ctx, "C1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUpdateCandidate_RepeatedMovesAreIndependentEvents(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedCandidate(t, st, "C1", "Jane Doe", models.StageApplied)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	moves := []models.Stage{models.StageScreen, models.StageApplied, models.StageScreen}
	for _, stage := range moves {
		s := stage
		_, err := c.UpdateCandidate(ctx, "C1", &api.UpdateCandidateRequest{Stage: &s})
		require.NoError(t, err)
	}

	events, err := c.GetTimeline(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first, each with the default author.
	assert.Equal(t, models.StageScreen, events[0].NewStage)
	assert.Equal(t, models.StageApplied, events[1].NewStage)
	assert.Equal(t, models.StageScreen, events[2].NewStage)
	ids := map[string]bool{}
	for _, ev := range events {
		assert.Equal(t, models.DefaultAuthor, ev.Author)
		ids[ev.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestUpdateCandidate_Errors(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedCandidate(t, st, "C1", "Jane Doe", models.StageApplied)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	tech := models.StageTech
	_, err := c.UpdateCandidate(ctx, "missing", &api.UpdateCandidateRequest{Stage: &tech})
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	bogus := models.Stage("interview")
	_, err = c.UpdateCandidate(ctx, "C1", &api.UpdateCandidateRequest{Stage: &bogus})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))

	_, err = c.GetTimeline(ctx, "missing")
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}

func TestListCandidates(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedCandidate(t, st, "C1", "Jane Doe", models.StageApplied)
	time.Sleep(time.Millisecond)
	seedCandidate(t, st, "C2", "John Roe", models.StageTech)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	page, err := c.ListCandidates(ctx, nil)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "C2", page.Data[0].ID)
	assert.Equal(t, store.DefaultCandidatePageSize, page.Pagination.PageSize)

	page, err = c.ListCandidates(ctx, &api.ListCandidatesParams{Search: "JANE"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "C1", page.Data[0].ID)

	page, err = c.ListCandidates(ctx, &api.ListCandidatesParams{Stage: models.StageTech, JobID: "J1"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "C2", page.Data[0].ID)
}

func TestAddNote(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seedCandidate(t, st, "C1", "Jane Doe", models.StageApplied)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	cand, err := c.AddNote(ctx, "C1", &api.AddNoteRequest{Content: "Great call, looping in @Amit and @Sara", Author: "Kraya"})
	require.NoError(t, err)
	require.Len(t, cand.Notes, 1)
	assert.Equal(t, []string{"Amit", "Sara"}, cand.Notes[0].Mentions)

	events, err := c.GetTimeline(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventNoteAdded, events[0].Type)
	assert.Equal(t, "Kraya", events[0].Author)

	_, err = c.AddNote(ctx, "C1", &api.AddNoteRequest{Content: " "})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))
}

func TestResumeUploadAndDownload(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttachmentSize = 64
	srv, st := newTestServer(t, cfg)
	seedCandidate(t, st, "C1", "Jane Doe", models.StageApplied)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	cand, err := c.UploadResume(ctx, "C1", strings.NewReader("%PDF resume"), "application/pdf")
	require.NoError(t, err)
	require.True(t, attachments.ValidHash(cand.Resume))

	rc, ct, err := c.DownloadAttachment(ctx, cand.Resume)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF resume", string(body))
	assert.Equal(t, "application/pdf", ct)

	_, err = c.UploadResume(ctx, "C1", strings.NewReader(strings.Repeat("x", 65)), "text/plain")
	assert.True(t, api.IsStatus(err, http.StatusRequestEntityTooLarge))

	_, err = c.UploadResume(ctx, "missing", strings.NewReader("x"), "text/plain")
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	_, _, err = c.DownloadAttachment(ctx, strings.Repeat("0", 64))
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}

// ==================== Assessments ====================

func sampleAssessment() *models.Assessment {
	maxLen := 10
	return &models.Assessment{
		JobID: "J1",
		Title: "Screening",
		Sections: []models.AssessmentSection{{
			ID: "s1", Title: "Basics", Order: 1,
			Questions: []models.Question{
				{ID: "q1", Type: models.QuestionSingleChoice, Question: "Relocate?", Required: true, Options: []string{"Yes", "No"}},
				{ID: "q2", Type: models.QuestionShortText, Question: "Where?", Required: true,
					Validation:       &models.Validation{MaxLength: &maxLen},
					ConditionalLogic: &models.ConditionalLogic{DependsOn: "q1", ShowIf: []string{"Yes"}}},
			},
		}},
	}
}

func TestAssessments_CRUD(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	created, err := c.CreateAssessment(ctx, sampleAssessment())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	list, err := c.ListAssessments(ctx, "J1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = c.ListAssessments(ctx, "J2")
	require.NoError(t, err)
	assert.Empty(t, list)

	created.Title = "Screening v2"
	updated, err := c.UpdateAssessment(ctx, created.ID, created)
	require.NoError(t, err)
	assert.Equal(t, "Screening v2", updated.Title)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	_, err = c.UpdateAssessment(ctx, "missing", created)
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	require.NoError(t, c.DeleteAssessment(ctx, created.ID))
	_, err = c.GetAssessment(ctx, created.ID)
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
	assert.True(t, api.IsStatus(c.DeleteAssessment(ctx, created.ID), http.StatusNotFound))

	_, err = c.CreateAssessment(ctx, &models.Assessment{JobID: "J1"})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))
}

func TestSubmitResponse_Validation(t *testing.T) {
	srv, st := newTestServer(t, nil)
	c := api.NewHTTPClient(srv.URL)
	ctx := context.Background()

	a, err := c.CreateAssessment(ctx, sampleAssessment())
	require.NoError(t, err)

	_, err = c.SubmitResponse(ctx, a.ID, &api.SubmitResponseRequest{
		CandidateID: "C1",
		Responses:   map[string]models.Answer{"q1": {Text: "Yes"}, "q2": {Text: "Somewhere far away"}},
	})
	var ae *api.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnprocessableEntity, ae.Status)
	assert.Equal(t, map[string]string{"q2": "Maximum 10 characters allowed"}, ae.Fields)

	// q2 is hidden when q1 is "No", so it is not required.
	resp, err := c.SubmitResponse(ctx, a.ID, &api.SubmitResponseRequest{
		CandidateID: "C1",
		Responses:   map[string]models.Answer{"q1": {Text: "No"}},
	})
	require.NoError(t, err)
	assert.Equal(t, a.ID, resp.AssessmentID)

	stored, err := st.ListResponses(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	_, err = c.SubmitResponse(ctx, "missing", &api.SubmitResponseRequest{})
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}
