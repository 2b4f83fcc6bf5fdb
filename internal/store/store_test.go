package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backends = []string{BackendBbolt, BackendSQLite}

// newTestStore opens a store of the given backend in a temp directory.
func newTestStore(t *testing.T, backend string) Store {
	t.Helper()
	st, err := Open(backend, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// forEachBackend runs fn once per store implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, st Store)) {
	for _, b := range backends {
		t.Run(b, func(t *testing.T) {
			fn(t, newTestStore(t, b))
		})
	}
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func putJobs(t *testing.T, st Store, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, st.PutJob(context.Background(), &models.Job{
			ID:        fmt.Sprintf("J%d", i),
			Title:     fmt.Sprintf("Job %d", i),
			Status:    models.JobActive,
			Order:     i,
			CreatedAt: epoch.Add(time.Duration(i) * time.Hour),
		}))
	}
}

func jobIDs(jobs []*models.Job) []string {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}

func candidateIDs(cs []*models.Candidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

func allJobs(t *testing.T, st Store) []*models.Job {
	t.Helper()
	page, err := st.ListJobs(context.Background(), JobQuery{PageSize: 1000})
	require.NoError(t, err)
	return page.Items
}

// ==================== Open ====================

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("redis", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	for _, b := range backends {
		t.Run(b, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "store.db")
			st, err := Open(b, path)
			require.NoError(t, err)
			putJobs(t, st, 2)
			require.NoError(t, st.Close())

			st, err = Open(b, path)
			require.NoError(t, err)
			defer st.Close()
			got, err := st.GetJob(context.Background(), "J2")
			require.NoError(t, err)
			assert.Equal(t, "Job 2", got.Title)
		})
	}
}

// ==================== Jobs ====================

func TestStore_JobCRUD(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putJobs(t, st, 1)

		got, err := st.GetJob(ctx, "J1")
		require.NoError(t, err)
		assert.Equal(t, "Job 1", got.Title)
		assert.True(t, got.CreatedAt.Equal(epoch.Add(time.Hour)))

		updated, err := st.UpdateJob(ctx, "J1", func(j *models.Job) error {
			j.Status = models.JobArchived
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.JobArchived, updated.Status)

		_, err = st.GetJob(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = st.UpdateJob(ctx, "missing", func(*models.Job) error { return nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_UpdateJob_FnErrorAborts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putJobs(t, st, 1)
		boom := errors.New("boom")

		_, err := st.UpdateJob(ctx, "J1", func(j *models.Job) error {
			j.Title = "changed"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := st.GetJob(ctx, "J1")
		require.NoError(t, err)
		assert.Equal(t, "Job 1", got.Title)
	})
}

func TestStore_ListJobs_StatusIndexFollowsUpdates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putJobs(t, st, 3)
		_, err := st.UpdateJob(ctx, "J2", func(j *models.Job) error {
			j.Status = models.JobArchived
			return nil
		})
		require.NoError(t, err)

		active, err := st.ListJobs(ctx, JobQuery{Status: models.JobActive})
		require.NoError(t, err)
		assert.Equal(t, []string{"J1", "J3"}, jobIDs(active.Items))

		archived, err := st.ListJobs(ctx, JobQuery{Status: models.JobArchived})
		require.NoError(t, err)
		assert.Equal(t, []string{"J2"}, jobIDs(archived.Items))
	})
}

func TestStore_ListJobs_SearchAndPaging(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putJobs(t, st, 12)
		_, err := st.UpdateJob(ctx, "J5", func(j *models.Job) error {
			j.Tags = []string{"golang"}
			return nil
		})
		require.NoError(t, err)

		page, err := st.ListJobs(ctx, JobQuery{})
		require.NoError(t, err)
		assert.Equal(t, 12, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Len(t, page.Items, DefaultJobPageSize)

		page, err = st.ListJobs(ctx, JobQuery{Page: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"J11", "J12"}, jobIDs(page.Items))

		page, err = st.ListJobs(ctx, JobQuery{Search: "GOLANG"})
		require.NoError(t, err)
		assert.Equal(t, []string{"J5"}, jobIDs(page.Items))

		page, err = st.ListJobs(ctx, JobQuery{Page: 9})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.NotNil(t, page.Items)

		_, err = st.ListJobs(ctx, JobQuery{Sort: "salary"})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}

func TestStore_MoveJob(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putJobs(t, st, 5)

		moved, err := st.MoveJob(ctx, "J3", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, moved.Order)

		jobs := allJobs(t, st)
		assert.Equal(t, []string{"J3", "J1", "J2", "J4", "J5"}, jobIDs(jobs))
		for i, j := range jobs {
			assert.Equal(t, i+1, j.Order, "job %s", j.ID)
		}

		_, err = st.MoveJob(ctx, "J1", 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"J3", "J2", "J4", "J5", "J1"}, jobIDs(allJobs(t, st)))

		_, err = st.MoveJob(ctx, "missing", 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_MoveJob_RoundTripRestoresOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putJobs(t, st, 5)

		_, err := st.MoveJob(ctx, "J2", 4)
		require.NoError(t, err)
		_, err = st.MoveJob(ctx, "J2", 2)
		require.NoError(t, err)

		assert.Equal(t, []string{"J1", "J2", "J3", "J4", "J5"}, jobIDs(allJobs(t, st)))
	})
}

func TestStore_MoveJob_ConcurrentStaysDense(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putJobs(t, st, 8)

		var wg sync.WaitGroup
		for i := 1; i <= 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := st.MoveJob(ctx, fmt.Sprintf("J%d", i), 9-i)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		jobs := allJobs(t, st)
		require.Len(t, jobs, 8)
		for i, j := range jobs {
			assert.Equal(t, i+1, j.Order)
		}
	})
}

func TestStore_NextJobOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		next, err := st.NextJobOrder(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, next)

		putJobs(t, st, 3)
		next, err = st.NextJobOrder(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, next)
	})
}

// ==================== Candidates ====================

func putCandidate(t *testing.T, st Store, id, jobID string, stage models.Stage, created time.Time) {
	t.Helper()
	require.NoError(t, st.PutCandidate(context.Background(), &models.Candidate{
		ID:        id,
		Name:      "Name " + id,
		Email:     id + "@example.com",
		Stage:     stage,
		JobID:     jobID,
		CreatedAt: created,
	}))
}

func TestStore_PutCandidatesBatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		batch := []*models.Candidate{
			{ID: "C1", Name: "Jane Doe", Stage: models.StageApplied, JobID: "J1", CreatedAt: epoch},
			{ID: "C2", Name: "John Roe", Stage: models.StageOffer, JobID: "J2", CreatedAt: epoch.Add(time.Hour)},
		}
		require.NoError(t, st.PutCandidates(ctx, batch))

		page, err := st.ListCandidates(ctx, CandidateQuery{Stage: models.StageOffer})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "C2", page.Items[0].ID)

		// Replacing moves the candidate between stage indexes.
		batch[1].Stage = models.StageHired
		require.NoError(t, st.PutCandidates(ctx, batch[1:]))
		page, err = st.ListCandidates(ctx, CandidateQuery{Stage: models.StageOffer})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})
}

func TestStore_ListCandidates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putCandidate(t, st, "C1", "J1", models.StageApplied, epoch)
		putCandidate(t, st, "C2", "J1", models.StageTech, epoch.Add(time.Hour))
		putCandidate(t, st, "C3", "J2", models.StageApplied, epoch.Add(2*time.Hour))
		putCandidate(t, st, "C4", "ghost", models.StageApplied, epoch.Add(3*time.Hour))

		page, err := st.ListCandidates(ctx, CandidateQuery{})
		require.NoError(t, err)
		assert.Equal(t, []string{"C4", "C3", "C2", "C1"}, candidateIDs(page.Items))

		page, err = st.ListCandidates(ctx, CandidateQuery{JobID: "J1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"C2", "C1"}, candidateIDs(page.Items))

		page, err = st.ListCandidates(ctx, CandidateQuery{Stage: models.StageApplied, JobID: "J1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"C1"}, candidateIDs(page.Items))

		page, err = st.ListCandidates(ctx, CandidateQuery{Search: "c3@EXAMPLE"})
		require.NoError(t, err)
		assert.Equal(t, []string{"C3"}, candidateIDs(page.Items))

		_, err = st.ListCandidates(ctx, CandidateQuery{Stage: "interview"})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}

func TestStore_UpdateCandidate_AppendsEvent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putCandidate(t, st, "C1", "J1", models.StageApplied, epoch)

		c, err := st.UpdateCandidate(ctx, "C1", func(c *models.Candidate) (*models.TimelineEvent, error) {
			prev := c.Stage
			c.Stage = models.StageScreen
			return &models.TimelineEvent{
				ID: "E1", CandidateID: c.ID, Type: models.EventStageChange,
				PreviousStage: prev, NewStage: c.Stage, Author: models.DefaultAuthor, CreatedAt: epoch,
			}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.StageScreen, c.Stage)

		page, err := st.ListCandidates(ctx, CandidateQuery{Stage: models.StageApplied})
		require.NoError(t, err)
		assert.Empty(t, page.Items)

		events, err := st.ListTimeline(ctx, "C1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, models.StageApplied, events[0].PreviousStage)
		assert.Equal(t, models.StageScreen, events[0].NewStage)
	})
}

func TestStore_UpdateCandidate_FnErrorWritesNothing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putCandidate(t, st, "C1", "J1", models.StageApplied, epoch)

		_, err := st.UpdateCandidate(ctx, "C1", func(c *models.Candidate) (*models.TimelineEvent, error) {
			c.Stage = models.StageHired
			return nil, errors.New("rejected")
		})
		require.Error(t, err)

		c, err := st.GetCandidate(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, models.StageApplied, c.Stage)

		events, err := st.ListTimeline(ctx, "C1")
		require.NoError(t, err)
		assert.Empty(t, events)

		_, err = st.UpdateCandidate(ctx, "missing", func(*models.Candidate) (*models.TimelineEvent, error) { return nil, nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

// ==================== Timeline ====================

func TestStore_Timeline_NewestFirstAndAppendOnly(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		for i := 1; i <= 3; i++ {
			require.NoError(t, st.AppendTimelineEvent(ctx, &models.TimelineEvent{
				ID: fmt.Sprintf("E%d", i), CandidateID: "C1", Type: models.EventNoteAdded,
				Author: models.DefaultAuthor, CreatedAt: epoch,
			}))
		}
		require.NoError(t, st.AppendTimelineEvent(ctx, &models.TimelineEvent{
			ID: "other", CandidateID: "C2", Type: models.EventApplied, CreatedAt: epoch,
		}))

		err := st.AppendTimelineEvent(ctx, &models.TimelineEvent{ID: "E1", CandidateID: "C1"})
		assert.Error(t, err)

		events, err := st.ListTimeline(ctx, "C1")
		require.NoError(t, err)
		ids := make([]string, len(events))
		for i, ev := range events {
			ids[i] = ev.ID
		}
		assert.Equal(t, []string{"E3", "E2", "E1"}, ids)

		none, err := st.ListTimeline(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

// ==================== Assessments ====================

func TestStore_Assessments(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		for _, a := range []*models.Assessment{
			{ID: "A2", JobID: "J1", Title: "Second"},
			{ID: "A1", JobID: "J1", Title: "First"},
			{ID: "A3", JobID: "J2", Title: "Other"},
		} {
			require.NoError(t, st.PutAssessment(ctx, a))
		}

		all, err := st.ListAssessments(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		forJob, err := st.ListAssessments(ctx, "J1")
		require.NoError(t, err)
		require.Len(t, forJob, 2)
		assert.Equal(t, "A1", forJob[0].ID)
		assert.Equal(t, "A2", forJob[1].ID)

		// Moving an assessment to another job updates the job index.
		require.NoError(t, st.PutAssessment(ctx, &models.Assessment{ID: "A2", JobID: "J2", Title: "Moved"}))
		forJob, err = st.ListAssessments(ctx, "J1")
		require.NoError(t, err)
		assert.Len(t, forJob, 1)

		require.NoError(t, st.DeleteAssessment(ctx, "A1"))
		_, err = st.GetAssessment(ctx, "A1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, st.DeleteAssessment(ctx, "A1"), ErrNotFound)
	})
}

func TestStore_Responses(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		require.NoError(t, st.PutResponse(ctx, &models.AssessmentResponse{
			ID: "R1", AssessmentID: "A1", CandidateID: "C1",
			Responses: map[string]models.Answer{"q1": {Text: "yes"}},
		}))
		require.NoError(t, st.PutResponse(ctx, &models.AssessmentResponse{ID: "R2", AssessmentID: "A2"}))

		got, err := st.ListResponses(ctx, "A1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "yes", got[0].Responses["q1"].Text)
	})
}

// ==================== Reset ====================

func TestStore_Reset(t *testing.T) {
	forEachBackend(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		putJobs(t, st, 3)
		putCandidate(t, st, "C1", "J1", models.StageApplied, epoch)
		require.NoError(t, st.AppendTimelineEvent(ctx, &models.TimelineEvent{ID: "E1", CandidateID: "C1"}))

		require.NoError(t, st.Reset(ctx))

		assert.Empty(t, allJobs(t, st))
		_, err := st.GetCandidate(ctx, "C1")
		assert.ErrorIs(t, err, ErrNotFound)
		events, err := st.ListTimeline(ctx, "C1")
		require.NoError(t, err)
		assert.Empty(t, events)

		// Event IDs are free again after a reset.
		require.NoError(t, st.AppendTimelineEvent(ctx, &models.TimelineEvent{ID: "E1", CandidateID: "C1"}))
	})
}
