package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kilupskalvis/talentflow/internal/models"
	bolt "go.etcd.io/bbolt"
)

// Record buckets hold JSON documents keyed by ID.
var (
	bucketJobs        = []byte("jobs")
	bucketCandidates  = []byte("candidates")
	bucketAssessments = []byte("assessments")
	bucketTimeline    = []byte("timeline_events")
	bucketResponses   = []byte("assessment_responses")
)

// Index buckets hold keys of the form "value\x00id" with empty values.
var (
	idxJobStatus          = []byte("idx_jobs_status")
	idxJobOrder           = []byte("idx_jobs_order")
	idxCandidateStage     = []byte("idx_candidates_stage")
	idxCandidateJob       = []byte("idx_candidates_job")
	idxTimelineCandidate  = []byte("idx_timeline_candidate")
	idxAssessmentJob      = []byte("idx_assessments_job")
	idxResponseAssessment = []byte("idx_responses_assessment")
)

var allBuckets = [][]byte{
	bucketJobs, bucketCandidates, bucketAssessments, bucketTimeline, bucketResponses,
	idxJobStatus, idxJobOrder, idxCandidateStage, idxCandidateJob,
	idxTimelineCandidate, idxAssessmentJob, idxResponseAssessment,
}

const keySep = 0x00

// BboltStore implements Store using bbolt.
type BboltStore struct {
	db *bolt.DB
}

// NewBboltStore opens or creates a bbolt database at the given path.
func NewBboltStore(dbPath string) (*BboltStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BboltStore{db: db}, nil
}

// Close releases the bbolt database.
func (s *BboltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type indexEntry struct {
	bucket []byte
	key    []byte
}

func indexKey(value, id string) []byte {
	k := make([]byte, 0, len(value)+len(id)+1)
	k = append(k, value...)
	k = append(k, keySep)
	return append(k, id...)
}

func indexPrefix(value string) []byte {
	return append([]byte(value), keySep)
}

func orderKey(order int) string {
	return fmt.Sprintf("%010d", order)
}

func jobIndexes(j *models.Job) []indexEntry {
	return []indexEntry{
		{idxJobStatus, indexKey(string(j.Status), j.ID)},
		{idxJobOrder, indexKey(orderKey(j.Order), j.ID)},
	}
}

func candidateIndexes(c *models.Candidate) []indexEntry {
	return []indexEntry{
		{idxCandidateStage, indexKey(string(c.Stage), c.ID)},
		{idxCandidateJob, indexKey(c.JobID, c.ID)},
	}
}

func assessmentIndexes(a *models.Assessment) []indexEntry {
	return []indexEntry{{idxAssessmentJob, indexKey(a.JobID, a.ID)}}
}

// putDoc stores v under id in bucket and swaps its index entries from old to
// cur.
func putDoc(tx *bolt.Tx, bucket []byte, id string, v any, old, cur []indexEntry) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", bucket, err)
	}
	for _, e := range old {
		if err := tx.Bucket(e.bucket).Delete(e.key); err != nil {
			return fmt.Errorf("drop index %s: %w", e.bucket, err)
		}
	}
	for _, e := range cur {
		if err := tx.Bucket(e.bucket).Put(e.key, nil); err != nil {
			return fmt.Errorf("write index %s: %w", e.bucket, err)
		}
	}
	if err := tx.Bucket(bucket).Put([]byte(id), data); err != nil {
		return fmt.Errorf("store %s: %w", bucket, err)
	}
	return nil
}

func getDoc(tx *bolt.Tx, bucket []byte, id string, v any) error {
	data := tx.Bucket(bucket).Get([]byte(id))
	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

// scanIndex returns the IDs stored under value in an index bucket, in key
// order.
func scanIndex(tx *bolt.Tx, bucket []byte, value string) []string {
	prefix := indexPrefix(value)
	var ids []string
	c := tx.Bucket(bucket).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		ids = append(ids, string(k[len(prefix):]))
	}
	return ids
}

// --- Jobs ---

// PutJob inserts or replaces a job.
func (s *BboltStore) PutJob(_ context.Context, job *models.Job) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.putJobTx(tx, job)
	})
}

func (s *BboltStore) putJobTx(tx *bolt.Tx, job *models.Job) error {
	var old []indexEntry
	var prev models.Job
	if err := getDoc(tx, bucketJobs, job.ID, &prev); err == nil {
		old = jobIndexes(&prev)
	}
	return putDoc(tx, bucketJobs, job.ID, job, old, jobIndexes(job))
}

// GetJob retrieves a job by ID. Returns ErrNotFound if missing.
func (s *BboltStore) GetJob(_ context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		return getDoc(tx, bucketJobs, id, &job)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob applies fn to the stored job and persists the result.
func (s *BboltStore) UpdateJob(_ context.Context, id string, fn func(*models.Job) error) (*models.Job, error) {
	var job models.Job
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := getDoc(tx, bucketJobs, id, &job); err != nil {
			return err
		}
		old := jobIndexes(&job)
		if err := fn(&job); err != nil {
			return err
		}
		job.ID = id
		return putDoc(tx, bucketJobs, id, &job, old, jobIndexes(&job))
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// jobsByOrder loads every job following the order index.
func (s *BboltStore) jobsByOrder(tx *bolt.Tx) ([]*models.Job, error) {
	var jobs []*models.Job
	c := tx.Bucket(idxJobOrder).Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		i := bytes.IndexByte(k, keySep)
		if i < 0 {
			continue
		}
		var job models.Job
		if err := getDoc(tx, bucketJobs, string(k[i+1:]), &job); err != nil {
			return nil, fmt.Errorf("load job %s: %w", k[i+1:], err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

// MoveJob moves a job to the 1-based position toOrder and renumbers every
// job densely in one transaction.
func (s *BboltStore) MoveJob(_ context.Context, id string, toOrder int) (*models.Job, error) {
	var moved *models.Job
	err := s.db.Update(func(tx *bolt.Tx) error {
		jobs, err := s.jobsByOrder(tx)
		if err != nil {
			return err
		}
		changed, m, err := reorderJobs(jobs, id, toOrder)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, j := range changed {
			j.UpdatedAt = now
			if err := s.putJobTx(tx, j); err != nil {
				return err
			}
		}
		moved = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// NextJobOrder returns one past the highest stored order.
func (s *BboltStore) NextJobOrder(_ context.Context) (int, error) {
	next := 1
	err := s.db.View(func(tx *bolt.Tx) error {
		k, _ := tx.Bucket(idxJobOrder).Cursor().Last()
		if k == nil {
			return nil
		}
		var last int
		if _, err := fmt.Sscanf(string(k[:bytes.IndexByte(k, keySep)]), "%d", &last); err != nil {
			return fmt.Errorf("parse order index: %w", err)
		}
		next = last + 1
		return nil
	})
	return next, err
}

// ListJobs returns a filtered, sorted page of jobs. A status filter is
// served from the status index.
func (s *BboltStore) ListJobs(_ context.Context, q JobQuery) (*Page[*models.Job], error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	var jobs []*models.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		if q.Status == "" {
			var err error
			jobs, err = s.jobsByOrder(tx)
			return err
		}
		for _, id := range scanIndex(tx, idxJobStatus, string(q.Status)) {
			var job models.Job
			if err := getDoc(tx, bucketJobs, id, &job); err != nil {
				return fmt.Errorf("load job %s: %w", id, err)
			}
			jobs = append(jobs, &job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return filterJobs(jobs, q), nil
}

// --- Candidates ---

// PutCandidate inserts or replaces a candidate.
func (s *BboltStore) PutCandidate(ctx context.Context, c *models.Candidate) error {
	return s.PutCandidates(ctx, []*models.Candidate{c})
}

// PutCandidates inserts or replaces candidates in a single transaction.
func (s *BboltStore) PutCandidates(_ context.Context, cs []*models.Candidate) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, c := range cs {
			var old []indexEntry
			var prev models.Candidate
			if err := getDoc(tx, bucketCandidates, c.ID, &prev); err == nil {
				old = candidateIndexes(&prev)
			}
			if err := putDoc(tx, bucketCandidates, c.ID, c, old, candidateIndexes(c)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCandidate retrieves a candidate by ID. Returns ErrNotFound if missing.
func (s *BboltStore) GetCandidate(_ context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	err := s.db.View(func(tx *bolt.Tx) error {
		return getDoc(tx, bucketCandidates, id, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCandidate applies fn to the stored candidate and appends the event
// fn returns, if any, atomically.
func (s *BboltStore) UpdateCandidate(_ context.Context, id string, fn func(*models.Candidate) (*models.TimelineEvent, error)) (*models.Candidate, error) {
	var c models.Candidate
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := getDoc(tx, bucketCandidates, id, &c); err != nil {
			return err
		}
		old := candidateIndexes(&c)
		ev, err := fn(&c)
		if err != nil {
			return err
		}
		c.ID = id
		if err := putDoc(tx, bucketCandidates, id, &c, old, candidateIndexes(&c)); err != nil {
			return err
		}
		if ev != nil {
			return appendEventTx(tx, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCandidates returns a filtered page of candidates, newest first. Job
// and stage filters are served from their indexes.
func (s *BboltStore) ListCandidates(_ context.Context, q CandidateQuery) (*Page[*models.Candidate], error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	var cs []*models.Candidate
	err := s.db.View(func(tx *bolt.Tx) error {
		var ids []string
		switch {
		case q.JobID != "":
			ids = scanIndex(tx, idxCandidateJob, q.JobID)
		case q.Stage != "":
			ids = scanIndex(tx, idxCandidateStage, string(q.Stage))
		default:
			return tx.Bucket(bucketCandidates).ForEach(func(_, v []byte) error {
				var c models.Candidate
				if err := json.Unmarshal(v, &c); err != nil {
					return fmt.Errorf("unmarshal candidate: %w", err)
				}
				cs = append(cs, &c)
				return nil
			})
		}
		for _, id := range ids {
			var c models.Candidate
			if err := getDoc(tx, bucketCandidates, id, &c); err != nil {
				return fmt.Errorf("load candidate %s: %w", id, err)
			}
			cs = append(cs, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return filterCandidates(cs, q), nil
}

// --- Timeline ---

// appendEventTx stores ev keyed by a per-bucket sequence so that the
// candidate index preserves insertion order.
func appendEventTx(tx *bolt.Tx, ev *models.TimelineEvent) error {
	b := tx.Bucket(bucketTimeline)
	if b.Get([]byte(ev.ID)) != nil {
		return fmt.Errorf("timeline event %s already exists", ev.ID)
	}
	seq, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("timeline sequence: %w", err)
	}
	key := indexKey(ev.CandidateID, fmt.Sprintf("%020d", seq))
	if err := tx.Bucket(idxTimelineCandidate).Put(key, []byte(ev.ID)); err != nil {
		return fmt.Errorf("write timeline index: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal timeline event: %w", err)
	}
	return b.Put([]byte(ev.ID), data)
}

// AppendTimelineEvent appends an event. Existing events are never replaced.
func (s *BboltStore) AppendTimelineEvent(_ context.Context, ev *models.TimelineEvent) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return appendEventTx(tx, ev)
	})
}

// ListTimeline returns a candidate's events, newest first.
func (s *BboltStore) ListTimeline(_ context.Context, candidateID string) ([]*models.TimelineEvent, error) {
	events := []*models.TimelineEvent{}
	err := s.db.View(func(tx *bolt.Tx) error {
		prefix := indexPrefix(candidateID)
		var ids []string
		c := tx.Bucket(idxTimelineCandidate).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			ids = append(ids, string(v))
		}
		for i := len(ids) - 1; i >= 0; i-- {
			var ev models.TimelineEvent
			if err := getDoc(tx, bucketTimeline, ids[i], &ev); err != nil {
				return fmt.Errorf("load timeline event %s: %w", ids[i], err)
			}
			events = append(events, &ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// --- Assessments ---

// PutAssessment inserts or replaces an assessment.
func (s *BboltStore) PutAssessment(_ context.Context, a *models.Assessment) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var old []indexEntry
		var prev models.Assessment
		if err := getDoc(tx, bucketAssessments, a.ID, &prev); err == nil {
			old = assessmentIndexes(&prev)
		}
		return putDoc(tx, bucketAssessments, a.ID, a, old, assessmentIndexes(a))
	})
}

// GetAssessment retrieves an assessment by ID. Returns ErrNotFound if missing.
func (s *BboltStore) GetAssessment(_ context.Context, id string) (*models.Assessment, error) {
	var a models.Assessment
	err := s.db.View(func(tx *bolt.Tx) error {
		return getDoc(tx, bucketAssessments, id, &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssessments returns all assessments, or those of one job when jobID
// is set, ordered by ID.
func (s *BboltStore) ListAssessments(_ context.Context, jobID string) ([]*models.Assessment, error) {
	out := []*models.Assessment{}
	err := s.db.View(func(tx *bolt.Tx) error {
		if jobID == "" {
			return tx.Bucket(bucketAssessments).ForEach(func(_, v []byte) error {
				var a models.Assessment
				if err := json.Unmarshal(v, &a); err != nil {
					return fmt.Errorf("unmarshal assessment: %w", err)
				}
				out = append(out, &a)
				return nil
			})
		}
		for _, id := range scanIndex(tx, idxAssessmentJob, jobID) {
			var a models.Assessment
			if err := getDoc(tx, bucketAssessments, id, &a); err != nil {
				return fmt.Errorf("load assessment %s: %w", id, err)
			}
			out = append(out, &a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAssessment removes an assessment. Returns ErrNotFound if it doesn't exist.
func (s *BboltStore) DeleteAssessment(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var a models.Assessment
		if err := getDoc(tx, bucketAssessments, id, &a); err != nil {
			return err
		}
		for _, e := range assessmentIndexes(&a) {
			if err := tx.Bucket(e.bucket).Delete(e.key); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketAssessments).Delete([]byte(id))
	})
}

// --- Responses ---

// PutResponse stores a submitted assessment response.
func (s *BboltStore) PutResponse(_ context.Context, r *models.AssessmentResponse) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		entry := []indexEntry{{idxResponseAssessment, indexKey(r.AssessmentID, r.ID)}}
		return putDoc(tx, bucketResponses, r.ID, r, nil, entry)
	})
}

// ListResponses returns the responses submitted for an assessment.
func (s *BboltStore) ListResponses(_ context.Context, assessmentID string) ([]*models.AssessmentResponse, error) {
	out := []*models.AssessmentResponse{}
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, id := range scanIndex(tx, idxResponseAssessment, assessmentID) {
			var r models.AssessmentResponse
			if err := getDoc(tx, bucketResponses, id, &r); err != nil {
				return fmt.Errorf("load response %s: %w", id, err)
			}
			out = append(out, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reset drops and recreates every bucket.
func (s *BboltStore) Reset(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return fmt.Errorf("drop bucket %s: %w", name, err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}
