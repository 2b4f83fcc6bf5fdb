package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilupskalvis/talentflow/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on SQLite. Records are kept as JSON documents
// alongside the columns used for filtering and ordering.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		ord INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		doc JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		stage TEXT NOT NULL,
		job_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		doc JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS timeline_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		candidate_id TEXT NOT NULL,
		doc JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		doc JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assessment_responses (
		id TEXT PRIMARY KEY,
		assessment_id TEXT NOT NULL,
		doc JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_order ON jobs(ord, id);
	CREATE INDEX IF NOT EXISTS idx_candidates_stage ON candidates(stage);
	CREATE INDEX IF NOT EXISTS idx_candidates_job ON candidates(job_id);
	CREATE INDEX IF NOT EXISTS idx_timeline_candidate ON timeline_events(candidate_id, seq);
	CREATE INDEX IF NOT EXISTS idx_assessments_job ON assessments(job_id);
	CREATE INDEX IF NOT EXISTS idx_responses_assessment ON assessment_responses(assessment_id);
	`

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store database: %w", err)
	}
	// One writer keeps transactions serialized the way bbolt does.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing on success.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// getRow decodes the doc column of a single-row query into v.
func getRow(ctx context.Context, q queryer, v any, query string, args ...any) error {
	var doc string
	err := q.QueryRowContext(ctx, query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(doc), v)
}

// scanDocs decodes the doc column of every row.
func scanDocs[T any](ctx context.Context, q queryer, query string, args ...any) ([]*T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		v := new(T)
		if err := json.Unmarshal([]byte(doc), v); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- Jobs ---

func putJobTx(ctx context.Context, tx *sql.Tx, job *models.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (id, status, ord, created_at, doc) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, ord = excluded.ord,
			created_at = excluded.created_at, doc = excluded.doc`,
		job.ID, string(job.Status), job.Order, job.CreatedAt.UnixNano(), string(doc))
	if err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}

// PutJob inserts or replaces a job.
func (s *SQLiteStore) PutJob(ctx context.Context, job *models.Job) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return putJobTx(ctx, tx, job)
	})
}

// GetJob retrieves a job by ID. Returns ErrNotFound if missing.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := getRow(ctx, s.db, &job, `SELECT doc FROM jobs WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob applies fn to the stored job and persists the result.
func (s *SQLiteStore) UpdateJob(ctx context.Context, id string, fn func(*models.Job) error) (*models.Job, error) {
	var job models.Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := getRow(ctx, tx, &job, `SELECT doc FROM jobs WHERE id = ?`, id); err != nil {
			return err
		}
		if err := fn(&job); err != nil {
			return err
		}
		job.ID = id
		return putJobTx(ctx, tx, &job)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MoveJob moves a job to the 1-based position toOrder and renumbers every
// job densely in one transaction.
func (s *SQLiteStore) MoveJob(ctx context.Context, id string, toOrder int) (*models.Job, error) {
	var moved *models.Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		jobs, err := scanDocs[models.Job](ctx, tx, `SELECT doc FROM jobs ORDER BY ord, id`)
		if err != nil {
			return fmt.Errorf("load jobs: %w", err)
		}
		changed, m, err := reorderJobs(jobs, id, toOrder)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, j := range changed {
			j.UpdatedAt = now
			if err := putJobTx(ctx, tx, j); err != nil {
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
func (s *SQLiteStore) NextJobOrder(ctx context.Context) (int, error) {
	var top sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(ord) FROM jobs`).Scan(&top); err != nil {
		return 0, fmt.Errorf("query max order: %w", err)
	}
	return int(top.Int64) + 1, nil
}

// ListJobs returns a filtered, sorted page of jobs.
func (s *SQLiteStore) ListJobs(ctx context.Context, q JobQuery) (*Page[*models.Job], error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	query := `SELECT doc FROM jobs ORDER BY ord, id`
	var args []any
	if q.Status != "" {
		query = `SELECT doc FROM jobs WHERE status = ? ORDER BY ord, id`
		args = append(args, string(q.Status))
	}
	jobs, err := scanDocs[models.Job](ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return filterJobs(jobs, q), nil
}

// --- Candidates ---

func putCandidateTx(ctx context.Context, tx *sql.Tx, c *models.Candidate) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO candidates (id, stage, job_id, created_at, doc) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET stage = excluded.stage, job_id = excluded.job_id,
			created_at = excluded.created_at, doc = excluded.doc`,
		c.ID, string(c.Stage), c.JobID, c.CreatedAt.UnixNano(), string(doc))
	if err != nil {
		return fmt.Errorf("store candidate: %w", err)
	}
	return nil
}

// PutCandidate inserts or replaces a candidate.
func (s *SQLiteStore) PutCandidate(ctx context.Context, c *models.Candidate) error {
	return s.PutCandidates(ctx, []*models.Candidate{c})
}

// PutCandidates inserts or replaces candidates in a single transaction.
func (s *SQLiteStore) PutCandidates(ctx context.Context, cs []*models.Candidate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range cs {
			if err := putCandidateTx(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCandidate retrieves a candidate by ID. Returns ErrNotFound if missing.
func (s *SQLiteStore) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	if err := getRow(ctx, s.db, &c, `SELECT doc FROM candidates WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCandidate applies fn to the stored candidate and appends the event
// fn returns, if any, atomically.
func (s *SQLiteStore) UpdateCandidate(ctx context.Context, id string, fn func(*models.Candidate) (*models.TimelineEvent, error)) (*models.Candidate, error) {
	var c models.Candidate
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := getRow(ctx, tx, &c, `SELECT doc FROM candidates WHERE id = ?`, id); err != nil {
			return err
		}
		ev, err := fn(&c)
		if err != nil {
			return err
		}
		c.ID = id
		if err := putCandidateTx(ctx, tx, &c); err != nil {
			return err
		}
		if ev != nil {
			return appendEventSQL(ctx, tx, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCandidates returns a filtered page of candidates, newest first.
func (s *SQLiteStore) ListCandidates(ctx context.Context, q CandidateQuery) (*Page[*models.Candidate], error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if q.Stage != "" {
		where = append(where, "stage = ?")
		args = append(args, string(q.Stage))
	}
	if q.JobID != "" {
		where = append(where, "job_id = ?")
		args = append(args, q.JobID)
	}
	query := `SELECT doc FROM candidates`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	cs, err := scanDocs[models.Candidate](ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return filterCandidates(cs, q), nil
}

// --- Timeline ---

func appendEventSQL(ctx context.Context, tx *sql.Tx, ev *models.TimelineEvent) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal timeline event: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO timeline_events (id, candidate_id, doc) VALUES (?, ?, ?)`,
		ev.ID, ev.CandidateID, string(doc))
	if err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}
	return nil
}

// AppendTimelineEvent appends an event. Existing events are never replaced.
func (s *SQLiteStore) AppendTimelineEvent(ctx context.Context, ev *models.TimelineEvent) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return appendEventSQL(ctx, tx, ev)
	})
}

// ListTimeline returns a candidate's events, newest first.
func (s *SQLiteStore) ListTimeline(ctx context.Context, candidateID string) ([]*models.TimelineEvent, error) {
	events, err := scanDocs[models.TimelineEvent](ctx, s.db,
		`SELECT doc FROM timeline_events WHERE candidate_id = ? ORDER BY seq DESC`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	return events, nil
}

// --- Assessments ---

// PutAssessment inserts or replaces an assessment.
func (s *SQLiteStore) PutAssessment(ctx context.Context, a *models.Assessment) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, job_id, doc) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET job_id = excluded.job_id, doc = excluded.doc`,
		a.ID, a.JobID, string(doc))
	if err != nil {
		return fmt.Errorf("store assessment: %w", err)
	}
	return nil
}

// GetAssessment retrieves an assessment by ID. Returns ErrNotFound if missing.
func (s *SQLiteStore) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	var a models.Assessment
	if err := getRow(ctx, s.db, &a, `SELECT doc FROM assessments WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssessments returns all assessments, or those of one job when jobID
// is set, ordered by ID.
func (s *SQLiteStore) ListAssessments(ctx context.Context, jobID string) ([]*models.Assessment, error) {
	query := `SELECT doc FROM assessments ORDER BY id`
	var args []any
	if jobID != "" {
		query = `SELECT doc FROM assessments WHERE job_id = ? ORDER BY id`
		args = append(args, jobID)
	}
	out, err := scanDocs[models.Assessment](ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return out, nil
}

// DeleteAssessment removes an assessment. Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) DeleteAssessment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Responses ---

// PutResponse stores a submitted assessment response.
func (s *SQLiteStore) PutResponse(ctx context.Context, r *models.AssessmentResponse) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO assessment_responses (id, assessment_id, doc) VALUES (?, ?, ?)`,
		r.ID, r.AssessmentID, string(doc))
	if err != nil {
		return fmt.Errorf("store response: %w", err)
	}
	return nil
}

// ListResponses returns the responses submitted for an assessment.
func (s *SQLiteStore) ListResponses(ctx context.Context, assessmentID string) ([]*models.AssessmentResponse, error) {
	out, err := scanDocs[models.AssessmentResponse](ctx, s.db,
		`SELECT doc FROM assessment_responses WHERE assessment_id = ? ORDER BY id`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return out, nil
}

// Reset removes every record from every table.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"jobs", "candidates", "timeline_events", "assessments", "assessment_responses"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
