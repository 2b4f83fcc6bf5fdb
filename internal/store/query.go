package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilupskalvis/talentflow/internal/models"
)

// Default page sizes when a query leaves PageSize unset.
const (
	DefaultJobPageSize       = 10
	DefaultCandidatePageSize = 50
)

// Job sort fields.
const (
	SortOrder     = "order"
	SortTitle     = "title"
	SortCreatedAt = "createdAt"
)

// Page is one page of a filtered, sorted collection.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// JobQuery filters, sorts and paginates jobs. Empty fields do not filter.
type JobQuery struct {
	Search   string
	Status   models.JobStatus
	Type     models.JobType
	Location string
	Tags     []string // job must carry all of them
	Page     int
	PageSize int
	Sort     string
}

// Normalize fills defaults and rejects unknown sort fields.
func (q *JobQuery) Normalize() error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultJobPageSize
	}
	switch q.Sort {
	case "":
		q.Sort = SortOrder
	case SortOrder, SortTitle, SortCreatedAt:
	default:
		return fmt.Errorf("%w: unknown sort field %q", ErrInvalidQuery, q.Sort)
	}
	return nil
}

// Match reports whether job passes every filter in q.
func (q *JobQuery) Match(job *models.Job) bool {
	if q.Status != "" && job.Status != q.Status {
		return false
	}
	if q.Type != "" && job.Type != q.Type {
		return false
	}
	if q.Location != "" && job.Location != q.Location {
		return false
	}
	for _, tag := range q.Tags {
		if !job.HasTag(tag) {
			return false
		}
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if strings.Contains(strings.ToLower(job.Title), needle) {
			return true
		}
		for _, tag := range job.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	}
	return true
}

// CandidateQuery filters and paginates candidates. Results are always
// newest first.
type CandidateQuery struct {
	Search   string
	Stage    models.Stage
	JobID    string
	Page     int
	PageSize int
}

// Normalize fills defaults.
func (q *CandidateQuery) Normalize() error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultCandidatePageSize
	}
	if q.Stage != "" && !q.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidQuery, q.Stage)
	}
	return nil
}

// Match reports whether c passes every filter in q.
func (q *CandidateQuery) Match(c *models.Candidate) bool {
	if q.Stage != "" && c.Stage != q.Stage {
		return false
	}
	if q.JobID != "" && c.JobID != q.JobID {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		return strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.Email), needle)
	}
	return true
}

func sortJobs(jobs []*models.Job, field string) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		switch field {
		case SortTitle:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case SortCreatedAt:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		default:
			if a.Order != b.Order {
				return a.Order < b.Order
			}
		}
		return a.ID < b.ID
	})
}

func sortCandidatesNewestFirst(cs []*models.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID > cs[j].ID
	})
}

// paginate slices items into the requested page. TotalPages is
// ceil(total/pageSize).
func paginate[T any](items []T, page, pageSize int) *Page[T] {
	total := len(items)
	p := &Page[T]{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Items:      []T{},
	}
	start := (page - 1) * pageSize
	if start >= total {
		return p
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	p.Items = items[start:end]
	return p
}

// filterJobs applies q to jobs and returns the requested page.
func filterJobs(jobs []*models.Job, q JobQuery) *Page[*models.Job] {
	matched := make([]*models.Job, 0, len(jobs))
	for _, j := range jobs {
		if q.Match(j) {
			matched = append(matched, j)
		}
	}
	sortJobs(matched, q.Sort)
	return paginate(matched, q.Page, q.PageSize)
}

// filterCandidates applies q to cs and returns the requested page.
func filterCandidates(cs []*models.Candidate, q CandidateQuery) *Page[*models.Candidate] {
	matched := make([]*models.Candidate, 0, len(cs))
	for _, c := range cs {
		if q.Match(c) {
			matched = append(matched, c)
		}
	}
	sortCandidatesNewestFirst(matched)
	return paginate(matched, q.Page, q.PageSize)
}

// reorderJobs moves the job with the given id to the 1-based position
// toOrder within jobs (already sorted by order) and renumbers densely. It
// returns the jobs whose order changed.
func reorderJobs(jobs []*models.Job, id string, toOrder int) ([]*models.Job, *models.Job, error) {
	from := -1
	for i, j := range jobs {
		if j.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, nil, ErrNotFound
	}

	values := make([]models.Job, len(jobs))
	prev := make(map[string]int, len(jobs))
	for i, j := range jobs {
		values[i] = *j
		prev[j.ID] = j.Order
	}
	values = models.Move(values, from, toOrder-1)
	models.RenumberJobs(values)

	var changed []*models.Job
	var moved *models.Job
	for i := range values {
		v := &values[i]
		if v.ID == id {
			moved = v
		}
		if prev[v.ID] != v.Order {
			changed = append(changed, v)
		}
	}
	return changed, moved, nil
}
