package view

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/optimistic"
)

// Move returns a copy of items with the element at from moved to index to.
func Move[T any](items []T, from, to int) []T {
	return models.Move(items, from, to)
}

// Renumber assigns dense 1-based orders following slice position.
func Renumber(jobs []models.Job) {
	models.RenumberJobs(jobs)
}

// ReorderApply moves job id to the slot holding order in snapshot. The
// snapshot's order values stay in place and the jobs are permuted across
// them; for a full list ordered 1..N this is Move followed by Renumber.
// The result is sorted by order whatever the snapshot's arrangement.
func ReorderApply(snapshot []models.Job, id string, order int) []models.Job {
	if !slices.ContainsFunc(snapshot, func(j models.Job) bool { return j.ID == id }) {
		return snapshot
	}
	snapshot = slices.Clone(snapshot)
	slices.SortStableFunc(snapshot, func(a, b models.Job) int { return a.Order - b.Order })
	from := slices.IndexFunc(snapshot, func(j models.Job) bool { return j.ID == id })

	slots := make([]int, len(snapshot))
	for i, j := range snapshot {
		slots[i] = j.Order
	}
	slices.Sort(slots)

	to, _ := slices.BinarySearch(slots, order)
	out := Move(snapshot, from, to)
	if slots[0] == 1 && slots[len(slots)-1] == len(slots) {
		Renumber(out)
		return out
	}
	for i := range out {
		out[i].Order = slots[i]
	}
	return out
}

// JobList is the paginated, filterable list of jobs.
type JobList struct {
	deps  Deps
	jobs  *Collection[models.Job]
	ctrl  *optimistic.Controller[models.Job, int]
	mu    sync.Mutex
	query api.ListJobsParams
	page  api.Pagination
}

// NewJobList creates an empty job list. Call Refresh to load it.
func NewJobList(deps Deps, query api.ListJobsParams) *JobList {
	jobs := NewCollection(func(j models.Job) string { return j.ID }, nil)
	return &JobList{
		deps:  deps,
		jobs:  jobs,
		query: query,
		ctrl: optimistic.New(optimistic.Config[models.Job, int]{
			View:     jobs,
			Value:    func(j models.Job) int { return j.Order },
			Label:    func(j models.Job) string { return j.Title },
			Format:   func(order int) string { return fmt.Sprintf("#%d", order) },
			Notifier: deps.Notifier,
			Session:  deps.Session,
			Logger:   deps.logger(),
		}),
	}
}

// Refresh fetches the current page from the backend.
func (l *JobList) Refresh(ctx context.Context) error {
	l.mu.Lock()
	q := l.query
	l.mu.Unlock()

	page, err := l.deps.Client.ListJobs(ctx, &q)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	items := make([]models.Job, len(page.Data))
	for i, j := range page.Data {
		items[i] = *j
	}
	l.jobs.Replace(items)

	l.mu.Lock()
	l.page = page.Pagination
	l.mu.Unlock()
	return nil
}

// SetQuery replaces the filters. Call Refresh to apply them.
func (l *JobList) SetQuery(q api.ListJobsParams) {
	l.mu.Lock()
	l.query = q
	l.mu.Unlock()
}

// Jobs returns the visible jobs in display order.
func (l *JobList) Jobs() []models.Job {
	return l.jobs.Items()
}

// Pagination returns the paging info of the last Refresh.
func (l *JobList) Pagination() api.Pagination {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// sortByOrder is the job sort under which display position follows order.
const sortByOrder = "order"

// OnReorder handles dropping job id at display position newIndex. The list
// must be sorted by order.
func (l *JobList) OnReorder(ctx context.Context, id string, newIndex int) (*optimistic.Pending[int], error) {
	if !l.deps.canEdit() {
		return nil, ErrReadOnly
	}
	l.mu.Lock()
	by := l.query.Sort
	l.mu.Unlock()
	if by != "" && by != sortByOrder {
		return nil, fmt.Errorf("%w: list is sorted by %s", ErrNotOrderSorted, by)
	}

	jobs := l.jobs.Items()
	if len(jobs) == 0 {
		return l.ctrl.Perform(ctx, id, 0, ReorderApply, l.confirmReorder), nil
	}
	slots := make([]int, len(jobs))
	for i, j := range jobs {
		slots[i] = j.Order
	}
	slices.Sort(slots)
	newIndex = max(0, min(newIndex, len(slots)-1))

	return l.ctrl.Perform(ctx, id, slots[newIndex], ReorderApply, l.confirmReorder), nil
}

func (l *JobList) confirmReorder(ctx context.Context, in optimistic.Intent[int]) error {
	return l.deps.Client.ReorderJob(ctx, in.EntityID, &api.ReorderJobRequest{
		FromOrder: in.Previous,
		ToOrder:   in.Proposed,
	})
}

// SetArchived archives or restores a job and updates it in place.
func (l *JobList) SetArchived(ctx context.Context, id string, archived bool) (*models.Job, error) {
	if !l.deps.canEdit() {
		return nil, ErrReadOnly
	}
	status := models.JobActive
	if archived {
		status = models.JobArchived
	}
	job, err := l.deps.Client.UpdateJob(ctx, id, &api.UpdateJobRequest{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	l.jobs.Set(*job)
	return job, nil
}

// Wait blocks until every pending reorder has resolved.
func (l *JobList) Wait() {
	l.ctrl.Wait()
}
