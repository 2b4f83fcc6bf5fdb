package view

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/optimistic"
)

const boardPageSize = 500

// StageApply returns a copy of snapshot with candidate id moved to stage.
func StageApply(snapshot []models.Candidate, id string, stage models.Stage) []models.Candidate {
	out := make([]models.Candidate, len(snapshot))
	copy(out, snapshot)
	for i := range out {
		if out[i].ID == id {
			out[i].Stage = stage
			break
		}
	}
	return out
}

// Column is one board lane.
type Column struct {
	Stage      models.Stage
	Candidates []models.Candidate
}

// Board is the kanban view of candidates, one column per stage.
type Board struct {
	deps       Deps
	jobID      string
	candidates *Collection[models.Candidate]
	ctrl       *optimistic.Controller[models.Candidate, models.Stage]

	mu     sync.Mutex
	search string
}

// NewBoard creates an empty board, optionally limited to one job's
// candidates. Call Refresh to load it.
func NewBoard(deps Deps, jobID string) *Board {
	cands := NewCollection(func(c models.Candidate) string { return c.ID }, nil)
	return &Board{
		deps:       deps,
		jobID:      jobID,
		candidates: cands,
		ctrl: optimistic.New(optimistic.Config[models.Candidate, models.Stage]{
			View:     cands,
			Value:    func(c models.Candidate) models.Stage { return c.Stage },
			Label:    func(c models.Candidate) string { return c.Name },
			Format:   func(s models.Stage) string { return s.Title() },
			Notifier: deps.Notifier,
			Session:  deps.Session,
			Logger:   deps.logger(),
		}),
	}
}

// Refresh loads every candidate from the backend, page by page.
func (b *Board) Refresh(ctx context.Context) error {
	var all []models.Candidate
	for page := 1; ; page++ {
		resp, err := b.deps.Client.ListCandidates(ctx, &api.ListCandidatesParams{
			JobID:    b.jobID,
			Page:     page,
			PageSize: boardPageSize,
		})
		if err != nil {
			return fmt.Errorf("list candidates: %w", err)
		}
		for _, c := range resp.Data {
			all = append(all, *c)
		}
		if page >= resp.Pagination.TotalPages {
			break
		}
	}
	b.candidates.Replace(all)
	return nil
}

// Search filters the columns by name or email, case-insensitively.
func (b *Board) Search(query string) {
	b.mu.Lock()
	b.search = strings.ToLower(strings.TrimSpace(query))
	b.mu.Unlock()
}

// Columns returns the lanes in stage order, filtered by the current search.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	needle := b.search
	b.mu.Unlock()

	cols := make([]Column, len(models.Stages))
	index := make(map[models.Stage]int, len(models.Stages))
	for i, s := range models.Stages {
		cols[i] = Column{Stage: s, Candidates: []models.Candidate{}}
		index[s] = i
	}
	for _, c := range b.candidates.Items() {
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.Email), needle) {
			continue
		}
		if i, ok := index[c.Stage]; ok {
			cols[i].Candidates = append(cols[i].Candidates, c)
		}
	}
	return cols
}

// Candidate returns one candidate from the board snapshot.
func (b *Board) Candidate(id string) (models.Candidate, bool) {
	return b.candidates.Lookup(id)
}

// OnMove handles dropping candidate id onto the stage column.
func (b *Board) OnMove(ctx context.Context, id string, stage models.Stage) (*optimistic.Pending[models.Stage], error) {
	if !b.deps.canEdit() {
		return nil, ErrReadOnly
	}
	if !stage.Valid() {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	return b.ctrl.Perform(ctx, id, stage, StageApply, b.confirmMove), nil
}

func (b *Board) confirmMove(ctx context.Context, in optimistic.Intent[models.Stage]) error {
	stage := in.Proposed
	_, err := b.deps.Client.UpdateCandidate(ctx, in.EntityID, &api.UpdateCandidateRequest{
		Stage:  &stage,
		Author: b.deps.Session.Current().Name,
	})
	return err
}

// Wait blocks until every pending move has resolved.
func (b *Board) Wait() {
	b.ctrl.Wait()
}
