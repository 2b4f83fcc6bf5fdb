package view

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/models"
	"golang.org/x/sync/errgroup"
)

// Profile is a candidate with its timeline, newest event first.
type Profile struct {
	Candidate *models.Candidate
	Timeline  []*models.TimelineEvent
}

// LoadProfile fetches a candidate and its timeline concurrently.
func LoadProfile(ctx context.Context, client api.Client, id string) (*Profile, error) {
	p := &Profile{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := client.GetCandidate(gctx, id)
		if err != nil {
			return fmt.Errorf("get candidate %s: %w", id, err)
		}
		p.Candidate = c
		return nil
	})
	g.Go(func() error {
		events, err := client.GetTimeline(gctx, id)
		if err != nil {
			return fmt.Errorf("get timeline %s: %w", id, err)
		}
		p.Timeline = events
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}
