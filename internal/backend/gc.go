package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kilupskalvis/talentflow/internal/assessment"
	"github.com/kilupskalvis/talentflow/internal/attachments"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/store"
)

// GCResult contains the outcome of an attachment prune.
type GCResult struct {
	Scanned    int
	Deleted    int
	Referenced int
}

const gcPageSize = 500

// PruneAttachments removes attachments referenced by neither a candidate
// resume nor a file-upload answer.
func PruneAttachments(ctx context.Context, st store.Store, files attachments.Store, logger *slog.Logger) (*GCResult, error) {
	result := &GCResult{}

	referenced, err := referencedAttachments(ctx, st)
	if err != nil {
		return nil, err
	}
	result.Referenced = len(referenced)

	all, err := files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	result.Scanned = len(all)

	for _, hash := range all {
		if referenced[hash] {
			continue
		}
		if err := files.Delete(ctx, hash); err != nil {
			logger.Warn("gc: failed to delete attachment", "hash", hash, "error", err)
			continue
		}
		result.Deleted++
	}

	logger.Info("gc complete",
		"scanned", result.Scanned,
		"referenced", result.Referenced,
		"deleted", result.Deleted,
	)
	return result, nil
}

func referencedAttachments(ctx context.Context, st store.Store) (map[string]bool, error) {
	refs := make(map[string]bool)

	for page := 1; ; page++ {
		p, err := st.ListCandidates(ctx, store.CandidateQuery{Page: page, PageSize: gcPageSize})
		if err != nil {
			return nil, fmt.Errorf("list candidates: %w", err)
		}
		for _, c := range p.Items {
			if c.Resume != "" {
				refs[c.Resume] = true
			}
		}
		if page >= p.TotalPages {
			break
		}
	}

	list, err := st.ListAssessments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	for _, a := range list {
		responses, err := st.ListResponses(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("list responses %s: %w", a.ID, err)
		}
		for _, q := range assessment.Questions(a) {
			if q.Type != models.QuestionFileUpload {
				continue
			}
			for _, r := range responses {
				if hash := r.Responses[q.ID].Text; hash != "" {
					refs[hash] = true
				}
			}
		}
	}
	return refs, nil
}
