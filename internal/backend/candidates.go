package backend

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/attachments"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/store"
)

func (s *server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := store.CandidateQuery{
		Search: v.Get("search"),
		Stage:  models.Stage(v.Get("stage")),
		JobID:  v.Get("jobId"),
	}
	var err error
	if q.Page, err = intParam(v, "page"); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}
	if q.PageSize, err = intParam(v, "pageSize"); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}

	page, err := s.store.ListCandidates(r.Context(), q)
	if err != nil {
		s.storeError(w, r, err, "candidate")
		return
	}

	writeJSON(w, http.StatusOK, &api.CandidatesPage{Data: page.Items, Pagination: pagination(page)})
}

func (s *server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCandidate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, r, err, "candidate")
		return
	}
	writeJSON(w, http.StatusOK, &api.Envelope[*models.Candidate]{Data: c})
}

// handleUpdateCandidate patches a candidate. When the stage changes, exactly
// one stage_change event is appended in the same transaction; any other
// update appends nothing.
func (s *server) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateCandidateRequest
	if err := readJSON(r, s.cfg.MaxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}
	if req.Stage != nil && !req.Stage.Valid() {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, fmt.Sprintf("unknown stage %q", *req.Stage))
		return
	}

	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = models.DefaultAuthor
	}

	var stageEvent *models.TimelineEvent
	c, err := s.store.UpdateCandidate(r.Context(), r.PathValue("id"), func(c *models.Candidate) (*models.TimelineEvent, error) {
		now := time.Now().UTC()
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.Email != nil {
			c.Email = *req.Email
		}
		if req.JobID != nil {
			c.JobID = *req.JobID
		}
		if req.Phone != nil {
			c.Phone = *req.Phone
		}
		if req.Stage != nil && *req.Stage != c.Stage {
			stageEvent = &models.TimelineEvent{
				ID:            uuid.NewString(),
				CandidateID:   c.ID,
				Type:          models.EventStageChange,
				PreviousStage: c.Stage,
				NewStage:      *req.Stage,
				Author:        author,
				CreatedAt:     now,
			}
			c.Stage = *req.Stage
		}
		c.UpdatedAt = now
		return stageEvent, nil
	})
	if err != nil {
		s.storeError(w, r, err, "candidate")
		return
	}

	if stageEvent != nil {
		s.logger.Debug("stage changed",
			"candidate_id", c.ID,
			"from", stageEvent.PreviousStage,
			"to", stageEvent.NewStage,
			"author", author,
			"request_id", requestID(r),
		)
		s.cfg.Webhooks.NotifyStageChange(c, stageEvent)
	}

	writeJSON(w, http.StatusOK, &api.Envelope[*models.Candidate]{Data: c})
}

func (s *server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetCandidate(r.Context(), id); err != nil {
		s.storeError(w, r, err, "candidate")
		return
	}

	events, err := s.store.ListTimeline(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err, "candidate")
		return
	}
	writeJSON(w, http.StatusOK, &api.Envelope[[]*models.TimelineEvent]{Data: events})
}

// handleAddNote appends a note, with its parsed @mentions, and a note_added
// event.
func (s *server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req api.AddNoteRequest
	if err := readJSON(r, s.cfg.MaxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "content is required")
		return
	}
	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = models.DefaultAuthor
	}

	c, err := s.store.UpdateCandidate(r.Context(), r.PathValue("id"), func(c *models.Candidate) (*models.TimelineEvent, error) {
		now := time.Now().UTC()
		c.Notes = append(c.Notes, models.Note{
			ID:        uuid.NewString(),
			Content:   content,
			Mentions:  models.ParseMentions(content),
			Author:    author,
			CreatedAt: now,
		})
		c.UpdatedAt = now
		return &models.TimelineEvent{
			ID:          uuid.NewString(),
			CandidateID: c.ID,
			Type:        models.EventNoteAdded,
			Note:        content,
			Author:      author,
			CreatedAt:   now,
		}, nil
	})
	if err != nil {
		s.storeError(w, r, err, "candidate")
		return
	}

	writeJSON(w, http.StatusOK, &api.Envelope[*models.Candidate]{Data: c})
}

func (s *server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "attachment storage is not configured")
		return
	}
	id := r.PathValue("id")
	if _, err := s.store.GetCandidate(r.Context(), id); err != nil {
		s.storeError(w, r, err, "candidate")
		return
	}

	meta, err := s.files.Put(r.Context(), r.Body, r.Header.Get("Content-Type"), s.cfg.MaxAttachmentSize)
	if err != nil {
		if errors.Is(err, attachments.ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, api.CodeTooLarge, err.Error())
			return
		}
		s.logger.Error("store attachment", "error", err, "request_id", requestID(r))
		writeError(w, http.StatusInternalServerError, api.CodeInternal, err.Error())
		return
	}

	c, err := s.store.UpdateCandidate(r.Context(), id, func(c *models.Candidate) (*models.TimelineEvent, error) {
		c.Resume = meta.Hash
		c.UpdatedAt = time.Now().UTC()
		return nil, nil
	})
	if err != nil {
		s.storeError(w, r, err, "candidate")
		return
	}

	writeJSON(w, http.StatusOK, &api.Envelope[*models.Candidate]{Data: c})
}

func (s *server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeError(w, http.StatusNotFound, api.CodeNotFound, "attachment not found")
		return
	}
	hash := r.PathValue("hash")
	rc, meta, err := s.files.Open(r.Context(), hash)
	if err != nil {
		if errors.Is(err, attachments.ErrNotFound) {
			writeError(w, http.StatusNotFound, api.CodeNotFound, "attachment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, api.CodeInternal, err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("stream attachment", "hash", hash, "error", err, "request_id", requestID(r))
	}
}
