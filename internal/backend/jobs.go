package backend

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/store"
)

// intParam parses an optional positive integer query parameter.
func intParam(v url.Values, key string) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func parseJobQuery(v url.Values) (store.JobQuery, error) {
	q := store.JobQuery{
		Search:   v.Get("search"),
		Status:   models.JobStatus(v.Get("status")),
		Type:     models.JobType(v.Get("type")),
		Location: v.Get("location"),
		Tags:     v["tag"],
		Sort:     v.Get("sort"),
	}
	var err error
	if q.Page, err = intParam(v, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(v, "pageSize"); err != nil {
		return q, err
	}
	return q, nil
}

func validJobType(t models.JobType) bool {
	switch t {
	case "", models.JobFullTime, models.JobPartTime, models.JobContract:
		return true
	}
	return false
}

func (s *server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q, err := parseJobQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}

	page, err := s.store.ListJobs(r.Context(), q)
	if err != nil {
		s.storeError(w, r, err, "job")
		return
	}

	writeJSON(w, http.StatusOK, &api.JobsPage{Data: page.Items, Pagination: pagination(page)})
}

func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, r, err, "job")
		return
	}
	writeJSON(w, http.StatusOK, &api.Envelope[*models.Job]{Data: job})
}

func (s *server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req api.CreateJobRequest
	if err := readJSON(r, s.cfg.MaxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "title is required")
		return
	}
	if req.Status == "" {
		req.Status = models.JobActive
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}
	if !validJobType(req.Type) {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, fmt.Sprintf("unknown job type %q", req.Type))
		return
	}

	order, err := s.store.NextJobOrder(r.Context())
	if err != nil {
		s.storeError(w, r, err, "job")
		return
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:           uuid.NewString(),
		Title:        title,
		Slug:         models.Slugify(title),
		Status:       req.Status,
		Tags:         tags,
		Order:        order,
		Description:  req.Description,
		Requirements: req.Requirements,
		Location:     req.Location,
		Type:         req.Type,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.PutJob(r.Context(), job); err != nil {
		s.storeError(w, r, err, "job")
		return
	}

	// An explicit position shifts the jobs at and after it down by one.
	if req.Order > 0 && req.Order < order {
		job, err = s.store.MoveJob(r.Context(), job.ID, req.Order)
		if err != nil {
			s.storeError(w, r, err, "job")
			return
		}
	}

	writeJSON(w, http.StatusOK, &api.Envelope[*models.Job]{Data: job})
}

func (s *server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateJobRequest
	if err := readJSON(r, s.cfg.MaxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "title cannot be empty")
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, fmt.Sprintf("unknown status %q", *req.Status))
		return
	}
	if req.Type != nil && !validJobType(*req.Type) {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, fmt.Sprintf("unknown job type %q", *req.Type))
		return
	}

	job, err := s.store.UpdateJob(r.Context(), r.PathValue("id"), func(j *models.Job) error {
		if req.Title != nil {
			j.Title = strings.TrimSpace(*req.Title)
			j.Slug = models.Slugify(j.Title)
		}
		if req.Status != nil {
			j.Status = *req.Status
		}
		if req.Tags != nil {
			j.Tags = *req.Tags
		}
		if req.Description != nil {
			j.Description = *req.Description
		}
		if req.Requirements != nil {
			j.Requirements = *req.Requirements
		}
		if req.Location != nil {
			j.Location = *req.Location
		}
		if req.Type != nil {
			j.Type = *req.Type
		}
		j.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		s.storeError(w, r, err, "job")
		return
	}

	writeJSON(w, http.StatusOK, &api.Envelope[*models.Job]{Data: job})
}

// handleReorderJob moves the job to position toOrder in the full job list.
// Every job is renumbered densely in the same transaction, so siblings
// shift by one and orders stay unique.
func (s *server) handleReorderJob(w http.ResponseWriter, r *http.Request) {
	var req api.ReorderJobRequest
	if err := readJSON(r, s.cfg.MaxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}
	if req.ToOrder < 1 {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "toOrder must be at least 1")
		return
	}

	id := r.PathValue("id")
	job, err := s.store.MoveJob(r.Context(), id, req.ToOrder)
	if err != nil {
		s.storeError(w, r, err, "job")
		return
	}

	s.logger.Debug("job reordered",
		"job_id", id,
		"from_order", req.FromOrder,
		"to_order", job.Order,
		"request_id", requestID(r),
	)
	writeJSON(w, http.StatusOK, &api.SuccessResponse{Success: true})
}
