package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/assessment"
	"github.com/kilupskalvis/talentflow/internal/models"
)

func (s *server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListAssessments(r.Context(), r.URL.Query().Get("jobId"))
	if err != nil {
		s.storeError(w, r, err, "assessment")
		return
	}
	writeJSON(w, http.StatusOK, &api.Envelope[[]*models.Assessment]{Data: list})
}

func (s *server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAssessment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, r, err, "assessment")
		return
	}
	writeJSON(w, http.StatusOK, &api.Envelope[*models.Assessment]{Data: a})
}

// readAssessment decodes and checks an assessment body.
func (s *server) readAssessment(w http.ResponseWriter, r *http.Request) (*models.Assessment, bool) {
	var a models.Assessment
	if err := readJSON(r, s.cfg.MaxRequestBody, &a); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return nil, false
	}
	if strings.TrimSpace(a.Title) == "" {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "title is required")
		return nil, false
	}
	if a.Sections == nil {
		a.Sections = []models.AssessmentSection{}
	}
	return &a, true
}

func (s *server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	a, ok := s.readAssessment(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.store.PutAssessment(r.Context(), a); err != nil {
		s.storeError(w, r, err, "assessment")
		return
	}
	writeJSON(w, http.StatusOK, &api.Envelope[*models.Assessment]{Data: a})
}

func (s *server) handleUpdateAssessment(w http.ResponseWriter, r *http.Request) {
	a, ok := s.readAssessment(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	existing, err := s.store.GetAssessment(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err, "assessment")
		return
	}

	a.ID = id
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	if err := s.store.PutAssessment(r.Context(), a); err != nil {
		s.storeError(w, r, err, "assessment")
		return
	}
	writeJSON(w, http.StatusOK, &api.Envelope[*models.Assessment]{Data: a})
}

func (s *server) handleDeleteAssessment(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAssessment(r.Context(), r.PathValue("id")); err != nil {
		s.storeError(w, r, err, "assessment")
		return
	}
	writeJSON(w, http.StatusOK, &api.SuccessResponse{Success: true})
}

// handleSubmitResponse validates the visible questions and stores the
// response. Failing answers are reported per question with 422.
func (s *server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitResponseRequest
	if err := readJSON(r, s.cfg.MaxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}

	a, err := s.store.GetAssessment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, r, err, "assessment")
		return
	}

	if errs := assessment.Validate(a, req.Responses); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, &api.ErrorResponse{
			Error:   api.CodeInvalidResponse,
			Message: "response failed validation",
			Fields:  errs,
		})
		return
	}

	resp := &models.AssessmentResponse{
		ID:           uuid.NewString(),
		AssessmentID: a.ID,
		CandidateID:  req.CandidateID,
		Responses:    req.Responses,
		SubmittedAt:  time.Now().UTC(),
	}
	if err := s.store.PutResponse(r.Context(), resp); err != nil {
		s.storeError(w, r, err, "assessment")
		return
	}
	writeJSON(w, http.StatusOK, &api.Envelope[*models.AssessmentResponse]{Data: resp})
}
