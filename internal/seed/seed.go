// Package seed fills a record store with demo data. Output is a pure
// function of Options: the same seed and reference time always produce the
// same records.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/kilupskalvis/talentflow/internal/store"
)

// Defaults for Options.
const (
	DefaultSeed       = 1
	DefaultJobs       = 25
	DefaultCandidates = 1000
)

// Options controls the generated data.
type Options struct {
	Seed       int64
	Now        time.Time // reference time for generated timestamps
	Jobs       int
	Candidates int
}

func (o *Options) withDefaults() {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Now.IsZero() {
		o.Now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	if o.Jobs <= 0 {
		o.Jobs = DefaultJobs
	}
	if o.Candidates <= 0 {
		o.Candidates = DefaultCandidates
	}
}

// Result counts the records written.
type Result struct {
	Jobs        int
	Candidates  int
	Assessments int
}

var (
	jobTitles = []string{
		"Product Manager", "UX Designer", "DevOps Engineer", "Data Scientist",
		"Mobile Developer", "QA Engineer", "Security Analyst", "Marketing Manager",
		"Sales Representative", "Customer Success", "Technical Writer", "HR Specialist",
	}
	jobTags = [][]string{
		{"Product", "Strategy"}, {"Design", "UX/UI"}, {"DevOps", "Cloud"},
		{"Python", "ML"}, {"React Native", "iOS"}, {"Testing", "Automation"},
		{"Security", "Compliance"}, {"Marketing", "Growth"}, {"Sales", "B2B"},
		{"Support", "Customer"}, {"Documentation", "Technical"}, {"HR", "Recruitment"},
	}
	locations  = []string{"Remote", "San Francisco", "New York", "London"}
	jobTypes   = []models.JobType{models.JobFullTime, models.JobPartTime, models.JobContract}
	firstNames = []string{"John", "Jane", "Mike", "Sarah", "David", "Lisa", "Chris", "Emma", "Alex", "Anna"}
	lastNames  = []string{"Smith", "Johnson", "Brown", "Davis", "Wilson", "Miller", "Taylor", "Anderson", "Thomas", "Moore"}
)

// Run clears the store and writes jobs, candidates and assessments. No
// timeline events are written; only real mutations create them.
func Run(ctx context.Context, st store.Store, opts Options) (*Result, error) {
	opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))

	if err := st.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset store: %w", err)
	}

	jobs := Jobs(rng, opts)
	for _, j := range jobs {
		if err := st.PutJob(ctx, j); err != nil {
			return nil, fmt.Errorf("put job %s: %w", j.ID, err)
		}
	}

	cands := Candidates(rng, opts)
	if err := st.PutCandidates(ctx, cands); err != nil {
		return nil, fmt.Errorf("put candidates: %w", err)
	}

	assessments := Assessments(opts.Now)
	for _, a := range assessments {
		if err := st.PutAssessment(ctx, a); err != nil {
			return nil, fmt.Errorf("put assessment %s: %w", a.ID, err)
		}
	}

	return &Result{Jobs: len(jobs), Candidates: len(cands), Assessments: len(assessments)}, nil
}

// Jobs generates opts.Jobs jobs with dense orders. The first two are fixed.
func Jobs(rng *rand.Rand, opts Options) []*models.Job {
	jobs := []*models.Job{
		{
			ID:           "1",
			Title:        "Senior Frontend Developer",
			Slug:         "senior-frontend-developer",
			Status:       models.JobActive,
			Tags:         []string{"React", "TypeScript", "Frontend"},
			Order:        1,
			Description:  "Looking for an experienced frontend developer to join our team.",
			Requirements: []string{"5+ years React experience", "TypeScript proficiency", "Modern CSS"},
			Location:     "Remote",
			Type:         models.JobFullTime,
			CreatedAt:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			UpdatedAt:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:           "2",
			Title:        "Backend Engineer",
			Slug:         "backend-engineer",
			Status:       models.JobActive,
			Tags:         []string{"Node.js", "Python", "Backend"},
			Order:        2,
			Description:  "Building scalable backend systems.",
			Requirements: []string{"Node.js or Python", "Database design", "API development"},
			Location:     "San Francisco",
			Type:         models.JobFullTime,
			CreatedAt:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			UpdatedAt:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	if opts.Jobs < len(jobs) {
		return jobs[:opts.Jobs]
	}

	for i := 3; i <= opts.Jobs; i++ {
		title := jobTitles[(i-3)%len(jobTitles)]
		status := models.JobActive
		if rng.Float64() <= 0.3 {
			status = models.JobArchived
		}
		tags := append([]string(nil), jobTags[(i-3)%len(jobTags)]...)
		jobs = append(jobs, &models.Job{
			ID:           strconv.Itoa(i),
			Title:        title,
			Slug:         models.Slugify(title),
			Status:       status,
			Tags:         tags,
			Order:        i,
			Description:  "Exciting opportunity for a " + title,
			Requirements: []string{},
			Location:     locations[rng.Intn(len(locations))],
			Type:         jobTypes[rng.Intn(len(jobTypes))],
			CreatedAt:    opts.Now.Add(-randomAge(rng, 30)),
			UpdatedAt:    opts.Now,
		})
	}
	return jobs
}

// Candidates generates opts.Candidates candidates spread over the jobs and
// stages; about a fifth are referred.
func Candidates(rng *rand.Rand, opts Options) []*models.Candidate {
	out := make([]*models.Candidate, 0, opts.Candidates)
	for i := 1; i <= opts.Candidates; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		referred := rng.Float64() < 0.2

		c := &models.Candidate{
			ID:        strconv.Itoa(i),
			Name:      first + " " + last,
			Email:     fmt.Sprintf("%s.%s%d@email.com", strings.ToLower(first), strings.ToLower(last), i),
			Stage:     models.Stages[rng.Intn(len(models.Stages))],
			JobID:     strconv.Itoa(rng.Intn(opts.Jobs) + 1),
			Referred:  referred,
			Phone:     fmt.Sprintf("+1-555-%04d", rng.Intn(10000)),
			Notes:     []models.Note{},
			CreatedAt: opts.Now.Add(-randomAge(rng, 60)),
			UpdatedAt: opts.Now,
		}
		if referred {
			c.ReferredBy = "Current Employee"
		}
		out = append(out, c)
	}
	return out
}

// Assessments returns the three sample assessments for jobs 1-3.
func Assessments(now time.Time) []*models.Assessment {
	specs := []struct {
		jobID, title, description, section, prefix string
	}{
		{"1", "Frontend Developer Assessment", "Technical assessment for frontend developer position", "Technical Knowledge", "Frontend"},
		{"2", "Backend Engineer Assessment", "Assessment for backend engineering skills", "Backend Knowledge", "Backend"},
		{"3", "Product Manager Assessment", "Assessment for product management skills", "Product Knowledge", "Product"},
	}

	out := make([]*models.Assessment, len(specs))
	for i, s := range specs {
		out[i] = &models.Assessment{
			ID:          strconv.Itoa(i + 1),
			JobID:       s.jobID,
			Title:       s.title,
			Description: s.description,
			Sections: []models.AssessmentSection{{
				ID:        "1",
				Title:     s.section,
				Order:     1,
				Questions: sampleQuestions(s.prefix),
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return out
}

// sampleQuestions cycles single-choice, multi-choice and short-text; every
// other question is required.
func sampleQuestions(prefix string) []models.Question {
	qs := make([]models.Question, 10)
	for i := range qs {
		q := models.Question{
			ID:       strconv.Itoa(i + 1),
			Question: fmt.Sprintf("%s Q%d: Example question?", prefix, i+1),
			Required: i%2 == 0,
			Order:    i + 1,
		}
		switch i % 3 {
		case 0:
			q.Type = models.QuestionSingleChoice
		case 1:
			q.Type = models.QuestionMultiChoice
		default:
			q.Type = models.QuestionShortText
			maxLen := 200
			q.Validation = &models.Validation{MaxLength: &maxLen}
		}
		if q.Type != models.QuestionShortText {
			q.Options = []string{"A", "B", "C", "D"}
		}
		qs[i] = q
	}
	return qs
}

// randomAge returns a duration up to maxDays days, at second resolution.
func randomAge(rng *rand.Rand, maxDays int) time.Duration {
	return time.Duration(rng.Int63n(int64(maxDays)*24*3600)) * time.Second
}
