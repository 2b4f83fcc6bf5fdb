// Package models defines the TalentFlow domain types shared by the record
// store, the simulated backend and the client views.
package models

import (
	"strings"
	"time"
)

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

const (
	JobActive   JobStatus = "active"
	JobArchived JobStatus = "archived"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	return s == JobActive || s == JobArchived
}

// JobType is the employment type of a job posting.
type JobType string

const (
	JobFullTime JobType = "full-time"
	JobPartTime JobType = "part-time"
	JobContract JobType = "contract"
)

// Job is a job posting. Order is the list position among all jobs and is kept
// dense (1..N) after every reorder.
type Job struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Status       JobStatus `json:"status"`
	Tags         []string  `json:"tags"`
	Order        int       `json:"order"`
	Description  string    `json:"description,omitempty"`
	Requirements []string  `json:"requirements,omitempty"`
	Location     string    `json:"location,omitempty"`
	Type         JobType   `json:"type,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasTag reports whether the job carries the given tag (exact match).
func (j *Job) HasTag(tag string) bool {
	for _, t := range j.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Slugify derives a URL slug from a job title.
func Slugify(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), "-"))
}
