package models

import (
	"regexp"
	"time"
)

// Stage is a candidate's position in the hiring pipeline. Stages form a flat
// enumeration: a candidate may move between any two of them.
type Stage string

const (
	StageApplied  Stage = "applied"
	StageScreen   Stage = "screen"
	StageTech     Stage = "tech"
	StageOffer    Stage = "offer"
	StageHired    Stage = "hired"
	StageRejected Stage = "rejected"
)

// Stages lists every stage in board column order.
var Stages = []Stage{StageApplied, StageScreen, StageTech, StageOffer, StageHired, StageRejected}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Title returns the board column heading for the stage.
func (s Stage) Title() string {
	switch s {
	case StageApplied:
		return "Applied"
	case StageScreen:
		return "Screening"
	case StageTech:
		return "Technical"
	case StageOffer:
		return "Offer"
	case StageHired:
		return "Hired"
	case StageRejected:
		return "Rejected"
	}
	return string(s)
}

// Candidate is an applicant for a job. JobID is not checked against the jobs
// collection.
type Candidate struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Stage      Stage     `json:"stage"`
	JobID      string    `json:"jobId"`
	Referred   bool      `json:"referred"`
	ReferredBy string    `json:"referredBy,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Resume     string    `json:"resume,omitempty"` // attachment hash
	Notes      []Note    `json:"notes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Note is a free-form comment on a candidate.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Mentions  []string  `json:"mentions"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

var mentionPattern = regexp.MustCompile(`@([A-Za-z][\w.-]*)`)

// ParseMentions returns the unique @name tokens in content, in order of first
// appearance.
func ParseMentions(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
