package models

import (
	"encoding/json"
	"time"
)

// QuestionType selects how a question is answered.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single-choice"
	QuestionMultiChoice  QuestionType = "multi-choice"
	QuestionShortText    QuestionType = "short-text"
	QuestionLongText     QuestionType = "long-text"
	QuestionNumeric      QuestionType = "numeric"
	QuestionFileUpload   QuestionType = "file-upload"
)

// Assessment is a questionnaire attached to a job.
type Assessment struct {
	ID          string              `json:"id"`
	JobID       string              `json:"jobId"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Sections    []AssessmentSection `json:"sections"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// AssessmentSection groups questions under a heading.
type AssessmentSection struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	Order     int        `json:"order"`
}

// Question is a single assessment item.
type Question struct {
	ID               string            `json:"id"`
	Type             QuestionType      `json:"type"`
	Question         string            `json:"question"`
	Required         bool              `json:"required"`
	Options          []string          `json:"options,omitempty"`
	Validation       *Validation       `json:"validation,omitempty"`
	ConditionalLogic *ConditionalLogic `json:"conditionalLogic,omitempty"`
	Order            int               `json:"order"`
}

// Validation holds optional answer constraints.
type Validation struct {
	MaxLength *int     `json:"maxLength,omitempty"`
	MinValue  *float64 `json:"minValue,omitempty"`
	MaxValue  *float64 `json:"maxValue,omitempty"`
}

// ConditionalLogic shows a question only when the answer to DependsOn is one
// of ShowIf.
type ConditionalLogic struct {
	DependsOn string   `json:"dependsOn"`
	ShowIf    []string `json:"showIf"`
}

// AssessmentResponse is a candidate's submitted answers, keyed by question ID.
type AssessmentResponse struct {
	ID           string            `json:"id"`
	AssessmentID string            `json:"assessmentId"`
	CandidateID  string            `json:"candidateId"`
	Responses    map[string]Answer `json:"responses"`
	SubmittedAt  time.Time         `json:"submittedAt"`
}

// Answer is one response value. Exactly one field is meaningful, chosen by
// the question type: Text for text and single-choice, Choices for
// multi-choice, Number for numeric, Text (attachment hash) for file-upload.
type Answer struct {
	Text    string   `json:"text,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Number  *float64 `json:"number,omitempty"`
}

// IsEmpty reports whether no value was given.
func (a Answer) IsEmpty() bool {
	return a.Text == "" && len(a.Choices) == 0 && a.Number == nil
}

// UnmarshalJSON accepts ShowIf either as a single string or as a list.
func (c *ConditionalLogic) UnmarshalJSON(data []byte) error {
	var raw struct {
		DependsOn string          `json:"dependsOn"`
		ShowIf    json.RawMessage `json:"showIf"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.DependsOn = raw.DependsOn
	c.ShowIf = nil
	if len(raw.ShowIf) == 0 || string(raw.ShowIf) == "null" {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw.ShowIf, &one); err == nil {
		c.ShowIf = []string{one}
		return nil
	}
	return json.Unmarshal(raw.ShowIf, &c.ShowIf)
}
