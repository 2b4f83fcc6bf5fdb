// Package assessment evaluates assessment answers: which questions are
// visible given earlier answers, and whether the visible answers satisfy
// each question's constraints.
package assessment

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/kilupskalvis/talentflow/internal/models"
)

// Validation messages.
const (
	msgRequired  = "This field is required"
	msgMaxLength = "Maximum %d characters allowed"
	msgMinValue  = "Value must be at least %s"
	msgMaxValue  = "Value must be at most %s"
)

// Visible reports whether q is shown given the answers so far. A question
// without conditional logic is always visible; otherwise the answer to its
// dependency must match one of the ShowIf values.
func Visible(q *models.Question, responses map[string]models.Answer) bool {
	if q.ConditionalLogic == nil || q.ConditionalLogic.DependsOn == "" {
		return true
	}
	dep, ok := responses[q.ConditionalLogic.DependsOn]
	if !ok {
		return false
	}
	for _, want := range q.ConditionalLogic.ShowIf {
		if dep.Text == want {
			return true
		}
		for _, c := range dep.Choices {
			if c == want {
				return true
			}
		}
		if dep.Number != nil && formatNumber(*dep.Number) == want {
			return true
		}
	}
	return false
}

// ValidateQuestion returns the message for the first constraint answer
// violates, or "" when it is acceptable.
func ValidateQuestion(q *models.Question, answer models.Answer) string {
	if answer.IsEmpty() {
		if q.Required {
			return msgRequired
		}
		return ""
	}
	if q.Validation == nil {
		return ""
	}
	v := q.Validation
	if v.MaxLength != nil && answer.Text != "" && utf8.RuneCountInString(answer.Text) > *v.MaxLength {
		return fmt.Sprintf(msgMaxLength, *v.MaxLength)
	}
	if answer.Number != nil {
		if v.MinValue != nil && *answer.Number < *v.MinValue {
			return fmt.Sprintf(msgMinValue, formatNumber(*v.MinValue))
		}
		if v.MaxValue != nil && *answer.Number > *v.MaxValue {
			return fmt.Sprintf(msgMaxValue, formatNumber(*v.MaxValue))
		}
	}
	return ""
}

// Validate checks every visible question of a and returns messages keyed by
// question ID. Hidden questions are never validated. An empty map means the
// submission is acceptable.
func Validate(a *models.Assessment, responses map[string]models.Answer) map[string]string {
	errs := make(map[string]string)
	for si := range a.Sections {
		for qi := range a.Sections[si].Questions {
			q := &a.Sections[si].Questions[qi]
			if !Visible(q, responses) {
				continue
			}
			if msg := ValidateQuestion(q, responses[q.ID]); msg != "" {
				errs[q.ID] = msg
			}
		}
	}
	return errs
}

// Questions returns every question of a in section order.
func Questions(a *models.Assessment) []*models.Question {
	var out []*models.Question
	for si := range a.Sections {
		for qi := range a.Sections[si].Questions {
			out = append(out, &a.Sections[si].Questions[qi])
		}
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
