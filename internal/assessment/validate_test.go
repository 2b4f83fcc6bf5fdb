package assessment

import (
	"testing"

	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }
func floatPtr(f float64) *float64 { return &f }
func text(s string) models.Answer { return models.Answer{Text: s} }
func number(f float64) models.Answer { return models.Answer{Number: &f} }

func TestValidateQuestion(t *testing.T) {
	short := &models.Question{ID: "q1", Type: models.QuestionShortText, Required: true,
		Validation: &models.Validation{MaxLength: intPtr(5)}}
	years := &models.Question{ID: "q2", Type: models.QuestionNumeric,
		Validation: &models.Validation{MinValue: floatPtr(0), MaxValue: floatPtr(40.5)}}
	multi := &models.Question{ID: "q3", Type: models.QuestionMultiChoice, Required: true}

	tests := []struct {
		name   string
		q      *models.Question
		answer models.Answer
		want   string
	}{
		{"required missing", short, models.Answer{}, "This field is required"},
		{"within length", short, text("hello"), ""},
		{"too long", short, text("hello!"), "Maximum 5 characters allowed"},
		{"length counts runes", short, text("héllo"), ""},
		{"optional empty", years, models.Answer{}, ""},
		{"below min", years, number(-1), "Value must be at least 0"},
		{"above max", years, number(41), "Value must be at most 40.5"},
		{"in range", years, number(12), ""},
		{"multi empty", multi, models.Answer{Choices: []string{}}, "This field is required"},
		{"multi chosen", multi, models.Answer{Choices: []string{"A"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateQuestion(tt.q, tt.answer))
		})
	}
}

func TestVisible(t *testing.T) {
	gate := &models.Question{ID: "q2", ConditionalLogic: &models.ConditionalLogic{DependsOn: "q1", ShowIf: []string{"Yes"}}}
	anyOf := &models.Question{ID: "q3", ConditionalLogic: &models.ConditionalLogic{DependsOn: "q1", ShowIf: []string{"A", "B"}}}

	assert.True(t, Visible(&models.Question{ID: "plain"}, nil))
	assert.False(t, Visible(gate, nil))
	assert.False(t, Visible(gate, map[string]models.Answer{"q1": text("No")}))
	assert.True(t, Visible(gate, map[string]models.Answer{"q1": text("Yes")}))
	assert.True(t, Visible(anyOf, map[string]models.Answer{"q1": {Choices: []string{"C", "B"}}}))

	numeric := &models.Question{ID: "q4", ConditionalLogic: &models.ConditionalLogic{DependsOn: "q1", ShowIf: []string{"3"}}}
	assert.True(t, Visible(numeric, map[string]models.Answer{"q1": number(3)}))
}

func TestValidate_SkipsHiddenQuestions(t *testing.T) {
	a := &models.Assessment{
		ID: "A1",
		Sections: []models.AssessmentSection{{
			ID: "s1",
			Questions: []models.Question{
				{ID: "q1", Type: models.QuestionSingleChoice, Required: true, Options: []string{"Yes", "No"}},
				{ID: "q2", Type: models.QuestionLongText, Required: true,
					ConditionalLogic: &models.ConditionalLogic{DependsOn: "q1", ShowIf: []string{"Yes"}}},
			},
		}},
	}

	assert.Equal(t, map[string]string{"q1": "This field is required"}, Validate(a, nil))
	assert.Empty(t, Validate(a, map[string]models.Answer{"q1": text("No")}))
	assert.Equal(t, map[string]string{"q2": "This field is required"},
		Validate(a, map[string]models.Answer{"q1": text("Yes")}))
	assert.Empty(t, Validate(a, map[string]models.Answer{"q1": text("Yes"), "q2": text("Because")}))

	assert.Len(t, Questions(a), 2)
}
