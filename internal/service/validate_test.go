package service

import (
	"strings"
	"testing"

	"Exam-Template-Wizard-Backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(vs []model.Violation) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "\n")
}

func TestValidateEmptyDraftBlocksSubmit(t *testing.T) {
	violations := ValidateForSubmit(model.NewTemplateDraft("d", model.UnitMinutes))
	require.NotEmpty(t, violations)
	all := messages(violations)
	assert.Contains(t, all, "add at least one subject")
	assert.Contains(t, all, "title is required")
	assert.Contains(t, all, "duration must be greater than zero")
}

func TestAlgebraDraftSubmitsWithOneCorrectOption(t *testing.T) {
	c := NewComposer(model.NewTemplateDraft("d", model.UnitMinutes))
	c.Draft.Title = "Algebra Test"
	c.Draft.Duration.Value = 60
	require.NoError(t, c.AddSubject(mathSubject(), model.RoleMain))
	require.NoError(t, c.AddQuestion(0, choiceQuestion(model.QuestionSingleChoice, "1",
		opt("3", false), opt("4", true), opt("5", false))))

	assert.Empty(t, ValidateForSubmit(c.Draft))

	payload := NewReconciler("", model.UnitMinutes).FlattenForSubmit(c.Draft)
	options := payload.TestSubjectsAndQuestions[0].TestQuestions[0].Options
	var correct []model.OptionPayload
	for _, o := range options {
		if o.IsCorrect {
			correct = append(correct, o)
		}
	}
	require.Len(t, correct, 1)
	assert.Equal(t, "4", correct[0].AnswerText)
	assert.Equal(t, 60, payload.Duration)
	assert.Equal(t, "MAIN", payload.TestSubjectsAndQuestions[0].SubjectRole)
}

func TestValidateReportsSubjectAndPosition(t *testing.T) {
	d := model.NewTemplateDraft("d", model.UnitMinutes)
	d.Title = "Mixed"
	d.Duration.Value = 30
	d.Subjects = []model.SubjectAssignment{
		{
			Subject: *mathSubject(),
			Role:    model.RoleSecondary,
			Questions: []model.Question{
				{QuestionType: model.QuestionSingleChoice, QuestionText: "Q", Position: "4",
					Options: []model.AnswerOption{opt("a", false), opt("b", false)}},
				{QuestionType: model.QuestionWritten, QuestionText: "W", Position: "5"},
			},
		},
		{Subject: *physicsSubject(), Role: model.RoleSecondary, Questions: []model.Question{}},
	}

	violations := ValidateForSubmit(d)
	all := messages(violations)
	assert.Contains(t, all, "one subject must be the main subject")
	assert.Contains(t, all, "Math, question 4: mark at least one option as correct")
	assert.Contains(t, all, "Math, question 5: written answer is required")
	assert.Contains(t, all, "Physics: has no questions")
}

func TestValidateTwoMainSubjects(t *testing.T) {
	d := model.NewTemplateDraft("d", model.UnitMinutes)
	d.Title = "T"
	d.Duration.Value = 10
	written := model.Question{QuestionType: model.QuestionWritten, QuestionText: "W", Position: "1", WrittenAnswer: "x"}
	d.Subjects = []model.SubjectAssignment{
		{Subject: *mathSubject(), Role: model.RoleMain, Questions: []model.Question{written}},
		{Subject: *physicsSubject(), Role: model.RoleMain, Questions: []model.Question{written}},
	}

	violations := ValidateForSubmit(d)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "only one subject can be the main subject")
}

func TestValidateSubjectIdentity(t *testing.T) {
	d := model.NewTemplateDraft("d", model.UnitMinutes)
	d.Title = "T"
	d.Duration.Value = 10
	written := model.Question{QuestionType: model.QuestionWritten, QuestionText: "W", Position: "1", WrittenAnswer: "x"}
	d.Subjects = []model.SubjectAssignment{
		{Subject: *mathSubject(), Role: model.RoleMain, Questions: []model.Question{written}},
		{Subject: *mathSubject(), Role: model.RoleSecondary, Questions: []model.Question{written}},
		{Role: model.RoleSecondary, Questions: []model.Question{written}},
	}

	all := messages(ValidateForSubmit(d))
	assert.Contains(t, all, "Math: subject is listed more than once")
	assert.Contains(t, all, "subject #3: no subject selected")
}
