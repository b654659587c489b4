package service

import (
	"strings"

	"Exam-Template-Wizard-Backend/internal/model"
	"Exam-Template-Wizard-Backend/internal/utils"

	"github.com/spf13/cast"
)

type OptionField string

const (
	OptionAnswerText OptionField = "answerText"
	OptionImageURL   OptionField = "imageUrl"
	OptionIsCorrect  OptionField = "isCorrect"
)

// Composer applies the wizard's editing steps to a draft. Every rejected
// step returns a *model.ValidationError and leaves the draft untouched.
type Composer struct {
	Draft *model.TemplateDraft
	// Buffer is the question form reset after each accepted question.
	Buffer model.Question
}

func NewComposer(draft *model.TemplateDraft) *Composer {
	if draft.Subjects == nil {
		draft.Subjects = []model.SubjectAssignment{}
	}
	return &Composer{Draft: draft, Buffer: model.NewQuestion()}
}

// SuggestedRole is the role preselected for the next subject: MAIN until
// one exists, SECONDARY afterwards.
func (c *Composer) SuggestedRole() model.SubjectRole {
	if c.Draft.HasMain() {
		return model.RoleSecondary
	}
	return model.RoleMain
}

func (c *Composer) AddSubject(subject *model.Subject, role model.SubjectRole) error {
	if subject == nil || subject.ID == 0 {
		return model.Invalid("subject", "select a subject")
	}
	if !role.IsValid() {
		return model.Invalid("role", "unknown role %q", role)
	}
	if role == model.RoleMain && c.Draft.HasMain() {
		return model.Invalid("role", "the template already has a main subject")
	}
	for _, a := range c.Draft.Subjects {
		if a.Subject.ID == subject.ID {
			return model.Invalid("subject", "%s is already part of the template", subject.Name)
		}
	}

	c.Draft.Subjects = append(c.Draft.Subjects, model.SubjectAssignment{
		Subject:   *subject,
		Role:      role,
		Questions: []model.Question{},
	})
	return nil
}

// RemoveSubject drops the assignment and its questions. Out of range
// indexes are ignored.
func (c *Composer) RemoveSubject(index int) {
	if index < 0 || index >= len(c.Draft.Subjects) {
		return
	}
	c.Draft.Subjects = append(c.Draft.Subjects[:index], c.Draft.Subjects[index+1:]...)
}

func (c *Composer) AddQuestion(subjectIndex int, q model.Question) error {
	if subjectIndex < 0 || subjectIndex >= len(c.Draft.Subjects) {
		return model.Invalid("subject", "no subject at index %d", subjectIndex)
	}
	if problems := questionProblems(q); len(problems) > 0 {
		return problems[0]
	}

	q.QuestionType, _ = model.ParseQuestionType(string(q.QuestionType))
	if q.QuestionType.HasOptions() {
		q.Options = filledOptions(q.Options)
		q.WrittenAnswer = ""
	} else {
		q.Options = []model.AnswerOption{}
	}

	a := &c.Draft.Subjects[subjectIndex]
	a.Questions = append(a.Questions, q)
	c.Buffer = model.NewQuestion()
	return nil
}

// RemoveQuestion drops one question. Out of range indexes are ignored.
func (c *Composer) RemoveQuestion(subjectIndex, questionIndex int) {
	if subjectIndex < 0 || subjectIndex >= len(c.Draft.Subjects) {
		return
	}
	a := &c.Draft.Subjects[subjectIndex]
	if questionIndex < 0 || questionIndex >= len(a.Questions) {
		return
	}
	a.Questions = append(a.Questions[:questionIndex], a.Questions[questionIndex+1:]...)
}

// UpdateQuestionOption assigns one field of one option. Marking an option
// of a single choice question correct clears every sibling in the same step.
func (c *Composer) UpdateQuestionOption(subjectIndex, questionIndex, optionIndex int, field OptionField, value interface{}) error {
	q, err := c.question(subjectIndex, questionIndex)
	if err != nil {
		return err
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return model.Invalid("option", "no option at index %d", optionIndex)
	}

	switch field {
	case OptionAnswerText:
		s, err := cast.ToStringE(value)
		if err != nil {
			return model.Invalid(string(field), "expected text")
		}
		q.Options[optionIndex].AnswerText = s
	case OptionImageURL:
		s, err := cast.ToStringE(value)
		if err != nil {
			return model.Invalid(string(field), "expected text")
		}
		q.Options[optionIndex].ImageURL = s
	case OptionIsCorrect:
		correct, err := cast.ToBoolE(value)
		if err != nil {
			return model.Invalid(string(field), "expected true or false")
		}
		if correct && q.QuestionType == model.QuestionSingleChoice {
			for i := range q.Options {
				q.Options[i].IsCorrect = false
			}
		}
		q.Options[optionIndex].IsCorrect = correct
	default:
		return model.Invalid("field", "unknown option field %q", field)
	}
	return nil
}

func (c *Composer) question(subjectIndex, questionIndex int) (*model.Question, error) {
	if subjectIndex < 0 || subjectIndex >= len(c.Draft.Subjects) {
		return nil, model.Invalid("subject", "no subject at index %d", subjectIndex)
	}
	a := &c.Draft.Subjects[subjectIndex]
	if questionIndex < 0 || questionIndex >= len(a.Questions) {
		return nil, model.Invalid("question", "no question at index %d", questionIndex)
	}
	return &a.Questions[questionIndex], nil
}

// questionProblems lists everything that keeps q out of a subject, in the
// order the form shows them.
func questionProblems(q model.Question) []*model.ValidationError {
	var problems []*model.ValidationError

	if utils.IsBlank(q.QuestionText) {
		problems = append(problems, model.Invalid("questionText", "question text is required"))
	}
	if q.Position.Trimmed() == "" {
		problems = append(problems, model.Invalid("position", "position is required"))
	}

	qt, ok := model.ParseQuestionType(string(q.QuestionType))
	if !ok {
		return append(problems, model.Invalid("questionType", "unknown question type %q", q.QuestionType))
	}

	if !qt.HasOptions() {
		if strings.TrimSpace(q.WrittenAnswer) == "" {
			problems = append(problems, model.Invalid("writtenAnswer", "written answer is required"))
		}
		return problems
	}

	options := filledOptions(q.Options)
	if len(options) < 2 {
		problems = append(problems, model.Invalid("options", "at least two answer options are required"))
	}
	correct := 0
	for _, o := range options {
		if o.IsCorrect {
			correct++
		}
	}
	switch {
	case correct == 0:
		problems = append(problems, model.Invalid("options", "mark at least one option as correct"))
	case correct > 1 && qt == model.QuestionSingleChoice:
		problems = append(problems, model.Invalid("options", "a single choice question has exactly one correct option"))
	}
	return problems
}

func filledOptions(options []model.AnswerOption) []model.AnswerOption {
	out := make([]model.AnswerOption, 0, len(options))
	for _, o := range options {
		if !o.IsBlank() {
			out = append(out, o)
		}
	}
	return out
}
