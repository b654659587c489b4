package service

import (
	"sort"
	"strings"

	"Exam-Template-Wizard-Backend/internal/model"
)

// Reconciler converts between the flat shape of the authoring API and the
// nested draft. Both directions are pure and accept malformed input.
type Reconciler struct {
	// WrittenTag is the questionType sent for written-answer questions.
	WrittenTag string
	// RemoteUnit is the unit the API reads and writes durations in.
	RemoteUnit model.DurationUnit
}

func NewReconciler(writtenTag string, remoteUnit model.DurationUnit) *Reconciler {
	writtenTag = strings.ToUpper(strings.TrimSpace(writtenTag))
	if writtenTag == "" {
		writtenTag = string(model.QuestionWritten)
	}
	if !remoteUnit.IsValid() {
		remoteUnit = model.UnitMinutes
	}
	return &Reconciler{WrittenTag: writtenTag, RemoteUnit: remoteUnit}
}

// DecomposeFromRemote nests the flat question list under the subject each
// question points at. Questions whose subject is not on the template are
// dropped; each subject's questions end up stably sorted by position.
func (r *Reconciler) DecomposeFromRemote(t model.RemoteTemplate, questions []model.RemoteQuestion) *model.TemplateDraft {
	draft := &model.TemplateDraft{
		ID:       t.ID.Trimmed(),
		Title:    string(t.Title),
		Duration: model.Duration{Value: t.Duration, Unit: r.RemoteUnit},
		Price:    t.Price,
		ImageURL: string(t.ImageURL),
		Subjects: make([]model.SubjectAssignment, 0, len(t.Subjects)),
	}

	bySubject := make(map[int]int, len(t.Subjects))
	for _, link := range t.Subjects {
		subject := link.Subject.ToSubject()
		role, _ := model.ParseSubjectRole(string(link.Role))
		if _, seen := bySubject[subject.ID]; !seen {
			bySubject[subject.ID] = len(draft.Subjects)
		}
		draft.Subjects = append(draft.Subjects, model.SubjectAssignment{
			Subject:   subject,
			Role:      role,
			Questions: []model.Question{},
		})
	}

	for _, rq := range questions {
		key, ok := rq.SubjectKey()
		if !ok {
			continue
		}
		idx, ok := bySubject[key]
		if !ok {
			continue
		}
		draft.Subjects[idx].Questions = append(draft.Subjects[idx].Questions, toQuestion(rq))
	}

	for i := range draft.Subjects {
		qs := draft.Subjects[i].Questions
		sort.SliceStable(qs, func(a, b int) bool {
			return model.PositionKey(qs[a].Position) < model.PositionKey(qs[b].Position)
		})
	}
	return draft
}

func toQuestion(rq model.RemoteQuestion) model.Question {
	qt, _ := model.ParseQuestionType(string(rq.QuestionType))
	q := model.Question{
		ID:            intPtr(rq.ID),
		QuestionType:  qt,
		QuestionText:  string(rq.QuestionText),
		WrittenAnswer: string(rq.WrittenAnswer),
		ImageURL:      string(rq.ImageURL),
		YoutubeURL:    string(rq.YoutubeURL),
		Position:      rq.Position,
		Options:       []model.AnswerOption{},
	}
	if !qt.HasOptions() {
		return q
	}
	for _, ro := range rq.AnswerOptions() {
		q.Options = append(q.Options, model.AnswerOption{
			ID:         intPtr(ro.ID),
			AnswerText: string(ro.AnswerText),
			ImageURL:   string(ro.ImageURL),
			IsCorrect:  bool(ro.IsCorrect),
		})
	}
	return q
}

func intPtr(v *model.FlexInt) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

// FlattenForSubmit builds the create/update body. Local ids are not sent
// and written questions carry an empty option list. Positions and options
// go out exactly as stored.
func (r *Reconciler) FlattenForSubmit(d *model.TemplateDraft) model.SubmitPayload {
	payload := model.SubmitPayload{
		Title:                    strings.TrimSpace(d.Title),
		Duration:                 d.Duration.In(r.RemoteUnit),
		Price:                    int(d.Price),
		ImageURL:                 d.ImageURL,
		TestSubjectsAndQuestions: make([]model.SubjectPayload, 0, len(d.Subjects)),
	}

	for _, a := range d.Subjects {
		sp := model.SubjectPayload{
			SubjectID:     a.Subject.ID,
			SubjectRole:   string(a.Role),
			TestQuestions: make([]model.QuestionPayload, 0, len(a.Questions)),
		}
		for _, q := range a.Questions {
			sp.TestQuestions = append(sp.TestQuestions, r.toQuestionPayload(q))
		}
		payload.TestSubjectsAndQuestions = append(payload.TestSubjectsAndQuestions, sp)
	}
	return payload
}

func (r *Reconciler) toQuestionPayload(q model.Question) model.QuestionPayload {
	qt, _ := model.ParseQuestionType(string(q.QuestionType))
	qp := model.QuestionPayload{
		QuestionType: string(qt),
		QuestionText: q.QuestionText,
		ImageURL:     q.ImageURL,
		YoutubeURL:   q.YoutubeURL,
		Position:     string(q.Position),
		Options:      []model.OptionPayload{},
	}
	if !qt.HasOptions() {
		qp.QuestionType = r.WrittenTag
		qp.WrittenAnswer = q.WrittenAnswer
		return qp
	}
	for _, o := range q.Options {
		qp.Options = append(qp.Options, model.OptionPayload{
			AnswerText: o.AnswerText,
			ImageURL:   o.ImageURL,
			IsCorrect:  o.IsCorrect,
		})
	}
	return qp
}
