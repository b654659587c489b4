package model

import (
	"encoding/json"
	"strings"
)

// Envelope is the response wrapper used by every endpoint of the authoring API.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type RemoteSubject struct {
	ID         FlexInt    `json:"id"`
	Name       FlexString `json:"name"`
	Calculator FlexBool   `json:"calculator"`
	ImageURL   FlexString `json:"imageUrl"`
}

func (s RemoteSubject) ToSubject() Subject {
	return Subject{
		ID:                int(s.ID),
		Name:              string(s.Name),
		CalculatorAllowed: bool(s.Calculator),
		ImageURL:          string(s.ImageURL),
	}
}

type RemoteSubjectLink struct {
	Subject RemoteSubject `json:"subject"`
	Role    FlexString    `json:"role"`
}

type RemoteTemplate struct {
	ID       FlexString                  `json:"id"`
	Title    FlexString                  `json:"title"`
	Duration FlexInt                     `json:"duration"`
	Price    FlexInt                     `json:"price"`
	ImageURL FlexString                  `json:"imageUrl"`
	Subjects FlexList[RemoteSubjectLink] `json:"subjects"`
}

// UnmarshalJSON leaves the template empty when the value is not an object.
func (t *RemoteTemplate) UnmarshalJSON(b []byte) error {
	type plain RemoteTemplate
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		*t = RemoteTemplate{}
		return nil
	}
	*t = RemoteTemplate(p)
	return nil
}

type RemoteOption struct {
	ID         *FlexInt   `json:"id"`
	AnswerText FlexString `json:"answerText"`
	ImageURL   FlexString `json:"imageUrl"`
	IsCorrect  FlexBool   `json:"isCorrect"`
}

type RemoteQuestion struct {
	ID            *FlexInt       `json:"id"`
	SubjectID     *FlexInt       `json:"subjectId"`
	Subject       *RemoteSubject `json:"subject"`
	QuestionType  FlexString     `json:"questionType"`
	QuestionText  FlexString     `json:"questionText"`
	WrittenAnswer FlexString     `json:"writtenAnswer"`
	ImageURL      FlexString     `json:"imageUrl"`
	YoutubeURL    FlexString     `json:"youtubeUrl"`
	Position      FlexString     `json:"position"`
	// Both spellings of the option list appear in responses.
	Options           FlexList[RemoteOption] `json:"options"`
	TestAnswerOptions FlexList[RemoteOption] `json:"testAnswerOptions"`
}

// SubjectKey returns the subject foreign key of the question, read from
// subjectId or a nested subject object.
func (q RemoteQuestion) SubjectKey() (int, bool) {
	if q.SubjectID != nil {
		return int(*q.SubjectID), true
	}
	if q.Subject != nil {
		return int(q.Subject.ID), true
	}
	return 0, false
}

// AnswerOptions returns whichever option list is populated.
func (q RemoteQuestion) AnswerOptions() []RemoteOption {
	if len(q.Options) > 0 {
		return q.Options
	}
	return q.TestAnswerOptions
}

type TemplateWithQuestions struct {
	TestTemplate RemoteTemplate           `json:"testTemplate"`
	Questions    FlexList[RemoteQuestion] `json:"questions"`
}

// SubjectPage accepts the subject list either as a bare array or wrapped in
// a page object.
type SubjectPage []RemoteSubject

func (p *SubjectPage) UnmarshalJSON(b []byte) error {
	if strings.HasPrefix(strings.TrimSpace(string(b)), "{") {
		var wrapped struct {
			Content FlexList[RemoteSubject] `json:"content"`
			Items   FlexList[RemoteSubject] `json:"items"`
		}
		_ = json.Unmarshal(b, &wrapped)
		if len(wrapped.Content) > 0 {
			*p = SubjectPage(wrapped.Content)
		} else {
			*p = SubjectPage(wrapped.Items)
		}
		return nil
	}
	var list FlexList[RemoteSubject]
	_ = list.UnmarshalJSON(b)
	*p = SubjectPage(list)
	return nil
}

// SubmitPayload is the body of template create and update.
type SubmitPayload struct {
	Title                    string           `json:"title"`
	Duration                 int              `json:"duration"`
	Price                    int              `json:"price"`
	ImageURL                 string           `json:"imageUrl,omitempty"`
	TestSubjectsAndQuestions []SubjectPayload `json:"testSubjectsAndQuestions"`
}

type SubjectPayload struct {
	SubjectID     int               `json:"subjectId"`
	SubjectRole   string            `json:"subjectRole"`
	TestQuestions []QuestionPayload `json:"testQuestions"`
}

type QuestionPayload struct {
	QuestionType  string          `json:"questionType"`
	QuestionText  string          `json:"questionText"`
	WrittenAnswer string          `json:"writtenAnswer"`
	ImageURL      string          `json:"imageUrl"`
	YoutubeURL    string          `json:"youtubeUrl"`
	Position      string          `json:"position"`
	Options       []OptionPayload `json:"options"`
}

type OptionPayload struct {
	AnswerText string `json:"answerText"`
	ImageURL   string `json:"imageUrl"`
	IsCorrect  bool   `json:"isCorrect"`
}

// ExtractID reads a template id out of a create response, which is either
// the created template or its bare id.
func ExtractID(data json.RawMessage) string {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if strings.HasPrefix(trimmed, "{") {
		var t RemoteTemplate
		_ = json.Unmarshal(data, &t)
		return t.ID.Trimmed()
	}
	var id FlexString
	_ = id.UnmarshalJSON(data)
	return id.Trimmed()
}
