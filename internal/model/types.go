package model

import (
	"encoding/json"
	"strings"
)

type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionWritten        QuestionType = "WRITTEN"
)

// writtenAliases are spellings of the written-answer type seen on the wire.
var writtenAliases = map[string]bool{
	"WRITTEN":        true,
	"WRITTEN_ANSWER": true,
}

// ParseQuestionType normalizes a wire tag. Unknown tags are returned
// upper-cased with ok=false so they stay visible to validation.
func ParseQuestionType(s string) (QuestionType, bool) {
	tag := strings.ToUpper(strings.TrimSpace(s))
	if writtenAliases[tag] {
		return QuestionWritten, true
	}
	t := QuestionType(tag)
	return t, t.IsValid()
}

func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionWritten:
		return true
	}
	return false
}

// HasOptions reports whether questions of this type carry answer options.
func (t QuestionType) HasOptions() bool {
	return t != QuestionWritten
}

func (t *QuestionType) UnmarshalJSON(b []byte) error {
	var s FlexString
	_ = s.UnmarshalJSON(b)
	*t, _ = ParseQuestionType(string(s))
	return nil
}

type SubjectRole string

const (
	RoleMain      SubjectRole = "MAIN"
	RoleSecondary SubjectRole = "SECONDARY"
)

// ParseSubjectRole accepts PRIMARY as a synonym of MAIN.
func ParseSubjectRole(s string) (SubjectRole, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MAIN", "PRIMARY":
		return RoleMain, true
	case "SECONDARY":
		return RoleSecondary, true
	}
	return SubjectRole(strings.ToUpper(strings.TrimSpace(s))), false
}

func (r SubjectRole) IsValid() bool {
	return r == RoleMain || r == RoleSecondary
}

type DurationUnit string

const (
	UnitMinutes DurationUnit = "minutes"
	UnitSeconds DurationUnit = "seconds"
)

func (u DurationUnit) IsValid() bool {
	return u == UnitMinutes || u == UnitSeconds
}

// Duration keeps the unit next to the value. Some screens of the authoring
// API speak minutes and others seconds, so the unit is never implied.
type Duration struct {
	Value FlexInt      `json:"value"`
	Unit  DurationUnit `json:"unit"`
}

// In converts the duration to unit. Seconds to minutes truncates.
func (d Duration) In(unit DurationUnit) int {
	v := int(d.Value)
	switch {
	case d.Unit == unit, !d.Unit.IsValid(), !unit.IsValid():
		return v
	case d.Unit == UnitMinutes && unit == UnitSeconds:
		return v * 60
	default:
		return v / 60
	}
}

// UnmarshalJSON accepts both the tagged object and a bare scalar. A bare
// scalar is read as minutes, the unit the create screen uses.
func (d *Duration) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "{") {
		var raw struct {
			Value FlexInt    `json:"value"`
			Unit  FlexString `json:"unit"`
		}
		if err := json.Unmarshal(b, &raw); err != nil {
			*d = Duration{Unit: UnitMinutes}
			return nil
		}
		unit := DurationUnit(strings.ToLower(string(raw.Unit)))
		if !unit.IsValid() {
			unit = UnitMinutes
		}
		*d = Duration{Value: raw.Value, Unit: unit}
		return nil
	}
	var v FlexInt
	_ = v.UnmarshalJSON(b)
	*d = Duration{Value: v, Unit: UnitMinutes}
	return nil
}

// Subject is owned by the authoring API; the wizard only references it.
type Subject struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	CalculatorAllowed bool   `json:"calculatorAllowed"`
	ImageURL          string `json:"imageUrl"`
}

type AnswerOption struct {
	ID         *int   `json:"id,omitempty"`
	AnswerText string `json:"answerText"`
	ImageURL   string `json:"imageUrl"`
	IsCorrect  bool   `json:"isCorrect"`
}

// IsBlank reports whether the option carries neither text nor an image.
func (o AnswerOption) IsBlank() bool {
	return strings.TrimSpace(o.AnswerText) == "" && strings.TrimSpace(o.ImageURL) == ""
}

type Question struct {
	ID            *int           `json:"id,omitempty"`
	QuestionType  QuestionType   `json:"questionType"`
	QuestionText  string         `json:"questionText"`
	WrittenAnswer string         `json:"writtenAnswer"`
	ImageURL      string         `json:"imageUrl"`
	YoutubeURL    string         `json:"youtubeUrl"`
	Position      FlexString     `json:"position"`
	Options       []AnswerOption `json:"options"`
}

// NewQuestion returns the empty input buffer shown after a question is
// accepted. Position is left blank for the author to fill in.
func NewQuestion() Question {
	return Question{
		QuestionType: QuestionSingleChoice,
		Options:      []AnswerOption{},
	}
}

type SubjectAssignment struct {
	Subject   Subject     `json:"subject"`
	Role      SubjectRole `json:"role"`
	Questions []Question  `json:"questions"`
}

type TemplateDraft struct {
	// ID is the server identifier, empty until the template is created.
	ID       string              `json:"id,omitempty"`
	DraftID  string              `json:"draftId,omitempty"`
	Title    string              `json:"title"`
	Duration Duration            `json:"duration"`
	Price    FlexInt             `json:"price"`
	ImageURL string              `json:"imageUrl"`
	Subjects []SubjectAssignment `json:"subjectsWithQuestions"`
}

// NewTemplateDraft returns an empty draft whose duration is tagged with unit.
func NewTemplateDraft(draftID string, unit DurationUnit) *TemplateDraft {
	return &TemplateDraft{
		DraftID:  draftID,
		Duration: Duration{Unit: unit},
		Subjects: []SubjectAssignment{},
	}
}

// HasMain reports whether any assignment has the MAIN role.
func (d *TemplateDraft) HasMain() bool {
	for _, a := range d.Subjects {
		if a.Role == RoleMain {
			return true
		}
	}
	return false
}
