package service

import (
	"fmt"
	"strings"

	"Exam-Template-Wizard-Backend/internal/model"
)

// ValidateForSubmit returns every reason the draft cannot be sent yet. An
// empty result means submission is safe.
func ValidateForSubmit(d *model.TemplateDraft) []model.Violation {
	violations := []model.Violation{}
	add := func(subject, position, format string, args ...interface{}) {
		violations = append(violations, model.Violation{
			Subject:  subject,
			Position: position,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if strings.TrimSpace(d.Title) == "" {
		add("", "", "title is required")
	}
	if d.Duration.Value <= 0 {
		add("", "", "duration must be greater than zero")
	}
	if len(d.Subjects) == 0 {
		add("", "", "add at least one subject")
		return violations
	}

	mains := 0
	for _, a := range d.Subjects {
		if a.Role == model.RoleMain {
			mains++
		}
	}
	switch {
	case mains == 0:
		add("", "", "one subject must be the main subject")
	case mains > 1:
		add("", "", "only one subject can be the main subject, found %d", mains)
	}

	seen := make(map[int]bool, len(d.Subjects))
	for i, a := range d.Subjects {
		name := subjectLabel(a, i)
		switch {
		case a.Subject.ID == 0:
			add(name, "", "no subject selected")
		case seen[a.Subject.ID]:
			add(name, "", "subject is listed more than once")
		}
		seen[a.Subject.ID] = true
		if !a.Role.IsValid() {
			add(name, "", "unknown role %q", a.Role)
		}
		if len(a.Questions) == 0 {
			add(name, "", "has no questions")
			continue
		}
		for j, q := range a.Questions {
			position := q.Position.Trimmed()
			if position == "" {
				position = fmt.Sprintf("#%d", j+1)
			}
			for _, p := range questionProblems(q) {
				add(name, position, "%s", p.Message)
			}
		}
	}
	return violations
}

func subjectLabel(a model.SubjectAssignment, index int) string {
	if name := strings.TrimSpace(a.Subject.Name); name != "" {
		return name
	}
	return fmt.Sprintf("subject #%d", index+1)
}
