package model

import "fmt"

// ValidationError rejects a single composition step. The draft is left
// unchanged when one is returned.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Violation is one reason a draft cannot be submitted yet.
type Violation struct {
	Subject  string `json:"subject,omitempty"`
	Position string `json:"position,omitempty"`
	Message  string `json:"message"`
}

func (v Violation) String() string {
	switch {
	case v.Subject != "" && v.Position != "":
		return fmt.Sprintf("%s, question %s: %s", v.Subject, v.Position, v.Message)
	case v.Subject != "":
		return fmt.Sprintf("%s: %s", v.Subject, v.Message)
	}
	return v.Message
}
