package model

import (
	"fmt"
	"net/url"
	"strings"
)

// maxShortField is the length limit for names, tags and reference titles.
const maxShortField = 255

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

// ValidateEvent checks an Event and its references for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the event is valid.
func ValidateEvent(e *Event) error {
	var ve ValidationError

	if e.Date.IsZero() {
		ve.add("date", "is required")
	}

	name := strings.TrimSpace(e.Name)
	if name == "" {
		ve.add("name", "is required")
	} else if len([]rune(name)) > maxShortField {
		ve.add("name", fmt.Sprintf("must be %d characters or fewer", maxShortField))
	}

	if strings.TrimSpace(e.Description) == "" {
		ve.add("description", "is required")
	}

	if len([]rune(e.Tags)) > maxShortField {
		ve.add("tags", fmt.Sprintf("must be %d characters or fewer", maxShortField))
	}

	if e.InfoLink != "" && !isWebURL(e.InfoLink) {
		ve.add("info_link", "must be an absolute http(s) URL")
	}

	for i, r := range e.References {
		prefix := fmt.Sprintf("references[%d].", i)
		for _, fe := range validateReference(r) {
			ve.add(prefix+fe.Field, fe.Message)
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateReference checks a single Reference.
func ValidateReference(r *Reference) error {
	if errs := validateReference(r); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateReference(r *Reference) []FieldError {
	var errs []FieldError
	title := strings.TrimSpace(r.Title)
	if title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "is required"})
	} else if len([]rune(title)) > maxShortField {
		errs = append(errs, FieldError{Field: "title", Message: fmt.Sprintf("must be %d characters or fewer", maxShortField)})
	}
	if r.URL == "" {
		errs = append(errs, FieldError{Field: "url", Message: "is required"})
	} else if !isWebURL(r.URL) {
		errs = append(errs, FieldError{Field: "url", Message: "must be an absolute http(s) URL"})
	}
	return errs
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
