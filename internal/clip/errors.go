package clip

import (
	"errors"
	"strings"
)

// ErrInvalid matches every ValidationError and ValidationErrors with errors.Is.
var ErrInvalid = errors.New("invalid clip")

// ValidationError is one rejected clip field. Field uses the project-file
// JSON name (startTime, textStyle).
type ValidationError struct {
	ClipID  string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("clip")
	if e.ClipID != "" {
		b.WriteString(" " + e.ClipID)
	}
	b.WriteString(":")
	if e.Field != "" {
		b.WriteString(" " + e.Field)
	}
	b.WriteString(" " + e.Message)
	return b.String()
}

func (e ValidationError) Is(target error) bool { return target == ErrInvalid }

// ValidationErrors is every problem Validate found, in field order.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ErrInvalid.Error()
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (errs ValidationErrors) Is(target error) bool { return target == ErrInvalid }

// Unwrap exposes each field error to errors.As.
func (errs ValidationErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// Issues returns a copy of the field errors.
func (errs ValidationErrors) Issues() []ValidationError {
	return append([]ValidationError(nil), errs...)
}

func (errs ValidationErrors) orNil() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
