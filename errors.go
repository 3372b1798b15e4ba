package skema

import (
	"errors"
	"fmt"
	"strings"
)

// Keywords of the errors synthesized when validation cannot begin.
const (
	KeywordEmptySchema     = "empty_schema"
	KeywordInvalidArgument = "invalid_argument"
	KeywordInvalidSchema   = "invalid_schema"
)

// ValidationError is a single validation entry.
type ValidationError struct {
	Keyword    string         `json:"keyword"`    // failing keyword, or a sentinel keyword.
	Path       string         `json:"path"`       // JSON Pointer of the data location, "/" for the root.
	SchemaPath string         `json:"schemaPath"` // "#" followed by the keyword location.
	Params     map[string]any `json:"params"`
	Message    string         `json:"message,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s at %s", e.Keyword, e.Path)
	}
	return fmt.Sprintf("%s at %s: %s", e.Keyword, e.Path, e.Message)
}

// Errors is an ordered collection of validation errors that implements error.
type Errors []ValidationError

// Error summarizes the first few entries.
func (es Errors) Error() string {
	if len(es) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(es)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		// e.g. type at /age
		fmt.Fprintf(b, "%s at %s", es[i].Keyword, es[i].Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AsErrors extracts Errors from an error using errors.As internally.
func AsErrors(err error) (Errors, bool) {
	if err == nil {
		return nil, false
	}
	var es Errors
	if errors.As(err, &es) {
		return es, true
	}
	return nil, false
}

var (
	// ErrInvalidArgument matches every *InvalidArgumentError via errors.Is.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrValidationFailed matches every *ValidationFailedError via errors.Is.
	ErrValidationFailed = errors.New("validation failed")
)

// InvalidArgumentError reports that validation could not begin: the data is
// absent, no schema could be resolved, or an inline schema is malformed.
type InvalidArgumentError struct {
	Message string
	Cause   error
}

func (e *InvalidArgumentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }
func (e *InvalidArgumentError) Unwrap() error        { return e.Cause }

// ValidationFailedError reports schema violations. Errors holds every
// violation in order.
type ValidationFailedError struct {
	Message string
	Errors  Errors
}

func (e *ValidationFailedError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	return e.Message + ": " + e.Errors.Error()
}

func (e *ValidationFailedError) Is(target error) bool { return target == ErrValidationFailed }

func (e *ValidationFailedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors
}
