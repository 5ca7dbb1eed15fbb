package model

import "fmt"

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

const (
	CodeTransport    = "transport"
	CodeBusiness     = "business"
	CodeNotFound     = "not_found"
	CodeStreamClosed = "stream_closed"
)

var _ error = &StructuredError{}

// StructuredError is the uniform failure representation
// crossing every gateway boundary instead of a raised error.
type StructuredError struct {
	Title       string
	Code        string
	Description string
	Severity    Severity
	Metadata    map[string]string
}

func (err *StructuredError) Error() string {
	return fmt.Sprintf("%s (%s): %s", err.Title, err.Code, err.Description)
}

func (err *StructuredError) Is(target error) bool {
	other, ok := target.(*StructuredError)
	if !ok {
		return false
	}
	return err.Code == other.Code
}
