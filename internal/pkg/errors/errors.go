// Package errors provides custom error types and error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes.
const (
	// Input errors.
	CodeInvalidCutoff     = "INVALID_CUTOFF"
	CodeInvalidParameter  = "INVALID_PARAMETER"
	CodeDuplicateDocument = "DUPLICATE_DOCUMENT"
	CodeInvalidGrade      = "INVALID_GRADE"
	CodeInvalidFormat     = "INVALID_FORMAT"
	CodeNotFound          = "NOT_FOUND"

	// Internal errors.
	CodeInternal = "INTERNAL_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// InvalidCutoffError reports a rank cutoff that is not positive.
func InvalidCutoffError(k int) *AppError {
	return New(CodeInvalidCutoff, fmt.Sprintf("cutoff k must be greater than 0, got %d", k)).
		WithDetail("k", fmt.Sprintf("%d", k))
}

// InvalidParameterError creates an invalid parameter error.
func InvalidParameterError(name, message string) *AppError {
	return New(CodeInvalidParameter, fmt.Sprintf("%s %s", name, message)).
		WithDetail("parameter", name)
}

// DuplicateDocumentError reports a document that appears twice in a ranking.
func DuplicateDocumentError(doc string, first, second int) *AppError {
	return New(CodeDuplicateDocument,
		fmt.Sprintf("document %s appears at ranks %d and %d", doc, first, second)).
		WithDetail("document", doc)
}

// InvalidGradeError reports a relevance grade that is negative or not an integer.
func InvalidGradeError(doc, grade string) *AppError {
	return New(CodeInvalidGrade,
		fmt.Sprintf("grade %s for document %s must be a non-negative integer", grade, doc)).
		WithDetail("document", doc)
}

// InvalidFormatError reports malformed input at a given line.
func InvalidFormatError(line int, message string) *AppError {
	return New(CodeInvalidFormat, fmt.Sprintf("line %d: %s", line, message)).
		WithDetail("line", fmt.Sprintf("%d", line))
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsInvalidCutoff checks if err is an invalid cutoff error.
func IsInvalidCutoff(err error) bool {
	return CodeOf(err) == CodeInvalidCutoff
}

// IsInvalidParameter checks if err is an invalid parameter error.
func IsInvalidParameter(err error) bool {
	return CodeOf(err) == CodeInvalidParameter
}

// IsDuplicateDocument checks if err is a duplicate document error.
func IsDuplicateDocument(err error) bool {
	return CodeOf(err) == CodeDuplicateDocument
}

// IsInvalidGrade checks if err is an invalid grade error.
func IsInvalidGrade(err error) bool {
	return CodeOf(err) == CodeInvalidGrade
}

// IsInvalidFormat checks if err is an invalid format error.
func IsInvalidFormat(err error) bool {
	return CodeOf(err) == CodeInvalidFormat
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}
