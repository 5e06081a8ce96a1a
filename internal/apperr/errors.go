// Package apperr defines the domain error taxonomy surfaced at the core's
// boundary: a kind, a human-readable detail, and optional spreadsheet cell
// references.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindVersionNotFound      Kind = "VERSION_NOT_FOUND"
	KindVersionFrozen        Kind = "VERSION_FROZEN"
	KindDiagnosticNotFound   Kind = "DIAGNOSTIC_NOT_FOUND"
	KindDependencyMissing    Kind = "DEPENDENCY_MISSING"
	KindImportValidation     Kind = "IMPORT_VALIDATION"
	KindSheetMissing         Kind = "SHEET_MISSING"
	KindColumnsMissing       Kind = "COLUMNS_MISSING"
	KindDuplicateVersionName Kind = "DUPLICATE_VERSION_NAME"
	KindOutcomeModel         Kind = "OUTCOME_MODEL_RESOLUTION"
	KindFilterMismatch       Kind = "FILTER_MISMATCH"
	KindInvalidFilter        Kind = "INVALID_FILTER"
	KindInvalidStatus        Kind = "INVALID_STATUS"
	KindInvalidLimit         Kind = "INVALID_LIMIT"
	KindUnauthenticated      Kind = "UNAUTHENTICATED"
	KindRateLimited          Kind = "RATE_LIMITED"
	KindUnexpected           Kind = "UNEXPECTED_ERROR"
)

var messages = map[Kind]string{
	KindVersionNotFound:      "diagnostic version not found",
	KindVersionFrozen:        "diagnostic version is finalized; create a new draft version to change its structure",
	KindDiagnosticNotFound:   "diagnostic not found",
	KindDependencyMissing:    "required data is missing",
	KindImportValidation:     "import contains invalid values",
	KindSheetMissing:         "required sheet is missing",
	KindColumnsMissing:       "sheet headers do not match the expected columns",
	KindDuplicateVersionName: "a version with this name already exists for the diagnostic",
	KindOutcomeModel:         "outcome table is not registered",
	KindFilterMismatch:       "version does not belong to the requested diagnostic",
	KindInvalidFilter:        "conflicting filters",
	KindInvalidStatus:        "invalid status value",
	KindInvalidLimit:         "limit must be between 1 and 1000",
	KindUnauthenticated:      "admin identity is required",
	KindRateLimited:          "too many requests; retry later",
	KindUnexpected:           "unexpected error",
}

var statuses = map[Kind]int{
	KindVersionNotFound:      http.StatusNotFound,
	KindVersionFrozen:        http.StatusConflict,
	KindDiagnosticNotFound:   http.StatusNotFound,
	KindDependencyMissing:    http.StatusUnprocessableEntity,
	KindImportValidation:     http.StatusUnprocessableEntity,
	KindSheetMissing:         http.StatusUnprocessableEntity,
	KindColumnsMissing:       http.StatusUnprocessableEntity,
	KindDuplicateVersionName: http.StatusConflict,
	KindOutcomeModel:         http.StatusUnprocessableEntity,
	KindFilterMismatch:       http.StatusBadRequest,
	KindInvalidFilter:        http.StatusBadRequest,
	KindInvalidStatus:        http.StatusBadRequest,
	KindInvalidLimit:         http.StatusBadRequest,
	KindUnauthenticated:      http.StatusUnauthorized,
	KindRateLimited:          http.StatusTooManyRequests,
	KindUnexpected:           http.StatusInternalServerError,
}

// Message returns the fixed user-facing message for the kind.
func (k Kind) Message() string {
	if m, ok := messages[k]; ok {
		return m
	}
	return messages[KindUnexpected]
}

// HTTPStatus returns the status code the HTTP layer answers with.
func (k Kind) HTTPStatus() int {
	if s, ok := statuses[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is a classified domain failure.
type Error struct {
	Kind   Kind
	Detail string
	Cells  []string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error. Cells are "<sheet>!<column><row>" references.
func New(kind Kind, detail string, cells ...string) *Error {
	return &Error{Kind: kind, Detail: detail, Cells: cells}
}

// Wrap attaches a cause to a domain error.
func Wrap(err error, kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// As extracts the domain error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the domain kind of err, or KindUnexpected for anything
// unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnexpected
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
