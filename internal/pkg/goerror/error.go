package goerror

import (
	"errors"
	"fmt"
	"net/http"
)

// Well-known detail field keys.
const (
	FieldReason            = "reason"
	FieldRetryAfterMinutes = "retry_after_minutes"
)

var (
	// ErrNotFound indicates that the requested resource could not be found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates that the request could not be completed due to a conflict.
	ErrConflict = errors.New("resource conflict")
)

// Type classifies errors into high-level buckets used by the application.
type Type int

const (
	// TypeServer represents server-side failures.
	TypeServer Type = iota
	// TypeBusiness represents business rule violations.
	TypeBusiness
	// TypeValidation represents input validation failures.
	TypeValidation
)

func (t Type) String() string {
	switch t {
	case TypeValidation:
		return "ERROR_TYPE_VALIDATION"
	case TypeBusiness:
		return "ERROR_TYPE_BUSINESS"
	case TypeServer:
		return "ERROR_TYPE_SERVER"
	default:
		return "ERROR_TYPE_UNKNOWN"
	}
}

// Code is a stable identifier used for mapping errors to HTTP status codes.
type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeInvalidCredential
	CodeNotFound
	CodeConflict
	CodeGone
	CodeTooManyRequest
	CodeUnauthorized
	CodeForbidden
	CodeTimeout
	CodeUnavailable
)

var codeNames = map[Code]string{
	CodeInternal:          "ERROR_CODE_INTERNAL",
	CodeInvalidFormat:     "ERROR_CODE_INVALID_FORMAT",
	CodeInvalidInput:      "ERROR_CODE_INVALID_INPUT",
	CodeInvalidCredential: "ERROR_CODE_INVALID_CREDENTIAL",
	CodeNotFound:          "ERROR_CODE_NOT_FOUND",
	CodeConflict:          "ERROR_CODE_CONFLICT",
	CodeGone:              "ERROR_CODE_GONE",
	CodeTooManyRequest:    "ERROR_CODE_TOO_MANY_REQUESTS",
	CodeUnauthorized:      "ERROR_CODE_UNAUTHORIZED",
	CodeForbidden:         "ERROR_CODE_FORBIDDEN",
	CodeTimeout:           "ERROR_CODE_TIMEOUT",
	CodeUnavailable:       "ERROR_CODE_UNAVAILABLE",
}

var codeStatuses = map[Code]int{
	CodeInternal:          http.StatusInternalServerError,
	CodeInvalidFormat:     http.StatusBadRequest,
	CodeInvalidInput:      http.StatusUnprocessableEntity,
	CodeInvalidCredential: http.StatusBadRequest,
	CodeNotFound:          http.StatusNotFound,
	CodeConflict:          http.StatusConflict,
	CodeGone:              http.StatusGone,
	CodeTooManyRequest:    http.StatusTooManyRequests,
	CodeUnauthorized:      http.StatusUnauthorized,
	CodeForbidden:         http.StatusForbidden,
	CodeTimeout:           http.StatusRequestTimeout,
	CodeUnavailable:       http.StatusServiceUnavailable,
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "ERROR_CODE_INTERNAL"
}

// Error is a structured error used across the application.
//
// It can wrap an underlying error while also carrying a user-facing message,
// a high-level type, a stable error code and a set of detail fields. For
// validation errors the fields are per-input messages; for business errors
// they carry machine-readable details such as a rejection reason.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}

	if e.msg != "" {
		return e.msg
	}

	switch e.errType {
	case TypeValidation:
		return "Validation violation"
	case TypeBusiness:
		return "Logical business not meet with requirement"
	case TypeServer:
		return "Internal error"
	}

	return "Unknown error"
}

// String returns a verbose representation of the error for debugging/logging.
func (e *Error) String() string {
	return fmt.Sprintf(
		"Error Type: %s, Code: %s, Message: %s, Fields: %v, Underlying Error: %v",
		e.errType.String(),
		e.code.String(),
		e.msg,
		e.fields,
		e.err,
	)
}

// Msg returns the user-facing error message, if set.
func (e *Error) Msg() string { return e.msg }

// Type returns the high-level error type.
func (e *Error) Type() Type { return e.errType }

// Code returns the stable error code.
func (e *Error) Code() Code { return e.code }

// Fields returns the detail fields, if any.
func (e *Error) Fields() map[string]string { return e.fields }

// Field returns a single detail field.
func (e *Error) Field(key string) string {
	if e.fields == nil {
		return ""
	}
	return e.fields[key]
}

func (e *Error) Unwrap() error { return e.err }

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	if status, ok := codeStatuses[e.code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func newError(err error, msg string, et Type, code Code) *Error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

func (e *Error) withPairs(kv []string) *Error {
	if len(kv) < 2 {
		return e
	}

	if e.fields == nil {
		e.fields = make(map[string]string, len(kv)/2)
	}

	for i := 0; i+1 < len(kv); i += 2 {
		e.fields[kv[i]] = kv[i+1]
	}

	return e
}

// NewServer creates a server-type error with the provided error.
func NewServer(err error) error {
	return newError(err, "Internal server error", TypeServer, CodeInternal)
}

// NewBusiness creates a business-type error with the specified message and code.
// Optional key/value pairs become detail fields; a trailing odd key is ignored.
func NewBusiness(msg string, code Code, kv ...string) error {
	return newError(nil, msg, TypeBusiness, code).withPairs(kv)
}

// NewInvalidInput creates a validation error either from a validator error or
// from explicit field/message pairs.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return newError(err, "Validation error", TypeValidation, CodeInvalidInput)
	}

	if len(kv)%2 != 0 {
		return newError(nil, "Invalid request body", TypeValidation, CodeInvalidFormat)
	}

	return newError(nil, "Validation error", TypeValidation, CodeInvalidInput).withPairs(kv)
}

// NewInvalidFormat creates a validation error for an invalid request body format.
func NewInvalidFormat(msgs ...string) error {
	if len(msgs) == 0 {
		return newError(nil, "Invalid request body", TypeValidation, CodeInvalidFormat)
	}
	return newError(nil, msgs[0], TypeValidation, CodeInvalidFormat)
}

// As is a convenience wrapper around errors.As for *Error.
func As(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
