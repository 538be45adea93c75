// Package apperr defines the error taxonomy shared by every resource and the
// single place where those errors become HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Kind classifies an error for the purpose of mapping it to a status code
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindInvalidCredential
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// Error is an error carrying a Kind and a client-safe message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error's kind
func (e *Error) Status() int {
	switch e.Kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindInvalidCredential, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return newf(KindInvalidArgument, format, args...)
}

func InvalidCredential(format string, args ...interface{}) *Error {
	return newf(KindInvalidCredential, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newf(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(KindForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

func TooManyRequests(format string, args ...interface{}) *Error {
	return newf(KindTooManyRequests, format, args...)
}

// Internal wraps an unexpected failure. The message is what clients see; the
// cause is only logged.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the kind of err, KindInternal for anything unclassified
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// any of the supported stores.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	// sqlite3 errors are not translated when TranslateError is off
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// FromDB translates a store error. notFound and conflict are the client
// messages used when the error is a missing row or a uniqueness violation.
func FromDB(err error, notFound, conflict string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Message: notFound, Err: err}
	case IsUniqueViolation(err):
		return &Error{Kind: KindConflict, Message: conflict, Err: err}
	default:
		return Internal("Internal server error", err)
	}
}

// ErrorBody is the uniform error envelope body
type ErrorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ErrorResponse is the uniform error envelope
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Envelope builds the response body for err
func Envelope(err error) (int, ErrorResponse) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Internal("Internal server error", err)
	}
	status := appErr.Status()
	return status, ErrorResponse{Error: ErrorBody{Message: appErr.Message, Status: status}}
}

// Abort records err on the gin context, so the access log sees it, and
// writes the error envelope.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := Envelope(err)
	c.AbortWithStatusJSON(status, body)
}
