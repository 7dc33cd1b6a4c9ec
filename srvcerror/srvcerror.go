package srvcerror

import (
	"net/http"
	"time"
)

type Error struct {
	errorCode  string
	msgToUser  string // public
	dbgInfoErr error  // private, for debugging

	httpStatus int        // optional, for HTTP responses
	retryAfter *time.Time // optional, for rate limited requests
}

func (e *Error) Error() string {
	return e.msgToUser
}

func (e *Error) ErrorCode() string {
	return e.errorCode
}

func (e *Error) DebugInfo() error {
	return e.dbgInfoErr
}

func (e *Error) SetDebug(err error) *Error {
	e.dbgInfoErr = err
	return e
}

func (e *Error) HttpStatusCode() int {
	if e.httpStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.httpStatus
}

func (e *Error) SetHttpStatusCode(code int) *Error {
	e.httpStatus = code
	return e
}

// RetryAfter is the earliest moment the rejected request may succeed.
func (e *Error) RetryAfter() (time.Time, bool) {
	if e.retryAfter == nil {
		return time.Time{}, false
	}
	return *e.retryAfter, true
}

func (e *Error) SetRetryAfter(t time.Time) *Error {
	e.retryAfter = &t
	return e
}

func New(errorCode string, msgToUser string) *Error {
	return &Error{
		errorCode: errorCode,
		msgToUser: msgToUser,
	}
}

const ErrCodeInternalServerError = "internal_server_error"

func ErrInternalSE() *Error {
	return New(
		ErrCodeInternalServerError,
		"internal server error",
	).SetHttpStatusCode(http.StatusInternalServerError)
}

const ErrCodeUnauthorized = "unauthorized"

func ErrUnauthorized() *Error {
	return New(
		ErrCodeUnauthorized,
		"missing or invalid bearer token",
	).SetHttpStatusCode(http.StatusUnauthorized)
}
