package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the backend has no such document (HTTP 404 or
// a null metadata body). An empty search result is not an error.
var ErrNotFound = errors.New("catalog: not found")

// ErrInvalidCredentials is returned by Login when the backend answers valid=false.
var ErrInvalidCredentials = errors.New("catalog: invalid email or password")

// ErrSignupRejected is returned by Signup when the backend answers valid=false.
var ErrSignupRejected = errors.New("catalog: signup rejected")

// SignupError is a signup the backend refused. Reason may be empty.
type SignupError struct {
	Reason string
}

func (e *SignupError) Error() string {
	if e.Reason == "" {
		return "signup: " + ErrSignupRejected.Error()
	}
	return "signup: " + ErrSignupRejected.Error() + ": " + e.Reason
}

func (e *SignupError) Unwrap() error { return ErrSignupRejected }

// NetworkError is a request that failed or timed out before a usable
// response arrived. Retry is left to the user.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the request hit its deadline.
func (e *NetworkError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ValidationError is a query whose required scoping fields are missing, such
// as asking for subjects before a semester is chosen. It represents an
// incomplete selection, not a fault; no request is sent.
type ValidationError struct {
	Op      string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Op, strings.Join(e.Missing, ", "))
}

// StatusError is a non-2xx answer other than 404.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Code, e.Body)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
