package authalligator

import (
	"errors"
	"fmt"
	"time"
)

// AccountError is a domain failure reported by the AuthAlligator service,
// such as an invalid authorization code or an unknown account.
type AccountError struct {
	Code    AccountErrorCode `json:"code" yaml:"code"`
	Message string           `json:"message" yaml:"message"`
	// RetryIn is the number of seconds the service asks callers to wait, if any.
	RetryIn *int `json:"retryIn" yaml:"retry_in,omitempty"`
}

// Error implements the error interface so an AccountError can flow through
// Result.Unwrap.
func (e *AccountError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("account error %s", e.Code)
	}
	return fmt.Sprintf("account error %s: %s", e.Code, e.Message)
}

// RetryAfter returns RetryIn as a duration, or zero when not set.
func (e *AccountError) RetryAfter() time.Duration {
	if e.RetryIn == nil {
		return 0
	}
	return time.Duration(*e.RetryIn) * time.Second
}

// ErrorKind classifies failures that are not domain-level AccountErrors.
type ErrorKind string

const (
	// ErrorKindTransport covers network failures and timeouts.
	ErrorKindTransport ErrorKind = "transport"
	// ErrorKindUnexpectedStatus is any non-200 response.
	ErrorKindUnexpectedStatus ErrorKind = "unexpected_status"
	// ErrorKindUnauthorized is a 401 or 403 response.
	ErrorKindUnauthorized ErrorKind = "unauthorized"
	// ErrorKindQuery means the service rejected the operation itself.
	ErrorKindQuery ErrorKind = "query"
	// ErrorKindDecode means the response body could not be understood.
	ErrorKindDecode ErrorKind = "decode"
	// ErrorKindInvalidInput is returned before any request is sent.
	ErrorKindInvalidInput ErrorKind = "invalid_input"
)

// QueryError is one entry of the top-level "errors" array of a response.
type QueryError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Error is a hard failure of a client call. It is never an AccountError.
type Error struct {
	Kind        ErrorKind
	Op          string
	StatusCode  int
	Body        string
	QueryErrors []QueryError
	Err         error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorKindUnexpectedStatus, ErrorKindUnauthorized:
		return fmt.Sprintf("%s: %s: status=%d body=%s", e.Op, e.Kind, e.StatusCode, e.Body)
	case ErrorKindQuery:
		msg := ""
		if len(e.QueryErrors) > 0 {
			msg = e.QueryErrors[0].Message
		}
		return fmt.Sprintf("%s: %s: %d error(s): %s", e.Op, e.Kind, len(e.QueryErrors), msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// GetError extracts an *Error from err.
func GetError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func isKind(err error, kind ErrorKind) bool {
	e := GetError(err)
	return e != nil && e.Kind == kind
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool { return isKind(err, ErrorKindTransport) }

// IsUnauthorized reports whether the service rejected the client token.
func IsUnauthorized(err error) bool { return isKind(err, ErrorKindUnauthorized) }

// IsUnexpectedStatus reports whether the service answered with a non-200
// status. Unauthorized responses count as unexpected statuses too.
func IsUnexpectedStatus(err error) bool {
	return isKind(err, ErrorKindUnexpectedStatus) || isKind(err, ErrorKindUnauthorized)
}

// IsQuery reports whether the service answered with top-level GraphQL errors.
func IsQuery(err error) bool { return isKind(err, ErrorKindQuery) }

// IsDecode reports whether the response body could not be decoded.
func IsDecode(err error) bool { return isKind(err, ErrorKindDecode) }

// IsInvalidInput reports whether the input was rejected before any request.
func IsInvalidInput(err error) bool { return isKind(err, ErrorKindInvalidInput) }

// GetAccountError extracts an *AccountError from err, as produced by Result.Unwrap.
func GetAccountError(err error) *AccountError {
	var accErr *AccountError
	if errors.As(err, &accErr) {
		return accErr
	}
	return nil
}
