package types

import "errors"

// ErrorKind classifies failures so that callers can branch on the class of
// error instead of matching on message text.
type ErrorKind string

const (
	KindUnknown           ErrorKind = "unknown"
	KindNotFound          ErrorKind = "not_found"
	KindValidation        ErrorKind = "validation"
	KindConflict          ErrorKind = "conflict"
	KindForbidden         ErrorKind = "forbidden"
	KindAuthentication    ErrorKind = "authentication"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindExternalService   ErrorKind = "external_service"
	KindManualReview      ErrorKind = "manual_review"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Kind extracts the classification of err, unwrapping as needed.
// Plain errors report KindUnknown.
func Kind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return Kind(err) == kind
}
