// Package apperr classifies errors by the action the caller has to take.
package apperr

import "errors"

type Kind int

const (
	KindUnknown Kind = iota
	// KindInput: malformed or missing request data.
	KindInput
	KindNotFound
	// KindPolicy: a business rule rejected the request; the caller must change it.
	KindPolicy
	KindAuthorization
	// KindAuthentication: missing or wrong credentials.
	KindAuthentication
	// KindStorage: transient collaborator failure, safe to retry from the start.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNotFound:
		return "not_found"
	case KindPolicy:
		return "policy"
	case KindAuthorization:
		return "authorization"
	case KindAuthentication:
		return "authentication"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Rejection builds a policy or input error that also carries a client-facing reason name.
func Rejection(kind Kind, code, reason, message string) *Error {
	return &Error{Kind: kind, Code: code, Reason: reason, Message: message}
}

// Storage wraps a collaborator failure.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindStorage, Code: "STORAGE_ERROR", Message: "storage failure", Err: err}
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
