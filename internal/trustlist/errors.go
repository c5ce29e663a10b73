package trustlist

import (
	"errors"
	"fmt"
)

// Error represents a structured error from the trustlist package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeRemoteFetch: a remote connector failed or timed out
	ErrCodeRemoteFetch ErrorCode = "remote_fetch"

	// ErrCodeInvalidTrustList: a trust list content or signature blob was rejected
	ErrCodeInvalidTrustList ErrorCode = "invalid_trust_list"

	// ErrCodeInternal: encoding or signing failed while building a trust list
	ErrCodeInternal ErrorCode = "internal"
)

// TrustListError represents a structured error from the trustlist package
type TrustListError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *TrustListError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *TrustListError) Code() ErrorCode { return e.code }
func (e *TrustListError) Unwrap() error   { return e.wrapped }

// HasCode reports whether err wraps a TrustListError with the given code
func HasCode(err error, code ErrorCode) bool {
	var te *TrustListError
	return errors.As(err, &te) && te.code == code
}

// WrapRemoteFetchError wraps a connector failure.
//
// The returned error will have code ErrCodeRemoteFetch.
func WrapRemoteFetchError(err error, msg string) error {
	return &TrustListError{code: ErrCodeRemoteFetch, message: msg, wrapped: err}
}

// NewInvalidTrustListError creates an error for a trust list that fails verification.
//
// The returned error will have code ErrCodeInvalidTrustList.
func NewInvalidTrustListError(msg string) error {
	return &TrustListError{code: ErrCodeInvalidTrustList, message: msg}
}

// WrapInvalidTrustListError wraps an existing error as an invalid trust list error.
//
// The returned error will have code ErrCodeInvalidTrustList.
func WrapInvalidTrustListError(err error, msg string) error {
	return &TrustListError{code: ErrCodeInvalidTrustList, message: msg, wrapped: err}
}

// WrapInternalError wraps an encoding or signing failure.
//
// The returned error will have code ErrCodeInternal.
func WrapInternalError(err error, msg string) error {
	return &TrustListError{code: ErrCodeInternal, message: msg, wrapped: err}
}
