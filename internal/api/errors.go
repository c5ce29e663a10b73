package api

// errors.go defines the error codes returned by the hcert HTTP API

import "fmt"

// ApiError represents a structured error raised by the HTTP layer
type ApiError struct {
	// code is the API error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *ApiError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *ApiError) Code() ErrorCode { return e.code }
func (e *ApiError) Unwrap() error   { return e.wrapped }

// ErrorCode is used in error responses.
//
//   - 7000-7999 for technical errors: the request could not be processed because of the supplied data or a server fault.
//   - 8000-8999 for functional errors: the request is valid but refers to something the service does not know.
type ErrorCode int

const (

	// ErrCodeBadSignature is used when a COSE signature cannot be created or verified
	ErrCodeBadSignature ErrorCode = 7001

	// ErrCodeBadCertificate is used when a certificate cannot be parsed or does not match its key
	ErrCodeBadCertificate ErrorCode = 7002

	// ErrCodeInvalidClaims is used when the submitted claims record fails validation
	ErrCodeInvalidClaims ErrorCode = 7003

	// ErrCodeInvalidToken is used when a token cannot be encoded or decoded
	ErrCodeInvalidToken ErrorCode = 7004

	// ErrCodeInternalError is used when an internal server error occurs
	ErrCodeInternalError ErrorCode = 7005

	// ErrCodeMalformedRequest is used when JSON parsing or a path parameter fails
	ErrCodeMalformedRequest ErrorCode = 7006

	// ErrCodeKeyError is used when there is a problem with signing key material
	ErrCodeKeyError ErrorCode = 7007

	// ErrCodeTrustListError is used when the trust list cannot be built or verified
	ErrCodeTrustListError ErrorCode = 7008

	// ErrCodeRateLimitExceeded is used when the rate limit is exceeded
	// - this is only used in the middleware
	ErrCodeRateLimitExceeded ErrorCode = 7009

	// ErrCodeRequestTooLarge is used when the request body is too large
	// - this is only used in the middleware
	ErrCodeRequestTooLarge ErrorCode = 7010

	// ErrCodeUnknownKeyID is used when a kid is not in the trust list
	ErrCodeUnknownKeyID ErrorCode = 8001

	// ErrCodeNotFound is used for unknown resources such as sample names
	ErrCodeNotFound ErrorCode = 8002
)

// NewMalformedRequestError creates an error for malformed requests.
func NewMalformedRequestError(msg string) error {
	return &ApiError{code: ErrCodeMalformedRequest, message: msg}
}

// WrapMalformedRequestError wraps an existing error as a malformed request error.
func WrapMalformedRequestError(err error, msg string) error {
	return &ApiError{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

// WrapInvalidClaimsError wraps a claims validation failure.
//
// The returned error will have code ErrCodeInvalidClaims.
func WrapInvalidClaimsError(err error, msg string) error {
	return &ApiError{code: ErrCodeInvalidClaims, message: msg, wrapped: err}
}

// NewNotFoundError creates an error for an unknown resource.
//
// The returned error will have code ErrCodeNotFound.
func NewNotFoundError(msg string) error {
	return &ApiError{code: ErrCodeNotFound, message: msg}
}

// NewInternalError creates an internal error for unexpected failures.
//
// The returned error will have code ErrCodeInternalError.
func NewInternalError(msg string) error {
	return &ApiError{code: ErrCodeInternalError, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
//
// The returned error will have code ErrCodeInternalError.
func WrapInternalError(err error, msg string) error {
	return &ApiError{code: ErrCodeInternalError, message: msg, wrapped: err}
}

// NewRateLimitError creates an error for requests rejected by the rate limiter.
func NewRateLimitError(msg string) error {
	return &ApiError{code: ErrCodeRateLimitExceeded, message: msg}
}

// NewRequestTooLargeError creates an error for oversized request bodies.
func NewRequestTooLargeError(msg string) error {
	return &ApiError{code: ErrCodeRequestTooLarge, message: msg}
}
