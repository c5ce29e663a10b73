package chain

import (
	"errors"
	"fmt"
)

// Error represents a structured error from the chain package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeStructuralDecode: input bytes of a stage are not in the expected format
	ErrCodeStructuralDecode ErrorCode = "structural_decode"

	// ErrCodeSignatureVerification: a well-formed signature could not be verified
	ErrCodeSignatureVerification ErrorCode = "signature_verification"

	// ErrCodeClaimsDecode: the envelope or the claims inside it could not be decoded
	ErrCodeClaimsDecode ErrorCode = "claims_decode"

	// ErrCodeEncode: a stage failed while producing a token
	ErrCodeEncode ErrorCode = "encode"
)

// ErrUncompressed is returned by Compressor.Decompress when the input carries no zlib header
var ErrUncompressed = errors.New("input is not zlib compressed")

// ChainError represents a structured error from the chain package
type ChainError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *ChainError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *ChainError) Code() ErrorCode { return e.code }
func (e *ChainError) Unwrap() error   { return e.wrapped }

// HasCode reports whether err wraps a ChainError with the given code
func HasCode(err error, code ErrorCode) bool {
	var ce *ChainError
	return errors.As(err, &ce) && ce.code == code
}

// NewStructuralDecodeError creates an error for input that is not in a stage's format,
// e.g. invalid Base45 characters, a broken zlib stream or bytes that are not COSE.
//
// The returned error will have code ErrCodeStructuralDecode.
func NewStructuralDecodeError(msg string) error {
	return &ChainError{code: ErrCodeStructuralDecode, message: msg}
}

// WrapStructuralDecodeError wraps an existing error as a structural decode error.
//
// The returned error will have code ErrCodeStructuralDecode.
func WrapStructuralDecodeError(err error, msg string) error {
	return &ChainError{code: ErrCodeStructuralDecode, message: msg, wrapped: err}
}

// NewSignatureVerificationError creates an error for a signature that could not be verified:
// missing kid, unknown kid, algorithm mismatch or a bad signature.
//
// The returned error will have code ErrCodeSignatureVerification.
func NewSignatureVerificationError(msg string) error {
	return &ChainError{code: ErrCodeSignatureVerification, message: msg}
}

// WrapSignatureVerificationError wraps an existing error as a signature verification error.
//
// The returned error will have code ErrCodeSignatureVerification.
func WrapSignatureVerificationError(err error, msg string) error {
	return &ChainError{code: ErrCodeSignatureVerification, message: msg, wrapped: err}
}

// NewClaimsDecodeError creates an error for an envelope or claims record that does not decode.
//
// The returned error will have code ErrCodeClaimsDecode.
func NewClaimsDecodeError(msg string) error {
	return &ChainError{code: ErrCodeClaimsDecode, message: msg}
}

// WrapClaimsDecodeError wraps an existing error as a claims decode error.
//
// The returned error will have code ErrCodeClaimsDecode.
func WrapClaimsDecodeError(err error, msg string) error {
	return &ChainError{code: ErrCodeClaimsDecode, message: msg, wrapped: err}
}

// NewEncodeError creates an error for an encode stage that cannot run.
//
// The returned error will have code ErrCodeEncode.
func NewEncodeError(msg string) error {
	return &ChainError{code: ErrCodeEncode, message: msg}
}

// WrapEncodeError wraps a failure of an encode stage.
//
// The returned error will have code ErrCodeEncode.
func WrapEncodeError(err error, msg string) error {
	return &ChainError{code: ErrCodeEncode, message: msg, wrapped: err}
}
