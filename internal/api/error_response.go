package api

// error_response.go maps errors from the lower level packages to the JSON error response returned to clients

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ehn-dcc-development/hcert-service/internal/chain"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/logger"
	"github.com/ehn-dcc-development/hcert-service/internal/trustlist"
)

// ErrorResponse is the error body returned by every endpoint
type ErrorResponse struct {

	// The HTTP method used to make the request e.g. GET, POST, etc
	HTTPMethod string `json:"httpMethod"`

	// The URI that was requested
	RequestURI string `json:"requestUri"`

	// The HTTP status code returned
	StatusCode int `json:"statusCode"`

	// A standard short description corresponding to the HTTP status code
	StatusCodeText string `json:"statusCodeText"`

	// A long description corresponding to the HTTP status code with additional information
	StatusCodeMessage string `json:"statusCodeMessage,omitempty"`

	// The request id assigned by the server
	RequestID string `json:"requestId,omitempty"`

	// The DateTime corresponding to the error occurring
	ErrorDateTime string `json:"errorDateTime"`

	// An array of errors providing more detail about the root cause
	Errors []DetailedError `json:"errors"`
}

// DetailedError represents a detailed error in the error response
type DetailedError struct {
	// error code: 7000-7999 for technical errors, 8000-8999 for functional errors
	ErrorCode        ErrorCode `json:"errorCode"`
	ErrorCodeText    string    `json:"errorCodeText"`
	ErrorCodeMessage string    `json:"errorCodeMessage"`
}

// MapErrorToResponse maps api, crypto, chain, trustlist or generic errors to an error response.
//
// The most specific error type wins. The status code follows the error code; the full error message
// is included in the detailed error.
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		status, text := statusForApiCode(apiErr.Code())
		return newErrorResponse(r, requestID, status, apiErr.Code(), text, err)
	}

	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) {
		status, code, text := statusForCryptoCode(cryptoErr.Code())
		return newErrorResponse(r, requestID, status, code, text, err)
	}

	var chainErr *chain.ChainError
	if errors.As(err, &chainErr) {
		if chainErr.Code() == chain.ErrCodeEncode {
			return newErrorResponse(r, requestID, http.StatusInternalServerError, ErrCodeInternalError, "Token encoding failed", err)
		}
		return newErrorResponse(r, requestID, http.StatusBadRequest, ErrCodeInvalidToken, "Invalid token", err)
	}

	var trustListErr *trustlist.TrustListError
	if errors.As(err, &trustListErr) {
		status := http.StatusInternalServerError
		if trustListErr.Code() == trustlist.ErrCodeInvalidTrustList {
			status = http.StatusBadRequest
		}
		return newErrorResponse(r, requestID, status, ErrCodeTrustListError, "Trust list error", err)
	}

	// fallback - this is not expected - if it does happen return an internal error and log the unmapped error
	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("error", err.Error()),
		slog.String("request_id", requestID),
	)
	return &ErrorResponse{
		HTTPMethod:        r.Method,
		RequestURI:        r.RequestURI,
		StatusCode:        http.StatusInternalServerError,
		StatusCodeText:    http.StatusText(http.StatusInternalServerError),
		StatusCodeMessage: "Internal Error",
		RequestID:         requestID,
		ErrorDateTime:     time.Now().UTC().Format(time.RFC3339),
		Errors: []DetailedError{
			{
				ErrorCode:        ErrCodeInternalError,
				ErrorCodeText:    "Internal Error",
				ErrorCodeMessage: "An internal error occurred",
			},
		},
	}
}

func statusForApiCode(code ErrorCode) (int, string) {
	switch code {
	case ErrCodeMalformedRequest:
		return http.StatusBadRequest, "Malformed request"
	case ErrCodeInvalidClaims:
		return http.StatusBadRequest, "Invalid claims"
	case ErrCodeInvalidToken:
		return http.StatusBadRequest, "Invalid token"
	case ErrCodeNotFound:
		return http.StatusNotFound, "Not found"
	case ErrCodeUnknownKeyID:
		return http.StatusNotFound, "Unknown key identifier"
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests, "Rate limit exceeded"
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge, "Request too large"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

func statusForCryptoCode(code crypto.ErrorCode) (int, ErrorCode, string) {
	switch code {
	case crypto.ErrCodeUnknownKeyID:
		return http.StatusNotFound, ErrCodeUnknownKeyID, "Unknown key identifier"
	case crypto.ErrCodeValidation:
		return http.StatusBadRequest, ErrCodeMalformedRequest, "Malformed request"
	case crypto.ErrCodeInvalidSignature:
		return http.StatusBadRequest, ErrCodeBadSignature, "Bad signature"
	case crypto.ErrCodeCertificate:
		return http.StatusBadRequest, ErrCodeBadCertificate, "Bad certificate"
	case crypto.ErrCodeKeyManagement:
		return http.StatusInternalServerError, ErrCodeKeyError, "Signing key error"
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, "Internal Error"
	}
}

func newErrorResponse(r *http.Request, requestID string, status int, code ErrorCode, text string, err error) *ErrorResponse {
	return &ErrorResponse{
		HTTPMethod:        r.Method,
		RequestURI:        r.RequestURI,
		StatusCode:        status,
		StatusCodeText:    http.StatusText(status),
		StatusCodeMessage: text,
		RequestID:         requestID,
		ErrorDateTime:     time.Now().UTC().Format(time.RFC3339),
		Errors: []DetailedError{
			{
				ErrorCode:        code,
				ErrorCodeText:    text,
				ErrorCodeMessage: err.Error(),
			},
		},
	}
}
