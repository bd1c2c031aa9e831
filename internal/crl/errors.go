package crl

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the pipeline failure class. Codes are part of the API
// surface: clients branch on them.
type Code string

const (
	// Malformed client input. Safe to retry with corrected input.
	CodeInvalidPEM Code = "invalid_pem"
	CodeInvalidDER Code = "invalid_der"

	// The CRL cannot be authenticated. Needs operator intervention
	// (publish the missing CA or reissue the CRL), never auto-retried.
	CodeIssuerNotFound   Code = "issuer_not_found"
	CodeInvalidSignature Code = "invalid_signature"

	// The CRL is authentic but does not supersede the stored one.
	// Re-submitting the identical CRL is an idempotent no-op.
	CodeStaleCRL Code = "stale_crl"

	CodeUnauthorized       Code = "unauthorized"
	CodeStorageUnavailable Code = "storage_unavailable"
)

// Error is a pipeline failure with a machine-readable code.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure class to a response status. Decode errors
// are the client's fault, trust errors are unprocessable, ordering
// conflicts conflict, and storage faults are a bad gateway to the store.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidPEM, CodeInvalidDER:
		return http.StatusBadRequest
	case CodeIssuerNotFound, CodeInvalidSignature:
		return http.StatusUnprocessableEntity
	case CodeStaleCRL:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeStorageUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newError(op string, code Code, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the pipeline code from an error chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
