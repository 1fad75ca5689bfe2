package api

import (
	"errors"
	"net/http"

	"github.com/vedran77/xchat/pkg/domain"
)

// Error codes carried in the "code" field of an error body.
const (
	CodeInvalidName     = "INVALID_NAME"
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeAlreadyExists   = "ALREADY_EXISTS"
	CodePayloadMismatch = "PAYLOAD_MISMATCH"
	CodeCancelled       = "CANCELLED"
	CodeInternal        = "INTERNAL"
)

type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// StatusClientClosedRequest is the non-standard status logged for requests
// the client gave up on.
const StatusClientClosedRequest = 499

type errorKind struct {
	sentinel error
	code     string
	status   int
}

// Order matters: ErrInvalidName is checked before the generic bad request.
var errorKinds = []errorKind{
	{domain.ErrInvalidName, CodeInvalidName, http.StatusBadRequest},
	{domain.ErrBadRequest, CodeBadRequest, http.StatusBadRequest},
	{domain.ErrUnauthenticated, CodeUnauthenticated, http.StatusUnauthorized},
	{domain.ErrForbidden, CodeForbidden, http.StatusForbidden},
	{domain.ErrNotFound, CodeNotFound, http.StatusNotFound},
	{domain.ErrAlreadyExists, CodeAlreadyExists, http.StatusConflict},
	{domain.ErrPayloadMismatch, CodePayloadMismatch, http.StatusUnprocessableEntity},
	{domain.ErrCancelled, CodeCancelled, StatusClientClosedRequest},
}

// ErrorCode maps err onto a status and code. Anything that is not one of the
// domain kinds, storage failures included, is INTERNAL.
func ErrorCode(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.sentinel) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// Sentinel returns the domain error a code stands for, or nil when the code
// is unknown.
func Sentinel(code string) error {
	switch code {
	case CodeValidation:
		return domain.ErrBadRequest
	case CodeInternal:
		return domain.ErrStorage
	}
	for _, k := range errorKinds {
		if k.code == code {
			return k.sentinel
		}
	}
	return nil
}
