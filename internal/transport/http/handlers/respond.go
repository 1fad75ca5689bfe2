package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vedran77/xchat/internal/telemetry"
	"github.com/vedran77/xchat/pkg/api"
	"github.com/vedran77/xchat/pkg/domain"
	"github.com/vedran77/xchat/pkg/validator"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, api.ErrorBody{Error: api.ErrorDetail{Code: code, Message: message}})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, api.ErrorBody{Error: api.ErrorDetail{
		Code:    api.CodeValidation,
		Message: "Request validation failed",
		Fields:  errs,
	}})
}

// errorWriter turns service errors into responses. Internal failures are
// logged and reported, and the client only sees a generic message.
type errorWriter struct {
	logger   *slog.Logger
	reporter *telemetry.Reporter
}

func (e errorWriter) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := api.ErrorCode(err)
	if status < http.StatusInternalServerError {
		writeError(w, status, code, err.Error())
		return
	}
	e.logger.Error(op, "error", err, "route", r.Pattern)
	e.reporter.ReportError(r.Context(), err, map[string]string{"op": op, "route": r.Pattern})
	writeError(w, status, code, "Something went wrong")
}

// Unauthorized is handed to middleware.Auth.
func (e errorWriter) Unauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusUnauthorized, api.CodeUnauthenticated, err.Error())
}

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst)
}

// writeDecodeError answers a body that did not decode. Names are parsed
// while decoding, so an invalid name surfaces here.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidName) {
		writeError(w, http.StatusBadRequest, api.CodeInvalidName, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, api.CodeBadRequest, "Invalid request body")
}
