package api

import (
	"errors"
	"net/http"

	"cm-admin/internal/domain"
	"cm-admin/internal/middleware"
)

// dbErrorMessage is all a client learns about a failed ETL call.
const dbErrorMessage = "DB Error"

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var versionNotFound *domain.VersionNotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &notFound), errors.As(err, &versionNotFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeETLFailure answers a failed upload-screen call. Everything but an
// empty upload collapses to "DB Error"; the detail stays in the log.
func (h *Handler) writeETLFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	msg := dbErrorMessage
	var empty *domain.EmptyUploadError
	if errors.As(err, &empty) {
		msg = empty.Message
	}
	h.logger.Error(op+" failed", "error", err,
		"request_id", middleware.RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, Envelope{Status: StatusFail, Message: msg})
}

// writeReportFailure answers a failed report call. Validation messages such
// as "Invalid TCP number" reach the client with an empty data array.
func (h *Handler) writeReportFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusOK, Envelope{Status: StatusFail, Data: []any{}, Message: validation.Message})
		return
	}
	h.writeETLFailure(w, r, op, err)
}

// writeError answers with an ERROR envelope and the mapped HTTP status.
// Internal errors are logged and reported generically.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := httpStatusFromDomainError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" failed", "error", err,
			"request_id", middleware.RequestIDFromContext(r.Context()))
		msg = "Internal error"
	}
	writeJSON(w, status, Envelope{Status: StatusError, Message: msg})
}
