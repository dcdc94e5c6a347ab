package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"cm-admin/internal/domain"
)

// Envelope statuses. Failures that the UI shows inline travel as FAIL with
// HTTP 200; ERROR marks a rejected master version request.
const (
	StatusSuccess = "SUCCESS"
	StatusFail    = "FAIL"
	StatusError   = "ERROR"
)

// Envelope is the body of every non-auth response.
type Envelope struct {
	Status        string                 `json:"status"`
	Data          any                    `json:"data"`
	Columns       []domain.Column        `json:"columns,omitempty"`
	VersionIDs    *domain.SourceVersions `json:"versionIds,omitempty"`
	Message       string                 `json:"message"`
	NextPageToken string                 `json:"nextPageToken,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeResult sends rs as a SUCCESS envelope. Rows and columns are always
// arrays, never null.
func writeResult(w http.ResponseWriter, rs *domain.ResultSet, message string) {
	if rs == nil {
		rs = domain.EmptyResult()
	}
	rows, cols := rs.Rows, rs.Columns
	if rows == nil {
		rows = []map[string]any{}
	}
	if cols == nil {
		cols = []domain.Column{}
	}
	writeJSON(w, http.StatusOK, Envelope{
		Status:        StatusSuccess,
		Data:          rows,
		Columns:       cols,
		Message:       message,
		NextPageToken: rs.NextPageToken,
	})
}

func writeSuccess(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, Envelope{Status: StatusSuccess, Data: data, Message: message})
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}
