package api

import (
	"errors"
	"net/http"

	"cm-admin/internal/domain"
)

// GetSavedVersions handles GET /master/getSavedVersions.
func (h *Handler) GetSavedVersions(w http.ResponseWriter, r *http.Request) {
	rs, err := h.masters.SavedVersions(r.Context())
	if err != nil {
		h.writeETLFailure(w, r, "getSavedVersions", err)
		return
	}
	writeResult(w, rs, "")
}

type savedVersionRequest struct {
	VersionID flexInt `json:"versionId"`
}

// GetSavedVersionByID handles POST /master/getSavedVersionById. The
// response carries the frozen rows and the source selection they were
// built from.
func (h *Handler) GetSavedVersionByID(w http.ResponseWriter, r *http.Request) {
	var req savedVersionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "getSavedVersionById", err)
		return
	}
	mv, rs, err := h.masters.SavedVersion(r.Context(), req.VersionID.Value)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			writeJSON(w, http.StatusNotFound, Envelope{Status: StatusError, Message: "Version not found"})
			return
		}
		h.writeETLFailure(w, r, "getSavedVersionById", err)
		return
	}
	if rs == nil {
		rs = domain.EmptyResult()
	}
	rows, cols := rs.Rows, rs.Columns
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, Envelope{
		Status:     StatusSuccess,
		Data:       rows,
		Columns:    cols,
		VersionIDs: &mv.Sources,
	})
}

type saveVersionRequest struct {
	VersionName string                `json:"versionName"`
	VersionIDs  domain.SourceVersions `json:"versionIds"`
}

type savedVersionResponse struct {
	MasterConfigID int64  `json:"masterConfigId"`
	NewVersion     string `json:"newVersion"`
}

// SaveVersion handles POST /master/saveVersion. A selection that is already
// saved is rejected with 400 and the id of the existing version.
func (h *Handler) SaveVersion(w http.ResponseWriter, r *http.Request) {
	var req saveVersionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "saveVersion", err)
		return
	}
	mv, err := h.masters.Save(r.Context(), domain.PrincipalName(r.Context()), req.VersionName, req.VersionIDs)
	if err != nil {
		var dup *domain.DuplicateMasterVersionError
		if errors.As(err, &dup) {
			writeJSON(w, http.StatusBadRequest, Envelope{
				Status:  StatusError,
				Data:    map[string]int64{"masterConfigId": dup.ExistingID},
				Message: dup.Message,
			})
			return
		}
		h.writeError(w, r, "saveVersion", err)
		return
	}
	writeSuccess(w, savedVersionResponse{MasterConfigID: mv.ID, NewVersion: mv.DisplayName()},
		"Version saved successfully")
}
