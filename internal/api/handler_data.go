package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cm-admin/internal/domain"
)

// ListReferenceTables handles GET /data/tables.
func (h *Handler) ListReferenceTables(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, h.reference.Tables(), "")
}

// ListReferenceRows handles GET /data/tables/{table}.
func (h *Handler) ListReferenceRows(w http.ResponseWriter, r *http.Request) {
	page := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, r, "listReferenceRows", domain.ErrValidation("max_results must be a non-negative integer"))
			return
		}
		page.PageSize = n
	}
	rs, err := h.reference.List(r.Context(), chi.URLParam(r, "table"), page)
	if err != nil {
		h.writeError(w, r, "listReferenceRows", err)
		return
	}
	writeResult(w, rs, "")
}

// InsertReferenceRow handles POST /data/tables/{table}.
func (h *Handler) InsertReferenceRow(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decodeJSON(r, &values); err != nil {
		h.writeError(w, r, "insertReferenceRow", err)
		return
	}
	rs, err := h.reference.Insert(r.Context(), domain.PrincipalName(r.Context()), chi.URLParam(r, "table"), values)
	if err != nil {
		h.writeError(w, r, "insertReferenceRow", err)
		return
	}
	writeResult(w, rs, "")
}

// UpdateReferenceRow handles PUT /data/tables/{table}/{id}.
func (h *Handler) UpdateReferenceRow(w http.ResponseWriter, r *http.Request) {
	id, err := rowID(r)
	if err != nil {
		h.writeError(w, r, "updateReferenceRow", err)
		return
	}
	var values map[string]any
	if err := decodeJSON(r, &values); err != nil {
		h.writeError(w, r, "updateReferenceRow", err)
		return
	}
	rs, err := h.reference.Update(r.Context(), domain.PrincipalName(r.Context()), chi.URLParam(r, "table"), id, values)
	if err != nil {
		h.writeError(w, r, "updateReferenceRow", err)
		return
	}
	writeResult(w, rs, "")
}

// DeleteReferenceRow handles DELETE /data/tables/{table}/{id}.
func (h *Handler) DeleteReferenceRow(w http.ResponseWriter, r *http.Request) {
	id, err := rowID(r)
	if err != nil {
		h.writeError(w, r, "deleteReferenceRow", err)
		return
	}
	rs, err := h.reference.Delete(r.Context(), domain.PrincipalName(r.Context()), chi.URLParam(r, "table"), id)
	if err != nil {
		h.writeError(w, r, "deleteReferenceRow", err)
		return
	}
	writeResult(w, rs, "")
}

func rowID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, domain.ErrValidation("row id must be an integer")
	}
	return id, nil
}

// GetIotLaunchesAndSteeringData handles GET /data/getIotLaunchesAndSteeringData.
func (h *Handler) GetIotLaunchesAndSteeringData(w http.ResponseWriter, r *http.Request) {
	rs, err := h.reference.List(r.Context(), "iot_launches_and_steering", domain.PageRequest{})
	if err != nil {
		h.writeReportFailure(w, r, "getIotLaunchesAndSteeringData", err)
		return
	}
	writeResult(w, rs, "")
}

type versionSelection struct {
	VersionIDs domain.SourceVersions `json:"versionIds"`
}

// selectionReport serves a report driven by a source version selection.
func (h *Handler) selectionReport(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, domain.SourceVersions) (*domain.ResultSet, error),
) {
	var req versionSelection
	if err := decodeJSON(r, &req); err != nil {
		h.writeReportFailure(w, r, op, err)
		return
	}
	rs, err := fn(r.Context(), req.VersionIDs)
	if err != nil {
		h.writeReportFailure(w, r, op, err)
		return
	}
	writeResult(w, rs, "")
}

// GetNbIotData handles POST /data/getNbIotData.
func (h *Handler) GetNbIotData(w http.ResponseWriter, r *http.Request) {
	h.selectionReport(w, r, "getNbIotData", h.reports.NbIot)
}

// GetCatMData handles POST /data/getCatMData.
func (h *Handler) GetCatMData(w http.ResponseWriter, r *http.Request) {
	h.selectionReport(w, r, "getCatMData", h.reports.CatM)
}

// GetMasterListData handles POST /data/getMasterListData.
func (h *Handler) GetMasterListData(w http.ResponseWriter, r *http.Request) {
	h.selectionReport(w, r, "getMasterListData", h.reports.MasterList)
}

type tcpRequest struct {
	ID flexInt `json:"id"`
}

// tcpReport serves a report keyed by a TCP or profile number from the body.
func (h *Handler) tcpReport(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, int) (*domain.ResultSet, error),
) {
	var req tcpRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeReportFailure(w, r, op, err)
		return
	}
	rs, err := fn(r.Context(), int(req.ID.Value))
	if err != nil {
		h.writeReportFailure(w, r, op, err)
		return
	}
	writeResult(w, rs, "")
}

// pathReport serves a report keyed by a number in the URL path. A
// non-numeric value reaches the service as 0 and fails its range check.
func (h *Handler) pathReport(w http.ResponseWriter, r *http.Request, op, param string,
	fn func(context.Context, int) (*domain.ResultSet, error),
) {
	n, _ := strconv.Atoi(chi.URLParam(r, param))
	rs, err := fn(r.Context(), n)
	if err != nil {
		h.writeReportFailure(w, r, op, err)
		return
	}
	writeResult(w, rs, "")
}

// GetBapData handles POST /data/getBapData.
func (h *Handler) GetBapData(w http.ResponseWriter, r *http.Request) {
	h.tcpReport(w, r, "getBapData", h.reports.Bap)
}

// GetPriceZoneList handles GET /data/getPriceZoneList/{tcp}.
func (h *Handler) GetPriceZoneList(w http.ResponseWriter, r *http.Request) {
	h.pathReport(w, r, "getPriceZoneList", "tcp", h.reports.PriceZoneList)
}

// GetPriceZoneListEprofile handles GET /data/getPriceZoneListEprofile/{profile}.
func (h *Handler) GetPriceZoneListEprofile(w http.ResponseWriter, r *http.Request) {
	h.pathReport(w, r, "getPriceZoneListEprofile", "profile", h.reports.Eprofile)
}

// GetTCPList handles GET /conf/getTcpList.
func (h *Handler) GetTCPList(w http.ResponseWriter, r *http.Request) {
	rs, err := h.reports.TCPList(r.Context())
	if err != nil {
		h.writeReportFailure(w, r, "getTcpList", err)
		return
	}
	writeResult(w, rs, "")
}

// GetPzCutOffPoints handles POST /conf/getPzCutOffPoints.
func (h *Handler) GetPzCutOffPoints(w http.ResponseWriter, r *http.Request) {
	h.tcpReport(w, r, "getPzCutOffPoints", h.reports.PzCutOffPoints)
}

// GetScreenConfig handles GET /screens/getScreenConfig.
func (h *Handler) GetScreenConfig(w http.ResponseWriter, r *http.Request) {
	rs, err := h.reports.ScreenConfig(r.Context())
	if err != nil {
		h.writeReportFailure(w, r, "getScreenConfig", err)
		return
	}
	writeResult(w, rs, "")
}
