package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"cm-admin/internal/domain"
	"cm-admin/internal/service/ingestion"
)

// flexInt accepts a JSON number or a numeric string, as browsers send
// either depending on where the value came from.
type flexInt struct {
	Value int64
	Set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = flexInt{}
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", s)
	}
	*f = flexInt{Value: n, Set: true}
	return nil
}

func (f flexInt) intPtr() *int {
	if !f.Set {
		return nil
	}
	n := int(f.Value)
	return &n
}

type uploadRequest struct {
	Data        string  `json:"data"`
	TableID     flexInt `json:"tableId"`
	VersionName string  `json:"versionName"`
	SkipRows    flexInt `json:"skipRows"`
	TableName   string  `json:"tableName"`
}

// GetDataLoadersConf handles POST /upload/getDataLoadersConf.
func (h *Handler) GetDataLoadersConf(w http.ResponseWriter, r *http.Request) {
	confs, err := h.datasets.LoaderConf(r.Context())
	if err != nil {
		h.writeETLFailure(w, r, "getDataLoadersConf", err)
		return
	}
	if confs == nil {
		confs = []domain.DatasetLoaderConf{}
	}
	writeSuccess(w, confs, "")
}

// UploadExcelFile handles POST /upload/uploadExcelFile.
func (h *Handler) UploadExcelFile(w http.ResponseWriter, r *http.Request) {
	h.uploadBase64(w, r, domain.EncodingXLSX)
}

// UploadData handles POST /upload/uploadData.
func (h *Handler) UploadData(w http.ResponseWriter, r *http.Request) {
	h.uploadBase64(w, r, domain.EncodingCSV)
}

func (h *Handler) uploadBase64(w http.ResponseWriter, r *http.Request, enc domain.PayloadEncoding) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeETLFailure(w, r, "upload", err)
		return
	}
	payload, err := ingestion.DecodeBase64(req.Data)
	if err != nil {
		h.writeETLFailure(w, r, "upload", err)
		return
	}
	h.runUpload(w, r, domain.UploadRequest{
		DatasetID:      req.TableID.Value,
		Label:          req.VersionName,
		Payload:        payload,
		Encoding:       enc,
		HeaderRowIndex: req.SkipRows.intPtr(),
		StagingTable:   req.TableName,
	})
}

// UploadFile handles POST /upload/uploadFile, a multipart upload carrying
// the raw file.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeETLFailure(w, r, "uploadFile", domain.ErrValidation("invalid multipart form: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		h.writeETLFailure(w, r, "uploadFile", domain.ErrValidation("file is required"))
		return
	}
	defer file.Close() //nolint:errcheck
	payload, err := io.ReadAll(file)
	if err != nil {
		h.writeETLFailure(w, r, "uploadFile", err)
		return
	}

	var tableID, skipRows flexInt
	if err := tableID.UnmarshalJSON([]byte(r.FormValue("tableId"))); err != nil {
		h.writeETLFailure(w, r, "uploadFile", domain.ErrValidation("tableId: %v", err))
		return
	}
	if err := skipRows.UnmarshalJSON([]byte(r.FormValue("skipRows"))); err != nil {
		h.writeETLFailure(w, r, "uploadFile", domain.ErrValidation("skipRows: %v", err))
		return
	}

	h.runUpload(w, r, domain.UploadRequest{
		DatasetID:      tableID.Value,
		Label:          r.FormValue("versionName"),
		Payload:        payload,
		Encoding:       encodingFor(hdr.Filename, payload),
		HeaderRowIndex: skipRows.intPtr(),
		StagingTable:   r.FormValue("tableName"),
	})
}

// encodingFor picks the decoder from the file name, falling back to the
// payload's leading bytes.
func encodingFor(filename string, payload []byte) domain.PayloadEncoding {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return domain.EncodingXLSX
	case ".csv", ".txt":
		return domain.EncodingCSV
	}
	return ingestion.DetectEncoding(payload)
}

func (h *Handler) runUpload(w http.ResponseWriter, r *http.Request, req domain.UploadRequest) {
	req.Principal = domain.PrincipalName(r.Context())
	res, err := h.uploads.Upload(r.Context(), req)
	if err != nil {
		h.writeETLFailure(w, r, "upload", err)
		return
	}
	writeSuccess(w, res, fmt.Sprintf("Successfully uploaded %d rows", res.Rows))
}

type updateDataRequest struct {
	TableName   string   `json:"tableName"`
	ColumnsList []string `json:"columnsList"`
	ValuesList  []any    `json:"valuesList"`
	RowID       flexInt  `json:"rowId"`
}

// UpdateData handles POST /upload/updateData.
func (h *Handler) UpdateData(w http.ResponseWriter, r *http.Request) {
	var req updateDataRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeETLFailure(w, r, "updateData", err)
		return
	}
	rs, err := h.datasets.UpdateRow(r.Context(), domain.PrincipalName(r.Context()),
		req.TableName, req.ColumnsList, req.ValuesList, req.RowID.Value)
	if err != nil {
		h.writeETLFailure(w, r, "updateData", err)
		return
	}
	writeResult(w, rs, "")
}

type versionRowsRequest struct {
	TableName string  `json:"tableName"`
	Version   flexInt `json:"version"`
}

// GetImsiDonorData handles POST /upload/getImsiDonorData.
func (h *Handler) GetImsiDonorData(w http.ResponseWriter, r *http.Request) {
	var req versionRowsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeETLFailure(w, r, "getImsiDonorData", err)
		return
	}
	rs, err := h.datasets.VersionRows(r.Context(), req.TableName, req.Version.Value)
	if err != nil {
		h.writeETLFailure(w, r, "getImsiDonorData", err)
		return
	}
	writeResult(w, rs, "")
}

type updateTitleRequest struct {
	TableName  string `json:"tableName"`
	ColumnName string `json:"columnName"`
	Title      string `json:"title"`
}

// UpdateTitle handles POST /upload/updateTitle.
func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req updateTitleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeETLFailure(w, r, "updateTitle", err)
		return
	}
	err := h.datasets.SetColumnTitle(r.Context(), domain.PrincipalName(r.Context()),
		req.TableName, req.ColumnName, req.Title)
	if err != nil {
		h.writeETLFailure(w, r, "updateTitle", err)
		return
	}
	writeResult(w, nil, "")
}

var _ json.Unmarshaler = (*flexInt)(nil)
