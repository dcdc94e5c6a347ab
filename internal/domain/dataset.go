package domain

import (
	"fmt"
	"strings"
	"time"
)

// Dataset describes one ingestible data source: its staging table, its
// permanent versioned table and the transfer routine that connects them.
// Rows live in cm_conf.t_data_etl_conf and are never written at runtime.
type Dataset struct {
	ID              int64
	Name            string // data_set_name, e.g. "tele2_coverage"
	DonorName       string // owning IMSI donor, e.g. "Tele2"
	StagingTable    TableRef
	PermanentTable  TableRef
	TransferRoutine string
}

// TableRef is a schema-qualified table name.
type TableRef struct {
	Schema string
	Name   string
}

// ParseTableRef splits "schema.table". A bare name gets an empty schema.
func ParseTableRef(s string) (TableRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TableRef{}, ErrValidation("table name is required")
	}
	schema, name, ok := strings.Cut(s, ".")
	if !ok {
		return TableRef{Name: schema}, nil
	}
	if schema == "" || name == "" || strings.Contains(name, ".") {
		return TableRef{}, ErrValidation("invalid table name %q", s)
	}
	return TableRef{Schema: schema, Name: name}, nil
}

func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// IsZero reports whether the reference is empty.
func (t TableRef) IsZero() bool { return t.Name == "" }

// Version is one ingested snapshot of a dataset. Immutable once created.
type Version struct {
	ID        int64
	DatasetID int64
	Label     string
	CreatedOn time.Time // server-assigned date
}

// DisplayName renders the version the way the upload screen lists it,
// "label ( YYYY-MM-DD )".
func (v Version) DisplayName() string {
	return fmt.Sprintf("%s ( %s )", v.Label, v.CreatedOn.Format(time.DateOnly))
}

// PayloadEncoding identifies how an uploaded payload is decoded into rows.
type PayloadEncoding string

// Supported payload encodings.
const (
	EncodingCSV  PayloadEncoding = "csv"
	EncodingXLSX PayloadEncoding = "xlsx"
)

// DefaultHeaderRowIndex returns the header boundary used when the client
// omits skipRows. Workbooks from the donors carry a title block.
func (e PayloadEncoding) DefaultHeaderRowIndex() int {
	if e == EncodingXLSX {
		return 7
	}
	return 0
}

// Extension returns the file extension used when archiving a payload.
func (e PayloadEncoding) Extension() string {
	return string(e)
}

// StagingColumn is one declared column of a staging table, in ordinal order.
type StagingColumn struct {
	Name     string `json:"column_name"`
	Position int    `json:"position"`
	DataType string `json:"data_type"`
	Title    string `json:"title,omitempty"`
}

// IsText reports whether values can be copied into the column as raw text.
func (c StagingColumn) IsText() bool {
	t := strings.ToLower(c.DataType)
	return t == "text" || strings.HasPrefix(t, "character varying") ||
		strings.HasPrefix(t, "character") || strings.HasPrefix(t, "varchar")
}

// StagingRow is one untyped row bound for a staging table. Cells are string
// or nil.
type StagingRow []any

// UploadRequest is one ETL upload as received from a client.
type UploadRequest struct {
	DatasetID      int64
	Label          string
	Payload        []byte
	Encoding       PayloadEncoding
	HeaderRowIndex *int   // nil selects the encoding default
	StagingTable   string // optional; must match the dataset's staging table
	Principal      string
}

// UploadResult is returned after a successful upload and transfer.
type UploadResult struct {
	VersionID   int64  `json:"id"`
	VersionName string `json:"versionName"`
	Rows        int64  `json:"rows"`
}

// TransferResult reports what an append routine wrote.
type TransferResult struct {
	Routine   string
	VersionID int64
	Rows      int64
}

// DatasetLoaderConf is one entry of the upload screen configuration: the
// dataset, its versions and the staging column metadata.
type DatasetLoaderConf struct {
	ID             int64           `json:"id"`
	DonorName      string          `json:"imsi_donor_name"`
	Name           string          `json:"data_set_name"`
	StagingTable   string          `json:"temp_table_name"`
	PermanentTable string          `json:"permanent_table_name"`
	Versions       []VersionOption `json:"versionslist"`
	Columns        []StagingColumn `json:"columns"`
}

// VersionOption is a version as offered in a picker.
type VersionOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
