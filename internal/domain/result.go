package domain

// Normalized scalar types reported in column metadata.
const (
	TypeNumber    = "number"
	TypeString    = "string"
	TypeBoolean   = "boolean"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
	TypeJSON      = "json"
	TypeOther     = "other"
)

// Column describes one result column.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

// ResultSet is a query result with column metadata. Rows are keyed by
// column name.
type ResultSet struct {
	Columns       []Column         `json:"columns"`
	Rows          []map[string]any `json:"rows"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// EmptyResult returns a result set with no rows and no columns, which
// serializes as empty arrays rather than null.
func EmptyResult() *ResultSet {
	return &ResultSet{Columns: []Column{}, Rows: []map[string]any{}}
}
