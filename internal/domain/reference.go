package domain

// ReferenceTable is an allow-listed reference table exposed through the
// generic data endpoints. Column names are fixed here, never taken from a
// request.
type ReferenceTable struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Table    TableRef `json:"-"`
	Columns  []string `json:"columns"`
	OrderBy  string   `json:"-"`
	Editable bool     `json:"editable"`
}

// HasColumn reports whether name is one of the table's editable columns.
func (t ReferenceTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RowUpdate is a generic single-row update by id, as sent by the version
// grids on the upload screen.
type RowUpdate struct {
	Table   TableRef
	Columns []string
	Values  []any
	RowID   int64
}
