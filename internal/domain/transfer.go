package domain

// AppendStrategy selects how a transfer routine copies staged rows.
type AppendStrategy string

// Supported append strategies.
const (
	StrategySet AppendStrategy = "set" // one INSERT ... SELECT
	StrategyRow AppendStrategy = "row" // materialize, then insert row by row
)

// AppendColumn maps one staging column onto the permanent column of the same
// name. Cast, when set, is the SQL type the text value is cast to.
type AppendColumn struct {
	Name string `yaml:"name"`
	Cast string `yaml:"cast,omitempty"`
}

// AppendPlan is one resolved append: every staged row goes into Destination
// tagged with VersionID.
type AppendPlan struct {
	Staging     TableRef
	Destination TableRef
	Columns     []AppendColumn
	VersionID   int64
}
