package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// SourceVersions selects one version of each of the nine versioned sources
// that feed the master list. JSON form is an object keyed "1".."9", matching
// the column order of cm_conf.t_master_config. A nil field is a missing
// selection and reaches SQL as NULL.
type SourceVersions struct {
	Tele2Coverage            *int64
	Tele2Updated             *int64
	Tele2VoiceUpdated        *int64
	TimSparklePriceUpdated   *int64
	TimSparkleRoamingUpdated *int64
	HotMobileUpdated         *int64
	BicsCoverageBandsUpdated *int64
	BicsCoverageUpdated      *int64
	BicsPriceUpdated         *int64
}

// SourceCount is the number of versioned master-list sources.
const SourceCount = 9

// slots returns pointers to the fields in index order 1..9.
func (v *SourceVersions) slots() [SourceCount]**int64 {
	return [SourceCount]**int64{
		&v.Tele2Coverage,
		&v.Tele2Updated,
		&v.Tele2VoiceUpdated,
		&v.TimSparklePriceUpdated,
		&v.TimSparkleRoamingUpdated,
		&v.HotMobileUpdated,
		&v.BicsCoverageBandsUpdated,
		&v.BicsCoverageUpdated,
		&v.BicsPriceUpdated,
	}
}

// At returns the version selected for the 1-based source index.
func (v SourceVersions) At(index int) *int64 {
	if index < 1 || index > SourceCount {
		return nil
	}
	return *v.slots()[index-1]
}

// Args returns the selections for the given 1-based indexes as query
// arguments, in that order.
func (v SourceVersions) Args(indexes ...int) []any {
	args := make([]any, len(indexes))
	for i, idx := range indexes {
		if p := v.At(idx); p != nil {
			args[i] = *p
		}
	}
	return args
}

// All returns the nine selections as query arguments.
func (v SourceVersions) All() []any {
	return v.Args(1, 2, 3, 4, 5, 6, 7, 8, 9)
}

// Complete reports whether every source has a selection.
func (v SourceVersions) Complete() bool {
	for i := 1; i <= SourceCount; i++ {
		if v.At(i) == nil {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts {"1": 12, "2": "13", ...}. Unknown keys are ignored.
func (v *SourceVersions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	slots := v.slots()
	for key, val := range raw {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 1 || idx > SourceCount {
			continue
		}
		id, ok, err := parseVersionID(val)
		if err != nil {
			return ErrValidation("versionIds[%s]: %v", key, err)
		}
		if ok {
			*slots[idx-1] = &id
		}
	}
	return nil
}

// MarshalJSON renders the "1".."9" object form.
func (v SourceVersions) MarshalJSON() ([]byte, error) {
	out := make(map[string]*int64, SourceCount)
	for i := 1; i <= SourceCount; i++ {
		out[strconv.Itoa(i)] = v.At(i)
	}
	return json.Marshal(out)
}

func parseVersionID(raw json.RawMessage) (int64, bool, error) {
	var n *json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if n == nil || *n == "" {
			return 0, false, nil
		}
		id, err := n.Int64()
		return id, err == nil, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false, err
	}
	if s == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil, err
}

// SavedMasterVersion is a frozen master list: the source selection plus the
// rows materialized into cm_data.t_master_data when it was saved.
type SavedMasterVersion struct {
	ID        int64          `json:"id"`
	Name      string         `json:"version_name"`
	CreatedOn time.Time      `json:"-"`
	Sources   SourceVersions `json:"versionIds"`
}

// TCPCount is the number of TCP (price plan) profiles, numbered 1..5.
const TCPCount = 5

// ValidTCP reports whether n names a TCP profile.
func ValidTCP(n int) bool { return n >= 1 && n <= TCPCount }

// DuplicateMasterVersionError is the ConflictError returned when a master
// version with the same source selection is already saved.
type DuplicateMasterVersionError struct {
	ConflictError
	ExistingID int64
}

// Unwrap lets errors.As match the embedded ConflictError.
func (e *DuplicateMasterVersionError) Unwrap() error { return &e.ConflictError }

// DisplayName renders the saved version as "name ( YYYY-MM-DD )".
func (m SavedMasterVersion) DisplayName() string {
	return Version{Label: m.Name, CreatedOn: m.CreatedOn}.DisplayName()
}
