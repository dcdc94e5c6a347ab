package domain

import (
	"encoding/base64"
	"strconv"
)

// MaxPageSize is the largest page a reference-table listing returns.
const MaxPageSize = 5000

// PageRequest holds optional pagination parameters for reference-table
// listings. The zero value means "everything", which is what the editing
// grids expect.
type PageRequest struct {
	PageSize  int
	PageToken string // opaque token (base64-encoded offset)
}

// Paged reports whether the caller asked for a page.
func (p PageRequest) Paged() bool {
	return p.PageSize > 0 || p.PageToken != ""
}

// Offset decodes the page token into an integer offset.
// Returns 0 if the token is empty or invalid.
func (p PageRequest) Offset() int {
	if p.PageToken == "" {
		return 0
	}
	decoded, err := base64.StdEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Limit returns the effective page size, clamped to [1, MaxPageSize].
func (p PageRequest) Limit() int {
	if p.PageSize <= 0 || p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// EncodePageToken creates an opaque page token from an offset.
// Returns empty string if offset is 0 or negative.
func EncodePageToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// NextPageToken returns the token for the page after a page of n rows, or
// empty when that page was short.
func NextPageToken(offset, limit, n int) string {
	if n < limit {
		return ""
	}
	return EncodePageToken(offset + limit)
}
