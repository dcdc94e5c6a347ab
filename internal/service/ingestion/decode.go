package ingestion

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"cm-admin/internal/domain"
)

// zipMagic opens every XLSX workbook.
var zipMagic = []byte("PK\x03\x04")

var utf8BOM = []byte("\xef\xbb\xbf")

// record is one decoded row. Cells are raw strings as found in the file.
type record []string

// DecodeBase64 decodes a payload sent as base64 text. A data URL prefix
// ("data:...;base64,") is stripped first.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if _, rest, ok := strings.Cut(s, ","); ok {
			s = rest
		}
	}
	if s == "" {
		return []byte{}, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrValidation("payload is not valid base64: %v", err)
	}
	return b, nil
}

// DetectEncoding guesses the payload format from its leading bytes.
func DetectEncoding(payload []byte) domain.PayloadEncoding {
	if bytes.HasPrefix(payload, zipMagic) {
		return domain.EncodingXLSX
	}
	return domain.EncodingCSV
}

// decode turns a payload into rows of strings. An empty payload of any
// encoding has no rows.
func decode(payload []byte, enc domain.PayloadEncoding) ([]record, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	switch enc {
	case domain.EncodingXLSX:
		return decodeXLSX(payload)
	case domain.EncodingCSV:
		return decodeCSV(payload)
	default:
		return nil, domain.ErrValidation("unsupported payload encoding %q", enc)
	}
}

// decodeXLSX reads the first sheet of a workbook.
func decodeXLSX(payload []byte) ([]record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, domain.ErrValidation("payload is not a readable workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ErrValidation("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, domain.ErrValidation("read sheet %q: %v", sheets[0], err)
	}
	out := make([]record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

// decodeCSV reads delimited text. Rows may differ in width.
func decodeCSV(payload []byte) ([]record, error) {
	payload = bytes.TrimPrefix(payload, utf8BOM)

	r := csv.NewReader(bytes.NewReader(payload))
	r.Comma = detectDelimiter(payload)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out []record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.ErrValidation("malformed CSV: %v", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// detectDelimiter picks the most frequent of comma, semicolon and tab on the
// first line. Comma wins ties.
func detectDelimiter(payload []byte) rune {
	line := payload
	if i := bytes.IndexByte(payload, '\n'); i >= 0 {
		line = payload[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// fitRows converts the data records into staging rows exactly width cells
// wide. Blank cells become NULL; rows with no content are dropped. It returns
// the number of non-blank cells dropped past width.
func fitRows(records []record, width int) (rows []domain.StagingRow, surplus int) {
	for _, rec := range records {
		row := make(domain.StagingRow, width)
		blank := true
		for i, cell := range rec {
			v := strings.TrimSpace(cell)
			if v == "" {
				continue
			}
			blank = false
			if i >= width {
				surplus++
				continue
			}
			row[i] = cell
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, surplus
}

// normalizeHeader folds a header cell or column name for comparison.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_", "/", "_", ".", "").Replace(s)
}

// checkHeader compares the header record with the staging columns, matching
// each position against the column name or its title.
func checkHeader(header record, columns []domain.StagingColumn) error {
	for i, c := range columns {
		var got string
		if i < len(header) {
			got = normalizeHeader(header[i])
		}
		if got == normalizeHeader(c.Name) || (c.Title != "" && got == normalizeHeader(c.Title)) {
			continue
		}
		want := c.Name
		if c.Title != "" {
			want = fmt.Sprintf("%s or %s", c.Title, c.Name)
		}
		return domain.ErrValidation("header column %d is %q, expected %s", i+1, strings.TrimSpace(header.at(i)), want)
	}
	return nil
}

func (r record) at(i int) string {
	if i < len(r) {
		return r[i]
	}
	return ""
}
