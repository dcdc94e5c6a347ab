package ingestion

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cm-admin/internal/domain"
)

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeBase64(t *testing.T) {
	t.Parallel()

	raw := []byte("a,b\n1,2\n")
	enc := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"plain", enc, raw, false},
		{"data url", "data:text/csv;base64," + enc, raw, false},
		{"padded with whitespace", "  " + enc + "\n", raw, false},
		{"empty", "", []byte{}, false},
		{"empty data url", "data:text/csv;base64,", []byte{}, false},
		{"garbage", "not base64!", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeBase64(tc.in)
			if tc.wantErr {
				var ve *domain.ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectEncoding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.EncodingXLSX, DetectEncoding(workbook(t, []any{"a"})))
	assert.Equal(t, domain.EncodingCSV, DetectEncoding([]byte("a,b\n")))
}

func TestDecodeCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    []record
	}{
		{"comma", "a,b\n1,2\n", []record{{"a", "b"}, {"1", "2"}}},
		{"semicolon", "a;b\n1,5;2\n", []record{{"a", "b"}, {"1,5", "2"}}},
		{"tab", "a\tb\n1\t2\n", []record{{"a", "b"}, {"1", "2"}}},
		{"ragged rows", "a,b,c\n1\n", []record{{"a", "b", "c"}, {"1"}}},
		{"bom and quotes", "\xef\xbb\xbfa,\"x, y\"\n", []record{{"a", "x, y"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := decode([]byte(tc.payload), domain.EncodingCSV)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeXLSX(t *testing.T) {
	t.Parallel()

	payload := workbook(t,
		[]any{"TADIG", "Country"},
		[]any{"SWEEP", "Sweden"},
		[]any{"NORTM", 47},
	)
	got, err := decode(payload, domain.EncodingXLSX)
	require.NoError(t, err)
	assert.Equal(t, []record{{"TADIG", "Country"}, {"SWEEP", "Sweden"}, {"NORTM", "47"}}, got)

	_, err = decode([]byte("PK\x03\x04 truncated"), domain.EncodingXLSX)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()

	_, err := decode(nil, domain.EncodingCSV)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = decode([]byte("a"), domain.PayloadEncoding("parquet"))
	require.ErrorAs(t, err, &ve)
}

func TestFitRows(t *testing.T) {
	t.Parallel()

	rows, surplus := fitRows([]record{
		{"a", "", "c"},
		{"", "  ", ""},
		{},
		{"x"},
		{"p", "q", "r", "s", ""},
	}, 3)

	require.Len(t, rows, 3)
	assert.Equal(t, domain.StagingRow{"a", nil, "c"}, rows[0])
	assert.Equal(t, domain.StagingRow{"x", nil, nil}, rows[1], "missing trailing cells are NULL")
	assert.Equal(t, domain.StagingRow{"p", "q", "r"}, rows[2])
	assert.Equal(t, 1, surplus)
}

func TestCheckHeader(t *testing.T) {
	t.Parallel()

	cols := []domain.StagingColumn{
		{Name: "tadig_code", Title: "TADIG"},
		{Name: "operator_name", Title: "Operator Name"},
	}

	require.NoError(t, checkHeader(record{"TADIG", "Operator Name"}, cols))
	require.NoError(t, checkHeader(record{" tadig_code ", "operator-name"}, cols))

	err := checkHeader(record{"TADIG", "Country"}, cols)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "Country")

	require.ErrorAs(t, checkHeader(record{"TADIG"}, cols), &ve)
}
