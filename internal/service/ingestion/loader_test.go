package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cm-admin/internal/domain"
)

func TestStagingLoader_Load(t *testing.T) {
	t.Parallel()

	table := domain.TableRef{Schema: "cm_temp", Name: "t_x_temp"}
	cols := textColumns("code", "country")
	cols[0].Title = "Code"

	tests := []struct {
		name      string
		payload   string
		headerRow int
		validate  bool
		wantRows  []domain.StagingRow
		wantN     int64
		assertErr func(t *testing.T, err error)
		noReplace bool
	}{
		{
			name:      "header then data",
			payload:   "code,country\nA,Sweden\n,\nB,\n",
			headerRow: 0,
			wantRows:  []domain.StagingRow{{"A", "Sweden"}, {"B", nil}},
			wantN:     2,
		},
		{
			name:      "title block above header",
			payload:   "Report\n\ncode,country\nA,Sweden\n",
			headerRow: 2,
			wantRows:  []domain.StagingRow{{"A", "Sweden"}},
			wantN:     1,
		},
		{
			name:      "header only truncates and fails",
			payload:   "code,country\n",
			headerRow: 0,
			wantRows:  nil,
			assertErr: func(t *testing.T, err error) {
				var empty *domain.EmptyUploadError
				require.ErrorAs(t, err, &empty)
				var ve *domain.ValidationError
				assert.ErrorAs(t, err, &ve, "empty upload is a validation error")
			},
		},
		{
			name:      "empty payload truncates and fails",
			payload:   "",
			headerRow: 0,
			wantRows:  nil,
			assertErr: func(t *testing.T, err error) {
				var empty *domain.EmptyUploadError
				assert.ErrorAs(t, err, &empty)
			},
		},
		{
			name:      "only blank rows",
			payload:   "code,country\n , \n,\n",
			headerRow: 0,
			wantRows:  nil,
			assertErr: func(t *testing.T, err error) {
				var empty *domain.EmptyUploadError
				assert.ErrorAs(t, err, &empty)
			},
		},
		{
			name:      "fewer rows than the header boundary",
			payload:   "a\nb\n",
			headerRow: 7,
			wantRows:  nil,
			assertErr: func(t *testing.T, err error) {
				var empty *domain.EmptyUploadError
				assert.ErrorAs(t, err, &empty)
			},
		},
		{
			name:      "header validation passes on titles",
			payload:   "Code,Country\nA,Sweden\n",
			validate:  true,
			wantRows:  []domain.StagingRow{{"A", "Sweden"}},
			wantN:     1,
		},
		{
			name:      "header validation fails before any write",
			payload:   "country,code\nSweden,A\n",
			validate:  true,
			noReplace: true,
			assertErr: func(t *testing.T, err error) {
				var ve *domain.ValidationError
				require.ErrorAs(t, err, &ve)
				var empty *domain.EmptyUploadError
				assert.False(t, errors.As(err, &empty))
			},
		},
		{
			name:      "negative header row",
			payload:   "a\n",
			headerRow: -1,
			noReplace: true,
			assertErr: func(t *testing.T, err error) {
				var ve *domain.ValidationError
				assert.ErrorAs(t, err, &ve)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var replaced bool
			var got []domain.StagingRow
			repo := &mockStagingRepo{
				columnsFn: func(_ context.Context, tbl domain.TableRef) ([]domain.StagingColumn, error) {
					assert.Equal(t, table, tbl)
					return cols, nil
				},
				replaceFn: func(_ context.Context, _ domain.TableRef, _ []domain.StagingColumn, rows []domain.StagingRow) (int64, error) {
					replaced = true
					got = rows
					return int64(len(rows)), nil
				},
			}
			l := NewStagingLoader(repo, tc.validate, discardLogger())

			n, err := l.Load(context.Background(), []byte(tc.payload), domain.EncodingCSV, table, tc.headerRow)
			if tc.assertErr != nil {
				tc.assertErr(t, err)
				assert.Equal(t, !tc.noReplace, replaced, "staging table truncated")
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantN, n)
			assert.Equal(t, tc.wantRows, got)
		})
	}
}

func TestStagingLoader_Load_XLSXDefaultsAndErrors(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 0, 10)
	for i := 0; i < 7; i++ {
		rows = append(rows, []any{"title block"})
	}
	rows = append(rows, []any{"code", "country"}, []any{"A", "Sweden"}, []any{"B", "Norway"})
	payload := workbook(t, rows...)

	repo := &mockStagingRepo{
		columnsFn: func(context.Context, domain.TableRef) ([]domain.StagingColumn, error) {
			return textColumns("code", "country"), nil
		},
		replaceFn: func(_ context.Context, _ domain.TableRef, _ []domain.StagingColumn, rows []domain.StagingRow) (int64, error) {
			return int64(len(rows)), nil
		},
	}
	l := NewStagingLoader(repo, true, discardLogger())

	n, err := l.Load(context.Background(), payload, domain.EncodingXLSX,
		domain.TableRef{Name: "t"}, domain.EncodingXLSX.DefaultHeaderRowIndex())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var truncated bool
	emptyRepo := &mockStagingRepo{
		columnsFn: func(context.Context, domain.TableRef) ([]domain.StagingColumn, error) {
			return textColumns("code", "country"), nil
		},
		replaceFn: func(_ context.Context, _ domain.TableRef, _ []domain.StagingColumn, rows []domain.StagingRow) (int64, error) {
			truncated = true
			assert.Empty(t, rows)
			return 0, nil
		},
	}
	_, err = NewStagingLoader(emptyRepo, false, discardLogger()).
		Load(context.Background(), nil, domain.EncodingXLSX, domain.TableRef{Name: "t"}, 7)
	var empty *domain.EmptyUploadError
	assert.ErrorAs(t, err, &empty, "an empty workbook upload is an empty upload")
	assert.True(t, truncated, "staging table truncated")

	errDB := errors.New("connection reset")
	failing := &mockStagingRepo{
		columnsFn: func(context.Context, domain.TableRef) ([]domain.StagingColumn, error) { return nil, errDB },
	}
	_, err = NewStagingLoader(failing, false, discardLogger()).
		Load(context.Background(), []byte("a\nb\n"), domain.EncodingCSV, domain.TableRef{Name: "t"}, 0)
	assert.ErrorIs(t, err, errDB)
}
