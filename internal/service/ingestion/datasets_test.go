package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cm-admin/internal/domain"
)

type mockRowRepo struct {
	byVersionFn func(ctx context.Context, table domain.TableRef, versionID int64) (*domain.ResultSet, error)
	updateRowFn func(ctx context.Context, u domain.RowUpdate) (*domain.ResultSet, error)
}

func (m *mockRowRepo) ByVersion(ctx context.Context, table domain.TableRef, versionID int64) (*domain.ResultSet, error) {
	if m.byVersionFn != nil {
		return m.byVersionFn(ctx, table, versionID)
	}
	panic("unexpected call to mockRowRepo.ByVersion")
}

func (m *mockRowRepo) UpdateRow(ctx context.Context, u domain.RowUpdate) (*domain.ResultSet, error) {
	if m.updateRowFn != nil {
		return m.updateRowFn(ctx, u)
	}
	panic("unexpected call to mockRowRepo.UpdateRow")
}

func (m *mockRowRepo) TableColumns(_ context.Context, _ domain.TableRef) ([]string, error) {
	panic("unexpected call to mockRowRepo.TableColumns")
}

func datasetList() *mockDatasetRepo {
	return &mockDatasetRepo{listFn: func(context.Context) ([]domain.Dataset, error) {
		return []domain.Dataset{*tele2Dataset()}, nil
	}}
}

func TestDatasetService_VersionRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tableName string
		wantTable domain.TableRef
		wantErr   bool
	}{
		{name: "qualified permanent", tableName: "cm_data.t_tele2_coverage", wantTable: tele2Dataset().PermanentTable},
		{name: "bare permanent", tableName: "t_tele2_coverage", wantTable: tele2Dataset().PermanentTable},
		{name: "staging not readable", tableName: "cm_temp.t_tele2_coverage_temp", wantErr: true},
		{name: "wrong schema", tableName: "public.t_tele2_coverage", wantErr: true},
		{name: "catalog table", tableName: "pg_catalog.pg_authid", wantErr: true},
		{name: "blank", tableName: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rows := &mockRowRepo{byVersionFn: func(_ context.Context, table domain.TableRef, v int64) (*domain.ResultSet, error) {
				assert.Equal(t, tc.wantTable, table)
				assert.Equal(t, int64(4), v)
				return domain.EmptyResult(), nil
			}}
			svc := NewDatasetService(datasetList(), rows, &mockStagingRepo{}, discardLogger())

			_, err := svc.VersionRows(context.Background(), tc.tableName, 4)
			if tc.wantErr {
				var ve *domain.ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDatasetService_UpdateRow(t *testing.T) {
	t.Parallel()

	var got domain.RowUpdate
	rows := &mockRowRepo{updateRowFn: func(_ context.Context, u domain.RowUpdate) (*domain.ResultSet, error) {
		got = u
		return &domain.ResultSet{Rows: []map[string]any{{"id": u.RowID}}}, nil
	}}
	svc := NewDatasetService(datasetList(), rows, &mockStagingRepo{}, discardLogger())

	res, err := svc.UpdateRow(context.Background(), "admin", "t_tele2_coverage_temp", []string{"country"}, []any{"Norway"}, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())
	assert.Equal(t, tele2Dataset().StagingTable, got.Table)
	assert.Equal(t, []any{"Norway"}, got.Values)

	_, err = svc.UpdateRow(context.Background(), "admin", "cm_conf.t_data_etl_conf", []string{"x"}, []any{1}, 1)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDatasetService_SetColumnTitle(t *testing.T) {
	t.Parallel()

	var gotTable domain.TableRef
	staging := &mockStagingRepo{titleFn: func(_ context.Context, table domain.TableRef, column, title string) error {
		gotTable = table
		assert.Equal(t, "country", column)
		assert.Equal(t, "Country", title)
		return nil
	}}
	svc := NewDatasetService(datasetList(), &mockRowRepo{}, staging, discardLogger())

	require.NoError(t, svc.SetColumnTitle(context.Background(), "admin", "cm_temp.t_tele2_coverage_temp", "country", "Country"))
	assert.Equal(t, tele2Dataset().StagingTable, gotTable)

	var ve *domain.ValidationError
	err := svc.SetColumnTitle(context.Background(), "admin", "cm_data.t_tele2_coverage", "country", "Country")
	assert.ErrorAs(t, err, &ve, "permanent tables carry no titles")
	err = svc.SetColumnTitle(context.Background(), "admin", "t_tele2_coverage_temp", " ", "Country")
	assert.ErrorAs(t, err, &ve)
}
