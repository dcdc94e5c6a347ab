package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cm-admin/internal/domain"
)

func newTestDispatcher(ds *mockDatasetRepo, vr *mockVersionRepo, tr *mockTransferRepo, tx *fakeTx) *Dispatcher {
	return NewDispatcher(mustDescriptors(), ds, vr, tr, tx, discardLogger())
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	staging := domain.TableRef{Schema: "cm_temp", Name: "t_tele2_coverage_temp"}
	errBoom := errors.New("boom")

	tests := []struct {
		name     string
		dataset  func() (*domain.Dataset, error)
		resolve  func() (int64, error)
		append   func(plan domain.AppendPlan) (int64, error)
		assertFn func(t *testing.T, res *domain.TransferResult, err error, tx *fakeTx)
	}{
		{
			name:    "appends under resolved version",
			dataset: func() (*domain.Dataset, error) { return tele2Dataset(), nil },
			resolve: func() (int64, error) { return 42, nil },
			append: func(plan domain.AppendPlan) (int64, error) {
				if plan.VersionID != 42 || plan.Staging != staging || plan.Destination.Name != "t_tele2_coverage" {
					return 0, errors.New("unexpected plan")
				}
				return 8, nil
			},
			assertFn: func(t *testing.T, res *domain.TransferResult, err error, tx *fakeTx) {
				require.NoError(t, err)
				assert.Equal(t, int64(42), res.VersionID)
				assert.Equal(t, int64(8), res.Rows)
				assert.Equal(t, "transfer_tele2_coverage", res.Routine)
				assert.Equal(t, 1, tx.committed)
			},
		},
		{
			name: "unknown dataset",
			dataset: func() (*domain.Dataset, error) {
				return nil, domain.ErrNotFound("dataset 99 not found")
			},
			assertFn: func(t *testing.T, _ *domain.TransferResult, err error, tx *fakeTx) {
				var ce *domain.ConfigurationError
				require.ErrorAs(t, err, &ce)
				assert.Zero(t, tx.begun, "no writes")
			},
		},
		{
			name: "dataset without routine",
			dataset: func() (*domain.Dataset, error) {
				ds := tele2Dataset()
				ds.TransferRoutine = ""
				return ds, nil
			},
			assertFn: func(t *testing.T, _ *domain.TransferResult, err error, tx *fakeTx) {
				var ce *domain.ConfigurationError
				require.ErrorAs(t, err, &ce)
				assert.Zero(t, tx.begun)
			},
		},
		{
			name: "unregistered routine",
			dataset: func() (*domain.Dataset, error) {
				ds := tele2Dataset()
				ds.TransferRoutine = "transfer_nothing"
				return ds, nil
			},
			assertFn: func(t *testing.T, _ *domain.TransferResult, err error, tx *fakeTx) {
				var ce *domain.ConfigurationError
				require.ErrorAs(t, err, &ce)
				assert.Contains(t, err.Error(), "transfer_nothing")
				assert.Zero(t, tx.begun)
			},
		},
		{
			name:    "dataset lookup failure passes through",
			dataset: func() (*domain.Dataset, error) { return nil, errBoom },
			assertFn: func(t *testing.T, _ *domain.TransferResult, err error, _ *fakeTx) {
				assert.ErrorIs(t, err, errBoom)
			},
		},
		{
			name:    "version not found rolls back",
			dataset: func() (*domain.Dataset, error) { return tele2Dataset(), nil },
			resolve: func() (int64, error) {
				return 0, &domain.VersionNotFoundError{DatasetID: 1, Label: "Jan"}
			},
			assertFn: func(t *testing.T, _ *domain.TransferResult, err error, tx *fakeTx) {
				var vnf *domain.VersionNotFoundError
				require.ErrorAs(t, err, &vnf)
				assert.Equal(t, 1, tx.rolledBack)
			},
		},
		{
			name:    "append failure is a persistence error naming the routine",
			dataset: func() (*domain.Dataset, error) { return tele2Dataset(), nil },
			resolve: func() (int64, error) { return 42, nil },
			append:  func(domain.AppendPlan) (int64, error) { return 0, errBoom },
			assertFn: func(t *testing.T, _ *domain.TransferResult, err error, tx *fakeTx) {
				var pe *domain.PersistenceError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "transfer_tele2_coverage", pe.Op)
				assert.ErrorIs(t, err, errBoom)
				assert.Equal(t, 1, tx.rolledBack)
				assert.Zero(t, tx.committed)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ds := &mockDatasetRepo{getFn: func(context.Context, int64) (*domain.Dataset, error) { return tc.dataset() }}
			vr := &mockVersionRepo{}
			if tc.resolve != nil {
				vr.resolveIDFn = func(context.Context, string, int64) (int64, error) { return tc.resolve() }
			}
			tr := &mockTransferRepo{}
			if tc.append != nil {
				tr.appendSelectFn = func(_ context.Context, plan domain.AppendPlan) (int64, error) { return tc.append(plan) }
			}
			tx := &fakeTx{}

			res, err := newTestDispatcher(ds, vr, tr, tx).Dispatch(context.Background(), 1, staging, "Jan")
			tc.assertFn(t, res, err, tx)
		})
	}
}

func TestDispatch_RowStrategy(t *testing.T) {
	t.Parallel()

	hot := &domain.Dataset{
		ID:              6,
		Name:            "hot_mobile_updated",
		StagingTable:    domain.TableRef{Schema: "cm_temp", Name: "t_hot_mobile_updated_temp"},
		PermanentTable:  domain.TableRef{Schema: "cm_data", Name: "t_hot_mobile_updated"},
		TransferRoutine: "transfer_hot_mobile_updated",
	}
	var rowByRow bool
	d := newTestDispatcher(
		&mockDatasetRepo{getFn: func(context.Context, int64) (*domain.Dataset, error) { return hot, nil }},
		&mockVersionRepo{resolveIDFn: func(context.Context, string, int64) (int64, error) { return 7, nil }},
		&mockTransferRepo{appendRowByRowFn: func(_ context.Context, plan domain.AppendPlan) (int64, error) {
			rowByRow = true
			return 3, nil
		}},
		&fakeTx{},
	)

	res, err := d.Dispatch(context.Background(), 6, hot.StagingTable, "Feb")
	require.NoError(t, err)
	assert.True(t, rowByRow)
	assert.Equal(t, int64(3), res.Rows)
}

func TestRoutine_Append(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(
		&mockDatasetRepo{},
		&mockVersionRepo{resolveIDFn: func(context.Context, string, int64) (int64, error) { return 1, nil }},
		&mockTransferRepo{appendSelectFn: func(context.Context, domain.AppendPlan) (int64, error) { return 5, nil }},
		&fakeTx{},
	)
	r, ok := d.Routine("transfer_bics_price_updated")
	require.True(t, ok)

	n, err := r.Append(context.Background(), domain.TableRef{Schema: "cm_temp", Name: "t_bics_price_updated_temp"}, "Jan", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestCheckConsistency(t *testing.T) {
	t.Parallel()

	allColumns := func(context.Context, domain.TableRef) ([]string, error) {
		cols := []string{"id", "version_id"}
		for _, d := range mustDescriptors() {
			for _, c := range d.Columns {
				cols = append(cols, c.Name)
			}
		}
		return cols, nil
	}

	tests := []struct {
		name     string
		datasets []domain.Dataset
		columns  func(context.Context, domain.TableRef) ([]string, error)
		assertFn func(t *testing.T, fatal, warnings []string, err error)
	}{
		{
			name:     "consistent",
			datasets: []domain.Dataset{*tele2Dataset()},
			columns:  allColumns,
			assertFn: func(t *testing.T, fatal, warnings []string, err error) {
				require.NoError(t, err)
				assert.Empty(t, fatal)
				assert.Empty(t, warnings)
			},
		},
		{
			name: "unregistered routine",
			datasets: func() []domain.Dataset {
				ds := tele2Dataset()
				ds.TransferRoutine = "transfer_gone"
				return []domain.Dataset{*ds}
			}(),
			assertFn: func(t *testing.T, fatal, _ []string, err error) {
				require.Error(t, err)
				require.Len(t, fatal, 1)
				assert.Contains(t, fatal[0], "transfer_gone")
			},
		},
		{
			name: "destination mismatch",
			datasets: func() []domain.Dataset {
				ds := tele2Dataset()
				ds.PermanentTable = domain.TableRef{Schema: "cm_data", Name: "t_other"}
				return []domain.Dataset{*ds}
			}(),
			assertFn: func(t *testing.T, fatal, _ []string, err error) {
				var ce *domain.ConfigurationError
				require.ErrorAs(t, err, &ce)
				require.Len(t, fatal, 1)
				assert.Contains(t, fatal[0], "t_other")
			},
		},
		{
			name:     "missing column only warns",
			datasets: []domain.Dataset{*tele2Dataset()},
			columns: func(context.Context, domain.TableRef) ([]string, error) {
				return []string{"id", "tadig_code"}, nil
			},
			assertFn: func(t *testing.T, fatal, warnings []string, err error) {
				require.NoError(t, err)
				assert.Empty(t, fatal)
				assert.NotEmpty(t, warnings)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := newTestDispatcher(
				&mockDatasetRepo{listFn: func(context.Context) ([]domain.Dataset, error) { return tc.datasets, nil }},
				&mockVersionRepo{},
				&mockTransferRepo{tableColumnsFn: tc.columns},
				&fakeTx{},
			)
			fatal, warnings, _ := d.Problems(context.Background())
			err := d.CheckConsistency(context.Background())
			tc.assertFn(t, fatal, warnings, err)
		})
	}
}
