package transfer

import (
	"context"
	"io"
	"log/slog"

	"cm-admin/internal/domain"
)

// === Dataset Repository Mock ===

type mockDatasetRepo struct {
	getFn  func(ctx context.Context, id int64) (*domain.Dataset, error)
	listFn func(ctx context.Context) ([]domain.Dataset, error)
}

func (m *mockDatasetRepo) Get(ctx context.Context, id int64) (*domain.Dataset, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	panic("unexpected call to mockDatasetRepo.Get")
}

func (m *mockDatasetRepo) List(ctx context.Context) ([]domain.Dataset, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	panic("unexpected call to mockDatasetRepo.List")
}

func (m *mockDatasetRepo) LoaderConf(_ context.Context) ([]domain.DatasetLoaderConf, error) {
	panic("unexpected call to mockDatasetRepo.LoaderConf")
}

// === Version Repository Mock ===

type mockVersionRepo struct {
	resolveIDFn func(ctx context.Context, label string, datasetID int64) (int64, error)
}

func (m *mockVersionRepo) Create(_ context.Context, _ int64, _ string) (*domain.Version, error) {
	panic("unexpected call to mockVersionRepo.Create")
}

func (m *mockVersionRepo) ResolveID(ctx context.Context, label string, datasetID int64) (int64, error) {
	if m.resolveIDFn != nil {
		return m.resolveIDFn(ctx, label, datasetID)
	}
	panic("unexpected call to mockVersionRepo.ResolveID")
}

func (m *mockVersionRepo) Get(_ context.Context, _ int64) (*domain.Version, error) {
	panic("unexpected call to mockVersionRepo.Get")
}

func (m *mockVersionRepo) List(_ context.Context, _ int64) ([]domain.Version, error) {
	panic("unexpected call to mockVersionRepo.List")
}

// === Transfer Repository Mock ===

type mockTransferRepo struct {
	appendSelectFn   func(ctx context.Context, plan domain.AppendPlan) (int64, error)
	appendRowByRowFn func(ctx context.Context, plan domain.AppendPlan) (int64, error)
	tableColumnsFn   func(ctx context.Context, table domain.TableRef) ([]string, error)
}

func (m *mockTransferRepo) AppendSelect(ctx context.Context, plan domain.AppendPlan) (int64, error) {
	if m.appendSelectFn != nil {
		return m.appendSelectFn(ctx, plan)
	}
	panic("unexpected call to mockTransferRepo.AppendSelect")
}

func (m *mockTransferRepo) AppendRowByRow(ctx context.Context, plan domain.AppendPlan) (int64, error) {
	if m.appendRowByRowFn != nil {
		return m.appendRowByRowFn(ctx, plan)
	}
	panic("unexpected call to mockTransferRepo.AppendRowByRow")
}

func (m *mockTransferRepo) TableColumns(ctx context.Context, table domain.TableRef) ([]string, error) {
	if m.tableColumnsFn != nil {
		return m.tableColumnsFn(ctx, table)
	}
	panic("unexpected call to mockTransferRepo.TableColumns")
}

// === Tx Runner Mock ===

// fakeTx runs fn inline and records whether the transaction committed.
type fakeTx struct {
	begun, committed, rolledBack int
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.begun++
	if err := fn(ctx); err != nil {
		f.rolledBack++
		return err
	}
	f.committed++
	return nil
}

// === Helpers ===

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustDescriptors() []Descriptor {
	descs, err := LoadDescriptors("")
	if err != nil {
		panic(err)
	}
	return descs
}

func tele2Dataset() *domain.Dataset {
	return &domain.Dataset{
		ID:              1,
		Name:            "tele2_coverage",
		DonorName:       "Tele2",
		StagingTable:    domain.TableRef{Schema: "cm_temp", Name: "t_tele2_coverage_temp"},
		PermanentTable:  domain.TableRef{Schema: "cm_data", Name: "t_tele2_coverage"},
		TransferRoutine: "transfer_tele2_coverage",
	}
}
