package ingestion

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"cm-admin/internal/domain"
)

// === Staging Repository Mock ===

type mockStagingRepo struct {
	columnsFn func(ctx context.Context, table domain.TableRef) ([]domain.StagingColumn, error)
	replaceFn func(ctx context.Context, table domain.TableRef, columns []domain.StagingColumn, rows []domain.StagingRow) (int64, error)
	titleFn   func(ctx context.Context, table domain.TableRef, column, title string) error
}

func (m *mockStagingRepo) Columns(ctx context.Context, table domain.TableRef) ([]domain.StagingColumn, error) {
	if m.columnsFn != nil {
		return m.columnsFn(ctx, table)
	}
	panic("unexpected call to mockStagingRepo.Columns")
}

func (m *mockStagingRepo) Replace(ctx context.Context, table domain.TableRef, columns []domain.StagingColumn, rows []domain.StagingRow) (int64, error) {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, table, columns, rows)
	}
	panic("unexpected call to mockStagingRepo.Replace")
}

func (m *mockStagingRepo) SetColumnTitle(ctx context.Context, table domain.TableRef, column, title string) error {
	if m.titleFn != nil {
		return m.titleFn(ctx, table, column, title)
	}
	panic("unexpected call to mockStagingRepo.SetColumnTitle")
}

// === Dataset Repository Mock ===

type mockDatasetRepo struct {
	getFn        func(ctx context.Context, id int64) (*domain.Dataset, error)
	listFn       func(ctx context.Context) ([]domain.Dataset, error)
	loaderConfFn func(ctx context.Context) ([]domain.DatasetLoaderConf, error)
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

func (m *mockDatasetRepo) LoaderConf(ctx context.Context) ([]domain.DatasetLoaderConf, error) {
	if m.loaderConfFn != nil {
		return m.loaderConfFn(ctx)
	}
	panic("unexpected call to mockDatasetRepo.LoaderConf")
}

// === Version Repository Mock ===

type mockVersionRepo struct {
	createFn func(ctx context.Context, datasetID int64, label string) (*domain.Version, error)
}

func (m *mockVersionRepo) Create(ctx context.Context, datasetID int64, label string) (*domain.Version, error) {
	if m.createFn != nil {
		return m.createFn(ctx, datasetID, label)
	}
	panic("unexpected call to mockVersionRepo.Create")
}

func (m *mockVersionRepo) ResolveID(_ context.Context, _ string, _ int64) (int64, error) {
	panic("unexpected call to mockVersionRepo.ResolveID")
}

func (m *mockVersionRepo) Get(_ context.Context, _ int64) (*domain.Version, error) {
	panic("unexpected call to mockVersionRepo.Get")
}

func (m *mockVersionRepo) List(_ context.Context, _ int64) ([]domain.Version, error) {
	panic("unexpected call to mockVersionRepo.List")
}

// === Loader / Dispatcher Mocks ===

type mockLoader struct {
	loadFn func(ctx context.Context, payload []byte, enc domain.PayloadEncoding, table domain.TableRef, headerRowIndex int) (int64, error)
}

func (m *mockLoader) Load(ctx context.Context, payload []byte, enc domain.PayloadEncoding, table domain.TableRef, headerRowIndex int) (int64, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, payload, enc, table, headerRowIndex)
	}
	panic("unexpected call to mockLoader.Load")
}

type mockDispatcher struct {
	dispatchFn func(ctx context.Context, datasetID int64, staging domain.TableRef, label string) (*domain.TransferResult, error)
}

func (m *mockDispatcher) Dispatch(ctx context.Context, datasetID int64, staging domain.TableRef, label string) (*domain.TransferResult, error) {
	if m.dispatchFn != nil {
		return m.dispatchFn(ctx, datasetID, staging, label)
	}
	panic("unexpected call to mockDispatcher.Dispatch")
}

// === Locker / Archiver / Tx Mocks ===

type fakeLocker struct {
	mu       sync.Mutex
	locked   int
	released int
}

type lockedKey struct{}

func (f *fakeLocker) Lock(ctx context.Context, datasetID int64) (context.Context, func(), error) {
	f.mu.Lock()
	f.locked++
	f.mu.Unlock()
	return context.WithValue(ctx, lockedKey{}, datasetID), func() {
		f.mu.Lock()
		f.released++
		f.mu.Unlock()
	}, nil
}

// lockedDataset reports the dataset whose lock ctx was derived from.
func lockedDataset(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(lockedKey{}).(int64)
	return id, ok
}

type fakeArchiver struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeArchiver) Archive(_ context.Context, key string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

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

func textColumns(names ...string) []domain.StagingColumn {
	cols := make([]domain.StagingColumn, len(names))
	for i, n := range names {
		cols[i] = domain.StagingColumn{Name: n, Position: i + 1, DataType: "text"}
	}
	return cols
}

var testDay = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
