package domain

import "context"

// TxRunner runs fn inside a transaction bound to the context passed to fn.
// Nested calls open a savepoint. Implemented by db.TxRunner.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DatasetLocker serializes uploads per dataset. Work guarded by the lock
// must use the returned context, which may pin it to the lock's database
// connection. The returned release func must be called exactly once.
type DatasetLocker interface {
	Lock(ctx context.Context, datasetID int64) (locked context.Context, release func(), err error)
}

// DatasetRepository reads the ETL dataset configuration.
type DatasetRepository interface {
	Get(ctx context.Context, id int64) (*Dataset, error)
	List(ctx context.Context) ([]Dataset, error)
	LoaderConf(ctx context.Context) ([]DatasetLoaderConf, error)
}

// VersionRepository is the version registry.
type VersionRepository interface {
	Create(ctx context.Context, datasetID int64, label string) (*Version, error)
	ResolveID(ctx context.Context, label string, datasetID int64) (int64, error)
	Get(ctx context.Context, id int64) (*Version, error)
	List(ctx context.Context, datasetID int64) ([]Version, error)
}

// StagingRepository owns the contents of staging tables.
type StagingRepository interface {
	Columns(ctx context.Context, table TableRef) ([]StagingColumn, error)
	Replace(ctx context.Context, table TableRef, columns []StagingColumn, rows []StagingRow) (int64, error)
	SetColumnTitle(ctx context.Context, table TableRef, column, title string) error
}

// VersionedRowRepository reads and edits rows of permanent versioned tables.
type VersionedRowRepository interface {
	ByVersion(ctx context.Context, table TableRef, versionID int64) (*ResultSet, error)
	UpdateRow(ctx context.Context, u RowUpdate) (*ResultSet, error)
	TableColumns(ctx context.Context, table TableRef) ([]string, error)
}

// ReferenceRepository implements generic CRUD over allow-listed tables.
type ReferenceRepository interface {
	List(ctx context.Context, t ReferenceTable, page PageRequest) (*ResultSet, error)
	Insert(ctx context.Context, t ReferenceTable, values map[string]any) (*ResultSet, error)
	Update(ctx context.Context, t ReferenceTable, id int64, values map[string]any) (*ResultSet, error)
	Delete(ctx context.Context, t ReferenceTable, id int64) (*ResultSet, error)
}

// ReportRepository runs the read-only reports. The master-list family is
// computed by database functions; callers only supply version ids.
type ReportRepository interface {
	NbIot(ctx context.Context, v SourceVersions) (*ResultSet, error)
	CatM(ctx context.Context, v SourceVersions) (*ResultSet, error)
	MasterList(ctx context.Context, v SourceVersions) (*ResultSet, error)
	Bap(ctx context.Context, tcp int) (*ResultSet, error)
	PriceZoneList(ctx context.Context, tcp int) (*ResultSet, error)
	Eprofile(ctx context.Context, profile int) (*ResultSet, error)
	TCPList(ctx context.Context) (*ResultSet, error)
	PzCutOffPoints(ctx context.Context, tcp int) (*ResultSet, error)
	ScreenConfig(ctx context.Context) (*ResultSet, error)
}

// MasterRepository stores saved master-list versions.
type MasterRepository interface {
	List(ctx context.Context) (*ResultSet, error)
	Get(ctx context.Context, id int64) (*SavedMasterVersion, error)
	Rows(ctx context.Context, id int64) (*ResultSet, error)
	FindBySources(ctx context.Context, v SourceVersions) (int64, bool, error)
	Create(ctx context.Context, name string, v SourceVersions) (*SavedMasterVersion, error)
	Materialize(ctx context.Context, id int64, v SourceVersions) (int64, error)
}

// PayloadArchiver stores raw uploaded payloads. Implementations are
// best-effort and run off the request path.
type PayloadArchiver interface {
	Archive(ctx context.Context, key string, payload []byte) error
}

// TransferRepository executes the appends planned by transfer routines. It
// runs on the transaction bound to ctx.
type TransferRepository interface {
	AppendSelect(ctx context.Context, plan AppendPlan) (int64, error)
	AppendRowByRow(ctx context.Context, plan AppendPlan) (int64, error)
	TableColumns(ctx context.Context, table TableRef) ([]string, error)
}
