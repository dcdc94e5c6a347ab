package ingestion

import (
	"context"
	"log/slog"
	"strings"

	"cm-admin/internal/domain"
)

// DatasetService backs the upload screen: loader configuration, version
// grids and row or title edits. Table names arriving from clients are
// resolved against the configured datasets and never used verbatim.
type DatasetService struct {
	datasets domain.DatasetRepository
	rows     domain.VersionedRowRepository
	staging  domain.StagingRepository
	logger   *slog.Logger
}

// NewDatasetService creates a DatasetService.
func NewDatasetService(
	datasets domain.DatasetRepository,
	rows domain.VersionedRowRepository,
	staging domain.StagingRepository,
	logger *slog.Logger,
) *DatasetService {
	return &DatasetService{
		datasets: datasets,
		rows:     rows,
		staging:  staging,
		logger:   logger.With("component", "datasets"),
	}
}

// LoaderConf returns every dataset with its versions and staging columns.
func (s *DatasetService) LoaderConf(ctx context.Context) ([]domain.DatasetLoaderConf, error) {
	return s.datasets.LoaderConf(ctx)
}

// Datasets lists the configured datasets.
func (s *DatasetService) Datasets(ctx context.Context) ([]domain.Dataset, error) {
	return s.datasets.List(ctx)
}

// VersionRows returns the rows of one version from a dataset's permanent
// table.
func (s *DatasetService) VersionRows(ctx context.Context, tableName string, versionID int64) (*domain.ResultSet, error) {
	table, err := s.resolve(ctx, tableName, false)
	if err != nil {
		return nil, err
	}
	return s.rows.ByVersion(ctx, table, versionID)
}

// UpdateRow edits one row of a permanent or staging table.
func (s *DatasetService) UpdateRow(ctx context.Context, principal, tableName string, columns []string, values []any, rowID int64) (*domain.ResultSet, error) {
	table, err := s.resolve(ctx, tableName, true)
	if err != nil {
		return nil, err
	}
	res, err := s.rows.UpdateRow(ctx, domain.RowUpdate{Table: table, Columns: columns, Values: values, RowID: rowID})
	if err != nil {
		return nil, err
	}
	s.logger.Info("row updated", "table", table.String(), "id", rowID, "columns", columns, "principal", principal)
	return res, nil
}

// SetColumnTitle sets the display title of a staging table column.
func (s *DatasetService) SetColumnTitle(ctx context.Context, principal, tableName, column, title string) error {
	list, err := s.datasets.List(ctx)
	if err != nil {
		return err
	}
	for _, d := range list {
		if matchTable(d.StagingTable, tableName) {
			if strings.TrimSpace(column) == "" {
				return domain.ErrValidation("columnName is required")
			}
			if err := s.staging.SetColumnTitle(ctx, d.StagingTable, column, title); err != nil {
				return err
			}
			s.logger.Info("column title set", "table", d.StagingTable.String(), "column", column, "principal", principal)
			return nil
		}
	}
	return domain.ErrValidation("%q is not a staging table", tableName)
}

// resolve maps a client table name onto a configured permanent table, or a
// staging table when withStaging is set.
func (s *DatasetService) resolve(ctx context.Context, tableName string, withStaging bool) (domain.TableRef, error) {
	if strings.TrimSpace(tableName) == "" {
		return domain.TableRef{}, domain.ErrValidation("tableName is required")
	}
	list, err := s.datasets.List(ctx)
	if err != nil {
		return domain.TableRef{}, err
	}
	for _, d := range list {
		if matchTable(d.PermanentTable, tableName) {
			return d.PermanentTable, nil
		}
		if withStaging && matchTable(d.StagingTable, tableName) {
			return d.StagingTable, nil
		}
	}
	return domain.TableRef{}, domain.ErrValidation("unknown table %q", tableName)
}

// matchTable accepts "schema.table" or a bare table name.
func matchTable(t domain.TableRef, name string) bool {
	ref, err := domain.ParseTableRef(name)
	if err != nil || t.IsZero() {
		return false
	}
	if ref.Schema == "" {
		return ref.Name == t.Name
	}
	return ref == t
}
