package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cm-admin/internal/db"
	"cm-admin/internal/domain"
)

var _ domain.DatasetRepository = (*DatasetRepo)(nil)

// DatasetRepo reads cm_conf.t_data_etl_conf.
type DatasetRepo struct {
	db       db.DBTX
	versions *VersionRepo
	staging  *StagingRepo
}

// NewDatasetRepo creates a new DatasetRepo.
func NewDatasetRepo(pool db.DBTX) *DatasetRepo {
	return &DatasetRepo{db: pool, versions: NewVersionRepo(pool), staging: NewStagingRepo(pool)}
}

const selectDataset = `
SELECT c.id, c.data_set_name, d.imsi_donor_name, c.temp_table_name,
       c.permanent_table_name, coalesce(c.transfer_function_name, '')
FROM cm_conf.t_data_etl_conf c
JOIN cm_conf.t_imsi_donors d ON d.id = c.imsi_donor_id`

// Get returns the dataset with the given id.
func (r *DatasetRepo) Get(ctx context.Context, id int64) (*domain.Dataset, error) {
	row := db.Conn(ctx, r.db).QueryRow(ctx, selectDataset+" WHERE c.id = $1", id)
	ds, err := scanDataset(row)
	if err != nil {
		if mapped := mapDBError(err); isNotFound(mapped) {
			return nil, domain.ErrNotFound("dataset %d not found", id)
		}
		return nil, fmt.Errorf("get dataset %d: %w", id, err)
	}
	return ds, nil
}

// List returns every configured dataset, ordered by donor then id.
func (r *DatasetRepo) List(ctx context.Context) ([]domain.Dataset, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, selectDataset+" ORDER BY d.id, c.id")
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []domain.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, *ds)
	}
	return out, rows.Err()
}

// LoaderConf assembles the upload screen configuration: every dataset with
// its versions (newest first) and its staging column metadata.
func (r *DatasetRepo) LoaderConf(ctx context.Context) ([]domain.DatasetLoaderConf, error) {
	datasets, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DatasetLoaderConf, 0, len(datasets))
	for _, ds := range datasets {
		versions, err := r.versions.List(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		columns, err := r.staging.Columns(ctx, ds.StagingTable)
		if err != nil {
			return nil, err
		}
		opts := make([]domain.VersionOption, len(versions))
		for i, v := range versions {
			opts[i] = domain.VersionOption{ID: v.ID, Name: v.DisplayName()}
		}
		out = append(out, domain.DatasetLoaderConf{
			ID:             ds.ID,
			DonorName:      ds.DonorName,
			Name:           ds.Name,
			StagingTable:   ds.StagingTable.String(),
			PermanentTable: ds.PermanentTable.String(),
			Versions:       opts,
			Columns:        columns,
		})
	}
	return out, nil
}

func scanDataset(row pgx.Row) (*domain.Dataset, error) {
	var (
		ds                  domain.Dataset
		staging, permanent string
	)
	if err := row.Scan(&ds.ID, &ds.Name, &ds.DonorName, &staging, &permanent, &ds.TransferRoutine); err != nil {
		return nil, err
	}
	var err error
	if ds.StagingTable, err = domain.ParseTableRef(staging); err != nil {
		return nil, fmt.Errorf("dataset %d staging table: %w", ds.ID, err)
	}
	if ds.PermanentTable, err = domain.ParseTableRef(permanent); err != nil {
		return nil, fmt.Errorf("dataset %d permanent table: %w", ds.ID, err)
	}
	return &ds, nil
}

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}
