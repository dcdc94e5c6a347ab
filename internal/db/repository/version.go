package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cm-admin/internal/db"
	"cm-admin/internal/domain"
)

var _ domain.VersionRepository = (*VersionRepo)(nil)

// VersionRepo is the version registry over cm_conf.t_data_imsi_donor_versions.
// Every method runs on the transaction bound to ctx, if any.
type VersionRepo struct {
	db db.DBTX
}

// NewVersionRepo creates a new VersionRepo.
func NewVersionRepo(pool db.DBTX) *VersionRepo {
	return &VersionRepo{db: pool}
}

// Create registers a new version of a dataset dated today. Labels are not
// unique per dataset.
func (r *VersionRepo) Create(ctx context.Context, datasetID int64, label string) (*domain.Version, error) {
	v := domain.Version{DatasetID: datasetID, Label: label}
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO cm_conf.t_data_imsi_donor_versions (etl_conf_id, version_name, version_date)
		VALUES ($1, $2, current_date)
		RETURNING id, version_date`, datasetID, label).Scan(&v.ID, &v.CreatedOn)
	if err != nil {
		return nil, domain.ErrPersistence("create version", err)
	}
	return &v, nil
}

// ResolveID returns the newest version id carrying label for the dataset.
func (r *VersionRepo) ResolveID(ctx context.Context, label string, datasetID int64) (int64, error) {
	var id int64
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id FROM cm_conf.t_data_imsi_donor_versions
		WHERE version_name = $1 AND etl_conf_id = $2
		ORDER BY id DESC
		LIMIT 1`, label, datasetID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, &domain.VersionNotFoundError{DatasetID: datasetID, Label: label}
	}
	if err != nil {
		return 0, domain.ErrPersistence("resolve version", err)
	}
	return id, nil
}

// Get returns a version by id.
func (r *VersionRepo) Get(ctx context.Context, id int64) (*domain.Version, error) {
	var v domain.Version
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, etl_conf_id, version_name, version_date
		FROM cm_conf.t_data_imsi_donor_versions WHERE id = $1`, id).
		Scan(&v.ID, &v.DatasetID, &v.Label, &v.CreatedOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("version %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get version %d: %w", id, err)
	}
	return &v, nil
}

// List returns the versions of a dataset, newest first.
func (r *VersionRepo) List(ctx context.Context, datasetID int64) ([]domain.Version, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT id, etl_conf_id, version_name, version_date
		FROM cm_conf.t_data_imsi_donor_versions
		WHERE etl_conf_id = $1
		ORDER BY id DESC`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	versions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Version, error) {
		var v domain.Version
		err := row.Scan(&v.ID, &v.DatasetID, &v.Label, &v.CreatedOn)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan versions: %w", err)
	}
	return versions, nil
}
