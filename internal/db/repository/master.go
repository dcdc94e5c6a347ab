package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"cm-admin/internal/db"
	"cm-admin/internal/domain"
)

var _ domain.MasterRepository = (*MasterRepo)(nil)

// masterConfigColumns are the source columns of cm_conf.t_master_config in
// source index order 1..9.
var masterConfigColumns = []string{
	"tele2_coverage",
	"tele2_updated",
	"tele2_voice_updated",
	"tim_sparkle_price_updated",
	"tim_sparkle_roaming_updated",
	"hot_mobile_updated",
	"bics_coverage_bands_updated",
	"bics_coverage_updated",
	"bics_price_updated",
}

// MasterRepo stores saved master-list versions in cm_conf.t_master_config
// and their frozen rows in cm_data.t_master_data.
type MasterRepo struct {
	db db.DBTX
}

// NewMasterRepo creates a new MasterRepo.
func NewMasterRepo(pool db.DBTX) *MasterRepo {
	return &MasterRepo{db: pool}
}

// List returns every saved master version with its display name.
func (r *MasterRepo) List(ctx context.Context) (*domain.ResultSet, error) {
	res, err := db.QueryResult(ctx, db.Conn(ctx, r.db), `
		SELECT id, version_name || ' ( ' || version_date || ' )' AS version_name
		FROM cm_conf.t_master_config
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list master versions: %w", err)
	}
	return res, nil
}

// Get returns a saved master version with its source selection.
func (r *MasterRepo) Get(ctx context.Context, id int64) (*domain.SavedMasterVersion, error) {
	m := domain.SavedMasterVersion{ID: id}
	slots := sourceSlots(&m.Sources)
	dest := append([]any{&m.Name, &m.CreatedOn}, slots...)
	err := db.Conn(ctx, r.db).QueryRow(ctx, fmt.Sprintf(`
		SELECT version_name, version_date, %s
		FROM cm_conf.t_master_config WHERE id = $1`, strings.Join(masterConfigColumns, ", ")), id).
		Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("Version not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get master version %d: %w", id, err)
	}
	return &m, nil
}

// Rows returns the frozen master-list rows of a saved version.
func (r *MasterRepo) Rows(ctx context.Context, id int64) (*domain.ResultSet, error) {
	sql := fmt.Sprintf("SELECT %s FROM cm_data.t_master_data WHERE master_config_id = $1 ORDER BY id",
		strings.Join(masterDataColumns, ", "))
	res, err := db.QueryResult(ctx, db.Conn(ctx, r.db), sql, id)
	if err != nil {
		return nil, fmt.Errorf("read master rows %d: %w", id, err)
	}
	return res, nil
}

// FindBySources returns the id of a saved version with exactly the given
// source selection. Missing selections match NULL.
func (r *MasterRepo) FindBySources(ctx context.Context, v domain.SourceVersions) (int64, bool, error) {
	conds := make([]string, len(masterConfigColumns))
	for i, c := range masterConfigColumns {
		conds[i] = fmt.Sprintf("%s IS NOT DISTINCT FROM $%d::bigint", c, i+1)
	}
	var id int64
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		"SELECT id FROM cm_conf.t_master_config WHERE "+strings.Join(conds, " AND ")+" ORDER BY id LIMIT 1",
		v.All()...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find master version: %w", err)
	}
	return id, true, nil
}

// Create registers a saved master version dated today.
func (r *MasterRepo) Create(ctx context.Context, name string, v domain.SourceVersions) (*domain.SavedMasterVersion, error) {
	placeholders := make([]string, len(masterConfigColumns))
	for i := range masterConfigColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf(`
		INSERT INTO cm_conf.t_master_config (%s, version_name, version_date)
		VALUES (%s, $%d, current_date)
		RETURNING id, version_date`,
		strings.Join(masterConfigColumns, ", "), strings.Join(placeholders, ", "), len(masterConfigColumns)+1)

	m := domain.SavedMasterVersion{Name: name, Sources: v}
	args := append(v.All(), name)
	if err := db.Conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&m.ID, &m.CreatedOn); err != nil {
		return nil, domain.ErrPersistence("create master version", err)
	}
	return &m, nil
}

// Materialize freezes the master list computed from v under master config id.
func (r *MasterRepo) Materialize(ctx context.Context, id int64, v domain.SourceVersions) (int64, error) {
	args := append(v.Args(masterListArgs...), id)
	tag, err := db.Conn(ctx, r.db).Exec(ctx, materializeMasterListQuery(), args...)
	if err != nil {
		return 0, domain.ErrPersistence("materialize master list", err)
	}
	return tag.RowsAffected(), nil
}

func sourceSlots(v *domain.SourceVersions) []any {
	return []any{
		&v.Tele2Coverage,
		&v.Tele2Updated,
		&v.Tele2VoiceUpdated,
		&v.TimSparklePriceUpdated,
		&v.TimSparkleRoamingUpdated,
		&v.HotMobileUpdated,
		&v.BicsCoverageBandsUpdated,
		&v.BicsCoverageUpdated,
		&v.BicsPriceUpdated,
	}
}
