package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"cm-admin/internal/db"
	"cm-admin/internal/domain"
)

var _ domain.VersionedRowRepository = (*VersionedRowRepo)(nil)

// VersionedRowRepo reads and edits rows of the version-tagged cm_data tables.
// Table names reaching it are already allow-listed by the caller.
type VersionedRowRepo struct {
	db db.DBTX
}

// NewVersionedRowRepo creates a new VersionedRowRepo.
func NewVersionedRowRepo(pool db.DBTX) *VersionedRowRepo {
	return &VersionedRowRepo{db: pool}
}

// ByVersion returns every row of table tagged with versionID.
func (r *VersionedRowRepo) ByVersion(ctx context.Context, table domain.TableRef, versionID int64) (*domain.ResultSet, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE version_id = $1 ORDER BY id", quote(table))
	res, err := db.QueryResult(ctx, db.Conn(ctx, r.db), sql, versionID)
	if err != nil {
		return nil, fmt.Errorf("read %s version %d: %w", table, versionID, err)
	}
	return res, nil
}

// UpdateRow sets the given columns of one row by id and returns its id. Every
// column must exist on the table; id and version_id are never writable.
func (r *VersionedRowRepo) UpdateRow(ctx context.Context, u domain.RowUpdate) (*domain.ResultSet, error) {
	if len(u.Columns) == 0 || len(u.Columns) != len(u.Values) {
		return nil, domain.ErrValidation("columnsList and valuesList must be non-empty and of equal length")
	}
	known, err := r.TableColumns(ctx, u.Table)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(known))
	for _, c := range known {
		set[c] = true
	}

	clauses := make([]string, len(u.Columns))
	for i, c := range u.Columns {
		if !set[c] || c == "id" || c == "version_id" {
			return nil, domain.ErrValidation("column %q cannot be updated on %s", c, u.Table)
		}
		clauses[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1)
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING id",
		quote(u.Table), strings.Join(clauses, ", "), len(u.Columns)+1)

	args := append(append([]any{}, u.Values...), u.RowID)
	res, err := db.QueryResult(ctx, db.Conn(ctx, r.db), sql, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s row %d: %w", u.Table, u.RowID, mapDBError(err))
	}
	if res.Len() == 0 {
		return nil, domain.ErrNotFound("row %d not found in %s", u.RowID, u.Table)
	}
	return res, nil
}

// TableColumns lists every live column name of table in ordinal order.
func (r *VersionedRowRepo) TableColumns(ctx context.Context, table domain.TableRef) ([]string, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT attname FROM pg_attribute
		WHERE attrelid = to_regclass($1) AND attnum > 0 AND NOT attisdropped
		ORDER BY attnum`, quote(table))
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	cols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, domain.ErrNotFound("table %s not found", table)
	}
	return cols, nil
}
