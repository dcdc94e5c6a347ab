package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"cm-admin/internal/db"
	"cm-admin/internal/domain"
)

var _ domain.StagingRepository = (*StagingRepo)(nil)

// insertBatchSize bounds the rows queued per pgx batch on the cast path.
const insertBatchSize = 500

// StagingRepo owns the contents of the cm_temp staging tables.
type StagingRepo struct {
	db db.DBTX
}

// NewStagingRepo creates a new StagingRepo.
func NewStagingRepo(pool db.DBTX) *StagingRepo {
	return &StagingRepo{db: pool}
}

// Columns returns the declared columns of a table in ordinal order, minus
// identity and dropped columns. Titles come from column comments.
func (r *StagingRepo) Columns(ctx context.Context, table domain.TableRef) ([]domain.StagingColumn, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT a.attname, a.attnum, format_type(a.atttypid, a.atttypmod),
		       coalesce(d.description, '')
		FROM pg_attribute a
		LEFT JOIN pg_description d ON d.objoid = a.attrelid AND d.objsubid = a.attnum
		WHERE a.attrelid = to_regclass($1)
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		  AND a.attidentity = ''
		ORDER BY a.attnum`, quote(table))
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StagingColumn, error) {
		var c domain.StagingColumn
		err := row.Scan(&c.Name, &c.Position, &c.DataType, &c.Title)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, domain.ErrNotFound("table %s not found", table)
	}
	return cols, nil
}

// Replace truncates the table and inserts rows positionally into columns,
// all in one transaction. Rows are expected to be exactly len(columns) wide.
func (r *StagingRepo) Replace(ctx context.Context, table domain.TableRef, columns []domain.StagingColumn, rows []domain.StagingRow) (int64, error) {
	tx, err := db.Conn(ctx, r.db).Begin(ctx)
	if err != nil {
		return 0, domain.ErrPersistence("begin staging load", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+quote(table)); err != nil {
		return 0, domain.ErrPersistence("truncate "+table.String(), err)
	}

	var n int64
	if len(rows) > 0 {
		if allText(columns) {
			n, err = copyRows(ctx, tx, table, columns, rows)
		} else {
			n, err = insertRows(ctx, tx, table, columns, rows)
		}
		if err != nil {
			return 0, domain.ErrPersistence("load "+table.String(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, domain.ErrPersistence("commit staging load", err)
	}
	return n, nil
}

// SetColumnTitle stores title as the column comment.
func (r *StagingRepo) SetColumnTitle(ctx context.Context, table domain.TableRef, column, title string) error {
	cols, err := r.Columns(ctx, table)
	if err != nil {
		return err
	}
	if !hasStagingColumn(cols, column) {
		return domain.ErrValidation("unknown column %q on %s", column, table)
	}
	// COMMENT takes no bind parameters.
	sql := fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s",
		quote(table), pgx.Identifier{column}.Sanitize(), quoteLiteral(title))
	if _, err := db.Conn(ctx, r.db).Exec(ctx, sql); err != nil {
		return fmt.Errorf("set title of %s.%s: %w", table, column, err)
	}
	return nil
}

func copyRows(ctx context.Context, tx pgx.Tx, table domain.TableRef, columns []domain.StagingColumn, rows []domain.StagingRow) (int64, error) {
	ident := pgx.Identifier{table.Name}
	if table.Schema != "" {
		ident = pgx.Identifier{table.Schema, table.Name}
	}
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return rows[i], nil
	})
	return tx.CopyFrom(ctx, ident, columnNames(columns), src)
}

// insertRows binds every cell as text and lets the server cast it to the
// declared column type.
func insertRows(ctx context.Context, tx pgx.Tx, table domain.TableRef, columns []domain.StagingColumn, rows []domain.StagingRow) (int64, error) {
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		placeholders[i] = fmt.Sprintf("CAST($%d::text AS %s)", i+1, c.DataType)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), quoteColumns(columnNames(columns)), strings.Join(placeholders, ", "))

	var n int64
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		batch := &pgx.Batch{}
		for _, row := range rows[start:end] {
			batch.Queue(sql, row...)
		}
		br := tx.SendBatch(ctx, batch)
		for range rows[start:end] {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return 0, err
			}
			n += tag.RowsAffected()
		}
		if err := br.Close(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func allText(columns []domain.StagingColumn) bool {
	for _, c := range columns {
		if !c.IsText() {
			return false
		}
	}
	return true
}

func columnNames(columns []domain.StagingColumn) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

func hasStagingColumn(columns []domain.StagingColumn, name string) bool {
	for _, c := range columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
