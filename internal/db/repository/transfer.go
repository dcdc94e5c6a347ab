package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"cm-admin/internal/db"
	"cm-admin/internal/domain"
)

var _ domain.TransferRepository = (*TransferRepo)(nil)

// TransferRepo appends staged rows into permanent versioned tables. It never
// opens its own transaction; the calling routine owns it.
type TransferRepo struct {
	db   db.DBTX
	rows *VersionedRowRepo
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(pool db.DBTX) *TransferRepo {
	return &TransferRepo{db: pool, rows: NewVersionedRowRepo(pool)}
}

// AppendSelect copies every staged row with a single INSERT ... SELECT.
func (r *TransferRepo) AppendSelect(ctx context.Context, plan domain.AppendPlan) (int64, error) {
	exprs := make([]string, len(plan.Columns))
	for i, c := range plan.Columns {
		exprs[i] = castExpr(pgx.Identifier{c.Name}.Sanitize(), c.Cast)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s, version_id) SELECT %s, $1::bigint FROM %s",
		quote(plan.Destination), quoteColumns(appendColumnNames(plan.Columns)),
		strings.Join(exprs, ", "), quote(plan.Staging))

	tag, err := db.Conn(ctx, r.db).Exec(ctx, sql, plan.VersionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AppendRowByRow reads the staged rows first, then inserts them one at a
// time in a single batch.
func (r *TransferRepo) AppendRowByRow(ctx context.Context, plan domain.AppendPlan) (int64, error) {
	conn := db.Conn(ctx, r.db)
	names := appendColumnNames(plan.Columns)

	rows, err := conn.Query(ctx, fmt.Sprintf("SELECT %s FROM %s", quoteColumns(names), quote(plan.Staging)))
	if err != nil {
		return 0, err
	}
	staged, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]any, error) {
		return row.Values()
	})
	if err != nil {
		return 0, err
	}
	if len(staged) == 0 {
		return 0, nil
	}

	params := make([]string, len(plan.Columns))
	for i, c := range plan.Columns {
		params[i] = castExpr(fmt.Sprintf("$%d::text", i+1), c.Cast)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s, version_id) VALUES (%s, $%d::bigint)",
		quote(plan.Destination), quoteColumns(names), strings.Join(params, ", "), len(names)+1)

	batch := &pgx.Batch{}
	for _, values := range staged {
		args := make([]any, 0, len(values)+1)
		for _, v := range values {
			args = append(args, textValue(v))
		}
		batch.Queue(insert, append(args, plan.VersionID)...)
	}

	br := conn.SendBatch(ctx, batch)
	var n int64
	for range staged {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, err
		}
		n += tag.RowsAffected()
	}
	return n, br.Close()
}

// TableColumns lists the live column names of table.
func (r *TransferRepo) TableColumns(ctx context.Context, table domain.TableRef) ([]string, error) {
	return r.rows.TableColumns(ctx, table)
}

func castExpr(expr, cast string) string {
	if cast == "" {
		return expr
	}
	return fmt.Sprintf("CAST(%s AS %s)", expr, cast)
}

func appendColumnNames(cols []domain.AppendColumn) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// textValue renders a staged value for a ::text parameter.
func textValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
