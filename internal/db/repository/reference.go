package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"cm-admin/internal/db"
	"cm-admin/internal/domain"
)

var _ domain.ReferenceRepository = (*ReferenceRepo)(nil)

// ReferenceRepo implements CRUD over allow-listed reference tables. Only
// columns declared on the domain.ReferenceTable are ever written.
type ReferenceRepo struct {
	db db.DBTX
}

// NewReferenceRepo creates a new ReferenceRepo.
func NewReferenceRepo(pool db.DBTX) *ReferenceRepo {
	return &ReferenceRepo{db: pool}
}

// List returns the table's rows, optionally one page of them.
func (r *ReferenceRepo) List(ctx context.Context, t domain.ReferenceTable, page domain.PageRequest) (*domain.ResultSet, error) {
	order := t.OrderBy
	if order == "" {
		order = "id"
	}
	sql := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quote(t.Table), pgx.Identifier{order}.Sanitize())
	var args []any
	if page.Paged() {
		sql += " LIMIT $1 OFFSET $2"
		args = append(args, page.Limit(), page.Offset())
	}

	res, err := db.QueryResult(ctx, db.Conn(ctx, r.db), sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.Key, err)
	}
	if page.Paged() {
		res.NextPageToken = domain.NextPageToken(page.Offset(), page.Limit(), res.Len())
	}
	return res, nil
}

// Insert adds one row and returns it.
func (r *ReferenceRepo) Insert(ctx context.Context, t domain.ReferenceTable, values map[string]any) (*domain.ResultSet, error) {
	cols, args, err := writableColumns(t, values)
	if err != nil {
		return nil, err
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		quote(t.Table), quoteColumns(cols), strings.Join(placeholders, ", "))

	res, err := db.QueryResult(ctx, db.Conn(ctx, r.db), sql, args...)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", t.Key, mapDBError(err))
	}
	return res, nil
}

// Update overwrites the given columns of row id and returns it.
func (r *ReferenceRepo) Update(ctx context.Context, t domain.ReferenceTable, id int64, values map[string]any) (*domain.ResultSet, error) {
	cols, args, err := writableColumns(t, values)
	if err != nil {
		return nil, err
	}
	clauses := make([]string, len(cols))
	for i, c := range cols {
		clauses[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1)
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *",
		quote(t.Table), strings.Join(clauses, ", "), len(cols)+1)

	res, err := db.QueryResult(ctx, db.Conn(ctx, r.db), sql, append(args, id)...)
	if err != nil {
		return nil, fmt.Errorf("update %s row %d: %w", t.Key, id, mapDBError(err))
	}
	if res.Len() == 0 {
		return nil, domain.ErrNotFound("%s row %d not found", t.Key, id)
	}
	return res, nil
}

// Delete removes row id and returns its id.
func (r *ReferenceRepo) Delete(ctx context.Context, t domain.ReferenceTable, id int64) (*domain.ResultSet, error) {
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1 RETURNING id", quote(t.Table))
	res, err := db.QueryResult(ctx, db.Conn(ctx, r.db), sql, id)
	if err != nil {
		return nil, fmt.Errorf("delete %s row %d: %w", t.Key, id, mapDBError(err))
	}
	if res.Len() == 0 {
		return nil, domain.ErrNotFound("%s row %d not found", t.Key, id)
	}
	return res, nil
}

// writableColumns returns the requested columns in a stable order with
// their values. Unknown columns are rejected.
func writableColumns(t domain.ReferenceTable, values map[string]any) ([]string, []any, error) {
	if len(values) == 0 {
		return nil, nil, domain.ErrValidation("no column values given for %s", t.Key)
	}
	cols := make([]string, 0, len(values))
	for c := range values {
		if !t.HasColumn(c) {
			return nil, nil, domain.ErrValidation("unknown column %q for %s", c, t.Key)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = values[c]
	}
	return cols, args, nil
}
