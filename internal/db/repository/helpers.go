// Package repository implements domain repository interfaces on PostgreSQL.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cm-admin/internal/domain"
)

// PostgreSQL SQLSTATE codes mapped to domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &domain.ConflictError{Message: "resource already exists"}
		case pgForeignKeyViolation:
			return &domain.PersistenceError{Op: pgErr.ConstraintName, Err: err}
		}
	}
	return err
}

// quote renders a schema-qualified table as a safe SQL identifier.
func quote(t domain.TableRef) string {
	if t.Schema == "" {
		return pgx.Identifier{t.Name}.Sanitize()
	}
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

// quoteColumns sanitizes each column name and joins them with commas.
func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
