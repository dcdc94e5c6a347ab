package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"cm-admin/internal/domain"
)

// QueryResult runs a parameterized query and returns its rows keyed by
// column name together with normalized column metadata.
func QueryResult(ctx context.Context, q DBTX, sql string, args ...any) (*domain.ResultSet, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return CollectResult(rows)
}

// CollectResult drains rows into a ResultSet and closes them.
func CollectResult(rows pgx.Rows) (*domain.ResultSet, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := &domain.ResultSet{
		Columns: make([]domain.Column, len(fields)),
		Rows:    []map[string]any{},
	}
	for i, f := range fields {
		res.Columns[i] = domain.Column{Name: f.Name, DataType: NormalizeType(f.DataTypeOID)}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[fields[i].Name] = normalizeValue(fields[i].DataTypeOID, v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// NormalizeType maps a PostgreSQL type OID to one of the scalar type names
// reported to clients.
func NormalizeType(oid uint32) string {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID,
		pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID, pgtype.OIDOID:
		return domain.TypeNumber
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID,
		pgtype.UUIDOID:
		return domain.TypeString
	case pgtype.BoolOID:
		return domain.TypeBoolean
	case pgtype.DateOID:
		return domain.TypeDate
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return domain.TypeTimestamp
	case pgtype.JSONOID, pgtype.JSONBOID:
		return domain.TypeJSON
	default:
		return domain.TypeOther
	}
}

func normalizeValue(oid uint32, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(val).String()
	case time.Time:
		if oid == pgtype.DateOID {
			return val.Format(time.DateOnly)
		}
		return val
	default:
		return v
	}
}
