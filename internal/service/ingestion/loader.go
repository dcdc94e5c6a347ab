package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"cm-admin/internal/domain"
)

// StagingLoader decodes uploaded payloads and replaces the contents of a
// staging table with them.
type StagingLoader struct {
	staging         domain.StagingRepository
	validateHeaders bool
	logger          *slog.Logger
}

// NewStagingLoader creates a StagingLoader. With validateHeaders set, the
// header row must name the staging columns in order.
func NewStagingLoader(staging domain.StagingRepository, validateHeaders bool, logger *slog.Logger) *StagingLoader {
	return &StagingLoader{
		staging:         staging,
		validateHeaders: validateHeaders,
		logger:          logger.With("component", "staging-loader"),
	}
}

// Load replaces the contents of table with the data rows of payload and
// returns how many rows were staged. Rows up to and including
// headerRowIndex are discarded. Cells map onto the staging columns by
// position.
//
// When no data rows survive, the table is still truncated and an
// EmptyUploadError is returned.
func (l *StagingLoader) Load(ctx context.Context, payload []byte, enc domain.PayloadEncoding, table domain.TableRef, headerRowIndex int) (int64, error) {
	if headerRowIndex < 0 {
		return 0, domain.ErrValidation("skipRows must not be negative")
	}

	records, err := decode(payload, enc)
	if err != nil {
		return 0, err
	}

	columns, err := l.staging.Columns(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("staging columns: %w", err)
	}

	if l.validateHeaders && len(records) > headerRowIndex {
		if err := checkHeader(records[headerRowIndex], columns); err != nil {
			return 0, err
		}
	}

	var data []record
	if len(records) > headerRowIndex+1 {
		data = records[headerRowIndex+1:]
	}
	rows, surplus := fitRows(data, len(columns))
	if surplus > 0 {
		l.logger.Warn("dropped cells beyond the staging columns",
			"table", table.String(), "columns", len(columns), "cells", surplus)
	}

	n, err := l.staging.Replace(ctx, table, columns, rows)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, domain.ErrEmptyUpload("no data rows after row %d", headerRowIndex+1)
	}

	l.logger.Info("staging table loaded", "table", table.String(), "rows", n, "encoding", string(enc))
	return n, nil
}
