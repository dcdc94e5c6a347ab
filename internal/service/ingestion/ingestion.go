// Package ingestion implements the ETL upload path: decoding an uploaded
// spreadsheet into a staging table and transferring it into a new version of
// the dataset's permanent table.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"cm-admin/internal/domain"
	"cm-admin/internal/metrics"
)

// Dispatcher appends staged rows under a version label.
type Dispatcher interface {
	Dispatch(ctx context.Context, datasetID int64, staging domain.TableRef, label string) (*domain.TransferResult, error)
}

// Loader replaces a staging table's contents with a decoded payload.
type Loader interface {
	Load(ctx context.Context, payload []byte, enc domain.PayloadEncoding, table domain.TableRef, headerRowIndex int) (int64, error)
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadService runs one upload end to end: stage, version, transfer.
//
//nolint:revive // Name chosen for clarity across package boundaries
type UploadService struct {
	datasets   domain.DatasetRepository
	versions   domain.VersionRepository
	loader     Loader
	dispatcher Dispatcher
	tx         domain.TxRunner
	locker     domain.DatasetLocker  // nil leaves same-dataset uploads unserialized
	archiver   domain.PayloadArchiver // may be nil
	logger     *slog.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(
	datasets domain.DatasetRepository,
	versions domain.VersionRepository,
	loader Loader,
	dispatcher Dispatcher,
	tx domain.TxRunner,
	locker domain.DatasetLocker,
	archiver domain.PayloadArchiver,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		datasets:   datasets,
		versions:   versions,
		loader:     loader,
		dispatcher: dispatcher,
		tx:         tx,
		locker:     locker,
		archiver:   archiver,
		logger:     logger.With("component", "upload"),
	}
}

// Upload stages the payload, creates a version labelled req.Label and appends
// the staged rows under it. The version and the appended rows commit
// together; on any failure neither is left behind.
func (s *UploadService) Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, domain.ErrValidation("versionName is required")
	}

	ds, err := s.datasets.Get(ctx, req.DatasetID)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrValidation("unknown dataset %d", req.DatasetID)
		}
		return nil, err
	}
	if req.StagingTable != "" && !matchTable(ds.StagingTable, req.StagingTable) {
		return nil, domain.ErrValidation("table %s does not belong to dataset %s", req.StagingTable, ds.Name)
	}

	start := time.Now()
	res, err := s.upload(ctx, ds, label, req)
	metrics.UploadsTotal.WithLabelValues(ds.Name, outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("upload failed",
			"dataset", ds.Name, "label", label, "principal", req.Principal, "error", err)
		return nil, err
	}
	metrics.UploadDuration.WithLabelValues(ds.Name).Observe(time.Since(start).Seconds())

	s.logger.Info("upload complete",
		"dataset", ds.Name, "version_id", res.VersionID, "label", label,
		"rows", res.Rows, "principal", req.Principal)

	if s.archiver != nil {
		key := fmt.Sprintf("%s/%d-%s.%s", ds.Name, res.VersionID,
			unsafeKeyChars.ReplaceAllString(label, "_"), req.Encoding.Extension())
		if err := s.archiver.Archive(context.WithoutCancel(ctx), key, req.Payload); err != nil {
			s.logger.Warn("archive not scheduled", "key", key, "error", err)
		}
	}
	return res, nil
}

func (s *UploadService) upload(ctx context.Context, ds *domain.Dataset, label string, req domain.UploadRequest) (*domain.UploadResult, error) {
	if s.locker != nil {
		locked, release, err := s.locker.Lock(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		defer release()
		ctx = locked
	}

	headerRow := req.Encoding.DefaultHeaderRowIndex()
	if req.HeaderRowIndex != nil {
		headerRow = *req.HeaderRowIndex
	}

	// The staging load commits on its own so an empty upload still leaves
	// the staging table truncated.
	staged, err := s.loader.Load(ctx, req.Payload, req.Encoding, ds.StagingTable, headerRow)
	if err != nil {
		return nil, err
	}
	metrics.RowsStaged.WithLabelValues(ds.Name).Add(float64(staged))

	var out domain.UploadResult
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		v, err := s.versions.Create(ctx, ds.ID, label)
		if err != nil {
			return err
		}
		res, err := s.dispatcher.Dispatch(ctx, ds.ID, ds.StagingTable, label)
		if err != nil {
			return err
		}
		out = domain.UploadResult{VersionID: res.VersionID, VersionName: v.DisplayName(), Rows: res.Rows}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RowsAppended.WithLabelValues(ds.Name).Add(float64(out.Rows))
	return &out, nil
}

func outcome(err error) string {
	var (
		empty *domain.EmptyUploadError
		ve    *domain.ValidationError
		ce    *domain.ConfigurationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &empty):
		return "empty"
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &ce):
		return "config"
	default:
		return "failed"
	}
}
