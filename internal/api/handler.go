// Package api provides the HTTP handlers of the cm-admin REST API.
package api

import (
	"context"
	"log/slog"

	"cm-admin/internal/domain"
	"cm-admin/internal/service/auth"
)

// AuthService opens and closes back office sessions.
type AuthService interface {
	Login(ctx context.Context, username, password, ip string) (*auth.Login, error)
	Logout(ctx context.Context, token string) error
}

// UploadService runs one ETL upload end to end.
type UploadService interface {
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error)
}

// DatasetService serves the upload screen.
type DatasetService interface {
	LoaderConf(ctx context.Context) ([]domain.DatasetLoaderConf, error)
	VersionRows(ctx context.Context, tableName string, versionID int64) (*domain.ResultSet, error)
	UpdateRow(ctx context.Context, principal, tableName string, columns []string, values []any, rowID int64) (*domain.ResultSet, error)
	SetColumnTitle(ctx context.Context, principal, tableName, column, title string) error
}

// ReferenceService edits the registered reference tables.
type ReferenceService interface {
	Tables() []domain.ReferenceTable
	List(ctx context.Context, key string, page domain.PageRequest) (*domain.ResultSet, error)
	Insert(ctx context.Context, principal, key string, values map[string]any) (*domain.ResultSet, error)
	Update(ctx context.Context, principal, key string, id int64, values map[string]any) (*domain.ResultSet, error)
	Delete(ctx context.Context, principal, key string, id int64) (*domain.ResultSet, error)
}

// ReportService builds the read-only report grids.
type ReportService interface {
	NbIot(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error)
	CatM(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error)
	MasterList(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error)
	Bap(ctx context.Context, tcp int) (*domain.ResultSet, error)
	PriceZoneList(ctx context.Context, tcp int) (*domain.ResultSet, error)
	Eprofile(ctx context.Context, profile int) (*domain.ResultSet, error)
	TCPList(ctx context.Context) (*domain.ResultSet, error)
	PzCutOffPoints(ctx context.Context, tcp int) (*domain.ResultSet, error)
	ScreenConfig(ctx context.Context) (*domain.ResultSet, error)
}

// MasterService lists and saves frozen master lists.
type MasterService interface {
	SavedVersions(ctx context.Context) (*domain.ResultSet, error)
	SavedVersion(ctx context.Context, id int64) (*domain.SavedMasterVersion, *domain.ResultSet, error)
	Save(ctx context.Context, principal, name string, v domain.SourceVersions) (*domain.SavedMasterVersion, error)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the handler dependencies.
type Services struct {
	Auth      AuthService
	Uploads   UploadService
	Datasets  DatasetService
	Reference ReferenceService
	Reports   ReportService
	Masters   MasterService
	DB        Pinger
}

// Handler serves the REST API.
type Handler struct {
	auth      AuthService
	uploads   UploadService
	datasets  DatasetService
	reference ReferenceService
	reports   ReportService
	masters   MasterService
	db        Pinger

	maxUploadBytes int64
	logger         *slog.Logger
}

// DefaultMaxUploadBytes bounds request bodies on the upload routes.
const DefaultMaxUploadBytes = 64 << 20

// NewHandler creates a Handler. maxUploadBytes <= 0 selects
// DefaultMaxUploadBytes.
func NewHandler(svc Services, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		auth:           svc.Auth,
		uploads:        svc.Uploads,
		datasets:       svc.Datasets,
		reference:      svc.Reference,
		reports:        svc.Reports,
		masters:        svc.Masters,
		db:             svc.DB,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "api"),
	}
}
