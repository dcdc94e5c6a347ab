// Package app wires repositories, services and the HTTP router of the
// cm-admin server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apispec "cm-admin/api"
	"cm-admin/internal/api"
	"cm-admin/internal/config"
	"cm-admin/internal/db"
	"cm-admin/internal/db/repository"
	"cm-admin/internal/domain"
	"cm-admin/internal/middleware"
	"cm-admin/internal/service/archive"
	"cm-admin/internal/service/auth"
	"cm-admin/internal/service/ingestion"
	"cm-admin/internal/service/maintenance"
	"cm-admin/internal/service/master"
	"cm-admin/internal/service/reference"
	"cm-admin/internal/service/report"
	"cm-admin/internal/service/transfer"
	"cm-admin/internal/session"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	Clock  clockwork.Clock // nil selects the real clock
}

// Services groups the services the router and the scheduler need.
type Services struct {
	Auth       *auth.Service
	Uploads    *ingestion.UploadService
	Datasets   *ingestion.DatasetService
	Reference  *reference.Service
	Reports    *report.Service
	Masters    *master.Service
	Dispatcher *transfer.Dispatcher
}

// App holds the fully wired application.
type App struct {
	Services  Services
	Handler   http.Handler
	Scheduler *maintenance.Scheduler
	Archiver  *archive.Archiver // nil when archiving is off
}

// New wires all repositories and services from deps and builds the router.
// ctx bounds background helpers such as the rate limiter's cleanup loop.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg, logger := deps.Cfg, deps.Logger

	dispatcher, err := NewDispatcher(deps.Pool, cfg.ETL.RoutinesFile, logger)
	if err != nil {
		return nil, err
	}

	// === Repositories ===
	datasetRepo := repository.NewDatasetRepo(deps.Pool)
	versionRepo := repository.NewVersionRepo(deps.Pool)
	stagingRepo := repository.NewStagingRepo(deps.Pool)
	rowRepo := repository.NewVersionedRowRepo(deps.Pool)
	txRunner := db.NewTxRunner(deps.Pool)

	var locker domain.DatasetLocker
	if cfg.ETL.SerializeUploads {
		locker = repository.NewAdvisoryLocker(deps.Pool, logger)
	}

	archiver, err := archive.New(ctx, archive.Options{
		URL:                cfg.Archive.URL,
		Workers:            cfg.Archive.Workers,
		AWSRegion:          cfg.Archive.AWSRegion,
		S3Endpoint:         cfg.Archive.S3Endpoint,
		S3AccessKeyID:      cfg.Archive.S3AccessKeyID,
		S3SecretAccessKey:  cfg.Archive.S3SecretAccessKey,
		GCSCredentialsFile: cfg.Archive.GCSCredentialsFile,
		AzureAccountKey:    cfg.Archive.AzureAccountKey,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	// A nil *Archiver must not become a non-nil interface.
	var payloadArchiver domain.PayloadArchiver
	if archiver != nil {
		payloadArchiver = archiver
		logger.Info("raw payload archive enabled", "url", cfg.Archive.URL)
	}

	// === Services ===
	authSvc, err := auth.NewService(
		auth.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password},
		cfg.Auth.JWTSecret, cfg.Auth.SessionTTL,
		session.NewStore(cfg.Auth.SessionTTL), deps.Clock, logger,
	)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	svc := Services{
		Auth: authSvc,
		Uploads: ingestion.NewUploadService(
			datasetRepo, versionRepo,
			ingestion.NewStagingLoader(stagingRepo, cfg.ETL.ValidateHeaders, logger),
			dispatcher, txRunner, locker, payloadArchiver, logger,
		),
		Datasets:   ingestion.NewDatasetService(datasetRepo, rowRepo, stagingRepo, logger),
		Reference:  reference.NewService(repository.NewReferenceRepo(deps.Pool), reference.DefaultTables(), logger),
		Reports:    report.NewService(repository.NewReportRepo(deps.Pool), logger),
		Masters:    master.NewService(repository.NewMasterRepo(deps.Pool), txRunner, logger),
		Dispatcher: dispatcher,
	}

	// === Router ===
	var oidc middleware.JWTValidator
	if cfg.Auth.OIDCEnabled() {
		v, err := middleware.NewOIDCValidator(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCAudience)
		if err != nil {
			return nil, fmt.Errorf("oidc: %w", err)
		}
		oidc = v
		logger.Info("identity provider tokens accepted", "issuer", cfg.Auth.OIDCIssuer)
	}

	spec, err := apispec.Load(ctx)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(api.Services{
		Auth:      svc.Auth,
		Uploads:   svc.Uploads,
		Datasets:  svc.Datasets,
		Reference: svc.Reference,
		Reports:   svc.Reports,
		Masters:   svc.Masters,
		DB:        deps.Pool,
	}, cfg.ETL.MaxUploadBytes, logger)

	router := api.NewRouter(handler, api.RouterConfig{
		Auth: middleware.Auth(svc.Auth, oidc, logger),
		RateLimit: middleware.RateLimiter(ctx, middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}),
		LoginLimit: middleware.RateLimiter(ctx, middleware.RateLimitConfig{
			RequestsPerSecond: loginRPS,
			Burst:             loginBurst,
		}),
		CORSOrigins:  cfg.CORSAllowedOrigins,
		Spec:         spec,
		MetricsRoute: promhttp.Handler(),
	}, logger)

	return &App{
		Services:  svc,
		Handler:   router,
		Scheduler: maintenance.NewScheduler(svc.Auth, dispatcher, logger),
		Archiver:  archiver,
	}, nil
}

// Login attempts per client: a burst of five, then one every ten seconds.
const (
	loginRPS   = 0.1
	loginBurst = 5
)

// NewDispatcher loads the routine descriptors (the embedded set, or the file
// at routinesFile) and builds the transfer dispatcher over pool.
func NewDispatcher(pool *pgxpool.Pool, routinesFile string, logger *slog.Logger) (*transfer.Dispatcher, error) {
	descs, err := transfer.LoadDescriptors(routinesFile)
	if err != nil {
		return nil, fmt.Errorf("load routines: %w", err)
	}
	return transfer.NewDispatcher(
		descs,
		repository.NewDatasetRepo(pool),
		repository.NewVersionRepo(pool),
		repository.NewTransferRepo(pool),
		db.NewTxRunner(pool),
		logger,
	), nil
}

// Close drains the archive queue.
func (a *App) Close() {
	if a.Archiver != nil {
		a.Archiver.Close()
	}
}
