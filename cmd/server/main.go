package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cm-admin/internal/app"
	"cm-admin/internal/config"
	"cm-admin/internal/db"
	"cm-admin/internal/logging"
	"cm-admin/internal/metrics"
	"cm-admin/internal/service/maintenance"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)

	root := &cobra.Command{
		Use:           "server",
		Short:         "cm-admin reference data back office",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", envOr("ENV_FILE", ".env"), "dotenv file loaded before the environment is read")

	root.AddCommand(serve, newMigrateCmd(opts), newCheckCmd(opts))
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the maintenance scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := boot(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.close()
			return serve(cmd.Context(), rt)
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rt, err := connectOnly(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer rt.close()
				if err := db.RunMigrations(cmd.Context(), rt.pool); err != nil {
					return err
				}
				rt.logger.Info("migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the applied state of every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rt, err := connectOnly(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer rt.close()
				return db.MigrationStatus(cmd.Context(), rt.pool)
			},
		},
	)
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify every dataset resolves to a registered transfer routine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := connectOnly(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.close()
			d, err := app.NewDispatcher(rt.pool, rt.cfg.ETL.RoutinesFile, rt.logger)
			if err != nil {
				return err
			}
			if err := d.CheckConsistency(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "transfer routines consistent")
			return nil
		},
	}
}

// runtime is what every subcommand needs once configuration is loaded.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	pool    *pgxpool.Pool
	app     *app.App
	closers []func()
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// connectOnly loads configuration, builds the logger and opens the pool.
func connectOnly(ctx context.Context, opts *rootOptions) (*runtime, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.New(logging.Options{
		Level:      cfg.SlogLevel(),
		Production: cfg.IsProduction(),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogFileMaxMB,
		Backups:    cfg.LogFileBackups,
	})
	slog.SetDefault(logger)
	rt := &runtime{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, func() { closeQuietly(logCloser) })

	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	pool, err := db.Connect(ctx, db.PoolConfig{
		URL:      cfg.DB.URL,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, logger)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.pool = pool
	rt.closers = append(rt.closers, pool.Close)
	return rt, nil
}

// boot connects, migrates when configured, checks the routine registry
// against the database and wires the application.
func boot(ctx context.Context, opts *rootOptions) (*runtime, error) {
	rt, err := connectOnly(ctx, opts)
	if err != nil {
		return nil, err
	}
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	if rt.cfg.DB.AutoMigrate {
		if err := db.RunMigrations(ctx, rt.pool); err != nil {
			rt.close()
			return nil, err
		}
		rt.logger.Info("migrations applied")
	}

	a, err := app.New(ctx, app.Deps{Cfg: rt.cfg, Pool: rt.pool, Logger: rt.logger})
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.app = a
	rt.closers = append(rt.closers, a.Close)

	if err := a.Services.Dispatcher.CheckConsistency(ctx); err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

// serve runs the HTTP server and the scheduler until ctx is cancelled or
// either of them fails.
func serve(ctx context.Context, rt *runtime) error {
	srv := &http.Server{
		Addr:         rt.cfg.ListenAddr,
		Handler:      rt.app.Handler,
		ReadTimeout:  rt.cfg.ReadTimeout,
		WriteTimeout: rt.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.logger.Info("HTTP API listening", "addr", srv.Addr,
			"try", "curl http://"+curlHostForListenAddr(srv.Addr)+"/healthz")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return rt.app.Scheduler.Run(gctx, maintenance.DefaultSweepSchedule, maintenance.DefaultDriftSchedule)
	})
	g.Go(func() error {
		<-gctx.Done()
		rt.logger.Info("shutting down", "timeout", rt.cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// curlHostForListenAddr turns a listen address into a host a local curl
// can reach.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func closeQuietly(c io.Closer) { _ = c.Close() }
