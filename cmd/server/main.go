// Command timekeeper starts the time entry HTTP API and its gRPC health probe.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/timekeeper/internal/auth"
	"github.com/and161185/timekeeper/internal/config"
	"github.com/and161185/timekeeper/internal/logger"
	"github.com/and161185/timekeeper/internal/migrate"
	"github.com/and161185/timekeeper/internal/repository"
	"github.com/and161185/timekeeper/internal/repository/postgres"
	"github.com/and161185/timekeeper/internal/repository/sqlite"
	grpcserver "github.com/and161185/timekeeper/internal/server/grpc"
	httpserver "github.com/and161185/timekeeper/internal/server/http"
	"github.com/and161185/timekeeper/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := logger.New("timekeeper", cfg.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("exit", zap.Error(err))
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// openStore connects the configured backend and returns it with its closer.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.TimeEntryRepository, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open: %w", err)
		}
		log.Info("store ready", zap.String("driver", cfg.Driver), zap.String("path", cfg.SQLitePath))
		return sqlite.NewEntryRepo(db, time.Now), func() { _ = db.Close() }, nil

	default:
		// Connect waits for the database, so migrations run against a server that answers.
		db, err := postgres.Connect(ctx, cfg.DSN, postgres.PoolOptions{
			MaxConns:       cfg.MaxConns,
			DialTimeout:    cfg.OpTimeout,
			StartupTimeout: cfg.ConnectTimeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Migrate {
			ver, err := migrate.Up(ctx, cfg.DSN, log)
			if err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("migrate up: %w", err)
			}
			log.Info("schema migrated", zap.Int64("version", ver))
		}
		log.Info("store ready", zap.String("driver", cfg.Driver))
		return postgres.NewEntryRepo(db, time.Now), db.Close, nil
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("grpcAddr", cfg.GRPCAddr),
		zap.String("driver", cfg.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	entries := service.NewEntryService(repo, cfg.OpTimeout)

	cors := httpserver.DefaultCORS()
	cors.AllowedOrigins = cfg.CORSOrigins
	api := httpserver.New(entries, auth.NewVerifier([]byte(cfg.JWTKey)), log, httpserver.NewRegistry(), cors)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		probe := grpcserver.NewProbe(repo, cfg.ProbeInterval, log)
		go probe.Run(ctx)

		grpcSrv = grpcserver.NewServer(probe, log, cfg.Dev)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		go func() {
			log.Info("grpc health listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("signal received, shutting down")
	case runErr = <-errCh:
		log.Error("server error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if grpcSrv != nil {
		done := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			grpcSrv.Stop()
		}
	}
	return runErr
}
