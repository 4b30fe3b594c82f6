package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/config"
	v1 "github.com/vanessaachristy/mymedtrust-be/internal/handler/v1"
	"github.com/vanessaachristy/mymedtrust-be/internal/ledger"
	"github.com/vanessaachristy/mymedtrust-be/internal/service"
	"github.com/vanessaachristy/mymedtrust-be/internal/store"
	"github.com/vanessaachristy/mymedtrust-be/pkg/auth"
	"github.com/vanessaachristy/mymedtrust-be/pkg/database"
	"github.com/vanessaachristy/mymedtrust-be/pkg/logger"
	"github.com/vanessaachristy/mymedtrust-be/pkg/metrics"
	"github.com/vanessaachristy/mymedtrust-be/pkg/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(db, log); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	collector := metrics.NewCollector("mymedtrust")

	ledgerClient := ledger.NewClient(cfg.Ledger, log, collector)
	docStore := store.NewGormStore(db, log)
	userRepo := store.NewGormUserRepository(db)
	auditRepo := store.NewGormAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, log)
	defer auditSvc.Shutdown()

	jwtManager := auth.NewJWTManager(cfg.JWT)

	recordSvc := service.NewRecordService(ledgerClient, docStore, auditSvc, collector, log)
	whitelistSvc := service.NewWhitelistService(ledgerClient, auditSvc, log)
	identitySvc := service.NewIdentityService(ledgerClient, auditSvc, log)
	authSvc := service.NewAuthService(userRepo, jwtManager, auditSvc, log)

	reconciler := service.NewReconciler(recordSvc, time.Minute, log)
	reconciler.Start()
	defer reconciler.Stop()

	router := v1.NewRouter(cfg, v1.Handlers{
		Users:     v1.NewUserHandler(authSvc),
		Records:   v1.NewRecordHandler(recordSvc),
		Identity:  v1.NewIdentityHandler(identitySvc),
		Whitelist: v1.NewWhitelistHandler(whitelistSvc),
		Audit:     v1.NewAuditHandler(auditSvc),
	}, jwtManager, collector, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("stopped")
	return nil
}
