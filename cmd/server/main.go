package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/abszero/smartledger/internal/api"
	"github.com/abszero/smartledger/internal/auth"
	"github.com/abszero/smartledger/internal/catalog"
	"github.com/abszero/smartledger/internal/config"
	"github.com/abszero/smartledger/internal/service"
	"github.com/abszero/smartledger/internal/storage/sqlite"
	"github.com/abszero/smartledger/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)
	logger := slog.Default()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("storage initialized", "database", cfg.DBPath)

	registry := prometheus.NewRegistry()
	metrics := service.NewMetrics(registry)
	locks := service.NewGroupLocks()
	cat := catalog.New(store, logger)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	server := api.New(cfg, api.Deps{
		JWT:      jwtManager,
		Auth:     service.NewAuthService(store, authenticator, jwtManager, logger),
		Groups:   service.NewGroupService(store, locks, logger),
		Txs:      service.NewTransactionService(store, cat, locks, metrics, logger),
		Auditor:  service.NewAuditor(store, locks, metrics, logger),
		Catalog:  cat,
		Registry: registry,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
