package main

import (
	"context"
	"os/signal"
	"syscall"

	"banking-platform/internal/account"
	"banking-platform/internal/auth"
	"banking-platform/internal/common"
	"banking-platform/internal/config"
	"banking-platform/internal/events"
	"banking-platform/internal/httpapi"
	"banking-platform/internal/ledger"
	"banking-platform/internal/peerclient"
	"banking-platform/internal/postgres"
	"banking-platform/internal/statement"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("account-service")
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zap.L().Info("Starting Account Service", zap.Int("port", cfg.Server.Port))

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	accountStore, err := postgres.NewAccountStore(ctx, pool)
	if err != nil {
		zap.L().Fatal("Failed to initialize account store", zap.Error(err))
	}
	movementStore := postgres.NewMovementStore(pool)

	producer, err := events.NewSyncProducer(cfg.Kafka)
	if err != nil {
		zap.L().Fatal("Failed to connect to Kafka", zap.Error(err))
	}
	publisher := events.NewPublisher(producer, cfg.ServiceName, cfg.Kafka)
	defer publisher.Close()

	peer, err := peerclient.New(cfg.Peer)
	if err != nil {
		zap.L().Fatal("Failed to initialize peer client", zap.Error(err))
	}

	accountService := account.NewService(accountStore, peer, publisher)
	engine := ledger.NewEngine(accountStore, movementStore, publisher)
	statements := statement.NewService(accountStore, movementStore, peer)

	consumer, err := events.NewConsumer(cfg.Kafka, account.NewProvisioner(accountService))
	if err != nil {
		zap.L().Fatal("Failed to initialize event consumer", zap.Error(err))
	}
	consumer.Start()
	defer consumer.Stop()

	tokens := auth.NewManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiry)
	router := httpapi.NewAccountRouter(cfg, tokens, httpapi.AccountAPI{
		Accounts:   accountService,
		Engine:     engine,
		Movements:  movementStore,
		Statements: statements,
	})

	if err := httpapi.Serve(ctx, cfg, router); err != nil {
		zap.L().Fatal("Server failed", zap.Error(err))
	}
	zap.L().Info("Account Service stopped")
}
