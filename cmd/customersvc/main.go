package main

import (
	"context"
	"os/signal"
	"syscall"

	"banking-platform/internal/auth"
	"banking-platform/internal/common"
	"banking-platform/internal/config"
	"banking-platform/internal/customer"
	"banking-platform/internal/events"
	"banking-platform/internal/httpapi"
	"banking-platform/internal/postgres"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("customer-service")
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zap.L().Info("Starting Customer Service", zap.Int("port", cfg.Server.Port))

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	customerStore, err := postgres.NewCustomerStore(ctx, pool)
	if err != nil {
		zap.L().Fatal("Failed to initialize customer store", zap.Error(err))
	}

	producer, err := events.NewSyncProducer(cfg.Kafka)
	if err != nil {
		zap.L().Fatal("Failed to connect to Kafka", zap.Error(err))
	}
	publisher := events.NewPublisher(producer, cfg.ServiceName, cfg.Kafka)
	defer publisher.Close()

	customerService := customer.NewService(customerStore, publisher)

	tokens := auth.NewManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiry)
	router := httpapi.NewCustomerRouter(cfg, tokens, httpapi.CustomerAPI{
		Customers: customerService,
	})

	if err := httpapi.Serve(ctx, cfg, router); err != nil {
		zap.L().Fatal("Server failed", zap.Error(err))
	}
	zap.L().Info("Customer Service stopped")
}
