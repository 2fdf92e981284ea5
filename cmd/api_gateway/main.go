package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/noblepay-ledger/internal/api_gateway"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/api_gateway/service"
	"github.com/noblepay-ledger/internal/config"
	"github.com/noblepay-ledger/internal/data/mongo"
	"github.com/noblepay-ledger/internal/data/postgres"
	"github.com/noblepay-ledger/internal/data/redis"
	"github.com/noblepay-ledger/internal/logger"
	"github.com/noblepay-ledger/internal/movement"
	"github.com/noblepay-ledger/internal/platform/persistence"
	"github.com/noblepay-ledger/internal/platform/ratelimit"
	"github.com/noblepay-ledger/internal/reference"
	"golang.org/x/sync/errgroup"
)

func main() {
	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedis(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	readModel := mongo.NewLedgerRepository(log, mongoDB.Database())
	if err := readModel.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure read model indexes", "error", err)
		os.Exit(1)
	}
	providerRepo := postgres.NewProviderRepository(log, postgresDB)
	productRepo := postgres.NewProductRepository(log, postgresDB)
	rateRepo := postgres.NewRateRepository(log, postgresDB)
	orderRepo := postgres.NewOrderRepository(log, postgresDB)

	orchestrator, err := movement.CreateOrchestrator(movement.Dependencies{
		Tx:          postgresDB,
		Accounts:    accountRepo,
		Entries:     ledgerRepo,
		Outbox:      postgres.NewOutboxRepository(log, postgresDB),
		Providers:   providerRepo,
		Products:    productRepo,
		Orders:      orderRepo,
		Rates:       rateRepo,
		Idempotency: postgres.NewIdempotencyRepository(log, postgresDB),
		Cache:       redis.NewIdempotencyCache(log, redisClient, cfg.Redis.IdempotencyTTL),
		Failures:    mongo.NewFailureRepository(log, mongoDB.Database()),
		References:  reference.NewGenerator(),
	}, &cfg.Movement, log)
	if err != nil {
		log.Error("Failed to create movement orchestrator", "error", err)
		os.Exit(1)
	}

	services := api_gateway.Services{
		Accounts:  service.NewAccountService(log, accountRepo),
		Movements: orchestrator,
		Entries:   service.NewEntryService(log, ledgerRepo, readModel, accountRepo),
		Directory: service.NewDirectoryService(providerRepo, productRepo, rateRepo),
		Orders:    service.NewOrderService(log, orderRepo),
		Checks: map[string]api_gateway.HealthCheck{
			"postgres": postgresDB.Ping,
			"mongo":    mongoDB.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	}

	var limiter middleware.Limiter
	if ownerLimiter := ratelimit.NewOwnerLimiter(&cfg.RateLimit, redisClient, log); ownerLimiter != nil {
		limiter = ownerLimiter
	}

	server, err := api_gateway.NewServer(log, cfg, services, limiter)
	if err != nil {
		log.Error("Failed to initialize REST server", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(appCtx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down", "cause", context.Cause(gctx))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Drain requests before closing the stores they use
		stopErr := server.Stop(shutdownCtx)
		postgresDB.Close()
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
		if err := mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
		return stopErr
	})

	if err := g.Wait(); err != nil {
		log.Error("API gateway stopped with errors", "error", err)
		os.Exit(1)
	}
	log.Info("API gateway stopped")
}
