package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/noblepay-ledger/internal/config"
	"github.com/noblepay-ledger/internal/data/mongo"
	"github.com/noblepay-ledger/internal/data/postgres"
	"github.com/noblepay-ledger/internal/ledger_projector/consumer"
	"github.com/noblepay-ledger/internal/ledger_projector/outbox_relay"
	"github.com/noblepay-ledger/internal/ledger_projector/service"
	"github.com/noblepay-ledger/internal/logger"
	"github.com/noblepay-ledger/internal/platform/messaging/consumers"
	"github.com/noblepay-ledger/internal/platform/messaging/producers"
	"github.com/noblepay-ledger/internal/platform/persistence"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_projector")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Projector",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	readModel := mongo.NewLedgerRepository(log, mongoDB.Database())
	if err := readModel.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure read model indexes", "error", err)
		os.Exit(1)
	}

	entryProducer, err := producers.NewEntryEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize entry Kafka producer", "error", err)
		os.Exit(1)
	}

	// nil when no DLQ topic is configured
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	projectionService, err := service.NewWorkerPoolProjectionService(
		service.NewReadModelProjectionService(readModel, log),
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to create projection worker pool", "error", err)
		os.Exit(1)
	}

	entryEventHandler := consumer.NewEntryEventHandler(log, projectionService, deadLetters)

	poller := outbox_relay.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		outbox_relay.NewKafkaEntryRelay(outboxRepo, entryProducer, log),
		log,
	)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: metricsMux(cfg.Server.MetricsPath),
	}

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.EntryTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, entryEventHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to entry topic", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	go func() {
		log.Info("Starting metrics server", "port", cfg.Server.Port, "path", cfg.Server.MetricsPath)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	projectionService.Shutdown()

	if err = metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping metrics server", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if err = entryProducer.Close(); err != nil {
		log.Error("Error closing entry Kafka producer", "error", err)
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Ledger Projector shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Ledger Projector shutdown completed with errors")
	} else {
		log.Info("Ledger Projector shutdown completed successfully")
	}
}

func metricsMux(path string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return mux
}
