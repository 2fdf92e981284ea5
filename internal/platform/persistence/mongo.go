package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noblepay-ledger/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const mongoAppName = "noblepay-ledger"

// MongoDB holds the read model: projected ledger entries and the audit of
// refused movements. Postgres stays authoritative for balances.
type MongoDB struct {
	logger   *slog.Logger
	client   *mongo.Client
	database *mongo.Database
}

func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, mongoOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultDuration(cfg.Timeout, 5*time.Second))
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database)
	return newMongoDB(logger, client, cfg.Database), nil
}

func newMongoDB(logger *slog.Logger, client *mongo.Client, database string) *MongoDB {
	return &MongoDB{logger: logger, client: client, database: client.Database(database)}
}

// mongoOptions acknowledges projections on a majority so a failover does not
// roll back history a client already read.
func mongoOptions(cfg *config.MongoDBConfig) *options.ClientOptions {
	timeout := defaultDuration(cfg.Timeout, 5*time.Second)
	return options.Client().
		ApplyURI(cfg.URI).
		SetAppName(mongoAppName).
		SetMaxPoolSize(uint64(defaultInt(int(cfg.MaxPoolSize), 20))).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(defaultDuration(cfg.MaxConnIdleTime, 5*time.Minute)).
		SetServerSelectionTimeout(timeout).
		SetTimeout(timeout).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())
}

func (m *MongoDB) Database() *mongo.Database { return m.database }

func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
