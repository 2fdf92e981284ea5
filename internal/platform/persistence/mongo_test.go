package persistence

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/noblepay-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoOptions(t *testing.T) {
	t.Run("applies configured limits", func(t *testing.T) {
		opts := mongoOptions(&config.MongoDBConfig{
			URI:             "mongodb://localhost:27017",
			Timeout:         2 * time.Second,
			MaxPoolSize:     50,
			MinPoolSize:     5,
			MaxConnIdleTime: time.Minute,
		})

		require.NotNil(t, opts.AppName)
		assert.Equal(t, mongoAppName, *opts.AppName)
		assert.Equal(t, uint64(50), *opts.MaxPoolSize)
		assert.Equal(t, uint64(5), *opts.MinPoolSize)
		assert.Equal(t, time.Minute, *opts.MaxConnIdleTime)
		assert.Equal(t, 2*time.Second, *opts.Timeout)
		assert.True(t, *opts.RetryWrites)
		require.NotNil(t, opts.WriteConcern)
		assert.Equal(t, "majority", opts.WriteConcern.W)
	})

	t.Run("falls back to defaults", func(t *testing.T) {
		opts := mongoOptions(&config.MongoDBConfig{URI: "mongodb://localhost:27017"})

		assert.Equal(t, uint64(20), *opts.MaxPoolSize)
		assert.Equal(t, 5*time.Minute, *opts.MaxConnIdleTime)
		assert.Equal(t, 5*time.Second, *opts.ServerSelectionTimeout)
	})
}

func TestMongoDB_DatabaseAndCollection(t *testing.T) {
	// mongo.Connect does not dial until the first operation
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	require.NoError(t, err)

	mdb := newMongoDB(slog.New(slog.NewTextHandler(io.Discard, nil)), client, "noblepay_test")

	assert.Equal(t, "noblepay_test", mdb.Database().Name())
	assert.Equal(t, "ledger_entries", mdb.Collection("ledger_entries").Name())
	assert.Equal(t, "noblepay_test", mdb.Collection("movement_failures").Database().Name())
}
