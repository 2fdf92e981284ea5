package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noblepay-ledger/internal/domain/ledger"
)

// FailureCollectionName holds rejected movement attempts for audit
const FailureCollectionName = "movement_failures"

// FailureRepository implements ledger.FailureLog for MongoDB.
// Failed attempts never reach the authoritative ledger; they are kept here instead.
type FailureRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewFailureRepository creates a new MongoDB failure log
func NewFailureRepository(logger *slog.Logger, db *mongo.Database) *FailureRepository {
	return &FailureRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends one failed attempt
func (r *FailureRepository) Record(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(FailureCollectionName)

	doc, err := newEntryDocument(entry)
	if err != nil {
		return fmt.Errorf("failed to encode failed entry: %w", err)
	}

	if _, err := collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to record movement failure",
			"reference", entry.Reference,
			"reason", entry.FailureReason,
			"error", err)
		return fmt.Errorf("failed to record movement failure: %w", err)
	}

	return nil
}
