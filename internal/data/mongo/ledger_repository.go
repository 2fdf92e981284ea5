package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noblepay-ledger/internal/domain/ledger"
)

const (
	// LedgerCollectionName is the name of the projected ledger collection in MongoDB
	LedgerCollectionName = "ledger_entries"
)

// LedgerRepository implements the ledger.ReadModel interface for MongoDB.
// Documents are keyed by reference so replays of the same event overwrite in place.
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger read model
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the reference, account and owner indexes the queries rely on
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(LedgerCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		r.logger.Error("Failed to create ledger indexes", "error", err)
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}

	return nil
}

// Upsert stores the projected entry, replacing any earlier projection of the same reference
func (r *LedgerRepository) Upsert(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(LedgerCollectionName)

	doc, err := newEntryDocument(entry)
	if err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}

	filter := bson.M{"reference": entry.Reference}
	opts := options.Replace().SetUpsert(true)
	if _, err := collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		r.logger.Error("Failed to upsert ledger entry",
			"reference", entry.Reference,
			"error", err)
		return fmt.Errorf("failed to upsert ledger entry: %w", err)
	}

	return nil
}

// GetByAccountID retrieves paginated entries for an account, newest first
func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, filter ledger.HistoryFilter, limit, offset int) ([]*ledger.Entry, error) {
	return r.find(ctx, historyQuery("account_id", accountID, filter), limit, offset)
}

// CountByAccountID counts the projected entries of an account
func (r *LedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID, filter ledger.HistoryFilter) (int64, error) {
	return r.count(ctx, historyQuery("account_id", accountID, filter))
}

// GetByOwnerID retrieves paginated entries across all of an owner's accounts, newest first
func (r *LedgerRepository) GetByOwnerID(ctx context.Context, ownerID uuid.UUID, filter ledger.HistoryFilter, limit, offset int) ([]*ledger.Entry, error) {
	return r.find(ctx, historyQuery("owner_id", ownerID, filter), limit, offset)
}

// CountByOwnerID counts the projected entries of an owner
func (r *LedgerRepository) CountByOwnerID(ctx context.Context, ownerID uuid.UUID, filter ledger.HistoryFilter) (int64, error) {
	return r.count(ctx, historyQuery("owner_id", ownerID, filter))
}

// historyQuery scopes a listing to one account or owner plus the optional kind and status
func historyQuery(scope string, id uuid.UUID, filter ledger.HistoryFilter) bson.M {
	query := bson.M{scope: id.String()}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}

func (r *LedgerRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries", "filter", filter, "error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode ledger entries", "filter", filter, "error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	entries := make([]*ledger.Entry, 0, len(docs))
	for i := range docs {
		entry, err := docs[i].toEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to decode ledger entry %s: %w", docs[i].Reference, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (r *LedgerRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "filter", filter, "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// GetByReference returns the projected entry. Reference lookups fall back to it
// when the authoritative store cannot answer.
func (r *LedgerRepository) GetByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	var doc entryDocument
	err := collection.FindOne(ctx, bson.M{"reference": reference}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get ledger entry",
			"reference", reference,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return doc.toEntry()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
