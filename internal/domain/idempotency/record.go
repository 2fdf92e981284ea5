// Package idempotency stores the outcome of a keyed request so a retry with the
// same key replays the first result instead of moving money twice.
package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Record is the committed outcome of one keyed operation
type Record struct {
	OwnerID   uuid.UUID       `json:"owner_id"`
	Key       string          `json:"key"`
	Operation string          `json:"operation"`
	Reference string          `json:"reference"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// Repository is the durable record store
type Repository interface {
	// Get returns the record, or nil when the key is unused
	Get(ctx context.Context, ownerID uuid.UUID, key string) (*Record, error)
	// Create inserts the record; a concurrent insert of the same key yields ErrKeyConflict
	Create(ctx context.Context, record *Record) error
	WithTx(tx pgx.Tx) Repository
}

// Cache is a best-effort fast path in front of Repository
type Cache interface {
	Get(ctx context.Context, ownerID uuid.UUID, key string) (*Record, error)
	Set(ctx context.Context, record *Record) error
}

// ErrKeyConflict indicates another request committed the same key first
type ErrKeyConflict struct {
	Key string
}

func (e ErrKeyConflict) Error() string {
	return "idempotency key already used: " + e.Key
}

// Is matches any ErrKeyConflict when the target carries no key
func (e ErrKeyConflict) Is(target error) bool {
	t, ok := target.(ErrKeyConflict)
	if !ok {
		return false
	}
	return t.Key == "" || t.Key == e.Key
}
