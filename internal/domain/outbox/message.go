package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/domain/shared"
)

// ErrNotPublishable is returned for entries that never reached completed
var ErrNotPublishable = errors.New("only completed entries are published")

// Message is one completed ledger entry waiting for the relay. It is written
// in the same transaction as the entry itself.
type Message struct {
	ID            int64               `json:"id"`
	EntryID       uuid.UUID           `json:"entry_id"`
	AccountID     uuid.UUID           `json:"account_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage snapshots a completed entry. The message is stamped with the
// entry's completion time so the outbox orders like the ledger.
func NewMessage(entry *ledger.Entry) (*Message, error) {
	if entry.Status != ledger.StatusCompleted || entry.CompletedAt == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPublishable, entry.Reference, entry.Status)
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return &Message{
		EntryID:   entry.ID,
		AccountID: entry.AccountID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: entry.CompletedAt.UTC(),
	}, nil
}

// Key partitions events by account so one account's history stays ordered
func (m *Message) Key() string {
	return m.AccountID.String()
}

// IncrementAttempts records one failed publish
func (m *Message) IncrementAttempts() {
	now := time.Now().UTC()
	m.Attempts++
	m.LastAttemptAt = &now
}

func (m *Message) ExhaustedRetries(maxAttempts int) bool {
	return m.Attempts >= maxAttempts
}

// GetLedgerEntry decodes the entry snapshot
func (m *Message) GetLedgerEntry() (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, fmt.Errorf("outbox message %d carries an undecodable entry: %w", m.ID, err)
	}
	return &entry, nil
}
