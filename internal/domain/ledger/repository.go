package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository is the authoritative entry store. Entries are inserted once and never updated.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByReference(ctx context.Context, reference string) (*Entry, error)
	WithTx(tx pgx.Tx) Repository
}

// HistoryFilter narrows a history listing. Zero fields match every entry.
type HistoryFilter struct {
	Kind   Kind
	Status Status
}

// Validate rejects a kind or status the ledger does not know
func (f HistoryFilter) Validate() error {
	if f.Kind != "" && !f.Kind.Valid() {
		return ErrInvalidKind
	}
	if f.Status != "" && !f.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ReadModel is the projected entry history used for listing
type ReadModel interface {
	Upsert(ctx context.Context, entry *Entry) error
	GetByReference(ctx context.Context, reference string) (*Entry, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, filter HistoryFilter, limit, offset int) ([]*Entry, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID, filter HistoryFilter) (int64, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID, filter HistoryFilter, limit, offset int) ([]*Entry, error)
	CountByOwnerID(ctx context.Context, ownerID uuid.UUID, filter HistoryFilter) (int64, error)
}

// FailureLog keeps failed movement attempts for audit; they never reach the ledger
type FailureLog interface {
	Record(ctx context.Context, entry *Entry) error
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	Reference string
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.Reference
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target Reference is empty, consider it a match for any ErrEntryNotFound
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}

// ErrDuplicateReference indicates a reference uniqueness violation
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "duplicate ledger reference: " + e.Reference
}

// Is implements the errors.Is interface for ErrDuplicateReference
func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}

// ErrInvalidTransition indicates a status change the lifecycle does not allow
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid entry transition from %s to %s", e.From, e.To)
}
