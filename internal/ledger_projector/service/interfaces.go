package service

import (
	"context"

	"github.com/noblepay-ledger/internal/domain/ledger"
)

// ProjectionService applies a completed entry to the read model
type ProjectionService interface {
	Project(ctx context.Context, entry *ledger.Entry) error
}
