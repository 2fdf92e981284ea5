// Package service applies entry events to the ledger read model
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/noblepay-ledger/internal/domain/ledger"
)

// ReadModelProjectionService upserts entries into the read model by reference,
// so a redelivered event leaves one document
type ReadModelProjectionService struct {
	readModel ledger.ReadModel
	logger    *slog.Logger
}

func NewReadModelProjectionService(readModel ledger.ReadModel, logger *slog.Logger) *ReadModelProjectionService {
	return &ReadModelProjectionService{
		readModel: readModel,
		logger:    logger,
	}
}

func (s *ReadModelProjectionService) Project(ctx context.Context, entry *ledger.Entry) error {
	if err := s.readModel.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to project entry %s: %w", entry.Reference, err)
	}

	s.logger.Debug("Projected ledger entry",
		"reference", entry.Reference,
		"account_id", entry.AccountID.String(),
		"kind", entry.Kind,
	)
	return nil
}
