package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/domain/ledger"
)

// EntryServiceImpl implements the EntryService interface. Lookups by reference
// hit the authoritative store; listings read the projection.
type EntryServiceImpl struct {
	ledgerRepo  ledger.Repository
	readModel   ledger.ReadModel
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewEntryService creates a new entry service
func NewEntryService(logger *slog.Logger, ledgerRepo ledger.Repository, readModel ledger.ReadModel, accountRepo account.Repository) EntryService {
	return &EntryServiceImpl{
		ledgerRepo:  ledgerRepo,
		readModel:   readModel,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// GetEntryByReference returns nil when the reference is unknown or not the owner's.
// If Postgres cannot answer, the projection is consulted before giving up.
func (s *EntryServiceImpl) GetEntryByReference(ctx context.Context, ownerID uuid.UUID, reference string) (*ledger.Entry, error) {
	entry, err := s.ledgerRepo.GetByReference(ctx, reference)
	switch {
	case errors.Is(err, ledger.ErrEntryNotFound{}):
		s.logger.Info("Entry not found", "reference", reference)
		return nil, nil
	case err != nil:
		s.logger.Error("Failed to get entry by reference", "reference", reference, "error", err)
		entry = s.projectedEntry(ctx, reference)
		if entry == nil {
			return nil, err
		}
	}

	if entry.OwnerID != ownerID {
		s.logger.Warn("Entry requested by another owner", "reference", reference, "owner_id", ownerID.String())
		return nil, nil
	}
	return entry, nil
}

// projectedEntry reads the reference from the projection, nil if it has no answer either
func (s *EntryServiceImpl) projectedEntry(ctx context.Context, reference string) *ledger.Entry {
	entry, err := s.readModel.GetByReference(ctx, reference)
	if err != nil {
		s.logger.Warn("Projection lookup failed", "reference", reference, "error", err)
		return nil
	}
	s.logger.Warn("Served entry from projection", "reference", reference)
	return entry
}

// GetEntriesByAccountID checks ownership before reading the projection
func (s *EntryServiceImpl) GetEntriesByAccountID(ctx context.Context, ownerID, accountID uuid.UUID, filter ledger.HistoryFilter, page, perPage int) ([]*ledger.Entry, int64, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	if acc.OwnerID != ownerID {
		return nil, 0, account.ErrAccountNotFound{AccountID: accountID}
	}

	offset := (page - 1) * perPage
	entries, err := s.readModel.GetByAccountID(ctx, accountID, filter, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.readModel.CountByAccountID(ctx, accountID, filter)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GetEntriesByOwnerID reads the owner's projected history, newest first
func (s *EntryServiceImpl) GetEntriesByOwnerID(ctx context.Context, ownerID uuid.UUID, filter ledger.HistoryFilter, page, perPage int) ([]*ledger.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.readModel.GetByOwnerID(ctx, ownerID, filter, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.readModel.CountByOwnerID(ctx, ownerID, filter)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
