package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/domain/account"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(logger *slog.Logger, accountRepo account.Repository) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// CreateAccount opens an account. The repository enforces one account per owner, class and currency.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, ownerID uuid.UUID, class account.Class, currency string) (*account.Account, error) {
	acc, err := account.NewAccount(ownerID, class, currency)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "acc_id", acc.ID.String(), "owner_id", ownerID.String(), "class", string(class), "currency", acc.Currency, "correlation_id", middleware.CorrelationIDFromContext(ctx))
	return acc, nil
}

// ListAccounts returns the owner's accounts
func (s *AccountServiceImpl) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	return s.accountRepo.ListByOwner(ctx, ownerID)
}

// DeactivateAccount marks the account inactive. Deactivating twice is a no-op.
func (s *AccountServiceImpl) DeactivateAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*account.Account, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.OwnerID != ownerID {
		return nil, account.ErrAccountNotFound{AccountID: accountID}
	}
	if !acc.Active {
		return acc, nil
	}

	if err := s.accountRepo.SetActive(ctx, accountID, false); err != nil {
		return nil, err
	}
	acc.Deactivate()

	s.logger.Info("Account deactivated", "acc_id", accountID.String(), "owner_id", ownerID.String(), "correlation_id", middleware.CorrelationIDFromContext(ctx))
	return acc, nil
}
