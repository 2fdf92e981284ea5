package movement

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/shopspring/decimal"
)

// BalanceMutator is the only writer of account balances. Every call must run
// inside the orchestrator's transaction with a repository bound to it.
type BalanceMutator struct {
	logger *slog.Logger
}

func NewBalanceMutator(logger *slog.Logger) *BalanceMutator {
	return &BalanceMutator{logger: logger}
}

// Lock takes row locks on the accounts in ascending ID order, so two units
// locking the same pair can never wait on each other. Repeated IDs are locked once.
func (m *BalanceMutator) Lock(ctx context.Context, accounts account.Repository, ids ...uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	ordered := slices.Clone(ids)
	slices.SortFunc(ordered, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	ordered = slices.Compact(ordered)

	locked := make(map[uuid.UUID]*account.Account, len(ordered))
	for _, id := range ordered {
		acc, err := accounts.LockForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				m.logger.Warn("Account not found for lock", "acc_id", id.String())
				return nil, err
			}
			m.logger.Error("Failed to lock account", "acc_id", id.String(), "error", err)
			return nil, fmt.Errorf("failed to lock account %s: %w", id.String(), err)
		}
		m.logger.Debug("Account locked", "acc_id", acc.ID.String(), "bal", acc.Balance, "ver", acc.Version)
		locked[id] = acc
	}
	return locked, nil
}

// Debit takes amount out of a locked account and persists the new balance.
// It fails with ErrInsufficientFunds or ErrAccountInactive without writing.
func (m *BalanceMutator) Debit(ctx context.Context, accounts account.Repository, acc *account.Account, amount decimal.Decimal) (decimal.Decimal, error) {
	version := acc.Version
	if err := acc.Debit(amount); err != nil {
		m.logger.Warn("Debit refused", "acc_id", acc.ID.String(), "bal", acc.Balance, "amt", amount, "error", err)
		return decimal.Zero, err
	}
	if err := m.persist(ctx, accounts, acc, version); err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// Credit adds amount to a locked account and persists the new balance
func (m *BalanceMutator) Credit(ctx context.Context, accounts account.Repository, acc *account.Account, amount decimal.Decimal) (decimal.Decimal, error) {
	version := acc.Version
	if err := acc.Credit(amount); err != nil {
		m.logger.Warn("Credit refused", "acc_id", acc.ID.String(), "amt", amount, "error", err)
		return decimal.Zero, err
	}
	if err := m.persist(ctx, accounts, acc, version); err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

func (m *BalanceMutator) persist(ctx context.Context, accounts account.Repository, acc *account.Account, version int) error {
	if err := accounts.UpdateBalance(ctx, acc.ID, acc.Balance, version); err != nil {
		if errors.Is(err, account.ErrConcurrentModification{AccountID: acc.ID}) {
			m.logger.Warn("Concurrent modification on balance update", "acc_id", acc.ID.String())
		} else {
			m.logger.Error("Failed to update account balance", "acc_id", acc.ID.String(), "error", err)
		}
		return err
	}
	m.logger.Debug("Account balance updated", "acc_id", acc.ID.String(), "new_bal", acc.Balance, "new_ver", acc.Version)
	return nil
}
