package account

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewAccount(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		ownerID := uuid.New()

		beforeCreation := time.Now()
		acc, err := NewAccount(ownerID, ClassWallet, "ngn")
		require.NoError(t, err)
		require.NotNil(t, acc)

		assert.NotEqual(t, uuid.Nil, acc.ID, "Account ID should not be nil")
		assert.Equal(t, ownerID, acc.OwnerID)
		assert.Equal(t, ClassWallet, acc.Class)
		assert.Equal(t, "NGN", acc.Currency)
		assert.True(t, acc.Balance.IsZero())
		assert.True(t, acc.Active)
		assert.Equal(t, 1, acc.Version, "Initial version should be 1")
		assert.WithinDuration(t, beforeCreation, acc.CreatedAt, time.Second)
		assert.Equal(t, acc.CreatedAt, acc.UpdatedAt)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := NewAccount(uuid.Nil, ClassWallet, "USD")
		assert.ErrorIs(t, err, ErrEmptyOwner)

		_, err = NewAccount(uuid.New(), Class("loan"), "USD")
		assert.ErrorIs(t, err, ErrInvalidClass)

		_, err = NewAccount(uuid.New(), ClassSavings, "EUR")
		assert.ErrorIs(t, err, shared.ErrInvalidCurrency)
	})
}

func TestAccount_Credit(t *testing.T) {
	acc := &Account{ID: uuid.New(), Balance: dec("50.00"), Currency: "USD", Active: true, Version: 1}

	require.NoError(t, acc.Credit(dec("20.50")))
	assert.True(t, acc.Balance.Equal(dec("70.50")))
	assert.Equal(t, 2, acc.Version)

	assert.ErrorIs(t, acc.Credit(decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, acc.Credit(dec("-1")), ErrInvalidAmount)

	acc.Deactivate()
	err := acc.Credit(dec("1"))
	assert.ErrorIs(t, err, ErrAccountInactive{})
	assert.ErrorIs(t, err, ErrAccountInactive{AccountID: acc.ID})
}

func TestAccount_Debit(t *testing.T) {
	t.Run("SuccessfulDebit", func(t *testing.T) {
		acc := &Account{ID: uuid.New(), Balance: dec("1000"), Currency: "USD", Active: true, Version: 3}

		require.NoError(t, acc.Debit(dec("102.00")))
		assert.True(t, acc.Balance.Equal(dec("898")))
		assert.Equal(t, 4, acc.Version)
	})

	t.Run("ExactBalance", func(t *testing.T) {
		acc := &Account{ID: uuid.New(), Balance: dec("75"), Active: true}
		require.NoError(t, acc.Debit(dec("75")))
		assert.True(t, acc.Balance.IsZero())
	})

	t.Run("InsufficientFundsLeavesBalance", func(t *testing.T) {
		acc := &Account{ID: uuid.New(), Balance: dec("50"), Currency: "USD", Active: true, Version: 1}

		err := acc.Debit(dec("75"))
		require.Error(t, err)

		var insufficient ErrInsufficientFunds
		require.True(t, errors.As(err, &insufficient))
		assert.True(t, insufficient.Required.Equal(dec("75")))
		assert.True(t, insufficient.Available.Equal(dec("50")))
		assert.Equal(t, "USD", insufficient.Currency)
		assert.Equal(t, "insufficient funds: required 75.00 USD, available 50.00 USD", err.Error())

		assert.True(t, acc.Balance.Equal(dec("50")))
		assert.Equal(t, 1, acc.Version)
	})

	t.Run("InactiveAccount", func(t *testing.T) {
		acc := &Account{ID: uuid.New(), Balance: dec("50"), Active: false}
		assert.ErrorIs(t, acc.Debit(dec("1")), ErrAccountInactive{})
	})
}

func TestAccount_Deactivate(t *testing.T) {
	acc := &Account{ID: uuid.New(), Active: true, Version: 1}
	acc.Deactivate()
	assert.False(t, acc.Active)
	assert.Equal(t, 2, acc.Version)

	acc.Deactivate()
	assert.Equal(t, 2, acc.Version, "deactivating twice is a no-op")
}

func TestErrorMatching(t *testing.T) {
	id := uuid.New()

	assert.ErrorIs(t, ErrAccountNotFound{AccountID: id}, ErrAccountNotFound{})
	assert.ErrorIs(t, ErrAccountNotFound{AccountID: id}, ErrAccountNotFound{AccountID: id})
	assert.NotErrorIs(t, ErrAccountNotFound{AccountID: id}, ErrAccountNotFound{AccountID: uuid.New()})

	dup := ErrDuplicateAccount{OwnerID: id, Class: ClassWallet, Currency: "USD"}
	assert.ErrorIs(t, dup, ErrDuplicateAccount{})
	assert.Equal(t, "owner already has a wallet account in USD", dup.Error())
}
