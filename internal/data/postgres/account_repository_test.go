package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var accountColumns = []string{"id", "owner_id", "class", "currency", "balance", "active", "version", "created_at", "updated_at"}

func accountRows(accs ...*account.Account) *pgxmock.Rows {
	rows := pgxmock.NewRows(accountColumns)
	for _, acc := range accs {
		rows.AddRow(acc.ID, acc.OwnerID, acc.Class, acc.Currency, acc.Balance, acc.Active, acc.Version, acc.CreatedAt, acc.UpdatedAt)
	}
	return rows
}

func sampleAccount() *account.Account {
	now := time.Now().UTC()
	return &account.Account{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Class:     account.ClassWallet,
		Currency:  "USD",
		Balance:   decimal.RequireFromString("1000.00"),
		Active:    true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newAccountRepoMock(t *testing.T) (*AccountRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &AccountRepository{querier: mock, logger: newTestLogger()}, mock
}

func TestAccountRepository_Create(t *testing.T) {
	acc := sampleAccount()
	args := []interface{}{acc.ID, acc.OwnerID, acc.Class, acc.Currency, acc.Balance, acc.Active, acc.Version, acc.CreatedAt, acc.UpdatedAt}
	dbErr := errors.New("db error")

	tests := []struct {
		name    string
		execErr error
		check   func(t *testing.T, err error)
	}{
		{
			name:  "stored",
			check: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:    "duplicate owner class currency",
			execErr: &pgconn.PgError{Code: "23505", ConstraintName: accountOwnerClassCurrencyKey},
			check: func(t *testing.T, err error) {
				var dup account.ErrDuplicateAccount
				require.ErrorAs(t, err, &dup)
				assert.Equal(t, acc.OwnerID, dup.OwnerID)
				assert.Equal(t, account.ClassWallet, dup.Class)
				assert.Equal(t, "USD", dup.Currency)
			},
		},
		{
			name:    "unique violation on another constraint",
			execErr: &pgconn.PgError{Code: "23505", ConstraintName: "accounts_pkey"},
			check: func(t *testing.T, err error) {
				assert.NotErrorIs(t, err, account.ErrDuplicateAccount{})
				assert.ErrorContains(t, err, "failed to create account")
			},
		},
		{
			name:    "database error",
			execErr: dbErr,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, dbErr)
				assert.ErrorContains(t, err, "failed to create account")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newAccountRepoMock(t)
			exp := mock.ExpectExec(regexp.QuoteMeta(insertAccountSQL)).WithArgs(args...)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			tt.check(t, repo.Create(context.Background(), acc))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepository_SingleRowReads(t *testing.T) {
	acc := sampleAccount()

	reads := []struct {
		name     string
		query    string
		args     []interface{}
		read     func(r *AccountRepository) (*account.Account, error)
		notFound error
	}{
		{
			name:     "GetByID",
			query:    accountByIDSQL,
			args:     []interface{}{acc.ID},
			read:     func(r *AccountRepository) (*account.Account, error) { return r.GetByID(context.Background(), acc.ID) },
			notFound: account.ErrAccountNotFound{AccountID: acc.ID},
		},
		{
			name:     "LockForUpdate",
			query:    lockAccountSQL,
			args:     []interface{}{acc.ID},
			read:     func(r *AccountRepository) (*account.Account, error) { return r.LockForUpdate(context.Background(), acc.ID) },
			notFound: account.ErrAccountNotFound{AccountID: acc.ID},
		},
		{
			name:  "FindPrimaryWallet",
			query: primaryWalletSQL,
			args:  []interface{}{acc.OwnerID, account.ClassWallet},
			read: func(r *AccountRepository) (*account.Account, error) {
				return r.FindPrimaryWallet(context.Background(), acc.OwnerID)
			},
			notFound: account.ErrAccountNotFound{},
		},
	}

	for _, rd := range reads {
		t.Run(rd.name+"/found", func(t *testing.T) {
			repo, mock := newAccountRepoMock(t)
			mock.ExpectQuery(regexp.QuoteMeta(rd.query)).WithArgs(rd.args...).WillReturnRows(accountRows(acc))

			got, err := rd.read(repo)
			require.NoError(t, err)
			assert.Equal(t, acc, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run(rd.name+"/not found", func(t *testing.T) {
			repo, mock := newAccountRepoMock(t)
			mock.ExpectQuery(regexp.QuoteMeta(rd.query)).WithArgs(rd.args...).WillReturnError(pgx.ErrNoRows)

			got, err := rd.read(repo)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, rd.notFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run(rd.name+"/database error", func(t *testing.T) {
			repo, mock := newAccountRepoMock(t)
			dbErr := errors.New("connection reset")
			mock.ExpectQuery(regexp.QuoteMeta(rd.query)).WithArgs(rd.args...).WillReturnError(dbErr)

			got, err := rd.read(repo)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, dbErr)
			assert.NotErrorIs(t, err, account.ErrAccountNotFound{})
		})
	}
}

func TestAccountRepository_ListByOwner(t *testing.T) {
	wallet := sampleAccount()
	savings := sampleAccount()
	savings.OwnerID = wallet.OwnerID
	savings.Class = account.ClassSavings
	query := regexp.QuoteMeta(accountsByOwnerSQL)

	t.Run("oldest first", func(t *testing.T) {
		repo, mock := newAccountRepoMock(t)
		mock.ExpectQuery(query).WithArgs(wallet.OwnerID).WillReturnRows(accountRows(wallet, savings))

		accounts, err := repo.ListByOwner(context.Background(), wallet.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, []*account.Account{wallet, savings}, accounts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no accounts is an empty list", func(t *testing.T) {
		repo, mock := newAccountRepoMock(t)
		mock.ExpectQuery(query).WithArgs(wallet.OwnerID).WillReturnRows(accountRows())

		accounts, err := repo.ListByOwner(context.Background(), wallet.OwnerID)
		require.NoError(t, err)
		assert.NotNil(t, accounts)
		assert.Empty(t, accounts)
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newAccountRepoMock(t)
		mock.ExpectQuery(query).WithArgs(wallet.OwnerID).WillReturnError(errors.New("timeout"))

		_, err := repo.ListByOwner(context.Background(), wallet.OwnerID)
		assert.ErrorContains(t, err, "failed to list accounts")
	})
}

func TestAccountRepository_UpdateBalance(t *testing.T) {
	accID := uuid.New()
	balance := decimal.RequireFromString("898.00")
	const version = 4
	query := regexp.QuoteMeta(setBalanceSQL)

	t.Run("version matches", func(t *testing.T) {
		repo, mock := newAccountRepoMock(t)
		mock.ExpectExec(query).WithArgs(balance, accID, version).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateBalance(context.Background(), accID, balance, version))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		repo, mock := newAccountRepoMock(t)
		mock.ExpectExec(query).WithArgs(balance, accID, version).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateBalance(context.Background(), accID, balance, version)
		var stale account.ErrConcurrentModification
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, accID, stale.AccountID)
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock := newAccountRepoMock(t)
		dbErr := errors.New("check constraint violated")
		mock.ExpectExec(query).WithArgs(balance, accID, version).WillReturnError(dbErr)

		err := repo.UpdateBalance(context.Background(), accID, balance, version)
		assert.ErrorIs(t, err, dbErr)
		assert.ErrorContains(t, err, "failed to update account balance")
	})
}

func TestAccountRepository_SetActive(t *testing.T) {
	repo, mock := newAccountRepoMock(t)
	accID := uuid.New()
	query := regexp.QuoteMeta(setActiveSQL)

	mock.ExpectExec(query).WithArgs(false, accID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.SetActive(context.Background(), accID, false))

	mock.ExpectExec(query).WithArgs(false, accID).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.SetActive(context.Background(), accID, false), account.ErrAccountNotFound{AccountID: accID})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_WithTx(t *testing.T) {
	repo, mock := newAccountRepoMock(t)

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	bound, ok := repo.WithTx(tx).(*AccountRepository)
	require.True(t, ok)
	assert.Equal(t, tx, bound.querier)
	assert.Same(t, repo.logger, bound.logger)
}
