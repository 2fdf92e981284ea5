package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/provider"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var providerColumns = []string{"id", "name", "kind", "category", "countries", "active"}

func TestProviderRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProviderRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()
	query := `FROM providers WHERE id = \$1`

	mock.ExpectQuery(query).WithArgs(id).WillReturnRows(
		pgxmock.NewRows(providerColumns).AddRow(id, "EKEDC", provider.KindBill, "electricity", []string{"NG"}, true))
	p, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "EKEDC", p.Name)
	assert.Equal(t, provider.KindBill, p.Kind)
	assert.Equal(t, []string{"NG"}, p.Countries)

	mock.ExpectQuery(query).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, provider.ErrProviderNotFound{ProviderID: id})

	dbErr := errors.New("connection reset")
	mock.ExpectQuery(query).WithArgs(id).WillReturnError(dbErr)
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, dbErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderRepository_List(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ProviderRepository{querier: mock, logger: newTestLogger()}
	query := `FROM providers WHERE kind = \$1 AND active = TRUE`

	mock.ExpectQuery(query).
		WithArgs(provider.KindMobileMoney, "", "KE").
		WillReturnRows(pgxmock.NewRows(providerColumns).
			AddRow(uuid.New(), "Airtel Money", provider.KindMobileMoney, "", []string{"KE", "UG"}, true).
			AddRow(uuid.New(), "M-Pesa", provider.KindMobileMoney, "", []string{"KE", "TZ"}, true))

	providers, err := repo.List(ctx, provider.KindMobileMoney, provider.Filter{Country: "KE"})
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "M-Pesa", providers[1].Name)

	mock.ExpectQuery(query).WithArgs(provider.KindBill, "", "").WillReturnError(errors.New("db down"))
	_, err = repo.List(ctx, provider.KindBill, provider.Filter{})
	assert.ErrorContains(t, err, "failed to list providers")

	assert.NoError(t, mock.ExpectationsWereMet())
}
