// Package movement is the money-movement core. Every operation resolves its
// parties, computes what the source must cover, guards the balance, mutates
// and records inside one database transaction, and either commits all of it
// or none of it.
package movement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/domain/fx"
	"github.com/noblepay-ledger/internal/domain/idempotency"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/domain/outbox"
	"github.com/noblepay-ledger/internal/domain/provider"
	"github.com/noblepay-ledger/internal/platform/metrics"
	"github.com/noblepay-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// ReferenceGenerator produces the receipt reference of a movement
type ReferenceGenerator interface {
	Generate(prefix string) (string, error)
}

// Dependencies are the storage handles the orchestrator works through.
// Cache and Failures are optional.
type Dependencies struct {
	Tx          persistence.TxManager
	Accounts    account.Repository
	Entries     ledger.Repository
	Outbox      outbox.Repository
	Providers   provider.Repository
	Products    catalog.ProductRepository
	Orders      catalog.OrderRepository
	Rates       fx.Repository
	Idempotency idempotency.Repository
	Cache       idempotency.Cache
	Failures    ledger.FailureLog
	References  ReferenceGenerator
}

// Options tune the movement rules
type Options struct {
	Fees                 FeeSchedule
	MaxReferenceAttempts int
}

// Orchestrator runs the money movements
type Orchestrator struct {
	tx          persistence.TxManager
	accounts    account.Repository
	entries     ledger.Repository
	outbox      outbox.Repository
	providers   provider.Repository
	products    catalog.ProductRepository
	orders      catalog.OrderRepository
	rates       fx.Repository
	idempotency idempotency.Repository
	cache       idempotency.Cache
	references  ReferenceGenerator

	mutator  *BalanceMutator
	recorder *entryRecorder
	failures *failureRecorder

	fees        FeeSchedule
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
}

func NewOrchestrator(deps Dependencies, opts Options, logger *slog.Logger) *Orchestrator {
	maxAttempts := opts.MaxReferenceAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Orchestrator{
		tx:          deps.Tx,
		accounts:    deps.Accounts,
		entries:     deps.Entries,
		outbox:      deps.Outbox,
		providers:   deps.Providers,
		products:    deps.Products,
		orders:      deps.Orders,
		rates:       deps.Rates,
		idempotency: deps.Idempotency,
		cache:       deps.Cache,
		references:  deps.References,
		mutator:     NewBalanceMutator(logger),
		recorder:    newEntryRecorder(logger),
		failures:    newFailureRecorder(deps.Failures, logger),
		fees:        opts.Fees,
		maxAttempts: maxAttempts,
		now:         time.Now,
		logger:      logger,
	}
}

// unit is the set of repositories bound to one transaction
type unit struct {
	accounts    account.Repository
	entries     ledger.Repository
	outbox      outbox.Repository
	products    catalog.ProductRepository
	orders      catalog.OrderRepository
	rates       fx.Repository
	idempotency idempotency.Repository
}

func (o *Orchestrator) bind(tx pgx.Tx) *unit {
	return &unit{
		accounts:    o.accounts.WithTx(tx),
		entries:     o.entries.WithTx(tx),
		outbox:      o.outbox.WithTx(tx),
		products:    o.products.WithTx(tx),
		orders:      o.orders.WithTx(tx),
		rates:       o.rates.WithTx(tx),
		idempotency: o.idempotency.WithTx(tx),
	}
}

// movement configures one run of execute. apply fills accountID, currency,
// amount and fee as it resolves them so a refusal can be audited.
type movement struct {
	operation      Operation
	kind           ledger.Kind
	direction      ledger.Direction
	prefix         string
	ownerID        uuid.UUID
	accountID      uuid.UUID
	amount         decimal.Decimal
	fee            decimal.Decimal
	currency       string
	description    string
	idempotencyKey string

	validate func() error
	apply    func(ctx context.Context, u *unit, reference string, at time.Time) (*Result, error)
}

// execute is the one algorithm behind every movement: replay a used key,
// otherwise run apply and the idempotency insert as one transaction,
// regenerating the reference when it collides.
func (o *Orchestrator) execute(ctx context.Context, m *movement) (*Result, error) {
	start := time.Now()
	logger := o.logger.With("operation", string(m.operation), "owner_id", m.ownerID.String())

	if err := m.validate(); err != nil {
		return nil, o.fail(ctx, logger, m, "", err)
	}

	if m.idempotencyKey != "" {
		replayed, err := o.replay(ctx, m)
		if err != nil {
			return nil, o.fail(ctx, logger, m, "", err)
		}
		if replayed != nil {
			metrics.Movements.WithLabelValues(string(m.operation), metrics.OutcomeReplayed).Inc()
			logger.Info("Replayed idempotent movement", "reference", replayed.Reference, "idempotency_key", m.idempotencyKey)
			return replayed, nil
		}
	}

	var (
		result    *Result
		record    *idempotency.Record
		reference string
		err       error
	)
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		reference, err = o.references.Generate(m.prefix)
		if err != nil {
			break
		}
		result, record, err = o.commit(ctx, m, reference)
		if !errors.Is(err, ledger.ErrDuplicateReference{}) {
			break
		}
		metrics.ReferenceCollisions.Inc()
		logger.Warn("Reference collision, regenerating", "reference", reference, "attempt", attempt)
	}

	if errors.Is(err, idempotency.ErrKeyConflict{}) {
		// A concurrent request with the same key committed first
		replayed, replayErr := o.replay(ctx, m)
		if replayErr != nil {
			err = replayErr
		} else if replayed != nil {
			metrics.Movements.WithLabelValues(string(m.operation), metrics.OutcomeReplayed).Inc()
			logger.Info("Replayed idempotent movement after key conflict", "reference", replayed.Reference, "idempotency_key", m.idempotencyKey)
			return replayed, nil
		}
	}
	if err != nil {
		return nil, o.fail(ctx, logger, m, reference, err)
	}

	if record != nil {
		o.cacheRecord(ctx, record)
	}

	metrics.Movements.WithLabelValues(string(m.operation), metrics.OutcomeCompleted).Inc()
	metrics.MovementDuration.WithLabelValues(string(m.operation)).Observe(time.Since(start).Seconds())
	logger.Info("Movement committed",
		"reference", result.Reference,
		"acc_id", result.AccountID.String(),
		"amount", result.Amount,
		"fee", result.Fee,
		"currency", result.Currency,
		"new_bal", result.NewBalance,
	)
	return result, nil
}

// commit runs apply and stores the idempotency record in one transaction
func (o *Orchestrator) commit(ctx context.Context, m *movement, reference string) (*Result, *idempotency.Record, error) {
	var (
		result *Result
		record *idempotency.Record
	)
	err := o.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		u := o.bind(tx)
		at := o.now().UTC()

		res, err := m.apply(ctx, u, reference, at)
		if err != nil {
			return err
		}

		if m.idempotencyKey != "" {
			payload, err := json.Marshal(res)
			if err != nil {
				return fmt.Errorf("failed to encode movement result: %w", err)
			}
			rec := &idempotency.Record{
				OwnerID:   m.ownerID,
				Key:       m.idempotencyKey,
				Operation: string(m.operation),
				Reference: res.Reference,
				Result:    payload,
				CreatedAt: at,
			}
			if err := u.idempotency.Create(ctx, rec); err != nil {
				return err
			}
			record = rec
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, record, nil
}

// replay returns the stored result for the movement's key, or nil when the key is unused
func (o *Orchestrator) replay(ctx context.Context, m *movement) (*Result, error) {
	var record *idempotency.Record
	if o.cache != nil {
		cached, err := o.cache.Get(ctx, m.ownerID, m.idempotencyKey)
		if err != nil {
			o.logger.Warn("Idempotency cache lookup failed, falling back to database", "idempotency_key", m.idempotencyKey, "error", err)
		} else {
			record = cached
		}
	}

	if record == nil {
		stored, err := o.idempotency.Get(ctx, m.ownerID, m.idempotencyKey)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, nil
		}
		record = stored
		o.cacheRecord(ctx, record)
	}

	if record.Operation != string(m.operation) {
		return nil, ValidationError{Field: "idempotency_key", Message: "already used for " + record.Operation}
	}

	var result Result
	if err := json.Unmarshal(record.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored result for key %s: %w", record.Key, err)
	}
	result.Replayed = true
	return &result, nil
}

func (o *Orchestrator) cacheRecord(ctx context.Context, record *idempotency.Record) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Set(ctx, record); err != nil {
		o.logger.Warn("Failed to cache idempotency record", "idempotency_key", record.Key, "error", err)
	}
}

// fail classifies err, audits expected refusals and wraps everything else as ErrStorageUnavailable
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, m *movement, reference string, err error) error {
	reason, expected := FailureReason(err)
	metrics.MovementFailures.WithLabelValues(string(m.operation), string(reason)).Inc()

	if !expected {
		metrics.Movements.WithLabelValues(string(m.operation), metrics.OutcomeError).Inc()
		logger.Error("Movement failed", "reference", reference, "error", err)
		if errors.Is(err, ErrStorageUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	metrics.Movements.WithLabelValues(string(m.operation), metrics.OutcomeRejected).Inc()
	logger.Warn("Movement rejected", "reference", reference, "reason", reason, "error", err)
	o.failures.recordFailure(ctx, m, reference, reason)
	return err
}

// GetBalance reads one of the owner's accounts. It takes no lock.
func (o *Orchestrator) GetBalance(ctx context.Context, ownerID, accountID uuid.UUID) (*Balance, error) {
	if ownerID == uuid.Nil {
		return nil, ValidationError{Field: "owner_id", Message: "is required"}
	}
	if accountID == uuid.Nil {
		return nil, ValidationError{Field: "account_id", Message: "is required"}
	}

	acc, err := o.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if acc.OwnerID != ownerID {
		return nil, account.ErrAccountNotFound{AccountID: accountID}
	}

	return &Balance{AccountID: acc.ID, Balance: acc.Balance, Currency: acc.Currency}, nil
}
