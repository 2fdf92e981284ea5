package movement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"
	"testing"
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
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/noblepay-ledger/internal/reference"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memState is everything a unit can write. Values are stored by copy so a
// snapshot can be restored when the unit fails.
type memState struct {
	accounts map[uuid.UUID]account.Account
	entries  map[string]ledger.Entry
	outbox   []outbox.Message
	products map[uuid.UUID]catalog.Product
	orders   []catalog.Order
	keys     map[string]idempotency.Record
}

func (s memState) clone() memState {
	return memState{
		accounts: maps.Clone(s.accounts),
		entries:  maps.Clone(s.entries),
		outbox:   append([]outbox.Message(nil), s.outbox...),
		products: maps.Clone(s.products),
		orders:   append([]catalog.Order(nil), s.orders...),
		keys:     maps.Clone(s.keys),
	}
}

// memStore is a transactional test double. Units are serialized by txMu,
// which stands in for row locks, and rolled back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	state     memState
	providers map[uuid.UUID]provider.Provider
	rates     map[string]fx.Rate
	failures  []*ledger.Entry
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			accounts: map[uuid.UUID]account.Account{},
			entries:  map[string]ledger.Entry{},
			products: map[uuid.UUID]catalog.Product{},
			keys:     map[string]idempotency.Record{},
		},
		providers: map[uuid.UUID]provider.Provider{},
		rates:     map[string]fx.Rate{},
	}
}

func (s *memStore) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) addAccount(t *testing.T, owner uuid.UUID, class account.Class, currency string, balance string) *account.Account {
	t.Helper()
	acc, err := account.NewAccount(owner, class, currency)
	require.NoError(t, err)
	acc.Balance = decimal.RequireFromString(balance)
	// Distinct creation times keep primary-wallet selection deterministic
	acc.CreatedAt = acc.CreatedAt.Add(time.Duration(len(s.state.accounts)) * time.Millisecond)
	s.mu.Lock()
	s.state.accounts[acc.ID] = *acc
	s.mu.Unlock()
	return acc
}

func (s *memStore) addProvider(name string, kind provider.Kind, active bool) *provider.Provider {
	p := provider.Provider{ID: uuid.New(), Name: name, Kind: kind, Active: active}
	s.providers[p.ID] = p
	return &p
}

func (s *memStore) addProduct(name, price, currency string, stock int) *catalog.Product {
	p := catalog.Product{
		ID:       uuid.New(),
		Name:     name,
		Category: "Electronics",
		Price:    decimal.RequireFromString(price),
		Currency: currency,
		Stock:    stock,
		Active:   true,
	}
	s.mu.Lock()
	s.state.products[p.ID] = p
	s.mu.Unlock()
	return &p
}

func (s *memStore) addRate(base, quote, rate string) {
	s.rates[base+"/"+quote] = fx.Rate{Base: base, Quote: quote, Rate: decimal.RequireFromString(rate)}
}

func (s *memStore) balance(id uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.accounts[id].Balance
}

func (s *memStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.products[id].Stock
}

func (s *memStore) entriesFor(accountID uuid.UUID) []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Entry
	for _, e := range s.state.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.entries)
}

func (s *memStore) outboxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.outbox)
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.orders)
}

func (s *memStore) failureLog() []*ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ledger.Entry(nil), s.failures...)
}

// account.Repository

type memAccounts struct{ s *memStore }

func (r memAccounts) WithTx(pgx.Tx) account.Repository { return r }

func (r memAccounts) Create(ctx context.Context, acc *account.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.state.accounts {
		if existing.OwnerID == acc.OwnerID && existing.Class == acc.Class && existing.Currency == acc.Currency {
			return account.ErrDuplicateAccount{OwnerID: acc.OwnerID, Class: acc.Class, Currency: acc.Currency}
		}
	}
	r.s.state.accounts[acc.ID] = *acc
	return nil
}

func (r memAccounts) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acc, ok := r.s.state.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &acc, nil
}

func (r memAccounts) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*account.Account
	for _, acc := range r.s.state.accounts {
		if acc.OwnerID == ownerID {
			acc := acc
			out = append(out, &acc)
		}
	}
	return out, nil
}

func (r memAccounts) FindPrimaryWallet(ctx context.Context, ownerID uuid.UUID) (*account.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var primary *account.Account
	for _, acc := range r.s.state.accounts {
		if acc.OwnerID != ownerID || acc.Class != account.ClassWallet || !acc.Active {
			continue
		}
		if primary == nil || acc.CreatedAt.Before(primary.CreatedAt) {
			acc := acc
			primary = &acc
		}
	}
	if primary == nil {
		return nil, account.ErrAccountNotFound{}
	}
	return primary, nil
}

func (r memAccounts) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, version int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acc, ok := r.s.state.accounts[id]
	if !ok || acc.Version != version {
		return account.ErrConcurrentModification{AccountID: id}
	}
	if balance.IsNegative() {
		return errors.New("balance check constraint violated")
	}
	acc.Balance = balance
	acc.Version++
	r.s.state.accounts[id] = acc
	return nil
}

func (r memAccounts) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acc, ok := r.s.state.accounts[id]
	if !ok {
		return account.ErrAccountNotFound{AccountID: id}
	}
	acc.Active = active
	acc.Version++
	r.s.state.accounts[id] = acc
	return nil
}

func (r memAccounts) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

// ledger.Repository

type memEntries struct{ s *memStore }

func (r memEntries) WithTx(pgx.Tx) ledger.Repository { return r }

func (r memEntries) Create(ctx context.Context, entry *ledger.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.state.entries[entry.Reference]; exists {
		return ledger.ErrDuplicateReference{Reference: entry.Reference}
	}
	r.s.state.entries[entry.Reference] = *entry
	return nil
}

func (r memEntries) GetByReference(ctx context.Context, ref string) (*ledger.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.state.entries[ref]
	if !ok {
		return nil, ledger.ErrEntryNotFound{Reference: ref}
	}
	return &e, nil
}

// outbox.Repository

type memOutbox struct{ s *memStore }

func (r memOutbox) WithTx(pgx.Tx) outbox.Repository { return r }

func (r memOutbox) Create(ctx context.Context, m *outbox.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	m.ID = r.s.nextID
	r.s.state.outbox = append(r.s.state.outbox, *m)
	return nil
}

func (r memOutbox) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return nil, nil
}

func (r memOutbox) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return nil
}

func (r memOutbox) IncrementAttempts(ctx context.Context, id int64) error { return nil }

func (r memOutbox) CountPending(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.state.outbox)), nil
}

// provider.Repository

type memProviders struct{ s *memStore }

func (r memProviders) GetByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	p, ok := r.s.providers[id]
	if !ok {
		return nil, provider.ErrProviderNotFound{ProviderID: id}
	}
	return &p, nil
}

func (r memProviders) List(ctx context.Context, kind provider.Kind, filter provider.Filter) ([]*provider.Provider, error) {
	var out []*provider.Provider
	for _, p := range r.s.providers {
		if p.Kind == kind && p.Active {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

// catalog.ProductRepository

type memProducts struct{ s *memStore }

func (r memProducts) WithTx(pgx.Tx) catalog.ProductRepository { return r }

func (r memProducts) List(ctx context.Context, category string) ([]*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*catalog.Product
	for _, p := range r.s.state.products {
		p := p
		out = append(out, &p)
	}
	return out, nil
}

func (r memProducts) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.state.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound{ProductID: id}
	}
	return &p, nil
}

func (r memProducts) LockForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.GetByID(ctx, id)
}

func (r memProducts) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.state.products[id]
	if !ok {
		return catalog.ErrProductNotFound{ProductID: id}
	}
	p.Stock = stock
	r.s.state.products[id] = p
	return nil
}

// catalog.OrderRepository

type memOrders struct{ s *memStore }

func (r memOrders) WithTx(pgx.Tx) catalog.OrderRepository { return r }

func (r memOrders) Create(ctx context.Context, order *catalog.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.state.orders = append(r.s.state.orders, *order)
	return nil
}

func (r memOrders) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*catalog.Order, error) {
	return nil, errors.New("not used by the orchestrator")
}

func (r memOrders) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return 0, errors.New("not used by the orchestrator")
}

// fx.Repository

type memRates struct{ s *memStore }

func (r memRates) WithTx(pgx.Tx) fx.Repository { return r }

func (r memRates) Get(ctx context.Context, base, quote string) (*fx.Rate, error) {
	rate, ok := r.s.rates[base+"/"+quote]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (r memRates) List(ctx context.Context) ([]*fx.Rate, error) {
	var out []*fx.Rate
	for _, rate := range r.s.rates {
		rate := rate
		out = append(out, &rate)
	}
	return out, nil
}

// idempotency.Repository

type memKeys struct{ s *memStore }

func (r memKeys) WithTx(pgx.Tx) idempotency.Repository { return r }

func (r memKeys) Get(ctx context.Context, ownerID uuid.UUID, key string) (*idempotency.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.state.keys[ownerID.String()+"/"+key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r memKeys) Create(ctx context.Context, rec *idempotency.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := rec.OwnerID.String() + "/" + rec.Key
	if _, exists := r.s.state.keys[k]; exists {
		return idempotency.ErrKeyConflict{Key: rec.Key}
	}
	r.s.state.keys[k] = *rec
	return nil
}

// ledger.FailureLog

type memFailures struct{ s *memStore }

func (r memFailures) Record(ctx context.Context, entry *ledger.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.failures = append(r.s.failures, entry)
	return nil
}

// scriptedReferences hands out fixed references first, then generated ones
type scriptedReferences struct {
	mu     sync.Mutex
	queue  []string
	inner  *reference.Generator
	issued []string
}

func (g *scriptedReferences) Generate(prefix string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ref string
	if len(g.queue) > 0 {
		ref, g.queue = g.queue[0], g.queue[1:]
	} else {
		var err error
		if ref, err = g.inner.Generate(prefix); err != nil {
			return "", err
		}
	}
	g.issued = append(g.issued, ref)
	return ref, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(s *memStore, refs ReferenceGenerator) *Orchestrator {
	if refs == nil {
		refs = reference.NewGenerator()
	}
	return NewOrchestrator(Dependencies{
		Tx:          s,
		Accounts:    memAccounts{s},
		Entries:     memEntries{s},
		Outbox:      memOutbox{s},
		Providers:   memProviders{s},
		Products:    memProducts{s},
		Orders:      memOrders{s},
		Rates:       memRates{s},
		Idempotency: memKeys{s},
		Failures:    memFailures{s},
		References:  refs,
	}, Options{Fees: DefaultFeeSchedule(), MaxReferenceAttempts: 3}, newTestLogger())
}
