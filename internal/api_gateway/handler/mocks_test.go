package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/domain/fx"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/domain/provider"
	"github.com/noblepay-ledger/internal/movement"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, ownerID uuid.UUID, class account.Class, currency string) (*account.Account, error) {
	args := m.Called(ctx, ownerID, class, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountService) DeactivateAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, ownerID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

type MockMovementService struct {
	mock.Mock
}

func (m *MockMovementService) result(args mock.Arguments) (*movement.Result, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.Result), args.Error(1)
}

func (m *MockMovementService) Fund(ctx context.Context, req movement.FundRequest) (*movement.Result, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockMovementService) Transfer(ctx context.Context, req movement.TransferRequest) (*movement.Result, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockMovementService) PayBill(ctx context.Context, req movement.BillPaymentRequest) (*movement.Result, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockMovementService) TopUpMobile(ctx context.Context, req movement.TopUpRequest) (*movement.Result, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockMovementService) Remit(ctx context.Context, req movement.RemitRequest) (*movement.Result, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockMovementService) Purchase(ctx context.Context, req movement.PurchaseRequest) (*movement.Result, error) {
	return m.result(m.Called(ctx, req))
}

func (m *MockMovementService) GetBalance(ctx context.Context, ownerID, accountID uuid.UUID) (*movement.Balance, error) {
	args := m.Called(ctx, ownerID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.Balance), args.Error(1)
}

type MockEntryService struct {
	mock.Mock
}

func (m *MockEntryService) GetEntryByReference(ctx context.Context, ownerID uuid.UUID, reference string) (*ledger.Entry, error) {
	args := m.Called(ctx, ownerID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockEntryService) GetEntriesByAccountID(ctx context.Context, ownerID, accountID uuid.UUID, filter ledger.HistoryFilter, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, ownerID, accountID, filter, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockEntryService) GetEntriesByOwnerID(ctx context.Context, ownerID uuid.UUID, filter ledger.HistoryFilter, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, ownerID, filter, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

type MockDirectoryService struct {
	mock.Mock
}

func (m *MockDirectoryService) ListProviders(ctx context.Context, kind provider.Kind, filter provider.Filter) ([]*provider.Provider, error) {
	args := m.Called(ctx, kind, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*provider.Provider), args.Error(1)
}

func (m *MockDirectoryService) ListProducts(ctx context.Context, category string) ([]*catalog.Product, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*catalog.Product), args.Error(1)
}

func (m *MockDirectoryService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockDirectoryService) ListRates(ctx context.Context) ([]*fx.Rate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*fx.Rate), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) ListOrders(ctx context.Context, ownerID uuid.UUID, page, perPage int) ([]*catalog.Order, int64, error) {
	args := m.Called(ctx, ownerID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*catalog.Order), args.Get(1).(int64), args.Error(2)
}

// setupTestRouter returns a router that authenticates every request as ownerID
func setupTestRouter(t *testing.T, ownerID uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.OwnerIDKey, ownerID.String())
		c.Next()
	})
	return r
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the envelope and then its data field into out
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) Response {
	t.Helper()
	var envelope Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope), "Failed to unmarshal top-level response")
	if out != nil {
		require.NotNil(t, envelope.Data, "'data' field should not be nil")
		dataBytes, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(dataBytes, out))
	}
	return envelope
}
