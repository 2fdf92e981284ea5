package api_gateway

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/noblepay-ledger/internal/api_gateway/handler"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handlers groups the HTTP handlers mounted by setupRouter
type handlers struct {
	accounts  *handler.AccountHandler
	movements *handler.MovementHandler
	entries   *handler.EntryHandler
	directory *handler.DirectoryHandler
	orders    *handler.OrderHandler
}

// setupRouter configures API routes and middleware for the application.
// limiter may be nil, which disables throttling.
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	h handlers,
	limiter middleware.Limiter,
	checks map[string]HealthCheck,
	metricsPath string,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger, "/health", metricsPath))
	r.Use(middleware.Metrics())

	// API v1 endpoints, all scoped to the authenticated owner
	v1 := r.Group("/api/v1")
	v1.Use(middleware.OwnerID())
	if limiter != nil {
		v1.Use(middleware.RateLimit(limiter))
	}
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", h.accounts.Create)
			accounts.GET("", h.accounts.List)
			accounts.GET("/:id/balance", h.accounts.Balance)
			accounts.POST("/:id/deactivate", h.accounts.Deactivate)
			accounts.POST("/:id/fund", h.accounts.Fund)
			accounts.GET("/:id/entries", h.entries.GetByAccountID)
		}

		entries := v1.Group("/entries")
		{
			entries.GET("", h.entries.List)
			entries.GET("/:reference", h.entries.GetByReference)
		}

		transfers := v1.Group("/transfers")
		{
			transfers.POST("", h.movements.Transfer)
			transfers.GET("", h.entries.ListKind(ledger.KindTransfer))
		}

		bills := v1.Group("/bills")
		{
			bills.GET("/providers", h.directory.BillProviders)
			bills.POST("/payments", h.movements.PayBill)
			bills.GET("/payments", h.entries.ListKind(ledger.KindBill))
		}

		mobileMoney := v1.Group("/mobile-money")
		{
			mobileMoney.GET("/providers", h.directory.MobileMoneyProviders)
			mobileMoney.POST("/topups", h.movements.TopUp)
			mobileMoney.GET("/topups", h.entries.ListKind(ledger.KindTopUp))
		}

		remittances := v1.Group("/remittances")
		{
			remittances.POST("", h.movements.Remit)
			remittances.GET("", h.entries.ListKind(ledger.KindRemittance))
			remittances.GET("/rates", h.directory.Rates)
		}

		marketplace := v1.Group("/marketplace")
		{
			marketplace.GET("/products", h.directory.Products)
			marketplace.GET("/products/:id", h.directory.Product)
			marketplace.POST("/orders", h.movements.Purchase)
			marketplace.GET("/orders", h.orders.List)
		}
	}

	r.GET("/health", healthHandler(checks))

	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
}
