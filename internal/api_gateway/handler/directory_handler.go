package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/noblepay-ledger/internal/api_gateway/service"
	"github.com/noblepay-ledger/internal/domain/provider"
)

// DirectoryHandler serves the reference data movements point at
type DirectoryHandler struct {
	directoryService service.DirectoryService
	logger           *slog.Logger
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(logger *slog.Logger, directoryService service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{
		directoryService: directoryService,
		logger:           logger,
	}
}

// BillProviders lists active bill issuers, filtered by category and country
func (h *DirectoryHandler) BillProviders(c *gin.Context) {
	h.listProviders(c, provider.KindBill)
}

// MobileMoneyProviders lists active mobile-money networks, filtered by country
func (h *DirectoryHandler) MobileMoneyProviders(c *gin.Context) {
	h.listProviders(c, provider.KindMobileMoney)
}

func (h *DirectoryHandler) listProviders(c *gin.Context, kind provider.Kind) {
	filter := provider.Filter{
		Category: c.Query("category"),
		Country:  strings.ToUpper(c.Query("country")),
	}

	providers, err := h.directoryService.ListProviders(c.Request.Context(), kind, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if providers == nil {
		providers = []*provider.Provider{}
	}
	RespondOK(c, providers)
}

// Products lists marketplace products, optionally by category
func (h *DirectoryHandler) Products(c *gin.Context) {
	products, err := h.directoryService.ListProducts(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, products)
}

// Product returns one product with its current stock. Retired products are
// still served so past orders can link to them.
func (h *DirectoryHandler) Product(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger, "product")
	if !ok {
		return
	}

	product, err := h.directoryService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, product)
}

// Rates lists the exchange rates remittances and conversions use
func (h *DirectoryHandler) Rates(c *gin.Context) {
	rates, err := h.directoryService.ListRates(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, rates)
}
