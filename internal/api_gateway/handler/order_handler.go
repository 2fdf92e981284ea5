package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/api_gateway/service"
	"github.com/noblepay-ledger/internal/domain/catalog"
)

// OrderHandler serves the caller's marketplace order history
type OrderHandler struct {
	orderService service.OrderService
	logger       *slog.Logger
}

func NewOrderHandler(logger *slog.Logger, orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// List pages through the caller's orders, newest first
func (h *OrderHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), middleware.GetOwnerID(c), pagination.Page, pagination.PerPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if orders == nil {
		orders = []*catalog.Order{}
	}

	RespondPage(c, orders, pagination, total)
}
