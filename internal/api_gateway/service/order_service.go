package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/catalog"
)

// OrderServiceImpl implements the OrderService interface
type OrderServiceImpl struct {
	orders catalog.OrderRepository
	logger *slog.Logger
}

func NewOrderService(logger *slog.Logger, orders catalog.OrderRepository) OrderService {
	return &OrderServiceImpl{orders: orders, logger: logger}
}

func (s *OrderServiceImpl) ListOrders(ctx context.Context, ownerID uuid.UUID, page, perPage int) ([]*catalog.Order, int64, error) {
	orders, err := s.orders.ListByOwner(ctx, ownerID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orders.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	s.logger.Debug("Listed orders", "owner_id", ownerID.String(), "page", page, "count", len(orders))
	return orders, total, nil
}
