package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/api_gateway/service"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/movement"
)

// MovementHandler handles HTTP requests that move money out of the caller's accounts
type MovementHandler struct {
	movementService service.MovementService
	logger          *slog.Logger
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(logger *slog.Logger, movementService service.MovementService) *MovementHandler {
	return &MovementHandler{
		movementService: movementService,
		logger:          logger,
	}
}

// Transfer moves money to another holder's wallet
func (h *MovementHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.movementService.Transfer(c.Request.Context(), movement.TransferRequest{
		OwnerID:         middleware.GetOwnerID(c),
		SourceAccountID: optionalUUID(req.SourceAccountID),
		Destination: movement.Destination{
			AccountID: optionalUUID(req.RecipientAccountID),
			OwnerID:   optionalUUID(req.RecipientOwnerID),
		},
		Amount:         req.Amount,
		Note:           req.Note,
		Channel:        movement.Channel(req.Channel),
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	respondMovement(c, h.logger, result, err)
}

// PayBill pays a bill issuer
func (h *MovementHandler) PayBill(c *gin.Context) {
	var req BillPaymentRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.movementService.PayBill(c.Request.Context(), movement.BillPaymentRequest{
		OwnerID:         middleware.GetOwnerID(c),
		SourceAccountID: optionalUUID(req.SourceAccountID),
		ProviderID:      optionalUUID(req.ProviderID),
		AccountNumber:   req.AccountNumber,
		Amount:          req.Amount,
		IdempotencyKey:  c.GetHeader(IdempotencyKeyHeader),
	})
	respondMovement(c, h.logger, result, err)
}

// TopUp sends money to a mobile-money number
func (h *MovementHandler) TopUp(c *gin.Context) {
	var req TopUpRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.movementService.TopUpMobile(c.Request.Context(), movement.TopUpRequest{
		OwnerID:         middleware.GetOwnerID(c),
		SourceAccountID: optionalUUID(req.SourceAccountID),
		ProviderID:      optionalUUID(req.ProviderID),
		PhoneNumber:     req.PhoneNumber,
		Amount:          req.Amount,
		IdempotencyKey:  c.GetHeader(IdempotencyKeyHeader),
	})
	respondMovement(c, h.logger, result, err)
}

// Remit sends money abroad with a fee
func (h *MovementHandler) Remit(c *gin.Context) {
	var req RemitRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.movementService.Remit(c.Request.Context(), movement.RemitRequest{
		OwnerID:          middleware.GetOwnerID(c),
		SourceAccountID:  optionalUUID(req.SourceAccountID),
		RecipientPhone:   req.RecipientPhone,
		RecipientName:    req.RecipientName,
		RecipientCountry: req.RecipientCountry,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Purpose:          req.Purpose,
		IdempotencyKey:   c.GetHeader(IdempotencyKeyHeader),
	})
	respondMovement(c, h.logger, result, err)
}

// Purchase checks out a marketplace basket
func (h *MovementHandler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if !h.bind(c, &req) {
		return
	}

	items := make([]movement.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, movement.LineItem{ProductID: optionalUUID(item.ProductID), Quantity: item.Quantity})
	}

	result, err := h.movementService.Purchase(c.Request.Context(), movement.PurchaseRequest{
		OwnerID:         middleware.GetOwnerID(c),
		SourceAccountID: optionalUUID(req.SourceAccountID),
		Items:           items,
		PaymentMethod:   catalog.PaymentMethod(req.PaymentMethod),
		IdempotencyKey:  c.GetHeader(IdempotencyKeyHeader),
	})
	respondMovement(c, h.logger, result, err)
}

func (h *MovementHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("Invalid request body", "path", c.FullPath(), "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// optionalUUID parses a UUID the binding already validated; empty becomes uuid.Nil
func optionalUUID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
