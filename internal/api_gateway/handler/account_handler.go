package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/api_gateway/service"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/movement"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService  service.AccountService
	movementService service.MovementService
	logger          *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService, movementService service.MovementService) *AccountHandler {
	return &AccountHandler{
		accountService:  accountService,
		movementService: movementService,
		logger:          logger,
	}
}

// Create opens an account of the requested class and currency for the caller
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), middleware.GetOwnerID(c), account.Class(req.Class), req.Currency)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// List returns the caller's accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context(), middleware.GetOwnerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, mapAccountToResponse(acc))
	}
	RespondOK(c, response)
}

// Balance reads one account's balance without taking a lock
func (h *AccountHandler) Balance(c *gin.Context) {
	id, ok := parseAccountID(c, h.logger)
	if !ok {
		return
	}

	balance, err := h.movementService.GetBalance(c.Request.Context(), middleware.GetOwnerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, balance)
}

// Deactivate closes an account to further movements
func (h *AccountHandler) Deactivate(c *gin.Context) {
	id, ok := parseAccountID(c, h.logger)
	if !ok {
		return
	}

	acc, err := h.accountService.DeactivateAccount(c.Request.Context(), middleware.GetOwnerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapAccountToResponse(acc))
}

// Fund credits the account from a card, bank or cash source
func (h *AccountHandler) Fund(c *gin.Context) {
	id, ok := parseAccountID(c, h.logger)
	if !ok {
		return
	}

	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.movementService.Fund(c.Request.Context(), movement.FundRequest{
		OwnerID:        middleware.GetOwnerID(c),
		AccountID:      id,
		Amount:         req.Amount,
		Method:         movement.FundingMethod(req.Method),
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	respondMovement(c, h.logger, result, err)
}

func parseAccountID(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	return parseIDParam(c, logger, "account")
}

// parseIDParam reads the :id path parameter, answering 400 when it is not a UUID
func parseIDParam(c *gin.Context, logger *slog.Logger, resource string) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Warn("Invalid "+resource+" ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid "+resource+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// respondMovement answers 201 for a new movement and 200 for a replay
func respondMovement(c *gin.Context, logger *slog.Logger, result *movement.Result, err error) {
	if err != nil {
		respondError(c, logger, err)
		return
	}
	if result.Replayed {
		respond(c, http.StatusOK, result)
		return
	}
	RespondCreated(c, result)
}
