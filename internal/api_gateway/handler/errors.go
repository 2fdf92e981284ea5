package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/noblepay-ledger/internal/api_gateway/middleware"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/domain/fx"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/domain/provider"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/noblepay-ledger/internal/movement"
)

// respondError maps domain errors onto the response envelope. Anything it
// does not recognize is logged and reported as a 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		validation movement.ValidationError
		short      account.ErrInsufficientFunds
		stock      catalog.ErrInsufficientStock
		rate       fx.ErrRateUnavailable
	)

	switch {
	case errors.As(err, &validation):
		RespondValidationError(c, "VALIDATION_ERROR", validation.Error())
	case errors.Is(err, shared.ErrInvalidCurrency),
		errors.Is(err, ledger.ErrInvalidKind),
		errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, account.ErrInvalidClass),
		errors.Is(err, account.ErrEmptyOwner):
		RespondValidationError(c, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, movement.ErrSelfOperationNotAllowed):
		RespondValidationError(c, "SELF_OPERATION_NOT_ALLOWED", err.Error())
	case errors.Is(err, account.ErrAccountNotFound{}):
		RespondNotFound(c, "ACCOUNT_NOT_FOUND", "Account not found")
	case errors.Is(err, provider.ErrProviderNotFound{}):
		RespondNotFound(c, "PROVIDER_NOT_FOUND", "Provider not found")
	case errors.Is(err, movement.ErrRecipientNotFound):
		RespondNotFound(c, "RECIPIENT_NOT_FOUND", "Recipient not found")
	case errors.Is(err, catalog.ErrProductNotFound{}):
		RespondNotFound(c, "PRODUCT_NOT_FOUND", "Product not found")
	case errors.As(err, &stock):
		RespondConflict(c, "INSUFFICIENT_STOCK", stock.Error())
	case errors.Is(err, account.ErrDuplicateAccount{}):
		RespondConflict(c, "CONFLICT", err.Error())
	case errors.Is(err, account.ErrAccountInactive{}):
		RespondUnprocessable(c, "ACCOUNT_INACTIVE", "Account is inactive")
	case errors.As(err, &short):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", short.Error())
	case errors.As(err, &rate):
		RespondUnprocessable(c, "RATE_UNAVAILABLE", rate.Error())
	case errors.Is(err, movement.ErrStorageUnavailable):
		logger.Error("Storage unavailable", "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondServiceUnavailable(c)
	default:
		logger.Error("Unhandled error", "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
	}
}
