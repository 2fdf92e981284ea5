package movement

import (
	"errors"

	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/domain/fx"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/domain/provider"
	"github.com/noblepay-ledger/internal/domain/shared"
)

var (
	ErrRecipientNotFound       = errors.New("recipient not found")
	ErrSelfOperationNotAllowed = errors.New("cannot move money between accounts of the same owner")

	// ErrStorageUnavailable wraps any failure that kept the atomic unit from
	// committing for infrastructure reasons. The caller may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports malformed input, caught before anything is locked or written
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is matches any ValidationError when the target carries no field
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// FailureReason classifies err. The boolean is false for errors that are not
// an expected refusal, which the orchestrator reports as ErrStorageUnavailable.
func FailureReason(err error) (shared.FailureReason, bool) {
	var validation ValidationError
	switch {
	case errors.As(err, &validation),
		errors.Is(err, shared.ErrInvalidCurrency),
		errors.Is(err, account.ErrInvalidAmount),
		errors.Is(err, catalog.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidFee):
		return shared.FailureReasonValidation, true
	case errors.Is(err, account.ErrAccountNotFound{}):
		return shared.FailureReasonAccountNotFound, true
	case errors.Is(err, account.ErrAccountInactive{}):
		return shared.FailureReasonAccountInactive, true
	case errors.Is(err, account.ErrInsufficientFunds{}):
		return shared.FailureReasonInsufficientFunds, true
	case errors.Is(err, provider.ErrProviderNotFound{}):
		return shared.FailureReasonProviderNotFound, true
	case errors.Is(err, ErrRecipientNotFound):
		return shared.FailureReasonRecipientNotFound, true
	case errors.Is(err, ErrSelfOperationNotAllowed):
		return shared.FailureReasonSelfOperation, true
	case errors.Is(err, catalog.ErrProductNotFound{}):
		return shared.FailureReasonProductNotFound, true
	case errors.Is(err, catalog.ErrInsufficientStock{}):
		return shared.FailureReasonInsufficientStock, true
	case errors.Is(err, fx.ErrRateUnavailable{}):
		return shared.FailureReasonRateUnavailable, true
	}
	return shared.FailureReasonStorageUnavailable, false
}
