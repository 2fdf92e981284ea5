package shared

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// FailureReason defines why a movement attempt was refused
type FailureReason string

const (
	FailureReasonValidation         FailureReason = "VALIDATION_ERROR"
	FailureReasonAccountNotFound    FailureReason = "ACCOUNT_NOT_FOUND"
	FailureReasonAccountInactive    FailureReason = "ACCOUNT_INACTIVE"
	FailureReasonInsufficientFunds  FailureReason = "INSUFFICIENT_FUNDS"
	FailureReasonProviderNotFound   FailureReason = "PROVIDER_NOT_FOUND"
	FailureReasonRecipientNotFound  FailureReason = "RECIPIENT_NOT_FOUND"
	FailureReasonSelfOperation      FailureReason = "SELF_OPERATION_NOT_ALLOWED"
	FailureReasonProductNotFound    FailureReason = "PRODUCT_NOT_FOUND"
	FailureReasonInsufficientStock  FailureReason = "INSUFFICIENT_STOCK"
	FailureReasonRateUnavailable    FailureReason = "RATE_UNAVAILABLE"
	FailureReasonStorageUnavailable FailureReason = "STORAGE_UNAVAILABLE"
)
