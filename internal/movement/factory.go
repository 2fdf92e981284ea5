package movement

import (
	"fmt"
	"log/slog"

	"github.com/noblepay-ledger/internal/config"
)

// CreateOrchestrator builds the orchestrator with the configured fee schedule
// and the number of reference attempts.
func CreateOrchestrator(deps Dependencies, cfg *config.MovementConfig, logger *slog.Logger) (*Orchestrator, error) {
	fees, err := ParseFeeSchedule(cfg.RemitFeeRate, cfg.RemitMinimumFee)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fee schedule: %w", err)
	}

	orchestrator := NewOrchestrator(deps, Options{
		Fees:                 fees,
		MaxReferenceAttempts: cfg.ReferenceMaxAttempts,
	}, logger.With("component", "movement"))

	logger.Info("Created movement orchestrator",
		"remit_fee_rate", fees.RemitRate.String(),
		"remit_minimum_fee", fees.RemitMinimum.String(),
		"reference_max_attempts", cfg.ReferenceMaxAttempts,
	)
	return orchestrator, nil
}
