// Package outbox_relay drains the ledger outbox onto the entry topic
package outbox_relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noblepay-ledger/internal/config"
	"github.com/noblepay-ledger/internal/domain/outbox"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/noblepay-ledger/internal/platform/metrics"
)

// Poller processes pending outbox messages
type Poller struct {
	outboxRepo       outbox.Repository
	relay            EntryRelay
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	relay EntryRelay,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		relay:            relay,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox relay",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox relay stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
			p.reportBacklog(ctx)
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := p.relay.Relay(ctx, msg); err != nil {
			p.logger.Warn("Failed to relay outbox message",
				"outbox_id", msg.ID, "entry_id", msg.EntryID, "current_attempts", msg.Attempts, "error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
				continue
			}

			msg.IncrementAttempts()
			if !msg.ExhaustedRetries(p.maxRetryAttempts) {
				metrics.OutboxPublished.WithLabelValues("retry").Inc()
				continue
			}

			p.logger.Error("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
				"outbox_id", msg.ID, "entry_id", msg.EntryID, "attempts_made", msg.Attempts,
			)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				p.logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "outbox_id", msg.ID, "error", errUpdate)
				continue
			}
			metrics.OutboxPublished.WithLabelValues("failed").Inc()
			continue
		}
		metrics.OutboxPublished.WithLabelValues("processed").Inc()
	}
	return nil
}

func (p *Poller) reportBacklog(ctx context.Context) {
	pending, err := p.outboxRepo.CountPending(ctx)
	if err != nil {
		p.logger.Warn("Failed to measure outbox backlog", "error", err)
		return
	}
	metrics.OutboxBacklog.Set(float64(pending))
}
