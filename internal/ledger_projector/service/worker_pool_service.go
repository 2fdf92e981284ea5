package service

import (
	"context"
	"log/slog"

	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/platform/metrics"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProjectionService bounds concurrent projections with an ants pool
type WorkerPoolProjectionService struct {
	baseService ProjectionService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProjectionService(
	baseService ProjectionService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProjectionService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProjectionService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// Project runs the projection on a pool worker and waits for its result
func (s *WorkerPoolProjectionService) Project(ctx context.Context, entry *ledger.Entry) error {
	resultChan := make(chan error, 1)

	entryCopy := *entry

	metrics.InflightProjections.Inc()
	err := s.pool.Submit(func() {
		defer metrics.InflightProjections.Dec()
		resultChan <- s.baseService.Project(ctx, &entryCopy)
	})
	if err != nil {
		metrics.InflightProjections.Dec()
		s.logger.Error("Failed to submit projection to worker pool",
			"reference", entry.Reference,
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown waits for running projections and releases the pool
func (s *WorkerPoolProjectionService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProjectionService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProjectionService) Capacity() int {
	return s.pool.Cap()
}
