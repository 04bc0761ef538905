package sweeper

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/metrics"

	"github.com/rs/zerolog"
)

const defaultInterval = 15 * time.Minute

// ServiceParams configure the sweep service.
type ServiceParams struct {
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	Logger   zerolog.Logger
}

// Service runs registered jobs on a fixed cadence.
type Service struct {
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
	logger   zerolog.Logger
}

// NewService builds a sweep service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		logger:   params.Logger.With().Str("component", "sweeper").Logger(),
	}, nil
}

// Run executes a cycle immediately and then once per interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("sweep cycle failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep cycle failed")
			}
		}
	}
}

// RunOnce runs every job once if the lock can be acquired. Job failures are
// logged and counted; they do not fail the cycle.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logger.Info().Msg("another sweeper holds the lock; skipping cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logger.Error().Err(relErr).Msg("failed to release sweeper lock")
		}
	}()

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	logger := s.logger.With().Str("job", job.Name()).Logger()
	logger.Debug().Msg("job start")

	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("job failed")
		s.metrics.IncFailure(job.Name())
		return
	}

	logger.Info().Dur("duration", duration).Msg("job completed")
	s.metrics.IncSuccess(job.Name())
}
