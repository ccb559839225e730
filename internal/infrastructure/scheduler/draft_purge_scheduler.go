// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DraftPurger deletes drafts last written before cutoff
type DraftPurger interface {
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// DraftPurgeSchedulerConfig holds configuration for the draft purge scheduler
type DraftPurgeSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval is the time between purge runs
	Interval time.Duration

	// MaxAge is how long a draft may go unwritten before it is purged
	MaxAge time.Duration

	// Timeout bounds a single purge run
	Timeout time.Duration
}

// DefaultDraftPurgeSchedulerConfig returns default configuration
func DefaultDraftPurgeSchedulerConfig() DraftPurgeSchedulerConfig {
	return DraftPurgeSchedulerConfig{
		Enabled:  true,
		Interval: time.Hour,
		MaxAge:   30 * 24 * time.Hour,
		Timeout:  5 * time.Minute,
	}
}

// DraftPurgeScheduler periodically removes abandoned quote drafts from stores
// that do not expire them on their own
type DraftPurgeScheduler struct {
	purger    DraftPurger
	logger    *zap.Logger
	config    DraftPurgeSchedulerConfig
	now       func() time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewDraftPurgeScheduler creates a new draft purge scheduler
func NewDraftPurgeScheduler(purger DraftPurger, logger *zap.Logger, config DraftPurgeSchedulerConfig) (*DraftPurgeScheduler, error) {
	if config.Enabled && (config.Interval <= 0 || config.MaxAge <= 0) {
		return nil, fmt.Errorf("%w: interval and max age must be positive", ErrInvalidConfig)
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultDraftPurgeSchedulerConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftPurgeScheduler{
		purger: purger,
		logger: logger,
		config: config,
		now:    time.Now,
	}, nil
}

// Start starts the purge loop
func (s *DraftPurgeScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Draft purge scheduler is disabled")
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx)

	s.logger.Info("Draft purge scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("max_age", s.config.MaxAge),
	)
	return nil
}

// Stop cancels the purge loop and waits for an in-flight run to finish
func (s *DraftPurgeScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Draft purge scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Draft purge scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *DraftPurgeScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Draft purge loop stopping")
			return
		case <-ticker.C:
			s.executePurge(ctx)
		}
	}
}

// executePurge runs one purge and returns the number of drafts removed
func (s *DraftPurgeScheduler) executePurge(ctx context.Context) int64 {
	purgeCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	cutoff := s.now().Add(-s.config.MaxAge)
	removed, err := s.purger.PurgeStale(purgeCtx, cutoff)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("Quote draft purge failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return 0
	}

	s.logger.Info("Quote draft purge completed",
		zap.Duration("duration", duration),
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted_count", removed),
	)
	return removed
}

// TriggerImmediatePurge runs a purge in the background without waiting for
// the next tick
func (s *DraftPurgeScheduler) TriggerImmediatePurge(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate quote draft purge")

	go func() {
		defer s.wg.Done()
		s.executePurge(ctx)
	}()
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *DraftPurgeScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
