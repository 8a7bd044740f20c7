package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BillRoller advances the billing cycle of active leases
type BillRoller interface {
	RollForward(ctx context.Context, asOf time.Time) (processed, failed int)
}

// LeaseExpirer moves past-end-date leases to their terminal state
type LeaseExpirer interface {
	ExpireDueLeases(ctx context.Context, asOf time.Time) (processed, failed int)
}

// BillingSchedulerConfig holds configuration for the billing scheduler
type BillingSchedulerConfig struct {
	// Enabled indicates if the scheduler runs at all
	Enabled bool
	// TickInterval is how often the billing tick runs
	TickInterval time.Duration
	// TickTimeout is the maximum time a single tick can run
	TickTimeout time.Duration
}

// DefaultBillingSchedulerConfig returns default configuration
func DefaultBillingSchedulerConfig() BillingSchedulerConfig {
	return BillingSchedulerConfig{
		Enabled:      true,
		TickInterval: time.Hour,
		TickTimeout:  10 * time.Minute,
	}
}

// Validate validates the configuration
func (c *BillingSchedulerConfig) Validate() error {
	if c.TickInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.TickTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// TickResult summarizes one billing tick
type TickResult struct {
	RanAt          time.Time
	BillsProcessed int
	BillsFailed    int
	LeasesExpired  int
	ExpiryFailed   int
}

// BillingScheduler periodically rolls the billing cycle forward and
// expires leases that ran past their end date. Both operations are
// idempotent, so an extra tick after downtime is harmless.
type BillingScheduler struct {
	config  BillingSchedulerConfig
	roller  BillRoller
	expirer LeaseExpirer
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	resultMu   sync.RWMutex
	lastResult *TickResult
}

// NewBillingScheduler creates a new billing scheduler
func NewBillingScheduler(config BillingSchedulerConfig, roller BillRoller, expirer LeaseExpirer, logger *zap.Logger) (*BillingScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &BillingScheduler{
		config:  config,
		roller:  roller,
		expirer: expirer,
		logger:  logger,
	}, nil
}

// Start starts the scheduler loop. It is a no-op when the scheduler is
// disabled or already running.
func (s *BillingScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Billing scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Billing scheduler started",
		zap.Duration("tick_interval", s.config.TickInterval),
		zap.Duration("tick_timeout", s.config.TickTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *BillingScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Billing scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Billing scheduler stop timed out")
		return ctx.Err()
	}
}

// RunOnce executes a single tick immediately. Used by the one-shot CLI
// and at startup to catch up after downtime.
func (s *BillingScheduler) RunOnce(ctx context.Context) TickResult {
	return s.tick(ctx, time.Now())
}

// LastResult returns the most recent tick result, or nil before the
// first tick.
func (s *BillingScheduler) LastResult() *TickResult {
	s.resultMu.RLock()
	defer s.resultMu.RUnlock()
	return s.lastResult
}

func (s *BillingScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	// Catch up immediately on start
	s.tick(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *BillingScheduler) tick(ctx context.Context, now time.Time) TickResult {
	ctx, cancel := context.WithTimeout(ctx, s.config.TickTimeout)
	defer cancel()

	started := time.Now()
	result := TickResult{RanAt: now}

	result.BillsProcessed, result.BillsFailed = s.roller.RollForward(ctx, now)
	result.LeasesExpired, result.ExpiryFailed = s.expirer.ExpireDueLeases(ctx, now)

	s.resultMu.Lock()
	s.lastResult = &result
	s.resultMu.Unlock()

	s.logger.Info("Billing tick completed",
		zap.Time("as_of", now),
		zap.Int("bills_processed", result.BillsProcessed),
		zap.Int("bills_failed", result.BillsFailed),
		zap.Int("leases_expired", result.LeasesExpired),
		zap.Int("expiry_failed", result.ExpiryFailed),
		zap.Duration("took", time.Since(started)),
	)

	return result
}
