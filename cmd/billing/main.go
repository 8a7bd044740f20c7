package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	billingapp "github.com/nyumbani/backend/internal/application/billing"
	tenancyapp "github.com/nyumbani/backend/internal/application/tenancy"
	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/nyumbani/backend/internal/infrastructure/config"
	"github.com/nyumbani/backend/internal/infrastructure/logger"
	"github.com/nyumbani/backend/internal/infrastructure/persistence"
	"github.com/nyumbani/backend/internal/infrastructure/scheduler"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// One-shot billing tick: rolls every active lease's billing cycle forward
// and expires leases past their end date. Meant to run from cron when the
// in-process scheduler is disabled.
func main() {
	var (
		timeout  time.Duration
		logLevel string
	)
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Maximum time the tick may run")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	leaseRepo := persistence.NewGormLeaseRepository(db.DB)
	billRepo := persistence.NewGormBillRepository(db.DB)
	cycle := billing.NewBillingCycle(decimal.NewFromFloat(cfg.Billing.PenaltyRate))
	clock := service.NewSystemClock()

	billingService := billingapp.NewBillingService(billingapp.BillingServiceConfig{
		Scope:     persistence.NewGormBillingTransactionScope(db.DB),
		LeaseRepo: leaseRepo,
		BillRepo:  billRepo,
		Cycle:     cycle,
		Clock:     clock,
		Logger:    log,
	})
	leaseService := tenancyapp.NewLeaseService(tenancyapp.LeaseServiceConfig{
		Scope:     persistence.NewGormTenancyTransactionScope(db.DB),
		LeaseRepo: leaseRepo,
		Cycle:     cycle,
		Clock:     clock,
		Logger:    log,
	})

	tickCfg := scheduler.DefaultBillingSchedulerConfig()
	tickCfg.TickTimeout = timeout
	billingScheduler, err := scheduler.NewBillingScheduler(tickCfg, billingService, leaseService, log)
	if err != nil {
		log.Fatal("Failed to create billing scheduler", zap.Error(err))
	}

	result := billingScheduler.RunOnce(context.Background())

	fmt.Printf("Billing tick at %s\n", result.RanAt.Format(time.RFC3339))
	fmt.Printf("  bills rolled forward: %d (failed: %d)\n", result.BillsProcessed, result.BillsFailed)
	fmt.Printf("  leases expired:       %d (failed: %d)\n", result.LeasesExpired, result.ExpiryFailed)

	if result.BillsFailed > 0 || result.ExpiryFailed > 0 {
		os.Exit(1)
	}
}
