package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/nyumbani/backend/internal/application/billing"
	paymentapp "github.com/nyumbani/backend/internal/application/payment"
	reportapp "github.com/nyumbani/backend/internal/application/report"
	tenancyapp "github.com/nyumbani/backend/internal/application/tenancy"
	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/nyumbani/backend/internal/infrastructure/auth"
	"github.com/nyumbani/backend/internal/infrastructure/cache"
	"github.com/nyumbani/backend/internal/infrastructure/config"
	"github.com/nyumbani/backend/internal/infrastructure/event"
	"github.com/nyumbani/backend/internal/infrastructure/logger"
	mpesa "github.com/nyumbani/backend/internal/infrastructure/payment"
	"github.com/nyumbani/backend/internal/infrastructure/persistence"
	"github.com/nyumbani/backend/internal/infrastructure/scheduler"
	"github.com/nyumbani/backend/internal/interfaces/http/handler"
	"github.com/nyumbani/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Nyumbani Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with the zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	leaseRepo := persistence.NewGormLeaseRepository(db.DB)
	billRepo := persistence.NewGormBillRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)

	// Transaction scopes
	tenancyScope := persistence.NewGormTenancyTransactionScope(db.DB)
	billingScope := persistence.NewGormBillingTransactionScope(db.DB)
	paymentScope := persistence.NewGormPaymentTransactionScope(db.DB)

	// Domain services
	penaltyRate := decimal.NewFromFloat(cfg.Billing.PenaltyRate)
	cycle := billing.NewBillingCycle(penaltyRate)
	settlement := payment.NewSettlementService(penaltyRate)
	clock := service.NewSystemClock()

	// Event bus with the activity log subscriber
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewActivityLogHandler(log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Webhook deduplication store. Redis in production, in-memory fallback
	// elsewhere; the payment status compare-and-set stays correct either way.
	dedupFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	dedupStore, err := dedupFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	var tokenBlacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis for token revocation", zap.Error(err))
		}
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		tokenBlacklist = redisBlacklist
		defer func() {
			if err := redisBlacklist.Close(); err != nil {
				log.Error("Error closing token blacklist", zap.Error(err))
			}
		}()
	}

	// M-Pesa Daraja gateway
	gateway, err := mpesa.NewMpesaAdapter(&mpesa.MpesaConfig{
		BaseURL:         cfg.Mpesa.BaseURL,
		ConsumerKey:     cfg.Mpesa.ConsumerKey,
		ConsumerSecret:  cfg.Mpesa.ConsumerSecret,
		ShortCode:       cfg.Mpesa.ShortCode,
		Passkey:         cfg.Mpesa.Passkey,
		CallbackURL:     cfg.Mpesa.CallbackURL,
		Timeout:         cfg.Mpesa.Timeout,
		TokenExpirySlop: cfg.Mpesa.TokenExpirySlop,
	})
	if err != nil {
		log.Fatal("Failed to configure M-Pesa gateway", zap.Error(err))
	}

	// Application services
	leaseService := tenancyapp.NewLeaseService(tenancyapp.LeaseServiceConfig{
		Scope:           tenancyScope,
		LeaseRepo:       leaseRepo,
		Cycle:           cycle,
		Clock:           clock,
		EventPublisher:  eventBus,
		Logger:          log,
		RequireApproval: cfg.Billing.RequireApproval,
	})
	billingService := billingapp.NewBillingService(billingapp.BillingServiceConfig{
		Scope:     billingScope,
		LeaseRepo: leaseRepo,
		BillRepo:  billRepo,
		Cycle:     cycle,
		Clock:     clock,
		Logger:    log,
	})
	paymentService := paymentapp.NewPaymentService(paymentapp.PaymentServiceConfig{
		Gateway:        gateway,
		LeaseRepo:      leaseRepo,
		PaymentRepo:    paymentRepo,
		EventPublisher: eventBus,
		Logger:         log,
		GatewayTimeout: cfg.Mpesa.Timeout,
	})
	callbackService := paymentapp.NewCallbackService(paymentapp.CallbackServiceConfig{
		Gateway:        gateway,
		Scope:          paymentScope,
		Settlement:     settlement,
		Dedup:          dedupStore,
		Clock:          clock,
		EventPublisher: eventBus,
		Logger:         log,
	})
	reportService := reportapp.NewReportService(reportapp.ReportServiceConfig{
		LeaseRepo:   leaseRepo,
		BillRepo:    billRepo,
		PaymentRepo: paymentRepo,
		Cycle:       cycle,
		Clock:       clock,
		Logger:      log,
	})

	// HTTP surface
	engine := router.New(router.Dependencies{
		Logger:          log,
		HTTP:            cfg.HTTP,
		JWTService:      jwtService,
		TokenBlacklist:  tokenBlacklist,
		LeaseHandler:    handler.NewLeaseHandler(leaseService),
		BillingHandler:  handler.NewBillingHandler(billingService),
		PaymentHandler:  handler.NewPaymentHandler(paymentService, callbackService),
		CallbackHandler: handler.NewPaymentCallbackHandler(callbackService, log),
		ReportHandler:   handler.NewReportHandler(reportService),
	})
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	// Billing scheduler: rolls bills forward and expires past-end leases
	schedCfg := scheduler.DefaultBillingSchedulerConfig()
	schedCfg.Enabled = cfg.Scheduler.Enabled
	schedCfg.TickInterval = cfg.Scheduler.TickInterval
	billingScheduler, err := scheduler.NewBillingScheduler(schedCfg, billingService, leaseService, log)
	if err != nil {
		log.Fatal("Failed to create billing scheduler", zap.Error(err))
	}
	if err := billingScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start billing scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := billingScheduler.Stop(ctx); err != nil {
		log.Error("Billing scheduler shutdown failed", zap.Error(err))
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Event bus shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
