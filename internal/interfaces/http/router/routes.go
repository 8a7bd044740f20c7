package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nyumbani/backend/internal/domain/identity"
	"github.com/nyumbani/backend/internal/infrastructure/auth"
	"github.com/nyumbani/backend/internal/infrastructure/config"
	"github.com/nyumbani/backend/internal/infrastructure/logger"
	"github.com/nyumbani/backend/internal/interfaces/http/handler"
	"github.com/nyumbani/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Dependencies carries everything the HTTP surface needs. The zero value
// of optional fields (TokenBlacklist, SystemHandler) is usable.
type Dependencies struct {
	Logger         *zap.Logger
	HTTP           config.HTTPConfig
	JWTService     *auth.JWTService
	TokenBlacklist auth.TokenBlacklist

	LeaseHandler    *handler.LeaseHandler
	BillingHandler  *handler.BillingHandler
	PaymentHandler  *handler.PaymentHandler
	CallbackHandler *handler.PaymentCallbackHandler
	ReportHandler   *handler.ReportHandler
	SystemHandler   *handler.SystemHandler
}

// New assembles the gin engine: request plumbing at the engine level,
// JWT on the versioned API group, and one domain group per aggregate.
// The gateway callback route sits inside the API group but is excluded
// from authentication; the provider cannot carry a bearer token.
func New(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.SystemHandler == nil {
		deps.SystemHandler = handler.NewSystemHandler()
	}

	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(logger.GinMiddleware(deps.Logger))
	engine.Use(logger.Recovery(deps.Logger))
	engine.Use(middleware.RequestID())
	engine.Use(corsMiddleware(deps.HTTP))
	engine.Use(middleware.Secure())
	if deps.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(deps.HTTP.MaxBodySize))
	}

	engine.GET("/health", healthCheck)
	engine.GET("/healthz", healthCheck)
	engine.GET("/ready", healthCheck)

	r := NewRouter(engine)

	jwtCfg := middleware.DefaultJWTConfig(deps.JWTService)
	jwtCfg.TokenBlacklist = deps.TokenBlacklist
	jwtCfg.Logger = deps.Logger
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))

	if deps.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(deps.HTTP.RateLimitRequests, deps.HTTP.RateLimitWindow)
		r.Use(middleware.RateLimit(limiter))
	}

	r.Register(leaseRoutes(deps))
	r.Register(billRoutes(deps))
	r.Register(paymentRoutes(deps))
	r.Register(reportRoutes(deps))
	r.Register(systemRoutes(deps))
	r.Setup()

	return engine
}

func leaseRoutes(deps Dependencies) *DomainGroup {
	g := NewDomainGroup("tenancy", "/leases")
	g.POST("", deps.LeaseHandler.Create)
	g.GET("", deps.LeaseHandler.List)
	g.GET("/:id", deps.LeaseHandler.Get)
	g.POST("/:id/activate", deps.LeaseHandler.Activate)
	g.POST("/:id/vacate", deps.LeaseHandler.RequestVacate)
	g.POST("/:id/vacate/resolve", deps.LeaseHandler.ResolveVacate)
	g.GET("/:id/bills", deps.BillingHandler.ListForLease)
	g.GET("/:id/outstanding", deps.BillingHandler.Outstanding)
	g.GET("/:id/payments", deps.PaymentHandler.ListForLease)
	return g
}

func billRoutes(deps Dependencies) *DomainGroup {
	g := NewDomainGroup("billing", "/bills")
	g.GET("/:id", deps.BillingHandler.Get)
	g.POST("/:id/mark-paid",
		middleware.RequireRole(identity.RoleLandlord, identity.RoleAdmin),
		deps.BillingHandler.MarkPaid)
	return g
}

func paymentRoutes(deps Dependencies) *DomainGroup {
	g := NewDomainGroup("payment", "/payments")
	g.POST("", deps.PaymentHandler.Initiate)
	g.GET("/:id", deps.PaymentHandler.Get)
	g.POST("/:id/refund",
		middleware.RequireRole(identity.RoleAdmin),
		deps.PaymentHandler.Refund)
	g.POST("/callback/mpesa", deps.CallbackHandler.HandleMpesaCallback)
	return g
}

func reportRoutes(deps Dependencies) *DomainGroup {
	g := NewDomainGroup("report", "/reports")
	g.GET("/collection-rate", deps.ReportHandler.CollectionRate)
	g.GET("/tenant-segments", deps.ReportHandler.TenantSegments)
	g.GET("/payment-analytics", deps.ReportHandler.Analytics)
	return g
}

func systemRoutes(deps Dependencies) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", deps.SystemHandler.GetSystemInfo)
	g.GET("/ping", deps.SystemHandler.Ping)
	return g
}

func corsMiddleware(httpCfg config.HTTPConfig) gin.HandlerFunc {
	cfg := middleware.DefaultCORSConfig()
	if len(httpCfg.CORSAllowOrigins) > 0 {
		cfg.AllowOrigins = httpCfg.CORSAllowOrigins
	}
	if len(httpCfg.CORSAllowMethods) > 0 {
		cfg.AllowMethods = httpCfg.CORSAllowMethods
	}
	if len(httpCfg.CORSAllowHeaders) > 0 {
		cfg.AllowHeaders = httpCfg.CORSAllowHeaders
	}
	return middleware.CORSWithConfig(cfg)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}
