package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/royal-empire/club_service/internal/api/handlers"
	"github.com/royal-empire/club_service/internal/api/middleware"
	"github.com/royal-empire/club_service/internal/infrastructure/di"
)

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	router := gin.New()

	// Global middleware - order matters
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	coreHandlers := handlers.NewCoreHandlers(container.DB, container.Cache, container.Logger)
	accountHandlers := handlers.NewAccountHandlers(container.AccountService, container.Logger)
	transactionHandlers := handlers.NewTransactionHandlers(
		container.LedgerService,
		container.LifecycleService,
		container.AccountRepo,
		container.TransactionRepo,
		container.ProofStore,
		container.Logger,
	)
	packageHandlers := handlers.NewPackageHandlers(container.LedgerService, container.Logger)
	referralHandlers := handlers.NewReferralHandlers(container.ReferralService, container.Logger)

	// Health checks (no auth required)
	router.GET("/health", coreHandlers.Health)
	router.GET("/ready", coreHandlers.Ready)
	router.GET("/live", coreHandlers.Live)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Proof screenshots are public by URL, matching the dashboard's direct
	// image embedding.
	router.Static(container.Config.Uploads.BaseURL, container.Config.Uploads.Dir)

	api := router.Group("/api")
	{
		api.POST("/register", accountHandlers.Register)
		api.POST("/login", accountHandlers.Login)
		api.GET("/user/:email", accountHandlers.GetUser)
		api.GET("/profile/:email", accountHandlers.GetUser)

		api.POST("/transactions", transactionHandlers.Submit)
		api.GET("/transactions/:email", transactionHandlers.History)

		api.POST("/packages/buy", packageHandlers.Buy)

		api.GET("/referrals/:email", referralHandlers.Report)
	}

	admin := router.Group("/api/admin")
	admin.Use(middleware.Authentication(container.AccountService))
	{
		admin.POST("/transactions/:id/complete", transactionHandlers.Complete)
		admin.POST("/transactions/:id/reschedule", transactionHandlers.Reschedule)
		admin.POST("/transactions/:id/cancel", transactionHandlers.Cancel)
	}

	return router
}
