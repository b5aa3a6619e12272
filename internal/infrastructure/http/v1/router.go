// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"clinicledger/internal/app"
	"clinicledger/internal/infrastructure/http/v1/handlers"
	"clinicledger/internal/infrastructure/http/v1/middleware"
	"clinicledger/internal/infrastructure/metrics"
	"clinicledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Services *app.Services

	// Logger for request logging.
	Logger *logger.Logger

	// Metrics records HTTP and operation metrics and serves /metrics. Optional.
	Metrics *metrics.Metrics

	// JWTValidator guards /api/v1. Nil disables authentication and every
	// call runs as the system user.
	JWTValidator middleware.JWTValidator

	// Idempotency enables X-Idempotency-Key replay when set.
	Idempotency middleware.IdempotencyStore

	// HealthChecks are pinged by /health/ready.
	HealthChecks map[string]handlers.Pinger

	Version string
	Debug   bool
}

// NewRouter creates and configures the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Recovery sits inside ErrorHandler so a recovered panic is still rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		api.Use(middleware.Auth(cfg.JWTValidator))
	}
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler(cfg.Metrics)
	registerLedgerRoutes(api, base, cfg.Services)
	registerSaleRoutes(api, base, cfg.Services)

	return router
}

func registerLedgerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	journalHandler := handlers.NewJournalHandler(base, svc.Journal, svc.Categories)
	entries := rg.Group("/journal")
	{
		entries.GET("", journalHandler.List)
		entries.POST("", journalHandler.Post)
		entries.GET("/:id", journalHandler.Get)
		entries.PUT("/:id", journalHandler.Edit)
		entries.DELETE("/:id", journalHandler.Delete)
	}
	categories := rg.Group("/categories")
	{
		categories.GET("", journalHandler.ListCategories)
		categories.POST("", journalHandler.CreateCategory)
	}

	fundHandler := handlers.NewFundHandler(base, svc.Funds)
	funds := rg.Group("/funds")
	{
		funds.GET("", fundHandler.List)
		funds.POST("/in", fundHandler.FundIn)
		funds.POST("/out", fundHandler.FundOut)
		funds.DELETE("/:id", fundHandler.Delete)
	}

	accountHandler := handlers.NewAccountHandler(base, svc.Ledger)
	accounts := rg.Group("/accounts")
	{
		accounts.GET("", accountHandler.List)
		accounts.GET("/:kind/reconcile", accountHandler.Reconcile)
	}
}

func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	saleHandler := handlers.NewSaleHandler(base, svc.Sales, svc.Payments)
	sales := rg.Group("/sales")
	{
		sales.GET("", saleHandler.List)
		sales.POST("", saleHandler.Create)
		sales.GET("/:id", saleHandler.Get)
		sales.POST("/:id/payments", saleHandler.AddPayment)
		sales.PATCH("/:id/status", saleHandler.UpdateStatus)
	}

	stockHandler := handlers.NewStockHandler(base, svc.Stock)
	items := rg.Group("/stock")
	{
		items.GET("", stockHandler.List)
		items.POST("", stockHandler.Create)
		items.POST("/receive", stockHandler.Receive)
	}
}
