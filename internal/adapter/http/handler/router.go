package handler

import (
	"user-wallet-service/internal/adapter/http/middleware"
	"user-wallet-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (gateway-authenticated upstream) ---
	authHandler := NewAuthHandler(deps.TokenSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/token", authHandler.IssueToken)
	}

	// --- JWT-authenticated wallet routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", walletHandler.CreateWallet)
		wallets.GET("/me", walletHandler.GetWallet)
		wallets.POST("/recharge", walletHandler.Recharge)
		wallets.POST("/transfer", walletHandler.Transfer)
		wallets.POST("/withdraw", walletHandler.Withdraw)
		wallets.POST("/pay", walletHandler.Pay)
		wallets.POST("/freeze", walletHandler.Freeze)
		wallets.POST("/unfreeze", walletHandler.Unfreeze)
		wallets.PUT("/password", walletHandler.SetPaymentPassword)
		wallets.PUT("/settings", walletHandler.UpdateSettings)
	}

	withdrawals := v1.Group("/withdrawals", jwtAuth)
	{
		withdrawals.POST("/:id/confirm", walletHandler.ConfirmWithdraw)
		withdrawals.POST("/:id/fail", walletHandler.FailWithdraw)
	}

	transactions := v1.Group("/transactions", jwtAuth)
	{
		transactions.GET("", walletHandler.ListTransactions)
	}

	return r
}
