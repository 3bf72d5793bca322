package http

import (
	"os"
	"strconv"
	"time"

	"ccox_dashboard/internal/config"
	"ccox_dashboard/internal/http/handlers"
	"ccox_dashboard/internal/http/middleware"
	"ccox_dashboard/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, version string) {
	hub := ws.NewHub()
	h := handlers.New(db, handlers.Config{
		MiningReward:      cfg.MiningRewardCCOX,
		MiningDuration:    cfg.MiningDurationHrs,
		AutoSwapThreshold: cfg.AutoSwapThreshold,
		ReferralBonus:     cfg.ReferralBonusCCOX,
		SwapMaturityDays:  cfg.SwapMaturityDays,
	}, hub)
	healthHandler := handlers.NewHealthHandler(db, version)

	// read limits from env, with safe defaults
	apiRateLimit := 60
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateLimit = n
		}
	}
	apiRateWindow := time.Minute
	if v := os.Getenv("API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateWindow = time.Duration(n) * time.Second
		}
	}

	authRateLimit := 5
	if v := os.Getenv("AUTH_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			authRateLimit = n
		}
	}
	authRateWindow := time.Minute
	if v := os.Getenv("AUTH_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			authRateWindow = time.Duration(n) * time.Second
		}
	}

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))
	registerAPIRoutes(v1, h, authRateLimit, authRateWindow)

	// Legacy /api routes kept for older dashboard builds
	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))
	api.GET("/health", healthHandler.Health)
	registerAPIRoutes(api, h, authRateLimit, authRateWindow)

	// WebSocket for balances-updated events
	r.GET("/ws", h.WS(hub))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, authRateLimit int, authRateWindow time.Duration) {
	// Auth
	authRL := middleware.RedisRateLimit(authRateLimit, authRateWindow)
	api.POST("/auth/signup", authRL, h.SignUp)
	api.POST("/auth/signin", authRL, h.SignIn)
	api.POST("/auth/resend-confirmation", authRL, h.ResendConfirmation)
	api.POST("/auth/oauth/exchange", authRL, h.OAuthExchange)

	// Profile and site stats
	api.GET("/me", middleware.JWT(), h.Me)
	api.GET("/stats", h.Stats)

	// Balances and transfers
	api.POST("/balance/adjust", middleware.JWT(), h.AdjustBalance)
	api.POST("/balance/locked", middleware.JWT(), h.AddLocked)
	api.POST("/transfer", middleware.JWT(), h.Transfer)
	api.GET("/transactions", middleware.JWT(), h.Transactions)

	// Mining sessions
	mining := api.Group("/mining")
	mining.Use(middleware.JWT())
	{
		mining.POST("/start", h.StartMining)
		mining.POST("/complete", h.CompleteMining)
		mining.GET("/active", h.ActiveMining)
		mining.GET("/history", h.MiningHistory)
	}

	// Referral program
	referral := api.Group("/referral")
	referral.Use(middleware.JWT())
	{
		referral.GET("/code", h.ReferralCode)
		referral.GET("/stats", h.ReferralStats)
		referral.GET("/recent", h.RecentReferrals)
	}

	// Swaps (locked CCOX maturing into the spendable balance)
	swap := api.Group("/swap")
	swap.Use(middleware.JWT())
	{
		swap.POST("/initiate", h.InitiateSwap)
		swap.POST("/complete-pending", h.CompletePendingSwap)
		swap.GET("/history", h.SwapHistory)
	}

	// Leaderboards (?type=mining|referral|wealth)
	api.GET("/leaderboard", h.Leaderboard)

	// KYC
	api.GET("/kyc/status", middleware.JWT(), h.KYCStatus)
}
