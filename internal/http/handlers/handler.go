package handlers

import (
	"time"

	"ccox_dashboard/internal/repository"
	"ccox_dashboard/internal/service"
	"ccox_dashboard/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler bundles the services and repositories the API endpoints share.
type Handler struct {
	DB *pgxpool.Pool

	AuthService    *service.AuthService
	BalanceService *service.BalanceService
	MiningService  *service.MiningService
	SwapService    *service.SwapService

	UserRepo     *repository.UserRepository
	MiningRepo   *repository.MiningRepository
	TxRepo       *repository.TransactionRepository
	ReferralRepo *repository.ReferralRepository
	KYCRepo      *repository.KYCRepository
	StatsRepo    *repository.StatsRepository

	Events *ws.Hub
}

type Config struct {
	MiningReward      float64
	MiningDuration    int // hours
	AutoSwapThreshold float64
	ReferralBonus     float64
	SwapMaturityDays  int
}

func New(db *pgxpool.Pool, cfg Config, events *ws.Hub) *Handler {
	swapService := service.NewSwapService(db, cfg.SwapMaturityDays)
	return &Handler{
		DB:             db,
		AuthService:    service.NewAuthService(db, cfg.ReferralBonus),
		BalanceService: service.NewBalanceService(db),
		MiningService: service.NewMiningService(
			db, swapService,
			cfg.MiningReward,
			timeHours(cfg.MiningDuration),
			cfg.AutoSwapThreshold,
		),
		SwapService:  swapService,
		UserRepo:     repository.NewUserRepository(db),
		MiningRepo:   repository.NewMiningRepository(db),
		TxRepo:       repository.NewTransactionRepository(db),
		ReferralRepo: repository.NewReferralRepository(db),
		KYCRepo:      repository.NewKYCRepository(db),
		StatsRepo:    repository.NewStatsRepository(db),
		Events:       events,
	}
}

func timeHours(h int) time.Duration {
	return time.Duration(h) * time.Hour
}

// getUserID extracts the authenticated user id set by the JWT middleware.
func getUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// notifyBalances pushes a balances-updated event to the user's open sockets.
// Failures to look the profile up are swallowed: the push is best-effort.
func (h *Handler) notifyBalances(c *gin.Context, userID uuid.UUID) {
	if h.Events == nil {
		return
	}
	user, err := h.UserRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		return
	}
	h.Events.NotifyBalances(userID, user.CcoxBalance, user.UsdtBalance, user.LockedBalance)
}
