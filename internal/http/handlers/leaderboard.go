package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const leaderboardSize = 10

// Leaderboard serves the three dashboard boards: mining (completed-session
// rewards), referral (bonus totals) and wealth (wallet balances).
func (h *Handler) Leaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	boardType := c.DefaultQuery("type", "mining")

	switch boardType {
	case "mining":
		top, err := h.MiningRepo.Leaderboard(ctx, leaderboardSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": boardType, "leaderboard": top})

	case "referral":
		top, err := h.ReferralRepo.Leaderboard(ctx, leaderboardSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": boardType, "leaderboard": top})

	case "wealth":
		top, err := h.UserRepo.WealthTop(ctx, leaderboardSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
			return
		}
		entries := make([]gin.H, 0, len(top))
		for _, u := range top {
			entries = append(entries, gin.H{
				"user_id":      u.ID,
				"username":     u.Username,
				"ccox_balance": u.CcoxBalance,
				"usdt_balance": u.UsdtBalance,
			})
		}
		c.JSON(http.StatusOK, gin.H{"type": boardType, "leaderboard": entries})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown leaderboard type"})
	}
}
