package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ReferralCode(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	code, err := h.ReferralRepo.CodeForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referral code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": code})
}

func (h *Handler) ReferralStats(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.ReferralRepo.StatsByReferrer(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referral stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) RecentReferrals(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := intQuery(c, "limit", 10)
	refs, err := h.ReferralRepo.RecentByReferrer(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referrals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"referrals": refs})
}
