package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ccox_dashboard/internal/http/middleware"
	"ccox_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// StartMining begins a session or returns the running one. The operation is
// idempotent: an existing active session is reported, never duplicated.
func (h *Handler) StartMining(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.MiningService.Start(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start mining"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":     result.Session.ID,
		"already_active": result.AlreadyActive,
		"started_at":     result.Session.StartedAt.UTC().Format(time.RFC3339),
		"ends_at":        result.EndsAt.UTC().Format(time.RFC3339),
		"reward":         result.Session.RewardAmount,
	})
}

// CompleteMining settles the active session. Without one it fails with a
// distinguishable condition instead of fabricating a reward.
func (h *Handler) CompleteMining(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.MiningService.Complete(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveSession):
			c.JSON(http.StatusConflict, gin.H{"error": "NO_ACTIVE_SESSION"})
		case errors.Is(err, service.ErrSessionNotMatured):
			c.JSON(http.StatusConflict, gin.H{"error": "SESSION_NOT_MATURED"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete mining"})
		}
		return
	}

	middleware.MiningCompletions.WithLabelValues(strconv.FormatBool(result.AutoSwapped)).Inc()
	h.notifyBalances(c, userID)
	c.JSON(http.StatusOK, result)
}

// ActiveMining reports the caller's running session, if any.
func (h *Handler) ActiveMining(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	session, err := h.MiningService.Active(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			c.JSON(http.StatusOK, gin.H{"session": nil})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": session,
		"ends_at": session.EndsAt(h.MiningService.Duration()).UTC().Format(time.RFC3339),
	})
}

func (h *Handler) MiningHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := intQuery(c, "limit", 10)
	sessions, err := h.MiningService.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func intQuery(c *gin.Context, name string, def int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
