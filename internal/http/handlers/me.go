package handlers

import (
	"errors"
	"net/http"

	"ccox_dashboard/internal/repository"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	user, err := h.UserRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			// Distinguished condition: lets the client run OAuth provisioning.
			c.JSON(http.StatusNotFound, gin.H{"error": "PROFILE_NOT_FOUND"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Stats returns the global dashboard counts. Both reads are non-critical:
// a failure yields zero rather than an error page.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	totalUsers, err := h.StatsRepo.TotalUsers(ctx)
	if err != nil {
		totalUsers = 0
	}
	totalPosts, err := h.StatsRepo.TotalPosts(ctx)
	if err != nil {
		totalPosts = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users": totalUsers,
		"total_posts": totalPosts,
	})
}
