package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// KYCStatus returns the latest application status, or null when the user
// never applied. Read failures degrade to null rather than blocking the page.
func (h *Handler) KYCStatus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	status, err := h.KYCRepo.LatestStatus(c.Request.Context(), userID)
	if err != nil || status == "" {
		c.JSON(http.StatusOK, gin.H{"status": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}
