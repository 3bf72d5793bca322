package handlers

import (
	"errors"
	"net/http"

	"ccox_dashboard/internal/repository"
	"ccox_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

type SwapRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// InitiateSwap moves locked balance into a pending swap with a maturity
// timer.
func (h *Handler) InitiateSwap(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SwapRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	swap, err := h.SwapService.Initiate(c.Request.Context(), userID, req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientFunds) {
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient locked balance"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate swap"})
		return
	}

	h.notifyBalances(c, userID)
	c.JSON(http.StatusOK, gin.H{
		"swap":         swap,
		"completes_at": swap.CompletesAt,
	})
}

// CompletePendingSwap settles the caller's pending swap if its timer has
// expired. Having no pending swap is not an error.
func (h *Handler) CompletePendingSwap(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	swap, err := h.SwapService.CompleteIfDue(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoPendingSwap) {
			c.JSON(http.StatusOK, gin.H{"completed": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete swap"})
		return
	}
	if swap == nil {
		// pending but not matured yet
		c.JSON(http.StatusOK, gin.H{"completed": false})
		return
	}

	h.notifyBalances(c, userID)
	c.JSON(http.StatusOK, gin.H{"completed": true, "amount": swap.Amount})
}

func (h *Handler) SwapHistory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := intQuery(c, "limit", 10)
	swaps, err := h.SwapService.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load swaps"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"swaps": swaps})
}
