package handlers

import (
	"errors"
	"net/http"

	"ccox_dashboard/internal/repository"
	"ccox_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

type AdjustBalanceRequest struct {
	Currency string  `json:"currency" binding:"required"`
	Delta    float64 `json:"delta" binding:"required"`
}

// AdjustBalance applies a signed delta to one of the caller's balance fields.
func (h *Handler) AdjustBalance(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req AdjustBalanceRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	newBalance, err := h.BalanceService.Adjust(c.Request.Context(), userID, req.Currency, req.Delta)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownCurrency):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown currency"})
		case errors.Is(err, service.ErrInsufficientFunds):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "balance update failed"})
		}
		return
	}

	h.notifyBalances(c, userID)
	c.JSON(http.StatusOK, gin.H{"balance": newBalance, "currency": req.Currency})
}

type AddLockedRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// AddLocked mutates the caller's locked (reward holding) balance.
func (h *Handler) AddLocked(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req AddLockedRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	newBalance, err := h.BalanceService.AddToLocked(c.Request.Context(), userID, req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientFunds) {
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient locked balance"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "balance update failed"})
		return
	}

	h.notifyBalances(c, userID)
	c.JSON(http.StatusOK, gin.H{"locked_balance": newBalance})
}

type TransferRequest struct {
	Recipient string  `json:"recipient" binding:"required"` // email or username
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Currency  string  `json:"currency" binding:"required"`
}

// Transfer moves funds to another user, atomically with its ledger row.
func (h *Handler) Transfer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req TransferRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	ctx := c.Request.Context()
	recipient, err := h.UserRepo.FindRecipient(ctx, req.Recipient)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transfer failed"})
		return
	}

	ledger, err := h.BalanceService.Transfer(ctx, userID, recipient.ID, req.Amount, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientFunds):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		case errors.Is(err, service.ErrUnknownCurrency):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown currency"})
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "transfer failed"})
		}
		return
	}

	h.notifyBalances(c, userID)
	h.notifyBalances(c, recipient.ID)
	c.JSON(http.StatusOK, gin.H{"transaction": ledger})
}

// Transactions returns the caller's recent ledger rows.
func (h *Handler) Transactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := intQuery(c, "limit", 10)
	txs, err := h.TxRepo.GetByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
