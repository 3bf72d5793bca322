package handlers

import (
	"errors"
	"net/http"

	"ccox_dashboard/internal/repository"
	"ccox_dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SignUpRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Username     string `json:"username" binding:"required,min=3,max=24"`
	ReferralCode string `json:"referral_code"`
}

func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	user, err := h.AuthService.SignUp(c.Request.Context(), req.Email, req.Password, req.Username, req.ReferralCode)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"message": "confirmation email sent",
	})
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	token, user, err := h.AuthService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailNotConfirmed):
			c.JSON(http.StatusForbidden, gin.H{"error": "EMAIL_NOT_CONFIRMED"})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_CREDENTIALS"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "signin failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type ResendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) ResendConfirmation(c *gin.Context) {
	var req ResendRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	if err := h.AuthService.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// OAuthRequest carries the identity asserted by the OAuth gateway after it
// verified the provider token. The id is the provider-scoped identity id the
// profile row is keyed by.
type OAuthRequest struct {
	IdentityID      string `json:"identity_id" binding:"required,uuid"`
	Email           string `json:"email" binding:"required,email"`
	DisplayName     string `json:"display_name"`
	PendingReferral string `json:"pending_referral"`
}

// OAuthExchange resolves an OAuth identity into a profile and token. A
// missing profile row means a first-time login and triggers provisioning.
func (h *Handler) OAuthExchange(c *gin.Context) {
	var req OAuthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	identityID, err := uuid.Parse(req.IdentityID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.UserRepo.GetByID(ctx, identityID)
	provisioned := false
	if errors.Is(err, repository.ErrProfileNotFound) {
		user, err = h.AuthService.ProvisionOAuth(ctx, identityID, req.Email, req.DisplayName, req.PendingReferral)
		provisioned = true
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve profile"})
		return
	}

	token, err := service.GenerateJWT(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"user":        user,
		"provisioned": provisioned,
	})
}
