package client

import (
	"context"
	"errors"

	"ccox_dashboard/internal/domain"
	"ccox_dashboard/internal/logger"

	"github.com/google/uuid"
)

// Identity is what the OAuth provider asserted about the visitor. It is only
// consulted when the stored token does not resolve to an existing profile.
type Identity struct {
	ID              uuid.UUID
	Email           string
	DisplayName     string
	PendingReferral string
}

// Session is the signed-in context handed to the dashboard components. It
// replaces any ambient current-user state: created once after authentication,
// torn down by Close on sign-out.
type Session struct {
	Client *Client
	User   *domain.User
}

// Bootstrap resolves the signed-in identity on page load. A stored token is
// tried first; a profile-not-found answer on an OAuth identity means a first
// login and triggers provisioning. Any other failure aborts so the caller
// can redirect to login.
func Bootstrap(ctx context.Context, c *Client, ident *Identity) (*Session, error) {
	if c.Token() == "" {
		if ident == nil {
			return nil, ErrNotAuthenticated
		}
		return provision(ctx, c, ident)
	}

	user, err := c.Me(ctx)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) && ident != nil {
			return provision(ctx, c, ident)
		}
		return nil, err
	}

	return &Session{Client: c, User: user}, nil
}

func provision(ctx context.Context, c *Client, ident *Identity) (*Session, error) {
	res, err := c.OAuthExchange(ctx, ident.ID, ident.Email, ident.DisplayName, ident.PendingReferral)
	if err != nil {
		return nil, err
	}
	if res.Provisioned {
		logger.Info("profile provisioned on first login",
			"user_id", res.User.ID, "username", res.User.Username)
	}
	return &Session{Client: c, User: res.User}, nil
}

// Refresh re-reads the profile, keeping the session's user state current.
func (s *Session) Refresh(ctx context.Context) error {
	user, err := s.Client.Me(ctx)
	if err != nil {
		return err
	}
	s.User = user
	return nil
}

// Close signs the session out and invalidates its user state.
func (s *Session) Close() {
	s.Client.SignOut()
	s.User = nil
}
