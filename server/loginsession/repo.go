package loginsession

import (
	"context"
	"time"

	"github.com/jrsteele09/go-todo-spa/idtoken"
	"golang.org/x/oauth2"
)

// Session is a signed-in browser session. It satisfies guard.SessionProvider.
type Session struct {
	// Core identity
	ID            string         `json:"id"`
	IDTokenClaims idtoken.Claims `json:"claims"`

	// Tokens (refresh keeps the session usable past the access token lifetime)
	IDToken      string    `json:"id_token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	TokenExpiry  time.Time `json:"token_expiry"`

	// Session management
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims returns the decoded ID token claims of the signed-in account.
func (s Session) Claims() idtoken.Claims {
	return s.IDTokenClaims
}

// Token rebuilds the OAuth2 token used to call the to-do list API.
func (s Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.TokenExpiry,
	}
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

type Repo interface {
	Upsert(ctx context.Context, session Session) error
	Get(ctx context.Context, sessionID string) (Session, error)
	Delete(ctx context.Context, sessionID string) error
}
