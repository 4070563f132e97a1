package oidcclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-todo-spa/idtoken"
	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"golang.org/x/oauth2"
)

// Config describes the app registration at the identity provider.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Scopes requested in addition to openid, profile and offline_access,
	// typically the to-do list API scopes.
	Scopes []string
}

// Result is the outcome of a successful code exchange.
type Result struct {
	Token      *oauth2.Token
	RawIDToken string
	Claims     idtoken.Claims
}

// Client drives the authorization code flow against an OpenID Connect provider.
type Client struct {
	oauth2Config       *oauth2.Config
	verifier           *oidc.IDTokenVerifier
	endSessionEndpoint string
}

// New discovers the provider at cfg.Issuer.
func New(ctx context.Context, cfg Config) (*Client, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	var metadata struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&metadata); err != nil {
		return nil, fmt.Errorf("failed to read provider metadata: %w", err)
	}

	c := NewWithEndpoint(cfg, provider.Endpoint(), provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	}))
	c.endSessionEndpoint = metadata.EndSessionEndpoint
	return c, nil
}

// NewWithEndpoint builds a Client from an already known endpoint and verifier.
func NewWithEndpoint(cfg Config, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *Client {
	scopes := append([]string{oidc.ScopeOpenID, "profile", oidc.ScopeOfflineAccess}, cfg.Scopes...)
	return &Client{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier: verifier,
	}
}

// AuthCodeURL returns the provider sign-in URL using S256 PKCE and the given nonce.
func (c *Client) AuthCodeURL(state, nonce, codeVerifier string) string {
	return c.oauth2Config.AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.S256ChallengeOption(codeVerifier),
	)
}

// Exchange trades an authorization code for tokens and verifies the ID token.
func (c *Client) Exchange(ctx context.Context, code, codeVerifier string) (*Result, error) {
	oauth2Token, err := c.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperrors.ErrMissingIDToken
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidIDToken, err)
	}

	var claims idtoken.Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}

	return &Result{
		Token:      oauth2Token,
		RawIDToken: rawIDToken,
		Claims:     claims,
	}, nil
}

// TokenSource returns a source that hands out token and refreshes it once it expires.
func (c *Client) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return c.oauth2Config.TokenSource(ctx, token)
}

// EndSessionURL returns the provider sign-out URL, or "" when the provider
// does not advertise an end_session_endpoint.
func (c *Client) EndSessionURL(idTokenHint, postLogoutRedirectURI string) string {
	if c.endSessionEndpoint == "" {
		return ""
	}
	u, err := url.Parse(c.endSessionEndpoint)
	if err != nil {
		return ""
	}
	q := u.Query()
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	if postLogoutRedirectURI != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	}
	q.Set("client_id", c.oauth2Config.ClientID)
	u.RawQuery = q.Encode()
	return u.String()
}

// GenerateVerifier returns a fresh PKCE code verifier.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}
