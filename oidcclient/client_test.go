package oidcclient_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/jrsteele09/go-todo-spa/oidcclient"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testClientID     = "spa-client"
	testClientSecret = "spa-secret"
	testKeyID        = "key-1"
	testCode         = "auth-code-1"
	testNonce        = "random-nonce-value"
	testAPIScope     = "api://todo/access_as_user"
)

// fakeIDP serves discovery, JWKS and a token endpoint issuing RS256 ID tokens.
type fakeIDP struct {
	server       *httptest.Server
	key          *rsa.PrivateKey
	idClaims     jwtlib.MapClaims
	omitIDToken  bool
	mu           sync.Mutex
	lastVerifier string
}

func (idp *fakeIDP) verifier() string {
	idp.mu.Lock()
	defer idp.mu.Unlock()
	return idp.lastVerifier
}

func newFakeIDP(t *testing.T) *fakeIDP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &fakeIDP{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", idp.discovery)
	mux.HandleFunc("GET /keys", idp.jwks)
	mux.HandleFunc("POST /token", idp.token)
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)

	idp.idClaims = jwtlib.MapClaims{
		"iss":   idp.server.URL,
		"aud":   testClientID,
		"sub":   "user-1",
		"name":  "Jane Doe",
		"nonce": testNonce,
		"roles": []string{"TaskUser"},
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	return idp
}

func (idp *fakeIDP) discovery(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":                                idp.server.URL,
		"authorization_endpoint":                idp.server.URL + "/authorize",
		"token_endpoint":                        idp.server.URL + "/token",
		"jwks_uri":                              idp.server.URL + "/keys",
		"end_session_endpoint":                  idp.server.URL + "/logout",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (idp *fakeIDP) jwks(w http.ResponseWriter, r *http.Request) {
	pub := idp.key.PublicKey
	_ = json.NewEncoder(w).Encode(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": testKeyID,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (idp *fakeIDP) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.FormValue("code") != testCode {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	idp.mu.Lock()
	idp.lastVerifier = r.FormValue("code_verifier")
	idp.mu.Unlock()

	response := map[string]any{
		"access_token":  "access-token-1",
		"refresh_token": "refresh-token-1",
		"token_type":    "Bearer",
		"expires_in":    3600,
	}
	if !idp.omitIDToken {
		tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, idp.idClaims)
		tok.Header["kid"] = testKeyID
		signed, _ := tok.SignedString(idp.key)
		response["id_token"] = signed
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func newClient(t *testing.T, idp *fakeIDP) *oidcclient.Client {
	t.Helper()
	c, err := oidcclient.New(context.Background(), oidcclient.Config{
		Issuer:       idp.server.URL,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  "http://localhost:8080/callback",
		Scopes:       []string{testAPIScope},
	})
	require.NoError(t, err)
	return c
}

func TestClient_AuthCodeURL(t *testing.T) {
	idp := newFakeIDP(t)
	c := newClient(t, idp)

	verifier := oidcclient.GenerateVerifier()
	authURL, err := url.Parse(c.AuthCodeURL("state-1", testNonce, verifier))
	require.NoError(t, err)

	q := authURL.Query()
	require.Equal(t, idp.server.URL+"/authorize", authURL.Scheme+"://"+authURL.Host+authURL.Path)
	require.Equal(t, "state-1", q.Get("state"))
	require.Equal(t, testNonce, q.Get("nonce"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.NotEqual(t, verifier, q.Get("code_challenge"))
	require.Equal(t, testClientID, q.Get("client_id"))

	scopes := strings.Fields(q.Get("scope"))
	require.Contains(t, scopes, "openid")
	require.Contains(t, scopes, testAPIScope)
}

func TestClient_Exchange(t *testing.T) {
	ctx := context.Background()

	t.Run("valid id token", func(t *testing.T) {
		idp := newFakeIDP(t)
		c := newClient(t, idp)

		result, err := c.Exchange(ctx, testCode, "verifier-1")
		require.NoError(t, err)
		require.Equal(t, "verifier-1", idp.verifier())
		require.Equal(t, "access-token-1", result.Token.AccessToken)
		require.Equal(t, "refresh-token-1", result.Token.RefreshToken)
		require.Equal(t, "user-1", result.Claims.Subject)
		require.Equal(t, testNonce, result.Claims.Nonce)
		require.Equal(t, []string{"TaskUser"}, result.Claims.Roles)
		require.NotEmpty(t, result.RawIDToken)
	})

	t.Run("no roles claim", func(t *testing.T) {
		idp := newFakeIDP(t)
		delete(idp.idClaims, "roles")
		c := newClient(t, idp)

		result, err := c.Exchange(ctx, testCode, "verifier-1")
		require.NoError(t, err)
		require.False(t, result.Claims.HasRolesClaim())
	})

	t.Run("null roles claim", func(t *testing.T) {
		idp := newFakeIDP(t)
		idp.idClaims["roles"] = nil
		c := newClient(t, idp)

		result, err := c.Exchange(ctx, testCode, "verifier-1")
		require.NoError(t, err)
		require.False(t, result.Claims.HasRolesClaim())
	})

	t.Run("single role string", func(t *testing.T) {
		idp := newFakeIDP(t)
		idp.idClaims["roles"] = "TaskUser"
		c := newClient(t, idp)

		result, err := c.Exchange(ctx, testCode, "verifier-1")
		require.NoError(t, err)
		require.Equal(t, []string{"TaskUser"}, result.Claims.Roles)
	})

	t.Run("empty roles claim", func(t *testing.T) {
		idp := newFakeIDP(t)
		idp.idClaims["roles"] = []string{}
		c := newClient(t, idp)

		result, err := c.Exchange(ctx, testCode, "verifier-1")
		require.NoError(t, err)
		require.True(t, result.Claims.HasRolesClaim())
		require.Empty(t, result.Claims.Roles)
	})

	t.Run("wrong audience", func(t *testing.T) {
		idp := newFakeIDP(t)
		idp.idClaims["aud"] = "someone-else"
		c := newClient(t, idp)

		_, err := c.Exchange(ctx, testCode, "verifier-1")
		require.ErrorIs(t, err, apperrors.ErrInvalidIDToken)
	})

	t.Run("missing id token", func(t *testing.T) {
		idp := newFakeIDP(t)
		idp.omitIDToken = true
		c := newClient(t, idp)

		_, err := c.Exchange(ctx, testCode, "verifier-1")
		require.ErrorIs(t, err, apperrors.ErrMissingIDToken)
	})

	t.Run("rejected code", func(t *testing.T) {
		idp := newFakeIDP(t)
		c := newClient(t, idp)

		_, err := c.Exchange(ctx, "wrong-code", "verifier-1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "token exchange failed")
	})
}

func TestClient_TokenSourceSendsBearer(t *testing.T) {
	idp := newFakeIDP(t)
	c := newClient(t, idp)

	seen := make(chan string, 1)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("Authorization")
	}))
	defer api.Close()

	result, err := c.Exchange(context.Background(), testCode, "verifier-1")
	require.NoError(t, err)

	httpClient := oauth2.NewClient(context.Background(), c.TokenSource(context.Background(), result.Token))
	resp, err := httpClient.Get(api.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "Bearer access-token-1", <-seen)
}

func TestClient_EndSessionURL(t *testing.T) {
	idp := newFakeIDP(t)
	c := newClient(t, idp)

	logoutURL, err := url.Parse(c.EndSessionURL("raw-id-token", "http://localhost:8080/"))
	require.NoError(t, err)
	require.Equal(t, "/logout", logoutURL.Path)
	require.Equal(t, "raw-id-token", logoutURL.Query().Get("id_token_hint"))
	require.Equal(t, "http://localhost:8080/", logoutURL.Query().Get("post_logout_redirect_uri"))
	require.Equal(t, testClientID, logoutURL.Query().Get("client_id"))

	withoutLogout := oidcclient.NewWithEndpoint(oidcclient.Config{ClientID: testClientID}, oauth2.Endpoint{}, nil)
	require.Empty(t, withoutLogout.EndSessionURL("raw-id-token", "/"))
}
