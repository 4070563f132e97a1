package server

import (
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/jrsteele09/go-todo-spa/server/loginsession"
	"github.com/rs/zerolog/log"
)

const sessionIDLength = 32

// expiringSessions is implemented by session stores without their own expiry, such as
// loginsession.InMemoryRepo. Redis expires sessions through key TTLs.
type expiringSessions interface {
	DeleteExpired(now time.Time) int
}

func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue works for both query params and POST form data
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		// Check for authorization errors
		if errorParam != "" {
			log.Warn().Str("error", errorParam).Str("description", errorDesc).Msg("Provider refused sign-in")
			writeError(w, http.StatusBadRequest, errorParam, errorDesc)
			return
		}

		if code == "" || state == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "Missing code or state parameter")
			return
		}

		// State is single use
		authState, err := s.authState.Take(state)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid state parameter")
			return
		}

		now := s.now()
		if now.Sub(authState.CreatedAt) > s.config.GetAuthFlowTimeout() {
			writeError(w, http.StatusBadRequest, "invalid_request", "Sign-in took too long, please try again")
			return
		}

		result, err := s.authenticator.Exchange(r.Context(), code, authState.CodeVerifier)
		if err != nil {
			log.Err(err).Msg("Token exchange failed")
			writeError(w, http.StatusBadGateway, "server_error", "Token exchange failed")
			return
		}

		// Validate nonce to prevent replay attacks
		if result.Claims.Nonce != authState.Nonce {
			log.Warn().Err(apperrors.ErrInvalidNonce).Str("sub", result.Claims.Subject).Msg("Rejected ID token")
			writeError(w, http.StatusUnauthorized, "invalid_request", apperrors.ErrInvalidNonce.Error())
			return
		}

		maxAge := s.config.GetSessionMaxAge()
		session := loginsession.Session{
			ID:            generateRandomString(sessionIDLength),
			IDTokenClaims: result.Claims,
			IDToken:       result.RawIDToken,
			AccessToken:   result.Token.AccessToken,
			RefreshToken:  result.Token.RefreshToken,
			TokenType:     result.Token.TokenType,
			TokenExpiry:   result.Token.Expiry,
			CreatedAt:     now,
			ExpiresAt:     now.Add(maxAge),
		}

		if err := s.loginSessions.Upsert(r.Context(), session); err != nil {
			log.Err(err).Msg("Failed to create login session")
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to create session")
			return
		}

		s.sweepExpiredSessions(now)

		s.SetLoginSessionCookie(w, session.ID, r, int(maxAge.Seconds()))
		log.Info().Str("sub", result.Claims.Subject).Msg("Signed in")

		redirectSuccess(w, r, authState.ReturnURL)
	}
}

// sweepExpiredSessions drops sessions whose owners never came back to sign out.
func (s *Server) sweepExpiredSessions(now time.Time) {
	sessions, ok := s.loginSessions.(expiringSessions)
	if !ok {
		return
	}
	if removed := sessions.DeleteExpired(now); removed > 0 {
		log.Debug().Int("removed", removed).Msg("Discarded expired login sessions")
	}
}
