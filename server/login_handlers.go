package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-todo-spa/oidcclient"
	"github.com/jrsteele09/go-todo-spa/server/authflowrepo"
	"github.com/rs/zerolog/log"
)

// LoginHandler starts the authorization code flow (GET /login?returnUrl=/path)
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := s.now()
		if removed := s.authState.DeleteExpired(now.Add(-s.config.GetAuthFlowTimeout())); removed > 0 {
			log.Debug().Int("removed", removed).Msg("Discarded abandoned sign-ins")
		}

		state := uuid.New().String()
		nonce := uuid.New().String()
		codeVerifier := oidcclient.GenerateVerifier()

		err := s.authState.Upsert(state, &authflowrepo.AuthFlowState{
			CodeVerifier: codeVerifier,
			Nonce:        nonce,
			ReturnURL:    safeReturnURL(r.URL.Query().Get("returnUrl")),
			CreatedAt:    now,
		})
		if err != nil {
			log.Err(err).Msg("Failed to store sign-in state")
			writeError(w, http.StatusInternalServerError, "server_error", "Failed to start sign-in")
			return
		}

		http.Redirect(w, r, s.authenticator.AuthCodeURL(state, nonce, codeVerifier), http.StatusFound)
	}
}

// LogoutHandler ends the local session and, when the provider supports it, the provider session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postLogout := s.config.GetPostLogoutRedirectURI()
		redirect := func(idTokenHint string) {
			s.ClearLoginSessionCookie(w, r)
			if endSession := s.authenticator.EndSessionURL(idTokenHint, postLogout); endSession != "" {
				http.Redirect(w, r, endSession, http.StatusSeeOther)
				return
			}
			redirectSuccess(w, r, postLogout)
		}

		cookie, err := r.Cookie(loggedInSessionID)
		if err != nil || cookie.Value == "" {
			redirect("")
			return
		}

		session, err := s.loginSessions.Get(r.Context(), cookie.Value)
		if err != nil {
			log.Err(err).Msg("Logout: Invalid session")
			redirect("")
			return
		}

		if err := s.loginSessions.Delete(r.Context(), session.ID); err != nil {
			log.Err(err).Msg("Failed to delete login session")
		}
		redirect(session.IDToken)
	}
}

type meResponse struct {
	Subject       string   `json:"sub"`
	Name          string   `json:"name"`
	HasRolesClaim bool     `json:"has_roles_claim"`
	Roles         []string `json:"roles"`
}

// MeHandler describes the signed-in account (GET /api/me)
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Sign-in required")
			return
		}

		claims := session.Claims()
		roles := claims.Roles
		if roles == nil {
			roles = []string{}
		}
		writeJSON(w, http.StatusOK, meResponse{
			Subject:       claims.Subject,
			Name:          claims.DisplayName(),
			HasRolesClaim: claims.HasRolesClaim(),
			Roles:         roles,
		})
	}
}
