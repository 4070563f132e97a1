package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-todo-spa/guard"
	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/jrsteele09/go-todo-spa/server/loginsession"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the signed-in loginsession.Session
	ContextKeySession ContextKey = "session"
)

// SessionFromContext returns the session RequireSession attached to ctx.
func SessionFromContext(ctx context.Context) (loginsession.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(loginsession.Session)
	return session, ok
}

// RequireSession resolves the session cookie into a login session.
// Requests without a live session get a 401 so the browser app can start /login.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(loggedInSessionID)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Sign-in required")
				return
			}

			session, err := s.loginSessions.Get(r.Context(), cookie.Value)
			if err != nil {
				if !apperrors.Is(err, apperrors.ErrSessionNotFound) {
					log.Err(err).Msg("Failed to load login session")
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid session")
				return
			}

			if session.Expired(s.now()) {
				if err := s.loginSessions.Delete(r.Context(), session.ID); err != nil {
					log.Err(err).Msg("Failed to delete expired login session")
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", "Session expired")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole runs the role guard for the route. It must follow RequireSession.
func (s *Server) RequireRole(requiredRole string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Sign-in required")
				return
			}

			notifier := &forbiddenNotifier{w: w}
			allowed := guard.NewRoleGuard(session, notifier).Check(requiredRole)
			s.metrics.ObserveGuardDecision(requiredRole, allowed)
			if !allowed {
				return
			}

			next(w, r)
		}
	}
}

// forbiddenNotifier delivers the guard's message as a 403 response.
type forbiddenNotifier struct {
	w http.ResponseWriter
}

func (n *forbiddenNotifier) Notify(message string) {
	writeError(n.w, http.StatusForbidden, "forbidden", message)
}
