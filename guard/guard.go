package guard

import (
	"github.com/jrsteele09/go-todo-spa/idtoken"
	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	MissingRolesClaimMessage = "Token does not have roles claim. Please ensure that your account is assigned to an app role and then sign-out and sign-in again."
	RoleNotAssignedMessage   = "You do not have access as expected role is missing. Please ensure that your account is assigned to an app role and then sign-out and sign-in again."
)

// SessionProvider gives synchronous access to the signed-in account's decoded ID token claims.
type SessionProvider interface {
	Claims() idtoken.Claims
}

// Notifier shows a message to the user when access is refused.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a plain function to a Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) {
	f(message)
}

// RoleGuard decides whether navigation to a protected route may go ahead.
type RoleGuard struct {
	sessions SessionProvider
	notifier Notifier
}

func NewRoleGuard(sessions SessionProvider, notifier Notifier) *RoleGuard {
	return &RoleGuard{
		sessions: sessions,
		notifier: notifier,
	}
}

// Authorize returns ErrMissingRolesClaim or ErrRoleNotAssigned when the
// session may not reach a route requiring requiredRole.
func (g *RoleGuard) Authorize(requiredRole string) error {
	claims := g.sessions.Claims()
	if !claims.HasRolesClaim() {
		return apperrors.ErrMissingRolesClaim
	}
	if !claims.HasRole(requiredRole) {
		return apperrors.ErrRoleNotAssigned
	}
	return nil
}

// Check reports whether the session holds requiredRole, notifying the user on refusal.
func (g *RoleGuard) Check(requiredRole string) bool {
	err := g.Authorize(requiredRole)
	if err == nil {
		return true
	}

	log.Warn().Err(err).Str("required_role", requiredRole).Msg("Route access refused")
	g.notifier.Notify(Message(err))
	return false
}

// Message returns the user facing text for an authorization failure.
func Message(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrMissingRolesClaim):
		return MissingRolesClaimMessage
	case apperrors.Is(err, apperrors.ErrRoleNotAssigned):
		return RoleNotAssignedMessage
	}
	return ""
}
